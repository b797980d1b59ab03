//go:build unix

package commands

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/latoulicious/Cantdrown/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// titleResolver answers metadata runs with the locator as title and fails
// any locator containing "bad".
const titleResolver = `for a; do loc="$a"; done
case "$loc" in
*bad*) echo "ERROR: [generic] $loc: Video unavailable" >&2; exit 1 ;;
esac
printf '{"title":"%s","webpage_url":"%s","duration":61}\n' "$loc" "$loc" >&2`

func TestQueryLocator(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"https://www.youtube.com/watch?v=abc"}, "https://www.youtube.com/watch?v=abc"},
		{[]string{"www.youtube.com/watch?v=abc"}, "https://www.youtube.com/watch?v=abc"},
		{[]string{"https://example.com/a", "extra"}, "https://example.com/a"},
		{[]string{"never", "gonna", "give"}, "ytsearch1:never gonna give"},
		{[]string{"  lofi  "}, "ytsearch1:lofi"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, queryLocator(tt.args), "args %q", tt.args)
	}
}

func TestPlayableEntries(t *testing.T) {
	s := func(v string) *string { return &v }
	entries := []*string{s("a"), nil, s("b"), s("  "), s("c"), s("d")}

	locators, missing := playableEntries(entries, 3)
	assert.Equal(t, []string{"a", "b", "c"}, locators)
	assert.Equal(t, 2, missing)

	locators, missing = playableEntries(nil, 3)
	assert.Empty(t, locators)
	assert.Zero(t, missing)
}

func TestDescribeError(t *testing.T) {
	upstream := &pipeline.Error{Kind: pipeline.KindUpstreamResolution, Op: "read metadata", Err: errors.New("Video unavailable")}
	silent := &pipeline.Error{Kind: pipeline.KindProcessSpawn, Op: "read metadata", Err: fmt.Errorf("%w: exit status 3", pipeline.ErrNoDiagnosticOutput)}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", fmt.Errorf("open: %w", context.DeadlineExceeded), "Timed out while resolving the song."},
		{"empty", pipeline.ErrEmptyLocator, "Nothing to play."},
		{"transcoder", fmt.Errorf("%w: exit status 1", pipeline.ErrTranscoderExit), "The audio stream ended unexpectedly."},
		{"upstream", upstream, "The source could not be resolved: Video unavailable"},
		{"no output", silent, "The audio tools could not be started."},
		{"parse", &pipeline.Error{Kind: pipeline.KindMetadataParse, Err: errors.New("bad json")}, "The resolver returned unreadable metadata."},
		{"spawn", &pipeline.Error{Kind: pipeline.KindProcessSpawn, Err: errors.New("no such file")}, "The audio tools could not be started."},
		{"pipe", &pipeline.Error{Kind: pipeline.KindPipeUnavailable, Err: errors.New("too many files")}, "The audio pipeline could not be set up."},
		{"other", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeError(tt.err))
		})
	}
}

func TestOpenItemIsLazy(t *testing.T) {
	b := testBot(t, writeScript(t, "resolver", titleResolver), Options{})

	item, err := b.openItem(context.Background(), "https://example.com/one", "alice")
	require.NoError(t, err)
	t.Cleanup(item.Close)

	assert.Equal(t, pipeline.StateMetadataOnly, item.Source.State())
	assert.Equal(t, "https://example.com/one", item.Title)
	assert.Equal(t, "alice", item.RequestedBy)
	assert.Equal(t, int64(61), int64(item.Duration.Seconds()))
}

func TestOpenItemFailure(t *testing.T) {
	b := testBot(t, writeScript(t, "resolver", titleResolver), Options{})

	item, err := b.openItem(context.Background(), "https://example.com/bad", "alice")
	require.Error(t, err)
	assert.Nil(t, item)
	assert.True(t, pipeline.IsKind(err, pipeline.KindUpstreamResolution))
	assert.Contains(t, describeError(err), "Video unavailable")
}

func TestOpenAllKeepsOrderAndSkipsFailures(t *testing.T) {
	b := testBot(t, writeScript(t, "resolver", titleResolver), Options{})

	locators := []string{
		"https://example.com/1",
		"https://example.com/bad-2",
		"https://example.com/3",
		"https://example.com/4",
		"https://example.com/bad-5",
		"https://example.com/6",
	}

	items, failed := b.openAll(context.Background(), locators, "alice")
	t.Cleanup(func() {
		for _, item := range items {
			item.Close()
		}
	})

	assert.Equal(t, 2, failed)
	titles := make([]string, 0, len(items))
	for _, item := range items {
		titles = append(titles, item.Title)
	}
	assert.Equal(t, []string{
		"https://example.com/1",
		"https://example.com/3",
		"https://example.com/4",
		"https://example.com/6",
	}, titles)
}

func TestOpenAllHonoursCancel(t *testing.T) {
	b := testBot(t, writeScript(t, "resolver", titleResolver), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, failed := b.openAll(ctx, []string{"https://example.com/1", "https://example.com/2"}, "alice")
	assert.Empty(t, items)
	assert.Equal(t, 2, failed)
}

func TestEnqueueThenClearReleasesSource(t *testing.T) {
	b := testBot(t, writeScript(t, "resolver", titleResolver), Options{})
	queue := b.getOrCreateQueue("guild")

	item, err := b.openItem(context.Background(), "https://example.com/one", "alice")
	require.NoError(t, err)

	assert.Equal(t, 1, b.enqueue("guild", queue, item))
	assert.Equal(t, 1, queue.Size())
	queue.Clear()
	assert.Equal(t, pipeline.StateUninitialized, item.Source.State())
}
