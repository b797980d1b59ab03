//go:build unix

package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscoderArgs(t *testing.T) {
	assert.Equal(t, []string{
		"-i", "-", "-f", "s16le", "-ac", "2", "-ar", "48000",
		"-acodec", "pcm_f32le", "-af", "loudnorm=I=-16:LRA=11:TP=-1.5", "-",
	}, TranscoderArgs(nil))

	offset := 12345 * time.Millisecond
	args := TranscoderArgs(&offset)
	require.GreaterOrEqual(t, len(args), 4)
	assert.Equal(t, []string{"-ss", "12.345", "-i", "-"}, args[:4])
}

func TestFormatOffset(t *testing.T) {
	assert.Equal(t, "0.000", FormatOffset(0))
	assert.Equal(t, "90.500", FormatOffset(90*time.Second+500*time.Millisecond))
	assert.Equal(t, "0.001", FormatOffset(time.Millisecond))
}

func TestResolverArgsEndWithLocator(t *testing.T) {
	for _, args := range [][]string{
		ResolverArgs("bestaudio", "-rf"),
		MetadataArgs("bestaudio", "-rf"),
		PlaylistArgs("-rf"),
	} {
		require.GreaterOrEqual(t, len(args), 2)
		assert.Equal(t, []string{"--", "-rf"}, args[len(args)-2:])
	}
	assert.Contains(t, ResolverArgs("f", "x"), "--print-json")
	assert.Equal(t, "-j", MetadataArgs("f", "x")[0])
}

func TestSpawnStreamsAudio(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	spawner := NewSpawner(testConfig(fakeResolver(t), fakeTranscoder(t, argsFile)), NopLogger())

	before := testutil.ToFloat64(livePipelines)
	p, md, err := spawner.Spawn(context.Background(), "https://example.com/a", nil)
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(livePipelines))

	assert.Equal(t, "Fake Song", md.Title)
	assert.Equal(t, 12500*time.Millisecond, md.DurationOrZero())

	audio, err := io.ReadAll(p)
	require.NoError(t, err)
	assert.Equal(t, "RAWMEDIA", string(audio))

	require.NoError(t, p.Close())
	assert.Equal(t, before, testutil.ToFloat64(livePipelines))

	recorded, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.NotContains(t, string(recorded), "-ss")
}

func TestSpawnPassesOffsetToTranscoder(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	spawner := NewSpawner(testConfig(fakeResolver(t), fakeTranscoder(t, argsFile)), NopLogger())

	offset := 12345 * time.Millisecond
	p, _, err := spawner.Spawn(context.Background(), "https://example.com/a", &offset)
	require.NoError(t, err)
	defer p.Close()

	_, err = io.ReadAll(p)
	require.NoError(t, err)

	recorded, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(recorded)), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, []string{"-ss", "12.345"}, lines[:2])
	assert.Equal(t, &offset, p.Offset())
}

func TestSpawnFailures(t *testing.T) {
	transcoder := fakeTranscoder(t, filepath.Join(t.TempDir(), "args"))

	tests := []struct {
		name     string
		resolver string
		kind     ErrorKind
		raw      string
	}{
		{
			name:     "missing resolver binary",
			resolver: filepath.Join(t.TempDir(), "does-not-exist"),
			kind:     KindProcessSpawn,
		},
		{
			name:     "malformed record",
			resolver: writeScript(t, "garbage", "printf 'not json at all\\n' >&2"),
			kind:     KindMetadataParse,
			raw:      "not json at all\n",
		},
		{
			name:     "failed exit without output",
			resolver: writeScript(t, "silent", "exit 3"),
			kind:     KindProcessSpawn,
		},
		{
			name:     "clean exit without record",
			resolver: writeScript(t, "quiet", "exit 0"),
			kind:     KindMetadataParse,
		},
		{
			name:     "upstream error",
			resolver: writeScript(t, "unsupported", "printf 'ERROR: Unsupported URL: x\\n' >&2\nexit 1"),
			kind:     KindUpstreamResolution,
			raw:      "ERROR: Unsupported URL: x\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spawner := NewSpawner(testConfig(tt.resolver, transcoder), NopLogger())
			before := testutil.ToFloat64(spawnTotal.WithLabelValues(tt.kind.String()))

			p, md, err := spawner.Spawn(context.Background(), "https://example.com/x", nil)
			assert.Nil(t, p)
			assert.Nil(t, md)

			var pe *Error
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, tt.kind, pe.Kind)
			assert.Equal(t, "https://example.com/x", pe.Locator)
			if tt.raw != "" {
				assert.Equal(t, tt.raw, string(pe.Raw))
			}
			assert.Equal(t, before+1, testutil.ToFloat64(spawnTotal.WithLabelValues(tt.kind.String())))
		})
	}
}

func TestSpawnMissingTranscoderStopsResolver(t *testing.T) {
	resolver := writeScript(t, "resolver", "printf '%s\\n' '"+fakeRecord+"' >&2\nexec sleep 30")
	spawner := NewSpawner(testConfig(resolver, filepath.Join(t.TempDir(), "no-ffmpeg")), NopLogger())

	start := time.Now()
	_, _, err := spawner.Spawn(context.Background(), "https://example.com/a", nil)
	assert.True(t, IsKind(err, KindProcessSpawn))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSpawnEmptyLocator(t *testing.T) {
	spawner := NewSpawner(testConfig("unused", "unused"), NopLogger())
	_, _, err := spawner.Spawn(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, ErrEmptyLocator)
}

func TestSpawnHonoursContextWhileWaitingForMetadata(t *testing.T) {
	resolver := writeScript(t, "stalled", "sleep 30")
	spawner := NewSpawner(testConfig(resolver, "unused"), NopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := spawner.Spawn(ctx, "https://example.com/a", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestPipelineTranscoderFailure(t *testing.T) {
	transcoder := writeScript(t, "failing", "cat > /dev/null\nexit 3")
	spawner := NewSpawner(testConfig(fakeResolver(t), transcoder), NopLogger())

	p, _, err := spawner.Spawn(context.Background(), "https://example.com/a", nil)
	require.NoError(t, err)
	defer p.Close()

	_, err = io.ReadAll(p)
	assert.ErrorIs(t, err, ErrTranscoderExit)
}

func TestPipelineCloseTerminatesProcesses(t *testing.T) {
	resolver := writeScript(t, "resolver", "printf '%s\\n' '"+fakeRecord+"' >&2\nprintf 'late warning\\n' >&2\nexec sleep 30")
	spawner := NewSpawner(testConfig(resolver, fakeTranscoder(t, filepath.Join(t.TempDir(), "args"))), NopLogger())

	p, _, err := spawner.Spawn(context.Background(), "https://example.com/a", nil)
	require.NoError(t, err)

	resolverPID, transcoderPID := p.PIDs()
	require.NotZero(t, resolverPID)
	require.NotZero(t, transcoderPID)

	assert.Eventually(t, func() bool {
		return len(p.ResolverTail()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	assert.ErrorIs(t, syscall.Kill(resolverPID, 0), syscall.ESRCH)
	assert.ErrorIs(t, syscall.Kill(transcoderPID, 0), syscall.ESRCH)
	assert.Equal(t, []string{"late warning"}, p.ResolverTail())

	_, err = p.Read(make([]byte, 16))
	assert.ErrorIs(t, err, ErrPipelineClosed)
}

func TestFetchMetadata(t *testing.T) {
	resolver := writeScript(t, "meta", `[ "$1" = "-j" ] || exit 2
printf '%s\n' '{"title":"Meta Only","duration":61}' >&2`)
	spawner := NewSpawner(testConfig(resolver, "unused"), NopLogger())

	md, err := spawner.FetchMetadata(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "Meta Only", md.Title)
	assert.Equal(t, 61*time.Second, md.DurationOrZero())
}

func TestFetchMetadataFromStdout(t *testing.T) {
	resolver := writeScript(t, "meta", `printf '%s\n' '{"title":"On Stdout"}'`)
	spawner := NewSpawner(testConfig(resolver, "unused"), NopLogger())

	md, err := spawner.FetchMetadata(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "On Stdout", md.Title)
}

func TestFetchMetadataPrefersStdoutRecordOverStrayDiagnostics(t *testing.T) {
	resolver := writeScript(t, "meta", `printf 'WARNING: falling back to generic extractor\n' >&2
printf '%s\n' '{"title":"Still Found"}'`)
	spawner := NewSpawner(testConfig(resolver, "unused"), NopLogger())

	md, err := spawner.FetchMetadata(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "Still Found", md.Title)
}

func TestFetchMetadataSilentFailedExit(t *testing.T) {
	resolver := writeScript(t, "meta", "exit 3")
	spawner := NewSpawner(testConfig(resolver, "unused"), NopLogger())

	_, err := spawner.FetchMetadata(context.Background(), "https://example.com/a")
	assert.True(t, IsKind(err, KindProcessSpawn))
	assert.ErrorIs(t, err, ErrNoDiagnosticOutput)

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "fetch metadata", pe.Op)
	assert.Equal(t, "https://example.com/a", pe.Locator)
}

func TestFetchMetadataUpstreamError(t *testing.T) {
	resolver := writeScript(t, "meta", "printf 'ERROR: Private video\\n' >&2\nexit 1")
	spawner := NewSpawner(testConfig(resolver, "unused"), NopLogger())

	_, err := spawner.FetchMetadata(context.Background(), "https://example.com/a")
	assert.True(t, IsKind(err, KindUpstreamResolution))
	assert.Contains(t, err.Error(), "Private video")
}
