//go:build unix

package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTools(t *testing.T) {
	resolver := writeScript(t, "resolver", `[ "$1" = "--version" ] && echo "2025.01.15" && exit 0
exit 2`)
	transcoder := writeScript(t, "transcoder", `[ "$1" = "-version" ] && printf 'ffmpeg version 7.1\nbuilt with gcc\n' && exit 0
exit 2`)

	versions, err := NewSpawner(testConfig(resolver, transcoder), NopLogger()).CheckTools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025.01.15", versions.Resolver)
	assert.Equal(t, "ffmpeg version 7.1", versions.Transcoder)
}

func TestCheckToolsMissingTranscoder(t *testing.T) {
	resolver := writeScript(t, "resolver", `echo "2025.01.15"`)
	missing := filepath.Join(t.TempDir(), "ffmpeg")

	versions, err := NewSpawner(testConfig(resolver, missing), NopLogger()).CheckTools(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindProcessSpawn))
	assert.Equal(t, "2025.01.15", versions.Resolver)
	assert.Empty(t, versions.Transcoder)
}

func TestCheckToolsFailingResolver(t *testing.T) {
	resolver := writeScript(t, "resolver", `exit 1`)

	_, err := NewSpawner(testConfig(resolver, "cat"), NopLogger()).CheckTools(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check resolver")
}
