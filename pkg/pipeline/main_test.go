package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// writeScript writes an executable /bin/sh script into a temp dir.
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

// testConfig points the spawner at fake resolver and transcoder scripts.
func testConfig(resolver, transcoder string) *Config {
	cfg := DefaultConfig()
	cfg.Resolver.BinaryPath = resolver
	cfg.Transcoder.BinaryPath = transcoder
	cfg.Process.TerminateGrace = 500 * time.Millisecond
	return cfg
}

const fakeRecord = `{"title":"Fake Song","duration":12.5,"webpage_url":"https://example.com/a","id":"abc"}`

// fakeResolver emits a metadata record then a few media bytes.
func fakeResolver(t *testing.T) string {
	return writeScript(t, "resolver", "printf '%s\\n' '"+fakeRecord+"' >&2\nprintf 'RAWMEDIA'")
}

// fakeTranscoder records its arguments then copies stdin to stdout.
func fakeTranscoder(t *testing.T, argsFile string) string {
	return writeScript(t, "transcoder", "printf '%s\\n' \"$@\" > '"+argsFile+"'\ncat")
}
