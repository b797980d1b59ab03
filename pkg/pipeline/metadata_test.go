package pipeline

import (
	"bufio"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadata(t *testing.T) {
	raw := []byte(`{"title":"Song","track":"Track","artist":"Band","upload_date":"20200101",` +
		`"uploader":"Uploader","thumbnail":"https://img/1.jpg","webpage_url":"https://example.com/v",` +
		`"duration":215.5,"start_time":3,"id":"xyz","view_count":42}` + "\n")

	md, err := ParseMetadata(raw)
	require.NoError(t, err)

	assert.Equal(t, "Song", md.Title)
	assert.Equal(t, "Track", md.Track)
	assert.Equal(t, "Band", md.Artist)
	assert.Equal(t, "20200101", md.Date)
	assert.Equal(t, "Uploader", md.Channel)
	assert.Equal(t, "https://img/1.jpg", md.Thumbnail)
	assert.Equal(t, "https://example.com/v", md.SourceURL)
	require.NotNil(t, md.Duration)
	assert.Equal(t, 215500*time.Millisecond, *md.Duration)
	require.NotNil(t, md.StartTime)
	assert.Equal(t, 3*time.Second, *md.StartTime)

	assert.Equal(t, "Band - Track", md.DisplayTitle())
	assert.JSONEq(t, `"xyz"`, string(md.Extra["id"]))
	assert.JSONEq(t, `42`, string(md.Extra["view_count"]))
	assert.NotContains(t, md.Extra, "title")
}

func TestParseMetadataOptionalFields(t *testing.T) {
	md, err := ParseMetadata([]byte(`{"title":"Live Now","duration":null,"channel":"Chan","uploader":"Up"}`))
	require.NoError(t, err)

	assert.Nil(t, md.Duration)
	assert.Nil(t, md.StartTime)
	assert.Equal(t, time.Duration(0), md.DurationOrZero())
	assert.Equal(t, "Chan", md.Channel)
	assert.Equal(t, "Live Now", md.DisplayTitle())
}

func TestParseMetadataOnlyFirstLine(t *testing.T) {
	md, err := ParseMetadata([]byte("{\"title\":\"first\"}\n{\"title\":\"second\"}\n"))
	require.NoError(t, err)
	assert.Equal(t, "first", md.Title)
}

func TestParseMetadataMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", "this is not json\n"},
		{"truncated", `{"title":"half`},
		{"array", `["title"]`},
		{"null", "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, err := ParseMetadata([]byte(tt.raw))
			assert.Nil(t, md)

			var pe *Error
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, KindMetadataParse, pe.Kind)
			assert.Equal(t, tt.raw, string(pe.Raw))
		})
	}
}

func TestInterpretDiagnostic(t *testing.T) {
	t.Run("empty output on failed exit", func(t *testing.T) {
		_, err := interpretDiagnostic(nil, errors.New("exit status 1"))
		assert.True(t, IsKind(err, KindProcessSpawn))
		assert.ErrorIs(t, err, ErrNoDiagnosticOutput)
	})

	t.Run("empty output on clean exit", func(t *testing.T) {
		_, err := interpretDiagnostic([]byte("\n"), nil)
		assert.True(t, IsKind(err, KindMetadataParse))
		assert.ErrorIs(t, err, ErrNoDiagnosticOutput)
	})

	t.Run("resolver error line", func(t *testing.T) {
		_, err := interpretDiagnostic([]byte("ERROR: Unsupported URL: nope\n"), nil)
		assert.True(t, IsKind(err, KindUpstreamResolution))
		assert.Contains(t, err.Error(), "Unsupported URL")
	})

	t.Run("error after warnings on failed exit", func(t *testing.T) {
		raw := []byte("WARNING: something\nERROR: Video unavailable\n")
		_, err := interpretDiagnostic(raw, errors.New("exit status 1"))
		assert.True(t, IsKind(err, KindUpstreamResolution))
	})

	t.Run("garbage on clean exit", func(t *testing.T) {
		_, err := interpretDiagnostic([]byte("WARNING: only\n"), nil)
		assert.True(t, IsKind(err, KindMetadataParse))
	})

	t.Run("valid record", func(t *testing.T) {
		md, err := interpretDiagnostic([]byte(`{"title":"ok"}`+"\n"), nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", md.Title)
	})
}

func TestReadMetadataLine(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write([]byte(`{"title":"streamed"}` + "\ntrailing diagnostics\n"))
		_ = pw.Close()
	}()

	r := bufio.NewReader(pr)
	md, err := ReadMetadataLine(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "streamed", md.Title)

	// The rest of the stream is left for the drain.
	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "trailing diagnostics\n", string(rest))
}

func TestReadMetadataLineHonoursContext(t *testing.T) {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := ReadMetadataLine(ctx, bufio.NewReader(pr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	// Closing the stream releases the detached reader.
	_ = pw.CloseWithError(io.ErrClosedPipe)
	_ = pr.Close()
}

func TestReadMetadataLineEmptyStream(t *testing.T) {
	pr, pw := io.Pipe()
	_ = pw.Close()

	_, err := ReadMetadataLine(context.Background(), bufio.NewReader(pr))
	assert.True(t, IsKind(err, KindMetadataParse))
	assert.ErrorIs(t, err, ErrNoDiagnosticOutput)
}

func TestReadMetadataLineEmptyStreamFailedExit(t *testing.T) {
	pr, pw := io.Pipe()
	_ = pw.Close()

	exitStatus := func() error { return errors.New("exit status 3") }
	_, err := readMetadataLine(context.Background(), bufio.NewReader(pr), exitStatus)
	assert.True(t, IsKind(err, KindProcessSpawn))
	assert.ErrorIs(t, err, ErrNoDiagnosticOutput)
}
