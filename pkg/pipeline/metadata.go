package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// Metadata describes a resolved media item. It is immutable once produced;
// a restart replaces it wholesale.
type Metadata struct {
	Title     string
	Track     string
	Artist    string
	Date      string
	Channel   string
	Thumbnail string
	// SourceURL is the canonical locator reported by the resolver.
	SourceURL string
	// Duration is nil for live streams or when the resolver does not know it.
	Duration  *time.Duration
	StartTime *time.Duration
	// Extra holds every resolver field not mapped above, untouched.
	Extra map[string]json.RawMessage
}

// DurationOrZero returns the duration, or zero when unknown.
func (m *Metadata) DurationOrZero() time.Duration {
	if m == nil || m.Duration == nil {
		return 0
	}
	return *m.Duration
}

// DisplayTitle returns the best human label for the item.
func (m *Metadata) DisplayTitle() string {
	switch {
	case m == nil:
		return "Unknown Title"
	case m.Track != "" && m.Artist != "":
		return m.Artist + " - " + m.Track
	case m.Title != "":
		return m.Title
	case m.SourceURL != "":
		return m.SourceURL
	default:
		return "Unknown Title"
	}
}

var mappedKeys = map[string]bool{
	"title":       true,
	"track":       true,
	"artist":      true,
	"upload_date": true,
	"uploader":    true,
	"channel":     true,
	"thumbnail":   true,
	"webpage_url": true,
	"duration":    true,
	"start_time":  true,
}

// ParseMetadata decodes the first newline-terminated record in raw (or all
// of raw if it has no newline). Any failure is a KindMetadataParse error
// carrying raw verbatim.
func ParseMetadata(raw []byte) (*Metadata, error) {
	record := raw
	if end := bytes.IndexByte(raw, '\n'); end >= 0 {
		record = raw[:end]
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(record, &fields); err != nil {
		return nil, newError(KindMetadataParse, "parse metadata", "", raw, err)
	}
	if fields == nil {
		return nil, newError(KindMetadataParse, "parse metadata", "", raw, errors.New("record is not an object"))
	}

	md := &Metadata{
		Title:     stringField(fields, "title"),
		Track:     stringField(fields, "track"),
		Artist:    stringField(fields, "artist"),
		Date:      stringField(fields, "upload_date"),
		Channel:   stringField(fields, "channel"),
		Thumbnail: stringField(fields, "thumbnail"),
		SourceURL: stringField(fields, "webpage_url"),
		Duration:  secondsField(fields, "duration"),
		StartTime: secondsField(fields, "start_time"),
		Extra:     make(map[string]json.RawMessage),
	}
	if md.Channel == "" {
		md.Channel = stringField(fields, "uploader")
	}

	for key, value := range fields {
		if !mappedKeys[key] {
			md.Extra[key] = value
		}
	}

	return md, nil
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func secondsField(fields map[string]json.RawMessage, key string) *time.Duration {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var seconds *float64
	if err := json.Unmarshal(raw, &seconds); err != nil || seconds == nil {
		return nil
	}
	if math.IsNaN(*seconds) || *seconds < 0 {
		return nil
	}
	d := time.Duration(*seconds * float64(time.Second))
	return &d
}

type lineResult struct {
	line []byte
	err  error
}

// readLineDetached reads one line on a dedicated goroutine so a stalled
// writer cannot hold the caller past ctx. The goroutine exits after its
// single read; if ctx ends first it exits once r is closed by the owner.
func readLineDetached(ctx context.Context, r *bufio.Reader) ([]byte, error) {
	result := make(chan lineResult, 1)
	go func() {
		line, err := r.ReadBytes('\n')
		result <- lineResult{line: line, err: err}
	}()

	select {
	case res := <-result:
		return res.line, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReadMetadataLine reads a single record from a live resolver diagnostic
// stream and decodes it.
func ReadMetadataLine(ctx context.Context, r *bufio.Reader) (*Metadata, error) {
	return readMetadataLine(ctx, r, nil)
}

// readMetadataLine is ReadMetadataLine with a way to learn the resolver's
// exit status when the stream ends without a record.
func readMetadataLine(ctx context.Context, r *bufio.Reader, exitStatus func() error) (*Metadata, error) {
	line, err := readLineDetached(ctx, r)
	if ctxErr := ctx.Err(); ctxErr != nil && line == nil {
		return nil, ctxErr
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, newError(KindPipeUnavailable, "read metadata", "", line, err)
	}

	var exitErr error
	if len(bytes.TrimSpace(line)) == 0 && exitStatus != nil {
		exitErr = exitStatus()
	}
	return interpretDiagnostic(line, exitErr)
}

// interpretDiagnostic classifies resolver diagnostic output. exitErr is the
// resolver's exit error when known. A failed exit with no output at all is a
// spawn failure; a clean one is a missing record.
func interpretDiagnostic(raw []byte, exitErr error) (*Metadata, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		if exitErr != nil {
			return nil, newError(KindProcessSpawn, "read metadata", "", raw, fmt.Errorf("%w: %v", ErrNoDiagnosticOutput, exitErr))
		}
		return nil, newError(KindMetadataParse, "read metadata", "", raw, ErrNoDiagnosticOutput)
	}

	if msg, ok := resolverError(raw); ok {
		return nil, newError(KindUpstreamResolution, "read metadata", "", raw, errors.New(msg))
	}

	md, err := ParseMetadata(raw)
	if err != nil {
		if exitErr != nil {
			if msg, ok := findResolverError(raw); ok {
				return nil, newError(KindUpstreamResolution, "read metadata", "", raw, errors.New(msg))
			}
		}
		return nil, err
	}
	return md, nil
}

var errorPrefix = []byte("ERROR:")

// resolverError reports whether the first line of raw is a resolver error line.
func resolverError(raw []byte) (string, bool) {
	first := raw
	if end := bytes.IndexByte(raw, '\n'); end >= 0 {
		first = raw[:end]
	}
	first = bytes.TrimSpace(first)
	if bytes.HasPrefix(first, errorPrefix) {
		return string(bytes.TrimSpace(first[len(errorPrefix):])), true
	}
	return "", false
}

// findResolverError returns the first resolver error line anywhere in raw.
func findResolverError(raw []byte) (string, bool) {
	for _, line := range bytes.Split(raw, []byte("\n")) {
		if msg, ok := resolverError(line); ok {
			return msg, true
		}
	}
	return "", false
}
