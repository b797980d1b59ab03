package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ParsePlaylist extracts entries[].url from a flat listing, in order. An
// entry without a string url yields nil at its position.
func ParsePlaylist(raw []byte) ([]*string, error) {
	var listing map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(raw), &listing); err != nil {
		return nil, newError(KindMetadataParse, "parse playlist", "", raw, err)
	}
	if listing == nil {
		return nil, newError(KindMetadataParse, "parse playlist", "", raw, errors.New("listing is not an object"))
	}

	var entries []json.RawMessage
	if rawEntries, ok := listing["entries"]; ok {
		if err := json.Unmarshal(rawEntries, &entries); err != nil {
			return nil, newError(KindMetadataParse, "parse playlist", "", raw, err)
		}
	}

	urls := make([]*string, 0, len(entries))
	for _, entry := range entries {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil || fields == nil {
			urls = append(urls, nil)
			continue
		}
		if url := stringField(fields, "url"); url != "" {
			urls = append(urls, &url)
		} else {
			urls = append(urls, nil)
		}
	}
	return urls, nil
}

// ExpandPlaylist lists a playlist locator without resolving its items.
func (s *Spawner) ExpandPlaylist(ctx context.Context, locator string) ([]*string, error) {
	if strings.TrimSpace(locator) == "" {
		return nil, ErrEmptyLocator
	}

	stdout, stderr, exitErr, err := s.runResolver(ctx, PlaylistArgs(locator))
	if err != nil {
		return nil, newError(KindProcessSpawn, "expand playlist", locator, nil, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	urls, parseErr := ParsePlaylist(stderr)
	if parseErr != nil && len(bytes.TrimSpace(stdout)) > 0 {
		urls, parseErr = ParsePlaylist(stdout)
	}
	if parseErr != nil {
		if msg, ok := findResolverError(stderr); ok && exitErr != nil {
			return nil, newError(KindUpstreamResolution, "expand playlist", locator, stderr, errors.New(msg))
		}
		var pe *Error
		if errors.As(parseErr, &pe) {
			pe.Locator = locator
		}
		return nil, parseErr
	}

	s.logger.Debug().Str("locator", locator).Int("entries", len(urls)).Msg("Expanded playlist")
	return urls, nil
}
