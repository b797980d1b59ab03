package common

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// IsURL checks if a string appears to be a URL
func IsURL(str string) bool {
	return strings.HasPrefix(str, "http://") || strings.HasPrefix(str, "https://") ||
		strings.HasPrefix(str, "www.")
}

// IsPlaylistURL reports whether a locator names a playlist rather than a
// single item. A watch URL that also carries a list parameter is treated as
// the single item.
func IsPlaylistURL(locator string) bool {
	if !IsURL(locator) {
		return false
	}
	if strings.HasPrefix(locator, "www.") {
		locator = "https://" + locator
	}

	parsed, err := url.Parse(locator)
	if err != nil {
		return false
	}
	query := parsed.Query()
	if query.Get("list") == "" {
		return strings.Contains(parsed.Path, "/sets/") || strings.HasSuffix(parsed.Path, "/playlist")
	}
	return query.Get("v") == ""
}

// ParsePosition parses a seek position given as seconds ("95", "12.5"),
// "m:ss" or "h:mm:ss".
func ParsePosition(input string) (time.Duration, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, fmt.Errorf("empty position")
	}

	if !strings.Contains(input, ":") {
		seconds, err := strconv.ParseFloat(input, 64)
		if err != nil || seconds < 0 {
			return 0, fmt.Errorf("invalid position %q", input)
		}
		return time.Duration(seconds * float64(time.Second)), nil
	}

	parts := strings.Split(input, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid position %q", input)
	}

	var total time.Duration
	for i, part := range parts {
		last := i == len(parts)-1
		value, err := strconv.ParseFloat(part, 64)
		if err != nil || value < 0 || (i > 0 && value >= 60) || (!last && value != float64(int(value))) {
			return 0, fmt.Errorf("invalid position %q", input)
		}
		total = total*60 + time.Duration(value*float64(time.Second))
	}
	return total, nil
}
