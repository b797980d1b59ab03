package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://youtu.be/abc"))
	assert.True(t, IsURL("www.example.com/a"))
	assert.False(t, IsURL("never gonna give you up"))
}

func TestIsPlaylistURL(t *testing.T) {
	tests := []struct {
		locator string
		want    bool
	}{
		{"https://www.youtube.com/playlist?list=PL123", true},
		{"https://www.youtube.com/watch?v=abc&list=PL123", false},
		{"https://www.youtube.com/watch?v=abc", false},
		{"https://soundcloud.com/artist/sets/album", true},
		{"not a url", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPlaylistURL(tt.locator), tt.locator)
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"95", 95 * time.Second},
		{"12.345", 12345 * time.Millisecond},
		{"1:30", 90 * time.Second},
		{"1:02:03", time.Hour + 2*time.Minute + 3*time.Second},
		{"0:05.5", 5500 * time.Millisecond},
	}

	for _, tt := range tests {
		got, err := ParsePosition(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	for _, bad := range []string{"", "abc", "-3", "1:75", "1:2:3:4", "1.5:00"} {
		_, err := ParsePosition(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatPosition(t *testing.T) {
	assert.Equal(t, "0:00", FormatPosition(0))
	assert.Equal(t, "1:30", FormatPosition(90*time.Second))
	assert.Equal(t, "1:02:03", FormatPosition(time.Hour+2*time.Minute+3*time.Second))
}
