package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrack_WithDuration(t *testing.T) {
	tests := []struct {
		name     string
		original int
		seconds  int
		expected int
	}{
		{
			name:     "corrects unset duration",
			original: 0,
			seconds:  215,
			expected: 215,
		},
		{
			name:     "negative clamps to zero",
			original: 10,
			seconds:  -3,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := Track{ID: "t1", Duration: tt.original}

			corrected := orig.WithDuration(tt.seconds)
			assert.Equal(t, tt.expected, corrected.Duration)
			assert.Equal(t, tt.original, orig.Duration, "original must not be mutated")
			assert.Equal(t, orig.ID, corrected.ID)
		})
	}
}

func TestTrack_HasDurationAndLength(t *testing.T) {
	assert.False(t, Track{}.HasDuration())
	assert.Equal(t, time.Duration(0), Track{Duration: -5}.Length())

	tr := Track{Duration: 200}
	assert.True(t, tr.HasDuration())
	assert.Equal(t, 200*time.Second, tr.Length())
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "0:00"},
		{59.9, "0:59"},
		{61, "1:01"},
		{3600, "60:00"},
		{-1, "0:00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatSeconds(tt.input))
	}
	assert.Equal(t, "3:20", Track{Duration: 200}.FormatDuration())
}

func TestSecondsOf(t *testing.T) {
	assert.Equal(t, 3, SecondsOf(2500*time.Millisecond))
	assert.Equal(t, 2, SecondsOf(2499*time.Millisecond))
	assert.Equal(t, 0, SecondsOf(-time.Second))
}

func TestTotalMinutes(t *testing.T) {
	tracks := []Track{
		{ID: "a", Duration: 180},
		{ID: "b", Duration: 0},
		{ID: "c", Duration: 150},
	}
	// 330s = 5.5min rounds to 6
	assert.Equal(t, 6, TotalMinutes(tracks))
	assert.Equal(t, 0, TotalMinutes(nil))
}
