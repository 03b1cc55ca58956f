// Package track provides the Track domain entity.
package track

import (
	"fmt"
	"math"
	"time"
)

// Track represents a track as served by the maxify backend.
// Values are immutable once fetched; local corrections produce copies.
type Track struct {
	ID        string    `json:"id"`         // Backend track ID
	Title     string    `json:"title"`      // Track title
	Artist    string    `json:"artist"`     // Artist name (may be empty)
	Duration  int       `json:"duration"`   // Nominal duration in seconds (0 if unknown)
	FileSize  int64     `json:"file_size"`  // Size of the stored file in bytes
	MimeType  string    `json:"mime_type"`  // MIME type of the stored file
	CreatedAt time.Time `json:"created_at"` // Upload time
}

// HasDuration reports whether the stored duration is usable.
func (t Track) HasDuration() bool {
	return t.Duration > 0
}

// Length returns the nominal duration as a time.Duration.
func (t Track) Length() time.Duration {
	if t.Duration <= 0 {
		return 0
	}
	return time.Duration(t.Duration) * time.Second
}

// WithDuration returns a copy of the track with a locally corrected duration.
// Negative values are clamped to zero.
func (t Track) WithDuration(seconds int) Track {
	if seconds < 0 {
		seconds = 0
	}
	t.Duration = seconds
	return t
}

// FormatDuration renders the duration as m:ss.
func (t Track) FormatDuration() string {
	return FormatSeconds(float64(t.Duration))
}

// FormatSeconds renders a number of seconds as m:ss.
func FormatSeconds(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// SecondsOf converts a duration to whole seconds, rounding to nearest.
func SecondsOf(d time.Duration) int {
	s := int(math.Round(d.Seconds()))
	if s < 0 {
		return 0
	}
	return s
}

// TotalMinutes returns the rounded total length of the tracks in minutes.
func TotalMinutes(tracks []Track) int {
	var total int
	for _, t := range tracks {
		if t.Duration > 0 {
			total += t.Duration
		}
	}
	return int(math.Round(float64(total) / 60))
}
