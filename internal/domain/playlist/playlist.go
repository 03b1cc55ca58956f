// Package playlist provides the Playlist domain entity.
package playlist

import (
	"time"

	"github.com/osa030/maxify/internal/domain/track"
)

// Playlist represents a user playlist as served by the backend.
type Playlist struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	UserID      string        `json:"user_id"`
	Tracks      []track.Track `json:"tracks,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TrackIDs returns all track IDs in the playlist.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// TotalDuration returns the total nominal duration of all tracks in seconds.
// Tracks with an unknown duration count as zero.
func (p *Playlist) TotalDuration() int64 {
	var total int64
	for _, t := range p.Tracks {
		if t.Duration > 0 {
			total += int64(t.Duration)
		}
	}
	return total
}

// Find returns the track with the given ID and its index.
func (p *Playlist) Find(trackID string) (track.Track, int, bool) {
	for i, t := range p.Tracks {
		if t.ID == trackID {
			return t, i, true
		}
	}
	return track.Track{}, -1, false
}
