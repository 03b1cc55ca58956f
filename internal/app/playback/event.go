package playback

import (
	"time"

	"github.com/osa030/maxify/internal/domain/track"
)

// EventType represents a playback event type.
type EventType int

const (
	EventStateChanged  EventType = iota // State transition
	EventMetadataReady                  // Device reported the true duration
	EventTimeUpdated                    // Elapsed time advanced
	EventEnded                          // Playback reached end of stream
	EventVolumeChanged                  // Volume changed
	EventLoadFailed                     // Fetch or bind failed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStateChanged:
		return "state_changed"
	case EventMetadataReady:
		return "metadata_ready"
	case EventTimeUpdated:
		return "time_updated"
	case EventEnded:
		return "ended"
	case EventVolumeChanged:
		return "volume_changed"
	case EventLoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type       EventType
	Generation uint64       // Load cycle the event belongs to
	Track      *track.Track // Current track (nil when idle)
	State      State
	Elapsed    time.Duration
	Duration   time.Duration // Zero while unknown
	Volume     float64
	Err        error // Set for EventLoadFailed
}
