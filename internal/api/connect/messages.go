package connect

import (
	"time"

	"github.com/osa030/maxify/internal/app/notification"
	"github.com/osa030/maxify/internal/app/session"
	"github.com/osa030/maxify/internal/domain/track"
)

// NotificationTypeInitialState marks the first message of a subscription.
const NotificationTypeInitialState = "initial_state"

// Status is the wire form of the session status.
type Status struct {
	CurrentTrack *track.Track  `json:"current_track,omitempty"`
	State        string        `json:"state"`
	IsPlaying    bool          `json:"is_playing"`
	CurrentTime  float64       `json:"current_time"`
	Duration     float64       `json:"duration"`
	Volume       float64       `json:"volume"`
	Queue        []track.Track `json:"queue"`
	Cursor       int           `json:"cursor"`
	Generation   uint64        `json:"generation"`
	LastError    string        `json:"last_error,omitempty"`
}

// Notification is a status update pushed to subscribers.
type Notification struct {
	SequenceNo uint64    `json:"sequence_no"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	Status     *Status   `json:"status"`
}

type GetStatusRequest struct{}

type GetStatusResponse struct {
	Status *Status `json:"status"`
}

// PlayRequest plays a track. When QueueTrackIDs is set, the queue is
// replaced with those tracks; otherwise the queue is left untouched.
type PlayRequest struct {
	TrackID       string   `json:"track_id"`
	QueueTrackIDs []string `json:"queue_track_ids,omitempty"`
}

type PlayPlaylistRequest struct {
	PlaylistID   string `json:"playlist_id"`
	StartTrackID string `json:"start_track_id,omitempty"`
}

// CommandRequest is the request for commands without arguments.
type CommandRequest struct{}

// CommandResponse carries the status after a command was applied.
type CommandResponse struct {
	Status *Status `json:"status"`
}

type SeekRequest struct {
	Seconds float64 `json:"seconds"`
}

type SetVolumeRequest struct {
	Level float64 `json:"level"`
}

type EnqueueRequest struct {
	TrackIDs []string `json:"track_ids"`
}

type DequeueRequest struct {
	Index int `json:"index"`
}

type DequeueResponse struct {
	Removed bool    `json:"removed"`
	Status  *Status `json:"status"`
}

type SubscribeRequest struct{}

// toStatus converts a session status to its wire form.
func toStatus(s *session.Status) *Status {
	if s == nil {
		return nil
	}
	queue := s.Queue
	if queue == nil {
		queue = []track.Track{}
	}
	return &Status{
		CurrentTrack: s.CurrentTrack,
		State:        s.State.String(),
		IsPlaying:    s.IsPlaying,
		CurrentTime:  s.CurrentTime,
		Duration:     s.Duration,
		Volume:       s.Volume,
		Queue:        queue,
		Cursor:       s.Cursor,
		Generation:   s.Generation,
		LastError:    s.LastError,
	}
}

// toNotification converts a broadcast notification to its wire form.
func toNotification(n *notification.Notification[*session.Status]) *Notification {
	return &Notification{
		SequenceNo: n.SequenceNo,
		Type:       n.Type.String(),
		Timestamp:  n.Timestamp,
		Status:     toStatus(n.Payload),
	}
}
