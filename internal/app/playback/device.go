package playback

import (
	"context"
	"time"

	"github.com/osa030/maxify/internal/app/loader"
)

// Device is an audio output that can be bound to one handle at a time.
//
// Implementations must deliver DeviceListener callbacks from their own
// goroutines, never synchronously from within a Device method.
type Device interface {
	Bind(h *loader.Handle, l DeviceListener) error
	Play() error
	Pause()
	Seek(pos time.Duration) error
	SetVolume(v float64)
	Release()
}

// DeviceListener receives events for the handle it was bound with.
type DeviceListener interface {
	OnMetadata(d time.Duration)
	OnTimeUpdate(pos time.Duration)
	OnEnded()
}

// Loader obtains audio bytes and wraps them in local handles.
type Loader interface {
	FetchAudio(ctx context.Context, trackID string) (*loader.Audio, error)
	BindLocal(audio *loader.Audio) *loader.Handle
}

// listener scopes device callbacks to a single load generation.
type listener struct {
	engine     *Engine
	generation uint64
}

func (l *listener) OnMetadata(d time.Duration) {
	l.engine.onMetadata(l.generation, d)
}

func (l *listener) OnTimeUpdate(pos time.Duration) {
	l.engine.onTimeUpdate(l.generation, pos)
}

func (l *listener) OnEnded() {
	l.engine.onEnded(l.generation)
}
