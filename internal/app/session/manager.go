// Package session provides the session manager.
package session

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/maxify/internal/app/duration"
	"github.com/osa030/maxify/internal/app/notification"
	"github.com/osa030/maxify/internal/app/playback"
	"github.com/osa030/maxify/internal/domain/playlist"
	"github.com/osa030/maxify/internal/domain/queue"
	"github.com/osa030/maxify/internal/domain/track"
)

var (
	ErrEmptyPlaylist = errors.New("playlist has no tracks")
	ErrTrackNotFound = errors.New("track not found in playlist")
)

// Engine is the playback engine driven by the session.
type Engine interface {
	Load(t track.Track) uint64
	Pause()
	Resume()
	Stop()
	Seek(pos time.Duration)
	SetVolume(v float64)
	ToggleMute()
	Snapshot() playback.Snapshot
	Events() <-chan playback.Event
	Close()
}

// Status is the session view exposed to UI collaborators.
type Status struct {
	CurrentTrack *track.Track
	State        playback.State
	IsPlaying    bool
	CurrentTime  float64 // Seconds
	Duration     float64 // Seconds; zero while unknown
	Volume       float64
	Queue        []track.Track
	Cursor       int // -1 when no track is selected
	Generation   uint64
	LastError    string
}

// Manager manages the playback session.
type Manager struct {
	mu sync.RWMutex

	// Components
	engine       Engine
	queue        *queue.Queue
	durations    *duration.Cache
	notification *notification.Manager[*Status]

	lastError string

	// Channels
	done      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a new session manager and starts consuming engine events.
// durations may be nil; when set, measured durations are recorded in it.
func NewManager(engine Engine, durations *duration.Cache) *Manager {
	m := &Manager{
		engine:       engine,
		queue:        queue.New(),
		durations:    durations,
		notification: notification.NewManager[*Status](),
		done:         make(chan struct{}),
	}

	go m.playbackLoop()
	return m
}

// Done returns a channel that is closed when the session has shut down.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager[*Status] {
	return m.notification
}

// Play loads and plays t. The queue and cursor are left untouched.
func (m *Manager) Play(t track.Track) {
	m.mu.Lock()
	m.loadLocked(t)
	m.mu.Unlock()
}

// PlayQueue replaces the queue with tracks and plays t. The cursor is set
// to the first position of t in tracks, or none when t is absent.
func (m *Manager) PlayQueue(t track.Track, tracks []track.Track) {
	m.mu.Lock()
	m.queue.Replace(tracks, t.ID)
	m.loadLocked(t)
	m.mu.Unlock()

	m.broadcast(notification.TypeQueue)
}

// PlayPlaylist replaces the queue with the playlist and starts at
// startTrackID, or at the first track when it is empty.
func (m *Manager) PlayPlaylist(p *playlist.Playlist, startTrackID string) error {
	if p == nil || len(p.Tracks) == 0 {
		return ErrEmptyPlaylist
	}

	start := p.Tracks[0]
	if startTrackID != "" {
		t, _, ok := p.Find(startTrackID)
		if !ok {
			return errors.Wrapf(ErrTrackNotFound, "track %s in playlist %s", startTrackID, p.ID)
		}
		start = t
	}

	zlog.Info().Msgf("session: playing playlist: playlist_id=%s name=%q tracks=%d start=%s", p.ID, p.Name, len(p.Tracks), start.ID)
	m.PlayQueue(start, p.Tracks)
	return nil
}

// Pause pauses playback. No-op without a current track.
func (m *Manager) Pause() {
	m.engine.Pause()
}

// Resume resumes playback. No-op without a current track.
func (m *Manager) Resume() {
	m.engine.Resume()
}

// Stop halts playback and rewinds. The current track stays selected.
func (m *Manager) Stop() {
	m.engine.Stop()
}

// Next plays the following queue entry. No-op at the end of the queue.
func (m *Manager) Next() {
	m.mu.Lock()
	advanced := m.advanceLocked()
	m.mu.Unlock()

	if advanced {
		m.broadcast(notification.TypeQueue)
	}
}

// Previous plays the preceding queue entry. No-op at the start of the queue.
func (m *Manager) Previous() {
	m.mu.Lock()
	t, ok := m.queue.Retreat()
	if ok {
		m.loadLocked(t)
	}
	m.mu.Unlock()

	if ok {
		m.broadcast(notification.TypeQueue)
	}
}

// Seek moves the playback position to seconds.
func (m *Manager) Seek(seconds float64) {
	m.engine.Seek(time.Duration(seconds * float64(time.Second)))
}

// SetVolume sets the normalized gain.
func (m *Manager) SetVolume(level float64) {
	m.engine.SetVolume(level)
}

// ToggleMute switches between silence and the last audible volume.
func (m *Manager) ToggleMute() {
	m.engine.ToggleMute()
}

// AddToQueue appends tracks without touching the cursor or playback.
func (m *Manager) AddToQueue(tracks ...track.Track) {
	if len(tracks) == 0 {
		return
	}

	m.mu.Lock()
	m.queue.Append(tracks...)
	m.mu.Unlock()

	m.broadcast(notification.TypeQueue)
}

// RemoveFromQueue removes the entry at index. Entries before the cursor
// shift it down by one. Removing the playing entry does not stop playback.
// It reports whether anything was removed.
func (m *Manager) RemoveFromQueue(index int) bool {
	m.mu.Lock()
	removed, ok := m.queue.RemoveAt(index)
	m.mu.Unlock()

	if !ok {
		return false
	}
	zlog.Debug().Msgf("session: removed from queue: index=%d track_id=%s", index, removed.ID)
	m.broadcast(notification.TypeQueue)
	return true
}

// ClearQueue empties the queue. Playback of the current track continues.
func (m *Manager) ClearQueue() {
	m.mu.Lock()
	m.queue.Clear()
	m.mu.Unlock()

	m.broadcast(notification.TypeQueue)
}

// Status returns the current session status.
func (m *Manager) Status() *Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusLocked()
}

func (m *Manager) statusLocked() *Status {
	snap := m.engine.Snapshot()

	cursor := -1
	if c, ok := m.queue.Cursor(); ok {
		cursor = c
	}

	lastError := m.lastError
	if snap.State != playback.StateError {
		lastError = ""
	}

	return &Status{
		CurrentTrack: snap.Track,
		State:        snap.State,
		IsPlaying:    snap.IsPlaying,
		CurrentTime:  snap.Elapsed.Seconds(),
		Duration:     snap.Duration.Seconds(),
		Volume:       snap.Volume,
		Queue:        m.queue.Tracks(),
		Cursor:       cursor,
		Generation:   snap.Generation,
		LastError:    lastError,
	}
}

// Close stops the session, tears down the engine and waits for the event
// loop to finish.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.engine.Close()
		<-m.done
		m.notification.Close()
	})
}

// advanceLocked moves the cursor forward and loads the new entry.
// Must be called with lock held.
func (m *Manager) advanceLocked() bool {
	t, ok := m.queue.Advance()
	if !ok {
		return false
	}
	m.loadLocked(t)
	return true
}

// loadLocked dispatches a load, applying any measured duration first.
// Must be called with lock held.
func (m *Manager) loadLocked(t track.Track) {
	if !t.HasDuration() && m.durations != nil {
		if seconds, ok := m.durations.Get(t.ID); ok {
			t = t.WithDuration(seconds)
		}
	}
	m.lastError = ""
	gen := m.engine.Load(t)
	zlog.Info().Msgf("session: loading track: track_id=%s title=%q generation=%d", t.ID, t.Title, gen)
}

// playbackLoop handles playback events until the engine closes its stream.
func (m *Manager) playbackLoop() {
	defer close(m.done)

	lastSecond := int64(-1)
	for event := range m.engine.Events() {
		m.handlePlaybackEventSafe(event, &lastSecond)
	}
	zlog.Debug().Msg("session: playback loop finished")
}

func (m *Manager) handlePlaybackEventSafe(event playback.Event, lastSecond *int64) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("session: playback event handler panicked: type=%s panic=%v", event.Type, r)
		}
	}()
	m.handlePlaybackEvent(event, lastSecond)
}

// handlePlaybackEvent handles playback events.
func (m *Manager) handlePlaybackEvent(event playback.Event, lastSecond *int64) {
	if event.Type != playback.EventTimeUpdated {
		zlog.Debug().Msgf("session: playback event: type=%s state=%s generation=%d", event.Type, event.State, event.Generation)
	}

	switch event.Type {
	case playback.EventEnded:
		m.onTrackEnded(event)

	case playback.EventLoadFailed:
		m.onLoadFailed(event)

	case playback.EventMetadataReady:
		m.onMetadataReady(event)
		m.broadcast(notification.TypePlayback)

	case playback.EventTimeUpdated:
		// Subscribers only need whole-second resolution.
		second := int64(event.Elapsed / time.Second)
		if second == *lastSecond {
			return
		}
		*lastSecond = second
		m.broadcast(notification.TypePlayback)

	case playback.EventStateChanged, playback.EventVolumeChanged:
		if event.State == playback.StateLoading {
			*lastSecond = -1
		}
		m.broadcast(notification.TypePlayback)
	}
}

func (m *Manager) onTrackEnded(event playback.Event) {
	m.broadcast(notification.TypeTrackEnded)

	m.mu.Lock()
	// A command issued after the track ended already chose what plays next.
	if event.Generation != m.engine.Snapshot().Generation {
		m.mu.Unlock()
		return
	}
	advanced := m.advanceLocked()
	m.mu.Unlock()

	if !advanced {
		zlog.Info().Msg("session: reached end of queue")
		return
	}
	m.broadcast(notification.TypeQueue)
}

func (m *Manager) onLoadFailed(event playback.Event) {
	m.mu.Lock()
	if event.Generation == m.engine.Snapshot().Generation && event.Err != nil {
		m.lastError = event.Err.Error()
	}
	m.mu.Unlock()

	m.broadcast(notification.TypeLoadFailed)
}

func (m *Manager) onMetadataReady(event playback.Event) {
	if m.durations == nil || event.Track == nil || event.Duration <= 0 {
		return
	}
	m.durations.Set(event.Track.ID, track.SecondsOf(event.Duration))
}

func (m *Manager) broadcast(typ notification.Type) {
	if m.notification.SubscriberCount() == 0 {
		return
	}
	m.notification.Broadcast(typ, m.Status())
}
