package playback

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/maxify/internal/app/loader"
	"github.com/osa030/maxify/internal/domain/track"
)

// Config holds engine configuration.
type Config struct {
	InitialVolume float64 // Starting gain in [0, 1]
	EventBuffer   int     // Capacity of the event channel
}

// Snapshot is a point-in-time view of the engine.
type Snapshot struct {
	State      State
	Track      *track.Track
	IsPlaying  bool
	Elapsed    time.Duration
	Duration   time.Duration
	Volume     float64
	Generation uint64
	Err        error
}

// Engine plays one track at a time through a single device binding.
type Engine struct {
	mu sync.RWMutex

	device Device
	loader Loader

	// Current track state
	state      State
	track      *track.Track
	generation uint64
	elapsed    time.Duration
	duration   time.Duration
	lastErr    error

	// Bound resource; only reassigned by rebindLocked and Close
	handle   *loader.Handle
	boundGen uint64
	hasBound bool

	pendingSeek    *time.Duration
	reachedPlaying bool
	endedFired     bool

	// Volume
	volume      float64
	savedVolume float64

	// Events. pending is drained into eventCh by pump.
	eventCh  chan Event
	pending  []Event
	wake     chan struct{}
	pumpDone chan struct{}

	// Context
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// NewEngine creates a new playback engine.
func NewEngine(device Device, ldr Loader, config Config) *Engine {
	if config.EventBuffer <= 0 {
		config.EventBuffer = 64
	}
	volume := clampVolume(config.InitialVolume)

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		device:      device,
		loader:      ldr,
		state:       StateIdle,
		volume:      volume,
		savedVolume: volume,
		eventCh:     make(chan Event, config.EventBuffer),
		wake:        make(chan struct{}, 1),
		pumpDone:    make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
	if e.savedVolume == 0 {
		e.savedVolume = 1
	}
	device.SetVolume(volume)
	go e.pump()
	return e
}

// Events returns the event channel. It is closed by Close.
func (e *Engine) Events() <-chan Event {
	return e.eventCh
}

// Load starts loading t and returns the generation of this load cycle.
// The fetch runs asynchronously; completions of superseded loads are discarded.
func (e *Engine) Load(t track.Track) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0
	}

	e.generation++
	gen := e.generation
	tr := t
	e.track = &tr
	e.pendingSeek = nil
	e.reachedPlaying = false
	e.endedFired = false
	e.lastErr = nil

	// The old track must fall silent while the new one is fetched.
	if e.hasBound {
		e.device.Pause()
	}
	e.setStateLocked(StateLoading)

	zlog.Debug().Msgf("playback: load dispatched: track_id=%s generation=%d", t.ID, gen)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		audio, err := e.loader.FetchAudio(e.ctx, tr.ID)
		e.completeLoad(gen, tr, audio, err)
	}()

	return gen
}

func (e *Engine) completeLoad(gen uint64, t track.Track, audio *loader.Audio, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || gen != e.generation {
		zlog.Debug().Msgf("playback: discarding stale load: track_id=%s generation=%d current=%d", t.ID, gen, e.generation)
		return
	}

	if err != nil {
		e.failLocked(errors.Wrapf(err, "failed to load track %s", t.ID))
		return
	}

	h := e.loader.BindLocal(audio)
	if err := e.rebindLocked(h, gen); err != nil {
		e.failLocked(err)
		return
	}

	e.elapsed = 0
	e.duration = t.Length()

	if err := e.device.Play(); err != nil {
		e.failLocked(errors.Wrapf(err, "failed to start track %s", t.ID))
		return
	}

	if e.pendingSeek != nil {
		e.seekLocked(*e.pendingSeek)
		e.pendingSeek = nil
	}

	e.reachedPlaying = true
	e.setStateLocked(StatePlaying)
	zlog.Info().Msgf("playback: track playing: track_id=%s title=%q generation=%d", t.ID, t.Title, gen)
}

// rebindLocked is the only place the bound handle changes. The previous
// handle is released from the device and revoked before the new one binds.
// Must be called with lock held.
func (e *Engine) rebindLocked(h *loader.Handle, gen uint64) error {
	e.device.Release()
	if e.handle != nil {
		e.handle.Revoke()
	}
	e.handle = nil
	e.hasBound = false

	l := &listener{engine: e, generation: gen}
	if err := e.device.Bind(h, l); err != nil {
		h.Revoke()
		return errors.Wrapf(err, "failed to bind handle %s", h.ID())
	}

	e.handle = h
	e.boundGen = gen
	e.hasBound = true
	e.device.SetVolume(e.volume)
	return nil
}

func (e *Engine) failLocked(err error) {
	e.lastErr = err
	zlog.Warn().Msgf("playback: load failed: generation=%d err=%v", e.generation, err)
	e.setStateLocked(StateError)
	e.sendEventLocked(e.eventLocked(EventLoadFailed))
}

// Pause pauses playback. It is a no-op unless playing.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.state != StatePlaying {
		return
	}
	e.device.Pause()
	e.setStateLocked(StatePaused)
}

// Resume continues paused playback. From stopped it restarts the bound
// track at the stopped position. It is a no-op otherwise.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	switch e.state {
	case StatePaused:
	case StateStopped:
		if !e.hasBound || e.boundGen != e.generation {
			return
		}
		if e.endedFired {
			e.elapsed = 0
			e.endedFired = false
		}
		if err := e.device.Seek(e.elapsed); err != nil {
			zlog.Warn().Msgf("playback: failed to rewind device: err=%v", err)
		}
	default:
		return
	}

	if err := e.device.Play(); err != nil {
		e.failLocked(errors.Wrap(err, "failed to resume"))
		return
	}
	e.setStateLocked(StatePlaying)
}

// Stop halts playback and rewinds to 0. The current track is kept.
// Stopping while loading discards the in-flight load.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	switch e.state {
	case StateLoading:
		e.generation++
	case StateStopped:
		if e.elapsed == 0 {
			return
		}
		if e.hasBound && e.boundGen == e.generation {
			if err := e.device.Seek(0); err != nil {
				zlog.Warn().Msgf("playback: failed to rewind device: err=%v", err)
			}
		}
		e.elapsed = 0
		e.endedFired = false
		e.pendingSeek = nil
		e.sendEventLocked(e.eventLocked(EventTimeUpdated))
		return
	case StatePlaying, StatePaused:
		if e.hasBound {
			e.device.Pause()
			if err := e.device.Seek(0); err != nil {
				zlog.Warn().Msgf("playback: failed to rewind device: err=%v", err)
			}
		}
	default:
		return
	}

	e.elapsed = 0
	e.pendingSeek = nil
	e.setStateLocked(StateStopped)
}

// Seek moves the playback position, clamped to [0, duration]. While the
// duration is unknown only the lower bound applies. Seeks issued while
// loading are applied once playback starts.
func (e *Engine) Seek(pos time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	switch e.state {
	case StateIdle, StateError:
		return
	case StateLoading:
		// The new duration is not known yet; clamp when applied.
		if pos < 0 {
			pos = 0
		}
		e.pendingSeek = &pos
		return
	}
	e.seekLocked(pos)
}

func (e *Engine) seekLocked(pos time.Duration) {
	pos = e.clampLocked(pos)
	if e.hasBound && e.boundGen == e.generation {
		if err := e.device.Seek(pos); err != nil {
			zlog.Warn().Msgf("playback: seek failed: pos=%v err=%v", pos, err)
			return
		}
	}
	e.elapsed = pos
	// An explicit seek after the end replaces the restart from 0.
	e.endedFired = false
	e.sendEventLocked(e.eventLocked(EventTimeUpdated))
}

func (e *Engine) clampLocked(pos time.Duration) time.Duration {
	if pos < 0 {
		return 0
	}
	if e.duration > 0 && pos > e.duration {
		return e.duration
	}
	return pos
}

// SetVolume sets the gain, clamped to [0, 1], and applies it immediately.
func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.setVolumeLocked(clampVolume(v))
}

// ToggleMute switches between 0 and the last non-zero volume.
func (e *Engine) ToggleMute() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	if e.volume > 0 {
		e.setVolumeLocked(0)
		return
	}
	e.setVolumeLocked(e.savedVolume)
}

func (e *Engine) setVolumeLocked(v float64) {
	if v > 0 {
		e.savedVolume = v
	}
	e.volume = v
	e.device.SetVolume(v)
	e.sendEventLocked(e.eventLocked(EventVolumeChanged))
}

// Volume returns the current gain.
func (e *Engine) Volume() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.volume
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Snapshot returns the current engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return Snapshot{
		State:      e.state,
		Track:      copyTrack(e.track),
		IsPlaying:  e.state == StatePlaying,
		Elapsed:    e.elapsed,
		Duration:   e.duration,
		Volume:     e.volume,
		Generation: e.generation,
		Err:        e.lastErr,
	}
}

// Close halts playback, revokes the live handle and discards in-flight
// loads. The event channel is closed once every load goroutine returned.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.generation++
	e.device.Pause()
	e.device.Release()
	if e.handle != nil {
		e.handle.Revoke()
		e.handle = nil
	}
	e.hasBound = false
	e.cancel()
	e.mu.Unlock()

	e.wg.Wait()
	<-e.pumpDone

	close(e.eventCh)
	zlog.Debug().Msg("playback: engine closed")
}

func (e *Engine) onMetadata(gen uint64, d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || gen != e.generation || d <= 0 {
		return
	}
	e.duration = d
	if e.elapsed > d {
		e.elapsed = d
	}
	e.sendEventLocked(e.eventLocked(EventMetadataReady))
}

func (e *Engine) onTimeUpdate(gen uint64, pos time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || gen != e.generation || e.state != StatePlaying {
		return
	}
	// Elapsed time never goes backwards within a load cycle except via Seek.
	if pos < e.elapsed {
		return
	}
	e.elapsed = e.clampLocked(pos)
	e.sendEventLocked(e.eventLocked(EventTimeUpdated))
}

func (e *Engine) onEnded(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || gen != e.generation || !e.reachedPlaying || e.endedFired {
		return
	}
	if e.state != StatePlaying && e.state != StatePaused {
		return
	}
	e.endedFired = true
	if e.duration > 0 {
		e.elapsed = e.duration
	}
	e.setStateLocked(StateStopped)
	e.sendEventLocked(e.eventLocked(EventEnded))
	zlog.Debug().Msgf("playback: track ended: track_id=%s generation=%d", e.track.ID, gen)
}

// setStateLocked transitions and emits EventStateChanged.
// Must be called with lock held.
func (e *Engine) setStateLocked(s State) {
	if e.state == s {
		return
	}
	e.state = s
	e.sendEventLocked(e.eventLocked(EventStateChanged))
}

func (e *Engine) eventLocked(t EventType) Event {
	return Event{
		Type:       t,
		Generation: e.generation,
		Track:      copyTrack(e.track),
		State:      e.state,
		Elapsed:    e.elapsed,
		Duration:   e.duration,
		Volume:     e.volume,
		Err:        e.lastErr,
	}
}

// sendEventLocked queues an event for pump without blocking.
// Time updates are skipped once the backlog reaches half the channel
// capacity; every other event is kept however far the consumer lags.
// Must be called with lock held.
func (e *Engine) sendEventLocked(ev Event) {
	if e.closed {
		return
	}
	if ev.Type == EventTimeUpdated && len(e.pending)+len(e.eventCh) >= cap(e.eventCh)/2 {
		return
	}
	e.pending = append(e.pending, ev)
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// pump moves queued events to the event channel in order. The send blocks
// outside the lock, so a slow consumer may call back into the engine.
func (e *Engine) pump() {
	defer close(e.pumpDone)
	for {
		select {
		case <-e.wake:
		case <-e.ctx.Done():
			e.flush()
			return
		}
		for {
			ev, ok := e.nextPending()
			if !ok {
				break
			}
			select {
			case e.eventCh <- ev:
			case <-e.ctx.Done():
				e.mu.Lock()
				e.pending = append([]Event{ev}, e.pending...)
				e.mu.Unlock()
				e.flush()
				return
			}
		}
	}
}

func (e *Engine) nextPending() (Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) == 0 {
		e.pending = nil
		return Event{}, false
	}
	ev := e.pending[0]
	e.pending = e.pending[1:]
	return ev, true
}

// flush hands whatever is still queued at close to the channel buffer.
func (e *Engine) flush() {
	e.mu.Lock()
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()

	for _, ev := range pending {
		select {
		case e.eventCh <- ev:
		default:
			zlog.Warn().Msgf("playback: event dropped at close: type=%s generation=%d", ev.Type, ev.Generation)
		}
	}
}

func clampVolume(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func copyTrack(t *track.Track) *track.Track {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
