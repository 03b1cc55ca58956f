package audio

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/maxify/internal/app/loader"
	"github.com/osa030/maxify/internal/app/playback"
)

// ClockSettings configures the clock device.
type ClockSettings struct {
	TickMs int `mapstructure:"tick_ms" default:"250" validate:"gte=10,lte=5000"`
}

// ClockDevice plays silently: it decodes the bound audio to learn its
// length and advances position on the wall clock. It suits headless hosts
// and tests where no sound card exists.
type ClockDevice struct {
	mu sync.Mutex

	tick time.Duration

	binding   uint64
	listener  playback.DeviceListener
	duration  time.Duration
	offset    time.Duration // Position when playback last paused or seeked
	startedAt time.Time
	playing   bool
	ended     bool
	cancel    context.CancelFunc
	volume    float64
}

// NewClockDevice creates a clock device.
func NewClockDevice(settings ClockSettings) *ClockDevice {
	tick := time.Duration(settings.TickMs) * time.Millisecond
	if tick <= 0 {
		tick = 250 * time.Millisecond
	}
	return &ClockDevice{tick: tick, volume: 1}
}

// Bind attaches the device to a handle.
func (d *ClockDevice) Bind(h *loader.Handle, l playback.DeviceListener) error {
	r, err := h.Open()
	if err != nil {
		return err
	}
	streamer, format, err := Decode(r, h.ContentType())
	if err != nil {
		return err
	}
	length, err := StreamDuration(streamer, format)
	streamer.Close()
	if err != nil && !errors.Is(err, ErrNoDuration) {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.releaseLocked()
	d.binding++
	d.listener = l
	d.duration = length
	d.offset = 0
	d.playing = false
	d.ended = false

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	go d.run(ctx, d.binding, l, length)

	zlog.Debug().Msgf("audio: clock device bound: handle=%s duration=%v", h.ID(), length)
	return nil
}

// Play starts or continues advancing the position.
func (d *ClockDevice) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.listener == nil {
		return errors.New("clock device is not bound")
	}
	if d.playing {
		return nil
	}
	d.ended = false
	d.startedAt = toWallTime(time.Now())
	d.playing = true
	return nil
}

// Pause freezes the position.
func (d *ClockDevice) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.playing {
		return
	}
	d.offset = d.positionLocked()
	d.playing = false
}

// Seek moves the position.
func (d *ClockDevice) Seek(pos time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.listener == nil {
		return errors.New("clock device is not bound")
	}
	if pos < 0 {
		pos = 0
	}
	if d.duration > 0 && pos > d.duration {
		pos = d.duration
	}
	d.offset = pos
	d.ended = false
	if d.playing {
		d.startedAt = toWallTime(time.Now())
	}
	return nil
}

// SetVolume records the gain; the clock device has no audible output.
func (d *ClockDevice) SetVolume(v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = v
}

// Release detaches the device from its handle.
func (d *ClockDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.releaseLocked()
}

func (d *ClockDevice) releaseLocked() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.listener = nil
	d.playing = false
	d.offset = 0
}

// Position returns the current position.
func (d *ClockDevice) Position() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.positionLocked()
}

func (d *ClockDevice) positionLocked() time.Duration {
	if !d.playing {
		return d.offset
	}
	pos := d.offset + toWallTime(time.Now()).Sub(d.startedAt)
	if d.duration > 0 && pos > d.duration {
		return d.duration
	}
	return pos
}

// run reports metadata once and then position on every tick. Listener
// calls are made without holding the device lock.
func (d *ClockDevice) run(ctx context.Context, binding uint64, l playback.DeviceListener, length time.Duration) {
	if length > 0 {
		l.OnMetadata(length)
	}

	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pos, ended, ok := d.sample(binding)
			if !ok {
				continue
			}
			l.OnTimeUpdate(pos)
			if ended {
				l.OnEnded()
			}
		}
	}
}

func (d *ClockDevice) sample(binding uint64) (time.Duration, bool, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if binding != d.binding || d.listener == nil || !d.playing {
		return 0, false, false
	}

	pos := d.positionLocked()
	if d.duration > 0 && pos >= d.duration && !d.ended {
		d.offset = d.duration
		d.playing = false
		d.ended = true
		return d.duration, true, true
	}
	return pos, false, true
}

// toWallTime returns the time with monotonic clock stripped.
// Differences are then calculated using wall clock time, which keeps
// position in step with real time when the monotonic clock drifts.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}
