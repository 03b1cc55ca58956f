//go:build (linux && cgo) || windows || darwin

package audio

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/maxify/internal/app/loader"
	"github.com/osa030/maxify/internal/app/playback"
)

// SpeakerAvailable indicates whether audible output is supported in this build.
const SpeakerAvailable = true

// SpeakerSettings configures the speaker device.
type SpeakerSettings struct {
	SampleRate int `mapstructure:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	BufferMs   int `mapstructure:"buffer_ms" default:"100" validate:"gte=10,lte=1000"`
	Quality    int `mapstructure:"resample_quality" default:"4" validate:"gte=1,lte=64"`
	TickMs     int `mapstructure:"tick_ms" default:"250" validate:"gte=10,lte=5000"`
}

// speakerOnce guards speaker.Init, which may only run once per process.
var (
	speakerOnce    sync.Once
	speakerInitErr error
)

// SpeakerDevice plays audio through the system output using beep.
type SpeakerDevice struct {
	mu sync.Mutex

	settings   SpeakerSettings
	sampleRate beep.SampleRate

	binding  uint64
	listener playback.DeviceListener
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	gain     float64
	queued   bool // Sequence currently registered with the speaker mixer
	cancel   context.CancelFunc
}

// NewSpeakerDevice creates a speaker device and initializes the speaker.
func NewSpeakerDevice(settings SpeakerSettings) (*SpeakerDevice, error) {
	sr := beep.SampleRate(settings.SampleRate)
	speakerOnce.Do(func() {
		speakerInitErr = speaker.Init(sr, sr.N(time.Duration(settings.BufferMs)*time.Millisecond))
	})
	if speakerInitErr != nil {
		return nil, errors.Wrap(speakerInitErr, "failed to initialize speaker")
	}
	return &SpeakerDevice{settings: settings, sampleRate: sr, gain: 1}, nil
}

// Bind decodes the handle and prepares a paused stream on the speaker.
func (d *SpeakerDevice) Bind(h *loader.Handle, l playback.DeviceListener) error {
	r, err := h.Open()
	if err != nil {
		return err
	}
	streamer, format, err := Decode(r, h.ContentType())
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.releaseLocked()
	d.binding++
	d.listener = l
	d.streamer = streamer
	d.format = format

	resampled := beep.Resample(d.settings.Quality, format.SampleRate, d.sampleRate, streamer)
	d.volume = &effects.Volume{Streamer: resampled, Base: 2}
	d.applyGainLocked()
	d.ctrl = &beep.Ctrl{Streamer: d.volume, Paused: true}

	length, lenErr := StreamDuration(streamer, format)
	if lenErr != nil {
		length = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	go d.run(ctx, d.binding, l, length)

	zlog.Debug().Msgf("audio: speaker bound: handle=%s sample_rate=%d duration=%v", h.ID(), format.SampleRate, length)
	return nil
}

// Play unpauses the stream, queueing it on the speaker when needed.
func (d *SpeakerDevice) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctrl == nil {
		return errors.New("speaker device is not bound")
	}

	if !d.queued {
		binding := d.binding
		l := d.listener
		speaker.Play(beep.Seq(d.ctrl, beep.Callback(func() {
			// The mixer goroutine holds the speaker lock here.
			go d.finished(binding, l)
		})))
		d.queued = true
	}

	speaker.Lock()
	d.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

// Pause pauses the stream.
func (d *SpeakerDevice) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctrl == nil {
		return
	}
	speaker.Lock()
	d.ctrl.Paused = true
	speaker.Unlock()
}

// Seek moves the stream position.
func (d *SpeakerDevice) Seek(pos time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.streamer == nil {
		return errors.New("speaker device is not bound")
	}

	speaker.Lock()
	defer speaker.Unlock()

	n := d.format.SampleRate.N(pos)
	if n < 0 {
		n = 0
	}
	if length := d.streamer.Len(); length > 0 && n >= length {
		n = length - 1
	}
	if err := d.streamer.Seek(n); err != nil {
		return errors.Wrap(err, "failed to seek stream")
	}
	return nil
}

// SetVolume sets a linear gain in [0, 1].
func (d *SpeakerDevice) SetVolume(v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gain = v
	if d.volume == nil {
		return
	}
	speaker.Lock()
	d.applyGainLocked()
	speaker.Unlock()
}

// applyGainLocked maps linear gain onto the base-2 volume effect.
func (d *SpeakerDevice) applyGainLocked() {
	if d.gain <= 0 {
		d.volume.Silent = true
		return
	}
	d.volume.Silent = false
	d.volume.Volume = math.Log2(d.gain)
}

// Release stops the stream and detaches the handle.
func (d *SpeakerDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.releaseLocked()
}

func (d *SpeakerDevice) releaseLocked() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.queued {
		speaker.Clear()
		d.queued = false
	}
	if d.streamer != nil {
		d.streamer.Close()
		d.streamer = nil
	}
	d.ctrl = nil
	d.volume = nil
	d.listener = nil
}

func (d *SpeakerDevice) finished(binding uint64, l playback.DeviceListener) {
	d.mu.Lock()
	current := binding == d.binding && d.listener != nil
	if current {
		d.queued = false
	}
	d.mu.Unlock()

	if current {
		l.OnEnded()
	}
}

// run reports metadata once and then position on every tick.
func (d *SpeakerDevice) run(ctx context.Context, binding uint64, l playback.DeviceListener, length time.Duration) {
	if length > 0 {
		l.OnMetadata(length)
	}

	ticker := time.NewTicker(time.Duration(d.settings.TickMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pos, ok := d.position(binding)
			if ok {
				l.OnTimeUpdate(pos)
			}
		}
	}
}

func (d *SpeakerDevice) position(binding uint64) (time.Duration, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if binding != d.binding || d.streamer == nil || d.ctrl == nil {
		return 0, false
	}

	speaker.Lock()
	defer speaker.Unlock()
	if d.ctrl.Paused {
		return 0, false
	}
	return d.format.SampleRate.D(d.streamer.Position()), true
}
