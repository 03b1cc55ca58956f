//go:build !((linux && cgo) || windows || darwin)

package audio

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/maxify/internal/app/loader"
	"github.com/osa030/maxify/internal/app/playback"
)

// SpeakerAvailable indicates whether audible output is supported in this build.
// Audio output requires cgo for the native sound libraries.
const SpeakerAvailable = false

// ErrSpeakerUnavailable is returned when the build has no audio output.
var ErrSpeakerUnavailable = errors.New("speaker output requires a cgo build")

// SpeakerSettings configures the speaker device.
type SpeakerSettings struct {
	SampleRate int `mapstructure:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	BufferMs   int `mapstructure:"buffer_ms" default:"100" validate:"gte=10,lte=1000"`
	Quality    int `mapstructure:"resample_quality" default:"4" validate:"gte=1,lte=64"`
	TickMs     int `mapstructure:"tick_ms" default:"250" validate:"gte=10,lte=5000"`
}

// SpeakerDevice is unavailable without cgo.
type SpeakerDevice struct{}

// NewSpeakerDevice always fails when cgo is disabled.
func NewSpeakerDevice(settings SpeakerSettings) (*SpeakerDevice, error) {
	return nil, ErrSpeakerUnavailable
}

func (d *SpeakerDevice) Bind(h *loader.Handle, l playback.DeviceListener) error {
	return ErrSpeakerUnavailable
}

func (d *SpeakerDevice) Play() error { return ErrSpeakerUnavailable }

func (d *SpeakerDevice) Pause() {}

func (d *SpeakerDevice) Seek(pos time.Duration) error { return ErrSpeakerUnavailable }

func (d *SpeakerDevice) SetVolume(v float64) {}

func (d *SpeakerDevice) Release() {}
