package audio

import (
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/maxify/internal/app/playback"
	"github.com/osa030/maxify/internal/infra/config"
)

// NewDevice creates the output device selected in configuration.
func NewDevice(cfg config.OutputConfig) (playback.Device, error) {
	zlog.Debug().Msgf("creating output device: type=%s settings=%+v", cfg.Type, cfg.Settings)

	switch cfg.Type {
	case config.OutputClock, "":
		var settings ClockSettings
		if err := decodeSettings(cfg.Settings, &settings); err != nil {
			return nil, errors.Wrapf(err, "invalid %s output settings", config.OutputClock)
		}
		zlog.Info().Msgf("output device: type=clock tick_ms=%d", settings.TickMs)
		return NewClockDevice(settings), nil

	case config.OutputSpeaker:
		var settings SpeakerSettings
		if err := decodeSettings(cfg.Settings, &settings); err != nil {
			return nil, errors.Wrapf(err, "invalid %s output settings", config.OutputSpeaker)
		}
		device, err := NewSpeakerDevice(settings)
		if err != nil {
			return nil, err
		}
		zlog.Info().Msgf("output device: type=speaker sample_rate=%d buffer_ms=%d", settings.SampleRate, settings.BufferMs)
		return device, nil

	default:
		return nil, errors.Newf("unsupported output type: %s", cfg.Type)
	}
}

func decodeSettings(settings map[string]any, out any) error {
	if err := mapstructure.Decode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "settings validation failed")
	}
	return nil
}
