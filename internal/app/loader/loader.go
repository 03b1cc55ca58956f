// Package loader fetches authorized audio bytes and exposes them as
// short-lived local handles.
package loader

import (
	"context"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/maxify/internal/domain/track"
)

// Errors
var (
	ErrRevoked = errors.New("resource handle has been revoked")
	ErrDecode  = errors.New("audio metadata unavailable")
)

// StreamFetcher performs the authorized binary fetch of a track's stream.
type StreamFetcher interface {
	FetchStream(ctx context.Context, trackID string) ([]byte, string, error)
}

// DurationProber reads duration metadata from an encoded stream.
// Implementations must honour ctx and never play audio.
type DurationProber interface {
	Probe(ctx context.Context, r io.ReadSeeker, contentType string) (time.Duration, error)
}

// Config holds loader configuration.
type Config struct {
	ProbeTimeout time.Duration // How long to wait for duration metadata
}

// Audio is a fetched stream body.
type Audio struct {
	TrackID     string
	Data        []byte
	ContentType string
}

// Loader fetches audio and allocates local handles for it.
type Loader struct {
	fetcher  StreamFetcher
	prober   DurationProber
	config   Config
	registry *Registry
}

// New creates a new loader.
func New(fetcher StreamFetcher, prober DurationProber, config Config) *Loader {
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = 10 * time.Second
	}
	return &Loader{
		fetcher:  fetcher,
		prober:   prober,
		config:   config,
		registry: NewRegistry(),
	}
}

// FetchAudio downloads the bytes of a track.
func (l *Loader) FetchAudio(ctx context.Context, trackID string) (*Audio, error) {
	data, contentType, err := l.fetcher.FetchStream(ctx, trackID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch audio for track %s", trackID)
	}
	return &Audio{TrackID: trackID, Data: data, ContentType: contentType}, nil
}

// BindLocal wraps fetched bytes in a new handle. No I/O is performed.
func (l *Loader) BindLocal(audio *Audio) *Handle {
	h := l.registry.newHandle(audio.TrackID, audio.ContentType, audio.Data)
	zlog.Debug().Msgf("loader: handle bound: handle=%s track_id=%s bytes=%d", h.ID(), h.TrackID(), h.Size())
	return h
}

// ProbeDuration measures a track's true duration in whole seconds without
// playing it. Decode failures and timeouts are reported as ErrDecode.
func (l *Loader) ProbeDuration(ctx context.Context, trackID string) (int, error) {
	audio, err := l.FetchAudio(ctx, trackID)
	if err != nil {
		return 0, err
	}

	h := l.BindLocal(audio)
	defer h.Revoke()

	r, err := h.Open()
	if err != nil {
		return 0, err
	}

	probeCtx, cancel := context.WithTimeout(ctx, l.config.ProbeTimeout)
	defer cancel()

	d, err := l.probe(probeCtx, r, h.ContentType())
	if err != nil {
		return 0, errors.Mark(errors.Wrapf(err, "failed to read audio metadata for track %s", trackID), ErrDecode)
	}

	seconds := track.SecondsOf(d)
	zlog.Debug().Msgf("loader: probed duration: track_id=%s duration=%v seconds=%d", trackID, d, seconds)
	return seconds, nil
}

// probe runs the prober and shields the caller from panics in decoders.
func (l *Loader) probe(ctx context.Context, r io.ReadSeeker, contentType string) (d time.Duration, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Newf("decoder panicked: %v", rec)
		}
	}()
	return l.prober.Probe(ctx, r, contentType)
}

// Stats returns handle allocation counters.
func (l *Loader) Stats() Stats {
	return l.registry.Stats()
}
