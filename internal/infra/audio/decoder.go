// Package audio decodes fetched audio and provides playback output devices.
package audio

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// Format is a supported container/codec.
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatWAV Format = "wav"
)

// Errors
var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrNoDuration        = errors.New("stream does not report a duration")
)

var contentTypeFormats = map[string]Format{
	"audio/mpeg":     FormatMP3,
	"audio/mp3":      FormatMP3,
	"audio/mpeg3":    FormatMP3,
	"audio/x-mpeg-3": FormatMP3,
	"audio/wav":      FormatWAV,
	"audio/wave":     FormatWAV,
	"audio/x-wav":    FormatWAV,
	"audio/vnd.wave": FormatWAV,
}

// DetectFormat picks the decoder for a stream. A specific content type is
// trusted; generic or missing types fall back to sniffing the bytes.
// The reader is rewound before returning.
func DetectFormat(r io.ReadSeeker, contentType string) (Format, error) {
	if f, ok := formatOf(contentType); ok {
		return f, nil
	}

	mtype, err := mimetype.DetectReader(r)
	if _, seekErr := r.Seek(0, io.SeekStart); seekErr != nil {
		return "", errors.Wrap(seekErr, "failed to rewind stream")
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to sniff stream")
	}

	for m := mtype; m != nil; m = m.Parent() {
		if f, ok := formatOf(m.String()); ok {
			return f, nil
		}
	}
	return "", errors.Wrapf(ErrUnsupportedFormat, "detected %s", mtype.String())
}

func formatOf(contentType string) (Format, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	f, ok := contentTypeFormats[ct]
	return f, ok
}

// Decode opens a seekable PCM stream over encoded audio.
func Decode(r io.ReadSeeker, contentType string) (beep.StreamSeekCloser, beep.Format, error) {
	format, err := DetectFormat(r, contentType)
	if err != nil {
		return nil, beep.Format{}, err
	}

	var (
		streamer beep.StreamSeekCloser
		bf       beep.Format
	)
	switch format {
	case FormatMP3:
		streamer, bf, err = mp3.Decode(readSeekNopCloser{r})
	case FormatWAV:
		streamer, bf, err = wav.Decode(r)
	default:
		return nil, beep.Format{}, errors.Wrapf(ErrUnsupportedFormat, "format %s", format)
	}
	if err != nil {
		return nil, beep.Format{}, errors.Wrapf(err, "failed to decode %s stream", format)
	}
	return streamer, bf, nil
}

// StreamDuration returns the total length of a decoded stream.
func StreamDuration(s beep.StreamSeekCloser, f beep.Format) (time.Duration, error) {
	n := s.Len()
	if n <= 0 || f.SampleRate <= 0 {
		return 0, ErrNoDuration
	}
	return f.SampleRate.D(n), nil
}

// Prober reads duration metadata without producing any sound.
type Prober struct{}

// NewProber creates a prober.
func NewProber() *Prober {
	return &Prober{}
}

// Probe decodes the stream header and returns its total duration.
func (p *Prober) Probe(ctx context.Context, r io.ReadSeeker, contentType string) (time.Duration, error) {
	type result struct {
		d   time.Duration
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{err: errors.Newf("decoder panicked: %v", rec)}
			}
		}()

		streamer, format, err := Decode(r, contentType)
		if err != nil {
			done <- result{err: err}
			return
		}
		defer streamer.Close()

		d, err := StreamDuration(streamer, format)
		done <- result{d: d, err: err}
	}()

	select {
	case res := <-done:
		return res.d, res.err
	case <-ctx.Done():
		return 0, errors.Wrap(ctx.Err(), "timed out waiting for audio metadata")
	}
}

// readSeekNopCloser adds a no-op Close while keeping Seek available to
// decoders that use it to measure length.
type readSeekNopCloser struct {
	io.ReadSeeker
}

func (readSeekNopCloser) Close() error { return nil }
