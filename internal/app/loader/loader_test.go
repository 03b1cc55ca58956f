package loader

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	data        []byte
	contentType string
	err         error
	calls       int
}

func (f *fakeFetcher) FetchStream(ctx context.Context, trackID string) ([]byte, string, error) {
	f.calls++
	if f.err != nil {
		return nil, "", f.err
	}
	return f.data, f.contentType, nil
}

type fakeProber struct {
	duration time.Duration
	err      error
	block    bool
	panics   bool
	seen     []byte
}

func (p *fakeProber) Probe(ctx context.Context, r io.ReadSeeker, contentType string) (time.Duration, error) {
	if p.panics {
		panic("corrupt frame")
	}
	if p.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	p.seen, _ = io.ReadAll(r)
	return p.duration, p.err
}

func TestLoader_ProbeDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     int
	}{
		{name: "whole seconds", duration: 200 * time.Second, want: 200},
		{name: "rounds up", duration: 187600 * time.Millisecond, want: 188},
		{name: "rounds down", duration: 187400 * time.Millisecond, want: 187},
		{name: "negative clamps to zero", duration: -3 * time.Second, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &fakeFetcher{data: []byte("audio"), contentType: "audio/mpeg"}
			prober := &fakeProber{duration: tt.duration}
			l := New(fetcher, prober, Config{ProbeTimeout: time.Second})

			got, err := l.ProbeDuration(context.Background(), "t1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []byte("audio"), prober.seen)

			stats := l.Stats()
			assert.Equal(t, int64(1), stats.Created)
			assert.Equal(t, int64(0), stats.Live)
		})
	}
}

func TestLoader_ProbeDurationFailures(t *testing.T) {
	tests := []struct {
		name       string
		fetcher    *fakeFetcher
		prober     *fakeProber
		wantDecode bool
	}{
		{
			name:       "fetch failure",
			fetcher:    &fakeFetcher{err: errors.New("401")},
			prober:     &fakeProber{},
			wantDecode: false,
		},
		{
			name:       "decode failure",
			fetcher:    &fakeFetcher{data: []byte("garbage")},
			prober:     &fakeProber{err: errors.New("bad header")},
			wantDecode: true,
		},
		{
			name:       "metadata never arrives",
			fetcher:    &fakeFetcher{data: []byte("garbage")},
			prober:     &fakeProber{block: true},
			wantDecode: true,
		},
		{
			name:       "decoder panic",
			fetcher:    &fakeFetcher{data: []byte("garbage")},
			prober:     &fakeProber{panics: true},
			wantDecode: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.fetcher, tt.prober, Config{ProbeTimeout: 20 * time.Millisecond})

			_, err := l.ProbeDuration(context.Background(), "t1")
			require.Error(t, err)
			assert.Equal(t, tt.wantDecode, errors.Is(err, ErrDecode))

			// Every handle allocated along the way must be released.
			assert.Equal(t, int64(0), l.Stats().Live)
		})
	}
}

func TestLoader_FetchAudio(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte{1, 2, 3}, contentType: "audio/wav"}
	l := New(fetcher, &fakeProber{}, Config{})

	audio, err := l.FetchAudio(context.Background(), "t9")
	require.NoError(t, err)
	assert.Equal(t, "t9", audio.TrackID)
	assert.Equal(t, []byte{1, 2, 3}, audio.Data)
	assert.Equal(t, "audio/wav", audio.ContentType)
}

func TestHandle_Revoke(t *testing.T) {
	l := New(&fakeFetcher{}, &fakeProber{}, Config{})
	h := l.BindLocal(&Audio{TrackID: "t1", Data: []byte("abc"), ContentType: "audio/mpeg"})

	assert.Contains(t, h.ID(), "blob:")
	assert.Equal(t, 3, h.Size())

	r, err := h.Open()
	require.NoError(t, err)
	data, _ := io.ReadAll(r)
	assert.Equal(t, []byte("abc"), data)

	assert.True(t, h.Revoke())
	assert.False(t, h.Revoke())
	assert.True(t, h.Revoked())

	_, err = h.Open()
	assert.ErrorIs(t, err, ErrRevoked)

	stats := l.Stats()
	assert.Equal(t, int64(1), stats.Created)
	assert.Equal(t, int64(1), stats.Revoked)
	assert.Equal(t, int64(0), stats.Live)
}

func TestHandle_DistinctIDs(t *testing.T) {
	l := New(&fakeFetcher{}, &fakeProber{}, Config{})
	audio := &Audio{TrackID: "t1", Data: []byte("abc")}

	a := l.BindLocal(audio)
	b := l.BindLocal(audio)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, int64(2), l.Stats().Live)
}
