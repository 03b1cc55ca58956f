package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/maxify/internal/app/loader"
	"github.com/osa030/maxify/internal/infra/config"
)

// makeWAV builds a mono 16-bit PCM WAV file of the given length.
func makeWAV(t *testing.T, sampleRate int, length time.Duration) []byte {
	t.Helper()
	samples := int(int64(sampleRate) * int64(length) / int64(time.Second))
	dataSize := samples * 2

	var buf bytes.Buffer
	write := func(v any) {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}
	buf.WriteString("RIFF")
	write(uint32(36 + dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	write(uint32(16))
	write(uint16(1)) // PCM
	write(uint16(1)) // mono
	write(uint32(sampleRate))
	write(uint32(sampleRate * 2))
	write(uint16(2))
	write(uint16(16))
	buf.WriteString("data")
	write(uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}

type memFetcher struct {
	data        []byte
	contentType string
}

func (f memFetcher) FetchStream(ctx context.Context, trackID string) ([]byte, string, error) {
	return f.data, f.contentType, nil
}

func TestDetectFormat(t *testing.T) {
	wavBytes := makeWAV(t, 8000, 100*time.Millisecond)

	tests := []struct {
		name        string
		data        []byte
		contentType string
		want        Format
		wantErr     bool
	}{
		{name: "mpeg content type", data: []byte("x"), contentType: "audio/mpeg", want: FormatMP3},
		{name: "content type with params", data: []byte("x"), contentType: "Audio/WAV; charset=binary", want: FormatWAV},
		{name: "generic type sniffs wav", data: wavBytes, contentType: "application/octet-stream", want: FormatWAV},
		{name: "missing type sniffs wav", data: wavBytes, contentType: "", want: FormatWAV},
		{name: "unknown bytes", data: []byte("definitely not audio"), contentType: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(tt.data)
			got, err := DetectFormat(r, tt.contentType)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			pos, _ := r.Seek(0, 1)
			assert.Equal(t, int64(0), pos)
		})
	}
}

func TestProber_WAVDuration(t *testing.T) {
	data := makeWAV(t, 8000, 2*time.Second)

	d, err := NewProber().Probe(context.Background(), bytes.NewReader(data), "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)
}

func TestProber_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Either the decode or the cancellation may win; neither may succeed
	// with a bogus stream.
	_, err := NewProber().Probe(ctx, bytes.NewReader([]byte("junk")), "audio/mpeg")
	assert.Error(t, err)
}

func TestLoaderProbe_ThroughBeep(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		ct         string
		want       int
		wantDecode bool
	}{
		{name: "wav rounds to seconds", data: makeWAV(t, 8000, 3600*time.Millisecond), ct: "audio/wav", want: 4},
		{name: "garbage is a decode error", data: []byte("<html>not audio</html>"), ct: "audio/mpeg", wantDecode: true},
		{name: "unknown format is a decode error", data: []byte{0, 1, 2, 3}, ct: "", wantDecode: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := loader.New(memFetcher{data: tt.data, contentType: tt.ct}, NewProber(), loader.Config{ProbeTimeout: 2 * time.Second})

			got, err := l.ProbeDuration(context.Background(), "track")
			if tt.wantDecode {
				require.Error(t, err)
				assert.True(t, errors.Is(err, loader.ErrDecode))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, int64(0), l.Stats().Live)
		})
	}
}

type recordingListener struct {
	mu       sync.Mutex
	metadata []time.Duration
	updates  []time.Duration
	ended    int
}

func (r *recordingListener) OnMetadata(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metadata = append(r.metadata, d)
}

func (r *recordingListener) OnTimeUpdate(pos time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, pos)
}

func (r *recordingListener) OnEnded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended++
}

func (r *recordingListener) endedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

func (r *recordingListener) metadataSeen() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.metadata...)
}

func bindWAV(t *testing.T, length time.Duration) *loader.Handle {
	t.Helper()
	l := loader.New(memFetcher{}, NewProber(), loader.Config{})
	return l.BindLocal(&loader.Audio{TrackID: "t", Data: makeWAV(t, 8000, length), ContentType: "audio/wav"})
}

func TestClockDevice_PlaysToEnd(t *testing.T) {
	d := NewClockDevice(ClockSettings{TickMs: 10})
	listener := &recordingListener{}

	require.NoError(t, d.Bind(bindWAV(t, 200*time.Millisecond), listener))
	require.NoError(t, d.Play())

	require.Eventually(t, func() bool {
		return listener.endedCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []time.Duration{200 * time.Millisecond}, listener.metadataSeen())
	assert.Equal(t, 200*time.Millisecond, d.Position())

	// No repeated end without a new Play.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, listener.endedCount())
	d.Release()
}

func TestClockDevice_PauseSeek(t *testing.T) {
	d := NewClockDevice(ClockSettings{TickMs: 10})
	listener := &recordingListener{}
	require.NoError(t, d.Bind(bindWAV(t, 5*time.Second), listener))

	require.NoError(t, d.Seek(2*time.Second))
	assert.Equal(t, 2*time.Second, d.Position())

	require.NoError(t, d.Seek(time.Hour))
	assert.Equal(t, 5*time.Second, d.Position())

	require.NoError(t, d.Seek(time.Second))
	require.NoError(t, d.Play())
	time.Sleep(30 * time.Millisecond)
	d.Pause()
	paused := d.Position()
	assert.Greater(t, paused, time.Second)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, paused, d.Position())
	d.Release()
}

func TestClockDevice_RejectsRevokedAndGarbage(t *testing.T) {
	d := NewClockDevice(ClockSettings{})

	h := bindWAV(t, time.Second)
	h.Revoke()
	assert.ErrorIs(t, d.Bind(h, &recordingListener{}), loader.ErrRevoked)

	l := loader.New(memFetcher{}, NewProber(), loader.Config{})
	garbage := l.BindLocal(&loader.Audio{TrackID: "g", Data: []byte("nope"), ContentType: "text/plain"})
	assert.Error(t, d.Bind(garbage, &recordingListener{}))

	assert.Error(t, d.Play())
}

func TestClockDevice_ReleaseStopsCallbacks(t *testing.T) {
	d := NewClockDevice(ClockSettings{TickMs: 10})
	listener := &recordingListener{}
	require.NoError(t, d.Bind(bindWAV(t, 50*time.Millisecond), listener))
	d.Release()

	assert.Error(t, d.Play())
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, listener.endedCount())
}

func TestNewDevice(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.OutputConfig
		wantErr bool
	}{
		{name: "clock defaults", cfg: config.OutputConfig{Type: config.OutputClock}},
		{name: "clock with settings", cfg: config.OutputConfig{Type: config.OutputClock, Settings: map[string]any{"tick_ms": 100}}},
		{name: "clock invalid tick", cfg: config.OutputConfig{Type: config.OutputClock, Settings: map[string]any{"tick_ms": 1}}, wantErr: true},
		{name: "clock wrong setting type", cfg: config.OutputConfig{Type: config.OutputClock, Settings: map[string]any{"tick_ms": "fast"}}, wantErr: true},
		{name: "unknown type", cfg: config.OutputConfig{Type: "hdmi"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device, err := NewDevice(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, &ClockDevice{}, device)
		})
	}
}
