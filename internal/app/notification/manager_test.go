package notification

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStream struct {
	mu    sync.Mutex
	got   []*Notification[string]
	err   error
	delay time.Duration
}

func (s *recordingStream) Send(n *Notification[string]) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return s.err
}

func (s *recordingStream) received() []*Notification[string] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Notification[string](nil), s.got...)
}

func TestManager_BroadcastReachesSubscribers(t *testing.T) {
	m := NewManager[string]()
	a := &recordingStream{}
	b := &recordingStream{}
	m.Subscribe(a)
	m.Subscribe(b)
	assert.Equal(t, 2, m.SubscriberCount())

	n := m.Broadcast(TypePlayback, "playing")
	assert.Equal(t, uint64(1), n.SequenceNo)

	for _, s := range []*recordingStream{a, b} {
		got := s.received()
		require.Len(t, got, 1)
		assert.Equal(t, "playing", got[0].Payload)
		assert.Equal(t, TypePlayback, got[0].Type)
	}
}

func TestManager_SequenceIncreases(t *testing.T) {
	m := NewManager[string]()
	s := &recordingStream{}
	m.Subscribe(s)

	m.Broadcast(TypeQueue, "one")
	m.Broadcast(TypeTrackEnded, "two")

	got := s.received()
	require.Len(t, got, 2)
	assert.Less(t, got[0].SequenceNo, got[1].SequenceNo)
}

func TestManager_UnsubscribeAndClose(t *testing.T) {
	m := NewManager[string]()
	s := &recordingStream{}
	id := m.Subscribe(s)

	m.Unsubscribe(id)
	m.Broadcast(TypePlayback, "ignored")
	assert.Empty(t, s.received())

	m.Subscribe(&recordingStream{})
	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestManager_SlowOrFailingSubscriberDoesNotBlock(t *testing.T) {
	m := NewManager[string]()
	m.sendTimeout = 20 * time.Millisecond
	slow := &recordingStream{delay: 200 * time.Millisecond}
	failing := &recordingStream{err: errors.New("stream closed")}
	ok := &recordingStream{}
	m.Subscribe(slow)
	m.Subscribe(failing)
	m.Subscribe(ok)

	start := time.Now()
	m.Broadcast(TypeLoadFailed, "boom")
	assert.Less(t, time.Since(start), 150*time.Millisecond)
	assert.Len(t, ok.received(), 1)
}

func TestManager_SendToOne(t *testing.T) {
	m := NewManager[string]()
	a := &recordingStream{}
	b := &recordingStream{}
	id := m.Subscribe(a)
	m.Subscribe(b)

	require.NoError(t, m.Send(id, TypePlayback, "initial"))
	assert.Len(t, a.received(), 1)
	assert.Empty(t, b.received())

	assert.NoError(t, m.Send("missing", TypePlayback, "x"))
}

func TestType_String(t *testing.T) {
	assert.Equal(t, "playback", TypePlayback.String())
	assert.Equal(t, "queue", TypeQueue.String())
	assert.Equal(t, "track_ended", TypeTrackEnded.String())
	assert.Equal(t, "load_failed", TypeLoadFailed.String())
	assert.Equal(t, "unknown", Type(42).String())
}
