// Package notification provides the notification manager for broadcasting events.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// Type identifies what triggered a notification.
type Type int

const (
	TypePlayback   Type = iota // State, metadata, time or volume changed
	TypeQueue                  // Queue or cursor changed
	TypeTrackEnded             // Current track reached its end
	TypeLoadFailed             // Current track could not be loaded
)

// String returns the string representation of the type.
func (t Type) String() string {
	switch t {
	case TypePlayback:
		return "playback"
	case TypeQueue:
		return "queue"
	case TypeTrackEnded:
		return "track_ended"
	case TypeLoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

// Notification is a broadcast message carrying a payload snapshot.
type Notification[T any] struct {
	SequenceNo uint64
	Type       Type
	Timestamp  time.Time
	Payload    T
}

// Stream represents a notification stream for a subscriber.
type Stream[T any] interface {
	Send(*Notification[T]) error
}

// subscription represents a subscriber's subscription.
type subscription[T any] struct {
	id     string
	stream Stream[T]
}

// Manager manages notification subscriptions and broadcasting.
type Manager[T any] struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription[T]
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
	sendTimeout   time.Duration
}

// NewManager creates a new notification manager.
func NewManager[T any]() *Manager[T] {
	return &Manager[T]{
		subscriptions: make(map[string]*subscription[T]),
		sendTimeout:   500 * time.Millisecond,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager[T]) Subscribe(stream Stream[T]) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription[T]{
		id:     id,
		stream: stream,
	}
	return id
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager[T]) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Unsubscribe removes a subscription.
func (m *Manager[T]) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// Broadcast sends a notification to all subscribers.
// Each stream send runs in its own goroutine bounded by the send timeout.
func (m *Manager[T]) Broadcast(typ Type, payload T) *Notification[T] {
	n := &Notification[T]{
		SequenceNo: m.NextSequenceNo(),
		Type:       typ,
		Timestamp:  time.Now(),
		Payload:    payload,
	}

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription[T], 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription[T]) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(n)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Msgf("notification: send failed: subscription=%s err=%v", s.id, err)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("notification: send timed out: subscription=%s", s.id)
			}
		}(sub)
	}

	wg.Wait()
	return n
}

// Send sends a notification to a specific subscriber.
func (m *Manager[T]) Send(subscriptionID string, typ Type, payload T) error {
	m.mu.RLock()
	sub, ok := m.subscriptions[subscriptionID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	return sub.stream.Send(&Notification[T]{
		SequenceNo: m.NextSequenceNo(),
		Type:       typ,
		Timestamp:  time.Now(),
		Payload:    payload,
	})
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager[T]) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close closes the manager and removes all subscriptions.
func (m *Manager[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription[T])
}
