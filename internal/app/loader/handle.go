package loader

import (
	"bytes"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Handle is a revocable reference to locally buffered audio bytes.
// Once revoked the bytes are released and Open fails with ErrRevoked.
type Handle struct {
	id          string
	trackID     string
	contentType string
	size        int

	mu       sync.Mutex
	data     []byte
	revoked  bool
	registry *Registry
}

// ID returns the opaque handle identifier (blob:<uuid>).
func (h *Handle) ID() string {
	return h.id
}

// TrackID returns the track the bytes belong to.
func (h *Handle) TrackID() string {
	return h.trackID
}

// ContentType returns the content type reported by the backend.
func (h *Handle) ContentType() string {
	return h.contentType
}

// Size returns the number of buffered bytes at bind time.
func (h *Handle) Size() int {
	return h.size
}

// Open returns a fresh reader over the buffered bytes.
func (h *Handle) Open() (io.ReadSeeker, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.revoked {
		return nil, ErrRevoked
	}
	return bytes.NewReader(h.data), nil
}

// Revoked reports whether Revoke has been called.
func (h *Handle) Revoked() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.revoked
}

// Revoke releases the bytes. It is safe to call more than once; only the
// first call has an effect and returns true.
func (h *Handle) Revoke() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.revoked {
		return false
	}
	h.revoked = true
	h.data = nil
	if h.registry != nil {
		h.registry.revoked.Add(1)
	}
	return true
}

// Registry counts handle allocations so leaks are observable.
type Registry struct {
	created atomic.Int64
	revoked atomic.Int64
}

// Stats is a point-in-time view of handle allocations.
type Stats struct {
	Created int64
	Revoked int64
	Live    int64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Stats returns the current counters.
func (r *Registry) Stats() Stats {
	created := r.created.Load()
	revoked := r.revoked.Load()
	return Stats{Created: created, Revoked: revoked, Live: created - revoked}
}

func (r *Registry) newHandle(trackID, contentType string, data []byte) *Handle {
	r.created.Add(1)
	return &Handle{
		id:          "blob:" + uuid.New().String(),
		trackID:     trackID,
		contentType: contentType,
		size:        len(data),
		data:        data,
		registry:    r,
	}
}
