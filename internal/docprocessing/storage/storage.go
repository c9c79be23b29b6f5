package storage

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/motorlog/motorlog-backend/internal/docprocessing/domain"
)

// CaptureStore provides in-memory storage for capture results.
// Images are processed in RAM only and zeroed after use; only the
// extracted records are retained, and those expire after a TTL.
type CaptureStore struct {
	mu       sync.RWMutex
	captures map[string]*domain.Capture
	ttl      time.Duration
}

// NewCaptureStore creates an in-memory capture store with the given TTL.
func NewCaptureStore(ttl time.Duration) *CaptureStore {
	s := &CaptureStore{
		captures: make(map[string]*domain.Capture),
		ttl:      ttl,
	}
	go s.cleanupLoop()
	return s
}

// GenerateCaptureID creates a cryptographically random capture ID.
func GenerateCaptureID() string {
	b := make([]byte, 16)
	rand.Read(b)
	const hex = "0123456789abcdef"
	id := make([]byte, 32)
	for i, v := range b {
		id[i*2] = hex[v>>4]
		id[i*2+1] = hex[v&0x0f]
	}
	return string(id)
}

// Store saves a capture result.
func (s *CaptureStore) Store(capture *domain.Capture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captures[capture.ID] = capture
}

// Get retrieves a capture by ID, or nil if absent or expired. Expiry is
// checked here as well as in the cleanup loop, so a capture never comes
// back after its TTL even if the sweeper has not run yet.
func (s *CaptureStore) Get(captureID string) *domain.Capture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	capture := s.captures[captureID]
	if capture == nil || time.Since(capture.CreatedAt) > s.ttl {
		return nil
	}
	return capture
}

// Update applies a mutation to a stored capture if it exists.
func (s *CaptureStore) Update(captureID string, update func(*domain.Capture)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if capture, ok := s.captures[captureID]; ok {
		update(capture)
	}
}

// Delete removes a capture from the store.
func (s *CaptureStore) Delete(captureID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.captures, captureID)
}

// ZeroBytes overwrites a byte slice with zeros for secure deletion.
// This prevents document image data from lingering in memory.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// cleanupLoop periodically removes expired captures
func (s *CaptureStore) cleanupLoop() {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()
	for range ticker.C {
		s.cleanup()
	}
}

func (s *CaptureStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-s.ttl)
	for id, capture := range s.captures {
		if capture.CreatedAt.Before(cutoff) {
			delete(s.captures, id)
		}
	}
}
