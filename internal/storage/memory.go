package storage

import (
	"context"
	"sync"
	"time"

	"github.com/oakvale/ledgermap/internal/common"
	"github.com/oakvale/ledgermap/internal/model"
)

// MemoryStore keeps sessions in process memory. With a zero TTL sessions
// live until the process exits, which is the service's default policy; a
// positive TTL starts a background sweep so the policy stays testable.
type MemoryStore struct {
	sessions map[string]memoryEntry
	batches  map[string]*model.BatchStatus
	stopCh   chan struct{}
	ttl      time.Duration
	mu       sync.RWMutex
	sweepOn  bool
}

type memoryEntry struct {
	session *model.Session
	expiry  time.Time
}

// NewMemoryStore creates an in-memory session store. ttl of 0 means
// sessions never expire.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]memoryEntry),
		batches:  make(map[string]*model.BatchStatus),
		stopCh:   make(chan struct{}),
		ttl:      ttl,
	}

	if ttl > 0 {
		s.sweepOn = true
		go s.sweep()
	}

	return s
}

// PutSession stores an upload session.
func (s *MemoryStore) PutSession(_ context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{session: session}
	if s.ttl > 0 {
		entry.expiry = time.Now().Add(s.ttl)
	}
	s.sessions[session.ID] = entry
	return nil
}

// GetSession retrieves an upload session or ErrSessionNotFound.
func (s *MemoryStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[id]
	if !ok || entry.expired() {
		return nil, common.ErrSessionNotFound
	}
	return entry.session, nil
}

// ContainsSession reports whether an upload session exists.
func (s *MemoryStore) ContainsSession(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[id]
	return ok && !entry.expired(), nil
}

// DeleteSession removes an upload session. Deleting an unknown id is a
// no-op.
func (s *MemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// PutBatch stores or replaces a batch progress record.
func (s *MemoryStore) PutBatch(_ context.Context, id string, status *model.BatchStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batches[id] = status
	return nil
}

// GetBatch retrieves a batch progress record or ErrSessionNotFound.
func (s *MemoryStore) GetBatch(_ context.Context, id string) (*model.BatchStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.batches[id]
	if !ok {
		return nil, common.ErrSessionNotFound
	}
	return status, nil
}

// Close stops the expiry sweep if one is running. Safe to call more than
// once.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sweepOn {
		close(s.stopCh)
		s.sweepOn = false
	}
	return nil
}

func (e memoryEntry) expired() bool {
	return !e.expiry.IsZero() && time.Now().After(e.expiry)
}

func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			for id, entry := range s.sessions {
				if entry.expired() {
					delete(s.sessions, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
