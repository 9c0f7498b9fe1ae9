package idempotency

import (
	"context"
	"sync"
	"time"
)

// SweepInterval is how often MemoryStore drops expired keys.
const SweepInterval = 5 * time.Minute

type memEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is a single-process Store used when Redis is not configured.
// A background sweep removes expired keys until Close is called.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	ttl     time.Duration
	now     func() time.Time

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return newMemoryStore(ttl, time.Now, SweepInterval)
}

// newMemoryStore starts no sweep loop when every <= 0.
func newMemoryStore(ttl time.Duration, now func() time.Time, every time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memEntry),
		ttl:     ttlOrDefault(ttl),
		now:     now,
		stop:    make(chan struct{}),
	}
	if every > 0 {
		s.wg.Add(1)
		go s.sweepLoop(every)
	}
	return s
}

func (s *MemoryStore) sweepLoop(every time.Duration) {
	defer s.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			s.sweep()
		}
	}
}

// sweep drops every expired key.
func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}

func (s *MemoryStore) live(key string) (memEntry, bool) {
	e, ok := s.entries[key]
	if ok && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return memEntry{}, false
	}
	return e, ok
}

func (s *MemoryStore) Reserve(_ context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.live(key); ok {
		if e.value == pendingMarker {
			return Entry{}, false, nil
		}
		return Entry{BookingID: e.value}, false, nil
	}
	s.entries[key] = memEntry{value: pendingMarker, expiresAt: s.now().Add(s.ttl)}
	return Entry{}, true, nil
}

func (s *MemoryStore) Complete(_ context.Context, key, bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memEntry{value: bookingID, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Close stops the sweep loop. Safe to call more than once.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

var _ Store = (*MemoryStore)(nil)
