package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/deniz/checklens/internal/domain"
	"github.com/deniz/checklens/internal/logger"
)

// Store is the process-wide mapping from session id to session state.
// It is written by the pipeline's tracker and read concurrently by the
// progress endpoints; all access goes through the mutex, and readers only
// ever see deep-copied snapshots.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	// terminalAt records when a session reached a terminal status, for
	// TTL-based eviction.
	terminalAt map[string]time.Time

	stopJanitor chan struct{}
	janitorOnce sync.Once
}

// NewStore creates an empty progress store.
func NewStore() *Store {
	return &Store{
		sessions:    make(map[string]*domain.Session),
		terminalAt:  make(map[string]time.Time),
		stopJanitor: make(chan struct{}),
	}
}

// Create registers a new session in the initialized state. Session ids are
// generated fresh, so an existing id is a precondition violation and is
// reported as an error rather than silently overwritten.
func (s *Store) Create(id string, start time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; exists {
		return fmt.Errorf("session %s already exists", id)
	}

	s.sessions[id] = &domain.Session{
		ID:          id,
		Status:      domain.StatusInitialized,
		Phase:       0,
		TotalPhases: domain.TotalPhases,
		Message:     "Starting process...",
		Progress:    0,
		StartTime:   start,
		Logs:        []domain.LogEntry{},
	}
	return nil
}

// Update mutates the session under the store lock. Returns false without
// calling fn when the id is unknown, so callers tolerate eviction.
func (s *Store) Update(id string, fn func(*domain.Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	fn(sess)
	if sess.Status.IsTerminal() {
		if _, marked := s.terminalAt[id]; !marked {
			s.terminalAt[id] = time.Now()
		}
	}
	return true
}

// AppendLog appends an immutable log entry to the session's trail.
func (s *Store) AppendLog(id string, entry domain.LogEntry) bool {
	return s.Update(id, func(sess *domain.Session) {
		sess.Logs = append(sess.Logs, entry)
	})
}

// Snapshot returns a deep copy of the session safe for concurrent use.
func (s *Store) Snapshot(id string) (*domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	cp := *sess
	cp.Logs = make([]domain.LogEntry, len(sess.Logs))
	copy(cp.Logs, sess.Logs)
	return &cp, true
}

// LogsSince returns a copy of the log entries after index n together with
// the session's current status. Used to implement stream cursors.
func (s *Store) LogsSince(id string, n int) ([]domain.LogEntry, domain.SessionStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, "", false
	}
	if n < 0 {
		n = 0
	}
	if n >= len(sess.Logs) {
		return nil, sess.Status, true
	}
	out := make([]domain.LogEntry, len(sess.Logs)-n)
	copy(out, sess.Logs[n:])
	return out, sess.Status, true
}

// Len returns the number of sessions currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartJanitor evicts terminal sessions older than ttl, sweeping every
// interval. A non-positive ttl disables eviction entirely and sessions
// are kept for the process lifetime.
func (s *Store) StartJanitor(ttl, interval time.Duration) {
	if ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	s.janitorOnce.Do(func() {
		go s.janitor(ttl, interval)
	})
}

// Close stops the janitor goroutine if one is running.
func (s *Store) Close() {
	close(s.stopJanitor)
}

func (s *Store) janitor(ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopJanitor:
			return
		case <-ticker.C:
			evicted := s.sweep(ttl)
			if evicted > 0 {
				logger.Default().WithField("count", evicted).
					Debug("Evicted expired sessions")
			}
		}
	}
}

func (s *Store) sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, at := range s.terminalAt {
		if at.Before(cutoff) {
			delete(s.sessions, id)
			delete(s.terminalAt, id)
			evicted++
		}
	}
	return evicted
}
