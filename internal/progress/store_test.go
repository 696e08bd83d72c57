package progress

import (
	"testing"
	"time"

	"github.com/deniz/checklens/internal/domain"
)

func TestStoreCreateDuplicate(t *testing.T) {
	s := NewStore()

	if err := s.Create("a", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Create("a", time.Now()); err == nil {
		t.Error("expected error on duplicate session id")
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 session, got %d", s.Len())
	}
}

func TestStoreUpdateUnknownSession(t *testing.T) {
	s := NewStore()

	called := false
	if ok := s.Update("missing", func(*domain.Session) { called = true }); ok {
		t.Error("expected update of unknown session to report false")
	}
	if called {
		t.Error("update closure must not run for unknown session")
	}
}

func TestStoreSnapshotIsolation(t *testing.T) {
	s := NewStore()
	if err := s.Create("a", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.AppendLog("a", domain.LogEntry{Message: "first"})

	snap, ok := s.Snapshot("a")
	if !ok {
		t.Fatal("expected snapshot")
	}

	// Mutating the snapshot must not leak into the store
	snap.Logs[0].Message = "mutated"
	snap.Logs = append(snap.Logs, domain.LogEntry{Message: "extra"})

	again, _ := s.Snapshot("a")
	if len(again.Logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(again.Logs))
	}
	if again.Logs[0].Message != "first" {
		t.Errorf("snapshot mutation leaked into store: %q", again.Logs[0].Message)
	}
}

func TestStoreLogsSince(t *testing.T) {
	s := NewStore()
	if err := s.Create("a", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, msg := range []string{"one", "two", "three"} {
		s.AppendLog("a", domain.LogEntry{Message: msg})
	}

	logs, _, ok := s.LogsSince("a", 1)
	if !ok {
		t.Fatal("expected session to exist")
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 new entries, got %d", len(logs))
	}
	if logs[0].Message != "two" || logs[1].Message != "three" {
		t.Errorf("wrong entries: %q, %q", logs[0].Message, logs[1].Message)
	}

	logs, _, _ = s.LogsSince("a", 3)
	if len(logs) != 0 {
		t.Errorf("expected no new entries, got %d", len(logs))
	}

	if _, _, ok := s.LogsSince("missing", 0); ok {
		t.Error("expected unknown session to report not found")
	}
}

func TestStoreSweepRemovesExpiredTerminalSessions(t *testing.T) {
	s := NewStore()

	if err := s.Create("done", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Create("running", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Update("done", func(sess *domain.Session) {
		sess.Status = domain.StatusCompleted
	})

	// Force the terminal timestamp into the past
	s.mu.Lock()
	s.terminalAt["done"] = time.Now().Add(-time.Hour)
	s.mu.Unlock()

	removed := s.sweep(time.Minute)
	if removed != 1 {
		t.Fatalf("expected 1 removed session, got %d", removed)
	}
	if _, ok := s.Snapshot("done"); ok {
		t.Error("expected expired terminal session to be evicted")
	}
	if _, ok := s.Snapshot("running"); !ok {
		t.Error("in-flight session must survive the sweep")
	}
}
