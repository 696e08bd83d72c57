package progress

import (
	"testing"

	"github.com/deniz/checklens/internal/domain"
)

func TestTrackerProgressPercentage(t *testing.T) {
	tests := []struct {
		phase    int
		expected int
	}{
		{1, 16},
		{2, 33},
		{3, 50},
		{4, 66},
		{5, 83},
		{6, 100},
	}

	for _, tt := range tests {
		store := NewStore()
		tracker, err := NewTracker(store, "s")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tracker.Update(tt.phase, domain.StatusProcessing, "working", nil)

		sess, _ := store.Snapshot("s")
		if sess.Progress != tt.expected {
			t.Errorf("phase %d: expected progress %d, got %d", tt.phase, tt.expected, sess.Progress)
		}
	}
}

func TestTrackerUpdateAppendsLog(t *testing.T) {
	store := NewStore()
	tracker, err := NewTracker(store, "s")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tracker.Update(1, domain.StatusProcessing, "first", nil)
	tracker.Update(2, domain.StatusInfo, "second", map[string]interface{}{"k": "v"})

	sess, _ := store.Snapshot("s")
	if len(sess.Logs) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(sess.Logs))
	}
	if sess.Logs[0].Message != "first" || sess.Logs[1].Message != "second" {
		t.Errorf("log order wrong: %q, %q", sess.Logs[0].Message, sess.Logs[1].Message)
	}
	if sess.Logs[1].Details["k"] != "v" {
		t.Error("details not carried into log entry")
	}
	if sess.Phase != 2 || sess.Message != "second" {
		t.Errorf("live fields not updated: phase=%d message=%q", sess.Phase, sess.Message)
	}
}

func TestTrackerSetResult(t *testing.T) {
	store := NewStore()
	tracker, err := NewTracker(store, "s")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tracker.SetResult(&domain.Result{SuccessRate: "2/3"})

	sess, _ := store.Snapshot("s")
	if sess.Status != domain.StatusCompleted {
		t.Errorf("expected completed, got %s", sess.Status)
	}
	if sess.Progress != 100 {
		t.Errorf("expected progress 100, got %d", sess.Progress)
	}
	if sess.Result == nil || sess.Result.SuccessRate != "2/3" {
		t.Error("result not attached")
	}
	if sess.Error != nil {
		t.Error("completed session must not carry an error")
	}
}

func TestTrackerSetError(t *testing.T) {
	store := NewStore()
	tracker, err := NewTracker(store, "s")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tracker.SetError("boom")

	sess, _ := store.Snapshot("s")
	if sess.Status != domain.StatusError {
		t.Errorf("expected error status, got %s", sess.Status)
	}
	if sess.Error == nil || *sess.Error != "boom" {
		t.Error("error message not attached")
	}
	if sess.Result != nil {
		t.Error("failed session must not carry a result")
	}
}

func TestTrackerTolerateEviction(t *testing.T) {
	store := NewStore()
	tracker, err := NewTracker(store, "s")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Simulate the janitor evicting the session mid-flight
	store.mu.Lock()
	delete(store.sessions, "s")
	store.mu.Unlock()

	// Must not panic
	tracker.Update(3, domain.StatusProcessing, "still going", nil)
	tracker.SetError("late failure")
}
