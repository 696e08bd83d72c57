package progress

import (
	"context"
	"time"

	"github.com/deniz/checklens/internal/domain"
)

// DefaultWatchInterval is the polling interval between checks for new log
// entries.
const DefaultWatchInterval = 500 * time.Millisecond

// Event is one element of a progress stream: either a log entry, a final
// status marker, or an error (unknown session).
type Event struct {
	Log    *domain.LogEntry
	Status domain.SessionStatus
	Final  bool
	Err    string
}

// Payload returns the wire representation of the event.
func (e Event) Payload() interface{} {
	switch {
	case e.Err != "":
		return map[string]string{"error": e.Err}
	case e.Final:
		return map[string]interface{}{"status": e.Status, "final": true}
	default:
		return e.Log
	}
}

// Watch returns a channel of progress events for the session. Each log
// entry is emitted exactly once (the cursor is the count of entries already
// seen); when the session reaches a terminal status the remaining entries
// are flushed, one final event is emitted, and the channel closes. An
// unknown session id produces a single error event. The stream is not
// resumable: a reconnecting consumer starts a fresh Watch and receives all
// entries present at that time.
func Watch(ctx context.Context, store *Store, id string, interval time.Duration) <-chan Event {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}

	ch := make(chan Event)
	go func() {
		defer close(ch)

		seen := 0
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			logs, status, ok := store.LogsSince(id, seen)
			if !ok {
				send(ctx, ch, Event{Err: "session not found"})
				return
			}

			for i := range logs {
				if !send(ctx, ch, Event{Log: &logs[i]}) {
					return
				}
			}
			seen += len(logs)

			if status.IsTerminal() {
				send(ctx, ch, Event{Status: status, Final: true})
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return ch
}

func send(ctx context.Context, ch chan<- Event, e Event) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- e:
		return true
	}
}
