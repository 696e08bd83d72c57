package progress

import (
	"math"
	"time"

	"github.com/deniz/checklens/internal/domain"
	"github.com/deniz/checklens/internal/logger"
)

// Tracker records progress updates for one session. It is bound to a
// session id at construction and owns the session's start timestamp.
//
// SetResult and SetError are mutually exclusive terminal transitions;
// callers must not call Update after either. The tracker does not enforce
// phase ordering.
type Tracker struct {
	store *Store
	id    string
	start time.Time
}

// NewTracker creates the session in the store and returns a tracker bound
// to it. Fails only when the id already exists.
func NewTracker(store *Store, id string) (*Tracker, error) {
	start := time.Now()
	if err := store.Create(id, start); err != nil {
		return nil, err
	}
	return &Tracker{store: store, id: id, start: start}, nil
}

// SessionID returns the bound session id.
func (t *Tracker) SessionID() string {
	return t.id
}

// StartTime returns the session's start timestamp.
func (t *Tracker) StartTime() time.Time {
	return t.start
}

// Elapsed returns seconds since the session started, rounded to 2 decimals.
func (t *Tracker) Elapsed() float64 {
	return roundSeconds(time.Since(t.start))
}

// Update appends a log entry and refreshes the session's live fields.
// Progress is int(phase/total*100). The update is mirrored to the
// operational log. Never fails: an unknown session id (e.g. evicted) makes
// the update a no-op rather than an error.
func (t *Tracker) Update(phase int, status domain.SessionStatus, message string, details map[string]interface{}) {
	elapsed := t.Elapsed()
	percent := phase * 100 / domain.TotalPhases

	entry := domain.LogEntry{
		Timestamp: time.Now(),
		Elapsed:   elapsed,
		Phase:     phase,
		Status:    status,
		Message:   message,
		Details:   details,
	}

	t.store.Update(t.id, func(sess *domain.Session) {
		sess.Status = status
		sess.Phase = phase
		sess.Message = message
		sess.Progress = percent
		sess.Elapsed = elapsed
		sess.Logs = append(sess.Logs, entry)
	})

	log := logger.Default().WithFields(logger.Fields{
		logger.FieldSessionID: t.id,
		logger.FieldPhase:     phase,
		logger.FieldStatus:    string(status),
	})
	log.Infof("Phase %d/%d (%d%%) - %s", phase, domain.TotalPhases, percent, message)
	if len(details) > 0 {
		log.WithFields(logger.Fields(details)).Debug("phase details")
	}
}

// SetResult marks the session completed with progress 100 and attaches the
// final result.
func (t *Tracker) SetResult(result *domain.Result) {
	t.store.Update(t.id, func(sess *domain.Session) {
		sess.Result = result
		sess.Status = domain.StatusCompleted
		sess.Progress = 100
		sess.Elapsed = t.Elapsed()
	})
}

// SetError marks the session as terminally failed.
func (t *Tracker) SetError(msg string) {
	t.store.Update(t.id, func(sess *domain.Session) {
		sess.Error = &msg
		sess.Status = domain.StatusError
		sess.Elapsed = t.Elapsed()
	})
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
