package domain

import "time"

// TotalPhases is the fixed number of pipeline phases used for progress
// percentage calculation.
const TotalPhases = 6

// SessionStatus represents the live status of an analysis session.
// Phase-level statuses (processing, info, success, error) describe the most
// recent update; Completed and StatusError are terminal.
type SessionStatus string

const (
	StatusInitialized SessionStatus = "initialized"
	StatusProcessing  SessionStatus = "processing"
	StatusInfo        SessionStatus = "info"
	StatusSuccess     SessionStatus = "success"
	StatusCompleted   SessionStatus = "completed"
	StatusError       SessionStatus = "error"
)

// IsTerminal reports whether the status ends the session. No further
// progress updates are valid after a terminal status.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// LogEntry is one timestamped progress event. Entries are immutable once
// appended; insertion order is the authoritative event order for streaming.
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Elapsed   float64                `json:"elapsed"`
	Phase     int                    `json:"phase"`
	Status    SessionStatus          `json:"status"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// ModelAnalysis is the outcome of a single model call. Exactly one of
// Analysis and Error is set.
type ModelAnalysis struct {
	ModelName string                 `json:"model_name"`
	Analysis  map[string]interface{} `json:"analysis"`
	Error     *string                `json:"error"`
}

// Result aggregates the output of a completed analysis session.
type Result struct {
	// RawOCR holds the raw text per engine, keyed by engine name.
	// A nil value means the engine produced nothing or failed.
	RawOCR         map[string]*string `json:"raw_ocr"`
	Analyses       []ModelAnalysis    `json:"llm_analyses"`
	ProcessingTime float64            `json:"processing_time"`
	// SuccessRate is "successful/attempted", e.g. "2/3".
	SuccessRate string `json:"success_rate"`
	// ImageURL points at the archived check image when object storage is
	// configured; empty otherwise.
	ImageURL string `json:"image_url,omitempty"`
}

// Session is the full tracked state of one analyze request.
// Exactly one of Result and Error is non-nil once Status is terminal;
// both are nil while the session is in flight.
type Session struct {
	ID          string        `json:"session_id"`
	Status      SessionStatus `json:"status"`
	Phase       int           `json:"phase"`
	TotalPhases int           `json:"total_phases"`
	Message     string        `json:"message"`
	Progress    int           `json:"progress"`
	StartTime   time.Time     `json:"start_time"`
	Elapsed     float64       `json:"elapsed"`
	Logs        []LogEntry    `json:"logs"`
	Result      *Result       `json:"result"`
	Error       *string       `json:"error"`
}
