package domain

import "time"

// AnalysisRecord is the persisted summary of a completed analysis session.
// Only successful sessions are archived; the live progress state stays in
// the in-memory store.
type AnalysisRecord struct {
	ID             string    `gorm:"type:text;primaryKey" json:"id"`
	SessionID      string    `gorm:"type:text;not null;uniqueIndex" json:"session_id"`
	Models         string    `gorm:"type:text" json:"models"`
	SuccessRate    string    `gorm:"type:text" json:"success_rate"`
	TextLength     int       `gorm:"default:0" json:"text_length"`
	ProcessingTime float64   `json:"processing_time"`
	ImageURL       string    `gorm:"type:text" json:"image_url,omitempty"`
	ResultJSON     string    `gorm:"type:text" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName returns the database table name for AnalysisRecord.
func (AnalysisRecord) TableName() string {
	return "analysis_records"
}
