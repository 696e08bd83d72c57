package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/deniz/checklens/internal/domain"
)

// AnalysisRepository persists finished check analyses.
type AnalysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository creates a new AnalysisRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *AnalysisRepository: repository instance bound to db.
func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save inserts or replaces an analysis record keyed by session ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - record: analysis record to persist.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *AnalysisRepository) Save(ctx context.Context, record *domain.AnalysisRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		UpdateAll: true,
	}).Create(record).Error
}

// GetBySessionID retrieves an analysis record by its session ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sessionID: analysis session ID.
// Returns:
//   - *domain.AnalysisRecord: record if found.
//   - error: non-nil if lookup fails.
func (r *AnalysisRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.AnalysisRecord, error) {
	var record domain.AnalysisRecord
	if err := r.db.WithContext(ctx).First(&record, "session_id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// List retrieves analysis records newest first with pagination.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.AnalysisRecord: matching records.
//   - error: non-nil if the query fails.
func (r *AnalysisRepository) List(ctx context.Context, limit, offset int) ([]domain.AnalysisRecord, error) {
	var records []domain.AnalysisRecord
	if err := r.db.WithContext(ctx).
		Limit(limit).
		Offset(offset).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Count counts all stored analysis records.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - int64: number of records.
//   - error: non-nil if the query fails.
func (r *AnalysisRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.AnalysisRecord{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
