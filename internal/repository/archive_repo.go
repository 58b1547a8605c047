package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/timmy/loginscraper/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArchiveRepository persists finished job history.
type ArchiveRepository struct {
	db *gorm.DB
}

// NewArchiveRepository creates a new ArchiveRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ArchiveRepository: repository instance bound to db.
func NewArchiveRepository(db *gorm.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// Save inserts the archive row, replacing any earlier row for the same job.
func (r *ArchiveRepository) Save(ctx context.Context, rec *domain.JobArchive) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		UpdateAll: true,
	}).Create(rec).Error
}

// Get retrieves an archived job by id.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jobID: job identifier.
// Returns:
//   - *domain.JobArchive: the row.
//   - error: domain.ErrJobNotFound if there is no row.
func (r *ArchiveRepository) Get(ctx context.Context, jobID string) (*domain.JobArchive, error) {
	var rec domain.JobArchive
	err := r.db.WithContext(ctx).Where("job_id = ?", jobID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns archived jobs, most recently completed first, and the total row count.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: page size.
//   - offset: rows to skip.
// Returns:
//   - []domain.JobArchive: the page.
//   - int64: total number of archived jobs.
//   - error: non-nil if the query fails.
func (r *ArchiveRepository) List(ctx context.Context, limit, offset int) ([]domain.JobArchive, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.JobArchive{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recs []domain.JobArchive
	err := r.db.WithContext(ctx).
		Order("completed_at DESC").
		Order("job_id").
		Limit(limit).
		Offset(offset).
		Find(&recs).Error
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}
