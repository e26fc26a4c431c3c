package contact

import (
	"context"

	"github.com/akeren/acs-site/internal/models"
	apperrors "github.com/akeren/acs-site/pkg/errors"
	"gorm.io/gorm"
)

type DispatchRepository interface {
	// RecordDispatch persists the outcome of one relay attempt.
	RecordDispatch(ctx context.Context, record *models.DispatchRecord) error
	// ListRecent returns the newest dispatch records first.
	ListRecent(ctx context.Context, limit int) ([]*models.DispatchRecord, error)
	// Enabled reports whether records are actually stored.
	Enabled() bool
}

type dispatchRepository struct {
	db *gorm.DB
}

// NewDispatchRepository returns a repository that silently drops records when db is nil.
func NewDispatchRepository(db *gorm.DB) DispatchRepository {
	return &dispatchRepository{db: db}
}

func (dr *dispatchRepository) Enabled() bool {
	return dr.db != nil
}

func (dr *dispatchRepository) RecordDispatch(ctx context.Context, record *models.DispatchRecord) error {
	if dr.db == nil {
		return nil
	}

	if err := dr.db.WithContext(ctx).Create(record).Error; err != nil {
		return apperrors.NewDatabaseError("unable to record dispatch", err)
	}

	return nil
}

func (dr *dispatchRepository) ListRecent(ctx context.Context, limit int) ([]*models.DispatchRecord, error) {
	if dr.db == nil {
		return []*models.DispatchRecord{}, nil
	}

	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var records []*models.DispatchRecord
	if err := dr.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, apperrors.NewDatabaseError("unable to fetch dispatch records", err)
	}

	return records, nil
}
