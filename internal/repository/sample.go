package repository

import (
	"database/sql"
	"errors"

	"labelsweep/internal/apperr"
	"labelsweep/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type SampleRepository interface {
	GetByID(id int64) (*models.Sample, error)
	AllByDataset(datasetID int64) ([]*models.Sample, error)
	ListByDataset(datasetID int64, suspiciousOnly bool, limit, offset int) ([]*models.Sample, error)
}

type sampleRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewSampleRepository(db *sqlx.DB, logger *zap.Logger) SampleRepository {
	return &sampleRepository{db: db, logger: logger}
}

const sampleColumns = `id, dataset_id, sample_index, features, original_label, current_label, is_suspicious, is_corrected, created_at`

func (r *sampleRepository) GetByID(id int64) (*models.Sample, error) {
	var sample models.Sample
	err := r.db.Get(&sample, `SELECT `+sampleColumns+` FROM samples WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.KindNotFound, "sample %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &sample, nil
}

// AllByDataset returns every sample of the dataset in upload order.
func (r *sampleRepository) AllByDataset(datasetID int64) ([]*models.Sample, error) {
	samples := []*models.Sample{}
	query := `SELECT ` + sampleColumns + ` FROM samples WHERE dataset_id = $1 ORDER BY sample_index`
	if err := r.db.Select(&samples, query, datasetID); err != nil {
		return nil, err
	}
	return samples, nil
}

func (r *sampleRepository) ListByDataset(datasetID int64, suspiciousOnly bool, limit, offset int) ([]*models.Sample, error) {
	samples := []*models.Sample{}
	query := `SELECT ` + sampleColumns + ` FROM samples WHERE dataset_id = $1`
	if suspiciousOnly {
		query += ` AND is_suspicious = TRUE`
	}
	query += ` ORDER BY sample_index LIMIT $2 OFFSET $3`
	if err := r.db.Select(&samples, query, datasetID, limit, offset); err != nil {
		return nil, err
	}
	return samples, nil
}
