package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"labelsweep/internal/apperr"
	"labelsweep/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type ModelRepository interface {
	Create(m *models.ModelRecord) error
	GetByID(id int64) (*models.ModelRecord, error)
	ListActive(datasetID int64) ([]*models.ModelRecord, error)
	ActiveBaseline(datasetID int64) (*models.ModelRecord, error)
}

type modelRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewModelRepository(db *sqlx.DB, logger *zap.Logger) ModelRepository {
	return &modelRepository{db: db, logger: logger}
}

const modelColumns = `id, dataset_id, name, model_type, description, hyperparameters,
	train_accuracy, test_accuracy, precision, recall, f1_score,
	num_samples_trained, training_time_seconds, iteration, is_baseline, is_active, created_at`

func (r *modelRepository) Create(m *models.ModelRecord) error {
	m.CreatedAt = time.Now().UTC()
	if m.Hyperparameters == "" {
		m.Hyperparameters = "{}"
	}

	query := `INSERT INTO models (dataset_id, name, model_type, description, hyperparameters,
	            train_accuracy, test_accuracy, precision, recall, f1_score,
	            num_samples_trained, training_time_seconds, iteration, is_baseline, is_active, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	          RETURNING id`
	if err := r.db.QueryRowx(query, m.DatasetID, m.Name, m.ModelType, m.Description, m.Hyperparameters,
		m.TrainAccuracy, m.TestAccuracy, m.Precision, m.Recall, m.F1Score,
		m.NumSamplesTrained, m.TrainingTimeSeconds, m.Iteration, m.IsBaseline, m.IsActive, m.CreatedAt).StructScan(m); err != nil {
		return fmt.Errorf("failed to insert model record: %w", err)
	}

	r.logger.Info("Model record saved",
		zap.Int64("model_id", m.ID),
		zap.Int64("dataset_id", m.DatasetID),
		zap.Int("iteration", m.Iteration),
		zap.Bool("baseline", m.IsBaseline))
	return nil
}

func (r *modelRepository) GetByID(id int64) (*models.ModelRecord, error) {
	var m models.ModelRecord
	query := `SELECT ` + modelColumns + ` FROM models WHERE id = $1`
	err := r.db.Get(&m, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.KindNotFound, "model %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListActive returns the active model history for a dataset, oldest
// first, so callers can walk baseline -> latest in training order.
func (r *modelRepository) ListActive(datasetID int64) ([]*models.ModelRecord, error) {
	records := []*models.ModelRecord{}
	query := `SELECT ` + modelColumns + ` FROM models
	          WHERE dataset_id = $1 AND is_active = TRUE
	          ORDER BY created_at ASC, id ASC`
	if err := r.db.Select(&records, query, datasetID); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *modelRepository) ActiveBaseline(datasetID int64) (*models.ModelRecord, error) {
	var m models.ModelRecord
	query := `SELECT ` + modelColumns + ` FROM models
	          WHERE dataset_id = $1 AND is_baseline = TRUE AND is_active = TRUE
	          ORDER BY created_at DESC, id DESC LIMIT 1`
	err := r.db.Get(&m, query, datasetID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.KindNotFound, "no baseline model for dataset %d", datasetID)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
