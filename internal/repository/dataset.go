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

type DatasetRepository interface {
	Create(dataset *models.Dataset, samples []models.Sample) error
	GetByID(id int64) (*models.Dataset, error)
	List() ([]*models.Dataset, error)
	Delete(id int64) error
	ClassLabels(datasetID int64) ([]int, error)
	CorrectionCounts(datasetID int64) (*CorrectionCounts, error)
	LabelDistributions(datasetID int64) (original, current map[int]int, err error)
}

// CorrectionCounts aggregates the mutable sample state of a dataset.
type CorrectionCounts struct {
	TotalSamples  int `db:"total_samples"`
	Corrected     int `db:"corrected"`
	LabelsChanged int `db:"labels_changed"`
	Suspicious    int `db:"suspicious"`
}

type datasetRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewDatasetRepository(db *sqlx.DB, logger *zap.Logger) DatasetRepository {
	return &datasetRepository{db: db, logger: logger}
}

// Create inserts the dataset and all of its samples in one transaction.
func (r *datasetRepository) Create(dataset *models.Dataset, samples []models.Sample) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	dataset.CreatedAt = now

	query := `INSERT INTO datasets (name, description, num_samples, num_features, num_classes, feature_names, label_column_name, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err := tx.QueryRowx(query, dataset.Name, dataset.Description, dataset.NumSamples, dataset.NumFeatures,
		dataset.NumClasses, dataset.FeatureNames, dataset.LabelColumnName, dataset.CreatedAt).StructScan(dataset); err != nil {
		return fmt.Errorf("failed to insert dataset: %w", err)
	}

	sampleQuery := `INSERT INTO samples (dataset_id, sample_index, features, original_label, current_label, is_suspicious, is_corrected, created_at)
	                VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	for i := range samples {
		s := &samples[i]
		s.DatasetID = dataset.ID
		s.CreatedAt = now
		if err := tx.QueryRowx(sampleQuery, s.DatasetID, s.SampleIndex, s.Features, s.OriginalLabel,
			s.CurrentLabel, s.IsSuspicious, s.IsCorrected, s.CreatedAt).StructScan(s); err != nil {
			return fmt.Errorf("failed to insert sample %d: %w", s.SampleIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}

	r.logger.Info("Dataset created",
		zap.Int64("dataset_id", dataset.ID),
		zap.Int("samples", len(samples)))
	return nil
}

func (r *datasetRepository) GetByID(id int64) (*models.Dataset, error) {
	var dataset models.Dataset
	query := `SELECT id, name, description, num_samples, num_features, num_classes, feature_names, label_column_name, created_at
	          FROM datasets WHERE id = $1`
	err := r.db.Get(&dataset, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.KindNotFound, "dataset %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &dataset, nil
}

func (r *datasetRepository) List() ([]*models.Dataset, error) {
	datasets := []*models.Dataset{}
	query := `SELECT id, name, description, num_samples, num_features, num_classes, feature_names, label_column_name, created_at
	          FROM datasets ORDER BY created_at DESC`
	if err := r.db.Select(&datasets, query); err != nil {
		return nil, err
	}
	return datasets, nil
}

func (r *datasetRepository) Delete(id int64) error {
	res, err := r.db.Exec(`DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.Newf(apperr.KindNotFound, "dataset %d not found", id)
	}
	r.logger.Info("Dataset deleted", zap.Int64("dataset_id", id))
	return nil
}

// ClassLabels returns the dataset's known label set: every label seen
// as an original or current label across its samples, ascending.
func (r *datasetRepository) ClassLabels(datasetID int64) ([]int, error) {
	labels := []int{}
	query := `SELECT DISTINCT original_label AS label FROM samples WHERE dataset_id = $1
	          UNION
	          SELECT DISTINCT current_label AS label FROM samples WHERE dataset_id = $2
	          ORDER BY label`
	if err := r.db.Select(&labels, query, datasetID, datasetID); err != nil {
		return nil, err
	}
	return labels, nil
}

func (r *datasetRepository) CorrectionCounts(datasetID int64) (*CorrectionCounts, error) {
	var counts CorrectionCounts
	query := `SELECT
	            COUNT(*) AS total_samples,
	            COALESCE(SUM(CASE WHEN is_corrected THEN 1 ELSE 0 END), 0) AS corrected,
	            COALESCE(SUM(CASE WHEN original_label != current_label THEN 1 ELSE 0 END), 0) AS labels_changed,
	            COALESCE(SUM(CASE WHEN is_suspicious THEN 1 ELSE 0 END), 0) AS suspicious
	          FROM samples WHERE dataset_id = $1`
	if err := r.db.Get(&counts, query, datasetID); err != nil {
		return nil, err
	}
	return &counts, nil
}

func (r *datasetRepository) LabelDistributions(datasetID int64) (map[int]int, map[int]int, error) {
	type bucket struct {
		Label int `db:"label"`
		N     int `db:"n"`
	}

	original := map[int]int{}
	var origRows []bucket
	if err := r.db.Select(&origRows, `SELECT original_label AS label, COUNT(*) AS n FROM samples WHERE dataset_id = $1 GROUP BY original_label`, datasetID); err != nil {
		return nil, nil, err
	}
	for _, b := range origRows {
		original[b.Label] = b.N
	}

	current := map[int]int{}
	var currRows []bucket
	if err := r.db.Select(&currRows, `SELECT current_label AS label, COUNT(*) AS n FROM samples WHERE dataset_id = $1 GROUP BY current_label`, datasetID); err != nil {
		return nil, nil, err
	}
	for _, b := range currRows {
		current[b.Label] = b.N
	}

	return original, current, nil
}
