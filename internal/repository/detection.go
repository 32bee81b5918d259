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

type DetectionRepository interface {
	CreateRun(run *models.DetectionRun, detections []models.Detection) error
	LatestIteration(datasetID int64) (int, error)
	RunExists(datasetID int64, iteration int) (bool, error)
	ListRuns(datasetID int64) ([]*models.DetectionRun, error)
	GetByID(id int64) (*models.Detection, error)
	ListByIteration(datasetID int64, iteration, topN int) ([]*models.Detection, error)
	List(filter DetectionFilter) ([]*models.Detection, error)
	Stats(datasetID int64) (*DetectionStats, error)
	SignalStats(datasetID int64) (*SignalStats, error)
}

// DetectionFilter narrows detection listings. Zero values mean "no
// filter" for every field.
type DetectionFilter struct {
	DatasetID     int64
	Iteration     int
	MinPriority   float64
	MinConfidence float64
	MinAnomaly    float64
	SignalType    string // "confidence", "anomaly" or "both"
	Limit         int
	Offset        int
}

type DetectionStats struct {
	TotalSamples           int     `db:"total_samples"`
	SuspiciousSamples      int     `db:"suspicious_samples"`
	TotalDetections        int     `db:"total_detections"`
	HighPriorityDetections int     `db:"high_priority_detections"`
	AverageConfidence      float64 `db:"average_confidence"`
}

type SignalStats struct {
	TotalDetections    int     `db:"total_detections"`
	ConfidenceDominant int     `db:"confidence_dominant"`
	AnomalyDominant    int     `db:"anomaly_dominant"`
	BothHigh           int     `db:"both_high"`
	AvgConfidence      float64 `db:"avg_confidence"`
	AvgAnomaly         float64 `db:"avg_anomaly"`
}

type detectionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewDetectionRepository(db *sqlx.DB, logger *zap.Logger) DetectionRepository {
	return &detectionRepository{db: db, logger: logger}
}

const detectionColumns = `id, sample_id, run_id, iteration, confidence_score, anomaly_score, priority_score, predicted_label, rank, detected_at`

// CreateRun claims the next iteration for the dataset and persists the
// run together with its detections in one transaction. The
// UNIQUE(dataset_id, iteration) constraint turns a concurrent claim of
// the same iteration into a conflict instead of a duplicate.
func (r *detectionRepository) CreateRun(run *models.DetectionRun, detections []models.Detection) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	run.CreatedAt = time.Now().UTC()

	var maxIteration int
	if err := tx.Get(&maxIteration, `SELECT COALESCE(MAX(iteration), 0) FROM detection_runs WHERE dataset_id = $1`, run.DatasetID); err != nil {
		return fmt.Errorf("failed to read latest iteration: %w", err)
	}
	run.Iteration = maxIteration + 1

	_, err = tx.Exec(`INSERT INTO detection_runs (id, dataset_id, iteration, confidence_threshold, confidence_weight, anomaly_weight, total_samples, suspicious_found, created_at)
	                  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.DatasetID, run.Iteration, run.ConfidenceThreshold, run.ConfidenceWeight,
		run.AnomalyWeight, run.TotalSamples, run.SuspiciousFound, run.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Newf(apperr.KindConflict, "iteration %d for dataset %d already claimed by a concurrent run", run.Iteration, run.DatasetID)
		}
		return fmt.Errorf("failed to insert detection run: %w", err)
	}

	detectionQuery := `INSERT INTO detections (sample_id, run_id, iteration, confidence_score, anomaly_score, priority_score, predicted_label, rank, detected_at)
	                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	for i := range detections {
		d := &detections[i]
		d.RunID = run.ID
		d.Iteration = run.Iteration
		d.DetectedAt = run.CreatedAt
		if err := tx.QueryRowx(detectionQuery, d.SampleID, d.RunID, d.Iteration, d.ConfidenceScore,
			d.AnomalyScore, d.PriorityScore, d.PredictedLabel, d.Rank, d.DetectedAt).StructScan(d); err != nil {
			return fmt.Errorf("failed to insert detection for sample %d: %w", d.SampleID, err)
		}
		if _, err := tx.Exec(`UPDATE samples SET is_suspicious = TRUE WHERE id = $1`, d.SampleID); err != nil {
			return fmt.Errorf("failed to flag sample %d: %w", d.SampleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit detection run: %w", err)
	}

	r.logger.Info("Detection run persisted",
		zap.String("run_id", run.ID),
		zap.Int64("dataset_id", run.DatasetID),
		zap.Int("iteration", run.Iteration),
		zap.Int("detections", len(detections)))
	return nil
}

func (r *detectionRepository) LatestIteration(datasetID int64) (int, error) {
	var iteration int
	err := r.db.Get(&iteration, `SELECT COALESCE(MAX(iteration), 0) FROM detection_runs WHERE dataset_id = $1`, datasetID)
	if err != nil {
		return 0, err
	}
	return iteration, nil
}

func (r *detectionRepository) RunExists(datasetID int64, iteration int) (bool, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM detection_runs WHERE dataset_id = $1 AND iteration = $2`, datasetID, iteration)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *detectionRepository) ListRuns(datasetID int64) ([]*models.DetectionRun, error) {
	runs := []*models.DetectionRun{}
	query := `SELECT id, dataset_id, iteration, confidence_threshold, confidence_weight, anomaly_weight, total_samples, suspicious_found, created_at
	          FROM detection_runs WHERE dataset_id = $1 ORDER BY iteration DESC`
	if err := r.db.Select(&runs, query, datasetID); err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *detectionRepository) GetByID(id int64) (*models.Detection, error) {
	var detection models.Detection
	err := r.db.Get(&detection, `SELECT `+detectionColumns+` FROM detections WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.KindNotFound, "detection %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &detection, nil
}

// ListByIteration returns the iteration's detections in rank order,
// optionally limited to the top N.
func (r *detectionRepository) ListByIteration(datasetID int64, iteration, topN int) ([]*models.Detection, error) {
	detections := []*models.Detection{}
	query := `SELECT d.id, d.sample_id, d.run_id, d.iteration, d.confidence_score, d.anomaly_score, d.priority_score, d.predicted_label, d.rank, d.detected_at
	          FROM detections d
	          JOIN samples s ON s.id = d.sample_id
	          WHERE s.dataset_id = $1 AND d.iteration = $2
	          ORDER BY d.rank`
	args := []interface{}{datasetID, iteration}
	if topN > 0 {
		query += ` LIMIT $3`
		args = append(args, topN)
	}
	if err := r.db.Select(&detections, query, args...); err != nil {
		return nil, err
	}
	return detections, nil
}

func (r *detectionRepository) List(filter DetectionFilter) ([]*models.Detection, error) {
	query := `SELECT d.id, d.sample_id, d.run_id, d.iteration, d.confidence_score, d.anomaly_score, d.priority_score, d.predicted_label, d.rank, d.detected_at
	          FROM detections d
	          JOIN samples s ON s.id = d.sample_id
	          WHERE 1=1`
	args := []interface{}{}

	if filter.DatasetID > 0 {
		args = append(args, filter.DatasetID)
		query += fmt.Sprintf(" AND s.dataset_id = $%d", len(args))
	}
	if filter.Iteration > 0 {
		args = append(args, filter.Iteration)
		query += fmt.Sprintf(" AND d.iteration = $%d", len(args))
	}
	if filter.MinPriority > 0 {
		args = append(args, filter.MinPriority)
		query += fmt.Sprintf(" AND d.priority_score >= $%d", len(args))
	}
	if filter.MinConfidence > 0 {
		args = append(args, filter.MinConfidence)
		query += fmt.Sprintf(" AND d.confidence_score >= $%d", len(args))
	}
	if filter.MinAnomaly > 0 {
		args = append(args, filter.MinAnomaly)
		query += fmt.Sprintf(" AND d.anomaly_score >= $%d", len(args))
	}

	switch filter.SignalType {
	case "confidence":
		query += " AND d.confidence_score > d.anomaly_score"
	case "anomaly":
		query += " AND d.anomaly_score > d.confidence_score"
	case "both":
		query += " AND d.confidence_score >= 0.7 AND d.anomaly_score >= 0.7"
	}

	query += " ORDER BY d.priority_score DESC, d.sample_id"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	detections := []*models.Detection{}
	if err := r.db.Select(&detections, query, args...); err != nil {
		return nil, err
	}
	return detections, nil
}

func (r *detectionRepository) Stats(datasetID int64) (*DetectionStats, error) {
	var stats DetectionStats

	sampleQuery := `SELECT
	                  COUNT(*) AS total_samples,
	                  COALESCE(SUM(CASE WHEN is_suspicious THEN 1 ELSE 0 END), 0) AS suspicious_samples
	                FROM samples WHERE dataset_id = $1`
	if err := r.db.QueryRowx(sampleQuery, datasetID).Scan(&stats.TotalSamples, &stats.SuspiciousSamples); err != nil {
		return nil, err
	}

	detectionQuery := `SELECT
	                     COUNT(*) AS total_detections,
	                     COALESCE(SUM(CASE WHEN d.priority_score >= 0.8 THEN 1 ELSE 0 END), 0) AS high_priority_detections,
	                     COALESCE(AVG(d.confidence_score), 0) AS average_confidence
	                   FROM detections d
	                   JOIN samples s ON s.id = d.sample_id
	                   WHERE s.dataset_id = $1`
	if err := r.db.QueryRowx(detectionQuery, datasetID).Scan(&stats.TotalDetections, &stats.HighPriorityDetections, &stats.AverageConfidence); err != nil {
		return nil, err
	}

	return &stats, nil
}

// SignalStats classifies detections by dominant signal. The 0.7
// both-high cutoff is a fixed reporting threshold, independent of any
// run's confidence threshold.
func (r *detectionRepository) SignalStats(datasetID int64) (*SignalStats, error) {
	var stats SignalStats
	query := `SELECT
	            COUNT(*) AS total_detections,
	            COALESCE(SUM(CASE WHEN d.confidence_score > d.anomaly_score THEN 1 ELSE 0 END), 0) AS confidence_dominant,
	            COALESCE(SUM(CASE WHEN d.anomaly_score > d.confidence_score THEN 1 ELSE 0 END), 0) AS anomaly_dominant,
	            COALESCE(SUM(CASE WHEN d.confidence_score >= 0.7 AND d.anomaly_score >= 0.7 THEN 1 ELSE 0 END), 0) AS both_high,
	            COALESCE(AVG(d.confidence_score), 0) AS avg_confidence,
	            COALESCE(AVG(d.anomaly_score), 0) AS avg_anomaly
	          FROM detections d
	          JOIN samples s ON s.id = d.sample_id
	          WHERE s.dataset_id = $1`
	if err := r.db.Get(&stats, query, datasetID); err != nil {
		return nil, err
	}
	return &stats, nil
}
