package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"labelsweep/internal/apperr"
	"labelsweep/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type FeedbackRepository interface {
	GetByID(id int64) (*models.Feedback, error)
	List(filter FeedbackFilter) ([]*models.Feedback, error)
	CountsByAction(datasetID int64) (*FeedbackCounts, error)
	PatternRows(datasetID int64, iteration int) ([]PatternRow, error)
}

// FeedbackFilter narrows feedback listings; zero values mean "no
// filter".
type FeedbackFilter struct {
	DatasetID int64
	Iteration int
	Action    string
	Limit     int
	Offset    int
}

type FeedbackCounts struct {
	Total    int `db:"total"`
	Accepted int `db:"accepted"`
	Rejected int `db:"rejected"`
	Modified int `db:"modified"`
}

// PatternRow is one review decision joined with the detection signals
// behind it, the raw material of learning-pattern analysis.
type PatternRow struct {
	Action          string  `db:"action"`
	ConfidenceScore float64 `db:"confidence_score"`
	PriorityScore   float64 `db:"priority_score"`
}

type feedbackRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewFeedbackRepository(db *sqlx.DB, logger *zap.Logger) FeedbackRepository {
	return &feedbackRepository{db: db, logger: logger}
}

const feedbackColumns = `id, suggestion_id, sample_id, dataset_id, iteration, action, final_label, created_at`

func (r *feedbackRepository) GetByID(id int64) (*models.Feedback, error) {
	var feedback models.Feedback
	err := r.db.Get(&feedback, `SELECT `+feedbackColumns+` FROM feedback WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.KindNotFound, "feedback %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &feedback, nil
}

func (r *feedbackRepository) List(filter FeedbackFilter) ([]*models.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback WHERE 1=1`
	args := []interface{}{}

	if filter.DatasetID > 0 {
		args = append(args, filter.DatasetID)
		query += fmt.Sprintf(" AND dataset_id = $%d", len(args))
	}
	if filter.Iteration > 0 {
		args = append(args, filter.Iteration)
		query += fmt.Sprintf(" AND iteration = $%d", len(args))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}

	query += " ORDER BY created_at DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	feedback := []*models.Feedback{}
	if err := r.db.Select(&feedback, query, args...); err != nil {
		return nil, err
	}
	return feedback, nil
}

func (r *feedbackRepository) CountsByAction(datasetID int64) (*FeedbackCounts, error) {
	var counts FeedbackCounts
	query := `SELECT
	            COUNT(*) AS total,
	            COALESCE(SUM(CASE WHEN action = 'accept' THEN 1 ELSE 0 END), 0) AS accepted,
	            COALESCE(SUM(CASE WHEN action = 'reject' THEN 1 ELSE 0 END), 0) AS rejected,
	            COALESCE(SUM(CASE WHEN action = 'modify' THEN 1 ELSE 0 END), 0) AS modified
	          FROM feedback WHERE dataset_id = $1`
	if err := r.db.Get(&counts, query, datasetID); err != nil {
		return nil, err
	}
	return &counts, nil
}

func (r *feedbackRepository) PatternRows(datasetID int64, iteration int) ([]PatternRow, error) {
	query := `SELECT f.action, d.confidence_score, d.priority_score
	          FROM feedback f
	          JOIN suggestions g ON g.id = f.suggestion_id
	          JOIN detections d ON d.id = g.detection_id
	          WHERE f.dataset_id = $1`
	args := []interface{}{datasetID}
	if iteration > 0 {
		args = append(args, iteration)
		query += fmt.Sprintf(" AND f.iteration = $%d", len(args))
	}
	query += " ORDER BY f.id"

	rows := []PatternRow{}
	if err := r.db.Select(&rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
