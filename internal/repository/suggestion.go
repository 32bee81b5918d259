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

type SuggestionRepository interface {
	CreateIgnoreExisting(suggestion *models.Suggestion) (bool, error)
	GetByID(id int64) (*models.Suggestion, error)
	List(filter SuggestionFilter) ([]*models.Suggestion, error)
	Review(params ReviewParams) (*models.Suggestion, *models.Feedback, error)
	Stats(datasetID int64) (*SuggestionStats, error)
}

// SuggestionFilter narrows suggestion listings; zero values mean "no
// filter".
type SuggestionFilter struct {
	DatasetID     int64
	Iteration     int
	Status        string
	MinConfidence float64
	Limit         int
	Offset        int
}

// ReviewParams carries one validated review decision into the
// transactional status transition.
type ReviewParams struct {
	SuggestionID  int64
	Action        models.ReviewAction
	ReviewerNotes *string
	CustomLabel   *int
	SampleID      int64
	DatasetID     int64
	Iteration     int
	FinalLabel    int
}

type SuggestionStats struct {
	TotalSuggestions int `db:"total_suggestions"`
	Pending          int `db:"pending"`
	Accepted         int `db:"accepted"`
	Rejected         int `db:"rejected"`
	Modified         int `db:"modified"`
}

type suggestionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewSuggestionRepository(db *sqlx.DB, logger *zap.Logger) SuggestionRepository {
	return &suggestionRepository{db: db, logger: logger}
}

const suggestionColumns = `id, detection_id, suggested_label, reason, confidence, status, custom_label, reviewer_notes, created_at, reviewed_at`

// CreateIgnoreExisting inserts the suggestion unless its detection
// already has one. Returns whether a row was created, making suggestion
// generation idempotent under the UNIQUE(detection_id) constraint.
func (r *suggestionRepository) CreateIgnoreExisting(suggestion *models.Suggestion) (bool, error) {
	suggestion.CreatedAt = time.Now().UTC()
	res, err := r.db.Exec(`INSERT INTO suggestions (detection_id, suggested_label, reason, confidence, status, created_at)
	                       VALUES ($1, $2, $3, $4, $5, $6)
	                       ON CONFLICT (detection_id) DO NOTHING`,
		suggestion.DetectionID, suggestion.SuggestedLabel, suggestion.Reason,
		suggestion.Confidence, suggestion.Status, suggestion.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert suggestion: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *suggestionRepository) GetByID(id int64) (*models.Suggestion, error) {
	var suggestion models.Suggestion
	err := r.db.Get(&suggestion, `SELECT `+suggestionColumns+` FROM suggestions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.KindNotFound, "suggestion %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &suggestion, nil
}

func (r *suggestionRepository) List(filter SuggestionFilter) ([]*models.Suggestion, error) {
	query := `SELECT g.id, g.detection_id, g.suggested_label, g.reason, g.confidence, g.status, g.custom_label, g.reviewer_notes, g.created_at, g.reviewed_at
	          FROM suggestions g
	          JOIN detections d ON d.id = g.detection_id
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
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND g.status = $%d", len(args))
	}
	if filter.MinConfidence > 0 {
		args = append(args, filter.MinConfidence)
		query += fmt.Sprintf(" AND g.confidence >= $%d", len(args))
	}

	query += " ORDER BY g.confidence DESC, g.id"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	suggestions := []*models.Suggestion{}
	if err := r.db.Select(&suggestions, query, args...); err != nil {
		return nil, err
	}
	return suggestions, nil
}

// Review transitions a pending suggestion to its terminal status and
// appends the feedback row, atomically. The status guard in the UPDATE
// is the check-and-set: a concurrent review of the same suggestion
// loses with an invalid-transition error instead of writing twice.
func (r *suggestionRepository) Review(params ReviewParams) (*models.Suggestion, *models.Feedback, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current models.Suggestion
	err = tx.Get(&current, `SELECT `+suggestionColumns+` FROM suggestions WHERE id = $1`, params.SuggestionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, apperr.Newf(apperr.KindNotFound, "suggestion %d not found", params.SuggestionID)
	}
	if err != nil {
		return nil, nil, err
	}
	if current.Status != models.SuggestionPending {
		return nil, nil, apperr.Newf(apperr.KindInvalidTransition, "suggestion %d already reviewed (status %s)", params.SuggestionID, current.Status)
	}

	now := time.Now().UTC()
	res, err := tx.Exec(`UPDATE suggestions SET status = $1, reviewed_at = $2, reviewer_notes = $3, custom_label = $4
	                     WHERE id = $5 AND status = 'pending'`,
		params.Action.Status(), now, params.ReviewerNotes, params.CustomLabel, params.SuggestionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update suggestion status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, nil, err
	}
	if affected == 0 {
		return nil, nil, apperr.Newf(apperr.KindInvalidTransition, "suggestion %d already reviewed", params.SuggestionID)
	}

	feedback := &models.Feedback{
		SuggestionID: params.SuggestionID,
		SampleID:     params.SampleID,
		DatasetID:    params.DatasetID,
		Iteration:    params.Iteration,
		Action:       string(params.Action),
		FinalLabel:   params.FinalLabel,
		CreatedAt:    now,
	}
	err = tx.QueryRowx(`INSERT INTO feedback (suggestion_id, sample_id, dataset_id, iteration, action, final_label, created_at)
	                    VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		feedback.SuggestionID, feedback.SampleID, feedback.DatasetID, feedback.Iteration,
		feedback.Action, feedback.FinalLabel, feedback.CreatedAt).StructScan(feedback)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, apperr.Newf(apperr.KindConflict, "feedback for suggestion %d already exists", params.SuggestionID)
		}
		return nil, nil, fmt.Errorf("failed to insert feedback: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit review: %w", err)
	}

	current.Status = params.Action.Status()
	current.ReviewedAt = &now
	current.ReviewerNotes = params.ReviewerNotes
	current.CustomLabel = params.CustomLabel

	r.logger.Info("Suggestion reviewed",
		zap.Int64("suggestion_id", params.SuggestionID),
		zap.Int64("sample_id", params.SampleID),
		zap.String("action", string(params.Action)),
		zap.Int("final_label", params.FinalLabel))
	return &current, feedback, nil
}

func (r *suggestionRepository) Stats(datasetID int64) (*SuggestionStats, error) {
	var stats SuggestionStats
	query := `SELECT
	            COUNT(*) AS total_suggestions,
	            COALESCE(SUM(CASE WHEN g.status = 'pending' THEN 1 ELSE 0 END), 0) AS pending,
	            COALESCE(SUM(CASE WHEN g.status = 'accepted' THEN 1 ELSE 0 END), 0) AS accepted,
	            COALESCE(SUM(CASE WHEN g.status = 'rejected' THEN 1 ELSE 0 END), 0) AS rejected,
	            COALESCE(SUM(CASE WHEN g.status = 'modified' THEN 1 ELSE 0 END), 0) AS modified
	          FROM suggestions g
	          JOIN detections d ON d.id = g.detection_id
	          JOIN samples s ON s.id = d.sample_id
	          WHERE s.dataset_id = $1`
	if err := r.db.Get(&stats, query, datasetID); err != nil {
		return nil, err
	}
	return &stats, nil
}
