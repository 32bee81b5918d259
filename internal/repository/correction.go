package repository

import (
	"fmt"

	"labelsweep/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type CorrectionRepository interface {
	Preview(datasetID int64, iteration int) ([]models.CorrectionChange, error)
	Apply(datasetID int64, iteration int) (*ApplyCounts, error)
}

type ApplyCounts struct {
	CorrectionsApplied int
	LabelsChanged      int
	SamplesRejected    int
}

type correctionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewCorrectionRepository(db *sqlx.DB, logger *zap.Logger) CorrectionRepository {
	return &correctionRepository{db: db, logger: logger}
}

// pendingChanges lists the feedback of the iteration that still needs
// applying. The current_label != final_label filter is the idempotency
// boundary: once a correction lands, the row drops out of the set.
func pendingChanges(q sqlx.Queryer, datasetID int64, iteration int) ([]models.CorrectionChange, error) {
	changes := []models.CorrectionChange{}
	query := `SELECT f.sample_id, s.current_label AS old_label, f.final_label AS new_label, f.action
	          FROM feedback f
	          JOIN samples s ON s.id = f.sample_id
	          WHERE f.dataset_id = $1 AND f.iteration = $2
	            AND f.action IN ('accept', 'modify')
	            AND s.current_label != f.final_label
	          ORDER BY f.sample_id`
	if err := sqlx.Select(q, &changes, query, datasetID, iteration); err != nil {
		return nil, err
	}
	return changes, nil
}

func (r *correctionRepository) Preview(datasetID int64, iteration int) ([]models.CorrectionChange, error) {
	return pendingChanges(r.db, datasetID, iteration)
}

// Apply mutates sample labels for every pending change in a single
// transaction. Each update re-checks the old label, so two concurrent
// applies cannot double-count a change.
func (r *correctionRepository) Apply(datasetID int64, iteration int) (*ApplyCounts, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	changes, err := pendingChanges(tx, datasetID, iteration)
	if err != nil {
		return nil, fmt.Errorf("failed to compute pending corrections: %w", err)
	}

	counts := &ApplyCounts{CorrectionsApplied: len(changes)}
	for _, change := range changes {
		res, err := tx.Exec(`UPDATE samples SET current_label = $1, is_corrected = TRUE
		                     WHERE id = $2 AND current_label = $3`,
			change.NewLabel, change.SampleID, change.OldLabel)
		if err != nil {
			return nil, fmt.Errorf("failed to correct sample %d: %w", change.SampleID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		counts.LabelsChanged += int(affected)
	}

	if err := tx.Get(&counts.SamplesRejected,
		`SELECT COUNT(*) FROM feedback WHERE dataset_id = $1 AND iteration = $2 AND action = 'reject'`,
		datasetID, iteration); err != nil {
		return nil, fmt.Errorf("failed to count rejected feedback: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit corrections: %w", err)
	}

	r.logger.Info("Corrections applied",
		zap.Int64("dataset_id", datasetID),
		zap.Int("iteration", iteration),
		zap.Int("corrections_applied", counts.CorrectionsApplied),
		zap.Int("labels_changed", counts.LabelsChanged))
	return counts, nil
}
