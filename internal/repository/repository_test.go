package repository

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"labelsweep/internal/models"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "labelsweep.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// seedDataset persists a dataset with one two-feature sample per label
// and returns it together with the inserted samples, IDs populated.
func seedDataset(t *testing.T, db *sqlx.DB, labels ...int) (*models.Dataset, []models.Sample) {
	t.Helper()

	classes := map[int]struct{}{}
	samples := make([]models.Sample, 0, len(labels))
	for i, label := range labels {
		classes[label] = struct{}{}
		samples = append(samples, models.Sample{
			SampleIndex:   i,
			Features:      fmt.Sprintf("[%d.0, 0.5]", i),
			OriginalLabel: label,
			CurrentLabel:  label,
		})
	}

	dataset := &models.Dataset{
		Name:        "seed",
		NumSamples:  len(labels),
		NumFeatures: 2,
		NumClasses:  len(classes),
	}
	require.NoError(t, NewDatasetRepository(db, zap.NewNop()).Create(dataset, samples))
	return dataset, samples
}

func detFor(sampleID int64, confidence, anomaly float64, predicted, rank int) models.Detection {
	return models.Detection{
		SampleID:        sampleID,
		ConfidenceScore: confidence,
		AnomalyScore:    anomaly,
		PriorityScore:   0.6*confidence + 0.4*anomaly,
		PredictedLabel:  predicted,
		Rank:            rank,
	}
}

// seedRun claims the next iteration for the dataset and persists the
// given detections under it. The detections slice is updated in place
// with generated IDs.
func seedRun(t *testing.T, db *sqlx.DB, datasetID int64, detections []models.Detection) *models.DetectionRun {
	t.Helper()
	run := &models.DetectionRun{
		ID:                  uuid.NewString(),
		DatasetID:           datasetID,
		ConfidenceThreshold: 0.7,
		ConfidenceWeight:    0.6,
		AnomalyWeight:       0.4,
		TotalSamples:        len(detections),
		SuspiciousFound:     len(detections),
	}
	require.NoError(t, NewDetectionRepository(db, zap.NewNop()).CreateRun(run, detections))
	return run
}

// seedSuggestion creates a pending suggestion for the detection and
// returns its id.
func seedSuggestion(t *testing.T, db *sqlx.DB, detectionID int64, label int, confidence float64) int64 {
	t.Helper()
	created, err := NewSuggestionRepository(db, zap.NewNop()).CreateIgnoreExisting(&models.Suggestion{
		DetectionID:    detectionID,
		SuggestedLabel: label,
		Reason:         "Model predicts a different label with high confidence",
		Confidence:     confidence,
		Status:         models.SuggestionPending,
	})
	require.NoError(t, err)
	require.True(t, created)

	var id int64
	require.NoError(t, db.Get(&id, `SELECT id FROM suggestions WHERE detection_id = $1`, detectionID))
	return id
}
