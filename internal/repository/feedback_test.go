package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"labelsweep/internal/apperr"
	"labelsweep/internal/models"
)

func TestFeedbackListAndCounts(t *testing.T) {
	db := testDB(t)
	dataset, samples := seedDataset(t, db, 0, 1, 1)
	detections := []models.Detection{
		detFor(samples[1].ID, 0.9, 0.5, 2, 1),
		detFor(samples[2].ID, 0.8, 0.2, 0, 2),
	}
	seedRun(t, db, dataset.ID, detections)

	suggestions := NewSuggestionRepository(db, zap.NewNop())
	acceptID := seedSuggestion(t, db, detections[0].ID, 2, 0.9)
	rejectID := seedSuggestion(t, db, detections[1].ID, 0, 0.8)

	_, accepted, err := suggestions.Review(ReviewParams{
		SuggestionID: acceptID, Action: models.ActionAccept,
		SampleID: samples[1].ID, DatasetID: dataset.ID, Iteration: 1, FinalLabel: 2,
	})
	require.NoError(t, err)
	_, _, err = suggestions.Review(ReviewParams{
		SuggestionID: rejectID, Action: models.ActionReject,
		SampleID: samples[2].ID, DatasetID: dataset.ID, Iteration: 1, FinalLabel: 1,
	})
	require.NoError(t, err)

	repo := NewFeedbackRepository(db, zap.NewNop())

	all, err := repo.List(FeedbackFilter{DatasetID: dataset.ID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Newest first.
	assert.Equal(t, "reject", all[0].Action)
	assert.Equal(t, "accept", all[1].Action)

	accepts, err := repo.List(FeedbackFilter{DatasetID: dataset.ID, Action: "accept"})
	require.NoError(t, err)
	require.Len(t, accepts, 1)
	assert.Equal(t, samples[1].ID, accepts[0].SampleID)
	assert.Equal(t, 2, accepts[0].FinalLabel)

	counts, err := repo.CountsByAction(dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Total)
	assert.Equal(t, 1, counts.Accepted)
	assert.Equal(t, 1, counts.Rejected)
	assert.Equal(t, 0, counts.Modified)

	stored, err := repo.GetByID(accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, acceptID, stored.SuggestionID)
}

func TestFeedbackPatternRowsJoinDetectionSignals(t *testing.T) {
	db := testDB(t)
	dataset, samples := seedDataset(t, db, 0, 1, 1)
	detections := []models.Detection{
		detFor(samples[1].ID, 0.9, 0.5, 2, 1),
		detFor(samples[2].ID, 0.8, 0.2, 0, 2),
	}
	seedRun(t, db, dataset.ID, detections)

	suggestions := NewSuggestionRepository(db, zap.NewNop())
	acceptID := seedSuggestion(t, db, detections[0].ID, 2, 0.9)
	rejectID := seedSuggestion(t, db, detections[1].ID, 0, 0.8)

	_, _, err := suggestions.Review(ReviewParams{
		SuggestionID: acceptID, Action: models.ActionAccept,
		SampleID: samples[1].ID, DatasetID: dataset.ID, Iteration: 1, FinalLabel: 2,
	})
	require.NoError(t, err)
	_, _, err = suggestions.Review(ReviewParams{
		SuggestionID: rejectID, Action: models.ActionReject,
		SampleID: samples[2].ID, DatasetID: dataset.ID, Iteration: 1, FinalLabel: 1,
	})
	require.NoError(t, err)

	repo := NewFeedbackRepository(db, zap.NewNop())

	rows, err := repo.PatternRows(dataset.ID, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "accept", rows[0].Action)
	assert.InDelta(t, 0.9, rows[0].ConfidenceScore, 1e-9)
	assert.InDelta(t, 0.74, rows[0].PriorityScore, 1e-9)
	assert.Equal(t, "reject", rows[1].Action)
	assert.InDelta(t, 0.8, rows[1].ConfidenceScore, 1e-9)

	none, err := repo.PatternRows(dataset.ID, 2)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFeedbackGetByIDNotFound(t *testing.T) {
	db := testDB(t)
	repo := NewFeedbackRepository(db, zap.NewNop())

	_, err := repo.GetByID(7)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
