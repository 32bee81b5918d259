package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"labelsweep/internal/apperr"
	"labelsweep/internal/models"
)

func TestSuggestionReason(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		anomaly    float64
		want       string
	}{
		{
			name:       "confidence only",
			confidence: 0.75,
			anomaly:    0.3,
			want:       "High confidence (75.00%) disagreement with current label. Anomaly score: 30.00%.",
		},
		{
			name:       "very confident model",
			confidence: 0.9,
			anomaly:    0.2,
			want:       "High confidence (90.00%) disagreement with current label. Anomaly score: 20.00%. Model is very confident about alternative label.",
		},
		{
			name:       "strong anomaly and agreement",
			confidence: 0.72,
			anomaly:    0.9,
			want:       "High confidence (72.00%) disagreement with current label. Anomaly score: 90.00%. Sample shows strong anomalous behavior for current class. Both signals agree - high likelihood of mislabeling.",
		},
		{
			name:       "all signals firing",
			confidence: 0.9,
			anomaly:    0.9,
			want:       "High confidence (90.00%) disagreement with current label. Anomaly score: 90.00%. Model is very confident about alternative label. Sample shows strong anomalous behavior for current class. Both signals agree - high likelihood of mislabeling.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, suggestionReason(tt.confidence, tt.anomaly))
		})
	}
}

func seedDetections(t *testing.T, repo *memDetectionRepo, datasetID int64, detections []models.Detection) int {
	t.Helper()
	// Run IDs are a PRIMARY KEY in the real schema; keep them unique
	// per seeded run so the fake's run-scoped lookups behave the same.
	run := &models.DetectionRun{ID: fmt.Sprintf("run-%d", len(repo.runs)+1), DatasetID: datasetID, TotalSamples: len(detections), SuspiciousFound: len(detections)}
	require.NoError(t, repo.CreateRun(run, detections))
	return run.Iteration
}

func TestGenerateCreatesPendingSuggestions(t *testing.T) {
	datasetRepo := &stubDatasetRepo{dataset: &models.Dataset{ID: 1, Name: "iris"}}
	detectionRepo := &memDetectionRepo{}
	suggestionRepo := &memSuggestionRepo{}

	iteration := seedDetections(t, detectionRepo, 1, []models.Detection{
		{SampleID: 4, ConfidenceScore: 0.9, AnomalyScore: 0.9, PriorityScore: 0.9, PredictedLabel: 2, Rank: 1},
		{SampleID: 3, ConfidenceScore: 0.75, AnomalyScore: 0.3, PriorityScore: 0.57, PredictedLabel: 1, Rank: 2},
	})

	svc := NewSuggestionService(datasetRepo, &stubSampleRepo{}, detectionRepo, suggestionRepo, zap.NewNop())

	result, err := svc.Generate(1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, iteration, result.Iteration)
	assert.Equal(t, 2, result.TotalDetections)
	assert.Equal(t, 2, result.SuggestionsCreated)

	require.Len(t, suggestionRepo.suggestions, 2)
	first := suggestionRepo.suggestions[0]
	assert.Equal(t, models.SuggestionPending, first.Status)
	assert.Equal(t, 2, first.SuggestedLabel)
	assert.InDelta(t, 0.9, first.Confidence, 1e-9)
	assert.Contains(t, first.Reason, "Both signals agree")
}

func TestGenerateIsIdempotent(t *testing.T) {
	datasetRepo := &stubDatasetRepo{dataset: &models.Dataset{ID: 1, Name: "iris"}}
	detectionRepo := &memDetectionRepo{}
	suggestionRepo := &memSuggestionRepo{}

	seedDetections(t, detectionRepo, 1, []models.Detection{
		{SampleID: 4, ConfidenceScore: 0.9, AnomalyScore: 0.2, PriorityScore: 0.62, PredictedLabel: 2, Rank: 1},
	})

	svc := NewSuggestionService(datasetRepo, &stubSampleRepo{}, detectionRepo, suggestionRepo, zap.NewNop())

	first, err := svc.Generate(1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, first.SuggestionsCreated)

	second, err := svc.Generate(1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, second.SuggestionsCreated)
	assert.Equal(t, 1, second.TotalDetections)
	assert.Len(t, suggestionRepo.suggestions, 1)
}

func TestGenerateHonorsTopN(t *testing.T) {
	datasetRepo := &stubDatasetRepo{dataset: &models.Dataset{ID: 1, Name: "iris"}}
	detectionRepo := &memDetectionRepo{}
	suggestionRepo := &memSuggestionRepo{}

	seedDetections(t, detectionRepo, 1, []models.Detection{
		{SampleID: 4, ConfidenceScore: 0.9, AnomalyScore: 0.9, PriorityScore: 0.9, PredictedLabel: 2, Rank: 1},
		{SampleID: 3, ConfidenceScore: 0.8, AnomalyScore: 0.3, PriorityScore: 0.6, PredictedLabel: 1, Rank: 2},
		{SampleID: 5, ConfidenceScore: 0.7, AnomalyScore: 0.2, PriorityScore: 0.5, PredictedLabel: 1, Rank: 3},
	})

	svc := NewSuggestionService(datasetRepo, &stubSampleRepo{}, detectionRepo, suggestionRepo, zap.NewNop())

	result, err := svc.Generate(1, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalDetections)
	assert.Equal(t, 1, result.SuggestionsCreated)
	require.Len(t, suggestionRepo.suggestions, 1)
	assert.InDelta(t, 0.9, suggestionRepo.suggestions[0].Confidence, 1e-9)
}

func TestGenerateResolvesLatestIteration(t *testing.T) {
	datasetRepo := &stubDatasetRepo{dataset: &models.Dataset{ID: 1, Name: "iris"}}
	detectionRepo := &memDetectionRepo{}
	suggestionRepo := &memSuggestionRepo{}

	seedDetections(t, detectionRepo, 1, []models.Detection{
		{SampleID: 2, ConfidenceScore: 0.8, AnomalyScore: 0.4, PriorityScore: 0.64, PredictedLabel: 1, Rank: 1},
	})
	second := seedDetections(t, detectionRepo, 1, []models.Detection{
		{SampleID: 7, ConfidenceScore: 0.85, AnomalyScore: 0.5, PriorityScore: 0.71, PredictedLabel: 2, Rank: 1},
	})
	require.Equal(t, 2, second)

	svc := NewSuggestionService(datasetRepo, &stubSampleRepo{}, detectionRepo, suggestionRepo, zap.NewNop())

	result, err := svc.Generate(1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Iteration)
	require.Len(t, suggestionRepo.suggestions, 1)
	assert.Equal(t, 2, suggestionRepo.suggestions[0].SuggestedLabel)
}

func TestGenerateUnknownIteration(t *testing.T) {
	datasetRepo := &stubDatasetRepo{dataset: &models.Dataset{ID: 1, Name: "iris"}}
	detectionRepo := &memDetectionRepo{}
	svc := NewSuggestionService(datasetRepo, &stubSampleRepo{}, detectionRepo, &memSuggestionRepo{}, zap.NewNop())

	_, err := svc.Generate(1, 0, 0)
	require.Error(t, err, "no runs at all")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	seedDetections(t, detectionRepo, 1, nil)
	_, err = svc.Generate(1, 5, 0)
	require.Error(t, err, "explicitly named iteration never claimed")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestSuggestionStatsAcceptanceRate(t *testing.T) {
	datasetRepo := &stubDatasetRepo{dataset: &models.Dataset{ID: 1, Name: "iris"}}
	suggestionRepo := &memSuggestionRepo{
		suggestions: []*models.Suggestion{
			{ID: 1, Status: models.SuggestionPending},
			{ID: 2, Status: models.SuggestionPending},
			{ID: 3, Status: models.SuggestionPending},
			{ID: 4, Status: models.SuggestionAccepted},
			{ID: 5, Status: models.SuggestionAccepted},
			{ID: 6, Status: models.SuggestionRejected},
			{ID: 7, Status: models.SuggestionModified},
		},
	}

	svc := NewSuggestionService(datasetRepo, &stubSampleRepo{}, &memDetectionRepo{}, suggestionRepo, zap.NewNop())

	stats, err := svc.Stats(1)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalSuggestions)
	assert.Equal(t, 3, stats.Pending)
	// (2 accepted + 1 modified) / 4 reviewed.
	assert.InDelta(t, 75.0, stats.AcceptanceRate, 1e-9)
}

func TestSuggestionStatsNoReviewsYet(t *testing.T) {
	datasetRepo := &stubDatasetRepo{dataset: &models.Dataset{ID: 1, Name: "iris"}}
	suggestionRepo := &memSuggestionRepo{
		suggestions: []*models.Suggestion{{ID: 1, Status: models.SuggestionPending}},
	}

	svc := NewSuggestionService(datasetRepo, &stubSampleRepo{}, &memDetectionRepo{}, suggestionRepo, zap.NewNop())

	stats, err := svc.Stats(1)
	require.NoError(t, err)
	assert.Zero(t, stats.AcceptanceRate)
}
