package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"labelsweep/internal/models"
	"labelsweep/internal/repository"
)

func TestFeedbackStatsAcceptanceRate(t *testing.T) {
	datasetRepo := &stubDatasetRepo{dataset: &models.Dataset{ID: 1, Name: "iris"}}
	feedbackRepo := &stubFeedbackRepo{counts: &repository.FeedbackCounts{
		Total:    35,
		Accepted: 25,
		Rejected: 8,
		Modified: 2,
	}}

	svc := NewFeedbackService(datasetRepo, &stubSampleRepo{}, &memSuggestionRepo{}, feedbackRepo, zap.NewNop())

	stats, err := svc.Stats(1)
	require.NoError(t, err)
	assert.Equal(t, 35, stats.TotalFeedback)
	// (25 + 2) / 35 = 77.142857...
	assert.InDelta(t, 77.14, stats.AcceptanceRate, 1e-9)
}

func TestFeedbackStatsNoFeedback(t *testing.T) {
	datasetRepo := &stubDatasetRepo{dataset: &models.Dataset{ID: 1, Name: "iris"}}
	svc := NewFeedbackService(datasetRepo, &stubSampleRepo{}, &memSuggestionRepo{}, &stubFeedbackRepo{}, zap.NewNop())

	stats, err := svc.Stats(1)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalFeedback)
	assert.Zero(t, stats.AcceptanceRate)
}

func TestLearningPatternsBuckets(t *testing.T) {
	datasetRepo := &stubDatasetRepo{dataset: &models.Dataset{ID: 1, Name: "iris"}}
	feedbackRepo := &stubFeedbackRepo{patternRows: []repository.PatternRow{
		{Action: "accept", ConfidenceScore: 0.75, PriorityScore: 0.8},
		{Action: "reject", ConfidenceScore: 0.78, PriorityScore: 0.75},
		{Action: "accept", ConfidenceScore: 0.92, PriorityScore: 0.95},
		{Action: "modify", ConfidenceScore: 0.45, PriorityScore: 0.5},
		{Action: "reject", ConfidenceScore: 0.3, PriorityScore: 0.2},
	}}

	svc := NewFeedbackService(datasetRepo, &stubSampleRepo{}, &memSuggestionRepo{}, feedbackRepo, zap.NewNop())

	patterns, err := svc.LearningPatterns(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, patterns.TotalFeedback)

	seventies := patterns.ByConfidenceBucket["70%"]
	assert.Equal(t, 2, seventies.Total)
	assert.Equal(t, 1, seventies.Accepted)
	assert.InDelta(t, 50.0, seventies.AcceptanceRate, 1e-9)

	nineties := patterns.ByConfidenceBucket["90%"]
	assert.Equal(t, 1, nineties.Total)
	assert.InDelta(t, 100.0, nineties.AcceptanceRate, 1e-9)

	high := patterns.ByPriorityBand["high"]
	assert.Equal(t, 3, high.Total)
	assert.Equal(t, 2, high.Accepted)
	assert.InDelta(t, 66.67, high.AcceptanceRate, 1e-9)

	medium := patterns.ByPriorityBand["medium"]
	assert.Equal(t, 1, medium.Total)
	assert.Equal(t, 1, medium.Accepted, "modify counts as accepted")

	low := patterns.ByPriorityBand["low"]
	assert.Equal(t, 1, low.Total)
	assert.Zero(t, low.Accepted)

	require.Len(t, patterns.Insights, 2)
	// 40% and 90% both sit at 100%; the lower bucket wins the tie.
	assert.Equal(t, "Highest acceptance rate (100%) at 40% confidence", patterns.Insights[0])
	assert.Equal(t, "High priority detections accepted 67% of the time", patterns.Insights[1])
}

func TestLearningPatternsEmpty(t *testing.T) {
	datasetRepo := &stubDatasetRepo{dataset: &models.Dataset{ID: 1, Name: "iris"}}
	svc := NewFeedbackService(datasetRepo, &stubSampleRepo{}, &memSuggestionRepo{}, &stubFeedbackRepo{}, zap.NewNop())

	patterns, err := svc.LearningPatterns(1, 0)
	require.NoError(t, err)
	assert.Zero(t, patterns.TotalFeedback)
	assert.Empty(t, patterns.ByConfidenceBucket)
	assert.Empty(t, patterns.ByPriorityBand)
	assert.Empty(t, patterns.Insights)
}
