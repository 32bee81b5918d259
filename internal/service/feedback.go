package service

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"labelsweep/internal/models"
	"labelsweep/internal/repository"
)

// FeedbackStatsResult aggregates review decisions for a dataset. The
// acceptance rate is over ALL feedback, unlike the suggestion-side
// rate which is over reviewed suggestions only.
type FeedbackStatsResult struct {
	DatasetID      int64   `json:"dataset_id"`
	TotalFeedback  int     `json:"total_feedback"`
	Accepted       int     `json:"accepted"`
	Rejected       int     `json:"rejected"`
	Modified       int     `json:"modified"`
	AcceptanceRate float64 `json:"acceptance_rate"`
}

// PatternBucket is one cell of the learning-pattern breakdown.
type PatternBucket struct {
	Total          int     `json:"total"`
	Accepted       int     `json:"accepted"`
	AcceptanceRate float64 `json:"acceptance_rate"`
}

// LearningPatternsResult relates review outcomes to the signal scores
// behind them, for tuning thresholds and weights.
type LearningPatternsResult struct {
	DatasetID          int64                    `json:"dataset_id"`
	Iteration          int                      `json:"iteration,omitempty"`
	TotalFeedback      int                      `json:"total_feedback"`
	ByConfidenceBucket map[string]PatternBucket `json:"by_confidence_bucket"`
	ByPriorityBand     map[string]PatternBucket `json:"by_priority_band"`
	Insights           []string                 `json:"insights"`
}

// FeedbackDetail is one review decision with the suggestion it settled
// and the sample it concerns.
type FeedbackDetail struct {
	Feedback   *models.Feedback   `json:"feedback"`
	Suggestion *models.Suggestion `json:"suggestion"`
	Sample     *models.Sample     `json:"sample"`
}

type FeedbackService interface {
	Get(id int64) (*FeedbackDetail, error)
	List(filter repository.FeedbackFilter) ([]*models.Feedback, error)
	Stats(datasetID int64) (*FeedbackStatsResult, error)
	LearningPatterns(datasetID int64, iteration int) (*LearningPatternsResult, error)
}

type feedbackService struct {
	datasetRepo    repository.DatasetRepository
	sampleRepo     repository.SampleRepository
	suggestionRepo repository.SuggestionRepository
	feedbackRepo   repository.FeedbackRepository
	logger         *zap.Logger
}

func NewFeedbackService(
	datasetRepo repository.DatasetRepository,
	sampleRepo repository.SampleRepository,
	suggestionRepo repository.SuggestionRepository,
	feedbackRepo repository.FeedbackRepository,
	logger *zap.Logger,
) FeedbackService {
	return &feedbackService{
		datasetRepo:    datasetRepo,
		sampleRepo:     sampleRepo,
		suggestionRepo: suggestionRepo,
		feedbackRepo:   feedbackRepo,
		logger:         logger,
	}
}

func (s *feedbackService) Get(id int64) (*FeedbackDetail, error) {
	feedback, err := s.feedbackRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	suggestion, err := s.suggestionRepo.GetByID(feedback.SuggestionID)
	if err != nil {
		return nil, err
	}
	sample, err := s.sampleRepo.GetByID(feedback.SampleID)
	if err != nil {
		return nil, err
	}
	return &FeedbackDetail{Feedback: feedback, Suggestion: suggestion, Sample: sample}, nil
}

func (s *feedbackService) List(filter repository.FeedbackFilter) ([]*models.Feedback, error) {
	return s.feedbackRepo.List(filter)
}

func (s *feedbackService) Stats(datasetID int64) (*FeedbackStatsResult, error) {
	if _, err := s.datasetRepo.GetByID(datasetID); err != nil {
		return nil, err
	}

	counts, err := s.feedbackRepo.CountsByAction(datasetID)
	if err != nil {
		return nil, err
	}

	result := &FeedbackStatsResult{
		DatasetID:     datasetID,
		TotalFeedback: counts.Total,
		Accepted:      counts.Accepted,
		Rejected:      counts.Rejected,
		Modified:      counts.Modified,
	}
	if counts.Total > 0 {
		result.AcceptanceRate = round2(float64(counts.Accepted+counts.Modified) / float64(counts.Total) * 100)
	}
	return result, nil
}

// LearningPatterns buckets review outcomes by the confidence decile
// and priority band of the detection behind each decision. iteration 0
// spans all iterations. Accept and modify both count as accepted: in
// either case the reviewer agreed the label was wrong.
func (s *feedbackService) LearningPatterns(datasetID int64, iteration int) (*LearningPatternsResult, error) {
	if _, err := s.datasetRepo.GetByID(datasetID); err != nil {
		return nil, err
	}

	rows, err := s.feedbackRepo.PatternRows(datasetID, iteration)
	if err != nil {
		return nil, err
	}

	confBuckets := map[int]*PatternBucket{}
	bandBuckets := map[string]*PatternBucket{}
	for _, row := range rows {
		accepted := row.Action == string(models.ActionAccept) || row.Action == string(models.ActionModify)

		decile := int(row.ConfidenceScore*10) * 10
		cb := confBuckets[decile]
		if cb == nil {
			cb = &PatternBucket{}
			confBuckets[decile] = cb
		}
		cb.Total++
		if accepted {
			cb.Accepted++
		}

		band := priorityBand(row.PriorityScore)
		bb := bandBuckets[band]
		if bb == nil {
			bb = &PatternBucket{}
			bandBuckets[band] = bb
		}
		bb.Total++
		if accepted {
			bb.Accepted++
		}
	}

	result := &LearningPatternsResult{
		DatasetID:          datasetID,
		Iteration:          iteration,
		TotalFeedback:      len(rows),
		ByConfidenceBucket: map[string]PatternBucket{},
		ByPriorityBand:     map[string]PatternBucket{},
	}

	deciles := make([]int, 0, len(confBuckets))
	for decile := range confBuckets {
		deciles = append(deciles, decile)
	}
	sort.Ints(deciles)

	bestDecile, bestRate := -1, -1.0
	for _, decile := range deciles {
		b := confBuckets[decile]
		rate := round2(float64(b.Accepted) / float64(b.Total) * 100)
		result.ByConfidenceBucket[fmt.Sprintf("%d%%", decile)] = PatternBucket{
			Total:          b.Total,
			Accepted:       b.Accepted,
			AcceptanceRate: rate,
		}
		if rate > bestRate {
			bestDecile, bestRate = decile, rate
		}
	}

	for _, band := range []string{"high", "medium", "low"} {
		b := bandBuckets[band]
		if b == nil {
			continue
		}
		result.ByPriorityBand[band] = PatternBucket{
			Total:          b.Total,
			Accepted:       b.Accepted,
			AcceptanceRate: round2(float64(b.Accepted) / float64(b.Total) * 100),
		}
	}

	if bestDecile >= 0 {
		result.Insights = append(result.Insights,
			fmt.Sprintf("Highest acceptance rate (%.0f%%) at %d%% confidence", bestRate, bestDecile))
	}
	if high, ok := result.ByPriorityBand["high"]; ok && high.Total > 0 {
		result.Insights = append(result.Insights,
			fmt.Sprintf("High priority detections accepted %.0f%% of the time", high.AcceptanceRate))
	}

	s.logger.Debug("Learning patterns computed",
		zap.Int64("dataset_id", datasetID),
		zap.Int("iteration", iteration),
		zap.Int("feedback_rows", len(rows)))

	return result, nil
}

func priorityBand(priority float64) string {
	switch {
	case priority >= 0.7:
		return "high"
	case priority >= 0.4:
		return "medium"
	default:
		return "low"
	}
}
