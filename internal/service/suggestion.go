package service

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"labelsweep/internal/apperr"
	"labelsweep/internal/models"
	"labelsweep/internal/repository"
)

// SuggestionGenerateResult reports one generation pass over an
// iteration's detections.
type SuggestionGenerateResult struct {
	DatasetID          int64 `json:"dataset_id"`
	Iteration          int   `json:"iteration"`
	TotalDetections    int   `json:"total_detections"`
	SuggestionsCreated int   `json:"suggestions_created"`
}

// SuggestionStatsResult is the per-dataset review-progress aggregate.
type SuggestionStatsResult struct {
	DatasetID        int64   `json:"dataset_id"`
	TotalSuggestions int     `json:"total_suggestions"`
	Pending          int     `json:"pending"`
	Accepted         int     `json:"accepted"`
	Rejected         int     `json:"rejected"`
	Modified         int     `json:"modified"`
	AcceptanceRate   float64 `json:"acceptance_rate"`
}

// SuggestionDetail gives the reviewer the suggestion together with the
// detection and sample behind it.
type SuggestionDetail struct {
	Suggestion *models.Suggestion `json:"suggestion"`
	Detection  *models.Detection  `json:"detection"`
	Sample     *models.Sample     `json:"sample"`
}

type SuggestionService interface {
	Generate(datasetID int64, iteration, topN int) (*SuggestionGenerateResult, error)
	Get(id int64) (*SuggestionDetail, error)
	List(filter repository.SuggestionFilter) ([]*models.Suggestion, error)
	Stats(datasetID int64) (*SuggestionStatsResult, error)
}

type suggestionService struct {
	datasetRepo    repository.DatasetRepository
	sampleRepo     repository.SampleRepository
	detectionRepo  repository.DetectionRepository
	suggestionRepo repository.SuggestionRepository
	logger         *zap.Logger
}

func NewSuggestionService(
	datasetRepo repository.DatasetRepository,
	sampleRepo repository.SampleRepository,
	detectionRepo repository.DetectionRepository,
	suggestionRepo repository.SuggestionRepository,
	logger *zap.Logger,
) SuggestionService {
	return &suggestionService{
		datasetRepo:    datasetRepo,
		sampleRepo:     sampleRepo,
		detectionRepo:  detectionRepo,
		suggestionRepo: suggestionRepo,
		logger:         logger,
	}
}

// Generate turns an iteration's detections into pending suggestions.
// iteration 0 means the dataset's latest iteration; topN 0 means all
// detections. Re-running is harmless: a detection that already has a
// suggestion is skipped, so the pass is idempotent.
func (s *suggestionService) Generate(datasetID int64, iteration, topN int) (*SuggestionGenerateResult, error) {
	if _, err := s.datasetRepo.GetByID(datasetID); err != nil {
		return nil, err
	}

	if iteration == 0 {
		latest, err := s.detectionRepo.LatestIteration(datasetID)
		if err != nil {
			return nil, err
		}
		if latest == 0 {
			return nil, apperr.Newf(apperr.KindNotFound, "no detection runs for dataset %d", datasetID)
		}
		iteration = latest
	} else {
		exists, err := s.detectionRepo.RunExists(datasetID, iteration)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperr.Newf(apperr.KindNotFound, "iteration %d not found for dataset %d", iteration, datasetID)
		}
	}

	detections, err := s.detectionRepo.ListByIteration(datasetID, iteration, topN)
	if err != nil {
		return nil, err
	}

	created := 0
	for _, d := range detections {
		suggestion := &models.Suggestion{
			DetectionID:    d.ID,
			SuggestedLabel: d.PredictedLabel,
			Reason:         suggestionReason(d.ConfidenceScore, d.AnomalyScore),
			Confidence:     d.ConfidenceScore,
			Status:         models.SuggestionPending,
		}
		ok, err := s.suggestionRepo.CreateIgnoreExisting(suggestion)
		if err != nil {
			return nil, err
		}
		if ok {
			created++
		}
	}

	s.logger.Info("Suggestions generated",
		zap.Int64("dataset_id", datasetID),
		zap.Int("iteration", iteration),
		zap.Int("detections", len(detections)),
		zap.Int("created", created))

	return &SuggestionGenerateResult{
		DatasetID:          datasetID,
		Iteration:          iteration,
		TotalDetections:    len(detections),
		SuggestionsCreated: created,
	}, nil
}

func (s *suggestionService) Get(id int64) (*SuggestionDetail, error) {
	suggestion, err := s.suggestionRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	detection, err := s.detectionRepo.GetByID(suggestion.DetectionID)
	if err != nil {
		return nil, err
	}
	sample, err := s.sampleRepo.GetByID(detection.SampleID)
	if err != nil {
		return nil, err
	}
	return &SuggestionDetail{Suggestion: suggestion, Detection: detection, Sample: sample}, nil
}

func (s *suggestionService) List(filter repository.SuggestionFilter) ([]*models.Suggestion, error) {
	return s.suggestionRepo.List(filter)
}

func (s *suggestionService) Stats(datasetID int64) (*SuggestionStatsResult, error) {
	if _, err := s.datasetRepo.GetByID(datasetID); err != nil {
		return nil, err
	}

	stats, err := s.suggestionRepo.Stats(datasetID)
	if err != nil {
		return nil, err
	}

	result := &SuggestionStatsResult{
		DatasetID:        datasetID,
		TotalSuggestions: stats.TotalSuggestions,
		Pending:          stats.Pending,
		Accepted:         stats.Accepted,
		Rejected:         stats.Rejected,
		Modified:         stats.Modified,
	}
	reviewed := stats.Accepted + stats.Rejected + stats.Modified
	if reviewed > 0 {
		result.AcceptanceRate = round2(float64(stats.Accepted+stats.Modified) / float64(reviewed) * 100)
	}
	return result, nil
}

// suggestionReason explains a suggestion to the reviewer in terms of
// the two signals behind it.
func suggestionReason(confidence, anomaly float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "High confidence (%.2f%%) disagreement with current label. ", confidence*100)
	fmt.Fprintf(&b, "Anomaly score: %.2f%%. ", anomaly*100)
	if confidence > 0.85 {
		b.WriteString("Model is very confident about alternative label. ")
	}
	if anomaly > 0.85 {
		b.WriteString("Sample shows strong anomalous behavior for current class. ")
	}
	if confidence >= 0.7 && anomaly >= 0.7 {
		b.WriteString("Both signals agree - high likelihood of mislabeling.")
	}
	return strings.TrimSpace(b.String())
}
