package service

import (
	"go.uber.org/zap"

	"labelsweep/internal/apperr"
	"labelsweep/internal/models"
	"labelsweep/internal/repository"
)

// ReviewDecision is one validated reviewer decision on a suggestion.
type ReviewDecision struct {
	Action        string
	CustomLabel   *int
	ReviewerNotes *string
}

// ReviewResult carries the updated suggestion together with the
// feedback row the transition produced.
type ReviewResult struct {
	Suggestion *models.Suggestion `json:"suggestion"`
	Feedback   *models.Feedback   `json:"feedback"`
}

type ReviewService interface {
	Review(suggestionID int64, decision ReviewDecision) (*ReviewResult, error)
}

type reviewService struct {
	datasetRepo    repository.DatasetRepository
	sampleRepo     repository.SampleRepository
	detectionRepo  repository.DetectionRepository
	suggestionRepo repository.SuggestionRepository
	logger         *zap.Logger
}

func NewReviewService(
	datasetRepo repository.DatasetRepository,
	sampleRepo repository.SampleRepository,
	detectionRepo repository.DetectionRepository,
	suggestionRepo repository.SuggestionRepository,
	logger *zap.Logger,
) ReviewService {
	return &reviewService{
		datasetRepo:    datasetRepo,
		sampleRepo:     sampleRepo,
		detectionRepo:  detectionRepo,
		suggestionRepo: suggestionRepo,
		logger:         logger,
	}
}

// Review applies a single-shot pending -> terminal transition and
// records the reviewer's decision as immutable feedback. The final
// label is fixed here: the suggested label on accept, the sample's
// current label on reject, the reviewer's label on modify.
func (s *reviewService) Review(suggestionID int64, decision ReviewDecision) (*ReviewResult, error) {
	action, err := models.ParseReviewAction(decision.Action)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid review action", err)
	}

	suggestion, err := s.suggestionRepo.GetByID(suggestionID)
	if err != nil {
		return nil, err
	}
	if suggestion.Status != models.SuggestionPending {
		return nil, apperr.Newf(apperr.KindInvalidTransition,
			"suggestion %d already reviewed (status %s)", suggestionID, suggestion.Status)
	}

	detection, err := s.detectionRepo.GetByID(suggestion.DetectionID)
	if err != nil {
		return nil, err
	}
	sample, err := s.sampleRepo.GetByID(detection.SampleID)
	if err != nil {
		return nil, err
	}

	var (
		finalLabel  int
		customLabel *int
	)
	switch action {
	case models.ActionAccept:
		finalLabel = suggestion.SuggestedLabel
	case models.ActionReject:
		finalLabel = sample.CurrentLabel
	case models.ActionModify:
		if decision.CustomLabel == nil {
			return nil, apperr.New(apperr.KindValidation, "custom_label is required for modify")
		}
		classes, err := s.datasetRepo.ClassLabels(sample.DatasetID)
		if err != nil {
			return nil, err
		}
		if !labelInSet(classes, *decision.CustomLabel) {
			return nil, apperr.Newf(apperr.KindValidation,
				"label %d is not in the known class set of dataset %d", *decision.CustomLabel, sample.DatasetID)
		}
		finalLabel = *decision.CustomLabel
		customLabel = decision.CustomLabel
	}

	updated, feedback, err := s.suggestionRepo.Review(repository.ReviewParams{
		SuggestionID:  suggestionID,
		Action:        action,
		ReviewerNotes: decision.ReviewerNotes,
		CustomLabel:   customLabel,
		SampleID:      sample.ID,
		DatasetID:     sample.DatasetID,
		Iteration:     detection.Iteration,
		FinalLabel:    finalLabel,
	})
	if err != nil {
		return nil, err
	}

	return &ReviewResult{Suggestion: updated, Feedback: feedback}, nil
}

func labelInSet(set []int, label int) bool {
	for _, l := range set {
		if l == label {
			return true
		}
	}
	return false
}
