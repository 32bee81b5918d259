package service

import (
	"go.uber.org/zap"

	"labelsweep/internal/models"
	"labelsweep/internal/notifier"
	"labelsweep/internal/repository"
)

// ChangeSetResult is a dry-run view of the label mutations one apply
// call would perform.
type ChangeSetResult struct {
	DatasetID    int64                     `json:"dataset_id"`
	Iteration    int                       `json:"iteration"`
	TotalChanges int                       `json:"total_changes"`
	Changes      []models.CorrectionChange `json:"changes"`
}

// ApplyResult reports one correction batch. corrections_applied counts
// the entries attempted, labels_changed the rows actually updated;
// they diverge only when a concurrent writer touched a sample between
// preview and update.
type ApplyResult struct {
	DatasetID          int64 `json:"dataset_id"`
	Iteration          int   `json:"iteration"`
	CorrectionsApplied int   `json:"corrections_applied"`
	LabelsChanged      int   `json:"labels_changed"`
	SamplesRejected    int   `json:"samples_rejected"`
}

type CorrectionService interface {
	Preview(datasetID int64, iteration int) (*ChangeSetResult, error)
	Apply(datasetID int64, iteration int) (*ApplyResult, error)
}

type correctionService struct {
	datasetRepo    repository.DatasetRepository
	detectionRepo  repository.DetectionRepository
	correctionRepo repository.CorrectionRepository
	bot            *notifier.Bot
	logger         *zap.Logger
}

func NewCorrectionService(
	datasetRepo repository.DatasetRepository,
	detectionRepo repository.DetectionRepository,
	correctionRepo repository.CorrectionRepository,
	bot *notifier.Bot,
	logger *zap.Logger,
) CorrectionService {
	return &correctionService{
		datasetRepo:    datasetRepo,
		detectionRepo:  detectionRepo,
		correctionRepo: correctionRepo,
		bot:            bot,
		logger:         logger,
	}
}

// resolveIteration maps iteration 0 to the dataset's latest claimed
// iteration. A dataset with no runs resolves to 0, which simply
// matches no feedback.
func (s *correctionService) resolveIteration(datasetID int64, iteration int) (int, error) {
	if iteration != 0 {
		return iteration, nil
	}
	return s.detectionRepo.LatestIteration(datasetID)
}

func (s *correctionService) Preview(datasetID int64, iteration int) (*ChangeSetResult, error) {
	if _, err := s.datasetRepo.GetByID(datasetID); err != nil {
		return nil, err
	}

	iteration, err := s.resolveIteration(datasetID, iteration)
	if err != nil {
		return nil, err
	}

	changes, err := s.correctionRepo.Preview(datasetID, iteration)
	if err != nil {
		return nil, err
	}

	return &ChangeSetResult{
		DatasetID:    datasetID,
		Iteration:    iteration,
		TotalChanges: len(changes),
		Changes:      changes,
	}, nil
}

// Apply commits the reviewed corrections for an iteration. A dataset
// with no feedback (or an already-applied iteration) succeeds with an
// empty change set.
func (s *correctionService) Apply(datasetID int64, iteration int) (*ApplyResult, error) {
	dataset, err := s.datasetRepo.GetByID(datasetID)
	if err != nil {
		return nil, err
	}

	iteration, err = s.resolveIteration(datasetID, iteration)
	if err != nil {
		return nil, err
	}

	counts, err := s.correctionRepo.Apply(datasetID, iteration)
	if err != nil {
		return nil, err
	}

	s.bot.CorrectionsApplied(dataset.Name, iteration, counts.CorrectionsApplied, counts.LabelsChanged)

	return &ApplyResult{
		DatasetID:          datasetID,
		Iteration:          iteration,
		CorrectionsApplied: counts.CorrectionsApplied,
		LabelsChanged:      counts.LabelsChanged,
		SamplesRejected:    counts.SamplesRejected,
	}, nil
}
