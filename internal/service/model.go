package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"labelsweep/internal/apperr"
	"labelsweep/internal/models"
	"labelsweep/internal/repository"
	"labelsweep/internal/signals"
)

// defaultTestSize is the held-out fraction used when the caller does
// not specify one.
const defaultTestSize = 0.2

// RetrainResult pairs the freshly trained model with its comparison
// against the active baseline.
type RetrainResult struct {
	Model            *models.ModelRecord `json:"model"`
	BaselineAccuracy float64             `json:"baseline_accuracy"`
	NewAccuracy      float64             `json:"new_accuracy"`
	Improvement      float64             `json:"improvement"`
	ImprovementPct   float64             `json:"improvement_pct"`
	SamplesCorrected int                 `json:"samples_corrected"`
}

// ModelComparisonResult is the training progression of a dataset from
// its baseline through the latest retrain.
type ModelComparisonResult struct {
	DatasetID             int64                 `json:"dataset_id"`
	Models                []*models.ModelRecord `json:"models"`
	BaselineAccuracy      float64               `json:"baseline_accuracy"`
	LatestAccuracy        float64               `json:"latest_accuracy"`
	OverallImprovement    float64               `json:"overall_improvement"`
	OverallImprovementPct float64               `json:"overall_improvement_pct"`
}

type ModelService interface {
	TrainBaseline(ctx context.Context, datasetID int64) (*models.ModelRecord, error)
	Retrain(ctx context.Context, datasetID int64, testSize float64) (*RetrainResult, error)
	ListModels(datasetID int64) ([]*models.ModelRecord, error)
	Compare(datasetID int64) (*ModelComparisonResult, error)
}

type modelService struct {
	datasetRepo   repository.DatasetRepository
	sampleRepo    repository.SampleRepository
	detectionRepo repository.DetectionRepository
	modelRepo     repository.ModelRepository
	provider      signals.Provider
	logger        *zap.Logger
}

func NewModelService(
	datasetRepo repository.DatasetRepository,
	sampleRepo repository.SampleRepository,
	detectionRepo repository.DetectionRepository,
	modelRepo repository.ModelRepository,
	provider signals.Provider,
	logger *zap.Logger,
) ModelService {
	return &modelService{
		datasetRepo:   datasetRepo,
		sampleRepo:    sampleRepo,
		detectionRepo: detectionRepo,
		modelRepo:     modelRepo,
		provider:      provider,
		logger:        logger,
	}
}

// TrainBaseline trains and records the reference model on the
// dataset's labels as they stand before any correction. At most one
// active baseline exists per dataset.
func (s *modelService) TrainBaseline(ctx context.Context, datasetID int64) (*models.ModelRecord, error) {
	dataset, err := s.datasetRepo.GetByID(datasetID)
	if err != nil {
		return nil, err
	}

	if existing, err := s.modelRepo.ActiveBaseline(datasetID); err == nil {
		return nil, apperr.Newf(apperr.KindConflict,
			"dataset %d already has an active baseline model (id %d)", datasetID, existing.ID)
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	resp, sampleCount, err := s.train(ctx, dataset, defaultTestSize)
	if err != nil {
		return nil, err
	}

	record := s.newRecord(dataset, resp, sampleCount)
	record.Name = fmt.Sprintf("%s_baseline", dataset.Name)
	record.Description = "Baseline trained on labels as uploaded"
	record.Iteration = 0
	record.IsBaseline = true

	if err := s.modelRepo.Create(record); err != nil {
		return nil, err
	}

	s.logger.Info("Baseline model trained",
		zap.Int64("dataset_id", datasetID),
		zap.Int64("model_id", record.ID),
		zap.Float64("accuracy", record.Accuracy()))
	return record, nil
}

// Retrain trains a fresh model on the corrected labels and reports the
// accuracy movement against the baseline.
func (s *modelService) Retrain(ctx context.Context, datasetID int64, testSize float64) (*RetrainResult, error) {
	dataset, err := s.datasetRepo.GetByID(datasetID)
	if err != nil {
		return nil, err
	}

	baseline, err := s.modelRepo.ActiveBaseline(datasetID)
	if err != nil {
		return nil, err
	}

	if testSize == 0 {
		testSize = defaultTestSize
	}
	if testSize < 0 || testSize >= 1 {
		return nil, apperr.Newf(apperr.KindValidation, "test_size %g must lie in (0,1)", testSize)
	}

	iteration, err := s.detectionRepo.LatestIteration(datasetID)
	if err != nil {
		return nil, err
	}

	counts, err := s.datasetRepo.CorrectionCounts(datasetID)
	if err != nil {
		return nil, err
	}

	resp, sampleCount, err := s.train(ctx, dataset, testSize)
	if err != nil {
		return nil, err
	}

	record := s.newRecord(dataset, resp, sampleCount)
	record.Name = fmt.Sprintf("%s_iter_%d", dataset.Name, iteration)
	record.Description = fmt.Sprintf("Retrained after iteration %d with %d corrected samples", iteration, counts.Corrected)
	record.Iteration = iteration

	if err := s.modelRepo.Create(record); err != nil {
		return nil, err
	}

	baselineAcc := baseline.Accuracy()
	newAcc := record.Accuracy()
	result := &RetrainResult{
		Model:            record,
		BaselineAccuracy: baselineAcc,
		NewAccuracy:      newAcc,
		Improvement:      round4(newAcc - baselineAcc),
		SamplesCorrected: counts.Corrected,
	}
	if baselineAcc > 0 {
		result.ImprovementPct = round2((newAcc - baselineAcc) / baselineAcc * 100)
	}

	s.logger.Info("Model retrained",
		zap.Int64("dataset_id", datasetID),
		zap.Int64("model_id", record.ID),
		zap.Int("iteration", iteration),
		zap.Float64("baseline_accuracy", baselineAcc),
		zap.Float64("new_accuracy", newAcc))
	return result, nil
}

func (s *modelService) ListModels(datasetID int64) ([]*models.ModelRecord, error) {
	if _, err := s.datasetRepo.GetByID(datasetID); err != nil {
		return nil, err
	}
	return s.modelRepo.ListActive(datasetID)
}

func (s *modelService) Compare(datasetID int64) (*ModelComparisonResult, error) {
	if _, err := s.datasetRepo.GetByID(datasetID); err != nil {
		return nil, err
	}

	records, err := s.modelRepo.ListActive(datasetID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperr.Newf(apperr.KindNotFound, "no models trained for dataset %d", datasetID)
	}

	baseline := records[0]
	for _, r := range records {
		if r.IsBaseline {
			baseline = r
			break
		}
	}
	latest := records[len(records)-1]

	result := &ModelComparisonResult{
		DatasetID:          datasetID,
		Models:             records,
		BaselineAccuracy:   baseline.Accuracy(),
		LatestAccuracy:     latest.Accuracy(),
		OverallImprovement: round4(latest.Accuracy() - baseline.Accuracy()),
	}
	if baseline.Accuracy() > 0 {
		result.OverallImprovementPct = round2((latest.Accuracy() - baseline.Accuracy()) / baseline.Accuracy() * 100)
	}
	return result, nil
}

// train ships the dataset's current labels to the signal service and
// returns its metrics.
func (s *modelService) train(ctx context.Context, dataset *models.Dataset, testSize float64) (*signals.TrainResponse, int, error) {
	samples, err := s.sampleRepo.AllByDataset(dataset.ID)
	if err != nil {
		return nil, 0, err
	}
	if len(samples) == 0 {
		return nil, 0, apperr.Newf(apperr.KindValidation, "dataset %d has no samples to train on", dataset.ID)
	}

	trainSamples := make([]signals.TrainSample, 0, len(samples))
	for _, smp := range samples {
		features, err := smp.FeatureVector()
		if err != nil {
			return nil, 0, apperr.Wrap(apperr.KindInternal, fmt.Sprintf("sample %d has malformed features", smp.ID), err)
		}
		trainSamples = append(trainSamples, signals.TrainSample{Features: features, Label: smp.CurrentLabel})
	}

	resp, err := s.provider.Train(ctx, &signals.TrainRequest{
		DatasetID: dataset.ID,
		Samples:   trainSamples,
		TestSize:  testSize,
	})
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindUpstreamSignal, "training failed", err)
	}
	return resp, len(samples), nil
}

func (s *modelService) newRecord(dataset *models.Dataset, resp *signals.TrainResponse, sampleCount int) *models.ModelRecord {
	hyperparameters := "{}"
	if len(resp.Hyperparameters) > 0 {
		if raw, err := json.Marshal(resp.Hyperparameters); err == nil {
			hyperparameters = string(raw)
		}
	}

	trainAcc := resp.TrainAccuracy
	testAcc := resp.TestAccuracy
	numTrained := resp.NumSamplesTrained
	if numTrained == 0 {
		numTrained = sampleCount
	}

	return &models.ModelRecord{
		DatasetID:           dataset.ID,
		ModelType:           resp.ModelType,
		Hyperparameters:     hyperparameters,
		TrainAccuracy:       &trainAcc,
		TestAccuracy:        &testAcc,
		Precision:           resp.Precision,
		Recall:              resp.Recall,
		F1Score:             resp.F1Score,
		NumSamplesTrained:   numTrained,
		TrainingTimeSeconds: resp.TrainSeconds,
		IsActive:            true,
	}
}
