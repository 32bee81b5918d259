package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"labelsweep/internal/apperr"
	"labelsweep/internal/config"
	"labelsweep/internal/models"
	"labelsweep/internal/repository"
)

// NewSample is one labeled data point in a dataset upload.
type NewSample struct {
	Features []float64 `json:"features"`
	Label    int       `json:"label"`
}

// CreateDatasetParams describes a dataset upload.
type CreateDatasetParams struct {
	Name            string
	Description     string
	FeatureNames    []string
	LabelColumnName string
	Samples         []NewSample
}

// DatasetStatsResult is the live cleaning state of a dataset.
type DatasetStatsResult struct {
	DatasetID         int64       `json:"dataset_id"`
	Name              string      `json:"name"`
	TotalSamples      int         `json:"total_samples"`
	NumFeatures       int         `json:"num_features"`
	NumClasses        int         `json:"num_classes"`
	SuspiciousSamples int         `json:"suspicious_samples"`
	CorrectedSamples  int         `json:"corrected_samples"`
	LabelsChanged     int         `json:"labels_changed"`
	LatestIteration   int         `json:"latest_iteration"`
	LabelDistribution map[int]int `json:"label_distribution"`
}

// CorrectionSummaryResult compares the dataset's labels before and
// after the cleaning done so far.
type CorrectionSummaryResult struct {
	DatasetID            int64       `json:"dataset_id"`
	TotalSamples         int         `json:"total_samples"`
	CorrectedSamples     int         `json:"corrected_samples"`
	LabelsChanged        int         `json:"labels_changed"`
	SuspiciousSamples    int         `json:"suspicious_samples"`
	CorrectionRate       float64     `json:"correction_rate"`
	NoiseReduction       float64     `json:"noise_reduction"`
	OriginalDistribution map[int]int `json:"original_distribution"`
	CurrentDistribution  map[int]int `json:"current_distribution"`
}

// ExportResult reports a written cleaned-dataset file.
type ExportResult struct {
	FilePath                 string  `json:"file_path"`
	TotalSamples             int     `json:"total_samples"`
	CorrectedSamples         int     `json:"corrected_samples"`
	LabelsChanged            int     `json:"labels_changed"`
	NoiseReductionPercentage float64 `json:"noise_reduction_percentage"`
}

type exportSample struct {
	SampleIndex   int       `json:"sample_index"`
	Features      []float64 `json:"features"`
	Label         int       `json:"label"`
	OriginalLabel int       `json:"original_label"`
	WasCorrected  bool      `json:"was_corrected"`
}

type exportDocument struct {
	DatasetID    int64          `json:"dataset_id"`
	Name         string         `json:"name"`
	ExportedAt   time.Time      `json:"exported_at"`
	FeatureNames []string       `json:"feature_names"`
	LabelColumn  string         `json:"label_column"`
	TotalSamples int            `json:"total_samples"`
	Samples      []exportSample `json:"samples"`
}

type DatasetService interface {
	Create(params CreateDatasetParams) (*models.Dataset, error)
	Get(id int64) (*models.Dataset, error)
	List() ([]*models.Dataset, error)
	Delete(id int64) error
	ListSamples(datasetID int64, suspiciousOnly bool, limit, offset int) ([]*models.Sample, error)
	GetSample(datasetID, sampleID int64) (*models.Sample, error)
	Stats(datasetID int64) (*DatasetStatsResult, error)
	CorrectionSummary(datasetID int64) (*CorrectionSummaryResult, error)
	Export(datasetID int64) (*ExportResult, error)
}

type datasetService struct {
	datasetRepo   repository.DatasetRepository
	sampleRepo    repository.SampleRepository
	detectionRepo repository.DetectionRepository
	cfg           *config.Config
	logger        *zap.Logger
}

func NewDatasetService(
	datasetRepo repository.DatasetRepository,
	sampleRepo repository.SampleRepository,
	detectionRepo repository.DetectionRepository,
	cfg *config.Config,
	logger *zap.Logger,
) DatasetService {
	return &datasetService{
		datasetRepo:   datasetRepo,
		sampleRepo:    sampleRepo,
		detectionRepo: detectionRepo,
		cfg:           cfg,
		logger:        logger,
	}
}

// Create validates and stores a dataset upload. Every sample starts
// with original_label == current_label; the class count is derived
// from the labels actually present.
func (s *datasetService) Create(params CreateDatasetParams) (*models.Dataset, error) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, apperr.New(apperr.KindValidation, "dataset name is required")
	}
	if len(params.Samples) == 0 {
		return nil, apperr.New(apperr.KindValidation, "dataset must contain at least one sample")
	}

	numFeatures := len(params.Samples[0].Features)
	if numFeatures == 0 {
		return nil, apperr.New(apperr.KindValidation, "samples must have at least one feature")
	}

	classes := map[int]struct{}{}
	samples := make([]models.Sample, 0, len(params.Samples))
	for i, in := range params.Samples {
		if len(in.Features) != numFeatures {
			return nil, apperr.Newf(apperr.KindValidation,
				"sample %d has %d features, expected %d", i, len(in.Features), numFeatures)
		}
		classes[in.Label] = struct{}{}

		features, err := json.Marshal(in.Features)
		if err != nil {
			return nil, fmt.Errorf("failed to encode features for sample %d: %w", i, err)
		}
		samples = append(samples, models.Sample{
			SampleIndex:   i,
			Features:      string(features),
			OriginalLabel: in.Label,
			CurrentLabel:  in.Label,
		})
	}

	dataset := &models.Dataset{
		Name:        params.Name,
		Description: params.Description,
		NumSamples:  len(samples),
		NumFeatures: numFeatures,
		NumClasses:  len(classes),
	}

	if len(params.FeatureNames) > 0 {
		if len(params.FeatureNames) != numFeatures {
			return nil, apperr.Newf(apperr.KindValidation,
				"feature_names has %d entries, expected %d", len(params.FeatureNames), numFeatures)
		}
		raw, err := json.Marshal(params.FeatureNames)
		if err != nil {
			return nil, fmt.Errorf("failed to encode feature names: %w", err)
		}
		names := string(raw)
		dataset.FeatureNames = &names
	}
	if params.LabelColumnName != "" {
		label := params.LabelColumnName
		dataset.LabelColumnName = &label
	}

	if err := s.datasetRepo.Create(dataset, samples); err != nil {
		return nil, err
	}
	return dataset, nil
}

func (s *datasetService) Get(id int64) (*models.Dataset, error) {
	return s.datasetRepo.GetByID(id)
}

func (s *datasetService) List() ([]*models.Dataset, error) {
	return s.datasetRepo.List()
}

func (s *datasetService) Delete(id int64) error {
	return s.datasetRepo.Delete(id)
}

func (s *datasetService) ListSamples(datasetID int64, suspiciousOnly bool, limit, offset int) ([]*models.Sample, error) {
	if _, err := s.datasetRepo.GetByID(datasetID); err != nil {
		return nil, err
	}
	return s.sampleRepo.ListByDataset(datasetID, suspiciousOnly, limit, offset)
}

func (s *datasetService) GetSample(datasetID, sampleID int64) (*models.Sample, error) {
	sample, err := s.sampleRepo.GetByID(sampleID)
	if err != nil {
		return nil, err
	}
	if sample.DatasetID != datasetID {
		return nil, apperr.Newf(apperr.KindNotFound, "sample %d not found in dataset %d", sampleID, datasetID)
	}
	return sample, nil
}

func (s *datasetService) Stats(datasetID int64) (*DatasetStatsResult, error) {
	dataset, err := s.datasetRepo.GetByID(datasetID)
	if err != nil {
		return nil, err
	}

	counts, err := s.datasetRepo.CorrectionCounts(datasetID)
	if err != nil {
		return nil, err
	}
	_, current, err := s.datasetRepo.LabelDistributions(datasetID)
	if err != nil {
		return nil, err
	}
	latest, err := s.detectionRepo.LatestIteration(datasetID)
	if err != nil {
		return nil, err
	}

	return &DatasetStatsResult{
		DatasetID:         dataset.ID,
		Name:              dataset.Name,
		TotalSamples:      counts.TotalSamples,
		NumFeatures:       dataset.NumFeatures,
		NumClasses:        dataset.NumClasses,
		SuspiciousSamples: counts.Suspicious,
		CorrectedSamples:  counts.Corrected,
		LabelsChanged:     counts.LabelsChanged,
		LatestIteration:   latest,
		LabelDistribution: current,
	}, nil
}

func (s *datasetService) CorrectionSummary(datasetID int64) (*CorrectionSummaryResult, error) {
	if _, err := s.datasetRepo.GetByID(datasetID); err != nil {
		return nil, err
	}

	counts, err := s.datasetRepo.CorrectionCounts(datasetID)
	if err != nil {
		return nil, err
	}
	original, current, err := s.datasetRepo.LabelDistributions(datasetID)
	if err != nil {
		return nil, err
	}

	result := &CorrectionSummaryResult{
		DatasetID:            datasetID,
		TotalSamples:         counts.TotalSamples,
		CorrectedSamples:     counts.Corrected,
		LabelsChanged:        counts.LabelsChanged,
		SuspiciousSamples:    counts.Suspicious,
		OriginalDistribution: original,
		CurrentDistribution:  current,
	}
	if counts.TotalSamples > 0 {
		result.CorrectionRate = round2(float64(counts.Corrected) / float64(counts.TotalSamples) * 100)
		result.NoiseReduction = round2(float64(counts.LabelsChanged) / float64(counts.TotalSamples) * 100)
	}
	return result, nil
}

// Export writes the dataset with its current labels to a JSON file
// under the configured output directory and reports what changed
// relative to the upload.
func (s *datasetService) Export(datasetID int64) (*ExportResult, error) {
	dataset, err := s.datasetRepo.GetByID(datasetID)
	if err != nil {
		return nil, err
	}

	samples, err := s.sampleRepo.AllByDataset(datasetID)
	if err != nil {
		return nil, err
	}

	featureNames := dataset.FeatureNameList()
	if featureNames == nil {
		featureNames = make([]string, dataset.NumFeatures)
		for i := range featureNames {
			featureNames[i] = fmt.Sprintf("feature_%d", i)
		}
	}

	doc := exportDocument{
		DatasetID:    dataset.ID,
		Name:         dataset.Name,
		ExportedAt:   time.Now().UTC(),
		FeatureNames: featureNames,
		LabelColumn:  dataset.LabelColumn(),
		TotalSamples: len(samples),
		Samples:      make([]exportSample, 0, len(samples)),
	}

	corrected := 0
	labelsChanged := 0
	for _, smp := range samples {
		features, err := smp.FeatureVector()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, fmt.Sprintf("sample %d has malformed features", smp.ID), err)
		}
		if smp.IsCorrected {
			corrected++
		}
		if smp.OriginalLabel != smp.CurrentLabel {
			labelsChanged++
		}
		doc.Samples = append(doc.Samples, exportSample{
			SampleIndex:   smp.SampleIndex,
			Features:      features,
			Label:         smp.CurrentLabel,
			OriginalLabel: smp.OriginalLabel,
			WasCorrected:  smp.IsCorrected,
		})
	}

	if err := os.MkdirAll(s.cfg.Export.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}

	path := filepath.Join(s.cfg.Export.OutputDir, exportFileName(dataset.Name))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write export file: %w", err)
	}

	result := &ExportResult{
		FilePath:         path,
		TotalSamples:     len(samples),
		CorrectedSamples: corrected,
		LabelsChanged:    labelsChanged,
	}
	if len(samples) > 0 {
		result.NoiseReductionPercentage = round2(float64(labelsChanged) / float64(len(samples)) * 100)
	}

	s.logger.Info("Dataset exported",
		zap.Int64("dataset_id", datasetID),
		zap.String("file", path),
		zap.Int("samples", len(samples)))
	return result, nil
}

func exportFileName(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, name)
	stamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_cleaned_%s_%s.json", safe, stamp, uuid.New().String()[:8])
}
