package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"labelsweep/internal/apperr"
	"labelsweep/internal/config"
	"labelsweep/internal/models"
	"labelsweep/internal/notifier"
	"labelsweep/internal/repository"
	"labelsweep/internal/signals"
)

// weightSumTolerance bounds float drift when checking that the two
// priority weights sum to 1.
const weightSumTolerance = 1e-9

// RunParams are the caller-supplied knobs of a detection run. Nil
// pointers mean "use the configured default".
type RunParams struct {
	DatasetID           int64
	ConfidenceThreshold *float64
	ConfidenceWeight    *float64
	AnomalyWeight       *float64
}

// RunResult summarizes one completed detection run.
type RunResult struct {
	RunID                  string    `json:"run_id"`
	DatasetID              int64     `json:"dataset_id"`
	Iteration              int       `json:"iteration"`
	TotalSamplesAnalyzed   int       `json:"total_samples_analyzed"`
	SuspiciousSamplesFound int       `json:"suspicious_samples_found"`
	DetectionRate          float64   `json:"detection_rate"`
	ConfidenceThreshold    float64   `json:"confidence_threshold"`
	ConfidenceWeight       float64   `json:"confidence_weight"`
	AnomalyWeight          float64   `json:"anomaly_weight"`
	CreatedAt              time.Time `json:"created_at"`
}

// DetectionStatsResult is the per-dataset detection aggregate.
type DetectionStatsResult struct {
	DatasetID              int64   `json:"dataset_id"`
	TotalSamples           int     `json:"total_samples"`
	SuspiciousSamples      int     `json:"suspicious_samples"`
	TotalDetections        int     `json:"total_detections"`
	HighPriorityDetections int     `json:"high_priority_detections"`
	AverageConfidence      float64 `json:"average_confidence"`
	DetectionRate          float64 `json:"detection_rate"`
}

// SignalBreakdownResult counts which signal drove each detection. The
// categories overlap: a detection with both scores at 0.9 is
// confidence_dominant or anomaly_dominant and also both_high.
type SignalBreakdownResult struct {
	DatasetID          int64   `json:"dataset_id"`
	TotalDetections    int     `json:"total_detections"`
	ConfidenceDominant int     `json:"confidence_dominant"`
	AnomalyDominant    int     `json:"anomaly_dominant"`
	BothHigh           int     `json:"both_high"`
	AvgConfidence      float64 `json:"avg_confidence"`
	AvgAnomaly         float64 `json:"avg_anomaly"`
}

// DetectionDetail pairs a detection with the sample it flagged.
type DetectionDetail struct {
	Detection *models.Detection `json:"detection"`
	Sample    *models.Sample    `json:"sample"`
}

type DetectionService interface {
	Run(ctx context.Context, params RunParams) (*RunResult, error)
	Get(id int64) (*DetectionDetail, error)
	ListRuns(datasetID int64) ([]*models.DetectionRun, error)
	ListDetections(filter repository.DetectionFilter) ([]*models.Detection, error)
	Stats(datasetID int64) (*DetectionStatsResult, error)
	SignalBreakdown(datasetID int64) (*SignalBreakdownResult, error)
}

type detectionService struct {
	datasetRepo   repository.DatasetRepository
	sampleRepo    repository.SampleRepository
	detectionRepo repository.DetectionRepository
	provider      signals.Provider
	bot           *notifier.Bot
	cfg           *config.Config
	logger        *zap.Logger
}

func NewDetectionService(
	datasetRepo repository.DatasetRepository,
	sampleRepo repository.SampleRepository,
	detectionRepo repository.DetectionRepository,
	provider signals.Provider,
	bot *notifier.Bot,
	cfg *config.Config,
	logger *zap.Logger,
) DetectionService {
	return &detectionService{
		datasetRepo:   datasetRepo,
		sampleRepo:    sampleRepo,
		detectionRepo: detectionRepo,
		provider:      provider,
		bot:           bot,
		cfg:           cfg,
		logger:        logger,
	}
}

// Run executes one detection pass: score every sample with both
// signals, keep the ones whose disagreement confidence clears the
// threshold, rank them by fused priority and persist the result as the
// dataset's next iteration.
func (s *detectionService) Run(ctx context.Context, params RunParams) (*RunResult, error) {
	threshold := s.cfg.Detection.ConfidenceThreshold
	if params.ConfidenceThreshold != nil {
		threshold = *params.ConfidenceThreshold
	}

	confWeight := s.cfg.Detection.ConfidenceWeight
	anomWeight := s.cfg.Detection.AnomalyWeight
	if params.ConfidenceWeight != nil || params.AnomalyWeight != nil {
		if params.ConfidenceWeight == nil || params.AnomalyWeight == nil {
			return nil, apperr.New(apperr.KindValidation, "confidence and anomaly weights must be provided together")
		}
		confWeight = *params.ConfidenceWeight
		anomWeight = *params.AnomalyWeight
	}

	if threshold < 0 || threshold > 1 {
		return nil, apperr.Newf(apperr.KindValidation, "confidence_threshold %g is outside [0,1]", threshold)
	}
	if confWeight < 0 || confWeight > 1 || anomWeight < 0 || anomWeight > 1 {
		return nil, apperr.Newf(apperr.KindValidation,
			"priority weights must lie in [0,1], got confidence=%g anomaly=%g", confWeight, anomWeight)
	}
	if math.Abs(confWeight+anomWeight-1) > weightSumTolerance {
		return nil, apperr.Newf(apperr.KindValidation, "priority weights must sum to 1, got %g", confWeight+anomWeight)
	}

	dataset, err := s.datasetRepo.GetByID(params.DatasetID)
	if err != nil {
		return nil, err
	}

	samples, err := s.sampleRepo.AllByDataset(dataset.ID)
	if err != nil {
		return nil, err
	}

	run := &models.DetectionRun{
		ID:                  uuid.New().String(),
		DatasetID:           dataset.ID,
		ConfidenceThreshold: threshold,
		ConfidenceWeight:    confWeight,
		AnomalyWeight:       anomWeight,
		TotalSamples:        len(samples),
	}

	// An empty dataset still claims its iteration so the run history
	// stays contiguous.
	var detections []models.Detection
	if len(samples) > 0 {
		detections, err = s.scoreSamples(ctx, dataset.ID, samples, threshold, confWeight, anomWeight)
		if err != nil {
			return nil, err
		}
	}
	run.SuspiciousFound = len(detections)

	if err := s.detectionRepo.CreateRun(run, detections); err != nil {
		return nil, err
	}

	s.logger.Info("Detection run completed",
		zap.String("run_id", run.ID),
		zap.Int64("dataset_id", dataset.ID),
		zap.Int("iteration", run.Iteration),
		zap.Int("total_samples", run.TotalSamples),
		zap.Int("suspicious_found", run.SuspiciousFound))

	s.bot.RunCompleted(dataset.Name, run.Iteration, run.TotalSamples, run.SuspiciousFound)

	return &RunResult{
		RunID:                  run.ID,
		DatasetID:              run.DatasetID,
		Iteration:              run.Iteration,
		TotalSamplesAnalyzed:   run.TotalSamples,
		SuspiciousSamplesFound: run.SuspiciousFound,
		DetectionRate:          detectionRate(run.SuspiciousFound, run.TotalSamples),
		ConfidenceThreshold:    run.ConfidenceThreshold,
		ConfidenceWeight:       run.ConfidenceWeight,
		AnomalyWeight:          run.AnomalyWeight,
		CreatedAt:              run.CreatedAt,
	}, nil
}

// scoreSamples fetches both signals concurrently and fuses them into
// ranked detections. Any upstream failure or out-of-range score aborts
// the run before anything is persisted.
func (s *detectionService) scoreSamples(ctx context.Context, datasetID int64, samples []*models.Sample,
	threshold, confWeight, anomWeight float64) ([]models.Detection, error) {

	predictSamples := make([]signals.PredictSample, 0, len(samples))
	anomalySamples := make([]signals.AnomalySample, 0, len(samples))
	for _, smp := range samples {
		features, err := smp.FeatureVector()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, fmt.Sprintf("sample %d has malformed features", smp.ID), err)
		}
		predictSamples = append(predictSamples, signals.PredictSample{
			ID:           smp.ID,
			Features:     features,
			CurrentLabel: smp.CurrentLabel,
		})
		anomalySamples = append(anomalySamples, signals.AnomalySample{ID: smp.ID, Features: features})
	}

	var (
		predictResp *signals.PredictResponse
		anomalyResp *signals.AnomalyResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := s.provider.Predict(gctx, &signals.PredictRequest{DatasetID: datasetID, Samples: predictSamples})
		if err != nil {
			return apperr.Wrap(apperr.KindUpstreamSignal, "prediction signal failed", err)
		}
		predictResp = resp
		return nil
	})
	g.Go(func() error {
		resp, err := s.provider.AnomalyScores(gctx, &signals.AnomalyRequest{DatasetID: datasetID, Samples: anomalySamples})
		if err != nil {
			return apperr.Wrap(apperr.KindUpstreamSignal, "anomaly signal failed", err)
		}
		anomalyResp = resp
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	predictions := make(map[int64]signals.Prediction, len(predictResp.Predictions))
	for _, p := range predictResp.Predictions {
		if p.Confidence < 0 || p.Confidence > 1 {
			return nil, apperr.Newf(apperr.KindUpstreamSignal,
				"confidence score %g for sample %d is outside [0,1]", p.Confidence, p.SampleID)
		}
		predictions[p.SampleID] = p
	}
	anomalies := make(map[int64]float64, len(anomalyResp.Scores))
	for _, a := range anomalyResp.Scores {
		if a.AnomalyScore < 0 || a.AnomalyScore > 1 {
			return nil, apperr.Newf(apperr.KindUpstreamSignal,
				"anomaly score %g for sample %d is outside [0,1]", a.AnomalyScore, a.SampleID)
		}
		anomalies[a.SampleID] = a.AnomalyScore
	}

	detections := []models.Detection{}
	for _, smp := range samples {
		pred, ok := predictions[smp.ID]
		if !ok {
			return nil, apperr.Newf(apperr.KindUpstreamSignal, "no prediction returned for sample %d", smp.ID)
		}
		anomaly, ok := anomalies[smp.ID]
		if !ok {
			return nil, apperr.Newf(apperr.KindUpstreamSignal, "no anomaly score returned for sample %d", smp.ID)
		}

		// The threshold gates on confidence alone; anomaly only
		// influences ordering.
		if pred.Confidence < threshold {
			continue
		}

		detections = append(detections, models.Detection{
			SampleID:        smp.ID,
			ConfidenceScore: pred.Confidence,
			AnomalyScore:    anomaly,
			PriorityScore:   confWeight*pred.Confidence + anomWeight*anomaly,
			PredictedLabel:  pred.PredictedLabel,
		})
	}

	sort.Slice(detections, func(i, j int) bool {
		if detections[i].PriorityScore != detections[j].PriorityScore {
			return detections[i].PriorityScore > detections[j].PriorityScore
		}
		return detections[i].SampleID < detections[j].SampleID
	})
	for i := range detections {
		detections[i].Rank = i + 1
	}

	return detections, nil
}

func (s *detectionService) Get(id int64) (*DetectionDetail, error) {
	detection, err := s.detectionRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	sample, err := s.sampleRepo.GetByID(detection.SampleID)
	if err != nil {
		return nil, err
	}
	return &DetectionDetail{Detection: detection, Sample: sample}, nil
}

func (s *detectionService) ListRuns(datasetID int64) ([]*models.DetectionRun, error) {
	if _, err := s.datasetRepo.GetByID(datasetID); err != nil {
		return nil, err
	}
	return s.detectionRepo.ListRuns(datasetID)
}

func (s *detectionService) ListDetections(filter repository.DetectionFilter) ([]*models.Detection, error) {
	return s.detectionRepo.List(filter)
}

func (s *detectionService) Stats(datasetID int64) (*DetectionStatsResult, error) {
	if _, err := s.datasetRepo.GetByID(datasetID); err != nil {
		return nil, err
	}

	stats, err := s.detectionRepo.Stats(datasetID)
	if err != nil {
		return nil, err
	}

	return &DetectionStatsResult{
		DatasetID:              datasetID,
		TotalSamples:           stats.TotalSamples,
		SuspiciousSamples:      stats.SuspiciousSamples,
		TotalDetections:        stats.TotalDetections,
		HighPriorityDetections: stats.HighPriorityDetections,
		AverageConfidence:      round4(stats.AverageConfidence),
		DetectionRate:          detectionRate(stats.SuspiciousSamples, stats.TotalSamples),
	}, nil
}

func (s *detectionService) SignalBreakdown(datasetID int64) (*SignalBreakdownResult, error) {
	if _, err := s.datasetRepo.GetByID(datasetID); err != nil {
		return nil, err
	}

	stats, err := s.detectionRepo.SignalStats(datasetID)
	if err != nil {
		return nil, err
	}

	return &SignalBreakdownResult{
		DatasetID:          datasetID,
		TotalDetections:    stats.TotalDetections,
		ConfidenceDominant: stats.ConfidenceDominant,
		AnomalyDominant:    stats.AnomalyDominant,
		BothHigh:           stats.BothHigh,
		AvgConfidence:      round4(stats.AvgConfidence),
		AvgAnomaly:         round4(stats.AvgAnomaly),
	}, nil
}

func detectionRate(suspicious, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(suspicious) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
