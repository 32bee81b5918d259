package service

import (
	"context"
	"sort"
	"time"

	"labelsweep/internal/apperr"
	"labelsweep/internal/models"
	"labelsweep/internal/repository"
	"labelsweep/internal/signals"
)

// The fakes embed their repository interface so each test overrides
// only what it touches; calling anything else panics, which is the
// point.

type stubDatasetRepo struct {
	repository.DatasetRepository
	dataset       *models.Dataset
	classes       []int
	counts        *repository.CorrectionCounts
	originalDist  map[int]int
	currentDist   map[int]int
	deletedIDs    []int64
	createErr     error
	createdNames  []string
	createdCounts []int
}

func (s *stubDatasetRepo) GetByID(id int64) (*models.Dataset, error) {
	if s.dataset == nil || s.dataset.ID != id {
		return nil, apperr.Newf(apperr.KindNotFound, "dataset %d not found", id)
	}
	return s.dataset, nil
}

func (s *stubDatasetRepo) Create(dataset *models.Dataset, samples []models.Sample) error {
	if s.createErr != nil {
		return s.createErr
	}
	dataset.ID = 1
	dataset.CreatedAt = time.Now().UTC()
	s.createdNames = append(s.createdNames, dataset.Name)
	s.createdCounts = append(s.createdCounts, len(samples))
	return nil
}

func (s *stubDatasetRepo) Delete(id int64) error {
	if s.dataset == nil || s.dataset.ID != id {
		return apperr.Newf(apperr.KindNotFound, "dataset %d not found", id)
	}
	s.deletedIDs = append(s.deletedIDs, id)
	return nil
}

func (s *stubDatasetRepo) ClassLabels(datasetID int64) ([]int, error) {
	return s.classes, nil
}

func (s *stubDatasetRepo) CorrectionCounts(datasetID int64) (*repository.CorrectionCounts, error) {
	if s.counts == nil {
		return &repository.CorrectionCounts{}, nil
	}
	return s.counts, nil
}

func (s *stubDatasetRepo) LabelDistributions(datasetID int64) (map[int]int, map[int]int, error) {
	return s.originalDist, s.currentDist, nil
}

type stubSampleRepo struct {
	repository.SampleRepository
	samples []*models.Sample
}

func (s *stubSampleRepo) GetByID(id int64) (*models.Sample, error) {
	for _, smp := range s.samples {
		if smp.ID == id {
			return smp, nil
		}
	}
	return nil, apperr.Newf(apperr.KindNotFound, "sample %d not found", id)
}

func (s *stubSampleRepo) AllByDataset(datasetID int64) ([]*models.Sample, error) {
	out := []*models.Sample{}
	for _, smp := range s.samples {
		if smp.DatasetID == datasetID {
			out = append(out, smp)
		}
	}
	return out, nil
}

func (s *stubSampleRepo) ListByDataset(datasetID int64, suspiciousOnly bool, limit, offset int) ([]*models.Sample, error) {
	out := []*models.Sample{}
	for _, smp := range s.samples {
		if smp.DatasetID == datasetID && (!suspiciousOnly || smp.IsSuspicious) {
			out = append(out, smp)
		}
	}
	return out, nil
}

// memDetectionRepo emulates the iteration-claiming CreateRun closely
// enough for service-level assertions.
type memDetectionRepo struct {
	repository.DetectionRepository
	runs       []*models.DetectionRun
	detections []*models.Detection
	nextID     int64
	createErr  error
}

func (m *memDetectionRepo) CreateRun(run *models.DetectionRun, detections []models.Detection) error {
	if m.createErr != nil {
		return m.createErr
	}
	maxIteration := 0
	for _, r := range m.runs {
		if r.DatasetID == run.DatasetID && r.Iteration > maxIteration {
			maxIteration = r.Iteration
		}
	}
	run.Iteration = maxIteration + 1
	run.CreatedAt = time.Now().UTC()
	m.runs = append(m.runs, run)
	for i := range detections {
		d := detections[i]
		m.nextID++
		d.ID = m.nextID
		d.RunID = run.ID
		d.Iteration = run.Iteration
		d.DetectedAt = run.CreatedAt
		m.detections = append(m.detections, &d)
	}
	return nil
}

func (m *memDetectionRepo) LatestIteration(datasetID int64) (int, error) {
	latest := 0
	for _, r := range m.runs {
		if r.DatasetID == datasetID && r.Iteration > latest {
			latest = r.Iteration
		}
	}
	return latest, nil
}

func (m *memDetectionRepo) RunExists(datasetID int64, iteration int) (bool, error) {
	for _, r := range m.runs {
		if r.DatasetID == datasetID && r.Iteration == iteration {
			return true, nil
		}
	}
	return false, nil
}

func (m *memDetectionRepo) GetByID(id int64) (*models.Detection, error) {
	for _, d := range m.detections {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, apperr.Newf(apperr.KindNotFound, "detection %d not found", id)
}

func (m *memDetectionRepo) ListByIteration(datasetID int64, iteration, topN int) ([]*models.Detection, error) {
	runIDs := map[string]bool{}
	for _, r := range m.runs {
		if r.DatasetID == datasetID && r.Iteration == iteration {
			runIDs[r.ID] = true
		}
	}
	out := []*models.Detection{}
	for _, d := range m.detections {
		if runIDs[d.RunID] {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

// memSuggestionRepo keeps suggestions keyed by detection and applies
// the same single-shot review semantics as the SQL implementation.
type memSuggestionRepo struct {
	repository.SuggestionRepository
	suggestions []*models.Suggestion
	feedback    []*models.Feedback
	nextID      int64
}

func (m *memSuggestionRepo) CreateIgnoreExisting(suggestion *models.Suggestion) (bool, error) {
	for _, existing := range m.suggestions {
		if existing.DetectionID == suggestion.DetectionID {
			return false, nil
		}
	}
	m.nextID++
	suggestion.ID = m.nextID
	suggestion.CreatedAt = time.Now().UTC()
	m.suggestions = append(m.suggestions, suggestion)
	return true, nil
}

func (m *memSuggestionRepo) GetByID(id int64) (*models.Suggestion, error) {
	for _, sg := range m.suggestions {
		if sg.ID == id {
			copied := *sg
			return &copied, nil
		}
	}
	return nil, apperr.Newf(apperr.KindNotFound, "suggestion %d not found", id)
}

func (m *memSuggestionRepo) Review(params repository.ReviewParams) (*models.Suggestion, *models.Feedback, error) {
	for _, sg := range m.suggestions {
		if sg.ID != params.SuggestionID {
			continue
		}
		if sg.Status != models.SuggestionPending {
			return nil, nil, apperr.Newf(apperr.KindInvalidTransition,
				"suggestion %d already reviewed (status %s)", sg.ID, sg.Status)
		}
		now := time.Now().UTC()
		sg.Status = params.Action.Status()
		sg.ReviewedAt = &now
		sg.ReviewerNotes = params.ReviewerNotes
		sg.CustomLabel = params.CustomLabel

		fb := &models.Feedback{
			ID:           int64(len(m.feedback) + 1),
			SuggestionID: sg.ID,
			SampleID:     params.SampleID,
			DatasetID:    params.DatasetID,
			Iteration:    params.Iteration,
			Action:       string(params.Action),
			FinalLabel:   params.FinalLabel,
			CreatedAt:    now,
		}
		m.feedback = append(m.feedback, fb)
		return sg, fb, nil
	}
	return nil, nil, apperr.Newf(apperr.KindNotFound, "suggestion %d not found", params.SuggestionID)
}

func (m *memSuggestionRepo) Stats(datasetID int64) (*repository.SuggestionStats, error) {
	stats := &repository.SuggestionStats{}
	for _, sg := range m.suggestions {
		stats.TotalSuggestions++
		switch sg.Status {
		case models.SuggestionPending:
			stats.Pending++
		case models.SuggestionAccepted:
			stats.Accepted++
		case models.SuggestionRejected:
			stats.Rejected++
		case models.SuggestionModified:
			stats.Modified++
		}
	}
	return stats, nil
}

type stubFeedbackRepo struct {
	repository.FeedbackRepository
	counts      *repository.FeedbackCounts
	patternRows []repository.PatternRow
}

func (s *stubFeedbackRepo) CountsByAction(datasetID int64) (*repository.FeedbackCounts, error) {
	if s.counts == nil {
		return &repository.FeedbackCounts{}, nil
	}
	return s.counts, nil
}

func (s *stubFeedbackRepo) PatternRows(datasetID int64, iteration int) ([]repository.PatternRow, error) {
	return s.patternRows, nil
}

type stubCorrectionRepo struct {
	repository.CorrectionRepository
	changes        []models.CorrectionChange
	applyCounts    *repository.ApplyCounts
	appliedDataset int64
	appliedIter    int
}

func (s *stubCorrectionRepo) Preview(datasetID int64, iteration int) ([]models.CorrectionChange, error) {
	return s.changes, nil
}

func (s *stubCorrectionRepo) Apply(datasetID int64, iteration int) (*repository.ApplyCounts, error) {
	s.appliedDataset = datasetID
	s.appliedIter = iteration
	if s.applyCounts == nil {
		return &repository.ApplyCounts{}, nil
	}
	return s.applyCounts, nil
}

type memModelRepo struct {
	repository.ModelRepository
	records []*models.ModelRecord
}

func (m *memModelRepo) Create(record *models.ModelRecord) error {
	record.ID = int64(len(m.records) + 1)
	record.CreatedAt = time.Now().UTC()
	m.records = append(m.records, record)
	return nil
}

func (m *memModelRepo) ListActive(datasetID int64) ([]*models.ModelRecord, error) {
	out := []*models.ModelRecord{}
	for _, r := range m.records {
		if r.DatasetID == datasetID && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memModelRepo) ActiveBaseline(datasetID int64) (*models.ModelRecord, error) {
	for _, r := range m.records {
		if r.DatasetID == datasetID && r.IsBaseline && r.IsActive {
			return r, nil
		}
	}
	return nil, apperr.Newf(apperr.KindNotFound, "no baseline model for dataset %d", datasetID)
}

// fakeProvider scripts the signal service per test.
type fakeProvider struct {
	predict func(req *signals.PredictRequest) (*signals.PredictResponse, error)
	anomaly func(req *signals.AnomalyRequest) (*signals.AnomalyResponse, error)
	train   func(req *signals.TrainRequest) (*signals.TrainResponse, error)

	predictCalls int
	anomalyCalls int
	trainCalls   int
}

func (f *fakeProvider) Predict(ctx context.Context, req *signals.PredictRequest) (*signals.PredictResponse, error) {
	f.predictCalls++
	return f.predict(req)
}

func (f *fakeProvider) AnomalyScores(ctx context.Context, req *signals.AnomalyRequest) (*signals.AnomalyResponse, error) {
	f.anomalyCalls++
	return f.anomaly(req)
}

func (f *fakeProvider) Train(ctx context.Context, req *signals.TrainRequest) (*signals.TrainResponse, error) {
	f.trainCalls++
	return f.train(req)
}

func (f *fakeProvider) Health(ctx context.Context) (*signals.HealthResponse, error) {
	return &signals.HealthResponse{Status: "healthy", ModelLoaded: true}, nil
}
