package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"

	"labelsweep/internal/models"
	"labelsweep/internal/repository"
	"labelsweep/internal/service"
	"labelsweep/internal/signals"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type stubDatasetService struct {
	create            func(params service.CreateDatasetParams) (*models.Dataset, error)
	get               func(id int64) (*models.Dataset, error)
	list              func() ([]*models.Dataset, error)
	remove            func(id int64) error
	listSamples       func(datasetID int64, suspiciousOnly bool, limit, offset int) ([]*models.Sample, error)
	getSample         func(datasetID, sampleID int64) (*models.Sample, error)
	stats             func(datasetID int64) (*service.DatasetStatsResult, error)
	correctionSummary func(datasetID int64) (*service.CorrectionSummaryResult, error)
	export            func(datasetID int64) (*service.ExportResult, error)
}

func (s *stubDatasetService) Create(params service.CreateDatasetParams) (*models.Dataset, error) {
	return s.create(params)
}

func (s *stubDatasetService) Get(id int64) (*models.Dataset, error) { return s.get(id) }

func (s *stubDatasetService) List() ([]*models.Dataset, error) { return s.list() }

func (s *stubDatasetService) Delete(id int64) error { return s.remove(id) }

func (s *stubDatasetService) ListSamples(datasetID int64, suspiciousOnly bool, limit, offset int) ([]*models.Sample, error) {
	return s.listSamples(datasetID, suspiciousOnly, limit, offset)
}

func (s *stubDatasetService) GetSample(datasetID, sampleID int64) (*models.Sample, error) {
	return s.getSample(datasetID, sampleID)
}

func (s *stubDatasetService) Stats(datasetID int64) (*service.DatasetStatsResult, error) {
	return s.stats(datasetID)
}

func (s *stubDatasetService) CorrectionSummary(datasetID int64) (*service.CorrectionSummaryResult, error) {
	return s.correctionSummary(datasetID)
}

func (s *stubDatasetService) Export(datasetID int64) (*service.ExportResult, error) {
	return s.export(datasetID)
}

type stubDetectionService struct {
	run             func(params service.RunParams) (*service.RunResult, error)
	get             func(id int64) (*service.DetectionDetail, error)
	listRuns        func(datasetID int64) ([]*models.DetectionRun, error)
	listDetections  func(filter repository.DetectionFilter) ([]*models.Detection, error)
	stats           func(datasetID int64) (*service.DetectionStatsResult, error)
	signalBreakdown func(datasetID int64) (*service.SignalBreakdownResult, error)
}

func (s *stubDetectionService) Run(ctx context.Context, params service.RunParams) (*service.RunResult, error) {
	return s.run(params)
}

func (s *stubDetectionService) Get(id int64) (*service.DetectionDetail, error) { return s.get(id) }

func (s *stubDetectionService) ListRuns(datasetID int64) ([]*models.DetectionRun, error) {
	return s.listRuns(datasetID)
}

func (s *stubDetectionService) ListDetections(filter repository.DetectionFilter) ([]*models.Detection, error) {
	return s.listDetections(filter)
}

func (s *stubDetectionService) Stats(datasetID int64) (*service.DetectionStatsResult, error) {
	return s.stats(datasetID)
}

func (s *stubDetectionService) SignalBreakdown(datasetID int64) (*service.SignalBreakdownResult, error) {
	return s.signalBreakdown(datasetID)
}

type stubSuggestionService struct {
	generate func(datasetID int64, iteration, topN int) (*service.SuggestionGenerateResult, error)
	get      func(id int64) (*service.SuggestionDetail, error)
	list     func(filter repository.SuggestionFilter) ([]*models.Suggestion, error)
	stats    func(datasetID int64) (*service.SuggestionStatsResult, error)
}

func (s *stubSuggestionService) Generate(datasetID int64, iteration, topN int) (*service.SuggestionGenerateResult, error) {
	return s.generate(datasetID, iteration, topN)
}

func (s *stubSuggestionService) Get(id int64) (*service.SuggestionDetail, error) { return s.get(id) }

func (s *stubSuggestionService) List(filter repository.SuggestionFilter) ([]*models.Suggestion, error) {
	return s.list(filter)
}

func (s *stubSuggestionService) Stats(datasetID int64) (*service.SuggestionStatsResult, error) {
	return s.stats(datasetID)
}

type stubReviewService struct {
	review func(suggestionID int64, decision service.ReviewDecision) (*service.ReviewResult, error)
}

func (s *stubReviewService) Review(suggestionID int64, decision service.ReviewDecision) (*service.ReviewResult, error) {
	return s.review(suggestionID, decision)
}

type stubSignalProvider struct {
	health func(ctx context.Context) (*signals.HealthResponse, error)
}

func (s *stubSignalProvider) Predict(ctx context.Context, req *signals.PredictRequest) (*signals.PredictResponse, error) {
	panic("unexpected Predict call")
}

func (s *stubSignalProvider) AnomalyScores(ctx context.Context, req *signals.AnomalyRequest) (*signals.AnomalyResponse, error) {
	panic("unexpected AnomalyScores call")
}

func (s *stubSignalProvider) Train(ctx context.Context, req *signals.TrainRequest) (*signals.TrainResponse, error) {
	panic("unexpected Train call")
}

func (s *stubSignalProvider) Health(ctx context.Context) (*signals.HealthResponse, error) {
	return s.health(ctx)
}
