package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"labelsweep/internal/repository"
	"labelsweep/internal/service"
)

type DetectionHandler interface {
	Run(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Stats(c *gin.Context)
	SignalStats(c *gin.Context)
	ListRuns(c *gin.Context)
}

type detectionHandler struct {
	detectionService service.DetectionService
	logger           *zap.Logger
}

func NewDetectionHandler(detectionService service.DetectionService, logger *zap.Logger) DetectionHandler {
	return &detectionHandler{detectionService: detectionService, logger: logger}
}

type PriorityWeightsInput struct {
	Confidence *float64 `json:"confidence"`
	Anomaly    *float64 `json:"anomaly"`
}

type RunDetectionRequest struct {
	DatasetID           int64                 `json:"dataset_id" binding:"required"`
	ConfidenceThreshold *float64              `json:"confidence_threshold"`
	PriorityWeights     *PriorityWeightsInput `json:"priority_weights"`
}

// Run handles POST /api/v1/detection/run
func (h *detectionHandler) Run(c *gin.Context) {
	var req RunDetectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := service.RunParams{
		DatasetID:           req.DatasetID,
		ConfidenceThreshold: req.ConfidenceThreshold,
	}
	if req.PriorityWeights != nil {
		params.ConfidenceWeight = req.PriorityWeights.Confidence
		params.AnomalyWeight = req.PriorityWeights.Anomaly
	}

	result, err := h.detectionService.Run(c.Request.Context(), params)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// List handles GET /api/v1/detection
// Query parameters: dataset_id, iteration, min_priority, min_confidence,
// min_anomaly, signal_type, limit, offset.
func (h *detectionHandler) List(c *gin.Context) {
	filter := repository.DetectionFilter{
		DatasetID:     queryInt64(c, "dataset_id"),
		Iteration:     queryInt(c, "iteration", 0),
		MinPriority:   queryFloat(c, "min_priority"),
		MinConfidence: queryFloat(c, "min_confidence"),
		MinAnomaly:    queryFloat(c, "min_anomaly"),
		SignalType:    c.Query("signal_type"),
		Limit:         queryInt(c, "limit", 100),
		Offset:        queryInt(c, "offset", 0),
	}

	detections, err := h.detectionService.ListDetections(filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"detections": detections, "count": len(detections)})
}

// Get handles GET /api/v1/detection/:id
func (h *detectionHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid detection ID"})
		return
	}

	detail, err := h.detectionService.Get(id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// Stats handles GET /api/v1/detection/stats/:dataset_id
func (h *detectionHandler) Stats(c *gin.Context) {
	datasetID, err := strconv.ParseInt(c.Param("dataset_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dataset ID"})
		return
	}

	stats, err := h.detectionService.Stats(datasetID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// SignalStats handles GET /api/v1/detection/signal-stats/:dataset_id
func (h *detectionHandler) SignalStats(c *gin.Context) {
	datasetID, err := strconv.ParseInt(c.Param("dataset_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dataset ID"})
		return
	}

	breakdown, err := h.detectionService.SignalBreakdown(datasetID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, breakdown)
}

// ListRuns handles GET /api/v1/detection/runs/:dataset_id
func (h *detectionHandler) ListRuns(c *gin.Context) {
	datasetID, err := strconv.ParseInt(c.Param("dataset_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dataset ID"})
		return
	}

	runs, err := h.detectionService.ListRuns(datasetID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}
