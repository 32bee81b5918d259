package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"labelsweep/internal/service"
)

type ModelHandler interface {
	TrainBaseline(c *gin.Context)
	Retrain(c *gin.Context)
	List(c *gin.Context)
	Compare(c *gin.Context)
}

type modelHandler struct {
	modelService service.ModelService
	logger       *zap.Logger
}

func NewModelHandler(modelService service.ModelService, logger *zap.Logger) ModelHandler {
	return &modelHandler{modelService: modelService, logger: logger}
}

type TrainBaselineRequest struct {
	DatasetID int64 `json:"dataset_id" binding:"required"`
}

type RetrainRequest struct {
	DatasetID int64   `json:"dataset_id" binding:"required"`
	TestSize  float64 `json:"test_size"`
}

// TrainBaseline handles POST /api/v1/models/baseline
func (h *modelHandler) TrainBaseline(c *gin.Context) {
	var req TrainBaselineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.modelService.TrainBaseline(c.Request.Context(), req.DatasetID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"model": record})
}

// Retrain handles POST /api/v1/models/retrain
func (h *modelHandler) Retrain(c *gin.Context) {
	var req RetrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.modelService.Retrain(c.Request.Context(), req.DatasetID, req.TestSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// List handles GET /api/v1/models/:dataset_id
func (h *modelHandler) List(c *gin.Context) {
	datasetID, err := strconv.ParseInt(c.Param("dataset_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dataset ID"})
		return
	}

	records, err := h.modelService.ListModels(datasetID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"models": records, "count": len(records)})
}

// Compare handles GET /api/v1/models/compare/:dataset_id
func (h *modelHandler) Compare(c *gin.Context) {
	datasetID, err := strconv.ParseInt(c.Param("dataset_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dataset ID"})
		return
	}

	comparison, err := h.modelService.Compare(datasetID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, comparison)
}
