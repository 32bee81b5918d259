package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"labelsweep/internal/service"
)

type DatasetHandler interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Delete(c *gin.Context)
	ListSamples(c *gin.Context)
	GetSample(c *gin.Context)
	Stats(c *gin.Context)
	CorrectionSummary(c *gin.Context)
	Export(c *gin.Context)
}

type datasetHandler struct {
	datasetService service.DatasetService
	logger         *zap.Logger
}

func NewDatasetHandler(datasetService service.DatasetService, logger *zap.Logger) DatasetHandler {
	return &datasetHandler{datasetService: datasetService, logger: logger}
}

type SampleInput struct {
	Features []float64 `json:"features" binding:"required"`
	Label    int       `json:"label"`
}

type CreateDatasetRequest struct {
	Name         string        `json:"name" binding:"required"`
	Description  string        `json:"description"`
	FeatureNames []string      `json:"feature_names"`
	LabelColumn  string        `json:"label_column"`
	Samples      []SampleInput `json:"samples" binding:"required"`
}

// Create handles POST /api/v1/datasets
func (h *datasetHandler) Create(c *gin.Context) {
	var req CreateDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	samples := make([]service.NewSample, 0, len(req.Samples))
	for _, s := range req.Samples {
		samples = append(samples, service.NewSample{Features: s.Features, Label: s.Label})
	}

	dataset, err := h.datasetService.Create(service.CreateDatasetParams{
		Name:            req.Name,
		Description:     req.Description,
		FeatureNames:    req.FeatureNames,
		LabelColumnName: req.LabelColumn,
		Samples:         samples,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"dataset": dataset})
}

// List handles GET /api/v1/datasets
func (h *datasetHandler) List(c *gin.Context) {
	datasets, err := h.datasetService.List()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"datasets": datasets, "count": len(datasets)})
}

// Get handles GET /api/v1/datasets/:id
func (h *datasetHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dataset ID"})
		return
	}

	dataset, err := h.datasetService.Get(id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"dataset": dataset})
}

// Delete handles DELETE /api/v1/datasets/:id
func (h *datasetHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dataset ID"})
		return
	}

	if err := h.datasetService.Delete(id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Dataset deleted", "dataset_id": id})
}

// ListSamples handles GET /api/v1/datasets/:id/samples
// Query parameters: suspicious_only, limit, offset.
func (h *datasetHandler) ListSamples(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dataset ID"})
		return
	}

	suspiciousOnly := c.Query("suspicious_only") == "true"
	limit := queryInt(c, "limit", 100)
	offset := queryInt(c, "offset", 0)

	samples, err := h.datasetService.ListSamples(id, suspiciousOnly, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"samples": samples, "count": len(samples)})
}

// GetSample handles GET /api/v1/datasets/:id/samples/:sample_id
func (h *datasetHandler) GetSample(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dataset ID"})
		return
	}
	sampleID, err := strconv.ParseInt(c.Param("sample_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sample ID"})
		return
	}

	sample, err := h.datasetService.GetSample(id, sampleID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	features, err := sample.FeatureVector()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sample": sample, "features": features})
}

// Stats handles GET /api/v1/datasets/:id/stats
func (h *datasetHandler) Stats(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dataset ID"})
		return
	}

	stats, err := h.datasetService.Stats(id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// CorrectionSummary handles GET /api/v1/datasets/:id/correction-summary
func (h *datasetHandler) CorrectionSummary(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dataset ID"})
		return
	}

	summary, err := h.datasetService.CorrectionSummary(id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Export handles POST /api/v1/datasets/:id/export
func (h *datasetHandler) Export(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dataset ID"})
		return
	}

	result, err := h.datasetService.Export(id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
