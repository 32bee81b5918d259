package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"labelsweep/internal/service"
)

type CorrectionHandler interface {
	Preview(c *gin.Context)
	Apply(c *gin.Context)
}

type correctionHandler struct {
	correctionService service.CorrectionService
	logger            *zap.Logger
}

func NewCorrectionHandler(correctionService service.CorrectionService, logger *zap.Logger) CorrectionHandler {
	return &correctionHandler{correctionService: correctionService, logger: logger}
}

type ApplyCorrectionsRequest struct {
	DatasetID int64 `json:"dataset_id" binding:"required"`
	Iteration int   `json:"iteration"`
}

// Preview handles GET /api/v1/corrections/preview/:dataset_id
// Query parameters: iteration (0 or absent means latest).
func (h *correctionHandler) Preview(c *gin.Context) {
	datasetID, err := strconv.ParseInt(c.Param("dataset_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dataset ID"})
		return
	}

	result, err := h.correctionService.Preview(datasetID, queryInt(c, "iteration", 0))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Apply handles POST /api/v1/corrections/apply
func (h *correctionHandler) Apply(c *gin.Context) {
	var req ApplyCorrectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.correctionService.Apply(req.DatasetID, req.Iteration)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
