package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"labelsweep/internal/repository"
	"labelsweep/internal/service"
)

type FeedbackHandler interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Stats(c *gin.Context)
	Patterns(c *gin.Context)
}

type feedbackHandler struct {
	feedbackService service.FeedbackService
	logger          *zap.Logger
}

func NewFeedbackHandler(feedbackService service.FeedbackService, logger *zap.Logger) FeedbackHandler {
	return &feedbackHandler{feedbackService: feedbackService, logger: logger}
}

// List handles GET /api/v1/feedback
// Query parameters: dataset_id, iteration, action, limit, offset.
func (h *feedbackHandler) List(c *gin.Context) {
	filter := repository.FeedbackFilter{
		DatasetID: queryInt64(c, "dataset_id"),
		Iteration: queryInt(c, "iteration", 0),
		Action:    c.Query("action"),
		Limit:     queryInt(c, "limit", 100),
		Offset:    queryInt(c, "offset", 0),
	}

	feedback, err := h.feedbackService.List(filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"feedback": feedback, "count": len(feedback)})
}

// Get handles GET /api/v1/feedback/:id
func (h *feedbackHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feedback ID"})
		return
	}

	detail, err := h.feedbackService.Get(id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// Stats handles GET /api/v1/feedback/stats/:dataset_id
func (h *feedbackHandler) Stats(c *gin.Context) {
	datasetID, err := strconv.ParseInt(c.Param("dataset_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dataset ID"})
		return
	}

	stats, err := h.feedbackService.Stats(datasetID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Patterns handles GET /api/v1/feedback/patterns/:dataset_id
// Query parameters: iteration (0 or absent spans all iterations).
func (h *feedbackHandler) Patterns(c *gin.Context) {
	datasetID, err := strconv.ParseInt(c.Param("dataset_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dataset ID"})
		return
	}

	patterns, err := h.feedbackService.LearningPatterns(datasetID, queryInt(c, "iteration", 0))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, patterns)
}
