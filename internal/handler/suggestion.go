package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"labelsweep/internal/repository"
	"labelsweep/internal/service"
)

type SuggestionHandler interface {
	Generate(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Review(c *gin.Context)
	Stats(c *gin.Context)
}

type suggestionHandler struct {
	suggestionService service.SuggestionService
	reviewService     service.ReviewService
	logger            *zap.Logger
}

func NewSuggestionHandler(
	suggestionService service.SuggestionService,
	reviewService service.ReviewService,
	logger *zap.Logger,
) SuggestionHandler {
	return &suggestionHandler{
		suggestionService: suggestionService,
		reviewService:     reviewService,
		logger:            logger,
	}
}

type GenerateSuggestionsRequest struct {
	DatasetID int64 `json:"dataset_id" binding:"required"`
	Iteration int   `json:"iteration"`
	TopN      int   `json:"top_n"`
}

type ReviewSuggestionRequest struct {
	Action        string  `json:"action" binding:"required"`
	ReviewerNotes *string `json:"reviewer_notes"`
	CustomLabel   *int    `json:"custom_label"`
}

// Generate handles POST /api/v1/suggestions/generate
func (h *suggestionHandler) Generate(c *gin.Context) {
	var req GenerateSuggestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.suggestionService.Generate(req.DatasetID, req.Iteration, req.TopN)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// List handles GET /api/v1/suggestions
// Query parameters: dataset_id, iteration, status, min_confidence,
// limit, offset.
func (h *suggestionHandler) List(c *gin.Context) {
	filter := repository.SuggestionFilter{
		DatasetID:     queryInt64(c, "dataset_id"),
		Iteration:     queryInt(c, "iteration", 0),
		Status:        c.Query("status"),
		MinConfidence: queryFloat(c, "min_confidence"),
		Limit:         queryInt(c, "limit", 100),
		Offset:        queryInt(c, "offset", 0),
	}

	suggestions, err := h.suggestionService.List(filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions, "count": len(suggestions)})
}

// Get handles GET /api/v1/suggestions/:id
func (h *suggestionHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid suggestion ID"})
		return
	}

	detail, err := h.suggestionService.Get(id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// Review handles PUT /api/v1/suggestions/:id/review
func (h *suggestionHandler) Review(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid suggestion ID"})
		return
	}

	var req ReviewSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.reviewService.Review(id, service.ReviewDecision{
		Action:        req.Action,
		CustomLabel:   req.CustomLabel,
		ReviewerNotes: req.ReviewerNotes,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Stats handles GET /api/v1/suggestions/stats/:dataset_id
func (h *suggestionHandler) Stats(c *gin.Context) {
	datasetID, err := strconv.ParseInt(c.Param("dataset_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dataset ID"})
		return
	}

	stats, err := h.suggestionService.Stats(datasetID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
