package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"labelsweep/internal/signals"
)

type HealthHandler interface {
	Health(c *gin.Context)
}

type healthHandler struct {
	db        *sqlx.DB
	provider  signals.Provider
	signalURL string
	logger    *zap.Logger
}

func NewHealthHandler(db *sqlx.DB, provider signals.Provider, signalURL string, logger *zap.Logger) HealthHandler {
	return &healthHandler{db: db, provider: provider, signalURL: signalURL, logger: logger}
}

// Health handles GET /health
func (h *healthHandler) Health(c *gin.Context) {
	overall := "ok"

	database := "up"
	if err := h.db.Ping(); err != nil {
		h.logger.Error("Database ping failed", zap.Error(err))
		database = "down"
		overall = "degraded"
	}

	signalService := "disabled"
	if h.signalURL != "" {
		signalService = "up"
		if _, err := h.provider.Health(c.Request.Context()); err != nil {
			h.logger.Warn("Signal service health check failed", zap.Error(err))
			signalService = "down"
			overall = "degraded"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         overall,
		"database":       database,
		"signal_service": signalService,
	})
}
