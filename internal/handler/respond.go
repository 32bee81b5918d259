package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"labelsweep/internal/apperr"
)

// respondError maps an error to its HTTP status. Internal errors are
// logged and keep their details out of the body; everything else
// surfaces its message to the caller.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	switch status {
	case http.StatusInternalServerError:
		logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "Internal server error"})
	case http.StatusBadGateway:
		logger.Error("Signal service call failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": err.Error()})
	default:
		c.JSON(status, gin.H{"error": err.Error()})
	}
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func queryInt64(c *gin.Context, name string) int64 {
	v, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func queryFloat(c *gin.Context, name string) float64 {
	v, err := strconv.ParseFloat(c.Query(name), 64)
	if err != nil {
		return 0
	}
	return v
}
