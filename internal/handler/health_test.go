package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"labelsweep/internal/repository"
	"labelsweep/internal/signals"
)

func healthRouter(db *sqlx.DB, provider signals.Provider, signalURL string) *gin.Engine {
	h := NewHealthHandler(db, provider, signalURL, zap.NewNop())
	r := gin.New()
	r.GET("/health", h.Health)
	return r
}

func healthTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repository.NewSQLiteDB(filepath.Join(t.TempDir(), "health.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func decodeHealth(t *testing.T, body []byte) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestHealthSignalServiceDisabled(t *testing.T) {
	db := healthTestDB(t)
	provider := &stubSignalProvider{
		health: func(ctx context.Context) (*signals.HealthResponse, error) {
			t.Fatal("health probe should not run when the signal service is not configured")
			return nil, nil
		},
	}

	rec := performRequest(healthRouter(db, provider, ""), http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeHealth(t, rec.Body.Bytes())
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "up", out["database"])
	assert.Equal(t, "disabled", out["signal_service"])
}

func TestHealthReportsSignalServiceUp(t *testing.T) {
	db := healthTestDB(t)
	provider := &stubSignalProvider{
		health: func(ctx context.Context) (*signals.HealthResponse, error) {
			return &signals.HealthResponse{Status: "healthy", ModelLoaded: true}, nil
		},
	}

	rec := performRequest(healthRouter(db, provider, "http://localhost:8001"), http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeHealth(t, rec.Body.Bytes())
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "up", out["signal_service"])
}

func TestHealthDegradedWhenSignalServiceDown(t *testing.T) {
	db := healthTestDB(t)
	provider := &stubSignalProvider{
		health: func(ctx context.Context) (*signals.HealthResponse, error) {
			return nil, errors.New("connection refused")
		},
	}

	rec := performRequest(healthRouter(db, provider, "http://localhost:8001"), http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeHealth(t, rec.Body.Bytes())
	assert.Equal(t, "degraded", out["status"])
	assert.Equal(t, "up", out["database"])
	assert.Equal(t, "down", out["signal_service"])
}

func TestHealthDegradedWhenDatabaseDown(t *testing.T) {
	db := healthTestDB(t)
	require.NoError(t, db.Close())
	provider := &stubSignalProvider{
		health: func(ctx context.Context) (*signals.HealthResponse, error) {
			return &signals.HealthResponse{Status: "healthy"}, nil
		},
	}

	rec := performRequest(healthRouter(db, provider, "http://localhost:8001"), http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeHealth(t, rec.Body.Bytes())
	assert.Equal(t, "degraded", out["status"])
	assert.Equal(t, "down", out["database"])
}
