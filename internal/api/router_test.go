package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KeyzrSoze/signals/internal/api/handlers"
	"github.com/KeyzrSoze/signals/internal/contracts"
	"github.com/KeyzrSoze/signals/internal/ledger"
	"github.com/KeyzrSoze/signals/internal/pipeline"
	"github.com/KeyzrSoze/signals/pkg/config"
	"github.com/KeyzrSoze/signals/pkg/logger"
	"github.com/KeyzrSoze/signals/pkg/metrics"
	"github.com/KeyzrSoze/signals/pkg/redis"
)

func seededRouter(t *testing.T) http.Handler {
	t.Helper()
	log := logger.Nop()
	store := ledger.NewFileStore(filepath.Join(t.TempDir(), "registry.csv"))
	led := ledger.New(store, 28, log, metrics.New())

	date := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	_, err := led.Log(context.Background(), []contracts.FeatureRow{
		{Date: date, EntityID: "00078013301", UnitPrice: 100, Description: "GABAPENTIN 300MG"},
	}, map[string]float64{"00078013301": 0.9}, date)
	require.NoError(t, err)

	cfg := &config.Config{
		Data: config.DataConfig{
			Dir:          t.TempDir(),
			FeatureTable: "weekly_features.csv",
		},
		Pipeline: config.PipelineConfig{SpikeScoreCutoff: 0.5, SpikeReturnCutoff: 0.05},
	}
	client, err := redis.New(cfg)
	require.NoError(t, err)
	lock := redis.NewRunLock(client, "signals:test", time.Minute)
	runner := pipeline.NewRunner(cfg, led, lock, log, metrics.New())

	ledgerHandler := handlers.NewLedgerHandler(led, cfg.Pipeline, log)
	pipelineHandler := handlers.NewPipelineHandler(runner, log)
	return NewRouter(ledgerHandler, pipelineHandler, log)
}

func TestHealthEndpoint(t *testing.T) {
	router := seededRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestLedgerSummaryEndpoint(t *testing.T) {
	router := seededRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/ledger?records=true", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp handlers.SummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, 1, resp.Pending)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "00078013301", resp.Records[0].EntityID)
}

func TestFeaturesEndpointBeforeFirstBuild(t *testing.T) {
	router := seededRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/features", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScorecardEndpoint(t *testing.T) {
	router := seededRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/ledger/scorecard", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var card ledger.Scorecard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
	assert.Equal(t, 1, card.Total)
	assert.Equal(t, 1, card.Pending)
	assert.Zero(t, card.Resolved)
}
