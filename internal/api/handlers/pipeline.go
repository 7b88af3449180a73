package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/KeyzrSoze/signals/internal/contracts"
	"github.com/KeyzrSoze/signals/internal/pipeline"
	"github.com/KeyzrSoze/signals/pkg/logger"
)

// PipelineHandler serves the feature table and run triggers.
type PipelineHandler struct {
	runner *pipeline.Runner
	logger *logger.Logger
}

// NewPipelineHandler creates a pipeline handler.
func NewPipelineHandler(runner *pipeline.Runner, log *logger.Logger) *PipelineHandler {
	return &PipelineHandler{
		runner: runner,
		logger: log,
	}
}

// FeaturesResponse summarizes the persisted feature table.
type FeaturesResponse struct {
	Rows       int       `json:"rows"`
	Entities   int       `json:"entities"`
	LatestDate time.Time `json:"latest_date"`
}

// GetFeatures returns a summary of the current feature table.
// GET /api/features
func (h *PipelineHandler) GetFeatures(w http.ResponseWriter, r *http.Request) {
	rows, err := h.runner.LoadFeatureTable()
	if err != nil {
		if errors.Is(err, contracts.ErrMissingInput) {
			respondError(w, http.StatusNotFound, "feature table not built yet")
			return
		}
		h.logger.WithError(err).Error("failed to read feature table")
		respondError(w, http.StatusInternalServerError, "failed to read feature table")
		return
	}

	resp := FeaturesResponse{Rows: len(rows)}
	entities := make(map[string]struct{})
	for _, row := range rows {
		entities[row.EntityID] = struct{}{}
		if row.Date.After(resp.LatestDate) {
			resp.LatestDate = row.Date
		}
	}
	resp.Entities = len(entities)

	respondJSON(w, http.StatusOK, resp)
}

// RunResponse reports what a triggered cycle did.
type RunResponse struct {
	Status   string `json:"status"`
	Resolved int    `json:"resolved"`
	Logged   int    `json:"logged"`
}

// Run triggers a full cycle immediately.
// POST /api/run
func (h *PipelineHandler) Run(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("pipeline run triggered via API")

	result, err := h.runner.RunCycle(r.Context(), time.Now().UTC())
	if err != nil {
		h.logger.WithError(err).Error("triggered run failed")
		respondError(w, http.StatusInternalServerError, "run failed: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, RunResponse{
		Status:   "success",
		Resolved: result.Resolved,
		Logged:   result.Logged,
	})
}
