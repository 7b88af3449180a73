package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/KeyzrSoze/signals/internal/contracts"
	"github.com/KeyzrSoze/signals/internal/ledger"
	"github.com/KeyzrSoze/signals/pkg/config"
	"github.com/KeyzrSoze/signals/pkg/logger"
)

// LedgerHandler serves read-only views of the prediction registry.
type LedgerHandler struct {
	ledger   *ledger.Ledger
	pipeline config.PipelineConfig
	logger   *logger.Logger
}

// NewLedgerHandler creates a ledger handler.
func NewLedgerHandler(led *ledger.Ledger, pipeline config.PipelineConfig, log *logger.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger:   led,
		pipeline: pipeline,
		logger:   log,
	}
}

// SummaryResponse is the registry overview.
type SummaryResponse struct {
	Total    int                          `json:"total"`
	Pending  int                          `json:"pending"`
	Resolved int                          `json:"resolved"`
	Records  []contracts.PredictionRecord `json:"records,omitempty"`
}

// GetSummary returns registry counts, with full records on request.
// GET /api/ledger?records=true&status=PENDING
func (h *LedgerHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	records, err := h.ledger.Records(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to load registry")
		respondError(w, http.StatusInternalServerError, "failed to load registry")
		return
	}

	resp := SummaryResponse{Total: len(records)}
	for _, rec := range records {
		if rec.Resolved() {
			resp.Resolved++
		} else {
			resp.Pending++
		}
	}

	if r.URL.Query().Get("records") == "true" {
		status := contracts.PredictionStatus(r.URL.Query().Get("status"))
		for _, rec := range records {
			if status != "" && rec.Status != status {
				continue
			}
			resp.Records = append(resp.Records, rec)
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetScorecard returns realized prediction quality.
// GET /api/ledger/scorecard
func (h *LedgerHandler) GetScorecard(w http.ResponseWriter, r *http.Request) {
	records, err := h.ledger.Records(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to load registry")
		respondError(w, http.StatusInternalServerError, "failed to load registry")
		return
	}

	card := ledger.BuildScorecard(records, h.pipeline.SpikeScoreCutoff, h.pipeline.SpikeReturnCutoff)
	respondJSON(w, http.StatusOK, card)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
