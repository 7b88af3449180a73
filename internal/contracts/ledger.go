package contracts

import "time"

// PredictionStatus is the lifecycle state of a ledger row.
type PredictionStatus string

const (
	StatusPending  PredictionStatus = "PENDING"
	StatusResolved PredictionStatus = "RESOLVED"
)

// PredictionRecord is one row of the prediction ledger.
// PredictionID is a deterministic function of (PredictionDate, EntityID),
// so re-logging the same slice can never duplicate a row. A record is
// created PENDING and transitions to RESOLVED exactly once; only
// ActualPrice, OutcomePct, and Status are ever updated in place.
type PredictionRecord struct {
	PredictionID   string           `json:"prediction_id"`
	PredictionDate time.Time        `json:"prediction_date"`
	TargetDate     time.Time        `json:"target_date"`
	EntityID       string           `json:"entity_id"`
	DrugName       string           `json:"drug_name"`
	StartPrice     float64          `json:"start_price"`
	PredictedScore float64          `json:"predicted_score"`
	ActualPrice    *float64         `json:"actual_price,omitempty"`
	OutcomePct     *float64         `json:"outcome_pct,omitempty"`
	Status         PredictionStatus `json:"status"`
}

// Resolved reports whether the record has been reconciled.
func (r PredictionRecord) Resolved() bool {
	return r.Status == StatusResolved
}

// Due reports whether the record is eligible for reconciliation at now.
func (r PredictionRecord) Due(now time.Time) bool {
	return r.Status == StatusPending && !r.TargetDate.After(now)
}
