package contracts

import "time"

// MarketSnapshot holds market-concentration metrics for one
// (date, ingredient) pair. Recomputed fully on every run.
type MarketSnapshot struct {
	Date            time.Time `json:"date"`
	IngredientKey   string    `json:"ingredient_key"`
	HerfindahlIndex float64   `json:"herfindahl_index"` // (0, 1]
	CompetitorCount int       `json:"competitor_count"` // >= 1
}

// DynamicsRow holds rolling price dynamics for one (entity, date) pair.
// Momentum and volatility are 0 until enough history exists; consumers
// cannot distinguish "no history" from a true zero.
type DynamicsRow struct {
	EntityID     string    `json:"entity_id"`
	Date         time.Time `json:"date"`
	Momentum4    float64   `json:"momentum_4period"`
	Volatility12 float64   `json:"volatility_12period"`
}

// FeatureRow is one row of the fused feature table, keyed by
// (Date, EntityID). This is the unit the prediction model consumes.
type FeatureRow struct {
	Date             time.Time `json:"date"`
	EntityID         string    `json:"entity_id"`
	UnitPrice        float64   `json:"unit_price"`
	Description      string    `json:"description"`
	IngredientKey    string    `json:"ingredient_key"`
	ManufacturerName string    `json:"manufacturer_name"`
	Momentum4        float64   `json:"momentum_4period"`
	Volatility12     float64   `json:"volatility_12period"`
	HerfindahlIndex  float64   `json:"herfindahl_index"`
	CompetitorCount  int       `json:"competitor_count"`
	ShortageActive   int       `json:"shortage_active"`
	WeeksInShortage  float64   `json:"weeks_in_shortage"`
	RiskScore        float64   `json:"manufacturer_risk_score"`
}
