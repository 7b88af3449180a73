package contracts

import "time"

// PriceObservation is one point on the canonical price spine.
// Unique per (EntityID, Date); immutable once loaded.
type PriceObservation struct {
	EntityID    string    `json:"entity_id"` // 11-digit zero-padded product code
	Date        time.Time `json:"date"`
	UnitPrice   float64   `json:"unit_price"`
	Description string    `json:"description"`
}

// EntityMapping links a product code to its ingredient and manufacturer.
// Built by the entity-resolution collaborator; read-only here.
type EntityMapping struct {
	EntityID         string `json:"entity_id"`
	IngredientKey    string `json:"ingredient_key"`
	ManufacturerName string `json:"manufacturer_name"`
}

// EntityIndex is the entity map keyed by entity id for O(1) lookups.
type EntityIndex map[string]EntityMapping
