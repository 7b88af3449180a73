package market

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KeyzrSoze/signals/internal/contracts"
	"github.com/KeyzrSoze/signals/pkg/logger"
)

func day(year, month, dayOfMonth int) time.Time {
	return time.Date(year, time.Month(month), dayOfMonth, 0, 0, 0, 0, time.UTC)
}

// buildMarket creates a spine plus entity map with the given number of
// product lines per manufacturer for one ingredient on one date.
func buildMarket(t *testing.T, date time.Time, ingredient string, lines map[string]int) ([]contracts.PriceObservation, contracts.EntityIndex) {
	t.Helper()

	var obs []contracts.PriceObservation
	index := make(contracts.EntityIndex)
	serial := 0

	for manufacturer, n := range lines {
		for i := 0; i < n; i++ {
			entity := fmt.Sprintf("%011d", serial)
			serial++
			obs = append(obs, contracts.PriceObservation{
				EntityID: entity, Date: date, UnitPrice: 1.0,
			})
			index[entity] = contracts.EntityMapping{
				EntityID:         entity,
				IngredientKey:    ingredient,
				ManufacturerName: manufacturer,
			}
		}
	}

	return obs, index
}

func TestComputeHHIAndCompetitorCount(t *testing.T) {
	// 3 manufacturers with 5, 3, 2 lines: shares 0.5/0.3/0.2, HHI 0.38.
	obs, index := buildMarket(t, day(2025, 6, 1), "GABAPENTIN", map[string]int{
		"Teva":   5,
		"Sandoz": 3,
		"Lupin":  2,
	})

	snapshots := NewAggregator(logger.Nop()).Compute(obs, index)
	require.Len(t, snapshots, 1)

	snap := snapshots[0]
	assert.Equal(t, "GABAPENTIN", snap.IngredientKey)
	assert.Equal(t, 3, snap.CompetitorCount)
	assert.InDelta(t, 0.38, snap.HerfindahlIndex, 1e-9)
}

func TestComputeSingleManufacturerIsMonopoly(t *testing.T) {
	obs, index := buildMarket(t, day(2025, 6, 1), "LISINOPRIL", map[string]int{
		"Solo Pharma": 4,
	})

	snapshots := NewAggregator(logger.Nop()).Compute(obs, index)
	require.Len(t, snapshots, 1)
	assert.Equal(t, 1.0, snapshots[0].HerfindahlIndex)
	assert.Equal(t, 1, snapshots[0].CompetitorCount)
}

func TestComputeShareNormalizationAndBounds(t *testing.T) {
	obs, index := buildMarket(t, day(2025, 6, 1), "METFORMIN", map[string]int{
		"A": 7, "B": 5, "C": 3, "D": 1,
	})

	snapshots := NewAggregator(logger.Nop()).Compute(obs, index)
	require.Len(t, snapshots, 1)

	// HHI bounds hold for any distribution.
	snap := snapshots[0]
	assert.Greater(t, snap.HerfindahlIndex, 0.0)
	assert.LessOrEqual(t, snap.HerfindahlIndex, 1.0)
	assert.GreaterOrEqual(t, snap.CompetitorCount, 1)

	// Shares sum to 1: HHI of an even 4-way split is exactly 0.25.
	evenObs, evenIndex := buildMarket(t, day(2025, 6, 8), "METFORMIN", map[string]int{
		"A": 2, "B": 2, "C": 2, "D": 2,
	})
	even := NewAggregator(logger.Nop()).Compute(evenObs, evenIndex)
	require.Len(t, even, 1)
	assert.InDelta(t, 0.25, even[0].HerfindahlIndex, 1e-9)
}

func TestComputeSkipsUnmappedEntitiesAndAbsentDates(t *testing.T) {
	obs := []contracts.PriceObservation{
		{EntityID: "00000000001", Date: day(2025, 6, 1), UnitPrice: 1},
		{EntityID: "99999999999", Date: day(2025, 6, 1), UnitPrice: 1}, // unmapped
	}
	index := contracts.EntityIndex{
		"00000000001": {EntityID: "00000000001", IngredientKey: "GABAPENTIN", ManufacturerName: "Teva"},
	}

	snapshots := NewAggregator(logger.Nop()).Compute(obs, index)
	require.Len(t, snapshots, 1)
	assert.Equal(t, 1, snapshots[0].CompetitorCount)

	// No observations at all: no zero-filled snapshots appear.
	empty := NewAggregator(logger.Nop()).Compute(nil, index)
	assert.Empty(t, empty)
}

func TestComputeSeparatesDates(t *testing.T) {
	index := contracts.EntityIndex{
		"00000000001": {EntityID: "00000000001", IngredientKey: "GABAPENTIN", ManufacturerName: "Teva"},
		"00000000002": {EntityID: "00000000002", IngredientKey: "GABAPENTIN", ManufacturerName: "Sandoz"},
	}
	obs := []contracts.PriceObservation{
		{EntityID: "00000000001", Date: day(2025, 6, 1), UnitPrice: 1},
		{EntityID: "00000000002", Date: day(2025, 6, 1), UnitPrice: 1},
		{EntityID: "00000000001", Date: day(2025, 6, 8), UnitPrice: 1}, // Sandoz dropped out
	}

	snapshots := NewAggregator(logger.Nop()).Compute(obs, index)
	require.Len(t, snapshots, 2)
	assert.InDelta(t, 0.5, snapshots[0].HerfindahlIndex, 1e-9)
	assert.Equal(t, 2, snapshots[0].CompetitorCount)
	assert.Equal(t, 1.0, snapshots[1].HerfindahlIndex)
	assert.Equal(t, 1, snapshots[1].CompetitorCount)
}
