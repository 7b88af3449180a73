package market

import (
	"sort"
	"time"

	"github.com/KeyzrSoze/signals/internal/contracts"
	"github.com/KeyzrSoze/signals/pkg/logger"
)

// Aggregator computes per-(date, ingredient) concentration metrics from
// the price spine and the entity map. Snapshots are recomputed fully on
// every run; nothing is mutated incrementally.
type Aggregator struct {
	log *logger.Logger
}

// NewAggregator creates a market structure aggregator.
func NewAggregator(log *logger.Logger) *Aggregator {
	return &Aggregator{log: log.Component("market.aggregator")}
}

// Compute derives market snapshots. Market share is the fraction of an
// ingredient's observed entities sold by one manufacturer on that date;
// the Herfindahl index is the sum of squared shares. A (date, ingredient)
// pair with no observations is simply absent from the output; default
// filling belongs to the composer. Observations without an entity
// mapping are skipped, matching the inner-join semantics of the spine ×
// map merge.
func (a *Aggregator) Compute(obs []contracts.PriceObservation, entities contracts.EntityIndex) []contracts.MarketSnapshot {
	type cell struct {
		date       time.Time
		ingredient string
	}

	counts := make(map[cell]map[string]int)
	var unmapped int

	for _, o := range obs {
		mapping, ok := entities[o.EntityID]
		if !ok {
			unmapped++
			continue
		}

		c := cell{date: o.Date, ingredient: mapping.IngredientKey}
		if counts[c] == nil {
			counts[c] = make(map[string]int)
		}
		counts[c][mapping.ManufacturerName]++
	}

	snapshots := make([]contracts.MarketSnapshot, 0, len(counts))
	for c, byManufacturer := range counts {
		total := 0
		for _, n := range byManufacturer {
			total += n
		}

		hhi := 0.0
		for _, n := range byManufacturer {
			share := float64(n) / float64(total)
			hhi += share * share
		}

		snapshots = append(snapshots, contracts.MarketSnapshot{
			Date:            c.date,
			IngredientKey:   c.ingredient,
			HerfindahlIndex: hhi,
			CompetitorCount: len(byManufacturer),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		if !snapshots[i].Date.Equal(snapshots[j].Date) {
			return snapshots[i].Date.Before(snapshots[j].Date)
		}
		return snapshots[i].IngredientKey < snapshots[j].IngredientKey
	})

	a.log.WithFields(map[string]interface{}{
		"snapshots": len(snapshots),
		"unmapped":  unmapped,
	}).Info("market structure computed")

	return snapshots
}
