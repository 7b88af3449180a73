package dynamics

import (
	"math"
	"sort"

	"github.com/KeyzrSoze/signals/internal/contracts"
	"github.com/KeyzrSoze/signals/pkg/config"
	"github.com/KeyzrSoze/signals/pkg/logger"
)

// Calculator derives rolling momentum and volatility per entity. Windows
// are positional over each entity's own chronological observation
// sequence, not calendar weeks: a gap in the spine shifts the window, it
// does not widen it.
type Calculator struct {
	momentumWindow   int
	volatilityWindow int
	log              *logger.Logger
}

// NewCalculator creates a dynamics calculator from the pipeline tunables.
func NewCalculator(cfg config.PipelineConfig, log *logger.Logger) *Calculator {
	return &Calculator{
		momentumWindow:   cfg.MomentumWindow,
		volatilityWindow: cfg.VolatilityWindow,
		log:              log.Component("dynamics.calculator"),
	}
}

// Compute derives one DynamicsRow per spine observation. Momentum is the
// relative change against the price N observations back; volatility is
// the coefficient of variation (stddev / mean) over the trailing M
// observations. Both are 0 until enough history exists: a deliberate
// policy, consumers cannot tell "no history" from a true zero.
// Output is sorted by (entity, date).
func (c *Calculator) Compute(obs []contracts.PriceObservation) []contracts.DynamicsRow {
	series := make(map[string][]contracts.PriceObservation)
	for _, o := range obs {
		series[o.EntityID] = append(series[o.EntityID], o)
	}

	entities := make([]string, 0, len(series))
	for entity := range series {
		entities = append(entities, entity)
	}
	sort.Strings(entities)

	rows := make([]contracts.DynamicsRow, 0, len(obs))
	for _, entity := range entities {
		prices := series[entity]
		sort.Slice(prices, func(i, j int) bool {
			return prices[i].Date.Before(prices[j].Date)
		})

		for i, p := range prices {
			row := contracts.DynamicsRow{
				EntityID: entity,
				Date:     p.Date,
			}

			if i >= c.momentumWindow {
				base := prices[i-c.momentumWindow].UnitPrice
				row.Momentum4 = (p.UnitPrice - base) / base
			}

			if i >= c.volatilityWindow-1 {
				window := prices[i-c.volatilityWindow+1 : i+1]
				row.Volatility12 = coefficientOfVariation(window)
			}

			rows = append(rows, row)
		}
	}

	c.log.WithFields(map[string]interface{}{
		"entities": len(entities),
		"rows":     len(rows),
	}).Info("price dynamics computed")

	return rows
}

// coefficientOfVariation returns sample stddev divided by mean for a
// price window. Prices are strictly positive, so the mean is never zero.
func coefficientOfVariation(window []contracts.PriceObservation) float64 {
	n := float64(len(window))

	mean := 0.0
	for _, p := range window {
		mean += p.UnitPrice
	}
	mean /= n

	if len(window) < 2 {
		return 0
	}

	variance := 0.0
	for _, p := range window {
		d := p.UnitPrice - mean
		variance += d * d
	}
	variance /= n - 1

	return math.Sqrt(variance) / mean
}
