package features

import (
	"sort"
	"time"

	"github.com/KeyzrSoze/signals/internal/contracts"
	"github.com/KeyzrSoze/signals/internal/fusion"
	"github.com/KeyzrSoze/signals/pkg/config"
	"github.com/KeyzrSoze/signals/pkg/logger"
	"github.com/KeyzrSoze/signals/pkg/metrics"
)

// Composer merges market structure, price dynamics, and fused event
// signals onto the price spine, one row per (date, entity).
type Composer struct {
	cfg     config.PipelineConfig
	log     *logger.Logger
	metrics *metrics.Metrics
}

// Inputs are the upstream feature sets. Shortages and Risks may be built
// from empty streams when their files are absent; every lookup then
// misses and the conservative defaults apply.
type Inputs struct {
	Spine     []contracts.PriceObservation
	Entities  contracts.EntityIndex
	Snapshots []contracts.MarketSnapshot
	Dynamics  []contracts.DynamicsRow
	Shortages *fusion.ShortageJoiner
	Risks     *fusion.RiskJoiner
}

// NewComposer creates a feature table composer.
func NewComposer(cfg config.PipelineConfig, log *logger.Logger, m *metrics.Metrics) *Composer {
	return &Composer{
		cfg:     cfg,
		log:     log.Component("features.composer"),
		metrics: m,
	}
}

// Compose builds the fused feature table. Columns still empty after the
// merge receive fixed defaults: assume competitive, assume no known
// risk. That is a conservative-bias policy, not a data-quality signal.
// Output is sorted by (date, entity).
func (c *Composer) Compose(in Inputs) []contracts.FeatureRow {
	type snapKey struct {
		date       time.Time
		ingredient string
	}
	snapshots := make(map[snapKey]contracts.MarketSnapshot, len(in.Snapshots))
	for _, s := range in.Snapshots {
		snapshots[snapKey{date: s.Date, ingredient: s.IngredientKey}] = s
	}

	type dynKey struct {
		entity string
		date   time.Time
	}
	dynamics := make(map[dynKey]contracts.DynamicsRow, len(in.Dynamics))
	for _, d := range in.Dynamics {
		dynamics[dynKey{entity: d.EntityID, date: d.Date}] = d
	}

	var snapshotMisses, shortageMisses, riskMisses int

	rows := make([]contracts.FeatureRow, 0, len(in.Spine))
	for _, o := range in.Spine {
		row := contracts.FeatureRow{
			Date:            o.Date,
			EntityID:        o.EntityID,
			UnitPrice:       o.UnitPrice,
			Description:     o.Description,
			HerfindahlIndex: c.cfg.DefaultHHI,
			CompetitorCount: c.cfg.DefaultCompetitors,
			RiskScore:       c.cfg.DefaultRiskScore,
		}

		if d, ok := dynamics[dynKey{entity: o.EntityID, date: o.Date}]; ok {
			row.Momentum4 = d.Momentum4
			row.Volatility12 = d.Volatility12
		}

		mapping, mapped := in.Entities[o.EntityID]
		if mapped {
			row.IngredientKey = mapping.IngredientKey
			row.ManufacturerName = mapping.ManufacturerName

			if s, ok := snapshots[snapKey{date: o.Date, ingredient: mapping.IngredientKey}]; ok {
				row.HerfindahlIndex = s.HerfindahlIndex
				row.CompetitorCount = s.CompetitorCount
			} else {
				snapshotMisses++
			}

			sig := in.Shortages.Signal(mapping.IngredientKey, o.Date)
			row.ShortageActive = sig.Active
			row.WeeksInShortage = sig.WeeksInShortage
			if sig.Active == 0 {
				shortageMisses++
			}

			if score, ok := in.Risks.Score(mapping.ManufacturerName, o.Date); ok {
				row.RiskScore = score
			} else {
				riskMisses++
			}
		} else {
			snapshotMisses++
			shortageMisses++
			riskMisses++
		}

		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].EntityID < rows[j].EntityID
	})

	c.metrics.FeatureRows.Add(float64(len(rows)))
	c.metrics.JoinMisses.WithLabelValues("market").Add(float64(snapshotMisses))
	c.metrics.JoinMisses.WithLabelValues("shortage").Add(float64(shortageMisses))
	c.metrics.JoinMisses.WithLabelValues("risk").Add(float64(riskMisses))
	c.log.WithFields(map[string]interface{}{
		"rows":            len(rows),
		"market_misses":   snapshotMisses,
		"shortage_misses": shortageMisses,
		"risk_misses":     riskMisses,
	}).Info("feature table composed")

	return rows
}
