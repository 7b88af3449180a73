package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/KeyzrSoze/signals/internal/contracts"
	"github.com/KeyzrSoze/signals/internal/fusion"
	"github.com/KeyzrSoze/signals/pkg/logger"
	"github.com/KeyzrSoze/signals/pkg/metrics"
)

// Ledger is the append-only prediction registry. Log appends PENDING
// predictions for the latest feature slice; Reconcile settles matured
// ones against ground truth. Both read the whole registry, transform in
// memory, and save once, so every invocation is all-or-nothing.
type Ledger struct {
	store     Store
	lookahead time.Duration
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// New creates a ledger over the given store with the given prediction
// horizon.
func New(store Store, lookaheadDays int, log *logger.Logger, m *metrics.Metrics) *Ledger {
	return &Ledger{
		store:     store,
		lookahead: time.Duration(lookaheadDays) * 24 * time.Hour,
		log:       log.Component("ledger"),
		metrics:   m,
	}
}

// Log records one PENDING prediction per entity in the latest-dated
// feature slice, scored by the model output in scores. A slice dated
// after now is refused outright: it signals clock or data skew. Entities
// the model produced no score for are skipped. Rows whose prediction id is
// already in the registry are skipped too, which makes re-running a
// cycle over the same slice a no-op. Returns the number of rows
// appended.
func (l *Ledger) Log(ctx context.Context, features []contracts.FeatureRow, scores map[string]float64, now time.Time) (int, error) {
	slice := latestSlice(features)
	if len(slice) == 0 {
		l.log.Warn("no feature rows to log predictions for")
		return 0, nil
	}
	predictionDate := slice[0].Date
	if predictionDate.After(now) {
		return 0, fmt.Errorf("latest feature slice is dated %s, after run time %s",
			predictionDate.Format("2006-01-02"), now.Format("2006-01-02"))
	}

	existing, err := l.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load registry: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		known[rec.PredictionID] = struct{}{}
	}

	appended := 0
	unscored := 0
	for _, row := range slice {
		score, ok := scores[row.EntityID]
		if !ok {
			unscored++
			continue
		}

		id := PredictionID(predictionDate, row.EntityID)
		if _, dup := known[id]; dup {
			continue
		}
		known[id] = struct{}{}

		existing = append(existing, contracts.PredictionRecord{
			PredictionID:   id,
			PredictionDate: predictionDate,
			TargetDate:     predictionDate.Add(l.lookahead),
			EntityID:       row.EntityID,
			DrugName:       row.Description,
			StartPrice:     row.UnitPrice,
			PredictedScore: score,
			Status:         contracts.StatusPending,
		})
		appended++
	}

	if appended > 0 {
		if err := l.store.Save(ctx, existing); err != nil {
			return 0, fmt.Errorf("save registry: %w", err)
		}
	}

	l.metrics.PredictionsLogged.Add(float64(appended))
	l.log.WithFields(map[string]interface{}{
		"prediction_date": predictionDate.Format("2006-01-02"),
		"slice_rows":      len(slice),
		"appended":        appended,
		"unscored":        unscored,
		"registry_total":  len(existing),
	}).Info("predictions logged")

	return appended, nil
}

// Reconcile settles every PENDING record whose target date has passed,
// looking up the realized price with a backward as-of match on the
// ground-truth series (no staleness cap: the latest observation at or
// before the target date counts). Records with no ground truth at all
// stay PENDING for a later cycle. Returns the number of rows resolved.
func (l *Ledger) Reconcile(ctx context.Context, truth []contracts.PriceObservation, now time.Time) (int, error) {
	records, err := l.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load registry: %w", err)
	}

	due := 0
	for _, rec := range records {
		if rec.Due(now) {
			due++
		}
	}
	if due == 0 {
		l.log.Debug("no predictions due for reconciliation")
		return 0, nil
	}

	points := make([]fusion.Point, 0, len(truth))
	for _, obs := range truth {
		points = append(points, fusion.Point{
			Key:   obs.EntityID,
			Date:  obs.Date,
			Value: obs.UnitPrice,
		})
	}
	actuals := fusion.NewJoiner(points, fusion.Options{Reduce: fusion.Last})

	resolved := 0
	for i := range records {
		rec := &records[i]
		if !rec.Due(now) {
			continue
		}

		m := actuals.Lookup(rec.EntityID, rec.TargetDate)
		if !m.OK {
			continue
		}

		actual := m.Point.Value
		outcome := 0.0
		if rec.StartPrice != 0 {
			outcome = (actual - rec.StartPrice) / rec.StartPrice
		}
		rec.ActualPrice = &actual
		rec.OutcomePct = &outcome
		rec.Status = contracts.StatusResolved
		resolved++
	}

	if resolved > 0 {
		if err := l.store.Save(ctx, records); err != nil {
			return 0, fmt.Errorf("save registry: %w", err)
		}
	}

	l.metrics.PredictionsResolved.Add(float64(resolved))
	l.log.WithFields(map[string]interface{}{
		"due":      due,
		"resolved": resolved,
	}).Info("predictions reconciled")

	return resolved, nil
}

// Records returns the full registry, oldest prediction first.
func (l *Ledger) Records(ctx context.Context) ([]contracts.PredictionRecord, error) {
	records, err := l.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].PredictionDate.Equal(records[j].PredictionDate) {
			return records[i].PredictionDate.Before(records[j].PredictionDate)
		}
		return records[i].EntityID < records[j].EntityID
	})
	return records, nil
}

// latestSlice returns the rows carrying the greatest date in the table.
func latestSlice(features []contracts.FeatureRow) []contracts.FeatureRow {
	var latest time.Time
	for _, row := range features {
		if row.Date.After(latest) {
			latest = row.Date
		}
	}
	if latest.IsZero() {
		return nil
	}

	var slice []contracts.FeatureRow
	for _, row := range features {
		if row.Date.Equal(latest) {
			slice = append(slice, row)
		}
	}
	return slice
}
