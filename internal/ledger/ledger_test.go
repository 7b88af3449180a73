package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KeyzrSoze/signals/internal/contracts"
	"github.com/KeyzrSoze/signals/pkg/logger"
	"github.com/KeyzrSoze/signals/pkg/metrics"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	store := NewFileStore(filepath.Join(t.TempDir(), "registry.csv"))
	return New(store, 28, logger.Nop(), metrics.New())
}

func featureSlice(date time.Time) []contracts.FeatureRow {
	return []contracts.FeatureRow{
		{Date: date, EntityID: "00078013301", UnitPrice: 100, Description: "GABAPENTIN 300MG"},
		{Date: date, EntityID: "00002143380", UnitPrice: 0.42, Description: "AMOXICILLIN"},
	}
}

func TestPredictionIDIsDeterministic(t *testing.T) {
	date := day(2026, 1, 20)
	assert.Equal(t, PredictionID(date, "00078013301"), PredictionID(date, "00078013301"))
	assert.NotEqual(t, PredictionID(date, "00078013301"), PredictionID(date, "00002143380"))
	assert.NotEqual(t, PredictionID(date, "00078013301"), PredictionID(day(2026, 1, 27), "00078013301"))
}

func TestLogAppendsPendingPredictions(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	date := day(2026, 1, 20)
	scores := map[string]float64{"00078013301": 0.9, "00002143380": 0.1}

	n, err := l.Log(ctx, featureSlice(date), scores, date)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := l.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, contracts.StatusPending, rec.Status)
		assert.Equal(t, date, rec.PredictionDate)
		assert.Equal(t, date.Add(28*24*time.Hour), rec.TargetDate)
		assert.Nil(t, rec.ActualPrice)
		assert.Nil(t, rec.OutcomePct)
	}
}

func TestLogIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	date := day(2026, 1, 20)
	scores := map[string]float64{"00078013301": 0.9, "00002143380": 0.1}

	first, err := l.Log(ctx, featureSlice(date), scores, date)
	require.NoError(t, err)
	assert.Equal(t, 2, first)

	second, err := l.Log(ctx, featureSlice(date), scores, date)
	require.NoError(t, err)
	assert.Zero(t, second, "same slice re-logged must append nothing")

	records, err := l.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestLogOnlyTakesLatestSlice(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	features := append(featureSlice(day(2026, 1, 13)), featureSlice(day(2026, 1, 20))...)
	scores := map[string]float64{"00078013301": 0.9, "00002143380": 0.1}

	n, err := l.Log(ctx, features, scores, day(2026, 1, 20))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := l.Records(ctx)
	require.NoError(t, err)
	for _, rec := range records {
		assert.Equal(t, day(2026, 1, 20), rec.PredictionDate)
	}
}

func TestLogRefusesFutureDatedSlice(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	scores := map[string]float64{"00078013301": 0.9, "00002143380": 0.1}

	_, err := l.Log(ctx, featureSlice(day(2026, 1, 27)), scores, day(2026, 1, 20))
	require.Error(t, err, "a slice dated after the run time signals clock or data skew")

	records, err := l.Records(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLogSkipsUnscoredEntities(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	n, err := l.Log(ctx, featureSlice(day(2026, 1, 20)), map[string]float64{"00078013301": 0.9}, day(2026, 1, 20))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReconcileResolvesDuePredictions(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	predicted := day(2026, 1, 2)
	target := predicted.Add(28 * 24 * time.Hour) // 2026-01-30

	n, err := l.Log(ctx, []contracts.FeatureRow{
		{Date: predicted, EntityID: "00078013301", UnitPrice: 100},
	}, map[string]float64{"00078013301": 0.9}, predicted)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	truth := []contracts.PriceObservation{
		{EntityID: "00078013301", Date: predicted, UnitPrice: 100},
		{EntityID: "00078013301", Date: day(2026, 1, 28), UnitPrice: 115},
	}

	resolved, err := l.Reconcile(ctx, truth, target)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	records, err := l.Records(ctx)
	require.NoError(t, err)
	rec := records[0]
	assert.Equal(t, contracts.StatusResolved, rec.Status)
	require.NotNil(t, rec.ActualPrice)
	require.NotNil(t, rec.OutcomePct)
	assert.Equal(t, 115.0, *rec.ActualPrice, "as-of match takes the latest price at or before target")
	assert.InDelta(t, 0.15, *rec.OutcomePct, 1e-9)
}

func TestReconcileLeavesImmaturePredictionsPending(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	predicted := day(2026, 1, 20)

	_, err := l.Log(ctx, []contracts.FeatureRow{
		{Date: predicted, EntityID: "00078013301", UnitPrice: 100},
	}, map[string]float64{"00078013301": 0.9}, predicted)
	require.NoError(t, err)

	truth := []contracts.PriceObservation{
		{EntityID: "00078013301", Date: predicted, UnitPrice: 100},
	}

	// One day before the target date: nothing is due.
	resolved, err := l.Reconcile(ctx, truth, predicted.Add(27*24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, resolved)

	records, err := l.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusPending, records[0].Status)
}

func TestReconcileWithoutGroundTruthKeepsPending(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	predicted := day(2026, 1, 2)

	_, err := l.Log(ctx, []contracts.FeatureRow{
		{Date: predicted, EntityID: "00078013301", UnitPrice: 100},
	}, map[string]float64{"00078013301": 0.9}, predicted)
	require.NoError(t, err)

	resolved, err := l.Reconcile(ctx, nil, predicted.Add(60*24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, resolved)

	records, err := l.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusPending, records[0].Status)
}

func TestReconcileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)
	predicted := day(2026, 1, 2)
	now := predicted.Add(40 * 24 * time.Hour)

	_, err := l.Log(ctx, []contracts.FeatureRow{
		{Date: predicted, EntityID: "00078013301", UnitPrice: 100},
	}, map[string]float64{"00078013301": 0.9}, predicted)
	require.NoError(t, err)

	truth := []contracts.PriceObservation{
		{EntityID: "00078013301", Date: day(2026, 1, 28), UnitPrice: 115},
		// Later observation that must never overwrite a settled outcome.
		{EntityID: "00078013301", Date: day(2026, 3, 1), UnitPrice: 300},
	}

	first, err := l.Reconcile(ctx, truth, now)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := l.Reconcile(ctx, truth, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, second)

	records, err := l.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, 115.0, *records[0].ActualPrice)
}

func TestReconcileThenLogKeepsLedgerAdditive(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	week1 := day(2026, 1, 2)
	_, err := l.Log(ctx, []contracts.FeatureRow{
		{Date: week1, EntityID: "00078013301", UnitPrice: 100},
	}, map[string]float64{"00078013301": 0.9}, week1)
	require.NoError(t, err)

	now := day(2026, 2, 6)
	truth := []contracts.PriceObservation{
		{EntityID: "00078013301", Date: day(2026, 1, 30), UnitPrice: 110},
	}
	resolved, err := l.Reconcile(ctx, truth, now)
	require.NoError(t, err)
	require.Equal(t, 1, resolved)

	appended, err := l.Log(ctx, []contracts.FeatureRow{
		{Date: now, EntityID: "00078013301", UnitPrice: 110},
	}, map[string]float64{"00078013301": 0.4}, now)
	require.NoError(t, err)
	require.Equal(t, 1, appended)

	records, err := l.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, contracts.StatusResolved, records[0].Status)
	assert.Equal(t, contracts.StatusPending, records[1].Status)
}
