package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KeyzrSoze/signals/internal/contracts"
)

func TestFileStoreMissingRegistryIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.csv"))
	records, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "out", "registry.csv"))

	actual := 115.0
	outcome := 0.15
	records := []contracts.PredictionRecord{
		{
			PredictionID:   PredictionID(day(2026, 1, 2), "00078013301"),
			PredictionDate: day(2026, 1, 2),
			TargetDate:     day(2026, 1, 30),
			EntityID:       "00078013301",
			DrugName:       "GABAPENTIN 300MG",
			StartPrice:     100,
			PredictedScore: 0.9,
			ActualPrice:    &actual,
			OutcomePct:     &outcome,
			Status:         contracts.StatusResolved,
		},
		{
			PredictionID:   PredictionID(day(2026, 1, 9), "00002143380"),
			PredictionDate: day(2026, 1, 9),
			TargetDate:     day(2026, 2, 6),
			EntityID:       "00002143380",
			DrugName:       "AMOXICILLIN",
			StartPrice:     0.42,
			PredictedScore: 0.1,
			Status:         contracts.StatusPending,
		},
	}

	require.NoError(t, store.Save(ctx, records))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestFileStoreSaveReplacesAtomically(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "registry.csv"))

	require.NoError(t, store.Save(ctx, []contracts.PredictionRecord{
		{
			PredictionID:   PredictionID(day(2026, 1, 2), "00078013301"),
			PredictionDate: day(2026, 1, 2),
			TargetDate:     day(2026, 1, 30),
			EntityID:       "00078013301",
			StartPrice:     100,
			Status:         contracts.StatusPending,
		},
	}))
	require.NoError(t, store.Save(ctx, nil))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStoreRejectsForeignHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name\n1,foo\n"), 0o644))

	store := NewFileStore(path)
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, contracts.ErrSchemaMismatch)
}

func TestFileStoreRejectsShortMidFileRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.csv")
	content := "prediction_id,prediction_date,target_date,entity_id,drug_name,start_price,predicted_score,actual_price,outcome_pct,status\n" +
		"abc,2026-01-02,2026-01-30,00078013301,GABAPENTIN,100,0.9,,,PENDING\n" +
		"truncated,2026-01-09\n" +
		"def,2026-01-09,2026-02-06,00002143380,AMOXICILLIN,0.42,0.1,,,PENDING\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store := NewFileStore(path)
	records, err := store.Load(context.Background())
	assert.ErrorIs(t, err, contracts.ErrSchemaMismatch)
	assert.Empty(t, records, "rows after the bad line must not be silently dropped")
}

func TestFileStoreRejectsUnknownStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.csv")
	content := "prediction_id,prediction_date,target_date,entity_id,drug_name,start_price,predicted_score,actual_price,outcome_pct,status\n" +
		"abc,2026-01-02,2026-01-30,00078013301,GABAPENTIN,100,0.9,,,SETTLED\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store := NewFileStore(path)
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, contracts.ErrSchemaMismatch)
}
