package fusion

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func TestJoinerBackwardMatch(t *testing.T) {
	j := NewJoiner([]Point{
		{Key: "GABAPENTIN", Date: d(2025, 1, 10), Label: "start"},
		{Key: "GABAPENTIN", Date: d(2025, 3, 1), Label: "resolved"},
		{Key: "AMOXICILLIN", Date: d(2025, 2, 1), Label: "start"},
	}, Options{})

	// Most recent at-or-before the query date.
	m := j.Lookup("GABAPENTIN", d(2025, 2, 1))
	require.True(t, m.OK)
	assert.Equal(t, "start", m.Point.Label)
	assert.Equal(t, 22*24*time.Hour, m.Age)

	// Exact date matches.
	m = j.Lookup("GABAPENTIN", d(2025, 3, 1))
	require.True(t, m.OK)
	assert.Equal(t, "resolved", m.Point.Label)
	assert.Equal(t, time.Duration(0), m.Age)

	// Before the first event: no match.
	assert.False(t, j.Lookup("GABAPENTIN", d(2025, 1, 9)).OK)

	// Unknown key: no match.
	assert.False(t, j.Lookup("IBUPROFEN", d(2025, 6, 1)).OK)
}

// A future-dated event must never be attached to an earlier spine row,
// even when the stream holds events both before and after the row.
func TestJoinerNoLookahead(t *testing.T) {
	j := NewJoiner([]Point{
		{Key: "K", Date: d(2025, 1, 1), Value: 1},
		{Key: "K", Date: d(2025, 6, 1), Value: 9},
	}, Options{})

	for _, query := range []time.Time{d(2025, 1, 1), d(2025, 3, 15), d(2025, 5, 31)} {
		m := j.Lookup("K", query)
		require.True(t, m.OK, "query %s", query)
		assert.False(t, m.Point.Date.After(query), "matched event is future-dated")
		assert.Equal(t, 1.0, m.Point.Value)
	}
}

func TestJoinerTolerance(t *testing.T) {
	j := NewJoiner([]Point{
		{Key: "ABBOTT", Date: d(2026, 1, 10), Value: 9},
	}, Options{Tolerance: 90 * 24 * time.Hour})

	// 10 days old: inside the window.
	m := j.Lookup("ABBOTT", d(2026, 1, 20))
	require.True(t, m.OK)
	assert.Equal(t, 9.0, m.Point.Value)

	// Exactly 90 days old: still a match.
	assert.True(t, j.Lookup("ABBOTT", d(2026, 4, 10)).OK)

	// 91 days old: stale, treated as no match.
	assert.False(t, j.Lookup("ABBOTT", d(2026, 4, 11)).OK)
}

func TestJoinerReducesDuplicates(t *testing.T) {
	j := NewJoiner([]Point{
		{Key: "PFIZER", Date: d(2025, 5, 1), Value: 3},
		{Key: "PFIZER", Date: d(2025, 5, 1), Value: 8},
		{Key: "PFIZER", Date: d(2025, 5, 1), Value: 5},
	}, Options{Reduce: MaxValue})

	assert.Equal(t, 1, j.Len())

	m := j.Lookup("PFIZER", d(2025, 5, 2))
	require.True(t, m.OK)
	assert.Equal(t, 8.0, m.Point.Value)
}

// Identical inputs in any order must produce identical outputs.
func TestJoinerDeterministicUnderShuffle(t *testing.T) {
	base := []Point{
		{Key: "A", Date: d(2025, 1, 1), Value: 2, Label: "x"},
		{Key: "A", Date: d(2025, 1, 1), Value: 7, Label: "y"},
		{Key: "A", Date: d(2025, 2, 1), Value: 4, Label: "x"},
		{Key: "B", Date: d(2025, 1, 15), Value: 1, Label: "z"},
		{Key: "B", Date: d(2025, 3, 1), Value: 6, Label: "z"},
	}

	reference := NewJoiner(base, Options{Reduce: MaxValue})

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		shuffled := make([]Point, len(base))
		copy(shuffled, base)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		j := NewJoiner(shuffled, Options{Reduce: MaxValue})
		for _, key := range []string{"A", "B"} {
			for _, query := range []time.Time{d(2025, 1, 1), d(2025, 1, 20), d(2025, 4, 1)} {
				want := reference.Lookup(key, query)
				got := j.Lookup(key, query)
				assert.Equal(t, want, got, "key=%s query=%s trial=%d", key, query, trial)
			}
		}
	}
}

func TestJoinerEmptyStream(t *testing.T) {
	j := NewJoiner(nil, Options{})
	assert.Equal(t, 0, j.Len())
	assert.False(t, j.Lookup("ANY", d(2025, 1, 1)).OK)
}
