package fusion

import (
	"sort"
	"time"
)

// Backward as-of join: for a spine row at date d with key k, find the
// event with key k and the greatest event date <= d. The single primitive
// below backs the shortage join, the manufacturer-risk join, and ledger
// reconciliation; each call site differs only in tolerance and reducer.

// Point is one event in a reduced stream: after construction a Joiner
// holds exactly one Point per (Key, Date).
type Point struct {
	Key   string
	Date  time.Time
	Value float64
	Label string
}

// Reducer collapses two points sharing (Key, Date) into one. Points are
// sorted on all fields before folding, so any reducer sees its inputs in
// a fixed order regardless of how the stream was read.
type Reducer func(a, b Point) Point

// MaxValue keeps the point with the greater Value (max severity).
func MaxValue(a, b Point) Point {
	if b.Value > a.Value {
		return b
	}
	return a
}

// Last keeps the later point in sort order.
func Last(a, b Point) Point {
	return b
}

// Options parametrize a Joiner.
type Options struct {
	// Tolerance caps the age of an accepted match; zero means unbounded.
	Tolerance time.Duration
	// Reduce collapses duplicate (Key, Date) points. Defaults to Last.
	Reduce Reducer
}

// Match is the result of a lookup.
type Match struct {
	Point Point
	Age   time.Duration // spine date minus event date, >= 0
	OK    bool
}

// Joiner answers backward as-of lookups over a reduced, sorted event
// stream. Lookups never return an event dated after the query date.
type Joiner struct {
	byKey     map[string][]Point // ascending by Date per key
	tolerance time.Duration
}

// NewJoiner reduces and indexes an event stream. The input order of
// points does not affect the result.
func NewJoiner(points []Point, opts Options) *Joiner {
	reduce := opts.Reduce
	if reduce == nil {
		reduce = Last
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		return a.Value < b.Value
	})

	byKey := make(map[string][]Point)
	for _, p := range sorted {
		series := byKey[p.Key]
		if n := len(series); n > 0 && series[n-1].Date.Equal(p.Date) {
			series[n-1] = reduce(series[n-1], p)
			continue
		}
		byKey[p.Key] = append(series, p)
	}

	return &Joiner{byKey: byKey, tolerance: opts.Tolerance}
}

// Len returns the number of distinct (key, date) points held.
func (j *Joiner) Len() int {
	n := 0
	for _, series := range j.byKey {
		n += len(series)
	}
	return n
}

// Lookup returns the most recent point for key at or before date. A
// point older than the tolerance window is treated as no match.
func (j *Joiner) Lookup(key string, date time.Time) Match {
	series, ok := j.byKey[key]
	if !ok {
		return Match{}
	}

	// First index with Date > date; the match is the element before it.
	idx := sort.Search(len(series), func(i int) bool {
		return series[i].Date.After(date)
	})
	if idx == 0 {
		return Match{}
	}

	p := series[idx-1]
	age := date.Sub(p.Date)
	if j.tolerance > 0 && age > j.tolerance {
		return Match{}
	}

	return Match{Point: p, Age: age, OK: true}
}
