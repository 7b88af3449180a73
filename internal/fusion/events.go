package fusion

import (
	"time"

	"github.com/KeyzrSoze/signals/internal/contracts"
	"github.com/KeyzrSoze/signals/pkg/logger"
)

// ShortageSignal is the fused shortage state for one spine row.
type ShortageSignal struct {
	Active          int
	WeeksInShortage float64
}

// ShortageJoiner fuses supply-shortage events onto spine rows by
// normalized ingredient name. No tolerance: a shortage stays in effect
// until a later event supersedes it.
type ShortageJoiner struct {
	joiner *Joiner
}

// NewShortageJoiner indexes a shortage event stream. Events with an
// empty normalized key or zero date are dropped and counted by the
// loader upstream. When both a start and a resolution land on the same
// (key, date), the resolution wins.
func NewShortageJoiner(events []contracts.ShortageEvent, log *logger.Logger) *ShortageJoiner {
	points := make([]Point, 0, len(events))
	for _, ev := range events {
		key := JoinKey(ev.JoinKey)
		if key == "" || ev.EventDate.IsZero() {
			continue
		}
		points = append(points, Point{
			Key:   key,
			Date:  ev.EventDate,
			Label: string(ev.EventType),
		})
	}

	log.WithFields(map[string]interface{}{
		"events": len(events),
		"points": len(points),
	}).Debug("shortage joiner built")

	return &ShortageJoiner{joiner: NewJoiner(points, Options{Reduce: preferResolved})}
}

// preferResolved keeps a same-day resolution over a same-day start: a
// shortage opened and closed on one date is not an active shortage.
func preferResolved(a, b Point) Point {
	if a.Label == string(contracts.ShortageResolved) {
		return a
	}
	return b
}

// Signal returns the shortage state for an ingredient at the given date.
// Only a matched start event marks an active shortage; a matched
// resolution, or no match at all, yields the zero signal.
func (s *ShortageJoiner) Signal(ingredientName string, date time.Time) ShortageSignal {
	m := s.joiner.Lookup(JoinKey(ingredientName), date)
	if !m.OK || m.Point.Label != string(contracts.ShortageStart) {
		return ShortageSignal{}
	}
	return ShortageSignal{
		Active:          1,
		WeeksInShortage: m.Age.Hours() / (24 * 7),
	}
}

// RiskJoiner fuses manufacturer-risk events onto spine rows by
// normalized manufacturer name. Matches decay: an event older than the
// tolerance window is stale and ignored. Multiple events per
// (manufacturer, date) reduce to the maximum severity.
type RiskJoiner struct {
	joiner *Joiner
}

// NewRiskJoiner indexes a risk event stream with the given staleness
// window.
func NewRiskJoiner(events []contracts.RiskEvent, tolerance time.Duration, log *logger.Logger) *RiskJoiner {
	points := make([]Point, 0, len(events))
	for _, ev := range events {
		key := JoinKey(ev.ManufacturerName)
		if key == "" || ev.EventDate.IsZero() {
			continue
		}
		points = append(points, Point{
			Key:   key,
			Date:  ev.EventDate,
			Value: ev.SeverityScore,
		})
	}

	log.WithFields(map[string]interface{}{
		"events":    len(events),
		"points":    len(points),
		"tolerance": tolerance.String(),
	}).Debug("risk joiner built")

	return &RiskJoiner{joiner: NewJoiner(points, Options{
		Tolerance: tolerance,
		Reduce:    MaxValue,
	})}
}

// Score returns the most recent in-window severity for a manufacturer at
// the given date, and whether a match was found.
func (r *RiskJoiner) Score(manufacturerName string, date time.Time) (float64, bool) {
	m := r.joiner.Lookup(JoinKey(manufacturerName), date)
	if !m.OK {
		return 0, false
	}
	return m.Point.Value, true
}
