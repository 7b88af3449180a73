package dataset

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/KeyzrSoze/signals/internal/contracts"
	"github.com/KeyzrSoze/signals/pkg/logger"
	"github.com/KeyzrSoze/signals/pkg/metrics"
)

// Loader reads the typed tabular inputs. Malformed rows (null price,
// unparsable date, empty key) are dropped and counted before any
// aggregation sees them; they are never coerced to zero.
type Loader struct {
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewLoader creates a loader.
func NewLoader(log *logger.Logger, m *metrics.Metrics) *Loader {
	return &Loader{
		log:     log.Component("dataset.loader"),
		metrics: m,
	}
}

// PriceSpine loads the canonical price observation stream, deduplicated
// by (date, entity): the first occurrence wins, later duplicates are
// counted and discarded. Output is sorted by (entity, date).
func (l *Loader) PriceSpine(path string) ([]contracts.PriceObservation, error) {
	t, err := readTable(path, []string{"entity_id", "date", "unit_price"})
	if err != nil {
		return nil, err
	}

	type spineKey struct {
		entity string
		date   time.Time
	}

	seen := make(map[spineKey]bool, len(t.rows))
	obs := make([]contracts.PriceObservation, 0, len(t.rows))
	var malformed, duplicates int

	for _, row := range t.rows {
		entity := NormalizeEntityID(t.get(row, "entity_id"))
		date, dateErr := time.Parse(DateLayout, t.get(row, "date"))
		price, priceErr := strconv.ParseFloat(t.get(row, "unit_price"), 64)

		if entity == "" || dateErr != nil || priceErr != nil || price <= 0 {
			malformed++
			continue
		}

		key := spineKey{entity: entity, date: date}
		if seen[key] {
			duplicates++
			continue
		}
		seen[key] = true

		obs = append(obs, contracts.PriceObservation{
			EntityID:    entity,
			Date:        date,
			UnitPrice:   price,
			Description: t.get(row, "description"),
		})
	}

	sortObservations(obs)

	l.metrics.RowsLoaded.WithLabelValues("price_spine").Add(float64(len(obs)))
	l.metrics.MalformedRows.WithLabelValues("price_spine").Add(float64(malformed))
	l.metrics.DuplicateRows.WithLabelValues("price_spine").Add(float64(duplicates))
	l.log.WithFields(map[string]interface{}{
		"path":       path,
		"rows":       len(obs),
		"malformed":  malformed,
		"duplicates": duplicates,
	}).Info("price spine loaded")

	return obs, nil
}

// EntityMap loads the entity→ingredient→manufacturer map keyed by
// entity id.
func (l *Loader) EntityMap(path string) (contracts.EntityIndex, error) {
	t, err := readTable(path, []string{"entity_id", "ingredient_key", "manufacturer_name"})
	if err != nil {
		return nil, err
	}

	index := make(contracts.EntityIndex, len(t.rows))
	var malformed int

	for _, row := range t.rows {
		entity := NormalizeEntityID(t.get(row, "entity_id"))
		ingredient := t.get(row, "ingredient_key")
		manufacturer := t.get(row, "manufacturer_name")

		if entity == "" || ingredient == "" || manufacturer == "" {
			malformed++
			continue
		}

		index[entity] = contracts.EntityMapping{
			EntityID:         entity,
			IngredientKey:    ingredient,
			ManufacturerName: manufacturer,
		}
	}

	l.metrics.RowsLoaded.WithLabelValues("entity_map").Add(float64(len(index)))
	l.metrics.MalformedRows.WithLabelValues("entity_map").Add(float64(malformed))
	l.log.WithFields(map[string]interface{}{
		"path":      path,
		"entities":  len(index),
		"malformed": malformed,
	}).Info("entity map loaded")

	return index, nil
}

// ShortageEvents loads the supply-shortage event stream.
func (l *Loader) ShortageEvents(path string) ([]contracts.ShortageEvent, error) {
	t, err := readTable(path, []string{"event_date", "join_key", "event_type"})
	if err != nil {
		return nil, err
	}

	events := make([]contracts.ShortageEvent, 0, len(t.rows))
	var malformed int

	for _, row := range t.rows {
		date, dateErr := time.Parse(DateLayout, t.get(row, "event_date"))
		joinKey := t.get(row, "join_key")
		eventType := contracts.ShortageEventType(strings.ToLower(t.get(row, "event_type")))

		if dateErr != nil || joinKey == "" ||
			(eventType != contracts.ShortageStart && eventType != contracts.ShortageResolved) {
			malformed++
			continue
		}

		events = append(events, contracts.ShortageEvent{
			EventDate: date,
			JoinKey:   joinKey,
			EventType: eventType,
		})
	}

	l.metrics.RowsLoaded.WithLabelValues("shortage_events").Add(float64(len(events)))
	l.metrics.MalformedRows.WithLabelValues("shortage_events").Add(float64(malformed))
	l.log.WithFields(map[string]interface{}{
		"path":      path,
		"events":    len(events),
		"malformed": malformed,
	}).Info("shortage events loaded")

	return events, nil
}

// RiskEvents loads the manufacturer-risk event stream produced by the
// sentinel collaborator.
func (l *Loader) RiskEvents(path string) ([]contracts.RiskEvent, error) {
	t, err := readTable(path, []string{"event_date", "manufacturer_name", "severity_score"})
	if err != nil {
		return nil, err
	}

	events := make([]contracts.RiskEvent, 0, len(t.rows))
	var malformed int

	for _, row := range t.rows {
		date, dateErr := time.Parse(DateLayout, t.get(row, "event_date"))
		manufacturer := t.get(row, "manufacturer_name")
		severity, sevErr := strconv.ParseFloat(t.get(row, "severity_score"), 64)

		if dateErr != nil || manufacturer == "" || sevErr != nil || severity < 0 || severity > 10 {
			malformed++
			continue
		}

		events = append(events, contracts.RiskEvent{
			EventDate:        date,
			ManufacturerName: manufacturer,
			SeverityScore:    severity,
		})
	}

	l.metrics.RowsLoaded.WithLabelValues("risk_events").Add(float64(len(events)))
	l.metrics.MalformedRows.WithLabelValues("risk_events").Add(float64(malformed))
	l.log.WithFields(map[string]interface{}{
		"path":      path,
		"events":    len(events),
		"malformed": malformed,
	}).Info("risk events loaded")

	return events, nil
}

// Scores loads the external model's score table for the latest feature
// slice, keyed by entity id.
func (l *Loader) Scores(path string) (map[string]float64, error) {
	t, err := readTable(path, []string{"entity_id", "score"})
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(t.rows))
	var malformed int

	for _, row := range t.rows {
		entity := NormalizeEntityID(t.get(row, "entity_id"))
		score, scoreErr := strconv.ParseFloat(t.get(row, "score"), 64)

		if entity == "" || scoreErr != nil {
			malformed++
			continue
		}
		scores[entity] = score
	}

	l.metrics.RowsLoaded.WithLabelValues("model_scores").Add(float64(len(scores)))
	l.metrics.MalformedRows.WithLabelValues("model_scores").Add(float64(malformed))

	return scores, nil
}

// NormalizeEntityID canonicalizes a product code to its fixed-width
// form: separators removed, all-digit codes left-padded with zeros to 11
// characters. Codes that are not purely numeric pass through trimmed.
func NormalizeEntityID(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if cleaned == "" {
		return ""
	}

	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return cleaned
		}
	}

	for len(cleaned) < 11 {
		cleaned = "0" + cleaned
	}
	return cleaned
}

// sortObservations orders the spine by (entity, date).
func sortObservations(obs []contracts.PriceObservation) {
	sort.Slice(obs, func(i, j int) bool {
		if obs[i].EntityID != obs[j].EntityID {
			return obs[i].EntityID < obs[j].EntityID
		}
		return obs[i].Date.Before(obs[j].Date)
	})
}
