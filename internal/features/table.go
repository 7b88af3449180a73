package features

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/KeyzrSoze/signals/internal/contracts"
)

const dateLayout = "2006-01-02"

// Header of the persisted feature table. Column presence is the schema
// version: consumers check names, not positions.
var tableHeader = []string{
	"date", "entity_id", "unit_price", "description",
	"ingredient_key", "manufacturer_name",
	"momentum_4period", "volatility_12period",
	"herfindahl_index", "competitor_count",
	"shortage_active", "weeks_in_shortage", "manufacturer_risk_score",
}

// WriteTable persists the feature table atomically: the file is written
// to a temp sibling and renamed into place, so a failed run never leaves
// a truncated table behind.
func WriteTable(path string, rows []contracts.FeatureRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".features-*.csv")
	if err != nil {
		return fmt.Errorf("create temp table: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(tableHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			r.Date.Format(dateLayout),
			r.EntityID,
			strconv.FormatFloat(r.UnitPrice, 'f', -1, 64),
			r.Description,
			r.IngredientKey,
			r.ManufacturerName,
			strconv.FormatFloat(r.Momentum4, 'f', -1, 64),
			strconv.FormatFloat(r.Volatility12, 'f', -1, 64),
			strconv.FormatFloat(r.HerfindahlIndex, 'f', -1, 64),
			strconv.Itoa(r.CompetitorCount),
			strconv.Itoa(r.ShortageActive),
			strconv.FormatFloat(r.WeeksInShortage, 'f', -1, 64),
			strconv.FormatFloat(r.RiskScore, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			tmp.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp table: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace table: %w", err)
	}
	return nil
}

// ReadTable loads a persisted feature table.
func ReadTable(path string) ([]contracts.FeatureRow, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, contracts.ErrMissingInput)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%s: empty file: %w", path, contracts.ErrSchemaMismatch)
		}
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	for _, name := range tableHeader {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%s: column %q absent: %w", path, name, contracts.ErrSchemaMismatch)
		}
	}

	var rows []contracts.FeatureRow
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %v: %w", path, line, err, contracts.ErrSchemaMismatch)
		}

		row, err := parseTableRow(record, columns)
		if err != nil {
			// The table is our own write; an unparsable cell means the
			// artifact is damaged. Coercing it to zero would feed a fake
			// start price into the ledger.
			return nil, fmt.Errorf("%s line %d: %v: %w", path, line, err, contracts.ErrSchemaMismatch)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func parseTableRow(record []string, columns map[string]int) (contracts.FeatureRow, error) {
	get := func(col string) string { return record[columns[col]] }

	var row contracts.FeatureRow
	var err error

	if row.Date, err = time.Parse(dateLayout, get("date")); err != nil {
		return row, fmt.Errorf("date: %v", err)
	}
	row.EntityID = get("entity_id")
	row.Description = get("description")
	row.IngredientKey = get("ingredient_key")
	row.ManufacturerName = get("manufacturer_name")

	if row.UnitPrice, err = strconv.ParseFloat(get("unit_price"), 64); err != nil {
		return row, fmt.Errorf("unit_price: %v", err)
	}
	if row.Momentum4, err = strconv.ParseFloat(get("momentum_4period"), 64); err != nil {
		return row, fmt.Errorf("momentum_4period: %v", err)
	}
	if row.Volatility12, err = strconv.ParseFloat(get("volatility_12period"), 64); err != nil {
		return row, fmt.Errorf("volatility_12period: %v", err)
	}
	if row.HerfindahlIndex, err = strconv.ParseFloat(get("herfindahl_index"), 64); err != nil {
		return row, fmt.Errorf("herfindahl_index: %v", err)
	}
	if row.CompetitorCount, err = strconv.Atoi(get("competitor_count")); err != nil {
		return row, fmt.Errorf("competitor_count: %v", err)
	}
	if row.ShortageActive, err = strconv.Atoi(get("shortage_active")); err != nil {
		return row, fmt.Errorf("shortage_active: %v", err)
	}
	if row.WeeksInShortage, err = strconv.ParseFloat(get("weeks_in_shortage"), 64); err != nil {
		return row, fmt.Errorf("weeks_in_shortage: %v", err)
	}
	if row.RiskScore, err = strconv.ParseFloat(get("manufacturer_risk_score"), 64); err != nil {
		return row, fmt.Errorf("manufacturer_risk_score: %v", err)
	}
	return row, nil
}
