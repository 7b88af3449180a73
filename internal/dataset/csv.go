package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/KeyzrSoze/signals/internal/contracts"
)

// DateLayout is the calendar-date format used by every tabular file.
const DateLayout = "2006-01-02"

// table is a CSV file read whole, with columns addressed by header name.
// Schemas are versioned by column presence: a missing required column is
// a SchemaMismatch and fatal for the run, while extra columns pass
// through untouched.
type table struct {
	columns map[string]int
	rows    [][]string
}

func readTable(path string, required []string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, contracts.ErrMissingInput)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // short rows are malformed rows, not fatal

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%s: empty file: %w", path, contracts.ErrSchemaMismatch)
		}
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%s: column %q absent: %w", path, name, contracts.ErrSchemaMismatch)
		}
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return &table{columns: columns, rows: rows}, nil
}

// get returns the trimmed cell under the named column, or "" when the
// row is too short to carry it.
func (t *table) get(row []string, col string) string {
	idx, ok := t.columns[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
