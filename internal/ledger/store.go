package ledger

import (
	"context"
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
	"github.com/KeyzrSoze/signals/internal/dataset"
)

// Store persists the prediction registry. Load returns every row in the
// registry; Save replaces the registry with the given rows atomically.
// A missing registry is an empty one, not an error: the first run of a
// fresh deployment starts from nothing.
type Store interface {
	Load(ctx context.Context) ([]contracts.PredictionRecord, error)
	Save(ctx context.Context, records []contracts.PredictionRecord) error
}

var registryHeader = []string{
	"prediction_id",
	"prediction_date",
	"target_date",
	"entity_id",
	"drug_name",
	"start_price",
	"predicted_score",
	"actual_price",
	"outcome_pct",
	"status",
}

// FileStore keeps the registry in a single CSV file. Writes go through a
// temp file and a rename, so a crash mid-save leaves the previous
// registry intact.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the CSV file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and parses the registry file.
func (s *FileStore) Load(_ context.Context) ([]contracts.PredictionRecord, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open registry %s: %w", s.path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(registryHeader)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: registry %s has no header", contracts.ErrSchemaMismatch, s.path)
	}
	for i, col := range registryHeader {
		if header[i] != col {
			return nil, fmt.Errorf("%w: registry %s column %d is %q, want %q",
				contracts.ErrSchemaMismatch, s.path, i, header[i], col)
		}
	}

	var records []contracts.PredictionRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A mid-file read error must stop the run. Treating it as EOF
			// would drop every row after the bad line, and the next save
			// would rewrite the registry without them.
			return nil, fmt.Errorf("%w: registry %s line %d: %v",
				contracts.ErrSchemaMismatch, s.path, line, err)
		}
		rec, err := parseRegistryRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: registry %s line %d: %v",
				contracts.ErrSchemaMismatch, s.path, line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Save writes the registry atomically.
func (s *FileStore) Save(_ context.Context, records []contracts.PredictionRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create registry dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".registry-*.csv")
	if err != nil {
		return fmt.Errorf("create temp registry: %w", err)
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	if err := writer.Write(registryHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("write registry header: %w", err)
	}
	for _, rec := range records {
		if err := writer.Write(formatRegistryRow(rec)); err != nil {
			tmp.Close()
			return fmt.Errorf("write registry row %s: %w", rec.PredictionID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp registry: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace registry %s: %w", s.path, err)
	}
	return nil
}

func formatRegistryRow(rec contracts.PredictionRecord) []string {
	return []string{
		rec.PredictionID,
		rec.PredictionDate.Format(dataset.DateLayout),
		rec.TargetDate.Format(dataset.DateLayout),
		rec.EntityID,
		rec.DrugName,
		strconv.FormatFloat(rec.StartPrice, 'f', -1, 64),
		strconv.FormatFloat(rec.PredictedScore, 'f', -1, 64),
		formatOptional(rec.ActualPrice),
		formatOptional(rec.OutcomePct),
		string(rec.Status),
	}
}

func parseRegistryRow(row []string) (contracts.PredictionRecord, error) {
	var rec contracts.PredictionRecord
	var err error

	rec.PredictionID = row[0]
	if rec.PredictionDate, err = time.Parse(dataset.DateLayout, row[1]); err != nil {
		return rec, fmt.Errorf("prediction_date: %v", err)
	}
	if rec.TargetDate, err = time.Parse(dataset.DateLayout, row[2]); err != nil {
		return rec, fmt.Errorf("target_date: %v", err)
	}
	rec.EntityID = row[3]
	rec.DrugName = row[4]
	if rec.StartPrice, err = strconv.ParseFloat(row[5], 64); err != nil {
		return rec, fmt.Errorf("start_price: %v", err)
	}
	if rec.PredictedScore, err = strconv.ParseFloat(row[6], 64); err != nil {
		return rec, fmt.Errorf("predicted_score: %v", err)
	}
	if rec.ActualPrice, err = parseOptional(row[7]); err != nil {
		return rec, fmt.Errorf("actual_price: %v", err)
	}
	if rec.OutcomePct, err = parseOptional(row[8]); err != nil {
		return rec, fmt.Errorf("outcome_pct: %v", err)
	}

	switch status := contracts.PredictionStatus(row[9]); status {
	case contracts.StatusPending, contracts.StatusResolved:
		rec.Status = status
	default:
		return rec, fmt.Errorf("unknown status %q", row[9])
	}
	return rec, nil
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseOptional(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
