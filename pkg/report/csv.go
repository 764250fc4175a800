package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/Sternrassler/pokeapi-ingest/pkg/flatten"
)

// DefaultOutput is the export path used when none is configured.
const DefaultOutput = "pokemon_api_data.csv"

// ErrHeaderMismatch is returned when reading a table with unexpected columns.
var ErrHeaderMismatch = errors.New("csv header does not match columns")

// WriteCSV writes the header and one record per row, in order.
func WriteCSV(w io.Writer, rows []flatten.Row) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(flatten.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteCSV.
func ReadCSV(r io.Reader) ([]flatten.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(flatten.Columns)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !slices.Equal(header, flatten.Columns) {
		return nil, fmt.Errorf("%w: got %v", ErrHeaderMismatch, header)
	}

	var rows []flatten.Row
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows), err)
		}
		row, err := flatten.ParseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("parse row %d: %w", len(rows), err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// Export writes rows as CSV to path, replacing any existing file. Parent
// directories are created. The table is written to a temporary file in the
// same directory and renamed into place, so a failed export leaves no
// partial file behind.
func Export(path string, rows []flatten.Row) (err error) {
	if path == "" {
		return fmt.Errorf("output path is required")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := WriteCSV(tmp, rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}

	return nil
}
