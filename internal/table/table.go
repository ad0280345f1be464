// Package table holds rectangular string tables and their CSV encoding.
//
// A Table is what every loader produces and every stage serializes: a header
// row of column names followed by rows of raw cell text. Typed views live in
// the models package.
package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrColumnNotFound is returned when a required column is absent from the header.
var ErrColumnNotFound = errors.New("column not found")

// Table is a header plus rows of cells. Rows may be shorter than the header;
// missing trailing cells read as empty.
type Table struct {
	Header []string
	Rows   [][]string
}

// New creates an empty table with the given header.
func New(header ...string) *Table {
	return &Table{Header: header}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of the named column.
func (t *Table) Index(name string) (int, error) {
	for i, h := range t.Header {
		if h == name {
			return i, nil
		}
	}

	return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// Indices resolves several columns at once, failing on the first absent one.
func (t *Table) Indices(names ...string) ([]int, error) {
	idx := make([]int, len(names))

	for i, name := range names {
		pos, err := t.Index(name)
		if err != nil {
			return nil, err
		}

		idx[i] = pos
	}

	return idx, nil
}

// Cell returns the cell at row r, column c, or "" when the row is short.
func (t *Table) Cell(r, c int) string {
	row := t.Rows[r]
	if c < 0 || c >= len(row) {
		return ""
	}

	return row[c]
}

// Append adds a row.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Head returns a table sharing the header and at most the first n rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}

	if n < 0 {
		n = 0
	}

	return &Table{Header: t.Header, Rows: t.Rows[:n]}
}

// ReadOptions tunes CSV decoding.
type ReadOptions struct {
	// SkipLines drops leading lines before the header (e.g. a title line).
	SkipLines int
	// Comma overrides the field delimiter.
	Comma rune
}

// ReadCSV decodes a CSV stream whose first (non-skipped) record is the header.
// A UTF-8 byte order mark on the header is stripped.
func ReadCSV(r io.Reader, opts ReadOptions) (*Table, error) {
	br := bufio.NewReader(r)

	for i := 0; i < opts.SkipLines; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("csv: skip line %d: unexpected end of input", i+1)
			}

			return nil, fmt.Errorf("csv: skip line %d: %w", i+1, err)
		}
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv: empty input")
		}

		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := &Table{Header: header}

	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("csv: read row %d: %w", len(t.Rows)+1, err)
		}

		t.Rows = append(t.Rows, rec)
	}

	return t, nil
}

// WriteCSV encodes the table with a header row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: write row %d: %w", i+1, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// LoadFile reads a CSV file.
func LoadFile(path string, opts ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := ReadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	return t, nil
}

// SaveFile writes the table to path atomically: the data goes to a temporary
// file in the same directory which is renamed over path only on success, so a
// failed write leaves any previous file untouched.
func (t *Table) SaveFile(path string) error {
	return WriteFileAtomic(path, t.WriteCSV)
}

// WriteFileAtomic creates the parent directory, streams write into a temp file
// next to path and renames it into place.
func WriteFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return err
	}

	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return fmt.Errorf("flush %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("close %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("rename into %s: %w", path, err)
	}

	return nil
}
