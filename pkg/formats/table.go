// Package formats provides readers and writers for the file formats used by
// the shape model: delimited numeric tables and STL triangle meshes.
package formats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Table format errors.
var (
	ErrEmptyTable    = errors.New("empty table")
	ErrRaggedTable   = errors.New("non-rectangular table")
	ErrInvalidNumber = errors.New("invalid number in table")
	ErrNotVector     = errors.New("table is not a vector")
	ErrNotInteger    = errors.New("non-integral value in integer table")
)

// Table is a dense row-major table of float64 values.
type Table struct {
	Rows int
	Cols int
	Data []float64 // len == Rows*Cols
}

// At returns the value at row i, column j.
func (t *Table) At(i, j int) float64 {
	return t.Data[i*t.Cols+j]
}

// Row returns row i as a slice sharing the table's storage.
func (t *Table) Row(i int) []float64 {
	return t.Data[i*t.Cols : (i+1)*t.Cols]
}

// Vector returns the table as a flat vector. A single row and a single column
// are both accepted, matching how one-dimensional arrays round-trip through
// delimited text.
func (t *Table) Vector() ([]float64, error) {
	if t.Rows != 1 && t.Cols != 1 {
		return nil, fmt.Errorf("%w: shape %dx%d", ErrNotVector, t.Rows, t.Cols)
	}
	out := make([]float64, len(t.Data))
	copy(out, t.Data)
	return out, nil
}

// Ints returns the table values as integers. Every cell must hold an
// integral value.
func (t *Table) Ints() ([]int, error) {
	out := make([]int, len(t.Data))
	for k, v := range t.Data {
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: row %d col %d: %v", ErrNotInteger, k/t.Cols+1, k%t.Cols+1, v)
		}
		out[k] = int(v)
	}
	return out, nil
}

// ParseTable reads a comma-delimited numeric table. Blank lines and lines
// starting with '#' are skipped.
func ParseTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	t := &Table{}
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading table: %w", err)
		}
		line++

		if t.Rows == 0 {
			t.Cols = len(record)
		} else if len(record) != t.Cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrRaggedTable, line, len(record), t.Cols)
		}

		for col, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d col %d: %q", ErrInvalidNumber, line, col+1, field)
			}
			t.Data = append(t.Data, v)
		}
		t.Rows++
	}

	if t.Rows == 0 {
		return nil, ErrEmptyTable
	}
	return t, nil
}

// LoadTable reads a numeric table from a file.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTable(f)
}
