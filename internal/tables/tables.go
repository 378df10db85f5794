// Package tables is the concrete CSV table reader behind the Timeseries
// parameter family and Timeseries metric variant's (column, row-selector)
// lookups. I/O adapters are a thin boundary around the core engine rather
// than core logic in their own right, so this package is built on stdlib
// encoding/csv rather than a third-party parser (see DESIGN.md).
package tables

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"pywr/internal/apperror"
	"pywr/internal/calendar"
)

// Table is one named table's columns, row-aligned to a calendar by date.
// Dates are parsed once at load time; a table that does not cover a
// looked-up timestep surfaces as a DataError from that lookup, not at
// build time.
type Table struct {
	Name    string
	Columns map[string][]float64
	Dates   []time.Time
}

// Store holds every table and timeseries declared by a model, keyed by
// name, and resolves (table, column, rowOffset) lookups against the run's
// calendar.
type Store struct {
	tables map[string]*Table
	cal    *calendar.Calendar
}

// NewStore returns an empty Store bound to cal; rows are aligned against
// cal's timestep dates at lookup time.
func NewStore(cal *calendar.Calendar) *Store {
	return &Store{tables: make(map[string]*Table), cal: cal}
}

// Add registers t under its own name, overwriting any previous table of
// the same name (schema.Build calls this once per declared table/timeseries).
func (s *Store) Add(t *Table) {
	s.tables[t.Name] = t
}

// LoadCSV reads a CSV file whose dateColumn holds dates (YYYY-MM-DD) and
// whose other columns are named by the header row, and returns it as a
// Table called name; Store.Add registers it.
func LoadCSV(name, path, dateColumn string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeDataError, "failed to open table "+name).WithField("tables." + name)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeDataError, "table "+name+" has no header row").WithField("tables." + name)
	}

	dateIdx := 0
	colNames := make([]string, 0, len(header)-1)
	colIdx := make([]int, 0, len(header)-1)
	for i, h := range header {
		if h == dateColumn {
			dateIdx = i
			continue
		}
		colNames = append(colNames, h)
		colIdx = append(colIdx, i)
	}

	t := &Table{Name: name, Columns: make(map[string][]float64, len(colNames))}
	for _, c := range colNames {
		t.Columns[c] = nil
	}

	for {
		rec, err := r.Read()
		if err != nil {
			break
		}
		date, err := time.Parse("2006-01-02", rec[dateIdx])
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeDataError, "table "+name+" has unparseable date "+rec[dateIdx]).WithField("tables." + name)
		}
		t.Dates = append(t.Dates, date)
		for k, ci := range colIdx {
			v, err := strconv.ParseFloat(rec[ci], 64)
			if err != nil {
				return nil, apperror.Wrap(err, apperror.CodeDataError, "table "+name+" column "+colNames[k]+" has non-numeric value").WithField("tables." + name)
			}
			t.Columns[colNames[k]] = append(t.Columns[colNames[k]], v)
		}
	}
	return t, nil
}

// Value resolves one cell: the row selected by aligning timestep ts to the
// table's Dates (by calendar index, since both are built from the same
// model calendar in the common case), shifted by rowOffset. A table whose
// length differs from the run calendar's is aligned by searching for
// ts.Date rather than assuming index equality, so tables with a longer
// history than the run window still work for lagged references.
func (s *Store) Value(table, column string, ts calendar.Timestep, rowOffset int) (float64, error) {
	t, ok := s.tables[table]
	if !ok {
		return 0, apperror.New(apperror.CodeDataError, fmt.Sprintf("table %q not found", table)).WithField("tables." + table)
	}
	col, ok := t.Columns[column]
	if !ok {
		return 0, apperror.New(apperror.CodeDataError, fmt.Sprintf("table %q has no column %q", table, column)).WithField("tables." + table)
	}

	row := s.rowFor(t, ts) + rowOffset
	if row < 0 || row >= len(col) {
		return 0, apperror.New(apperror.CodeDataError, fmt.Sprintf("table %q column %q: row %d out of range (0..%d)", table, column, row, len(col)-1)).
			WithField("tables." + table)
	}
	return col[row], nil
}

// rowFor returns t's row index aligned to ts: if t.Dates has the same
// length as the run calendar, indices line up directly (the fast, common
// path); otherwise the matching date is searched for.
func (s *Store) rowFor(t *Table, ts calendar.Timestep) int {
	if s.cal != nil && len(t.Dates) == s.cal.Len() {
		return ts.Index
	}
	for i, d := range t.Dates {
		if d.Equal(ts.Date) {
			return i
		}
	}
	return ts.Index
}

// Synthetic returns an in-memory, already-computed single-column table
// rather than one read from a CSV file on disk. Nothing in the module
// calls it; schema.Build loads every table through LoadCSV.
func Synthetic(name, column string, values []float64) *Table {
	return &Table{Name: name, Columns: map[string][]float64{column: values}}
}
