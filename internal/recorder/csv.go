package recorder

import (
	"encoding/csv"
	"fmt"
	"os"

	"pywr/internal/apperror"
	"pywr/internal/calendar"
	"pywr/internal/scenario"
)

// CSVLongRecorder writes one row per (date, scenario, metric, value): the
// "Long" tabular layout.
type CSVLongRecorder struct {
	metricSet string
	f         *os.File
	w         *csv.Writer
}

func NewCSVLongRecorder(path, metricSet string) (*CSVLongRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeDataError, "create csv output").WithField(path)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "scenario", "metric", "value"}); err != nil {
		f.Close()
		return nil, apperror.Wrap(err, apperror.CodeDataError, "write csv header")
	}
	return &CSVLongRecorder{metricSet: metricSet, f: f, w: w}, nil
}

func (r *CSVLongRecorder) Record(idx scenario.Index, ts calendar.Timestep, metricSet string, values map[string]float64) error {
	if metricSet != r.metricSet {
		return nil
	}
	date := ts.Date.Format("2006-01-02")
	sc := fmt.Sprintf("%d", idx.Global)
	for _, name := range sortedKeys(values) {
		if err := r.w.Write([]string{date, sc, name, fmt.Sprintf("%g", values[name])}); err != nil {
			return apperror.Wrap(err, apperror.CodeDataError, "write csv row")
		}
	}
	return nil
}

func (r *CSVLongRecorder) Finalize() error {
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		r.f.Close()
		return apperror.Wrap(err, apperror.CodeDataError, "flush csv output")
	}
	return r.f.Close()
}

// CSVWideRecorder writes one row per (date, scenario) with one column per
// metric: the "Wide" tabular layout. The column set is fixed from
// the first row this sink ever sees for its metric set; a later row naming
// a metric outside that set is an error, since a CSV's column header can't
// grow mid-file.
type CSVWideRecorder struct {
	metricSet string
	f         *os.File
	w         *csv.Writer
	columns   []string
	wrote     bool
}

func NewCSVWideRecorder(path, metricSet string) (*CSVWideRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeDataError, "create csv output").WithField(path)
	}
	return &CSVWideRecorder{metricSet: metricSet, f: f, w: csv.NewWriter(f)}, nil
}

func (r *CSVWideRecorder) Record(idx scenario.Index, ts calendar.Timestep, metricSet string, values map[string]float64) error {
	if metricSet != r.metricSet {
		return nil
	}
	if !r.wrote {
		r.columns = sortedKeys(values)
		header := append([]string{"date", "scenario"}, r.columns...)
		if err := r.w.Write(header); err != nil {
			return apperror.Wrap(err, apperror.CodeDataError, "write csv header")
		}
		r.wrote = true
	}

	row := make([]string, 0, len(r.columns)+2)
	row = append(row, ts.Date.Format("2006-01-02"), fmt.Sprintf("%d", idx.Global))
	for _, name := range r.columns {
		v, ok := values[name]
		if !ok {
			return apperror.New(apperror.CodeDataError, fmt.Sprintf("metric set %q row is missing column %q already fixed by an earlier row", metricSet, name))
		}
		row = append(row, fmt.Sprintf("%g", v))
	}
	if err := r.w.Write(row); err != nil {
		return apperror.Wrap(err, apperror.CodeDataError, "write csv row")
	}
	return nil
}

func (r *CSVWideRecorder) Finalize() error {
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		r.f.Close()
		return apperror.Wrap(err, apperror.CodeDataError, "flush csv output")
	}
	return r.f.Close()
}
