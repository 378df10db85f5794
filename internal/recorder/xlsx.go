package recorder

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xuri/excelize/v2"

	"pywr/internal/apperror"
	"pywr/internal/calendar"
	"pywr/internal/scenario"
)

// xlsxRow is one buffered (date, scenario, metric values) observation,
// written out as a worksheet row once Finalize assembles the column set.
type xlsxRow struct {
	date     string
	scenario int
	values   map[string]float64
}

// XLSXRecorder buffers a metric set's rows in memory and writes them as a
// single wide worksheet on Finalize, rounding every value to decimalPlaces.
type XLSXRecorder struct {
	path          string
	metricSet     string
	decimalPlaces int

	mu      sync.Mutex
	rows    []xlsxRow
	columns map[string]bool
}

func NewXLSXRecorder(path, metricSet string, decimalPlaces int) *XLSXRecorder {
	return &XLSXRecorder{
		path:          path,
		metricSet:     metricSet,
		decimalPlaces: decimalPlaces,
		columns:       make(map[string]bool),
	}
}

func (r *XLSXRecorder) Record(idx scenario.Index, ts calendar.Timestep, metricSet string, values map[string]float64) error {
	if metricSet != r.metricSet {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]float64, len(values))
	for k, v := range values {
		cp[k] = v
		r.columns[k] = true
	}
	r.rows = append(r.rows, xlsxRow{date: ts.Date.Format("2006-01-02"), scenario: idx.Global, values: cp})
	return nil
}

func (r *XLSXRecorder) Finalize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	columns := make([]string, 0, len(r.columns))
	for name := range r.columns {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	f := excelize.NewFile()
	defer f.Close()

	sheet := r.metricSet
	if sheet == "" {
		sheet = "Sheet1"
	}
	f.NewSheet(sheet)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})

	f.SetCellValue(sheet, "A1", "date")
	f.SetCellValue(sheet, "B1", "scenario")
	for i, name := range columns {
		f.SetCellValue(sheet, cellAddr(3+i, 1), name)
	}
	lastCol := cellAddr(2+len(columns), 1)
	f.SetCellStyle(sheet, "A1", lastCol, headerStyle)

	format := fmt.Sprintf("%%.%df", r.decimalPlaces)
	if r.decimalPlaces <= 0 {
		format = "%g"
	}

	for i, row := range r.rows {
		excelRow := i + 2
		f.SetCellValue(sheet, cellAddr(1, excelRow), row.date)
		f.SetCellValue(sheet, cellAddr(2, excelRow), row.scenario)
		for j, name := range columns {
			v, ok := row.values[name]
			if !ok {
				continue
			}
			f.SetCellValue(sheet, cellAddr(3+j, excelRow), fmt.Sprintf(format, v))
		}
	}
	f.SetColWidth(sheet, "A", "B", 14)

	if err := f.SaveAs(r.path); err != nil {
		return apperror.Wrap(err, apperror.CodeDataError, "write xlsx output").WithField(r.path)
	}
	return nil
}

// cellAddr builds an A1-style reference from a 1-based column/row pair.
func cellAddr(col, row int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		name = "A"
	}
	return fmt.Sprintf("%s%d", name, row)
}
