package runcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"pywr/internal/tables"
)

// TableHash reduces a Timeseries table to a canonical-content sha256 hex
// digest: a cache key that changes if and only if the table's rows do.
func TableHash(t *tables.Table) string {
	if t == nil {
		return ""
	}
	h := sha256.New()
	fmt.Fprintf(h, "name:%s;column:%s;rows:%d;", t.Name, "", len(t.Dates))
	columns := make([]string, 0, len(t.Columns))
	for col := range t.Columns {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	for _, col := range columns {
		fmt.Fprintf(h, "col:%s=", col)
		for _, v := range t.Columns[col] {
			fmt.Fprintf(h, "%g,", v)
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}
