package etl

import (
	"encoding/csv"
	"io"

	"github.com/tigerroll/ridelake/internal/support/exception"
)

// ReadCSV parses a bronze extract into a RawTable. The first record is the
// header; column names are taken verbatim (normalization happens later).
func ReadCSV(r io.Reader) (*RawTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	// The bronze snapshot is truncated at a byte budget, so the final row
	// may be incomplete. Variable field counts are tolerated here; Normalize
	// treats missing trailing fields as absent values.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, exception.NewKind(moduleName, exception.ErrSchema, "bronze extract is empty", nil)
	}
	if err != nil {
		return nil, exception.NewKind(moduleName, exception.ErrSchema, "failed to read bronze CSV header", err)
	}

	table := &RawTable{Columns: header}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, exception.NewKind(moduleName, exception.ErrSchema, "failed to read bronze CSV row", err)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
