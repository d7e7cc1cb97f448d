package etl

import (
	"strconv"
	"strings"
	"time"

	"github.com/tigerroll/ridelake/internal/support/exception"
)

const moduleName = "etl"

// timestampLayouts are tried in order when parsing the transit timestamp.
// The source feed has shipped both ISO-ish and US-style formats.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"01/02/2006 03:04:05 PM",
	time.RFC3339,
}

// NormalizeColumnName lower-cases a raw column name and joins spaces with
// underscores.
func NormalizeColumnName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// Normalize turns a raw extract into the silver table.
//
// Column names are normalized, then projected onto the allow-list: exactly
// the intersection of desired and available columns is kept. When the
// timestamp column survives, each value is parsed and the date, hour and
// day_of_week (ISO, Monday=0) columns are derived. No rows are filtered,
// deduplicated or null-handled beyond this; an unparseable timestamp or
// numeric fails the run with a schema error.
func Normalize(raw *RawTable) (*CleanTable, error) {
	// Index of each normalized source column.
	colIndex := make(map[string]int, len(raw.Columns))
	for i, c := range raw.Columns {
		colIndex[NormalizeColumnName(c)] = i
	}

	clean := &CleanTable{}
	for _, want := range keepColumns {
		if _, ok := colIndex[want]; ok {
			clean.Columns = append(clean.Columns, want)
		}
	}
	hasTimestamp := clean.HasColumn(ColTransitTimestamp)
	if hasTimestamp {
		clean.Columns = append(clean.Columns, ColDate, ColHour, ColDayOfWeek)
	}

	clean.Records = make([]CleanRecord, 0, len(raw.Rows))
	for rowNum, row := range raw.Rows {
		var rec CleanRecord

		rec.TransitTimestamp = stringField(row, colIndex, ColTransitTimestamp)
		rec.StationComplex = stringField(row, colIndex, ColStationComplex)
		rec.Borough = stringField(row, colIndex, ColBorough)

		var err error
		if rec.Ridership, err = floatField(row, colIndex, ColRidership); err != nil {
			return nil, schemaRowError(rowNum, ColRidership, err)
		}
		if rec.Latitude, err = floatField(row, colIndex, ColLatitude); err != nil {
			return nil, schemaRowError(rowNum, ColLatitude, err)
		}
		if rec.Longitude, err = floatField(row, colIndex, ColLongitude); err != nil {
			return nil, schemaRowError(rowNum, ColLongitude, err)
		}

		if hasTimestamp && rec.TransitTimestamp != nil {
			ts, err := ParseTimestamp(*rec.TransitTimestamp)
			if err != nil {
				return nil, schemaRowError(rowNum, ColTransitTimestamp, err)
			}
			date := ts.Format("2006-01-02")
			hour := int32(ts.Hour())
			dow := isoWeekday(ts)
			rec.Date = &date
			rec.Hour = &hour
			rec.DayOfWeek = &dow
		}

		clean.Records = append(clean.Records, rec)
	}
	return clean, nil
}

// ParseTimestamp parses a transit timestamp in UTC, trying each known
// layout in order.
func ParseTimestamp(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, value)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// isoWeekday maps time.Weekday onto ISO numbering with Monday=0 ... Sunday=6.
func isoWeekday(t time.Time) int32 {
	return int32((int(t.Weekday()) + 6) % 7)
}

// stringField returns the trimmed cell for the named column, or nil when the
// column is absent, the row is short, or the cell is empty.
func stringField(row []string, colIndex map[string]int, name string) *string {
	idx, ok := colIndex[name]
	if !ok || idx >= len(row) {
		return nil
	}
	v := strings.TrimSpace(row[idx])
	if v == "" {
		return nil
	}
	return &v
}

// floatField parses the cell for the named column as a float, or returns nil
// when the column or value is absent.
func floatField(row []string, colIndex map[string]int, name string) (*float64, error) {
	s := stringField(row, colIndex, name)
	if s == nil {
		return nil, nil
	}
	f, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func schemaRowError(rowNum int, column string, err error) error {
	return exception.NewKind(moduleName, exception.ErrSchema,
		"row "+strconv.Itoa(rowNum)+": unparseable value in column '"+column+"'", err)
}
