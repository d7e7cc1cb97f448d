// Package etl implements the bronze→silver→gold transform engine.
// Normalize and Aggregate are pure functions over in-memory tables; the
// Engine confines side effects to the read/write at each lake boundary.
package etl

// Normalized column names of the silver schema. Raw extracts arrive with
// arbitrary casing and spacing; Normalize maps them onto these.
const (
	ColTransitTimestamp = "transit_timestamp"
	ColStationComplex   = "station_complex"
	ColBorough          = "borough"
	ColRidership        = "ridership"
	ColLatitude         = "latitude"
	ColLongitude        = "longitude"
	ColDate             = "date"
	ColHour             = "hour"
	ColDayOfWeek        = "day_of_week"
	ColAvgRidership     = "avg_ridership"
)

// keepColumns is the projection allow-list applied by Normalize. Only the
// intersection of this list with the columns actually present survives;
// missing columns are dropped silently so schema drift degrades gracefully
// instead of failing the run.
var keepColumns = []string{
	ColTransitTimestamp,
	ColStationComplex,
	ColBorough,
	ColRidership,
	ColLatitude,
	ColLongitude,
}

// RawTable is an untyped tabular extract as received from the source.
// No invariant is guaranteed until Normalize has run.
type RawTable struct {
	Columns []string
	Rows    [][]string
}

// CleanRecord is one silver row. Fields are pointers because the projection
// keeps only the columns the source actually provided; absent columns stay
// nil for every record.
type CleanRecord struct {
	TransitTimestamp *string  `parquet:"name=transit_timestamp, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	StationComplex   *string  `parquet:"name=station_complex, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Borough          *string  `parquet:"name=borough, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Ridership        *float64 `parquet:"name=ridership, type=DOUBLE, repetitiontype=OPTIONAL"`
	Latitude         *float64 `parquet:"name=latitude, type=DOUBLE, repetitiontype=OPTIONAL"`
	Longitude        *float64 `parquet:"name=longitude, type=DOUBLE, repetitiontype=OPTIONAL"`
	Date             *string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Hour             *int32   `parquet:"name=hour, type=INT32, repetitiontype=OPTIONAL"`
	DayOfWeek        *int32   `parquet:"name=day_of_week, type=INT32, repetitiontype=OPTIONAL"`
}

// CleanTable is the silver table: the kept columns plus the derived
// time-based columns, and one CleanRecord per raw row.
type CleanTable struct {
	// Columns lists exactly the columns present: the intersection of the
	// allow-list with the source columns, plus date/hour/day_of_week when a
	// timestamp column existed. This makes the projection policy assertible.
	Columns []string
	Records []CleanRecord
}

// HasColumn reports whether the silver table carries the named column.
func (t *CleanTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// FeatureRow is one gold row: a unique (station, borough, location,
// time-of-week bucket) key with the mean ridership observed for it.
type FeatureRow struct {
	StationComplex string  `parquet:"name=station_complex, type=BYTE_ARRAY, convertedtype=UTF8"`
	Borough        string  `parquet:"name=borough, type=BYTE_ARRAY, convertedtype=UTF8"`
	Latitude       float64 `parquet:"name=latitude, type=DOUBLE"`
	Longitude      float64 `parquet:"name=longitude, type=DOUBLE"`
	Hour           int32   `parquet:"name=hour, type=INT32"`
	DayOfWeek      int32   `parquet:"name=day_of_week, type=INT32"`
	AvgRidership   float64 `parquet:"name=avg_ridership, type=DOUBLE"`
}
