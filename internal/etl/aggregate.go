package etl

import (
	"sort"
	"strings"

	"github.com/tigerroll/ridelake/internal/support/exception"
)

// requiredAggregationColumns must all be present in the silver table for
// gold aggregation to run. A missing one is a fatal configuration error for
// the run, not something to paper over.
var requiredAggregationColumns = []string{
	ColStationComplex,
	ColBorough,
	ColLatitude,
	ColLongitude,
	ColHour,
	ColDayOfWeek,
	ColRidership,
}

// groupKey is the 6-tuple gold grouping key.
type groupKey struct {
	station   string
	borough   string
	latitude  float64
	longitude float64
	hour      int32
	dayOfWeek int32
}

// Aggregate reduces the silver table to the gold feature table: one row per
// unique (station_complex, borough, latitude, longitude, hour, day_of_week)
// with the arithmetic mean of ridership as avg_ridership.
//
// Rows missing any key field or the ridership value are excluded from
// grouping. The output is sorted by the grouping key, so for a fixed input
// the gold table is identical on every run regardless of row order.
func Aggregate(clean *CleanTable) ([]FeatureRow, error) {
	var missing []string
	for _, col := range requiredAggregationColumns {
		if !clean.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, exception.NewKindf(moduleName, exception.ErrSchema,
			"cannot aggregate: required column(s) missing from silver table: %s", strings.Join(missing, ", "))
	}

	type acc struct {
		sum   float64
		count int64
	}
	groups := make(map[groupKey]*acc)
	for _, rec := range clean.Records {
		if rec.StationComplex == nil || rec.Borough == nil || rec.Latitude == nil ||
			rec.Longitude == nil || rec.Hour == nil || rec.DayOfWeek == nil || rec.Ridership == nil {
			continue
		}
		key := groupKey{
			station:   *rec.StationComplex,
			borough:   *rec.Borough,
			latitude:  *rec.Latitude,
			longitude: *rec.Longitude,
			hour:      *rec.Hour,
			dayOfWeek: *rec.DayOfWeek,
		}
		a, ok := groups[key]
		if !ok {
			a = &acc{}
			groups[key] = a
		}
		a.sum += *rec.Ridership
		a.count++
	}

	rows := make([]FeatureRow, 0, len(groups))
	for key, a := range groups {
		rows = append(rows, FeatureRow{
			StationComplex: key.station,
			Borough:        key.borough,
			Latitude:       key.latitude,
			Longitude:      key.longitude,
			Hour:           key.hour,
			DayOfWeek:      key.dayOfWeek,
			AvgRidership:   a.sum / float64(a.count),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.StationComplex != b.StationComplex {
			return a.StationComplex < b.StationComplex
		}
		if a.Borough != b.Borough {
			return a.Borough < b.Borough
		}
		if a.Latitude != b.Latitude {
			return a.Latitude < b.Latitude
		}
		if a.Longitude != b.Longitude {
			return a.Longitude < b.Longitude
		}
		if a.Hour != b.Hour {
			return a.Hour < b.Hour
		}
		return a.DayOfWeek < b.DayOfWeek
	})
	return rows, nil
}
