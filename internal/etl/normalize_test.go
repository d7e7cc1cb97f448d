package etl_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/ridelake/internal/etl"
	"github.com/tigerroll/ridelake/internal/support/exception"
)

func TestNormalizeColumnName(t *testing.T) {
	assert.Equal(t, "transit_timestamp", etl.NormalizeColumnName("Transit Timestamp"))
	assert.Equal(t, "station_complex", etl.NormalizeColumnName("  Station Complex  "))
	assert.Equal(t, "ridership", etl.NormalizeColumnName("ridership"))
}

func TestNormalizeProjectsOntoAllowList(t *testing.T) {
	raw := &etl.RawTable{
		Columns: []string{"Transit Timestamp", "Station Complex", "Borough", "Ridership", "Latitude", "Longitude", "Payment Method", "Fare Class Category"},
		Rows: [][]string{
			{"2024-03-04 08:00:00", "Grand Central-42 St", "Manhattan", "1500", "40.7527", "-73.9772", "omny", "full fare"},
		},
	}

	clean, err := etl.Normalize(raw)
	require.NoError(t, err)

	// Kept columns plus the three derived ones, nothing from outside the list.
	assert.Equal(t, []string{
		etl.ColTransitTimestamp, etl.ColStationComplex, etl.ColBorough,
		etl.ColRidership, etl.ColLatitude, etl.ColLongitude,
		etl.ColDate, etl.ColHour, etl.ColDayOfWeek,
	}, clean.Columns)
	assert.False(t, clean.HasColumn("payment_method"))
	assert.False(t, clean.HasColumn("fare_class_category"))

	require.Len(t, clean.Records, 1)
	rec := clean.Records[0]
	require.NotNil(t, rec.StationComplex)
	assert.Equal(t, "Grand Central-42 St", *rec.StationComplex)
	require.NotNil(t, rec.Ridership)
	assert.Equal(t, 1500.0, *rec.Ridership)
	require.NotNil(t, rec.Date)
	assert.Equal(t, "2024-03-04", *rec.Date)
	require.NotNil(t, rec.Hour)
	assert.Equal(t, int32(8), *rec.Hour)
	// 2024-03-04 is a Monday.
	require.NotNil(t, rec.DayOfWeek)
	assert.Equal(t, int32(0), *rec.DayOfWeek)
}

func TestNormalizeDayOfWeekMondayZeroSundaySix(t *testing.T) {
	raw := &etl.RawTable{
		Columns: []string{"transit_timestamp"},
		Rows: [][]string{
			{"2024-03-04 00:00:00"}, // Monday
			{"2024-03-10 00:00:00"}, // Sunday
		},
	}

	clean, err := etl.Normalize(raw)
	require.NoError(t, err)
	require.Len(t, clean.Records, 2)
	assert.Equal(t, int32(0), *clean.Records[0].DayOfWeek)
	assert.Equal(t, int32(6), *clean.Records[1].DayOfWeek)
}

func TestNormalizeKeepsRowCount(t *testing.T) {
	raw := &etl.RawTable{
		Columns: []string{"station_complex", "ridership"},
		Rows: [][]string{
			{"A", "1"},
			{"A", "1"}, // duplicate stays
			{"B", ""},  // empty value stays as a row with a nil field
		},
	}

	clean, err := etl.Normalize(raw)
	require.NoError(t, err)
	assert.Len(t, clean.Records, 3)
	assert.Nil(t, clean.Records[2].Ridership)
}

func TestNormalizeWithoutTimestampDerivesNothing(t *testing.T) {
	raw := &etl.RawTable{
		Columns: []string{"station_complex", "ridership"},
		Rows:    [][]string{{"A", "10"}},
	}

	clean, err := etl.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{etl.ColStationComplex, etl.ColRidership}, clean.Columns)
	assert.Nil(t, clean.Records[0].Date)
	assert.Nil(t, clean.Records[0].Hour)
	assert.Nil(t, clean.Records[0].DayOfWeek)
}

func TestNormalizeShortRowTreatedAsMissing(t *testing.T) {
	// The bronze snapshot is truncated at a byte budget, so the last row can
	// arrive with fewer fields than the header.
	raw := &etl.RawTable{
		Columns: []string{"station_complex", "borough", "ridership"},
		Rows: [][]string{
			{"A", "Queens", "12"},
			{"B"},
		},
	}

	clean, err := etl.Normalize(raw)
	require.NoError(t, err)
	require.Len(t, clean.Records, 2)
	assert.Nil(t, clean.Records[1].Borough)
	assert.Nil(t, clean.Records[1].Ridership)
}

func TestNormalizeRejectsUnparseableValues(t *testing.T) {
	tests := []struct {
		name string
		raw  *etl.RawTable
	}{
		{
			name: "bad ridership",
			raw: &etl.RawTable{
				Columns: []string{"ridership"},
				Rows:    [][]string{{"lots"}},
			},
		},
		{
			name: "bad timestamp",
			raw: &etl.RawTable{
				Columns: []string{"transit_timestamp"},
				Rows:    [][]string{{"yesterday"}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := etl.Normalize(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, exception.ErrSchema)
		})
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	for _, value := range []string{
		"2024-03-04 08:00:00",
		"03/04/2024 08:00:00 AM",
		"2024-03-04T08:00:00Z",
	} {
		ts, err := etl.ParseTimestamp(value)
		require.NoError(t, err, value)
		assert.Equal(t, 8, ts.Hour(), value)
	}
}

func TestReadCSV(t *testing.T) {
	t.Run("parses header and rows", func(t *testing.T) {
		raw, err := etl.ReadCSV(strings.NewReader("a,b\n1,2\n3,4\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, raw.Columns)
		assert.Len(t, raw.Rows, 2)
	})

	t.Run("tolerates a truncated final row", func(t *testing.T) {
		raw, err := etl.ReadCSV(strings.NewReader("a,b,c\n1,2,3\n4,5"))
		require.NoError(t, err)
		assert.Len(t, raw.Rows, 2)
		assert.Equal(t, []string{"4", "5"}, raw.Rows[1])
	})

	t.Run("empty input is a schema error", func(t *testing.T) {
		_, err := etl.ReadCSV(strings.NewReader(""))
		require.Error(t, err)
		assert.ErrorIs(t, err, exception.ErrSchema)
	})
}
