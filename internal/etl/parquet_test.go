package etl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/ridelake/internal/etl"
)

func TestSilverParquetRoundTrip(t *testing.T) {
	missing := silverRecord("B", "Bronx", 40.81, -73.92, 9, 2, 0)
	missing.Ridership = nil
	missing.Borough = nil

	in := &etl.CleanTable{
		Columns: silverColumns,
		Records: []etl.CleanRecord{
			silverRecord("A", "Queens", 40.75, -73.97, 8, 0, 123.5),
			missing,
		},
	}

	data, err := etl.EncodeSilver(in)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	out, err := etl.DecodeSilver(data)
	require.NoError(t, err)
	require.Len(t, out.Records, 2)

	assert.Equal(t, "A", *out.Records[0].StationComplex)
	assert.Equal(t, 123.5, *out.Records[0].Ridership)
	assert.Equal(t, int32(8), *out.Records[0].Hour)

	// Nil fields survive as nil, not as zero values.
	assert.Nil(t, out.Records[1].Ridership)
	assert.Nil(t, out.Records[1].Borough)
	assert.Equal(t, "B", *out.Records[1].StationComplex)
}

func TestDecodeSilverPreservesColumnList(t *testing.T) {
	in := &etl.CleanTable{
		Columns: []string{etl.ColStationComplex, etl.ColRidership},
		Records: []etl.CleanRecord{
			silverRecord("A", "", 0, 0, 0, 0, 10),
		},
	}
	in.Records[0].Borough = nil
	in.Records[0].Latitude = nil
	in.Records[0].Longitude = nil
	in.Records[0].Hour = nil
	in.Records[0].DayOfWeek = nil

	data, err := etl.EncodeSilver(in)
	require.NoError(t, err)

	out, err := etl.DecodeSilver(data)
	require.NoError(t, err)
	assert.Equal(t, []string{etl.ColStationComplex, etl.ColRidership}, out.Columns)
}

func TestDecodeSilverKeepsAllNilColumnPresent(t *testing.T) {
	// A column can survive the projection with every cell empty; its presence
	// is part of the table, not a property of the values.
	rec := silverRecord("A", "", 40.75, -73.97, 8, 0, 100)
	rec.Borough = nil

	in := &etl.CleanTable{Columns: silverColumns, Records: []etl.CleanRecord{rec}}
	data, err := etl.EncodeSilver(in)
	require.NoError(t, err)

	out, err := etl.DecodeSilver(data)
	require.NoError(t, err)
	assert.Equal(t, silverColumns, out.Columns)
	assert.True(t, out.HasColumn(etl.ColBorough))

	// Aggregation over the decoded table drops the nil-borough row instead of
	// failing on a missing column.
	rows, err := etl.Aggregate(out)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDecodeSilverEmptyTableKeepsColumns(t *testing.T) {
	in := &etl.CleanTable{Columns: silverColumns}

	data, err := etl.EncodeSilver(in)
	require.NoError(t, err)

	out, err := etl.DecodeSilver(data)
	require.NoError(t, err)
	assert.Equal(t, silverColumns, out.Columns)
	assert.Empty(t, out.Records)
}

func TestGoldParquetRoundTrip(t *testing.T) {
	in := []etl.FeatureRow{
		{StationComplex: "A", Borough: "Queens", Latitude: 40.75, Longitude: -73.97, Hour: 8, DayOfWeek: 0, AvgRidership: 150},
		{StationComplex: "B", Borough: "Bronx", Latitude: 40.81, Longitude: -73.92, Hour: 17, DayOfWeek: 4, AvgRidership: 900.25},
	}

	data, err := etl.EncodeGold(in)
	require.NoError(t, err)

	out, err := etl.DecodeGold(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEncodeGoldEmptyTableRoundTrips(t *testing.T) {
	data, err := etl.EncodeGold(nil)
	require.NoError(t, err)

	out, err := etl.DecodeGold(data)
	require.NoError(t, err)
	assert.Empty(t, out)
}
