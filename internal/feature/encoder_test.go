package feature_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/ridelake/internal/feature"
	"github.com/tigerroll/ridelake/internal/support/exception"
)

func TestFitAssignsLexicographicIds(t *testing.T) {
	enc := feature.Fit([]string{"C", "A", "B"})

	assert.Equal(t, 3, enc.Size())
	for station, want := range map[string]int{"A": 0, "B": 1, "C": 2} {
		id, err := enc.Encode(station)
		require.NoError(t, err)
		assert.Equal(t, want, id, station)
	}
}

func TestFitCollapsesDuplicatesAndIgnoresOrder(t *testing.T) {
	a := feature.Fit([]string{"B", "A", "B", "A", "C"})
	b := feature.Fit([]string{"C", "C", "B", "A"})

	assert.Equal(t, a.Stations(), b.Stations())
	assert.Equal(t, 3, a.Size())
}

func TestEncodeUnknownStationFails(t *testing.T) {
	enc := feature.Fit([]string{"A", "B", "C"})

	_, err := enc.Encode("Z")
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrVocabulary)
	assert.Contains(t, err.Error(), "Z")
}

func TestDecode(t *testing.T) {
	enc := feature.Fit([]string{"A", "B"})

	station, err := enc.Decode(1)
	require.NoError(t, err)
	assert.Equal(t, "B", station)

	_, err = enc.Decode(2)
	assert.ErrorIs(t, err, exception.ErrVocabulary)
	_, err = enc.Decode(-1)
	assert.ErrorIs(t, err, exception.ErrVocabulary)
}

func TestEncodingJSONRoundTripPreservesAssignment(t *testing.T) {
	enc := feature.Fit([]string{"Flushing-Main St", "Grand Central-42 St", "Astoria Blvd"})

	data, err := json.Marshal(enc)
	require.NoError(t, err)

	var restored feature.StationEncoding
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.Equal(t, enc.Stations(), restored.Stations())
	for _, station := range enc.Stations() {
		want, err := enc.Encode(station)
		require.NoError(t, err)
		got, err := restored.Encode(station)
		require.NoError(t, err)
		assert.Equal(t, want, got, station)
	}
}
