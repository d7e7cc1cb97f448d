// Package feature maps categorical station identifiers onto a stable dense
// integer space. The encoding is persisted next to the trained model so that
// inference-time encoding is bit-for-bit the training-time encoding.
package feature

import (
	"encoding/json"
	"sort"

	"github.com/tigerroll/ridelake/internal/support/exception"
)

const moduleName = "feature"

// StationEncoding is a bijection from station_complex to an integer id in
// [0, n). Ids are assigned in lexicographic order of the fitted station set,
// so the same set always yields the same assignment regardless of input
// order.
type StationEncoding struct {
	stations []string
	ids      map[string]int
}

// Fit builds an encoding from the given stations. Duplicates are collapsed;
// input order is irrelevant.
func Fit(stations []string) *StationEncoding {
	seen := make(map[string]bool, len(stations))
	uniq := make([]string, 0, len(stations))
	for _, s := range stations {
		if !seen[s] {
			seen[s] = true
			uniq = append(uniq, s)
		}
	}
	sort.Strings(uniq)

	ids := make(map[string]int, len(uniq))
	for i, s := range uniq {
		ids[s] = i
	}
	return &StationEncoding{stations: uniq, ids: ids}
}

// Encode returns the id of a fitted station. A station outside the fitted
// vocabulary is an error, never a default id: substituting one would make
// the model silently predict for the wrong station.
func (e *StationEncoding) Encode(station string) (int, error) {
	id, ok := e.ids[station]
	if !ok {
		return 0, exception.NewKindf(moduleName, exception.ErrVocabulary,
			"station '%s' was not seen at training time", station)
	}
	return id, nil
}

// Decode returns the station for a fitted id.
func (e *StationEncoding) Decode(id int) (string, error) {
	if id < 0 || id >= len(e.stations) {
		return "", exception.NewKindf(moduleName, exception.ErrVocabulary,
			"station id %d is outside the fitted vocabulary [0,%d)", id, len(e.stations))
	}
	return e.stations[id], nil
}

// Size returns the number of fitted stations.
func (e *StationEncoding) Size() int { return len(e.stations) }

// Stations returns the fitted vocabulary in id order.
func (e *StationEncoding) Stations() []string {
	out := make([]string, len(e.stations))
	copy(out, e.stations)
	return out
}

// encodingJSON is the persisted shape: the vocabulary in id order is enough
// to reconstruct the map exactly.
type encodingJSON struct {
	Stations []string `json:"stations"`
}

// MarshalJSON serializes the encoding.
func (e *StationEncoding) MarshalJSON() ([]byte, error) {
	return json.Marshal(encodingJSON{Stations: e.stations})
}

// UnmarshalJSON restores an encoding, rebuilding the id map from the stored
// vocabulary order without re-sorting, so the persisted assignment is reused
// unmodified.
func (e *StationEncoding) UnmarshalJSON(data []byte) error {
	var j encodingJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	e.stations = j.Stations
	e.ids = make(map[string]int, len(j.Stations))
	for i, s := range j.Stations {
		e.ids[s] = i
	}
	return nil
}
