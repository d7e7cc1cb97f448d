// Package serve answers ridership forecast queries from the trained model
// pair and the gold feature table. It performs no training and no writes.
package serve

import (
	"context"
	"io"
	"sort"
	"time"

	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/ridelake/internal/adapter/storage"
	"github.com/tigerroll/ridelake/internal/config"
	"github.com/tigerroll/ridelake/internal/etl"
	"github.com/tigerroll/ridelake/internal/forecast"
	"github.com/tigerroll/ridelake/internal/support/exception"
	"github.com/tigerroll/ridelake/internal/support/logger"
)

const moduleName = "serve"

// DateLayout is the calendar-date format accepted by queries.
const DateLayout = "2006-01-02"

// Crowd-level thresholds in predicted riders per hour.
const (
	crowdMediumFloor = 500
	crowdHighFloor   = 2000
)

// CrowdLevel buckets a predicted rider count into a readable label.
func CrowdLevel(riders float64) string {
	switch {
	case riders >= crowdHighFloor:
		return "High"
	case riders >= crowdMediumFloor:
		return "Medium"
	default:
		return "Low"
	}
}

// StationInfo is the static geography of one station as observed in gold.
type StationInfo struct {
	Borough   string
	Latitude  float64
	Longitude float64
}

// Prediction is one answered forecast point.
type Prediction struct {
	Station    string
	Borough    string
	Date       string
	Hour       int
	DayOfWeek  int
	Riders     float64
	CrowdLevel string
}

// Service holds everything needed to answer queries: the model/encoder pair
// and the station geography extracted from the gold table. All state is
// loaded once at construction; queries are read-only and safe to run
// concurrently.
type Service struct {
	pair     *forecast.ArtifactPair
	stations map[string]StationInfo
}

// NewService loads the artifact pair from the configured directory and the
// station geography from the gold table. A missing artifact surfaces as
// ErrArtifactMissing so the caller can say "retrain required".
func NewService(ctx context.Context, cfg *config.Config, conn storageAdapter.Connection) (*Service, error) {
	pair, err := forecast.LoadArtifacts(cfg.Ridelake.Training.ArtifactDir)
	if err != nil {
		return nil, err
	}

	rows, err := readGold(ctx, cfg, conn)
	if err != nil {
		return nil, err
	}

	stations := make(map[string]StationInfo)
	for _, r := range rows {
		// First occurrence wins; gold is key-sorted so this is stable.
		if _, ok := stations[r.StationComplex]; !ok {
			stations[r.StationComplex] = StationInfo{
				Borough:   r.Borough,
				Latitude:  r.Latitude,
				Longitude: r.Longitude,
			}
		}
	}

	logger.Debugf("Forecast service ready: model pair %s, %d stations.", pair.PairID, len(stations))
	return &Service{pair: pair, stations: stations}, nil
}

// readGold downloads and decodes the gold feature table.
func readGold(ctx context.Context, cfg *config.Config, conn storageAdapter.Connection) ([]etl.FeatureRow, error) {
	lake := cfg.Ridelake.Lake
	rc, err := conn.Download(ctx, lake.Containers.Gold, config.GoldObjectName)
	if err != nil {
		return nil, exception.New(moduleName, "failed to read gold table; has the etl stage run?", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, exception.New(moduleName, "failed to read gold table", err)
	}
	return etl.DecodeGold(data)
}

// Stations returns the queryable station names in lexicographic order.
func (s *Service) Stations() []string {
	out := make([]string, 0, len(s.stations))
	for name := range s.stations {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Point predicts ridership for one station at one date and hour.
func (s *Service) Point(station, date string, hour int) (*Prediction, error) {
	if hour < 0 || hour > 23 {
		return nil, exception.NewKindf(moduleName, exception.ErrSchema,
			"hour %d is outside [0,23]", hour)
	}
	dow, err := dayOfWeek(date)
	if err != nil {
		return nil, err
	}
	return s.predict(station, date, hour, dow)
}

// Curve predicts the full 24-hour ridership curve for one station and date.
// The returned slice is ordered hour 0 through 23.
func (s *Service) Curve(station, date string) ([]Prediction, error) {
	dow, err := dayOfWeek(date)
	if err != nil {
		return nil, err
	}

	curve := make([]Prediction, 0, 24)
	for hour := 0; hour < 24; hour++ {
		p, err := s.predict(station, date, hour, dow)
		if err != nil {
			return nil, err
		}
		curve = append(curve, *p)
	}
	return curve, nil
}

// predict runs the model for one fully resolved query point.
func (s *Service) predict(station, date string, hour, dow int) (*Prediction, error) {
	info, ok := s.stations[station]
	if !ok {
		return nil, exception.NewKindf(moduleName, exception.ErrVocabulary,
			"station '%s' is not present in the feature table", station)
	}
	id, err := s.pair.Encoder.Encode(station)
	if err != nil {
		return nil, err
	}

	riders := s.pair.Model.Predict([]float64{
		float64(id),
		float64(hour),
		float64(dow),
		info.Latitude,
		info.Longitude,
	})

	return &Prediction{
		Station:    station,
		Borough:    info.Borough,
		Date:       date,
		Hour:       hour,
		DayOfWeek:  dow,
		Riders:     riders,
		CrowdLevel: CrowdLevel(riders),
	}, nil
}

// dayOfWeek parses a query date and returns its weekday with Monday as 0.
func dayOfWeek(date string) (int, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, exception.NewKindf(moduleName, exception.ErrSchema,
			"date '%s' does not match the %s format", date, DateLayout)
	}
	return (int(t.Weekday()) + 6) % 7, nil
}

// Module provides the forecast service to an fx application.
var Module = fx.Options(
	fx.Provide(NewService),
)
