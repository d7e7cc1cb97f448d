package forecast

import (
	"context"
	"io"
	"math"
	"math/rand"

	"go.uber.org/fx"
	"gonum.org/v1/gonum/stat"

	storageAdapter "github.com/tigerroll/ridelake/internal/adapter/storage"
	"github.com/tigerroll/ridelake/internal/config"
	"github.com/tigerroll/ridelake/internal/domain/model"
	"github.com/tigerroll/ridelake/internal/etl"
	"github.com/tigerroll/ridelake/internal/feature"
	"github.com/tigerroll/ridelake/internal/pipeline"
	"github.com/tigerroll/ridelake/internal/support/exception"
	"github.com/tigerroll/ridelake/internal/support/logger"
)

const moduleName = "forecast"

// Vectorize turns a gold row into the model feature vector using the given
// encoding. The layout must match the Feat* constants.
func Vectorize(row etl.FeatureRow, enc *feature.StationEncoding) ([]float64, error) {
	id, err := enc.Encode(row.StationComplex)
	if err != nil {
		return nil, err
	}
	return []float64{
		float64(id),
		float64(row.Hour),
		float64(row.DayOfWeek),
		row.Latitude,
		row.Longitude,
	}, nil
}

// Train fits a forest on the gold rows. The encoder is fitted on the full
// station set first, so every row encodes. A seeded holdout split yields an
// offline mean-absolute-error estimate; the estimate is informational only
// and never blocks the model from being produced.
func Train(rows []etl.FeatureRow, cfg config.TrainingConfig) (*ArtifactPair, error) {
	if len(rows) == 0 {
		return nil, exception.NewKind(moduleName, exception.ErrSchema,
			"gold table is empty, nothing to train on", nil)
	}

	stations := make([]string, len(rows))
	for i, r := range rows {
		stations[i] = r.StationComplex
	}
	enc := feature.Fit(stations)

	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, r := range rows {
		vec, err := Vectorize(r, enc)
		if err != nil {
			return nil, err
		}
		X[i] = vec
		y[i] = r.AvgRidership
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	perm := rng.Perm(len(rows))
	holdout := int(math.Round(float64(len(rows)) * cfg.HoldoutRatio))
	if holdout >= len(rows) {
		holdout = len(rows) - 1
	}

	trainIdx := perm[holdout:]
	testIdx := perm[:holdout]

	trainX := make([][]float64, len(trainIdx))
	trainY := make([]float64, len(trainIdx))
	for i, j := range trainIdx {
		trainX[i] = X[j]
		trainY[i] = y[j]
	}

	params := DefaultForestParams()
	params.Trees = cfg.Trees
	params.Seed = cfg.Seed
	forest := FitForest(trainX, trainY, params)

	// MAE is a quality signal only; without a holdout it stays unset and the
	// model is persisted regardless.
	var mae *float64
	if len(testIdx) > 0 {
		absErr := make([]float64, len(testIdx))
		for i, j := range testIdx {
			absErr[i] = math.Abs(forest.Predict(X[j]) - y[j])
		}
		m := stat.Mean(absErr, nil)
		mae = &m
		logger.Infof("Held-out MAE over %d rows: %.3f riders.", len(testIdx), m)
	} else {
		logger.Warnf("Too few rows (%d) for a holdout split; skipping offline evaluation.", len(rows))
	}

	return NewArtifactPair(forest, enc, mae, len(trainIdx)), nil
}

// Trainer is the training stage: gold parquet in, model/encoder artifact
// pair out.
type Trainer struct {
	cfg  config.TrainingConfig
	lake config.LakeConfig
	conn storageAdapter.Connection
}

var _ pipeline.Stage = (*Trainer)(nil)

// NewTrainer creates the training stage over the lake connection.
func NewTrainer(cfg *config.Config, conn storageAdapter.Connection) *Trainer {
	return &Trainer{cfg: cfg.Ridelake.Training, lake: cfg.Ridelake.Lake, conn: conn}
}

// Name returns "train".
func (t *Trainer) Name() string { return "train" }

// Execute downloads the gold table, trains the model and persists the
// artifact pair. Both files are replaced atomically from the caller's point
// of view: a run that fails before Save leaves the prior pair intact.
func (t *Trainer) Execute(ctx context.Context, exec *model.StageExecution) error {
	rows, err := t.readGold(ctx)
	if err != nil {
		return err
	}
	exec.RowsRead = int64(len(rows))

	pair, err := Train(rows, t.cfg)
	if err != nil {
		return err
	}
	if err := pair.Save(t.cfg.ArtifactDir); err != nil {
		return err
	}
	exec.RowsWritten = int64(pair.TrainingRows)
	logger.Infof("Model pair %s saved to %s (%d stations, %d training rows).",
		pair.PairID, t.cfg.ArtifactDir, pair.Encoder.Size(), pair.TrainingRows)
	return nil
}

// readGold downloads and decodes the gold feature table.
func (t *Trainer) readGold(ctx context.Context) ([]etl.FeatureRow, error) {
	rc, err := t.conn.Download(ctx, t.lake.Containers.Gold, config.GoldObjectName)
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

// Module provides the training stage to an fx application.
var Module = fx.Options(
	fx.Provide(
		NewTrainer,
		func(t *Trainer) pipeline.Stage { return t },
	),
)
