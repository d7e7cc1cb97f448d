package forecast

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/tigerroll/ridelake/internal/feature"
	"github.com/tigerroll/ridelake/internal/support/exception"
)

// Artifact file names under the artifact directory. The two files form one
// logical unit and are only valid together.
const (
	ModelFileName   = "ridership_model.json"
	EncoderFileName = "station_encoder.json"
)

// ArtifactPair is a trained model together with the encoder it was trained
// with. PairID ties the two persisted files to the same training run; a
// model loaded next to an encoder from a different run must be rejected.
type ArtifactPair struct {
	PairID    string
	TrainedAt time.Time
	Model     *RegressionForest
	Encoder   *feature.StationEncoding
	// HoldoutMAE is nil when the gold table was too small for a holdout
	// split. The model is persisted either way.
	HoldoutMAE   *float64
	TrainingRows int
}

// modelArtifact is the persisted shape of the model half.
type modelArtifact struct {
	PairID       string            `json:"pair_id"`
	TrainedAt    time.Time         `json:"trained_at"`
	HoldoutMAE   *float64          `json:"holdout_mae,omitempty"`
	TrainingRows int               `json:"training_rows"`
	Forest       *RegressionForest `json:"forest"`
}

// encoderArtifact is the persisted shape of the encoder half.
type encoderArtifact struct {
	PairID   string                   `json:"pair_id"`
	Encoding *feature.StationEncoding `json:"encoding"`
}

// NewArtifactPair stamps a freshly trained model and encoder with a shared
// pair id.
func NewArtifactPair(model *RegressionForest, enc *feature.StationEncoding, holdoutMAE *float64, trainingRows int) *ArtifactPair {
	return &ArtifactPair{
		PairID:       uuid.New().String(),
		TrainedAt:    time.Now().UTC(),
		Model:        model,
		Encoder:      enc,
		HoldoutMAE:   holdoutMAE,
		TrainingRows: trainingRows,
	}
}

// Save writes both artifact files under dir, replacing any previous pair.
// The encoder is written first so a crash between the two writes leaves a
// stale model detectable by the pair-id check on load.
func (p *ArtifactPair) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return exception.New(moduleName, "failed to create artifact directory", err)
	}

	encBytes, err := json.MarshalIndent(encoderArtifact{PairID: p.PairID, Encoding: p.Encoder}, "", "  ")
	if err != nil {
		return exception.New(moduleName, "failed to serialize station encoder", err)
	}
	if err := os.WriteFile(filepath.Join(dir, EncoderFileName), encBytes, 0o644); err != nil {
		return exception.New(moduleName, "failed to write station encoder artifact", err)
	}

	modelBytes, err := json.MarshalIndent(modelArtifact{
		PairID:       p.PairID,
		TrainedAt:    p.TrainedAt,
		HoldoutMAE:   p.HoldoutMAE,
		TrainingRows: p.TrainingRows,
		Forest:       p.Model,
	}, "", "  ")
	if err != nil {
		return exception.New(moduleName, "failed to serialize model", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ModelFileName), modelBytes, 0o644); err != nil {
		return exception.New(moduleName, "failed to write model artifact", err)
	}
	return nil
}

// LoadArtifacts reads the model/encoder pair from dir. A missing file is
// classified ErrArtifactMissing so callers can answer "retrain required"
// instead of failing opaquely. Files from different training runs are
// rejected.
func LoadArtifacts(dir string) (*ArtifactPair, error) {
	modelBytes, err := os.ReadFile(filepath.Join(dir, ModelFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, exception.NewKindf(moduleName, exception.ErrArtifactMissing,
				"model artifact %s not found in %s", ModelFileName, dir)
		}
		return nil, exception.New(moduleName, "failed to read model artifact", err)
	}
	encBytes, err := os.ReadFile(filepath.Join(dir, EncoderFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, exception.NewKindf(moduleName, exception.ErrArtifactMissing,
				"encoder artifact %s not found in %s", EncoderFileName, dir)
		}
		return nil, exception.New(moduleName, "failed to read encoder artifact", err)
	}

	var m modelArtifact
	if err := json.Unmarshal(modelBytes, &m); err != nil {
		return nil, exception.New(moduleName, "model artifact is corrupted", err)
	}
	var e encoderArtifact
	if err := json.Unmarshal(encBytes, &e); err != nil {
		return nil, exception.New(moduleName, "encoder artifact is corrupted", err)
	}

	if m.PairID != e.PairID {
		return nil, exception.NewKindf(moduleName, exception.ErrArtifactMissing,
			"model (pair %s) and encoder (pair %s) come from different training runs", m.PairID, e.PairID)
	}

	return &ArtifactPair{
		PairID:       m.PairID,
		TrainedAt:    m.TrainedAt,
		Model:        m.Forest,
		Encoder:      e.Encoding,
		HoldoutMAE:   m.HoldoutMAE,
		TrainingRows: m.TrainingRows,
	}, nil
}
