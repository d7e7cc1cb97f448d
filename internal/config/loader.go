package config

import (
	_ "embed"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/ridelake/internal/support/exception"
	"github.com/tigerroll/ridelake/internal/support/logger"
)

const moduleName = "config"

// embeddedConfig holds the default application.yaml bundled into the binary.
//
//go:embed application.yaml
var embeddedConfig []byte

// Load loads configuration in three layers: compiled-in defaults, the
// embedded YAML (with ${VAR} environment expansion) and explicit environment
// variable overrides. A .env file is honoured when present.
// This function is expected to be called once during stage startup.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}

	cfg := NewConfig()

	expanded := expandEnv(embeddedConfig)
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, exception.NewKind(moduleName, exception.ErrConfiguration, "failed to unmarshal embedded config", err)
	}

	applyEnvOverrides(cfg)

	logger.SetLogLevel(cfg.Ridelake.System.Logging.Level)
	return cfg, nil
}

// expandEnv replaces ${VAR} references in the raw YAML with the value of the
// corresponding environment variable. Unset variables expand to the empty
// string so that optional keys simply stay empty.
func expandEnv(raw []byte) []byte {
	return []byte(os.Expand(string(raw), os.Getenv))
}

// applyEnvOverrides overrides the load-bearing keys from the environment.
// The embedded YAML already expands most of these; direct overrides keep
// behaviour predictable when the binary ships with a customised YAML.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STORAGE_ACCOUNT_NAME"); v != "" {
		cfg.Ridelake.Lake.Account = v
	}
	if v := os.Getenv("RIDELAKE_LOG_LEVEL"); v != "" {
		cfg.Ridelake.System.Logging.Level = v
	}
	if v := os.Getenv("RIDELAKE_SOURCE_URL"); v != "" {
		cfg.Ridelake.Ingest.SourceURL = v
	}
	if v := os.Getenv("RIDELAKE_RUNLOG_DRIVER"); v != "" {
		cfg.Ridelake.Runlog.Driver = v
	}
	if v := os.Getenv("RIDELAKE_RUNLOG_DSN"); v != "" {
		cfg.Ridelake.Runlog.DSN = v
	}
	if v := os.Getenv("RIDELAKE_ARTIFACT_DIR"); v != "" {
		cfg.Ridelake.Training.ArtifactDir = v
	}
}

// Validate checks the invariants every stage depends on. The storage account
// name is required before any I/O happens; there is no default store.
func (c *Config) Validate() error {
	if c.Ridelake.Lake.Account == "" {
		return exception.NewKindf(moduleName, exception.ErrConfiguration,
			"STORAGE_ACCOUNT_NAME is not set; the object-store endpoint cannot be constructed")
	}
	if c.Ridelake.Ingest.ByteBudget <= 0 {
		return exception.NewKindf(moduleName, exception.ErrConfiguration,
			"ingest.byte_budget must be positive, got %d", c.Ridelake.Ingest.ByteBudget)
	}
	if c.Ridelake.Training.HoldoutRatio <= 0 || c.Ridelake.Training.HoldoutRatio >= 1 {
		return exception.NewKindf(moduleName, exception.ErrConfiguration,
			"training.holdout_ratio must be in (0,1), got %v", c.Ridelake.Training.HoldoutRatio)
	}
	return nil
}

// NewValidatedConfig loads the configuration and validates it.
// Stage binaries call this before assembling their fx graph so that a
// missing account name surfaces as a readable diagnostic, not a DI error.
func NewValidatedConfig() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
