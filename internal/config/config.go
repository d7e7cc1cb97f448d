// Package config loads and validates the pipeline configuration.
// Defaults come from the embedded application.yaml; a .env file and process
// environment variables override them. The storage account name is the one
// required external parameter: every stage refuses to run without it.
package config

// Object names inside the lake containers. One blob per named path; every
// write replaces the previous snapshot wholesale.
const (
	BronzeObjectName = "ridership_raw.csv"
	SilverObjectName = "ridership_clean.parquet"
	GoldObjectName   = "ridership_features.parquet"
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g. "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone used for timestamp parsing.
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// ContainersConfig names the three lake containers of the medallion layout.
type ContainersConfig struct {
	Bronze string `yaml:"bronze"`
	Silver string `yaml:"silver"`
	Gold   string `yaml:"gold"`
}

// LakeConfig describes the object-store lake shared by all stages.
type LakeConfig struct {
	// Account is the storage-account identity used to construct the
	// object-store endpoint. Required; there is no fallback store.
	Account string `yaml:"account"`
	// ConnectionRef is the name of the storage connection in the adapter
	// configuration used for lake I/O.
	ConnectionRef string `yaml:"connection_ref"`
	// Containers holds the bronze/silver/gold container names.
	Containers ContainersConfig `yaml:"containers"`
}

// IngestConfig configures the raw fetcher stage.
type IngestConfig struct {
	// SourceURL is the fixed external HTTP source of the raw extract.
	SourceURL string `yaml:"source_url"`
	// ByteBudget caps the number of bytes fetched per run. The fetch is
	// deliberately a sample of the source, not guaranteed-complete data.
	ByteBudget int64 `yaml:"byte_budget"`
	// ChunkSize is the network read chunk size in bytes.
	ChunkSize int `yaml:"chunk_size"`
	// TimeoutSeconds bounds the whole HTTP request.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// TrainingConfig configures the model training stage.
type TrainingConfig struct {
	// Trees is the number of trees in the regression forest.
	Trees int `yaml:"trees"`
	// Seed makes the holdout split and bootstrap sampling reproducible.
	Seed int64 `yaml:"seed"`
	// HoldoutRatio is the fraction of gold rows held out for evaluation.
	HoldoutRatio float64 `yaml:"holdout_ratio"`
	// ArtifactDir is the local directory holding the model/encoder pair.
	ArtifactDir string `yaml:"artifact_dir"`
}

// RunlogConfig configures the stage-execution run log.
type RunlogConfig struct {
	// Driver selects the gorm dialect: "sqlite", "postgres" or "mysql".
	Driver string `yaml:"driver"`
	// DSN is the database source name. For sqlite this is a file path.
	DSN string `yaml:"dsn"`
	// Disabled turns run logging off entirely.
	Disabled bool `yaml:"disabled"`
}

// TelemetryConfig configures optional metrics and tracing sinks.
type TelemetryConfig struct {
	// PushgatewayURL, when set, receives stage metrics at the end of each run.
	PushgatewayURL string `yaml:"pushgateway_url"`
	// OTLPEndpointURL, when set, receives a trace span per stage run.
	OTLPEndpointURL string `yaml:"otlp_endpoint_url"`
}

// RidelakeConfig holds all configuration under the "ridelake" top-level key.
type RidelakeConfig struct {
	System    SystemConfig    `yaml:"system"`
	Lake      LakeConfig      `yaml:"lake"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Training  TrainingConfig  `yaml:"training"`
	Runlog    RunlogConfig    `yaml:"runlog"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	// AdapterConfigs holds named adapter configurations, typically storage
	// connections, decoded lazily by the providers that consume them.
	AdapterConfigs map[string]interface{} `yaml:"adapter"`
}

// Config is the root structure for the application configuration.
type Config struct {
	Ridelake RidelakeConfig `yaml:"ridelake"`
}

// NewConfig returns a Config populated with defaults. Values present in the
// embedded YAML or the environment overwrite these.
func NewConfig() *Config {
	return &Config{
		Ridelake: RidelakeConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Lake: LakeConfig{
				ConnectionRef: "lake",
				Containers: ContainersConfig{
					Bronze: "bronze",
					Silver: "silver",
					Gold:   "gold",
				},
			},
			Ingest: IngestConfig{
				SourceURL:      "https://data.ny.gov/api/views/wujg-7c2s/rows.csv?accessType=DOWNLOAD",
				ByteBudget:     10 * 1024 * 1024,
				ChunkSize:      64 * 1024,
				TimeoutSeconds: 120,
			},
			Training: TrainingConfig{
				Trees:        50,
				Seed:         42,
				HoldoutRatio: 0.2,
				ArtifactDir:  "artifacts",
			},
			Runlog: RunlogConfig{
				Driver: "sqlite",
				DSN:    "ridelake_runs.db",
			},
		},
	}
}
