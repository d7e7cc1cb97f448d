// Package config holds the configuration shape for storage connections.
package config

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type"`             // Adapter type ("gcs", "local", "memory").
	BucketName      string `yaml:"bucket_name"`      // Bucket for operations; defaults to the lake account name.
	CredentialsFile string `yaml:"credentials_file"` // Path to a service-account key for GCS, optional.
	BaseDir         string `yaml:"base_dir"`         // Base directory for local file system operations.
}
