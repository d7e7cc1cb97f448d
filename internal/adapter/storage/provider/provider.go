// Package provider resolves the configured lake storage connection.
// The adapter configuration lives under ridelake.adapter.storage.<name> as a
// loosely typed map and is decoded here with mapstructure, so new adapter
// types only touch this package.
package provider

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/ridelake/internal/adapter/storage"
	storageConfig "github.com/tigerroll/ridelake/internal/adapter/storage/config"
	"github.com/tigerroll/ridelake/internal/adapter/storage/gcs"
	"github.com/tigerroll/ridelake/internal/adapter/storage/local"
	"github.com/tigerroll/ridelake/internal/adapter/storage/memory"
	"github.com/tigerroll/ridelake/internal/config"
	"github.com/tigerroll/ridelake/internal/support/logger"
)

// NewLakeConnection resolves the storage connection named by
// lake.connection_ref. The adapter type defaults to "local" so a developer
// machine works without any cloud credentials; the bucket defaults to the
// lake account name, which is how the account identity becomes the
// object-store endpoint.
func NewLakeConnection(ctx context.Context, cfg *config.Config) (storageAdapter.Connection, error) {
	name := cfg.Ridelake.Lake.ConnectionRef
	storageCfg, err := decodeStorageConfig(cfg, name)
	if err != nil {
		return nil, err
	}

	if storageCfg.Type == "" {
		storageCfg.Type = local.ProviderType
	}
	if storageCfg.BucketName == "" {
		storageCfg.BucketName = cfg.Ridelake.Lake.Account
	}
	if storageCfg.Type == local.ProviderType && storageCfg.BaseDir == "" {
		storageCfg.BaseDir = ".ridelake"
	}

	logger.Debugf("Resolving lake storage connection '%s' (type=%s, bucket=%s).", name, storageCfg.Type, storageCfg.BucketName)

	switch storageCfg.Type {
	case gcs.ProviderType:
		return gcs.NewAdapter(ctx, storageCfg, name)
	case local.ProviderType:
		return local.NewAdapter(storageCfg, name)
	case memory.ProviderType:
		return memory.NewAdapter(name), nil
	default:
		return nil, fmt.Errorf("unsupported storage adapter type '%s' for connection '%s'", storageCfg.Type, name)
	}
}

// decodeStorageConfig extracts the named storage configuration from the
// loosely typed adapter map. A missing entry is not an error: defaults apply.
func decodeStorageConfig(cfg *config.Config, name string) (storageConfig.StorageConfig, error) {
	var storageCfg storageConfig.StorageConfig

	adapterCfg := cfg.Ridelake.AdapterConfigs
	if adapterCfg == nil {
		return storageCfg, nil
	}
	storageMap, ok := adapterCfg["storage"].(map[string]interface{})
	if !ok {
		return storageCfg, nil
	}
	namedCfg, ok := storageMap[name]
	if !ok {
		return storageCfg, nil
	}

	decoderConfig := &mapstructure.DecoderConfig{
		Result:  &storageCfg,
		TagName: "yaml",
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return storageCfg, fmt.Errorf("failed to create decoder for storage config '%s': %w", name, err)
	}
	if err := decoder.Decode(namedCfg); err != nil {
		return storageCfg, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}
	return storageCfg, nil
}

// Module provides the lake storage connection to an fx application.
var Module = fx.Options(
	fx.Provide(NewLakeConnection),
)
