package provider_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/ridelake/internal/adapter/storage/provider"
	"github.com/tigerroll/ridelake/internal/config"
)

func baseConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Ridelake.Lake.Account = "testaccount"
	return cfg
}

func TestNewLakeConnectionDecodesAdapterConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.Ridelake.AdapterConfigs = map[string]interface{}{
		"storage": map[string]interface{}{
			"lake": map[string]interface{}{
				"type":     "memory",
				"base_dir": "",
			},
		},
	}

	conn, err := provider.NewLakeConnection(context.Background(), cfg)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "memory", conn.Type())
	assert.Equal(t, "lake", conn.Name())
}

func TestNewLakeConnectionDefaultsToLocal(t *testing.T) {
	cfg := baseConfig()
	cfg.Ridelake.AdapterConfigs = map[string]interface{}{
		"storage": map[string]interface{}{
			"lake": map[string]interface{}{
				"base_dir": t.TempDir(),
			},
		},
	}

	conn, err := provider.NewLakeConnection(context.Background(), cfg)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "local", conn.Type())
}

func TestNewLakeConnectionWithoutAdapterConfigUsesDefaults(t *testing.T) {
	cfg := baseConfig()
	cfg.Ridelake.AdapterConfigs = nil

	// Run from a temp dir so the default .ridelake base dir lands there.
	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(origDir) })

	conn, err := provider.NewLakeConnection(context.Background(), cfg)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "local", conn.Type())
}

func TestNewLakeConnectionRejectsUnknownType(t *testing.T) {
	cfg := baseConfig()
	cfg.Ridelake.AdapterConfigs = map[string]interface{}{
		"storage": map[string]interface{}{
			"lake": map[string]interface{}{
				"type": "s3",
			},
		},
	}

	_, err := provider.NewLakeConnection(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3")
}
