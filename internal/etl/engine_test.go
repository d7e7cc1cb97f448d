package etl_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/ridelake/internal/adapter/storage/memory"
	"github.com/tigerroll/ridelake/internal/config"
	"github.com/tigerroll/ridelake/internal/domain/model"
	"github.com/tigerroll/ridelake/internal/etl"
)

const bronzeCSV = `transit_timestamp,station_complex,borough,ridership,latitude,longitude
2024-03-04 08:00:00,Grand Central-42 St,Manhattan,100,40.7527,-73.9772
2024-03-11 08:00:00,Grand Central-42 St,Manhattan,200,40.7527,-73.9772
2024-03-04 08:00:00,Flushing-Main St,Queens,80,40.7596,-73.8300
`

func newEngineFixture(t *testing.T) (*etl.Engine, *memory.Adapter, *config.Config) {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Ridelake.Lake.Account = "testaccount"
	conn := memory.NewAdapter("lake")
	return etl.NewEngine(cfg, conn), conn, cfg
}

func seedBronze(t *testing.T, conn *memory.Adapter, cfg *config.Config, body string) {
	t.Helper()
	err := conn.Upload(context.Background(), cfg.Ridelake.Lake.Containers.Bronze,
		config.BronzeObjectName, bytes.NewReader([]byte(body)), "text/csv")
	require.NoError(t, err)
}

func TestEngineExecuteWritesSilverThenGold(t *testing.T) {
	engine, conn, cfg := newEngineFixture(t)
	seedBronze(t, conn, cfg, bronzeCSV)

	exec := model.NewStageExecution("etl")
	require.NoError(t, engine.Execute(context.Background(), exec))
	assert.Equal(t, int64(3), exec.RowsRead)
	assert.Equal(t, int64(2), exec.RowsWritten)

	// Both tables exist and silver was written before gold.
	silverKey := cfg.Ridelake.Lake.Containers.Silver + "/" + config.SilverObjectName
	goldKey := cfg.Ridelake.Lake.Containers.Gold + "/" + config.GoldObjectName
	_, ok := conn.Object(cfg.Ridelake.Lake.Containers.Silver, config.SilverObjectName)
	assert.True(t, ok)
	_, ok = conn.Object(cfg.Ridelake.Lake.Containers.Gold, config.GoldObjectName)
	assert.True(t, ok)
	assert.Equal(t, []string{
		cfg.Ridelake.Lake.Containers.Bronze + "/" + config.BronzeObjectName,
		silverKey,
		goldKey,
	}, conn.WriteLog())

	// The two Monday-08:00 Grand Central observations average to 150.
	goldBytes, _ := conn.Object(cfg.Ridelake.Lake.Containers.Gold, config.GoldObjectName)
	rows, err := etl.DecodeGold(goldBytes)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Flushing-Main St", rows[0].StationComplex)
	assert.Equal(t, 80.0, rows[0].AvgRidership)
	assert.Equal(t, "Grand Central-42 St", rows[1].StationComplex)
	assert.Equal(t, 150.0, rows[1].AvgRidership)
}

func TestEngineExecuteWithoutBronzeFails(t *testing.T) {
	engine, conn, cfg := newEngineFixture(t)

	err := engine.Execute(context.Background(), model.NewStageExecution("etl"))
	require.Error(t, err)

	// Nothing was written.
	_, ok := conn.Object(cfg.Ridelake.Lake.Containers.Silver, config.SilverObjectName)
	assert.False(t, ok)
	_, ok = conn.Object(cfg.Ridelake.Lake.Containers.Gold, config.GoldObjectName)
	assert.False(t, ok)
}

func TestEngineExecuteBadDataLeavesLakeUntouched(t *testing.T) {
	engine, conn, cfg := newEngineFixture(t)
	seedBronze(t, conn, cfg, "transit_timestamp,ridership\nnot-a-time,50\n")

	err := engine.Execute(context.Background(), model.NewStageExecution("etl"))
	require.Error(t, err)

	// Only the bronze seed appears in the write log.
	assert.Len(t, conn.WriteLog(), 1)
}

func TestEngineSilverReadableAsTable(t *testing.T) {
	engine, conn, cfg := newEngineFixture(t)
	seedBronze(t, conn, cfg, bronzeCSV)
	require.NoError(t, engine.Execute(context.Background(), model.NewStageExecution("etl")))

	rc, err := conn.Download(context.Background(), cfg.Ridelake.Lake.Containers.Silver, config.SilverObjectName)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)

	clean, err := etl.DecodeSilver(data)
	require.NoError(t, err)
	assert.Len(t, clean.Records, 3)
	assert.True(t, clean.HasColumn(etl.ColDayOfWeek))
}
