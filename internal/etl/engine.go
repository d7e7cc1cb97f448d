package etl

import (
	"bytes"
	"context"
	"io"

	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/ridelake/internal/adapter/storage"
	"github.com/tigerroll/ridelake/internal/config"
	"github.com/tigerroll/ridelake/internal/domain/model"
	"github.com/tigerroll/ridelake/internal/pipeline"
	"github.com/tigerroll/ridelake/internal/support/exception"
	"github.com/tigerroll/ridelake/internal/support/logger"
)

// Engine is the transform stage: bronze CSV in, silver and gold parquet out.
type Engine struct {
	conn storageAdapter.Connection
	lake config.LakeConfig
}

var _ pipeline.Stage = (*Engine)(nil)

// NewEngine creates the transform stage over the lake connection.
func NewEngine(cfg *config.Config, conn storageAdapter.Connection) *Engine {
	return &Engine{conn: conn, lake: cfg.Ridelake.Lake}
}

// Name returns "etl".
func (e *Engine) Name() string { return "etl" }

// Execute runs the two-phase transform. The silver upload must return
// successfully before aggregation begins; a failure at any point leaves the
// prior silver/gold snapshots untouched because every write happens only
// after the full in-memory result is ready.
func (e *Engine) Execute(ctx context.Context, exec *model.StageExecution) error {
	logger.Infof("Reading bronze extract from container '%s'.", e.lake.Containers.Bronze)
	raw, err := e.readBronze(ctx)
	if err != nil {
		return err
	}
	exec.RowsRead = int64(len(raw.Rows))

	clean, err := Normalize(raw)
	if err != nil {
		return err
	}
	logger.Infof("Normalized %d rows into silver columns %v.", len(clean.Records), clean.Columns)

	silverBytes, err := EncodeSilver(clean)
	if err != nil {
		return exception.New(moduleName, "failed to encode silver parquet", err)
	}
	if err := e.conn.Upload(ctx, e.lake.Containers.Silver, config.SilverObjectName,
		bytes.NewReader(silverBytes), "application/octet-stream"); err != nil {
		return exception.New(moduleName, "failed to write silver table", err)
	}
	logger.Infof("Silver table written (%d bytes).", len(silverBytes))

	// Gold is derived only after the silver write has fully succeeded.
	gold, err := Aggregate(clean)
	if err != nil {
		return err
	}
	goldBytes, err := EncodeGold(gold)
	if err != nil {
		return exception.New(moduleName, "failed to encode gold parquet", err)
	}
	if err := e.conn.Upload(ctx, e.lake.Containers.Gold, config.GoldObjectName,
		bytes.NewReader(goldBytes), "application/octet-stream"); err != nil {
		return exception.New(moduleName, "failed to write gold table", err)
	}
	exec.RowsWritten = int64(len(gold))
	logger.Infof("Gold table written: %d feature rows.", len(gold))
	return nil
}

// readBronze downloads and parses the bronze CSV snapshot.
func (e *Engine) readBronze(ctx context.Context) (*RawTable, error) {
	rc, err := e.conn.Download(ctx, e.lake.Containers.Bronze, config.BronzeObjectName)
	if err != nil {
		return nil, exception.New(moduleName, "failed to read bronze extract; has the ingest stage run?", err)
	}
	defer rc.Close()

	raw, err := ReadCSV(rc)
	if err != nil {
		return nil, err
	}
	// Drain in case the CSV reader stopped early.
	_, _ = io.Copy(io.Discard, rc)
	return raw, nil
}

// Module provides the transform stage to an fx application.
var Module = fx.Options(
	fx.Provide(
		NewEngine,
		func(e *Engine) pipeline.Stage { return e },
	),
)
