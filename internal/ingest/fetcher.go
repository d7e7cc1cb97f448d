// Package ingest implements the raw fetcher stage: it streams a bounded
// sample of the external ridership feed and persists it unmodified as the
// bronze snapshot.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/ridelake/internal/adapter/storage"
	"github.com/tigerroll/ridelake/internal/config"
	"github.com/tigerroll/ridelake/internal/domain/model"
	"github.com/tigerroll/ridelake/internal/pipeline"
	"github.com/tigerroll/ridelake/internal/support/exception"
	"github.com/tigerroll/ridelake/internal/support/logger"
)

const moduleName = "ingest"

// Fetcher downloads a byte-budgeted sample of the source feed into bronze.
type Fetcher struct {
	cfg    config.IngestConfig
	lake   config.LakeConfig
	client *http.Client
	conn   storageAdapter.Connection
}

var _ pipeline.Stage = (*Fetcher)(nil)

// NewFetcher creates the ingest stage over the lake connection.
func NewFetcher(cfg *config.Config, conn storageAdapter.Connection) *Fetcher {
	return &Fetcher{
		cfg:    cfg.Ridelake.Ingest,
		lake:   cfg.Ridelake.Lake,
		client: &http.Client{Timeout: time.Duration(cfg.Ridelake.Ingest.TimeoutSeconds) * time.Second},
		conn:   conn,
	}
}

// Name returns "ingest".
func (f *Fetcher) Name() string { return "ingest" }

// Execute fetches the source and replaces the bronze snapshot. The fetch
// stops once the byte budget is reached: the snapshot is deliberately a
// sample of the source, not guaranteed-complete data. A source shorter than
// the budget is persisted as-is; there is no minimum-size requirement.
// Network errors and non-success statuses abort the run without touching
// the prior bronze snapshot, and no retry is performed.
func (f *Fetcher) Execute(ctx context.Context, exec *model.StageExecution) error {
	data, err := f.fetch(ctx)
	if err != nil {
		return err
	}
	exec.RowsRead = int64(len(data))
	exec.RowsWritten = int64(len(data))

	if err := f.conn.Upload(ctx, f.lake.Containers.Bronze, config.BronzeObjectName,
		bytes.NewReader(data), "text/csv"); err != nil {
		return exception.New(moduleName, "failed to write bronze snapshot", err)
	}
	logger.Infof("Bronze snapshot written: %d bytes from %s.", len(data), f.cfg.SourceURL)
	return nil
}

// fetch streams the source in bounded chunks, one chunk resident at a time
// plus the accumulating buffer capped at the byte budget.
func (f *Fetcher) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.SourceURL, nil)
	if err != nil {
		return nil, exception.NewKind(moduleName, exception.ErrTransport, "failed to build source request", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, exception.NewKind(moduleName, exception.ErrTransport, "source fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, exception.NewKindf(moduleName, exception.ErrTransport,
			"source returned non-success status %s", resp.Status)
	}

	budget := f.cfg.ByteBudget
	chunk := make([]byte, f.cfg.ChunkSize)
	buf := bytes.NewBuffer(make([]byte, 0, budget))

	for int64(buf.Len()) < budget {
		select {
		case <-ctx.Done():
			return nil, exception.NewKind(moduleName, exception.ErrTransport, "fetch cancelled", ctx.Err())
		default:
		}

		n, rerr := resp.Body.Read(chunk)
		if n > 0 {
			remaining := budget - int64(buf.Len())
			if int64(n) > remaining {
				n = int(remaining)
			}
			buf.Write(chunk[:n])
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			return nil, exception.NewKind(moduleName, exception.ErrTransport, "error reading source stream", rerr)
		}
	}

	if int64(buf.Len()) >= budget {
		logger.Infof("Byte budget of %d bytes reached; truncating the sample.", budget)
	}
	return buf.Bytes(), nil
}

// Module provides the ingest stage to an fx application.
var Module = fx.Options(
	fx.Provide(
		NewFetcher,
		func(f *Fetcher) pipeline.Stage { return f },
	),
)
