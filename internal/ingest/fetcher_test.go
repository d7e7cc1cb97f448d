package ingest_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/ridelake/internal/adapter/storage/memory"
	"github.com/tigerroll/ridelake/internal/config"
	"github.com/tigerroll/ridelake/internal/domain/model"
	"github.com/tigerroll/ridelake/internal/ingest"
	"github.com/tigerroll/ridelake/internal/support/exception"
)

func fetcherFixture(t *testing.T, sourceURL string, byteBudget int64) (*ingest.Fetcher, *memory.Adapter, *config.Config) {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Ridelake.Lake.Account = "testaccount"
	cfg.Ridelake.Ingest.SourceURL = sourceURL
	cfg.Ridelake.Ingest.ByteBudget = byteBudget
	cfg.Ridelake.Ingest.ChunkSize = 16

	conn := memory.NewAdapter("lake")
	return ingest.NewFetcher(cfg, conn), conn, cfg
}

func TestFetcherTruncatesAtByteBudget(t *testing.T) {
	body := strings.Repeat("a,b,c\n", 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	fetcher, conn, cfg := fetcherFixture(t, srv.URL, 64)
	exec := model.NewStageExecution("ingest")
	require.NoError(t, fetcher.Execute(context.Background(), exec))

	stored, ok := conn.Object(cfg.Ridelake.Lake.Containers.Bronze, config.BronzeObjectName)
	require.True(t, ok)
	assert.Len(t, stored, 64)
	assert.Equal(t, body[:64], string(stored))
	assert.Equal(t, int64(64), exec.RowsWritten)
}

func TestFetcherShortSourcePersistsAsIs(t *testing.T) {
	body := "transit_timestamp,ridership\n2024-03-04 08:00:00,10\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	fetcher, conn, cfg := fetcherFixture(t, srv.URL, 1024*1024)
	require.NoError(t, fetcher.Execute(context.Background(), model.NewStageExecution("ingest")))

	stored, ok := conn.Object(cfg.Ridelake.Lake.Containers.Bronze, config.BronzeObjectName)
	require.True(t, ok)
	assert.Equal(t, body, string(stored))
}

func TestFetcherNonSuccessStatusFailsWithoutWriting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	fetcher, conn, cfg := fetcherFixture(t, srv.URL, 1024)
	err := fetcher.Execute(context.Background(), model.NewStageExecution("ingest"))
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrTransport)

	_, ok := conn.Object(cfg.Ridelake.Lake.Containers.Bronze, config.BronzeObjectName)
	assert.False(t, ok)
}

func TestFetcherUnreachableSourceFails(t *testing.T) {
	fetcher, conn, cfg := fetcherFixture(t, "http://127.0.0.1:1/never", 1024)
	err := fetcher.Execute(context.Background(), model.NewStageExecution("ingest"))
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrTransport)

	_, ok := conn.Object(cfg.Ridelake.Lake.Containers.Bronze, config.BronzeObjectName)
	assert.False(t, ok)
}

func TestFetcherFailureLeavesPriorSnapshot(t *testing.T) {
	// Seed a previous bronze snapshot, then fail the next fetch.
	fetcher, conn, cfg := fetcherFixture(t, "http://127.0.0.1:1/never", 1024)
	require.NoError(t, conn.Upload(context.Background(), cfg.Ridelake.Lake.Containers.Bronze,
		config.BronzeObjectName, strings.NewReader("old snapshot"), "text/csv"))

	require.Error(t, fetcher.Execute(context.Background(), model.NewStageExecution("ingest")))

	stored, ok := conn.Object(cfg.Ridelake.Lake.Containers.Bronze, config.BronzeObjectName)
	require.True(t, ok)
	assert.Equal(t, "old snapshot", string(stored))
}

func TestFetcherCancelledContextFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 1024)))
	}))
	defer srv.Close()

	fetcher, _, _ := fetcherFixture(t, srv.URL, 1024*1024)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fetcher.Execute(ctx, model.NewStageExecution("ingest"))
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrTransport)
}
