package main

import (
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tigerroll/ridelake/internal/ingest"
	"github.com/tigerroll/ridelake/internal/pipeline"
)

func main() {
	pipeline.RunStage("ingest", ingest.Module)
}
