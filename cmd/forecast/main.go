// Command forecast answers ridership queries against the trained model.
//
// Usage:
//
//	forecast <station> <date> [hour]
//
// With an hour (0-23) it prints a single prediction; without one it prints
// the full 24-hour curve for the given date.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/ridelake/internal/adapter/storage"
	"github.com/tigerroll/ridelake/internal/adapter/storage/provider"
	"github.com/tigerroll/ridelake/internal/config"
	"github.com/tigerroll/ridelake/internal/serve"
	"github.com/tigerroll/ridelake/internal/support/exception"
	"github.com/tigerroll/ridelake/internal/support/logger"
)

func main() {
	if len(os.Args) < 3 || len(os.Args) > 4 {
		fmt.Fprintf(os.Stderr, "usage: %s <station> <date> [hour]\n", os.Args[0])
		os.Exit(2)
	}
	station, date := os.Args[1], os.Args[2]
	hour := -1
	if len(os.Args) == 4 {
		h, err := strconv.Atoi(os.Args[3])
		if err != nil {
			fmt.Fprintf(os.Stderr, "hour must be an integer, got '%s'\n", os.Args[3])
			os.Exit(2)
		}
		hour = h
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	cfg, err := config.NewValidatedConfig()
	if err != nil {
		logger.Errorf("Forecast aborted: %s", exception.UserMessage(err))
		os.Exit(1)
	}

	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		fx.Provide(func() context.Context { return ctx }),
		provider.Module,
		serve.Module,
		fx.Invoke(func(svc *serve.Service, conn storageAdapter.Connection) error {
			defer conn.Close()
			return answer(svc, station, date, hour)
		}),
	)
	if app.Err() != nil {
		logger.Errorf("Forecast failed: %s", exception.UserMessage(app.Err()))
		os.Exit(1)
	}
}

// answer runs the query and prints the result to stdout.
func answer(svc *serve.Service, station, date string, hour int) error {
	if hour >= 0 {
		p, err := svc.Point(station, date, hour)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s) on %s at %02d:00: %.0f riders (%s)\n",
			p.Station, p.Borough, p.Date, p.Hour, p.Riders, p.CrowdLevel)
		return nil
	}

	curve, err := svc.Curve(station, date)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s) on %s:\n", curve[0].Station, curve[0].Borough, date)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HOUR\tRIDERS\tCROWD")
	for _, p := range curve {
		fmt.Fprintf(w, "%02d:00\t%.0f\t%s\n", p.Hour, p.Riders, p.CrowdLevel)
	}
	return w.Flush()
}
