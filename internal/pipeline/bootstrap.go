package pipeline

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/ridelake/internal/adapter/storage"
	"github.com/tigerroll/ridelake/internal/adapter/storage/provider"
	"github.com/tigerroll/ridelake/internal/config"
	"github.com/tigerroll/ridelake/internal/metrics"
	"github.com/tigerroll/ridelake/internal/runlog"
	"github.com/tigerroll/ridelake/internal/support/exception"
	"github.com/tigerroll/ridelake/internal/support/logger"
	"github.com/tigerroll/ridelake/internal/telemetry"
)

// RunStage is the shared entry point of every stage binary. It loads and
// validates configuration before assembling the fx graph so that a missing
// storage account aborts with a readable diagnostic before any I/O, then
// runs the provided stage once and exits the process with a non-zero code
// on failure.
func RunStage(stageName string, stageModules ...fx.Option) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop stage '%s'...", sig, stageName)
		cancel()
	}()

	cfg, err := config.NewValidatedConfig()
	if err != nil {
		logger.Errorf("Stage '%s' aborted: %s", stageName, exception.UserMessage(err))
		os.Exit(1)
	}

	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		fx.Provide(func() context.Context { return ctx }),
		provider.Module,
		runlog.Module,
		metrics.Module,
		telemetry.Module,
		fx.Provide(NewRunner),
		fx.Options(stageModules...),
		fx.Invoke(launchStage),
	)

	app.Run()
}

// launchStage wires the stage execution into the fx lifecycle. The stage
// runs in a goroutine started by OnStart and reports its result through the
// Shutdowner so the process exit code reflects success or failure.
func launchStage(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	runner *Runner,
	stage Stage,
	conn storageAdapter.Connection,
	repo runlog.Repository,
	tracer telemetry.Tracer,
	appCtx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				err := runner.Run(appCtx, stage)
				code := 0
				if err != nil {
					code = 1
				}
				if serr := shutdowner.Shutdown(fx.ExitCode(code)); serr != nil {
					logger.Errorf("Failed to shut down stage '%s': %v", stage.Name(), serr)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := tracer.Shutdown(ctx); err != nil {
				logger.Warnf("Failed to flush tracer: %v", err)
			}
			if repo != nil {
				if err := repo.Close(); err != nil {
					logger.Warnf("Failed to close run-log repository: %v", err)
				}
			}
			if err := conn.Close(); err != nil {
				logger.Warnf("Failed to close lake storage connection: %v", err)
			}
			return nil
		},
	})
}
