package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/certgw/internal/observability"
)

// runGateway starts the server and blocks until a shutdown signal arrives
// or a listener fails. The listener error, if any, is returned after
// shutdown completes.
func runGateway(app *application, logger observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- app.server.Start() }()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case runErr = <-errCh:
		if runErr != nil {
			logger.Error("server stopped unexpectedly", observability.Error(runErr))
		}
	}

	shutdown(app, logger)
	return runErr
}

// shutdown drains the server and then releases backing resources.
func shutdown(app *application, logger observability.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		app.config.Server.GetEffectiveShutdownTimeout())
	defer cancel()

	if err := app.server.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	app.close(logger)

	if err := app.tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	logger.Info("gateway stopped")
}
