package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/fineflow77/btclti/internal/api"
	"github.com/fineflow77/btclti/internal/domain"
	"github.com/fineflow77/btclti/internal/export"
	"github.com/fineflow77/btclti/internal/worker"
)

const quoteRefreshTimeout = 2 * time.Minute

func (r *runner) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API with background quote refresh",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Value: r.cfg.HTTPPort, Usage: "HTTP listen port"},
			&cli.StringFlag{Name: "report-variant", Value: string(domain.VariantStandard), Usage: "variant used by the periodic position report"},
		},
		Action: r.serve,
	}
}

func (r *runner) serve(c *cli.Context) error {
	ctx, stop := context.WithCancel(c.Context)
	defer stop()

	variant, err := domain.ParseVariant(c.String("report-variant"))
	if err != nil {
		return err
	}

	market, cleanup, err := r.openMarket(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	// Start workers
	quoteWorker := worker.NewQuoteWorker(market, r.cfg.QuoteWorkerInterval, quoteRefreshTimeout)
	go quoteWorker.Run(ctx)

	var sink worker.PositionSink
	if r.cfg.SheetsEnabled() {
		sheetsWriter, err := export.NewSheetsWriter(ctx, r.cfg.GoogleSheetID, r.cfg.GoogleCredentialsJSON)
		if err != nil {
			return err
		}
		sink = sheetsWriter
	} else {
		slog.Info("Google Sheets not configured, position reports are logged only")
	}
	positionWorker := worker.NewPositionWorker(market, variant, r.cfg.PositionInterval, sink)
	go positionWorker.Run(ctx)

	// Start HTTP server
	srv := api.NewServer(c.String("port"), market, r.cfg.AdminAPIKey)

	go func() {
		slog.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
	return nil
}
