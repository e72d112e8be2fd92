package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/fineflow77/btclti/internal/config"
	"github.com/fineflow77/btclti/internal/database"
	"github.com/fineflow77/btclti/internal/external"
	"github.com/fineflow77/btclti/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	setupLogger(cfg.LogLevel, cfg.LogFormat)

	if err := newApp(cfg).RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(cfg config.Config) *cli.App {
	r := &runner{cfg: cfg}
	return &cli.App{
		Name:  "btclti",
		Usage: "Bitcoin power-law projections and long-term accumulation / withdrawal simulations",
		Commands: []*cli.Command{
			r.projectCommand(),
			r.positionCommand(),
			r.fitCommand(),
			r.accumulateCommand(),
			r.decumulateCommand(),
			r.exportCommand(),
			r.serveCommand(),
		},
	}
}

// runner carries the configuration shared by every command.
type runner struct {
	cfg config.Config
}

func setupLogger(level, format string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	// stdout is reserved for tables
	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// openMarket wires the quote store and the provider chain. Postgres is used when
// DATABASE_URL is set, a local SQLite file otherwise.
func (r *runner) openMarket(ctx context.Context) (*external.Service, func(), error) {
	var (
		repo    store.Repository
		cleanup func()
	)

	if r.cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, r.cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		migrationsSub, err := fs.Sub(migrationsFS, "migrations")
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("creating migrations sub-fs: %w", err)
		}
		if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
			pool.Close()
			return nil, nil, err
		}
		repo, cleanup = store.NewPgRepository(pool), pool.Close
	} else {
		db, err := database.OpenSQLite(r.cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		repo = store.NewSQLiteRepository(db)
		cleanup = func() {
			if err := db.Close(); err != nil {
				slog.Warn("closing sqlite", "error", err)
			}
		}
	}

	providers := []external.PriceProvider{
		external.NewCoinGeckoClient(r.cfg.CoinGeckoURL, r.cfg.CoinGeckoDelay, r.cfg.CoinGeckoRetryMax, r.cfg.CoinGeckoRPS),
	}
	if r.cfg.CoinGeckoFallbackURL != "" {
		providers = append(providers,
			external.NewCoinGeckoClient(r.cfg.CoinGeckoFallbackURL, r.cfg.CoinGeckoDelay, r.cfg.CoinGeckoRetryMax, r.cfg.CoinGeckoRPS))
	}

	svc := external.NewService(repo, r.cfg.LocalCurrency, r.cfg.HistoryDays, r.cfg.QuoteStaleThreshold, providers...)
	return svc, cleanup, nil
}
