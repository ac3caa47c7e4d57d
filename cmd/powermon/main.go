package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mut-lab/power-monitor/internal/archive"
	archivepg "github.com/mut-lab/power-monitor/internal/archive/postgres"
	corecfg "github.com/mut-lab/power-monitor/internal/core/config"
	"github.com/mut-lab/power-monitor/internal/core/timewindow"
	"github.com/mut-lab/power-monitor/internal/migrations"
	"github.com/mut-lab/power-monitor/internal/query"
	"github.com/mut-lab/power-monitor/internal/server"
	"github.com/mut-lab/power-monitor/internal/source"
)

func main() {
	configPath := flag.String("config", "powermon.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config", "server", cfg.Server, "source_base_url", cfg.Source.BaseURL)

	loc, err := cfg.QueryLocation()
	if err != nil {
		slog.Error("Invalid query location", "value", cfg.Query.Location, "error", err)
		os.Exit(1)
	}

	// 2. Initialize Source (phpMyAdmin scraping client)
	client, err := source.NewClient(source.Config{
		BaseURL:    cfg.Source.BaseURL,
		Username:   cfg.Source.Username,
		Password:   cfg.Source.Password,
		Database:   cfg.Source.Database,
		Table:      cfg.Source.Table,
		OrderBy:    cfg.Source.OrderBy,
		Timeout:    cfg.SourceTimeout(),
		VerifySSL:  cfg.Source.VerifySSL,
		MaxRetries: cfg.Source.MaxRetries,
	}, loc)
	if err != nil {
		slog.Error("Failed to initialize source client", "error", err)
		os.Exit(1)
	}

	// 3. Initialize Query Service
	querySvc := query.NewService(client, query.Options{
		DefaultLimit: cfg.Query.DefaultLimit,
		MaxLimit:     cfg.Query.MaxLimit,
		MaxSpan:      time.Duration(cfg.Query.MaxCustomSpanDays) * 24 * time.Hour,
		CacheSize:    cfg.Query.CacheSize,
		CacheTTL:     cfg.QueryCacheTTL(),
		Location:     loc,
	})

	// 4. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), client, cfg.Server.Mode)
	querySvc.RegisterRoutes(srv.Engine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var schedulerWG sync.WaitGroup

	// 5. Initialize Archive (optional PostgreSQL rollup store)
	if cfg.Archive.Enabled {
		store, err := archivepg.NewAdapter(
			cfg.Archive.DSN,
			cfg.Archive.MaxOpenConns,
			cfg.Archive.MaxIdleConns,
		)
		if err != nil {
			slog.Error("Failed to initialize archive database", "error", err)
			os.Exit(1)
		}
		defer store.Close()

		if err := migrations.RunMigrations(store.DB(), cfg.Archive.AutoMigrate); err != nil {
			slog.Error("Failed to run archive migrations", "error", err)
			os.Exit(1)
		}

		archiveHandler := archive.NewHandler(store, timewindow.NewParser(loc))
		archiveHandler.RegisterRoutes(srv.Engine)

		scheduler := archive.NewScheduler(cfg.ArchiveInterval(), client, store)
		schedulerWG.Add(1)
		go func() {
			defer schedulerWG.Done()
			if err := scheduler.Start(ctx); err != nil {
				slog.Error("Archive scheduler stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("Archive disabled by config")
	}

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	// The scheduler's final snapshot must land before the deferred
	// store.Close runs.
	cancel()
	schedulerWG.Wait()

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
