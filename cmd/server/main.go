package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/feeduploader/internal/config"
	"github.com/JonMunkholm/feeduploader/internal/core"
	"github.com/JonMunkholm/feeduploader/internal/feedfile"
	"github.com/JonMunkholm/feeduploader/internal/logging"
	"github.com/JonMunkholm/feeduploader/internal/marketplace"
	"github.com/JonMunkholm/feeduploader/internal/oracle"
	"github.com/JonMunkholm/feeduploader/internal/store"
	"github.com/JonMunkholm/feeduploader/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	db, pool, err := store.Open(ctx, store.Config{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
	}, slog.Default())
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	defer db.Close()

	if cfg.Database.Migrate {
		if err := db.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		slog.Info("database schema up to date")
	}

	service, err := buildService(cfg, db)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	accounts := core.NewAccounts(db, slog.Default())
	server := web.NewServer(service, accounts, cfg, web.WithHealthCheck(db.Ping))

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active uploads to complete (with timeout)
		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
			if err := service.WaitForUploads(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// buildService wires the feed pipeline from configuration.
func buildService(cfg *config.Config, db *store.Store) (*core.Service, error) {
	sep, err := cfg.Feed.Separator()
	if err != nil {
		return nil, err
	}
	decoder := feedfile.NewDecoder(feedfile.Options{
		CSVSeparator:   sep,
		Encoding:       cfg.Feed.Encoding,
		XMLProductNode: cfg.Feed.XMLProductNode,
	})

	ids, err := core.ParseIDPolicy(cfg.Upload.IDPolicy, cfg.Upload.IDSequenceStart)
	if err != nil {
		return nil, err
	}
	rowPolicy, err := core.ParseRowErrorPolicy(cfg.Upload.RowErrors)
	if err != nil {
		return nil, err
	}
	extractor := core.NewExtractor(
		core.WithIDPolicy(ids),
		core.WithRowErrorPolicy(rowPolicy),
		core.WithWorkers(cfg.Upload.Workers),
		core.WithFeedIDs(cfg.Upload.KeepFeedIDs),
	)

	tmpl := marketplace.DefaultTemplate()
	if cfg.Marketplace.TemplatePath != "" {
		if tmpl, err = marketplace.LoadTemplateFile(cfg.Marketplace.TemplatePath); err != nil {
			return nil, err
		}
	}
	exporter, err := marketplace.NewExporter(tmpl)
	if err != nil {
		return nil, err
	}

	deps := core.Deps{
		Decoder:   decoder,
		Extractor: extractor,
		Mappings:  db,
		Products:  db,
		Users:     db,
		Exporter:  exporter,
		Logger:    slog.Default(),
	}
	if cfg.Oracle.Enabled {
		deps.Oracle = oracle.NewClient(oracle.Config{
			APIKey:      cfg.Oracle.APIKey,
			BaseURL:     cfg.Oracle.BaseURL,
			Model:       cfg.Oracle.Model,
			Temperature: cfg.Oracle.Temperature,
			MaxTokens:   cfg.Oracle.MaxTokens,
			Timeout:     cfg.Oracle.Timeout,
			MaxRetries:  cfg.Oracle.MaxRetries,
			RetryDelay:  cfg.Oracle.RetryDelay,
			RPS:         cfg.Oracle.RequestsPerSecond,
			Burst:       cfg.Oracle.Burst,
		}, slog.Default())
		slog.Info("oracle enabled", "model", cfg.Oracle.Model)
	}

	service, err := core.NewService(deps, core.ServiceConfig{
		UploadTimeout:        cfg.Upload.Timeout,
		MaxConcurrentUploads: cfg.Upload.MaxConcurrent,
		UploadWait:           cfg.Upload.MaxWaitTime,
		NormalizeConcurrency: cfg.Upload.NormalizeConcurrency,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Marketplace.CatalogPath != "" {
		catalog, err := marketplace.LoadCatalogFile(cfg.Marketplace.CatalogPath)
		if err != nil {
			return nil, err
		}
		service.SetCatalog(catalog)
		slog.Info("marketplace catalog loaded", "attributes", len(catalog))
	}
	return service, nil
}
