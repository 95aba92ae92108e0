// Command wssec-replayd runs the replay-guard HTTP service
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirosfoundation/go-wssec/internal/config"
	"github.com/sirosfoundation/go-wssec/internal/server"
	"github.com/sirosfoundation/go-wssec/internal/storage"
	"github.com/sirosfoundation/go-wssec/internal/storage/mongodb"
	"github.com/sirosfoundation/go-wssec/pkg/nonce"
	"github.com/sirosfoundation/go-wssec/pkg/protocol"
	"github.com/sirosfoundation/go-wssec/pkg/suite"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure logging: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("replay guard stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var store storage.NonceStore
	if *cfg.Security.DetectReplays {
		var err error
		store, err = openNonceStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
	}

	factory, err := openFactory(ctx, cfg, store, logger)
	if err != nil {
		if store != nil {
			_ = store.Close(context.Background())
		}
		return err
	}

	srv := server.New(cfg, factory, store, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(fmt.Sprintf(":%d", cfg.Server.Port))
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = factory.Close(context.Background())
			if store != nil {
				_ = store.Close(context.Background())
			}
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("replay guard stopped")
	return nil
}

func openNonceStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.NonceStore, error) {
	span, err := cfg.Security.CachingTimeSpan()
	if err != nil {
		return nil, err
	}

	switch cfg.Storage.Type {
	case config.StorageBadger:
		bs, err := nonce.OpenBadger(nonce.BadgerConfig{
			Path:            cfg.Storage.Badger.Path,
			InMemory:        cfg.Storage.Badger.InMemory,
			CachingTimeSpan: span,
			Logger:          logger,
		})
		if err != nil {
			return nil, fmt.Errorf("opening badger nonce store: %w", err)
		}
		logger.Info("using badger nonce store", "path", cfg.Storage.Badger.Path, "in_memory", cfg.Storage.Badger.InMemory)
		return storage.Local(bs), nil

	case config.StorageMongoDB:
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Storage.MongoDB.Timeout)
		defer cancel()
		ms, err := mongodb.NewNonceStore(connectCtx, &mongodb.Config{
			URI:             cfg.Storage.MongoDB.URI,
			Database:        cfg.Storage.MongoDB.Database,
			Collection:      cfg.Storage.MongoDB.Collection,
			CachingTimeSpan: span,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("using mongodb nonce store", "database", cfg.Storage.MongoDB.Database, "collection", cfg.Storage.MongoDB.Collection)
		return ms, nil

	default:
		opts := []nonce.Option{nonce.WithLogger(logger)}
		if cfg.Security.EvictOldest > 0 {
			opts = append(opts, nonce.WithEvictOldest(cfg.Security.EvictOldest))
		}
		nc, err := nonce.NewInMemory(span, cfg.Security.MaxCachedNonces, opts...)
		if err != nil {
			return nil, err
		}
		logger.Info("using in-memory nonce cache", "max_nonces", cfg.Security.MaxCachedNonces, "caching_time_span", span)
		return storage.Local(nc), nil
	}
}

func openFactory(ctx context.Context, cfg *config.Config, store storage.NonceStore, logger *slog.Logger) (*protocol.Factory, error) {
	incoming, _ := suite.Lookup(cfg.Security.IncomingSuite)
	outgoing, _ := suite.Lookup(cfg.Security.OutgoingSuite)

	b := protocol.NewBuilder()
	b.IncomingAlgorithmSuite = incoming
	b.OutgoingAlgorithmSuite = outgoing
	b.DetectReplays = *cfg.Security.DetectReplays
	b.ReplayWindow = cfg.Security.ReplayWindow
	b.MaxClockSkew = cfg.Security.ClockSkew()
	b.MaxCachedNonces = cfg.Security.MaxCachedNonces
	b.SecureConversationVersion = cfg.Security.Version()
	b.Logger = logger
	if store != nil {
		b.NonceCache = store
	}

	f, err := b.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening security protocol: %w", err)
	}
	return f, nil
}
