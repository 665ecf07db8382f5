// Command brokerd is the HTTP daemon entrypoint: it wires the broker's
// four core engines into a Services aggregate and serves spec.md §6's
// REST surface behind internal/httpapi. Modeled on the teacher's
// cmd/satellite run command (a single cobra root command loading
// config, building a process-wide zap logger, and blocking on a
// listener until terminated).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/storj-labs/workspace-broker/internal/config"
	"github.com/storj-labs/workspace-broker/internal/crawl"
	"github.com/storj-labs/workspace-broker/internal/credential"
	"github.com/storj-labs/workspace-broker/internal/httpapi"
	"github.com/storj-labs/workspace-broker/internal/ingest"
	"github.com/storj-labs/workspace-broker/internal/repository/sqldb"
	"github.com/storj-labs/workspace-broker/internal/resolver"
	"github.com/storj-labs/workspace-broker/internal/search"
	"github.com/storj-labs/workspace-broker/internal/share"
	"github.com/storj-labs/workspace-broker/internal/storageclient"
)

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func run(cmd *cobra.Command, cfg *config.Config) error {
	log, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	sugar := log.Sugar()

	db, err := sqldb.Open(cfg.DB.Driver, cfg.DB.DSN, log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			sugar.Warnw("failed to close database cleanly", "error", err)
		}
	}()

	clients := storageclient.New()
	resolve := resolver.New(db.Users(), db.Workspaces())
	credentialBroker := credential.New(db, clients, log)
	shareMgr := share.New(db, resolve)
	searchClient := search.New(cfg.Search.BaseURL, http.DefaultClient, log)

	var rootCache *ingest.RootIndexCache
	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address})
		rootCache = ingest.NewRootIndexCache(db.Roots(), rdb, cfg.Redis.TTL, log)
		defer func() { _ = rootCache.Close() }()
	}
	ingestHandler := ingest.New(db, searchClient, rootCache)
	crawlCoord := crawl.New(db, searchClient, log)

	services := &httpapi.Services{
		Repo:          db,
		Clients:       clients,
		Resolver:      resolve,
		Credential:    credentialBroker,
		Share:         shareMgr,
		Crawl:         crawlCoord,
		Ingest:        ingestHandler,
		Search:        searchClient,
		Log:           log,
		PublicAddress: cfg.HTTP.PublicName,
	}

	server := httpapi.NewServer(log, services, basicAuthenticator{repo: db})

	httpServer := &http.Server{
		Addr:    cfg.HTTP.ListenAddr,
		Handler: server.Handler,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		sugar.Infow("starting broker HTTP server", "addr", cfg.HTTP.ListenAddr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		sugar.Info("shutdown signal received, draining connections")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func main() {
	var cfg config.Config

	root := &cobra.Command{
		Use:   "brokerd",
		Short: "S3 workspace broker HTTP daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(cmd, &cfg); err != nil {
				return err
			}
			return run(cmd, &cfg)
		},
	}
	config.BindFlags(root, &cfg)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
