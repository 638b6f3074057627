// Command ocvd serves the on-chain governance vote-tallying and
// ranked-choice election HTTP API.
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ocvd/internal/archive"
	"ocvd/internal/facade"
	"ocvd/internal/govconfig"
	"ocvd/internal/httpapi"
	"ocvd/internal/ledgerstore"
	"ocvd/internal/manifest"
	"ocvd/internal/obs"
	"ocvd/internal/resultcache"
)

func main() {
	cfg, err := govconfig.FromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := obs.SetupLogging("ocvd", cfg.Env)
	metrics := obs.NewMetrics()

	archiveClient, err := archive.Open(context.Background(), cfg.ArchiveDBURL)
	if err != nil {
		log.Fatalf("open archive database: %v", err)
	}
	archiveClient.Observer = metrics

	ledgerStore, err := ledgerstore.New(ledgerstore.Config{
		Endpoint:    cfg.LedgerEndpoint,
		AccessKey:   cfg.LedgerAccessKey,
		SecretKey:   cfg.LedgerSecretKey,
		Bucket:      cfg.LedgerBucket,
		Secure:      cfg.LedgerSecure,
		Network:     cfg.Network,
		StoragePath: cfg.LedgerStorage,
	})
	if err != nil {
		log.Fatalf("open ledger store: %v", err)
	}

	proposals, err := manifest.Load(context.Background(), http.DefaultClient, cfg.ProposalsURL, manifest.Network(cfg.Network))
	if err != nil {
		log.Fatalf("load proposals manifest: %v", err)
	}

	f := &facade.Facade{
		Archive:      archiveClient,
		Ledgers:      ledgerStore,
		Proposals:    proposals,
		Cache:        resultcache.NewManager(),
		Observer:     metrics,
		ReleaseStage: cfg.ReleaseStage,
		DefaultEpoch: cfg.DefaultEpoch,
	}

	server := httpapi.New(httpapi.Config{
		Facade:         f,
		Metrics:        metrics,
		MetricsHandler: metrics.Handler(),
		CORS:           httpapi.CORSConfig{},
	})

	httpServer := &http.Server{
		Addr:         cfg.BindAddr,
		Handler:      server.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("ocvd listening", "addr", strings.TrimSpace(cfg.BindAddr))
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("forcing shutdown", "error", err)
			_ = httpServer.Close()
		}
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve http: %v", err)
		}
	}
}
