package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	httpctx "github.com/nhangara/identity-server/internal/api/http/context"
	"github.com/nhangara/identity-server/internal/api/http/handler"
	"github.com/nhangara/identity-server/internal/api/http/router"
	httpServer "github.com/nhangara/identity-server/internal/api/http/server"
	"github.com/nhangara/identity-server/internal/cache/sqlite"
	"github.com/nhangara/identity-server/internal/config"
	"github.com/nhangara/identity-server/internal/ledger"
	"github.com/nhangara/identity-server/internal/ledger/hedera"
	"github.com/nhangara/identity-server/internal/logger"
	"github.com/nhangara/identity-server/internal/metrics"
	"github.com/nhangara/identity-server/internal/model"
	"github.com/nhangara/identity-server/internal/repository/postgres"
	"github.com/nhangara/identity-server/internal/secrets"
	"github.com/nhangara/identity-server/internal/server"
	"github.com/nhangara/identity-server/internal/service"
	storage "github.com/nhangara/identity-server/internal/storage/minio"
	"github.com/nhangara/identity-server/internal/token"
	"github.com/nhangara/identity-server/internal/vault"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)
	m := metrics.New()

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()
	store := postgres.NewStore(db)

	cache, err := sqlite.Open(ctx, cfg.Cache.DSN)
	if err != nil {
		logger.Fatal("failed to open local cache", "error", err)
	}
	defer cache.Close()

	minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("failed to create minio client", "error", err)
	}
	journal, err := storage.NewJournal(ctx, minioClient, cfg.Storage.Bucket)
	if err != nil {
		logger.Fatal("failed to initialize orphan journal", "error", err)
	}

	if err := secrets.AssertSealSecret(cfg.Ledger().Environment, cfg.Vault.SealSecret); err != nil {
		logger.Fatal("refusing to seal wallet keys", "error", err)
	}
	sealer, err := vault.NewSealer(cfg.Vault.SealSecret)
	if err != nil {
		logger.Fatal("failed to initialize key sealer", "error", err)
	}

	ledgerCfg := cfg.Ledger()
	ledgerClient := newLedgerClient(cfg, ledgerCfg, logger)
	if closer, ok := ledgerClient.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	keyVault := vault.New(vault.Config{
		Ledger:           ledgerCfg,
		InitialBalance:   ledger.Amount(cfg.Hedera.InitialBalanceTinybar),
		ProvisionTimeout: cfg.Vault.ProvisionTimeout,
		PersistAttempts:  cfg.Vault.PersistAttempts,
		PersistBackoff:   200 * time.Millisecond,
		ClaimTTL:         cfg.Vault.ClaimTTL,
	}, ledgerClient, store, journal, sealer, logger, vault.WithMetrics(m))

	opts := []service.IdentityOption{service.WithMetrics(m), service.WithLocalCache(cache)}
	if cfg.Assertion.Secret != "" {
		opts = append(opts, service.WithAssertionVerifier(
			token.NewJWT(cfg.Assertion.Secret, cfg.Assertion.Issuer, cfg.Assertion.Audience)))
	}
	identity := service.NewIdentity(service.IdentityConfig{
		SessionTTL:    cfg.Session.TTL,
		StoreTimeout:  cfg.Database.Timeout,
		LedgerTimeout: cfg.Hedera.RequestTimeout,
	}, store, keyVault, ledgerClient, logger, opts...)

	if err := identity.Reconcile(ctx); err != nil {
		logger.Error("failed to reconcile local cache", "error", err)
	}
	if current, err := identity.CurrentIdentity(ctx); err == nil {
		logger.Info("current identity", "user_id", current.UserID, "stale", current.Stale)
	}

	checks := map[string]handler.Check{
		"store":   store.Ping,
		"journal": journal.Ping,
	}
	r := router.New(identity, checks, m, httpctx.NewManager(), logger,
		router.WithRateLimit(cfg.RateLimit),
		router.WithTrustedProxy(cfg.HTTP.TrustProxy),
	)
	srv := httpServer.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port), cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout)
	sl := server.NewSecurityLayer(cfg.HTTP)

	var wg sync.WaitGroup
	wg.Add(2)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}(srv)
	go func() {
		defer wg.Done()
		runJanitor(ctx, identity, cfg.Session.PurgeInterval, logger)
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", srv.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

// newLedgerClient builds the network client. Invalid credentials leave the
// server running: provisioning is refused by the secrets gate and wallet
// reads report the ledger as unavailable.
func newLedgerClient(cfg *config.Config, ledgerCfg config.Ledger, logger *logger.Logger) ledger.Client {
	if err := secrets.AssertReady(ledgerCfg); err != nil {
		logger.Error("ledger secrets invalid, wallets will stay pending", "error", err)
		return ledger.Unavailable{Cause: err}
	}

	client, err := hedera.New(hedera.Config{
		Network:        ledgerCfg.Network,
		OperatorID:     ledgerCfg.AccountID,
		OperatorKey:    ledgerCfg.PrivateKey,
		RequestTimeout: cfg.Hedera.RequestTimeout,
		MaxAttempts:    cfg.Hedera.MaxAttempts,
	})
	if err != nil {
		logger.Error("failed to create ledger client", "error", err)
		return ledger.Unavailable{Cause: err}
	}
	logger.Info("ledger client ready", "environment", ledgerCfg.Environment, "network", ledgerCfg.Network)
	return client
}

// runJanitor purges expired sessions every interval until ctx is done.
func runJanitor(ctx context.Context, identity *service.Identity, interval time.Duration, logger *logger.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := identity.PurgeExpiredSessions(ctx); err != nil {
				logger.Warn("failed to purge expired sessions", "error", err)
			}
			if identity.Stale() {
				if err := identity.Reconcile(ctx); err != nil {
					logger.Warn("failed to reconcile local cache", "error", err)
				}
			}
		}
	}
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
