package control

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/tonkit/internal/core/config"
	"github.com/vietddude/tonkit/internal/core/domain"
	"github.com/vietddude/tonkit/internal/core/worker"
	"github.com/vietddude/tonkit/internal/health"
	"github.com/vietddude/tonkit/internal/infra/redis"
	"github.com/vietddude/tonkit/internal/infra/storage/memory"
	"github.com/vietddude/tonkit/internal/infra/storage/postgres"
	"github.com/vietddude/tonkit/internal/infra/tonapi"
	"github.com/vietddude/tonkit/internal/kit"
)

// App wires configuration into a running wallet kit: storage backend,
// chain API client, push listener, dedupe, periodic refresh and the
// metrics endpoint.
type App struct {
	cfg    *config.AppConfig
	kit    *kit.Kit
	pruner *worker.Pruner
	db     *postgres.DB
	redis  *redis.Client
	server *http.Server
	log    *slog.Logger

	cancel context.CancelFunc
}

// NewApp creates an App with all dependencies initialized.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	logger := slog.Default()

	deps := kit.Deps{Logger: logger}

	// 1. Storage
	var db *postgres.DB
	switch cfg.Storage.Driver {
	case "postgres":
		var err error
		db, err = postgres.NewDB(ctx, cfg.Storage.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		deps.Accounts = postgres.NewAccountRepo(db)
		deps.Jettons = postgres.NewJettonBalanceRepo(db)
		deps.Events = postgres.NewEventRepo(db)
		logger.Info("Using PostgreSQL storage")
	case "memory":
		store := memory.NewStorage()
		deps.Accounts = memory.NewAccountRepo(store)
		deps.Jettons = memory.NewJettonBalanceRepo(store)
		deps.Events = memory.NewEventRepo(store)
		logger.Info("Using Memory storage")
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}

	// 2. Dedupe (optional)
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redis.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		deps.Dedupe = redisClient
	}

	// 3. Chain API + push listener
	network := tonapi.Network(cfg.Wallet.Network)
	deps.API = tonapi.NewHTTPClient(network)
	deps.Listener = tonapi.NewStreamListener(tonapi.NewSSEDialer(network), logger)

	// 4. Kit
	walletKit, err := buildKit(cfg.Wallet, deps)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", health.NewMonitor(walletKit).Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: mux,
	}

	return &App{
		cfg:    cfg,
		kit:    walletKit,
		pruner: worker.NewPruner(cfg.Sync.Retention, deps.Events, logger),
		db:     db,
		redis:  redisClient,
		server: server,
		log:    logger,
	}, nil
}

func buildKit(cfg config.WalletConfig, deps kit.Deps) (*kit.Kit, error) {
	if cfg.SecretKey != "" {
		seed, err := hex.DecodeString(cfg.SecretKey)
		if err != nil || len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("invalid wallet secret key")
		}
		return kit.NewWithKey(ed25519.NewKeyFromSeed(seed), deps), nil
	}

	address, err := domain.ParseAddress(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet address: %w", err)
	}
	return kit.New(address, deps), nil
}

// Kit exposes the assembled wallet kit.
func (a *App) Kit() *kit.Kit {
	return a.kit
}

// Start launches the metrics server, the push listener and the periodic
// refresh loop.
func (a *App) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go func() {
		a.log.Info("Metrics server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("Metrics server error", "error", err)
		}
	}()

	a.kit.Start(loopCtx)
	a.log.Info("Kit started",
		"address", a.kit.ReceiveAddress(),
		"watch_only", a.kit.WatchOnly(),
		"network", a.cfg.Wallet.Network)

	go a.refreshLoop(loopCtx)
	go a.pruner.Start(loopCtx)
	return nil
}

// refreshLoop is the poll backstop behind the push listener.
func (a *App) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Sync.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.kit.Refresh(ctx)
		}
	}
}

// Stop shuts everything down gracefully.
func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.kit.Stop()

	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Error("Metrics server shutdown error", "error", err)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("Redis close error", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error("Database close error", "error", err)
		}
	}

	a.log.Info("App stopped")
	return nil
}
