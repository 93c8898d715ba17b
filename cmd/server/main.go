package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	authService "recensement/internal/auth/service"
	jwttoken "recensement/internal/jwt_token"
	"recensement/internal/kv"
	"recensement/internal/platform/config"
	"recensement/internal/platform/httpserver"
	"recensement/internal/platform/logger"
	"recensement/internal/platform/metrics"
	platformredis "recensement/internal/platform/redis"
	recordsService "recensement/internal/records/service"
	statsService "recensement/internal/stats/service"
	"recensement/internal/storage"
	"recensement/internal/storage/memory"
	"recensement/internal/storage/postgres"
	httptransport "recensement/internal/transport/http"
	usersService "recensement/internal/users/service"
	zonesService "recensement/internal/zones/service"
	"recensement/pkg/secrets"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "recensement:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	checks := map[string]httptransport.HealthCheck{}

	store, closeStore, err := openStore(ctx, cfg, log, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	kvStore, closeKV, err := openKV(ctx, cfg, log, checks)
	if err != nil {
		return err
	}
	defer closeKV()
	flags := kv.NewFlags(kvStore, kv.WithFlagsLogger(log))

	if cfg.UsesDevSigningKey() {
		log.Warn("using the development JWT signing key; set JWT_SIGNING_KEY")
	}
	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTTTL)

	users := usersService.New(store, usersService.WithLogger(log), usersService.WithMetrics(m))
	zones := zonesService.New(store, zonesService.WithLogger(log), zonesService.WithMetrics(m))
	records := recordsService.New(store,
		recordsService.WithLogger(log),
		recordsService.WithMetrics(m),
		recordsService.WithFlags(flags),
	)
	stats := statsService.New(store, statsService.WithLogger(log))
	auth := authService.New(store, secrets.Bcrypt{}, jwtService,
		authService.WithLogger(log),
		authService.WithMetrics(m),
	)

	if err := bootstrapAdmin(ctx, cfg.BootstrapAdmin, users, log); err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Metrics:        m,
		Tokens:         jwttoken.NewJWTServiceAdapter(jwtService),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		MetricsToken:   cfg.MetricsToken,
		HealthChecks:   checks,
	}, httptransport.Handlers{
		Auth:    httptransport.NewAuthHandler(auth, log),
		Users:   httptransport.NewUserHandler(users, log),
		Zones:   httptransport.NewZoneHandler(zones, log),
		Records: httptransport.NewRecordHandler(records, stats, log),
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting recensement", "addr", cfg.Addr, "kv_backend", cfg.KVBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// openStore selects Postgres when a DSN is configured and the in-memory store
// otherwise.
func openStore(ctx context.Context, cfg config.Server, log *slog.Logger, checks map[string]httptransport.HealthCheck) (storage.Store, func(), error) {
	if cfg.Database.DSN == "" {
		log.Warn("no database configured; using the in-memory store")
		return memory.NewInMemory(), func() {}, nil
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	pg := postgres.New(db)
	if cfg.Database.AutoMigrate {
		if err := pg.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("database schema applied")
	}
	checks["postgres"] = pg.Health
	return pg, func() { _ = db.Close() }, nil
}

func openKV(ctx context.Context, cfg config.Server, log *slog.Logger, checks map[string]httptransport.HealthCheck) (kv.Store, func(), error) {
	switch cfg.KVBackend {
	case config.KVBackendPostgres:
		if cfg.Database.DSN == "" {
			return nil, nil, errors.New("KV_BACKEND=postgres requires a database")
		}
		pgkv, err := kv.OpenPostgres(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		return pgkv, pgkv.Close, nil
	case config.KVBackendRedis:
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		if client == nil {
			return nil, nil, errors.New("KV_BACKEND=redis requires REDIS_URL")
		}
		checks["redis"] = client.Health
		return kv.NewRedis(client.Client), func() { _ = client.Close() }, nil
	default:
		log.Info("kv overlay disabled; feature flags use their defaults")
		return kv.Disabled{}, func() {}, nil
	}
}

func bootstrapAdmin(ctx context.Context, admin config.BootstrapAdmin, users *usersService.Service, log *slog.Logger) error {
	if !admin.Enabled() {
		return nil
	}
	hash, err := secrets.Hash(admin.Password)
	if err != nil {
		return fmt.Errorf("hash bootstrap admin password: %w", err)
	}
	created, err := users.EnsureAdmin(ctx, admin.Username, hash)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		log.Info("bootstrap admin created", "username", admin.Username)
	}
	return nil
}
