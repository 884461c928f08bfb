package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/teresa-solution/owner-console/internal/config"
	"github.com/teresa-solution/owner-console/internal/dashboard"
	"github.com/teresa-solution/owner-console/internal/httpapi"
	"github.com/teresa-solution/owner-console/internal/monitoring"
	"github.com/teresa-solution/owner-console/internal/payment"
	"github.com/teresa-solution/owner-console/internal/ratelimit"
	"github.com/teresa-solution/owner-console/internal/scheduler"
	"github.com/teresa-solution/owner-console/internal/seed"
	"github.com/teresa-solution/owner-console/internal/service"
	"github.com/teresa-solution/owner-console/internal/store"
)

const (
	cacheTTL        = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
	atRiskThreshold = 70
)

type backends struct {
	records  store.RecordStore
	payments payment.Client
	checks   map[string]monitoring.CheckFunc
	closers  []func() error
}

// openBackends picks the record store and payment client once, from the
// resolved mode. Nothing downstream branches on mock mode again.
func openBackends(cfg *config.Config) (*backends, error) {
	b := &backends{checks: map[string]monitoring.CheckFunc{}}

	if cfg.IsMockEnv() {
		b.records = store.NewMemoryStore(seed.Func(time.Now))
		b.payments = payment.NewMockClient(time.Now)
		b.checks["record_store"] = monitoring.StoreCheck(b.records, "tenants")
		return b, nil
	}

	switch cfg.RecordStore {
	case config.StorePostgres:
		pg, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.records = pg
		b.checks["record_store"] = pg.Health
		b.closers = append(b.closers, pg.Close)
	default:
		pb := store.NewPocketBaseStore(cfg.PocketBaseURL, cfg.PocketBaseToken, nil)
		b.records = pb
		b.checks["record_store"] = pb.Health
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		cached := store.NewCachedStore(b.records, rdb, cacheTTL, "tenants", "subscription_plans", "system_settings")
		b.records = cached
		b.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		b.closers = append(b.closers, cached.Close)
	}

	pay := payment.NewHTTPClient(cfg.PaymentServerURL, cfg.ServiceAPIKey, nil)
	b.payments = pay
	b.checks["payment_server"] = pay.Health
	return b, nil
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			log.Error().Err(err).Msg("Failed to close backend")
		}
	}
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	monitoring.InitMetrics()

	b, err := openBackends(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open backends")
	}
	defer b.Close()

	audit := service.NewAuditRecorder(b.records, 100)
	defer audit.Close()

	analytics := service.NewAnalyticsService(b.payments, time.Now)
	owner := service.NewOwnerService(b.records, time.Now).WithAudit(audit)
	tenants := service.NewTenantService(b.records, time.Now).WithAudit(audit)
	billing := service.NewBillingService(b.records, time.Now)
	controller := dashboard.NewController(owner, time.Now)

	limiter := ratelimit.New(nil)
	hs := health.NewServer()
	monitor := monitoring.NewMonitor(b.records, time.Now).
		WithHealthServer(hs).
		WithRateLimitKeys(limiter.Size)
	for _, name := range []string{"record_store", "redis", "payment_server"} {
		if check, ok := b.checks[name]; ok {
			monitor.AddCheck(name, check)
		}
	}

	jobs := scheduler.New()
	mustAdd(jobs.Add("dashboard_refresh", 5*time.Minute, controller.RefreshJob))
	mustAdd(jobs.Add("system_health", 30*time.Second, func(ctx context.Context) error {
		if stats := monitor.Stats(ctx); !stats.Healthy {
			log.Warn().Int("active_alerts", stats.ActiveAlerts).Msg("Owner console unhealthy")
		}
		return nil
	}))
	mustAdd(jobs.Add("churn_watch", time.Minute, func(ctx context.Context) error {
		atRisk := analytics.GetAtRiskCustomers(ctx, atRiskThreshold, payment.DefaultAtRiskLimit)
		if len(atRisk) > 0 {
			log.Info().Int("customers", len(atRisk)).Msg("Customers at high churn risk")
		}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter.Start(ctx, ratelimit.SweepInterval)
	jobs.Start(ctx)

	log.Info().
		Bool("mock", cfg.IsMockEnv()).
		Str("environment", cfg.Environment).
		Str("record_store", cfg.RecordStore).
		Msgf("Starting Owner Console on ports %d (HTTP) and %d (gRPC)", cfg.HTTPPort, cfg.GRPCPort)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to listen")
	}
	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, hs)
	reflection.Register(server)

	go func() {
		log.Info().Msgf("gRPC server listening at %v", lis.Addr())
		if err := server.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("Failed to start gRPC server")
		}
	}()

	router := httpapi.NewRouter(httpapi.Services{
		Owner:     owner,
		Billing:   billing,
		Tenants:   tenants,
		Analytics: analytics,
		Dashboard: controller,
		Monitor:   monitor,
		Limiter:   limiter,
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Msgf("HTTP server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	jobs.Stop()
	limiter.Stop()
	hs.Shutdown()

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	server.GracefulStop()
	log.Info().Msg("Server exiting")
}

func mustAdd(err error) {
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule job")
	}
}
