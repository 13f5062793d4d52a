package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	assethandler "kycgate/internal/asset/handler"
	assetmetrics "kycgate/internal/asset/metrics"
	assetservice "kycgate/internal/asset/service"
	assetstore "kycgate/internal/asset/store"
	audithandler "kycgate/internal/audit/handler"
	govhandler "kycgate/internal/governance/handler"
	govmetrics "kycgate/internal/governance/metrics"
	govservice "kycgate/internal/governance/service"
	govstore "kycgate/internal/governance/store"
	"kycgate/internal/guard"
	guardmetrics "kycgate/internal/guard/metrics"
	jwttoken "kycgate/internal/jwt_token"
	"kycgate/internal/jwt_token/revocation"
	ledgerhandler "kycgate/internal/ledger/handler"
	ledgermetrics "kycgate/internal/ledger/metrics"
	ledgerservice "kycgate/internal/ledger/service"
	ledgerstore "kycgate/internal/ledger/store"
	"kycgate/internal/platform/config"
	"kycgate/internal/platform/metrics"
	"kycgate/internal/platform/middleware"
	"kycgate/internal/platform/migrations"
	platformredis "kycgate/internal/platform/redis"
	ratelimitmetrics "kycgate/internal/ratelimit/metrics"
	ratelimitmw "kycgate/internal/ratelimit/middleware"
	ratelimitstore "kycgate/internal/ratelimit/store"
	registryhandler "kycgate/internal/registry/handler"
	registryservice "kycgate/internal/registry/service"
	roleshandler "kycgate/internal/roles/handler"
	rolesmetrics "kycgate/internal/roles/metrics"
	rolesservice "kycgate/internal/roles/service"
	rolesstore "kycgate/internal/roles/store"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/audit/publisher"
	kafkasink "kycgate/pkg/platform/audit/sinks/kafka"
	redissink "kycgate/pkg/platform/audit/sinks/redis"
	auditmemory "kycgate/pkg/platform/audit/store/memory"
	auditpostgres "kycgate/pkg/platform/audit/store/postgres"
	"kycgate/pkg/platform/httputil"
	authmw "kycgate/pkg/platform/middleware/auth"
	"kycgate/pkg/platform/middleware/metadata"
	"kycgate/pkg/platform/middleware/requesttime"
	"kycgate/pkg/platform/tracing"
	"kycgate/pkg/platform/tx"
)

const requestTimeout = 30 * time.Second

// revocationList is the token revocation store the auth middleware and the
// logout handler share.
type revocationList interface {
	authmw.TokenRevocationChecker
	jwttoken.Revoker
}

type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

// app is the wired process: router, background publisher, and the resources
// to release on shutdown in reverse order.
type app struct {
	handler   http.Handler
	publisher *publisher.Publisher
	tokens    *jwttoken.JWTService
	traces    *sdktrace.TracerProvider
	checks    []healthCheck
	closers   []func() error
	logger    *slog.Logger
}

func (a *app) close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to release resource", "error", err)
		}
	}
}

// build wires stores, services and handlers. DATABASE_URL selects Postgres
// stores; otherwise everything is process-local.
func build(ctx context.Context, cfg config.Server, logger *slog.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()
	m := metrics.New()

	a.traces = tracing.NewProvider(tracing.Config{
		SampleRatio: cfg.Tracing.SampleRatio,
		LogSpans:    cfg.Tracing.LogSpans,
	}, logger)
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.traces.Shutdown(ctx)
	})

	var (
		db     *sql.DB
		runner tx.Runner
	)
	if cfg.InMemory() {
		runner = tx.NewShardedRunner(tx.WithTimeout(cfg.TxTimeout))
		logger.Warn("DATABASE_URL not set; using in-memory stores")
	} else {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := migrations.Up(db); err != nil {
			return nil, err
		}
		runner = tx.NewSQLRunner(db, cfg.TxTimeout)
		a.checks = append(a.checks, healthCheck{name: "postgres", check: db.PingContext})
	}

	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		a.closers = append(a.closers, rc.Close)
		a.checks = append(a.checks, healthCheck{name: "redis", check: platformredis.Health(rc)})
	}

	// Notifications
	var auditStore audit.Store = auditmemory.NewInMemoryStore()
	if db != nil {
		auditStore = auditpostgres.New(db)
	}
	pubOpts := []publisher.Option{
		publisher.WithLogger(logger),
		publisher.WithMetrics(publisher.NewMetrics(m.Registry)),
		publisher.WithAsyncBuffer(cfg.Audit.Buffer),
		publisher.WithCircuitBreaker(5, 30*time.Second),
	}
	if len(cfg.Audit.KafkaBrokers) > 0 {
		ks, err := kafkasink.New(kafkasink.Config{Brokers: cfg.Audit.KafkaBrokers, Topic: cfg.Audit.KafkaTopic})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, ks.Close)
		if err := ks.EnsureTopic(ctx, 1, 1); err != nil {
			return nil, err
		}
		pubOpts = append(pubOpts, publisher.WithSink("kafka", ks))
		a.checks = append(a.checks, healthCheck{name: "kafka", check: ks.Ping})
	}
	if rc != nil {
		pubOpts = append(pubOpts, publisher.WithSink("redis", redissink.New(rc,
			redissink.WithStream(cfg.Redis.Stream),
			redissink.WithMaxLen(int64(cfg.Redis.StreamMaxLen)),
		)))
	}
	a.publisher = publisher.NewPublisher(auditStore, pubOpts...)

	// Roles
	var rolesStore rolesservice.Store = rolesstore.NewInMemory()
	if db != nil {
		rolesStore = rolesstore.NewPostgres(db)
	}
	roles := rolesservice.New(rolesStore, runner,
		rolesservice.WithLogger(logger),
		rolesservice.WithAuditPublisher(a.publisher),
		rolesservice.WithMetrics(rolesmetrics.New(m.Registry)),
	)

	// Ledgers
	directory := ledgerservice.NewDirectory()
	ledgerMetrics := ledgermetrics.New(m.Registry)
	var primary *ledgerservice.Service
	ledgers := make(map[string]ledgerhandler.Service, len(cfg.Ledgers))
	for _, name := range cfg.Ledgers {
		var store ledgerservice.Store = ledgerstore.NewInMemory()
		if db != nil {
			store = ledgerstore.NewPostgres(db, name)
		}
		svc := ledgerservice.New(store, roles, runner,
			ledgerservice.WithName(name),
			ledgerservice.WithLogger(logger),
			ledgerservice.WithAuditPublisher(a.publisher),
			ledgerservice.WithMetrics(ledgerMetrics),
			ledgerservice.WithTracerProvider(a.traces),
		)
		directory.Register(name, svc)
		ledgers[name] = svc
		if primary == nil {
			primary = svc
		}
	}

	// Governance
	var (
		opStore  govservice.Store       = govstore.NewInMemory()
		cfgStore govservice.ConfigStore = govstore.NewInMemoryConfig()
	)
	if db != nil {
		opStore = govstore.NewPostgres(db)
		cfgStore = govstore.NewPostgresConfig(db)
	}
	engine := govservice.New(opStore, cfgStore, roles, primary, runner,
		govservice.WithLogger(logger),
		govservice.WithAuditPublisher(a.publisher),
		govservice.WithMetrics(govmetrics.New(m.Registry)),
		govservice.WithTracerProvider(a.traces),
	)

	if !cfg.BootstrapAdmin.IsNil() {
		if err := roles.Bootstrap(ctx, cfg.BootstrapAdmin); err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
	}
	if err := engine.Bootstrap(ctx, cfg.RequiredSigs); err != nil {
		return nil, fmt.Errorf("bootstrap quorum: %w", err)
	}

	// Assets
	var assetStore assetservice.Store = assetstore.NewInMemory()
	if db != nil {
		assetStore = assetstore.NewPostgres(db)
	}
	transferGuard := guard.New(
		guard.WithLogger(logger),
		guard.WithMetrics(guardmetrics.New(m.Registry)),
		guard.WithTracerProvider(a.traces),
	)
	assets := assetservice.New(assetStore, directory, transferGuard, runner,
		assetservice.WithLogger(logger),
		assetservice.WithAuditPublisher(a.publisher),
		assetservice.WithMetrics(assetmetrics.New(m.Registry)),
		assetservice.WithTracerProvider(a.traces),
	)
	registry := registryservice.New(assets, directory, registryservice.WithLogger(logger))

	// Auth
	a.tokens = jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer)
	var trl revocationList
	switch {
	case rc != nil:
		trl = revocation.NewRedisTRL(rc)
	case db != nil:
		trl = revocation.NewPostgresTRL(db, nil)
	default:
		trl = revocation.NewInMemoryTRL(nil)
	}
	var limiterStore ratelimitmw.Limiter = ratelimitstore.NewInMemory(nil)
	if rc != nil {
		limiterStore = ratelimitstore.NewRedis(rc)
	}
	limiter := ratelimitmw.New(limiterStore, cfg.RateLimit.ReadPerMinute, cfg.RateLimit.WritePerMinute, logger,
		ratelimitmw.WithMetrics(ratelimitmetrics.New(m.Registry)),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(m.Middleware)

	r.Get("/healthz", a.handleHealth)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(authmw.RequireAuth(jwttoken.NewValidator(a.tokens), trl, logger))
		r.Use(limiter.Limit)

		jwttoken.NewHandler(trl, logger).Register(r)
		roleshandler.New(roles, logger).Register(r)
		ledgerhandler.New(primary, logger, ledgerhandler.WithLedgers(func(name string) (ledgerhandler.Service, error) {
			svc, ok := ledgers[name]
			if !ok {
				return nil, dErrors.Newf(dErrors.CodeNotFound, "unknown ledger %q", name)
			}
			return svc, nil
		})).Register(r)
		govhandler.New(engine, logger).Register(r)
		registryhandler.New(registry, directory, logger).Register(r)
		assethandler.New(assets, logger).Register(r)
		audithandler.New(auditStore, logger).Register(r)
	})
	a.handler = r
	return a, nil
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	status := map[string]string{}
	var failed error
	for _, c := range a.checks {
		if err := c.check(ctx); err != nil {
			status[c.name] = "unavailable"
			failed = errors.Join(failed, err)
			continue
		}
		status[c.name] = "ok"
	}
	if failed != nil {
		a.logger.WarnContext(ctx, "health check failed", "error", failed)
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "checks": status})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "checks": status})
}
