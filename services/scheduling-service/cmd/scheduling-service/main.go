package main

import (
	"net/http"
	"time"

	"github.com/md-rashed-zaman/clinicbook/libs/config"
	"github.com/md-rashed-zaman/clinicbook/libs/db"
	"github.com/md-rashed-zaman/clinicbook/libs/grpcx"
	"github.com/md-rashed-zaman/clinicbook/libs/httpx"
	"github.com/md-rashed-zaman/clinicbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/clinicbook/libs/otel"
	"github.com/md-rashed-zaman/clinicbook/libs/runtime"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/appointments"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/booking"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/catalog"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/events"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/handlers"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/locks"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/scheduling"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8085")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9095")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := runtime.ShutdownContext(5 * time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	mode, err := availability.ParseConflictMode(config.String("CONFLICT_MODE", ""))
	if err != nil {
		panic(err)
	}
	scope, err := availability.ParseConflictScope(config.String("CONFLICT_SCOPE", ""))
	if err != nil {
		panic(err)
	}

	cat := catalog.NewMemory()
	if config.Bool("SEED_DEMO_DATA", true) {
		if err := cat.Load(catalog.Demo()); err != nil {
			panic(err)
		}
		logger.Info("demo catalog loaded")
	}
	if path := config.String("CATALOG_FILE", ""); path != "" {
		if err := cat.LoadFile(path); err != nil {
			logger.Error("catalog load failed", "path", path, "err", err)
			panic(err)
		}
		logger.Info("catalog loaded", "path", path)
	}

	var checks []runtime.ReadyCheck

	var store storage.Store = storage.NewMemoryStore()
	if dbURL := config.String("DATABASE_URL", ""); dbURL != "" {
		pool, err := db.Open(ctx, dbURL, db.Options{})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()
		pg := storage.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("schema setup failed", "err", err)
			panic(err)
		}
		store = pg
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	} else {
		logger.Warn("DATABASE_URL not set; appointments are kept in memory")
	}

	lockTTL := time.Duration(config.Int("SLOT_LOCK_TTL_SECONDS", 10)) * time.Second
	lockWait := time.Duration(config.Int("SLOT_LOCK_WAIT_MS", 2000)) * time.Millisecond
	ratePerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)

	var locker locks.Locker = locks.NewMemoryLocker(lockTTL, lockWait)
	rateLimit := httpx.NewRateLimiter(ratePerMinute, time.Minute).Middleware()
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer rdb.Close()
		locker = locks.NewRedisLocker(rdb, service, lockTTL, lockWait)
		rateLimit = httpx.NewRedisRateLimiter(rdb, ratePerMinute, time.Minute, service+":rl").Middleware(logger, true)
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: locks.ReadyCheck(rdb)})
	}

	var publisher events.Publisher = events.NewLogPublisher(logger)
	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		kp, err := events.NewKafkaPublisher(brokers, logger)
		if err != nil {
			logger.Error("kafka publisher init failed; logging events instead", "err", err)
		} else {
			defer func() { _ = kp.Close() }()
			publisher = kp
			checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
		}
	}

	appts := appointments.NewService(store, locker, publisher, logger, appointments.Config{
		ConflictMode:  mode,
		ConflictScope: scope,
	})
	sched := scheduling.NewService(cat, store, scheduling.Config{
		Granularity:        config.Int("SLOT_GRANULARITY_MINUTES", availability.DefaultGranularity),
		FitServiceDuration: config.Bool("SLOT_FIT_SERVICE_DURATION", false),
		ConflictMode:       mode,
		ConflictScope:      scope,
	})
	orch := booking.NewOrchestrator(sched, appts)
	sessions := booking.NewSessions(time.Duration(config.Int("SESSION_TTL_MINUTES", 30)) * time.Minute)

	grpcServer := grpcx.NewServer(logger)
	grpcx.RegisterHealth(ctx, grpcServer, logger, grpcx.HealthConfig{Service: service, Checks: checks})
	if err := grpcx.Serve(ctx, grpcServer, ":"+grpcPort, logger); err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.Register(mux,
		handlers.NewQueryHandler(sched, logger),
		handlers.NewAppointmentHandler(appts, cat, logger),
		handlers.NewSessionHandler(orch, sessions, logger),
	)
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Idempotency-Key", httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
		rateLimit,
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "conflict_mode", mode, "conflict_scope", scope, "store", storeKind(store))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := runtime.ShutdownContext(10 * time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func storeKind(s storage.Store) string {
	switch s.(type) {
	case *storage.PostgresStore:
		return "postgres"
	default:
		return "memory"
	}
}
