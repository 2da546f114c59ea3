package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/clinicbook/libs/config"
	"github.com/md-rashed-zaman/clinicbook/libs/db"
	"github.com/md-rashed-zaman/clinicbook/libs/httpx"
	"github.com/md-rashed-zaman/clinicbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/clinicbook/libs/otel"
	"github.com/md-rashed-zaman/clinicbook/libs/runtime"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/cache"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/consumer"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/engine"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/handlers"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/inbox"
	"github.com/md-rashed-zaman/clinicbook/services/availability-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "availability-service")
	port, err := config.Port("PORT", "8084")
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
		defer func() { _ = runtime.Shutdown(5*time.Second, otelShutdown) }()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	maxConns, err := config.Int("DB_MAX_CONNS", 10, 1)
	if err != nil {
		panic(err)
	}
	pool, err := db.OpenWithConfig(ctx, dbURL, db.PoolConfig{MaxConns: int32(maxConns)})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	repo := storage.NewRepository(pool)
	readyChecks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}

	var calendars engine.CalendarReader = repo
	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		redisDB, err := config.Int("REDIS_DB", 0, 0)
		if err != nil {
			panic(err)
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()

		ttl, err := config.Seconds("CALENDAR_CACHE_TTL_SECONDS", 5*time.Minute)
		if err != nil {
			panic(err)
		}
		calendarCache := cache.NewCalendarCache(rdb, repo, ttl, logger)
		calendars = calendarCache
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})

		if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
			startCalendarConsumer(ctx, logger, pool, brokers, calendarCache)
			readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
		}
	}

	eng := engine.New(calendars, repo, repo, repo, logger, engine.Options{
		BookingsPerService: config.Bool("BOOKINGS_PER_SERVICE", false),
	})

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	handlers.NewAvailabilityHandler(eng, logger).Register(mux)

	handler, err := buildHandler(mux, logger, rdb)
	if err != nil {
		panic(err)
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	if err := startGrpcServer(ctx, logger, eng); err != nil {
		logger.Error("grpc server failed to start", "err", err)
	}

	<-ctx.Done()
	if err := runtime.Shutdown(10*time.Second, srv.Shutdown); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func buildHandler(mux *http.ServeMux, logger *slog.Logger, rdb *redis.Client) (http.Handler, error) {
	bodyLimit, err := config.Int("REQUEST_BODY_LIMIT_BYTES", 64<<10, 1)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := config.Seconds("REQUEST_TIMEOUT_SECONDS", 5*time.Second)
	if err != nil {
		return nil, err
	}
	limitPerMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 120, 1)
	if err != nil {
		return nil, err
	}

	var rateLimitMW httpx.Middleware
	if rdb != nil {
		rateLimitMW = httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, "availability:rl").
			Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
	} else {
		rateLimitMW = httpx.NewRateLimiter(limitPerMinute, time.Minute).Middleware()
	}

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(int64(bodyLimit)),
		httpx.WithTimeout(requestTimeout),
		rateLimitMW,
	)
	return otelhttp.NewHandler(handler, "availability"), nil
}

func startCalendarConsumer(ctx context.Context, logger *slog.Logger, pool *db.Pool, brokers string, calendarCache *cache.CalendarCache) {
	inboxRepo := inbox.NewRepository(pool)
	c := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: brokers,
		GroupID: config.String("KAFKA_GROUP_ID", "availability-service"),
		Topic:   config.String("KAFKA_CALENDAR_TOPIC", "clinic.calendar.changed.v1"),
	}, consumer.CalendarChanged(calendarCache, logger))
	go c.Run(ctx)

	retentionHours, err := config.Int("INBOX_RETENTION_HOURS", 7*24, 1)
	if err != nil {
		logger.Error("invalid inbox retention, using default", "err", err)
		retentionHours = 7 * 24
	}
	go pruneInbox(ctx, logger, inboxRepo, time.Duration(retentionHours)*time.Hour)
}

func pruneInbox(ctx context.Context, logger *slog.Logger, repo *inbox.Repository, retention time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.Prune(ctx, time.Now().Add(-retention))
			if err != nil {
				logger.Error("inbox prune failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Info("inbox pruned", "deleted", n)
			}
		}
	}
}
