package main

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/unemi/sportsmap/libs/config"
	"github.com/unemi/sportsmap/libs/db"
	"github.com/unemi/sportsmap/libs/grpcx"
	"github.com/unemi/sportsmap/libs/httpx"
	"github.com/unemi/sportsmap/libs/kafkax"
	"github.com/unemi/sportsmap/libs/metrics"
	otelx "github.com/unemi/sportsmap/libs/otel"
	"github.com/unemi/sportsmap/libs/runtime"
	"github.com/unemi/sportsmap/services/reservation-service/internal/events"
	"github.com/unemi/sportsmap/services/reservation-service/internal/handlers"
	"github.com/unemi/sportsmap/services/reservation-service/internal/sessions"
	"github.com/unemi/sportsmap/services/reservation-service/internal/snapshot"
	"github.com/unemi/sportsmap/services/reservation-service/internal/storage"
	"github.com/unemi/sportsmap/services/reservation-service/internal/upstream"
)

func main() {
	service := config.String("SERVICE_NAME", "reservation-service")
	port, err := config.Port("PORT", "8080")
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
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	upstreamURL, err := config.RequiredString("UPSTREAM_API_URL")
	if err != nil {
		panic(err)
	}
	loc, err := config.Location("TIMEZONE", "America/Guayaquil")
	if err != nil {
		panic(err)
	}
	pollInterval, err := config.Duration("POLL_INTERVAL", 5*time.Minute)
	if err != nil {
		panic(err)
	}
	sessionTTL, err := config.Duration("SESSION_CACHE_TTL", 5*time.Minute)
	if err != nil {
		panic(err)
	}
	upstreamTimeout, err := config.Duration("UPSTREAM_TIMEOUT", 15*time.Second)
	if err != nil {
		panic(err)
	}

	reg := metrics.New(strings.ReplaceAll(service, "-", "_"))
	client := upstream.New(upstreamURL, upstreamTimeout)
	checks := []runtime.ReadyCheck{}

	var source snapshot.Source
	switch kind := config.String("RESERVATION_SOURCE", "http"); kind {
	case "postgres":
		dbURL, err := config.RequiredString("DATABASE_URL")
		if err != nil {
			panic(err)
		}
		pool, err := db.Open(ctx, dbURL, db.Options{ReadOnly: true})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()
		source = storage.NewPostgresSource(pool)
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	case "http":
		// The poller reads with a service token; callers' own tokens are only
		// used for their requests.
		serviceToken := config.String("UPSTREAM_TOKEN", "")
		if serviceToken == "" {
			logger.Warn("UPSTREAM_TOKEN not set; polling reservations anonymously")
		}
		source = upstream.NewSource(client, sessions.NewAuthenticated(serviceToken, upstream.User{}))
	default:
		logger.Error("unknown RESERVATION_SOURCE", "value", kind)
		panic("RESERVATION_SOURCE must be http or postgres")
	}

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()
	}

	store := snapshot.NewStore()
	checks = append(checks, runtime.ReadyCheck{Name: "snapshot", Check: store.ReadyCheck})

	grpcHealth := grpcx.NewHealthServer(service, logger)
	pollerCfg := snapshot.PollerConfig{
		Interval: pollInterval,
		Location: loc,
		Metrics:  reg,
		OnLoaded: func() { grpcHealth.SetServing(true) },
	}
	if rdb != nil {
		cache := snapshot.NewRedisCache(rdb, config.String("SNAPSHOT_CACHE_KEY", snapshot.DefaultCacheKey), 24*time.Hour)
		pollerCfg.Cache = cache
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: cache.ReadyCheck})
	}
	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		writer := kafkax.NewWriter(brokers, config.String("KAFKA_TOPIC", events.DefaultTopic))
		defer func() { _ = writer.Close() }()
		pollerCfg.Notifier = events.NewNotifier(writer, service)
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	poller := snapshot.NewPoller(store, source, logger, pollerCfg)
	go poller.Run(ctx)

	if grpcPort := config.String("GRPC_PORT", ""); grpcPort != "" {
		lis, err := net.Listen("tcp", ":"+grpcPort)
		if err != nil {
			logger.Error("grpc listen failed", "err", err)
			panic(err)
		}
		go func() {
			if err := grpcHealth.Serve(ctx, lis); err != nil {
				logger.Error("grpc health server error", "err", err)
			}
		}()
	}

	verifier := sessions.NewVerifier(client, sessionTTL)
	var loginLimiter httpx.Middleware
	loginLimit := config.Int("LOGIN_RATE_LIMIT", 10)
	var clientKey httpx.KeyFunc = httpx.ClientKey
	if proxies := config.List("TRUSTED_PROXIES", ""); len(proxies) > 0 {
		clientKey = httpx.ProxiedClientKey(proxies)
	}
	if rdb != nil {
		loginLimiter = httpx.NewRedisRateLimiter(rdb, loginLimit, time.Minute, service+":login").KeyBy(clientKey).Middleware(logger)
	} else {
		loginLimiter = httpx.NewRateLimiter(loginLimit, time.Minute).KeyBy(clientKey).Middleware()
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.Routes{
		Auth:         handlers.NewAuthHandler(client, verifier, logger),
		Availability: handlers.NewAvailabilityHandler(store, loc),
		Admin:        handlers.NewAdminHandler(store, client, poller, logger),
		Verifier:     verifier,
		Logger:       logger,
		LoginLimiter: loginLimiter,
		Metrics:      reg.Handler(),
	}.Register(mux)

	// The timeout handler clones the request, so it must sit outside the
	// access log for the matched route pattern to be visible there.
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithTimeout(30*time.Second),
		httpx.WithAccessLog(logger, reg.ObserveRequest),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(12<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "reservation")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	runtime.ServeHTTP(ctx, srv, logger, 10*time.Second)
}
