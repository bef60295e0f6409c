package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Vintage-The-Gemini/space/internal/common/database"
	"github.com/Vintage-The-Gemini/space/internal/common/logger"
	commonmqtt "github.com/Vintage-The-Gemini/space/internal/common/mqtt"
	commonredis "github.com/Vintage-The-Gemini/space/internal/common/redis"
	"github.com/Vintage-The-Gemini/space/internal/config"
	"github.com/Vintage-The-Gemini/space/internal/events"
	httpapi "github.com/Vintage-The-Gemini/space/internal/http"
	"github.com/Vintage-The-Gemini/space/internal/metrics"
	"github.com/Vintage-The-Gemini/space/internal/nasa"
	"github.com/Vintage-The-Gemini/space/internal/repository"
	"github.com/Vintage-The-Gemini/space/internal/service"
	"github.com/Vintage-The-Gemini/space/internal/store"
	"github.com/Vintage-The-Gemini/space/internal/telemetry"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const serviceName = "space-data"

func runServe(parent context.Context) error {
	cfg := config.Load()
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	docs, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer docs.Close()

	checks := map[string]httpapi.Pinger{"store": docs}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = commonredis.NewRedisClient(&cfg.Redis)
		defer redisClient.Close()
		checks["redis"] = httpapi.PingFunc(func(ctx context.Context) error {
			return commonredis.Ping(ctx, redisClient)
		})
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	pub, err := openPublisher(cfg, redisClient, log)
	if err != nil {
		return err
	}
	notifier := events.NewNotifier(pub, m, log)
	defer notifier.Close()

	instRepo := repository.NewInstrumentsRepo(docs)
	instruments := service.NewInstrumentService(instRepo, notifier, log)
	discoveries := service.NewDiscoveryService(repository.NewDiscoveriesRepo(docs), instRepo, notifier, log)
	updates := service.NewUpdateService(repository.NewUpdatesRepo(docs), instRepo, notifier, log)

	var cache store.KV
	if redisClient != nil && cfg.NASA.CacheTTL > 0 {
		cache = store.NewRedisKV(redisClient, serviceName+":")
	}
	nasaClient := nasa.NewClient(nasa.Config{
		BaseURL:          cfg.NASA.BaseURL,
		APIKey:           cfg.NASA.APIKey,
		Timeout:          cfg.NASA.Timeout,
		RetryCount:       cfg.NASA.RetryCount,
		RateLimit:        cfg.NASA.RateLimit,
		RateBurst:        cfg.NASA.RateBurst,
		BreakerThreshold: cfg.NASA.BreakerThreshold,
		BreakerCooldown:  cfg.NASA.BreakerCooldown,
		CacheTTL:         cfg.NASA.CacheTTL,
	}, cache, m, log)

	factory, err := telemetry.NewFactory(cfg.Telemetry.Mode)
	if err != nil {
		return err
	}
	broadcaster := telemetry.NewBroadcaster(telemetry.Config{
		Interval:     cfg.Telemetry.Interval,
		WriteTimeout: cfg.Telemetry.WriteTimeout,
	}, factory, m, log)

	handler := httpapi.NewHandler(httpapi.Deps{
		Instruments: instruments,
		Discoveries: discoveries,
		Updates:     updates,
		NASA:        nasaClient,
		Telemetry:   broadcaster,
		Health:      httpapi.NewHealthHandler(checks, broadcaster.Sessions, log),
		Metrics:     m,
		MetricsHTTP: metrics.Handler(reg),
		Logger:      log,
	})

	srv := service.NewServer(service.ServerConfig{
		Addr:        cfg.HTTP.Addr,
		ReadTimeout: cfg.HTTP.ReadTimeout,
		IdleTimeout: cfg.HTTP.IdleTimeout,
	}, handler, log)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	log.Info("space-data started",
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("store", cfg.Store.Driver),
		zap.String("events", cfg.Events.Driver),
		zap.String("telemetry_mode", cfg.Telemetry.Mode),
		zap.Duration("telemetry_interval", cfg.Telemetry.Interval),
	)

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case runErr = <-errCh:
		if runErr != nil {
			log.Error("HTTP server failed", zap.Error(runErr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	// hijacked WebSocket connections are not tracked by http.Server
	if err := broadcaster.Shutdown(shutdownCtx); err != nil {
		log.Warn("Telemetry sessions did not stop in time", zap.Error(err))
	}
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown incomplete", zap.Error(err))
	}
	return runErr
}

// openStore 按 STORE_DRIVER 打开文档存储；postgres 启动时确保表结构存在
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.DocumentStore, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := repository.ApplySchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		log.Info("Postgres document store ready")
		return repository.NewPostgresStore(db), nil
	case config.StoreDriverBolt:
		s, err := repository.NewBoltStore(cfg.Store.BoltPath)
		if err != nil {
			return nil, err
		}
		log.Info("Bolt document store ready", zap.String("path", cfg.Store.BoltPath))
		return s, nil
	case config.StoreDriverMemory:
		log.Warn("Using in-memory document store, data is lost on restart")
		return repository.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func openPublisher(cfg *config.Config, redisClient *redis.Client, log *zap.Logger) (events.Publisher, error) {
	switch cfg.Events.Driver {
	case config.EventsDriverMQTT:
		client, err := commonmqtt.NewClient(&cfg.MQTT, log)
		if err != nil {
			return nil, err
		}
		return events.NewMQTTPublisher(client, cfg.Events.TopicPrefix, cfg.MQTT.QoS), nil
	case config.EventsDriverRedis:
		if redisClient == nil {
			return nil, errors.New("redis events driver requires REDIS_ADDR")
		}
		return events.NewStreamPublisher(redisClient, cfg.Events.Stream, 10000), nil
	}
	return events.NopPublisher{}, nil
}
