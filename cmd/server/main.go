package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"habitflow/config"
	"habitflow/internal/api"
	"habitflow/internal/db"
	"habitflow/internal/httpserver"
	"habitflow/internal/mq"
	redisclient "habitflow/internal/redis"
	"habitflow/internal/repository"
	"habitflow/internal/service/auth"
	"habitflow/internal/service/habit"
	"habitflow/internal/service/insight"
	"habitflow/internal/service/subscription"
	"habitflow/internal/store"
	"habitflow/internal/util"
	"habitflow/pkg/logger"
)

func main() {
	// .env is optional, real deployments use the environment directly
	_ = godotenv.Load()

	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	// Redis backs the fallback store, the sign-out denylist and the repair
	// deduper. All of those degrade gracefully without it.
	var redisClient *redis.Client
	if cfg.Redis.Configured() {
		redisClient = redisclient.NewRedisClient(cfg.Redis)
		defer redisClient.Close()
	}

	habitStore, userStore := selectStores(cfg, redisClient, log)

	// MQ is optional: without it, change notifications stay in-process.
	var publisher *mq.Publisher
	var consumer *mq.Consumer
	if cfg.MQ.Configured() {
		var err error
		publisher, err = mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Fatal("failed to init publisher", zap.Error(err))
		}
		defer publisher.Close()

		consumer, err = mq.NewConsumer(cfg.MQ.URL, "habitflow.snapshots", mq.RouteHabitChanged, log)
		if err != nil {
			log.Fatal("failed to init consumer", zap.Error(err))
		}
		defer consumer.Close()

		if redisClient != nil {
			consumer.SetRetryCounter(util.NewRetryCounter(redisClient, time.Hour))
		}
	} else {
		log.Warn("MQ not configured, habit change feed runs in-process only")
	}

	deduper := util.NewDeduper(redisClient, time.Minute)

	habitService := habit.NewService(habitStore, deduper, log)
	hub := subscription.NewHub(habitService, log)
	if publisher != nil {
		habitService.SetNotifier(subscription.NewMQNotifier(publisher, log))
		consumer.SetHandler(hub.HandleEvent)
	} else {
		habitService.SetNotifier(hub)
	}

	authService := auth.NewService(userStore, redisClient, cfg.JWT.Secret, log)
	if !authService.Configured() {
		log.Warn("auth not configured, protected endpoints will answer 503")
	}

	var generator insight.Generator
	if cfg.Insight.Configured() {
		generator = insight.NewGeminiClient(cfg.Insight, log)
	} else {
		log.Warn("insight generator not configured, insight requests will answer 503")
	}
	insightService := insight.NewService(generator, log)

	authHandler := api.NewAuthHandler(authService)
	habitHandler := api.NewHabitHandler(habitService, hub)
	insightHandler := api.NewInsightHandler(insightService, habitService)

	router := httpserver.NewRouter(
		authHandler,
		habitHandler,
		insightHandler,
		authService,
		habitStore,
		publisher,
		httpserver.Status{
			StoreBackend:      habitStore.Backend(),
			AuthConfigured:    authService.Configured(),
			InsightConfigured: insightService.Configured(),
			MQConfigured:      cfg.MQ.Configured(),
			RedisConfigured:   redisClient != nil,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	if consumer != nil {
		g.Go(func() error {
			return consumer.StartConsuming(ctx)
		})
	}
	g.Go(func() error {
		return router.Run(cfg.Server.Port)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func selectStores(cfg *config.Config, redisClient *redis.Client, log *zap.Logger) (store.HabitStore, store.UserStore) {
	backend := cfg.Store.Backend
	if backend == "" {
		switch {
		case cfg.DB.Configured():
			backend = "postgres"
		case redisClient != nil:
			backend = "redis"
		default:
			backend = "memory"
		}
	}

	switch backend {
	case "postgres":
		dbConn, err := db.NewConnection(cfg.DB, log)
		if err != nil {
			log.Fatal("DB initialization failed", zap.Error(err))
		}
		return repository.NewHabitRepository(dbConn, log), repository.NewUserRepository(dbConn)
	case "redis":
		if redisClient == nil {
			log.Fatal("store backend is redis but redis is not configured")
		}
		rs := store.NewRedisStore(redisClient, log)
		return rs, rs
	default:
		log.Warn("running on the in-memory store, data will not survive a restart")
		ms := store.NewMemoryStore()
		return ms, ms
	}
}
