package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"photowall/internal/adapters/docstore"
	"photowall/internal/adapters/push"
	"photowall/internal/adapters/repo"
	"photowall/internal/adapters/rest"
	"photowall/internal/domain"
	"photowall/internal/infra/cache"
	"photowall/internal/infra/config"
	"photowall/internal/infra/db"
	httpinfra "photowall/internal/infra/http"
	loginfra "photowall/internal/infra/log"
	"photowall/internal/infra/metrics"
	"photowall/internal/infra/queue"
	"photowall/internal/usecase/content"
	"photowall/internal/usecase/feed"
	"photowall/internal/usecase/like"
	"photowall/internal/usecase/notify"
	"photowall/internal/usecase/profile"
)

func main() {
	cfg := config.Load()
	log.Logger = loginfra.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()

	store := docstore.NewPostgres(pool)
	posts := repo.NewPosts(store)
	comments := repo.NewComments(store)
	likes := repo.NewLikes(store)
	users := repo.NewUsers(store)

	var appCache domain.Cache
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		appCache = cache.NewWithClient(redisClient)
	}

	var jobQueue domain.NotificationQueue
	switch cfg.Queues.Driver {
	case "redis":
		if redisClient == nil {
			log.Fatal().Msg("api: очередь redis требует REDIS_ADDR")
		}
		jobQueue = queue.NewRedisNotificationQueue(redisClient, cfg.Queues.Notification)
	case "rabbitmq":
		rabbitQueue, err := queue.NewRabbitNotificationQueue(cfg.RabbitURL, cfg.RabbitManagementURL, cfg.Queues.Notification)
		if err != nil {
			log.Fatal().Err(err).Msg("api: очередь rabbitmq не настроена")
		}
		jobQueue = rabbitQueue
	case "":
	default:
		log.Fatal().Str("driver", cfg.Queues.Driver).Msg("api: неизвестный транспорт очереди")
	}

	var gateway domain.PushGateway
	if cfg.Push.GatewayURL != "" {
		client, err := push.NewClient(cfg.Push.GatewayURL, cfg.Push.APIKey, cfg.Push.Timeout)
		if err != nil {
			log.Fatal().Err(err).Msg("api: провайдер пушей не настроен")
		}
		gateway = client
	}

	var notifier content.Notifier
	if gateway != nil || jobQueue != nil {
		notifier = notify.NewService(users, gateway, jobQueue, log.With().Str("component", "notify").Logger(), cfg.Push.ChunkSize)
	} else {
		log.Warn().Msg("api: рассылка уведомлений отключена")
	}

	feedSvc := feed.NewService(posts, comments, likes, users, appCache, log.With().Str("component", "feed").Logger(), cfg.Feed.MaxPerPage, cfg.Feed.AuthorCacheTTL)
	contentSvc := content.NewService(posts, comments, likes, users, notifier, log.With().Str("component", "content").Logger())
	likeSvc := like.NewService(posts, likes, log.With().Str("component", "like").Logger())
	profileSvc := profile.NewService(users, log.With().Str("component", "profile").Logger())

	server := httpinfra.NewServer(log.With().Str("component", "http").Logger())
	handler := rest.NewHandler(feedSvc, contentSvc, likeSvc, profileSvc, log.With().Str("component", "rest").Logger())
	handler.Register(server.Router)

	metrics.StartServer(ctx, log.With().Str("component", "metrics").Logger(), ":9090")

	go func() {
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("api: сервер остановлен")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
