package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"photowall/internal/adapters/docstore"
	"photowall/internal/adapters/push"
	"photowall/internal/adapters/repo"
	"photowall/internal/domain"
	"photowall/internal/infra/config"
	"photowall/internal/infra/db"
	loginfra "photowall/internal/infra/log"
	"photowall/internal/infra/metrics"
	"photowall/internal/infra/queue"
	"photowall/internal/usecase/notify"
)

func main() {
	cfg := config.Load()
	log.Logger = loginfra.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("notifier: нет подключения к БД")
	}
	defer pool.Close()

	store := docstore.NewPostgres(pool)
	users := repo.NewUsers(store)

	gateway, err := push.NewClient(cfg.Push.GatewayURL, cfg.Push.APIKey, cfg.Push.Timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("notifier: провайдер пушей не настроен")
	}

	var jobQueue domain.NotificationQueue
	switch cfg.Queues.Driver {
	case "redis":
		if cfg.RedisAddr == "" {
			log.Fatal().Msg("notifier: очередь redis требует REDIS_ADDR")
		}
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		jobQueue = queue.NewRedisNotificationQueue(redisClient, cfg.Queues.Notification)
	case "rabbitmq":
		rabbitQueue, err := queue.NewRabbitNotificationQueue(cfg.RabbitURL, cfg.RabbitManagementURL, cfg.Queues.Notification)
		if err != nil {
			log.Fatal().Err(err).Msg("notifier: очередь rabbitmq не настроена")
		}
		jobQueue = rabbitQueue
	default:
		log.Fatal().Str("driver", cfg.Queues.Driver).Msg("notifier: воркеру нужна очередь (redis или rabbitmq)")
	}

	// Воркер рассылает сам, без повторной постановки в очередь.
	notifySvc := notify.NewService(users, gateway, nil, log.With().Str("component", "notify").Logger(), cfg.Push.ChunkSize)

	metrics.StartServer(ctx, log.With().Str("component", "metrics").Logger(), ":9090")
	log.Info().Str("queue", cfg.Queues.Notification).Msg("notifier: старт")

	for {
		job, err := jobQueue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			log.Error().Err(err).Msg("notifier: чтение очереди не удалось")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		if err := notifySvc.HandleJob(ctx, job); err != nil {
			log.Error().Err(err).Str("post_id", job.PostID).Msg("notifier: задание завершилось ошибкой")
		}
	}

	log.Info().Msg("notifier: остановка")
}
