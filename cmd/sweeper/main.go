package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"photowall/internal/adapters/docstore"
	"photowall/internal/adapters/repo"
	"photowall/internal/domain"
	"photowall/internal/infra/cache"
	"photowall/internal/infra/config"
	"photowall/internal/infra/db"
	loginfra "photowall/internal/infra/log"
	"photowall/internal/infra/metrics"
	"photowall/internal/usecase/sweep"
)

func main() {
	cfg := config.Load()
	log.Logger = loginfra.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sweeper: нет подключения к БД")
	}
	defer pool.Close()

	store := docstore.NewPostgres(pool)
	posts := repo.NewPosts(store)
	comments := repo.NewComments(store)
	likes := repo.NewLikes(store)

	var appCache domain.Cache
	if cfg.RedisAddr != "" {
		appCache = cache.New(cfg.RedisAddr)
	}

	sweeper := sweep.NewService(posts, comments, likes, appCache, log.With().Str("component", "sweep").Logger())

	scheduler := cron.New(cron.WithLocation(time.UTC))
	if _, err := scheduler.AddFunc(cfg.Sweep.Schedule, func() {
		if _, err := sweeper.Run(ctx); err != nil {
			log.Error().Err(err).Msg("sweeper: проход завершился ошибкой")
		}
	}); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Sweep.Schedule).Msg("sweeper: некорректное расписание")
	}

	metrics.StartServer(ctx, log.With().Str("component", "metrics").Logger(), ":9090")

	scheduler.Start()
	log.Info().Str("schedule", cfg.Sweep.Schedule).Msg("sweeper: старт")

	<-ctx.Done()
	log.Info().Msg("sweeper: остановка")
	<-scheduler.Stop().Done()
}
