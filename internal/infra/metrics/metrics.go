package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	FeedBuildSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "feed_build_seconds",
		Help:    "Время сборки страницы ленты",
		Buckets: prometheus.DefBuckets,
	})
	FeedItemsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_items_skipped_total",
		Help: "Записи ленты, пропущенные из-за сбоя сборки",
	})
	FeedJoinFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_join_failures_total",
		Help: "Сбои отдельных ветвей сборки записи ленты",
	}, []string{"branch"})

	PushChunksSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "push_chunks_sent_total",
		Help: "Отправленные чанки пуш-уведомлений",
	})
	PushChunkErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "push_chunk_errors_total",
		Help: "Ошибки отправки чанков пуш-уведомлений",
	})
	PushTokensTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "push_tokens_total",
		Help: "Токены, охваченные рассылками",
	})

	SweepDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sweep_deleted_total",
		Help: "Истории, удалённые свипером",
	})
	SweepRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_runs_total",
		Help: "Количество проходов свипера",
	}, []string{"status"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		FeedBuildSeconds,
		FeedItemsSkipped,
		FeedJoinFailures,
		PushChunksSent,
		PushChunkErrors,
		PushTokensTotal,
		SweepDeletedTotal,
		SweepRunsTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveSweepRun записывает итог прохода свипера.
func ObserveSweepRun(deleted int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	SweepRunsTotal.WithLabelValues(status).Inc()
	if deleted > 0 {
		SweepDeletedTotal.Add(float64(deleted))
	}
}

// IncFeedJoinFailure фиксирует сбой одной ветви сборки записи.
func IncFeedJoinFailure(branch string) {
	FeedJoinFailures.WithLabelValues(branch).Inc()
}
