package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"America/Lima"`
	Port   int    `envconfig:"PORT" default:"8080"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	RabbitURL           string `envconfig:"RABBITMQ_URL"`
	RabbitManagementURL string `envconfig:"RABBITMQ_MANAGEMENT_URL"`

	Push struct {
		GatewayURL string        `envconfig:"PUSH_GATEWAY_URL"`
		APIKey     string        `envconfig:"PUSH_GATEWAY_KEY"`
		Timeout    time.Duration `envconfig:"PUSH_GATEWAY_TIMEOUT" default:"10s"`
		ChunkSize  int           `envconfig:"PUSH_CHUNK_SIZE" default:"500"`
	} `envconfig:""`

	Feed struct {
		MaxPerPage     int           `envconfig:"FEED_MAX_PER_PAGE" default:"50"`
		AuthorCacheTTL time.Duration `envconfig:"FEED_AUTHOR_CACHE_TTL" default:"1m"`
	} `envconfig:""`

	Sweep struct {
		Schedule string `envconfig:"SWEEP_SCHEDULE" default:"@hourly"`
	} `envconfig:""`

	Queues struct {
		// Driver выбирает транспорт очереди уведомлений: redis, rabbitmq
		// или пустая строка — рассылка выполняется сразу из API.
		Driver       string `envconfig:"NOTIFY_QUEUE_DRIVER" default:""`
		Notification string `envconfig:"NOTIFY_QUEUE_KEY" default:"notification_jobs"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
