package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"BOSS_TZ" default:"Asia/Manila"`

	Telegram struct {
		Token      string `envconfig:"TG_BOT_TOKEN"`
		WebhookURL string `envconfig:"TG_WEBHOOK_URL"`
	} `envconfig:""`

	HTTP struct {
		Addr        string `envconfig:"HTTP_ADDR" default:":8080"`
		MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
	} `envconfig:""`

	Scheduler struct {
		Interval      time.Duration `envconfig:"POLL_INTERVAL" default:"10s"`
		Concurrency   int           `envconfig:"POLL_CONCURRENCY" default:"8"`
		Embedded      bool          `envconfig:"SCHEDULER_EMBEDDED" default:"true"`
		AllowedScopes string        `envconfig:"ALLOWED_SCOPES"`
		RulesFile     string        `envconfig:"BOSS_RULES_FILE"`
	} `envconfig:""`

	Windows struct {
		Warn          time.Duration `envconfig:"WARN_WINDOW" default:"10m"`
		WarnTolerance time.Duration `envconfig:"WARN_TOLERANCE" default:"30s"`
		Grace         time.Duration `envconfig:"SPAWN_GRACE" default:"2m"`
		StaleUnlock   time.Duration `envconfig:"STALE_UNLOCK" default:"1h"`
	} `envconfig:""`

	Store struct {
		Backend    string `envconfig:"STORE_BACKEND" default:"file"`
		DataDir    string `envconfig:"DATA_DIR" default:"data"`
		SQLitePath string `envconfig:"SQLITE_PATH" default:"data/boss_timers.db"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Notify struct {
		Mode      string        `envconfig:"NOTIFY_MODE" default:"direct"`
		RabbitURL string        `envconfig:"RABBITMQ_URL"`
		DedupeTTL time.Duration `envconfig:"NOTIFY_DEDUPE_TTL" default:"6h"`
	} `envconfig:""`

	Queues struct {
		Notifications string `envconfig:"NOTIFY_QUEUE_KEY" default:"boss_notifications"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	cfg, err := Process()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Process загружает конфиг из окружения и возвращает ошибку вместо завершения процесса.
func Process() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}
