package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"Asia/Taipei"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Line struct {
		ChannelSecret string `envconfig:"LINE_CHANNEL_SECRET"`
		ChannelToken  string `envconfig:"LINE_CHANNEL_ACCESS_TOKEN"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	RabbitURL string `envconfig:"RABBITMQ_URL"`

	Queues struct {
		Driver   string `envconfig:"QUEUE_DRIVER" default:"redis"`
		Reminder string `envconfig:"REMINDER_QUEUE_KEY" default:"reminder_jobs"`
	} `envconfig:""`

	Reminder struct {
		Weekday int `envconfig:"REMINDER_WEEKDAY" default:"6"`
		Hour    int `envconfig:"REMINDER_HOUR" default:"8"`
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
