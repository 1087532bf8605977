package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"line-shift-bot/internal/adapters/repo"
	"line-shift-bot/internal/domain"
	"line-shift-bot/internal/infra/cache"
	"line-shift-bot/internal/infra/config"
	"line-shift-bot/internal/infra/db"
	applog "line-shift-bot/internal/infra/log"
	"line-shift-bot/internal/infra/metrics"
	"line-shift-bot/internal/infra/queue"
	"line-shift-bot/internal/usecase/parse"
)

// дедупликация не даёт повторить рассылку при рестарте в тот же час
const dedupeTTL = 48 * time.Hour

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.TZ).Msg("scheduler: неизвестная таймзона")
	}

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	if cfg.RedisAddr == "" {
		logger.Fatal().Msg("scheduler: не указан адрес Redis (REDIS_ADDR)")
	}
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	dedupe := cache.NewRedis(redisClient)

	jobs := newReminderQueue(cfg, redisClient, logger)

	logger.Info().
		Int("weekday", cfg.Reminder.Weekday).
		Int("hour", cfg.Reminder.Hour).
		Str("tz", cfg.TZ).
		Msg("scheduler: запущен")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("scheduler: остановлен")
			return
		case <-ticker.C:
		}

		now := time.Now().In(loc)
		if int(now.Weekday()) != cfg.Reminder.Weekday || now.Hour() != cfg.Reminder.Hour {
			continue
		}

		enqueueReminders(ctx, logger, repoAdapter, dedupe, jobs, now)
	}
}

// enqueueReminders ставит по одной задаче на каждую известную группу.
// Ключ дедупликации привязан к началу окна, поэтому в течение часа
// запуска задача для группы ставится не более одного раза.
func enqueueReminders(ctx context.Context, logger zerolog.Logger, groups domain.GroupRepo, dedupe domain.Cache, jobs domain.ReminderQueue, now time.Time) {
	list, err := groups.GetAllGroups(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("scheduler: не удалось получить список групп")
		return
	}

	start, end := parse.NextWeekRange(now)
	for _, group := range list {
		key := fmt.Sprintf("reminder:%s:%s", group.GroupID, start.Format("2006-01-02"))
		err := dedupe.Once(key, dedupeTTL, func() error {
			job := domain.NewReminderJob(group.GroupID, start, end, domain.ReminderCauseScheduled)
			return jobs.Enqueue(ctx, job)
		})
		if err != nil {
			logger.Error().Err(err).Str("group", group.GroupID).Msg("scheduler: не удалось поставить задачу")
			continue
		}
		logger.Debug().Str("group", group.GroupID).Msg("scheduler: задача поставлена")
	}
}

func newReminderQueue(cfg config.AppConfig, redisClient *redis.Client, logger zerolog.Logger) domain.ReminderQueue {
	switch cfg.Queues.Driver {
	case "rabbitmq":
		if cfg.RabbitURL == "" {
			logger.Fatal().Msg("scheduler: не указан адрес RabbitMQ (RABBITMQ_URL)")
		}
		q, err := queue.NewAMQPReminderQueue(cfg.RabbitURL, cfg.Queues.Reminder)
		if err != nil {
			logger.Fatal().Err(err).Msg("scheduler: не удалось инициализировать очередь RabbitMQ")
		}
		return q
	default:
		return queue.NewRedisReminderQueue(redisClient, cfg.Queues.Reminder)
	}
}
