package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	lineadapter "line-shift-bot/internal/adapters/line"
	"line-shift-bot/internal/adapters/repo"
	"line-shift-bot/internal/domain"
	"line-shift-bot/internal/infra/config"
	"line-shift-bot/internal/infra/db"
	applog "line-shift-bot/internal/infra/log"
	"line-shift-bot/internal/infra/metrics"
	"line-shift-bot/internal/infra/queue"
	"line-shift-bot/internal/usecase/remind"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	lineClient, err := lineadapter.NewClient(cfg.Line.ChannelSecret, cfg.Line.ChannelToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: не удалось создать клиента LINE")
	}

	reminderService := remind.NewService(repoAdapter, repoAdapter, repoAdapter, lineClient, logger.With().Str("component", "remind").Logger())

	var jobs domain.ReminderQueue
	switch cfg.Queues.Driver {
	case "rabbitmq":
		if cfg.RabbitURL == "" {
			logger.Fatal().Msg("worker: не указан адрес RabbitMQ (RABBITMQ_URL)")
		}
		amqpQueue, err := queue.NewAMQPReminderQueue(cfg.RabbitURL, cfg.Queues.Reminder)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: не удалось инициализировать очередь RabbitMQ")
		}
		defer amqpQueue.Close()
		jobs = amqpQueue
	default:
		if cfg.RedisAddr == "" {
			logger.Fatal().Msg("worker: не указан адрес Redis (REDIS_ADDR)")
		}
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		jobs = queue.NewRedisReminderQueue(redisClient, cfg.Queues.Reminder)
	}

	logger.Info().Str("queue", cfg.Queues.Reminder).Msg("worker: запуск обработки очереди")
	run(ctx, logger, jobs, reminderService)
	logger.Info().Msg("worker: остановлен")
}

func run(ctx context.Context, logger zerolog.Logger, jobs domain.ReminderQueue, service *remind.Service) {
	for {
		job, err := jobs.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error().Err(err).Msg("worker: ошибка чтения очереди")
			time.Sleep(time.Second)
			continue
		}

		jobLog := logger.With().
			Str("job_id", job.ID).
			Str("group", job.GroupID).
			Str("cause", string(job.Cause)).
			Logger()

		if job.GroupID == "" {
			jobLog.Error().Msg("worker: получена задача без группы, пропускаем")
			continue
		}

		if err := service.RemindGroup(ctx, job.GroupID, job.WindowStart, job.WindowEnd); err != nil {
			jobLog.Error().Err(err).Msg("worker: рассылка по группе не удалась")
			continue
		}
		jobLog.Info().Msg("worker: группа обработана")
	}
}
