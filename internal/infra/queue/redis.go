package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"line-shift-bot/internal/domain"
)

// RedisReminderQueue реализует очередь задач на базе Redis lists.
type RedisReminderQueue struct {
	client *redis.Client
	key    string
}

// NewRedisReminderQueue создаёт очередь по указанному ключу.
func NewRedisReminderQueue(client *redis.Client, key string) *RedisReminderQueue {
	return &RedisReminderQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisReminderQueue) Enqueue(ctx context.Context, job domain.ReminderJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *RedisReminderQueue) Pop(ctx context.Context) (domain.ReminderJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.ReminderJob{}, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.ReminderJob{}, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.ReminderJob{}, err
		}
		if len(res) != 2 {
			return domain.ReminderJob{}, errors.New("redis queue: unexpected response")
		}
		var job domain.ReminderJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return domain.ReminderJob{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}
