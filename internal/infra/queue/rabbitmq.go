package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"line-shift-bot/internal/domain"
	"line-shift-bot/internal/infra/metrics"
)

const amqpPollInterval = time.Second

// AMQPReminderQueue реализует очередь задач поверх RabbitMQ.
type AMQPReminderQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewAMQPReminderQueue подключается к RabbitMQ и объявляет durable-очередь.
func NewAMQPReminderQueue(amqpURL, queue string) (*AMQPReminderQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &AMQPReminderQueue{conn: conn, ch: ch, queue: queue}, nil
}

// Enqueue публикует задачу в очередь.
func (q *AMQPReminderQueue) Enqueue(ctx context.Context, job domain.ReminderJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *AMQPReminderQueue) Pop(ctx context.Context) (domain.ReminderJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.ReminderJob{}, err
		}

		start := time.Now()
		delivery, ok, err := q.ch.Get(q.queue, false)
		metrics.ObserveNetworkRequest("rabbitmq", "get", q.queue, start, err)
		if err != nil {
			return domain.ReminderJob{}, fmt.Errorf("get message: %w", err)
		}
		if !ok {
			select {
			case <-ctx.Done():
				return domain.ReminderJob{}, ctx.Err()
			case <-time.After(amqpPollInterval):
			}
			continue
		}

		var job domain.ReminderJob
		if err := json.Unmarshal(delivery.Body, &job); err != nil {
			_ = delivery.Nack(false, false)
			return domain.ReminderJob{}, fmt.Errorf("decode job: %w", err)
		}
		if err := delivery.Ack(false); err != nil {
			return domain.ReminderJob{}, fmt.Errorf("ack message: %w", err)
		}
		return job, nil
	}
}

// Close освобождает канал и соединение.
func (q *AMQPReminderQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}
