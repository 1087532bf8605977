package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReminderCause описывает источник задачи напоминания.
type ReminderCause string

const (
	// ReminderCauseScheduled — еженедельный запуск по расписанию.
	ReminderCauseScheduled ReminderCause = "scheduled"
	// ReminderCauseManual — запуск через HTTP-триггер.
	ReminderCauseManual ReminderCause = "manual"
)

// ReminderJob содержит задачу рассылки напоминаний одной группе.
type ReminderJob struct {
	ID          string        `json:"job_id"`
	GroupID     string        `json:"group_id"`
	WindowStart time.Time     `json:"window_start"`
	WindowEnd   time.Time     `json:"window_end"`
	RequestedAt time.Time     `json:"requested_at"`
	Cause       ReminderCause `json:"cause"`
}

// NewReminderJob создаёт задачу с уникальным идентификатором.
func NewReminderJob(groupID string, start, end time.Time, cause ReminderCause) ReminderJob {
	return ReminderJob{
		ID:          uuid.NewString(),
		GroupID:     groupID,
		WindowStart: start,
		WindowEnd:   end,
		RequestedAt: time.Now().UTC(),
		Cause:       cause,
	}
}

// ReminderQueue описывает очередь задач напоминаний.
type ReminderQueue interface {
	Enqueue(ctx context.Context, job ReminderJob) error
	Pop(ctx context.Context) (ReminderJob, error)
}
