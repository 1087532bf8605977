package remind

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"line-shift-bot/internal/domain"
	"line-shift-bot/internal/infra/metrics"
	"line-shift-bot/internal/usecase/parse"
)

var (
	// ErrNoSchedule возвращается, когда у группы ещё нет расписания.
	ErrNoSchedule = errors.New("группа не имеет расписания")
	// ErrNoUpcomingEvents возвращается, когда все события уже в прошлом.
	ErrNoUpcomingEvents = errors.New("нет предстоящих событий")
)

// FanoutReport — итог рассылки по всем группам.
type FanoutReport struct {
	GroupsProcessed int      `json:"groupsProcessed"`
	Errors          []string `json:"errors"`
}

// Success сообщает, завершилась ли рассылка без ошибок.
func (r FanoutReport) Success() bool {
	return len(r.Errors) == 0
}

// Service отвечает за выбор событий и доставку напоминаний.
type Service struct {
	schedules domain.ScheduleRepo
	bindings  domain.BindingRepo
	groups    domain.GroupRepo
	messenger domain.Messenger
	log       zerolog.Logger
}

// NewService создаёт сервис напоминаний.
func NewService(schedules domain.ScheduleRepo, bindings domain.BindingRepo, groups domain.GroupRepo, messenger domain.Messenger, log zerolog.Logger) *Service {
	return &Service{
		schedules: schedules,
		bindings:  bindings,
		groups:    groups,
		messenger: messenger,
		log:       log,
	}
}

// SendWeeklyReminders рассылает напоминания о следующей неделе во все
// известные группы. Ошибка одной группы не прерывает обработку остальных:
// ошибки накапливаются в отчёте.
func (s *Service) SendWeeklyReminders(ctx context.Context, now time.Time) FanoutReport {
	var report FanoutReport

	groups, err := s.groups.GetAllGroups(ctx)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("list groups: %v", err))
		return report
	}

	start, end := parse.NextWeekRange(now)
	s.log.Info().
		Int("groups", len(groups)).
		Time("window_start", start).
		Time("window_end", end).
		Msg("remind: еженедельная рассылка")

	for _, group := range groups {
		if err := s.RemindGroup(ctx, group.GroupID, start, end); err != nil {
			s.log.Error().Err(err).Str("group", group.GroupID).Msg("remind: группа не обработана")
			report.Errors = append(report.Errors, fmt.Sprintf("group %s: %v", group.GroupID, err))
			continue
		}
		report.GroupsProcessed++
	}
	return report
}

// RemindGroup отправляет одной группе напоминание о событиях в диапазоне
// и личные сообщения привязанным дежурным. Группа без расписания или без
// событий в диапазоне молча пропускается.
func (s *Service) RemindGroup(ctx context.Context, groupID string, start, end time.Time) error {
	schedule, err := s.schedules.GetLatestSchedule(ctx, groupID)
	if err != nil {
		return fmt.Errorf("get schedule: %w", err)
	}
	if schedule == nil {
		s.log.Debug().Str("group", groupID).Msg("remind: расписания нет, пропускаем")
		return nil
	}

	events := SelectInWindow(schedule.Events, start, end)
	if len(events) == 0 {
		s.log.Debug().Str("group", groupID).Msg("remind: событий в диапазоне нет")
		return nil
	}

	bindings, err := s.lookupBindings(ctx, groupID, events)
	if err != nil {
		return err
	}

	if err := s.messenger.PushText(ctx, groupID, FormatBroadcast(events, bindings)); err != nil {
		metrics.IncBroadcastError()
		return fmt.Errorf("push broadcast: %w", err)
	}
	metrics.IncReminderOverall()
	metrics.IncReminderForGroup(groupID)

	s.sendPrivateReminders(ctx, events, bindings)
	return nil
}

// TestReminder строит тестовое напоминание по всем непрошедшим событиям
// и рассылает личные сообщения так же, как боевая рассылка.
func (s *Service) TestReminder(ctx context.Context, groupID string, now time.Time) (string, error) {
	schedule, err := s.schedules.GetLatestSchedule(ctx, groupID)
	if err != nil {
		return "", fmt.Errorf("get schedule: %w", err)
	}
	if schedule == nil {
		return "", ErrNoSchedule
	}

	events := SelectUpcoming(schedule.Events, now)
	if len(events) == 0 {
		return "", ErrNoUpcomingEvents
	}

	bindings, err := s.lookupBindings(ctx, groupID, events)
	if err != nil {
		return "", err
	}

	text := fmt.Sprintf("🧪 【測試提醒】\n\n%s\n\n---\n共 %d 場活動", FormatBroadcast(events, bindings), len(events))

	if len(bindings) > 0 {
		s.sendPrivateReminders(ctx, events, bindings)
	}
	return text, nil
}

// ProductionDateTest показывает боевой диапазон следующей недели и события
// в нём; личные сообщения уходят как при настоящей рассылке.
func (s *Service) ProductionDateTest(ctx context.Context, groupID string, now time.Time) (string, error) {
	schedule, err := s.schedules.GetLatestSchedule(ctx, groupID)
	if err != nil {
		return "", fmt.Errorf("get schedule: %w", err)
	}
	if schedule == nil {
		return "", ErrNoSchedule
	}

	start, end := parse.NextWeekRange(now)
	events := SelectInWindow(schedule.Events, start, end)

	rangeLine := parse.FormatMonthDay(start) + " ~ " + parse.FormatMonthDay(end)
	todayLine := parse.FormatDate(now)

	if len(events) == 0 {
		return strings.Join([]string{
			"📅 【正式日期測試】",
			"",
			"📍 今天：" + todayLine,
			"📍 查詢範圍：" + rangeLine,
			"",
			"⚠️ 這個範圍內沒有活動",
		}, "\n"), nil
	}

	bindings, err := s.lookupBindings(ctx, groupID, events)
	if err != nil {
		return "", err
	}

	text := strings.Join([]string{
		"📅 【正式日期測試】",
		"",
		"📍 今天：" + todayLine,
		"📍 查詢範圍：" + rangeLine,
		fmt.Sprintf("📍 活動數量：%d 場", len(events)),
		"",
		FormatBroadcast(events, bindings),
	}, "\n")

	if len(bindings) > 0 {
		s.sendPrivateReminders(ctx, events, bindings)
	}
	return text, nil
}

func (s *Service) lookupBindings(ctx context.Context, groupID string, events []domain.ScheduleEvent) (map[string]domain.UserBinding, error) {
	names := CollectVolunteers(events)
	if len(names) == 0 {
		return map[string]domain.UserBinding{}, nil
	}
	bindings, err := s.bindings.GetBindingsForNames(ctx, groupID, names)
	if err != nil {
		return nil, fmt.Errorf("get bindings: %w", err)
	}
	return bindings, nil
}

// sendPrivateReminders шлёт каждому привязанному дежурному его список смен.
// Неудачная доставка одному получателю (например, бот не в друзьях)
// логируется и не влияет на остальных.
func (s *Service) sendPrivateReminders(ctx context.Context, events []domain.ScheduleEvent, bindings map[string]domain.UserBinding) {
	for userID, shifts := range GroupByRecipient(events, bindings) {
		if err := s.messenger.PushText(ctx, userID, FormatPrivate(shifts)); err != nil {
			s.log.Info().Err(err).Str("user", userID).Msg("remind: личное сообщение не доставлено")
			continue
		}
		s.log.Debug().Str("user", userID).Msg("remind: личное напоминание отправлено")
	}
}
