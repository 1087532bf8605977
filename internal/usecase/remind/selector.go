package remind

import (
	"time"

	"line-shift-bot/internal/domain"
	"line-shift-bot/internal/usecase/parse"
)

// SelectInWindow возвращает события, чья дата попадает в диапазон
// включительно с обеих сторон. Исходный порядок событий сохраняется,
// пересортировки по дате нет.
func SelectInWindow(events []domain.ScheduleEvent, start, end time.Time) []domain.ScheduleEvent {
	var selected []domain.ScheduleEvent
	for _, event := range events {
		if event.Date.Before(start) || event.Date.After(end) {
			continue
		}
		selected = append(selected, event)
	}
	return selected
}

// SelectUpcoming возвращает все события начиная с сегодняшнего дня,
// без верхней границы. Используется тестовой командой, которая
// показывает всё оставшееся расписание, а не только следующую неделю.
func SelectUpcoming(events []domain.ScheduleEvent, now time.Time) []domain.ScheduleEvent {
	today := parse.StartOfDay(now)
	var selected []domain.ScheduleEvent
	for _, event := range events {
		if parse.StartOfDay(event.Date).Before(today) {
			continue
		}
		selected = append(selected, event)
	}
	return selected
}
