package remind

import (
	"line-shift-bot/internal/domain"
)

// CollectVolunteers собирает имена дежурных по всем событиям,
// сохраняя порядок первого появления и убирая дубликаты.
func CollectVolunteers(events []domain.ScheduleEvent) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, event := range events {
		for _, name := range event.Volunteers {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// GroupByRecipient превращает списки дежурных событий в личные списки смен:
// userID → смены в порядке появления в расписании. Имена без привязки
// просто не попадают в результат.
func GroupByRecipient(events []domain.ScheduleEvent, bindings map[string]domain.UserBinding) map[string][]domain.Shift {
	shifts := make(map[string][]domain.Shift)
	for _, event := range events {
		for _, name := range event.Volunteers {
			binding, ok := bindings[name]
			if !ok {
				continue
			}
			shifts[binding.UserID] = append(shifts[binding.UserID], domain.Shift{
				Date: event.Date,
				Type: event.Type,
			})
		}
	}
	return shifts
}
