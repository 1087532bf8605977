package remind

import (
	"strings"

	"line-shift-bot/internal/domain"
	"line-shift-bot/internal/usecase/parse"
)

const (
	noEventsMessage      = "📅 下週沒有安排活動"
	unstaffedPlaceholder = "（尚未安排）"
)

// FormatBroadcast собирает групповое напоминание. Для каждого события
// выводится дата с пересчитанным днём недели, тип активности и список
// дежурных; к привязанным именам добавляется имя аккаунта LINE.
func FormatBroadcast(events []domain.ScheduleEvent, bindings map[string]domain.UserBinding) string {
	if len(events) == 0 {
		return noEventsMessage
	}

	lines := []string{"📢 下週活動提醒：", ""}
	for _, event := range events {
		lines = append(lines, "🔸 "+parse.FormatDate(event.Date)+" "+event.Type)
		lines = append(lines, "   負責人："+formatVolunteers(event.Volunteers, bindings))
		lines = append(lines, "")
	}
	lines = append(lines, "請相關人員記得出席！🙏")

	return strings.Join(lines, "\n")
}

func formatVolunteers(volunteers []string, bindings map[string]domain.UserBinding) string {
	if len(volunteers) == 0 {
		return unstaffedPlaceholder
	}
	labeled := make([]string, 0, len(volunteers))
	for _, name := range volunteers {
		if binding, ok := bindings[name]; ok {
			labeled = append(labeled, name+"（"+binding.UserName+"）")
			continue
		}
		labeled = append(labeled, name)
	}
	return strings.Join(labeled, "、")
}

// FormatPrivate собирает личное напоминание со списком смен получателя.
func FormatPrivate(shifts []domain.Shift) string {
	lines := []string{"📢 提醒您下週有排班：", ""}
	for _, shift := range shifts {
		lines = append(lines, "🔸 "+parse.FormatDate(shift.Date)+" "+shift.Type)
	}
	lines = append(lines, "", "請記得出席！🙏")
	return strings.Join(lines, "\n")
}
