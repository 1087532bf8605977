package remind

import (
	"testing"
	"time"

	"line-shift-bot/internal/domain"
)

func TestSelectInWindowInclusiveBounds(t *testing.T) {
	start := date(2026, 1, 4)
	end := date(2026, 1, 10).Add(24*time.Hour - time.Nanosecond)

	events := []domain.ScheduleEvent{
		{Date: date(2026, 1, 3), Type: "до"},
		{Date: date(2026, 1, 4), Type: "граница-начало"},
		{Date: date(2026, 1, 7), Type: "внутри"},
		{Date: date(2026, 1, 10), Type: "граница-конец"},
		{Date: date(2026, 1, 11), Type: "после"},
	}

	selected := SelectInWindow(events, start, end)
	if len(selected) != 3 {
		t.Fatalf("выбрано %d событий, ожидали 3", len(selected))
	}
	if selected[0].Type != "граница-начало" || selected[2].Type != "граница-конец" {
		t.Fatalf("границы диапазона должны включаться: %+v", selected)
	}
}

func TestSelectInWindowPreservesOrder(t *testing.T) {
	start := date(2026, 1, 1)
	end := date(2026, 2, 1)
	events := []domain.ScheduleEvent{
		{Date: date(2026, 1, 11), Type: "второе"},
		{Date: date(2026, 1, 4), Type: "первое"},
	}

	once := SelectInWindow(events, start, end)
	twice := SelectInWindow(once, start, end)
	if len(twice) != 2 || twice[0].Type != "второе" || twice[1].Type != "первое" {
		t.Fatalf("порядок исходного списка должен сохраняться: %+v", twice)
	}
}

func TestSelectUpcoming(t *testing.T) {
	now := time.Date(2026, 1, 7, 15, 30, 0, 0, time.UTC)
	events := []domain.ScheduleEvent{
		{Date: date(2026, 1, 4), Type: "прошло"},
		{Date: date(2026, 1, 7), Type: "сегодня"},
		{Date: date(2026, 3, 1), Type: "далеко"},
	}

	selected := SelectUpcoming(events, now)
	if len(selected) != 2 {
		t.Fatalf("выбрано %d событий, ожидали 2", len(selected))
	}
	if selected[0].Type != "сегодня" {
		t.Fatalf("событие сегодняшнего дня должно включаться: %+v", selected)
	}
}

func TestGroupByRecipient(t *testing.T) {
	events := []domain.ScheduleEvent{
		{Date: date(2026, 1, 4), Type: "共修", Volunteers: []string{"user1", "user2"}},
		{Date: date(2026, 1, 11), Type: "法會", Volunteers: []string{"user1"}},
	}
	bindings := map[string]domain.UserBinding{
		"user1": {DisplayName: "user1", UserID: "U1"},
	}

	shifts := GroupByRecipient(events, bindings)
	if len(shifts) != 1 {
		t.Fatalf("получателей %d, ожидали 1", len(shifts))
	}
	if got := shifts["U1"]; len(got) != 2 || got[0].Type != "共修" || got[1].Type != "法會" {
		t.Fatalf("смены получателя U1: %+v", got)
	}
}

func TestCollectVolunteersDistinctOrdered(t *testing.T) {
	events := []domain.ScheduleEvent{
		{Volunteers: []string{"user2", "user1"}},
		{Volunteers: []string{"user1", "user3"}},
	}
	names := CollectVolunteers(events)
	if len(names) != 3 || names[0] != "user2" || names[1] != "user1" || names[2] != "user3" {
		t.Fatalf("имена %v, ожидали [user2 user1 user3]", names)
	}
}
