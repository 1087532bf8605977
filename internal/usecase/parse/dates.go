package parse

import (
	"fmt"
	"time"
)

// минг-год = западный год - 1911
const eraOffset = 1911

var weekdayLabels = [7]string{"日", "一", "二", "三", "四", "五", "六"}

// ResolveDate переводит дату «год Миньго + месяц/день» в обычную календарную дату.
// Переполнение дня месяца не проверяется: 4/31 нормализуется в 5/1,
// как это делает конструктор даты самой платформы.
func ResolveDate(eraYear, month, day int, loc *time.Location) time.Time {
	return time.Date(eraYear+eraOffset, time.Month(month), day, 0, 0, 0, 0, loc)
}

// CurrentEraYear возвращает текущий год Миньго.
func CurrentEraYear(now time.Time) int {
	return now.Year() - eraOffset
}

// NextWeekRange возвращает диапазон следующей недели: воскресенье 00:00 —
// суббота 23:59:59.999999999. Диапазон всегда лежит строго в следующей
// календарной неделе, в какой бы день его ни запросили.
func NextWeekRange(now time.Time) (time.Time, time.Time) {
	today := StartOfDay(now)
	start := today.AddDate(0, 0, 7-int(now.Weekday()))
	end := start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	return start, end
}

// StartOfDay обнуляет время внутри суток.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WeekdayLabel возвращает односимвольную метку дня недели (0 = 日).
func WeekdayLabel(d time.Weekday) string {
	return weekdayLabels[int(d)]
}

// FormatDate отображает дату как «M/D(週)»; день недели пересчитывается
// из самой даты, а не берётся из текста объявления.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d/%d(%s)", int(t.Month()), t.Day(), WeekdayLabel(t.Weekday()))
}

// FormatMonthDay отображает дату как «M/D».
func FormatMonthDay(t time.Time) string {
	return fmt.Sprintf("%d/%d", int(t.Month()), t.Day())
}
