package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"line-shift-bot/internal/domain"
)

var (
	yearRe      = regexp.MustCompile(`(\d+)年`)
	separatorRe = regexp.MustCompile(`^-{3,}$`)
	datePrefix  = regexp.MustCompile(`^\d{1,2}/\d{1,2}`)
	// месяц/день(день недели)тип активности: список дежурных
	eventLineRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})\(([日一二三四五六])\)(.+?)[:：]\s*(.*)$`)
	dateMarkRe  = regexp.MustCompile(`\d{1,2}/\d{1,2}\([日一二三四五六]\)`)
)

// ParseScheduleMessage разбирает многострочное объявление о расписании.
// Возвращает nil, если текст не похож на расписание: меньше трёх
// непустых строк или ни одной распознанной строки события.
func ParseScheduleMessage(message, groupID, createdBy string, now time.Time, loc *time.Location) *domain.Schedule {
	var lines []string
	for _, raw := range strings.Split(message, "\n") {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) < 3 {
		return nil
	}

	title := lines[0]
	year := CurrentEraYear(now)
	if m := yearRe.FindStringSubmatch(title); m != nil {
		year, _ = strconv.Atoi(m[1])
	}

	// строки событий начинаются после разделителя, а при его отсутствии —
	// с первой строки, похожей на дату
	eventLines := lines
	found := false
	for i, line := range lines {
		if separatorRe.MatchString(line) {
			eventLines = lines[i+1:]
			found = true
			break
		}
	}
	if !found {
		idx := -1
		for i, line := range lines {
			if datePrefix.MatchString(line) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil
		}
		eventLines = lines[idx:]
	}

	var events []domain.ScheduleEvent
	for _, line := range eventLines {
		// нераспознанные строки пропускаются: объявления перемежают
		// события пояснительным текстом
		if event, ok := parseEventLine(line, year, loc); ok {
			events = append(events, event)
		}
	}
	if len(events) == 0 {
		return nil
	}

	return &domain.Schedule{
		GroupID:    groupID,
		Title:      title,
		Year:       year,
		Events:     events,
		RawMessage: message,
		CreatedAt:  now,
		UpdatedAt:  now,
		CreatedBy:  createdBy,
	}
}

func parseEventLine(line string, eraYear int, loc *time.Location) (domain.ScheduleEvent, bool) {
	m := eventLineRe.FindStringSubmatch(line)
	if m == nil {
		return domain.ScheduleEvent{}, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])

	return domain.ScheduleEvent{
		Date:       ResolveDate(eraYear, month, day, loc),
		DayOfWeek:  m[3],
		Type:       strings.TrimSpace(m[4]),
		Volunteers: splitVolunteers(m[5]),
		RawText:    line,
	}, true
}

// splitVolunteers режет список дежурных по「、」, запятым и пробелам,
// сохраняя порядок и отбрасывая пустые токены.
func splitVolunteers(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		switch r {
		case '、', ',', '，':
			return true
		default:
			return unicode.IsSpace(r)
		}
	})
}

// IsScheduleMessage грубо проверяет, похоже ли сообщение на объявление:
// есть дата вида «M/D(週)» и двоеточие после типа активности.
func IsScheduleMessage(message string) bool {
	loc := dateMarkRe.FindStringIndex(message)
	if loc == nil {
		return false
	}
	return strings.ContainsAny(message[loc[1]:], ":：")
}
