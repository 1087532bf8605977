package parse

import (
	"sort"
	"strings"

	"line-shift-bot/internal/domain"
)

// commandLexicon сопоставляет синонимы (китайский + английский алиас)
// каноническим типам команд.
var commandLexicon = map[string]domain.CommandType{
	"綁定":     domain.CommandBind,
	"bind":   domain.CommandBind,
	"解綁":     domain.CommandUnbind,
	"unbind": domain.CommandUnbind,
	"查詢":     domain.CommandQuery,
	"query":  domain.CommandQuery,
	"列表":     domain.CommandList,
	"list":   domain.CommandList,
	"幫助":     domain.CommandHelp,
	"help":   domain.CommandHelp,
	"測試提醒":   domain.CommandTestReminder,
	"test":   domain.CommandTestReminder,
	"正式日期測試": domain.CommandProductionDateTest,
	"prodtest": domain.CommandProductionDateTest,
	"用量":     domain.CommandQuota,
	"quota":  domain.CommandQuota,
}

// lexiconByLength — ключи лексикона от длинных к коротким, чтобы короткий
// синоним не затенял более длинный с тем же префиксом.
var lexiconByLength = func() []string {
	keys := make([]string, 0, len(commandLexicon))
	for key := range commandLexicon {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// ParseCommand распознаёт команду в сообщении. Возвращает nil, если
// сообщение не начинается с «!»/«！» или первый токен не из лексикона.
func ParseCommand(message string) *domain.ParsedCommand {
	trimmed := strings.TrimSpace(message)

	var content string
	switch {
	case strings.HasPrefix(trimmed, "!"):
		content = strings.TrimPrefix(trimmed, "!")
	case strings.HasPrefix(trimmed, "！"):
		content = strings.TrimPrefix(trimmed, "！")
	default:
		return nil
	}

	parts := strings.Fields(strings.TrimSpace(content))
	if len(parts) == 0 {
		return nil
	}

	head := parts[0]
	args := parts[1:]

	if commandType, ok := commandLexicon[head]; ok {
		return &domain.ParsedCommand{Type: commandType, Args: args, RawText: message}
	}

	// команда и аргумент могут быть написаны слитно: «!綁定user1»
	for _, key := range lexiconByLength {
		if !strings.HasPrefix(head, key) {
			continue
		}
		if rest := head[len(key):]; rest != "" {
			args = append([]string{rest}, args...)
		}
		return &domain.ParsedCommand{Type: commandLexicon[key], Args: args, RawText: message}
	}

	return nil
}
