package line

import (
	"strings"
	"testing"
)

func TestSplitMessageShort(t *testing.T) {
	parts := SplitMessage("привет")
	if len(parts) != 1 || parts[0] != "привет" {
		t.Fatalf("короткий текст не должен резаться: %v", parts)
	}
}

func TestSplitMessageEmpty(t *testing.T) {
	if parts := SplitMessage("   \n  "); parts != nil {
		t.Fatalf("пустой текст даёт nil, получили %v", parts)
	}
}

func TestSplitMessagePrefersNewlines(t *testing.T) {
	line := strings.Repeat("а", 1200)
	text := strings.Join([]string{line, line, line, line, line}, "\n")

	parts := SplitMessage(text)
	if len(parts) < 2 {
		t.Fatalf("длинный текст должен резаться: %d частей", len(parts))
	}
	for i, part := range parts {
		if runeLen := len([]rune(part)); runeLen > messageLimit {
			t.Fatalf("часть %d длиной %d превышает лимит", i, runeLen)
		}
		if strings.HasPrefix(part, "\n") || strings.HasSuffix(part, "\n") {
			t.Fatalf("часть %d не обрезана по переводам строк: %q", i, part[:20])
		}
	}

	joined := strings.ReplaceAll(strings.Join(parts, ""), "\n", "")
	if len([]rune(joined)) != 5*1200 {
		t.Fatalf("при разбиении потерялся текст: %d рун", len([]rune(joined)))
	}
}

func TestSplitMessageHardBreakWithoutNewlines(t *testing.T) {
	text := strings.Repeat("б", messageLimit+100)
	parts := SplitMessage(text)
	if len(parts) != 2 {
		t.Fatalf("ожидали 2 части, получили %d", len(parts))
	}
	if len([]rune(parts[0])) != messageLimit {
		t.Fatalf("первая часть длиной %d, ожидали %d", len([]rune(parts[0])), messageLimit)
	}
	if len([]rune(parts[1])) != 100 {
		t.Fatalf("вторая часть длиной %d, ожидали 100", len([]rune(parts[1])))
	}
}
