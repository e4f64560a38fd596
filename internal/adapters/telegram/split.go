package telegram

import "strings"

// MessageLimit задаёт максимальную длину сообщения Telegram в символах.
const MessageLimit = 4096

// SplitMessage режет текст на сообщения не длиннее MessageLimit.
func SplitMessage(text string) []string {
	return Split(text, MessageLimit)
}

// Split собирает части из целых строк; строка длиннее limit режется посимвольно.
// Пустые строки на стыках частей отбрасываются.
func Split(text string, limit int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || limit <= 0 {
		return nil
	}
	if len([]rune(trimmed)) <= limit {
		return []string{trimmed}
	}

	var (
		parts []string
		cur   []rune
	)
	flush := func() {
		chunk := strings.Trim(string(cur), "\n")
		if chunk != "" {
			parts = append(parts, chunk)
		}
		cur = cur[:0]
	}
	for _, line := range strings.Split(trimmed, "\n") {
		runes := []rune(line)
		for len(runes) > limit {
			flush()
			parts = append(parts, string(runes[:limit]))
			runes = runes[limit:]
		}
		extra := len(runes)
		if len(cur) > 0 {
			extra++
		}
		if len(cur)+extra > limit {
			flush()
		}
		if len(cur) > 0 {
			cur = append(cur, '\n')
		}
		cur = append(cur, runes...)
	}
	flush()
	return parts
}
