package chat

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

const (
	titleMaxLen      = 50
	titleMinLen      = 10
	wordBoundaryMin  = 10
	quickChatMaxMsgs = 5
)

// conversationalPrefixes are stripped (at most one, case-insensitively)
// from the front of the first user message before it becomes a title.
var conversationalPrefixes = []string{
	"can you ",
	"could you ",
	"would you ",
	"please ",
	"how do i ",
	"how do you ",
	"how to ",
	"what is ",
	"what are ",
	"tell me about ",
	"help me ",
	"i want to ",
	"i need to ",
	"i'd like to ",
}

// GenerateTitle derives a human-readable session title from the first user
// message. It never fails and always returns a non-empty string.
func GenerateTitle(messages []Message) string {
	var first string
	found := false
	for _, m := range messages {
		if m.Role == RoleUser {
			first = m.Text
			found = true
			break
		}
	}
	if !found {
		return DefaultTitle
	}

	title := strings.TrimSpace(first)
	lower := strings.ToLower(title)
	for _, prefix := range conversationalPrefixes {
		if strings.HasPrefix(lower, prefix) {
			title = strings.TrimSpace(title[len(prefix):])
			break
		}
	}

	title = strings.TrimSpace(strings.TrimRight(title, ".!?"))
	title = capitalize(title)

	if runes := []rune(title); len(runes) > titleMaxLen {
		cut := string(runes[:titleMaxLen])
		if idx := strings.LastIndex(cut, " "); idx > wordBoundaryMin {
			cut = cut[:idx]
		}
		title = cut + "..."
	}

	if len([]rune(title)) < titleMinLen {
		return fallbackTitle(len(messages))
	}
	return title
}

// fallbackTitle covers degenerate first messages (empty after cleaning).
func fallbackTitle(messageCount int) string {
	switch {
	case messageCount <= 1:
		return "Chat at " + time.Now().Format("15:04")
	case messageCount <= quickChatMaxMsgs:
		return fmt.Sprintf("Quick Chat (%d messages)", messageCount)
	default:
		return fmt.Sprintf("Chat Session (%d messages)", messageCount)
	}
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
