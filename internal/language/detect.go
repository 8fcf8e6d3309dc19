// Package language derives a chat's language tag from its user messages.
// The tag is advisory only; the worker receives the raw question text.
package language

import (
	"strings"
	"unicode"

	"github.com/agrilok/crop-assist/internal/domain"
)

// Supported language tags
const (
	Telugu  = "te"
	Hindi   = "hi"
	English = "en"
)

// Detect classifies text by counting letters per script. The script with the
// most letters wins; ties and empty input fall back to English.
func Detect(text string) string {
	var telugu, hindi, english int

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Telugu, r):
			telugu++
		case unicode.Is(unicode.Devanagari, r):
			hindi++
		case (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z'):
			english++
		}
	}

	if telugu+hindi+english == 0 {
		return English
	}
	if telugu > hindi && telugu > english {
		return Telugu
	}
	if hindi > telugu && hindi > english {
		return Hindi
	}
	return English
}

// DetectFromMessages concatenates user-sent message content and detects the
// dominant script. Placeholder image messages carry no script signal but are
// harmless to include.
func DetectFromMessages(messages []domain.Message) string {
	if len(messages) == 0 {
		return English
	}

	var b strings.Builder
	for _, m := range messages {
		if m.Sender != domain.SenderUser {
			continue
		}
		b.WriteString(m.Content)
		b.WriteByte(' ')
	}
	return Detect(b.String())
}
