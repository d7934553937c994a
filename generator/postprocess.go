package generator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	fenceRe   = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\n(.*?)\n?```$")
	subjectRe = regexp.MustCompile(`(?im)^\s*\**subject\**\s*:\s*(.+)$`)
)

// CleanDraft trims model output down to the message itself.
func CleanDraft(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(text); len(m) == 2 {
		text = strings.TrimSpace(m[1])
	}
	if text == "" {
		return "", errors.New("model returned empty message")
	}
	return text, nil
}

// SplitSubject separates the subject line from the rest of the email.
func SplitSubject(content string) (subject, body string) {
	loc := subjectRe.FindStringSubmatchIndex(content)
	if loc == nil {
		return "", strings.TrimSpace(content)
	}
	subject = strings.TrimSpace(content[loc[2]:loc[3]])
	body = strings.TrimSpace(content[:loc[0]] + content[loc[1]:])
	return subject, body
}

// Preview compacts whitespace and cuts the text to at most limit runes.
func Preview(content string, limit int) string {
	joined := strings.Join(strings.Fields(content), " ")
	r := []rune(joined)
	if len(r) <= limit {
		return joined
	}
	return string(r[:limit])
}
