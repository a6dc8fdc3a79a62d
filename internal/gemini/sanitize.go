package gemini

import (
	"regexp"
	"strings"
)

var (
	// (Note: ...) or [Note: ...] anywhere in the text
	enclosedNote = regexp.MustCompile(`(?is)[\(\[]\s*(note|disclaimer|注意|注)\s*[:：][^\)\]]*[\)\]]`)
	// a whole line starting with "Note:"
	lineNote = regexp.MustCompile(`(?im)^\s*\**\s*(note|disclaimer|注意|注)\s*\**\s*[:：].*$`)
	spaces   = regexp.MustCompile(`[ \t]{2,}`)
	blank    = regexp.MustCompile(`\n{3,}`)
)

// SanitizeAIText strips model disclaimers such as "(Note: this is a machine
// translation...)" and tidies the whitespace they leave behind.
func SanitizeAIText(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = enclosedNote.ReplaceAllString(s, "")
	s = lineNote.ReplaceAllString(s, "")
	s = spaces.ReplaceAllString(s, " ")
	s = blank.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
