// Package format turns model-written text into Telegram-safe HTML.
package format

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	boldRe   = regexp.MustCompile(`\*\*([^*\n]+?)\*\*`)
	italicRe = regexp.MustCompile(`\*([^\s*][^*\n]*?)\*`)
	linkRe   = regexp.MustCompile(`\[([^\]\n]+)\]\((https?://[^\s)"<>]+)\)`)

	// Markup from step one is written with these private-use runes instead of
	// angle brackets so that escaping leaves it alone.
	tagOpen  = "\uE000"
	tagClose = "\uE001"

	sentinelStripper = strings.NewReplacer(tagOpen, "", tagClose, "")
	sentinelExpander = strings.NewReplacer(tagOpen, "<", tagClose, ">")

	htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

	noteLineRe      = regexp.MustCompile(`(?im)^\s*(?:\*\s*)?note\s*:.*$`)
	noteInlineRe    = regexp.MustCompile(`(?i)[(\[]\s*note\s*:[^)\]]*[)\]]`)
	blankRunRe      = regexp.MustCompile(`\n{3,}`)
	trailingSpaceRe = regexp.MustCompile(`[ \t]+\n`)

	tagRe = regexp.MustCompile(`<(/?)(b|i|a)(?:\s[^>]*)?>`)
)

// TelegramHTML converts **bold**, *italic* and [text](url) markup into the
// HTML subset Telegram accepts. Tags already present in the input, including
// <b> and <i>, stay escaped.
func TelegramHTML(raw string) string {
	if raw == "" {
		return ""
	}

	s := sentinelStripper.Replace(raw)
	s = linkRe.ReplaceAllString(s, tagOpen+`a href="$2"`+tagClose+"$1"+tagOpen+"/a"+tagClose)
	s = boldRe.ReplaceAllString(s, tagOpen+"b"+tagClose+"$1"+tagOpen+"/b"+tagClose)
	s = italicRe.ReplaceAllString(s, tagOpen+"i"+tagClose+"$1"+tagOpen+"/i"+tagClose)

	s = htmlEscaper.Replace(s)

	return sentinelExpander.Replace(s)
}

// Escape escapes text for use inside Telegram HTML, including attribute values.
func Escape(s string) string {
	return attrEscaper.Replace(s)
}

// SanitizeAIText removes model disclaimers and squeezes blank lines.
func SanitizeAIText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = noteInlineRe.ReplaceAllString(s, "")
	s = noteLineRe.ReplaceAllString(s, "")
	s = trailingSpaceRe.ReplaceAllString(s, "\n")
	s = blankRunRe.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimLeft(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// TruncateHTML shortens s to at most limit runes, appending marker. It never
// cuts inside a tag or an entity and closes any b/i/a tag left open.
func TruncateHTML(s string, limit int, marker string) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	markerLen := utf8.RuneCountInString(marker)
	if limit <= markerLen {
		return string([]rune(marker)[:max(limit, 0)])
	}

	runes := []rune(s)
	n := limit - markerLen
	for n > 0 {
		cut := trimPartialMarkup(string(runes[:n]))
		out := strings.TrimRight(cut, " \t\n") + marker + closeOpenTags(cut)
		over := utf8.RuneCountInString(out) - limit
		if over <= 0 {
			return out
		}
		n -= over
	}
	return marker
}

func trimPartialMarkup(s string) string {
	if lt := strings.LastIndex(s, "<"); lt > strings.LastIndex(s, ">") {
		s = s[:lt]
	}
	if amp := strings.LastIndex(s, "&"); amp >= 0 && amp > strings.LastIndex(s, ";") && len(s)-amp <= 8 {
		s = s[:amp]
	}
	return s
}

func closeOpenTags(s string) string {
	var open []string
	for _, m := range tagRe.FindAllStringSubmatch(s, -1) {
		name := m[2]
		if m[1] == "" {
			open = append(open, name)
			continue
		}
		for i := len(open) - 1; i >= 0; i-- {
			if open[i] == name {
				open = append(open[:i], open[i+1:]...)
				break
			}
		}
	}

	var b strings.Builder
	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString("</" + open[i] + ">")
	}
	return b.String()
}
