package telegram

import (
	"regexp"
	"strings"
)

var (
	// Bold before italic so ** isn't eaten by the single-star rule.
	reInlineCode = regexp.MustCompile("`([^`]+)`")
	reBold       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reItalic     = regexp.MustCompile(`\*(.+?)\*`)
	reLink       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// MarkdownToTelegramHTML converts the Markdown subset the helpdesk
// emits (bold department names, occasional links and code spans) to
// Telegram's HTML parse mode.
func MarkdownToTelegramHTML(md string) string {
	// Protect inline code spans before escaping.
	type codeSpan struct {
		placeholder string
		html        string
	}
	var spans []codeSpan
	counter := 0

	out := reInlineCode.ReplaceAllStringFunc(md, func(match string) string {
		inner := reInlineCode.FindStringSubmatch(match)[1]
		placeholder := "\x00CODE" + string(rune('A'+counter)) + "\x00"
		counter++
		spans = append(spans, codeSpan{
			placeholder: placeholder,
			html:        "<code>" + escapeHTML(inner) + "</code>",
		})
		return placeholder
	})

	out = escapeHTML(out)
	out = reBold.ReplaceAllString(out, "<b>$1</b>")
	out = reItalic.ReplaceAllString(out, "<i>$1</i>")
	out = reLink.ReplaceAllString(out, `<a href="$2">$1</a>`)

	for _, s := range spans {
		out = strings.Replace(out, escapeHTML(s.placeholder), s.html, 1)
	}
	return out
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// StripMarkdown removes formatting entirely, used as the fallback when
// Telegram rejects the HTML rendering.
func StripMarkdown(md string) string {
	out := reInlineCode.ReplaceAllString(md, "$1")
	out = reBold.ReplaceAllString(out, "$1")
	out = reItalic.ReplaceAllString(out, "$1")
	out = reLink.ReplaceAllString(out, "$1 ($2)")
	return out
}
