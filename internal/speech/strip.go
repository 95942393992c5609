package speech

import "regexp"

// Formatting markers are stripped before vocalizing so the synthesizer
// doesn't read asterisks and link targets aloud.
var (
	reBold    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	reItalic  = regexp.MustCompile(`\*(.*?)\*`)
	reHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reLink    = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	reCode    = regexp.MustCompile("[`~]")
)

// StripMarkup removes bold/italic markers, heading markers, link syntax,
// and code markers from text, keeping the readable content.
func StripMarkup(text string) string {
	text = reBold.ReplaceAllString(text, "$1")
	text = reItalic.ReplaceAllString(text, "$1")
	text = reHeading.ReplaceAllString(text, "")
	text = reLink.ReplaceAllString(text, "$1")
	text = reCode.ReplaceAllString(text, "")
	return text
}
