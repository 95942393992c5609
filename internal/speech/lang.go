package speech

// Language tags resolved by script detection.
const (
	LangEnglish = "en-US"
	LangHindi   = "hi-IN"
)

// DetectLanguage classifies a transcript's dominant script by counting
// Devanagari characters against Latin letters. Majority wins; ties
// (including empty or all-symbol text) default to English.
func DetectLanguage(text string) string {
	var latin, devanagari int
	for _, r := range text {
		switch {
		case r >= 0x0900 && r <= 0x097F:
			devanagari++
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			latin++
		}
	}
	if devanagari > latin {
		return LangHindi
	}
	return LangEnglish
}

// baseLang reduces a BCP 47 tag to its primary subtag ("en-US" → "en"),
// the form transcription backends expect as a language hint.
func baseLang(tag string) string {
	for i := 0; i < len(tag); i++ {
		if tag[i] == '-' {
			return tag[:i]
		}
	}
	return tag
}
