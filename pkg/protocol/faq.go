package protocol

// FAQEntry is a stored question/answer pair used for query matching.
// Keywords are lower-cased tokens; uniqueness is not enforced.
type FAQEntry struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
}
