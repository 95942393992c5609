package knowledge

import (
	"strings"

	"github.com/unibot-io/unibot/pkg/protocol"
)

// minTokenLen filters out short/common words that would otherwise inflate
// scores through the substring heuristic.
const minTokenLen = 3

// matchThreshold is the minimum score for a match to count. A single
// overlapping token is too weak a signal on its own.
const matchThreshold = 2

// Tokenize splits text on whitespace and lower-cases each token.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Match scores a free-text query against the corpus and returns the best
// entry, or nil when nothing clears the threshold.
//
// Each query token of length >= minTokenLen scores at most one point per
// entry: a point is awarded if the token contains, or is contained in,
// any of the entry's keywords or question tokens. Ties keep the
// first-seen highest scorer, so corpus order is significant. The
// bidirectional substring check tolerates plurals and partial word forms
// without exact vocabulary.
func Match(query string, corpus []protocol.FAQEntry) *protocol.FAQEntry {
	tokens := Tokenize(query)

	var best *protocol.FAQEntry
	bestScore := 0

	for i := range corpus {
		entry := &corpus[i]

		// Candidates obey the same length floor as query tokens; a
		// stray "i" or "my" from the question would otherwise match
		// inside nearly any word.
		candidates := make([]string, 0, len(entry.Keywords)+8)
		for _, kw := range entry.Keywords {
			if len(kw) >= minTokenLen {
				candidates = append(candidates, kw)
			}
		}
		for _, qt := range Tokenize(entry.Question) {
			if len(qt) >= minTokenLen {
				candidates = append(candidates, qt)
			}
		}

		score := 0
		for _, tok := range tokens {
			if len(tok) < minTokenLen {
				continue
			}
			for _, kw := range candidates {
				if strings.Contains(kw, tok) || strings.Contains(tok, kw) {
					score++
					break
				}
			}
		}

		if score > bestScore {
			bestScore = score
			best = entry
		}
	}

	if bestScore >= matchThreshold {
		return best
	}
	return nil
}
