package knowledge

import (
	"testing"

	"github.com/unibot-io/unibot/pkg/protocol"
)

var matchCorpus = []protocol.FAQEntry{
	{
		ID:       "faq-pay",
		Question: "How do I pay my fees online?",
		Answer:   "Use the portal.",
		Keywords: []string{"pay", "online", "payment", "finance", "bank", "card"},
	},
	{
		ID:       "faq-exam",
		Question: "When is the exam schedule released?",
		Answer:   "Four weeks before exams.",
		Keywords: []string{"exam", "schedule", "final", "midterm", "test", "examination"},
	},
}

func TestMatch_PayFees(t *testing.T) {
	got := Match("How do I pay my fees online?", matchCorpus)
	if got == nil {
		t.Fatal("expected a match, got nil")
	}
	if got.ID != "faq-pay" {
		t.Errorf("expected faq-pay, got %s", got.ID)
	}
}

func TestMatch_NoOverlap(t *testing.T) {
	if got := Match("My roommate stole my bicycle", matchCorpus); got != nil {
		t.Errorf("expected no match, got %s", got.ID)
	}
}

func TestMatch_ShortQuestionTokensDoNotScore(t *testing.T) {
	// "i" from "How do I pay" must not match inside arbitrary words like
	// "graduation" and "arrived".
	if got := Match("my graduation gown order never arrived", matchCorpus); got != nil {
		t.Errorf("expected no match, got %s", got.ID)
	}
}

func TestMatch_SingleOverlapBelowThreshold(t *testing.T) {
	// "exam" alone scores 1, which is below the threshold of 2.
	if got := Match("exam", matchCorpus); got != nil {
		t.Errorf("expected no match for single token, got %s", got.ID)
	}
}

func TestMatch_ShortTokensIgnored(t *testing.T) {
	// "my" and "do" are under the length-3 floor and must not score.
	corpus := []protocol.FAQEntry{
		{ID: "short", Question: "my do", Keywords: []string{"my", "do"}},
	}
	if got := Match("my do my do", corpus); got != nil {
		t.Errorf("expected short tokens to be ignored, got %s", got.ID)
	}
}

func TestMatch_SubstringBothDirections(t *testing.T) {
	// "exams" contains keyword "exam"; keyword "schedule" contains "sched"
	// would not occur in real queries, but plural/partial forms should hit.
	got := Match("when are final exams", matchCorpus)
	if got == nil {
		t.Fatal("expected plural form to match")
	}
	if got.ID != "faq-exam" {
		t.Errorf("expected faq-exam, got %s", got.ID)
	}
}

func TestMatch_OnePointPerQueryToken(t *testing.T) {
	// A token matching several keywords still scores once, so a query with
	// one strong token cannot clear the threshold by itself.
	corpus := []protocol.FAQEntry{
		{ID: "dup", Question: "payment payment payment", Keywords: []string{"payment", "pay", "paying"}},
	}
	if got := Match("payment", corpus); got != nil {
		t.Errorf("expected single token to score 1, got match %s", got.ID)
	}
}

func TestMatch_TieKeepsFirstSeen(t *testing.T) {
	corpus := []protocol.FAQEntry{
		{ID: "first", Question: "exam schedule", Keywords: []string{"exam", "schedule"}},
		{ID: "second", Question: "exam schedule", Keywords: []string{"exam", "schedule"}},
	}
	got := Match("exam schedule", corpus)
	if got == nil {
		t.Fatal("expected a match")
	}
	if got.ID != "first" {
		t.Errorf("tie must keep corpus order, got %s", got.ID)
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("  How DO I Pay  ")
	want := []string{"how", "do", "i", "pay"}
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
