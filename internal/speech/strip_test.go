package speech

import "testing"

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "ticket **TKT-1** created", "ticket TKT-1 created"},
		{"italic", "see *My Tickets* section", "see My Tickets section"},
		{"heading", "## Fees\npay online", "Fees\npay online"},
		{"link", "visit [the portal](https://portal.example.edu) today", "visit the portal today"},
		{"code", "run `unibotctl health` now", "run unibotctl health now"},
		{"plain text untouched", "no markup here", "no markup here"},
		{
			"combined",
			"I've created ticket **TKT-9Z** — see [My Tickets](https://example.edu/tickets).",
			"I've created ticket TKT-9Z — see My Tickets.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkup(tt.in); got != tt.want {
				t.Errorf("StripMarkup(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
