package triage

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"I can't see my fee statement", DeptStudentFinance},
		{"payment plan options", DeptStudentFinance},
		{"when does the exam start", DeptExaminationOffice},
		{"my grade looks wrong", DeptExaminationOffice},
		{"scholarship renewal deadline", DeptScholarships},
		{"financial aid question", DeptScholarships},
		{"hostel room allocation issue", DeptHousing},
		{"housing application status", DeptHousing},
		{"my computer won't log in", DeptITSupport},
		{"the wifi keeps dropping", DeptITSupport},
		{"portal password reset", DeptITSupport},
		{"My roommate stole my bicycle", DeptGeneralInquiry},
		{"", DeptGeneralInquiry},
	}

	for _, tt := range tests {
		if got := Classify(tt.query); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestClassify_FirstRuleWins(t *testing.T) {
	// "exam fee waiver" mentions both finance and exams; the fee rule is
	// evaluated first and must win.
	if got := Classify("exam fee waiver"); got != DeptStudentFinance {
		t.Errorf("expected Student Finance for overlapping cues, got %q", got)
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	if got := Classify("HOSTEL CURFEW"); got != DeptHousing {
		t.Errorf("expected Housing Office, got %q", got)
	}
}
