package triage

import "strings"

// Department labels a ticket can be routed to.
const (
	DeptStudentFinance    = "Student Finance"
	DeptExaminationOffice = "Examination Office"
	DeptScholarships      = "Scholarships Office"
	DeptHousing           = "Housing Office"
	DeptITSupport         = "IT Support"
	DeptGeneralInquiry    = "General Inquiry"
)

// Departments lists every label Classify can return.
var Departments = []string{
	DeptStudentFinance,
	DeptExaminationOffice,
	DeptScholarships,
	DeptHousing,
	DeptITSupport,
	DeptGeneralInquiry,
}

// deptRules is evaluated in order; the first rule with a matching cue
// wins, so the ordering is part of the routing contract.
var deptRules = []struct {
	cues []string
	dept string
}{
	{[]string{"fee", "payment"}, DeptStudentFinance},
	{[]string{"exam", "grade"}, DeptExaminationOffice},
	{[]string{"scholarship", "aid"}, DeptScholarships},
	{[]string{"hostel", "housing"}, DeptHousing},
	{[]string{"computer", "wifi", "portal"}, DeptITSupport},
}

// Classify maps an unanswered query to the department responsible for
// it, using case-insensitive substring checks. Queries matching no rule
// fall through to General Inquiry.
func Classify(query string) string {
	q := strings.ToLower(query)
	for _, rule := range deptRules {
		for _, cue := range rule.cues {
			if strings.Contains(q, cue) {
				return rule.dept
			}
		}
	}
	return DeptGeneralInquiry
}
