package knowledge

import "github.com/unibot-io/unibot/pkg/protocol"

// DefaultFAQs is the starter knowledge base written to an empty store on
// first open. Admins extend or replace these through the FAQ API.
var DefaultFAQs = []protocol.FAQEntry{
	{
		ID:       "faq-1",
		Question: "What are the tuition fees for undergraduate programs?",
		Answer:   "Tuition fees for undergraduate programs range from $8,000 to $12,000 per semester depending on your program. Engineering and Medical programs are at the higher end. Financial aid and installment plans are available through the Student Finance Office.",
		Category: "Fees",
		Keywords: []string{"tuition", "fees", "cost", "undergraduate", "payment", "price"},
	},
	{
		ID:       "faq-2",
		Question: "When is the exam schedule released?",
		Answer:   "The final exam schedule is typically released 4 weeks before the examination period begins. You can find it on the university portal under 'Academics > Exam Schedule'. Mid-term schedules are posted by individual departments.",
		Category: "Exams",
		Keywords: []string{"exam", "schedule", "final", "midterm", "test", "examination"},
	},
	{
		ID:       "faq-3",
		Question: "How can I view my class timetable?",
		Answer:   "Your class timetable is available on the student portal under 'My Courses > Timetable'. It updates automatically when you register for new courses. You can also export it to Google Calendar or iCal.",
		Category: "Timetable",
		Keywords: []string{"timetable", "schedule", "class", "course", "time", "calendar"},
	},
	{
		ID:       "faq-4",
		Question: "What scholarships are available?",
		Answer:   "We offer Merit-Based Scholarships (GPA 3.5+), Need-Based Financial Aid, Athletic Scholarships, and Department-Specific Research Grants. Applications open each semester. Visit the Scholarships Office or apply online through the student portal.",
		Category: "Scholarships",
		Keywords: []string{"scholarship", "financial", "aid", "grant", "merit", "need-based"},
	},
	{
		ID:       "faq-5",
		Question: "How do I pay my fees online?",
		Answer:   "Log into the student portal, go to 'Finance > Pay Fees'. We accept credit/debit cards, bank transfers, and digital wallets. Payment plans with 3 installments are available. Contact finance@university.edu for assistance.",
		Category: "Fees",
		Keywords: []string{"pay", "online", "payment", "finance", "bank", "card"},
	},
	{
		ID:       "faq-6",
		Question: "What is the GPA requirement to maintain my scholarship?",
		Answer:   "Most scholarships require a minimum GPA of 3.0 to be maintained. Merit scholarships require 3.5+. If your GPA drops below the threshold, you'll receive a warning for one semester before the scholarship is revoked.",
		Category: "Scholarships",
		Keywords: []string{"gpa", "requirement", "maintain", "scholarship", "minimum", "grade"},
	},
	{
		ID:       "faq-7",
		Question: "Where can I find past exam papers?",
		Answer:   "Past exam papers are available in the university library's digital repository. Go to Library > Digital Resources > Past Papers. Papers from the last 5 years are available for most courses.",
		Category: "Exams",
		Keywords: []string{"past", "paper", "previous", "exam", "library", "old"},
	},
	{
		ID:       "faq-8",
		Question: "How do I register for courses?",
		Answer:   "Course registration opens 2 weeks before each semester. Log into the student portal, go to 'Registration > Add Courses'. Make sure to check prerequisites. Your academic advisor can help with course selection.",
		Category: "Registration",
		Keywords: []string{"register", "course", "enrollment", "add", "drop", "semester"},
	},
	{
		ID:       "faq-9",
		Question: "What are the library hours?",
		Answer:   "The main library is open Monday-Friday 7:00 AM - 11:00 PM, Saturday 9:00 AM - 9:00 PM, and Sunday 10:00 AM - 8:00 PM. Extended hours (24/7) are available during exam periods.",
		Category: "Campus",
		Keywords: []string{"library", "hours", "open", "time", "study"},
	},
	{
		ID:       "faq-10",
		Question: "How do I apply for a hostel room?",
		Answer:   "Hostel applications open in June for the fall semester. Apply through Student Portal > Housing > Apply. Priority is given to first-year and international students. Monthly rent ranges from $300-$600 depending on room type.",
		Category: "Housing",
		Keywords: []string{"hostel", "housing", "room", "accommodation", "dorm", "residence"},
	},
}
