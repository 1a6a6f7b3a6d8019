// Package dashboard builds the role navigation and the static dashboard payloads.
package dashboard

import (
	"math/rand"
	"strings"

	"github.com/trezcool/tutortrack/core"
	"github.com/trezcool/tutortrack/core/user"
)

type (
	NavItem struct {
		Href  string `json:"href"`
		Label string `json:"label"`
		Icon  string `json:"icon"`
	}

	MetricCard struct {
		Title       string `json:"title"`
		Value       string `json:"value"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	}

	// Point is one x-axis entry of a bar chart, with one value per series key.
	Point struct {
		Label  string         `json:"label"`
		Values map[string]int `json:"values"`
	}

	Series struct {
		Key   string `json:"key"`
		Label string `json:"label"`
	}

	BarChart struct {
		Title  string   `json:"title"`
		Series []Series `json:"series"`
		Points []Point  `json:"points"`
	}

	Slice struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}

	PieChart struct {
		Title  string  `json:"title"`
		Slices []Slice `json:"slices"`
	}

	Achievement struct {
		Title string `json:"title"`
		Image string `json:"image"`
	}

	Activity struct {
		Name     string `json:"name"`
		Activity string `json:"activity"`
		Time     string `json:"time"`
		Avatar   string `json:"avatar"`
	}

	Dashboard struct {
		Title        string        `json:"title"`
		Welcome      string        `json:"welcome"`
		Metrics      []MetricCard  `json:"metrics"`
		Bar          BarChart      `json:"bar_chart"`
		Pie          PieChart      `json:"pie_chart"`
		Achievements []Achievement `json:"achievements,omitempty"`
		Activity     []Activity    `json:"recent_activity,omitempty"`
	}
)

var (
	studentNav = []NavItem{
		{Href: "/student/dashboard", Label: "Dashboard", Icon: "layout-dashboard"},
		{Href: "/student/career-coach", Label: "Career Coach", Icon: "briefcase"},
		{Href: "/student/skills-guide", Label: "Skills Guide", Icon: "zap"},
		{Href: "/student/assignment-help", Label: "Assignment Help", Icon: "help-circle"},
		{Href: "/student/ai-chat", Label: "AI Chat", Icon: "message-circle"},
		{Href: "/student/recommendations", Label: "Recommendations", Icon: "lightbulb"},
		{Href: "/student/scholarships", Label: "Scholarship Finder", Icon: "graduation-cap"},
		{Href: "/student/resume", Label: "Resume Builder", Icon: "clipboard-list"},
		{Href: "/student/practice-quiz", Label: "Practice Quiz", Icon: "list-checks"},
	}

	teacherNav = []NavItem{
		{Href: "/teacher/dashboard", Label: "Dashboard", Icon: "layout-dashboard"},
		{Href: "/teacher/paper-checker", Label: "Paper Checker", Icon: "file-text"},
		{Href: "/teacher/quiz-maker", Label: "Quiz Maker", Icon: "list-checks"},
		{Href: "/teacher/curriculum-creator", Label: "Curriculum Creator", Icon: "pen-tool"},
		{Href: "/teacher/ai-chat", Label: "AI Chat", Icon: "message-circle"},
	}

	welcomeMessages = []string{
		"Let's make today a productive learning day.",
		"Ready to tackle your goals?",
		"Your learning journey continues. What's next?",
		"Seize the day and unlock your potential.",
		"Every session is a step towards success. Let's get started!",
	}

	// mockable
	pickFunc = rand.Intn
)

// Navigation returns the nav items of role's portal. Unknown roles get none.
func Navigation(role user.Role) []NavItem {
	switch role {
	case user.RoleStudent:
		return append([]NavItem(nil), studentNav...)
	case user.RoleTeacher:
		return append([]NavItem(nil), teacherNav...)
	}
	return []NavItem{}
}

// HomePath is where role lands after sign-in.
func HomePath(role user.Role) string {
	if role.Valid() {
		return "/" + role.String() + "/dashboard"
	}
	return "/"
}

func StudentDashboard(usr user.User) Dashboard {
	msg := welcomeMessages[pickFunc(len(welcomeMessages))]
	return Dashboard{
		Title:   "Student Dashboard",
		Welcome: "Welcome back, " + firstName(usr, "Student") + "! " + msg,
		Metrics: []MetricCard{
			{Title: "Active Courses", Value: "5", Description: "+2 from last month", Icon: "book-open"},
			{Title: "Overall Progress", Value: "75%", Description: "Keep up the great work!", Icon: "trending-up"},
			{Title: "Assignments Due", Value: "3", Description: "Upcoming this week", Icon: "activity"},
		},
		Bar: BarChart{
			Title:  "Study Activity",
			Series: []Series{{Key: "study_hours", Label: "Study Hours"}, {Key: "assignments", Label: "Assignments"}},
			Points: []Point{
				{Label: "January", Values: map[string]int{"study_hours": 186, "assignments": 80}},
				{Label: "February", Values: map[string]int{"study_hours": 305, "assignments": 200}},
				{Label: "March", Values: map[string]int{"study_hours": 237, "assignments": 120}},
				{Label: "April", Values: map[string]int{"study_hours": 73, "assignments": 190}},
				{Label: "May", Values: map[string]int{"study_hours": 209, "assignments": 130}},
				{Label: "June", Values: map[string]int{"study_hours": 214, "assignments": 140}},
			},
		},
		Pie: PieChart{
			Title:  "Task Completion",
			Slices: []Slice{{Name: "Completed", Value: 70}, {Name: "In Progress", Value: 20}, {Name: "Pending", Value: 10}},
		},
		Achievements: []Achievement{
			{Title: "Quick Learner", Image: "https://placehold.co/100x100/9775FA/FFFFFF.png?text=QL"},
			{Title: "Topic Master: Algebra", Image: "https://placehold.co/100x100/BEB2FA/333333.png?text=TM"},
			{Title: "Perfect Score", Image: "https://placehold.co/100x100/9775FA/FFFFFF.png?text=PS"},
			{Title: "Collaborator King", Image: "https://placehold.co/100x100/BEB2FA/333333.png?text=CK"},
		},
	}
}

func TeacherDashboard(usr user.User) Dashboard {
	return Dashboard{
		Title:   "Teacher Dashboard",
		Welcome: "Welcome back, " + firstName(usr, "Teacher") + "! Insights to enhance your teaching effectiveness.",
		Metrics: []MetricCard{
			{Title: "Active Classes", Value: "4", Description: "Total of 120 students", Icon: "users"},
			{Title: "Papers to Grade", Value: "12", Description: "3 overdue", Icon: "file-check"},
			{Title: "Student Engagement", Value: "85%", Description: "Average across all classes", Icon: "presentation"},
		},
		Bar: BarChart{
			Title:  "Class Performance Overview",
			Series: []Series{{Key: "avg_score", Label: "Avg. Score"}, {Key: "participation", Label: "Participation"}},
			Points: []Point{
				{Label: "Math", Values: map[string]int{"avg_score": 85, "participation": 90}},
				{Label: "Science", Values: map[string]int{"avg_score": 78, "participation": 82}},
				{Label: "History", Values: map[string]int{"avg_score": 92, "participation": 95}},
				{Label: "English", Values: map[string]int{"avg_score": 88, "participation": 80}},
				{Label: "Art", Values: map[string]int{"avg_score": 95, "participation": 98}},
			},
		},
		Pie: PieChart{
			Title:  "Grading Status",
			Slices: []Slice{{Name: "Graded", Value: 120}, {Name: "Pending", Value: 35}, {Name: "Overdue", Value: 5}},
		},
		Activity: []Activity{
			{Name: "Alice Smith", Activity: "Submitted 'History Essay'", Time: "2h ago", Avatar: "https://placehold.co/40x40.png?text=AS"},
			{Name: "Bob Johnson", Activity: "Asked a question in 'Calculus Q&A'", Time: "5h ago", Avatar: "https://placehold.co/40x40.png?text=BJ"},
			{Name: "Charlie Brown", Activity: "Completed 'Science Quiz 3'", Time: "1d ago", Avatar: "https://placehold.co/40x40.png?text=CB"},
		},
	}
}

// firstName is the first word of the display name, else the email local part, else fallback.
func firstName(usr user.User, fallback string) string {
	if fields := strings.Fields(usr.DisplayName); len(fields) > 0 && !usr.IsAnonymous {
		return fields[0]
	}
	if usr.Email != "" {
		return core.EmailLocalPart(usr.Email)
	}
	return fallback
}
