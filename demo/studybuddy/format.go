package studybuddy

import (
	"fmt"
	"strings"
)

// Header is printed when the CLI starts or clears the screen.
const Header = "🎓 STUDY BUDDY - Your AI Academic Assistant\nType 'help' for commands"

// Help lists what the CLI understands.
const Help = `📖 Available Commands:
COURSE MANAGEMENT:
  • 'add course Math with Dr. Smith'
  • 'show my courses' or 'view courses'

ASSIGNMENT TRACKING:
  • 'add assignment homework for Math due 2024-12-20'
  • 'view assignments' or 'show assignments'
  • 'complete homework'

STUDY LOGGING:
  • 'log 30 minute study session on calculus'
  • 'show study stats' or 'view stats'

GENERAL:
  • 'help' - Show this help
  • 'status' - Show current status
  • 'clear' - Clear screen
  • 'quit' or 'exit' - Exit application`

const rule = "------------------------------"

// FormatCourses renders the course list.
func FormatCourses(courses []Course) string {
	if len(courses) == 0 {
		return "📚 No courses enrolled yet"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📚 Your Courses (%d):\n", len(courses))
	for i, c := range courses {
		fmt.Fprintf(&b, "  %d. %s\n     Instructor: %s\n     Added: %s\n", i+1, c.Name, c.Instructor, c.AddedDate)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatAssignments renders assignments under the heading of filter.
func FormatAssignments(assignments []Assignment, filter string) string {
	if filter == "" {
		filter = "all"
	}
	if len(assignments) == 0 {
		return fmt.Sprintf("📋 No assignments found (filter: %s)", filter)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Your Assignments - %s (%d):\n", title(filter), len(assignments))
	for i, a := range assignments {
		icon := "⏳"
		if a.Status == StatusCompleted {
			icon = "✅"
		}
		fmt.Fprintf(&b, "  %s %d. %s\n     Course: %s\n     Due: %s | Status: %s\n", icon, i+1, a.Title, a.CourseName, a.DueDate, a.Status)
		if a.CompletedDate != "" {
			fmt.Fprintf(&b, "     Completed: %s\n", a.CompletedDate)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatStats renders session totals and the five most recent sessions.
func FormatStats(s State) string {
	var b strings.Builder
	b.WriteString("📊 Study Statistics:\n" + rule + "\n")
	fmt.Fprintf(&b, "  Total Sessions: %d\n", len(s.StudySessions))
	fmt.Fprintf(&b, "  Total Hours: %.1fh\n", float64(s.TotalStudyMinutes)/60)
	if n := len(s.StudySessions); n > 0 {
		fmt.Fprintf(&b, "  Avg Session: %.0f minutes\n", float64(s.TotalStudyMinutes)/float64(n))
		b.WriteString("\n  Recent Sessions:\n")
		recent := s.StudySessions
		if n > 5 {
			recent = recent[n-5:]
		}
		for _, ss := range recent {
			fmt.Fprintf(&b, "    • %s - %dmin (%s)\n", ss.Subject, ss.DurationMinutes, ss.Date)
		}
	}
	b.WriteString(rule)
	return b.String()
}

// FormatStatus renders the overview shown by the status command.
func FormatStatus(s State) string {
	var b strings.Builder
	b.WriteString("📊 Current Status:\n" + rule + "\n")
	fmt.Fprintf(&b, "  Student: %s\n", orNotSet(s.StudentName))
	fmt.Fprintf(&b, "  Learning Style: %s\n", orNotSet(s.LearningStyle))
	fmt.Fprintf(&b, "  Enrolled Courses: %d\n", len(s.Courses))
	fmt.Fprintf(&b, "  Pending Assignments: %d\n", s.PendingAssignments())
	fmt.Fprintf(&b, "  Study Sessions: %d\n", len(s.StudySessions))
	fmt.Fprintf(&b, "  Total Study Time: %.1f hours\n", float64(s.TotalStudyMinutes)/60)
	b.WriteString(rule)
	return b.String()
}

func orNotSet(s string) string {
	if s == "" {
		return "Not set"
	}
	return s
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
