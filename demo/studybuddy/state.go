package studybuddy

import (
	"fmt"

	"github.com/seobando/agentkit/internal/util"
)

// Session state keys.
const (
	StudentNameKey   = "student_name"
	LearningStyleKey = "learning_style"
	CoursesKey       = "courses"
	AssignmentsKey   = "assignments"
	SessionsKey      = "study_sessions"
	TotalMinutesKey  = "total_study_minutes"
)

// Assignment statuses.
const (
	StatusPending   = "Pending"
	StatusCompleted = "Completed"
)

// LearningStyles maps the setup menu choices to styles.
var LearningStyles = map[string]string{
	"1": "visual",
	"2": "auditory",
	"3": "kinesthetic",
	"4": "reading",
}

type Course struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Instructor string `json:"instructor"`
	AddedDate  string `json:"added_date"`
}

type Assignment struct {
	ID            string `json:"id"`
	CourseName    string `json:"course_name"`
	Title         string `json:"title"`
	DueDate       string `json:"due_date"`
	Status        string `json:"status"`
	AddedDate     string `json:"added_date"`
	CompletedDate string `json:"completed_date,omitempty"`
}

type StudySession struct {
	ID              string `json:"id"`
	Subject         string `json:"subject"`
	DurationMinutes int    `json:"duration_minutes"`
	Notes           string `json:"notes"`
	Date            string `json:"date"`
	Time            string `json:"time"`
}

// State is the typed view of a study session's state.
type State struct {
	StudentName       string         `json:"student_name"`
	LearningStyle     string         `json:"learning_style"`
	Courses           []Course       `json:"courses"`
	Assignments       []Assignment   `json:"assignments"`
	StudySessions     []StudySession `json:"study_sessions"`
	TotalStudyMinutes int            `json:"total_study_minutes"`
}

// InitialState returns the state of a new student.
func InitialState(name, style string) map[string]any {
	if name == "" {
		name = "Student"
	}
	if style == "" {
		style = "visual"
	}
	return map[string]any{
		StudentNameKey:   name,
		LearningStyleKey: style,
		CoursesKey:       []any{},
		AssignmentsKey:   []any{},
		SessionsKey:      []any{},
		TotalMinutesKey:  0,
	}
}

// StateFromMap decodes session state.
func StateFromMap(m map[string]any) (State, error) {
	st, err := util.DecodeState[State](m)
	if err != nil {
		return State{}, fmt.Errorf("decode study state: %w", err)
	}
	return st, nil
}

// PendingAssignments counts assignments not yet completed.
func (s State) PendingAssignments() int {
	n := 0
	for _, a := range s.Assignments {
		if a.Status == StatusPending {
			n++
		}
	}
	return n
}
