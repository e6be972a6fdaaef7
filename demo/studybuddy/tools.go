package studybuddy

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/internal/util"
	"github.com/seobando/agentkit/tool"
)

var (
	now   = time.Now
	newID = func() string { return uuid.NewString()[:8] }
)

func today() string { return now().Format("2006-01-02") }

type addCourseArgs struct {
	Name       string `json:"name" jsonschema:"course name"`
	Instructor string `json:"instructor" jsonschema:"instructor name"`
}

type addAssignmentArgs struct {
	CourseName string `json:"course_name" jsonschema:"course the assignment belongs to"`
	Title      string `json:"title" jsonschema:"assignment title"`
	DueDate    string `json:"due_date" jsonschema:"due date, YYYY-MM-DD"`
}

type viewAssignmentsArgs struct {
	StatusFilter string `json:"status_filter,omitempty" jsonschema:"all, pending or completed; defaults to all"`
}

type titleArgs struct {
	Title string `json:"title" jsonschema:"assignment title, matched case-insensitively"`
}

type logSessionArgs struct {
	Subject         string `json:"subject" jsonschema:"what was studied"`
	DurationMinutes int    `json:"duration_minutes" jsonschema:"length of the session in minutes"`
	Notes           string `json:"notes,omitempty" jsonschema:"optional notes"`
}

type noArgs struct{}

// Tools returns the study tools working on session state.
func Tools() []tool.Tool {
	return []tool.Tool{
		tool.MustTyped("add_course", "Add a new course", addCourse),
		tool.MustTyped("view_courses", "View all courses", viewCourses),
		tool.MustTyped("add_assignment", "Add a new assignment", addAssignment),
		tool.MustTyped("view_assignments", "View assignments, optionally filtered by status", viewAssignments),
		tool.MustTyped("complete_assignment", "Mark an assignment as completed", completeAssignment),
		tool.MustTyped("log_study_session", "Log a study session", logStudySession),
		tool.MustTyped("view_study_stats", "View study statistics", viewStudyStats),
	}
}

func readList[T any](tc *core.ToolContext, key string) ([]T, error) {
	v, _ := tc.GetState(key)
	list, err := util.DecodeState[[]T](v)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return list, nil
}

func writeState(tc *core.ToolContext, key string, v any) error {
	enc, err := util.EncodeState(v)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	tc.SetState(key, enc)
	return nil
}

func addCourse(tc *core.ToolContext, args addCourseArgs) (any, error) {
	courses, err := readList[Course](tc, CoursesKey)
	if err != nil {
		return nil, err
	}
	courses = append(courses, Course{ID: newID(), Name: args.Name, Instructor: args.Instructor, AddedDate: today()})
	if err := writeState(tc, CoursesKey, courses); err != nil {
		return nil, err
	}
	return map[string]any{"action": "add_course", "message": "Added course: " + args.Name}, nil
}

func viewCourses(tc *core.ToolContext, _ noArgs) (any, error) {
	courses, err := readList[Course](tc, CoursesKey)
	if err != nil {
		return nil, err
	}
	return map[string]any{"action": "view_courses", "count": len(courses), "courses": FormatCourses(courses)}, nil
}

func addAssignment(tc *core.ToolContext, args addAssignmentArgs) (any, error) {
	assignments, err := readList[Assignment](tc, AssignmentsKey)
	if err != nil {
		return nil, err
	}
	assignments = append(assignments, Assignment{
		ID:         newID(),
		CourseName: args.CourseName,
		Title:      args.Title,
		DueDate:    args.DueDate,
		Status:     StatusPending,
		AddedDate:  today(),
	})
	if err := writeState(tc, AssignmentsKey, assignments); err != nil {
		return nil, err
	}
	return map[string]any{"action": "add_assignment", "message": "Added assignment: " + args.Title}, nil
}

func viewAssignments(tc *core.ToolContext, args viewAssignmentsArgs) (any, error) {
	assignments, err := readList[Assignment](tc, AssignmentsKey)
	if err != nil {
		return nil, err
	}
	filter := args.StatusFilter
	if filter == "" {
		filter = "all"
	}
	matched := FilterAssignments(assignments, filter)
	return map[string]any{
		"action":      "view_assignments",
		"count":       len(matched),
		"assignments": FormatAssignments(matched, filter),
	}, nil
}

func completeAssignment(tc *core.ToolContext, args titleArgs) (any, error) {
	assignments, err := readList[Assignment](tc, AssignmentsKey)
	if err != nil {
		return nil, err
	}
	for i := range assignments {
		if strings.EqualFold(assignments[i].Title, args.Title) {
			assignments[i].Status = StatusCompleted
			assignments[i].CompletedDate = today()
			if err := writeState(tc, AssignmentsKey, assignments); err != nil {
				return nil, err
			}
			return map[string]any{"action": "complete_assignment", "message": "Completed: " + args.Title}, nil
		}
	}
	return map[string]any{
		"action": "complete_assignment",
		"error":  fmt.Sprintf("Assignment '%s' not found", args.Title),
	}, nil
}

func logStudySession(tc *core.ToolContext, args logSessionArgs) (any, error) {
	sessions, err := readList[StudySession](tc, SessionsKey)
	if err != nil {
		return nil, err
	}
	t := now()
	sessions = append(sessions, StudySession{
		ID:              newID(),
		Subject:         args.Subject,
		DurationMinutes: args.DurationMinutes,
		Notes:           args.Notes,
		Date:            t.Format("2006-01-02"),
		Time:            t.Format("15:04"),
	})
	if err := writeState(tc, SessionsKey, sessions); err != nil {
		return nil, err
	}

	v, _ := tc.GetState(TotalMinutesKey)
	total, err := util.DecodeState[int](v)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", TotalMinutesKey, err)
	}
	tc.SetState(TotalMinutesKey, total+args.DurationMinutes)
	return map[string]any{"action": "log_study_session", "message": "Logged study session: " + args.Subject}, nil
}

func viewStudyStats(tc *core.ToolContext, _ noArgs) (any, error) {
	st, err := StateFromMap(tc.State())
	if err != nil {
		return nil, err
	}
	return map[string]any{"action": "view_study_stats", "message": "Study stats displayed", "stats": FormatStats(st)}, nil
}

// FilterAssignments keeps assignments whose status matches filter, ignoring
// case. "all" keeps everything.
func FilterAssignments(assignments []Assignment, filter string) []Assignment {
	if strings.EqualFold(filter, "all") || filter == "" {
		return assignments
	}
	out := make([]Assignment, 0, len(assignments))
	for _, a := range assignments {
		if strings.EqualFold(a.Status, filter) {
			out = append(out, a)
		}
	}
	return out
}
