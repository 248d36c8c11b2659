// Package lifecycle validates changes to tasks and users before they are
// written.
package lifecycle

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskpanel/internal/access"
	"taskpanel/internal/model"
)

// Proposal is a partial update of a task. A nil field means "keep the stored
// value".
type Proposal struct {
	Title       *string
	Description *string
	// Assignee is the resolved user the task should be assigned to.
	Assignee     *model.User
	DueDate      *time.Time
	ClearDueDate bool

	Status           *model.TaskStatus
	CompletionReport *string
	// WorkedHours is kept raw so that non-numeric input can be reported.
	WorkedHours *string
}

// Outcome is either an applied task state or the list of reasons the
// proposal was rejected.
type Outcome struct {
	Task   model.Task
	Errors ValidationErrors
}

func (o Outcome) Applied() bool {
	return len(o.Errors) == 0
}

func (o Outcome) Err() error {
	if o.Applied() {
		return nil
	}
	return o.Errors
}

type Guard struct {
	now func() time.Time
}

func NewGuard(now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{now: now}
}

var defaultGuard = NewGuard(time.Now)

// ProposeTransition runs the default guard.
func ProposeTransition(p access.Principal, task model.Task, prop Proposal) Outcome {
	return defaultGuard.Propose(p, task, prop)
}

// Propose validates prop against the stored task and the principal's role.
// The returned task has every effective value applied; on rejection the task
// is returned unchanged.
func (g *Guard) Propose(p access.Principal, task model.Task, prop Proposal) Outcome {
	var errs ValidationErrors

	privileged := p.Role == model.RoleSuperAdmin || p.Role == model.RoleAdmin
	if !privileged {
		if task.Completed() {
			errs.add("status", CodeAlreadyCompleted)
			return Outcome{Task: task, Errors: errs}
		}
		if prop.Title != nil {
			errs.add("title", CodeFieldNotEditable)
		}
		if prop.Description != nil {
			errs.add("description", CodeFieldNotEditable)
		}
		if prop.Assignee != nil {
			errs.add("assigned_to", CodeFieldNotEditable)
		}
		if prop.DueDate != nil || prop.ClearDueDate {
			errs.add("due_date", CodeFieldNotEditable)
		}
		if prop.Status != nil && *prop.Status != model.StatusCompleted {
			errs.add("status", CodeFieldNotEditable)
		}
	} else {
		if prop.Title != nil && strings.TrimSpace(*prop.Title) == "" {
			errs.add("title", CodeTitleRequired)
		}
		if prop.Assignee != nil {
			switch {
			case prop.Assignee.Role != model.RoleUser:
				errs.add("assigned_to", CodeAssigneeInvalid)
			case !access.Authorize(p, access.CreateTask, access.OnUser(prop.Assignee)).Allow:
				errs.add("assigned_to", CodeAssigneeNotManaged)
			}
		} else if task.AssignedTo == uuid.Nil {
			errs.add("assigned_to", CodeAssigneeRequired)
		}
	}

	status := task.Status
	if prop.Status != nil {
		status = *prop.Status
	}
	if !status.Valid() {
		errs.add("status", CodeInvalidStatus)
	}

	report := task.CompletionReport
	if prop.CompletionReport != nil {
		report = nonEmpty(*prop.CompletionReport)
	}

	hours := task.WorkedHours
	hoursBad := false
	if prop.WorkedHours != nil {
		parsed, code := parseHours(*prop.WorkedHours)
		if code != "" {
			errs.add("worked_hours", code)
			hoursBad = true
		}
		hours = parsed
	}

	if status == model.StatusCompleted {
		if report == nil {
			errs.add("completion_report", CodeReportRequired)
		}
		if hours == nil && !hoursBad {
			errs.add("worked_hours", CodeHoursRequired)
		}
	}

	if len(errs) > 0 {
		return Outcome{Task: task, Errors: errs}
	}

	next := task
	if prop.Title != nil {
		next.Title = strings.TrimSpace(*prop.Title)
	}
	if prop.Description != nil {
		next.Description = *prop.Description
	}
	if prop.Assignee != nil {
		next.AssignedTo = prop.Assignee.ID
		next.Assignee = *prop.Assignee
	}
	if prop.ClearDueDate {
		next.DueDate = nil
	} else if prop.DueDate != nil {
		d := *prop.DueDate
		next.DueDate = &d
	}
	next.Status = status
	next.CompletionReport = report
	next.WorkedHours = hours
	next.UpdatedAt = g.now()

	return Outcome{Task: next}
}

// MaxWorkedHours is the largest value the worked_hours column holds.
const MaxWorkedHours = 9999.99

// parseHours returns nil for blank input. Anything else must be a finite,
// non-negative number that fits the worked_hours column: at most
// MaxWorkedHours with no more than two decimal places.
func parseHours(raw string) (*float64, Code) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ""
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, CodeHoursNotNumeric
	}
	if v < 0 {
		return nil, CodeHoursNegative
	}
	cents := v * 100
	if v > MaxWorkedHours || math.Abs(cents-math.Round(cents)) > 1e-6 {
		return nil, CodeHoursOutOfRange
	}
	return &v, ""
}

func nonEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
