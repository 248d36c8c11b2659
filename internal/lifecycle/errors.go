package lifecycle

import (
	"fmt"
	"strings"
)

type Code string

const (
	CodeReportRequired     Code = "REPORT_REQUIRED"
	CodeHoursRequired      Code = "HOURS_REQUIRED"
	CodeHoursNotNumeric    Code = "HOURS_NOT_NUMERIC"
	CodeHoursNegative      Code = "HOURS_NEGATIVE"
	CodeHoursOutOfRange    Code = "HOURS_OUT_OF_RANGE"
	CodeFieldNotEditable   Code = "FIELD_NOT_EDITABLE"
	CodeAlreadyCompleted   Code = "ALREADY_COMPLETED"
	CodeInvalidStatus      Code = "INVALID_STATUS"
	CodeTitleRequired      Code = "TITLE_REQUIRED"
	CodeAssigneeRequired   Code = "ASSIGNEE_REQUIRED"
	CodeAssigneeInvalid    Code = "ASSIGNEE_INVALID"
	CodeAssigneeNotManaged Code = "ASSIGNEE_NOT_MANAGED"
	CodeDueDateInvalid     Code = "DUE_DATE_INVALID"

	CodeUsernameRequired     Code = "USERNAME_REQUIRED"
	CodeUsernameTaken        Code = "USERNAME_TAKEN"
	CodeEmailInvalid         Code = "EMAIL_INVALID"
	CodePasswordRequired     Code = "PASSWORD_REQUIRED"
	CodePasswordTooShort     Code = "PASSWORD_TOO_SHORT"
	CodeRoleInvalid          Code = "ROLE_INVALID"
	CodeAdminRequired        Code = "ADMIN_REQUIRED"
	CodeAssignmentNotAllowed Code = "ASSIGNMENT_NOT_ALLOWED"
)

var messages = map[Code]string{
	CodeReportRequired:     "Completion report required when marking Completed.",
	CodeHoursRequired:      "Worked hours required when marking Completed.",
	CodeHoursNotNumeric:    "Provide a numeric value.",
	CodeHoursNegative:      "Value must be non-negative.",
	CodeHoursOutOfRange:    "Ensure there are no more than 4 digits before and 2 after the decimal point.",
	CodeFieldNotEditable:   "This field cannot be changed.",
	CodeAlreadyCompleted:   "Task already completed.",
	CodeInvalidStatus:      "Unknown status.",
	CodeTitleRequired:      "Title is required.",
	CodeAssigneeRequired:   "Task must be assigned to a user.",
	CodeAssigneeInvalid:    "Tasks can only be assigned to users with the User role.",
	CodeAssigneeNotManaged: "You can only assign tasks to users you manage.",
	CodeDueDateInvalid:     "Enter a valid date.",

	CodeUsernameRequired:     "Username is required.",
	CodeUsernameTaken:        "A user with that username already exists.",
	CodeEmailInvalid:         "Enter a valid email address.",
	CodePasswordRequired:     "Password is required.",
	CodePasswordTooShort:     "Password must be at least 6 characters.",
	CodeRoleInvalid:          "Unknown role.",
	CodeAdminRequired:        "Assigned admin must have the Admin role.",
	CodeAssignmentNotAllowed: "Only users with the User role can be assigned to an admin.",
}

// ValidationError is a single field-level problem with a proposal.
type ValidationError struct {
	Field   string `json:"field"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// NewError builds the error for code with its standard message.
func NewError(field string, code Code) ValidationError {
	return ValidationError{Field: field, Code: code, Message: messages[code]}
}

// ValidationErrors collects every problem found in one proposal.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Code)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e ValidationErrors) Has(code Code) bool {
	for _, v := range e {
		if v.Code == code {
			return true
		}
	}
	return false
}

func (e ValidationErrors) Codes() []Code {
	codes := make([]Code, len(e))
	for i, v := range e {
		codes[i] = v.Code
	}
	return codes
}

// ByField groups messages per field for form rendering.
func (e ValidationErrors) ByField() map[string][]string {
	out := make(map[string][]string, len(e))
	for _, v := range e {
		out[v.Field] = append(out[v.Field], v.Message)
	}
	return out
}

func (e *ValidationErrors) add(field string, code Code) {
	*e = append(*e, NewError(field, code))
}
