package lifecycle

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"taskpanel/internal/model"
)

const MinPasswordLength = 6

var validate = validator.New()

// UserProposal is the submitted state of a user record from the create or
// edit form.
type UserProposal struct {
	Username string
	Email    string
	Role     model.Role
	// AssignedAdmin is the resolved admin, nil when none was chosen.
	AssignedAdmin *model.User
	Password      string
	Creating      bool
}

// CheckUser enforces the account rules: a single level of admin assignment,
// only Users may be assigned, and the assigned principal must be an Admin.
func CheckUser(prop UserProposal) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(prop.Username) == "" {
		errs.add("username", CodeUsernameRequired)
	}
	if prop.Email != "" {
		if err := validate.Var(prop.Email, "email"); err != nil {
			errs.add("email", CodeEmailInvalid)
		}
	}
	if prop.Creating && prop.Password == "" {
		errs.add("password", CodePasswordRequired)
	} else if prop.Password != "" && len(prop.Password) < MinPasswordLength {
		errs.add("password", CodePasswordTooShort)
	}
	if !prop.Role.Valid() {
		errs.add("role", CodeRoleInvalid)
	}
	if prop.AssignedAdmin != nil {
		switch {
		case prop.Role != model.RoleUser:
			errs.add("assigned_admin", CodeAssignmentNotAllowed)
		case prop.AssignedAdmin.Role != model.RoleAdmin:
			errs.add("assigned_admin", CodeAdminRequired)
		}
	}

	return errs
}
