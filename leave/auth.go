package leave

import "slices"

// Actor is the authenticated caller, supplied by the auth collaborator.
type Actor struct {
	ID   string
	Name string
	Role Role
}

// SystemActor is used for scheduled jobs and seeding.
var SystemActor = Actor{ID: "system", Name: "System", Role: RoleHRAdmin}

func (a Actor) IsHR() bool { return a.Role == RoleHRAdmin }

// require fails unless the actor holds one of roles.
func (a Actor) require(action string, roles ...Role) error {
	if a.ID == "" {
		return &AuthorizationError{Role: a.Role, Action: action, Reason: "no actor identity"}
	}
	if !slices.Contains(roles, a.Role) {
		return &AuthorizationError{ActorID: a.ID, Role: a.Role, Action: action}
	}
	return nil
}

func (a Actor) requireHR(action string) error { return a.require(action, RoleHRAdmin) }

// requireApprover checks that a may act on stage for the request's employee.
// The role must match the stage; when the employee names a team lead or
// manager, only that person may act on the matching stage.
func (a Actor) requireApprover(stage Stage, requester *Employee) error {
	action := "act on stage " + string(stage)
	role, ok := stage.ApproverRole()
	if !ok {
		return &ValidationError{Field: "stage", Message: "stage " + string(stage) + " has no approver"}
	}
	if err := a.require(action, role); err != nil {
		return err
	}
	if requester == nil {
		return nil
	}
	if a.ID == requester.ID {
		return &AuthorizationError{ActorID: a.ID, Role: a.Role, Action: action, Reason: "cannot approve own request"}
	}
	switch stage {
	case StageTeamLead:
		if requester.TeamLeadID != "" && requester.TeamLeadID != a.ID {
			return &AuthorizationError{ActorID: a.ID, Role: a.Role, Action: action, Reason: "not the assigned team lead"}
		}
	case StageManager:
		if requester.ManagerID != "" && requester.ManagerID != a.ID {
			return &AuthorizationError{ActorID: a.ID, Role: a.Role, Action: action, Reason: "not the assigned manager"}
		}
	case StageDirector, StageCompleted:
	}
	return nil
}
