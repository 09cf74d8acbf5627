package leave

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
)

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

// Directory owns employee records. Employees are never deleted, only
// deactivated. Balances are read through the Ledger; the Directory never
// writes them except through ledger-mediated opening entries.
type Directory struct {
	*core
	audit  *AuditLog
	ledger *Ledger
}

// NewEmployee is the input to Add. ID is optional; one is assigned when empty.
type NewEmployee struct {
	ID         string
	Name       string
	Email      string
	Role       Role
	Department string
	TeamID     string
	ManagerID  string
	TeamLeadID string
	JoinDate   string
}

// Add creates an employee and opens a balance per defined policy.
func (d *Directory) Add(ctx context.Context, actor Actor, in NewEmployee) (*Employee, error) {
	if err := actor.requireHR("add employee"); err != nil {
		return nil, err
	}
	now := d.now()
	emp := Employee{
		ID:         strings.TrimSpace(in.ID),
		Name:       strings.TrimSpace(in.Name),
		Email:      strings.TrimSpace(in.Email),
		Role:       in.Role,
		Department: strings.TrimSpace(in.Department),
		TeamID:     in.TeamID,
		ManagerID:  in.ManagerID,
		TeamLeadID: in.TeamLeadID,
		Status:     EmployeeActive,
		JoinDate:   DateOf(now),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if emp.Role == "" {
		emp.Role = RoleEmployee
	}
	if in.JoinDate != "" {
		jd, err := ParseDate(in.JoinDate)
		if err != nil {
			return nil, err
		}
		emp.JoinDate = jd
	}
	if err := validateEmployee(&emp); err != nil {
		return nil, err
	}
	if emp.ID == "" {
		emp.ID = newID("emp")
	}

	err := d.store.WithTx(ctx, func(repo Repository) error {
		if _, err := repo.GetEmployee(ctx, emp.ID); err == nil {
			return &ConflictError{Entity: "employee", ID: emp.ID, Reason: "already exists"}
		} else if !IsNotFound(err) {
			return err
		}
		if err := checkReferences(ctx, repo, &emp); err != nil {
			return err
		}
		if err := repo.InsertEmployee(ctx, &emp); err != nil {
			return err
		}

		policies, err := repo.ListPolicies(ctx)
		if err != nil {
			return err
		}
		emp.LeaveBalance = make(map[LeaveType]Days, len(policies))
		for i := range policies {
			if err := d.ledger.open(ctx, repo, emp.ID, &policies[i], actor.ID); err != nil {
				return err
			}
			emp.LeaveBalance[policies[i].LeaveType] = policies[i].AnnualQuota
		}

		_, err = d.audit.Record(ctx, repo, AuditRecord{
			Action:      AuditEmployeeAdd,
			EntityType:  EntityEmployee,
			EntityID:    emp.ID,
			ActorID:     actor.ID,
			After:       emp,
			Description: "New employee added: " + emp.Name,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	d.log(ctx).Info().Str("employee_id", emp.ID).Str("role", string(emp.Role)).Msg("employee added")
	return &emp, nil
}

// EmployeeUpdate holds the fields to change. Balances cannot be changed here.
type EmployeeUpdate struct {
	Name       *string
	Email      *string
	Role       *Role
	Department *string
	TeamID     *string
	ManagerID  *string
	TeamLeadID *string
	Status     *EmployeeStatus
}

// Update applies upd. Changes to role, status, department or manager append
// EmployeeChange records; every call appends an audit entry.
func (d *Directory) Update(ctx context.Context, actor Actor, id string, upd EmployeeUpdate, reason string) (*Employee, error) {
	if err := actor.requireHR("update employee"); err != nil {
		return nil, err
	}

	var updated Employee
	err := d.store.WithTx(ctx, func(repo Repository) error {
		current, err := repo.GetEmployee(ctx, id)
		if err != nil {
			return err
		}
		before := *current
		next := *current
		applyEmployeeUpdate(&next, upd)
		if err := validateEmployee(&next); err != nil {
			return err
		}
		if err := checkReferences(ctx, repo, &next); err != nil {
			return err
		}
		next.UpdatedAt = d.now()

		for _, ch := range diffEmployee(&before, &next) {
			ch.ID = newID("chg")
			ch.EmployeeID = id
			ch.ChangedBy = actor.ID
			ch.Reason = reason
			ch.CreatedAt = next.UpdatedAt
			if err := repo.AppendEmployeeChange(ctx, ch); err != nil {
				return fmt.Errorf("failed to append employee change: %w", err)
			}
		}
		if err := repo.UpdateEmployee(ctx, &next); err != nil {
			return err
		}
		updated = next

		desc := "Employee updated: " + next.Name
		if reason != "" {
			desc += " (" + reason + ")"
		}
		_, err = d.audit.Record(ctx, repo, AuditRecord{
			Action:      AuditEmployeeUpdate,
			EntityType:  EntityEmployee,
			EntityID:    id,
			ActorID:     actor.ID,
			Before:      withoutBalance(before),
			After:       withoutBalance(next),
			Description: desc,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Deactivate flips status to inactive. Balances and history are kept.
func (d *Directory) Deactivate(ctx context.Context, actor Actor, id, reason string) (*Employee, error) {
	s := EmployeeInactive
	return d.Update(ctx, actor, id, EmployeeUpdate{Status: &s}, reason)
}

func (d *Directory) Activate(ctx context.Context, actor Actor, id string) (*Employee, error) {
	s := EmployeeActive
	return d.Update(ctx, actor, id, EmployeeUpdate{Status: &s}, "")
}

// Get returns the employee with its current balances.
func (d *Directory) Get(ctx context.Context, id string) (*Employee, error) {
	return d.store.GetEmployee(ctx, id)
}

func (d *Directory) List(ctx context.Context, filter EmployeeFilter) ([]Employee, error) {
	return d.store.ListEmployees(ctx, filter)
}

// History returns the field-level change history of an employee.
func (d *Directory) History(ctx context.Context, id string) ([]EmployeeChange, error) {
	if _, err := d.store.GetEmployee(ctx, id); err != nil {
		return nil, err
	}
	return d.store.EmployeeChanges(ctx, id)
}

func applyEmployeeUpdate(e *Employee, upd EmployeeUpdate) {
	if upd.Name != nil {
		e.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Email != nil {
		e.Email = strings.TrimSpace(*upd.Email)
	}
	if upd.Role != nil {
		e.Role = *upd.Role
	}
	if upd.Department != nil {
		e.Department = strings.TrimSpace(*upd.Department)
	}
	if upd.TeamID != nil {
		e.TeamID = *upd.TeamID
	}
	if upd.ManagerID != nil {
		e.ManagerID = *upd.ManagerID
	}
	if upd.TeamLeadID != nil {
		e.TeamLeadID = *upd.TeamLeadID
	}
	if upd.Status != nil {
		e.Status = *upd.Status
	}
}

func diffEmployee(before, after *Employee) []EmployeeChange {
	var out []EmployeeChange
	add := func(f ChangeField, o, n string) {
		if o != n {
			out = append(out, EmployeeChange{Field: f, OldValue: o, NewValue: n})
		}
	}
	add(ChangeRole, string(before.Role), string(after.Role))
	add(ChangeStatus, string(before.Status), string(after.Status))
	add(ChangeDepartment, before.Department, after.Department)
	add(ChangeManager, before.ManagerID, after.ManagerID)
	return out
}

func withoutBalance(e Employee) Employee {
	e.LeaveBalance = nil
	return e
}

func validateEmployee(e *Employee) error {
	if e.Name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if e.Email != "" {
		if _, err := mail.ParseAddress(e.Email); err != nil {
			return &ValidationError{Field: "email", Message: fmt.Sprintf("%q is not a valid address", e.Email)}
		}
	}
	if !e.Role.Valid() {
		return &ValidationError{Field: "role", Message: fmt.Sprintf("%q is not a valid role", e.Role)}
	}
	if e.Department == "" {
		return &ValidationError{Field: "department", Message: "is required"}
	}
	if !e.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("%q is not active or inactive", e.Status)}
	}
	if e.ID != "" && (e.ManagerID == e.ID || e.TeamLeadID == e.ID) {
		return &ValidationError{Field: "manager_id", Message: "an employee cannot report to themselves"}
	}
	return nil
}

// checkReferences resolves the weak manager/team lead references.
func checkReferences(ctx context.Context, repo Reader, e *Employee) error {
	for _, ref := range []string{e.ManagerID, e.TeamLeadID} {
		if ref == "" {
			continue
		}
		if _, err := repo.GetEmployee(ctx, ref); err != nil {
			return err
		}
	}
	return nil
}
