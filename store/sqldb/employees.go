package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeColumns = `id, name, email, role, department, team_id, manager_id, team_lead_id,
	join_date, status, version, created_at, updated_at`

func (r reader) GetEmployee(ctx context.Context, id string) (*leave.Employee, error) {
	row := r.queryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &leave.NotFoundError{Entity: "employee", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	if e.LeaveBalance, err = r.balanceMap(ctx, id); err != nil {
		return nil, err
	}
	return e, nil
}

func (r reader) ListEmployees(ctx context.Context, f leave.EmployeeFilter) ([]leave.Employee, error) {
	var w where
	if f.Department != "" {
		w.add("department = ?", f.Department)
	}
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.Role != "" {
		w.add("role = ?", string(f.Role))
	}

	rows, err := r.query(ctx, `SELECT `+employeeColumns+` FROM employees`+w.String()+` ORDER BY created_at, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var out []leave.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	all, err := r.allBalances(ctx)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].LeaveBalance = all[out[i].ID]
		if out[i].LeaveBalance == nil {
			out[i].LeaveBalance = map[leave.LeaveType]leave.Days{}
		}
	}
	return out, nil
}

func (r reader) EmployeeChanges(ctx context.Context, employeeID string) ([]leave.EmployeeChange, error) {
	rows, err := r.query(ctx, `
		SELECT id, employee_id, field, old_value, new_value, changed_by, reason, created_at
		FROM employee_changes WHERE employee_id = ? ORDER BY created_at, id`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list employee changes: %w", err)
	}
	defer rows.Close()

	var out []leave.EmployeeChange
	for rows.Next() {
		var (
			c       leave.EmployeeChange
			field   string
			created string
		)
		if err := rows.Scan(&c.ID, &c.EmployeeID, &field, &c.OldValue, &c.NewValue, &c.ChangedBy, &c.Reason, &created); err != nil {
			return nil, err
		}
		c.Field = leave.ChangeField(field)
		if c.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (tx *txStore) InsertEmployee(ctx context.Context, e *leave.Employee) error {
	_, err := tx.exec(ctx, `
		INSERT INTO employees (`+employeeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Email, string(e.Role), e.Department,
		nullString(e.TeamID), nullString(e.ManagerID), nullString(e.TeamLeadID),
		formatDate(e.JoinDate), string(e.Status), 1, formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if isUniqueConstraintError(err) {
		return &leave.ConflictError{Entity: "employee", ID: e.ID, Reason: "already exists"}
	}
	if err != nil {
		return fmt.Errorf("failed to insert employee: %w", err)
	}
	e.Version = 1
	return nil
}

func (tx *txStore) UpdateEmployee(ctx context.Context, e *leave.Employee) error {
	res, err := tx.exec(ctx, `
		UPDATE employees SET name = ?, email = ?, role = ?, department = ?, team_id = ?,
			manager_id = ?, team_lead_id = ?, join_date = ?, status = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		e.Name, e.Email, string(e.Role), e.Department, nullString(e.TeamID),
		nullString(e.ManagerID), nullString(e.TeamLeadID), formatDate(e.JoinDate), string(e.Status),
		formatTime(e.UpdatedAt), e.ID, e.Version)
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}
	if err := tx.checkVersioned(ctx, res, "employees", "employee", e.ID); err != nil {
		return err
	}
	e.Version++
	return nil
}

func (tx *txStore) AppendEmployeeChange(ctx context.Context, c leave.EmployeeChange) error {
	_, err := tx.exec(ctx, `
		INSERT INTO employee_changes (id, employee_id, field, old_value, new_value, changed_by, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.EmployeeID, string(c.Field), c.OldValue, c.NewValue, c.ChangedBy, c.Reason, formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append employee change: %w", err)
	}
	return nil
}

func scanEmployee(s scanner) (*leave.Employee, error) {
	var (
		e                           leave.Employee
		role, status                string
		teamID, managerID, teamLead sql.NullString
		joinDate, created, updated  string
	)
	err := s.Scan(&e.ID, &e.Name, &e.Email, &role, &e.Department, &teamID, &managerID, &teamLead,
		&joinDate, &status, &e.Version, &created, &updated)
	if err != nil {
		return nil, err
	}
	e.Role = leave.Role(role)
	e.Status = leave.EmployeeStatus(status)
	e.TeamID = teamID.String
	e.ManagerID = managerID.String
	e.TeamLeadID = teamLead.String
	if e.JoinDate, err = parseDate(joinDate); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &e, nil
}
