package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// POLICIES
// =============================================================================

const policyColumns = `id, leave_type, name, annual_quota, carry_forward, max_carry_forward,
	allow_negative, description, version, created_at, updated_at`

func (r reader) GetPolicy(ctx context.Context, id string) (*leave.Policy, error) {
	p, err := scanPolicy(r.queryRow(ctx, `SELECT `+policyColumns+` FROM policies WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &leave.NotFoundError{Entity: "policy", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return p, nil
}

func (r reader) GetPolicyByType(ctx context.Context, lt leave.LeaveType) (*leave.Policy, error) {
	p, err := scanPolicy(r.queryRow(ctx, `SELECT `+policyColumns+` FROM policies WHERE leave_type = ?`, string(lt)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &leave.NotFoundError{Entity: "policy", ID: string(lt)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return p, nil
}

func (r reader) ListPolicies(ctx context.Context) ([]leave.Policy, error) {
	rows, err := r.query(ctx, `SELECT `+policyColumns+` FROM policies ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	defer rows.Close()

	var out []leave.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (tx *txStore) InsertPolicy(ctx context.Context, p *leave.Policy) error {
	_, err := tx.exec(ctx, `
		INSERT INTO policies (`+policyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, string(p.LeaveType), p.Name, p.AnnualQuota.HalfDays(), p.CarryForward, p.MaxCarryForward.HalfDays(),
		p.AllowNegative, p.Description, 1, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if isUniqueConstraintError(err) {
		if strings.Contains(err.Error(), "leave_type") {
			return &leave.ConflictError{Entity: "policy", ID: p.ID, Reason: "leave type " + string(p.LeaveType) + " already has a policy"}
		}
		return &leave.ConflictError{Entity: "policy", ID: p.ID, Reason: "already exists"}
	}
	if err != nil {
		return fmt.Errorf("failed to insert policy: %w", err)
	}
	p.Version = 1
	return nil
}

func (tx *txStore) UpdatePolicy(ctx context.Context, p *leave.Policy) error {
	res, err := tx.exec(ctx, `
		UPDATE policies SET name = ?, annual_quota = ?, carry_forward = ?, max_carry_forward = ?,
			allow_negative = ?, description = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		p.Name, p.AnnualQuota.HalfDays(), p.CarryForward, p.MaxCarryForward.HalfDays(),
		p.AllowNegative, p.Description, formatTime(p.UpdatedAt), p.ID, p.Version)
	if err != nil {
		return fmt.Errorf("failed to update policy: %w", err)
	}
	if err := tx.checkVersioned(ctx, res, "policies", "policy", p.ID); err != nil {
		return err
	}
	p.Version++
	return nil
}

func (tx *txStore) DeletePolicy(ctx context.Context, id string) error {
	res, err := tx.exec(ctx, `DELETE FROM policies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}
	return checkAffected(res, "policy", id)
}

func scanPolicy(s scanner) (*leave.Policy, error) {
	var (
		p                leave.Policy
		lt               string
		quota, maxCarry  int64
		created, updated string
	)
	err := s.Scan(&p.ID, &lt, &p.Name, &quota, &p.CarryForward, &maxCarry,
		&p.AllowNegative, &p.Description, &p.Version, &created, &updated)
	if err != nil {
		return nil, err
	}
	p.LeaveType = leave.LeaveType(lt)
	p.AnnualQuota, p.MaxCarryForward = leave.HalfDays(quota), leave.HalfDays(maxCarry)
	if p.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &p, nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (r reader) GetHoliday(ctx context.Context, id string) (*leave.Holiday, error) {
	h, err := scanHoliday(r.queryRow(ctx, `SELECT id, holiday_date, name, kind, created_at FROM holidays WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &leave.NotFoundError{Entity: "holiday", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holiday: %w", err)
	}
	return h, nil
}

// ListHolidays returns holidays between from and to inclusive, ordered by
// date then name. A zero bound is open.
func (r reader) ListHolidays(ctx context.Context, from, to time.Time) ([]leave.Holiday, error) {
	var w where
	if !from.IsZero() {
		w.add("holiday_date >= ?", formatDate(leave.DateOf(from)))
	}
	if !to.IsZero() {
		w.add("holiday_date <= ?", formatDate(leave.DateOf(to)))
	}
	rows, err := r.query(ctx, `SELECT id, holiday_date, name, kind, created_at FROM holidays`+w.String()+` ORDER BY holiday_date, name`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	defer rows.Close()

	var out []leave.Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

func (tx *txStore) InsertHoliday(ctx context.Context, h *leave.Holiday) error {
	_, err := tx.exec(ctx, `INSERT INTO holidays (id, holiday_date, name, kind, created_at) VALUES (?, ?, ?, ?, ?)`,
		h.ID, formatDate(h.Date), h.Name, string(h.Kind), formatTime(h.CreatedAt))
	if isUniqueConstraintError(err) {
		return &leave.ConflictError{Entity: "holiday", ID: h.ID, Reason: "already exists"}
	}
	if err != nil {
		return fmt.Errorf("failed to insert holiday: %w", err)
	}
	return nil
}

func (tx *txStore) UpdateHoliday(ctx context.Context, h *leave.Holiday) error {
	res, err := tx.exec(ctx, `UPDATE holidays SET holiday_date = ?, name = ?, kind = ? WHERE id = ?`,
		formatDate(h.Date), h.Name, string(h.Kind), h.ID)
	if err != nil {
		return fmt.Errorf("failed to update holiday: %w", err)
	}
	return checkAffected(res, "holiday", h.ID)
}

func (tx *txStore) DeleteHoliday(ctx context.Context, id string) error {
	res, err := tx.exec(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	return checkAffected(res, "holiday", id)
}

func scanHoliday(s scanner) (*leave.Holiday, error) {
	var (
		h                  leave.Holiday
		day, kind, created string
	)
	if err := s.Scan(&h.ID, &day, &h.Name, &kind, &created); err != nil {
		return nil, err
	}
	h.Kind = leave.HolidayKind(kind)
	var err error
	if h.Date, err = parseDate(day); err != nil {
		return nil, err
	}
	if h.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &h, nil
}
