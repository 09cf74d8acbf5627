package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// BALANCES
// =============================================================================

func (r reader) GetBalance(ctx context.Context, employeeID string, lt leave.LeaveType) (*leave.Balance, error) {
	row := r.queryRow(ctx, `
		SELECT employee_id, leave_type, half_days, version, updated_at
		FROM balances WHERE employee_id = ? AND leave_type = ?`, employeeID, string(lt))
	b, err := scanBalance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &leave.NotFoundError{Entity: "balance", ID: employeeID + ":" + string(lt)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return b, nil
}

func (r reader) ListBalances(ctx context.Context, employeeID string) ([]leave.Balance, error) {
	rows, err := r.query(ctx, `
		SELECT employee_id, leave_type, half_days, version, updated_at
		FROM balances WHERE employee_id = ? ORDER BY leave_type`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var out []leave.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r reader) balanceMap(ctx context.Context, employeeID string) (map[leave.LeaveType]leave.Days, error) {
	list, err := r.ListBalances(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	out := make(map[leave.LeaveType]leave.Days, len(list))
	for _, b := range list {
		out[b.LeaveType] = b.Days
	}
	return out, nil
}

// allBalances groups every balance by employee for list reads.
func (r reader) allBalances(ctx context.Context) (map[string]map[leave.LeaveType]leave.Days, error) {
	rows, err := r.query(ctx, `SELECT employee_id, leave_type, half_days FROM balances`)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	out := map[string]map[leave.LeaveType]leave.Days{}
	for rows.Next() {
		var (
			employeeID, lt string
			halfDays       int64
		)
		if err := rows.Scan(&employeeID, &lt, &halfDays); err != nil {
			return nil, err
		}
		if out[employeeID] == nil {
			out[employeeID] = map[leave.LeaveType]leave.Days{}
		}
		out[employeeID][leave.LeaveType(lt)] = leave.HalfDays(halfDays)
	}
	return out, rows.Err()
}

// PutBalance inserts when b.Version is 0, otherwise updates under the
// version check.
func (tx *txStore) PutBalance(ctx context.Context, b *leave.Balance) error {
	id := b.EmployeeID + ":" + string(b.LeaveType)
	if b.Version == 0 {
		_, err := tx.exec(ctx, `
			INSERT INTO balances (employee_id, leave_type, half_days, version, updated_at)
			VALUES (?, ?, ?, 1, ?)`,
			b.EmployeeID, string(b.LeaveType), b.Days.HalfDays(), formatTime(b.UpdatedAt))
		if isUniqueConstraintError(err) {
			return fmt.Errorf("balance %s: %w", id, leave.ErrConcurrentModification)
		}
		if err != nil {
			return fmt.Errorf("failed to insert balance: %w", err)
		}
		b.Version = 1
		return nil
	}

	res, err := tx.exec(ctx, `
		UPDATE balances SET half_days = ?, version = version + 1, updated_at = ?
		WHERE employee_id = ? AND leave_type = ? AND version = ?`,
		b.Days.HalfDays(), formatTime(b.UpdatedAt), b.EmployeeID, string(b.LeaveType), b.Version)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("balance %s: %w", id, leave.ErrConcurrentModification)
	}
	b.Version++
	return nil
}

func scanBalance(s scanner) (*leave.Balance, error) {
	var (
		b           leave.Balance
		lt, updated string
		halfDays    int64
	)
	if err := s.Scan(&b.EmployeeID, &lt, &halfDays, &b.Version, &updated); err != nil {
		return nil, err
	}
	b.LeaveType = leave.LeaveType(lt)
	b.Days = leave.HalfDays(halfDays)
	var err error
	if b.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &b, nil
}

// =============================================================================
// LEDGER (append-only)
// =============================================================================

func (r reader) LedgerEntries(ctx context.Context, f leave.LedgerFilter) ([]leave.LedgerEntry, error) {
	var w where
	if f.EmployeeID != "" {
		w.add("employee_id = ?", f.EmployeeID)
	}
	if f.LeaveType != "" {
		w.add("leave_type = ?", string(f.LeaveType))
	}
	if f.Kind != "" {
		w.add("kind = ?", string(f.Kind))
	}
	if f.ReferenceID != "" {
		w.add("reference_id = ?", f.ReferenceID)
	}

	rows, err := r.query(ctx, `
		SELECT id, employee_id, leave_type, kind, delta, before_days, after_days,
			reference_id, reason, actor_id, created_at
		FROM ledger_entries`+w.String()+` ORDER BY created_at, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var out []leave.LedgerEntry
	for rows.Next() {
		var (
			e                    leave.LedgerEntry
			lt, kind, created    string
			ref                  sql.NullString
			delta, before, after int64
		)
		if err := rows.Scan(&e.ID, &e.EmployeeID, &lt, &kind, &delta, &before, &after,
			&ref, &e.Reason, &e.ActorID, &created); err != nil {
			return nil, err
		}
		e.LeaveType = leave.LeaveType(lt)
		e.Kind = leave.LedgerKind(kind)
		e.Delta, e.Before, e.After = leave.HalfDays(delta), leave.HalfDays(before), leave.HalfDays(after)
		e.ReferenceID = ref.String
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (tx *txStore) AppendLedgerEntry(ctx context.Context, e leave.LedgerEntry) error {
	_, err := tx.exec(ctx, `
		INSERT INTO ledger_entries (id, employee_id, leave_type, kind, delta, before_days, after_days,
			reference_id, reason, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.EmployeeID, string(e.LeaveType), string(e.Kind),
		e.Delta.HalfDays(), e.Before.HalfDays(), e.After.HalfDays(),
		nullString(e.ReferenceID), e.Reason, e.ActorID, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// =============================================================================
// ADJUSTMENTS (append-only)
// =============================================================================

func (r reader) Adjustments(ctx context.Context, employeeID string) ([]leave.Adjustment, error) {
	var w where
	if employeeID != "" {
		w.add("employee_id = ?", employeeID)
	}
	rows, err := r.query(ctx, `
		SELECT id, employee_id, employee_name, leave_type, kind, days, reason,
			actor_id, actor_name, previous_balance, new_balance, created_at
		FROM adjustments`+w.String()+` ORDER BY created_at, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list adjustments: %w", err)
	}
	defer rows.Close()

	var out []leave.Adjustment
	for rows.Next() {
		var (
			a                    leave.Adjustment
			lt, kind, created    string
			days, previous, next int64
		)
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.EmployeeName, &lt, &kind, &days, &a.Reason,
			&a.ActorID, &a.ActorName, &previous, &next, &created); err != nil {
			return nil, err
		}
		a.LeaveType = leave.LeaveType(lt)
		a.Kind = leave.AdjustmentKind(kind)
		a.Days = leave.HalfDays(days)
		a.PreviousBalance, a.NewBalance = leave.HalfDays(previous), leave.HalfDays(next)
		if a.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (tx *txStore) AppendAdjustment(ctx context.Context, a leave.Adjustment) error {
	_, err := tx.exec(ctx, `
		INSERT INTO adjustments (id, employee_id, employee_name, leave_type, kind, days, reason,
			actor_id, actor_name, previous_balance, new_balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.EmployeeID, a.EmployeeName, string(a.LeaveType), string(a.Kind), a.Days.HalfDays(), a.Reason,
		a.ActorID, a.ActorName, a.PreviousBalance.HalfDays(), a.NewBalance.HalfDays(), formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append adjustment: %w", err)
	}
	return nil
}
