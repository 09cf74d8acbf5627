/*
ledger.go - Leave balance ledger

PURPOSE:
  The Ledger is the only writer of balance values. Every change writes the new
  Balance and appends a LedgerEntry with before/after values in the same
  transaction, so the balance is always reconstructible by replaying entries:

    opening +12 -> request_debit -2 -> request_release +2 -> adjustment -1

  Replay(emp, casual) == sum of deltas == current balance.

OPERATIONS:
  ReserveOrDebit  request-driven debit at submission (checks balance)
  Release         reverses a request debit on rejection or cancellation
  Adjust          HR manual credit/debit with mandatory reason
  ResetYear       year-end carry forward
  open            opening balance for a new employee or policy (internal)

NEGATIVE BALANCES:
  Request debits fail with InsufficientBalanceError unless the governing
  policy sets AllowNegative. Debit adjustments never take a balance below
  zero; they are clamped, and the adjustment records what was applied.

SEE ALSO:
  - workflow.go: calls ReserveOrDebit/Release inside its transactions
  - store.go: PutBalance optimistic versioning
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Ledger struct {
	*core
	audit *AuditLog
}

// =============================================================================
// REQUEST-DRIVEN OPERATIONS (run inside the caller's transaction)
// =============================================================================

// Movement describes a request-driven balance change.
type Movement struct {
	EmployeeID  string
	LeaveType   LeaveType
	Amount      Days
	ReferenceID string
	ActorID     string
	Reason      string
}

// ReserveOrDebit debits m.Amount from the employee's balance and returns the
// new balance. It fails with InsufficientBalanceError when the balance is too
// low and the policy does not allow negative balances.
func (l *Ledger) ReserveOrDebit(ctx context.Context, repo Repository, m Movement) (Days, error) {
	if !m.Amount.IsPositive() {
		return 0, &ValidationError{Field: "amount", Message: "debit must be positive"}
	}
	if _, err := repo.GetEmployee(ctx, m.EmployeeID); err != nil {
		return 0, err
	}
	policy, err := repo.GetPolicyByType(ctx, m.LeaveType)
	if err != nil {
		return 0, err
	}
	bal, err := l.loadBalance(ctx, repo, m.EmployeeID, m.LeaveType)
	if err != nil {
		return 0, err
	}
	if bal.Days < m.Amount && !policy.AllowNegative {
		return 0, &InsufficientBalanceError{
			EmployeeID: m.EmployeeID,
			LeaveType:  m.LeaveType,
			Available:  bal.Days,
			Requested:  m.Amount,
		}
	}
	entry, err := l.apply(ctx, repo, bal, m.Amount.Neg(), LedgerRequestDebit, m)
	if err != nil {
		return 0, err
	}
	return entry.After, nil
}

// Release credits back a prior request debit and returns the new balance.
func (l *Ledger) Release(ctx context.Context, repo Repository, m Movement) (Days, error) {
	if !m.Amount.IsPositive() {
		return 0, &ValidationError{Field: "amount", Message: "release must be positive"}
	}
	if _, err := repo.GetEmployee(ctx, m.EmployeeID); err != nil {
		return 0, err
	}
	bal, err := l.loadBalance(ctx, repo, m.EmployeeID, m.LeaveType)
	if err != nil {
		return 0, err
	}
	entry, err := l.apply(ctx, repo, bal, m.Amount, LedgerRequestRelease, m)
	if err != nil {
		return 0, err
	}
	return entry.After, nil
}

// open seeds a balance for a new employee or a newly defined leave type.
// Existing balances are left untouched.
func (l *Ledger) open(ctx context.Context, repo Repository, employeeID string, policy *Policy, actorID string) error {
	_, err := repo.GetBalance(ctx, employeeID, policy.LeaveType)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	bal := &Balance{EmployeeID: employeeID, LeaveType: policy.LeaveType}
	_, err = l.apply(ctx, repo, bal, policy.AnnualQuota, LedgerOpening, Movement{
		EmployeeID:  employeeID,
		LeaveType:   policy.LeaveType,
		ReferenceID: policy.ID,
		ActorID:     actorID,
		Reason:      "opening balance from " + policy.Name,
	})
	return err
}

// loadBalance returns the stored balance or a zero, unsaved one.
func (l *Ledger) loadBalance(ctx context.Context, repo Reader, employeeID string, lt LeaveType) (*Balance, error) {
	bal, err := repo.GetBalance(ctx, employeeID, lt)
	if errors.Is(err, ErrNotFound) {
		return &Balance{EmployeeID: employeeID, LeaveType: lt}, nil
	}
	return bal, err
}

// apply writes bal+delta and the matching ledger entry.
func (l *Ledger) apply(ctx context.Context, repo Repository, bal *Balance, delta Days, kind LedgerKind, m Movement) (*LedgerEntry, error) {
	now := l.now()
	entry := LedgerEntry{
		ID:          newID("led"),
		EmployeeID:  bal.EmployeeID,
		LeaveType:   bal.LeaveType,
		Kind:        kind,
		Delta:       delta,
		Before:      bal.Days,
		After:       bal.Days + delta,
		ReferenceID: m.ReferenceID,
		Reason:      m.Reason,
		ActorID:     m.ActorID,
		CreatedAt:   now,
	}

	bal.Days = entry.After
	bal.UpdatedAt = now
	if err := repo.PutBalance(ctx, bal); err != nil {
		return nil, fmt.Errorf("failed to write balance: %w", err)
	}
	if err := repo.AppendLedgerEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	l.log(ctx).Debug().
		Str("employee_id", entry.EmployeeID).
		Str("leave_type", string(entry.LeaveType)).
		Str("kind", string(kind)).
		Str("delta", delta.String()).
		Str("balance", entry.After.String()).
		Msg("ledger entry appended")
	return &entry, nil
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

// AdjustmentInput is an HR manual balance change. Delta is signed.
type AdjustmentInput struct {
	EmployeeID string
	LeaveType  LeaveType
	Delta      Days
	Reason     string
}

// Adjust applies an HR adjustment. A debit never takes the balance below
// zero. It appends an Adjustment, a ledger entry and an audit entry.
func (l *Ledger) Adjust(ctx context.Context, actor Actor, in AdjustmentInput) (*Adjustment, error) {
	if err := actor.requireHR("adjust leave balance"); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Message: "is required"}
	}
	if in.Delta.IsZero() {
		return nil, &ValidationError{Field: "days", Message: "must not be zero"}
	}

	var adj Adjustment
	err := l.store.WithTx(ctx, func(repo Repository) error {
		emp, err := repo.GetEmployee(ctx, in.EmployeeID)
		if err != nil {
			return err
		}
		if !emp.Active() {
			return &ConflictError{Entity: "employee", ID: emp.ID, Reason: "inactive, balance is frozen"}
		}
		if _, err := repo.GetPolicyByType(ctx, in.LeaveType); err != nil {
			return err
		}
		bal, err := l.loadBalance(ctx, repo, emp.ID, in.LeaveType)
		if err != nil {
			return err
		}

		previous := bal.Days
		target := previous + in.Delta
		if in.Delta.IsNegative() && target.IsNegative() {
			target = min(previous, 0)
		}

		kind := AdjustmentCredit
		if in.Delta.IsNegative() {
			kind = AdjustmentDebit
		}
		adj = Adjustment{
			ID:              newID("adj"),
			EmployeeID:      emp.ID,
			EmployeeName:    emp.Name,
			LeaveType:       in.LeaveType,
			Kind:            kind,
			Days:            in.Delta.Abs(),
			Reason:          reason,
			ActorID:         actor.ID,
			ActorName:       actor.Name,
			PreviousBalance: previous,
			NewBalance:      target,
			CreatedAt:       l.now(),
		}

		if _, err := l.apply(ctx, repo, bal, target-previous, LedgerAdjustment, Movement{
			EmployeeID:  emp.ID,
			LeaveType:   in.LeaveType,
			ReferenceID: adj.ID,
			ActorID:     actor.ID,
			Reason:      reason,
		}); err != nil {
			return err
		}
		if err := repo.AppendAdjustment(ctx, adj); err != nil {
			return fmt.Errorf("failed to append adjustment: %w", err)
		}

		sign := "+"
		if kind == AdjustmentDebit {
			sign = "-"
		}
		_, err = l.audit.Record(ctx, repo, AuditRecord{
			Action:      AuditAdjustment,
			EntityType:  EntityBalance,
			EntityID:    balanceEntityID(emp.ID, in.LeaveType),
			ActorID:     actor.ID,
			Before:      map[string]any{"balance": previous},
			After:       map[string]any{"balance": target, "days": in.Delta, "reason": reason, "adjustment_id": adj.ID},
			Description: fmt.Sprintf("Leave adjustment for %s: %s%s %s (%s)", emp.Name, sign, adj.Days, in.LeaveType, reason),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	l.log(ctx).Info().
		Str("employee_id", adj.EmployeeID).
		Str("leave_type", string(adj.LeaveType)).
		Str("previous", adj.PreviousBalance.String()).
		Str("new", adj.NewBalance.String()).
		Msg("leave balance adjusted")
	return &adj, nil
}

func balanceEntityID(employeeID string, lt LeaveType) string {
	return employeeID + ":" + string(lt)
}

// =============================================================================
// YEAR-END CARRY FORWARD
// =============================================================================

// YearResetSummary reports what ResetYear did.
type YearResetSummary struct {
	Year    int
	Reset   int
	Skipped int
}

// ResetYear opens leave year `year` for every active employee: each balance
// becomes the annual quota plus the unused balance, capped at the policy's
// MaxCarryForward when carry forward is enabled. Days held by pending
// requests count as unused and stay held, so rejecting or cancelling one
// afterwards restores exactly the opening amount. Balances already reset for
// the year are skipped, so the job is safe to re-run.
func (l *Ledger) ResetYear(ctx context.Context, actor Actor, year int) (*YearResetSummary, error) {
	if err := actor.requireHR("reset leave year"); err != nil {
		return nil, err
	}
	if year < 1970 || year > 9999 {
		return nil, &ValidationError{Field: "year", Message: fmt.Sprintf("%d out of range", year)}
	}

	summary := &YearResetSummary{Year: year}
	ref := fmt.Sprintf("year-%d", year)

	err := l.store.WithTx(ctx, func(repo Repository) error {
		summary.Reset, summary.Skipped = 0, 0
		policies, err := repo.ListPolicies(ctx)
		if err != nil {
			return err
		}
		employees, err := repo.ListEmployees(ctx, EmployeeFilter{Status: EmployeeActive})
		if err != nil {
			return err
		}

		for _, emp := range employees {
			for i := range policies {
				p := &policies[i]
				done, err := repo.LedgerEntries(ctx, LedgerFilter{
					EmployeeID: emp.ID, LeaveType: p.LeaveType, Kind: LedgerYearReset, ReferenceID: ref,
				})
				if err != nil {
					return err
				}
				if len(done) > 0 {
					summary.Skipped++
					continue
				}

				bal, err := l.loadBalance(ctx, repo, emp.ID, p.LeaveType)
				if err != nil {
					return err
				}
				held, err := pendingDays(ctx, repo, emp.ID, p.LeaveType)
				if err != nil {
					return err
				}
				previous := bal.Days
				target := p.AnnualQuota + carryOver(p, previous+held) - held

				if _, err := l.apply(ctx, repo, bal, target-previous, LedgerYearReset, Movement{
					EmployeeID:  emp.ID,
					LeaveType:   p.LeaveType,
					ReferenceID: ref,
					ActorID:     actor.ID,
					Reason:      fmt.Sprintf("%d opening: quota %s + carried %s - held %s", year, p.AnnualQuota, target+held-p.AnnualQuota, held),
				}); err != nil {
					return err
				}
				if _, err := l.audit.Record(ctx, repo, AuditRecord{
					Action:      AuditBalanceChange,
					EntityType:  EntityBalance,
					EntityID:    balanceEntityID(emp.ID, p.LeaveType),
					ActorID:     actor.ID,
					Before:      map[string]any{"balance": previous},
					After:       map[string]any{"balance": target, "year": year},
					Description: fmt.Sprintf("Year %d reset of %s for %s: %s -> %s", year, p.LeaveType, emp.Name, previous, target),
				}); err != nil {
					return err
				}
				summary.Reset++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log(ctx).Info().Int("year", year).Int("reset", summary.Reset).Int("skipped", summary.Skipped).Msg("leave year reset")
	return summary, nil
}

// pendingDays sums the days held by pending requests. They are debited at
// submission, so a later release must land on the new year's opening.
func pendingDays(ctx context.Context, repo Repository, employeeID string, lt LeaveType) (Days, error) {
	pending, err := repo.ListRequests(ctx, RequestFilter{EmployeeID: employeeID, LeaveType: lt, Status: StatusPending})
	if err != nil {
		return 0, err
	}
	var held Days
	for _, r := range pending {
		held += r.DaysCount
	}
	return held, nil
}

func carryOver(p *Policy, remaining Days) Days {
	if !p.CarryForward || !remaining.IsPositive() {
		return 0
	}
	return min(remaining, p.MaxCarryForward)
}

// =============================================================================
// READS
// =============================================================================

// Balance returns the current balance for one leave type.
func (l *Ledger) Balance(ctx context.Context, employeeID string, lt LeaveType) (Days, error) {
	if _, err := l.store.GetEmployee(ctx, employeeID); err != nil {
		return 0, err
	}
	bal, err := l.loadBalance(ctx, l.store, employeeID, lt)
	if err != nil {
		return 0, err
	}
	return bal.Days, nil
}

// Balances returns the balance snapshot for every leave type of an employee.
func (l *Ledger) Balances(ctx context.Context, employeeID string) (map[LeaveType]Days, error) {
	if _, err := l.store.GetEmployee(ctx, employeeID); err != nil {
		return nil, err
	}
	rows, err := l.store.ListBalances(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	out := make(map[LeaveType]Days, len(rows))
	for _, b := range rows {
		out[b.LeaveType] = b.Days
	}
	return out, nil
}

// Entries returns ledger entries in the order they were written.
func (l *Ledger) Entries(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error) {
	return l.store.LedgerEntries(ctx, filter)
}

// Replay sums every ledger entry for the employee and leave type. It always
// equals the stored balance.
func (l *Ledger) Replay(ctx context.Context, employeeID string, lt LeaveType) (Days, error) {
	entries, err := l.store.LedgerEntries(ctx, LedgerFilter{EmployeeID: employeeID, LeaveType: lt})
	if err != nil {
		return 0, err
	}
	var total Days
	for _, e := range entries {
		total += e.Delta
	}
	return total, nil
}

// Adjustments returns the adjustment history of an employee.
func (l *Ledger) Adjustments(ctx context.Context, employeeID string) ([]Adjustment, error) {
	return l.store.Adjustments(ctx, employeeID)
}
