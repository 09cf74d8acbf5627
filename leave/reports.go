package leave

import (
	"context"
	"slices"
	"time"
)

// =============================================================================
// REPORTS - Read-only projections for dashboards and export
// =============================================================================

// Reports never writes. Every method reads the store snapshot directly and
// may run concurrently with writers.
type Reports struct {
	*core
}

// TypeTotals aggregates requests of one leave type.
type TypeTotals struct {
	LeaveType LeaveType `json:"leave_type"`
	Requests  int       `json:"requests"`
	Approved  Days      `json:"approved"`
	Pending   Days      `json:"pending"`
	Rejected  Days      `json:"rejected"`
	Cancelled Days      `json:"cancelled"`
}

func (t *TypeTotals) add(r Request) {
	t.Requests++
	switch r.Status {
	case StatusApproved:
		t.Approved += r.DaysCount
	case StatusPending:
		t.Pending += r.DaysCount
	case StatusRejected:
		t.Rejected += r.DaysCount
	case StatusCancelled:
		t.Cancelled += r.DaysCount
	}
}

type EmployeeSummary struct {
	EmployeeID string             `json:"employee_id"`
	Name       string             `json:"name"`
	Department string             `json:"department"`
	From       time.Time          `json:"from"`
	To         time.Time          `json:"to"`
	Balances   map[LeaveType]Days `json:"balances"`
	ByType     []TypeTotals       `json:"by_type"`
	Adjusted   map[LeaveType]Days `json:"adjusted"`
}

type DepartmentSummary struct {
	Department string       `json:"department"`
	From       time.Time    `json:"from"`
	To         time.Time    `json:"to"`
	Employees  int          `json:"employees"`
	OnLeave    int          `json:"employees_on_leave"`
	ByType     []TypeTotals `json:"by_type"`
}

// EmployeeSummary aggregates an employee's requests overlapping [from, to]
// and the net adjustments made in that window. Zero bounds are open.
func (r *Reports) EmployeeSummary(ctx context.Context, employeeID string, from, to time.Time) (*EmployeeSummary, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	emp, err := r.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	reqs, err := r.store.ListRequests(ctx, RequestFilter{EmployeeID: employeeID, From: from, To: to})
	if err != nil {
		return nil, err
	}
	adjs, err := r.store.Adjustments(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	balances, err := r.store.ListBalances(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	out := &EmployeeSummary{
		EmployeeID: emp.ID,
		Name:       emp.Name,
		Department: emp.Department,
		From:       from,
		To:         to,
		Balances:   make(map[LeaveType]Days, len(balances)),
		ByType:     totalsByType(reqs),
		Adjusted:   map[LeaveType]Days{},
	}
	for _, b := range balances {
		out.Balances[b.LeaveType] = b.Days
	}
	for _, a := range adjs {
		if !inWindow(a.CreatedAt, from, to) {
			continue
		}
		out.Adjusted[a.LeaveType] += a.NewBalance - a.PreviousBalance
	}
	return out, nil
}

// DepartmentSummary aggregates the requests of a department overlapping
// [from, to]. OnLeave counts employees with at least one approved request.
func (r *Reports) DepartmentSummary(ctx context.Context, department string, from, to time.Time) (*DepartmentSummary, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	if department == "" {
		return nil, &ValidationError{Field: "department", Message: "is required"}
	}
	emps, err := r.store.ListEmployees(ctx, EmployeeFilter{Department: department})
	if err != nil {
		return nil, err
	}
	reqs, err := r.store.ListRequests(ctx, RequestFilter{Department: department, From: from, To: to})
	if err != nil {
		return nil, err
	}

	onLeave := map[string]bool{}
	for _, q := range reqs {
		if q.Status == StatusApproved {
			onLeave[q.EmployeeID] = true
		}
	}
	return &DepartmentSummary{
		Department: department,
		From:       from,
		To:         to,
		Employees:  len(emps),
		OnLeave:    len(onLeave),
		ByType:     totalsByType(reqs),
	}, nil
}

func totalsByType(reqs []Request) []TypeTotals {
	idx := map[LeaveType]*TypeTotals{}
	for _, q := range reqs {
		t, ok := idx[q.LeaveType]
		if !ok {
			t = &TypeTotals{LeaveType: q.LeaveType}
			idx[q.LeaveType] = t
		}
		t.add(q)
	}
	out := make([]TypeTotals, 0, len(idx))
	for _, t := range idx {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b TypeTotals) int {
		switch {
		case a.LeaveType < b.LeaveType:
			return -1
		case a.LeaveType > b.LeaveType:
			return 1
		}
		return 0
	})
	return out
}

func checkRange(from, to time.Time) error {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return &InvalidDateRangeError{Start: from.Format(DateLayout), End: to.Format(DateLayout)}
	}
	return nil
}

func inWindow(t, from, to time.Time) bool {
	d := DateOf(t)
	return (from.IsZero() || !d.Before(DateOf(from))) && (to.IsZero() || !d.After(DateOf(to)))
}

// =============================================================================
// EXPORT ROWS
// =============================================================================
// Flat projections for CSV/report generation. Dates are YYYY-MM-DD strings,
// timestamps RFC 3339, day counts decimal strings.

type RequestRow struct {
	ID           string `json:"id"`
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	Department   string `json:"department"`
	LeaveType    string `json:"leave_type"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	DayType      string `json:"day_type"`
	Days         string `json:"days"`
	Status       string `json:"status"`
	CurrentStage string `json:"current_stage"`
	Reason       string `json:"reason"`
	AppliedOn    string `json:"applied_on"`
	DecidedBy    string `json:"decided_by"`
}

type AdjustmentRow struct {
	ID              string `json:"id"`
	EmployeeID      string `json:"employee_id"`
	EmployeeName    string `json:"employee_name"`
	LeaveType       string `json:"leave_type"`
	Kind            string `json:"kind"`
	Days            string `json:"days"`
	PreviousBalance string `json:"previous_balance"`
	NewBalance      string `json:"new_balance"`
	Reason          string `json:"reason"`
	AdjustedBy      string `json:"adjusted_by"`
	CreatedAt       string `json:"created_at"`
}

type AuditRow struct {
	ID          string `json:"id"`
	Action      string `json:"action"`
	EntityType  string `json:"entity_type"`
	EntityID    string `json:"entity_id"`
	ActorID     string `json:"actor_id"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

func (r *Reports) RequestRows(ctx context.Context, filter RequestFilter) ([]RequestRow, error) {
	reqs, err := r.store.ListRequests(ctx, filter)
	if err != nil {
		return nil, err
	}
	rows := make([]RequestRow, len(reqs))
	for i, q := range reqs {
		rows[i] = RequestRow{
			ID:           q.ID,
			EmployeeID:   q.EmployeeID,
			EmployeeName: q.EmployeeName,
			Department:   q.Department,
			LeaveType:    string(q.LeaveType),
			StartDate:    q.StartDate.Format(DateLayout),
			EndDate:      q.EndDate.Format(DateLayout),
			DayType:      string(q.DayType),
			Days:         q.DaysCount.String(),
			Status:       string(q.Status),
			CurrentStage: string(q.CurrentStage),
			Reason:       q.Reason,
			AppliedOn:    q.AppliedOn.Format(time.RFC3339),
			DecidedBy:    lastDecider(q),
		}
	}
	return rows, nil
}

// lastDecider is the approver of the most recent decided record.
func lastDecider(q Request) string {
	for i := len(q.Approvals) - 1; i >= 0; i-- {
		if a := q.Approvals[i]; a.Status != RecordPending {
			if a.ApproverName != "" {
				return a.ApproverName
			}
			return a.ApproverID
		}
	}
	return ""
}

// AdjustmentRows returns adjustments for one employee, or for everyone when
// employeeID is empty.
func (r *Reports) AdjustmentRows(ctx context.Context, employeeID string) ([]AdjustmentRow, error) {
	adjs, err := r.store.Adjustments(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	rows := make([]AdjustmentRow, len(adjs))
	for i, a := range adjs {
		by := a.ActorName
		if by == "" {
			by = a.ActorID
		}
		rows[i] = AdjustmentRow{
			ID:              a.ID,
			EmployeeID:      a.EmployeeID,
			EmployeeName:    a.EmployeeName,
			LeaveType:       string(a.LeaveType),
			Kind:            string(a.Kind),
			Days:            a.Days.String(),
			PreviousBalance: a.PreviousBalance.String(),
			NewBalance:      a.NewBalance.String(),
			Reason:          a.Reason,
			AdjustedBy:      by,
			CreatedAt:       a.CreatedAt.Format(time.RFC3339),
		}
	}
	return rows, nil
}

func (r *Reports) AuditRows(ctx context.Context, filter AuditFilter) ([]AuditRow, error) {
	entries, err := r.store.QueryAudit(ctx, filter)
	if err != nil {
		return nil, err
	}
	rows := make([]AuditRow, len(entries))
	for i, e := range entries {
		rows[i] = AuditRow{
			ID:          e.ID,
			Action:      string(e.Action),
			EntityType:  string(e.EntityType),
			EntityID:    e.EntityID,
			ActorID:     e.ActorID,
			Description: e.Description,
			CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		}
	}
	return rows, nil
}
