// Package store provides an in-memory leave.Store.
package store

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================
// State is an immutable snapshot behind an atomic pointer. Readers load the
// current snapshot and never take a lock. WithTx serializes writers, works on
// a private copy and publishes it only when fn succeeds; on error the copy is
// dropped, which is the rollback.

type Memory struct {
	writeMu sync.Mutex
	current atomic.Pointer[state]
}

type balanceKey struct {
	EmployeeID string
	LeaveType  leave.LeaveType
}

type state struct {
	employees map[string]leave.Employee
	changes   []leave.EmployeeChange
	balances  map[balanceKey]leave.Balance
	ledger    []leave.LedgerEntry
	adjusts   []leave.Adjustment
	policies  map[string]leave.Policy
	holidays  map[string]leave.Holiday
	requests  map[string]leave.Request
	audit     []leave.AuditEntry
}

func NewMemory() *Memory {
	m := &Memory{}
	m.current.Store(&state{
		employees: map[string]leave.Employee{},
		balances:  map[balanceKey]leave.Balance{},
		policies:  map[string]leave.Policy{},
		holidays:  map[string]leave.Holiday{},
		requests:  map[string]leave.Request{},
	})
	return m
}

var _ leave.Store = (*Memory)(nil)

// clone copies the maps. Append-only slices are clipped so that appends in
// the copy never write into the published backing arrays.
func (s *state) clone() *state {
	return &state{
		employees: maps.Clone(s.employees),
		changes:   slices.Clip(s.changes),
		balances:  maps.Clone(s.balances),
		ledger:    slices.Clip(s.ledger),
		adjusts:   slices.Clip(s.adjusts),
		policies:  maps.Clone(s.policies),
		holidays:  maps.Clone(s.holidays),
		requests:  maps.Clone(s.requests),
		audit:     slices.Clip(s.audit),
	}
}

// WithTx executes fn within a transaction.
// Nothing fn writes is visible to readers until fn returns nil.
func (m *Memory) WithTx(ctx context.Context, fn func(leave.Repository) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	draft := m.current.Load().clone()
	if err := fn(&txView{s: draft}); err != nil {
		return err
	}
	m.current.Store(draft)
	return nil
}

// =============================================================================
// READS (lock-free, against the published snapshot)
// =============================================================================

func (m *Memory) snap() *state { return m.current.Load() }

func (m *Memory) GetEmployee(ctx context.Context, id string) (*leave.Employee, error) {
	return m.snap().getEmployee(id)
}

func (m *Memory) ListEmployees(ctx context.Context, f leave.EmployeeFilter) ([]leave.Employee, error) {
	return m.snap().listEmployees(f), nil
}

func (m *Memory) EmployeeChanges(ctx context.Context, employeeID string) ([]leave.EmployeeChange, error) {
	return m.snap().employeeChanges(employeeID), nil
}

func (m *Memory) GetBalance(ctx context.Context, employeeID string, lt leave.LeaveType) (*leave.Balance, error) {
	return m.snap().getBalance(employeeID, lt)
}

func (m *Memory) ListBalances(ctx context.Context, employeeID string) ([]leave.Balance, error) {
	return m.snap().listBalances(employeeID), nil
}

func (m *Memory) LedgerEntries(ctx context.Context, f leave.LedgerFilter) ([]leave.LedgerEntry, error) {
	return filter(m.snap().ledger, f.Matches), nil
}

func (m *Memory) Adjustments(ctx context.Context, employeeID string) ([]leave.Adjustment, error) {
	return m.snap().adjustments(employeeID), nil
}

func (m *Memory) GetPolicy(ctx context.Context, id string) (*leave.Policy, error) {
	return m.snap().getPolicy(id)
}

func (m *Memory) GetPolicyByType(ctx context.Context, lt leave.LeaveType) (*leave.Policy, error) {
	return m.snap().getPolicyByType(lt)
}

func (m *Memory) ListPolicies(ctx context.Context) ([]leave.Policy, error) {
	return m.snap().listPolicies(), nil
}

func (m *Memory) GetHoliday(ctx context.Context, id string) (*leave.Holiday, error) {
	return m.snap().getHoliday(id)
}

func (m *Memory) ListHolidays(ctx context.Context, from, to time.Time) ([]leave.Holiday, error) {
	return m.snap().listHolidays(from, to), nil
}

func (m *Memory) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	return m.snap().getRequest(id)
}

func (m *Memory) ListRequests(ctx context.Context, f leave.RequestFilter) ([]leave.Request, error) {
	return m.snap().listRequests(f), nil
}

func (m *Memory) QueryAudit(ctx context.Context, f leave.AuditFilter) ([]leave.AuditEntry, error) {
	return filter(m.snap().audit, f.Matches), nil
}

// =============================================================================
// TRANSACTIONAL VIEW
// =============================================================================

type txView struct {
	s *state
}

func (tv *txView) GetEmployee(_ context.Context, id string) (*leave.Employee, error) {
	return tv.s.getEmployee(id)
}

func (tv *txView) ListEmployees(_ context.Context, f leave.EmployeeFilter) ([]leave.Employee, error) {
	return tv.s.listEmployees(f), nil
}

func (tv *txView) EmployeeChanges(_ context.Context, employeeID string) ([]leave.EmployeeChange, error) {
	return tv.s.employeeChanges(employeeID), nil
}

func (tv *txView) GetBalance(_ context.Context, employeeID string, lt leave.LeaveType) (*leave.Balance, error) {
	return tv.s.getBalance(employeeID, lt)
}

func (tv *txView) ListBalances(_ context.Context, employeeID string) ([]leave.Balance, error) {
	return tv.s.listBalances(employeeID), nil
}

func (tv *txView) LedgerEntries(_ context.Context, f leave.LedgerFilter) ([]leave.LedgerEntry, error) {
	return filter(tv.s.ledger, f.Matches), nil
}

func (tv *txView) Adjustments(_ context.Context, employeeID string) ([]leave.Adjustment, error) {
	return tv.s.adjustments(employeeID), nil
}

func (tv *txView) GetPolicy(_ context.Context, id string) (*leave.Policy, error) {
	return tv.s.getPolicy(id)
}

func (tv *txView) GetPolicyByType(_ context.Context, lt leave.LeaveType) (*leave.Policy, error) {
	return tv.s.getPolicyByType(lt)
}

func (tv *txView) ListPolicies(_ context.Context) ([]leave.Policy, error) {
	return tv.s.listPolicies(), nil
}

func (tv *txView) GetHoliday(_ context.Context, id string) (*leave.Holiday, error) {
	return tv.s.getHoliday(id)
}

func (tv *txView) ListHolidays(_ context.Context, from, to time.Time) ([]leave.Holiday, error) {
	return tv.s.listHolidays(from, to), nil
}

func (tv *txView) GetRequest(_ context.Context, id string) (*leave.Request, error) {
	return tv.s.getRequest(id)
}

func (tv *txView) ListRequests(_ context.Context, f leave.RequestFilter) ([]leave.Request, error) {
	return tv.s.listRequests(f), nil
}

func (tv *txView) QueryAudit(_ context.Context, f leave.AuditFilter) ([]leave.AuditEntry, error) {
	return filter(tv.s.audit, f.Matches), nil
}

func (tv *txView) InsertEmployee(_ context.Context, e *leave.Employee) error {
	if _, ok := tv.s.employees[e.ID]; ok {
		return &leave.ConflictError{Entity: "employee", ID: e.ID, Reason: "already exists"}
	}
	e.Version = 1
	stored := *e
	stored.LeaveBalance = nil
	tv.s.employees[e.ID] = stored
	return nil
}

func (tv *txView) UpdateEmployee(_ context.Context, e *leave.Employee) error {
	cur, ok := tv.s.employees[e.ID]
	if !ok {
		return &leave.NotFoundError{Entity: "employee", ID: e.ID}
	}
	if cur.Version != e.Version {
		return staleVersion("employee", e.ID)
	}
	e.Version++
	stored := *e
	stored.LeaveBalance = nil
	tv.s.employees[e.ID] = stored
	return nil
}

func (tv *txView) AppendEmployeeChange(_ context.Context, c leave.EmployeeChange) error {
	tv.s.changes = append(tv.s.changes, c)
	return nil
}

func (tv *txView) PutBalance(_ context.Context, b *leave.Balance) error {
	k := balanceKey{b.EmployeeID, b.LeaveType}
	cur, ok := tv.s.balances[k]
	switch {
	case !ok && b.Version != 0:
		return staleVersion("balance", b.EmployeeID+":"+string(b.LeaveType))
	case ok && cur.Version != b.Version:
		return staleVersion("balance", b.EmployeeID+":"+string(b.LeaveType))
	}
	b.Version++
	tv.s.balances[k] = *b
	return nil
}

func (tv *txView) AppendLedgerEntry(_ context.Context, e leave.LedgerEntry) error {
	tv.s.ledger = append(tv.s.ledger, e)
	return nil
}

func (tv *txView) AppendAdjustment(_ context.Context, a leave.Adjustment) error {
	tv.s.adjusts = append(tv.s.adjusts, a)
	return nil
}

func (tv *txView) InsertPolicy(_ context.Context, p *leave.Policy) error {
	if _, ok := tv.s.policies[p.ID]; ok {
		return &leave.ConflictError{Entity: "policy", ID: p.ID, Reason: "already exists"}
	}
	if existing, err := tv.s.getPolicyByType(p.LeaveType); err == nil {
		return &leave.ConflictError{Entity: "policy", ID: existing.ID, Reason: "leave type " + string(p.LeaveType) + " already has a policy"}
	}
	p.Version = 1
	tv.s.policies[p.ID] = *p
	return nil
}

func (tv *txView) UpdatePolicy(_ context.Context, p *leave.Policy) error {
	cur, ok := tv.s.policies[p.ID]
	if !ok {
		return &leave.NotFoundError{Entity: "policy", ID: p.ID}
	}
	if cur.Version != p.Version {
		return staleVersion("policy", p.ID)
	}
	p.Version++
	tv.s.policies[p.ID] = *p
	return nil
}

func (tv *txView) DeletePolicy(_ context.Context, id string) error {
	if _, ok := tv.s.policies[id]; !ok {
		return &leave.NotFoundError{Entity: "policy", ID: id}
	}
	delete(tv.s.policies, id)
	return nil
}

func (tv *txView) InsertHoliday(_ context.Context, h *leave.Holiday) error {
	if _, ok := tv.s.holidays[h.ID]; ok {
		return &leave.ConflictError{Entity: "holiday", ID: h.ID, Reason: "already exists"}
	}
	tv.s.holidays[h.ID] = *h
	return nil
}

func (tv *txView) UpdateHoliday(_ context.Context, h *leave.Holiday) error {
	if _, ok := tv.s.holidays[h.ID]; !ok {
		return &leave.NotFoundError{Entity: "holiday", ID: h.ID}
	}
	tv.s.holidays[h.ID] = *h
	return nil
}

func (tv *txView) DeleteHoliday(_ context.Context, id string) error {
	if _, ok := tv.s.holidays[id]; !ok {
		return &leave.NotFoundError{Entity: "holiday", ID: id}
	}
	delete(tv.s.holidays, id)
	return nil
}

func (tv *txView) InsertRequest(_ context.Context, r *leave.Request) error {
	if _, ok := tv.s.requests[r.ID]; ok {
		return &leave.ConflictError{Entity: "leave request", ID: r.ID, Reason: "already exists"}
	}
	r.Version = 1
	tv.s.requests[r.ID] = r.Clone()
	return nil
}

func (tv *txView) UpdateRequest(_ context.Context, r *leave.Request) error {
	cur, ok := tv.s.requests[r.ID]
	if !ok {
		return &leave.NotFoundError{Entity: "leave request", ID: r.ID}
	}
	if cur.Version != r.Version {
		return staleVersion("leave request", r.ID)
	}
	r.Version++
	tv.s.requests[r.ID] = r.Clone()
	return nil
}

func (tv *txView) AppendAudit(_ context.Context, e leave.AuditEntry) error {
	tv.s.audit = append(tv.s.audit, e)
	return nil
}

func staleVersion(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, leave.ErrConcurrentModification)
}

// =============================================================================
// STATE QUERIES (shared by snapshot reads and the transactional view)
// =============================================================================

func (s *state) getEmployee(id string) (*leave.Employee, error) {
	e, ok := s.employees[id]
	if !ok {
		return nil, &leave.NotFoundError{Entity: "employee", ID: id}
	}
	e.LeaveBalance = s.balanceMap(id)
	return &e, nil
}

func (s *state) listEmployees(f leave.EmployeeFilter) []leave.Employee {
	out := make([]leave.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		if f.Matches(e) {
			e.LeaveBalance = s.balanceMap(e.ID)
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b leave.Employee) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func (s *state) balanceMap(employeeID string) map[leave.LeaveType]leave.Days {
	out := map[leave.LeaveType]leave.Days{}
	for k, b := range s.balances {
		if k.EmployeeID == employeeID {
			out[k.LeaveType] = b.Days
		}
	}
	return out
}

func (s *state) employeeChanges(employeeID string) []leave.EmployeeChange {
	return filter(s.changes, func(c leave.EmployeeChange) bool { return c.EmployeeID == employeeID })
}

func (s *state) getBalance(employeeID string, lt leave.LeaveType) (*leave.Balance, error) {
	b, ok := s.balances[balanceKey{employeeID, lt}]
	if !ok {
		return nil, &leave.NotFoundError{Entity: "balance", ID: employeeID + ":" + string(lt)}
	}
	return &b, nil
}

func (s *state) listBalances(employeeID string) []leave.Balance {
	var out []leave.Balance
	for k, b := range s.balances {
		if k.EmployeeID == employeeID {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b leave.Balance) int { return cmp.Compare(a.LeaveType, b.LeaveType) })
	return out
}

func (s *state) adjustments(employeeID string) []leave.Adjustment {
	return filter(s.adjusts, func(a leave.Adjustment) bool { return employeeID == "" || a.EmployeeID == employeeID })
}

func (s *state) getPolicy(id string) (*leave.Policy, error) {
	p, ok := s.policies[id]
	if !ok {
		return nil, &leave.NotFoundError{Entity: "policy", ID: id}
	}
	return &p, nil
}

func (s *state) getPolicyByType(lt leave.LeaveType) (*leave.Policy, error) {
	for _, p := range s.policies {
		if p.LeaveType == lt {
			return &p, nil
		}
	}
	return nil, &leave.NotFoundError{Entity: "policy", ID: string(lt)}
}

func (s *state) listPolicies() []leave.Policy {
	out := slices.Collect(maps.Values(s.policies))
	slices.SortFunc(out, func(a, b leave.Policy) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func (s *state) getHoliday(id string) (*leave.Holiday, error) {
	h, ok := s.holidays[id]
	if !ok {
		return nil, &leave.NotFoundError{Entity: "holiday", ID: id}
	}
	return &h, nil
}

func (s *state) listHolidays(from, to time.Time) []leave.Holiday {
	var out []leave.Holiday
	for _, h := range s.holidays {
		if !from.IsZero() && h.Date.Before(leave.DateOf(from)) {
			continue
		}
		if !to.IsZero() && h.Date.After(leave.DateOf(to)) {
			continue
		}
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b leave.Holiday) int {
		return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.Name, b.Name))
	})
	return out
}

func (s *state) getRequest(id string) (*leave.Request, error) {
	r, ok := s.requests[id]
	if !ok {
		return nil, &leave.NotFoundError{Entity: "leave request", ID: id}
	}
	c := r.Clone()
	return &c, nil
}

// listRequests returns matches newest first.
func (s *state) listRequests(f leave.RequestFilter) []leave.Request {
	var out []leave.Request
	for _, r := range s.requests {
		if f.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	slices.SortFunc(out, func(a, b leave.Request) int {
		return cmp.Or(b.AppliedOn.Compare(a.AppliedOn), cmp.Compare(b.ID, a.ID))
	})
	return out
}

func filter[T any](in []T, keep func(T) bool) []T {
	var out []T
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
