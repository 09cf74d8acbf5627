/*
store.go - Persistence contract for the leave engine

PURPOSE:
  Each component owns its slice of state behind this interface. Stores are
  injected into the engine; there is no ambient global state.

KEY INTERFACES:
  Reader:     snapshot reads, never block writers
  Writer:     mutations, only reachable inside WithTx
  Repository: Reader + Writer, handed to WithTx callbacks
  Store:      Reader + WithTx

APPEND-ONLY CONTRACT:
  Ledger entries, adjustments, employee changes and audit entries have
  Append methods only. There is no Update or Delete for them.

OPTIMISTIC VERSIONING:
  UpdateEmployee, UpdatePolicy, UpdateRequest and PutBalance compare the
  Version on the passed value with the stored one. On mismatch they return
  ErrConcurrentModification; on success they increment Version in place.
  Inserts set Version to 1; PutBalance inserts when Version is 0.

ATOMICITY:
  WithTx runs fn against a transactional Repository. If fn returns an error
  nothing fn wrote is observable. Writers are serialized per store.

IMPLEMENTATIONS:
  - leave/store/memory.go: in-memory, copy-on-write snapshots
  - store/sqldb: SQLite and PostgreSQL through database/sql
*/
package leave

import (
	"context"
	"slices"
	"time"
)

// Reader is the read side of the persistence contract.
// Get* methods return a *NotFoundError when the id is unknown.
type Reader interface {
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, error)
	EmployeeChanges(ctx context.Context, employeeID string) ([]EmployeeChange, error)

	GetBalance(ctx context.Context, employeeID string, leaveType LeaveType) (*Balance, error)
	ListBalances(ctx context.Context, employeeID string) ([]Balance, error)
	LedgerEntries(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error)
	// Adjustments returns every adjustment when employeeID is empty.
	Adjustments(ctx context.Context, employeeID string) ([]Adjustment, error)

	GetPolicy(ctx context.Context, id string) (*Policy, error)
	GetPolicyByType(ctx context.Context, leaveType LeaveType) (*Policy, error)
	ListPolicies(ctx context.Context) ([]Policy, error)

	GetHoliday(ctx context.Context, id string) (*Holiday, error)
	ListHolidays(ctx context.Context, from, to time.Time) ([]Holiday, error)

	GetRequest(ctx context.Context, id string) (*Request, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]Request, error)

	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// Writer is the write side. Only reachable through Store.WithTx.
type Writer interface {
	InsertEmployee(ctx context.Context, e *Employee) error
	UpdateEmployee(ctx context.Context, e *Employee) error
	AppendEmployeeChange(ctx context.Context, c EmployeeChange) error

	PutBalance(ctx context.Context, b *Balance) error
	AppendLedgerEntry(ctx context.Context, e LedgerEntry) error
	AppendAdjustment(ctx context.Context, a Adjustment) error

	InsertPolicy(ctx context.Context, p *Policy) error
	UpdatePolicy(ctx context.Context, p *Policy) error
	DeletePolicy(ctx context.Context, id string) error

	InsertHoliday(ctx context.Context, h *Holiday) error
	UpdateHoliday(ctx context.Context, h *Holiday) error
	DeleteHoliday(ctx context.Context, id string) error

	InsertRequest(ctx context.Context, r *Request) error
	UpdateRequest(ctx context.Context, r *Request) error

	AppendAudit(ctx context.Context, e AuditEntry) error
}

// Repository is the transactional view handed to WithTx callbacks.
type Repository interface {
	Reader
	Writer
}

// Store is what the engine is built on.
type Store interface {
	Reader

	// WithTx executes fn within a transaction.
	// If fn returns error, nothing is committed.
	WithTx(ctx context.Context, fn func(Repository) error) error
}

// =============================================================================
// FILTERS
// =============================================================================
// Zero-valued fields match everything. Matches is shared by stores that
// filter in memory; SQL stores translate the same fields to WHERE clauses.

type EmployeeFilter struct {
	Department string
	Status     EmployeeStatus
	Role       Role
}

func (f EmployeeFilter) Matches(e Employee) bool {
	return (f.Department == "" || e.Department == f.Department) &&
		(f.Status == "" || e.Status == f.Status) &&
		(f.Role == "" || e.Role == f.Role)
}

// RequestFilter selects requests. From/To select requests whose date range
// overlaps [From, To].
type RequestFilter struct {
	EmployeeID string
	Department string
	LeaveType  LeaveType
	Status     Status
	Stage      Stage
	From       time.Time
	To         time.Time
}

func (f RequestFilter) Matches(r Request) bool {
	if f.EmployeeID != "" && r.EmployeeID != f.EmployeeID {
		return false
	}
	if f.Department != "" && r.Department != f.Department {
		return false
	}
	if f.LeaveType != "" && r.LeaveType != f.LeaveType {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Stage != "" && r.CurrentStage != f.Stage {
		return false
	}
	if !f.From.IsZero() && r.EndDate.Before(DateOf(f.From)) {
		return false
	}
	if !f.To.IsZero() && r.StartDate.After(DateOf(f.To)) {
		return false
	}
	return true
}

type LedgerFilter struct {
	EmployeeID  string
	LeaveType   LeaveType
	Kind        LedgerKind
	ReferenceID string
}

func (f LedgerFilter) Matches(e LedgerEntry) bool {
	return (f.EmployeeID == "" || e.EmployeeID == f.EmployeeID) &&
		(f.LeaveType == "" || e.LeaveType == f.LeaveType) &&
		(f.Kind == "" || e.Kind == f.Kind) &&
		(f.ReferenceID == "" || e.ReferenceID == f.ReferenceID)
}

// AuditFilter selects audit entries. From/To bound CreatedAt inclusively.
type AuditFilter struct {
	EntityID   string
	EntityType EntityType
	ActorID    string
	Actions    []AuditAction
	From       time.Time
	To         time.Time
}

func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.EntityID != "" && e.EntityID != f.EntityID {
		return false
	}
	if f.EntityType != "" && e.EntityType != f.EntityType {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if len(f.Actions) > 0 && !slices.Contains(f.Actions, e.Action) {
		return false
	}
	if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.CreatedAt.After(f.To) {
		return false
	}
	return true
}
