/*
Package leave implements the leave-request workflow engine.

PURPOSE:
  Employees submit time-off requests that move through a fixed approval chain
  (team lead -> manager -> director). Every balance change is recorded in an
  append-only ledger, and every mutation across the system lands in an
  append-only audit log.

KEY CONCEPTS IN THIS FILE (types.go):
  - Closed enums: Role, Stage, Status, DayType, HolidayKind, ...
  - Entities: Employee, Policy, Holiday, Request, ApprovalRecord
  - Ledger records: Balance, LedgerEntry, Adjustment
  - Audit records: AuditEntry, EmployeeChange

COMPONENTS:
  Policies   (policy.go)    leave-type definitions
  Calendar   (calendar.go)  holidays and duration calculation
  Directory  (directory.go) employee records and change history
  Ledger     (ledger.go)    balances, debits, releases, adjustments
  Workflow   (workflow.go)  the request state machine
  AuditLog   (audit.go)     compliance trail
  Reports    (reports.go)   read-only projections

SEE ALSO:
  - store.go: persistence contract
  - engine.go: composition of the components
*/
package leave

import (
	"encoding/json"
	"regexp"
	"slices"
	"time"
)

// =============================================================================
// LEAVE TYPE
// =============================================================================

// LeaveType identifies a category of absence. The set is open: HR defines
// leave types by adding policies.
type LeaveType string

const (
	LeaveCasual       LeaveType = "casual"
	LeaveSick         LeaveType = "sick"
	LeaveEarned       LeaveType = "earned"
	LeaveWorkFromHome LeaveType = "wfh"
	LeaveCompOff      LeaveType = "comp_off"
)

var leaveTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)

// Valid reports whether t is a well-formed leave type slug.
func (t LeaveType) Valid() bool { return leaveTypePattern.MatchString(string(t)) }

// =============================================================================
// ROLES
// =============================================================================

type Role string

const (
	RoleEmployee Role = "employee"
	RoleTeamLead Role = "team_lead"
	RoleManager  Role = "manager"
	RoleDirector Role = "director"
	RoleHRAdmin  Role = "hr_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleTeamLead, RoleManager, RoleDirector, RoleHRAdmin:
		return true
	}
	return false
}

// =============================================================================
// APPROVAL STAGES
// =============================================================================

// Stage is one step of the approval chain.
type Stage string

const (
	StageTeamLead  Stage = "team_lead"
	StageManager   Stage = "manager"
	StageDirector  Stage = "director"
	StageCompleted Stage = "completed"
)

// StageOrder is the fixed, total order of the approval chain.
var StageOrder = []Stage{StageTeamLead, StageManager, StageDirector, StageCompleted}

func (s Stage) Valid() bool { return slices.Contains(StageOrder, s) }

// Next returns the stage that follows s. Completed has no successor.
func (s Stage) Next() (Stage, bool) {
	switch s {
	case StageTeamLead:
		return StageManager, true
	case StageManager:
		return StageDirector, true
	case StageDirector:
		return StageCompleted, true
	case StageCompleted:
		return "", false
	}
	return "", false
}

// ApproverRole returns the role allowed to act on s.
func (s Stage) ApproverRole() (Role, bool) {
	switch s {
	case StageTeamLead:
		return RoleTeamLead, true
	case StageManager:
		return RoleManager, true
	case StageDirector:
		return RoleDirector, true
	case StageCompleted:
		return "", false
	}
	return "", false
}

// ActionableStages are the stages that hold a pending approval.
func ActionableStages() []Stage { return StageOrder[:len(StageOrder)-1] }

// =============================================================================
// STATUSES
// =============================================================================

// Status is the overall status of a leave request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled:
		return true
	case StatusPending:
		return false
	}
	return false
}

// RecordStatus is the status of a single ApprovalRecord.
type RecordStatus string

const (
	RecordPending  RecordStatus = "pending"
	RecordApproved RecordStatus = "approved"
	RecordRejected RecordStatus = "rejected"
)

type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "active"
	EmployeeInactive EmployeeStatus = "inactive"
)

func (s EmployeeStatus) Valid() bool { return s == EmployeeActive || s == EmployeeInactive }

// =============================================================================
// DAY TYPE
// =============================================================================

// DayType is the portion of a day taken off.
type DayType string

const (
	DayFull       DayType = "full"
	DayFirstHalf  DayType = "first_half"
	DaySecondHalf DayType = "second_half"
)

func (d DayType) Valid() bool {
	switch d {
	case DayFull, DayFirstHalf, DaySecondHalf:
		return true
	}
	return false
}

// Units returns the leave consumed by one day of this type.
func (d DayType) Units() Days {
	switch d {
	case DayFull:
		return FullDay
	case DayFirstHalf, DaySecondHalf:
		return HalfDay
	}
	return 0
}

// DayPortion overrides the day type for a single date in a request.
type DayPortion struct {
	Date    time.Time
	DayType DayType
}

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is owned by the Directory. LeaveBalance is a read-side view that
// stores populate from ledger-owned balances; it is never written through
// employee updates.
type Employee struct {
	ID         string
	Name       string
	Email      string
	Role       Role
	Department string
	TeamID     string
	ManagerID  string
	TeamLeadID string
	JoinDate   time.Time
	Status     EmployeeStatus

	LeaveBalance map[LeaveType]Days

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e *Employee) Active() bool { return e.Status == EmployeeActive }

// ChangeField is an employee attribute tracked in change history.
type ChangeField string

const (
	ChangeRole       ChangeField = "role"
	ChangeStatus     ChangeField = "status"
	ChangeDepartment ChangeField = "department"
	ChangeManager    ChangeField = "manager"
)

// EmployeeChange is a field-level diff recorded on employee updates.
type EmployeeChange struct {
	ID         string
	EmployeeID string
	Field      ChangeField
	OldValue   string
	NewValue   string
	ChangedBy  string
	Reason     string
	CreatedAt  time.Time
}

// =============================================================================
// POLICY
// =============================================================================

// Policy defines one leave type. At most one policy exists per leave type.
type Policy struct {
	ID              string
	LeaveType       LeaveType
	Name            string
	AnnualQuota     Days
	CarryForward    bool
	MaxCarryForward Days
	AllowNegative   bool
	Description     string

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// HOLIDAY
// =============================================================================

type HolidayKind string

const (
	HolidayNational HolidayKind = "national"
	HolidayRegional HolidayKind = "regional"
	HolidayOptional HolidayKind = "optional"
)

func (k HolidayKind) Valid() bool {
	switch k {
	case HolidayNational, HolidayRegional, HolidayOptional:
		return true
	}
	return false
}

// Excludes reports whether a holiday of this kind is a non-working day.
// Optional holidays must be taken as leave.
func (k HolidayKind) Excludes() bool { return k == HolidayNational || k == HolidayRegional }

type Holiday struct {
	ID        string
	Date      time.Time
	Name      string
	Kind      HolidayKind
	CreatedAt time.Time
}

// =============================================================================
// LEAVE REQUEST
// =============================================================================

// ApprovalRecord tracks one stage of a request. Timestamp is set exactly when
// Status leaves pending.
type ApprovalRecord struct {
	Stage        Stage
	ApproverID   string
	ApproverName string
	Status       RecordStatus
	Comment      string
	Timestamp    *time.Time
}

// Request is a leave request. EmployeeName and Department are a snapshot
// taken at submission.
type Request struct {
	ID           string
	EmployeeID   string
	EmployeeName string
	Department   string
	LeaveType    LeaveType
	StartDate    time.Time
	EndDate      time.Time
	DayType      DayType
	Breakdown    []DayPortion
	Reason       string
	DaysCount    Days
	Status       Status
	CurrentStage Stage
	Approvals    []ApprovalRecord
	AppliedOn    time.Time

	Version   int
	UpdatedAt time.Time
}

// PendingRecord returns the approval record awaiting action, if any.
func (r *Request) PendingRecord() (*ApprovalRecord, bool) {
	for i := range r.Approvals {
		if r.Approvals[i].Status == RecordPending {
			return &r.Approvals[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of r.
func (r Request) Clone() Request {
	out := r
	out.Breakdown = slices.Clone(r.Breakdown)
	out.Approvals = make([]ApprovalRecord, len(r.Approvals))
	for i, a := range r.Approvals {
		if a.Timestamp != nil {
			ts := *a.Timestamp
			a.Timestamp = &ts
		}
		out.Approvals[i] = a
	}
	return out
}

// =============================================================================
// LEDGER
// =============================================================================

// Balance is the current value for one employee and leave type. Only the
// Ledger writes balances.
type Balance struct {
	EmployeeID string
	LeaveType  LeaveType
	Days       Days
	Version    int
	UpdatedAt  time.Time
}

// LedgerKind tags the cause of a ledger entry.
type LedgerKind string

const (
	LedgerOpening        LedgerKind = "opening"
	LedgerRequestDebit   LedgerKind = "request_debit"
	LedgerRequestRelease LedgerKind = "request_release"
	LedgerAdjustment     LedgerKind = "adjustment"
	LedgerYearReset      LedgerKind = "year_reset"
)

// LedgerEntry is an immutable record of one balance change.
// Invariant: After == Before + Delta.
type LedgerEntry struct {
	ID          string
	EmployeeID  string
	LeaveType   LeaveType
	Kind        LedgerKind
	Delta       Days
	Before      Days
	After       Days
	ReferenceID string
	Reason      string
	ActorID     string
	CreatedAt   time.Time
}

type AdjustmentKind string

const (
	AdjustmentCredit AdjustmentKind = "credit"
	AdjustmentDebit  AdjustmentKind = "debit"
)

// Adjustment is an HR-issued manual balance change. Days is the requested
// magnitude; NewBalance - PreviousBalance is what was applied after clamping.
type Adjustment struct {
	ID              string
	EmployeeID      string
	EmployeeName    string
	LeaveType       LeaveType
	Kind            AdjustmentKind
	Days            Days
	Reason          string
	ActorID         string
	ActorName       string
	PreviousBalance Days
	NewBalance      Days
	CreatedAt       time.Time
}

// =============================================================================
// AUDIT
// =============================================================================

type AuditAction string

const (
	AuditRequestSubmitted AuditAction = "request_submitted"
	AuditApproval         AuditAction = "approval"
	AuditRejection        AuditAction = "rejection"
	AuditCancellation     AuditAction = "cancellation"
	AuditBalanceChange    AuditAction = "balance_change"
	AuditAdjustment       AuditAction = "adjustment"
	AuditEmployeeAdd      AuditAction = "employee_add"
	AuditEmployeeUpdate   AuditAction = "employee_update"
	AuditPolicyAdd        AuditAction = "policy_add"
	AuditPolicyUpdate     AuditAction = "policy_update"
	AuditPolicyDelete     AuditAction = "policy_delete"
	AuditHolidayAdd       AuditAction = "holiday_add"
	AuditHolidayUpdate    AuditAction = "holiday_update"
	AuditHolidayDelete    AuditAction = "holiday_delete"
)

type EntityType string

const (
	EntityLeaveRequest EntityType = "leave_request"
	EntityEmployee     EntityType = "employee"
	EntityPolicy       EntityType = "policy"
	EntityHoliday      EntityType = "holiday"
	EntityBalance      EntityType = "balance"
	EntityAdjustment   EntityType = "adjustment"
)

// AuditEntry is append-only. Before and After are opaque JSON snapshots.
type AuditEntry struct {
	ID          string
	Action      AuditAction
	EntityType  EntityType
	EntityID    string
	ActorID     string
	Before      json.RawMessage
	After       json.RawMessage
	Description string
	CreatedAt   time.Time
}

// =============================================================================
// DATES
// =============================================================================

const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Message: "expected YYYY-MM-DD, got " + s}
	}
	return t, nil
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
