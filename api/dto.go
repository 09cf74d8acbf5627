/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain types in package
  leave carry no JSON tags; everything that crosses the wire is mapped here.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DAYS:
  Day amounts are leave.Days. They encode as JSON numbers with at most one
  decimal ("1.5") and decode from numbers or numeric strings. Values that are
  not whole or half days are rejected at decode time.

DATES:
  Calendar dates are "YYYY-MM-DD". Timestamps are RFC 3339 in UTC.

VALIDATION:
  Request types carry validator/v10 tags for shape checks (required fields,
  enums, date formats). Domain rules (reason length, balances, stage order)
  are enforced by the engine and reported through the same error envelope.

SEE ALSO:
  - handlers.go: Uses these types
  - errors.go: decode and the error envelope
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/warp/leave-engine/leave"
)

// ErrorResponse is the standard error response. Details is a string, or a
// field -> message map for validation failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID           string                         `json:"id"`
	Name         string                         `json:"name"`
	Email        string                         `json:"email"`
	Role         string                         `json:"role"`
	Department   string                         `json:"department"`
	TeamID       string                         `json:"team_id,omitempty"`
	ManagerID    string                         `json:"manager_id,omitempty"`
	TeamLeadID   string                         `json:"team_lead_id,omitempty"`
	JoinDate     string                         `json:"join_date"`
	Status       string                         `json:"status"`
	LeaveBalance map[leave.LeaveType]leave.Days `json:"leave_balance"`
	Version      int                            `json:"version"`
	CreatedAt    string                         `json:"created_at"`
	UpdatedAt    string                         `json:"updated_at"`
}

// CreateEmployeeRequest is the request to create an employee. ID is
// generated when empty.
type CreateEmployeeRequest struct {
	ID         string `json:"id" validate:"omitempty,max=64"`
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email" validate:"required,email"`
	Role       string `json:"role" validate:"required,oneof=employee team_lead manager director hr_admin"`
	Department string `json:"department" validate:"required"`
	TeamID     string `json:"team_id"`
	ManagerID  string `json:"manager_id"`
	TeamLeadID string `json:"team_lead_id"`
	JoinDate   string `json:"join_date" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateEmployeeRequest changes only the fields that are present.
type UpdateEmployeeRequest struct {
	Name       *string `json:"name" validate:"omitnil,min=1,max=200"`
	Email      *string `json:"email" validate:"omitnil,email"`
	Role       *string `json:"role" validate:"omitnil,oneof=employee team_lead manager director hr_admin"`
	Department *string `json:"department" validate:"omitnil,min=1"`
	TeamID     *string `json:"team_id"`
	ManagerID  *string `json:"manager_id"`
	TeamLeadID *string `json:"team_lead_id"`
	Reason     string  `json:"reason"`
}

// StatusChangeRequest carries the reason for deactivation.
type StatusChangeRequest struct {
	Reason string `json:"reason"`
}

// EmployeeChangeDTO is one entry of an employee's change history.
type EmployeeChangeDTO struct {
	ID        string `json:"id"`
	Field     string `json:"field"`
	OldValue  string `json:"old_value"`
	NewValue  string `json:"new_value"`
	ChangedBy string `json:"changed_by"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
}

// BalancesDTO lists an employee's balances by leave type.
type BalancesDTO struct {
	EmployeeID string                         `json:"employee_id"`
	Balances   map[leave.LeaveType]leave.Days `json:"balances"`
}

// =============================================================================
// POLICIES AND HOLIDAYS
// =============================================================================

type PolicyDTO struct {
	ID              string     `json:"id"`
	LeaveType       string     `json:"leave_type"`
	Name            string     `json:"name"`
	AnnualQuota     leave.Days `json:"annual_quota"`
	CarryForward    bool       `json:"carry_forward"`
	MaxCarryForward leave.Days `json:"max_carry_forward"`
	AllowNegative   bool       `json:"allow_negative"`
	Description     string     `json:"description,omitempty"`
	Version         int        `json:"version"`
	CreatedAt       string     `json:"created_at"`
	UpdatedAt       string     `json:"updated_at"`
}

type CreatePolicyRequest struct {
	LeaveType       string     `json:"leave_type" validate:"required"`
	Name            string     `json:"name" validate:"required,max=100"`
	AnnualQuota     leave.Days `json:"annual_quota" validate:"gte=0"`
	CarryForward    bool       `json:"carry_forward"`
	MaxCarryForward leave.Days `json:"max_carry_forward" validate:"gte=0"`
	AllowNegative   bool       `json:"allow_negative"`
	Description     string     `json:"description" validate:"max=500"`
}

type UpdatePolicyRequest struct {
	Name            *string     `json:"name" validate:"omitnil,min=1,max=100"`
	AnnualQuota     *leave.Days `json:"annual_quota" validate:"omitnil,gte=0"`
	CarryForward    *bool       `json:"carry_forward"`
	MaxCarryForward *leave.Days `json:"max_carry_forward" validate:"omitnil,gte=0"`
	AllowNegative   *bool       `json:"allow_negative"`
	Description     *string     `json:"description" validate:"omitnil,max=500"`
}

type HolidayDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	CreatedAt string `json:"created_at"`
}

type CreateHolidayRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Name string `json:"name" validate:"required,max=100"`
	Kind string `json:"kind" validate:"omitempty,oneof=national regional optional"`
}

type UpdateHolidayRequest struct {
	Date *string `json:"date" validate:"omitnil,datetime=2006-01-02"`
	Name *string `json:"name" validate:"omitnil,min=1,max=100"`
	Kind *string `json:"kind" validate:"omitnil,oneof=national regional optional"`
}

// DurationRequest previews the days a request would consume.
type DurationRequest struct {
	StartDate string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string          `json:"end_date" validate:"required,datetime=2006-01-02"`
	DayType   string          `json:"day_type" validate:"omitempty,oneof=full first_half second_half"`
	Breakdown []DayPortionDTO `json:"breakdown" validate:"dive"`
}

type DurationDTO struct {
	StartDate string     `json:"start_date"`
	EndDate   string     `json:"end_date"`
	Days      leave.Days `json:"days"`
}

// =============================================================================
// REQUESTS
// =============================================================================

type DayPortionDTO struct {
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	DayType string `json:"day_type" validate:"required,oneof=full first_half second_half"`
}

type ApprovalDTO struct {
	Stage        string  `json:"stage"`
	ApproverID   string  `json:"approver_id,omitempty"`
	ApproverName string  `json:"approver_name,omitempty"`
	Status       string  `json:"status"`
	Comment      string  `json:"comment,omitempty"`
	Timestamp    *string `json:"timestamp,omitempty"`
}

// RequestDTO represents a leave request in API responses.
type RequestDTO struct {
	ID           string          `json:"id"`
	EmployeeID   string          `json:"employee_id"`
	EmployeeName string          `json:"employee_name"`
	Department   string          `json:"department"`
	LeaveType    string          `json:"leave_type"`
	StartDate    string          `json:"start_date"`
	EndDate      string          `json:"end_date"`
	DayType      string          `json:"day_type"`
	Breakdown    []DayPortionDTO `json:"breakdown,omitempty"`
	Reason       string          `json:"reason"`
	DaysCount    leave.Days      `json:"days_count"`
	Status       string          `json:"status"`
	CurrentStage string          `json:"current_stage"`
	Approvals    []ApprovalDTO   `json:"approvals"`
	AppliedOn    string          `json:"applied_on"`
	Version      int             `json:"version"`
	UpdatedAt    string          `json:"updated_at"`
}

// SubmitRequest creates a leave request. EmployeeID defaults to the caller.
type SubmitRequest struct {
	EmployeeID string          `json:"employee_id"`
	LeaveType  string          `json:"leave_type" validate:"required"`
	StartDate  string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string          `json:"end_date" validate:"required,datetime=2006-01-02"`
	DayType    string          `json:"day_type" validate:"omitempty,oneof=full first_half second_half"`
	Breakdown  []DayPortionDTO `json:"breakdown" validate:"dive"`
	Reason     string          `json:"reason" validate:"required"`
}

// ActionRequest approves or rejects the stage the caller is looking at.
type ActionRequest struct {
	Stage   string `json:"stage" validate:"required,oneof=team_lead manager director"`
	Comment string `json:"comment" validate:"max=1000"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// =============================================================================
// LEDGER, ADJUSTMENTS AND AUDIT
// =============================================================================

type LedgerEntryDTO struct {
	ID          string     `json:"id"`
	LeaveType   string     `json:"leave_type"`
	Kind        string     `json:"kind"`
	Delta       leave.Days `json:"delta"`
	Before      leave.Days `json:"before"`
	After       leave.Days `json:"after"`
	ReferenceID string     `json:"reference_id,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	ActorID     string     `json:"actor_id"`
	CreatedAt   string     `json:"created_at"`
}

type AdjustmentDTO struct {
	ID              string     `json:"id"`
	EmployeeID      string     `json:"employee_id"`
	EmployeeName    string     `json:"employee_name"`
	LeaveType       string     `json:"leave_type"`
	Kind            string     `json:"kind"`
	Days            leave.Days `json:"days"`
	Reason          string     `json:"reason"`
	ActorID         string     `json:"actor_id"`
	ActorName       string     `json:"actor_name,omitempty"`
	PreviousBalance leave.Days `json:"previous_balance"`
	NewBalance      leave.Days `json:"new_balance"`
	CreatedAt       string     `json:"created_at"`
}

// AdjustmentRequest credits (positive delta) or debits (negative) a balance.
type AdjustmentRequest struct {
	EmployeeID string     `json:"employee_id" validate:"required"`
	LeaveType  string     `json:"leave_type" validate:"required"`
	Delta      leave.Days `json:"delta" validate:"ne=0"`
	Reason     string     `json:"reason" validate:"required,max=500"`
}

type AuditEntryDTO struct {
	ID          string          `json:"id"`
	Action      string          `json:"action"`
	EntityType  string          `json:"entity_type"`
	EntityID    string          `json:"entity_id"`
	ActorID     string          `json:"actor_id"`
	Before      json.RawMessage `json:"before,omitempty"`
	After       json.RawMessage `json:"after,omitempty"`
	Description string          `json:"description"`
	CreatedAt   string          `json:"created_at"`
}

type YearResetRequest struct {
	Year int `json:"year" validate:"required,gte=1970,lte=9999"`
}

type YearResetDTO struct {
	Year    int `json:"year"`
	Reset   int `json:"reset"`
	Skipped int `json:"skipped"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(leave.DateLayout)
}

func toEmployeeDTO(e leave.Employee) EmployeeDTO {
	balances := e.LeaveBalance
	if balances == nil {
		balances = map[leave.LeaveType]leave.Days{}
	}
	return EmployeeDTO{
		ID:           e.ID,
		Name:         e.Name,
		Email:        e.Email,
		Role:         string(e.Role),
		Department:   e.Department,
		TeamID:       e.TeamID,
		ManagerID:    e.ManagerID,
		TeamLeadID:   e.TeamLeadID,
		JoinDate:     formatDate(e.JoinDate),
		Status:       string(e.Status),
		LeaveBalance: balances,
		Version:      e.Version,
		CreatedAt:    formatTime(e.CreatedAt),
		UpdatedAt:    formatTime(e.UpdatedAt),
	}
}

func toEmployeeChangeDTO(c leave.EmployeeChange) EmployeeChangeDTO {
	return EmployeeChangeDTO{
		ID:        c.ID,
		Field:     string(c.Field),
		OldValue:  c.OldValue,
		NewValue:  c.NewValue,
		ChangedBy: c.ChangedBy,
		Reason:    c.Reason,
		CreatedAt: formatTime(c.CreatedAt),
	}
}

func toPolicyDTO(p leave.Policy) PolicyDTO {
	return PolicyDTO{
		ID:              p.ID,
		LeaveType:       string(p.LeaveType),
		Name:            p.Name,
		AnnualQuota:     p.AnnualQuota,
		CarryForward:    p.CarryForward,
		MaxCarryForward: p.MaxCarryForward,
		AllowNegative:   p.AllowNegative,
		Description:     p.Description,
		Version:         p.Version,
		CreatedAt:       formatTime(p.CreatedAt),
		UpdatedAt:       formatTime(p.UpdatedAt),
	}
}

func toHolidayDTO(h leave.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:        h.ID,
		Date:      formatDate(h.Date),
		Name:      h.Name,
		Kind:      string(h.Kind),
		CreatedAt: formatTime(h.CreatedAt),
	}
}

func toRequestDTO(r leave.Request) RequestDTO {
	dto := RequestDTO{
		ID:           r.ID,
		EmployeeID:   r.EmployeeID,
		EmployeeName: r.EmployeeName,
		Department:   r.Department,
		LeaveType:    string(r.LeaveType),
		StartDate:    formatDate(r.StartDate),
		EndDate:      formatDate(r.EndDate),
		DayType:      string(r.DayType),
		Reason:       r.Reason,
		DaysCount:    r.DaysCount,
		Status:       string(r.Status),
		CurrentStage: string(r.CurrentStage),
		Approvals:    make([]ApprovalDTO, len(r.Approvals)),
		AppliedOn:    formatTime(r.AppliedOn),
		Version:      r.Version,
		UpdatedAt:    formatTime(r.UpdatedAt),
	}
	for _, p := range r.Breakdown {
		dto.Breakdown = append(dto.Breakdown, DayPortionDTO{Date: formatDate(p.Date), DayType: string(p.DayType)})
	}
	for i, a := range r.Approvals {
		ad := ApprovalDTO{
			Stage:        string(a.Stage),
			ApproverID:   a.ApproverID,
			ApproverName: a.ApproverName,
			Status:       string(a.Status),
			Comment:      a.Comment,
		}
		if a.Timestamp != nil {
			ts := formatTime(*a.Timestamp)
			ad.Timestamp = &ts
		}
		dto.Approvals[i] = ad
	}
	return dto
}

func toLedgerEntryDTO(e leave.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:          e.ID,
		LeaveType:   string(e.LeaveType),
		Kind:        string(e.Kind),
		Delta:       e.Delta,
		Before:      e.Before,
		After:       e.After,
		ReferenceID: e.ReferenceID,
		Reason:      e.Reason,
		ActorID:     e.ActorID,
		CreatedAt:   formatTime(e.CreatedAt),
	}
}

func toAdjustmentDTO(a leave.Adjustment) AdjustmentDTO {
	return AdjustmentDTO{
		ID:              a.ID,
		EmployeeID:      a.EmployeeID,
		EmployeeName:    a.EmployeeName,
		LeaveType:       string(a.LeaveType),
		Kind:            string(a.Kind),
		Days:            a.Days,
		Reason:          a.Reason,
		ActorID:         a.ActorID,
		ActorName:       a.ActorName,
		PreviousBalance: a.PreviousBalance,
		NewBalance:      a.NewBalance,
		CreatedAt:       formatTime(a.CreatedAt),
	}
}

func toAuditEntryDTO(e leave.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:          e.ID,
		Action:      string(e.Action),
		EntityType:  string(e.EntityType),
		EntityID:    e.EntityID,
		ActorID:     e.ActorID,
		Before:      e.Before,
		After:       e.After,
		Description: e.Description,
		CreatedAt:   formatTime(e.CreatedAt),
	}
}

// mapSlice converts a slice with f, returning an empty (not nil) slice so
// that lists always encode as [].
func mapSlice[T, D any](in []T, f func(T) D) []D {
	out := make([]D, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}

func parsePortions(in []DayPortionDTO) ([]leave.DayPortion, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]leave.DayPortion, len(in))
	for i, p := range in {
		d, err := leave.ParseDate(p.Date)
		if err != nil {
			return nil, err
		}
		out[i] = leave.DayPortion{Date: d, DayType: leave.DayType(p.DayType)}
	}
	return out, nil
}
