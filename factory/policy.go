/*
Package factory converts seed documents into leave engine values.

PURPOSE:
  Policies, holidays and the initial employee roster are configuration.
  HR keeps them in a YAML (or JSON) file; the factory parses the file, builds
  domain values and applies them through the engine so that every seeded
  record gets the same validation, ledger entries and audit trail as one
  created over the API.

DOCUMENT SCHEMA:
  policies:
    - leave_type: sick
      name: Sick Leave
      annual_quota: 12
      carry_forward: true
      max_carry_forward: 6
      allow_negative: false
      description: For illness and medical appointments
  holidays:
    - date: 2026-01-26
      name: Republic Day
      kind: national          # national | regional | optional
  employees:
    - id: emp-1
      name: John Smith
      email: john@company.com
      role: employee          # employee | team_lead | manager | director | hr_admin
      department: Engineering
      team_id: team-1
      manager_id: mgr-1
      team_lead_id: tl-1
      join_date: 2022-03-15

  Day amounts accept whole or half days ("12", "1.5").

USAGE:
  doc, err := factory.ParseFile("seed.yaml")
  summary, err := factory.Apply(ctx, eng, leave.SystemActor, doc)

SEE ALSO:
  - seed.go: parsing and Apply
  - leave/policy.go: Policies.Add
*/
package factory

import (
	"fmt"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// PolicySpec is the document form of a leave policy.
type PolicySpec struct {
	LeaveType       string `yaml:"leave_type" json:"leave_type"`
	Name            string `yaml:"name" json:"name"`
	AnnualQuota     string `yaml:"annual_quota" json:"annual_quota"`
	CarryForward    bool   `yaml:"carry_forward" json:"carry_forward"`
	MaxCarryForward string `yaml:"max_carry_forward" json:"max_carry_forward"`
	AllowNegative   bool   `yaml:"allow_negative" json:"allow_negative"`
	Description     string `yaml:"description" json:"description"`
}

// HolidaySpec is the document form of a holiday.
type HolidaySpec struct {
	Date string `yaml:"date" json:"date"`
	Name string `yaml:"name" json:"name"`
	Kind string `yaml:"kind" json:"kind"`
}

// EmployeeSpec is the document form of an employee.
type EmployeeSpec struct {
	ID         string `yaml:"id" json:"id"`
	Name       string `yaml:"name" json:"name"`
	Email      string `yaml:"email" json:"email"`
	Role       string `yaml:"role" json:"role"`
	Department string `yaml:"department" json:"department"`
	TeamID     string `yaml:"team_id" json:"team_id"`
	ManagerID  string `yaml:"manager_id" json:"manager_id"`
	TeamLeadID string `yaml:"team_lead_id" json:"team_lead_id"`
	JoinDate   string `yaml:"join_date" json:"join_date"`
}

// Document is a parsed seed file.
type Document struct {
	Policies  []PolicySpec   `yaml:"policies" json:"policies"`
	Holidays  []HolidaySpec  `yaml:"holidays" json:"holidays"`
	Employees []EmployeeSpec `yaml:"employees" json:"employees"`
}

// =============================================================================
// CONVERSION
// =============================================================================

// Policy converts the spec. Field validation beyond number parsing is left
// to leave.Policies.Add.
func (s PolicySpec) Policy() (leave.Policy, error) {
	quota, err := parseAmount(s.AnnualQuota)
	if err != nil {
		return leave.Policy{}, fmt.Errorf("policy %s: annual_quota: %w", s.LeaveType, err)
	}
	maxCarry, err := parseAmount(s.MaxCarryForward)
	if err != nil {
		return leave.Policy{}, fmt.Errorf("policy %s: max_carry_forward: %w", s.LeaveType, err)
	}
	return leave.Policy{
		LeaveType:       leave.LeaveType(s.LeaveType),
		Name:            s.Name,
		AnnualQuota:     quota,
		CarryForward:    s.CarryForward,
		MaxCarryForward: maxCarry,
		AllowNegative:   s.AllowNegative,
		Description:     s.Description,
	}, nil
}

func (s HolidaySpec) Holiday() (leave.Holiday, error) {
	date, err := leave.ParseDate(s.Date)
	if err != nil {
		return leave.Holiday{}, fmt.Errorf("holiday %q: %w", s.Name, err)
	}
	return leave.Holiday{Date: date, Name: s.Name, Kind: leave.HolidayKind(s.Kind)}, nil
}

func (s EmployeeSpec) NewEmployee() leave.NewEmployee {
	return leave.NewEmployee{
		ID:         s.ID,
		Name:       s.Name,
		Email:      s.Email,
		Role:       leave.Role(s.Role),
		Department: s.Department,
		TeamID:     s.TeamID,
		ManagerID:  s.ManagerID,
		TeamLeadID: s.TeamLeadID,
		JoinDate:   s.JoinDate,
	}
}

func parseAmount(s string) (leave.Days, error) {
	if s == "" {
		return 0, nil
	}
	return leave.ParseDays(s)
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultPolicies returns the stock leave types.
func DefaultPolicies() []leave.Policy {
	return []leave.Policy{
		{LeaveType: leave.LeaveCasual, Name: "Casual Leave", AnnualQuota: leave.NewDays(12),
			Description: "For personal matters and short breaks"},
		{LeaveType: leave.LeaveSick, Name: "Sick Leave", AnnualQuota: leave.NewDays(12),
			CarryForward: true, MaxCarryForward: leave.NewDays(6),
			Description: "For illness and medical appointments"},
		{LeaveType: leave.LeaveEarned, Name: "Earned Leave", AnnualQuota: leave.NewDays(21),
			CarryForward: true, MaxCarryForward: leave.NewDays(30),
			Description: "Earned based on days worked"},
		{LeaveType: leave.LeaveWorkFromHome, Name: "Work From Home", AnnualQuota: leave.NewDays(24),
			Description: "Remote work days"},
		{LeaveType: leave.LeaveCompOff, Name: "Compensatory Off",
			Description: "Earned for working on holidays/weekends"},
	}
}
