/*
errors.go - Error taxonomy for the leave engine

ERROR KINDS (sentinels, use with errors.Is):
  ErrValidation             bad input shape
  ErrStateConflict          stage mismatch, stale view, blocked deletion
  ErrInsufficientBalance    debit exceeds balance
  ErrNotFound               unknown employee/request/policy/holiday id
  ErrUnauthorized           actor lacks the role for the mutation
  ErrConcurrentModification optimistic version check failed in the store

STRUCTURED ERRORS:
  Each carries context and unwraps to exactly one kind, so callers can branch
  on the kind and still show details:

    var stale *leave.StaleStateError
    if errors.As(err, &stale) { ... }
    if errors.Is(err, leave.ErrStateConflict) { ... "please refresh" ... }
*/
package leave

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	ErrValidation             = errors.New("validation failed")
	ErrStateConflict          = errors.New("state conflict")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrNotFound               = errors.New("not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError reports a malformed or missing field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidDateRangeError is returned when a request ends before it starts.
type InvalidDateRangeError struct {
	Start string
	End   string
}

func (e *InvalidDateRangeError) Error() string {
	return fmt.Sprintf("invalid date range: end %s is before start %s", e.End, e.Start)
}

func (e *InvalidDateRangeError) Unwrap() error { return ErrValidation }

// ReasonTooShortError is returned when a request reason is under the minimum length.
type ReasonTooShortError struct {
	Min    int
	Length int
}

func (e *ReasonTooShortError) Error() string {
	return fmt.Sprintf("reason too short: %d characters, need at least %d", e.Length, e.Min)
}

func (e *ReasonTooShortError) Unwrap() error { return ErrValidation }

// EmptyCommentError is returned when a rejection has no comment.
type EmptyCommentError struct {
	RequestID string
}

func (e *EmptyCommentError) Error() string {
	return fmt.Sprintf("comment is required to reject request %s", e.RequestID)
}

func (e *EmptyCommentError) Unwrap() error { return ErrValidation }

// =============================================================================
// STATE CONFLICTS
// =============================================================================

// StaleStateError means the caller acted on an outdated view of a request.
type StaleStateError struct {
	RequestID     string
	ExpectedStage Stage
	CurrentStage  Stage
	Status        Status
}

func (e *StaleStateError) Error() string {
	if e.ExpectedStage == "" {
		return fmt.Sprintf("request %s is %s, expected pending", e.RequestID, e.Status)
	}
	return fmt.Sprintf("request %s is %s at stage %s, expected pending at %s",
		e.RequestID, e.Status, e.CurrentStage, e.ExpectedStage)
}

func (e *StaleStateError) Unwrap() error { return ErrStateConflict }

// PolicyInUseError blocks deleting a policy that pending requests reference.
type PolicyInUseError struct {
	PolicyID        string
	LeaveType       LeaveType
	PendingRequests int
}

func (e *PolicyInUseError) Error() string {
	return fmt.Sprintf("policy %s (%s) is referenced by %d pending request(s)",
		e.PolicyID, e.LeaveType, e.PendingRequests)
}

func (e *PolicyInUseError) Unwrap() error { return ErrStateConflict }

// ConflictError reports a uniqueness or lifecycle conflict on an entity.
type ConflictError struct {
	Entity string
	ID     string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Entity, e.ID, e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrStateConflict }

// =============================================================================
// BALANCE
// =============================================================================

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	EmployeeID string
	LeaveType  LeaveType
	Available  Days
	Requested  Days
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance for %s: available %s, requested %s",
		e.LeaveType, e.EmployeeID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// Shortfall is the number of days missing.
func (e *InsufficientBalanceError) Shortfall() Days { return e.Requested - e.Available }

// =============================================================================
// LOOKUP / AUTHORIZATION
// =============================================================================

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Entity, e.ID) }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// AuthorizationError means the actor may not perform the action.
type AuthorizationError struct {
	ActorID string
	Role    Role
	Action  string
	Reason  string
}

func (e *AuthorizationError) Error() string {
	msg := fmt.Sprintf("actor %s (%s) may not %s", e.ActorID, e.Role, e.Action)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *AuthorizationError) Unwrap() error { return ErrUnauthorized }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInsufficientBalance)
}

// IsConflict returns true if the caller's view was stale and should be refreshed.
func IsConflict(err error) bool {
	return errors.Is(err, ErrStateConflict) || errors.Is(err, ErrConcurrentModification)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsRetryable returns true if the same call might succeed on retry with fresh data.
func IsRetryable(err error) bool { return errors.Is(err, ErrConcurrentModification) }
