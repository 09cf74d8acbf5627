/*
workflow.go - Leave request state machine

PURPOSE:
  Owns the lifecycle of a Request. A request moves through a fixed, total
  approval chain; exactly one ApprovalRecord is pending while the request is
  pending, and only that record may be acted on.

STATE MACHINE:

  Submit ──► pending@team_lead ──approve──► pending@manager ──approve──► pending@director
                   │                            │                            │
                   │ reject / cancel            │ reject / cancel            │ approve
                   ▼                            ▼                            ▼
           rejected | cancelled         rejected | cancelled        approved (stage=completed)

BALANCE TIMING:
  Leave is debited at submission and released on rejection or cancellation.
  Approval never touches the ledger.

TRANSACTIONS:
  Every transition reads, validates, mutates and audits inside one
  Store.WithTx call. The audit append is the last write; if anything fails
  nothing of the transition is observable.

SEE ALSO:
  - ledger.go: ReserveOrDebit / Release
  - auth.go: requireApprover
*/
package leave

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

type Workflow struct {
	*core
	audit    *AuditLog
	ledger   *Ledger
	calendar *Calendar
}

// =============================================================================
// SUBMIT
// =============================================================================

// SubmitInput is a new leave request. DayType applies to every date in the
// range unless Breakdown overrides it.
type SubmitInput struct {
	EmployeeID string
	LeaveType  LeaveType
	StartDate  time.Time
	EndDate    time.Time
	DayType    DayType
	Breakdown  []DayPortion
	Reason     string
}

// Submit creates a request pending at the team lead stage and debits the
// requested days.
func (w *Workflow) Submit(ctx context.Context, actor Actor, in SubmitInput) (*Request, error) {
	if actor.ID == "" {
		return nil, &AuthorizationError{Role: actor.Role, Action: "submit request", Reason: "no actor identity"}
	}
	if actor.ID != in.EmployeeID && !actor.IsHR() {
		return nil, &AuthorizationError{ActorID: actor.ID, Role: actor.Role, Action: "submit request", Reason: "can only submit for yourself"}
	}
	reason := strings.TrimSpace(in.Reason)
	if err := w.checkReason(reason); err != nil {
		return nil, err
	}
	if !in.LeaveType.Valid() {
		return nil, &ValidationError{Field: "leave_type", Message: fmt.Sprintf("%q is not a valid leave type", in.LeaveType)}
	}
	dayType := in.DayType
	if dayType == "" {
		dayType = DayFull
	}

	var req Request
	err := w.store.WithTx(ctx, func(repo Repository) error {
		emp, err := repo.GetEmployee(ctx, in.EmployeeID)
		if err != nil {
			return err
		}
		if !emp.Active() {
			return &ConflictError{Entity: "employee", ID: emp.ID, Reason: "inactive employees cannot submit requests"}
		}
		if _, err := repo.GetPolicyByType(ctx, in.LeaveType); err != nil {
			return err
		}
		days, err := w.calendar.duration(ctx, repo, DurationInput{
			Start: in.StartDate, End: in.EndDate, DayType: dayType, Breakdown: in.Breakdown,
		})
		if err != nil {
			return err
		}
		if !days.IsPositive() {
			return &ValidationError{Field: "dates", Message: "the requested range contains no working days"}
		}

		now := w.now()
		req = Request{
			ID:           newID("req"),
			EmployeeID:   emp.ID,
			EmployeeName: emp.Name,
			Department:   emp.Department,
			LeaveType:    in.LeaveType,
			StartDate:    DateOf(in.StartDate),
			EndDate:      DateOf(in.EndDate),
			DayType:      dayType,
			Breakdown:    normalizeBreakdown(in.Breakdown),
			Reason:       reason,
			DaysCount:    days,
			Status:       StatusPending,
			CurrentStage: StageTeamLead,
			Approvals:    []ApprovalRecord{{Stage: StageTeamLead, Status: RecordPending}},
			AppliedOn:    now,
			UpdatedAt:    now,
		}

		if _, err := w.ledger.ReserveOrDebit(ctx, repo, Movement{
			EmployeeID:  emp.ID,
			LeaveType:   in.LeaveType,
			Amount:      days,
			ReferenceID: req.ID,
			ActorID:     actor.ID,
			Reason:      "leave request submitted",
		}); err != nil {
			return err
		}
		if err := repo.InsertRequest(ctx, &req); err != nil {
			return err
		}
		_, err = w.audit.Record(ctx, repo, AuditRecord{
			Action:      AuditRequestSubmitted,
			EntityType:  EntityLeaveRequest,
			EntityID:    req.ID,
			ActorID:     actor.ID,
			After:       req,
			Description: fmt.Sprintf("Leave request submitted: %s day(s) of %s for %s", days, in.LeaveType, emp.Name),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	w.log(ctx).Info().
		Str("request_id", req.ID).
		Str("employee_id", req.EmployeeID).
		Str("leave_type", string(req.LeaveType)).
		Str("days", req.DaysCount.String()).
		Msg("leave request submitted")
	return &req, nil
}

func (w *Workflow) checkReason(reason string) error {
	n := utf8.RuneCountInString(reason)
	if n < w.opts.MinReasonLength {
		return &ReasonTooShortError{Min: w.opts.MinReasonLength, Length: n}
	}
	if w.opts.MaxReasonLength > 0 && n > w.opts.MaxReasonLength {
		return &ValidationError{Field: "reason", Message: fmt.Sprintf("must be at most %d characters", w.opts.MaxReasonLength)}
	}
	return nil
}

func normalizeBreakdown(in []DayPortion) []DayPortion {
	if len(in) == 0 {
		return nil
	}
	out := make([]DayPortion, len(in))
	for i, p := range in {
		out[i] = DayPortion{Date: DateOf(p.Date), DayType: p.DayType}
	}
	return out
}

// =============================================================================
// APPROVE / REJECT
// =============================================================================

// ActionInput identifies the stage the caller believes the request is at.
// A mismatch with the stored stage fails with StaleStateError.
type ActionInput struct {
	RequestID string
	Stage     Stage
	Comment   string
}

// Approve marks the current stage approved. The request advances to the next
// stage, or becomes approved after the director stage.
func (w *Workflow) Approve(ctx context.Context, actor Actor, in ActionInput) (*Request, error) {
	return w.act(ctx, actor, in, RecordApproved)
}

// Reject marks the current stage rejected and releases the debited days.
// A non-empty comment is required.
func (w *Workflow) Reject(ctx context.Context, actor Actor, in ActionInput) (*Request, error) {
	if strings.TrimSpace(in.Comment) == "" {
		return nil, &EmptyCommentError{RequestID: in.RequestID}
	}
	return w.act(ctx, actor, in, RecordRejected)
}

func (w *Workflow) act(ctx context.Context, actor Actor, in ActionInput, outcome RecordStatus) (*Request, error) {
	if !in.Stage.Valid() {
		return nil, &ValidationError{Field: "stage", Message: fmt.Sprintf("%q is not a valid stage", in.Stage)}
	}
	comment := strings.TrimSpace(in.Comment)

	var updated Request
	err := w.store.WithTx(ctx, func(repo Repository) error {
		current, err := repo.GetRequest(ctx, in.RequestID)
		if err != nil {
			return err
		}
		requester, err := repo.GetEmployee(ctx, current.EmployeeID)
		if err != nil && !IsNotFound(err) {
			return err
		}
		if err := actor.requireApprover(in.Stage, requester); err != nil {
			return err
		}
		if current.Status != StatusPending || current.CurrentStage != in.Stage {
			return &StaleStateError{
				RequestID:     current.ID,
				ExpectedStage: in.Stage,
				CurrentStage:  current.CurrentStage,
				Status:        current.Status,
			}
		}
		record, ok := current.PendingRecord()
		if !ok || record.Stage != current.CurrentStage {
			return fmt.Errorf("request %s has no pending record for stage %s", current.ID, current.CurrentStage)
		}

		next := current.Clone()
		now := w.now()
		rec, _ := next.PendingRecord()
		rec.ApproverID = actor.ID
		rec.ApproverName = actor.Name
		rec.Status = outcome
		rec.Comment = comment
		rec.Timestamp = &now
		next.UpdatedAt = now

		action := AuditApproval
		var desc string
		switch outcome {
		case RecordApproved:
			stage, _ := next.CurrentStage.Next()
			next.CurrentStage = stage
			if stage == StageCompleted {
				next.Status = StatusApproved
				desc = fmt.Sprintf("Leave request %s approved", next.ID)
			} else {
				next.Approvals = append(next.Approvals, ApprovalRecord{Stage: stage, Status: RecordPending})
				desc = fmt.Sprintf("Leave request %s approved at %s stage, forwarded to %s", next.ID, in.Stage, stage)
			}
		case RecordRejected:
			action = AuditRejection
			next.Status = StatusRejected
			desc = fmt.Sprintf("Leave request %s rejected at %s stage: %s", next.ID, in.Stage, comment)
			if _, err := w.ledger.Release(ctx, repo, Movement{
				EmployeeID:  next.EmployeeID,
				LeaveType:   next.LeaveType,
				Amount:      next.DaysCount,
				ReferenceID: next.ID,
				ActorID:     actor.ID,
				Reason:      "leave request rejected",
			}); err != nil {
				return err
			}
		case RecordPending:
			return fmt.Errorf("unexpected outcome %s", outcome)
		}

		if err := repo.UpdateRequest(ctx, &next); err != nil {
			return err
		}
		updated = next
		_, err = w.audit.Record(ctx, repo, AuditRecord{
			Action:      action,
			EntityType:  EntityLeaveRequest,
			EntityID:    next.ID,
			ActorID:     actor.ID,
			Before:      requestState(current),
			After:       requestState(&next),
			Description: desc,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	w.log(ctx).Info().
		Str("request_id", updated.ID).
		Str("actor_id", actor.ID).
		Str("outcome", string(outcome)).
		Str("status", string(updated.Status)).
		Str("stage", string(updated.CurrentStage)).
		Msg("leave request actioned")
	return &updated, nil
}

// requestState is the audit snapshot of a request transition.
func requestState(r *Request) map[string]any {
	return map[string]any{
		"status":        r.Status,
		"current_stage": r.CurrentStage,
		"days_count":    r.DaysCount,
		"approvals":     len(r.Approvals),
	}
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel withdraws a pending request at any stage and releases its days.
// Only the requester or HR may cancel. The approval record that was pending
// is left as it was.
func (w *Workflow) Cancel(ctx context.Context, actor Actor, requestID, reason string) (*Request, error) {
	if actor.ID == "" {
		return nil, &AuthorizationError{Role: actor.Role, Action: "cancel request", Reason: "no actor identity"}
	}
	reason = strings.TrimSpace(reason)

	var updated Request
	err := w.store.WithTx(ctx, func(repo Repository) error {
		current, err := repo.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if actor.ID != current.EmployeeID && !actor.IsHR() {
			return &AuthorizationError{ActorID: actor.ID, Role: actor.Role, Action: "cancel request", Reason: "not the requester"}
		}
		if current.Status != StatusPending {
			return &StaleStateError{RequestID: current.ID, CurrentStage: current.CurrentStage, Status: current.Status}
		}

		next := current.Clone()
		next.Status = StatusCancelled
		next.UpdatedAt = w.now()

		if _, err := w.ledger.Release(ctx, repo, Movement{
			EmployeeID:  next.EmployeeID,
			LeaveType:   next.LeaveType,
			Amount:      next.DaysCount,
			ReferenceID: next.ID,
			ActorID:     actor.ID,
			Reason:      "leave request cancelled",
		}); err != nil {
			return err
		}
		if err := repo.UpdateRequest(ctx, &next); err != nil {
			return err
		}
		updated = next

		desc := fmt.Sprintf("Leave request %s cancelled", next.ID)
		if reason != "" {
			desc += ": " + reason
		}
		_, err = w.audit.Record(ctx, repo, AuditRecord{
			Action:      AuditCancellation,
			EntityType:  EntityLeaveRequest,
			EntityID:    next.ID,
			ActorID:     actor.ID,
			Before:      requestState(current),
			After:       requestState(&next),
			Description: desc,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	w.log(ctx).Info().Str("request_id", updated.ID).Str("actor_id", actor.ID).Msg("leave request cancelled")
	return &updated, nil
}

// =============================================================================
// READS
// =============================================================================

func (w *Workflow) Get(ctx context.Context, id string) (*Request, error) {
	return w.store.GetRequest(ctx, id)
}

// List returns requests matching filter, newest first.
func (w *Workflow) List(ctx context.Context, filter RequestFilter) ([]Request, error) {
	return w.store.ListRequests(ctx, filter)
}

// ByStage returns the requests pending at stage.
func (w *Workflow) ByStage(ctx context.Context, stage Stage) ([]Request, error) {
	return w.List(ctx, RequestFilter{Status: StatusPending, Stage: stage})
}

func (w *Workflow) ByEmployee(ctx context.Context, employeeID string) ([]Request, error) {
	return w.List(ctx, RequestFilter{EmployeeID: employeeID})
}

// PendingCount is the number of requests pending at stage.
func (w *Workflow) PendingCount(ctx context.Context, stage Stage) (int, error) {
	reqs, err := w.ByStage(ctx, stage)
	if err != nil {
		return 0, err
	}
	return len(reqs), nil
}

// PendingCounts returns the pending count for every actionable stage.
func (w *Workflow) PendingCounts(ctx context.Context) (map[Stage]int, error) {
	reqs, err := w.List(ctx, RequestFilter{Status: StatusPending})
	if err != nil {
		return nil, err
	}
	out := make(map[Stage]int, len(StageOrder))
	for _, s := range ActionableStages() {
		out[s] = 0
	}
	for _, r := range reqs {
		out[r.CurrentStage]++
	}
	return out, nil
}
