package leave

import (
	"context"
	"fmt"
	"strings"
)

// =============================================================================
// POLICY STORE
// =============================================================================

// Policies manages leave-type definitions. Edits apply to future requests
// only: approved requests keep the DaysCount and ledger debits they were
// recorded with.
type Policies struct {
	*core
	audit  *AuditLog
	ledger *Ledger
}

// Add defines a new leave type and opens a balance for it for every employee.
func (p *Policies) Add(ctx context.Context, actor Actor, in Policy) (*Policy, error) {
	if err := actor.requireHR("add policy"); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validatePolicy(&in); err != nil {
		return nil, err
	}

	now := p.now()
	policy := in
	policy.ID = newID("pol")
	policy.CreatedAt, policy.UpdatedAt = now, now

	err := p.store.WithTx(ctx, func(repo Repository) error {
		if existing, err := repo.GetPolicyByType(ctx, in.LeaveType); err == nil {
			return &ConflictError{Entity: "policy", ID: existing.ID, Reason: "leave type " + string(in.LeaveType) + " already has a policy"}
		} else if !IsNotFound(err) {
			return err
		}
		if err := repo.InsertPolicy(ctx, &policy); err != nil {
			return err
		}

		employees, err := repo.ListEmployees(ctx, EmployeeFilter{})
		if err != nil {
			return err
		}
		for _, emp := range employees {
			if err := p.ledger.open(ctx, repo, emp.ID, &policy, actor.ID); err != nil {
				return err
			}
		}

		_, err = p.audit.Record(ctx, repo, AuditRecord{
			Action:      AuditPolicyAdd,
			EntityType:  EntityPolicy,
			EntityID:    policy.ID,
			ActorID:     actor.ID,
			After:       policy,
			Description: "New policy added: " + policy.Name,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	p.log(ctx).Info().Str("policy_id", policy.ID).Str("leave_type", string(policy.LeaveType)).Msg("policy added")
	return &policy, nil
}

// PolicyUpdate holds the fields to change. The leave type is immutable.
type PolicyUpdate struct {
	Name            *string
	AnnualQuota     *Days
	CarryForward    *bool
	MaxCarryForward *Days
	AllowNegative   *bool
	Description     *string
}

func (p *Policies) Update(ctx context.Context, actor Actor, id string, upd PolicyUpdate) (*Policy, error) {
	if err := actor.requireHR("update policy"); err != nil {
		return nil, err
	}

	var updated Policy
	err := p.store.WithTx(ctx, func(repo Repository) error {
		current, err := repo.GetPolicy(ctx, id)
		if err != nil {
			return err
		}
		before := *current
		next := *current
		if upd.Name != nil {
			next.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.AnnualQuota != nil {
			next.AnnualQuota = *upd.AnnualQuota
		}
		if upd.CarryForward != nil {
			next.CarryForward = *upd.CarryForward
		}
		if upd.MaxCarryForward != nil {
			next.MaxCarryForward = *upd.MaxCarryForward
		}
		if upd.AllowNegative != nil {
			next.AllowNegative = *upd.AllowNegative
		}
		if upd.Description != nil {
			next.Description = *upd.Description
		}
		if err := validatePolicy(&next); err != nil {
			return err
		}
		if current.AllowNegative && !next.AllowNegative {
			if err := requireNoNegativeBalances(ctx, repo, next.LeaveType); err != nil {
				return err
			}
		}
		next.UpdatedAt = p.now()
		if err := repo.UpdatePolicy(ctx, &next); err != nil {
			return err
		}
		updated = next

		_, err = p.audit.Record(ctx, repo, AuditRecord{
			Action:      AuditPolicyUpdate,
			EntityType:  EntityPolicy,
			EntityID:    id,
			ActorID:     actor.ID,
			Before:      before,
			After:       next,
			Description: "Policy updated: " + next.Name,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a policy. It is blocked while any pending request uses the
// leave type. Balances and ledger history for the type are retained.
func (p *Policies) Delete(ctx context.Context, actor Actor, id string) error {
	if err := actor.requireHR("delete policy"); err != nil {
		return err
	}
	return p.store.WithTx(ctx, func(repo Repository) error {
		policy, err := repo.GetPolicy(ctx, id)
		if err != nil {
			return err
		}
		pending, err := repo.ListRequests(ctx, RequestFilter{LeaveType: policy.LeaveType, Status: StatusPending})
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			return &PolicyInUseError{PolicyID: id, LeaveType: policy.LeaveType, PendingRequests: len(pending)}
		}
		if err := repo.DeletePolicy(ctx, id); err != nil {
			return err
		}
		_, err = p.audit.Record(ctx, repo, AuditRecord{
			Action:      AuditPolicyDelete,
			EntityType:  EntityPolicy,
			EntityID:    id,
			ActorID:     actor.ID,
			Before:      policy,
			Description: "Policy deleted: " + policy.Name,
		})
		return err
	})
}

func (p *Policies) Get(ctx context.Context, id string) (*Policy, error) {
	return p.store.GetPolicy(ctx, id)
}

func (p *Policies) GetByType(ctx context.Context, lt LeaveType) (*Policy, error) {
	return p.store.GetPolicyByType(ctx, lt)
}

func (p *Policies) List(ctx context.Context) ([]Policy, error) {
	return p.store.ListPolicies(ctx)
}

func validatePolicy(p *Policy) error {
	if !p.LeaveType.Valid() {
		return &ValidationError{Field: "leave_type", Message: fmt.Sprintf("%q is not a valid leave type", p.LeaveType)}
	}
	if p.Name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if p.AnnualQuota.IsNegative() {
		return &ValidationError{Field: "annual_quota", Message: "must not be negative"}
	}
	if p.MaxCarryForward.IsNegative() {
		return &ValidationError{Field: "max_carry_forward", Message: "must not be negative"}
	}
	if !p.CarryForward {
		p.MaxCarryForward = 0
	}
	return nil
}

// requireNoNegativeBalances blocks disabling negative balances while an
// employee still owes days of that type.
func requireNoNegativeBalances(ctx context.Context, repo Repository, lt LeaveType) error {
	employees, err := repo.ListEmployees(ctx, EmployeeFilter{})
	if err != nil {
		return err
	}
	for _, emp := range employees {
		balances, err := repo.ListBalances(ctx, emp.ID)
		if err != nil {
			return err
		}
		for _, b := range balances {
			if b.LeaveType == lt && b.Days.IsNegative() {
				return &ConflictError{
					Entity: "policy",
					ID:     string(lt),
					Reason: fmt.Sprintf("cannot disallow negative balances: %s has %s", emp.ID, b.Days),
				}
			}
		}
	}
	return nil
}
