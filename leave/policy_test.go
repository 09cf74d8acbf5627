package leave_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
)

func TestPolicies_Add_ReconcilesEveryEmployee(t *testing.T) {
	// GIVEN: Five employees without a wfh balance
	// WHEN: HR adds a wfh policy with quota 24
	// THEN: Every employee has a wfh balance of 24 backed by an opening entry

	f := newFixture(t)

	p, err := f.eng.Policies.Add(f.ctx, f.hr, leave.Policy{
		LeaveType: leave.LeaveWorkFromHome, Name: "Work From Home", AnnualQuota: leave.NewDays(24),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Version)

	emps, err := f.eng.Directory.List(f.ctx, leave.EmployeeFilter{})
	require.NoError(t, err)
	require.Len(t, emps, 5)
	for _, e := range emps {
		assert.Equal(t, leave.NewDays(24), e.LeaveBalance[leave.LeaveWorkFromHome], e.ID)
		f.requireReplayMatches(t, e.ID)
	}

	opening, err := f.eng.Ledger.Entries(f.ctx, leave.LedgerFilter{Kind: leave.LedgerOpening, ReferenceID: p.ID})
	require.NoError(t, err)
	assert.Len(t, opening, 5)
}

func TestPolicies_Add_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.Policies.Add(f.ctx, f.hr, leave.Policy{LeaveType: leave.LeaveCasual, Name: "Casual again"})
	assert.True(t, leave.IsConflict(err), "one policy per leave type")

	_, err = f.eng.Policies.Add(f.ctx, f.hr, leave.Policy{LeaveType: "Bad Type", Name: "Bad"})
	assert.ErrorIs(t, err, leave.ErrValidation)

	_, err = f.eng.Policies.Add(f.ctx, f.hr, leave.Policy{LeaveType: leave.LeaveWorkFromHome, Name: "WFH", AnnualQuota: leave.NewDays(-1)})
	assert.ErrorIs(t, err, leave.ErrValidation)

	_, err = f.eng.Policies.Add(f.ctx, f.emp, leave.Policy{LeaveType: leave.LeaveWorkFromHome, Name: "WFH"})
	assert.ErrorIs(t, err, leave.ErrUnauthorized)
}

func TestPolicies_Update_NotRetroactive(t *testing.T) {
	// GIVEN: An approved 2-day casual request
	// WHEN: HR raises the casual quota to 12
	// THEN: The request's DaysCount and the balance are unchanged

	f := newFixture(t)
	req := f.submit(t)
	f.approve(t, f.lead, req.ID, leave.StageTeamLead)
	f.approve(t, f.mgr, req.ID, leave.StageManager)
	f.approve(t, f.dir, req.ID, leave.StageDirector)

	casual, err := f.eng.Policies.GetByType(f.ctx, leave.LeaveCasual)
	require.NoError(t, err)
	quota := leave.NewDays(12)
	updated, err := f.eng.Policies.Update(f.ctx, f.hr, casual.ID, leave.PolicyUpdate{AnnualQuota: &quota})
	require.NoError(t, err)
	assert.Equal(t, quota, updated.AnnualQuota)
	assert.Equal(t, casual.Version+1, updated.Version)

	got, err := f.eng.Workflow.Get(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.NewDays(2), got.DaysCount)
	assert.Equal(t, leave.NewDays(6), f.balance(t, f.emp.ID, leave.LeaveCasual))

	audits, err := f.eng.Audit.ByEntity(f.ctx, casual.ID)
	require.NoError(t, err)
	require.Len(t, audits, 2)
	assert.Equal(t, leave.AuditPolicyAdd, audits[0].Action)
	assert.Equal(t, leave.AuditPolicyUpdate, audits[1].Action)
}

func TestPolicies_Update_DisablingCarryForwardClearsCap(t *testing.T) {
	f := newFixture(t)
	sick, err := f.eng.Policies.GetByType(f.ctx, leave.LeaveSick)
	require.NoError(t, err)

	off := false
	updated, err := f.eng.Policies.Update(f.ctx, f.hr, sick.ID, leave.PolicyUpdate{CarryForward: &off})
	require.NoError(t, err)
	assert.True(t, updated.MaxCarryForward.IsZero())
}

func TestPolicies_Update_DisallowNegativeBlockedByNegativeBalance(t *testing.T) {
	// GIVEN: Comp off allows negative and emp-1 is at -2 after a request
	// WHEN: HR turns AllowNegative off
	// THEN: Conflict; once the request is cancelled the update succeeds

	f := newFixture(t)
	req, err := f.eng.Workflow.Submit(f.ctx, f.emp, leave.SubmitInput{
		EmployeeID: f.emp.ID,
		LeaveType:  leave.LeaveCompOff,
		StartDate:  monday,
		EndDate:    tuesday,
		Reason:     validReason,
	})
	require.NoError(t, err)
	require.Equal(t, leave.NewDays(-2), f.balance(t, f.emp.ID, leave.LeaveCompOff))

	compOff, err := f.eng.Policies.GetByType(f.ctx, leave.LeaveCompOff)
	require.NoError(t, err)
	off := false
	_, err = f.eng.Policies.Update(f.ctx, f.hr, compOff.ID, leave.PolicyUpdate{AllowNegative: &off})
	var conflict *leave.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, conflict.Reason, f.emp.ID)

	unchanged, err := f.eng.Policies.Get(f.ctx, compOff.ID)
	require.NoError(t, err)
	assert.True(t, unchanged.AllowNegative)

	_, err = f.eng.Workflow.Cancel(f.ctx, f.emp, req.ID, "")
	require.NoError(t, err)
	updated, err := f.eng.Policies.Update(f.ctx, f.hr, compOff.ID, leave.PolicyUpdate{AllowNegative: &off})
	require.NoError(t, err)
	assert.False(t, updated.AllowNegative)
}

func TestPolicies_Delete_BlockedByPendingRequest(t *testing.T) {
	// GIVEN: A pending casual request
	// WHEN: HR deletes the casual policy
	// THEN: PolicyInUseError; after the request is cancelled the delete succeeds

	f := newFixture(t)
	req := f.submit(t)
	casual, err := f.eng.Policies.GetByType(f.ctx, leave.LeaveCasual)
	require.NoError(t, err)

	err = f.eng.Policies.Delete(f.ctx, f.hr, casual.ID)
	var inUse *leave.PolicyInUseError
	require.ErrorAs(t, err, &inUse)
	assert.Equal(t, 1, inUse.PendingRequests)
	assert.True(t, leave.IsConflict(err))

	_, err = f.eng.Workflow.Cancel(f.ctx, f.emp, req.ID, "")
	require.NoError(t, err)
	require.NoError(t, f.eng.Policies.Delete(f.ctx, f.hr, casual.ID))

	_, err = f.eng.Policies.Get(f.ctx, casual.ID)
	assert.True(t, leave.IsNotFound(err))
	assert.Equal(t, leave.NewDays(8), f.balance(t, f.emp.ID, leave.LeaveCasual), "balance history is retained")

	deleted, err := f.eng.Audit.ByAction(f.ctx, leave.AuditPolicyDelete)
	require.NoError(t, err)
	assert.Len(t, deleted, 1)
}

func TestPolicies_List(t *testing.T) {
	f := newFixture(t)
	list, err := f.eng.Policies.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, leave.LeaveCasual, list[0].LeaveType)
}
