package leave_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/leave/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// tickClock advances one second per call so that entries written in the
// same test keep a strict order.
type tickClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *tickClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	ctx   context.Context
	eng   *leave.Engine
	clock *tickClock

	hr, lead, mgr, dir, emp leave.Actor
}

var (
	monday  = time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	tuesday = time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
)

const validReason = "family function out of town"

// newFixture builds an engine over the memory store with:
//
//	casual  quota 8,  no carry forward
//	sick    quota 9,  carry forward up to 6
//	earned  quota 21, carry forward up to 30
//	comp_off quota 0, negative balance allowed
//
// and an approval chain emp-1 -> tl-1 -> mgr-1 -> dir-1.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &tickClock{now: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)}
	opts := leave.DefaultOptions()
	opts.Now = clock.Now

	f := &fixture{
		ctx:   context.Background(),
		eng:   leave.NewEngine(store.NewMemory(), opts),
		clock: clock,
	}

	for _, p := range []leave.Policy{
		{LeaveType: leave.LeaveCasual, Name: "Casual Leave", AnnualQuota: leave.NewDays(8)},
		{LeaveType: leave.LeaveSick, Name: "Sick Leave", AnnualQuota: leave.NewDays(9), CarryForward: true, MaxCarryForward: leave.NewDays(6)},
		{LeaveType: leave.LeaveEarned, Name: "Earned Leave", AnnualQuota: leave.NewDays(21), CarryForward: true, MaxCarryForward: leave.NewDays(30)},
		{LeaveType: leave.LeaveCompOff, Name: "Comp Off", AllowNegative: true},
	} {
		_, err := f.eng.Policies.Add(f.ctx, leave.SystemActor, p)
		require.NoError(t, err)
	}

	add := func(in leave.NewEmployee) leave.Actor {
		e, err := f.eng.Directory.Add(f.ctx, leave.SystemActor, in)
		require.NoError(t, err)
		return leave.Actor{ID: e.ID, Name: e.Name, Role: e.Role}
	}
	f.hr = add(leave.NewEmployee{ID: "hr-1", Name: "Hannah HR", Email: "hannah@example.com", Role: leave.RoleHRAdmin, Department: "People"})
	f.dir = add(leave.NewEmployee{ID: "dir-1", Name: "Dana Director", Role: leave.RoleDirector, Department: "Engineering"})
	f.mgr = add(leave.NewEmployee{ID: "mgr-1", Name: "Morgan Manager", Role: leave.RoleManager, Department: "Engineering", ManagerID: "dir-1"})
	f.lead = add(leave.NewEmployee{ID: "tl-1", Name: "Taylor Lead", Role: leave.RoleTeamLead, Department: "Engineering", ManagerID: "mgr-1"})
	f.emp = add(leave.NewEmployee{ID: "emp-1", Name: "Eli Employee", Email: "eli@example.com", Role: leave.RoleEmployee, Department: "Engineering", ManagerID: "mgr-1", TeamLeadID: "tl-1"})
	return f
}

// submit files a Monday-Tuesday casual request for emp-1.
func (f *fixture) submit(t *testing.T) *leave.Request {
	t.Helper()
	req, err := f.eng.Workflow.Submit(f.ctx, f.emp, leave.SubmitInput{
		EmployeeID: f.emp.ID,
		LeaveType:  leave.LeaveCasual,
		StartDate:  monday,
		EndDate:    tuesday,
		Reason:     validReason,
	})
	require.NoError(t, err)
	return req
}

func (f *fixture) balance(t *testing.T, employeeID string, lt leave.LeaveType) leave.Days {
	t.Helper()
	b, err := f.eng.Ledger.Balance(f.ctx, employeeID, lt)
	require.NoError(t, err)
	return b
}

func (f *fixture) approve(t *testing.T, actor leave.Actor, id string, stage leave.Stage) *leave.Request {
	t.Helper()
	req, err := f.eng.Workflow.Approve(f.ctx, actor, leave.ActionInput{RequestID: id, Stage: stage, Comment: "ok"})
	require.NoError(t, err)
	return req
}

// requireReplayMatches checks that summing ledger deltas reproduces every
// stored balance of the employee.
func (f *fixture) requireReplayMatches(t *testing.T, employeeID string) {
	t.Helper()
	balances, err := f.eng.Ledger.Balances(f.ctx, employeeID)
	require.NoError(t, err)
	for lt, want := range balances {
		got, err := f.eng.Ledger.Replay(f.ctx, employeeID, lt)
		require.NoError(t, err)
		require.Equal(t, want, got, "replay of %s", lt)
	}
}
