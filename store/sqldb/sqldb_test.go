/*
sqldb_test.go - Tests for the SQL store

Tests for:
- Transaction rollback and optimistic versioning
- Column round trips of nested request data
- Filter and ordering semantics shared with the memory store
- A full approval chain through the engine on SQLite
*/
package sqldb_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqldb"
)

var t0 = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *sqldb.Store {
	t.Helper()
	st, err := sqldb.Open(context.Background(), sqldb.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func seedEmployee(t *testing.T, st *sqldb.Store, id string) *leave.Employee {
	t.Helper()
	e := &leave.Employee{
		ID: id, Name: "Emp " + id, Email: id + "@example.com", Role: leave.RoleEmployee,
		Department: "Engineering", JoinDate: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		Status: leave.EmployeeActive, CreatedAt: t0, UpdatedAt: t0,
	}
	require.NoError(t, st.WithTx(context.Background(), func(repo leave.Repository) error {
		return repo.InsertEmployee(context.Background(), e)
	}))
	return e
}

func pendingRequest(id, employeeID string, applied time.Time) *leave.Request {
	return &leave.Request{
		ID: id, EmployeeID: employeeID, EmployeeName: "Emp " + employeeID, Department: "Engineering",
		LeaveType: leave.LeaveCasual,
		StartDate: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		DayType:   leave.DayFull, Reason: "family function out of town",
		DaysCount: leave.NewDays(2), Status: leave.StatusPending, CurrentStage: leave.StageTeamLead,
		Approvals: []leave.ApprovalRecord{{Stage: leave.StageTeamLead, Status: leave.RecordPending}},
		AppliedOn: applied, UpdatedAt: applied,
	}
}

func TestWithTx_RollbackOnError(t *testing.T) {
	// GIVEN: A transaction that inserts a holiday and then fails
	// WHEN: WithTx returns
	// THEN: The holiday is not visible

	st := newStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.WithTx(ctx, func(repo leave.Repository) error {
		require.NoError(t, repo.InsertHoliday(ctx, &leave.Holiday{
			ID: "hol-1", Date: time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), Name: "Independence Day",
			Kind: leave.HolidayNational, CreatedAt: t0,
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = st.GetHoliday(ctx, "hol-1")
	assert.True(t, leave.IsNotFound(err))
}

func TestEmployee_InsertDuplicateAndVersioning(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	e := seedEmployee(t, st, "emp-1")
	assert.Equal(t, 1, e.Version)

	err := st.WithTx(ctx, func(repo leave.Repository) error {
		dup := *e
		return repo.InsertEmployee(ctx, &dup)
	})
	assert.True(t, leave.IsConflict(err))

	stale := *e
	require.NoError(t, st.WithTx(ctx, func(repo leave.Repository) error {
		e.Department = "Platform"
		return repo.UpdateEmployee(ctx, e)
	}))
	assert.Equal(t, 2, e.Version)

	err = st.WithTx(ctx, func(repo leave.Repository) error {
		return repo.UpdateEmployee(ctx, &stale)
	})
	assert.ErrorIs(t, err, leave.ErrConcurrentModification)

	got, err := st.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "Platform", got.Department)
	assert.Equal(t, e.JoinDate, got.JoinDate)
	assert.NotNil(t, got.LeaveBalance)
}

func TestUpdate_UnknownIDIsNotFound(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	err := st.WithTx(ctx, func(repo leave.Repository) error {
		return repo.UpdateRequest(ctx, pendingRequest("req-missing", "emp-1", t0))
	})
	assert.True(t, leave.IsNotFound(err))

	err = st.WithTx(ctx, func(repo leave.Repository) error {
		return repo.DeletePolicy(ctx, "pol-missing")
	})
	assert.True(t, leave.IsNotFound(err))
}

func TestPutBalance_InsertThenVersioned(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	seedEmployee(t, st, "emp-1")

	b := &leave.Balance{EmployeeID: "emp-1", LeaveType: leave.LeaveCasual, Days: leave.NewDays(12), UpdatedAt: t0}
	require.NoError(t, st.WithTx(ctx, func(repo leave.Repository) error { return repo.PutBalance(ctx, b) }))
	assert.Equal(t, 1, b.Version)

	stale := *b
	b.Days = leave.MustDays(10.5)
	require.NoError(t, st.WithTx(ctx, func(repo leave.Repository) error { return repo.PutBalance(ctx, b) }))
	assert.Equal(t, 2, b.Version)

	err := st.WithTx(ctx, func(repo leave.Repository) error { return repo.PutBalance(ctx, &stale) })
	assert.ErrorIs(t, err, leave.ErrConcurrentModification)

	again := &leave.Balance{EmployeeID: "emp-1", LeaveType: leave.LeaveCasual, UpdatedAt: t0}
	err = st.WithTx(ctx, func(repo leave.Repository) error { return repo.PutBalance(ctx, again) })
	assert.ErrorIs(t, err, leave.ErrConcurrentModification, "insert over an existing row")

	got, err := st.GetBalance(ctx, "emp-1", leave.LeaveCasual)
	require.NoError(t, err)
	assert.Equal(t, leave.MustDays(10.5), got.Days)

	emp, err := st.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, map[leave.LeaveType]leave.Days{leave.LeaveCasual: leave.MustDays(10.5)}, emp.LeaveBalance)
}

func TestRequest_NestedColumnsSurviveStorage(t *testing.T) {
	// GIVEN: A request with a half-day breakdown and a decided approval
	// WHEN: It is stored, updated and read back
	// THEN: Approvals keep their timestamps and the breakdown its dates

	st := newStore(t)
	ctx := context.Background()
	seedEmployee(t, st, "emp-1")

	req := pendingRequest("req-1", "emp-1", t0)
	req.Breakdown = []leave.DayPortion{{Date: req.EndDate, DayType: leave.DayFirstHalf}}
	req.DaysCount = leave.MustDays(1.5)
	require.NoError(t, st.WithTx(ctx, func(repo leave.Repository) error { return repo.InsertRequest(ctx, req) }))

	decided := t0.Add(time.Hour)
	req.Approvals[0] = leave.ApprovalRecord{
		Stage: leave.StageTeamLead, ApproverID: "tl-1", ApproverName: "Taylor Lead",
		Status: leave.RecordApproved, Comment: "ok", Timestamp: &decided,
	}
	req.Approvals = append(req.Approvals, leave.ApprovalRecord{Stage: leave.StageManager, Status: leave.RecordPending})
	req.CurrentStage = leave.StageManager
	req.UpdatedAt = decided
	require.NoError(t, st.WithTx(ctx, func(repo leave.Repository) error { return repo.UpdateRequest(ctx, req) }))
	assert.Equal(t, 2, req.Version)

	got, err := st.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, req.Breakdown, got.Breakdown)
	assert.Equal(t, leave.MustDays(1.5), got.DaysCount)
	assert.Equal(t, leave.StageManager, got.CurrentStage)
	require.Len(t, got.Approvals, 2)
	require.NotNil(t, got.Approvals[0].Timestamp)
	assert.True(t, decided.Equal(*got.Approvals[0].Timestamp))
	assert.Nil(t, got.Approvals[1].Timestamp)
	assert.Equal(t, "Taylor Lead", got.Approvals[0].ApproverName)
}

func TestListRequests_FilterAndOrder(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	seedEmployee(t, st, "emp-1")
	seedEmployee(t, st, "emp-2")

	require.NoError(t, st.WithTx(ctx, func(repo leave.Repository) error {
		for i, r := range []*leave.Request{
			pendingRequest("req-a", "emp-1", t0),
			pendingRequest("req-b", "emp-1", t0.Add(time.Minute)),
			pendingRequest("req-c", "emp-2", t0.Add(2*time.Minute)),
		} {
			if i == 2 {
				r.StartDate = time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC)
				r.EndDate = r.StartDate
			}
			if err := repo.InsertRequest(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}))

	all, err := st.ListRequests(ctx, leave.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"req-c", "req-b", "req-a"}, []string{all[0].ID, all[1].ID, all[2].ID}, "newest first")

	mine, err := st.ListRequests(ctx, leave.RequestFilter{EmployeeID: "emp-1", Stage: leave.StageTeamLead})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	april, err := st.ListRequests(ctx, leave.RequestFilter{
		From: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, april, 1)
	assert.Equal(t, "req-c", april[0].ID)
}

func TestPolicy_DuplicateLeaveType(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	casual := &leave.Policy{ID: "pol-1", LeaveType: leave.LeaveCasual, Name: "Casual", AnnualQuota: leave.NewDays(12), CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, st.WithTx(ctx, func(repo leave.Repository) error { return repo.InsertPolicy(ctx, casual) }))

	err := st.WithTx(ctx, func(repo leave.Repository) error {
		return repo.InsertPolicy(ctx, &leave.Policy{ID: "pol-2", LeaveType: leave.LeaveCasual, Name: "Casual again", CreatedAt: t0, UpdatedAt: t0})
	})
	assert.True(t, leave.IsConflict(err))

	got, err := st.GetPolicyByType(ctx, leave.LeaveCasual)
	require.NoError(t, err)
	assert.Equal(t, "pol-1", got.ID)
	assert.False(t, got.CarryForward)
	assert.Equal(t, leave.NewDays(12), got.AnnualQuota)
}

func TestHolidays_RangeAndOrder(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	require.NoError(t, st.WithTx(ctx, func(repo leave.Repository) error {
		for _, h := range []*leave.Holiday{
			{ID: "h-3", Date: time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC), Name: "Christmas", Kind: leave.HolidayNational},
			{ID: "h-2", Date: time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), Name: "Independence Day", Kind: leave.HolidayNational},
			{ID: "h-1", Date: time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), Name: "Founders Day", Kind: leave.HolidayOptional},
		} {
			h.CreatedAt = t0
			if err := repo.InsertHoliday(ctx, h); err != nil {
				return err
			}
		}
		return nil
	}))

	got, err := st.ListHolidays(ctx, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Founders Day", got[0].Name)
	assert.Equal(t, leave.HolidayOptional, got[0].Kind)

	all, err := st.ListHolidays(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestQueryAudit_Filters(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	before, _ := json.Marshal(map[string]string{"status": "pending"})
	require.NoError(t, st.WithTx(ctx, func(repo leave.Repository) error {
		entries := []leave.AuditEntry{
			{ID: "a-1", Action: leave.AuditRequestSubmitted, EntityType: leave.EntityLeaveRequest, EntityID: "req-1", ActorID: "emp-1", CreatedAt: t0},
			{ID: "a-2", Action: leave.AuditApproval, EntityType: leave.EntityLeaveRequest, EntityID: "req-1", ActorID: "tl-1", Before: before, CreatedAt: t0.Add(time.Hour)},
			{ID: "a-3", Action: leave.AuditPolicyAdd, EntityType: leave.EntityPolicy, EntityID: "pol-1", ActorID: "hr-1", CreatedAt: t0.Add(48 * time.Hour)},
		}
		for _, e := range entries {
			if err := repo.AppendAudit(ctx, e); err != nil {
				return err
			}
		}
		return nil
	}))

	byEntity, err := st.QueryAudit(ctx, leave.AuditFilter{EntityID: "req-1"})
	require.NoError(t, err)
	require.Len(t, byEntity, 2)
	assert.Equal(t, "a-1", byEntity[0].ID)
	assert.Nil(t, byEntity[0].Before)
	assert.JSONEq(t, `{"status":"pending"}`, string(byEntity[1].Before))

	byAction, err := st.QueryAudit(ctx, leave.AuditFilter{Actions: []leave.AuditAction{leave.AuditApproval, leave.AuditPolicyAdd}})
	require.NoError(t, err)
	assert.Len(t, byAction, 2)

	firstDay, err := st.QueryAudit(ctx, leave.AuditFilter{From: t0, To: t0.Add(24*time.Hour - time.Nanosecond)})
	require.NoError(t, err)
	assert.Len(t, firstDay, 2)
}

func TestEngine_ApprovalChainOnSQLite(t *testing.T) {
	// GIVEN: The engine running on SQLite with a casual policy and a full chain
	// WHEN: A two-day request is approved at every stage
	// THEN: The request is approved, the balance is debited once, and the
	//       ledger replays to the stored balance

	st := newStore(t)
	ctx := context.Background()
	eng := leave.NewEngine(st, leave.DefaultOptions())

	_, err := eng.Policies.Add(ctx, leave.SystemActor, leave.Policy{LeaveType: leave.LeaveCasual, Name: "Casual Leave", AnnualQuota: leave.NewDays(12)})
	require.NoError(t, err)

	actor := func(in leave.NewEmployee) leave.Actor {
		e, err := eng.Directory.Add(ctx, leave.SystemActor, in)
		require.NoError(t, err)
		return leave.Actor{ID: e.ID, Name: e.Name, Role: e.Role}
	}
	dir := actor(leave.NewEmployee{ID: "dir-1", Name: "Dana Director", Role: leave.RoleDirector, Department: "Engineering"})
	mgr := actor(leave.NewEmployee{ID: "mgr-1", Name: "Morgan Manager", Role: leave.RoleManager, Department: "Engineering", ManagerID: "dir-1"})
	lead := actor(leave.NewEmployee{ID: "tl-1", Name: "Taylor Lead", Role: leave.RoleTeamLead, Department: "Engineering", ManagerID: "mgr-1"})
	emp := actor(leave.NewEmployee{ID: "emp-1", Name: "Eli Employee", Role: leave.RoleEmployee, Department: "Engineering", ManagerID: "mgr-1", TeamLeadID: "tl-1"})

	req, err := eng.Workflow.Submit(ctx, emp, leave.SubmitInput{
		EmployeeID: emp.ID, LeaveType: leave.LeaveCasual,
		StartDate: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Reason: "family function out of town",
	})
	require.NoError(t, err)

	for _, step := range []struct {
		actor leave.Actor
		stage leave.Stage
	}{{lead, leave.StageTeamLead}, {mgr, leave.StageManager}, {dir, leave.StageDirector}} {
		_, err := eng.Workflow.Approve(ctx, step.actor, leave.ActionInput{RequestID: req.ID, Stage: step.stage, Comment: "ok"})
		require.NoError(t, err)
	}

	_, err = eng.Workflow.Approve(ctx, dir, leave.ActionInput{RequestID: req.ID, Stage: leave.StageDirector})
	var stale *leave.StaleStateError
	assert.ErrorAs(t, err, &stale)

	got, err := eng.Workflow.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, got.Status)
	assert.Equal(t, leave.StageCompleted, got.CurrentStage)
	require.Len(t, got.Approvals, 3)

	bal, err := eng.Ledger.Balance(ctx, emp.ID, leave.LeaveCasual)
	require.NoError(t, err)
	assert.Equal(t, leave.NewDays(10), bal)
	replayed, err := eng.Ledger.Replay(ctx, emp.ID, leave.LeaveCasual)
	require.NoError(t, err)
	assert.Equal(t, bal, replayed)

	audit, err := eng.Audit.ByEntity(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, audit, 4)
}
