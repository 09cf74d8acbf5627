/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- The approval chain over HTTP (submit, approve x3, balances)
- Error envelope and status mapping (400/401/403/404/409/422)
- Adjustments, ledger verification, audit queries, holidays, reports
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/leave/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testAPI struct {
	eng    *leave.Engine
	router http.Handler

	hr, lead, mgr, dir, emp leave.Actor
}

// newTestAPI serves an engine over the memory store with casual (quota 8)
// and sick (quota 9) policies and the chain emp-1 -> tl-1 -> mgr-1 -> dir-1.
// Identity comes from X-Actor-* headers.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	opts := leave.DefaultOptions()
	opts.Now = func() time.Time { return time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC) }
	eng := leave.NewEngine(store.NewMemory(), opts)

	for _, p := range []leave.Policy{
		{LeaveType: leave.LeaveCasual, Name: "Casual Leave", AnnualQuota: leave.NewDays(8)},
		{LeaveType: leave.LeaveSick, Name: "Sick Leave", AnnualQuota: leave.NewDays(9), CarryForward: true, MaxCarryForward: leave.NewDays(6)},
	} {
		_, err := eng.Policies.Add(ctx, leave.SystemActor, p)
		require.NoError(t, err)
	}

	a := &testAPI{eng: eng, router: NewRouter(NewHandler(eng), RouterOptions{})}
	add := func(in leave.NewEmployee) leave.Actor {
		e, err := eng.Directory.Add(ctx, leave.SystemActor, in)
		require.NoError(t, err)
		return leave.Actor{ID: e.ID, Name: e.Name, Role: e.Role}
	}
	a.hr = add(leave.NewEmployee{ID: "hr-1", Name: "Hannah HR", Email: "hannah@example.com", Role: leave.RoleHRAdmin, Department: "People"})
	a.dir = add(leave.NewEmployee{ID: "dir-1", Name: "Dana Director", Role: leave.RoleDirector, Department: "Engineering"})
	a.mgr = add(leave.NewEmployee{ID: "mgr-1", Name: "Morgan Manager", Role: leave.RoleManager, Department: "Engineering", ManagerID: "dir-1"})
	a.lead = add(leave.NewEmployee{ID: "tl-1", Name: "Taylor Lead", Role: leave.RoleTeamLead, Department: "Engineering", ManagerID: "mgr-1"})
	a.emp = add(leave.NewEmployee{ID: "emp-1", Name: "Eli Employee", Email: "eli@example.com", Role: leave.RoleEmployee, Department: "Engineering", ManagerID: "mgr-1", TeamLeadID: "tl-1"})
	return a
}

// do sends a request as actor. A zero actor sends no identity headers.
func (a *testAPI) do(t *testing.T, actor leave.Actor, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor.ID != "" {
		req.Header.Set("X-Actor-ID", actor.ID)
		req.Header.Set("X-Actor-Role", string(actor.Role))
		req.Header.Set("X-Actor-Name", actor.Name)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeAs[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// submit files a Monday-Tuesday casual request for emp-1.
func (a *testAPI) submit(t *testing.T) RequestDTO {
	t.Helper()
	rec := a.do(t, a.emp, http.MethodPost, "/api/requests", SubmitRequest{
		LeaveType: "casual",
		StartDate: "2026-03-09",
		EndDate:   "2026-03-10",
		Reason:    "family function out of town",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeAs[RequestDTO](t, rec)
}

func (a *testAPI) approve(t *testing.T, actor leave.Actor, id, stage string) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, actor, http.MethodPost, "/api/requests/"+id+"/approve", ActionRequest{Stage: stage, Comment: "ok"})
}

// =============================================================================
// WORKFLOW
// =============================================================================

func TestSubmitAndApprove_FullChain(t *testing.T) {
	// GIVEN: Employee with casual balance 8
	// WHEN: Submitting two days and approving at every stage
	// THEN: The request ends approved/completed and the balance stays at 6

	a := newTestAPI(t)
	req := a.submit(t)

	assert.Equal(t, "emp-1", req.EmployeeID, "employee defaults to the caller")
	assert.Equal(t, "pending", req.Status)
	assert.Equal(t, "team_lead", req.CurrentStage)
	assert.Equal(t, leave.NewDays(2), req.DaysCount)
	require.Len(t, req.Approvals, 1)
	assert.Equal(t, "pending", req.Approvals[0].Status)

	rec := a.approve(t, a.lead, req.ID, "team_lead")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "manager", decodeAs[RequestDTO](t, rec).CurrentStage)

	rec = a.approve(t, a.mgr, req.ID, "manager")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.approve(t, a.dir, req.ID, "director")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decodeAs[RequestDTO](t, rec)
	assert.Equal(t, "approved", done.Status)
	assert.Equal(t, "completed", done.CurrentStage)
	require.Len(t, done.Approvals, 3)
	assert.Equal(t, "Dana Director", done.Approvals[2].ApproverName)
	assert.NotNil(t, done.Approvals[2].Timestamp)

	rec = a.do(t, a.emp, http.MethodGet, "/api/employees/emp-1/balances", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, leave.NewDays(6), decodeAs[BalancesDTO](t, rec).Balances[leave.LeaveCasual])
}

func TestApprove_SameStageTwice_Conflict(t *testing.T) {
	// GIVEN: A request the team lead already approved
	// WHEN: The team lead approves the team_lead stage again
	// THEN: 409 with the state_conflict code

	a := newTestAPI(t)
	req := a.submit(t)
	require.Equal(t, http.StatusOK, a.approve(t, a.lead, req.ID, "team_lead").Code)

	rec := a.approve(t, a.lead, req.ID, "team_lead")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "state_conflict", decodeAs[ErrorResponse](t, rec).Code)
}

func TestApprove_WrongRole_Forbidden(t *testing.T) {
	a := newTestAPI(t)
	req := a.submit(t)

	rec := a.approve(t, a.emp, req.ID, "team_lead")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReject_RequiresComment_ThenReleases(t *testing.T) {
	// GIVEN: A pending request (balance 6 after debit)
	// WHEN: Rejecting without a comment, then with one
	// THEN: 400 first; then rejected and the balance is back to 8

	a := newTestAPI(t)
	req := a.submit(t)

	rec := a.do(t, a.lead, http.MethodPost, "/api/requests/"+req.ID+"/reject", ActionRequest{Stage: "team_lead"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, a.lead, http.MethodPost, "/api/requests/"+req.ID+"/reject", ActionRequest{Stage: "team_lead", Comment: "release is that week"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "rejected", decodeAs[RequestDTO](t, rec).Status)

	bal, err := a.eng.Ledger.Balance(context.Background(), "emp-1", leave.LeaveCasual)
	require.NoError(t, err)
	assert.Equal(t, leave.NewDays(8), bal)
}

func TestCancel_ByRequester(t *testing.T) {
	a := newTestAPI(t)
	req := a.submit(t)

	rec := a.do(t, a.emp, http.MethodPost, "/api/requests/"+req.ID+"/cancel", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled", decodeAs[RequestDTO](t, rec).Status)
}

func TestSubmit_InsufficientBalance(t *testing.T) {
	// GIVEN: Casual balance 8
	// WHEN: Requesting ten working days
	// THEN: 422 and nothing is debited

	a := newTestAPI(t)
	rec := a.do(t, a.emp, http.MethodPost, "/api/requests", SubmitRequest{
		LeaveType: "casual",
		StartDate: "2026-03-09",
		EndDate:   "2026-03-20",
		Reason:    "long trip to visit family",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "insufficient_balance", decodeAs[ErrorResponse](t, rec).Code)

	bal, err := a.eng.Ledger.Balance(context.Background(), "emp-1", leave.LeaveCasual)
	require.NoError(t, err)
	assert.Equal(t, leave.NewDays(8), bal)
}

func TestSubmit_ShapeAndDomainValidation(t *testing.T) {
	a := newTestAPI(t)

	t.Run("missing fields are reported per field", func(t *testing.T) {
		rec := a.do(t, a.emp, http.MethodPost, "/api/requests", SubmitRequest{LeaveType: "casual", StartDate: "09/03/2026"})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp struct {
			Details map[string]string `json:"details"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Details, "reason")
		assert.Contains(t, resp.Details, "end_date")
		assert.Contains(t, resp.Details["start_date"], "YYYY-MM-DD")
	})

	t.Run("short reason is rejected by the engine", func(t *testing.T) {
		rec := a.do(t, a.emp, http.MethodPost, "/api/requests", SubmitRequest{
			LeaveType: "casual", StartDate: "2026-03-09", EndDate: "2026-03-09", Reason: "trip",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation", decodeAs[ErrorResponse](t, rec).Code)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		rec := a.do(t, a.emp, http.MethodPost, "/api/requests", `{"leave_type":"casual","days":3}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		rec := a.do(t, a.emp, http.MethodPost, "/api/requests", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("submitting for someone else", func(t *testing.T) {
		rec := a.do(t, a.lead, http.MethodPost, "/api/requests", SubmitRequest{
			EmployeeID: "emp-1", LeaveType: "casual", StartDate: "2026-03-09", EndDate: "2026-03-09",
			Reason: "family function out of town",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestRequests_ListAndPendingCounts(t *testing.T) {
	a := newTestAPI(t)
	req := a.submit(t)

	rec := a.do(t, a.lead, http.MethodGet, "/api/requests?stage=team_lead", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeAs[[]RequestDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, req.ID, list[0].ID)

	rec = a.do(t, a.lead, http.MethodGet, "/api/requests/pending-counts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	counts := decodeAs[map[string]int](t, rec)
	assert.Equal(t, 1, counts["team_lead"])
	assert.Equal(t, 0, counts["manager"])

	rec = a.do(t, a.emp, http.MethodGet, "/api/employees/emp-1/requests", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]RequestDTO](t, rec), 1)

	rec = a.do(t, a.emp, http.MethodGet, "/api/requests/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// IDENTITY AND PERMISSIONS
// =============================================================================

func TestAPI_RequiresIdentity(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, leave.Actor{}, http.MethodGet, "/api/employees", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth_NoIdentityNeeded(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, leave.Actor{}, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPolicies_HROnlyMutations(t *testing.T) {
	a := newTestAPI(t)
	body := CreatePolicyRequest{LeaveType: "wfh", Name: "Work From Home", AnnualQuota: leave.NewDays(24)}

	rec := a.do(t, a.emp, http.MethodPost, "/api/policies", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, a.hr, http.MethodPost, "/api/policies", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeAs[PolicyDTO](t, rec)
	assert.Equal(t, leave.NewDays(24), created.AnnualQuota)

	rec = a.do(t, a.hr, http.MethodPost, "/api/policies", body)
	assert.Equal(t, http.StatusConflict, rec.Code, "leave type already defined")

	rec = a.do(t, a.emp, http.MethodGet, "/api/employees/emp-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, leave.NewDays(24), decodeAs[EmployeeDTO](t, rec).LeaveBalance["wfh"], "new policies open balances")
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestEmployees_CreateUpdateHistory(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, a.hr, http.MethodPost, "/api/employees", CreateEmployeeRequest{
		ID: "emp-2", Name: "Riley New", Email: "riley@example.com", Role: "employee",
		Department: "Engineering", ManagerID: "mgr-1", TeamLeadID: "tl-1", JoinDate: "2026-03-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	emp := decodeAs[EmployeeDTO](t, rec)
	assert.Equal(t, "2026-03-01", emp.JoinDate)
	assert.Equal(t, leave.NewDays(8), emp.LeaveBalance["casual"])

	dept := "Platform"
	rec = a.do(t, a.hr, http.MethodPatch, "/api/employees/emp-2", UpdateEmployeeRequest{Department: &dept, Reason: "team split"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Platform", decodeAs[EmployeeDTO](t, rec).Department)

	rec = a.do(t, a.hr, http.MethodPost, "/api/employees/emp-2/deactivate", StatusChangeRequest{Reason: "left the company"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "inactive", decodeAs[EmployeeDTO](t, rec).Status)

	rec = a.do(t, a.hr, http.MethodGet, "/api/employees/emp-2/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decodeAs[[]EmployeeChangeDTO](t, rec)
	require.Len(t, history, 2)
	assert.Equal(t, "department", history[0].Field)
	assert.Equal(t, "Platform", history[0].NewValue)
	assert.Equal(t, "status", history[1].Field)

	rec = a.do(t, a.hr, http.MethodGet, "/api/employees?status=inactive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	inactive := decodeAs[[]EmployeeDTO](t, rec)
	require.Len(t, inactive, 1)
	assert.Equal(t, "emp-2", inactive[0].ID)
}

func TestEmployees_CreateValidation(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, a.hr, http.MethodPost, "/api/employees", CreateEmployeeRequest{Name: "No Mail", Role: "boss", Department: "X"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Details, "email")
	assert.Contains(t, resp.Details["role"], "one of")
}

// =============================================================================
// LEDGER, ADJUSTMENTS AND AUDIT
// =============================================================================

func TestAdjustment_CreditAndLedgerVerify(t *testing.T) {
	// GIVEN: Casual balance 8
	// WHEN: HR credits 1.5 days
	// THEN: Balance 9.5, adjustment history has it, and replay matches

	a := newTestAPI(t)

	rec := a.do(t, a.hr, http.MethodPost, "/api/adjustments", AdjustmentRequest{
		EmployeeID: "emp-1", LeaveType: "casual", Delta: leave.MustDays(1.5), Reason: "worked a holiday",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	adj := decodeAs[AdjustmentDTO](t, rec)
	assert.Equal(t, "credit", adj.Kind)
	assert.Equal(t, leave.NewDays(8), adj.PreviousBalance)
	assert.Equal(t, leave.MustDays(9.5), adj.NewBalance)

	rec = a.do(t, a.emp, http.MethodGet, "/api/employees/emp-1/adjustments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]AdjustmentDTO](t, rec), 1)

	rec = a.do(t, a.hr, http.MethodGet, "/api/employees/emp-1/ledger?leave_type=casual", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeAs[[]LedgerEntryDTO](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, "opening", entries[0].Kind)
	assert.Equal(t, "adjustment", entries[1].Kind)

	rec = a.do(t, a.hr, http.MethodGet, "/api/employees/emp-1/ledger/verify?leave_type=casual", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var verify struct {
		Balance    leave.Days `json:"balance"`
		Replayed   leave.Days `json:"replayed"`
		Consistent bool       `json:"consistent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verify))
	assert.True(t, verify.Consistent)
	assert.Equal(t, leave.MustDays(9.5), verify.Balance)
}

func TestAdjustment_ZeroDeltaAndNonHR(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, a.hr, http.MethodPost, "/api/adjustments", AdjustmentRequest{EmployeeID: "emp-1", LeaveType: "casual", Reason: "nothing"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, a.mgr, http.MethodPost, "/api/adjustments", AdjustmentRequest{
		EmployeeID: "emp-1", LeaveType: "casual", Delta: leave.NewDays(1), Reason: "bonus day",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, a.hr, http.MethodPost, "/api/adjustments", `{"employee_id":"emp-1","leave_type":"casual","delta":0.3,"reason":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "amounts are whole or half days")
}

func TestAudit_QueryByEntity(t *testing.T) {
	a := newTestAPI(t)
	req := a.submit(t)
	require.Equal(t, http.StatusOK, a.approve(t, a.lead, req.ID, "team_lead").Code)

	rec := a.do(t, a.hr, http.MethodGet, "/api/audit?entity_id="+req.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeAs[[]AuditEntryDTO](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, "request_submitted", entries[0].Action)
	assert.Equal(t, "approval", entries[1].Action)
	assert.Equal(t, "tl-1", entries[1].ActorID)

	rec = a.do(t, a.hr, http.MethodGet, "/api/audit?action=approval&action=rejection", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]AuditEntryDTO](t, rec), 1)

	rec = a.do(t, a.hr, http.MethodGet, "/api/audit?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// HOLIDAYS AND REPORTS
// =============================================================================

func TestHolidays_AffectDuration(t *testing.T) {
	// GIVEN: A national holiday on Tuesday 2026-03-10
	// WHEN: Previewing Monday-Tuesday
	// THEN: Only Monday counts

	a := newTestAPI(t)

	rec := a.do(t, a.hr, http.MethodPost, "/api/holidays", CreateHolidayRequest{Date: "2026-03-10", Name: "Founders Day", Kind: "national"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	hol := decodeAs[HolidayDTO](t, rec)

	rec = a.do(t, a.emp, http.MethodPost, "/api/holidays/duration", DurationRequest{StartDate: "2026-03-09", EndDate: "2026-03-10"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, leave.NewDays(1), decodeAs[DurationDTO](t, rec).Days)

	rec = a.do(t, a.emp, http.MethodGet, "/api/holidays?year=2026", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]HolidayDTO](t, rec), 1)

	rec = a.do(t, a.hr, http.MethodDelete, "/api/holidays/"+hol.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, a.emp, http.MethodGet, "/api/holidays/"+hol.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReports_EmployeeSummaryAndRows(t *testing.T) {
	a := newTestAPI(t)
	a.submit(t)

	rec := a.do(t, a.hr, http.MethodGet, "/api/reports/employees/emp-1?from=2026-03-01&to=2026-03-31", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sum := decodeAs[leave.EmployeeSummary](t, rec)
	assert.Equal(t, leave.NewDays(6), sum.Balances[leave.LeaveCasual])
	require.Len(t, sum.ByType, 1)
	assert.Equal(t, leave.NewDays(2), sum.ByType[0].Pending)

	rec = a.do(t, a.hr, http.MethodGet, "/api/reports/requests?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decodeAs[[]leave.RequestRow](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, "2", rows[0].Days)
}

func TestYearReset_Endpoint(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, a.hr, http.MethodPost, "/api/admin/year-reset", YearResetRequest{Year: 2027})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decodeAs[YearResetDTO](t, rec)
	assert.Positive(t, first.Reset)

	rec = a.do(t, a.hr, http.MethodPost, "/api/admin/year-reset", YearResetRequest{Year: 2027})
	require.Equal(t, http.StatusOK, rec.Code)
	again := decodeAs[YearResetDTO](t, rec)
	assert.Zero(t, again.Reset)
	assert.Equal(t, first.Reset, again.Skipped)

	rec = a.do(t, a.emp, http.MethodPost, "/api/admin/year-reset", YearResetRequest{Year: 2027})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
