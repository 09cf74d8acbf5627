/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the leave engine via REST API. Handles HTTP request/response and
  JSON serialization, and delegates every rule to package leave.

ENDPOINTS:
  Employees:
    GET    /api/employees                    List (?department, ?status, ?role)
    POST   /api/employees                    Add employee (HR)
    GET    /api/employees/{id}               Employee with balances
    PATCH  /api/employees/{id}               Update fields (HR)
    POST   /api/employees/{id}/deactivate    Deactivate (HR)
    POST   /api/employees/{id}/activate      Reactivate (HR)
    GET    /api/employees/{id}/history       Role/status/department/manager changes
    GET    /api/employees/{id}/balances      Current balances
    GET    /api/employees/{id}/ledger        Ledger entries (?leave_type, ?kind)
    GET    /api/employees/{id}/ledger/verify Replay check (?leave_type)
    GET    /api/employees/{id}/adjustments   Adjustment history
    GET    /api/employees/{id}/requests      Requests, newest first

  Requests:
    GET    /api/requests                     List (?status, ?stage, ?employee_id, ...)
    POST   /api/requests                     Submit
    GET    /api/requests/pending-counts      Pending count per stage
    GET    /api/requests/{id}                Get
    POST   /api/requests/{id}/approve        Approve current stage
    POST   /api/requests/{id}/reject         Reject current stage
    POST   /api/requests/{id}/cancel         Cancel (requester or HR)

  Policies and holidays (mutations are HR only):
    GET|POST          /api/policies
    GET|PATCH|DELETE  /api/policies/{id}
    GET|POST          /api/holidays        (?year or ?from/?to)
    GET|PATCH|DELETE  /api/holidays/{id}
    POST              /api/holidays/duration

  Adjustments, audit, reports, admin:
    GET|POST /api/adjustments
    GET      /api/audit                      (?entity_id, ?entity_type, ?actor_id, ?action, ?from, ?to)
    GET      /api/reports/employees/{id}     Employee summary (?from, ?to)
    GET      /api/reports/departments/{name} Department summary (?from, ?to)
    GET      /api/reports/requests           Flattened request rows
    GET      /api/reports/adjustments        Flattened adjustment rows
    GET      /api/reports/audit              Flattened audit rows
    POST     /api/admin/year-reset           Carry forward into a new year (HR)

ERROR HANDLING:
  Errors are returned as JSON (ErrorResponse) with the status chosen by
  writeEngineError:
  - 400: Validation errors, invalid input
  - 401: Missing or invalid identity
  - 403: Actor lacks permission
  - 404: Resource not found
  - 409: Stale state or concurrent modification
  - 422: Insufficient balance
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Actor resolution
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/logger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *leave.Engine
}

func NewHandler(eng *leave.Engine) *Handler {
	return &Handler{Engine: eng}
}

func actorOf(r *http.Request) leave.Actor {
	a, _ := ActorFrom(r.Context())
	return a
}

// Health reports liveness, and store connectivity when the store can ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Engine.Store.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Store unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	employees, err := h.Engine.Directory.List(r.Context(), leave.EmployeeFilter{
		Department: q.Get("department"),
		Status:     leave.EmployeeStatus(q.Get("status")),
		Role:       leave.Role(q.Get("role")),
	})
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(employees, toEmployeeDTO))
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if !decode(w, r, &req) {
		return
	}
	emp, err := h.Engine.Directory.Add(r.Context(), actorOf(r), leave.NewEmployee{
		ID:         req.ID,
		Name:       req.Name,
		Email:      req.Email,
		Role:       leave.Role(req.Role),
		Department: req.Department,
		TeamID:     req.TeamID,
		ManagerID:  req.ManagerID,
		TeamLeadID: req.TeamLeadID,
		JoinDate:   req.JoinDate,
	})
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(*emp))
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Engine.Directory.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var req UpdateEmployeeRequest
	if !decode(w, r, &req) {
		return
	}
	upd := leave.EmployeeUpdate{
		Name:       req.Name,
		Email:      req.Email,
		Department: req.Department,
		TeamID:     req.TeamID,
		ManagerID:  req.ManagerID,
		TeamLeadID: req.TeamLeadID,
	}
	if req.Role != nil {
		role := leave.Role(*req.Role)
		upd.Role = &role
	}
	emp, err := h.Engine.Directory.Update(r.Context(), actorOf(r), chi.URLParam(r, "id"), upd, req.Reason)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

func (h *Handler) DeactivateEmployee(w http.ResponseWriter, r *http.Request) {
	var req StatusChangeRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	emp, err := h.Engine.Directory.Deactivate(r.Context(), actorOf(r), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

func (h *Handler) ActivateEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Engine.Directory.Activate(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

func (h *Handler) GetEmployeeHistory(w http.ResponseWriter, r *http.Request) {
	changes, err := h.Engine.Directory.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(changes, toEmployeeChangeDTO))
}

func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	balances, err := h.Engine.Ledger.Balances(r.Context(), id)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalancesDTO{EmployeeID: id, Balances: balances})
}

func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Engine.Directory.Get(r.Context(), id); err != nil {
		writeEngineError(w, r, err)
		return
	}
	q := r.URL.Query()
	entries, err := h.Engine.Ledger.Entries(r.Context(), leave.LedgerFilter{
		EmployeeID: id,
		LeaveType:  leave.LeaveType(q.Get("leave_type")),
		Kind:       leave.LedgerKind(q.Get("kind")),
	})
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(entries, toLedgerEntryDTO))
}

// VerifyLedger replays the ledger for one balance and compares the result
// with the stored value.
func (h *Handler) VerifyLedger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lt := leave.LeaveType(r.URL.Query().Get("leave_type"))
	if lt == "" {
		writeError(w, http.StatusBadRequest, "leave_type is required", nil)
		return
	}
	ctx := r.Context()
	current, err := h.Engine.Ledger.Balance(ctx, id, lt)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	replayed, err := h.Engine.Ledger.Replay(ctx, id, lt)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	if current != replayed {
		logger.FromContext(ctx).Warn().
			Str("employee_id", id).Str("leave_type", string(lt)).
			Stringer("balance", current).Stringer("replayed", replayed).
			Msg("ledger replay mismatch")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"employee_id": id,
		"leave_type":  lt,
		"balance":     current,
		"replayed":    replayed,
		"consistent":  current == replayed,
	})
}

func (h *Handler) GetEmployeeAdjustments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Engine.Directory.Get(r.Context(), id); err != nil {
		writeEngineError(w, r, err)
		return
	}
	adjs, err := h.Engine.Ledger.Adjustments(r.Context(), id)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(adjs, toAdjustmentDTO))
}

func (h *Handler) GetEmployeeRequests(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Engine.Directory.Get(r.Context(), id); err != nil {
		writeEngineError(w, r, err)
		return
	}
	reqs, err := h.Engine.Workflow.ByEmployee(r.Context(), id)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(reqs, toRequestDTO))
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	filter, ok := requestFilter(w, r)
	if !ok {
		return
	}
	reqs, err := h.Engine.Workflow.List(r.Context(), filter)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(reqs, toRequestDTO))
}

func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if !decode(w, r, &req) {
		return
	}
	actor := actorOf(r)
	if req.EmployeeID == "" {
		req.EmployeeID = actor.ID
	}
	in, err := submitInput(req)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	created, err := h.Engine.Workflow.Submit(r.Context(), actor, in)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(*created))
}

func submitInput(req SubmitRequest) (leave.SubmitInput, error) {
	start, err := leave.ParseDate(req.StartDate)
	if err != nil {
		return leave.SubmitInput{}, err
	}
	end, err := leave.ParseDate(req.EndDate)
	if err != nil {
		return leave.SubmitInput{}, err
	}
	portions, err := parsePortions(req.Breakdown)
	if err != nil {
		return leave.SubmitInput{}, err
	}
	return leave.SubmitInput{
		EmployeeID: req.EmployeeID,
		LeaveType:  leave.LeaveType(req.LeaveType),
		StartDate:  start,
		EndDate:    end,
		DayType:    leave.DayType(req.DayType),
		Breakdown:  portions,
		Reason:     req.Reason,
	}, nil
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Engine.Workflow.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

func (h *Handler) PendingCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Engine.Workflow.PendingCounts(r.Context())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.Engine.Workflow.Approve)
}

func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.Engine.Workflow.Reject)
}

type actionFunc func(context.Context, leave.Actor, leave.ActionInput) (*leave.Request, error)

func (h *Handler) act(w http.ResponseWriter, r *http.Request, fn actionFunc) {
	var req ActionRequest
	if !decode(w, r, &req) {
		return
	}
	updated, err := fn(r.Context(), actorOf(r), leave.ActionInput{
		RequestID: chi.URLParam(r, "id"),
		Stage:     leave.Stage(req.Stage),
		Comment:   req.Comment,
	})
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*updated))
}

func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	updated, err := h.Engine.Workflow.Cancel(r.Context(), actorOf(r), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*updated))
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Engine.Policies.List(r.Context())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(policies, toPolicyDTO))
}

func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req CreatePolicyRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.Engine.Policies.Add(r.Context(), actorOf(r), leave.Policy{
		LeaveType:       leave.LeaveType(req.LeaveType),
		Name:            req.Name,
		AnnualQuota:     req.AnnualQuota,
		CarryForward:    req.CarryForward,
		MaxCarryForward: req.MaxCarryForward,
		AllowNegative:   req.AllowNegative,
		Description:     req.Description,
	})
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPolicyDTO(*p))
}

func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := h.Engine.Policies.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(*p))
}

func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var req UpdatePolicyRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.Engine.Policies.Update(r.Context(), actorOf(r), chi.URLParam(r, "id"), leave.PolicyUpdate{
		Name:            req.Name,
		AnnualQuota:     req.AnnualQuota,
		CarryForward:    req.CarryForward,
		MaxCarryForward: req.MaxCarryForward,
		AllowNegative:   req.AllowNegative,
		Description:     req.Description,
	})
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyDTO(*p))
}

func (h *Handler) DeletePolicy(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Policies.Delete(r.Context(), actorOf(r), chi.URLParam(r, "id")); err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns holidays for ?year, or within ?from/?to, or all.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		holidays []leave.Holiday
		err      error
	)
	if y := q.Get("year"); y != "" {
		year, convErr := strconv.Atoi(y)
		if convErr != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", convErr)
			return
		}
		holidays, err = h.Engine.Calendar.Year(r.Context(), year)
	} else {
		from, to, ok := dateRange(w, r)
		if !ok {
			return
		}
		holidays, err = h.Engine.Calendar.List(r.Context(), from, to)
	}
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(holidays, toHolidayDTO))
}

func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if !decode(w, r, &req) {
		return
	}
	date, err := leave.ParseDate(req.Date)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	hol, err := h.Engine.Calendar.Add(r.Context(), actorOf(r), leave.Holiday{
		Date: date,
		Name: req.Name,
		Kind: leave.HolidayKind(req.Kind),
	})
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(*hol))
}

func (h *Handler) GetHoliday(w http.ResponseWriter, r *http.Request) {
	hol, err := h.Engine.Calendar.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHolidayDTO(*hol))
}

func (h *Handler) UpdateHoliday(w http.ResponseWriter, r *http.Request) {
	var req UpdateHolidayRequest
	if !decode(w, r, &req) {
		return
	}
	upd := leave.HolidayUpdate{Name: req.Name}
	if req.Date != nil {
		date, err := leave.ParseDate(*req.Date)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		upd.Date = &date
	}
	if req.Kind != nil {
		kind := leave.HolidayKind(*req.Kind)
		upd.Kind = &kind
	}
	hol, err := h.Engine.Calendar.Update(r.Context(), actorOf(r), chi.URLParam(r, "id"), upd)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHolidayDTO(*hol))
}

func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Calendar.Delete(r.Context(), actorOf(r), chi.URLParam(r, "id")); err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Duration previews how many days a request over the range would consume.
func (h *Handler) Duration(w http.ResponseWriter, r *http.Request) {
	var req DurationRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := submitInput(SubmitRequest{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		DayType:   req.DayType,
		Breakdown: req.Breakdown,
	})
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	dayType := in.DayType
	if dayType == "" {
		dayType = leave.DayFull
	}
	days, err := h.Engine.Calendar.Duration(r.Context(), leave.DurationInput{
		Start: in.StartDate, End: in.EndDate, DayType: dayType, Breakdown: in.Breakdown,
	})
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DurationDTO{StartDate: req.StartDate, EndDate: req.EndDate, Days: days})
}

// =============================================================================
// ADJUSTMENT, AUDIT AND ADMIN HANDLERS
// =============================================================================

// ListAdjustments returns adjustments for ?employee_id, or all of them.
func (h *Handler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	adjs, err := h.Engine.Ledger.Adjustments(r.Context(), r.URL.Query().Get("employee_id"))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(adjs, toAdjustmentDTO))
}

func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if !decode(w, r, &req) {
		return
	}
	adj, err := h.Engine.Ledger.Adjust(r.Context(), actorOf(r), leave.AdjustmentInput{
		EmployeeID: req.EmployeeID,
		LeaveType:  leave.LeaveType(req.LeaveType),
		Delta:      req.Delta,
		Reason:     req.Reason,
	})
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdjustmentDTO(*adj))
}

func (h *Handler) QueryAudit(w http.ResponseWriter, r *http.Request) {
	filter, ok := auditFilter(w, r)
	if !ok {
		return
	}
	entries, err := h.Engine.Audit.Query(r.Context(), filter)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(entries, toAuditEntryDTO))
}

// YearReset runs the carry-forward job for the given year.
func (h *Handler) YearReset(w http.ResponseWriter, r *http.Request) {
	var req YearResetRequest
	if !decode(w, r, &req) {
		return
	}
	sum, err := h.Engine.Ledger.ResetYear(r.Context(), actorOf(r), req.Year)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, YearResetDTO{Year: sum.Year, Reset: sum.Reset, Skipped: sum.Skipped})
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

func (h *Handler) EmployeeReport(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}
	sum, err := h.Engine.Reports.EmployeeSummary(r.Context(), chi.URLParam(r, "id"), from, to)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) DepartmentReport(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}
	sum, err := h.Engine.Reports.DepartmentSummary(r.Context(), chi.URLParam(r, "name"), from, to)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) RequestRows(w http.ResponseWriter, r *http.Request) {
	filter, ok := requestFilter(w, r)
	if !ok {
		return
	}
	rows, err := h.Engine.Reports.RequestRows(r.Context(), filter)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) AdjustmentRows(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Engine.Reports.AdjustmentRows(r.Context(), r.URL.Query().Get("employee_id"))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) AuditRows(w http.ResponseWriter, r *http.Request) {
	filter, ok := auditFilter(w, r)
	if !ok {
		return
	}
	rows, err := h.Engine.Reports.AuditRows(r.Context(), filter)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// =============================================================================
// QUERY PARAMETERS
// =============================================================================

// dateRange reads optional ?from and ?to dates. Missing bounds are zero.
func dateRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	var from, to time.Time
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &from}, {"to", &to}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		d, err := leave.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid "+p.name+" date (use YYYY-MM-DD)", err)
			return time.Time{}, time.Time{}, false
		}
		*p.dst = d
	}
	return from, to, true
}

func requestFilter(w http.ResponseWriter, r *http.Request) (leave.RequestFilter, bool) {
	from, to, ok := dateRange(w, r)
	if !ok {
		return leave.RequestFilter{}, false
	}
	q := r.URL.Query()
	return leave.RequestFilter{
		EmployeeID: q.Get("employee_id"),
		Department: q.Get("department"),
		LeaveType:  leave.LeaveType(q.Get("leave_type")),
		Status:     leave.Status(q.Get("status")),
		Stage:      leave.Stage(q.Get("stage")),
		From:       from,
		To:         to,
	}, true
}

// auditFilter bounds CreatedAt by whole days: ?to includes the entire day.
func auditFilter(w http.ResponseWriter, r *http.Request) (leave.AuditFilter, bool) {
	from, to, ok := dateRange(w, r)
	if !ok {
		return leave.AuditFilter{}, false
	}
	if !to.IsZero() {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	q := r.URL.Query()
	filter := leave.AuditFilter{
		EntityID:   q.Get("entity_id"),
		EntityType: leave.EntityType(q.Get("entity_type")),
		ActorID:    q.Get("actor_id"),
		From:       from,
		To:         to,
	}
	for _, a := range q["action"] {
		filter.Actions = append(filter.Actions, leave.AuditAction(a))
	}
	return filter, true
}
