package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

const requestColumns = `id, employee_id, employee_name, department, leave_type, start_date, end_date,
	day_type, breakdown, reason, days_count, status, current_stage, approvals, applied_on,
	version, updated_at`

// approvalJSON and portionJSON are the column encodings of the nested
// request slices.
type approvalJSON struct {
	Stage        string     `json:"stage"`
	ApproverID   string     `json:"approver_id,omitempty"`
	ApproverName string     `json:"approver_name,omitempty"`
	Status       string     `json:"status"`
	Comment      string     `json:"comment,omitempty"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
}

type portionJSON struct {
	Date    string `json:"date"`
	DayType string `json:"day_type"`
}

func (r reader) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	req, err := scanRequest(r.queryRow(ctx, `SELECT `+requestColumns+` FROM leave_requests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &leave.NotFoundError{Entity: "leave request", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leave request: %w", err)
	}
	return req, nil
}

// ListRequests returns matches newest first.
func (r reader) ListRequests(ctx context.Context, f leave.RequestFilter) ([]leave.Request, error) {
	var w where
	if f.EmployeeID != "" {
		w.add("employee_id = ?", f.EmployeeID)
	}
	if f.Department != "" {
		w.add("department = ?", f.Department)
	}
	if f.LeaveType != "" {
		w.add("leave_type = ?", string(f.LeaveType))
	}
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.Stage != "" {
		w.add("current_stage = ?", string(f.Stage))
	}
	if !f.From.IsZero() {
		w.add("end_date >= ?", formatDate(leave.DateOf(f.From)))
	}
	if !f.To.IsZero() {
		w.add("start_date <= ?", formatDate(leave.DateOf(f.To)))
	}

	rows, err := r.query(ctx, `SELECT `+requestColumns+` FROM leave_requests`+w.String()+
		` ORDER BY applied_on DESC, id DESC`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave requests: %w", err)
	}
	defer rows.Close()

	var out []leave.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func (tx *txStore) InsertRequest(ctx context.Context, req *leave.Request) error {
	breakdown, approvals, err := encodeNested(req)
	if err != nil {
		return err
	}
	_, err = tx.exec(ctx, `
		INSERT INTO leave_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.EmployeeID, req.EmployeeName, req.Department, string(req.LeaveType),
		formatDate(req.StartDate), formatDate(req.EndDate), string(req.DayType), breakdown, req.Reason,
		req.DaysCount.HalfDays(), string(req.Status), string(req.CurrentStage), approvals,
		formatTime(req.AppliedOn), 1, formatTime(req.UpdatedAt))
	if isUniqueConstraintError(err) {
		return &leave.ConflictError{Entity: "leave request", ID: req.ID, Reason: "already exists"}
	}
	if err != nil {
		return fmt.Errorf("failed to insert leave request: %w", err)
	}
	req.Version = 1
	return nil
}

// UpdateRequest persists status, stage and approvals. The submitted fields
// are immutable once the request exists.
func (tx *txStore) UpdateRequest(ctx context.Context, req *leave.Request) error {
	_, approvals, err := encodeNested(req)
	if err != nil {
		return err
	}
	res, err := tx.exec(ctx, `
		UPDATE leave_requests SET status = ?, current_stage = ?, approvals = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		string(req.Status), string(req.CurrentStage), approvals, formatTime(req.UpdatedAt), req.ID, req.Version)
	if err != nil {
		return fmt.Errorf("failed to update leave request: %w", err)
	}
	if err := tx.checkVersioned(ctx, res, "leave_requests", "leave request", req.ID); err != nil {
		return err
	}
	req.Version++
	return nil
}

func encodeNested(req *leave.Request) (breakdown, approvals string, err error) {
	portions := make([]portionJSON, len(req.Breakdown))
	for i, p := range req.Breakdown {
		portions[i] = portionJSON{Date: formatDate(p.Date), DayType: string(p.DayType)}
	}
	records := make([]approvalJSON, len(req.Approvals))
	for i, a := range req.Approvals {
		records[i] = approvalJSON{
			Stage:        string(a.Stage),
			ApproverID:   a.ApproverID,
			ApproverName: a.ApproverName,
			Status:       string(a.Status),
			Comment:      a.Comment,
			Timestamp:    a.Timestamp,
		}
	}
	b, err := json.Marshal(portions)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode breakdown: %w", err)
	}
	a, err := json.Marshal(records)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode approvals: %w", err)
	}
	return string(b), string(a), nil
}

func scanRequest(s scanner) (*leave.Request, error) {
	var (
		req                          leave.Request
		lt, dayType, status, stage   string
		start, end, applied, updated string
		breakdown, approvals         string
		days                         int64
	)
	err := s.Scan(&req.ID, &req.EmployeeID, &req.EmployeeName, &req.Department, &lt, &start, &end,
		&dayType, &breakdown, &req.Reason, &days, &status, &stage, &approvals, &applied,
		&req.Version, &updated)
	if err != nil {
		return nil, err
	}
	req.LeaveType = leave.LeaveType(lt)
	req.DayType = leave.DayType(dayType)
	req.Status = leave.Status(status)
	req.CurrentStage = leave.Stage(stage)
	req.DaysCount = leave.HalfDays(days)

	if req.StartDate, err = parseDate(start); err != nil {
		return nil, err
	}
	if req.EndDate, err = parseDate(end); err != nil {
		return nil, err
	}
	if req.AppliedOn, err = parseTime(applied); err != nil {
		return nil, err
	}
	if req.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}

	var portions []portionJSON
	if err := json.Unmarshal([]byte(breakdown), &portions); err != nil {
		return nil, fmt.Errorf("failed to decode breakdown of %s: %w", req.ID, err)
	}
	for _, p := range portions {
		d, err := parseDate(p.Date)
		if err != nil {
			return nil, err
		}
		req.Breakdown = append(req.Breakdown, leave.DayPortion{Date: d, DayType: leave.DayType(p.DayType)})
	}

	var records []approvalJSON
	if err := json.Unmarshal([]byte(approvals), &records); err != nil {
		return nil, fmt.Errorf("failed to decode approvals of %s: %w", req.ID, err)
	}
	req.Approvals = make([]leave.ApprovalRecord, len(records))
	for i, a := range records {
		var ts *time.Time
		if a.Timestamp != nil {
			t := a.Timestamp.UTC()
			ts = &t
		}
		req.Approvals[i] = leave.ApprovalRecord{
			Stage:        leave.Stage(a.Stage),
			ApproverID:   a.ApproverID,
			ApproverName: a.ApproverName,
			Status:       leave.RecordStatus(a.Status),
			Comment:      a.Comment,
			Timestamp:    ts,
		}
	}
	return &req, nil
}
