/*
audit.go - Append-only compliance trail

PURPOSE:
  Every mutating action in the engine appends exactly one AuditEntry (or one
  per affected balance for bulk jobs) as the last write of its transaction.
  If the append fails the whole transaction rolls back, so an audited action
  is never observable without its entry and vice versa.

  There is no update or delete. Queries are pure reads over the log.
*/
package leave

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type AuditLog struct {
	*core
}

// AuditRecord is the input to Record. Before and After are marshalled to JSON.
type AuditRecord struct {
	Action      AuditAction
	EntityType  EntityType
	EntityID    string
	ActorID     string
	Before      any
	After       any
	Description string
}

// Record appends an entry within repo's transaction.
func (a *AuditLog) Record(ctx context.Context, repo Repository, rec AuditRecord) (*AuditEntry, error) {
	before, err := snapshot(rec.Before)
	if err != nil {
		return nil, fmt.Errorf("audit before snapshot: %w", err)
	}
	after, err := snapshot(rec.After)
	if err != nil {
		return nil, fmt.Errorf("audit after snapshot: %w", err)
	}

	entry := AuditEntry{
		ID:          newID("audit"),
		Action:      rec.Action,
		EntityType:  rec.EntityType,
		EntityID:    rec.EntityID,
		ActorID:     rec.ActorID,
		Before:      before,
		After:       after,
		Description: rec.Description,
		CreatedAt:   a.now(),
	}
	if err := repo.AppendAudit(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append audit entry: %w", err)
	}
	return &entry, nil
}

func snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}

// Query returns entries matching filter in chronological order.
func (a *AuditLog) Query(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	return a.store.QueryAudit(ctx, filter)
}

func (a *AuditLog) ByEntity(ctx context.Context, entityID string) ([]AuditEntry, error) {
	return a.Query(ctx, AuditFilter{EntityID: entityID})
}

// ByDateRange returns entries created on the calendar days from..to inclusive.
func (a *AuditLog) ByDateRange(ctx context.Context, from, to time.Time) ([]AuditEntry, error) {
	if to.Before(from) {
		return nil, &InvalidDateRangeError{Start: from.Format(DateLayout), End: to.Format(DateLayout)}
	}
	return a.Query(ctx, AuditFilter{
		From: DateOf(from),
		To:   DateOf(to).Add(24*time.Hour - time.Nanosecond),
	})
}

func (a *AuditLog) ByAction(ctx context.Context, actions ...AuditAction) ([]AuditEntry, error) {
	return a.Query(ctx, AuditFilter{Actions: actions})
}
