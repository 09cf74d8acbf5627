package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// AUDIT (append-only)
// =============================================================================

// QueryAudit returns matching entries oldest first.
func (r reader) QueryAudit(ctx context.Context, f leave.AuditFilter) ([]leave.AuditEntry, error) {
	var w where
	if f.EntityID != "" {
		w.add("entity_id = ?", f.EntityID)
	}
	if f.EntityType != "" {
		w.add("entity_type = ?", string(f.EntityType))
	}
	if f.ActorID != "" {
		w.add("actor_id = ?", f.ActorID)
	}
	if len(f.Actions) > 0 {
		args := make([]any, len(f.Actions))
		for i, a := range f.Actions {
			args[i] = string(a)
		}
		w.add("action IN ("+strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")+")", args...)
	}
	if !f.From.IsZero() {
		w.add("created_at >= ?", formatTime(f.From))
	}
	if !f.To.IsZero() {
		w.add("created_at <= ?", formatTime(f.To))
	}

	rows, err := r.query(ctx, `
		SELECT id, action, entity_type, entity_id, actor_id, before_json, after_json, description, created_at
		FROM audit_entries`+w.String()+` ORDER BY created_at, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var out []leave.AuditEntry
	for rows.Next() {
		var (
			e                           leave.AuditEntry
			action, entityType, created string
			before, after               sql.NullString
		)
		if err := rows.Scan(&e.ID, &action, &entityType, &e.EntityID, &e.ActorID,
			&before, &after, &e.Description, &created); err != nil {
			return nil, err
		}
		e.Action = leave.AuditAction(action)
		e.EntityType = leave.EntityType(entityType)
		if before.Valid {
			e.Before = json.RawMessage(before.String)
		}
		if after.Valid {
			e.After = json.RawMessage(after.String)
		}
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (tx *txStore) AppendAudit(ctx context.Context, e leave.AuditEntry) error {
	_, err := tx.exec(ctx, `
		INSERT INTO audit_entries (id, action, entity_type, entity_id, actor_id, before_json, after_json, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Action), string(e.EntityType), e.EntityID, e.ActorID,
		nullString(string(e.Before)), nullString(string(e.After)), e.Description, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}
