package sqldb

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestRebind(t *testing.T) {
	q := `SELECT id FROM leave_requests WHERE employee_id = ? AND status = ? ORDER BY id`

	assert.Equal(t, q, reader{dialect: SQLite}.rebind(q))
	assert.Equal(t,
		`SELECT id FROM leave_requests WHERE employee_id = $1 AND status = $2 ORDER BY id`,
		reader{dialect: Postgres}.rebind(q))
}

func TestIsUniqueConstraintError(t *testing.T) {
	assert.True(t, isUniqueConstraintError(errors.New("UNIQUE constraint failed: policies.leave_type")))
	assert.True(t, isUniqueConstraintError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueConstraintError(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueConstraintError(nil))
}

func TestTimeLayout_SortsLexically(t *testing.T) {
	a := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	b := a.Add(500 * time.Millisecond)
	c := a.Add(10 * time.Second)

	assert.Less(t, formatTime(a), formatTime(b))
	assert.Less(t, formatTime(b), formatTime(c))

	back, err := parseTime(formatTime(b))
	assert.NoError(t, err)
	assert.True(t, b.Equal(back))
}

func TestWhere(t *testing.T) {
	var w where
	assert.Equal(t, "", w.String())
	w.add("a = ?", 1)
	w.add("b IN (?, ?)", 2, 3)
	assert.Equal(t, " WHERE a = ? AND b IN (?, ?)", w.String())
	assert.Equal(t, []any{1, 2, 3}, w.args)
}
