package sqldb

// schema is applied in order by Migrate. The DDL sticks to types both SQLite
// and PostgreSQL accept.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS employees (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		email        TEXT NOT NULL,
		role         TEXT NOT NULL,
		department   TEXT NOT NULL,
		team_id      TEXT,
		manager_id   TEXT,
		team_lead_id TEXT,
		join_date    TEXT NOT NULL,
		status       TEXT NOT NULL,
		version      INTEGER NOT NULL,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_employees_department ON employees(department)`,

	`CREATE TABLE IF NOT EXISTS employee_changes (
		id          TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		field       TEXT NOT NULL,
		old_value   TEXT NOT NULL,
		new_value   TEXT NOT NULL,
		changed_by  TEXT NOT NULL,
		reason      TEXT NOT NULL,
		created_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_employee_changes_employee ON employee_changes(employee_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS balances (
		employee_id TEXT NOT NULL REFERENCES employees(id),
		leave_type  TEXT NOT NULL,
		half_days   BIGINT NOT NULL,
		version     INTEGER NOT NULL,
		updated_at  TEXT NOT NULL,
		PRIMARY KEY (employee_id, leave_type)
	)`,

	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id           TEXT PRIMARY KEY,
		employee_id  TEXT NOT NULL REFERENCES employees(id),
		leave_type   TEXT NOT NULL,
		kind         TEXT NOT NULL,
		delta        BIGINT NOT NULL,
		before_days  BIGINT NOT NULL,
		after_days   BIGINT NOT NULL,
		reference_id TEXT,
		reason       TEXT NOT NULL,
		actor_id     TEXT NOT NULL,
		created_at   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_employee ON ledger_entries(employee_id, leave_type, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_reference ON ledger_entries(reference_id)`,

	`CREATE TABLE IF NOT EXISTS adjustments (
		id               TEXT PRIMARY KEY,
		employee_id      TEXT NOT NULL REFERENCES employees(id),
		employee_name    TEXT NOT NULL,
		leave_type       TEXT NOT NULL,
		kind             TEXT NOT NULL,
		days             BIGINT NOT NULL,
		reason           TEXT NOT NULL,
		actor_id         TEXT NOT NULL,
		actor_name       TEXT NOT NULL,
		previous_balance BIGINT NOT NULL,
		new_balance      BIGINT NOT NULL,
		created_at       TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_adjustments_employee ON adjustments(employee_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS policies (
		id                TEXT PRIMARY KEY,
		leave_type        TEXT NOT NULL UNIQUE,
		name              TEXT NOT NULL,
		annual_quota      BIGINT NOT NULL,
		carry_forward     BOOLEAN NOT NULL,
		max_carry_forward BIGINT NOT NULL,
		allow_negative    BOOLEAN NOT NULL,
		description       TEXT NOT NULL,
		version           INTEGER NOT NULL,
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS holidays (
		id           TEXT PRIMARY KEY,
		holiday_date TEXT NOT NULL,
		name         TEXT NOT NULL,
		kind         TEXT NOT NULL,
		created_at   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_holidays_date ON holidays(holiday_date)`,

	`CREATE TABLE IF NOT EXISTS leave_requests (
		id            TEXT PRIMARY KEY,
		employee_id   TEXT NOT NULL REFERENCES employees(id),
		employee_name TEXT NOT NULL,
		department    TEXT NOT NULL,
		leave_type    TEXT NOT NULL,
		start_date    TEXT NOT NULL,
		end_date      TEXT NOT NULL,
		day_type      TEXT NOT NULL,
		breakdown     TEXT NOT NULL,
		reason        TEXT NOT NULL,
		days_count    BIGINT NOT NULL,
		status        TEXT NOT NULL,
		current_stage TEXT NOT NULL,
		approvals     TEXT NOT NULL,
		applied_on    TEXT NOT NULL,
		version       INTEGER NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_employee ON leave_requests(employee_id)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_status_stage ON leave_requests(status, current_stage)`,

	`CREATE TABLE IF NOT EXISTS audit_entries (
		id          TEXT PRIMARY KEY,
		action      TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id   TEXT NOT NULL,
		actor_id    TEXT NOT NULL,
		before_json TEXT,
		after_json  TEXT,
		description TEXT NOT NULL,
		created_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_entries(entity_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_entries(created_at)`,
}
