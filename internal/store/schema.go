package store

// Dates are ISO 'YYYY-MM-DD' text so they compare lexically; instants
// are unix milliseconds.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS learners (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT    NOT NULL UNIQUE,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id    INTEGER NOT NULL REFERENCES learners(id),
		type        TEXT    NOT NULL,
		topic       TEXT    NOT NULL DEFAULT '',
		question    TEXT    NOT NULL,
		choices     TEXT    NOT NULL DEFAULT '[]',
		answer_key  TEXT    NOT NULL,
		explanation TEXT    NOT NULL DEFAULT '',
		created_at  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id)`,
	`CREATE TABLE IF NOT EXISTS review_states (
		id                       INTEGER PRIMARY KEY AUTOINCREMENT,
		learner_id               INTEGER NOT NULL REFERENCES learners(id),
		item_id                  INTEGER NOT NULL REFERENCES items(id),
		gate                     TEXT    NOT NULL CHECK (gate IN ('GATE_1', 'GATE_2', 'GRADUATED')),
		next_review_date         TEXT,
		attempt_count            INTEGER NOT NULL DEFAULT 0,
		today_snapshot_date      TEXT,
		today_snapshot_gate      TEXT,
		today_first_attempt_date TEXT,
		created_at               INTEGER NOT NULL,
		updated_at               INTEGER NOT NULL,
		UNIQUE (learner_id, item_id),
		CHECK ((gate = 'GRADUATED') = (next_review_date IS NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_review_states_due ON review_states(next_review_date, gate)`,
	`CREATE INDEX IF NOT EXISTS idx_review_states_snapshot ON review_states(today_snapshot_date)`,
	`CREATE TABLE IF NOT EXISTS attempts (
		id           TEXT    PRIMARY KEY,
		learner_id   INTEGER NOT NULL REFERENCES learners(id),
		item_id      INTEGER NOT NULL REFERENCES items(id),
		answer       TEXT    NOT NULL,
		correct      INTEGER NOT NULL,
		first_of_day INTEGER NOT NULL,
		feedback     TEXT,
		created_at   INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_learner_time ON attempts(learner_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS snapshot_runs (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		snapshot_date TEXT    NOT NULL,
		rows_updated  INTEGER NOT NULL,
		ran_at        INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS llm_calls (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at    INTEGER NOT NULL,
		purpose       TEXT    NOT NULL,
		model         TEXT    NOT NULL,
		input_tokens  INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms    INTEGER NOT NULL DEFAULT 0,
		success       INTEGER NOT NULL,
		error_message TEXT    NOT NULL DEFAULT '',
		request_body  TEXT    NOT NULL DEFAULT '',
		response_body TEXT    NOT NULL DEFAULT ''
	)`,
}
