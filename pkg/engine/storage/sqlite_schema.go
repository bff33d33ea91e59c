package storage

// SchemaVersion is bumped whenever the trace table layout changes.
const SchemaVersion = 1

// Schema creates the trace tables and indexes. Statements are idempotent so
// reopening an existing database is safe.
const Schema = `
CREATE TABLE IF NOT EXISTS traces (
	id             TEXT PRIMARY KEY,
	rule_id        TEXT,
	rule_set_id    TEXT,
	recorded_at    TIMESTAMP NOT NULL,
	executed       BOOLEAN NOT NULL,
	conditions_met BOOLEAN NOT NULL,
	elapsed_ns     INTEGER NOT NULL,
	trace          TEXT,
	error          TEXT
);

CREATE INDEX IF NOT EXISTS idx_traces_rule_id ON traces(rule_id);
CREATE INDEX IF NOT EXISTS idx_traces_rule_set_id ON traces(rule_set_id);
CREATE INDEX IF NOT EXISTS idx_traces_recorded_at ON traces(recorded_at);

CREATE TABLE IF NOT EXISTS schema_version (
	version    INTEGER PRIMARY KEY,
	applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const insertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`

const getSchemaVersion = `SELECT MAX(version) FROM schema_version`
