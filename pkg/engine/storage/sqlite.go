package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"stratum-hq/reliq/pkg/engine"
)

// SQLiteConfig configures the SQLite trace store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns caps open connections. Default: 10.
	MaxOpenConns int

	// MaxIdleConns caps idle connections. Default: 5.
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true.
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/traces.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements Store on a single-file SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens the database, applies the schema, and enables WAL
// mode if configured.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, newStoreError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{db: db, config: config, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite trace store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return newStoreError("sqlite", "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return newStoreError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return newStoreError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return newStoreError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return newStoreError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return newStoreError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Save appends a trace record. The event log is stored as JSON.
func (s *SQLiteStore) Save(ctx context.Context, rec *TraceRecord) error {
	recordedAt := rec.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	var traceJSON []byte
	if len(rec.Trace) > 0 {
		var err error
		traceJSON, err = json.Marshal(rec.Trace)
		if err != nil {
			return newStoreError("sqlite", "marshal_trace", err)
		}
	}

	var errVal any
	if rec.Error != "" {
		errVal = rec.Error
	}

	const query = `
		INSERT INTO traces (
			id, rule_id, rule_set_id, recorded_at,
			executed, conditions_met, elapsed_ns, trace, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.RuleID, rec.RuleSetID, recordedAt,
		rec.Executed, rec.ConditionsMet, int64(rec.Elapsed), string(traceJSON), errVal,
	)
	if err != nil {
		return newStoreError("sqlite", "save", err)
	}
	return nil
}

// Query returns matching records, newest first.
func (s *SQLiteStore) Query(ctx context.Context, q *Query) ([]*TraceRecord, error) {
	where, args := buildWhere(q)

	sqlQuery := "SELECT id, rule_id, rule_set_id, recorded_at, executed, conditions_met, elapsed_ns, trace, error FROM traces"
	if where != "" {
		sqlQuery += " WHERE " + where
	}
	sqlQuery += " ORDER BY recorded_at DESC"

	limit := 100
	if q != nil && q.Limit > 0 {
		limit = q.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if q != nil && q.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, newStoreError("sqlite", "query", err)
	}
	defer rows.Close()

	var records []*TraceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, newStoreError("sqlite", "scan", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, newStoreError("sqlite", "query", err)
	}
	return records, nil
}

// Count returns the number of records matching the filter.
func (s *SQLiteStore) Count(ctx context.Context, q *Query) (int64, error) {
	where, args := buildWhere(q)

	sqlQuery := "SELECT COUNT(*) FROM traces"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, newStoreError("sqlite", "count", err)
	}
	return count, nil
}

// Prune deletes records recorded before the cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM traces WHERE recorded_at < ?", before)
	if err != nil {
		return 0, newStoreError("sqlite", "prune", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, newStoreError("sqlite", "prune", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return newStoreError("sqlite", "close", err)
	}
	s.logger.Info("sqlite trace store closed")
	return nil
}

func buildWhere(q *Query) (string, []any) {
	if q == nil {
		return "", nil
	}

	var conditions []string
	var args []any

	if q.RuleID != "" {
		conditions = append(conditions, "rule_id = ?")
		args = append(args, q.RuleID)
	}
	if q.RuleSetID != "" {
		conditions = append(conditions, "rule_set_id = ?")
		args = append(args, q.RuleSetID)
	}
	if !q.Since.IsZero() {
		conditions = append(conditions, "recorded_at >= ?")
		args = append(args, q.Since)
	}
	if !q.Until.IsZero() {
		conditions = append(conditions, "recorded_at <= ?")
		args = append(args, q.Until)
	}
	if q.OnlyErrors {
		conditions = append(conditions, "error IS NOT NULL")
	}

	where := ""
	for i, c := range conditions {
		if i > 0 {
			where += " AND "
		}
		where += c
	}
	return where, args
}

func scanRecord(rows *sql.Rows) (*TraceRecord, error) {
	var rec TraceRecord
	var elapsedNs int64
	var traceJSON sql.NullString
	var errVal sql.NullString

	err := rows.Scan(
		&rec.ID, &rec.RuleID, &rec.RuleSetID, &rec.RecordedAt,
		&rec.Executed, &rec.ConditionsMet, &elapsedNs, &traceJSON, &errVal,
	)
	if err != nil {
		return nil, err
	}

	rec.Elapsed = time.Duration(elapsedNs)
	if errVal.Valid {
		rec.Error = errVal.String
	}
	if traceJSON.Valid && traceJSON.String != "" {
		var events []engine.TraceEvent
		if err := json.Unmarshal([]byte(traceJSON.String), &events); err == nil {
			rec.Trace = events
		}
	}
	return &rec, nil
}
