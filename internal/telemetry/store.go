package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// MaxStoredZeroResults bounds the zero_result_queries table.
const MaxStoredZeroResults = 100

// SQLiteMetricsStore implements QueryMetricsStore using SQLite.
type SQLiteMetricsStore struct {
	db    *sql.DB
	owned bool
}

// NewSQLiteMetricsStore wraps an existing connection. The caller keeps
// ownership of db and must have created the schema with InitTelemetrySchema.
func NewSQLiteMetricsStore(db *sql.DB) (*SQLiteMetricsStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &SQLiteMetricsStore{db: db}, nil
}

// OpenSQLiteMetricsStore opens (or creates) a metrics database at path and
// initializes its schema. Close closes the database.
func OpenSQLiteMetricsStore(path string) (*SQLiteMetricsStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create telemetry directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry database: %w", err)
	}
	// A single connection serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}

	if err := InitTelemetrySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteMetricsStore{db: db, owned: true}, nil
}

// InitTelemetrySchema creates the telemetry tables if they don't exist.
func InitTelemetrySchema(db *sql.DB) error {
	schema := `
	-- Per-operation query counts (aggregated daily)
	CREATE TABLE IF NOT EXISTS query_op_stats (
		date TEXT NOT NULL,
		operation TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, operation)
	);

	-- Query terms with frequency
	CREATE TABLE IF NOT EXISTS query_terms (
		term TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 1,
		last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);

	-- Zero-result queries (bounded FIFO)
	CREATE TABLE IF NOT EXISTS zero_result_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		operation TEXT NOT NULL,
		query TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);

	-- Latency histogram (aggregated daily)
	CREATE TABLE IF NOT EXISTS query_latency_stats (
		date TEXT NOT NULL,
		bucket TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, bucket)
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create telemetry schema: %w", err)
	}
	return nil
}

// upsertCounts adds counts to rows keyed by (date, key) inside one transaction.
func (s *SQLiteMetricsStore) upsertCounts(query, date string, counts map[string]int64) error {
	if len(counts) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for key, count := range counts {
		if _, err := stmt.Exec(date, key, count); err != nil {
			return fmt.Errorf("upsert count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// sumCounts runs a (key, SUM(count)) query over a date range.
func (s *SQLiteMetricsStore) sumCounts(query, from, to string) (map[string]int64, error) {
	rows, err := s.db.Query(query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

// AddOperationCounts adds daily per-operation counts.
func (s *SQLiteMetricsStore) AddOperationCounts(date string, counts map[string]int64) error {
	return s.upsertCounts(`
		INSERT INTO query_op_stats (date, operation, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, operation) DO UPDATE SET count = count + excluded.count
	`, date, counts)
}

// GetOperationCounts sums per-operation counts for a date range.
func (s *SQLiteMetricsStore) GetOperationCounts(from, to string) (map[string]int64, error) {
	return s.sumCounts(`
		SELECT operation, SUM(count) AS total
		FROM query_op_stats
		WHERE date >= ? AND date <= ?
		GROUP BY operation
	`, from, to)
}

// UpsertTermCounts updates term frequency counts.
func (s *SQLiteMetricsStore) UpsertTermCounts(terms map[string]int64) error {
	if len(terms) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO query_terms (term, count, last_seen)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(term) DO UPDATE SET
			count = count + excluded.count,
			last_seen = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for term, count := range terms {
		if _, err := stmt.Exec(term, count); err != nil {
			return fmt.Errorf("upsert term count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetTopTerms retrieves the top N terms by frequency.
func (s *SQLiteMetricsStore) GetTopTerms(limit int) ([]TermCount, error) {
	rows, err := s.db.Query(`
		SELECT term, count
		FROM query_terms
		ORDER BY count DESC, term ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top terms: %w", err)
	}
	defer rows.Close()

	var terms []TermCount
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		terms = append(terms, tc)
	}
	return terms, rows.Err()
}

// AddZeroResultQueries appends queries and trims the table to
// MaxStoredZeroResults rows, oldest first.
func (s *SQLiteMetricsStore) AddZeroResultQueries(queries []ZeroResultQuery) error {
	if len(queries) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range queries {
		if _, err := tx.Exec(`
			INSERT INTO zero_result_queries (operation, query, timestamp)
			VALUES (?, ?, ?)
		`, q.Operation, q.Query, q.Timestamp.UnixMilli()); err != nil {
			return fmt.Errorf("insert zero-result query: %w", err)
		}
	}

	if _, err := tx.Exec(`
		DELETE FROM zero_result_queries
		WHERE id NOT IN (
			SELECT id FROM zero_result_queries
			ORDER BY id DESC
			LIMIT ?
		)
	`, MaxStoredZeroResults); err != nil {
		return fmt.Errorf("trim zero-result queries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetZeroResultQueries retrieves recent zero-result queries, newest first.
func (s *SQLiteMetricsStore) GetZeroResultQueries(limit int) ([]ZeroResultQuery, error) {
	rows, err := s.db.Query(`
		SELECT operation, query, timestamp
		FROM zero_result_queries
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query zero-result queries: %w", err)
	}
	defer rows.Close()

	var queries []ZeroResultQuery
	for rows.Next() {
		var q ZeroResultQuery
		var ms int64
		if err := rows.Scan(&q.Operation, &q.Query, &ms); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		q.Timestamp = time.UnixMilli(ms)
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// AddLatencyCounts adds daily latency histogram counts.
func (s *SQLiteMetricsStore) AddLatencyCounts(date string, counts map[LatencyBucket]int64) error {
	keyed := make(map[string]int64, len(counts))
	for b, c := range counts {
		keyed[string(b)] = c
	}
	return s.upsertCounts(`
		INSERT INTO query_latency_stats (date, bucket, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, bucket) DO UPDATE SET count = count + excluded.count
	`, date, keyed)
}

// GetLatencyCounts sums the latency distribution for a date range.
func (s *SQLiteMetricsStore) GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error) {
	keyed, err := s.sumCounts(`
		SELECT bucket, SUM(count) AS total
		FROM query_latency_stats
		WHERE date >= ? AND date <= ?
		GROUP BY bucket
	`, from, to)
	if err != nil {
		return nil, err
	}
	counts := make(map[LatencyBucket]int64, len(keyed))
	for k, v := range keyed {
		counts[LatencyBucket(k)] = v
	}
	return counts, nil
}

// Close closes the database if this store opened it.
func (s *SQLiteMetricsStore) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}
