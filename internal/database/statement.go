package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/metrics"
)

// Result reports the outcome of a mutating statement.
type Result struct {
	LastInsertID int64
	// Changes is the number of rows the engine actually inserted, updated
	// or deleted.
	Changes int64
}

// Row is a single result row keyed by column name.
type Row map[string]any

// Stmt is a prepared statement handle. The statement is compiled on first
// use and reused for every later call with different bound parameters.
type Stmt struct {
	db      *Database
	sqlText string

	mu       sync.Mutex
	prepared *sql.Stmt
}

// Prepare returns the statement handle for query. Handles are cached per
// query text, so repeated calls with the same SQL share one compiled
// statement.
func (d *Database) Prepare(query string) *Stmt {
	d.stmtMu.Lock()
	defer d.stmtMu.Unlock()

	if s, ok := d.stmts[query]; ok {
		return s
	}
	s := &Stmt{db: d, sqlText: query}
	d.stmts[query] = s
	return s
}

// compile prepares the statement if it has not been prepared yet. A failed
// compilation is not remembered, so the next call tries again.
func (s *Stmt) compile(ctx context.Context) (*sql.Stmt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.prepared != nil {
		return s.prepared, nil
	}

	ps, err := s.db.db.PrepareContext(ctx, s.sqlText)
	if err != nil {
		return nil, fmt.Errorf("prepare statement: %w", err)
	}
	s.prepared = ps
	metrics.DBPreparedStatements.Inc()
	return ps, nil
}

func (s *Stmt) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.prepared == nil {
		return nil
	}
	err := s.prepared.Close()
	s.prepared = nil
	metrics.DBPreparedStatements.Dec()
	return err
}

// Run binds args positionally and executes the statement once.
func (s *Stmt) Run(ctx context.Context, args ...any) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	ps, err := s.compile(ctx)
	if err != nil {
		return Result{}, err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	res, err := ps.ExecContext(ctx, args...)
	if err != nil {
		return Result{}, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Result{}, fmt.Errorf("last insert id: %w", err)
	}
	changes, err := res.RowsAffected()
	if err != nil {
		return Result{}, fmt.Errorf("rows affected: %w", err)
	}

	return Result{LastInsertID: id, Changes: changes}, nil
}

// Get returns the first matching row, or nil when nothing matched.
func (s *Stmt) Get(ctx context.Context, args ...any) (Row, error) {
	rows, err := s.collect(ctx, 1, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// All returns every matching row.
func (s *Stmt) All(ctx context.Context, args ...any) ([]Row, error) {
	return s.collect(ctx, 0, args...)
}

// collect gathers up to limit rows (all rows when limit is 0).
func (s *Stmt) collect(ctx context.Context, limit int, args ...any) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	ps, err := s.compile(ctx)
	if err != nil {
		return nil, err
	}

	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	rows, err := ps.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := []Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result = append(result, row)

		if limit > 0 && len(result) == limit {
			break
		}
	}

	return result, rows.Err()
}

// Int64 returns the column as an integer, or 0 when it is NULL or missing.
func (r Row) Int64(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// NullInt64 returns nil for NULL columns.
func (r Row) NullInt64(col string) *int64 {
	if r[col] == nil {
		return nil
	}
	n := r.Int64(col)
	return &n
}

// String returns the column as text, or "" when it is NULL or missing.
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.UTC().Format(sqliteTimeFormat)
	}
	return ""
}

// NullString returns nil for NULL columns.
func (r Row) NullString(col string) *string {
	if r[col] == nil {
		return nil
	}
	s := r.String(col)
	return &s
}

const sqliteTimeFormat = "2006-01-02 15:04:05"

var timeFormats = []string{
	sqliteTimeFormat,
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Time returns the column as a UTC time. Timestamp columns arrive either as
// time.Time (declared DATETIME) or as text when they pass through an
// expression.
func (r Row) Time(col string) time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return v.UTC()
	case string:
		for _, layout := range timeFormats {
			if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
				return t
			}
		}
	case int64:
		return time.Unix(v, 0).UTC()
	}
	return time.Time{}
}
