package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	logx "taskbeat/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// tableColumns is the closed schema: every table the store serves and
// the columns a filter or record may touch. Anything else is rejected
// before it reaches SQL.
var tableColumns = map[string]map[string]bool{
	TableTasks: {
		"id": true, "user_id": true, "title": true, "description": true,
		"status": true, "category": true, "priority": true, "client_id": true,
		"due_date": true, "created_at": true, "completed_at": true,
		"time_block_start": true, "time_block_end": true,
		"calendar_sync_status": true, "is_recurring": true,
		"recurrence_rule": true, "parent_task_id": true, "is_paused": true,
	},
	TableEngineRuns: {
		"user_id": true, "last_run_at": true,
	},
}

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

// Open initializes the configured store backend.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = "sqlite"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA foreign_keys = ON")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Find(ctx context.Context, table string, q Query) ([]Record, error) {
	cols, err := columnsFor(table)
	if err != nil {
		return nil, err
	}
	where, args, err := buildWhere(cols, q.Conds)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(table)
	b.WriteString(where)
	if len(q.OrderBy) > 0 {
		terms := make([]string, 0, len(q.OrderBy))
		for _, o := range q.OrderBy {
			if !cols[o.Col] {
				return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, o.Col)
			}
			t := o.Col
			if o.Desc {
				t += " DESC"
			}
			terms = append(terms, t)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(terms, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Insert writes one record, filling id when absent, and returns the
// stored row.
func (s *sqliteStore) Insert(ctx context.Context, table string, rec Record) (Record, error) {
	cols, err := columnsFor(table)
	if err != nil {
		return nil, err
	}

	out := make(Record, len(rec)+2)
	for k, v := range rec {
		if !cols[k] {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, k)
		}
		out[k] = v
	}
	if cols["id"] {
		if v, ok := out["id"]; !ok || v == nil || v == "" {
			out["id"] = uuid.NewString()
		}
	}

	names := make([]string, 0, len(out))
	for k := range out {
		names = append(names, k)
	}
	sort.Strings(names)

	args := make([]any, 0, len(names))
	holes := make([]string, 0, len(names))
	for _, k := range names {
		args = append(args, bindValue(out[k]))
		holes = append(holes, "?")
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), strings.Join(holes, ", "))
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *sqliteStore) Update(ctx context.Context, table string, conds []Cond, patch Record) error {
	cols, err := columnsFor(table)
	if err != nil {
		return err
	}
	if len(patch) == 0 {
		return nil
	}

	names := make([]string, 0, len(patch))
	for k := range patch {
		if !cols[k] {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, k)
		}
		names = append(names, k)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names))
	args := make([]any, 0, len(names))
	for _, k := range names {
		sets = append(sets, k+" = ?")
		args = append(args, bindValue(patch[k]))
	}

	where, whereArgs, err := buildWhere(cols, conds)
	if err != nil {
		return err
	}
	args = append(args, whereArgs...)

	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET %s%s", table, strings.Join(sets, ", "), where), args...)
	return err
}

func (s *sqliteStore) Delete(ctx context.Context, table string, conds []Cond) error {
	cols, err := columnsFor(table)
	if err != nil {
		return err
	}
	// Refuse an unconditional delete; wiping a table needs intent the
	// record API does not express.
	if len(conds) == 0 {
		return errors.New("delete requires at least one condition")
	}
	where, args, err := buildWhere(cols, conds)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, "DELETE FROM "+table+where, args...)
	return err
}

func columnsFor(table string) (map[string]bool, error) {
	cols, ok := tableColumns[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return cols, nil
}

func buildWhere(cols map[string]bool, conds []Cond) (string, []any, error) {
	if len(conds) == 0 {
		return "", nil, nil
	}
	terms := make([]string, 0, len(conds))
	args := make([]any, 0, len(conds))
	for _, c := range conds {
		if !cols[c.Col] {
			return "", nil, fmt.Errorf("%w: %s", ErrUnknownColumn, c.Col)
		}
		switch c.Op {
		case OpEq:
			terms = append(terms, c.Col+" = ?")
			args = append(args, bindValue(c.Val))
		case OpGte:
			terms = append(terms, c.Col+" >= ?")
			args = append(args, bindValue(c.Val))
		case OpIsNull:
			terms = append(terms, c.Col+" IS NULL")
		case OpNotNull:
			terms = append(terms, c.Col+" IS NOT NULL")
		default:
			return "", nil, fmt.Errorf("unknown filter op %d on %s", c.Op, c.Col)
		}
	}
	return " WHERE " + strings.Join(terms, " AND "), args, nil
}

func bindValue(v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	default:
		return v
	}
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			switch x := vals[i].(type) {
			case []byte:
				rec[c] = string(x)
			default:
				rec[c] = x
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
