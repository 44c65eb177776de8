package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
)

// Record is one row, keyed by column name.
//
// Values are plain scalars: string, int64, float64, bool or nil.
// Cells read back from SQLite come out as string/int64/float64/nil.
type Record map[string]any

// Op is a filter operator.
type Op int

const (
	OpEq Op = iota
	OpGte
	OpIsNull
	OpNotNull
)

// Cond is a single WHERE condition.
type Cond struct {
	Col string
	Op  Op
	Val any
}

func Eq(col string, val any) Cond { return Cond{Col: col, Op: OpEq, Val: val} }
func Gte(col string, val any) Cond {
	return Cond{Col: col, Op: OpGte, Val: val}
}
func IsNull(col string) Cond  { return Cond{Col: col, Op: OpIsNull} }
func NotNull(col string) Cond { return Cond{Col: col, Op: OpNotNull} }

// Order is one ORDER BY term.
type Order struct {
	Col  string
	Desc bool
}

// Query bundles conditions, ordering and a row limit for Find.
// Zero Limit means no limit.
type Query struct {
	Conds   []Cond
	OrderBy []Order
	Limit   int
}

// Store is the persistence API consumed by the engine and the UI data
// layer. Implementations must be safe for concurrent use.
type Store interface {
	Find(ctx context.Context, table string, q Query) ([]Record, error)
	Insert(ctx context.Context, table string, rec Record) (Record, error)
	Update(ctx context.Context, table string, conds []Cond, patch Record) error
	Delete(ctx context.Context, table string, conds []Cond) error
	Close() error
}

// Config configures the store backend.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Table names shared by producers and consumers of the store.
const (
	TableTasks      = "tasks"
	TableEngineRuns = "engine_runs"
)
