package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"taskbeat/internal/store"
)

// fakeStore is an in-memory store.Store for engine tests. It honors the
// same condition semantics as the SQLite backend and offers hooks for
// error injection and race simulation.
type fakeStore struct {
	mu     sync.Mutex
	tables map[string][]store.Record
	nextID int

	findErr    map[string]error // per table
	insertErr  map[string]error
	deleteErr  map[string]error
	insertOnce error // fails the next insert only

	// afterFind runs after each successful Find, outside the lock.
	// Used to interleave writes between the engine's lookups.
	afterFind func(table string, calls int)
	findCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tables:    map[string][]store.Record{},
		findErr:   map[string]error{},
		insertErr: map[string]error{},
		deleteErr: map[string]error{},
	}
}

func (f *fakeStore) seed(table string, recs ...store.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table] = append(f.tables[table], recs...)
}

func (f *fakeStore) all(table string) []store.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Record(nil), f.tables[table]...)
}

func (f *fakeStore) Find(_ context.Context, table string, q store.Query) ([]store.Record, error) {
	f.mu.Lock()
	if err := f.findErr[table]; err != nil {
		f.mu.Unlock()
		return nil, err
	}
	var out []store.Record
	for _, rec := range f.tables[table] {
		if matches(rec, q.Conds) {
			out = append(out, rec)
		}
	}
	if len(q.OrderBy) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, o := range q.OrderBy {
				a := fmt.Sprint(out[i][o.Col])
				b := fmt.Sprint(out[j][o.Col])
				if a == b {
					continue
				}
				if o.Desc {
					return a > b
				}
				return a < b
			}
			return false
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	f.findCalls++
	calls := f.findCalls
	hook := f.afterFind
	f.mu.Unlock()

	if hook != nil {
		hook(table, calls)
	}
	return out, nil
}

func (f *fakeStore) Insert(_ context.Context, table string, rec store.Record) (store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.insertOnce; err != nil {
		f.insertOnce = nil
		return nil, err
	}
	if err := f.insertErr[table]; err != nil {
		return nil, err
	}
	cp := make(store.Record, len(rec)+1)
	for k, v := range rec {
		cp[k] = norm(v)
	}
	if cp["id"] == nil {
		f.nextID++
		cp["id"] = fmt.Sprintf("fake-%d", f.nextID)
	}
	f.tables[table] = append(f.tables[table], cp)
	return cp, nil
}

func (f *fakeStore) Update(_ context.Context, table string, conds []store.Cond, patch store.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.tables[table] {
		if matches(rec, conds) {
			for k, v := range patch {
				rec[k] = norm(v)
			}
		}
	}
	return nil
}

func (f *fakeStore) Delete(_ context.Context, table string, conds []store.Cond) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[table]; err != nil {
		return err
	}
	kept := f.tables[table][:0]
	for _, rec := range f.tables[table] {
		if !matches(rec, conds) {
			kept = append(kept, rec)
		}
	}
	f.tables[table] = kept
	return nil
}

func (f *fakeStore) Close() error { return nil }

func matches(rec store.Record, conds []store.Cond) bool {
	for _, c := range conds {
		v, present := rec[c.Col]
		switch c.Op {
		case store.OpEq:
			if !present || norm(v) != norm(c.Val) {
				return false
			}
		case store.OpGte:
			if !present || v == nil {
				return false
			}
			if fmt.Sprint(norm(v)) < fmt.Sprint(norm(c.Val)) {
				return false
			}
		case store.OpIsNull:
			if present && v != nil {
				return false
			}
		case store.OpNotNull:
			if !present || v == nil {
				return false
			}
		}
	}
	return true
}

func norm(v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case int:
		return int64(x)
	default:
		return v
	}
}
