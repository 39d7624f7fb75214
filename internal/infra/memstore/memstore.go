// Package memstore is an in-memory port.Store. It evaluates the same query
// surface as the PostgREST and Postgres stores and backs tests and local
// demos (STORE_BACKEND=memory).
package memstore

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
	"github.com/boddenberg/onsite-analytics-go/internal/port"
)

// Store keeps rows per table. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]port.Row
	fail   map[string]error
	calls  int
}

var _ port.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{tables: map[string][]port.Row{}, fail: map[string]error{}}
}

// Insert appends rows to table.
func (s *Store) Insert(table string, rows ...port.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = append(s.tables[table], rows...)
}

// FailOn makes every call against table return err. A nil err clears it.
func (s *Store) FailOn(table string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, table)
		return
	}
	s.fail[table] = err
}

// Calls reports how many Count/Select calls were served.
func (s *Store) Calls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls
}

// Count implements port.Store.
func (s *Store) Count(ctx context.Context, q port.Query) (int, error) {
	rows, err := s.match(ctx, q, "count")
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Select implements port.Store.
func (s *Store) Select(ctx context.Context, q port.Query) ([]port.Row, error) {
	rows, err := s.match(ctx, q, "select")
	if err != nil {
		return nil, err
	}

	if len(q.Orders) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			for _, o := range q.Orders {
				c := compare(rows[i][o.Column], rows[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if q.Skip > 0 {
		if q.Skip >= len(rows) {
			rows = rows[:0]
		} else {
			rows = rows[q.Skip:]
		}
	}
	if q.Max > 0 && len(rows) > q.Max {
		rows = rows[:q.Max]
	}

	out := make([]port.Row, 0, len(rows))
	for _, r := range rows {
		if len(q.Cols) == 0 {
			cp := make(port.Row, len(r))
			for k, v := range r {
				cp[k] = v
			}
			out = append(out, cp)
			continue
		}
		cp := make(port.Row, len(q.Cols))
		for _, c := range q.Cols {
			cp[c] = r[c]
		}
		out = append(out, cp)
	}
	return out, nil
}

func (s *Store) match(ctx context.Context, q port.Query, op string) ([]port.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.ErrStoreFailure{Op: op + " " + q.Table, Err: err}
	}

	s.mu.Lock()
	s.calls++
	failErr := s.fail[q.Table]
	all := s.tables[q.Table]
	s.mu.Unlock()

	if failErr != nil {
		return nil, &domain.ErrStoreFailure{Op: op + " " + q.Table, Err: failErr}
	}

	var out []port.Row
	for _, r := range all {
		if matches(r, q.Filters) {
			out = append(out, r)
		}
	}
	return out, nil
}

func matches(r port.Row, filters []port.Filter) bool {
	for _, f := range filters {
		v, present := r[f.Column]
		switch f.Op {
		case port.OpIsNull:
			if present && v != nil {
				return false
			}
		case port.OpNotNull:
			if !present || v == nil {
				return false
			}
		case port.OpEq:
			if v == nil || r.Str(f.Column) != f.Value {
				return false
			}
		case port.OpGte:
			if v == nil || compare(v, f.Value) < 0 {
				return false
			}
		case port.OpLte:
			if v == nil || compare(v, f.Value) > 0 {
				return false
			}
		}
	}
	return true
}

// compare orders timestamps chronologically, numbers numerically and
// everything else lexically. Nulls sort first.
func compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	as, bs := port.Row{"v": a}.Str("v"), port.Row{"v": b}.Str("v")

	if ta, err := port.ParseTimestamp(as); err == nil {
		if tb, err := port.ParseTimestamp(bs); err == nil {
			return ta.Compare(tb)
		}
	}
	if fa, err := strconv.ParseFloat(as, 64); err == nil {
		if fb, err := strconv.ParseFloat(bs, 64); err == nil {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}
