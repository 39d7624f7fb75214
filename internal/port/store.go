package port

import (
	"context"
	"time"
)

// Known tables of the OnSite database.
const (
	TableProfiles  = "profiles"
	TableRegistros = "registros"
	TableLocais    = "locais"
	TableAppEvents = "app_events"
	TableTelemetry = "timekeeper_telemetry_daily"
)

// Row is one record returned by Select, keyed by column name.
type Row map[string]any

// Store is the read-only capability the aggregator and the dashboard
// service depend on. Implementations must be safe for concurrent use.
type Store interface {
	// Count returns the number of rows matching q. Columns, order, limit
	// and offset are ignored.
	Count(ctx context.Context, q Query) (int, error)
	// Select returns the requested columns of the rows matching q.
	Select(ctx context.Context, q Query) ([]Row, error)
}

// FilterOp is a comparison supported by the store.
type FilterOp string

const (
	OpEq      FilterOp = "eq"
	OpGte     FilterOp = "gte"
	OpLte     FilterOp = "lte"
	OpIsNull  FilterOp = "is.null"
	OpNotNull FilterOp = "not.is.null"
)

// Filter is a single column predicate. Value is unused for the null ops.
type Filter struct {
	Column string
	Op     FilterOp
	Value  string
}

// Order sorts the result by one column.
type Order struct {
	Column string
	Desc   bool
}

// Query describes a read against one table. Build it with From; every
// method returns a copy so a base query can be shared.
type Query struct {
	Table   string
	Cols    []string
	Filters []Filter
	Orders  []Order
	Max     int // 0 = no limit
	Skip    int
}

// From starts a query on table.
func From(table string) Query {
	return Query{Table: table}
}

func (q Query) clone() Query {
	out := q
	out.Cols = append([]string(nil), q.Cols...)
	out.Filters = append([]Filter(nil), q.Filters...)
	out.Orders = append([]Order(nil), q.Orders...)
	return out
}

// Columns selects the given columns. No columns means all of them.
func (q Query) Columns(cols ...string) Query {
	out := q.clone()
	out.Cols = append(out.Cols, cols...)
	return out
}

func (q Query) where(col string, op FilterOp, v string) Query {
	out := q.clone()
	out.Filters = append(out.Filters, Filter{Column: col, Op: op, Value: v})
	return out
}

// Eq keeps rows where col = v.
func (q Query) Eq(col, v string) Query { return q.where(col, OpEq, v) }

// Gte keeps rows where col >= v.
func (q Query) Gte(col, v string) Query { return q.where(col, OpGte, v) }

// Lte keeps rows where col <= v.
func (q Query) Lte(col, v string) Query { return q.where(col, OpLte, v) }

// Since keeps rows where col >= t, formatted as RFC 3339 in UTC.
func (q Query) Since(col string, t time.Time) Query {
	return q.Gte(col, t.UTC().Format(time.RFC3339))
}

// IsNull keeps rows where col is null.
func (q Query) IsNull(col string) Query { return q.where(col, OpIsNull, "") }

// NotNull keeps rows where col is not null.
func (q Query) NotNull(col string) Query { return q.where(col, OpNotNull, "") }

// OrderBy appends a sort key.
func (q Query) OrderBy(col string, desc bool) Query {
	out := q.clone()
	out.Orders = append(out.Orders, Order{Column: col, Desc: desc})
	return out
}

// Limit caps the number of returned rows.
func (q Query) Limit(n int) Query {
	out := q.clone()
	out.Max = n
	return out
}

// Offset skips the first n rows.
func (q Query) Offset(n int) Query {
	out := q.clone()
	out.Skip = n
	return out
}
