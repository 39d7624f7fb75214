// Package postgres is a port.Store backed by a direct Postgres connection.
// It is the alternative to the PostgREST client when the service runs
// next to the database.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/resilience"
	"github.com/boddenberg/onsite-analytics-go/internal/port"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("postgres")

// Open connects to databaseURL and checks the connection.
func Open(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Store implements port.Store with sqlx.
type Store struct {
	db     *sqlx.DB
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

var _ port.Store = (*Store)(nil)

// NewStore wraps an open connection.
func NewStore(db *sqlx.DB, cb *gobreaker.CircuitBreaker, logger *zap.Logger) *Store {
	return &Store{db: db, cb: cb, logger: logger}
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Postgres.Ping")
	defer span.End()

	if err := s.db.PingContext(ctx); err != nil {
		span.RecordError(err)
		return &domain.ErrStoreFailure{Op: "ping", Err: err}
	}
	return nil
}

// Count runs SELECT count(*) with the query's filters.
func (s *Store) Count(ctx context.Context, q port.Query) (int, error) {
	ctx, span := tracer.Start(ctx, "Postgres.Count")
	defer span.End()
	span.SetAttributes(attribute.String("db.table", q.Table))

	stmt, args := buildCount(q)
	n, err := resilience.Execute(s.cb, func() (int, error) {
		var n int
		if err := s.db.GetContext(ctx, &n, stmt, args...); err != nil {
			return 0, err
		}
		return n, nil
	})
	if err != nil {
		s.logger.Error("postgres: count failed", zap.String("table", q.Table), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, &domain.ErrStoreFailure{Op: "count " + q.Table, Err: err}
	}
	return n, nil
}

// Select runs the query and returns each row as a column map.
// Timestamps come back as RFC 3339 strings and byte slices as text, so rows
// look the same as the ones decoded from PostgREST.
func (s *Store) Select(ctx context.Context, q port.Query) ([]port.Row, error) {
	ctx, span := tracer.Start(ctx, "Postgres.Select")
	defer span.End()
	span.SetAttributes(attribute.String("db.table", q.Table), attribute.Int("db.limit", q.Max))

	stmt, args := buildSelect(q)
	out, err := resilience.Execute(s.cb, func() ([]port.Row, error) {
		rows, err := s.db.QueryxContext(ctx, stmt, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		out := []port.Row{}
		for rows.Next() {
			m := map[string]any{}
			if err := rows.MapScan(m); err != nil {
				return nil, err
			}
			out = append(out, normalize(m))
		}
		return out, rows.Err()
	})
	if err != nil {
		s.logger.Error("postgres: select failed", zap.String("table", q.Table), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &domain.ErrStoreFailure{Op: "select " + q.Table, Err: err}
	}

	span.SetAttributes(attribute.Int("db.rows", len(out)))
	return out, nil
}

func normalize(m map[string]any) port.Row {
	for k, v := range m {
		switch t := v.(type) {
		case []byte:
			// jsonb chega como bytes; mantém como JSON cru
			if len(t) > 0 && (t[0] == '{' || t[0] == '[') && json.Valid(t) {
				m[k] = json.RawMessage(t)
			} else {
				m[k] = string(t)
			}
		case time.Time:
			m[k] = t.UTC().Format(time.RFC3339Nano)
		}
	}
	return port.Row(m)
}

// ============================================================
// SQL rendering: identifiers quoted, values always as $n
// ============================================================

func buildCount(q port.Query) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT count(*) FROM ")
	b.WriteString(pq.QuoteIdentifier(q.Table))
	args := writeWhere(&b, q.Filters)
	return b.String(), args
}

func buildSelect(q port.Query) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(q.Cols) == 0 {
		b.WriteString("*")
	} else {
		for i, c := range q.Cols {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(pq.QuoteIdentifier(c))
		}
	}
	b.WriteString(" FROM ")
	b.WriteString(pq.QuoteIdentifier(q.Table))
	args := writeWhere(&b, q.Filters)

	if len(q.Orders) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range q.Orders {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(pq.QuoteIdentifier(o.Column))
			if o.Desc {
				b.WriteString(" DESC")
			} else {
				b.WriteString(" ASC")
			}
		}
	}
	if q.Max > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(q.Max))
	}
	if q.Skip > 0 {
		b.WriteString(" OFFSET " + strconv.Itoa(q.Skip))
	}
	return b.String(), args
}

func writeWhere(b *strings.Builder, filters []port.Filter) []any {
	args := make([]any, 0, len(filters))
	for i, f := range filters {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		col := pq.QuoteIdentifier(f.Column)
		switch f.Op {
		case port.OpIsNull:
			b.WriteString(col + " IS NULL")
		case port.OpNotNull:
			b.WriteString(col + " IS NOT NULL")
		default:
			args = append(args, f.Value)
			b.WriteString(fmt.Sprintf("%s %s $%d", col, sqlOp(f.Op), len(args)))
		}
	}
	return args
}

func sqlOp(op port.FilterOp) string {
	switch op {
	case port.OpGte:
		return ">="
	case port.OpLte:
		return "<="
	default:
		return "="
	}
}
