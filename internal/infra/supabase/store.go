package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/resilience"
	"github.com/boddenberg/onsite-analytics-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ============================================================
// port.Store: Count / Select
// ============================================================

var _ port.Store = (*Client)(nil)

// Count issues a HEAD with Prefer: count=exact and reads the total from
// the Content-Range header.
func (c *Client) Count(ctx context.Context, q port.Query) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Count")
	defer span.End()
	span.SetAttributes(attribute.String("db.table", q.Table))

	n, err := resilience.Execute(c.cb, func() (int, error) {
		resp, err := c.doRequest(ctx, http.MethodHead, q.Table, encodeQuery(q, true), "count=exact")
		if err != nil {
			return 0, err
		}
		return parseContentRange(resp.header.Get("Content-Range"))
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, &domain.ErrStoreFailure{Op: "count " + q.Table, Err: err}
	}

	span.SetAttributes(attribute.Int("db.count", n))
	return n, nil
}

// Select fetches the requested columns. An empty result is an empty slice.
func (c *Client) Select(ctx context.Context, q port.Query) ([]port.Row, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Select")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.table", q.Table),
		attribute.Int("db.limit", q.Max),
	)

	rows, err := resilience.Execute(c.cb, func() ([]port.Row, error) {
		resp, err := c.doRequest(ctx, http.MethodGet, q.Table, encodeQuery(q, false), "")
		if err != nil {
			return nil, err
		}
		return decodeRows(resp.body)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &domain.ErrStoreFailure{Op: "select " + q.Table, Err: err}
	}

	span.SetAttributes(attribute.Int("db.rows", len(rows)))
	return rows, nil
}

// decodeRows keeps numbers as json.Number so integer columns survive
// re-encoding unchanged.
func decodeRows(body []byte) ([]port.Row, error) {
	rows := []port.Row{}
	if len(bytes.TrimSpace(body)) == 0 {
		return rows, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}
