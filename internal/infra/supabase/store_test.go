package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/resilience"
	"github.com/boddenberg/onsite-analytics-go/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cb := resilience.NewCircuitBreaker("supabase-test", resilience.Config{}, nil)
	return NewClient(srv.Client(), srv.URL+"/", "anon", "service", cb, zap.NewNop())
}

func TestEncodeQuery(t *testing.T) {
	q := port.From(port.TableRegistros).
		Columns("tipo", "created_at").
		Eq("tipo", "automatico").
		Gte("created_at", "2026-01-01T00:00:00Z").
		IsNull("saida").
		OrderBy("created_at", true).
		Limit(1000).
		Offset(20)

	assert.Equal(t,
		"created_at=gte.2026-01-01T00%3A00%3A00Z&limit=1000&offset=20&order=created_at.desc&saida=is.null&select=tipo%2Ccreated_at&tipo=eq.automatico",
		encodeQuery(q, false))
	assert.Equal(t,
		"created_at=gte.2026-01-01T00%3A00%3A00Z&saida=is.null&tipo=eq.automatico",
		encodeQuery(q, true))
}

func TestParseContentRange(t *testing.T) {
	n, err := parseContentRange("*/45")
	require.NoError(t, err)
	assert.Equal(t, 45, n)

	n, err = parseContentRange("0-24/120")
	require.NoError(t, err)
	assert.Equal(t, 120, n)

	for _, bad := range []string{"", "0-24/*", "0-24/", "abc"} {
		_, err := parseContentRange(bad)
		assert.Error(t, err, bad)
	}
}

func TestCount_UsesHeadAndContentRange(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "/rest/v1/locais", r.URL.Path)
		assert.Equal(t, "eq.active", r.URL.Query().Get("status"))
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service", r.Header.Get("Authorization"))
		w.Header().Set("Content-Range", "*/3")
		w.WriteHeader(http.StatusOK)
	})

	n, err := c.Count(context.Background(), port.From(port.TableLocais).Eq("status", "active"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSelect_DecodesRows(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "tipo", r.URL.Query().Get("select"))
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"tipo":"automatico","n":7},{"tipo":"manual","n":null}]`))
	})

	rows, err := c.Select(context.Background(), port.From(port.TableRegistros).Columns("tipo").Limit(1000))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "automatico", rows[0].Str("tipo"))
	assert.Equal(t, 7, rows[0].Int("n"))
	assert.Equal(t, "", rows[1].Str("n"))
}

func TestSelect_EmptyArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	rows, err := c.Select(context.Background(), port.From(port.TableProfiles))
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestSelect_NotFoundIsStoreFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"relation \"nope\" does not exist"}`))
	})

	_, err := c.Select(context.Background(), port.From("nope"))
	var sf *domain.ErrStoreFailure
	require.True(t, errors.As(err, &sf))
	assert.Equal(t, "select nope", sf.Op)
	assert.Contains(t, err.Error(), "404")
}

func TestCount_MissingContentRangeIsStoreFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := c.Count(context.Background(), port.From(port.TableProfiles))
	var sf *domain.ErrStoreFailure
	assert.True(t, errors.As(err, &sf))
}

func TestSelect_CanceledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Select(ctx, port.From(port.TableProfiles))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
