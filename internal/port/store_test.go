package port_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/boddenberg/onsite-analytics-go/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_BuilderDoesNotAliasBase(t *testing.T) {
	base := port.From(port.TableRegistros).Columns("tipo")
	a := base.Eq("tipo", "automatico")
	b := base.Eq("tipo", "manual").OrderBy("created_at", true).Limit(10).Offset(5)

	assert.Empty(t, base.Filters)
	require.Len(t, a.Filters, 1)
	require.Len(t, b.Filters, 1)
	assert.Equal(t, "automatico", a.Filters[0].Value)
	assert.Equal(t, "manual", b.Filters[0].Value)
	assert.Equal(t, []port.Order{{Column: "created_at", Desc: true}}, b.Orders)
	assert.Equal(t, 10, b.Max)
	assert.Equal(t, 5, b.Skip)
	assert.Equal(t, 0, a.Max)
}

func TestQuery_NullFiltersAndSince(t *testing.T) {
	ts := time.Date(2026, 3, 4, 15, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	q := port.From(port.TableAppEvents).IsNull("saida").NotNull("entrada").Since("created_at", ts)

	require.Len(t, q.Filters, 3)
	assert.Equal(t, port.OpIsNull, q.Filters[0].Op)
	assert.Equal(t, port.OpNotNull, q.Filters[1].Op)
	assert.Equal(t, port.Filter{Column: "created_at", Op: port.OpGte, Value: "2026-03-04T18:00:00Z"}, q.Filters[2])
}

func TestRow_Accessors(t *testing.T) {
	r := port.Row{
		"s":    "x",
		"n":    json.Number("12"),
		"f":    json.Number("1.5"),
		"i64":  int64(7),
		"null": nil,
		"ts":   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	assert.Equal(t, "x", r.Str("s"))
	assert.Equal(t, "", r.Str("null"))
	assert.Equal(t, "", r.Str("missing"))
	assert.Equal(t, 12, r.Int("n"))
	assert.Equal(t, 1, r.Int("f"))
	assert.Equal(t, 7, r.Int("i64"))
	assert.Equal(t, 0, r.Int("s"))

	f, ok := r.Float("f")
	assert.True(t, ok)
	assert.InDelta(t, 1.5, f, 1e-9)
	_, ok = r.Float("null")
	assert.False(t, ok)

	ts, err := r.Time("ts")
	require.NoError(t, err)
	assert.Equal(t, 2026, ts.Year())
}

func TestParseTimestamp(t *testing.T) {
	cases := map[string]string{
		"2026-01-15T10:20:30Z":             "2026-01-15T10:20:30Z",
		"2026-01-15T10:20:30.123456+00:00": "2026-01-15T10:20:30Z",
		"2026-01-15T07:20:30-03:00":        "2026-01-15T10:20:30Z",
		"2026-01-15T10:20:30":              "2026-01-15T10:20:30Z",
		"2026-01-15 10:20:30+00:00":        "2026-01-15T10:20:30Z",
		"2026-01-15":                       "2026-01-15T00:00:00Z",
	}
	for in, want := range cases {
		got, err := port.ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.Truncate(time.Second).Format(time.RFC3339), in)
	}

	for _, bad := range []string{"", "15/01/2026", "ontem"} {
		_, err := port.ParseTimestamp(bad)
		assert.Error(t, err, bad)
	}
}
