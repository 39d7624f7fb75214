package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/memstore"
	"github.com/boddenberg/onsite-analytics-go/internal/port"
)

func TestStore_FiltersOrderAndPaging(t *testing.T) {
	s := memstore.New()
	s.Insert("t",
		port.Row{"id": "a", "k": "x", "at": "2026-01-01T10:00:00Z", "n": 3},
		port.Row{"id": "b", "k": "y", "at": "2026-01-03T10:00:00Z", "n": 10},
		port.Row{"id": "c", "k": "x", "at": "2026-01-02T10:00:00+00:00", "n": nil},
	)
	ctx := context.Background()

	n, err := s.Count(ctx, port.From("t").Eq("k", "x"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Count(ctx, port.From("t").Gte("at", "2026-01-02"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Count(ctx, port.From("t").IsNull("n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := s.Select(ctx, port.From("t").Columns("id").OrderBy("at", true).Limit(2))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].Str("id"))
	assert.Equal(t, "c", rows[1].Str("id"))
	assert.NotContains(t, rows[0], "k")

	rows, err = s.Select(ctx, port.From("t").OrderBy("n", false).Offset(1))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].Str("id"))
	assert.Equal(t, "b", rows[1].Str("id"))
}

func TestStore_FailOn(t *testing.T) {
	s := memstore.New()
	s.FailOn("t", errors.New("boom"))

	_, err := s.Select(context.Background(), port.From("t"))
	var sf *domain.ErrStoreFailure
	require.True(t, errors.As(err, &sf))

	s.FailOn("t", nil)
	_, err = s.Select(context.Background(), port.From("t"))
	assert.NoError(t, err)
}

func TestSeeded_Counts(t *testing.T) {
	now := time.Date(2026, 10, 17, 15, 0, 0, 0, time.UTC)
	s := memstore.Seeded(now)
	ctx := context.Background()

	users, _ := s.Count(ctx, port.From(port.TableProfiles))
	sessions, _ := s.Count(ctx, port.From(port.TableRegistros))
	auto, _ := s.Count(ctx, port.From(port.TableRegistros).Eq("tipo", domain.TipoAutomatico))
	locais, _ := s.Count(ctx, port.From(port.TableLocais).Eq("status", domain.LocalStatusActive))
	logins, _ := s.Count(ctx, port.From(port.TableAppEvents).Eq("event_type", "login").Since("created_at", now.Truncate(24*time.Hour)))

	assert.Equal(t, memstore.SeedUsers, users)
	assert.Equal(t, memstore.SeedSessions, sessions)
	assert.Equal(t, memstore.SeedAutoSessions, auto)
	assert.Equal(t, memstore.SeedActiveLocais, locais)
	assert.Equal(t, memstore.SeedLoginsToday, logins)
}
