package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/observability"
	"github.com/boddenberg/onsite-analytics-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service")

const (
	// automationSample is how many recent sessions feed the automation rate.
	automationSample = 1000
	// DefaultSessionDays is the sessionsPerDay window when none is given.
	DefaultSessionDays = 14
	// topLogins caps loginsPerUser.
	topLogins = 10
)

// tableColumns are the fixed projections of TableOf.
var tableColumns = map[domain.TableEntity]struct {
	table   string
	columns []string
}{
	domain.TableUsers:    {port.TableProfiles, []string{"email", "nome", "trade", "device_platform", "created_at"}},
	domain.TableSessions: {port.TableRegistros, []string{"local_nome", "entrada", "saida", "tipo", "created_at"}},
	domain.TableEvents:   {port.TableAppEvents, []string{"event_type", "user_id", "app_version", "created_at"}},
}

// Aggregator computes the small read-only aggregates the assistant shares
// with the dashboard. It holds no state besides its collaborators.
type Aggregator struct {
	store   port.Store
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewAggregator creates the aggregator over store.
func NewAggregator(store port.Store, metrics *observability.Metrics, logger *zap.Logger) *Aggregator {
	return &Aggregator{store: store, metrics: metrics, logger: logger, now: time.Now}
}

// startOfToday is midnight UTC of the current day.
func (a *Aggregator) startOfToday() time.Time {
	return a.now().UTC().Truncate(24 * time.Hour)
}

// storeErr normalizes any store error into *domain.ErrStoreFailure and counts it.
func (a *Aggregator) storeErr(op string, err error) error {
	a.metrics.IncrStoreError(op)
	a.logger.Error("aggregator: store call failed", zap.String("op", op), zap.Error(err))
	var sf *domain.ErrStoreFailure
	if errors.As(err, &sf) {
		return err
	}
	return &domain.ErrStoreFailure{Op: op, Err: err}
}

// BaseMetrics fans out five store calls and joins on all of them.
func (a *Aggregator) BaseMetrics(ctx context.Context) (*domain.BaseMetrics, error) {
	ctx, span := tracer.Start(ctx, "Aggregator.BaseMetrics")
	defer span.End()

	start := time.Now()
	defer func() {
		a.metrics.RecordRequestDuration("base_metrics", time.Since(start))
	}()

	var out domain.BaseMetrics
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := a.store.Count(gCtx, port.From(port.TableProfiles))
		if err != nil {
			return a.storeErr("count profiles", err)
		}
		out.TotalUsers = n
		return nil
	})

	g.Go(func() error {
		n, err := a.store.Count(gCtx, port.From(port.TableRegistros))
		if err != nil {
			return a.storeErr("count registros", err)
		}
		out.TotalSessions = n
		return nil
	})

	g.Go(func() error {
		n, err := a.store.Count(gCtx, port.From(port.TableLocais).Eq("status", domain.LocalStatusActive))
		if err != nil {
			return a.storeErr("count locais", err)
		}
		out.ActiveLocations = n
		return nil
	})

	g.Go(func() error {
		rows, err := a.store.Select(gCtx, port.From(port.TableRegistros).
			Columns("tipo").
			OrderBy("created_at", true).
			Limit(automationSample))
		if err != nil {
			return a.storeErr("sample registros", err)
		}
		out.AutomationRate = automationRate(rows)
		return nil
	})

	g.Go(func() error {
		n, err := a.store.Count(gCtx, port.From(port.TableAppEvents).
			Eq("event_type", domain.EventLogin).
			Since("created_at", a.startOfToday()))
		if err != nil {
			return a.storeErr("count logins today", err)
		}
		out.LoginsToday = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("metrics.users", out.TotalUsers),
		attribute.Int("metrics.sessions", out.TotalSessions),
	)
	return &out, nil
}

// automationRate is round(100 * auto / max(1, n)).
func automationRate(rows []port.Row) int {
	auto := 0
	for _, r := range rows {
		if r.Str("tipo") == domain.TipoAutomatico {
			auto++
		}
	}
	return int(math.Round(100 * float64(auto) / float64(max(1, len(rows)))))
}

// CohortByMonth buckets every user's creation timestamp by "YYYY-MM",
// ascending. Months without signups are absent.
func (a *Aggregator) CohortByMonth(ctx context.Context) ([]domain.CohortPoint, error) {
	ctx, span := tracer.Start(ctx, "Aggregator.CohortByMonth")
	defer span.End()

	rows, err := a.store.Select(ctx, port.From(port.TableProfiles).
		Columns("created_at").
		OrderBy("created_at", false))
	if err != nil {
		return nil, a.storeErr("select profiles", err)
	}

	counts := map[string]int{}
	for _, r := range rows {
		ts, err := r.Time("created_at")
		if err != nil {
			return nil, a.storeErr("select profiles", fmt.Errorf("created_at: %w", err))
		}
		counts[ts.Format("2006-01")]++
	}

	out := make([]domain.CohortPoint, 0, len(counts))
	for month, n := range counts {
		out = append(out, domain.CohortPoint{Month: month, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

// SessionsPerDay counts sessions per UTC day over the last days days,
// today included. Days without sessions are omitted.
func (a *Aggregator) SessionsPerDay(ctx context.Context, days int) ([]domain.DailyPoint, error) {
	ctx, span := tracer.Start(ctx, "Aggregator.SessionsPerDay")
	defer span.End()

	if days <= 0 {
		days = DefaultSessionDays
	}
	span.SetAttributes(attribute.Int("window.days", days))

	since := a.startOfToday().AddDate(0, 0, -(days - 1))
	rows, err := a.store.Select(ctx, port.From(port.TableRegistros).
		Columns("created_at").
		Since("created_at", since).
		OrderBy("created_at", false))
	if err != nil {
		return nil, a.storeErr("select registros", err)
	}

	counts := map[string]int{}
	for _, r := range rows {
		ts, err := r.Time("created_at")
		if err != nil {
			return nil, a.storeErr("select registros", fmt.Errorf("created_at: %w", err))
		}
		if ts.Before(since) {
			continue
		}
		counts[ts.Format("2006-01-02")]++
	}

	dates := make([]string, 0, len(counts))
	for d := range counts {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]domain.DailyPoint, 0, len(dates))
	for _, d := range dates {
		// "2006-01-02" -> "01/02"
		out = append(out, domain.DailyPoint{Day: d[5:7] + "/" + d[8:10], Count: counts[d]})
	}
	return out, nil
}

// EntryTypes partitions sessions into automatic and manual. Anything that
// is not "automatico" counts as manual, so the buckets sum to the rows read.
func (a *Aggregator) EntryTypes(ctx context.Context) ([]domain.EntryTypeSplit, error) {
	ctx, span := tracer.Start(ctx, "Aggregator.EntryTypes")
	defer span.End()

	rows, err := a.store.Select(ctx, port.From(port.TableRegistros).Columns("tipo"))
	if err != nil {
		return nil, a.storeErr("select registros", err)
	}

	auto := 0
	for _, r := range rows {
		if r.Str("tipo") == domain.TipoAutomatico {
			auto++
		}
	}
	return []domain.EntryTypeSplit{
		{Label: domain.EntryTypeAutomatic, Count: auto},
		{Label: domain.EntryTypeManual, Count: len(rows) - auto},
	}, nil
}

// LoginsPerUser returns the top 10 users by login count. Users without
// logins are dropped; ties keep the profile order.
func (a *Aggregator) LoginsPerUser(ctx context.Context) ([]domain.UserLoginCount, error) {
	ctx, span := tracer.Start(ctx, "Aggregator.LoginsPerUser")
	defer span.End()

	var events, users []port.Row
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := a.store.Select(gCtx, port.From(port.TableAppEvents).
			Columns("user_id").
			Eq("event_type", domain.EventLogin))
		if err != nil {
			return a.storeErr("select app_events", err)
		}
		events = rows
		return nil
	})
	g.Go(func() error {
		rows, err := a.store.Select(gCtx, port.From(port.TableProfiles).Columns("id", "email", "nome"))
		if err != nil {
			return a.storeErr("select profiles", err)
		}
		users = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, e := range events {
		if id := e.Str("user_id"); id != "" {
			counts[id]++
		}
	}

	out := make([]domain.UserLoginCount, 0, len(users))
	for _, u := range users {
		n := counts[u.Str("id")]
		if n == 0 {
			continue
		}
		out = append(out, domain.UserLoginCount{DisplayName: displayName(u), Count: n})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > topLogins {
		out = out[:topLogins]
	}
	return out, nil
}

// displayName is nome, else the local part of the email, else "?".
func displayName(u port.Row) string {
	if nome := strings.TrimSpace(u.Str("nome")); nome != "" {
		return nome
	}
	if local, _, _ := strings.Cut(u.Str("email"), "@"); local != "" {
		return local
	}
	return "?"
}

// TableOf returns up to limit most recent rows of entity with its fixed columns.
func (a *Aggregator) TableOf(ctx context.Context, entity domain.TableEntity, limit int) (*domain.TableRows, error) {
	ctx, span := tracer.Start(ctx, "Aggregator.TableOf")
	defer span.End()
	span.SetAttributes(attribute.String("table.entity", string(entity)))

	proj, ok := tableColumns[entity]
	if !ok {
		return nil, &domain.ErrValidation{Field: "entity", Message: fmt.Sprintf("unknown table entity %q", entity)}
	}

	q := port.From(proj.table).Columns(proj.columns...).OrderBy("created_at", true)
	if limit > 0 {
		q = q.Limit(limit)
	}
	rows, err := a.store.Select(ctx, q)
	if err != nil {
		return nil, a.storeErr("select "+proj.table, err)
	}

	out := &domain.TableRows{
		Columns: append([]string(nil), proj.columns...),
		Rows:    make([]map[string]any, 0, len(rows)),
	}
	for _, r := range rows {
		m := make(map[string]any, len(proj.columns))
		for _, c := range proj.columns {
			m[c] = r[c]
		}
		out.Rows = append(out.Rows, m)
	}
	return out, nil
}
