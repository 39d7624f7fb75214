package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/observability"
	"github.com/boddenberg/onsite-analytics-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ============================================================
// Dashboard: leituras das páginas overview/users/sessions/telemetry
// ============================================================

const (
	statsCacheKey   = "dashboard:stats"
	statsCacheName  = "dashboard_stats"
	hoursSample     = 1000
	eventTypeSample = 1000
	// DefaultTelemetryDays is the telemetry window when none is given.
	DefaultTelemetryDays = 30
)

// Dashboard serves the read-only lists and aggregates of the dashboard pages.
type Dashboard struct {
	store   port.Store
	cache   port.LoadingCache[*domain.DashboardStats]
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewDashboard creates the dashboard service.
func NewDashboard(store port.Store, cache port.LoadingCache[*domain.DashboardStats], metrics *observability.Metrics, logger *zap.Logger) *Dashboard {
	return &Dashboard{store: store, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

func (d *Dashboard) storeErr(op string, err error) error {
	d.metrics.IncrStoreError(op)
	d.logger.Error("dashboard: store call failed", zap.String("op", op), zap.Error(err))
	return err
}

// Stats returns the overview numbers, cached for the configured TTL.
func (d *Dashboard) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	ctx, span := tracer.Start(ctx, "Dashboard.Stats")
	defer span.End()

	stats, hit, err := d.cache.GetOrLoad(ctx, statsCacheKey, d.loadStats)
	if err != nil {
		return nil, err
	}
	if hit {
		d.metrics.IncrCacheHit(statsCacheName)
	} else {
		d.metrics.IncrCacheMiss(statsCacheName)
	}
	span.SetAttributes(attribute.Bool("cache.hit", hit))
	return stats, nil
}

func (d *Dashboard) loadStats(ctx context.Context) (*domain.DashboardStats, error) {
	now := d.now().UTC()
	today := now.Truncate(24 * time.Hour)
	weekAgo := now.AddDate(0, 0, -7)

	var (
		out      domain.DashboardStats
		worked   []port.Row
		loginsTd []port.Row
		loginsWk []port.Row
	)
	logins := port.From(port.TableAppEvents).Columns("user_id").Eq("event_type", domain.EventLogin)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := d.store.Count(gCtx, port.From(port.TableProfiles))
		if err != nil {
			return d.storeErr("count profiles", err)
		}
		out.TotalUsers = n
		return nil
	})
	g.Go(func() error {
		rows, err := d.store.Select(gCtx, logins.Since("created_at", today))
		if err != nil {
			return d.storeErr("select logins today", err)
		}
		loginsTd = rows
		return nil
	})
	g.Go(func() error {
		rows, err := d.store.Select(gCtx, logins.Since("created_at", weekAgo))
		if err != nil {
			return d.storeErr("select logins week", err)
		}
		loginsWk = rows
		return nil
	})
	g.Go(func() error {
		n, err := d.store.Count(gCtx, port.From(port.TableRegistros).NotNull("saida"))
		if err != nil {
			return d.storeErr("count closed registros", err)
		}
		out.TotalSessions = n
		return nil
	})
	g.Go(func() error {
		rows, err := d.store.Select(gCtx, port.From(port.TableRegistros).
			Columns("entrada", "saida").
			NotNull("saida").
			OrderBy("entrada", true).
			Limit(hoursSample))
		if err != nil {
			return d.storeErr("select registros hours", err)
		}
		worked = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.ActiveUsersToday = distinctUsers(loginsTd)
	out.ActiveUsersWeek = distinctUsers(loginsWk)

	minutes, err := workedMinutes(worked)
	if err != nil {
		return nil, d.storeErr("select registros hours", err)
	}
	out.TotalHoursWorked = int(math.Round(minutes / 60))
	if len(worked) > 0 {
		out.AvgSessionDuration = int(math.Round(minutes / float64(len(worked))))
	}
	return &out, nil
}

func distinctUsers(rows []port.Row) int {
	seen := map[string]struct{}{}
	for _, r := range rows {
		if id := r.Str("user_id"); id != "" {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

// workedMinutes sums saida - entrada over rows where both are set.
func workedMinutes(rows []port.Row) (float64, error) {
	total := 0.0
	for _, r := range rows {
		if r["entrada"] == nil || r["saida"] == nil {
			continue
		}
		in, err := r.Time("entrada")
		if err != nil {
			return 0, &domain.ErrStoreFailure{Op: "parse entrada", Err: err}
		}
		out, err := r.Time("saida")
		if err != nil {
			return 0, &domain.ErrStoreFailure{Op: "parse saida", Err: err}
		}
		total += out.Sub(in).Minutes()
	}
	return total, nil
}

// page runs the count and the page fetch concurrently.
func (d *Dashboard) page(ctx context.Context, q port.Query, f domain.ListFilter) ([]port.Row, int, error) {
	var (
		rows  []port.Row
		count int
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := d.store.Count(gCtx, q)
		if err != nil {
			return d.storeErr("count "+q.Table, err)
		}
		count = n
		return nil
	})
	g.Go(func() error {
		r, err := d.store.Select(gCtx, q.Limit(f.Limit).Offset(f.Offset))
		if err != nil {
			return d.storeErr("select "+q.Table, err)
		}
		rows = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return rows, count, nil
}

func normalizeFilter(f domain.ListFilter) domain.ListFilter {
	if f.Limit <= 0 {
		f.Limit = domain.DefaultPageSize
	}
	if f.Limit > domain.MaxPageSize {
		f.Limit = domain.MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func withRange(q port.Query, col string, f domain.ListFilter) port.Query {
	if f.From != nil {
		q = q.Since(col, *f.From)
	}
	if f.To != nil {
		q = q.Lte(col, f.To.UTC().Format(time.RFC3339))
	}
	return q
}

// Users lists profiles, newest first.
func (d *Dashboard) Users(ctx context.Context, f domain.ListFilter) (*domain.Page[domain.Profile], error) {
	ctx, span := tracer.Start(ctx, "Dashboard.Users")
	defer span.End()

	f = normalizeFilter(f)
	rows, count, err := d.page(ctx, port.From(port.TableProfiles).OrderBy("created_at", true), f)
	if err != nil {
		return nil, err
	}
	data := make([]domain.Profile, 0, len(rows))
	for _, r := range rows {
		data = append(data, profileFromRow(r))
	}
	return domain.NewPage(data, count, f.Limit, f.Offset), nil
}

// UserActivity summarizes one user's closed sessions and active locations.
func (d *Dashboard) UserActivity(ctx context.Context, userID string) (*domain.UserActivitySummary, error) {
	ctx, span := tracer.Start(ctx, "Dashboard.UserActivity")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var (
		profiles []port.Row
		sessions []port.Row
		locais   int
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := d.store.Select(gCtx, port.From(port.TableProfiles).Eq("id", userID).Limit(1))
		if err != nil {
			return d.storeErr("select profile", err)
		}
		profiles = rows
		return nil
	})
	g.Go(func() error {
		rows, err := d.store.Select(gCtx, port.From(port.TableRegistros).
			Columns("entrada", "saida").
			Eq("user_id", userID).
			NotNull("saida"))
		if err != nil {
			return d.storeErr("select user registros", err)
		}
		sessions = rows
		return nil
	})
	g.Go(func() error {
		n, err := d.store.Count(gCtx, port.From(port.TableLocais).
			Eq("user_id", userID).
			Eq("status", domain.LocalStatusActive))
		if err != nil {
			return d.storeErr("count user locais", err)
		}
		locais = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(profiles) == 0 {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	p := profiles[0]

	minutes, err := workedMinutes(sessions)
	if err != nil {
		return nil, d.storeErr("select user registros", err)
	}
	out := &domain.UserActivitySummary{
		UserID:        p.Str("id"),
		Email:         p.Str("email"),
		Nome:          p.Str("nome"),
		LastSeenAt:    p.StrPtr("updated_at"),
		TotalSessions: len(sessions),
		TotalHours:    int(math.Round(minutes / 60)),
		LocaisCount:   locais,
	}
	if len(sessions) > 0 {
		out.AvgSessionMinutes = int(math.Round(minutes / float64(len(sessions))))
	}
	return out, nil
}

// Sessions lists work sessions by entrada, newest first.
func (d *Dashboard) Sessions(ctx context.Context, f domain.ListFilter) (*domain.Page[domain.Registro], error) {
	ctx, span := tracer.Start(ctx, "Dashboard.Sessions")
	defer span.End()

	f = normalizeFilter(f)
	q := port.From(port.TableRegistros).OrderBy("entrada", true)
	if f.UserID != "" {
		q = q.Eq("user_id", f.UserID)
	}
	q = withRange(q, "entrada", f)

	rows, count, err := d.page(ctx, q, f)
	if err != nil {
		return nil, err
	}
	data := make([]domain.Registro, 0, len(rows))
	for _, r := range rows {
		data = append(data, registroFromRow(r))
	}
	return domain.NewPage(data, count, f.Limit, f.Offset), nil
}

// OpenSessions lists sessions without saida, newest first.
func (d *Dashboard) OpenSessions(ctx context.Context) ([]domain.Registro, error) {
	ctx, span := tracer.Start(ctx, "Dashboard.OpenSessions")
	defer span.End()

	rows, err := d.store.Select(ctx, port.From(port.TableRegistros).IsNull("saida").OrderBy("entrada", true))
	if err != nil {
		return nil, d.storeErr("select open registros", err)
	}
	out := make([]domain.Registro, 0, len(rows))
	for _, r := range rows {
		out = append(out, registroFromRow(r))
	}
	return out, nil
}

// Events lists app events, newest first.
func (d *Dashboard) Events(ctx context.Context, f domain.ListFilter) (*domain.Page[domain.AppEvent], error) {
	ctx, span := tracer.Start(ctx, "Dashboard.Events")
	defer span.End()

	f = normalizeFilter(f)
	q := port.From(port.TableAppEvents).OrderBy("created_at", true)
	if f.UserID != "" {
		q = q.Eq("user_id", f.UserID)
	}
	if f.EventType != "" {
		q = q.Eq("event_type", f.EventType)
	}
	q = withRange(q, "created_at", f)

	rows, count, err := d.page(ctx, q, f)
	if err != nil {
		return nil, err
	}
	data := make([]domain.AppEvent, 0, len(rows))
	for _, r := range rows {
		data = append(data, eventFromRow(r))
	}
	return domain.NewPage(data, count, f.Limit, f.Offset), nil
}

// EventTypes returns the distinct event types seen in a recent sample, sorted.
func (d *Dashboard) EventTypes(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Dashboard.EventTypes")
	defer span.End()

	rows, err := d.store.Select(ctx, port.From(port.TableAppEvents).
		Columns("event_type").
		OrderBy("created_at", true).
		Limit(eventTypeSample))
	if err != nil {
		return nil, d.storeErr("select event types", err)
	}
	seen := map[string]struct{}{}
	for _, r := range rows {
		if t := r.Str("event_type"); t != "" {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// Telemetry lists raw daily telemetry rows, newest date first.
func (d *Dashboard) Telemetry(ctx context.Context, f domain.ListFilter) ([]domain.TelemetryDaily, error) {
	ctx, span := tracer.Start(ctx, "Dashboard.Telemetry")
	defer span.End()

	if f.Limit <= 0 {
		f.Limit = DefaultTelemetryDays
	}
	f = normalizeFilter(f)
	q := port.From(port.TableTelemetry).OrderBy("date", true).Limit(f.Limit)
	if f.UserID != "" {
		q = q.Eq("user_id", f.UserID)
	}
	if f.From != nil {
		q = q.Gte("date", f.From.UTC().Format("2006-01-02"))
	}
	if f.To != nil {
		q = q.Lte("date", f.To.UTC().Format("2006-01-02"))
	}

	rows, err := d.store.Select(ctx, q)
	if err != nil {
		return nil, d.storeErr("select telemetry", err)
	}
	out := make([]domain.TelemetryDaily, 0, len(rows))
	for _, r := range rows {
		out = append(out, telemetryFromRow(r))
	}
	return out, nil
}

// DailyMetrics aggregates telemetry per date over the last days days,
// newest first.
func (d *Dashboard) DailyMetrics(ctx context.Context, days int) ([]domain.DailyMetrics, error) {
	ctx, span := tracer.Start(ctx, "Dashboard.DailyMetrics")
	defer span.End()

	if days <= 0 {
		days = DefaultTelemetryDays
	}
	since := d.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))

	rows, err := d.store.Select(ctx, port.From(port.TableTelemetry).
		Gte("date", since.Format("2006-01-02")).
		OrderBy("date", true))
	if err != nil {
		return nil, d.storeErr("select telemetry", err)
	}

	type acc struct {
		users, sessions        int
		accSum                 float64
		accN                   int
		attempts, syncFailures int
	}
	byDate := map[string]*acc{}
	for _, r := range rows {
		date := r.Str("date")
		if len(date) > 10 {
			date = date[:10]
		}
		a := byDate[date]
		if a == nil {
			a = &acc{}
			byDate[date] = a
		}
		a.users++
		a.sessions += r.Int("manual_entries_count") + r.Int("geofence_entries_count")
		if v, ok := r.Float("geofence_accuracy_avg"); ok {
			a.accSum += v
			a.accN++
		}
		a.attempts += r.Int("sync_attempts")
		a.syncFailures += r.Int("sync_failures")
	}

	out := make([]domain.DailyMetrics, 0, len(byDate))
	for date, a := range byDate {
		m := domain.DailyMetrics{Date: date, Users: a.users, Sessions: a.sessions, SyncSuccessRate: 100}
		if a.accN > 0 {
			avg := a.accSum / float64(a.accN)
			m.AvgAccuracy = &avg
		}
		if a.attempts > 0 {
			m.SyncSuccessRate = (1 - float64(a.syncFailures)/float64(a.attempts)) * 100
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

// ============================================================
// Row → entidade
// ============================================================

func profileFromRow(r port.Row) domain.Profile {
	return domain.Profile{
		ID:             r.Str("id"),
		Email:          r.Str("email"),
		Nome:           r.Str("nome"),
		Trade:          r.StrPtr("trade"),
		DevicePlatform: r.StrPtr("device_platform"),
		DeviceModel:    r.StrPtr("device_model"),
		Timezone:       r.StrPtr("timezone"),
		CreatedAt:      r.Str("created_at"),
		UpdatedAt:      r.StrPtr("updated_at"),
	}
}

func registroFromRow(r port.Row) domain.Registro {
	return domain.Registro{
		ID:        r.Str("id"),
		UserID:    r.Str("user_id"),
		LocalID:   r.Str("local_id"),
		LocalNome: r.StrPtr("local_nome"),
		Entrada:   r.Str("entrada"),
		Saida:     r.StrPtr("saida"),
		Tipo:      r.Str("tipo"),
		CreatedAt: r.Str("created_at"),
	}
}

func eventFromRow(r port.Row) domain.AppEvent {
	return domain.AppEvent{
		ID:         r.Str("id"),
		UserID:     r.StrPtr("user_id"),
		EventType:  r.Str("event_type"),
		EventData:  r.Object("event_data"),
		AppVersion: r.StrPtr("app_version"),
		OSVersion:  r.StrPtr("os_version"),
		CreatedAt:  r.Str("created_at"),
	}
}

func telemetryFromRow(r port.Row) domain.TelemetryDaily {
	date := r.Str("date")
	if len(date) > 10 {
		date = date[:10]
	}
	return domain.TelemetryDaily{
		ID:                   r.Str("id"),
		UserID:               r.Str("user_id"),
		Date:                 date,
		AppOpens:             r.Int("app_opens"),
		ManualEntriesCount:   r.Int("manual_entries_count"),
		GeofenceEntriesCount: r.Int("geofence_entries_count"),
		GeofenceTriggers:     r.Int("geofence_triggers"),
		GeofenceAccuracyAvg:  r.FloatPtr("geofence_accuracy_avg"),
		SyncAttempts:         r.Int("sync_attempts"),
		SyncFailures:         r.Int("sync_failures"),
		BatteryLevelAvg:      r.FloatPtr("battery_level_avg"),
		CreatedAt:            r.Str("created_at"),
	}
}
