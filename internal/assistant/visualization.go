package assistant

import (
	"context"
	"strconv"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
)

// Aggregates is the read side the builder and the assistant draw from.
// *service.Aggregator implements it.
type Aggregates interface {
	BaseMetrics(ctx context.Context) (*domain.BaseMetrics, error)
	CohortByMonth(ctx context.Context) ([]domain.CohortPoint, error)
	SessionsPerDay(ctx context.Context, days int) ([]domain.DailyPoint, error)
	EntryTypes(ctx context.Context) ([]domain.EntryTypeSplit, error)
	LoginsPerUser(ctx context.Context) ([]domain.UserLoginCount, error)
	TableOf(ctx context.Context, entity domain.TableEntity, limit int) (*domain.TableRows, error)
}

const (
	tableLimit = 30
	recentDays = 14
)

// Titles shown on the generated artifacts.
const (
	TitleUsersTable    = "Usuários"
	TitleUsersByMonth  = "Usuários por Mês"
	TitleSessionsTable = "Sessões de Trabalho"
	TitleSessionsByDay = "Sessões por Dia"
	TitleLoginsByUser  = "Logins por Usuário"
	TitleEntryTypes    = "Automático vs Manual"
	TitleEvents        = "Eventos"
	TitleTotalUsers    = "Total de Usuários"
	TitleRecent        = "Atividade Recente"
)

// Builder turns an intent into exactly one aggregation wrapped as a
// Visualization.
type Builder struct {
	agg Aggregates
}

// NewBuilder creates a builder over agg.
func NewBuilder(agg Aggregates) *Builder {
	return &Builder{agg: agg}
}

// Build dispatches on (topic, renderKind). metrics feeds the scalar cases
// and must not be nil.
func (b *Builder) Build(ctx context.Context, intent domain.Intent, metrics *domain.BaseMetrics) (*domain.Visualization, error) {
	ctx, span := tracer.Start(ctx, "Builder.Build")
	defer span.End()

	kind := intent.RenderKind
	switch intent.Topic {
	case domain.TopicUsers, domain.TopicCohort:
		if kind == domain.RenderTable {
			return b.table(ctx, domain.TableUsers, TitleUsersTable)
		}
		if kind == domain.RenderNumber && intent.Topic == domain.TopicUsers {
			return domain.NewNumber(TitleTotalUsers, strconv.Itoa(metrics.TotalUsers)), nil
		}
		cohort, err := b.agg.CohortByMonth(ctx)
		if err != nil {
			return nil, err
		}
		data := make([]domain.DataPoint, 0, len(cohort))
		for _, c := range cohort {
			data = append(data, domain.DataPoint{Name: c.Month, Value: c.Count})
		}
		return domain.NewChart(domain.ChartBar, TitleUsersByMonth, data), nil

	case domain.TopicSessions:
		if kind == domain.RenderTable {
			return b.table(ctx, domain.TableSessions, TitleSessionsTable)
		}
		return b.sessionsChart(ctx, TitleSessionsByDay)

	case domain.TopicLogins:
		logins, err := b.agg.LoginsPerUser(ctx)
		if err != nil {
			return nil, err
		}
		data := make([]domain.DataPoint, 0, len(logins))
		for _, l := range logins {
			data = append(data, domain.DataPoint{Name: l.DisplayName, Value: l.Count})
		}
		return domain.NewChart(domain.ChartBar, TitleLoginsByUser, data), nil

	case domain.TopicEntryTypes:
		split, err := b.agg.EntryTypes(ctx)
		if err != nil {
			return nil, err
		}
		data := make([]domain.DataPoint, 0, len(split))
		for _, s := range split {
			data = append(data, domain.DataPoint{Name: s.Label, Value: s.Count})
		}
		return domain.NewChart(domain.ChartPie, TitleEntryTypes, data), nil

	case domain.TopicEvents:
		return b.table(ctx, domain.TableEvents, TitleEvents)
	}

	// sem tópico reconhecido
	if kind == domain.RenderNumber {
		return domain.NewNumber(TitleTotalUsers, strconv.Itoa(metrics.TotalUsers)), nil
	}
	return b.sessionsChart(ctx, TitleRecent)
}

func (b *Builder) table(ctx context.Context, entity domain.TableEntity, title string) (*domain.Visualization, error) {
	rows, err := b.agg.TableOf(ctx, entity, tableLimit)
	if err != nil {
		return nil, err
	}
	return domain.NewTable(title, rows), nil
}

func (b *Builder) sessionsChart(ctx context.Context, title string) (*domain.Visualization, error) {
	points, err := b.agg.SessionsPerDay(ctx, recentDays)
	if err != nil {
		return nil, err
	}
	data := make([]domain.DataPoint, 0, len(points))
	for _, p := range points {
		data = append(data, domain.DataPoint{Name: p.Day, Value: p.Count})
	}
	return domain.NewChart(domain.ChartLine, title, data), nil
}
