package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
)

// fakeAggregates records which aggregation was called.
type fakeAggregates struct {
	calls []string
	err   error
}

func (f *fakeAggregates) BaseMetrics(ctx context.Context) (*domain.BaseMetrics, error) {
	f.calls = append(f.calls, "base")
	if f.err != nil {
		return nil, f.err
	}
	return &domain.BaseMetrics{TotalUsers: 45, TotalSessions: 120, ActiveLocations: 3, AutomationRate: 67, LoginsToday: 12}, nil
}

func (f *fakeAggregates) CohortByMonth(ctx context.Context) ([]domain.CohortPoint, error) {
	f.calls = append(f.calls, "cohort")
	return []domain.CohortPoint{{Month: "2026-09", Count: 4}, {Month: "2026-10", Count: 3}}, f.err
}

func (f *fakeAggregates) SessionsPerDay(ctx context.Context, days int) ([]domain.DailyPoint, error) {
	f.calls = append(f.calls, "sessions")
	return []domain.DailyPoint{{Day: "10/16", Count: 6}, {Day: "10/17", Count: 2}}, f.err
}

func (f *fakeAggregates) EntryTypes(ctx context.Context) ([]domain.EntryTypeSplit, error) {
	f.calls = append(f.calls, "entryTypes")
	return []domain.EntryTypeSplit{{Label: domain.EntryTypeAutomatic, Count: 80}, {Label: domain.EntryTypeManual, Count: 40}}, f.err
}

func (f *fakeAggregates) LoginsPerUser(ctx context.Context) ([]domain.UserLoginCount, error) {
	f.calls = append(f.calls, "logins")
	return []domain.UserLoginCount{{DisplayName: "Ana", Count: 5}}, f.err
}

func (f *fakeAggregates) TableOf(ctx context.Context, entity domain.TableEntity, limit int) (*domain.TableRows, error) {
	f.calls = append(f.calls, "table:"+string(entity))
	if f.err != nil {
		return nil, f.err
	}
	return &domain.TableRows{Columns: []string{"a"}, Rows: []map[string]any{{"a": 1}}}, nil
}

var testMetrics = &domain.BaseMetrics{TotalUsers: 45, TotalSessions: 120}

func TestBuilder_DispatchTable(t *testing.T) {
	cases := []struct {
		topic     domain.Topic
		kind      domain.RenderKind
		call      string
		tag       domain.VisualizationTag
		chartType domain.ChartType
		title     string
	}{
		{domain.TopicUsers, domain.RenderTable, "table:users", domain.TagTable, "", TitleUsersTable},
		{domain.TopicCohort, domain.RenderTable, "table:users", domain.TagTable, "", TitleUsersTable},
		{domain.TopicUsers, domain.RenderChart, "cohort", domain.TagChart, domain.ChartBar, TitleUsersByMonth},
		{domain.TopicCohort, domain.RenderNumber, "cohort", domain.TagChart, domain.ChartBar, TitleUsersByMonth},
		{domain.TopicSessions, domain.RenderTable, "table:sessions", domain.TagTable, "", TitleSessionsTable},
		{domain.TopicSessions, domain.RenderChart, "sessions", domain.TagChart, domain.ChartLine, TitleSessionsByDay},
		{domain.TopicSessions, domain.RenderNumber, "sessions", domain.TagChart, domain.ChartLine, TitleSessionsByDay},
		{domain.TopicLogins, domain.RenderTable, "logins", domain.TagChart, domain.ChartBar, TitleLoginsByUser},
		{domain.TopicEntryTypes, domain.RenderChart, "entryTypes", domain.TagChart, domain.ChartPie, TitleEntryTypes},
		{domain.TopicEvents, domain.RenderChart, "table:events", domain.TagTable, "", TitleEvents},
		{domain.TopicNone, domain.RenderChart, "sessions", domain.TagChart, domain.ChartLine, TitleRecent},
		{domain.TopicNone, domain.RenderTable, "sessions", domain.TagChart, domain.ChartLine, TitleRecent},
	}

	for _, tc := range cases {
		t.Run(string(tc.topic)+"/"+string(tc.kind), func(t *testing.T) {
			agg := &fakeAggregates{}
			v, err := NewBuilder(agg).Build(context.Background(), domain.Intent{Wants: true, RenderKind: tc.kind, Topic: tc.topic}, testMetrics)
			require.NoError(t, err)
			assert.Equal(t, []string{tc.call}, agg.calls)
			assert.Equal(t, tc.tag, v.Tag)
			assert.Equal(t, tc.chartType, v.ChartType)
			assert.Equal(t, tc.title, v.Title)
			assert.True(t, v.Downloadable)
		})
	}
}

func TestBuilder_Numbers(t *testing.T) {
	cases := []struct {
		topic domain.Topic
		title string
		value string
	}{
		{domain.TopicUsers, TitleTotalUsers, "45"},
		{domain.TopicNone, TitleTotalUsers, "45"},
	}
	for _, tc := range cases {
		agg := &fakeAggregates{}
		v, err := NewBuilder(agg).Build(context.Background(), domain.Intent{Wants: true, RenderKind: domain.RenderNumber, Topic: tc.topic}, testMetrics)
		require.NoError(t, err)
		assert.Empty(t, agg.calls, "scalars come from BaseMetrics")
		assert.Equal(t, domain.TagNumber, v.Tag)
		assert.Equal(t, tc.title, v.Title)
		assert.Equal(t, tc.value, v.Value)
		assert.False(t, v.Downloadable)
	}
}

func TestBuilder_ChartPoints(t *testing.T) {
	v, err := NewBuilder(&fakeAggregates{}).Build(context.Background(),
		domain.Intent{Wants: true, RenderKind: domain.RenderChart, Topic: domain.TopicEntryTypes}, testMetrics)
	require.NoError(t, err)
	assert.Equal(t, []domain.DataPoint{{Name: "Automático", Value: 80}, {Name: "Manual", Value: 40}}, v.Data)

	v, err = NewBuilder(&fakeAggregates{}).Build(context.Background(),
		domain.Intent{Wants: true, RenderKind: domain.RenderChart, Topic: domain.TopicCohort}, testMetrics)
	require.NoError(t, err)
	assert.Equal(t, []domain.DataPoint{{Name: "2026-09", Value: 4}, {Name: "2026-10", Value: 3}}, v.Data)
}

func TestBuilder_PropagatesStoreFailure(t *testing.T) {
	storeErr := &domain.ErrStoreFailure{Op: "select registros", Err: errors.New("timeout")}
	agg := &fakeAggregates{err: storeErr}

	v, err := NewBuilder(agg).Build(context.Background(),
		domain.Intent{Wants: true, RenderKind: domain.RenderChart, Topic: domain.TopicSessions}, testMetrics)
	assert.Nil(t, v)
	assert.ErrorIs(t, err, storeErr)
}
