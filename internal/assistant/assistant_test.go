package assistant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/memstore"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/observability"
	"github.com/boddenberg/onsite-analytics-go/internal/port"
	"github.com/boddenberg/onsite-analytics-go/internal/service"
)

type fakeCompleter struct {
	reply string
	err   error
	last  *domain.CompletionRequest
	calls int
}

func (f *fakeCompleter) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.Completion, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Completion{
		Text:       f.reply,
		TokensUsed: domain.TokenUsage{PromptTokens: 900, CompletionTokens: 100, TotalTokens: 1000},
	}, nil
}

func newSeededAssistant(t *testing.T, completer port.Completer) (*Assistant, *memstore.Store) {
	t.Helper()
	store := memstore.Seeded(time.Now())
	metrics := observability.NewMetrics()
	agg := service.NewAggregator(store, metrics, zap.NewNop())
	return New(agg, completer, "", metrics, zap.NewNop()), store
}

func chat(message string) *domain.ChatRequest {
	return &domain.ChatRequest{Message: message, History: []domain.Turn{}}
}

// ============================================================
// Cenários ponta a ponta sobre o dataset de demonstração
// ============================================================

func TestHandle_CountUsers(t *testing.T) {
	a, _ := newSeededAssistant(t, &fakeCompleter{reply: "Vocês têm 45 usuários."})

	resp, err := a.Handle(context.Background(), chat("quantos usuários tem?"))
	require.NoError(t, err)
	require.NotNil(t, resp.Visualization)
	assert.Equal(t, domain.TagNumber, resp.Visualization.Tag)
	assert.Equal(t, "45", resp.Visualization.Value)
	assert.Equal(t, "Total de Usuários", resp.Visualization.Title)
	assert.NotEmpty(t, resp.Message)
}

func TestHandle_SessionsPerDayChart(t *testing.T) {
	a, _ := newSeededAssistant(t, &fakeCompleter{reply: "ok"})

	resp, err := a.Handle(context.Background(), chat("me mostra um gráfico de sessões por dia"))
	require.NoError(t, err)
	v := resp.Visualization
	require.NotNil(t, v)
	assert.Equal(t, domain.TagChart, v.Tag)
	assert.Equal(t, domain.ChartLine, v.ChartType)
	assert.Equal(t, "Sessões por Dia", v.Title)
	assert.NotEmpty(t, v.Data)
	assert.LessOrEqual(t, len(v.Data), 14)
	day := regexp.MustCompile(`^\d{2}/\d{2}$`)
	for _, p := range v.Data {
		assert.Regexp(t, day, p.Name)
		assert.Positive(t, p.Value)
	}
}

func TestHandle_SessionCountStaysDailyChart(t *testing.T) {
	a, _ := newSeededAssistant(t, &fakeCompleter{reply: "ok"})

	resp, err := a.Handle(context.Background(), chat("quantas sessões tem?"))
	require.NoError(t, err)
	v := resp.Visualization
	require.NotNil(t, v)
	assert.Equal(t, domain.TagChart, v.Tag)
	assert.Equal(t, domain.ChartLine, v.ChartType)
	assert.Equal(t, "Sessões por Dia", v.Title)
	assert.Empty(t, v.Value)
}

func TestHandle_UsersTable(t *testing.T) {
	a, _ := newSeededAssistant(t, &fakeCompleter{reply: "ok"})

	resp, err := a.Handle(context.Background(), chat("tabela de usuários"))
	require.NoError(t, err)
	v := resp.Visualization
	require.NotNil(t, v)
	assert.Equal(t, domain.TagTable, v.Tag)
	assert.Equal(t, "Usuários", v.Title)
	assert.Equal(t, []string{"email", "nome", "trade", "device_platform", "created_at"}, v.Columns)
	assert.Len(t, v.Rows, 30)
	assert.True(t, v.Downloadable)
}

func TestHandle_EntryTypesPie(t *testing.T) {
	a, _ := newSeededAssistant(t, &fakeCompleter{reply: "ok"})

	resp, err := a.Handle(context.Background(), chat("automático vs manual"))
	require.NoError(t, err)
	v := resp.Visualization
	require.NotNil(t, v)
	assert.Equal(t, domain.ChartPie, v.ChartType)
	assert.Equal(t, []domain.DataPoint{{Name: "Automático", Value: 80}, {Name: "Manual", Value: 40}}, v.Data)
}

func TestHandle_SmallTalkHasNoVisualization(t *testing.T) {
	completer := &fakeCompleter{reply: "Tudo ótimo! E por aí?"}
	a, _ := newSeededAssistant(t, completer)

	resp, err := a.Handle(context.Background(), chat("tudo bem?"))
	require.NoError(t, err)
	assert.Nil(t, resp.Visualization)
	assert.Equal(t, "Tudo ótimo! E por aí?", resp.Message)
	assert.NotContains(t, completer.last.Messages[0].Content, vizDirective)
}

func TestHandle_MissingCredential(t *testing.T) {
	a, store := newSeededAssistant(t, nil)

	resp, err := a.Handle(context.Background(), chat("quantos usuários tem?"))
	require.NoError(t, err)
	assert.Nil(t, resp.Visualization)
	assert.Contains(t, resp.Message, "API key")
	assert.Zero(t, store.Calls(), "no store access without a credential")
}

func TestHandle_MissingCredentialRecordsDuration(t *testing.T) {
	metrics := observability.NewMetrics()
	agg := service.NewAggregator(memstore.Seeded(time.Now()), metrics, zap.NewNop())
	a := New(agg, nil, "", metrics, zap.NewNop())

	_, err := a.Handle(context.Background(), chat("oi"))
	require.NoError(t, err)

	families, err := metrics.Registry.Gather()
	require.NoError(t, err)
	var samples uint64
	for _, mf := range families {
		if mf.GetName() != "onsite_request_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "operation" && l.GetValue() == "chat" {
					samples += m.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	assert.Equal(t, uint64(1), samples)
}

// ============================================================
// Montagem das mensagens
// ============================================================

func TestHandle_CompletionRequest(t *testing.T) {
	completer := &fakeCompleter{reply: "ok"}
	a, _ := newSeededAssistant(t, completer)

	_, err := a.Handle(context.Background(), &domain.ChatRequest{
		Message: "tudo bem?",
		History: []domain.Turn{{Role: domain.RoleUser, Content: "oi"}, {Role: domain.RoleAssistant, Content: "olá"}},
	})
	require.NoError(t, err)

	req := completer.last
	assert.Equal(t, DefaultModel, req.Model)
	assert.Equal(t, Temperature, req.Temperature)
	assert.Equal(t, MaxTokens, req.MaxTokens)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, domain.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "- Usuários: 45")
	assert.Equal(t, domain.LLMMessage{Role: domain.RoleUser, Content: "oi"}, req.Messages[1])
	assert.Equal(t, domain.LLMMessage{Role: domain.RoleAssistant, Content: "olá"}, req.Messages[2])
	assert.Equal(t, domain.LLMMessage{Role: domain.RoleUser, Content: "tudo bem?"}, req.Messages[3])
}

func TestBuildMessages_KeepsLastTenTurns(t *testing.T) {
	history := make([]domain.Turn, 15)
	for i := range history {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		history[i] = domain.Turn{Role: role, Content: fmt.Sprintf("turn %d", i)}
	}

	msgs := BuildMessages("sys", history, "agora")
	require.Len(t, msgs, 12)
	assert.Equal(t, "sys", msgs[0].Content)
	assert.Equal(t, "turn 5", msgs[1].Content)
	assert.Equal(t, "turn 14", msgs[10].Content)
	assert.Equal(t, "agora", msgs[11].Content)
}

func TestBuildMessages_EmptyHistory(t *testing.T) {
	msgs := BuildMessages("sys", nil, "oi")
	assert.Equal(t, []domain.LLMMessage{
		{Role: domain.RoleSystem, Content: "sys"},
		{Role: domain.RoleUser, Content: "oi"},
	}, msgs)
}

// ============================================================
// Validação e falhas
// ============================================================

func TestHandle_Validation(t *testing.T) {
	completer := &fakeCompleter{reply: "ok"}
	a, _ := newSeededAssistant(t, completer)

	cases := map[string]*domain.ChatRequest{
		"nil":          nil,
		"empty":        {Message: ""},
		"blank":        {Message: "   "},
		"bad role":     {Message: "oi", History: []domain.Turn{{Role: "system", Content: "x"}}},
		"missing role": {Message: "oi", History: []domain.Turn{{Content: "x"}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := a.Handle(context.Background(), req)
			var ve *domain.ErrValidation
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
	assert.Zero(t, completer.calls)
}

func TestHandle_StoreFailure(t *testing.T) {
	completer := &fakeCompleter{reply: "ok"}
	a, store := newSeededAssistant(t, completer)
	store.FailOn(port.TableRegistros, errors.New("connection refused"))

	resp, err := a.Handle(context.Background(), chat("tudo bem?"))
	assert.Nil(t, resp)
	var sf *domain.ErrStoreFailure
	require.True(t, errors.As(err, &sf))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Zero(t, completer.calls, "LLM is not called when metrics fail")
}

func TestHandle_LLMFailure(t *testing.T) {
	llmErr := &domain.ErrLLMFailure{Kind: domain.LLMRateLimited, Message: "slow down"}
	a, _ := newSeededAssistant(t, &fakeCompleter{err: llmErr})

	resp, err := a.Handle(context.Background(), chat("gráfico de logins"))
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, llmErr)
}

func TestHandle_IdempotentVisualization(t *testing.T) {
	a, _ := newSeededAssistant(t, &fakeCompleter{reply: "ok"})

	first, err := a.Handle(context.Background(), chat("gráfico de logins"))
	require.NoError(t, err)
	second, err := a.Handle(context.Background(), chat("gráfico de logins"))
	require.NoError(t, err)
	assert.Equal(t, first.Visualization, second.Visualization)
}
