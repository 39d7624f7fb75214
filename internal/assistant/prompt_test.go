package assistant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
)

var promptMetrics = &domain.BaseMetrics{TotalUsers: 45, TotalSessions: 120, ActiveLocations: 3, AutomationRate: 67, LoginsToday: 12}

func TestComposePrompt_WithoutVisualization(t *testing.T) {
	p := ComposePrompt(promptMetrics, nil)

	assert.True(t, strings.HasPrefix(p, Persona))
	assert.Contains(t, p, "\n\n"+SchemaDescription+"\n\n")
	assert.Contains(t, p, "- Usuários: 45\n")
	assert.Contains(t, p, "- Sessões: 120\n")
	assert.Contains(t, p, "- Locais ativos: 3\n")
	assert.Contains(t, p, "- Taxa de automação: 67%\n")
	assert.Contains(t, p, "- Logins hoje: 12")
	assert.NotContains(t, p, vizDirective)
	assert.True(t, strings.HasSuffix(p, closingNote))
}

func TestComposePrompt_VisualizationHints(t *testing.T) {
	chart := domain.NewChart(domain.ChartPie, TitleEntryTypes, []domain.DataPoint{{Name: "Automático", Value: 80}, {Name: "Manual", Value: 40}})
	p := ComposePrompt(promptMetrics, chart)
	assert.Contains(t, p, vizDirective)
	assert.Contains(t, p, `[Gráfico gerado: [{"name":"Automático","value":80},{"name":"Manual","value":40}]]`)

	table := domain.NewTable(TitleUsersTable, &domain.TableRows{Columns: []string{"email"}, Rows: []map[string]any{{"email": "a"}, {"email": "b"}}})
	assert.Contains(t, ComposePrompt(promptMetrics, table), "[Tabela gerada com 2 linhas]")

	number := domain.NewNumber(TitleTotalUsers, "45")
	assert.Contains(t, ComposePrompt(promptMetrics, number), "[Número gerado: Total de Usuários = 45]")
}

func TestComposePrompt_Deterministic(t *testing.T) {
	v := domain.NewNumber(TitleTotalUsers, "45")
	assert.Equal(t, ComposePrompt(promptMetrics, v), ComposePrompt(promptMetrics, v))
}
