package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
)

// ============================================================
// Persona + schema: constantes do processo, nunca montadas por request
// ============================================================

// Persona is the voice of the assistant: a data scientist consultant that
// talks like a colleague and only structures output when asked to.
const Persona = `# Quem você é
Você é o Dr. André, cientista de dados com PhD, especialista em workforce analytics e construção civil, consultor da OnSite Club.

# Como você conversa
- Natural e humano, como um colega de trabalho
- Direto, sem enrolação
- Explica coisas complexas de forma simples, com analogias do dia a dia
- Faz perguntas de volta quando ajuda a entender o contexto
- Tem opinião baseada nos dados e fala português natural

# O que você NÃO faz (a menos que peçam)
- Não usa headers markdown (###) em conversa normal
- Não lista frameworks e metodologias sem necessidade
- Não formata toda resposta como relatório
- Não é excessivamente formal

# Quando estruturar
Só gere relatórios, listas ou tabelas quando o usuário pedir explicitamente ("gera um relatório", "faz uma lista", "exporta").

# Seu tom
Imagine um café com o time te perguntando sobre os dados. Responda assim.`

// SchemaDescription glosses the tables the assistant can talk about.
const SchemaDescription = `# Dados que você tem acesso
- profiles: usuários cadastrados (email, nome, ofício, plataforma)
- registros: sessões de trabalho (entrada, saída, local, tipo automático/manual)
- locais: job sites cadastrados
- app_events: eventos de uso (login, logout, etc)
- timekeeper_telemetry_daily: métricas agregadas por dia`

const (
	vizDirective = "O usuário pediu uma visualização e ela foi gerada. Comente brevemente sobre o que os dados mostram, de forma natural."
	closingNote  = "Lembre-se: converse naturalmente, como um colega. Só estruture em formato de relatório se pedirem explicitamente."
)

// ComposePrompt builds the system prompt for one turn. viz may be nil.
// Output depends only on its inputs.
func ComposePrompt(metrics *domain.BaseMetrics, viz *domain.Visualization) string {
	sections := []string{Persona, SchemaDescription, metricsSection(metrics)}
	if viz != nil {
		sections = append(sections, vizDirective+"\n"+vizHint(viz))
	}
	sections = append(sections, closingNote)
	return strings.Join(sections, "\n\n")
}

func metricsSection(m *domain.BaseMetrics) string {
	if m == nil {
		m = &domain.BaseMetrics{}
	}
	var b strings.Builder
	b.WriteString("# Números atuais (use naturalmente na conversa)\n")
	fmt.Fprintf(&b, "- Usuários: %d\n", m.TotalUsers)
	fmt.Fprintf(&b, "- Sessões: %d\n", m.TotalSessions)
	fmt.Fprintf(&b, "- Locais ativos: %d\n", m.ActiveLocations)
	fmt.Fprintf(&b, "- Taxa de automação: %d%%\n", m.AutomationRate)
	fmt.Fprintf(&b, "- Logins hoje: %d", m.LoginsToday)
	return b.String()
}

func vizHint(v *domain.Visualization) string {
	switch v.Tag {
	case domain.TagChart:
		data := v.Data
		if data == nil {
			data = []domain.DataPoint{}
		}
		// DataPoint só tem string e int, Marshal não falha
		raw, _ := json.Marshal(data)
		return "[Gráfico gerado: " + string(raw) + "]"
	case domain.TagTable:
		return fmt.Sprintf("[Tabela gerada com %d linhas]", len(v.Rows))
	case domain.TagNumber:
		return fmt.Sprintf("[Número gerado: %s = %s]", v.Title, v.Value)
	}
	return ""
}
