package assistant

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
)

// keywordGroup is one row of the classifier table. Patterns are written
// lowercase and without accents; they are matched against the folded
// message, so "gráfico" and "grafico" hit the same entry.
type keywordGroup struct {
	name string
	re   *regexp.Regexp
}

func group(name string, patterns ...string) *keywordGroup {
	return &keywordGroup{
		name: name,
		re:   regexp.MustCompile("(?i)(" + strings.Join(patterns, "|") + ")"),
	}
}

func (g *keywordGroup) match(folded string) bool { return g.re.MatchString(folded) }

// Render groups. Comparison words ("vs", "versus", "compara") count as a
// chart request: a split is best read as a chart.
var (
	chartWords = group("chart",
		"grafico", "chart", "visualiza", "plota", "desenha", `mostra.*grafico`,
		`\bvs\b`, "versus", "compar")
	tableWords = group("table",
		"tabela", "lista", "planilha", "excel", "csv", "pdf", "exporta", `mostre.*dados`, `lista.*de`)
	numberWords = group("number",
		"quantos?", "quantas?", "total", "numero")
	reportWords = group("report",
		"relatorio", "report", "analise completa")
)

// topicGroups in priority order; the first match wins.
var topicGroups = []struct {
	topic domain.Topic
	words *keywordGroup
}{
	{domain.TopicUsers, group("users", "usuario", "user", "cadastro")},
	{domain.TopicSessions, group("sessions", "sessao", "sessoes", "registro", "trabalho")},
	{domain.TopicLogins, group("logins", "login", "acesso", "engajamento", "ativo")},
	{domain.TopicEntryTypes, group("entryTypes", "automatico", "manual", "tipo", "geofence")},
	{domain.TopicCohort, group("cohort", "crescimento", "cohort", "evolucao", "mes")},
	{domain.TopicEvents, group("events", "evento", "event")},
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold lowercases s and strips combining marks.
func fold(s string) string {
	out, _, err := transform.String(foldTransformer, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// Classify maps an utterance to a visualization intent. Pure: the same
// message always yields the same Intent.
func Classify(message string) domain.Intent {
	m := fold(message)

	wantsChart := chartWords.match(m)
	wantsTable := tableWords.match(m)
	wantsNumber := numberWords.match(m) && !wantsChart && !wantsTable
	wantsReport := reportWords.match(m)

	if !wantsChart && !wantsTable && !wantsNumber && !wantsReport {
		return domain.Intent{}
	}

	intent := domain.Intent{Wants: true}
	switch {
	case wantsChart:
		intent.RenderKind = domain.RenderChart
	case wantsTable:
		intent.RenderKind = domain.RenderTable
	case wantsNumber:
		intent.RenderKind = domain.RenderNumber
	default:
		// "relatório" sozinho vira gráfico
		intent.RenderKind = domain.RenderChart
	}

	for _, tg := range topicGroups {
		if tg.words.match(m) {
			intent.Topic = tg.topic
			break
		}
	}
	return intent
}
