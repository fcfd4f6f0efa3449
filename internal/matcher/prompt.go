package matcher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/brasilintel/internal/model"
)

const systemPromptTemplate = `Você é um assistente de IA que identifica quais seguradoras brasileiras são mencionadas em artigos de notícias.

Lista de seguradoras disponíveis:
%s

Analise o artigo e identifique qual(is) seguradora(s) da lista acima são mencionadas.
- Retorne os IDs da lista acima.
- Se nenhuma seguradora for claramente mencionada, retorne uma lista vazia.
- Se múltiplas seguradoras forem mencionadas, retorne todos os IDs relevantes.
- Considere variações de nomes (com e sem acentos, abreviações, nomes comerciais).

Responda somente com um objeto JSON no formato:
{"insurer_ids": [<ids>], "confidence": <0.0 a 1.0>, "reasoning": "<explicação breve>"}`

const userPromptTemplate = `Título: %s

Descrição: %s

Qual(is) seguradora(s) são mencionadas neste artigo?`

// buildContext orders insurers enabled-first then by case-insensitive name,
// keeps at most limit of them, and renders one line per insurer. It returns
// the rendered context and the set of ids it contains.
func buildContext(insurers []model.Insurer, limit int) (string, map[int64]struct{}) {
	sorted := make([]model.Insurer, len(insurers))
	copy(sorted, insurers)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Enabled != sorted[j].Enabled {
			return sorted[i].Enabled
		}
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	ids := make(map[int64]struct{}, len(sorted))
	lines := make([]string, 0, len(sorted))
	for _, ins := range sorted {
		ids[ins.ID] = struct{}{}
		terms := ins.SearchTermsDisplay()
		if terms == "" {
			terms = "nenhum"
		}
		lines = append(lines, fmt.Sprintf("ID %d: %s (termos: %s)", ins.ID, ins.Name, terms))
	}
	return strings.Join(lines, "\n"), ids
}

func systemPrompt(insurerContext string) string {
	return fmt.Sprintf(systemPromptTemplate, insurerContext)
}

func userPrompt(article model.Article, titleMax, descMax int) string {
	return fmt.Sprintf(userPromptTemplate,
		model.Truncate(article.Title, titleMax),
		model.Truncate(article.Description, descMax),
	)
}
