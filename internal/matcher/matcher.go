// Package matcher assigns news articles to the insurers they mention.
// A cheap deterministic pass handles clear cases; ambiguous articles are
// escalated to an LLM-backed disambiguator.
package matcher

import (
	"go.uber.org/zap"

	"github.com/sells-group/brasilintel/internal/model"
	"github.com/sells-group/brasilintel/internal/textnorm"
)

// DefaultShortNameMinLength is the shortest normalized name or search term
// eligible for deterministic matching.
const DefaultShortNameMinLength = 4

// Matcher finds insurers named in an article by whole-word matching of
// normalized names and search terms. It is stateless and safe for
// concurrent use.
type Matcher struct {
	minLen int
}

// NewMatcher creates a Matcher. Names and terms shorter than minLen
// characters after normalization are never matched; minLen <= 0 selects
// DefaultShortNameMinLength.
func NewMatcher(minLen int) *Matcher {
	if minLen <= 0 {
		minLen = DefaultShortNameMinLength
	}
	return &Matcher{minLen: minLen}
}

// Match returns the ids of insurers mentioned in the article, in roster
// order, each at most once.
func (m *Matcher) Match(article model.Article, insurers []model.Insurer) []int64 {
	content := textnorm.NewText(article.SearchText())
	if content.Empty() {
		return nil
	}

	var matched []int64
	seen := make(map[int64]struct{})
	for _, ins := range insurers {
		if _, dup := seen[ins.ID]; dup {
			continue
		}
		if m.matchInsurer(content, ins) {
			seen[ins.ID] = struct{}{}
			matched = append(matched, ins.ID)
		}
	}
	return matched
}

func (m *Matcher) matchInsurer(content textnorm.Text, ins model.Insurer) bool {
	name := textnorm.Normalize(ins.Name)
	if textnorm.Length(name) < m.minLen {
		zap.L().Debug("matcher: skipping short name",
			zap.Int64("insurer_id", ins.ID),
			zap.String("name", ins.Name),
		)
	} else if content.Contains(name) {
		zap.L().Debug("matcher: name match",
			zap.Int64("insurer_id", ins.ID),
			zap.String("name", ins.Name),
		)
		return true
	}

	for _, term := range ins.SearchTerms {
		norm := textnorm.Normalize(term)
		if textnorm.Length(norm) < m.minLen {
			continue
		}
		if content.Contains(norm) {
			zap.L().Debug("matcher: search term match",
				zap.Int64("insurer_id", ins.ID),
				zap.String("term", term),
			)
			return true
		}
	}
	return false
}
