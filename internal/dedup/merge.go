package dedup

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sells-group/brasilintel/internal/model"
)

// merge collapses a duplicate group into one representative: the earliest
// published article (undated last) with every distinct source joined in date
// order and the longest non-empty description in the group.
func merge(articles []model.Article, members []int) model.Article {
	group := make([]model.Article, len(members))
	for i, idx := range members {
		group[i] = articles[idx]
	}
	sort.SliceStable(group, func(i, j int) bool {
		return publishedBefore(group[i].PublishedAt, group[j].PublishedAt)
	})

	keeper := group[0]

	seen := make(map[string]struct{}, len(group))
	sources := make([]string, 0, len(group))
	for _, a := range group {
		if _, ok := seen[a.SourceName]; ok {
			continue
		}
		seen[a.SourceName] = struct{}{}
		sources = append(sources, a.SourceName)
	}
	keeper.SourceName = strings.Join(sources, ", ")

	best := -1
	for _, a := range group {
		if a.Description == "" {
			continue
		}
		if n := utf8.RuneCountInString(a.Description); n > best {
			best = n
			keeper.Description = a.Description
		}
	}
	return keeper
}

// publishedBefore orders timestamps ascending with nil treated as the
// latest possible time.
func publishedBefore(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.Before(*b)
	}
}
