// Package fixture loads insurer rosters and article batches from JSON or
// YAML files.
package fixture

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/brasilintel/internal/model"
)

// insurerRecord mirrors a roster row. search_terms is the stored
// comma-separated column; enabled defaults to true.
type insurerRecord struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	SearchTerms string `json:"search_terms" yaml:"search_terms"`
	Enabled     *bool  `json:"enabled" yaml:"enabled"`
}

type rosterFile struct {
	Insurers []insurerRecord `json:"insurers" yaml:"insurers"`
}

type articleRecord struct {
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	SourceName  string     `json:"source_name" yaml:"source_name"`
	PublishedAt *time.Time `json:"published_at" yaml:"published_at"`
	URL         string     `json:"url" yaml:"url"`
}

type articleFile struct {
	Articles []articleRecord `json:"articles" yaml:"articles"`
}

// LoadInsurers reads a roster file. The file holds either a bare list or an
// object with an "insurers" key. IDs must be positive and unique and names
// non-empty.
func LoadInsurers(path string) ([]model.Insurer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fixture: read roster %s", path)
	}
	return ParseInsurers(data, formatOf(path))
}

// ParseInsurers decodes roster data in the given format ("json" or "yaml").
func ParseInsurers(data []byte, format string) ([]model.Insurer, error) {
	var records []insurerRecord
	if isList(data, format) {
		if err := decode(data, format, &records); err != nil {
			return nil, eris.Wrap(err, "fixture: decode roster")
		}
	} else {
		var f rosterFile
		if err := decode(data, format, &f); err != nil {
			return nil, eris.Wrap(err, "fixture: decode roster")
		}
		records = f.Insurers
	}

	seen := make(map[int64]struct{}, len(records))
	insurers := make([]model.Insurer, 0, len(records))
	for i, r := range records {
		if r.ID <= 0 {
			return nil, eris.Errorf("fixture: roster entry %d: id must be positive", i)
		}
		if strings.TrimSpace(r.Name) == "" {
			return nil, eris.Errorf("fixture: roster entry %d: name is required", i)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, eris.Errorf("fixture: duplicate insurer id %d", r.ID)
		}
		seen[r.ID] = struct{}{}

		enabled := true
		if r.Enabled != nil {
			enabled = *r.Enabled
		}
		insurers = append(insurers, model.Insurer{
			ID:          r.ID,
			Name:        strings.TrimSpace(r.Name),
			SearchTerms: model.ParseSearchTerms(r.SearchTerms),
			Enabled:     enabled,
		})
	}
	return insurers, nil
}

// LoadArticles reads an article batch file: a bare list or an object with an
// "articles" key.
func LoadArticles(path string) ([]model.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fixture: read articles %s", path)
	}
	return ParseArticles(data, formatOf(path))
}

// ParseArticles decodes article data in the given format.
func ParseArticles(data []byte, format string) ([]model.Article, error) {
	var records []articleRecord
	if isList(data, format) {
		if err := decode(data, format, &records); err != nil {
			return nil, eris.Wrap(err, "fixture: decode articles")
		}
	} else {
		var f articleFile
		if err := decode(data, format, &f); err != nil {
			return nil, eris.Wrap(err, "fixture: decode articles")
		}
		records = f.Articles
	}

	articles := make([]model.Article, 0, len(records))
	for i, r := range records {
		if strings.TrimSpace(r.Title) == "" {
			return nil, eris.Errorf("fixture: article %d: title is required", i)
		}
		var published *time.Time
		if r.PublishedAt != nil {
			t := r.PublishedAt.UTC()
			published = &t
		}
		articles = append(articles, model.Article{
			Title:       r.Title,
			Description: r.Description,
			SourceName:  r.SourceName,
			PublishedAt: published,
			URL:         r.URL,
		})
	}
	return articles, nil
}

// formatOf picks the decoder from the file extension; anything that is not
// .yaml or .yml is treated as JSON.
func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

func decode(data []byte, format string, v any) error {
	if format == "yaml" {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

// isList reports whether the document's top level is a sequence.
func isList(data []byte, format string) bool {
	trimmed := bytes.TrimSpace(data)
	if format != "yaml" {
		return bytes.HasPrefix(trimmed, []byte("["))
	}
	var node yaml.Node
	if err := yaml.Unmarshal(trimmed, &node); err != nil || len(node.Content) == 0 {
		return false
	}
	return node.Content[0].Kind == yaml.SequenceNode
}
