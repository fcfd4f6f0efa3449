package model

import "strings"

// Insurer is a tracked insurance company from the roster. It is treated as
// immutable for the duration of a matching run.
type Insurer struct {
	ID          int64    `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	SearchTerms []string `json:"search_terms,omitempty" yaml:"search_terms,omitempty"`
	Enabled     bool     `json:"enabled" yaml:"enabled"`
}

// ParseSearchTerms splits the comma-separated search term column into an
// ordered list of trimmed, non-empty terms.
func ParseSearchTerms(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// SearchTermsDisplay renders the terms back to their stored comma-separated form.
func (i Insurer) SearchTermsDisplay() string {
	return strings.Join(i.SearchTerms, ", ")
}

// InsurerIndex maps insurer ID to roster entry.
type InsurerIndex map[int64]Insurer

// IndexInsurers builds an InsurerIndex. Later duplicates overwrite earlier ones.
func IndexInsurers(insurers []Insurer) InsurerIndex {
	idx := make(InsurerIndex, len(insurers))
	for _, ins := range insurers {
		idx[ins.ID] = ins
	}
	return idx
}
