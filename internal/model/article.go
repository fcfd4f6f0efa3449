package model

import "time"

// Article is a scraped news item. The matcher only reads it; deduplication
// may replace a group of articles with one merged representative.
type Article struct {
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	SourceName  string     `json:"source_name" yaml:"source_name"`
	PublishedAt *time.Time `json:"published_at,omitempty" yaml:"published_at,omitempty"`
	URL         string     `json:"url,omitempty" yaml:"url,omitempty"`
}

// SearchText is the concatenated title and description used for
// embedding and prompting.
func (a Article) SearchText() string {
	return a.Title + " " + a.Description
}
