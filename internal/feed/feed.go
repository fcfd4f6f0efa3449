// Package feed turns RSS and Atom feeds into articles.
package feed

import (
	"context"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/brasilintel/internal/model"
)

// Options tunes feed fetching.
type Options struct {
	// MaxItems caps articles taken per feed. Zero means no cap.
	MaxItems int
	// Timeout bounds each feed fetch. Default 30s.
	Timeout time.Duration
	// Concurrency bounds parallel fetches. Default 4.
	Concurrency int
	// Client overrides the HTTP client.
	Client *http.Client
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	return o
}

// Fetch downloads and parses one feed.
func Fetch(ctx context.Context, url string, opts Options) ([]model.Article, error) {
	opts = opts.withDefaults()
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	parser := gofeed.NewParser()
	if opts.Client != nil {
		parser.Client = opts.Client
	}
	f, err := parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "feed: fetch %s", url)
	}
	return convert(f, opts.MaxItems), nil
}

// Parse reads a feed document from r.
func Parse(r io.Reader, maxItems int) ([]model.Article, error) {
	f, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, eris.Wrap(err, "feed: parse")
	}
	return convert(f, maxItems), nil
}

// FetchAll fetches every feed concurrently and concatenates the articles in
// url order. A failing feed is logged and skipped.
func FetchAll(ctx context.Context, urls []string, opts Options) []model.Article {
	opts = opts.withDefaults()
	results := make([][]model.Article, len(urls))

	var mu sync.Mutex
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, u := range urls {
		g.Go(func() error {
			articles, err := Fetch(gctx, u, opts)
			if err != nil {
				zap.L().Warn("feed_fetch_failed", zap.String("url", u), zap.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			results[i] = articles
			return nil
		})
	}
	_ = g.Wait()

	var out []model.Article
	for _, r := range results {
		out = append(out, r...)
	}
	zap.L().Info("feed_fetch_complete",
		zap.Int("feeds", len(urls)),
		zap.Int("failed", failed),
		zap.Int("articles", len(out)),
	)
	return out
}

func convert(f *gofeed.Feed, maxItems int) []model.Article {
	items := f.Items
	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}
	source := strings.TrimSpace(f.Title)

	articles := make([]model.Article, 0, len(items))
	for _, item := range items {
		title := cleanText(item.Title)
		if title == "" {
			continue
		}

		desc := item.Description
		if desc == "" {
			desc = item.Content
		}

		var published *time.Time
		switch {
		case item.PublishedParsed != nil:
			t := item.PublishedParsed.UTC()
			published = &t
		case item.UpdatedParsed != nil:
			t := item.UpdatedParsed.UTC()
			published = &t
		}

		articles = append(articles, model.Article{
			Title:       title,
			Description: cleanText(desc),
			SourceName:  source,
			PublishedAt: published,
			URL:         item.Link,
		})
	}
	return articles
}

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// cleanText strips markup and collapses whitespace.
func cleanText(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}
