package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/brasilintel/internal/feed"
	"github.com/sells-group/brasilintel/internal/fixture"
	"github.com/sells-group/brasilintel/internal/model"
)

func addArticleFlags(cmd *cobra.Command) {
	cmd.Flags().String("articles", "", "article batch file (JSON or YAML)")
	cmd.Flags().StringSlice("feed", nil, "RSS/Atom feed URL (repeatable)")
	cmd.Flags().Int("feed-max-items", 50, "maximum articles taken per feed")
	cmd.Flags().String("output", "", "write the JSON result to this file instead of stdout")
}

// loadArticles collects articles from the --articles file followed by every
// --feed URL.
func loadArticles(ctx context.Context, cmd *cobra.Command) ([]model.Article, error) {
	path, _ := cmd.Flags().GetString("articles")
	feeds, _ := cmd.Flags().GetStringSlice("feed")
	maxItems, _ := cmd.Flags().GetInt("feed-max-items")

	if path == "" && len(feeds) == 0 {
		return nil, eris.New("one of --articles or --feed is required")
	}

	var articles []model.Article
	if path != "" {
		a, err := fixture.LoadArticles(path)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a...)
	}
	if len(feeds) > 0 {
		articles = append(articles, feed.FetchAll(ctx, feeds, feed.Options{MaxItems: maxItems})...)
	}
	return articles, nil
}

// writeJSON writes v indented to the --output file, or to stdout when unset.
func writeJSON(cmd *cobra.Command, v any) error {
	path, _ := cmd.Flags().GetString("output")
	var out io.Writer = cmd.OutOrStdout()
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create %s", path)
		}
		defer f.Close() //nolint:errcheck
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "write output")
}
