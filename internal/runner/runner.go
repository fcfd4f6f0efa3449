// Package runner chains deduplication and insurer matching over a batch of
// articles.
package runner

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brasilintel/internal/dedup"
	"github.com/sells-group/brasilintel/internal/matcher"
	"github.com/sells-group/brasilintel/internal/model"
)

// Item pairs a surviving article with its match result.
type Item struct {
	Article model.Article     `json:"article"`
	Result  model.MatchResult `json:"result"`
}

// Report is the outcome of one run.
type Report struct {
	CorrelationID *int64             `json:"correlation_id,omitempty"`
	StartedAt     time.Time          `json:"started_at"`
	Duration      string             `json:"duration"`
	InputCount    int                `json:"input_count"`
	DedupedCount  int                `json:"deduped_count"`
	Stats         matcher.BatchStats `json:"stats"`
	Items         []Item             `json:"items"`
}

// Runner runs an optional dedup pre-pass followed by batch matching.
type Runner struct {
	dedup    *dedup.Deduplicator
	pipeline *matcher.Pipeline
	now      func() time.Time
}

// New creates a Runner. d may be nil to skip deduplication.
func New(d *dedup.Deduplicator, p *matcher.Pipeline) (*Runner, error) {
	if p == nil {
		return nil, eris.New("runner: pipeline is required")
	}
	return &Runner{dedup: d, pipeline: p, now: time.Now}, nil
}

// Run deduplicates articles and matches each survivor against insurers.
// External failures degrade inside the stages; an error is returned only if
// ctx is already done.
func (r *Runner) Run(ctx context.Context, articles []model.Article, insurers []model.Insurer, correlationID *int64) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "runner: run")
	}

	start := r.now()
	log := zap.L().With(zap.String("component", "runner"))
	if correlationID != nil {
		log = log.With(zap.Int64("correlation_id", *correlationID))
	}
	log.Info("run_started",
		zap.Int("article_count", len(articles)),
		zap.Int("insurer_count", len(insurers)),
		zap.Bool("dedup", r.dedup != nil),
	)

	survivors := articles
	if r.dedup != nil {
		survivors = r.dedup.Deduplicate(ctx, articles)
	}

	results, stats := r.pipeline.MatchBatch(ctx, survivors, insurers, correlationID)

	items := make([]Item, len(survivors))
	for i := range survivors {
		items[i] = Item{Article: survivors[i], Result: results[i]}
	}

	elapsed := r.now().Sub(start)
	log.Info("run_complete",
		zap.Int("input_count", len(articles)),
		zap.Int("deduped_count", len(survivors)),
		zap.Int("matched", stats.Total-stats.Unmatched),
		zap.Duration("duration", elapsed),
	)

	return &Report{
		CorrelationID: correlationID,
		StartedAt:     start.UTC(),
		Duration:      elapsed.String(),
		InputCount:    len(articles),
		DedupedCount:  len(survivors),
		Stats:         stats,
		Items:         items,
	}, nil
}
