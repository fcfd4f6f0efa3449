// Package dedup collapses near-duplicate news articles using embedding
// similarity.
package dedup

import (
	"context"
	"encoding/json"
	"math"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brasilintel/internal/model"
	"github.com/sells-group/brasilintel/internal/telemetry"
	"github.com/sells-group/brasilintel/pkg/embed"
)

// APIName identifies the embedding step in telemetry.
const APIName = "embedder"

// DefaultSimilarityThreshold is the cosine similarity at or above which two
// articles are duplicates.
const DefaultSimilarityThreshold = 0.85

// EncoderFactory builds the embedding encoder on first use. Returning a nil
// encoder and nil error means embeddings are not configured.
type EncoderFactory func() (embed.Encoder, error)

// Static returns a factory for an already-built encoder.
func Static(enc embed.Encoder) EncoderFactory {
	return func() (embed.Encoder, error) { return enc, nil }
}

// Deduplicator groups articles whose embeddings are at least Threshold
// similar, transitively, and merges each group. It is safe for concurrent
// use; the encoder is loaded once.
type Deduplicator struct {
	threshold float64
	factory   EncoderFactory
	rec       telemetry.Recorder

	once   sync.Once
	enc    embed.Encoder
	encErr error

	similarity func(a, b []float32) float64
}

// New creates a Deduplicator. threshold must be in (0, 1]. factory and rec
// may be nil.
func New(threshold float64, factory EncoderFactory, rec telemetry.Recorder) (*Deduplicator, error) {
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 1 {
		return nil, eris.Errorf("dedup: similarity threshold must be in (0, 1], got %v", threshold)
	}
	return &Deduplicator{
		threshold:  threshold,
		factory:    factory,
		rec:        telemetry.Safe(rec),
		similarity: embed.Cosine,
	}, nil
}

// Threshold returns the configured similarity threshold.
func (d *Deduplicator) Threshold() float64 {
	return d.threshold
}

func (d *Deduplicator) encoder() (embed.Encoder, error) {
	d.once.Do(func() {
		if d.factory == nil {
			return
		}
		d.enc, d.encErr = d.factory()
		if d.encErr != nil {
			d.encErr = eris.Wrap(d.encErr, "dedup: load encoder")
		}
	})
	return d.enc, d.encErr
}

// Deduplicate returns one article per duplicate group. Non-duplicates pass
// through unchanged. When embeddings are unavailable or fail, the input is
// returned as is. Output order follows the first member of each group.
func (d *Deduplicator) Deduplicate(ctx context.Context, articles []model.Article) []model.Article {
	log := zap.L().With(zap.String("component", "dedup"))

	if len(articles) <= 1 {
		log.Debug("deduplication_skipped",
			zap.String("reason", "too_few_articles"),
			zap.Int("count", len(articles)),
		)
		return articles
	}

	enc, err := d.encoder()
	if err != nil {
		log.Warn("deduplication_skipped", zap.String("reason", "encoder_unavailable"), zap.Error(err))
		d.record(ctx, false, map[string]any{"error": "EncoderUnavailable", "message": model.Truncate(err.Error(), 200)})
		return articles
	}
	if enc == nil {
		log.Info("deduplication_skipped", zap.String("reason", "encoder_not_configured"))
		return articles
	}

	texts := make([]string, len(articles))
	for i, a := range articles {
		texts[i] = a.SearchText()
	}

	vectors, err := enc.Encode(ctx, texts)
	if err == nil && len(vectors) != len(articles) {
		err = eris.Errorf("dedup: encoder returned %d vectors for %d articles", len(vectors), len(articles))
	}
	if err != nil {
		log.Warn("deduplication_failed", zap.Error(err), zap.Int("count", len(articles)))
		d.record(ctx, false, map[string]any{"error": "EncodeFailed", "model": enc.Model(), "message": model.Truncate(err.Error(), 200)})
		return articles
	}
	d.record(ctx, true, map[string]any{"model": enc.Model(), "count": len(texts)})

	uf := newUnionFind(len(articles))
	pairs := 0
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			sim := d.similarity(vectors[i], vectors[j])
			// NaN from non-finite vectors must not merge.
			if !(sim >= d.threshold) {
				continue
			}
			uf.union(i, j)
			pairs++
			log.Debug("duplicate_detected",
				zap.String("article_1", model.Truncate(articles[i].Title, 50)),
				zap.String("article_2", model.Truncate(articles[j].Title, 50)),
				zap.Float64("similarity", math.Round(sim*1000)/1000),
			)
		}
	}

	groups := uf.groups()
	out := make([]model.Article, 0, len(groups))
	large := 0
	for _, members := range groups {
		if len(members) == 1 {
			out = append(out, articles[members[0]])
			continue
		}
		if len(members) >= 3 {
			large++
			log.Info("large_duplicate_group", zap.Int("size", len(members)))
		}
		out = append(out, merge(articles, members))
	}

	log.Info("deduplication_complete",
		zap.Int("input_count", len(articles)),
		zap.Int("output_count", len(out)),
		zap.Int("duplicates_removed", len(articles)-len(out)),
		zap.Int("duplicate_pairs", pairs),
		zap.Int("large_groups", large),
	)
	return out
}

func (d *Deduplicator) record(ctx context.Context, success bool, detail map[string]any) {
	b, err := json.Marshal(detail)
	if err != nil {
		b = []byte("{}")
	}
	d.rec.Record(ctx, model.APIEvent{
		EventType: model.EventEmbedding,
		APIName:   APIName,
		Success:   success,
		Detail:    model.TruncateDetail(string(b)),
	})
}
