package matcher

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/brasilintel/internal/model"
)

// PipelineConfig tunes batch matching.
type PipelineConfig struct {
	// Workers bounds concurrent deterministic matching. Default 8.
	Workers int
	// AIRequestsPerMinute paces escalations. Zero disables pacing.
	AIRequestsPerMinute int
}

// BatchStats counts final results per method.
type BatchStats struct {
	Total               int `json:"total"`
	DeterministicSingle int `json:"deterministic_single"`
	DeterministicMulti  int `json:"deterministic_multi"`
	AIDisambiguation    int `json:"ai_disambiguation"`
	Unmatched           int `json:"unmatched"`
	Escalated           int `json:"escalated"`
}

func (s *BatchStats) add(r model.MatchResult) {
	s.Total++
	switch r.Method {
	case model.MatchDeterministicSingle:
		s.DeterministicSingle++
	case model.MatchDeterministicMulti:
		s.DeterministicMulti++
	case model.MatchAIDisambiguation:
		s.AIDisambiguation++
	default:
		s.Unmatched++
	}
}

// Pipeline runs deterministic matching, arbitration and escalation.
type Pipeline struct {
	matcher       *Matcher
	arbiter       *Arbiter
	disambiguator *Disambiguator
	limiter       *adaptiveLimiter
	workers       int
}

// NewPipeline wires the stages together. disambiguator may be nil, in which
// case escalated articles keep their pending unmatched result.
func NewPipeline(m *Matcher, a *Arbiter, d *Disambiguator, cfg PipelineConfig) (*Pipeline, error) {
	if m == nil || a == nil {
		return nil, eris.New("matcher: pipeline requires a matcher and an arbiter")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	p := &Pipeline{matcher: m, arbiter: a, disambiguator: d, workers: cfg.Workers}
	if cfg.AIRequestsPerMinute > 0 {
		p.limiter = newAdaptiveLimiter(cfg.AIRequestsPerMinute)
	}
	return p, nil
}

// MatchArticle matches one article, escalating when the deterministic pass
// is inconclusive.
func (p *Pipeline) MatchArticle(ctx context.Context, article model.Article, insurers []model.Insurer, correlationID *int64) model.MatchResult {
	dec := p.arbiter.Decide(p.matcher.Match(article, insurers), insurers)
	if !dec.Escalate {
		return dec.Result
	}
	return p.escalate(ctx, article, insurers, correlationID, dec.Result)
}

// MatchBatch matches articles and returns one result per article in input
// order. Deterministic matching runs in parallel; escalations run one at a
// time through the rate limiter.
func (p *Pipeline) MatchBatch(ctx context.Context, articles []model.Article, insurers []model.Insurer, correlationID *int64) ([]model.MatchResult, BatchStats) {
	zap.L().Info("matcher: starting batch",
		zap.Int("article_count", len(articles)),
		zap.Int("insurer_count", len(insurers)),
	)

	decisions := make([]Decision, len(articles))
	var g errgroup.Group
	g.SetLimit(p.workers)
	for i := range articles {
		g.Go(func() error {
			decisions[i] = p.arbiter.Decide(p.matcher.Match(articles[i], insurers), insurers)
			return nil
		})
	}
	_ = g.Wait()

	var stats BatchStats
	results := make([]model.MatchResult, len(articles))
	for i, dec := range decisions {
		res := dec.Result
		if dec.Escalate {
			stats.Escalated++
			res = p.escalate(ctx, articles[i], insurers, correlationID, dec.Result)
		}
		results[i] = res
		stats.add(res)
	}

	zap.L().Info("matcher: batch complete",
		zap.Int("total_articles", stats.Total),
		zap.Int("deterministic_single", stats.DeterministicSingle),
		zap.Int("deterministic_multi", stats.DeterministicMulti),
		zap.Int("ai_disambiguation", stats.AIDisambiguation),
		zap.Int("unmatched", stats.Unmatched),
		zap.Int("escalated", stats.Escalated),
	)
	return results, stats
}

func (p *Pipeline) escalate(ctx context.Context, article model.Article, insurers []model.Insurer, correlationID *int64, pending model.MatchResult) model.MatchResult {
	if p.disambiguator == nil {
		return pending
	}
	if p.limiter != nil && p.disambiguator.Configured() {
		if err := p.limiter.Wait(ctx); err != nil {
			zap.L().Warn("matcher: escalation skipped", zap.Error(err))
			return pending
		}
	}

	res, kind := p.disambiguator.resolve(ctx, article, insurers, correlationID)
	if p.limiter != nil {
		switch kind {
		case "":
			p.limiter.OnSuccess()
		case "RateLimited":
			p.limiter.OnRateLimit()
		}
	}
	return res
}
