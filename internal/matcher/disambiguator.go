package matcher

import (
	"context"
	_ "embed"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brasilintel/internal/completion"
	"github.com/sells-group/brasilintel/internal/model"
	"github.com/sells-group/brasilintel/internal/resilience"
	"github.com/sells-group/brasilintel/internal/telemetry"
)

// APIName identifies the disambiguator in telemetry.
const APIName = "ai_matcher"

//go:embed match_response.schema.json
var responseSchemaJSON string

var responseSchema = completion.MustCompileSchema("match_response.schema.json", responseSchemaJSON)

// DisambiguatorConfig bounds prompt size and the retry policy.
type DisambiguatorConfig struct {
	MaxInsurerContext   int
	TitleMaxChars       int
	DescriptionMaxChars int
	Retry               resilience.RetryConfig
	// Breaker, when set, short-circuits escalations during a provider outage.
	Breaker *resilience.CircuitBreaker
}

// DefaultDisambiguatorConfig returns a 200-insurer context, 200/500 character
// title/description limits and the default two-attempt retry policy.
func DefaultDisambiguatorConfig() DisambiguatorConfig {
	return DisambiguatorConfig{
		MaxInsurerContext:   200,
		TitleMaxChars:       200,
		DescriptionMaxChars: 500,
		Retry:               resilience.DefaultRetryConfig(),
	}
}

// Disambiguator asks a completion service which roster insurers an article
// mentions. It never returns an error: every failure degrades to an
// unmatched result.
type Disambiguator struct {
	svc completion.Service
	rec telemetry.Recorder
	cfg DisambiguatorConfig
}

// NewDisambiguator creates a Disambiguator. svc may be nil, in which case
// every call resolves to unmatched. rec may be nil to drop telemetry.
func NewDisambiguator(svc completion.Service, rec telemetry.Recorder, cfg DisambiguatorConfig) (*Disambiguator, error) {
	if cfg.MaxInsurerContext <= 0 {
		return nil, eris.Errorf("matcher: max insurer context must be positive, got %d", cfg.MaxInsurerContext)
	}
	if cfg.TitleMaxChars <= 0 || cfg.DescriptionMaxChars <= 0 {
		return nil, eris.New("matcher: title and description limits must be positive")
	}
	if cfg.Retry.MaxAttempts <= 0 {
		return nil, eris.Errorf("matcher: retry attempts must be positive, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.MinBackoff > cfg.Retry.MaxBackoff && cfg.Retry.MaxBackoff > 0 {
		return nil, eris.New("matcher: min backoff exceeds max backoff")
	}
	return &Disambiguator{svc: svc, rec: telemetry.Safe(rec), cfg: cfg}, nil
}

// Configured reports whether a completion service is available.
func (d *Disambiguator) Configured() bool {
	return d.svc != nil
}

type aiResponse struct {
	InsurerIDs []int64 `json:"insurer_ids"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type successDetail struct {
	ArticleTitle string  `json:"article_title"`
	MatchedIDs   []int64 `json:"matched_ids"`
	Confidence   float64 `json:"confidence"`
}

type failureDetail struct {
	ArticleTitle string `json:"article_title"`
	Error        string `json:"error"`
	Message      string `json:"message"`
}

// Resolve identifies the insurers mentioned in article among insurers.
// correlationID, when set, ties telemetry to a pipeline run.
func (d *Disambiguator) Resolve(ctx context.Context, article model.Article, insurers []model.Insurer, correlationID *int64) model.MatchResult {
	res, _ := d.resolve(ctx, article, insurers, correlationID)
	return res
}

// resolve is Resolve that also reports the failure kind, empty on success.
func (d *Disambiguator) resolve(ctx context.Context, article model.Article, insurers []model.Insurer, correlationID *int64) (model.MatchResult, string) {
	title := model.Truncate(article.Title, d.cfg.TitleMaxChars)
	logTitle := model.Truncate(title, 100)

	if d.svc == nil {
		zap.L().Warn("ai_match_unavailable", zap.String("reason", "completion service not configured"))
		d.record(ctx, false, failureDetail{
			ArticleTitle: logTitle,
			Error:        "Unavailable",
			Message:      "completion service not configured",
		}, correlationID)
		return model.Unmatched(ReasonAIUnavailable), "Unavailable"
	}

	if len(insurers) > d.cfg.MaxInsurerContext {
		zap.L().Warn("ai_match_insurer_truncation",
			zap.Int("total_insurers", len(insurers)),
			zap.Int("max_context", d.cfg.MaxInsurerContext),
		)
	}
	insurerContext, allowed := buildContext(insurers, d.cfg.MaxInsurerContext)

	req := completion.Request{
		System: systemPrompt(insurerContext),
		User:   userPrompt(article, d.cfg.TitleMaxChars, d.cfg.DescriptionMaxChars),
		Schema: responseSchema,
		Phase:  "ai_match",
	}

	zap.L().Info("ai_match_started",
		zap.String("article_title", logTitle),
		zap.Int("insurer_count", len(allowed)),
	)

	retry := d.cfg.Retry
	retry.OnRetry = resilience.RetryLogger(APIName, "complete")
	resp, err := resilience.ExecuteVal(ctx, d.cfg.Breaker, func(ctx context.Context) (aiResponse, error) {
		return resilience.DoVal(ctx, retry, func(ctx context.Context) (aiResponse, error) {
			raw, err := d.svc.Complete(ctx, req)
			if err != nil {
				return aiResponse{}, err
			}
			var out aiResponse
			if err := json.Unmarshal(raw, &out); err != nil {
				return aiResponse{}, resilience.NewPermanentError(eris.Wrapf(completion.ErrMalformedResponse, "decode: %v", err))
			}
			return out, nil
		})
	})
	if err != nil {
		kind := completion.ErrorKind(err)
		zap.L().Warn("ai_match_failed",
			zap.String("error_type", kind),
			zap.Error(err),
			zap.String("article_title", logTitle),
		)
		d.record(ctx, false, failureDetail{
			ArticleTitle: logTitle,
			Error:        kind,
			Message:      model.Truncate(err.Error(), 200),
		}, correlationID)
		return model.Unmatched("AI match failed: " + kind), kind
	}

	validated := filterAllowed(resp.InsurerIDs, allowed)
	if len(validated) != len(resp.InsurerIDs) {
		zap.L().Warn("ai_match_hallucination_detected",
			zap.Int64s("original_ids", resp.InsurerIDs),
			zap.Int64s("validated_ids", validated),
		)
	}

	zap.L().Info("ai_match_completed",
		zap.Int64s("matched_ids", validated),
		zap.Float64("confidence", resp.Confidence),
		zap.String("reasoning", model.Truncate(resp.Reasoning, 200)),
	)
	d.record(ctx, true, successDetail{
		ArticleTitle: logTitle,
		MatchedIDs:   validated,
		Confidence:   resp.Confidence,
	}, correlationID)

	return model.MatchResult{
		InsurerIDs: validated,
		Confidence: resp.Confidence,
		Method:     model.MatchAIDisambiguation,
		Reasoning:  resp.Reasoning,
	}, ""
}

// filterAllowed keeps ids present in allowed, dropping duplicates. The
// result is never nil.
func filterAllowed(ids []int64, allowed map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := allowed[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (d *Disambiguator) record(ctx context.Context, success bool, detail any, correlationID *int64) {
	payload, err := json.Marshal(detail)
	if err != nil {
		zap.L().Warn("ai_matcher_event_record_failed", zap.Error(err))
		return
	}
	d.rec.Record(ctx, model.APIEvent{
		EventType:     model.EventAIMatch,
		APIName:       APIName,
		Success:       success,
		Detail:        model.TruncateDetail(string(payload)),
		CorrelationID: correlationID,
	})
}
