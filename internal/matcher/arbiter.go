package matcher

import (
	"fmt"

	"github.com/sells-group/brasilintel/internal/model"
)

// Reasoning strings for deterministic outcomes.
const (
	ReasonNoDeterministicMatch = "No clear deterministic match"
	ReasonAIUnavailable        = "AI matching unavailable"
)

// ArbiterConfig holds the confidence policy for deterministic results.
type ArbiterConfig struct {
	SingleConfidence float64
	MultiConfidence  float64
	// MultiMaxMatches is the largest hit count still trusted without AI.
	MultiMaxMatches int
}

// DefaultArbiterConfig returns the standard policy: 1 hit at 0.95, 2-3 hits
// at 0.85, anything else escalates.
func DefaultArbiterConfig() ArbiterConfig {
	return ArbiterConfig{
		SingleConfidence: 0.95,
		MultiConfidence:  0.85,
		MultiMaxMatches:  3,
	}
}

// Decision is the arbiter's verdict on a deterministic match set.
type Decision struct {
	Result model.MatchResult
	// Escalate is set when Result is a pending unmatched result that should
	// go to the disambiguator.
	Escalate bool
}

// Arbiter maps deterministic hit counts to match results.
type Arbiter struct {
	cfg ArbiterConfig
}

// NewArbiter creates an Arbiter; zero fields take their defaults.
func NewArbiter(cfg ArbiterConfig) *Arbiter {
	def := DefaultArbiterConfig()
	if cfg.SingleConfidence == 0 {
		cfg.SingleConfidence = def.SingleConfidence
	}
	if cfg.MultiConfidence == 0 {
		cfg.MultiConfidence = def.MultiConfidence
	}
	if cfg.MultiMaxMatches < 2 {
		cfg.MultiMaxMatches = def.MultiMaxMatches
	}
	return &Arbiter{cfg: cfg}
}

// Decide applies the policy with the default configuration.
func Decide(matchedIDs []int64, insurers []model.Insurer) Decision {
	return NewArbiter(DefaultArbiterConfig()).Decide(matchedIDs, insurers)
}

// Decide classifies matchedIDs by count of distinct ids. insurers is only
// consulted for the display name in single-match reasoning.
func (a *Arbiter) Decide(matchedIDs []int64, insurers []model.Insurer) Decision {
	matchedIDs = uniqueIDs(matchedIDs)
	n := len(matchedIDs)
	switch {
	case n == 1:
		name := fmt.Sprintf("ID %d", matchedIDs[0])
		for _, ins := range insurers {
			if ins.ID == matchedIDs[0] {
				name = ins.Name
				break
			}
		}
		return Decision{Result: model.MatchResult{
			InsurerIDs: []int64{matchedIDs[0]},
			Confidence: a.cfg.SingleConfidence,
			Method:     model.MatchDeterministicSingle,
			Reasoning:  "Exact name match: " + name,
		}}
	case n >= 2 && n <= a.cfg.MultiMaxMatches:
		return Decision{Result: model.MatchResult{
			InsurerIDs: matchedIDs,
			Confidence: a.cfg.MultiConfidence,
			Method:     model.MatchDeterministicMulti,
			Reasoning:  fmt.Sprintf("Found %d name matches", n),
		}}
	case n > a.cfg.MultiMaxMatches:
		return Decision{
			Result:   model.Unmatched(fmt.Sprintf("Too many matches (%d), needs AI disambiguation", n)),
			Escalate: true,
		}
	default:
		return Decision{Result: model.Unmatched(ReasonNoDeterministicMatch), Escalate: true}
	}
}

// uniqueIDs returns a fresh slice of ids in first-seen order without repeats.
func uniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
