package model

import (
	"github.com/rotisserie/eris"
)

// MatchMethod records how an article was matched to insurers.
type MatchMethod string

const (
	MatchDeterministicSingle MatchMethod = "deterministic_single" // exactly one name/term hit
	MatchDeterministicMulti  MatchMethod = "deterministic_multi"  // 2-3 hits
	MatchAIDisambiguation    MatchMethod = "ai_disambiguation"
	MatchUnmatched           MatchMethod = "unmatched"
)

// MatchResult is the per-article outcome of a matching pass. It is never
// mutated after creation.
type MatchResult struct {
	InsurerIDs []int64     `json:"insurer_ids"`
	Confidence float64     `json:"confidence"`
	Method     MatchMethod `json:"method"`
	Reasoning  string      `json:"reasoning"`
}

// Unmatched returns an empty result with zero confidence.
func Unmatched(reasoning string) MatchResult {
	return MatchResult{
		InsurerIDs: []int64{},
		Confidence: 0.0,
		Method:     MatchUnmatched,
		Reasoning:  reasoning,
	}
}

// Validate checks the cardinality and range invariants tied to Method.
func (r MatchResult) Validate() error {
	if r.Confidence < 0 || r.Confidence > 1 {
		return eris.Errorf("model: confidence %.3f out of range [0,1]", r.Confidence)
	}

	seen := make(map[int64]struct{}, len(r.InsurerIDs))
	for _, id := range r.InsurerIDs {
		if _, dup := seen[id]; dup {
			return eris.Errorf("model: duplicate insurer id %d", id)
		}
		seen[id] = struct{}{}
	}

	n := len(r.InsurerIDs)
	switch r.Method {
	case MatchUnmatched:
		if n != 0 || r.Confidence != 0 {
			return eris.New("model: unmatched result must have no ids and zero confidence")
		}
	case MatchDeterministicSingle:
		if n != 1 {
			return eris.Errorf("model: deterministic_single requires 1 id, got %d", n)
		}
	case MatchDeterministicMulti:
		if n < 2 || n > 3 {
			return eris.Errorf("model: deterministic_multi requires 2-3 ids, got %d", n)
		}
	case MatchAIDisambiguation:
	default:
		return eris.Errorf("model: unknown match method %q", r.Method)
	}
	return nil
}
