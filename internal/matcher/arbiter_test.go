package matcher

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brasilintel/internal/model"
)

func TestDecide_CardinalityMapping(t *testing.T) {
	t.Parallel()
	roster := testRoster()

	for n := 0; n <= 12; n++ {
		ids := make([]int64, n)
		for i := range ids {
			ids[i] = int64(100 + i)
		}

		t.Run(fmt.Sprintf("%d_matches", n), func(t *testing.T) {
			t.Parallel()
			dec := Decide(ids, roster)
			require.NoError(t, dec.Result.Validate())

			switch {
			case n == 1:
				assert.False(t, dec.Escalate)
				assert.Equal(t, model.MatchDeterministicSingle, dec.Result.Method)
				assert.Equal(t, 0.95, dec.Result.Confidence)
				assert.Equal(t, ids, dec.Result.InsurerIDs)
			case n == 2 || n == 3:
				assert.False(t, dec.Escalate)
				assert.Equal(t, model.MatchDeterministicMulti, dec.Result.Method)
				assert.Equal(t, 0.85, dec.Result.Confidence)
				assert.ElementsMatch(t, ids, dec.Result.InsurerIDs)
				assert.Equal(t, fmt.Sprintf("Found %d name matches", n), dec.Result.Reasoning)
			case n == 0:
				assert.True(t, dec.Escalate)
				assert.Equal(t, model.MatchUnmatched, dec.Result.Method)
				assert.Equal(t, ReasonNoDeterministicMatch, dec.Result.Reasoning)
			default:
				assert.True(t, dec.Escalate)
				assert.Equal(t, model.MatchUnmatched, dec.Result.Method)
				assert.Equal(t, 0.0, dec.Result.Confidence)
				assert.Empty(t, dec.Result.InsurerIDs)
				assert.Equal(t, fmt.Sprintf("Too many matches (%d), needs AI disambiguation", n), dec.Result.Reasoning)
			}
		})
	}
}

func TestDecide_SingleUsesDisplayName(t *testing.T) {
	t.Parallel()
	dec := Decide([]int64{2}, testRoster())
	assert.Equal(t, "Exact name match: SulAmérica", dec.Result.Reasoning)

	dec = Decide([]int64{77}, testRoster())
	assert.Equal(t, "Exact name match: ID 77", dec.Result.Reasoning)
}

func TestDecide_DoesNotAliasInput(t *testing.T) {
	t.Parallel()
	ids := []int64{1, 2}
	dec := Decide(ids, nil)
	ids[0] = 99
	assert.Equal(t, []int64{1, 2}, dec.Result.InsurerIDs)
}

func TestNewArbiter_Defaults(t *testing.T) {
	t.Parallel()
	a := NewArbiter(ArbiterConfig{})
	assert.Equal(t, DefaultArbiterConfig(), a.cfg)

	a = NewArbiter(ArbiterConfig{SingleConfidence: 0.9, MultiConfidence: 0.7, MultiMaxMatches: 2})
	dec := a.Decide([]int64{1, 2, 3}, nil)
	assert.True(t, dec.Escalate)
	assert.Equal(t, 0.9, a.Decide([]int64{1}, nil).Result.Confidence)
}

func TestEndToEnd_DeterministicSingle(t *testing.T) {
	t.Parallel()
	roster := []model.Insurer{
		{ID: 1, Name: "Porto Seguro", SearchTerms: model.ParseSearchTerms("")},
		{ID: 2, Name: "SulAmérica", SearchTerms: model.ParseSearchTerms("Sul America Seguros")},
	}
	article := model.Article{Title: "Porto Seguro anuncia novo CEO", Description: ""}

	ids := NewMatcher(0).Match(article, roster)
	assert.Equal(t, []int64{1}, ids)

	dec := Decide(ids, roster)
	assert.False(t, dec.Escalate)
	assert.Equal(t, model.MatchDeterministicSingle, dec.Result.Method)
	assert.Equal(t, 0.95, dec.Result.Confidence)
}

func TestDecide_RepeatedIDsCountOnce(t *testing.T) {
	t.Parallel()
	roster := []model.Insurer{
		{ID: 1, Name: "Porto Seguro"},
		{ID: 1, Name: "Porto Seguro Cia"},
		{ID: 2, Name: "Mapfre"},
	}
	ids := NewMatcher(0).Match(model.Article{Title: "Porto Seguro Cia e Mapfre fecham acordo"}, roster)
	assert.Equal(t, []int64{1, 2}, ids)

	dec := Decide([]int64{1, 1, 2}, roster)
	assert.Equal(t, model.MatchDeterministicMulti, dec.Result.Method)
	assert.Equal(t, []int64{1, 2}, dec.Result.InsurerIDs)
	assert.Equal(t, "Found 2 name matches", dec.Result.Reasoning)
	require.NoError(t, dec.Result.Validate())

	dec = Decide([]int64{3, 3}, nil)
	assert.Equal(t, model.MatchDeterministicSingle, dec.Result.Method)
	assert.Equal(t, []int64{3}, dec.Result.InsurerIDs)
	require.NoError(t, dec.Result.Validate())
}
