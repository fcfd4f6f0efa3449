package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brasilintel/internal/dedup"
	"github.com/sells-group/brasilintel/internal/matcher"
	"github.com/sells-group/brasilintel/internal/model"
)

type vectorEncoder map[string][]float32

func (v vectorEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = v[t]
	}
	return out, nil
}

func (vectorEncoder) Model() string { return "test" }

func roster() []model.Insurer {
	return []model.Insurer{
		{ID: 1, Name: "Porto Seguro", Enabled: true},
		{ID: 2, Name: "SulAmérica", Enabled: true},
		{ID: 3, Name: "Mapfre", Enabled: true},
	}
}

func newPipeline(t *testing.T) *matcher.Pipeline {
	t.Helper()
	p, err := matcher.NewPipeline(
		matcher.NewMatcher(matcher.DefaultShortNameMinLength),
		matcher.NewArbiter(matcher.DefaultArbiterConfig()),
		nil,
		matcher.PipelineConfig{Workers: 2},
	)
	require.NoError(t, err)
	return p
}

func TestNew_RequiresPipeline(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

func TestRun_DedupThenMatch(t *testing.T) {
	d1 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.Add(time.Hour)
	articles := []model.Article{
		{Title: "Porto Seguro lucra", Description: "curta", SourceName: "Valor", PublishedAt: &d2},
		{Title: "Porto Seguro tem lucro", Description: "bem mais longa", SourceName: "Estadão", PublishedAt: &d1},
		{Title: "Sul América e Mapfre", SourceName: "Folha"},
		{Title: "Mercado de seguros cresce", SourceName: "G1"},
	}
	enc := vectorEncoder{
		articles[0].SearchText(): {1, 0, 0},
		articles[1].SearchText(): {1, 0, 0},
		articles[2].SearchText(): {0, 1, 0},
		articles[3].SearchText(): {0, 0, 1},
	}
	dd, err := dedup.New(dedup.DefaultSimilarityThreshold, dedup.Static(enc), nil)
	require.NoError(t, err)

	r, err := New(dd, newPipeline(t))
	require.NoError(t, err)

	runID := int64(42)
	report, err := r.Run(context.Background(), articles, roster(), &runID)
	require.NoError(t, err)

	assert.Equal(t, 4, report.InputCount)
	assert.Equal(t, 3, report.DedupedCount)
	require.Len(t, report.Items, 3)
	assert.Equal(t, &runID, report.CorrelationID)

	merged := report.Items[0]
	assert.Equal(t, "Porto Seguro tem lucro", merged.Article.Title)
	assert.Equal(t, "Estadão, Valor", merged.Article.SourceName)
	assert.Equal(t, model.MatchDeterministicSingle, merged.Result.Method)
	assert.Equal(t, []int64{1}, merged.Result.InsurerIDs)

	assert.Equal(t, model.MatchDeterministicMulti, report.Items[1].Result.Method)
	assert.Equal(t, []int64{2, 3}, report.Items[1].Result.InsurerIDs)

	assert.Equal(t, model.MatchUnmatched, report.Items[2].Result.Method)

	assert.Equal(t, matcher.BatchStats{
		Total:               3,
		DeterministicSingle: 1,
		DeterministicMulti:  1,
		Unmatched:           1,
		Escalated:           1,
	}, report.Stats)
}

func TestRun_WithoutDedup(t *testing.T) {
	r, err := New(nil, newPipeline(t))
	require.NoError(t, err)

	articles := []model.Article{{Title: "Porto Seguro"}, {Title: "Porto Seguro"}}
	report, err := r.Run(context.Background(), articles, roster(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.DedupedCount)
	assert.Len(t, report.Items, 2)
	assert.Nil(t, report.CorrelationID)
}

func TestRun_CancelledContext(t *testing.T) {
	r, err := New(nil, newPipeline(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Run(ctx, nil, roster(), nil)
	assert.Error(t, err)
}

func TestRun_EmptyBatch(t *testing.T) {
	r, err := New(nil, newPipeline(t))
	require.NoError(t, err)

	report, err := r.Run(context.Background(), nil, roster(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Items)
	assert.Zero(t, report.Stats.Total)
}
