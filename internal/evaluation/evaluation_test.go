package evaluation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNDCG_PerfectRankingIsOne(t *testing.T) {
	assert.InDelta(t, 1.0, ndcg([]int{4, 3, 2}, 3), 1e-9)
}

func TestNDCG_EmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, ndcg(nil, 5))
}

func TestReciprocalRank_FirstRelevantAtRankThree(t *testing.T) {
	rr := reciprocalRank([]int{0, 1, 3}, 2)
	assert.InDelta(t, 1.0/3.0, rr, 1e-9)
}

func TestReciprocalRank_NoRelevantIsZero(t *testing.T) {
	assert.Equal(t, 0.0, reciprocalRank([]int{0, 1}, 2))
}

func TestPrecisionAt_CountsAboveThreshold(t *testing.T) {
	assert.InDelta(t, 2.0/5.0, precisionAt([]int{3, 0, 2, 0, 0}, 5, 2), 1e-9)
}

func TestRecallAt_DividesByTotalRelevant(t *testing.T) {
	assert.InDelta(t, 1.0/2.0, recallAt([]int{3, 0}, 2, 2, 2), 1e-9)
}

func TestEvaluate_AggregatesAcrossQueries(t *testing.T) {
	ds := &Dataset{
		Queries: []Query{
			{ID: "q1", Text: "a cat on a table", Relevant: []RelevantKeyframe{
				{Key: 100, Relevance: 4}, {Key: 200, Relevance: 3},
			}},
			{ID: "q2", Text: "a dog running", Relevant: []RelevantKeyframe{
				{Key: 300, Relevance: 4},
			}},
		},
	}

	provider := func(_ context.Context, query string) ([]uint64, error) {
		for _, q := range ds.Queries {
			if q.Text == query {
				return SimulateIdealResults(q), nil
			}
		}
		return nil, nil
	}

	report, err := Evaluate(context.Background(), ds, provider)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Metrics.QueryCount)
	assert.InDelta(t, 1.0, report.Metrics.MeanNDCG5, 1e-9)
	assert.InDelta(t, 1.0, report.Metrics.MeanMRR, 1e-9)
}

func TestEvaluate_MissingResultsScoreZero(t *testing.T) {
	ds := &Dataset{
		Queries: []Query{
			{ID: "q1", Text: "nothing found", Relevant: []RelevantKeyframe{{Key: 1, Relevance: 4}}},
		},
	}
	provider := func(_ context.Context, _ string) ([]uint64, error) { return nil, nil }

	report, err := Evaluate(context.Background(), ds, provider)
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.Metrics.MeanNDCG10)
}

func TestCheckTargets_PassWarningCritical(t *testing.T) {
	targets := map[string]MetricTarget{
		"ndcg_at_10": {Target: 0.8, WarningThreshold: 0.5},
	}
	assert.Equal(t, "pass", statusFor(0.9, targets["ndcg_at_10"]))
	assert.Equal(t, "warning", statusFor(0.6, targets["ndcg_at_10"]))
	assert.Equal(t, "critical", statusFor(0.1, targets["ndcg_at_10"]))
}
