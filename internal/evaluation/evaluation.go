// Package evaluation measures retrieval quality against a labeled query
// set using standard IR metrics (nDCG, MRR, precision, recall), the same
// offline check used to compare rank-fusion weight configurations before
// they ship.
package evaluation

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Dataset is a labeled evaluation query set loaded from YAML.
type Dataset struct {
	Version       string                  `yaml:"version"`
	Description   string                  `yaml:"description"`
	Queries       []Query                 `yaml:"evaluation_queries"`
	MetricTargets map[string]MetricTarget `yaml:"metric_targets"`
	Guidelines    []string                `yaml:"evaluation_guidelines"`
}

// Query is one labeled query with its relevance judgments.
type Query struct {
	ID          string            `yaml:"id"`
	Text        string            `yaml:"query"`
	Description string            `yaml:"description"`
	Relevant    []RelevantKeyframe `yaml:"relevant_keyframes"`
}

// RelevantKeyframe is a ground-truth judgment for one candidate.
type RelevantKeyframe struct {
	Key       uint64 `yaml:"key"`
	Relevance int    `yaml:"relevance"` // 0-4 scale
	Reason    string `yaml:"reason"`
}

// MetricTarget names the pass/warning/critical thresholds for one metric.
type MetricTarget struct {
	Target            float64 `yaml:"target"`
	Description       string  `yaml:"description"`
	WarningThreshold  float64 `yaml:"warning_threshold"`
	CriticalThreshold float64 `yaml:"critical_threshold"`
}

// relevantThreshold is the minimum judged relevance counted as "relevant"
// for MRR/precision/recall (the nDCG gain curve uses the raw 0-4 scale).
const relevantThreshold = 2

// QueryResult holds one query's computed metrics.
type QueryResult struct {
	QueryID          string
	Query            string
	NDCG5            float64
	NDCG10           float64
	MRR              float64
	Precision5       float64
	Precision10      float64
	Recall10         float64
	RetrievedResults int
	RelevantResults  int
}

// AggregateMetrics is the mean of each metric across all queries.
type AggregateMetrics struct {
	MeanNDCG5       float64
	MeanNDCG10      float64
	MeanMRR         float64
	MeanPrecision5  float64
	MeanPrecision10 float64
	MeanRecall10    float64
	QueryCount      int
}

// Report is a full evaluation run: per-query results, their aggregate,
// and pass/warning/critical status against the dataset's targets.
type Report struct {
	Metrics      AggregateMetrics
	QueryResults []QueryResult
	Targets      map[string]MetricTarget
	Status       map[string]string
}

// LoadDataset reads and parses a YAML evaluation dataset.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset file: %w", err)
	}
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset yaml: %w", err)
	}
	return &ds, nil
}

// ResultsProvider runs a query through whatever search implementation is
// under evaluation and returns candidate keys in rank order.
type ResultsProvider func(ctx context.Context, query string) ([]uint64, error)

// Evaluate runs every query in ds through provider and aggregates metrics.
func Evaluate(ctx context.Context, ds *Dataset, provider ResultsProvider) (*Report, error) {
	results := make([]QueryResult, 0, len(ds.Queries))

	for _, q := range ds.Queries {
		retrieved, err := provider(ctx, q.Text)
		if err != nil {
			retrieved = nil
		}
		results = append(results, evaluateQuery(q, retrieved))
	}

	aggregate := aggregateMetrics(results)
	status := checkTargets(ds.MetricTargets, aggregate)

	return &Report{Metrics: aggregate, QueryResults: results, Targets: ds.MetricTargets, Status: status}, nil
}

func evaluateQuery(q Query, retrieved []uint64) QueryResult {
	relevanceOf := make(map[uint64]int, len(q.Relevant))
	totalRelevant := 0
	for _, rk := range q.Relevant {
		relevanceOf[rk.Key] = rk.Relevance
		if rk.Relevance >= relevantThreshold {
			totalRelevant++
		}
	}

	relevances := make([]int, len(retrieved))
	relevantRetrieved := 0
	for i, key := range retrieved {
		rel := relevanceOf[key]
		relevances[i] = rel
		if rel >= relevantThreshold {
			relevantRetrieved++
		}
	}

	return QueryResult{
		QueryID:          q.ID,
		Query:            q.Text,
		NDCG5:            ndcg(relevances, 5),
		NDCG10:           ndcg(relevances, 10),
		MRR:              reciprocalRank(relevances, relevantThreshold),
		Precision5:       precisionAt(relevances, 5, relevantThreshold),
		Precision10:      precisionAt(relevances, 10, relevantThreshold),
		Recall10:         recallAt(relevances, 10, totalRelevant, relevantThreshold),
		RetrievedResults: len(retrieved),
		RelevantResults:  relevantRetrieved,
	}
}

// ndcg is Normalized Discounted Cumulative Gain at k: dcg/idcg where idcg
// is dcg computed over the same relevances sorted ideally.
func ndcg(relevances []int, k int) float64 {
	if len(relevances) == 0 || k <= 0 {
		return 0.0
	}
	dcg := dcgAt(relevances, k)

	ideal := make([]int, len(relevances))
	copy(ideal, relevances)
	sort.Sort(sort.Reverse(sort.IntSlice(ideal)))
	idcg := dcgAt(ideal, k)

	if idcg == 0 {
		return 0.0
	}
	return dcg / idcg
}

func dcgAt(relevances []int, k int) float64 {
	limit := k
	if limit > len(relevances) {
		limit = len(relevances)
	}
	dcg := 0.0
	for i := 0; i < limit; i++ {
		gain := float64(int(1<<uint(relevances[i])) - 1)
		dcg += gain / math.Log2(float64(i+2))
	}
	return dcg
}

func reciprocalRank(relevances []int, threshold int) float64 {
	for i, rel := range relevances {
		if rel >= threshold {
			return 1.0 / float64(i+1)
		}
	}
	return 0.0
}

func precisionAt(relevances []int, k, threshold int) float64 {
	if k <= 0 {
		return 0.0
	}
	limit := k
	if limit > len(relevances) {
		limit = len(relevances)
	}
	relevant := 0
	for i := 0; i < limit; i++ {
		if relevances[i] >= threshold {
			relevant++
		}
	}
	return float64(relevant) / float64(k)
}

func recallAt(relevances []int, k, totalRelevant, threshold int) float64 {
	if totalRelevant <= 0 || k <= 0 {
		return 0.0
	}
	limit := k
	if limit > len(relevances) {
		limit = len(relevances)
	}
	found := 0
	for i := 0; i < limit; i++ {
		if relevances[i] >= threshold {
			found++
		}
	}
	return float64(found) / float64(totalRelevant)
}

func aggregateMetrics(results []QueryResult) AggregateMetrics {
	if len(results) == 0 {
		return AggregateMetrics{}
	}
	var sumNDCG5, sumNDCG10, sumMRR, sumPrec5, sumPrec10, sumRecall10 float64
	for _, r := range results {
		sumNDCG5 += r.NDCG5
		sumNDCG10 += r.NDCG10
		sumMRR += r.MRR
		sumPrec5 += r.Precision5
		sumPrec10 += r.Precision10
		sumRecall10 += r.Recall10
	}
	n := float64(len(results))
	return AggregateMetrics{
		MeanNDCG5:       sumNDCG5 / n,
		MeanNDCG10:      sumNDCG10 / n,
		MeanMRR:         sumMRR / n,
		MeanPrecision5:  sumPrec5 / n,
		MeanPrecision10: sumPrec10 / n,
		MeanRecall10:    sumRecall10 / n,
		QueryCount:      len(results),
	}
}

func checkTargets(targets map[string]MetricTarget, m AggregateMetrics) map[string]string {
	if targets == nil {
		return nil
	}
	status := make(map[string]string)
	check := func(key string, value float64) {
		if target, ok := targets[key]; ok {
			status[key] = statusFor(value, target)
		}
	}
	check("ndcg_at_5", m.MeanNDCG5)
	check("ndcg_at_10", m.MeanNDCG10)
	check("mrr", m.MeanMRR)
	check("precision_at_5", m.MeanPrecision5)
	check("precision_at_10", m.MeanPrecision10)
	check("recall_at_10", m.MeanRecall10)
	return status
}

func statusFor(value float64, target MetricTarget) string {
	if value >= target.Target {
		return "pass"
	}
	if value >= target.WarningThreshold {
		return "warning"
	}
	return "critical"
}

// SimulateIdealResults returns the query's relevant keys sorted by
// descending relevance, the result a perfect ranker would produce. Useful
// for establishing a ceiling baseline without a live search backend.
func SimulateIdealResults(q Query) []uint64 {
	docs := make([]RelevantKeyframe, len(q.Relevant))
	copy(docs, q.Relevant)
	sort.Slice(docs, func(i, j int) bool { return docs[i].Relevance > docs[j].Relevance })

	keys := make([]uint64, len(docs))
	for i, d := range docs {
		keys[i] = d.Key
	}
	return keys
}
