// Command evaluate-search scores retrieval quality against a labeled
// query dataset using standard IR metrics (nDCG, MRR, precision, recall).
// By default it runs live queries through the wired orchestrator;
// -simulate scores the ceiling a perfect ranker would achieve instead,
// useful for sanity-checking the dataset itself.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mvkhanh/keyframesearch/config"
	"github.com/mvkhanh/keyframesearch/internal/embedder"
	"github.com/mvkhanh/keyframesearch/internal/evaluation"
	"github.com/mvkhanh/keyframesearch/internal/metadatastore"
	"github.com/mvkhanh/keyframesearch/internal/models"
	"github.com/mvkhanh/keyframesearch/internal/orchestrator"
	"github.com/mvkhanh/keyframesearch/internal/pathresolver"
	"github.com/mvkhanh/keyframesearch/internal/vectorindex"
	"github.com/mvkhanh/keyframesearch/pkg/database"
	"github.com/mvkhanh/keyframesearch/pkg/opensearch"
	"github.com/mvkhanh/keyframesearch/pkg/redis"
)

func main() {
	datasetPath := flag.String("dataset", "testdata/search_evaluation_dataset.yaml", "path to evaluation dataset YAML file")
	outputPath := flag.String("output", "", "path to output JSON file (optional, defaults to stdout only)")
	simulate := flag.Bool("simulate", false, "score the ideal ranking instead of running live queries")
	topK := flag.Int("topk", 10, "number of results requested per query")
	flag.Parse()

	ds, err := evaluation.LoadDataset(*datasetPath)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}
	log.Printf("loaded %d evaluation queries", len(ds.Queries))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var provider evaluation.ResultsProvider
	if *simulate {
		provider = simulatedProvider(ds)
	} else {
		orch, err := buildOrchestrator()
		if err != nil {
			log.Fatalf("failed to build orchestrator: %v", err)
		}
		provider = liveProvider(orch, *topK)
	}

	report, err := evaluation.Evaluate(ctx, ds, provider)
	if err != nil {
		log.Fatalf("evaluation failed: %v", err)
	}

	printReport(report)

	if *outputPath != "" {
		if err := writeReport(*outputPath, report); err != nil {
			log.Fatalf("failed to write output file: %v", err)
		}
		log.Printf("results written to: %s", *outputPath)
	}

	if hasCritical(report) {
		os.Exit(1)
	}
}

func simulatedProvider(ds *evaluation.Dataset) evaluation.ResultsProvider {
	byQuery := make(map[string]evaluation.Query, len(ds.Queries))
	for _, q := range ds.Queries {
		byQuery[q.Text] = q
	}
	return func(_ context.Context, query string) ([]uint64, error) {
		q, ok := byQuery[query]
		if !ok {
			return nil, nil
		}
		return evaluation.SimulateIdealResults(q), nil
	}
}

func liveProvider(orch *orchestrator.Orchestrator, topK int) evaluation.ResultsProvider {
	return func(ctx context.Context, query string) ([]uint64, error) {
		resp, err := orch.Search(ctx, models.UnifiedRequest{Query: query, Page: 1, Size: topK})
		if err != nil {
			return nil, err
		}
		ids := make([]uint64, len(resp.Results))
		for i, r := range resp.Results {
			ids[i] = r.ID
		}
		return ids, nil
	}
}

func buildOrchestrator() (*orchestrator.Orchestrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := database.NewDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	osClient, err := opensearch.NewClient(opensearch.Config{
		URL:                cfg.OpenSearch.URL,
		Username:           cfg.OpenSearch.Username,
		Password:           cfg.OpenSearch.Password,
		InsecureSkipVerify: cfg.OpenSearch.InsecureSkipVerify,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to opensearch: %w", err)
	}

	vecIndex := vectorindex.NewPostgresIndex(db.Pool, cfg.VectorIndex.CollectionName)
	ftsEngine := metadatastore.NewOpenSearchFTS(osClient, cfg.OpenSearch.ASRIndex, cfg.OpenSearch.OCRIndex)
	store := metadatastore.NewPostgresStore(db.Pool, ftsEngine)
	resolver := pathresolver.New(cfg.Server.DataRoot)

	orch := orchestrator.New(vecIndex, store, resolver, noopEmbedder{}, embedder.NoopTranslator{}, cfg.HybridSearch, cfg.Timeouts)
	if cfg.Cache.Enabled {
		if redisClient, rerr := redis.NewClient(cfg.Redis); rerr == nil {
			orchestrator.WrapChannelsWithCache(orch, redisClient, cfg.Cache.TTL)
		} else {
			log.Printf("channel cache disabled: %v", rerr)
		}
	}
	return orch, nil
}

type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, fmt.Errorf("no embedding model configured")
}

func printReport(report *evaluation.Report) {
	fmt.Println()
	fmt.Println("Aggregate Metrics")
	fmt.Println("-----------------")
	fmt.Printf("  nDCG@5:       %.4f\n", report.Metrics.MeanNDCG5)
	fmt.Printf("  nDCG@10:      %.4f\n", report.Metrics.MeanNDCG10)
	fmt.Printf("  MRR:          %.4f\n", report.Metrics.MeanMRR)
	fmt.Printf("  Precision@5:  %.4f\n", report.Metrics.MeanPrecision5)
	fmt.Printf("  Precision@10: %.4f\n", report.Metrics.MeanPrecision10)
	fmt.Printf("  Recall@10:    %.4f\n", report.Metrics.MeanRecall10)
	fmt.Printf("  Query Count:  %d\n", report.Metrics.QueryCount)
	fmt.Println()

	if len(report.Status) == 0 {
		return
	}
	fmt.Println("Target Comparison")
	fmt.Println("-----------------")
	for key, status := range report.Status {
		fmt.Printf("  %-16s %s\n", key, status)
	}
	fmt.Println()
}

func hasCritical(report *evaluation.Report) bool {
	for _, status := range report.Status {
		if status == "critical" {
			return true
		}
	}
	return false
}

func writeReport(path string, report *evaluation.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
