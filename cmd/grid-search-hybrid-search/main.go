// Command grid-search-hybrid-search sweeps vector/ASR/OCR channel weight
// combinations against a labeled query dataset to find the rank-fusion
// weights that maximize nDCG@10.
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

// candidate is one weight combination's evaluation outcome.
type candidate struct {
	WeightVec float64                     `json:"weight_vector"`
	WeightASR float64                     `json:"weight_asr"`
	WeightOCR float64                     `json:"weight_ocr"`
	Metrics   evaluation.AggregateMetrics `json:"metrics"`
}

type report struct {
	Timestamp string      `json:"timestamp"`
	Tried     []candidate `json:"tried"`
	Best      candidate   `json:"best"`
}

func main() {
	datasetPath := flag.String("dataset", "testdata/search_evaluation_dataset.yaml", "path to evaluation dataset YAML file")
	outputPath := flag.String("output", "hybrid-search-grid-results.json", "path to output JSON file")
	quick := flag.Bool("quick", false, "test fewer weight combinations")
	verbose := flag.Bool("verbose", false, "print each combination's metrics as it runs")
	flag.Parse()

	ds, err := evaluation.LoadDataset(*datasetPath)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}
	log.Printf("loaded %d evaluation queries", len(ds.Queries))

	orch, err := buildOrchestrator()
	if err != nil {
		log.Fatalf("failed to build orchestrator: %v", err)
	}

	weights := []float64{0.0, 0.5, 1.0}
	if !*quick {
		weights = []float64{0.0, 0.25, 0.5, 0.75, 1.0}
	}

	ctx := context.Background()
	var tried []candidate

	for _, wv := range weights {
		for _, wa := range weights {
			for _, wo := range weights {
				if wv == 0 && wa == 0 && wo == 0 {
					continue
				}
				metrics, err := evaluateWeights(ctx, orch, ds, wv, wa, wo)
				if err != nil {
					log.Printf("skipping wv=%.2f wa=%.2f wo=%.2f: %v", wv, wa, wo, err)
					continue
				}
				c := candidate{WeightVec: wv, WeightASR: wa, WeightOCR: wo, Metrics: metrics}
				tried = append(tried, c)
				if *verbose {
					fmt.Printf("wv=%.2f wa=%.2f wo=%.2f -> nDCG@10=%.4f MRR=%.4f\n", wv, wa, wo, metrics.MeanNDCG10, metrics.MeanMRR)
				}
			}
		}
	}

	if len(tried) == 0 {
		log.Fatalf("no weight combination produced results")
	}

	best := bestByNDCG10(tried)
	printSummary(best, len(tried))

	out := report{Timestamp: time.Now().UTC().Format(time.RFC3339), Tried: tried, Best: best}
	if err := writeReport(*outputPath, &out); err != nil {
		log.Fatalf("failed to write output file: %v", err)
	}
	log.Printf("results written to: %s", *outputPath)
}

func evaluateWeights(ctx context.Context, orch *orchestrator.Orchestrator, ds *evaluation.Dataset, wv, wa, wo float64) (evaluation.AggregateMetrics, error) {
	provider := func(ctx context.Context, query string) ([]uint64, error) {
		resp, err := orch.Search(ctx, models.UnifiedRequest{
			Query: query, Page: 1, Size: 10,
			WeightVec: wv, WeightASR: wa, WeightOCR: wo,
		})
		if err != nil {
			return nil, err
		}
		ids := make([]uint64, len(resp.Results))
		for i, r := range resp.Results {
			ids[i] = r.ID
		}
		return ids, nil
	}

	rep, err := evaluation.Evaluate(ctx, ds, provider)
	if err != nil {
		return evaluation.AggregateMetrics{}, err
	}
	return rep.Metrics, nil
}

func bestByNDCG10(candidates []candidate) candidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Metrics.MeanNDCG10 > best.Metrics.MeanNDCG10 {
			best = c
		}
	}
	return best
}

func printSummary(best candidate, triedCount int) {
	fmt.Println()
	fmt.Println("Grid Search Summary")
	fmt.Println("--------------------")
	fmt.Printf("Tried %d weight combinations\n\n", triedCount)
	fmt.Println("Best Configuration:")
	fmt.Printf("  weight_vector: %.2f\n", best.WeightVec)
	fmt.Printf("  weight_asr:    %.2f\n", best.WeightASR)
	fmt.Printf("  weight_ocr:    %.2f\n", best.WeightOCR)
	fmt.Printf("  nDCG@10:       %.4f\n", best.Metrics.MeanNDCG10)
	fmt.Printf("  MRR:           %.4f\n", best.Metrics.MeanMRR)
	fmt.Println()
}

func writeReport(path string, r *report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0644)
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
