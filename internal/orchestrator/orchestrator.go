// Package orchestrator fans out a unified search request across the
// active retrieval channels, fuses their ranked candidate lists, applies
// the object-count and scope filters, and materializes the final page.
package orchestrator

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/mvkhanh/keyframesearch/config"
	"github.com/mvkhanh/keyframesearch/internal/apperrors"
	"github.com/mvkhanh/keyframesearch/internal/embedder"
	"github.com/mvkhanh/keyframesearch/internal/metadatastore"
	"github.com/mvkhanh/keyframesearch/internal/models"
	"github.com/mvkhanh/keyframesearch/internal/objectfilter"
	"github.com/mvkhanh/keyframesearch/internal/pathresolver"
	"github.com/mvkhanh/keyframesearch/internal/rankfusion"
	"github.com/mvkhanh/keyframesearch/internal/vectorindex"
	"github.com/mvkhanh/keyframesearch/pkg/logger"
	"github.com/mvkhanh/keyframesearch/pkg/metrics"
)

// Orchestrator is the SearchOrchestrator: it owns shared read-only
// references to the vector index, metadata store, and embedding
// adapters, constructed once at process startup.
type Orchestrator struct {
	Vector     vectorindex.Index
	Store      metadatastore.Store
	Resolver   *pathresolver.Resolver
	Embedder   embedder.Embedder
	Translator embedder.Translator
	Channels   []Channel
	Hybrid     config.HybridSearchConfig
	Timeouts   config.TimeoutsConfig
}

// New builds an Orchestrator wired with the standard three channels.
func New(vec vectorindex.Index, store metadatastore.Store, resolver *pathresolver.Resolver, emb embedder.Embedder, tr embedder.Translator, hybrid config.HybridSearchConfig, timeouts config.TimeoutsConfig) *Orchestrator {
	channels := []Channel{
		&VectorChannel{Index: vec},
		&ASRChannel{Store: store, FPS: hybrid.ASRFPS, PerRangeLimit: hybrid.ASRPerRangeLimit},
		&OCRChannel{Store: store},
	}
	return &Orchestrator{
		Vector: vec, Store: store, Resolver: resolver,
		Embedder: emb, Translator: tr, Channels: channels,
		Hybrid: hybrid, Timeouts: timeouts,
	}
}

func applyDefaults(req *models.UnifiedRequest, cfg config.HybridSearchConfig) {
	if req.WeightVec == 0 && req.WeightASR == 0 && req.WeightOCR == 0 {
		req.WeightVec = cfg.DefaultWeightVector
		req.WeightASR = cfg.DefaultWeightASR
		req.WeightOCR = cfg.DefaultWeightOCR
	}
	if req.Oversample <= 0 {
		req.Oversample = cfg.DefaultOversample
	}
	if req.Page <= 0 {
		req.Page = 1
	}
}

func validate(req models.UnifiedRequest) error {
	if req.Size < 1 || req.Size > 500 {
		return apperrors.BadRequest("size must be in [1,500], got %d", req.Size)
	}
	if req.Page < 1 {
		return apperrors.BadRequest("page must be >= 1, got %d", req.Page)
	}
	if req.WeightVec < 0 || req.WeightASR < 0 || req.WeightOCR < 0 {
		return apperrors.BadRequest("channel weights must be non-negative")
	}
	if err := objectfilter.Validate(req.ObjFilters); err != nil {
		return apperrors.BadRequest("%v", err)
	}
	return nil
}

type channelOutcome struct {
	name   string
	weight float64
	ids    []uint64
	err    error
}

// Search runs the full §4.4 algorithm: embed, fan out, fuse, filter,
// materialize, resolve.
func (o *Orchestrator) Search(ctx context.Context, req models.UnifiedRequest) (*models.SearchResponse, error) {
	start := time.Now()
	applyDefaults(&req, o.Hybrid)

	if err := validate(req); err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("bad_request").Inc()
		return nil, err
	}

	if err := apperrors.FromContext(ctx); err != nil {
		return nil, err
	}

	embedding, err := o.resolveEmbedding(ctx, req.Query)
	if err != nil {
		logger.Warn("embedding resolution failed, vector channel disabled", map[string]interface{}{"error": err.Error()})
		embedding = nil
	}

	outcomes := o.runChannels(ctx, req, embedding)

	activeCount, failedCount := 0, 0
	rankings := make([]rankfusion.ChannelRanking, 0, len(outcomes))
	for _, oc := range outcomes {
		activeCount++
		if oc.err != nil {
			failedCount++
			metrics.ChannelErrorTotal.WithLabelValues(oc.name).Inc()
			logger.GetLogger().ChannelTiming("", oc.name, 0, 0, oc.err)
			continue
		}
		weight := oc.weight
		rankings = append(rankings, rankfusion.ChannelRanking{
			Weight: weight,
			Ranks:  rankfusion.RanksFromOrder(oc.ids),
		})
	}

	if activeCount > 0 && failedCount == activeCount {
		metrics.SearchRequestsTotal.WithLabelValues("unavailable").Inc()
		return nil, apperrors.Unavailable("all active retrieval channels failed")
	}

	fused := rankfusion.Fuse(rankings, o.Hybrid.RRFConstantK)
	metrics.FusionCandidateCount.Observe(float64(len(fused)))

	candidateIDs := make([]uint64, len(fused))
	for i, s := range fused {
		candidateIDs[i] = s.ID
	}

	if len(req.ObjFilters) > 0 {
		before := len(candidateIDs)
		candidateIDs, err = o.Store.FilterByObjects(ctx, candidateIDs, req.ObjFilters)
		if err != nil {
			metrics.SearchRequestsTotal.WithLabelValues("unavailable").Inc()
			return nil, err
		}
		metrics.ObjectFilterDroppedCount.Observe(float64(before - len(candidateIDs)))
	}

	// An empty candidate list must not reach GetByKeys, which treats no
	// keys as "list every keyframe".
	var rows []models.Keyframe
	if len(candidateIDs) > 0 {
		rows, err = o.Store.GetByKeys(ctx, candidateIDs, req.GroupNums, req.VideoNums, req.Page, req.Size)
		if err != nil {
			metrics.SearchRequestsTotal.WithLabelValues("unavailable").Inc()
			return nil, err
		}
	}

	total, err := o.Vector.Size(ctx)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("unavailable").Inc()
		return nil, err
	}
	totalPage := 0
	if req.Size > 0 {
		totalPage = int(math.Ceil(float64(total) / float64(req.Size)))
	}

	results := make([]models.SearchResult, len(rows))
	for i, row := range rows {
		results[i] = models.SearchResult{ID: row.Key, Path: o.Resolver.Path(row)}
	}

	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	metrics.SearchRequestDuration.Observe(float64(time.Since(start).Milliseconds()))

	return &models.SearchResponse{TotalPage: totalPage, Results: results}, nil
}

// resolveEmbedding translates and embeds the query text. An empty query
// yields a nil embedding (no vector channel), not an error.
func (o *Orchestrator) resolveEmbedding(ctx context.Context, query string) ([]float32, error) {
	if query == "" {
		return nil, nil
	}

	translateCtx, cancel := context.WithTimeout(ctx, o.Timeouts.Translate)
	defer cancel()
	translated, err := o.Translator.Translate(translateCtx, query)
	if err != nil {
		return nil, err
	}

	embedCtx, cancel := context.WithTimeout(ctx, o.Timeouts.Embed)
	defer cancel()
	return o.Embedder.Embed(embedCtx, translated)
}

// runChannels fans out every active channel concurrently, each against
// its own timeout, and joins before returning. A timed-out or failed
// channel is recorded but never blocks the others, matching the
// concurrency model's no-partial-response-at-the-join contract: failures
// are resolved to an empty ranked list here, the caller decides whether
// that adds up to a total failure.
func (o *Orchestrator) runChannels(ctx context.Context, req models.UnifiedRequest, embedding []float32) []channelOutcome {
	active := make([]Channel, 0, len(o.Channels))
	for _, ch := range o.Channels {
		if ch.Active(req, embedding) {
			active = append(active, ch)
		}
	}

	var wg sync.WaitGroup
	outcomes := make([]channelOutcome, len(active))

	for i, ch := range active {
		wg.Add(1)
		go func(idx int, c Channel) {
			defer wg.Done()
			outcomes[idx] = o.runOneChannel(ctx, c, req, embedding)
		}(i, ch)
	}

	wg.Wait()
	return outcomes
}

func (o *Orchestrator) runOneChannel(ctx context.Context, ch Channel, req models.UnifiedRequest, embedding []float32) channelOutcome {
	timeout := o.Timeouts.VectorIndex
	if ch.Name() != "vector" {
		timeout = o.Timeouts.MetadataStore
	}
	chCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	ids, err := ch.Rank(chCtx, req, embedding)
	elapsed := time.Since(start)

	metrics.ChannelDuration.WithLabelValues(ch.Name()).Observe(float64(elapsed.Milliseconds()))
	if err != nil {
		if chCtx.Err() != nil {
			metrics.ChannelTimeoutTotal.WithLabelValues(ch.Name()).Inc()
		}
		return channelOutcome{name: ch.Name(), err: err}
	}

	metrics.ChannelResultCount.WithLabelValues(ch.Name()).Observe(float64(len(ids)))
	logger.GetLogger().ChannelTiming("", ch.Name(), elapsed, len(ids), nil)

	return channelOutcome{name: ch.Name(), weight: weightFor(ch.Name(), req), ids: ids}
}

func weightFor(channel string, req models.UnifiedRequest) float64 {
	switch channel {
	case "vector":
		return req.WeightVec
	case "asr":
		return req.WeightASR
	case "ocr":
		return req.WeightOCR
	default:
		return 0
	}
}
