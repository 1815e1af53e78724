// Command api is the keyframe search process: it loads configuration,
// wires the vector index, metadata store, and rank-fusion orchestrator
// against Postgres, OpenSearch and Redis, and serves until signaled to
// stop. It carries no HTTP surface of its own; request entry points (an
// RPC listener, a queue consumer, a CLI front-end) are built against the
// Orchestrator and neighbor.Service wired up here.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mvkhanh/keyframesearch/config"
	"github.com/mvkhanh/keyframesearch/internal/embedder"
	"github.com/mvkhanh/keyframesearch/internal/metadatastore"
	"github.com/mvkhanh/keyframesearch/internal/neighbor"
	"github.com/mvkhanh/keyframesearch/internal/orchestrator"
	"github.com/mvkhanh/keyframesearch/internal/pathresolver"
	"github.com/mvkhanh/keyframesearch/internal/vectorindex"
	"github.com/mvkhanh/keyframesearch/pkg/database"
	"github.com/mvkhanh/keyframesearch/pkg/logger"
	"github.com/mvkhanh/keyframesearch/pkg/opensearch"
	"github.com/mvkhanh/keyframesearch/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger.Init(cfg.LogLevel)
	logger.Info("starting keyframe search service", map[string]interface{}{
		"environment": cfg.Server.Environment,
	})

	db, err := database.NewDB(cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", err)
	}
	defer db.Close()

	osClient, err := opensearch.NewClient(opensearch.Config{
		URL:                cfg.OpenSearch.URL,
		Username:           cfg.OpenSearch.Username,
		Password:           cfg.OpenSearch.Password,
		InsecureSkipVerify: cfg.OpenSearch.InsecureSkipVerify,
	})
	if err != nil {
		logger.Fatal("failed to connect to opensearch", err)
	}
	defer osClient.Close()

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", err)
	}
	defer redisClient.Close()

	vecIndex := vectorindex.NewPostgresIndex(db.Pool, cfg.VectorIndex.CollectionName)

	ftsEngine := metadatastore.NewOpenSearchFTS(osClient, cfg.OpenSearch.ASRIndex, cfg.OpenSearch.OCRIndex)
	store := metadatastore.NewPostgresStore(db.Pool, ftsEngine)

	resolver := pathresolver.New(cfg.Server.DataRoot)

	orch := orchestrator.New(
		vecIndex, store, resolver,
		noopEmbedder{}, embedder.NoopTranslator{},
		cfg.HybridSearch, cfg.Timeouts,
	)
	if cfg.Cache.Enabled {
		orchestrator.WrapChannelsWithCache(orch, redisClient, cfg.Cache.TTL)
	}
	neighbors := neighbor.New(vecIndex, store, resolver)

	_ = neighbors

	logger.Info("keyframe search service ready", nil)

	waitForShutdown()

	logger.Info("keyframe search service shutting down", nil)
}

// noopEmbedder is the default Embedder until a real model client is
// wired in; it always fails, which the orchestrator treats as "no query
// embedding available" rather than a request failure.
type noopEmbedder struct{}

var errEmbeddingNotConfigured = errors.New("no embedding model configured")

func (noopEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, errEmbeddingNotConfigured
}

func waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	_, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
}
