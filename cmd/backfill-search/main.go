// Command backfill-search creates the OpenSearch ASR/OCR indices and
// bulk-loads them from Postgres, the one-time population path for
// standing the native full-text engine up against an already-populated
// metadata store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/mvkhanh/keyframesearch/config"
	"github.com/mvkhanh/keyframesearch/internal/indexer"
	"github.com/mvkhanh/keyframesearch/pkg/database"
	"github.com/mvkhanh/keyframesearch/pkg/opensearch"
)

func main() {
	batchSize := flag.Int("batch", 500, "number of records to process in each batch")
	flag.Parse()

	log.Println("starting search index backfill")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := database.NewDB(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	osClient, err := opensearch.NewClient(opensearch.Config{
		URL:                cfg.OpenSearch.URL,
		Username:           cfg.OpenSearch.Username,
		Password:           cfg.OpenSearch.Password,
		InsecureSkipVerify: cfg.OpenSearch.InsecureSkipVerify,
	})
	if err != nil {
		log.Fatalf("failed to initialize opensearch client: %v", err)
	}

	ctx := context.Background()
	if err := osClient.Ping(ctx); err != nil {
		log.Fatalf("opensearch ping failed: %v", err)
	}
	log.Println("opensearch connection established")

	idx := indexer.New(osClient, cfg.OpenSearch.ASRIndex, cfg.OpenSearch.OCRIndex)

	log.Println("initializing indices")
	if err := idx.InitializeIndices(ctx); err != nil {
		log.Fatalf("failed to initialize indices: %v", err)
	}

	log.Println("backfilling ocr text")
	if err := backfillOCR(ctx, db, idx, *batchSize); err != nil {
		log.Fatalf("failed to backfill ocr: %v", err)
	}

	log.Println("backfilling asr captions")
	if err := backfillASR(ctx, db, idx, *batchSize); err != nil {
		log.Fatalf("failed to backfill asr: %v", err)
	}

	log.Println("backfill completed successfully")
}

func backfillOCR(ctx context.Context, db *database.DB, idx *indexer.Service, batchSize int) error {
	offset := 0
	total := 0

	for {
		rows, err := db.Pool.Query(ctx, `
			SELECT keyframe_key, text FROM keyframe_ocr ORDER BY keyframe_key LIMIT $1 OFFSET $2
		`, batchSize, offset)
		if err != nil {
			return fmt.Errorf("fetch ocr rows: %w", err)
		}

		var docs []indexer.OCRDocument
		for rows.Next() {
			var key int64
			var text string
			if err := rows.Scan(&key, &text); err != nil {
				rows.Close()
				return fmt.Errorf("scan ocr row: %w", err)
			}
			docs = append(docs, indexer.ToOCRDocument(uint64(key), text))
		}
		rows.Close()

		if len(docs) == 0 {
			break
		}

		if err := idx.BulkIndexOCR(ctx, docs); err != nil {
			return fmt.Errorf("bulk index ocr batch: %w", err)
		}

		total += len(docs)
		log.Printf("indexed %d ocr documents (total: %d)", len(docs), total)

		offset += batchSize
		time.Sleep(50 * time.Millisecond)
	}

	log.Printf("completed indexing %d ocr documents", total)
	return nil
}

func backfillASR(ctx context.Context, db *database.DB, idx *indexer.Service, batchSize int) error {
	offset := 0
	total := 0

	for {
		rows, err := db.Pool.Query(ctx, `
			SELECT group_num, video_num, start_time, end_time, text
			FROM speech_captions ORDER BY group_num, video_num, start_time LIMIT $1 OFFSET $2
		`, batchSize, offset)
		if err != nil {
			return fmt.Errorf("fetch caption rows: %w", err)
		}

		var docs []indexer.ASRDocument
		for rows.Next() {
			var groupNum, videoNum int
			var start, end float64
			var text string
			if err := rows.Scan(&groupNum, &videoNum, &start, &end, &text); err != nil {
				rows.Close()
				return fmt.Errorf("scan caption row: %w", err)
			}
			docs = append(docs, indexer.ASRDocument{GroupNum: groupNum, VideoNum: videoNum, Start: start, End: end, Text: text})
		}
		rows.Close()

		if len(docs) == 0 {
			break
		}

		if err := idx.BulkIndexASR(ctx, docs); err != nil {
			return fmt.Errorf("bulk index asr batch: %w", err)
		}

		total += len(docs)
		log.Printf("indexed %d asr captions (total: %d)", len(docs), total)

		offset += batchSize
		time.Sleep(50 * time.Millisecond)
	}

	log.Printf("completed indexing %d asr captions", total)
	return nil
}
