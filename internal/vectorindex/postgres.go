package vectorindex

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/mvkhanh/keyframesearch/internal/apperrors"
)

// PostgresIndex is a pgvector-backed Index. The table stores one row per
// keyframe key with a cosine-indexed embedding column; pgvector's '<=>'
// operator returns cosine DISTANCE ascending, so every query here orders
// by it ascending and reports similarity = 1 - distance, which is
// monotonically descending in similarity as the design note in §9
// requires (implementers swapping in an L2-backed store must invert
// the opposite way).
type PostgresIndex struct {
	pool  *pgxpool.Pool
	table string // defaults to "keyframe_vectors"
}

// NewPostgresIndex creates a PostgresIndex over the given pool and table.
func NewPostgresIndex(pool *pgxpool.Pool, table string) *PostgresIndex {
	if table == "" {
		table = "keyframe_vectors"
	}
	return &PostgresIndex{pool: pool, table: table}
}

func (idx *PostgresIndex) Search(ctx context.Context, embedding []float32, topK int, excludeIDs []uint64) ([]Hit, error) {
	if topK <= 0 {
		return nil, nil
	}
	vec := pgvector.NewVector(embedding)

	exclude := make([]int64, len(excludeIDs))
	for i, id := range excludeIDs {
		exclude[i] = int64(id)
	}

	query := fmt.Sprintf(`
		SELECT id, embedding <=> $1 AS distance
		FROM %s
		WHERE NOT (id = ANY($2))
		ORDER BY embedding <=> $1
		LIMIT $3
	`, idx.table)

	rows, err := idx.pool.Query(ctx, query, vec, exclude, topK)
	if err != nil {
		if ctxErr := apperrors.FromContext(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.Unavailable("vector index query failed: %v", err)
	}
	defer rows.Close()

	hits := make([]Hit, 0, topK)
	for rows.Next() {
		var id int64
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, apperrors.Internal("scanning vector index row: %v", err)
		}
		hits = append(hits, Hit{ID: uint64(id), Distance: 1.0 - distance})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Unavailable("iterating vector index rows: %v", err)
	}

	return hits, nil
}

func (idx *PostgresIndex) SearchByID(ctx context.Context, imgid uint64, page, size int, excludeIDs []uint64) ([]Hit, error) {
	var embeddingBytes pgvector.Vector
	query := fmt.Sprintf(`SELECT embedding FROM %s WHERE id = $1`, idx.table)
	err := idx.pool.QueryRow(ctx, query, int64(imgid)).Scan(&embeddingBytes)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFound("keyframe id %d has no stored embedding", imgid)
		}
		if ctxErr := apperrors.FromContext(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.Unavailable("fetching embedding for id %d: %v", imgid, err)
	}

	exclude := append(append([]uint64{}, excludeIDs...), imgid)
	requestSize := page * size
	hits, err := idx.Search(ctx, embeddingBytes.Slice(), requestSize, exclude)
	if err != nil {
		return nil, err
	}

	offset := (page - 1) * size
	if offset >= len(hits) {
		return []Hit{}, nil
	}
	end := offset + size
	if end > len(hits) {
		end = len(hits)
	}
	return hits[offset:end], nil
}

func (idx *PostgresIndex) Size(ctx context.Context) (uint64, error) {
	var count int64
	query := fmt.Sprintf(`SELECT count(*) FROM %s`, idx.table)
	if err := idx.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		if ctxErr := apperrors.FromContext(ctx); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, apperrors.Unavailable("counting vector index size: %v", err)
	}
	return uint64(count), nil
}
