package metadatastore

import (
	"fmt"
	"strings"

	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mvkhanh/keyframesearch/internal/apperrors"
	"github.com/mvkhanh/keyframesearch/internal/models"
	"github.com/mvkhanh/keyframesearch/internal/objectfilter"
)

// PostgresStore backs the keyframe-row half of Store: GetByKeys,
// FilterByObjects, KeysInTimeRanges and Size. Full-text search is
// composed in from an FTSEngine (see fts.go); PostgresStore only
// supplies its own tsvector/ILIKE tiers to that chain.
type PostgresStore struct {
	pool *pgxpool.Pool
	fts  FTSEngine
}

// NewPostgresStore creates a PostgresStore. fts may be nil, in which case
// FTSSearchIDs/FTSSearchSegments fall back straight to the Postgres tiers.
func NewPostgresStore(pool *pgxpool.Pool, fts FTSEngine) *PostgresStore {
	return &PostgresStore{pool: pool, fts: fts}
}

func clampPage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	if size > 200 {
		size = 200
	}
	return page, size
}

// buildScopeWhere implements the §4.2 group_nums/video_nums combination
// rule: equal-length lists OR (group,video) pairs with video=-1 meaning
// "any video in that group"; a single non-empty list is a plain IN.
func buildScopeWhere(groupNums, videoNums []int, argStart int) (string, []interface{}, int) {
	if len(groupNums) == 0 && len(videoNums) == 0 {
		return "", nil, argStart
	}

	if len(groupNums) > 0 && len(videoNums) > 0 && len(groupNums) == len(videoNums) {
		clauses := make([]string, 0, len(groupNums))
		args := make([]interface{}, 0, len(groupNums)*2)
		n := argStart
		for i := range groupNums {
			if videoNums[i] == -1 {
				clauses = append(clauses, fmt.Sprintf("group_num = $%d", n))
				args = append(args, groupNums[i])
				n++
			} else {
				clauses = append(clauses, fmt.Sprintf("(group_num = $%d AND video_num = $%d)", n, n+1))
				args = append(args, groupNums[i], videoNums[i])
				n += 2
			}
		}
		return "(" + strings.Join(clauses, " OR ") + ")", args, n
	}

	if len(groupNums) > 0 {
		return fmt.Sprintf("group_num = ANY($%d)", argStart), []interface{}{groupNums}, argStart + 1
	}
	return fmt.Sprintf("video_num = ANY($%d)", argStart), []interface{}{videoNums}, argStart + 1
}

func (s *PostgresStore) fetchObjects(ctx context.Context, keys []uint64) (map[uint64][]models.ObjectCount, error) {
	if len(keys) == 0 {
		return map[uint64][]models.ObjectCount{}, nil
	}
	keyArg := make([]int64, len(keys))
	for i, k := range keys {
		keyArg[i] = int64(k)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT keyframe_key, name, count FROM keyframe_objects WHERE keyframe_key = ANY($1)
	`, keyArg)
	if err != nil {
		return nil, apperrors.Unavailable("fetching keyframe objects: %v", err)
	}
	defer rows.Close()

	out := make(map[uint64][]models.ObjectCount)
	for rows.Next() {
		var key int64
		var oc models.ObjectCount
		if err := rows.Scan(&key, &oc.Name, &oc.Count); err != nil {
			return nil, apperrors.Internal("scanning keyframe object row: %v", err)
		}
		out[uint64(key)] = append(out[uint64(key)], oc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Unavailable("iterating keyframe object rows: %v", err)
	}
	return out, nil
}

func (s *PostgresStore) GetByKeys(ctx context.Context, keys []uint64, groupNums, videoNums []int, page, size int) ([]models.Keyframe, error) {
	page, size = clampPage(page, size)

	if len(keys) > 0 {
		keyArg := make([]int64, len(keys))
		for i, k := range keys {
			keyArg[i] = int64(k)
		}

		scopeWhere, scopeArgs, _ := buildScopeWhere(groupNums, videoNums, 2)
		query := `SELECT key, group_num, video_num, keyframe_num FROM keyframes WHERE key = ANY($1)`
		args := []interface{}{keyArg}
		if scopeWhere != "" {
			query += " AND " + scopeWhere
			args = append(args, scopeArgs...)
		}

		rows, err := s.pool.Query(ctx, query, args...)
		if err != nil {
			return nil, apperrors.Unavailable("fetching keyframes by key: %v", err)
		}
		byKey := make(map[uint64]models.Keyframe, len(keys))
		for rows.Next() {
			var kf models.Keyframe
			var key int64
			if err := rows.Scan(&key, &kf.GroupNum, &kf.VideoNum, &kf.KeyframeNum); err != nil {
				rows.Close()
				return nil, apperrors.Internal("scanning keyframe row: %v", err)
			}
			kf.Key = uint64(key)
			byKey[kf.Key] = kf
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, apperrors.Unavailable("iterating keyframe rows: %v", err)
		}
		rows.Close()

		ordered := make([]models.Keyframe, 0, len(keys))
		for _, k := range keys {
			if kf, ok := byKey[k]; ok {
				ordered = append(ordered, kf)
			}
		}

		start := (page - 1) * size
		if start >= len(ordered) {
			return []models.Keyframe{}, nil
		}
		end := start + size
		if end > len(ordered) {
			end = len(ordered)
		}
		pageRows := ordered[start:end]

		pageKeys := make([]uint64, len(pageRows))
		for i, kf := range pageRows {
			pageKeys[i] = kf.Key
		}
		objects, err := s.fetchObjects(ctx, pageKeys)
		if err != nil {
			return nil, err
		}
		for i := range pageRows {
			pageRows[i].Objects = objects[pageRows[i].Key]
		}
		return pageRows, nil
	}

	scopeWhere, scopeArgs, _ := buildScopeWhere(groupNums, videoNums, 1)
	query := `SELECT key, group_num, video_num, keyframe_num FROM keyframes`
	args := []interface{}{}
	if scopeWhere != "" {
		query += " WHERE " + scopeWhere
		args = append(args, scopeArgs...)
	}
	query += " ORDER BY group_num ASC, video_num ASC, keyframe_num ASC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, size, (page-1)*size)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Unavailable("listing keyframes: %v", err)
	}
	defer rows.Close()

	result := make([]models.Keyframe, 0, size)
	for rows.Next() {
		var kf models.Keyframe
		var key int64
		if err := rows.Scan(&key, &kf.GroupNum, &kf.VideoNum, &kf.KeyframeNum); err != nil {
			return nil, apperrors.Internal("scanning keyframe row: %v", err)
		}
		kf.Key = uint64(key)
		result = append(result, kf)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Unavailable("iterating keyframe rows: %v", err)
	}

	keys2 := make([]uint64, len(result))
	for i, kf := range result {
		keys2[i] = kf.Key
	}
	objects, err := s.fetchObjects(ctx, keys2)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Objects = objects[result[i].Key]
	}
	return result, nil
}

func (s *PostgresStore) FilterByObjects(ctx context.Context, ids []uint64, filters []models.ObjFilter) ([]uint64, error) {
	if len(filters) == 0 {
		out := make([]uint64, len(ids))
		copy(out, ids)
		return out, nil
	}
	if len(ids) == 0 {
		return []uint64{}, nil
	}

	idArg := make([]int64, len(ids))
	for i, id := range ids {
		idArg[i] = int64(id)
	}

	where, whereArgs := objectfilter.BuildSQLWhere(filters, 2)
	query := fmt.Sprintf(`SELECT key FROM keyframes k WHERE k.key = ANY($1) AND %s`, where)
	args := append([]interface{}{idArg}, whereArgs...)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		if ctxErr := apperrors.FromContext(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		return s.filterByObjectsInProcess(ctx, ids, filters)
	}
	defer rows.Close()

	pass := make(map[uint64]bool)
	for rows.Next() {
		var key int64
		if err := rows.Scan(&key); err != nil {
			return nil, apperrors.Internal("scanning object-filter row: %v", err)
		}
		pass[uint64(key)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Unavailable("iterating object-filter rows: %v", err)
	}

	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if pass[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// filterByObjectsInProcess is the fallback path when the EXISTS-subquery
// push-down itself cannot run (e.g. the keyframe_objects side table is
// unreachable through the query planner this store's Postgres version
// picked). It fetches each candidate's objects directly and evaluates the
// same predicate conjunction in process via objectfilter.ApplyStable,
// preserving input order exactly like the SQL path does.
func (s *PostgresStore) filterByObjectsInProcess(ctx context.Context, ids []uint64, filters []models.ObjFilter) ([]uint64, error) {
	objects, err := s.fetchObjects(ctx, ids)
	if err != nil {
		return nil, err
	}
	return objectfilter.ApplyStable(ids, objects, filters), nil
}

func (s *PostgresStore) Size(ctx context.Context) (uint64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM keyframes`).Scan(&count); err != nil {
		return 0, apperrors.Unavailable("counting keyframes: %v", err)
	}
	return uint64(count), nil
}

// ObjectClasses returns the distinct object-class names present across
// all keyframes, ascending.
func (s *PostgresStore) ObjectClasses(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT name FROM keyframe_objects ORDER BY name`)
	if err != nil {
		return nil, apperrors.Unavailable("querying object classes: %v", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperrors.Unavailable("scanning object class: %v", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Unavailable("iterating object classes: %v", err)
	}
	return names, nil
}

// KeysInTimeRanges expands each range, preferring a server-side bucketed
// NTILE aggregation and falling back to fetching the full sorted key list
// and sampling it client-side via linspaceIndices when the bucketed query
// fails.
func (s *PostgresStore) KeysInTimeRanges(ctx context.Context, ranges []models.TimeRange, perRangeLimit int) ([]uint64, error) {
	seen := make(map[uint64]bool)
	out := make([]uint64, 0)

	for _, r := range ranges {
		keys, err := s.bucketedRangeKeys(ctx, r, perRangeLimit)
		if err != nil {
			keys, err = s.linspaceRangeKeys(ctx, r, perRangeLimit)
			if err != nil {
				return nil, err
			}
		}
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out, nil
}

func (s *PostgresStore) bucketedRangeKeys(ctx context.Context, r models.TimeRange, limit int) ([]uint64, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		WITH bucketed AS (
			SELECT key, keyframe_num,
				NTILE($5) OVER (ORDER BY keyframe_num ASC) AS bucket
			FROM keyframes
			WHERE group_num = $1 AND video_num = $2
				AND keyframe_num BETWEEN $3 AND $4
		)
		SELECT DISTINCT ON (bucket) key, keyframe_num
		FROM bucketed
		ORDER BY bucket, keyframe_num ASC
	`, r.GroupNum, r.VideoNum, r.KfStart, r.KfEnd, limit)
	if err != nil {
		return nil, apperrors.Unavailable("bucketed time-range query failed: %v", err)
	}
	defer rows.Close()

	var keys []uint64
	for rows.Next() {
		var key int64
		var kfNum int
		if err := rows.Scan(&key, &kfNum); err != nil {
			return nil, apperrors.Internal("scanning bucketed row: %v", err)
		}
		keys = append(keys, uint64(key))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Unavailable("iterating bucketed rows: %v", err)
	}
	return keys, nil
}

func (s *PostgresStore) linspaceRangeKeys(ctx context.Context, r models.TimeRange, limit int) ([]uint64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key FROM keyframes
		WHERE group_num = $1 AND video_num = $2
			AND keyframe_num BETWEEN $3 AND $4
		ORDER BY keyframe_num ASC
	`, r.GroupNum, r.VideoNum, r.KfStart, r.KfEnd)
	if err != nil {
		return nil, apperrors.Unavailable("linspace time-range query failed: %v", err)
	}
	defer rows.Close()

	var sorted []uint64
	for rows.Next() {
		var key int64
		if err := rows.Scan(&key); err != nil {
			return nil, apperrors.Internal("scanning linspace row: %v", err)
		}
		sorted = append(sorted, uint64(key))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Unavailable("iterating linspace rows: %v", err)
	}

	idxs := linspaceIndices(len(sorted), limit)
	keys := make([]uint64, len(idxs))
	for i, idx := range idxs {
		keys[i] = sorted[idx]
	}
	return keys, nil
}
