// Package rankfusion implements weighted Reciprocal Rank Fusion over the
// per-channel ranked id lists produced by the vector, ASR and OCR
// retrieval channels.
package rankfusion

import "sort"

// ChannelRanking is one channel's ranked candidate list: Ranks maps a
// candidate id to its 1-based position in that channel's output. Ids the
// channel never returned are simply absent from the map and contribute 0.
type ChannelRanking struct {
	Weight float64
	Ranks  map[uint64]int
}

// Scored is one fused candidate: its id and its combined RRF score.
type Scored struct {
	ID    uint64
	Score float64
}

// Fuse computes fused RRF scores over the union of candidates across all
// channels and returns them sorted by score descending, ties broken by id
// descending for determinism. k is the RRF smoothing constant (spec
// default 60); rrf contribution of a channel for an id ranked r is
// 1/(k+r).
func Fuse(channels []ChannelRanking, k int) []Scored {
	scores := make(map[uint64]float64)

	for _, ch := range channels {
		for id, rank := range ch.Ranks {
			scores[id] += ch.Weight * (1.0 / float64(k+rank))
		}
	}

	out := make([]Scored, 0, len(scores))
	for id, score := range scores {
		out = append(out, Scored{ID: id, Score: score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID > out[j].ID
	})

	return out
}

// RanksFromOrder converts an ordered id slice (rank order, 1-based by
// position) into the map ChannelRanking.Ranks expects. A channel must
// never reorder its own results before calling this: rank 1 is always
// the first id the channel itself returned.
func RanksFromOrder(ids []uint64) map[uint64]int {
	ranks := make(map[uint64]int, len(ids))
	for i, id := range ids {
		// first occurrence wins; a channel returning duplicate ids keeps
		// the stronger (earlier) rank
		if _, exists := ranks[id]; !exists {
			ranks[id] = i + 1
		}
	}
	return ranks
}
