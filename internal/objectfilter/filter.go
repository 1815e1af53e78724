// Package objectfilter validates and evaluates the object-count filter
// conjunction used by unified search: a keyframe passes iff, for every
// filter, at least one of its detected objects matches name and has an
// entry count satisfying cmp against the filter's count
// (entry.count cmp count).
package objectfilter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mvkhanh/keyframesearch/internal/models"
)

// Sentinel errors, wrapped with context via fmt.Errorf("%w: ...").
var (
	ErrEmptyName         = errors.New("object filter name cannot be empty")
	ErrInvalidComparator = errors.New("invalid comparator")
)

var validComparators = map[string]models.Comparator{
	"eq":  models.CmpEq,
	"neq": models.CmpNeq,
	"gt":  models.CmpGt,
	"gte": models.CmpGte,
	"lt":  models.CmpLt,
	"lte": models.CmpLte,
}

// Validate checks a filter list (already decoded from whatever wire
// representation the caller used) for well-formed comparators and
// non-empty names.
func Validate(filters []models.ObjFilter) error {
	for _, f := range filters {
		if strings.TrimSpace(f.Name) == "" {
			return ErrEmptyName
		}
		if _, ok := validComparators[string(f.Cmp)]; !ok {
			return fmt.Errorf("%w: %q", ErrInvalidComparator, f.Cmp)
		}
	}
	return nil
}

// matches reports whether a single object entry satisfies one predicate's
// comparator against the predicate's count.
func matches(f models.ObjFilter, entry models.ObjectCount) bool {
	if entry.Name != f.Name {
		return false
	}
	switch f.Cmp {
	case models.CmpEq:
		return entry.Count == f.Count
	case models.CmpNeq:
		return entry.Count != f.Count
	case models.CmpGt:
		return entry.Count > f.Count
	case models.CmpGte:
		return entry.Count >= f.Count
	case models.CmpLt:
		return entry.Count < f.Count
	case models.CmpLte:
		return entry.Count <= f.Count
	default:
		return false
	}
}

// Passes reports whether a keyframe's objects satisfy every filter in the
// conjunction: for each filter, at least one objects entry must match.
func Passes(objects []models.ObjectCount, filters []models.ObjFilter) bool {
	for _, f := range filters {
		ok := false
		for _, entry := range objects {
			if matches(f, entry) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// ApplyStable filters a candidate-id-to-objects map by the predicate
// conjunction, preserving the input order of ids. Empty filters is the
// identity transform. This is the in-process fallback used by stores that
// cannot push the predicate down to SQL.
func ApplyStable(ids []uint64, objectsByID map[uint64][]models.ObjectCount, filters []models.ObjFilter) []uint64 {
	if len(filters) == 0 {
		out := make([]uint64, len(ids))
		copy(out, ids)
		return out
	}

	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if Passes(objectsByID[id], filters) {
			out = append(out, id)
		}
	}
	return out
}
