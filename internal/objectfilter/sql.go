package objectfilter

import (
	"fmt"
	"strings"

	"github.com/mvkhanh/keyframesearch/internal/models"
)

var sqlOperator = map[models.Comparator]string{
	models.CmpEq:  "=",
	models.CmpNeq: "!=",
	models.CmpGt:  ">",
	models.CmpGte: ">=",
	models.CmpLt:  "<",
	models.CmpLte: "<=",
}

// BuildSQLWhere translates a filter conjunction into a parameterized SQL
// WHERE fragment against a keyframe_objects(keyframe_key, name, count)
// side table, one EXISTS subquery per predicate so each filter is
// evaluated against its own matching objects row rather than an
// arbitrary one. argOffset is the 1-based index of the first
// placeholder to emit (callers composing this fragment into a larger
// query may already have consumed earlier $N slots).
//
// Returns "" with a nil arg list when filters is empty; callers should
// skip appending the fragment entirely in that case.
func BuildSQLWhere(filters []models.ObjFilter, argOffset int) (string, []interface{}) {
	if len(filters) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(filters))
	args := make([]interface{}, 0, len(filters)*2)
	n := argOffset

	for _, f := range filters {
		op := sqlOperator[f.Cmp]
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM keyframe_objects ko WHERE ko.keyframe_key = k.key AND ko.name = $%d AND ko.count %s $%d)",
			n, op, n+1,
		))
		args = append(args, f.Name, f.Count)
		n += 2
	}

	return strings.Join(clauses, " AND "), args
}
