package repository

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/onboarding-booking-api/internal/access"
)

// where accumulates AND-ed conditions; "?" in a condition becomes the next positional parameter
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1))
}

func (w *where) raw(cond string) {
	w.conds = append(w.conds, cond)
}

// scope restricts column to the entities of s. Rows with a NULL entity only pass an
// all-scope without ExcludeNull.
func (w *where) scope(column string, s access.Scope) {
	if s.All {
		if s.ExcludeNull {
			w.raw(column + " IS NOT NULL")
		}
		return
	}
	w.add(column+" = ANY(?::uuid[])", pq.Array(s.EntityIDs))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
