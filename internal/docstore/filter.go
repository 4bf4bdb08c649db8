package docstore

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

// predicate is a filter with its value already in stored form.
type predicate struct {
	field string
	op    types.Op
	value any
}

// plan is a query compiled against the record layout.
type plan struct {
	kind   *types.Kind
	preds  []predicate
	order  []types.Order
	offset int
	limit  int // -1 for none
}

// isJSON reports whether field holds structured values, which the store
// only compares for equality.
func isJSON(kind *types.Kind, field string) bool {
	f, ok := kind.Field(field)
	return ok && f.Type() == types.TypeJSON
}

func compilePredicates(kind *types.Kind, filters []types.Filter) ([]predicate, error) {
	preds := make([]predicate, 0, len(filters))
	for _, f := range filters {
		op, err := types.ParseOp(string(f.Op))
		if err != nil {
			return nil, err
		}
		if op == types.OpNe {
			return nil, fmt.Errorf("%w: %s filter on %s.%s", types.ErrUnsupported, op, kind.Name(), f.Field)
		}
		if op != types.OpEq && isJSON(kind, f.Field) {
			return nil, fmt.Errorf("%w: range filter on json field %s.%s", types.ErrUnsupported, kind.Name(), f.Field)
		}
		v, err := kind.SerializeFilter(f)
		if err != nil {
			return nil, err
		}
		preds = append(preds, predicate{field: f.Field, op: op, value: v})
	}
	return preds, nil
}

func compile(q types.Query) (*plan, error) {
	if err := q.Err(); err != nil {
		return nil, err
	}
	kind := q.Kind()
	preds, err := compilePredicates(kind, q.Filters())
	if err != nil {
		return nil, err
	}
	order := q.Order()
	for _, o := range order {
		if isJSON(kind, o.Field) {
			return nil, fmt.Errorf("%w: ordering by json field %s.%s", types.ErrUnsupported, kind.Name(), o.Field)
		}
	}
	p := &plan{kind: kind, preds: preds, order: order, limit: -1}
	if n, ok := q.OffsetValue(); ok {
		p.offset = n
	}
	if n, ok := q.LimitValue(); ok {
		p.limit = n
	}
	return p, nil
}

// match reports whether r satisfies every predicate.
func (p *plan) match(r *record) bool {
	for _, pred := range p.preds {
		if !evaluate(r.value(p.kind, pred.field), pred.op, pred.value) {
			return false
		}
	}
	return true
}

// evaluate applies op the way SQL does: any comparison involving NULL is
// false, except NULL = NULL which the equality filter uses for "unset".
func evaluate(stored any, op types.Op, value any) bool {
	if stored == nil || value == nil {
		return op == types.OpEq && stored == nil && value == nil
	}
	c := compareValues(stored, value)
	switch op {
	case types.OpEq:
		return c == 0
	case types.OpLt:
		return c < 0
	case types.OpLte:
		return c <= 0
	case types.OpGt:
		return c > 0
	case types.OpGte:
		return c >= 0
	}
	return false
}

// typeRank orders values of different storage classes: NULL, integer,
// text, bytes.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case int64:
		return 1
	case string:
		return 2
	default:
		return 3
	}
}

// compareValues totally orders stored values.
func compareValues(a, b any) int {
	if ra, rb := typeRank(a), typeRank(b); ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch x := a.(type) {
	case nil:
		return 0
	case int64:
		return cmp.Compare(x, b.(int64))
	case string:
		return strings.Compare(x, b.(string))
	case []byte:
		y, _ := b.([]byte)
		return bytes.Compare(x, y)
	}
	return 0
}

func sortByKey(recs []*record) {
	slices.SortFunc(recs, func(a, b *record) int { return compareKeys(a.Key, b.Key) })
}

// sort orders records by key, then stably by the requested orderings.
func (p *plan) sort(recs []*record) {
	sortByKey(recs)
	if len(p.order) == 0 {
		return
	}
	slices.SortStableFunc(recs, func(a, b *record) int {
		for _, o := range p.order {
			c := compareValues(a.value(p.kind, o.Field), b.value(p.kind, o.Field))
			if o.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

// page applies offset and limit.
func (p *plan) page(recs []*record) []*record {
	if p.offset >= len(recs) {
		return nil
	}
	recs = recs[p.offset:]
	if p.limit >= 0 && p.limit < len(recs) {
		recs = recs[:p.limit]
	}
	return recs
}
