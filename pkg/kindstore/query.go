package kindstore

import (
	"iter"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

// Query is a query bound to a manager. Builder methods return a new Query;
// the receiver is never modified, so partial queries can be shared.
type Query struct {
	m *Manager
	q types.Query
}

func (q *Query) with(next types.Query) *Query {
	return &Query{m: q.m, q: next}
}

// Where adds a filter. Filters are AND-combined.
func (q *Query) Where(field string, op types.Op, value any) *Query {
	return q.with(q.q.Where(field, op, value))
}

// WhereEq adds one equality filter per entry.
func (q *Query) WhereEq(eq types.Fields) *Query {
	return q.with(q.q.WhereEq(eq))
}

// OrderBy appends orderings spelled "name", "+name" or "-name".
func (q *Query) OrderBy(fields ...string) *Query {
	return q.with(q.q.OrderBy(fields...))
}

// Offset skips the first n results.
func (q *Query) Offset(n int) *Query {
	return q.with(q.q.Offset(n))
}

// Limit caps the number of results.
func (q *Query) Limit(n int) *Query {
	return q.with(q.q.Limit(n))
}

// Query returns the backend-neutral query.
func (q *Query) Query() types.Query { return q.q }

// All runs the query when the sequence is first pulled. Ranging over the
// sequence again reissues the query.
func (q *Query) All() iter.Seq2[*types.Entity, error] {
	return func(yield func(*types.Entity, error) bool) {
		if err := q.q.Err(); err != nil {
			yield(nil, err)
			return
		}
		adapter, err := q.m.adapter()
		if err != nil {
			yield(nil, err)
			return
		}
		for e, err := range adapter.Query(q.q) {
			if !yield(e, err) || err != nil {
				return
			}
		}
	}
}

// Collect runs the query and returns every result.
func (q *Query) Collect() ([]*types.Entity, error) {
	var out []*types.Entity
	for e, err := range q.All() {
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// capped returns the query limited to n unless it already has a smaller
// limit.
func (q *Query) capped(n int) *Query {
	if limit, ok := q.q.LimitValue(); ok && limit <= n {
		return q
	}
	return q.Limit(n)
}

// One returns the only result. It fails with the kind's not-found error when
// there is none and with a *types.MultipleResultsError when there are more.
func (q *Query) One() (*types.Entity, error) {
	found, err := q.capped(2).Collect()
	if err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, q.m.kind.ErrNotFound()
	case 1:
		return found[0], nil
	default:
		return nil, &types.MultipleResultsError{Kind: q.m.kind.Name()}
	}
}

// First returns the first result in query order, or the kind's not-found
// error.
func (q *Query) First() (*types.Entity, error) {
	for e, err := range q.capped(1).All() {
		return e, err
	}
	return nil, q.m.kind.ErrNotFound()
}

// Exists reports whether the query matches anything.
func (q *Query) Exists() (bool, error) {
	keys, err := q.keys(q.capped(1))
	return len(keys) > 0, err
}

// Count returns the number of matches, honoring offset and limit.
func (q *Query) Count() (int, error) {
	keys, err := q.keys(q)
	return len(keys), err
}

func (q *Query) keys(run *Query) ([]any, error) {
	if err := run.q.Err(); err != nil {
		return nil, err
	}
	adapter, err := q.m.adapter()
	if err != nil {
		return nil, err
	}
	return adapter.Keys(run.q)
}

// Delete removes every entity the query matches and returns how many were
// removed. Unordered, unpaged queries delete by filter in one statement;
// otherwise the matching identities are resolved first.
func (q *Query) Delete() (int64, error) {
	if err := q.q.Err(); err != nil {
		return 0, err
	}
	adapter, err := q.m.adapter()
	if err != nil {
		return 0, err
	}
	_, hasOffset := q.q.OffsetValue()
	_, hasLimit := q.q.LimitValue()
	if len(q.q.Order()) == 0 && !hasOffset && !hasLimit {
		return adapter.DeleteBy(q.m.kind, q.q.Filters())
	}
	ids, err := adapter.Keys(q.q)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	return adapter.DeleteKeys(q.m.kind, ids)
}
