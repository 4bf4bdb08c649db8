package kindstore

import (
	"iter"

	"github.com/uber-go/tally/v4"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

// Metric names. Every metric is tagged with the backend and kind.
const (
	metricCalls    = "calls"
	metricErrors   = "errors"
	metricLatency  = "latency"
	metricEntities = "entities"
	metricDeleted  = "deleted"
)

// instrumented decorates an adapter with call, error and latency metrics per
// operation.
type instrumented struct {
	next  types.Adapter
	scope tally.Scope
}

func instrument(next types.Adapter, scope tally.Scope) types.Adapter {
	return &instrumented{
		next:  next,
		scope: scope.Tagged(map[string]string{"backend": next.Name()}),
	}
}

func (a *instrumented) opScope(kind *types.Kind, op string) tally.Scope {
	return a.scope.Tagged(map[string]string{"kind": kind.Name(), "operation": op})
}

// observe counts one call and returns a function that records its outcome.
func (a *instrumented) observe(kind *types.Kind, op string) (tally.Scope, func(error)) {
	s := a.opScope(kind, op)
	s.Counter(metricCalls).Inc(1)
	sw := s.Timer(metricLatency).Start()
	return s, func(err error) {
		sw.Stop()
		if err != nil {
			s.Counter(metricErrors).Inc(1)
		}
	}
}

func (a *instrumented) Name() string { return a.next.Name() }

func (a *instrumented) Insert(kind *types.Kind, id any, data map[string]any) (any, error) {
	_, done := a.observe(kind, "insert")
	out, err := a.next.Insert(kind, id, data)
	done(err)
	return out, err
}

func (a *instrumented) Update(kind *types.Kind, id any, data map[string]any) error {
	_, done := a.observe(kind, "update")
	err := a.next.Update(kind, id, data)
	done(err)
	return err
}

// Query is measured from the first pull until the sequence ends.
func (a *instrumented) Query(q types.Query) iter.Seq2[*types.Entity, error] {
	seq := a.next.Query(q)
	return func(yield func(*types.Entity, error) bool) {
		s, done := a.observe(q.Kind(), "query")
		var n int64
		var failed error
		defer func() {
			s.Counter(metricEntities).Inc(n)
			done(failed)
		}()
		for e, err := range seq {
			if err != nil {
				failed = err
			} else {
				n++
			}
			if !yield(e, err) {
				return
			}
		}
	}
}

func (a *instrumented) Keys(q types.Query) ([]any, error) {
	_, done := a.observe(q.Kind(), "keys")
	out, err := a.next.Keys(q)
	done(err)
	return out, err
}

func (a *instrumented) DeleteBy(kind *types.Kind, filters []types.Filter) (int64, error) {
	s, done := a.observe(kind, "delete_by")
	n, err := a.next.DeleteBy(kind, filters)
	done(err)
	s.Counter(metricDeleted).Inc(n)
	return n, err
}

func (a *instrumented) DeleteKeys(kind *types.Kind, ids []any) (int64, error) {
	s, done := a.observe(kind, "delete_keys")
	n, err := a.next.DeleteKeys(kind, ids)
	done(err)
	s.Counter(metricDeleted).Inc(n)
	return n, err
}

func (a *instrumented) Close() error { return a.next.Close() }
