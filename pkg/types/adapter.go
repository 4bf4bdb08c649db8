package types

import "iter"

// Adapter translates kindstore operations into one storage engine's native
// calls. Implementations must be safe for concurrent use. Identities passed
// to and returned from an Adapter are in serialized form.
type Adapter interface {
	// Name returns the backend name (see Backend constants).
	Name() string

	// Insert stores a new record. id is nil when the backend assigns
	// identity; the assigned or supplied identity is returned.
	Insert(kind *Kind, id any, data map[string]any) (any, error)

	// Update overwrites every field of the record with the given identity.
	// Returns the kind's not-found error when no such record exists.
	Update(kind *Kind, id any, data map[string]any) error

	// Query runs q lazily: nothing is read until the sequence is pulled.
	// Each range over the sequence reissues the query.
	Query(q Query) iter.Seq2[*Entity, error]

	// Keys returns the identities of the records matching q.
	Keys(q Query) ([]any, error)

	// DeleteBy removes every record of kind matching all filters and
	// returns how many were removed.
	DeleteBy(kind *Kind, filters []Filter) (int64, error)

	// DeleteKeys removes the records with the given identities.
	DeleteKeys(kind *Kind, ids []any) (int64, error)

	// Close releases backend resources.
	Close() error
}
