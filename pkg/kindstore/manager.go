package kindstore

import (
	"fmt"
	"iter"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

// Manager creates, saves, queries and deletes entities of one kind.
type Manager struct {
	kind *types.Kind
	conn *Connection // nil resolves the default connection per call
}

// NewManager returns a manager for kind bound to conn.
func NewManager(kind *types.Kind, conn *Connection) *Manager {
	return &Manager{kind: kind, conn: conn}
}

// Entities returns a manager for kind bound to the process default
// connection. The default is looked up on every operation; operations fail
// with ErrNoConnection while none is set.
func Entities(kind *types.Kind) *Manager {
	return &Manager{kind: kind}
}

// Kind returns the managed kind.
func (m *Manager) Kind() *types.Kind { return m.kind }

func (m *Manager) adapter() (types.Adapter, error) {
	conn := m.conn
	if conn == nil {
		var err error
		if conn, err = Default(); err != nil {
			return nil, err
		}
	}
	if conn.closed.Load() {
		return nil, types.ErrDetached
	}
	return conn.adapter, nil
}

// Create builds an entity from values and saves it.
func (m *Manager) Create(values types.Fields) (*types.Entity, error) {
	e, err := m.kind.New(values)
	if err != nil {
		return nil, err
	}
	if err := m.Save(e); err != nil {
		return nil, err
	}
	return e, nil
}

// Save persists e. Entities without an identity are inserted and receive
// the backend-assigned identity; kinds with a custom identity insert while
// the entity is new. Everything else is an update of every field. On error
// the entity is left as it was.
func (m *Manager) Save(e *types.Entity) error {
	if e.Kind() != m.kind {
		return fmt.Errorf("%w: cannot save %s with the %s manager", types.ErrConfiguration, e.Kind(), m.kind)
	}
	adapter, err := m.adapter()
	if err != nil {
		return err
	}
	data, err := e.Data()
	if err != nil {
		return err
	}
	id, err := e.IdentityForSave()
	if err != nil {
		return err
	}

	insert := !e.HasID()
	if m.kind.HasCustomIdentity() {
		insert = e.IsNew()
	}
	if !insert {
		if err := adapter.Update(m.kind, id, data); err != nil {
			return err
		}
		return e.MarkSaved(e.ID())
	}

	stored, err := adapter.Insert(m.kind, id, data)
	if err != nil {
		return err
	}
	newID, err := m.kind.DeserializeIdentity(stored)
	if err != nil {
		return err
	}
	if e.HasID() {
		newID = e.ID()
	}
	return e.MarkSaved(newID)
}

// Select starts a query over every entity of the kind.
func (m *Manager) Select() *Query {
	return &Query{m: m, q: types.NewQuery(m.kind)}
}

// Query builds a query from the keyword form: AND-ed filters, orderings
// spelled "name" or "-name", and optional offset and limit.
func (m *Manager) Query(filters []types.Filter, orderBy []string, offset, limit *int) *Query {
	q := m.Select()
	for _, f := range filters {
		q = q.Where(f.Field, f.Op, f.Value)
	}
	q = q.OrderBy(orderBy...)
	if offset != nil {
		q = q.Offset(*offset)
	}
	if limit != nil {
		q = q.Limit(*limit)
	}
	return q
}

// All yields every entity of the kind.
func (m *Manager) All() iter.Seq2[*types.Entity, error] {
	return m.Select().All()
}

// Get returns the single entity whose fields equal eq. It fails with the
// kind's not-found error when nothing matches and with a
// *types.MultipleResultsError when more than one entity does.
func (m *Manager) Get(eq types.Fields) (*types.Entity, error) {
	return m.Select().WhereEq(eq).One()
}

// Exists reports whether Get(eq) would find an entity. It fails with a
// *types.MultipleResultsError when more than one entity matches.
func (m *Manager) Exists(eq types.Fields) (bool, error) {
	q := m.Select().WhereEq(eq)
	keys, err := q.keys(q.capped(2))
	if err != nil {
		return false, err
	}
	if len(keys) > 1 {
		return false, &types.MultipleResultsError{Kind: m.kind.Name()}
	}
	return len(keys) == 1, nil
}

// DeleteBy removes every entity whose fields equal eq and returns how many
// were removed. No match is not an error.
func (m *Manager) DeleteBy(eq types.Fields) (int64, error) {
	q := types.NewQuery(m.kind).WhereEq(eq)
	if err := q.Err(); err != nil {
		return 0, err
	}
	adapter, err := m.adapter()
	if err != nil {
		return 0, err
	}
	return adapter.DeleteBy(m.kind, q.Filters())
}
