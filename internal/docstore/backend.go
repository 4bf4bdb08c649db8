// Package docstore implements the embedded key/document kindstore backend.
// Records live in a concurrent in-memory map keyed by Key and are persisted
// to a JSONL snapshot that is rewritten atomically after every write. The
// snapshot is guarded by an OS file lock for the lifetime of the attachment.
package docstore

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/puzpuzpuz/xsync/v3"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

// Backend implements types.Adapter on the embedded document store.
// Reads never block each other; writers serialize on writeMu.
type Backend struct {
	mu       sync.RWMutex // guards the attachment state below
	attached bool
	config   types.Config
	path     string
	lock     *flock.Flock
	kinds    map[string]*types.Kind

	writeMu  sync.Mutex
	records  *xsync.MapOf[Key, *record]
	counters map[scope]int64 // last allocated ID per namespace and kind, guarded by writeMu
}

// Compile-time interface check.
var _ types.Adapter = (*Backend)(nil)

// NewBackend creates a detached document-store backend.
func NewBackend() *Backend {
	return &Backend{}
}

// Name returns types.BackendDocStore.
func (b *Backend) Name() string { return types.BackendDocStore }

// Attach locks and loads the snapshot in config.DataDir. Records of kinds not
// listed are kept and rewritten untouched. Returns ErrStoreLocked when
// another process holds the store.
func (b *Backend) Attach(config types.Config, kinds []*types.Kind) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dataDir, config.GetDocStoreFile())

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("locking %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", types.ErrStoreLocked, path)
	}

	snapshot, err := readSnapshot(path)
	if err != nil {
		return multierr.Append(err, lock.Unlock())
	}

	records := xsync.NewMapOf[Key, *record]()
	counters := make(map[scope]int64)
	for i := range snapshot {
		rec := &snapshot[i]
		records.Store(rec.Key, rec)
		if s := rec.Key.scope(); rec.Key.ID > counters[s] {
			counters[s] = rec.Key.ID
		}
	}

	byName := make(map[string]*types.Kind, len(kinds))
	for _, kind := range kinds {
		byName[kind.Name()] = kind
	}

	b.config = config
	b.path = path
	b.lock = lock
	b.kinds = byName
	b.records = records
	b.counters = counters
	b.attached = true

	log.WithFields(log.Fields{
		"backend":   types.BackendDocStore,
		"path":      path,
		"namespace": config.Namespace,
		"kinds":     len(kinds),
		"records":   len(snapshot),
	}).Info("attached")
	return nil
}

// Detach releases the file lock. After Detach, all operations return
// ErrDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if err := b.lock.Unlock(); err != nil {
		return fmt.Errorf("unlocking %s: %w", b.path, err)
	}
	b.attached = false
	b.lock = nil
	b.records = nil
	b.counters = nil
	b.kinds = nil
	log.WithField("backend", types.BackendDocStore).Info("detached")
	return nil
}

// Close implements types.Adapter by detaching.
func (b *Backend) Close() error {
	return b.Detach()
}

// check verifies the backend is attached and kind is the registered kind of
// that name. Callers hold b.mu.
func (b *Backend) check(kind *types.Kind) error {
	if !b.attached {
		return types.ErrDetached
	}
	if k, ok := b.kinds[kind.Name()]; !ok || k != kind {
		return fmt.Errorf("%w: %s", types.ErrUnknownKind, kind.Name())
	}
	return nil
}

func logWrite(op string, key Key) {
	log.WithFields(log.Fields{
		"backend": types.BackendDocStore,
		"kind":    key.Kind,
		"key":     key.String(),
	}).Debug(op)
}

// persist rewrites the snapshot from the current map. Callers hold writeMu.
func (b *Backend) persist() error {
	recs := make([]*record, 0, b.records.Size())
	b.records.Range(func(_ Key, r *record) bool {
		recs = append(recs, r)
		return true
	})
	sortByKey(recs)
	out := make([]record, len(recs))
	for i, r := range recs {
		out[i] = *r
	}
	if err := writeSnapshot(b.path, out); err != nil {
		return fmt.Errorf("persisting %s: %w", b.path, err)
	}
	return nil
}

// owns reports whether k belongs to kind in the attached namespace.
func (b *Backend) owns(kind *types.Kind, k Key) bool {
	return k.Namespace == b.config.Namespace && k.Kind == kind.Name()
}

// checkUnique returns a *types.UniquenessConflictError when a unique field
// of data collides with another record of kind.
func (b *Backend) checkUnique(kind *types.Kind, self Key, data map[string]any) error {
	var conflict error
	for _, f := range kind.Fields() {
		if !f.Options().Unique || data[f.Name()] == nil {
			continue
		}
		v := data[f.Name()]
		b.records.Range(func(k Key, r *record) bool {
			if !b.owns(kind, k) || k == self {
				return true
			}
			if other := r.Props[f.Name()]; other != nil && compareValues(other, v) == 0 {
				conflict = &types.UniquenessConflictError{
					Kind: kind.Name(),
					Err:  fmt.Errorf("field %s already holds %v in %s", f.Name(), v, k),
				}
				return false
			}
			return true
		})
		if conflict != nil {
			return conflict
		}
	}
	return nil
}

// Insert stores a new record. Identity comes from the per-kind counter when
// id is nil, otherwise from id.
func (b *Backend) Insert(kind *types.Kind, id any, data map[string]any) (any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.check(kind); err != nil {
		return nil, err
	}
	if err := types.CheckRequired(kind, data); err != nil {
		return nil, err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	counter := scope{namespace: b.config.Namespace, kind: kind.Name()}
	prevCounter := b.counters[counter]
	var key Key
	if id == nil {
		if kind.HasCustomIdentity() {
			return nil, &types.ConfigurationError{Kind: kind.Name(), Reason: "custom identity field not set"}
		}
		key = Key{Namespace: b.config.Namespace, Kind: kind.Name(), ID: prevCounter + 1}
	} else {
		var err error
		if key, err = keyFor(b.config.Namespace, kind, id); err != nil {
			return nil, err
		}
	}
	if _, exists := b.records.Load(key); exists {
		return nil, &types.UniquenessConflictError{
			Kind: kind.Name(),
			Err:  fmt.Errorf("key %s already exists", key),
		}
	}
	if err := b.checkUnique(kind, key, data); err != nil {
		return nil, err
	}

	if key.ID > prevCounter {
		b.counters[counter] = key.ID
	}
	b.records.Store(key, &record{Key: key, Props: newProperties(data)})
	logWrite("insert", key)
	if err := b.persist(); err != nil {
		b.records.Delete(key)
		b.counters[counter] = prevCounter
		return nil, err
	}
	return key.identity(kind), nil
}

// Update overwrites every field of an existing record.
func (b *Backend) Update(kind *types.Kind, id any, data map[string]any) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.check(kind); err != nil {
		return err
	}
	key, err := keyFor(b.config.Namespace, kind, id)
	if err != nil {
		return err
	}
	if err := types.CheckRequired(kind, data); err != nil {
		return err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	prev, ok := b.records.Load(key)
	if !ok {
		return kind.ErrNotFound()
	}
	if err := b.checkUnique(kind, key, data); err != nil {
		return err
	}
	b.records.Store(key, &record{Key: key, Props: newProperties(data)})
	logWrite("update", key)
	if err := b.persist(); err != nil {
		b.records.Store(key, prev)
		return err
	}
	return nil
}

// run evaluates q against a point-in-time view of the records.
func (b *Backend) run(q types.Query) ([]*record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	kind := q.Kind()
	if err := b.check(kind); err != nil {
		return nil, err
	}
	p, err := compile(q)
	if err != nil {
		return nil, err
	}

	var recs []*record
	b.records.Range(func(k Key, r *record) bool {
		if b.owns(kind, k) && p.match(r) {
			recs = append(recs, r)
		}
		return true
	})
	p.sort(recs)

	log.WithFields(log.Fields{
		"backend":   types.BackendDocStore,
		"namespace": b.config.Namespace,
		"kind":      kind.Name(),
		"filters":   q.Filters(),
		"order":     q.Order(),
		"matched":   len(recs),
	}).Debug("query")
	return p.page(recs), nil
}

// Query evaluates q when the sequence is first pulled and yields hydrated
// entities.
func (b *Backend) Query(q types.Query) iter.Seq2[*types.Entity, error] {
	return func(yield func(*types.Entity, error) bool) {
		recs, err := b.run(q)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, r := range recs {
			e, err := r.entity(q.Kind())
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

// Keys returns the identities matching q without hydrating entities.
func (b *Backend) Keys(q types.Query) ([]any, error) {
	recs, err := b.run(q)
	if err != nil {
		return nil, err
	}
	ids := make([]any, len(recs))
	for i, r := range recs {
		ids[i] = r.Key.identity(q.Kind())
	}
	return ids, nil
}

// DeleteBy resolves matching identities with a keys-only read, then removes
// them in one batch.
func (b *Backend) DeleteBy(kind *types.Kind, filters []types.Filter) (int64, error) {
	q := types.NewQuery(kind)
	for _, f := range filters {
		q = q.Where(f.Field, f.Op, f.Value)
	}
	ids, err := b.Keys(q)
	if err != nil {
		return 0, err
	}
	return b.DeleteKeys(kind, ids)
}

// DeleteKeys removes the records with the given identities and rewrites the
// snapshot once.
func (b *Backend) DeleteKeys(kind *types.Kind, ids []any) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.check(kind); err != nil {
		return 0, err
	}

	keys := make([]Key, 0, len(ids))
	for _, id := range ids {
		sid, err := kind.SerializeIdentity(id)
		if err != nil {
			return 0, err
		}
		key, err := keyFor(b.config.Namespace, kind, sid)
		if err != nil {
			return 0, err
		}
		keys = append(keys, key)
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	var removed []*record
	for _, key := range keys {
		if r, ok := b.records.LoadAndDelete(key); ok {
			removed = append(removed, r)
			logWrite("delete", key)
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}
	if err := b.persist(); err != nil {
		for _, r := range removed {
			b.records.Store(r.Key, r)
		}
		return 0, err
	}
	return int64(len(removed)), nil
}
