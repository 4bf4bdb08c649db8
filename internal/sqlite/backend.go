package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

// dsnPragmas are applied by the driver to every pooled connection.
const dsnPragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

// Backend implements types.Adapter on a SQLite database file. The
// database/sql pool gives each concurrent caller its own connection, so one
// SQLite handle is never shared between goroutines.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	tables   map[string]*table
}

// Compile-time interface check.
var _ types.Adapter = (*Backend)(nil)

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach to initialize.
func NewBackend() *Backend {
	return &Backend{
		tables: make(map[string]*table),
	}
}

// Name returns types.BackendSQLite.
func (b *Backend) Name() string { return types.BackendSQLite }

// Attach opens the database file in config.DataDir, creating the directory
// if needed, and creates (if not exists) one table plus its indexes for
// every kind. Returns ErrAlreadyAttached if already attached.
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

	dbPath := filepath.Join(dataDir, config.GetSQLiteFile())
	db, err := sql.Open("sqlite", dbPath+dsnPragmas)
	if err != nil {
		return err
	}

	tables := make(map[string]*table, len(kinds))
	for _, kind := range kinds {
		tables[kind.Name()] = newTable(config.Namespace, kind)
	}
	if err := createSchema(db, tables, kinds); err != nil {
		return multierr.Append(err, db.Close())
	}

	b.db = db
	b.config = config
	b.tables = tables
	b.attached = true

	log.WithFields(log.Fields{
		"backend":   types.BackendSQLite,
		"path":      dbPath,
		"namespace": config.Namespace,
		"kinds":     len(kinds),
	}).Info("attached")
	return nil
}

// createSchema applies the DDL of every kind in one transaction.
func createSchema(db *sql.DB, tables map[string]*table, kinds []*types.Kind) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning schema transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); !errors.Is(rbErr, sql.ErrTxDone) {
			err = multierr.Append(err, rbErr)
		}
	}()

	for _, kind := range kinds {
		t := tables[kind.Name()]
		for _, stmt := range schemaDDL(t.name, kind) {
			log.WithFields(log.Fields{"kind": kind.Name(), "sql": stmt}).Debug("schema")
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("creating table for %s: %w", kind.Name(), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}
	return nil
}

// Detach closes the database. After Detach, all operations return
// ErrDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	b.tables = make(map[string]*table)
	log.WithField("backend", types.BackendSQLite).Info("detached")
	return nil
}

// Close implements types.Adapter by detaching.
func (b *Backend) Close() error {
	return b.Detach()
}

// acquire returns the database handle and the derived table of kind.
func (b *Backend) acquire(kind *types.Kind) (*sql.DB, *table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, nil, types.ErrDetached
	}
	t, ok := b.tables[kind.Name()]
	if !ok || t.kind != kind {
		return nil, nil, fmt.Errorf("%w: %s", types.ErrUnknownKind, kind.Name())
	}
	return b.db, t, nil
}

func logStatement(kind *types.Kind, stmt string, args []any) {
	log.WithFields(log.Fields{
		"backend": types.BackendSQLite,
		"kind":    kind.Name(),
		"sql":     stmt,
		"args":    args,
	}).Debug("exec")
}

// Insert writes every field column. When id is nil the table's
// autoincrement key is read back and returned.
func (b *Backend) Insert(kind *types.Kind, id any, data map[string]any) (any, error) {
	db, t, err := b.acquire(kind)
	if err != nil {
		return nil, err
	}

	if id == nil {
		args := t.values(data)
		logStatement(kind, t.insertSQL, args)
		res, err := db.Exec(t.insertSQL, args...)
		if err != nil {
			return nil, fmt.Errorf("inserting %s: %w", kind.Name(), translateError(kind, data, err))
		}
		newID, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("reading %s identity: %w", kind.Name(), err)
		}
		return newID, nil
	}

	args := append([]any{id}, t.values(data)...)
	logStatement(kind, t.insertWithIDSQL, args)
	if _, err := db.Exec(t.insertWithIDSQL, args...); err != nil {
		return nil, fmt.Errorf("inserting %s: %w", kind.Name(), translateError(kind, data, err))
	}
	return id, nil
}

// Update sets every field column of the row with the given identity.
func (b *Backend) Update(kind *types.Kind, id any, data map[string]any) error {
	db, t, err := b.acquire(kind)
	if err != nil {
		return err
	}

	if t.updateSQL == "" {
		// No columns to set; the row only has to exist.
		keys, err := b.Keys(types.NewQuery(kind).Where(types.IdentityName, types.OpEq, id).Limit(1))
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return kind.ErrNotFound()
		}
		return nil
	}

	args := append(t.values(data), id)
	logStatement(kind, t.updateSQL, args)
	res, err := db.Exec(t.updateSQL, args...)
	if err != nil {
		return fmt.Errorf("updating %s: %w", kind.Name(), translateError(kind, data, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating %s: %w", kind.Name(), err)
	}
	if n == 0 {
		return kind.ErrNotFound()
	}
	return nil
}

// Query compiles q and streams hydrated entities from the result cursor.
// The statement runs when the sequence is first pulled.
func (b *Backend) Query(q types.Query) iter.Seq2[*types.Entity, error] {
	return func(yield func(*types.Entity, error) bool) {
		kind := q.Kind()
		db, t, err := b.acquire(kind)
		if err != nil {
			yield(nil, err)
			return
		}
		stmt, args, err := t.selectSQL(q)
		if err != nil {
			yield(nil, err)
			return
		}

		logStatement(kind, stmt, args)
		rows, err := db.Query(stmt, args...)
		if err != nil {
			yield(nil, fmt.Errorf("querying %s: %w", kind.Name(), err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			e, err := t.scanEntity(rows)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("iterating %s: %w", kind.Name(), err))
		}
	}
}

// scanEntity reads one projected row into a clean, persisted entity.
func (t *table) scanEntity(rows *sql.Rows) (*types.Entity, error) {
	dest := make([]any, len(t.fields)+1)
	ptrs := make([]any, len(dest))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", t.kind.Name(), err)
	}
	raw := make(map[string]any, len(t.fields))
	for i, name := range t.fields {
		raw[name] = dest[i+1]
	}
	return t.kind.Load(dest[0], raw)
}

// Keys returns the identities of rows matching q.
func (b *Backend) Keys(q types.Query) ([]any, error) {
	kind := q.Kind()
	db, t, err := b.acquire(kind)
	if err != nil {
		return nil, err
	}
	stmt, args, err := t.keysSQL(q)
	if err != nil {
		return nil, err
	}

	logStatement(kind, stmt, args)
	rows, err := db.Query(stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s keys: %w", kind.Name(), err)
	}
	defer rows.Close()

	var keys []any
	for rows.Next() {
		var id any
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning %s key: %w", kind.Name(), err)
		}
		keys = append(keys, id)
	}
	return keys, rows.Err()
}

// DeleteBy removes rows matching filters and returns the count.
func (b *Backend) DeleteBy(kind *types.Kind, filters []types.Filter) (int64, error) {
	db, t, err := b.acquire(kind)
	if err != nil {
		return 0, err
	}
	stmt, args, err := t.deleteSQL(filters)
	if err != nil {
		return 0, err
	}
	return execDelete(db, kind, stmt, args)
}

// DeleteKeys removes rows by identity and returns the count.
func (b *Backend) DeleteKeys(kind *types.Kind, ids []any) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db, t, err := b.acquire(kind)
	if err != nil {
		return 0, err
	}
	stmt, args, err := t.deleteKeysSQL(ids)
	if err != nil {
		return 0, err
	}
	return execDelete(db, kind, stmt, args)
}

func execDelete(db *sql.DB, kind *types.Kind, stmt string, args []any) (int64, error) {
	logStatement(kind, stmt, args)
	res, err := db.Exec(stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting %s: %w", kind.Name(), err)
	}
	return res.RowsAffected()
}
