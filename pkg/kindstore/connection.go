package kindstore

import (
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"

	"github.com/mesh-intelligence/kindstore/internal/docstore"
	"github.com/mesh-intelligence/kindstore/internal/sqlite"
	"github.com/mesh-intelligence/kindstore/pkg/types"
)

// attacher is the lifecycle half of the built-in backends.
type attacher interface {
	types.Adapter
	Attach(config types.Config, kinds []*types.Kind) error
}

// Connection owns an attached backend and the registry it was prepared for.
// A Connection is safe for concurrent use.
type Connection struct {
	config   types.Config
	registry *types.Registry
	adapter  types.Adapter
	closed   atomic.Bool
}

// Option configures Open.
type Option func(*options)

type options struct {
	scope tally.Scope
}

// WithScope reports per-operation metrics to scope.
func WithScope(scope tally.Scope) Option {
	return func(o *options) { o.scope = scope }
}

// Open attaches the backend named by config.Backend and creates storage for
// every kind in registry.
func Open(config types.Config, registry *types.Registry, opts ...Option) (*Connection, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var backend attacher
	switch config.Backend {
	case types.BackendSQLite:
		backend = sqlite.NewBackend()
	case types.BackendDocStore:
		backend = docstore.NewBackend()
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrBackendUnknown, config.Backend)
	}
	if err := backend.Attach(config, registry.Kinds()); err != nil {
		return nil, fmt.Errorf("attach %s: %w", config.Backend, err)
	}

	var adapter types.Adapter = backend
	if o.scope != nil {
		adapter = instrument(adapter, o.scope)
	}
	return NewConnection(config, registry, adapter), nil
}

// NewConnection wraps an already attached adapter. Open is the usual entry
// point; NewConnection serves custom adapters and tests.
func NewConnection(config types.Config, registry *types.Registry, adapter types.Adapter) *Connection {
	return &Connection{config: config, registry: registry, adapter: adapter}
}

// Config returns the configuration the connection was opened with.
func (c *Connection) Config() types.Config { return c.config }

// Registry returns the registry whose kinds the connection serves.
func (c *Connection) Registry() *types.Registry { return c.registry }

// Adapter returns the backend adapter.
func (c *Connection) Adapter() types.Adapter { return c.adapter }

// Close releases the backend. If c is the process default it is unset.
// Close is idempotent.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	defaultConn.CompareAndSwap(c, nil)
	if err := c.adapter.Close(); err != nil {
		return fmt.Errorf("close %s: %w", c.adapter.Name(), err)
	}
	log.WithField("backend", c.adapter.Name()).Debug("connection closed")
	return nil
}

var defaultConn atomic.Pointer[Connection]

// SetDefault makes c the process-wide connection used by Entities. Passing
// nil clears it.
func SetDefault(c *Connection) {
	defaultConn.Store(c)
}

// Default returns the process-wide connection, or ErrNoConnection.
func Default() (*Connection, error) {
	c := defaultConn.Load()
	if c == nil {
		return nil, types.ErrNoConnection
	}
	return c, nil
}
