package types

import "errors"

// Config holds backend selection and parameters for opening a connection.
type Config struct {
	Backend   string `json:"backend" yaml:"backend"`
	DataDir   string `json:"data_dir" yaml:"data_dir"`
	Namespace string `json:"namespace" yaml:"namespace"`

	// SQLiteFile is the database file name inside DataDir.
	SQLiteFile string `json:"sqlite_file" yaml:"sqlite_file"`
	// DocStoreFile is the snapshot file name inside DataDir. Defaults to
	// "<namespace>.jsonl".
	DocStoreFile string `json:"docstore_file" yaml:"docstore_file"`
}

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendDocStore = "docstore"
)

// DefaultSQLiteFile is the database file used when Config.SQLiteFile is
// empty.
const DefaultSQLiteFile = "kindstore.db"

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite:   true,
	BackendDocStore: true,
}

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	return nil
}

// GetDataDir returns DataDir, or "." when unset.
func (c Config) GetDataDir() string {
	if c.DataDir == "" {
		return "."
	}
	return c.DataDir
}

// GetSQLiteFile returns the configured database file name or the default.
func (c Config) GetSQLiteFile() string {
	if c.SQLiteFile == "" {
		return DefaultSQLiteFile
	}
	return c.SQLiteFile
}

// GetDocStoreFile returns the configured snapshot file name or the
// namespace-derived default.
func (c Config) GetDocStoreFile() string {
	if c.DocStoreFile != "" {
		return c.DocStoreFile
	}
	if c.Namespace != "" {
		return c.Namespace + ".jsonl"
	}
	return "default.jsonl"
}
