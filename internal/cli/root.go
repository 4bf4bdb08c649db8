// Package cli implements the kindstore command-line interface: it loads kind
// declarations from a YAML schema file and drives the entity manager against
// the configured backend.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/kindstore/internal/paths"
	"github.com/mesh-intelligence/kindstore/pkg/kindstore"
	"github.com/mesh-intelligence/kindstore/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// errUsage marks malformed command arguments.
var errUsage = errors.New("usage error")

// rootFlags holds global flag values.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	namespace string
	schema    string
	logLevel  string
	jsonMode  bool
	user      bool
}

// app is the state of one CLI invocation.
type app struct {
	flags     rootFlags
	configDir string
	v         *viper.Viper
}

// NewRootCmd creates the top-level "kindstore" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:     "kindstore",
		Short:   "Store and query entities of declared kinds",
		Long:    "kindstore persists entities of the kinds declared in a YAML schema\nto a SQLite database or an embedded document store.",
		Version: kindstore.Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $(CWD)/.kindstore)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.kindstore-db)")
	pf.StringVar(&a.flags.backend, "backend", "", "storage backend: sqlite or docstore")
	pf.StringVar(&a.flags.namespace, "namespace", "", "namespace prefix for tables and keys")
	pf.StringVar(&a.flags.schema, "schema", "", "kind schema file (default: <config-dir>/kinds.yaml)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level (default: warn)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.BoolVar(&a.flags.user, "user", false, "use the per-user config and data directories")

	root.AddCommand(
		newVersionCmd(),
		a.newInitCmd(),
		a.newKindsCmd(),
		a.newCreateCmd(),
		a.newGetCmd(),
		a.newExistsCmd(),
		a.newQueryCmd(),
		a.newDeleteCmd(),
	)
	return root
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kindstore:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to exitUserError when the caller can fix it by
// changing the input, and to exitSysError otherwise.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, errUsage),
		errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrMultipleResults),
		errors.Is(err, types.ErrUniquenessConflict),
		errors.Is(err, types.ErrUnknownKind),
		errors.Is(err, types.ErrUnknownField),
		errors.Is(err, types.ErrInvalidOperator),
		errors.Is(err, types.ErrUnsupported),
		errors.Is(err, types.ErrConfiguration),
		errors.Is(err, types.ErrBackendUnknown):
		return exitUserError
	default:
		return exitSysError
	}
}

// setup loads env files and config.yaml and configures logging.
func (a *app) setup(cmd *cobra.Command) error {
	for _, name := range []string{".env", ".env.local"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: loading %s: %w", types.ErrConfiguration, name, err)
		}
	}

	flag := a.flags.configDir
	if flag == "" && a.flags.user {
		dir, err := paths.DefaultConfigDir()
		if err != nil {
			return err
		}
		flag = dir
	}
	configDir, err := paths.ResolveConfigDir(flag)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}

	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	for key, name := range map[string]string{
		cfgKeyBackend:   "backend",
		cfgKeyNamespace: "namespace",
		cfgKeyLogLevel:  "log-level",
	} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}

	a.configDir = configDir
	a.v = v
	return configureLogging(cmd.ErrOrStderr(), v.GetString(cfgKeyLogLevel))
}

func configureLogging(w io.Writer, level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	log.SetOutput(w)
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	return nil
}

func (a *app) dataDir() (string, error) {
	flag := a.flags.dataDir
	if flag == "" && a.flags.user && a.v.GetString(cfgKeyDataDir) == "" {
		dir, err := paths.DefaultDataDir()
		if err != nil {
			return "", err
		}
		flag = dir
	}
	return paths.ResolveDataDir(flag, a.v.GetString(cfgKeyDataDir))
}

func (a *app) schemaFile() (string, error) {
	return paths.ResolveSchemaFile(a.flags.schema, a.v.GetString(cfgKeySchema), a.configDir)
}

// storeConfig builds the connection configuration.
func (a *app) storeConfig() (types.Config, error) {
	dataDir, err := a.dataDir()
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	return types.Config{
		Backend:   a.v.GetString(cfgKeyBackend),
		DataDir:   dataDir,
		Namespace: a.v.GetString(cfgKeyNamespace),
	}, nil
}

// open loads the schema, opens the connection and installs it as the
// process default. The caller must Close the connection.
func (a *app) open() (*kindstore.Connection, *types.Registry, error) {
	schemaPath, err := a.schemaFile()
	if err != nil {
		return nil, nil, err
	}
	reg, err := loadSchema(schemaPath)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := a.storeConfig()
	if err != nil {
		return nil, nil, err
	}
	conn, err := kindstore.Open(cfg, reg)
	if err != nil {
		return nil, nil, err
	}
	kindstore.SetDefault(conn)
	return conn, reg, nil
}

// withKind opens the store and runs fn with the named kind.
func (a *app) withKind(name string, fn func(kind *types.Kind) error) error {
	conn, reg, err := a.open()
	if err != nil {
		return err
	}
	defer conn.Close()

	kind, err := reg.Lookup(name)
	if err != nil {
		return err
	}
	return fn(kind)
}
