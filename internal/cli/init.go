package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the config, schema and data store",
		Long: `Init writes config.yaml and a sample kinds.yaml when they are missing,
then opens the configured backend once so the data store exists.

Example:
  kindstore init
  kindstore init --backend docstore --data-dir /tmp/ks`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaPath, err := a.schemaFile()
			if err != nil {
				return err
			}
			if err := writeSchemaIfMissing(schemaPath); err != nil {
				return err
			}
			conn, _, err := a.open()
			if err != nil {
				return err
			}
			cfg := conn.Config()
			if err := conn.Close(); err != nil {
				return err
			}

			out := map[string]string{
				"config_dir": a.configDir,
				"data_dir":   cfg.GetDataDir(),
				"schema":     schemaPath,
				"backend":    cfg.Backend,
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "config:  %s\n", out["config_dir"])
			fmt.Fprintf(w, "schema:  %s\n", out["schema"])
			fmt.Fprintf(w, "data:    %s\n", out["data_dir"])
			fmt.Fprintf(w, "backend: %s\n", out["backend"])
			return nil
		},
	}
}

// writeSchemaIfMissing writes the sample schema to path unless a file is
// already there.
func writeSchemaIfMissing(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat schema file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create schema dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultSchemaYAML), 0o644); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	log.WithField("path", path).Info("wrote sample schema")
	return nil
}

// kindInfo is the JSON form of a registered kind.
type kindInfo struct {
	Name     string      `json:"name"`
	Identity string      `json:"identity"`
	Fields   []fieldInfo `json:"fields"`
}

type fieldInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Indexed bool   `json:"indexed,omitempty"`
	Unique  bool   `json:"unique,omitempty"`
	Empty   bool   `json:"empty,omitempty"`
}

func describeKind(kind *types.Kind) kindInfo {
	info := kindInfo{Name: kind.Name(), Identity: "auto"}
	if id := kind.Identity(); id != nil {
		info.Identity = string(id.Type())
	}
	for _, f := range kind.Fields() {
		o := f.Options()
		info.Fields = append(info.Fields, fieldInfo{
			Name:    f.Name(),
			Type:    string(f.Type()),
			Indexed: o.Index,
			Unique:  o.Unique,
			Empty:   o.Empty,
		})
	}
	return info
}

func (a *app) newKindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the kinds declared in the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaPath, err := a.schemaFile()
			if err != nil {
				return err
			}
			reg, err := loadSchema(schemaPath)
			if err != nil {
				return err
			}
			var infos []kindInfo
			for _, kind := range reg.Kinds() {
				infos = append(infos, describeKind(kind))
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), infos)
			}
			w := cmd.OutOrStdout()
			for _, info := range infos {
				fmt.Fprintf(w, "%s (identity: %s)\n", info.Name, info.Identity)
				for _, f := range info.Fields {
					fmt.Fprintf(w, "  %-20s %-5s%s\n", f.Name, f.Type, fieldFlags(f))
				}
			}
			return nil
		},
	}
}

func fieldFlags(f fieldInfo) string {
	var s string
	if f.Indexed {
		s += " indexed"
	}
	if f.Unique {
		s += " unique"
	}
	if f.Empty {
		s += " empty"
	}
	return s
}
