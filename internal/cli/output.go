package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

// entityMap renders an entity as its identity plus every declared field.
func entityMap(e *types.Entity) map[string]any {
	m := map[string]any{types.IdentityName: e.ID()}
	for _, f := range e.Kind().Fields() {
		m[f.Name()] = e.Get(f.Name())
	}
	return m
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeEntities prints entities as a JSON array or one line each:
//
//	WebAppRating:1 app_id=... app_name=foo rating={"stars":5}
func writeEntities(w io.Writer, jsonMode bool, entities []*types.Entity) error {
	if jsonMode {
		out := make([]map[string]any, 0, len(entities))
		for _, e := range entities {
			out = append(out, entityMap(e))
		}
		return writeJSON(w, out)
	}
	for _, e := range entities {
		if _, err := fmt.Fprintln(w, entityLine(e)); err != nil {
			return err
		}
	}
	return nil
}

func entityLine(e *types.Entity) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:%v", e.Kind().Name(), e.ID())
	names := make([]string, 0, len(e.Kind().Fields()))
	for _, f := range e.Kind().Fields() {
		names = append(names, f.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&sb, " %s=%s", name, formatValue(e.Get(name)))
	}
	return sb.String()
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return v
	case []byte:
		return base64.StdEncoding.EncodeToString(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}
