package cli

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

// schemaFile is the YAML form of a set of kind declarations:
//
//	kinds:
//	  - name: WebAppRating
//	    fields:
//	      - {name: app_id, type: uuid, indexed: true, unique: true}
//	      - {name: rating, type: json, empty: true}
type schemaFile struct {
	Kinds []kindSpec `yaml:"kinds"`
}

type kindSpec struct {
	Name     string      `yaml:"name"`
	Identity string      `yaml:"identity,omitempty"` // text or uuid; empty for store-assigned
	Fields   []fieldSpec `yaml:"fields"`
}

type fieldSpec struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Indexed    bool   `yaml:"indexed,omitempty"`
	Unique     bool   `yaml:"unique,omitempty"`
	Empty      bool   `yaml:"empty,omitempty"`
	Descending bool   `yaml:"descending,omitempty"`
	Default    any    `yaml:"default,omitempty"`
}

// defaultSchemaYAML is written by init when no schema file exists.
const defaultSchemaYAML = `# kindstore kind declarations.
# Field types: text, blob, json, uuid.
kinds:
  - name: WebAppRating
    fields:
      - name: app_id
        type: uuid
        indexed: true
        unique: true
      - name: app_name
        type: text
        unique: true
      - name: rating
        type: json
        empty: true
`

// loadSchema reads a schema file and registers its kinds.
func loadSchema(path string) (*types.Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: schema file %s not found (run kindstore init)", types.ErrConfiguration, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return parseSchema(data)
}

func parseSchema(data []byte) (*types.Registry, error) {
	var sf schemaFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("%w: parse schema: %v", types.ErrConfiguration, err)
	}
	reg := types.NewRegistry()
	for _, ks := range sf.Kinds {
		if err := ks.register(reg); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (ks kindSpec) register(reg *types.Registry) error {
	b := types.DefineKind(ks.Name)
	switch ks.Identity {
	case "":
	case string(types.TypeText):
		b.Identity(types.Text())
	case string(types.TypeUUID):
		b.Identity(types.UUID())
	default:
		return fmt.Errorf("%w: kind %s: identity must be text or uuid, got %q", types.ErrConfiguration, ks.Name, ks.Identity)
	}
	for _, fs := range ks.Fields {
		f, err := fs.field()
		if err != nil {
			return fmt.Errorf("kind %s: %w", ks.Name, err)
		}
		b.Field(fs.Name, f)
	}
	_, err := b.Register(reg)
	return err
}

func (fs fieldSpec) field() (*types.Field, error) {
	var opts []types.Option
	if fs.Indexed {
		opts = append(opts, types.Indexed())
	}
	if fs.Unique {
		opts = append(opts, types.Unique())
	}
	if fs.Empty {
		opts = append(opts, types.AllowEmpty())
	}
	if fs.Descending {
		opts = append(opts, types.Descending())
	}

	ctor, ok := fieldTypes[types.SemanticType(fs.Type)]
	if !ok {
		return nil, fmt.Errorf("%w: field %s: unknown type %q", types.ErrConfiguration, fs.Name, fs.Type)
	}
	if fs.Default != nil {
		def, err := fs.defaultValue(ctor())
		if err != nil {
			return nil, err
		}
		opts = append(opts, types.Default(def))
	}
	return ctor(opts...), nil
}

// fieldTypes maps schema type names to field constructors. An omitted type
// is text.
var fieldTypes = map[types.SemanticType]func(...types.Option) *types.Field{
	"":             types.Text,
	types.TypeText: types.Text,
	types.TypeUUID: types.UUID,
	types.TypeJSON: types.JSON,
	types.TypeBlob: types.Blob,
}

// defaultValue converts the YAML default into the field's in-memory type.
func (fs fieldSpec) defaultValue(f *types.Field) (any, error) {
	var v any = fs.Default
	if f.Type() == types.TypeBlob {
		s, ok := fs.Default.(string)
		if !ok {
			return nil, fmt.Errorf("%w: field %s: blob default must be base64 text", types.ErrConfiguration, fs.Name)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", types.ErrConfiguration, fs.Name, err)
		}
		v = b
	}
	if f.Type() == types.TypeJSON {
		v = jsonTree(v)
	}
	if err := f.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: field %s default: %v", types.ErrConfiguration, fs.Name, err)
	}
	return v, nil
}

// jsonTree converts a YAML-decoded value into JSON field form: integers
// become int64 and string-keyed maps map[string]any.
func jsonTree(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v)
		}
		return float64(v)
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = jsonTree(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			out[k] = jsonTree(elem)
		}
		return out
	default:
		return v
	}
}
