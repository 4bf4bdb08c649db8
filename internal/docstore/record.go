package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

// Property type tags used in the snapshot.
const (
	tagString = "s"
	tagBytes  = "b"
	tagInt    = "i"
	tagNull   = "n"
)

// record is one stored entity: its key and serialized field values. Records
// are never mutated once stored; writes replace the whole record.
type record struct {
	Key   Key        `json:"key"`
	Props properties `json:"props"`
}

// entity hydrates a clean entity of kind from the record. Byte values are
// copied so callers cannot reach into stored state.
func (r *record) entity(kind *types.Kind) (*types.Entity, error) {
	raw := make(map[string]any, len(r.Props))
	for name, v := range r.Props {
		if b, ok := v.([]byte); ok {
			v = bytes.Clone(b)
		}
		raw[name] = v
	}
	return kind.Load(r.Key.identity(kind), raw)
}

// value returns the stored value of a field, or the identity for "_id".
func (r *record) value(kind *types.Kind, field string) any {
	if field == types.IdentityName {
		return r.Key.identity(kind)
	}
	return r.Props[field]
}

// properties holds serialized field values. In the snapshot each value is
// written with a type tag so strings and bytes survive the JSON round trip:
// {"t":"s|b|i|n","v":...}.
type properties map[string]any

type property struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v,omitempty"`
}

func newProperties(data map[string]any) properties {
	return properties(maps.Clone(data))
}

func (p properties) MarshalJSON() ([]byte, error) {
	out := make(map[string]property, len(p))
	for name, v := range p {
		prop, err := encodeProperty(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		out[name] = prop
	}
	return json.Marshal(out)
}

func (p *properties) UnmarshalJSON(data []byte) error {
	var in map[string]property
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := make(properties, len(in))
	for name, prop := range in {
		v, err := decodeProperty(prop)
		if err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		out[name] = v
	}
	*p = out
	return nil
}

func encodeProperty(v any) (property, error) {
	switch x := v.(type) {
	case nil:
		return property{T: tagNull}, nil
	case string:
		raw, err := json.Marshal(x)
		return property{T: tagString, V: raw}, err
	case []byte:
		raw, err := json.Marshal(x)
		return property{T: tagBytes, V: raw}, err
	}
	if n, ok := types.ToInt64(v); ok {
		raw, err := json.Marshal(n)
		return property{T: tagInt, V: raw}, err
	}
	return property{}, fmt.Errorf("unsupported stored type %T", v)
}

func decodeProperty(p property) (any, error) {
	switch p.T {
	case tagNull:
		return nil, nil
	case tagString:
		var s string
		err := json.Unmarshal(p.V, &s)
		return s, err
	case tagBytes:
		var b []byte
		err := json.Unmarshal(p.V, &b)
		if b == nil && err == nil {
			b = []byte{}
		}
		return b, err
	case tagInt:
		var n int64
		err := json.Unmarshal(p.V, &n)
		return n, err
	default:
		return nil, fmt.Errorf("unknown property tag %q", p.T)
	}
}
