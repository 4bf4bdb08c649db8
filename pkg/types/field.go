package types

import (
	"fmt"

	"github.com/google/uuid"
)

// SemanticType tags the value type a field stores.
type SemanticType string

// Field semantic types.
const (
	TypeText SemanticType = "text"
	TypeBlob SemanticType = "blob"
	TypeJSON SemanticType = "json"
	TypeUUID SemanticType = "uuid"
)

// FieldType is the validation and serialization contract of a field.
// Serialize and Deserialize must be exact inverses for every value accepted
// by Validate.
type FieldType interface {
	// Type returns the semantic type tag.
	Type() SemanticType
	// Validate fails with a *ValidationError when v has the wrong runtime type.
	Validate(v any) error
	// Serialize converts an in-memory value to its storable representation.
	Serialize(v any) (any, error)
	// Deserialize converts a stored representation back to the in-memory value.
	Deserialize(raw any) (any, error)
}

// Options holds per-field storage metadata.
type Options struct {
	Default       any
	Index         bool
	Unique        bool
	Empty         bool // NULL allowed
	Primary       bool
	AutoIncrement bool
	Desc          bool // index sort direction hint
}

// Required reports whether the field rejects empty (NULL) values.
func (o Options) Required() bool { return !o.Empty }

// Option configures field Options.
type Option func(*Options)

// Default sets the value written when an entity holds no value for the field.
func Default(v any) Option { return func(o *Options) { o.Default = v } }

// Indexed declares a secondary index on the field.
func Indexed() Option { return func(o *Options) { o.Index = true } }

// Unique declares a uniqueness constraint on the field.
func Unique() Option { return func(o *Options) { o.Unique = true } }

// AllowEmpty lets the field store NULL.
func AllowEmpty() Option { return func(o *Options) { o.Empty = true } }

// Optional is AllowEmpty.
func Optional() Option { return AllowEmpty() }

// Descending sets the sort direction hint used for the field's index.
func Descending() Option { return func(o *Options) { o.Desc = true } }

// Primary marks the field as primary. Only meaningful for identity fields.
func Primary() Option { return func(o *Options) { o.Primary = true } }

// AutoIncrement marks the field as backend-incremented.
func AutoIncrement() Option { return func(o *Options) { o.AutoIncrement = true } }

// Field is a schema-time declaration of a typed property. Its name is bound
// once, when the owning kind is registered.
type Field struct {
	name string
	kind string
	typ  FieldType
	opts Options
}

// NewField creates an unbound field of the given type.
func NewField(typ FieldType, opts ...Option) *Field {
	f := &Field{typ: typ}
	for _, opt := range opts {
		opt(&f.opts)
	}
	return f
}

// Text declares a textual field.
func Text(opts ...Option) *Field {
	return NewField(textType{}, opts...)
}

// Blob declares a raw byte field. Blob fields are never indexed, unique or
// primary.
func Blob(opts ...Option) *Field {
	f := NewField(blobType{}, opts...)
	f.opts.Index = false
	f.opts.Unique = false
	f.opts.Primary = false
	return f
}

// JSON declares a structured field holding lists or mappings, stored as a
// canonical JSON blob.
func JSON(opts ...Option) *Field {
	f := Blob(opts...)
	f.typ = jsonType{}
	return f
}

// UUID declares a textual field holding a UUID string.
func UUID(opts ...Option) *Field {
	return NewField(uuidType{}, opts...)
}

// Name returns the bound field name, or "" before registration.
func (f *Field) Name() string { return f.name }

// Type returns the field's semantic type.
func (f *Field) Type() SemanticType { return f.typ.Type() }

// Options returns a copy of the field's storage metadata.
func (f *Field) Options() Options { return f.opts }

// Default returns the declared default value.
func (f *Field) Default() any { return f.opts.Default }

func (f *Field) bind(kind, name string) error {
	if f.name != "" {
		return fmt.Errorf("%w: %q", ErrFieldBound, f.name)
	}
	f.kind = kind
	f.name = name
	return nil
}

// Validate checks v against the field type. nil is always accepted; NULL
// handling belongs to the backend.
func (f *Field) Validate(v any) error {
	if v == nil {
		return nil
	}
	if err := f.typ.Validate(v); err != nil {
		return f.annotate(err)
	}
	return nil
}

// Serialize validates v and converts it to its storable form.
func (f *Field) Serialize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if err := f.Validate(v); err != nil {
		return nil, err
	}
	raw, err := f.typ.Serialize(v)
	if err != nil {
		return nil, f.annotate(err)
	}
	return raw, nil
}

// Deserialize converts a stored value back to its in-memory form.
func (f *Field) Deserialize(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	v, err := f.typ.Deserialize(raw)
	if err != nil {
		return nil, f.annotate(err)
	}
	return v, nil
}

func (f *Field) annotate(err error) error {
	if ve, ok := err.(*ValidationError); ok {
		ve.Kind = f.kind
		ve.Field = f.name
	}
	return err
}

func wrongType(expected string, got any) error {
	return &ValidationError{Expected: expected, Got: got}
}

type textType struct{}

func (textType) Type() SemanticType { return TypeText }

func (textType) Validate(v any) error {
	if _, ok := v.(string); !ok {
		return wrongType("string", v)
	}
	return nil
}

func (t textType) Serialize(v any) (any, error) {
	if err := t.Validate(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (textType) Deserialize(raw any) (any, error) {
	switch r := raw.(type) {
	case string:
		return r, nil
	case []byte:
		return string(r), nil
	default:
		return nil, wrongType("string", raw)
	}
}

type blobType struct{}

func (blobType) Type() SemanticType { return TypeBlob }

func (blobType) Validate(v any) error {
	if _, ok := v.([]byte); !ok {
		return wrongType("[]byte", v)
	}
	return nil
}

func (b blobType) Serialize(v any) (any, error) {
	if err := b.Validate(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (blobType) Deserialize(raw any) (any, error) {
	switch r := raw.(type) {
	case []byte:
		return r, nil
	case string:
		return []byte(r), nil
	default:
		return nil, wrongType("[]byte", raw)
	}
}

// jsonType stores lists ([]any) and string-keyed mappings (map[string]any)
// whose members are nil, bool, string, int64, float64 or nested lists and
// mappings. Every accepted value round-trips unchanged.
type jsonType struct{}

func (jsonType) Type() SemanticType { return TypeJSON }

func (jsonType) Validate(v any) error {
	const expected = "[]any or map[string]any of JSON values"
	switch v.(type) {
	case []any, map[string]any:
	default:
		return wrongType(expected, v)
	}
	if _, err := appendJSON(nil, v); err != nil {
		return wrongType(expected, v)
	}
	return nil
}

func (j jsonType) Serialize(v any) (any, error) {
	if err := j.Validate(v); err != nil {
		return nil, err
	}
	return appendJSON(nil, v)
}

func (jsonType) Deserialize(raw any) (any, error) {
	var data []byte
	switch r := raw.(type) {
	case []byte:
		data = r
	case string:
		data = []byte(r)
	default:
		return nil, wrongType("json bytes", raw)
	}
	v, err := DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	return v, nil
}

// uuidType stores UUIDs as canonical lowercase hyphenated text, the only
// spelling it accepts.
type uuidType struct {
	textType
}

func (uuidType) Type() SemanticType { return TypeUUID }

func (uuidType) Validate(v any) error {
	s, ok := v.(string)
	if !ok {
		return wrongType("uuid string", v)
	}
	u, err := uuid.Parse(s)
	if err != nil || u.String() != s {
		return wrongType("canonical lowercase uuid string", v)
	}
	return nil
}

func (u uuidType) Serialize(v any) (any, error) {
	if err := u.Validate(v); err != nil {
		return nil, err
	}
	return v, nil
}
