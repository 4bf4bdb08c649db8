package types

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// IdentityName is the name of the identity column/property of every kind.
const IdentityName = "_id"

// Kind is a registered entity schema: a name and an ordered list of bound
// fields. Kinds are immutable once registered.
type Kind struct {
	name        string
	fields      []*Field
	byName      map[string]*Field
	identity    *Field
	errNotFound *NotFoundError
}

// Name returns the kind name.
func (k *Kind) Name() string { return k.name }

// Fields returns the fields in declaration order.
func (k *Kind) Fields() []*Field {
	out := make([]*Field, len(k.fields))
	copy(out, k.fields)
	return out
}

// Field returns the named field.
func (k *Kind) Field(name string) (*Field, bool) {
	f, ok := k.byName[name]
	return f, ok
}

// Identity returns the user-declared identity field, or nil when identity is
// assigned by the backend.
func (k *Kind) Identity() *Field { return k.identity }

// HasCustomIdentity reports whether the kind declares its own identity field.
func (k *Kind) HasCustomIdentity() bool { return k.identity != nil }

// ErrNotFound returns the kind's own not-found error. It matches both
// itself and the generic ErrNotFound under errors.Is.
func (k *Kind) ErrNotFound() error { return k.errNotFound }

// IsNotFound reports whether err is this kind's not-found error.
func (k *Kind) IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) && nf == k.errNotFound
}

func (k *Kind) String() string { return k.name }

// SerializeIdentity converts an identity value to its storable form.
// Backend-assigned identities are integers and pass through as int64.
func (k *Kind) SerializeIdentity(id any) (any, error) {
	if k.identity != nil {
		return k.identity.Serialize(id)
	}
	if id == nil {
		return nil, nil
	}
	n, ok := ToInt64(id)
	if !ok {
		return nil, &ValidationError{Kind: k.name, Field: IdentityName, Expected: "integer", Got: id}
	}
	return n, nil
}

// DeserializeIdentity converts a stored identity back to its in-memory form.
func (k *Kind) DeserializeIdentity(raw any) (any, error) {
	if k.identity != nil {
		return k.identity.Deserialize(raw)
	}
	if raw == nil {
		return nil, nil
	}
	n, ok := ToInt64(raw)
	if !ok {
		return nil, &ValidationError{Kind: k.name, Field: IdentityName, Expected: "integer", Got: raw}
	}
	return n, nil
}

// ToInt64 converts any Go integer value to int64. Unsigned values above
// math.MaxInt64 do not fit and report false.
func ToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

// KindBuilder collects field declarations for a kind. Errors are deferred to
// Register.
type KindBuilder struct {
	kind *Kind
	err  error
}

// DefineKind starts the declaration of a kind.
func DefineKind(name string) *KindBuilder {
	b := &KindBuilder{kind: &Kind{
		name:   name,
		byName: make(map[string]*Field),
	}}
	if name == "" {
		b.err = fmt.Errorf("%w: empty kind name", ErrInvalidName)
	}
	return b
}

// Field appends a field to the kind. The field's name is bound here.
func (b *KindBuilder) Field(name string, f *Field) *KindBuilder {
	if b.err != nil {
		return b
	}
	switch {
	case name == "":
		b.err = fmt.Errorf("%w: empty field name on %s", ErrInvalidName, b.kind.name)
		return b
	case name == IdentityName:
		b.err = fmt.Errorf("%w: %q is reserved, use Identity", ErrInvalidName, name)
		return b
	case b.kind.byName[name] != nil:
		b.err = fmt.Errorf("%w: duplicate field %q on %s", ErrInvalidName, name, b.kind.name)
		return b
	}
	if err := f.bind(b.kind.name, name); err != nil {
		b.err = err
		return b
	}
	b.kind.fields = append(b.kind.fields, f)
	b.kind.byName[name] = f
	return b
}

// Identity declares a user-supplied identity field. Entities of such kinds
// must carry an identity before their first save.
func (b *KindBuilder) Identity(f *Field) *KindBuilder {
	if b.err != nil {
		return b
	}
	if f.Type() == TypeBlob || f.Type() == TypeJSON {
		b.err = fmt.Errorf("%w: identity of %s must be text", ErrInvalidName, b.kind.name)
		return b
	}
	if err := f.bind(b.kind.name, IdentityName); err != nil {
		b.err = err
		return b
	}
	f.opts.Primary = true
	b.kind.identity = f
	return b
}

// Register adds the kind to reg and returns the kind handle.
func (b *KindBuilder) Register(reg *Registry) (*Kind, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.kind.errNotFound = &NotFoundError{Kind: b.kind.name}
	if err := reg.add(b.kind); err != nil {
		return nil, err
	}
	return b.kind, nil
}

// MustRegister is like Register but panics on error. Intended for
// package-level kind declarations.
func (b *KindBuilder) MustRegister(reg *Registry) *Kind {
	k, err := b.Register(reg)
	if err != nil {
		panic(err)
	}
	return k
}

// Registry holds the kinds known to a connection, in registration order.
type Registry struct {
	mu     sync.RWMutex
	kinds  []*Kind
	byName map[string]*Kind
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Kind)}
}

func (r *Registry) add(k *Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[k.name]; ok {
		return fmt.Errorf("%w: %s", ErrKindExists, k.name)
	}
	r.kinds = append(r.kinds, k)
	r.byName[k.name] = k
	return nil
}

// Kinds returns all registered kinds in registration order.
func (r *Registry) Kinds() []*Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Kind, len(r.kinds))
	copy(out, r.kinds)
	return out
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name string) (*Kind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, name)
	}
	return k, nil
}

// CheckRequired returns a *ValidationError for the first field of kind that
// rejects empty values but has none in the serialized data.
func CheckRequired(kind *Kind, data map[string]any) error {
	for _, f := range kind.fields {
		if f.opts.Empty {
			continue
		}
		if data[f.name] == nil {
			return &ValidationError{Kind: kind.name, Field: f.name, Expected: "non-empty value", Got: nil}
		}
	}
	return nil
}
