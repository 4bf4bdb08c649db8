package types

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Fields maps field names to values. It is used for entity construction and
// for equality filters.
type Fields map[string]any

// Names returns the keys in sorted order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entity is one record of a kind, persisted or not. It tracks whether it has
// ever been persisted (new) and whether it holds unsaved changes (modified).
// An Entity is not safe for concurrent mutation.
type Entity struct {
	kind     *Kind
	id       any
	values   map[string]any
	new      bool
	modified bool
}

// New builds an unsaved entity from raw values. Values are not validated
// here; a wrong-typed value fails when the entity is serialized for saving.
// Unknown field names are rejected.
func (k *Kind) New(values Fields) (*Entity, error) {
	e := &Entity{
		kind:     k,
		values:   make(map[string]any, len(values)),
		new:      true,
		modified: true,
	}
	for name, v := range values {
		if _, ok := k.byName[name]; !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, k.name, name)
		}
		e.values[name] = v
	}
	return e, nil
}

// Load hydrates a persisted, clean entity from backend values. Each value is
// passed through its field's Deserialize. Unknown names are ignored.
func (k *Kind) Load(id any, raw map[string]any) (*Entity, error) {
	e := &Entity{
		kind:   k,
		values: make(map[string]any, len(raw)),
	}
	ident, err := k.DeserializeIdentity(id)
	if err != nil {
		return nil, err
	}
	e.id = ident
	for name, r := range raw {
		f, ok := k.byName[name]
		if !ok {
			continue
		}
		v, err := f.Deserialize(r)
		if err != nil {
			return nil, err
		}
		e.values[name] = v
	}
	return e, nil
}

// Kind returns the entity's kind.
func (e *Entity) Kind() *Kind { return e.kind }

// ID returns the identity, or nil if none has been assigned.
func (e *Entity) ID() any { return e.id }

// HasID reports whether the entity carries an identity.
func (e *Entity) HasID() bool { return e.id != nil }

// IsNew reports whether the entity has never been persisted.
func (e *Entity) IsNew() bool { return e.new }

// IsModified reports whether the entity has unsaved changes.
func (e *Entity) IsModified() bool { return e.modified }

// Get returns the value of a field, or nil if it was never assigned.
func (e *Entity) Get(name string) any {
	return e.values[name]
}

// Lookup returns the value of a field and whether it was assigned.
func (e *Entity) Lookup(name string) (any, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Text returns the value of a text field, or "" when unset or not a string.
func (e *Entity) Text(name string) string {
	s, _ := e.values[name].(string)
	return s
}

// Set validates v against the named field and stores it. The entity is
// marked modified only when v differs from the stored value.
func (e *Entity) Set(name string, v any) error {
	f, ok := e.kind.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, e.kind.name, name)
	}
	if err := f.Validate(v); err != nil {
		return err
	}
	if cur, ok := e.values[name]; ok && reflect.DeepEqual(cur, v) {
		return nil
	}
	e.values[name] = v
	e.modified = true
	return nil
}

// SetID assigns the identity. Kinds with a custom identity field validate
// the value through that field; backend-assigned identities are not
// validated.
func (e *Entity) SetID(id any) error {
	if !e.new && e.id != nil {
		if reflect.DeepEqual(e.id, id) {
			return nil
		}
		return fmt.Errorf("%w: identity of a persisted %s is immutable", ErrConfiguration, e.kind.name)
	}
	if e.kind.identity != nil {
		if err := e.kind.identity.Validate(id); err != nil {
			return err
		}
	}
	if reflect.DeepEqual(e.id, id) {
		return nil
	}
	e.id = id
	e.modified = true
	return nil
}

// Data serializes the entity into a flat field-name to backend-value map.
// Fields without a value fall back to their declared default.
func (e *Entity) Data() (map[string]any, error) {
	data := make(map[string]any, len(e.kind.fields))
	for _, f := range e.kind.fields {
		v, ok := e.values[f.name]
		if !ok {
			v = f.Default()
		}
		raw, err := f.Serialize(v)
		if err != nil {
			return nil, err
		}
		data[f.name] = raw
	}
	return data, nil
}

// IdentityForSave returns the serialized identity to persist with. It is a
// *ConfigurationError for a custom-identity kind to be saved without one.
func (e *Entity) IdentityForSave() (any, error) {
	if e.id == nil {
		if e.kind.identity != nil {
			return nil, &ConfigurationError{Kind: e.kind.name, Reason: "custom identity field not set"}
		}
		return nil, nil
	}
	return e.kind.SerializeIdentity(e.id)
}

// MarkSaved records a successful persist: the identity is assigned (once)
// and the entity becomes clean.
func (e *Entity) MarkSaved(id any) error {
	if e.id != nil && id != nil && !reflect.DeepEqual(e.id, id) {
		return fmt.Errorf("%w: identity of %s cannot change from %v to %v",
			ErrConfiguration, e.kind.name, e.id, id)
	}
	if e.id == nil {
		e.id = id
	}
	e.new = false
	e.modified = false
	return nil
}

func (e *Entity) GoString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<%s: _id=%v", e.kind.name, e.id)
	for _, f := range e.kind.fields {
		if v, ok := e.values[f.name]; ok {
			fmt.Fprintf(&sb, " %s=%v", f.name, v)
		}
	}
	sb.WriteString(">")
	return sb.String()
}
