package docstore

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

// Key addresses one record: an optional namespace, the kind name, and either
// a numeric ID allocated by the store or a caller-supplied name. Which of the
// two is meaningful is decided by the kind: kinds with a custom identity are
// named, all others are numbered.
type Key struct {
	Namespace string `json:"ns,omitempty"`
	Kind      string `json:"kind"`
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
}

// String renders the key as "[ns/]Kind:42" or "[ns/]Kind:'name'".
func (k Key) String() string {
	var sb strings.Builder
	if k.Namespace != "" {
		sb.WriteString(k.Namespace)
		sb.WriteByte('/')
	}
	sb.WriteString(k.Kind)
	sb.WriteByte(':')
	if k.Name != "" || k.ID == 0 {
		sb.WriteString("'" + k.Name + "'")
	} else {
		fmt.Fprintf(&sb, "%d", k.ID)
	}
	return sb.String()
}

// scope is the unit of ID allocation: one counter per namespace and kind.
type scope struct {
	namespace string
	kind      string
}

func (k Key) scope() scope { return scope{namespace: k.Namespace, kind: k.Kind} }

// identity returns the serialized entity identity carried by the key.
func (k Key) identity(kind *types.Kind) any {
	if kind.HasCustomIdentity() {
		return k.Name
	}
	return k.ID
}

// compareKeys orders keys by namespace, kind, ID, then name.
func compareKeys(a, b Key) int {
	return cmp.Or(
		cmp.Compare(a.Namespace, b.Namespace),
		cmp.Compare(a.Kind, b.Kind),
		cmp.Compare(a.ID, b.ID),
		cmp.Compare(a.Name, b.Name),
	)
}

// keyFor builds the key of a serialized identity.
func keyFor(namespace string, kind *types.Kind, id any) (Key, error) {
	key := Key{Namespace: namespace, Kind: kind.Name()}
	if kind.HasCustomIdentity() {
		name, ok := id.(string)
		if !ok {
			return Key{}, &types.ValidationError{Kind: kind.Name(), Field: types.IdentityName, Expected: "string", Got: id}
		}
		key.Name = name
		return key, nil
	}
	n, ok := types.ToInt64(id)
	if !ok {
		return Key{}, &types.ValidationError{Kind: kind.Name(), Field: types.IdentityName, Expected: "integer", Got: id}
	}
	key.ID = n
	return key, nil
}
