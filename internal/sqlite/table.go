package sqlite

import (
	"strings"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

// table holds the derived storage schema of one kind: its table name, the
// ordered column list and the precompiled write statements.
type table struct {
	name   string
	quoted string
	kind   *types.Kind
	fields []string

	insertSQL       string // backend-assigned identity
	insertWithIDSQL string // caller-supplied identity
	updateSQL       string
}

func newTable(namespace string, kind *types.Kind) *table {
	name := tableName(namespace, kind)
	t := &table{
		name:   name,
		quoted: quoteIdent(name),
		kind:   kind,
	}
	for _, f := range kind.Fields() {
		t.fields = append(t.fields, f.Name())
	}

	cols := make([]string, len(t.fields))
	sets := make([]string, len(t.fields))
	for i, name := range t.fields {
		cols[i] = quoteIdent(name)
		sets[i] = quoteIdent(name) + " = ?"
	}

	t.insertSQL = "INSERT INTO " + t.quoted + " (" + strings.Join(cols, ", ") +
		") VALUES (" + placeholders(len(cols)) + ");"
	if len(cols) == 0 {
		t.insertSQL = "INSERT INTO " + t.quoted + " DEFAULT VALUES;"
	}
	withID := append([]string{quoteIdent(types.IdentityName)}, cols...)
	t.insertWithIDSQL = "INSERT INTO " + t.quoted + " (" + strings.Join(withID, ", ") +
		") VALUES (" + placeholders(len(withID)) + ");"
	if len(sets) > 0 {
		t.updateSQL = "UPDATE " + t.quoted + " SET " + strings.Join(sets, ", ") +
			" WHERE " + quoteIdent(types.IdentityName) + " = ?;"
	}
	return t
}

// values returns the serialized field values in column order.
func (t *table) values(data map[string]any) []any {
	args := make([]any, len(t.fields))
	for i, name := range t.fields {
		args[i] = data[name]
	}
	return args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
