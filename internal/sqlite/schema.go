// Package sqlite implements the relational kindstore backend on SQLite.
// Table DDL is derived from registered kinds; queries are compiled to
// parameterized SQL.
package sqlite

import (
	"strings"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

// Column storage types.
const (
	sqlTypeInteger = "INTEGER"
	sqlTypeText    = "TEXT"
	sqlTypeBlob    = "BLOB"
)

// defaultLimit stands in for "no limit" when only an offset is requested;
// SQLite requires LIMIT before OFFSET.
const defaultLimit = 0x7FFFFFFF

// sqlTypes maps field semantic types to column types. Unlisted types are
// stored as BLOB.
var sqlTypes = map[types.SemanticType]string{
	types.TypeText: sqlTypeText,
	types.TypeUUID: sqlTypeText,
	types.TypeBlob: sqlTypeBlob,
	types.TypeJSON: sqlTypeBlob,
}

func columnType(f *types.Field) string {
	if t, ok := sqlTypes[f.Type()]; ok {
		return t
	}
	return sqlTypeBlob
}

// quoteIdent quotes an identifier, doubling any embedded double quote so
// that kind and field names can never break out of the identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// tableName returns the unquoted table name for a kind.
func tableName(namespace string, kind *types.Kind) string {
	if namespace == "" {
		return kind.Name()
	}
	return namespace + "_" + kind.Name()
}

// createTableSQL returns the CREATE TABLE statement for a kind: the identity
// primary key followed by one column per field in declaration order.
func createTableSQL(table string, kind *types.Kind) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE IF NOT EXISTS ")
	sb.WriteString(quoteIdent(table))
	sb.WriteString(" (\n    ")
	sb.WriteString(quoteIdent(types.IdentityName))
	if id := kind.Identity(); id != nil {
		sb.WriteString(" " + columnType(id) + " PRIMARY KEY NOT NULL")
	} else {
		sb.WriteString(" " + sqlTypeInteger + " PRIMARY KEY AUTOINCREMENT")
	}
	for _, f := range kind.Fields() {
		opts := f.Options()
		sb.WriteString(",\n    ")
		sb.WriteString(quoteIdent(f.Name()))
		sb.WriteString(" " + columnType(f))
		if opts.Unique {
			sb.WriteString(" UNIQUE")
		}
		if !opts.Empty {
			sb.WriteString(" NOT NULL")
		}
	}
	sb.WriteString("\n);")
	return sb.String()
}

// indexDDL returns one CREATE INDEX statement per indexed field.
func indexDDL(table string, kind *types.Kind) []string {
	var stmts []string
	for _, f := range kind.Fields() {
		opts := f.Options()
		if !opts.Index {
			continue
		}
		dir := "ASC"
		if opts.Desc {
			dir = "DESC"
		}
		stmts = append(stmts, "CREATE INDEX IF NOT EXISTS "+
			quoteIdent(table+"_"+f.Name()+"_index")+
			" ON "+quoteIdent(table)+" ("+quoteIdent(f.Name())+" "+dir+");")
	}
	return stmts
}

// schemaDDL lists every statement needed to create the storage for kind.
func schemaDDL(table string, kind *types.Kind) []string {
	return append([]string{createTableSQL(table, kind)}, indexDDL(table, kind)...)
}
