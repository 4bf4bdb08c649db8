package sqlite

import (
	"strings"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

// column returns the table-qualified, quoted column reference.
func (t *table) column(name string) string {
	return t.quoted + "." + quoteIdent(name)
}

// projection lists the identity and every field, aliased to their names.
func (t *table) projection() string {
	cols := make([]string, 0, len(t.fields)+1)
	cols = append(cols, t.column(types.IdentityName)+" AS "+quoteIdent(types.IdentityName))
	for _, name := range t.fields {
		cols = append(cols, t.column(name)+" AS "+quoteIdent(name))
	}
	return strings.Join(cols, ", ")
}

// appendWhere writes the WHERE clause for filters, ANDed left to right.
// Values are serialized through their field and bound as parameters.
func (t *table) appendWhere(sb *strings.Builder, args []any, filters []types.Filter) ([]any, error) {
	for i, f := range filters {
		op, err := types.ParseOp(string(f.Op))
		if err != nil {
			return nil, err
		}
		v, err := t.kind.SerializeFilter(f)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		if v == nil {
			// NULL never compares equal; use IS / IS NOT.
			switch op {
			case types.OpEq:
				sb.WriteString(t.column(f.Field) + " IS NULL")
				continue
			case types.OpNe:
				sb.WriteString(t.column(f.Field) + " IS NOT NULL")
				continue
			}
		}
		sb.WriteString(t.column(f.Field) + " " + string(op) + " ?")
		args = append(args, v)
	}
	return args, nil
}

func (t *table) appendOrder(sb *strings.Builder, order []types.Order) {
	for i, o := range order {
		if i == 0 {
			sb.WriteString(" ORDER BY ")
		} else {
			sb.WriteString(", ")
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		sb.WriteString(t.column(o.Field) + " " + dir)
	}
}

// appendLimit writes LIMIT/OFFSET only when requested. An offset without a
// limit uses defaultLimit.
func appendLimit(sb *strings.Builder, args []any, q types.Query) []any {
	limit, hasLimit := q.LimitValue()
	offset, hasOffset := q.OffsetValue()
	switch {
	case hasOffset:
		if !hasLimit {
			limit = defaultLimit
		}
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, limit, offset)
	case hasLimit:
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	return args
}

// selectSQL compiles q into a SELECT over the identity and every field.
func (t *table) selectSQL(q types.Query) (string, []any, error) {
	return t.compile("SELECT "+t.projection()+" FROM "+t.quoted, q)
}

// keysSQL compiles q into a SELECT of identities only.
func (t *table) keysSQL(q types.Query) (string, []any, error) {
	return t.compile("SELECT "+t.column(types.IdentityName)+" AS "+quoteIdent(types.IdentityName)+" FROM "+t.quoted, q)
}

func (t *table) compile(head string, q types.Query) (string, []any, error) {
	if err := q.Err(); err != nil {
		return "", nil, err
	}
	var sb strings.Builder
	sb.WriteString(head)
	args, err := t.appendWhere(&sb, nil, q.Filters())
	if err != nil {
		return "", nil, err
	}
	t.appendOrder(&sb, q.Order())
	args = appendLimit(&sb, args, q)
	sb.WriteString(";")
	return sb.String(), args, nil
}

// deleteSQL compiles a DELETE using the same WHERE builder as queries.
func (t *table) deleteSQL(filters []types.Filter) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString("DELETE FROM " + t.quoted)
	args, err := t.appendWhere(&sb, nil, filters)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(";")
	return sb.String(), args, nil
}

// deleteKeysSQL compiles a DELETE of the given identities.
func (t *table) deleteKeysSQL(ids []any) (string, []any, error) {
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		v, err := t.kind.SerializeIdentity(id)
		if err != nil {
			return "", nil, err
		}
		args = append(args, v)
	}
	return "DELETE FROM " + t.quoted + " WHERE " + t.column(types.IdentityName) +
		" IN (" + placeholders(len(args)) + ");", args, nil
}
