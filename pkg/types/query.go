package types

import (
	"fmt"
	"strings"
)

// Op is a filter comparison operator.
type Op string

// Supported operators. Filters are always AND-combined.
const (
	OpEq  Op = "="
	OpNe  Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

var validOps = map[Op]bool{
	OpEq: true, OpNe: true, OpLt: true, OpLte: true, OpGt: true, OpGte: true,
}

// ParseOp returns the operator spelled s.
func ParseOp(s string) (Op, error) {
	op := Op(s)
	if s == "==" {
		op = OpEq
	}
	if !validOps[op] {
		return "", fmt.Errorf("%w: %q", ErrInvalidOperator, s)
	}
	return op, nil
}

// Filter compares one field against one bound value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

func (f Filter) String() string {
	return fmt.Sprintf("%s %s %v", f.Field, f.Op, f.Value)
}

// Order sorts by one field.
type Order struct {
	Field string
	Desc  bool
}

// ParseOrder parses "name", "+name" (ascending) or "-name" (descending).
func ParseOrder(s string) Order {
	switch {
	case strings.HasPrefix(s, "-"):
		return Order{Field: s[1:], Desc: true}
	case strings.HasPrefix(s, "+"):
		return Order{Field: s[1:]}
	default:
		return Order{Field: s}
	}
}

func (o Order) String() string {
	if o.Desc {
		return "-" + o.Field
	}
	return o.Field
}

// Query is a backend-neutral request: kind, AND-ed filters, ordering and
// pagination. Query is a value type; every builder method returns a new
// Query and leaves the receiver untouched, so a Query handed to a backend
// can never be mutated in place.
type Query struct {
	kind    *Kind
	filters []Filter
	order   []Order
	offset  *int
	limit   *int
	err     error
}

// NewQuery returns a query over every entity of kind.
func NewQuery(kind *Kind) Query {
	return Query{kind: kind}
}

func (q Query) clone() Query {
	c := q
	c.filters = append([]Filter(nil), q.filters...)
	c.order = append([]Order(nil), q.order...)
	return c
}

func (q Query) checkField(name string) error {
	if name == IdentityName {
		return nil
	}
	if _, ok := q.kind.Field(name); !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, q.kind.Name(), name)
	}
	return nil
}

// Where adds a filter.
func (q Query) Where(field string, op Op, value any) Query {
	c := q.clone()
	if c.err != nil {
		return c
	}
	if !validOps[op] {
		c.err = fmt.Errorf("%w: %q", ErrInvalidOperator, op)
		return c
	}
	if err := c.checkField(field); err != nil {
		c.err = err
		return c
	}
	c.filters = append(c.filters, Filter{Field: field, Op: op, Value: value})
	return c
}

// WhereEq adds one equality filter per entry, in sorted field order.
func (q Query) WhereEq(eq Fields) Query {
	c := q
	for _, name := range eq.Names() {
		c = c.Where(name, OpEq, eq[name])
	}
	return c
}

// OrderBy appends orderings given as "name", "+name" or "-name".
func (q Query) OrderBy(fields ...string) Query {
	c := q.clone()
	for _, s := range fields {
		if c.err != nil {
			return c
		}
		o := ParseOrder(s)
		if err := c.checkField(o.Field); err != nil {
			c.err = err
			return c
		}
		c.order = append(c.order, o)
	}
	return c
}

// Offset skips the first n results.
func (q Query) Offset(n int) Query {
	c := q.clone()
	if n < 0 && c.err == nil {
		c.err = fmt.Errorf("%w: negative offset %d", ErrValidation, n)
	}
	c.offset = &n
	return c
}

// Limit caps the number of results.
func (q Query) Limit(n int) Query {
	c := q.clone()
	if n < 0 && c.err == nil {
		c.err = fmt.Errorf("%w: negative limit %d", ErrValidation, n)
	}
	c.limit = &n
	return c
}

// Kind returns the target kind.
func (q Query) Kind() *Kind { return q.kind }

// Filters returns a copy of the filters.
func (q Query) Filters() []Filter { return append([]Filter(nil), q.filters...) }

// Order returns a copy of the orderings.
func (q Query) Order() []Order { return append([]Order(nil), q.order...) }

// OffsetValue returns the offset and whether one was requested.
func (q Query) OffsetValue() (int, bool) {
	if q.offset == nil {
		return 0, false
	}
	return *q.offset, true
}

// LimitValue returns the limit and whether one was requested.
func (q Query) LimitValue() (int, bool) {
	if q.limit == nil {
		return 0, false
	}
	return *q.limit, true
}

// Err returns the first error recorded while building the query.
func (q Query) Err() error { return q.err }

// SerializeFilter converts a filter value to the storable form of the field
// it targets, so backends compare like with like.
func (k *Kind) SerializeFilter(f Filter) (any, error) {
	if f.Field == IdentityName {
		return k.SerializeIdentity(f.Value)
	}
	field, ok := k.byName[f.Field]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, k.name, f.Field)
	}
	return field.Serialize(f.Value)
}
