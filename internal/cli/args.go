package cli

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/kindstore/pkg/types"
)

// filterOps lists the comparison operators accepted on the command line,
// longest spelling first so that ">=" is not read as ">".
var filterOps = []string{">=", "<=", "!=", "==", "=", "<", ">"}

// parseValue converts a command-line string into the in-memory value of the
// named field: text and uuid as is, json as a JSON document, blob as base64.
func parseValue(kind *types.Kind, name, raw string) (any, error) {
	if name == types.IdentityName {
		return parseID(kind, raw)
	}
	f, ok := kind.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", types.ErrUnknownField, kind.Name(), name)
	}
	switch f.Type() {
	case types.TypeJSON:
		v, err := types.DecodeJSON([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: invalid JSON: %v", errUsage, name, err)
		}
		return v, nil
	case types.TypeBlob:
		b, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: invalid base64: %v", errUsage, name, err)
		}
		return b, nil
	default:
		return raw, nil
	}
}

// parseID reads an identity: a string for custom-identity kinds, an integer
// otherwise.
func parseID(kind *types.Kind, raw string) (any, error) {
	if kind.HasCustomIdentity() {
		return raw, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer, got %q", errUsage, types.IdentityName, raw)
	}
	return id, nil
}

// parseAssignments reads name=value arguments. The identity is returned
// separately and is nil when not given.
func parseAssignments(kind *types.Kind, args []string) (types.Fields, any, error) {
	values := types.Fields{}
	var id any
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, nil, fmt.Errorf("%w: expected name=value, got %q", errUsage, arg)
		}
		v, err := parseValue(kind, name, raw)
		if err != nil {
			return nil, nil, err
		}
		if name == types.IdentityName {
			id = v
			continue
		}
		values[name] = v
	}
	return values, id, nil
}

// parseFilter reads a "name<op>value" expression such as app_name=foo or
// app_id!=x.
func parseFilter(kind *types.Kind, expr string) (types.Filter, error) {
	for i := 0; i < len(expr); i++ {
		for _, spelling := range filterOps {
			if !strings.HasPrefix(expr[i:], spelling) {
				continue
			}
			name := expr[:i]
			if name == "" {
				return types.Filter{}, fmt.Errorf("%w: filter %q has no field", errUsage, expr)
			}
			op, err := types.ParseOp(spelling)
			if err != nil {
				return types.Filter{}, err
			}
			v, err := parseValue(kind, name, expr[i+len(spelling):])
			if err != nil {
				return types.Filter{}, err
			}
			return types.Filter{Field: name, Op: op, Value: v}, nil
		}
	}
	return types.Filter{}, fmt.Errorf("%w: filter %q has no operator", errUsage, expr)
}

func parseFilters(kind *types.Kind, exprs []string) ([]types.Filter, error) {
	filters := make([]types.Filter, 0, len(exprs))
	for _, expr := range exprs {
		f, err := parseFilter(kind, expr)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}
