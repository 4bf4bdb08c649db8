package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// JSON field values form a tree of nil, bool, string, int64, float64,
// []any and map[string]any. Integers and floats stay distinct across a round
// trip: floats are always written with a fraction or exponent and bare
// integer literals decode to int64.

// appendJSON writes v in canonical form: map keys sorted, no whitespace.
func appendJSON(buf []byte, v any) ([]byte, error) {
	switch v := v.(type) {
	case nil:
		return append(buf, "null"...), nil
	case bool:
		return strconv.AppendBool(buf, v), nil
	case string:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return append(buf, b...), nil
	case int64:
		return strconv.AppendInt(buf, v, 10), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("json: unsupported number %v", v)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf = append(buf, b...)
		if !bytes.ContainsAny(b, ".eE") {
			buf = append(buf, ".0"...)
		}
		return buf, nil
	case []any:
		if v == nil {
			return nil, fmt.Errorf("json: nil list")
		}
		buf = append(buf, '[')
		for i, elem := range v {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			if buf, err = appendJSON(buf, elem); err != nil {
				return nil, err
			}
		}
		return append(buf, ']'), nil
	case map[string]any:
		if v == nil {
			return nil, fmt.Errorf("json: nil map")
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		buf = append(buf, '{')
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			if buf, err = appendJSON(buf, k); err != nil {
				return nil, err
			}
			buf = append(buf, ':')
			if buf, err = appendJSON(buf, v[k]); err != nil {
				return nil, err
			}
		}
		return append(buf, '}'), nil
	default:
		return nil, fmt.Errorf("json: unsupported value of type %T", v)
	}
}

// DecodeJSON parses a JSON document into the JSON field value tree.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("json: trailing data after document")
	}
	return fromNumbers(v)
}

// fromNumbers replaces json.Number leaves with int64 or float64.
func fromNumbers(v any) (any, error) {
	switch v := v.(type) {
	case json.Number:
		s := v.String()
		if !bytes.ContainsAny([]byte(s), ".eE") {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n, nil
			}
		}
		return strconv.ParseFloat(s, 64)
	case []any:
		for i, elem := range v {
			conv, err := fromNumbers(elem)
			if err != nil {
				return nil, err
			}
			v[i] = conv
		}
		return v, nil
	case map[string]any:
		for k, elem := range v {
			conv, err := fromNumbers(elem)
			if err != nil {
				return nil, err
			}
			v[k] = conv
		}
		return v, nil
	default:
		return v, nil
	}
}
