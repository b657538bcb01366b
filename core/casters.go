package core

import (
	"math"
	"strconv"
	"strings"
)

// Default type casters, used both by ${type:...} template spans and
// the $cast construct.  Conversions follow loose scripting rules:
// numeric strings parse, booleans count as 0 and 1, and an
// unconvertible value is a type mismatch rather than a zero value.

func castInt(x interface{}) (interface{}, error) {
	switch v := x.(type) {
	case float64:
		return math.Trunc(v), nil
	case bool:
		if v {
			return float64(1), nil
		}
		return float64(0), nil
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return float64(n), nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return math.Trunc(f), nil
		}
		return nil, &TypeMismatchError{Op: "int", Reason: strconv.Quote(v) + " is not numeric"}
	default:
		return nil, &TypeMismatchError{Op: "int", Reason: "value cannot be converted to an integer"}
	}
}

func castFloat(x interface{}) (interface{}, error) {
	switch v := x.(type) {
	case float64:
		return v, nil
	case bool:
		if v {
			return float64(1), nil
		}
		return float64(0), nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, nil
		}
		return nil, &TypeMismatchError{Op: "float", Reason: strconv.Quote(v) + " is not numeric"}
	default:
		return nil, &TypeMismatchError{Op: "float", Reason: "value cannot be converted to a number"}
	}
}

func castBool(x interface{}) (interface{}, error) {
	switch v := x.(type) {
	case bool:
		return v, nil
	case float64:
		return v != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no", "":
			return false, nil
		}
		return nil, &TypeMismatchError{Op: "bool", Reason: strconv.Quote(v) + " is not a boolean"}
	case nil:
		return false, nil
	default:
		return nil, &TypeMismatchError{Op: "bool", Reason: "value cannot be converted to a boolean"}
	}
}

func castStr(x interface{}) (interface{}, error) {
	return Stringify(x), nil
}

// DefaultCasters returns the standard caster table.
func DefaultCasters() map[string]CastFunc {
	return map[string]CastFunc{
		"int":   castInt,
		"float": castFloat,
		"bool":  castBool,
		"str":   castStr,
	}
}
