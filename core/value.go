package core

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
)

// Canonicalize returns a value made from JSON-representable types:
// map[string]interface{}, []interface{}, float64, string, bool, nil.
// A value that can't round-trip through JSON is an error.
func Canonicalize(x interface{}) (interface{}, error) {
	if x == nil {
		return nil, nil
	}
	js, err := json.Marshal(&x)
	if err != nil {
		return nil, err
	}
	var y interface{}
	if err = json.Unmarshal(js, &y); err != nil {
		return nil, err
	}
	return y, nil
}

// DeepCopy copies a canonical value structurally.  Scalars are
// returned as-is; maps and slices are rebuilt.
func DeepCopy(x interface{}) interface{} {
	switch v := x.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, val := range v {
			m[k] = DeepCopy(val)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(v))
		for i, val := range v {
			s[i] = DeepCopy(val)
		}
		return s
	default:
		return x
	}
}

// Equal reports structural equality of two canonical values.
func Equal(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}

// Truthy applies the DSL's truthiness rules: nil, false, zero, the
// empty string, and empty containers are false; everything else is
// true.
func Truthy(x interface{}) bool {
	switch v := x.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	case []interface{}:
		return len(v) > 0
	case map[string]interface{}:
		return len(v) > 0
	default:
		return true
	}
}

// AsNumber extracts a float64 from a canonical value.
func AsNumber(x interface{}) (float64, bool) {
	n, is := x.(float64)
	return n, is
}

// Stringify renders a canonical scalar the way templates splice it
// into surrounding text.  Integral floats drop the trailing ".0";
// containers render as compact JSON.
func Stringify(x interface{}) string {
	switch v := x.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case string:
		return v
	case float64:
		return FormatNumber(v)
	default:
		js, err := json.Marshal(&x)
		if err != nil {
			return ""
		}
		return string(js)
	}
}

// FormatNumber renders a float64 without a fractional part when it
// holds an integral value.
func FormatNumber(n float64) string {
	if n == math.Trunc(n) && !math.IsInf(n, 0) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
