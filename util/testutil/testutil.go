// Package testutil has small helpers for tests that trade in JSON
// documents.
package testutil

import (
	"encoding/json"
	"fmt"
)

// JS renders a value as compact JSON, falling back to Go syntax when
// the value is not plain data.
func JS(x interface{}) string {
	bs, err := json.Marshal(&x)
	if err != nil {
		return fmt.Sprintf("%#v", x)
	}
	return string(bs)
}

// Doc parses a JSON literal, panicking on bad input.  Test tables
// read much better with documents written as strings.
func Doc(s string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		panic(fmt.Sprintf("testutil.Doc: %s in %q", err, s))
	}
	return v
}
