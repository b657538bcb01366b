package core

import (
	"errors"
	"testing"
)

// evalSpec wraps a value in a set step so tests read as "this value
// resolves to that".
func evalValue(t *testing.T, value, source string) interface{} {
	t.Helper()
	got := run(t, `[{"op":"set","path":"/out","value":`+value+`}]`, source)
	return got.(map[string]interface{})["out"]
}

func TestConstructs(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		source string
		want   string
	}{
		{name: "ref", value: `{"$ref":"/a/b"}`, source: `{"a":{"b":5}}`, want: `5`},
		{name: "ref default", value: `{"$ref":"/nope","$default":9}`, source: `{}`, want: `9`},
		{name: "ref container", value: `{"$ref":"/a"}`, source: `{"a":[1,2]}`, want: `[1,2]`},

		{name: "eval", value: `{"$eval":[{"op":"set","path":"/x","value":"${/n}"}]}`, source: `{"n":3}`, want: `{"x":3}`},
		{name: "eval select", value: `{"$eval":[{"op":"set","path":"/x","value":4}],"$select":"/x"}`, source: `{}`, want: `4`},

		{name: "cast int from string", value: `{"$cast":{"value":"12","type":"int"}}`, source: `{}`, want: `12`},
		{name: "cast int truncates", value: `{"$cast":{"value":3.9,"type":"int"}}`, source: `{}`, want: `3`},
		{name: "cast bool", value: `{"$cast":{"value":"true","type":"bool"}}`, source: `{}`, want: `true`},
		{name: "cast str", value: `{"$cast":{"value":7,"type":"str"}}`, source: `{}`, want: `"7"`},
		{name: "cast float", value: `{"$cast":{"value":"2.5","type":"float"}}`, source: `{}`, want: `2.5`},

		{name: "and true", value: `{"$and":[1,"x",true]}`, source: `{}`, want: `true`},
		{name: "and short-circuit", value: `{"$and":[0,{"$div":[1,0]}]}`, source: `{}`, want: `false`},
		{name: "or short-circuit", value: `{"$or":[1,{"$div":[1,0]}]}`, source: `{}`, want: `true`},
		{name: "or false", value: `{"$or":[0,"",null]}`, source: `{}`, want: `false`},
		{name: "not", value: `{"$not":[]}`, source: `{}`, want: `true`},

		{name: "gt", value: `{"$gt":[3,2]}`, source: `{}`, want: `true`},
		{name: "gte equal", value: `{"$gte":[2,2]}`, source: `{}`, want: `true`},
		{name: "lt strings", value: `{"$lt":["abc","abd"]}`, source: `{}`, want: `true`},
		{name: "lte", value: `{"$lte":[3,2]}`, source: `{}`, want: `false`},
		{name: "eq deep", value: `{"$eq":[{"a":[1]},{"a":[1]}]}`, source: `{}`, want: `true`},
		{name: "ne", value: `{"$ne":[1,2]}`, source: `{}`, want: `true`},

		{name: "in string", value: `{"$in":["ell","hello"]}`, source: `{}`, want: `true`},
		{name: "in list", value: `{"$in":[2,[1,2,3]]}`, source: `{}`, want: `true`},
		{name: "in map keys", value: `{"$in":["a",{"a":1}]}`, source: `{}`, want: `true`},
		{name: "not in list", value: `{"$in":[9,[1,2,3]]}`, source: `{}`, want: `false`},

		{name: "exists", value: `{"$exists":"/a"}`, source: `{"a":null}`, want: `true`},
		{name: "exists missing", value: `{"$exists":"/b"}`, source: `{"a":1}`, want: `false`},

		{name: "nested operands resolve first", value: `{"$add":[{"$ref":"/n"},{"$mul":[2,3]}]}`, source: `{"n":4}`, want: `10`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			check(t, evalValue(t, test.value, test.source), test.want)
		})
	}
}

func TestConstructErrors(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		source string
		kind   string
	}{
		{name: "unknown construct", value: `{"$bogus":1}`, source: `{}`, kind: KindMalformedStep},
		{name: "ref missing without default", value: `{"$ref":"/nope"}`, source: `{}`, kind: KindResolution},
		{name: "cast unknown type", value: `{"$cast":{"value":1,"type":"complex"}}`, source: `{}`, kind: KindMalformedStep},
		{name: "cast bad int", value: `{"$cast":{"value":"abc","type":"int"}}`, source: `{}`, kind: KindTypeMismatch},
		{name: "gt mixed types", value: `{"$gt":[1,"a"]}`, source: `{}`, kind: KindTypeMismatch},
		{name: "comparison arity", value: `{"$lt":[1]}`, source: `{}`, kind: KindMalformedStep},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := runErr(t, `[{"op":"set","path":"/out","value":`+test.value+`}]`, test.source)
			if ErrKind(err) != test.kind {
				t.Fatalf("kind %s, want %s: %v", ErrKind(err), test.kind, err)
			}
		})
	}
}

func TestRaiseConstruct(t *testing.T) {
	err := runErr(t, `[{"op":"set","path":"/a","value":{"$raise":"boom ${/why}"}}]`, `{"why":"reasons"}`)
	var re *RaisedError
	if !errors.As(err, &re) {
		t.Fatalf("got %T: %v", err, err)
	}
	if re.Message != "boom reasons" {
		t.Fatalf("got %q", re.Message)
	}
}

func TestRaiseStep(t *testing.T) {
	err := runErr(t, `[{"$raise":"stop here"}]`, `{}`)
	if ErrKind(err) != KindRaised {
		t.Fatalf("kind %s: %v", ErrKind(err), err)
	}
}
