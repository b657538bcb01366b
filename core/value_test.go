package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rejig/rejig/util/testutil"
)

func TestCanonicalize(t *testing.T) {
	type point struct {
		X int    `json:"x"`
		Y string `json:"y"`
	}

	tests := []struct {
		name string
		in   interface{}
		want interface{}
		fail bool
	}{
		{name: "int becomes float", in: 42, want: float64(42)},
		{name: "nil", in: nil, want: nil},
		{name: "struct becomes map", in: point{X: 1, Y: "a"}, want: testutil.Doc(`{"x":1,"y":"a"}`)},
		{name: "typed slice", in: []string{"a", "b"}, want: testutil.Doc(`["a","b"]`)},
		{name: "channel fails", in: make(chan int), fail: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Canonicalize(test.in)
			if test.fail {
				if err == nil {
					t.Fatalf("expected an error, got %s", testutil.JS(got))
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestDeepCopyIsIndependent(t *testing.T) {
	orig := testutil.Doc(`{"a":[1,{"b":2}]}`)
	dup := DeepCopy(orig)
	dup.(map[string]interface{})["a"].([]interface{})[1].(map[string]interface{})["b"] = float64(99)
	if got, _ := Get("/a/1/b", orig); got != float64(2) {
		t.Fatalf("original mutated: %v", got)
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want bool
	}{
		{name: "nil", in: nil, want: false},
		{name: "false", in: false, want: false},
		{name: "true", in: true, want: true},
		{name: "zero", in: float64(0), want: false},
		{name: "number", in: float64(0.5), want: true},
		{name: "empty string", in: "", want: false},
		{name: "string", in: "x", want: true},
		{name: "empty list", in: []interface{}{}, want: false},
		{name: "list", in: []interface{}{nil}, want: true},
		{name: "empty map", in: map[string]interface{}{}, want: false},
		{name: "map", in: map[string]interface{}{"a": nil}, want: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Truthy(test.in); got != test.want {
				t.Fatalf("got %v", got)
			}
		})
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{name: "nil", in: nil, want: "null"},
		{name: "bool", in: true, want: "true"},
		{name: "string", in: "hi", want: "hi"},
		{name: "integral float", in: float64(3), want: "3"},
		{name: "fractional float", in: float64(3.5), want: "3.5"},
		{name: "big integral", in: float64(123456789), want: "123456789"},
		{name: "list", in: testutil.Doc(`[1,"a"]`), want: `[1,"a"]`},
		{name: "map", in: testutil.Doc(`{"a":1}`), want: `{"a":1}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Stringify(test.in); got != test.want {
				t.Fatalf("got %q", got)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	a := testutil.Doc(`{"x":[1,2],"y":{"z":null}}`)
	b := testutil.Doc(`{"y":{"z":null},"x":[1,2]}`)
	if !Equal(a, b) {
		t.Fatal("structurally equal documents compared unequal")
	}
	if Equal(a, testutil.Doc(`{"x":[1,2]}`)) {
		t.Fatal("different documents compared equal")
	}
}
