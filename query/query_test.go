package query

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rejig/rejig/util/testutil"
)

func env(source, dest string) map[string]interface{} {
	return map[string]interface{}{
		"source":  testutil.Doc(source),
		"dest":    testutil.Doc(dest),
		"args":    map[string]interface{}{},
		"scratch": map[string]interface{}{},
	}
}

func TestEval(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		source string
		dest   string
		want   interface{}
	}{
		{
			name: "arithmetic", expr: "1 + 2",
			source: `{}`, dest: `{}`, want: float64(3),
		},
		{
			name: "source access", expr: "source.a.b",
			source: `{"a":{"b":5}}`, dest: `{}`, want: float64(5),
		},
		{
			name: "dest access", expr: "dest.n * 2",
			source: `{}`, dest: `{"n":4}`, want: float64(8),
		},
		{
			name: "array method", expr: "source.xs.filter(function (x) { return x > 1; })",
			source: `{"xs":[1,2,3]}`, dest: `{}`,
			want: testutil.Doc(`[2,3]`),
		},
		{
			name: "object literal", expr: `{sum: source.a + source.b}`,
			source: `{"a":1,"b":2}`, dest: `{}`,
			want: testutil.Doc(`{"sum":3}`),
		},
		{
			name: "undefined becomes null", expr: "source.nope",
			source: `{}`, dest: `{}`, want: nil,
		},
		{
			name: "len helper", expr: `len(source.xs)`,
			source: `{"xs":[1,2,3]}`, dest: `{}`, want: float64(3),
		},
		{
			name: "keys helper", expr: `keys(source)`,
			source: `{"b":1,"a":2}`, dest: `{}`,
			want: testutil.Doc(`["a","b"]`),
		},
		{
			name: "has helper", expr: `has(source, "a")`,
			source: `{"a":1}`, dest: `{}`, want: true,
		},
		{
			name: "merge helper", expr: `merge(source.a, source.b)`,
			source: `{"a":{"x":1},"b":{"y":2}}`, dest: `{}`,
			want: testutil.Doc(`{"x":1,"y":2}`),
		},
	}

	e := NewEvaluator()
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := e.Eval(context.Background(), test.expr, env(test.source, test.dest))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestEvalBadExpression(t *testing.T) {
	e := NewEvaluator()
	if _, err := e.Eval(context.Background(), "this is not javascript", env(`{}`, `{}`)); err == nil {
		t.Fatal("expected an error")
	}
}

func TestEvalLibrary(t *testing.T) {
	e := &Evaluator{LibrarySource: "function twice(x) { return 2 * x; }"}
	got, err := e.Eval(context.Background(), "twice(source.n)", env(`{"n":5}`, `{}`))
	if err != nil {
		t.Fatal(err)
	}
	if got != float64(10) {
		t.Fatalf("got %v", got)
	}
}

func TestEvalCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := NewEvaluator()
	_, err := e.Eval(ctx, "(function () { for (;;) {} }())", env(`{}`, `{}`))
	if err == nil {
		t.Fatal("expected an error")
	}
}
