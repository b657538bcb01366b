package core

import (
	"testing"
)

func TestTemplateSpans(t *testing.T) {
	tests := []struct {
		name   string
		spec   string
		source string
		want   string
	}{
		{
			name:   "nested span substitutes into the outer text",
			spec:   `[{"op":"set","path":"/a","value":"${/prefix/${/which}}"}]`,
			source: `{"which":"x","prefix":{"x":"ignored"}}`,
			want:   `{"a":"/prefix/x"}`,
		},
		{
			name:   "container values render as JSON inside text",
			spec:   `[{"op":"set","path":"/a","value":"xs=${/xs}"}]`,
			source: `{"xs":[1,"two"]}`,
			want:   `{"a":"xs=[1,\"two\"]"}`,
		},
		{
			name:   "integral numbers render without decimal point",
			spec:   `[{"op":"set","path":"/a","value":"n=${/n}"}]`,
			source: `{"n":7}`,
			want:   `{"a":"n=7"}`,
		},
		{
			name:   "null renders as null",
			spec:   `[{"op":"set","path":"/a","value":"v=${/v}"}]`,
			source: `{"v":null}`,
			want:   `{"a":"v=null"}`,
		},
		{
			name:   "whitespace around the pointer is tolerated",
			spec:   `[{"op":"set","path":"/a","value":"${ /n }"}]`,
			source: `{"n":1}`,
			want:   `{"a":1}`,
		},
		{
			name:   "parent navigation",
			spec:   `[{"op":"set","path":"/a","value":"${/deep/down/../down/v}"}]`,
			source: `{"deep":{"down":{"v":3}}}`,
			want:   `{"a":3}`,
		},
		{
			name:   "slice in a span",
			spec:   `[{"op":"set","path":"/a","value":"${/word[0:2]}"}]`,
			source: `{"word":"hello"}`,
			want:   `{"a":"he"}`,
		},
		{
			name:   "escaped segment characters",
			spec:   `[{"op":"set","path":"/a","value":"${/odd~1key}"}]`,
			source: `{"odd/key":9}`,
			want:   `{"a":9}`,
		},
		{
			name: "scratch and args namespaces",
			spec: `[{"op":"set","path":"!:/tmp","value":10},
			        {"op":"foreach","in":"/xs","as":"x","do":[
			          {"op":"set","path":"/out/-","value":{"$add":["${&:/x}","${!:/tmp}"]}}]}]`,
			source: `{"xs":[1,2]}`,
			want:   `{"out":[11,12]}`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			check(t, run(t, test.spec, test.source), test.want)
		})
	}
}

func TestDestPointerDuringValueStabilization(t *testing.T) {
	// While a value is being stabilized the destination pointer must
	// keep addressing the real output, not the value in flight.
	spec := `[{"op":"set","path":"/base","value":5},
	          {"op":"set","path":"/derived","value":{"inner":"${@:/base}"}}]`
	check(t, run(t, spec, `{}`), `{"base":5,"derived":{"inner":5}}`)
}

func TestDuplicateKeyAfterSubstitution(t *testing.T) {
	err := runErr(t,
		`[{"op":"set","path":"/a","value":{"${/k}":1,"x":2}}]`,
		`{"k":"x"}`)
	if ErrKind(err) != KindMalformedStep {
		t.Fatalf("kind %s: %v", ErrKind(err), err)
	}
}
