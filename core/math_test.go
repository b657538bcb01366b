package core

import (
	"context"
	"errors"
	"testing"

	"github.com/rejig/rejig/util/testutil"
)

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "add", value: `{"$add":[1,2]}`, want: `3`},
		{name: "add n-ary", value: `{"$add":[1,2,3,4]}`, want: `10`},
		{name: "add strings", value: `{"$add":["foo","bar","baz"]}`, want: `"foobarbaz"`},
		{name: "sub", value: `{"$sub":[5,3]}`, want: `2`},
		{name: "sub negative", value: `{"$sub":[3,5]}`, want: `-2`},
		{name: "mul", value: `{"$mul":[4,2.5]}`, want: `10`},
		{name: "mul string repeat", value: `{"$mul":["ab",3]}`, want: `"ababab"`},
		{name: "mul string zero", value: `{"$mul":["ab",0]}`, want: `""`},
		{name: "div", value: `{"$div":[7,2]}`, want: `3.5`},
		{name: "pow", value: `{"$pow":[2,10]}`, want: `1024`},
		{name: "pow fractional", value: `{"$pow":[9,0.5]}`, want: `3`},
		{name: "mod", value: `{"$mod":[7,3]}`, want: `1`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			check(t, evalValue(t, test.value, `{}`), test.want)
		})
	}
}

func TestArithmeticTypeErrors(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "add mixed", value: `{"$add":[1,"a"]}`},
		{name: "add lists", value: `{"$add":[[1],[2]]}`},
		{name: "div by zero", value: `{"$div":[1,0]}`},
		{name: "mod by zero", value: `{"$mod":[1,0]}`},
		{name: "mul string by fraction", value: `{"$mul":["ab",1.5]}`},
		{name: "sub strings", value: `{"$sub":["a","b"]}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := runErr(t, `[{"op":"set","path":"/out","value":`+test.value+`}]`, `{}`)
			if ErrKind(err) != KindTypeMismatch {
				t.Fatalf("kind %s: %v", ErrKind(err), err)
			}
		})
	}
}

func TestArithmeticLimits(t *testing.T) {
	limits := DefaultLimits
	limits.AddMaxNumber = 100
	limits.AddMaxStringLen = 8
	limits.SubMaxNumber = 100
	limits.MulMaxOperand = 50
	limits.MulMaxStringLen = 10
	limits.PowMaxBase = 100
	limits.PowMaxExponent = 5

	tests := []struct {
		name  string
		value string
		limit string
	}{
		{name: "add number", value: `{"$add":[90,20]}`, limit: "add_max_number_result"},
		{name: "add string", value: `{"$add":["aaaaa","bbbbb"]}`, limit: "add_max_string_result"},
		{name: "sub", value: `{"$sub":[90,-20]}`, limit: "sub_max_number_result"},
		{name: "mul operand", value: `{"$mul":[60,1]}`, limit: "mul_max_operand"},
		{name: "mul string", value: `{"$mul":["abcd",5]}`, limit: "mul_max_string_result"},
		{name: "pow base", value: `{"$pow":[101,1]}`, limit: "pow_max_base"},
		{name: "pow exponent", value: `{"$pow":[2,6]}`, limit: "pow_max_exponent"},
		{name: "pow intermediate", value: `{"$pow":[99,5]}`, limit: "pow_max_base"},
	}

	e := NewEngine(Config{Limits: &limits})
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := e.Apply(context.Background(),
				testutil.Doc(`[{"op":"set","path":"/out","value":`+test.value+`}]`),
				testutil.Doc(`{}`), map[string]interface{}{})
			var le *LimitError
			if !errors.As(err, &le) {
				t.Fatalf("got %T: %v", err, err)
			}
			if le.Limit != test.limit {
				t.Fatalf("limit %s, want %s", le.Limit, test.limit)
			}
		})
	}
}
