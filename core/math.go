package core

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Arithmetic constructs.  Every bound is checked before the result is
// produced; a breach is a LimitError, never a clamped value.

// addConstruct sums numbers or concatenates strings, folding left
// over two or more operands.
func addConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	vs, err := operandList(node, "$add")
	if err != nil {
		return nil, err
	}
	if len(vs) < 2 {
		return nil, &MalformedStepError{Reason: "$add takes at least two operands", Step: node}
	}
	acc, err := ec.Engine.ProcessValue(ctx, vs[0], ec)
	if err != nil {
		return nil, err
	}
	for _, raw := range vs[1:] {
		v, err := ec.Engine.ProcessValue(ctx, raw, ec)
		if err != nil {
			return nil, err
		}
		switch a := acc.(type) {
		case float64:
			b, is := v.(float64)
			if !is {
				return nil, &TypeMismatchError{Op: "$add", Reason: "cannot add a non-number to a number"}
			}
			sum := a + b
			if math.Abs(sum) > ec.Limits.AddMaxNumber {
				return nil, &LimitError{Limit: "add_max_number_result", Message: "addition result exceeds maximum"}
			}
			acc = sum
		case string:
			b, is := v.(string)
			if !is {
				return nil, &TypeMismatchError{Op: "$add", Reason: "cannot add a non-string to a string"}
			}
			if len(a)+len(b) > ec.Limits.AddMaxStringLen {
				return nil, &LimitError{Limit: "add_max_string_result", Message: "concatenation result exceeds maximum length"}
			}
			acc = a + b
		default:
			return nil, &TypeMismatchError{Op: "$add", Reason: "operands must be numbers or strings"}
		}
	}
	return acc, nil
}

func subConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	a, b, err := numericOperands(ctx, node, "$sub", ec)
	if err != nil {
		return nil, err
	}
	diff := a - b
	if math.Abs(diff) > ec.Limits.SubMaxNumber {
		return nil, &LimitError{Limit: "sub_max_number_result", Message: "subtraction result exceeds maximum"}
	}
	return diff, nil
}

// mulConstruct multiplies numbers, or repeats a string by a count.
func mulConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	a, b, err := binaryOperands(ctx, node, "$mul", ec)
	if err != nil {
		return nil, err
	}

	if sa, is := a.(string); is {
		return repeatString(sa, b, ec.Limits)
	}
	if sb, is := b.(string); is {
		return repeatString(sb, a, ec.Limits)
	}

	na, isA := a.(float64)
	nb, isB := b.(float64)
	if !isA || !isB {
		return nil, &TypeMismatchError{Op: "$mul", Reason: "operands must be numbers, or a string and a count"}
	}
	if math.Abs(na) > ec.Limits.MulMaxOperand || math.Abs(nb) > ec.Limits.MulMaxOperand {
		return nil, &LimitError{Limit: "mul_max_operand", Message: "multiplication operand exceeds maximum"}
	}
	return na * nb, nil
}

func repeatString(s string, count interface{}, limits Limits) (interface{}, error) {
	n, is := count.(float64)
	if !is || n != math.Trunc(n) {
		return nil, &TypeMismatchError{Op: "$mul", Reason: "string repetition count must be an integer"}
	}
	if n <= 0 {
		return "", nil
	}
	if float64(len(s))*n > float64(limits.MulMaxStringLen) {
		return nil, &LimitError{Limit: "mul_max_string_result", Message: "string repetition result exceeds maximum length"}
	}
	return strings.Repeat(s, int(n)), nil
}

func divConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	a, b, err := numericOperands(ctx, node, "$div", ec)
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, &TypeMismatchError{Op: "$div", Reason: "division by zero"}
	}
	return a / b, nil
}

func powConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	base, exp, err := numericOperands(ctx, node, "$pow", ec)
	if err != nil {
		return nil, err
	}
	if math.Abs(base) > ec.Limits.PowMaxBase {
		return nil, &LimitError{Limit: "pow_max_base", Message: fmt.Sprintf("base %s exceeds maximum", FormatNumber(base))}
	}
	if math.Abs(exp) > ec.Limits.PowMaxExponent {
		return nil, &LimitError{Limit: "pow_max_exponent", Message: fmt.Sprintf("exponent %s exceeds maximum", FormatNumber(exp))}
	}

	// Integer exponents are computed iteratively so that a blowup is
	// caught at the first intermediate that exceeds the base limit.
	if exp == math.Trunc(exp) && exp >= 0 {
		acc := 1.0
		for i := 0; i < int(exp); i++ {
			acc *= base
			if math.Abs(acc) > ec.Limits.PowMaxBase {
				return nil, &LimitError{Limit: "pow_max_base", Message: "intermediate result exceeds base limit"}
			}
		}
		return acc, nil
	}

	result := math.Pow(base, exp)
	if math.IsInf(result, 0) || math.IsNaN(result) {
		return nil, &LimitError{Limit: "pow_max_base", Message: "result exceeds representable range"}
	}
	return result, nil
}

func modConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	a, b, err := numericOperands(ctx, node, "$mod", ec)
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, &TypeMismatchError{Op: "$mod", Reason: "modulo by zero"}
	}
	return math.Mod(a, b), nil
}

func numericOperands(ctx context.Context, node map[string]interface{}, key string, ec *ExecutionContext) (float64, float64, error) {
	a, b, err := binaryOperands(ctx, node, key, ec)
	if err != nil {
		return 0, 0, err
	}
	na, isA := a.(float64)
	nb, isB := b.(float64)
	if !isA || !isB {
		return 0, 0, &TypeMismatchError{Op: key, Reason: "operands must be numbers"}
	}
	return na, nb, nil
}
