package core

import (
	"context"
	"strings"
)

// A construct is a mapping carrying a reserved $-key; the whole
// mapping is replaced by the value its registered SpecialFn
// produces.  The $raw key is special twice over: alone it is the
// opaque wrapper (payload returned with zero passes), and as a true
// flag next to another construct key it is the stop directive (one
// resolution, then the stabilization loop ends).

// constructHandler dispatches a construct node to its SpecialFn.
type constructHandler struct {
	specials map[string]SpecialFn
	order    []string
}

func newConstructHandler(specials map[string]SpecialFn, order []string) *constructHandler {
	return &constructHandler{specials: specials, order: order}
}

func (h *constructHandler) keys() map[string]bool {
	out := make(map[string]bool, len(h.specials)+1)
	for k := range h.specials {
		out[k] = true
	}
	out["$raw"] = true
	return out
}

func (h *constructHandler) Execute(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	node, is := step.(map[string]interface{})
	if !is {
		return nil
	}

	if raw, ok := node["$raw"]; ok {
		if raw != true {
			return &stopSignal{value: raw, unescape: false}
		}
		if len(node) == 1 {
			return &stopSignal{value: true, unescape: false}
		}
	}

	for _, key := range h.order {
		fn, registered := h.specials[key]
		if !registered {
			continue
		}
		if _, present := node[key]; !present {
			continue
		}
		result, err := fn(ctx, node, ec)
		if err != nil {
			return err
		}
		if node["$raw"] == true {
			return &stopSignal{value: result, unescape: true}
		}
		ec.Dest = result
		return nil
	}
	return &MalformedStepError{Reason: "unrecognized construct", Step: step}
}

// reference and evaluation

func refConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	ptr, err := ec.Engine.processString(ctx, node["$ref"], ec, "$ref")
	if err != nil {
		return nil, err
	}
	v, err := ec.Lookup(ptr)
	if err != nil {
		if dflt, ok := node["$default"]; ok {
			return DeepCopy(dflt), nil
		}
		return nil, err
	}
	return DeepCopy(v), nil
}

func evalConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	sub := ec.fork()
	sub.Dest = map[string]interface{}{}
	sub.hasRealDest = false
	if err := ec.Engine.Exec(ctx, node["$eval"], sub); err != nil {
		return nil, err
	}
	result := sub.Dest
	if sel, ok := node["$select"]; ok {
		ptr, err := ec.Engine.processString(ctx, sel, ec, "$select")
		if err != nil {
			return nil, err
		}
		_, body := SplitPointer(ptr)
		return Get(body, result)
	}
	return result, nil
}

func castConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	spec, is := node["$cast"].(map[string]interface{})
	if !is {
		return nil, &MalformedStepError{Reason: "$cast takes {value, type}", Step: node}
	}
	typ, is := spec["type"].(string)
	if !is {
		return nil, &MalformedStepError{Reason: "$cast type must be a string", Step: node}
	}
	fn, ok := ec.Engine.Casters[typ]
	if !ok {
		return nil, &MalformedStepError{Reason: "unknown cast type " + typ, Step: node}
	}
	v, err := ec.Engine.ProcessValue(ctx, spec["value"], ec)
	if err != nil {
		return nil, err
	}
	return fn(v)
}

// logic

func operandList(node map[string]interface{}, key string) ([]interface{}, error) {
	vs, is := node[key].([]interface{})
	if !is {
		return nil, &MalformedStepError{Reason: key + " takes a sequence of operands", Step: node}
	}
	return vs, nil
}

func andConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	vs, err := operandList(node, "$and")
	if err != nil {
		return nil, err
	}
	for _, raw := range vs {
		v, err := ec.Engine.ProcessValue(ctx, raw, ec)
		if err != nil {
			return nil, err
		}
		if !Truthy(v) {
			return false, nil
		}
	}
	return true, nil
}

func orConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	vs, err := operandList(node, "$or")
	if err != nil {
		return nil, err
	}
	for _, raw := range vs {
		v, err := ec.Engine.ProcessValue(ctx, raw, ec)
		if err != nil {
			return nil, err
		}
		if Truthy(v) {
			return true, nil
		}
	}
	return false, nil
}

func notConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	v, err := ec.Engine.ProcessValue(ctx, node["$not"], ec)
	if err != nil {
		return nil, err
	}
	return !Truthy(v), nil
}

// comparisons

func binaryOperands(ctx context.Context, node map[string]interface{}, key string, ec *ExecutionContext) (interface{}, interface{}, error) {
	vs, err := operandList(node, key)
	if err != nil {
		return nil, nil, err
	}
	if len(vs) != 2 {
		return nil, nil, &MalformedStepError{Reason: key + " takes exactly two operands", Step: node}
	}
	a, err := ec.Engine.ProcessValue(ctx, vs[0], ec)
	if err != nil {
		return nil, nil, err
	}
	b, err := ec.Engine.ProcessValue(ctx, vs[1], ec)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// compare orders two scalars: numbers numerically, strings
// lexicographically.  Anything else is a type mismatch.
func compare(op string, a, b interface{}) (int, error) {
	if na, isA := a.(float64); isA {
		if nb, isB := b.(float64); isB {
			switch {
			case na < nb:
				return -1, nil
			case na > nb:
				return 1, nil
			}
			return 0, nil
		}
	}
	if sa, isA := a.(string); isA {
		if sb, isB := b.(string); isB {
			return strings.Compare(sa, sb), nil
		}
	}
	return 0, &TypeMismatchError{Op: op, Reason: "operands are not both numbers or both strings"}
}

func orderingConstruct(key string, want func(int) bool) SpecialFn {
	return func(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
		a, b, err := binaryOperands(ctx, node, key, ec)
		if err != nil {
			return nil, err
		}
		c, err := compare(key, a, b)
		if err != nil {
			return nil, err
		}
		return want(c), nil
	}
}

func eqConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	a, b, err := binaryOperands(ctx, node, "$eq", ec)
	if err != nil {
		return nil, err
	}
	return Equal(a, b), nil
}

func neConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	a, b, err := binaryOperands(ctx, node, "$ne", ec)
	if err != nil {
		return nil, err
	}
	return !Equal(a, b), nil
}

// inConstruct is the membership test: substring for strings, element
// for sequences, key for mappings.
func inConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	needle, haystack, err := binaryOperands(ctx, node, "$in", ec)
	if err != nil {
		return nil, err
	}
	switch h := haystack.(type) {
	case string:
		n, is := needle.(string)
		if !is {
			return nil, &TypeMismatchError{Op: "$in", Reason: "needle must be a string when the haystack is a string"}
		}
		return strings.Contains(h, n), nil
	case []interface{}:
		for _, item := range h {
			if Equal(item, needle) {
				return true, nil
			}
		}
		return false, nil
	case map[string]interface{}:
		n, is := needle.(string)
		if !is {
			return nil, &TypeMismatchError{Op: "$in", Reason: "needle must be a string when the haystack is a mapping"}
		}
		_, ok := h[n]
		return ok, nil
	default:
		return nil, &TypeMismatchError{Op: "$in", Reason: "haystack must be a string, sequence, or mapping"}
	}
}

// existsConstruct is the existence test for a prefixed pointer.
func existsConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	ptr, err := ec.Engine.processString(ctx, node["$exists"], ec, "$exists")
	if err != nil {
		return nil, err
	}
	return ec.LookupExists(ptr), nil
}
