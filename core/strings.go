package core

import (
	"context"
	"strings"
)

// String operation constructs.  Each takes a mapping argument; the
// binary predicates also accept a two-element sequence as sugar.

func stringArg(ctx context.Context, node map[string]interface{}, key, field string, ec *ExecutionContext) (map[string]interface{}, string, error) {
	raw, err := ec.Engine.ProcessValue(ctx, node[key], ec)
	if err != nil {
		return nil, "", err
	}
	switch arg := raw.(type) {
	case string:
		return map[string]interface{}{}, arg, nil
	case map[string]interface{}:
		s, is := arg[field].(string)
		if !is {
			return nil, "", &TypeMismatchError{Op: key, Reason: field + " must be a string"}
		}
		return arg, s, nil
	default:
		return nil, "", &TypeMismatchError{Op: key, Reason: "argument must be a string or a mapping"}
	}
}

func optString(arg map[string]interface{}, field, dflt string) string {
	if s, is := arg[field].(string); is {
		return s
	}
	return dflt
}

func optInt(arg map[string]interface{}, field string, dflt int) int {
	if n, is := arg[field].(float64); is {
		return int(n)
	}
	return dflt
}

func strSplitConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	arg, s, err := stringArg(ctx, node, "$str_split", "value", ec)
	if err != nil {
		return nil, err
	}
	sep := optString(arg, "sep", "")
	maxSplit := optInt(arg, "maxsplit", -1)

	var parts []string
	if sep == "" {
		parts = strings.Fields(s)
	} else if maxSplit >= 0 {
		parts = strings.SplitN(s, sep, maxSplit+1)
	} else {
		parts = strings.Split(s, sep)
	}
	if len(parts) > ec.Limits.SplitMaxResults {
		return nil, &LimitError{Limit: "str_max_split_results", Message: "split result count exceeds maximum"}
	}
	out := make([]interface{}, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func strJoinConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	raw, err := ec.Engine.ProcessValue(ctx, node["$str_join"], ec)
	if err != nil {
		return nil, err
	}
	arg, is := raw.(map[string]interface{})
	if !is {
		return nil, &MalformedStepError{Reason: "$str_join takes {values, sep}", Step: node}
	}
	values, is := arg["values"].([]interface{})
	if !is {
		return nil, &TypeMismatchError{Op: "$str_join", Reason: "values must be a sequence"}
	}
	sep := optString(arg, "sep", "")

	parts := make([]string, len(values))
	total := 0
	for i, v := range values {
		parts[i] = Stringify(v)
		total += len(parts[i]) + len(sep)
		if total > ec.Limits.JoinMaxLen {
			return nil, &LimitError{Limit: "str_max_join_result", Message: "join result exceeds maximum length"}
		}
	}
	return strings.Join(parts, sep), nil
}

func strSliceConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	arg, s, err := stringArg(ctx, node, "$str_slice", "value", ec)
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	rawStart, rawEnd := "", ""
	if _, ok := arg["start"]; ok {
		rawStart = FormatNumber(float64(optInt(arg, "start", 0)))
	}
	if _, ok := arg["end"]; ok {
		rawEnd = FormatNumber(float64(optInt(arg, "end", 0)))
	}
	lo, hi := pySlice(len(runes), rawStart, rawEnd)
	return string(runes[lo:hi]), nil
}

func strCaseConstruct(key string, apply func(string) string) SpecialFn {
	return func(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
		_, s, err := stringArg(ctx, node, key, "value", ec)
		if err != nil {
			return nil, err
		}
		return apply(s), nil
	}
}

func strStripConstruct(key string, apply func(string, string) string) SpecialFn {
	return func(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
		arg, s, err := stringArg(ctx, node, key, "value", ec)
		if err != nil {
			return nil, err
		}
		cutset := optString(arg, "chars", " \t\n\r\v\f")
		return apply(s, cutset), nil
	}
}

func strReplaceConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	arg, s, err := stringArg(ctx, node, "$str_replace", "value", ec)
	if err != nil {
		return nil, err
	}
	old, is := arg["old"].(string)
	if !is {
		return nil, &MalformedStepError{Reason: "$str_replace takes {value, old, new}", Step: node}
	}
	repl := optString(arg, "new", "")
	count := optInt(arg, "count", -1)

	out := strings.Replace(s, old, repl, count)
	if len(out) > ec.Limits.ReplaceMaxLen {
		return nil, &LimitError{Limit: "str_max_replace_result", Message: "replace result exceeds maximum length"}
	}
	return out, nil
}

// strPredicateConstruct covers contains / startswith / endswith.
// Argument: [value, probe] or {value, <field>}.
func strPredicateConstruct(key, field string, apply func(s, probe string) bool) SpecialFn {
	return func(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
		raw, err := ec.Engine.ProcessValue(ctx, node[key], ec)
		if err != nil {
			return nil, err
		}
		var s, probe string
		switch arg := raw.(type) {
		case []interface{}:
			if len(arg) != 2 {
				return nil, &MalformedStepError{Reason: key + " takes [value, " + field + "]", Step: node}
			}
			var okS, okP bool
			s, okS = arg[0].(string)
			probe, okP = arg[1].(string)
			if !okS || !okP {
				return nil, &TypeMismatchError{Op: key, Reason: "operands must be strings"}
			}
		case map[string]interface{}:
			var okS, okP bool
			s, okS = arg["value"].(string)
			probe, okP = arg[field].(string)
			if !okS || !okP {
				return nil, &TypeMismatchError{Op: key, Reason: "value and " + field + " must be strings"}
			}
		default:
			return nil, &MalformedStepError{Reason: key + " takes a sequence or mapping", Step: node}
		}
		return apply(s, probe), nil
	}
}
