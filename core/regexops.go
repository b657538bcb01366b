package core

import (
	"context"
	"strings"
)

// Pattern-matching constructs.  The actual engine is the external
// PatternMatcher collaborator; the core validates flags against the
// allowed set and maps a timeout breach to a LimitError.

type timeouter interface{ Timeout() bool }

func patternErr(key string, err error) error {
	if te, is := err.(timeouter); is && te.Timeout() {
		return &LimitError{Limit: "regex_timeout", Message: "pattern matching timed out"}
	}
	return &MalformedStepError{Reason: key + ": " + err.Error()}
}

type regexArgs struct {
	pattern string
	value   string
	flags   string
	node    map[string]interface{}
}

func regexArg(ctx context.Context, node map[string]interface{}, key string, ec *ExecutionContext) (*regexArgs, error) {
	if ec.Engine.Patterns == nil {
		return nil, &MalformedStepError{Reason: "no pattern matcher configured", Step: node}
	}
	raw, err := ec.Engine.ProcessValue(ctx, node[key], ec)
	if err != nil {
		return nil, err
	}
	arg, is := raw.(map[string]interface{})
	if !is {
		return nil, &MalformedStepError{Reason: key + " takes {pattern, value}", Step: node}
	}
	pattern, okP := arg["pattern"].(string)
	value, okV := arg["value"].(string)
	if !okP || !okV {
		return nil, &TypeMismatchError{Op: key, Reason: "pattern and value must be strings"}
	}
	flags := optString(arg, "flags", "")
	for _, f := range flags {
		if !strings.ContainsRune(ec.Limits.RegexFlags, f) {
			return nil, &LimitError{Limit: "regex_allowed_flags", Message: "flag " + string(f) + " is not allowed"}
		}
	}
	return &regexArgs{pattern: pattern, value: value, flags: flags, node: arg}, nil
}

func regexMatchConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	a, err := regexArg(ctx, node, "$regex_match", ec)
	if err != nil {
		return nil, err
	}
	ok, err := ec.Engine.Patterns.Match(a.pattern, a.value, a.flags, ec.Limits.RegexTimeout)
	if err != nil {
		return nil, patternErr("$regex_match", err)
	}
	return ok, nil
}

func regexSearchConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	a, err := regexArg(ctx, node, "$regex_search", ec)
	if err != nil {
		return nil, err
	}
	m, found, err := ec.Engine.Patterns.Search(a.pattern, a.value, a.flags, ec.Limits.RegexTimeout)
	if err != nil {
		return nil, patternErr("$regex_search", err)
	}
	if !found {
		return nil, nil
	}
	return m, nil
}

func regexFindAllConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	a, err := regexArg(ctx, node, "$regex_findall", ec)
	if err != nil {
		return nil, err
	}
	ms, err := ec.Engine.Patterns.FindAll(a.pattern, a.value, a.flags, ec.Limits.RegexTimeout)
	if err != nil {
		return nil, patternErr("$regex_findall", err)
	}
	out := make([]interface{}, len(ms))
	for i, m := range ms {
		out[i] = m
	}
	return out, nil
}

func regexReplaceConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	a, err := regexArg(ctx, node, "$regex_replace", ec)
	if err != nil {
		return nil, err
	}
	repl := optString(a.node, "repl", "")
	count := optInt(a.node, "count", -1)
	out, err := ec.Engine.Patterns.Replace(a.pattern, a.value, repl, a.flags, count, ec.Limits.RegexTimeout)
	if err != nil {
		return nil, patternErr("$regex_replace", err)
	}
	return out, nil
}

func regexGroupsConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	a, err := regexArg(ctx, node, "$regex_groups", ec)
	if err != nil {
		return nil, err
	}
	groups, found, err := ec.Engine.Patterns.Groups(a.pattern, a.value, a.flags, ec.Limits.RegexTimeout)
	if err != nil {
		return nil, patternErr("$regex_groups", err)
	}
	if !found {
		return nil, nil
	}
	return groups, nil
}
