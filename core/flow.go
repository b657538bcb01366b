package core

import (
	"context"
	"sort"
)

// Control-flow steps: foreach, while, if, exec, try.  Loop bodies run
// in the enclosing context, so destination mutations persist across
// iterations.  When a body fails with a real error the destination is
// rolled back to the pre-loop snapshot; break and continue keep the
// work already done.

// loopBody runs the steps of one iteration or branch through the main
// pipeline.  The caller owns snapshotting.
func loopBody(ctx context.Context, body interface{}, ec *ExecutionContext) error {
	return ec.Engine.Exec(ctx, body, ec)
}

// foreachStep iterates a resolved sequence or mapping, binding each
// element to a loop variable in the read-only argument space.
//
//	{"op": "foreach", "in": "/items", "as": "item", "do": [...],
//	 "skip_empty": true, "default": []}
//
// Mappings iterate as [key, value] pairs in sorted key order.
func foreachStep(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	s, err := asStep(step)
	if err != nil {
		return err
	}
	rawIn, ok := s["in"]
	if !ok {
		return &MalformedStepError{Reason: "foreach requires in", Step: step}
	}
	body, ok := s["do"]
	if !ok {
		return &MalformedStepError{Reason: "foreach requires do", Step: step}
	}
	as := "item"
	if rawAs, hasAs := s["as"]; hasAs {
		if as, err = ec.Engine.processString(ctx, rawAs, ec, "as"); err != nil {
			return err
		}
	}
	skipEmpty, err := ec.Engine.processBool(ctx, s, "skip_empty", true, ec)
	if err != nil {
		return err
	}

	collection, err := ec.Engine.ProcessValue(ctx, rawIn, ec)
	if err != nil {
		return err
	}
	// A string names the collection by pointer; a failed lookup falls
	// through to default / skip_empty handling.
	if ptr, isPtr := collection.(string); isPtr {
		if v, lookupErr := ec.Lookup(ptr); lookupErr == nil {
			collection = DeepCopy(v)
		} else {
			collection = nil
		}
	}
	if collection == nil {
		if dflt, hasDflt := s["default"]; hasDflt {
			if collection, err = ec.Engine.ProcessValue(ctx, dflt, ec); err != nil {
				return err
			}
		}
	}

	var items []interface{}
	switch c := collection.(type) {
	case []interface{}:
		items = c
	case map[string]interface{}:
		keys := make([]string, 0, len(c))
		for k := range c {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items = make([]interface{}, len(keys))
		for i, k := range keys {
			items[i] = []interface{}{k, c[k]}
		}
	case nil:
		if skipEmpty {
			return nil
		}
		return &TypeMismatchError{Op: "foreach", Reason: "collection is missing"}
	default:
		return &TypeMismatchError{Op: "foreach", Reason: "collection must be a sequence or mapping"}
	}
	if len(items) == 0 && skipEmpty {
		return nil
	}
	if len(items) > ec.Limits.MaxIterationItems {
		return &LimitError{Limit: "max_iteration_items", Message: "collection exceeds maximum iteration size"}
	}

	snapshot := DeepCopy(ec.Dest)
	entryDepth := ec.stackDepth()
	for i, item := range items {
		iter := ec.fork()
		iter.Args = ec.argsCopy()
		iter.Args[as] = item
		iter.Args[as+"_index"] = float64(i)
		if err := loopBody(ctx, body, iter); err != nil {
			ec.Dest = iter.Dest
			switch err.(type) {
			case breakSignal:
				ec.truncateStack(entryDepth)
				return nil
			case continueSignal:
				ec.truncateStack(entryDepth)
				continue
			}
			if !IsSignal(err) {
				ec.Dest = snapshot
			}
			return err
		}
		ec.Dest = iter.Dest
	}
	return nil
}

// whileStep repeats a body while a condition holds.
//
//	{"op": "while", "cond": {...}, "do": [...], "do_while": false}
//	{"op": "while", "path": "/p", "equals": <v>, "do": [...]}
//
// The path form loops while the pointer resolves to the expected
// value; with "exists": true it loops while the pointer resolves at
// all, and without either it loops while the value is truthy.
func whileStep(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	s, err := asStep(step)
	if err != nil {
		return err
	}
	body, ok := s["do"]
	if !ok {
		return &MalformedStepError{Reason: "while requires do", Step: step}
	}
	rawCond, hasCond := s["cond"]
	rawPath, hasPath := s["path"]
	if hasCond == hasPath {
		return &MalformedStepError{Reason: "while requires exactly one of cond or path", Step: step}
	}
	doWhile, err := ec.Engine.processBool(ctx, s, "do_while", false, ec)
	if err != nil {
		return err
	}

	check := func() (bool, error) {
		if hasCond {
			v, err := ec.Engine.ProcessValue(ctx, DeepCopy(rawCond), ec)
			if err != nil {
				return false, err
			}
			return Truthy(v), nil
		}
		path, err := ec.Engine.processString(ctx, rawPath, ec, "path")
		if err != nil {
			return false, err
		}
		v, lookupErr := ec.Lookup(path)
		if lookupErr != nil {
			return false, nil
		}
		if rawEquals, hasEquals := s["equals"]; hasEquals {
			expected, err := ec.Engine.ProcessValue(ctx, DeepCopy(rawEquals), ec)
			if err != nil {
				return false, err
			}
			return Equal(v, expected), nil
		}
		exists, err := ec.Engine.processBool(ctx, s, "exists", false, ec)
		if err != nil {
			return false, err
		}
		if exists {
			return true, nil
		}
		return Truthy(v), nil
	}

	snapshot := DeepCopy(ec.Dest)
	entryDepth := ec.stackDepth()
	for i := 0; ; i++ {
		if i >= ec.Limits.MaxLoopIterations {
			return &LimitError{Limit: "max_loop_iterations", Message: "loop iteration count exceeds maximum"}
		}
		if !doWhile || i > 0 {
			ok, err := check()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		if err := loopBody(ctx, DeepCopy(body), ec); err != nil {
			switch err.(type) {
			case breakSignal:
				ec.truncateStack(entryDepth)
				return nil
			case continueSignal:
				ec.truncateStack(entryDepth)
				continue
			}
			if !IsSignal(err) {
				ec.Dest = snapshot
			}
			return err
		}
	}
}

// ifStep branches on a condition.
//
//	{"op": "if", "cond": {...}, "then": [...], "else": [...]}
//	{"op": "if", "path": "/p", "equals": <v>, "then": [...]}
//
// "do" is accepted as an alias for "then".
func ifStep(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	s, err := asStep(step)
	if err != nil {
		return err
	}
	rawCond, hasCond := s["cond"]
	rawPath, hasPath := s["path"]
	if hasCond == hasPath {
		return &MalformedStepError{Reason: "if requires exactly one of cond or path", Step: step}
	}

	truth := false
	if hasCond {
		v, err := ec.Engine.ProcessValue(ctx, rawCond, ec)
		if err != nil {
			return err
		}
		truth = Truthy(v)
	} else {
		path, err := ec.Engine.processString(ctx, rawPath, ec, "path")
		if err != nil {
			return err
		}
		v, lookupErr := ec.Lookup(path)
		if lookupErr == nil {
			if rawEquals, hasEquals := s["equals"]; hasEquals {
				expected, err := ec.Engine.ProcessValue(ctx, rawEquals, ec)
				if err != nil {
					return err
				}
				truth = Equal(v, expected)
			} else {
				truth = Truthy(v)
			}
		}
	}

	branch, hasBranch := s["then"]
	if !hasBranch {
		branch, hasBranch = s["do"]
	}
	if !truth {
		branch, hasBranch = s["else"]
	}
	if !hasBranch || branch == nil {
		return nil
	}

	snapshot := DeepCopy(ec.Dest)
	if err := loopBody(ctx, branch, ec); err != nil {
		if !IsSignal(err) {
			ec.Dest = snapshot
		}
		return err
	}
	return nil
}

// execStep runs a nested action list, either loaded from a pointer or
// given inline.  By default the nested list builds a fresh destination
// which then replaces the current one; "merge": true runs it against
// the current destination instead.
//
//	{"op": "exec", "from": "/lib/steps", "merge": true}
//	{"op": "exec", "actions": [...], "default": [...]}
func execStep(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	s, err := asStep(step)
	if err != nil {
		return err
	}
	rawFrom, hasFrom := s["from"]
	actions, hasActions := s["actions"]
	if hasFrom == hasActions {
		return &MalformedStepError{Reason: "exec requires exactly one of from or actions", Step: step}
	}
	merge, err := ec.Engine.processBool(ctx, s, "merge", false, ec)
	if err != nil {
		return err
	}

	if hasFrom {
		from, err := ec.Engine.processString(ctx, rawFrom, ec, "from")
		if err != nil {
			return err
		}
		v, lookupErr := ec.Lookup(from)
		if lookupErr != nil {
			if dflt, hasDflt := s["default"]; hasDflt {
				v = dflt
			} else {
				return lookupErr
			}
		}
		actions = DeepCopy(v)
	}

	if merge {
		return loopBody(ctx, actions, ec)
	}
	sub := ec.fork()
	sub.Dest = map[string]interface{}{}
	sub.hasRealDest = false
	if err := loopBody(ctx, actions, sub); err != nil {
		return err
	}
	ec.Dest = sub.Dest
	return nil
}

// tryStep runs a body with a handler and a finalizer.
//
//	{"op": "try", "do": [...], "except": [...], "finally": [...]}
//
// The handler sees the failure in its argument space as _error_type
// and _error_message.  Control-flow signals pass straight through;
// the finalizer still runs exactly once.
func tryStep(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	s, err := asStep(step)
	if err != nil {
		return err
	}
	body, ok := s["do"]
	if !ok {
		return &MalformedStepError{Reason: "try requires do", Step: step}
	}
	handler, hasHandler := s["except"]
	finalizer, hasFinalizer := s["finally"]

	entryDepth := ec.stackDepth()
	runErr := loopBody(ctx, body, ec)

	if runErr != nil && !IsSignal(runErr) && hasHandler {
		ec.truncateStack(entryDepth)
		sub := ec.fork()
		sub.Args = ec.argsCopy()
		sub.Args["_error_type"] = ErrKind(runErr)
		sub.Args["_error_message"] = runErr.Error()
		handlerErr := loopBody(ctx, handler, sub)
		ec.Dest = sub.Dest
		runErr = handlerErr
	}

	if hasFinalizer {
		finErr := loopBody(ctx, finalizer, ec)
		if runErr == nil {
			runErr = finErr
		}
	}
	if runErr != nil && !IsSignal(runErr) {
		ec.truncateStack(entryDepth)
	}
	return runErr
}

// breakStep, continueStep and returnStep surface as signal errors
// that the enclosing loop or function call absorbs.

func breakStep(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	return breakSignal{}
}

func continueStep(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	return continueSignal{}
}

func returnStep(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	s, is := step.(map[string]interface{})
	if !is {
		return &returnSignal{}
	}
	v, err := ec.Engine.ProcessValue(ctx, s["$return"], ec)
	if err != nil {
		return err
	}
	return &returnSignal{value: v}
}
