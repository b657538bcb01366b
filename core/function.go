package core

import (
	"context"
)

// Named functions.  A $def step registers a definition; $func calls
// one.  Definitions are shared by every context forked from the same
// top-level application, so a function defined inside a nested body
// stays callable afterward.

type functionDef struct {
	Name       string
	Params     []string
	Body       interface{}
	ReturnPath string
	OnFailure  interface{}
	Mode       string
}

// defStep registers a function.
//
//	{"$def": "name", "params": ["a", "b"], "body": [...],
//	 "return": "/result", "on_failure": [...], "context": "copy"}
//
// "do" and "mode" are accepted as aliases for "body" and "context".
func defStep(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	s, err := asStep(step)
	if err != nil {
		return err
	}
	name, is := s["$def"].(string)
	if !is || name == "" {
		return &MalformedStepError{Reason: "$def requires a function name", Step: step}
	}
	body, ok := s["body"]
	if !ok {
		body, ok = s["do"]
	}
	if !ok {
		return &MalformedStepError{Reason: "$def requires body", Step: step}
	}

	def := &functionDef{Name: name, Body: DeepCopy(body), Mode: "copy"}
	if rawParams, hasParams := s["params"]; hasParams {
		params, is := rawParams.([]interface{})
		if !is {
			return &MalformedStepError{Reason: "params must be a sequence of names", Step: step}
		}
		for _, p := range params {
			ps, is := p.(string)
			if !is {
				return &MalformedStepError{Reason: "params must be a sequence of names", Step: step}
			}
			def.Params = append(def.Params, ps)
		}
	}
	if rawRet, hasRet := s["return"]; hasRet {
		ret, is := rawRet.(string)
		if !is {
			return &MalformedStepError{Reason: "return must be a pointer", Step: step}
		}
		def.ReturnPath = ret
	}
	if onFailure, hasOF := s["on_failure"]; hasOF {
		def.OnFailure = DeepCopy(onFailure)
	}
	rawMode, hasMode := s["context"]
	if !hasMode {
		rawMode, hasMode = s["mode"]
	}
	if hasMode {
		mode, is := rawMode.(string)
		if !is {
			return &MalformedStepError{Reason: "context must be a string", Step: step}
		}
		switch mode {
		case "copy", "new", "shared":
			def.Mode = mode
		default:
			return &MalformedStepError{Reason: "unknown function context " + mode, Step: step}
		}
	}
	ec.funcs[name] = def
	return nil
}

// callStep is the statement form of a function call.
//
//	{"$func": "name", "args": [1, 2], "to_path": "/out"}
func callStep(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	s, err := asStep(step)
	if err != nil {
		return err
	}
	result, err := callFunction(ctx, s, ec)
	if err != nil {
		return err
	}
	if rawTo, hasTo := s["to_path"]; hasTo {
		to, err := ec.Engine.processString(ctx, rawTo, ec, "to_path")
		if err != nil {
			return err
		}
		return ec.SetDest(to, result, true)
	}
	return nil
}

// callConstruct is the expression form; the call result replaces the
// construct node during value stabilization.
func callConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	return callFunction(ctx, node, ec)
}

// callFunction runs a named definition.  The result is the value at
// the definition's return path, or the callee's whole destination
// when no return path is set.
func callFunction(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	name, err := ec.Engine.processString(ctx, node["$func"], ec, "$func")
	if err != nil {
		return nil, err
	}
	def, ok := ec.funcs[name]
	if !ok {
		return nil, &ResolutionError{Pointer: name, Reason: "function is not defined"}
	}

	var args []interface{}
	if rawArgs, hasArgs := node["args"]; hasArgs {
		processed, err := ec.Engine.ProcessValue(ctx, rawArgs, ec)
		if err != nil {
			return nil, err
		}
		args, ok = processed.([]interface{})
		if !ok {
			return nil, &MalformedStepError{Reason: "args must be a sequence", Step: node}
		}
	}
	if len(args) != len(def.Params) {
		return nil, &MalformedStepError{
			Reason: name + " takes " + FormatNumber(float64(len(def.Params))) + " arguments",
			Step:   node,
		}
	}

	if ec.count.depth >= ec.Limits.MaxCallDepth {
		return nil, &LimitError{Limit: "max_call_depth", Message: "call depth exceeds maximum"}
	}
	ec.count.depth++
	defer func() { ec.count.depth-- }()

	callee := ec.fork()
	callee.Scratch = map[string]interface{}{}
	callee.Args = ec.argsCopy()
	for i, p := range def.Params {
		callee.Args[p] = args[i]
	}
	callee.hasRealDest = false
	switch def.Mode {
	case "new":
		callee.Dest = map[string]interface{}{}
	case "shared":
		callee.Dest = ec.effectiveDest()
	default:
		callee.Dest = DeepCopy(ec.effectiveDest())
	}

	entryDepth := ec.stackDepth()
	runErr := ec.Engine.Exec(ctx, DeepCopy(def.Body), callee)
	if def.Mode == "shared" {
		// Root replacement in the callee cannot propagate through the
		// shared reference, so write the final root back.
		if ec.hasRealDest {
			ec.realDest = callee.Dest
		} else {
			ec.Dest = callee.Dest
		}
	}

	if runErr != nil {
		if ret, is := runErr.(*returnSignal); is {
			ec.truncateStack(entryDepth)
			return ret.value, nil
		}
		if IsSignal(runErr) {
			return nil, runErr
		}
		if def.OnFailure != nil {
			ec.truncateStack(entryDepth)
			rescue := callee.fork()
			rescue.Args = callee.argsCopy()
			rescue.Args["_error_type"] = ErrKind(runErr)
			rescue.Args["_error_message"] = runErr.Error()
			if err := ec.Engine.Exec(ctx, DeepCopy(def.OnFailure), rescue); err != nil {
				if ret, is := err.(*returnSignal); is {
					ec.truncateStack(entryDepth)
					return ret.value, nil
				}
				return nil, err
			}
			return DeepCopy(rescue.Dest), nil
		}
		return nil, runErr
	}

	if def.ReturnPath != "" {
		_, body := SplitPointer(def.ReturnPath)
		v, err := Get(body, callee.Dest)
		if err != nil {
			return nil, err
		}
		return DeepCopy(v), nil
	}
	return DeepCopy(callee.Dest), nil
}

// raiseStep turns a resolved value into a user-raised failure.
//
//	{"$raise": "message ${/detail}"}
func raiseStep(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	s, is := step.(map[string]interface{})
	if !is {
		return &MalformedStepError{Reason: "$raise must be a mapping", Step: step}
	}
	v, err := ec.Engine.ProcessValue(ctx, s["$raise"], ec)
	if err != nil {
		return err
	}
	return &RaisedError{Message: Stringify(v)}
}

// raiseConstruct lets $raise fire during value stabilization too.
func raiseConstruct(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error) {
	return nil, raiseStep(ctx, node, ec)
}
