package core

import (
	"context"
	"encoding/json"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Canonical data steps: set, copy, delete, update, distinct, assert,
// patch.  Loop and branch steps live in flow.go.

func asStep(step interface{}) (map[string]interface{}, error) {
	s, is := step.(map[string]interface{})
	if !is {
		return nil, &MalformedStepError{Reason: "step must be a mapping", Step: step}
	}
	return s, nil
}

// setStep writes a resolved value at a path in the destination.
//
//	{"op": "set", "path": "/a/b", "value": <v>, "create": true, "extend": true}
//
// A path ending in "/-" appends; with extend, a sequence value is
// spliced in element-by-element.
func setStep(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	s, err := asStep(step)
	if err != nil {
		return err
	}
	rawPath, ok := s["path"]
	if !ok {
		return &MalformedStepError{Reason: "set requires path", Step: step}
	}
	if _, ok := s["value"]; !ok {
		return &MalformedStepError{Reason: "set requires value", Step: step}
	}
	path, err := ec.Engine.processString(ctx, rawPath, ec, "path")
	if err != nil {
		return err
	}
	create, err := ec.Engine.processBool(ctx, s, "create", true, ec)
	if err != nil {
		return err
	}
	extend, err := ec.Engine.processBool(ctx, s, "extend", true, ec)
	if err != nil {
		return err
	}
	value, err := ec.Engine.ProcessValue(ctx, s["value"], ec)
	if err != nil {
		return err
	}

	if strings.HasSuffix(path, "/-") {
		return ec.AppendDest(path, value, create, extend)
	}
	return ec.SetDest(path, value, create)
}

// copyStep reads a pointer (any prefix) and writes an independent
// deep copy at a destination path.
//
//	{"op": "copy", "from": "/src", "path": "/dst",
//	 "ignore_missing": false, "default": <fallback>}
func copyStep(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	s, err := asStep(step)
	if err != nil {
		return err
	}
	rawFrom, ok := s["from"]
	if !ok {
		return &MalformedStepError{Reason: "copy requires from", Step: step}
	}
	path, err := ec.Engine.processString(ctx, s["path"], ec, "path")
	if err != nil {
		return err
	}
	from, err := ec.Engine.processString(ctx, rawFrom, ec, "from")
	if err != nil {
		return err
	}
	create, err := ec.Engine.processBool(ctx, s, "create", true, ec)
	if err != nil {
		return err
	}
	extend, err := ec.Engine.processBool(ctx, s, "extend", true, ec)
	if err != nil {
		return err
	}
	ignore, err := ec.Engine.processBool(ctx, s, "ignore_missing", false, ec)
	if err != nil {
		return err
	}

	var value interface{}
	if v, lookupErr := ec.Lookup(from); lookupErr == nil {
		value = DeepCopy(v)
	} else if dflt, hasDflt := s["default"]; hasDflt {
		dv, err := ec.Engine.ProcessValue(ctx, dflt, ec)
		if err != nil {
			return err
		}
		value = DeepCopy(dv)
	} else if ignore {
		return nil
	} else {
		return lookupErr
	}

	if strings.HasSuffix(path, "/-") {
		return ec.AppendDest(path, value, create, extend)
	}
	return ec.SetDest(path, value, create)
}

// deleteStep removes a destination path.
//
//	{"op": "delete", "path": "/a", "ignore_missing": true}
func deleteStep(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	s, err := asStep(step)
	if err != nil {
		return err
	}
	path, err := ec.Engine.processString(ctx, s["path"], ec, "path")
	if err != nil {
		return err
	}
	if strings.HasSuffix(path, "/-") {
		return &MalformedStepError{Reason: "append token not allowed in delete", Step: step}
	}
	ignore, err := ec.Engine.processBool(ctx, s, "ignore_missing", true, ec)
	if err != nil {
		return err
	}
	return ec.DeleteDest(path, ignore)
}

// updateStep merges a mapping into a destination mapping.
//
//	{"op": "update", "path": "/target", "from": "/data", "deep": false}
//	{"op": "update", "path": "/target", "value": {...}}
func updateStep(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	s, err := asStep(step)
	if err != nil {
		return err
	}
	path, err := ec.Engine.processString(ctx, s["path"], ec, "path")
	if err != nil {
		return err
	}
	create, err := ec.Engine.processBool(ctx, s, "create", true, ec)
	if err != nil {
		return err
	}
	deep, err := ec.Engine.processBool(ctx, s, "deep", false, ec)
	if err != nil {
		return err
	}

	var value interface{}
	if rawFrom, hasFrom := s["from"]; hasFrom {
		from, err := ec.Engine.processString(ctx, rawFrom, ec, "from")
		if err != nil {
			return err
		}
		v, lookupErr := ec.Lookup(from)
		if lookupErr != nil {
			if dflt, hasDflt := s["default"]; hasDflt {
				if value, err = ec.Engine.ProcessValue(ctx, dflt, ec); err != nil {
					return err
				}
			} else {
				return lookupErr
			}
		} else {
			value = v
		}
		value = DeepCopy(value)
	} else if rawValue, hasValue := s["value"]; hasValue {
		if value, err = ec.Engine.ProcessValue(ctx, rawValue, ec); err != nil {
			return err
		}
	} else {
		return &MalformedStepError{Reason: "update requires from or value", Step: step}
	}

	patch, is := value.(map[string]interface{})
	if !is {
		return &TypeMismatchError{Op: "update", Reason: "update value must be a mapping"}
	}

	_, body := SplitPointer(path)
	target, lookupErr := Get(body, ec.Dest)
	if lookupErr != nil {
		if !create {
			return lookupErr
		}
		target = map[string]interface{}{}
		if err := ec.SetDest(path, target, true); err != nil {
			return err
		}
	}
	tm, is := target.(map[string]interface{})
	if !is {
		return &TypeMismatchError{Op: "update", Reason: path + " is not a mapping"}
	}

	if deep {
		deepMerge(tm, patch)
	} else {
		for k, v := range patch {
			tm[k] = DeepCopy(v)
		}
	}
	return nil
}

func deepMerge(dst, src map[string]interface{}) {
	for k, v := range src {
		if dm, isDst := dst[k].(map[string]interface{}); isDst {
			if sm, isSrc := v.(map[string]interface{}); isSrc {
				deepMerge(dm, sm)
				continue
			}
		}
		dst[k] = DeepCopy(v)
	}
}

// distinctStep deduplicates a destination sequence in place,
// preserving first-seen order.  With key, elements are compared by
// the value at that pointer inside each element.
//
//	{"op": "distinct", "path": "/array", "key": "/field"}
func distinctStep(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	s, err := asStep(step)
	if err != nil {
		return err
	}
	path, err := ec.Engine.processString(ctx, s["path"], ec, "path")
	if err != nil {
		return err
	}
	_, body := SplitPointer(path)
	target, err := Get(body, ec.Dest)
	if err != nil {
		return err
	}
	list, is := target.([]interface{})
	if !is {
		return &TypeMismatchError{Op: "distinct", Reason: path + " is not a sequence"}
	}

	keyPath := ""
	if rawKey, hasKey := s["key"]; hasKey {
		if keyPath, err = ec.Engine.processString(ctx, rawKey, ec, "key"); err != nil {
			return err
		}
	}

	seen := map[string]bool{}
	unique := make([]interface{}, 0, len(list))
	for _, item := range list {
		probe := item
		if keyPath != "" {
			if probe, err = Get(keyPath, item); err != nil {
				return err
			}
		}
		js, err := json.Marshal(&probe)
		if err != nil {
			return &TypeMismatchError{Op: "distinct", Reason: "element is not comparable"}
		}
		if seen[string(js)] {
			continue
		}
		seen[string(js)] = true
		unique = append(unique, item)
	}
	return ec.SetDest(path, unique, false)
}

// assertStep validates a pointer or value; failure raises unless
// return mode is on, in which case the outcome is written instead.
//
//	{"op": "assert", "path": "/p", "equals": <v>,
//	 "return": false, "to_path": "/result"}
func assertStep(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	s, err := asStep(step)
	if err != nil {
		return err
	}
	_, hasPath := s["path"]
	_, hasValue := s["value"]
	if hasPath == hasValue {
		return &MalformedStepError{Reason: "assert requires exactly one of path or value", Step: step}
	}
	shouldReturn, err := ec.Engine.processBool(ctx, s, "return", false, ec)
	if err != nil {
		return err
	}

	deliver := func(outcome interface{}) error {
		if rawTo, hasTo := s["to_path"]; hasTo {
			to, err := ec.Engine.processString(ctx, rawTo, ec, "to_path")
			if err != nil {
				return err
			}
			return ec.SetDest(to, outcome, true)
		}
		return nil
	}

	var current interface{}
	if hasValue {
		if current, err = ec.Engine.ProcessValue(ctx, s["value"], ec); err != nil {
			return err
		}
	} else {
		path, err := ec.Engine.processString(ctx, s["path"], ec, "path")
		if err != nil {
			return err
		}
		v, lookupErr := ec.Lookup(path)
		if lookupErr != nil {
			if shouldReturn {
				return deliver(false)
			}
			return &RaisedError{Message: "assertion failed: " + path + " does not exist"}
		}
		current = v
	}

	if rawEquals, hasEquals := s["equals"]; hasEquals {
		expected, err := ec.Engine.ProcessValue(ctx, rawEquals, ec)
		if err != nil {
			return err
		}
		if !Equal(current, expected) {
			if shouldReturn {
				return deliver(false)
			}
			return &RaisedError{Message: "assertion failed: value is not " + JSONish(expected)}
		}
	}

	if shouldReturn {
		return deliver(current)
	}
	return nil
}

// patchStep applies an RFC 6902 patch document to the destination.
//
//	{"op": "patch", "patch": [{"op": "add", "path": "/a", "value": 1}]}
func patchStep(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	s, err := asStep(step)
	if err != nil {
		return err
	}
	rawPatch, ok := s["patch"]
	if !ok {
		return &MalformedStepError{Reason: "patch requires a patch document", Step: step}
	}
	resolved, err := ec.Engine.ProcessValue(ctx, rawPatch, ec)
	if err != nil {
		return err
	}
	patchJS, err := json.Marshal(&resolved)
	if err != nil {
		return &MalformedStepError{Reason: "patch document is not plain data", Step: step}
	}
	patch, err := jsonpatch.DecodePatch(patchJS)
	if err != nil {
		return &MalformedStepError{Reason: "invalid patch document: " + err.Error(), Step: step}
	}

	destJS, err := json.Marshal(&ec.Dest)
	if err != nil {
		return &TypeMismatchError{Op: "patch", Reason: "destination is not plain data"}
	}
	patched, err := patch.Apply(destJS)
	if err != nil {
		return &ResolutionError{Pointer: "patch", Reason: err.Error()}
	}
	var out interface{}
	if err := json.Unmarshal(patched, &out); err != nil {
		return &TypeMismatchError{Op: "patch", Reason: err.Error()}
	}
	ec.Dest = out
	return nil
}
