package core

import "strings"

type counters struct {
	ops   int
	depth int
}

// ExecutionContext is the per-invocation state threaded through every
// stage, handler, and construct resolution.  Forked contexts (loops,
// function activations, value stabilization) share the function
// table, the call stack, and the operation counters with the root
// context.
type ExecutionContext struct {
	// Source is the immutable input document.  Shared by reference
	// across all nested activations; nothing ever writes to it.
	Source interface{}

	// Dest is the document under construction.
	Dest interface{}

	// Args is the read-only scratch: function arguments, loop
	// variables, and captured error info.
	Args map[string]interface{}

	// Scratch is the read-write scratch.  Not part of the output.
	Scratch map[string]interface{}

	Engine *Engine
	Limits Limits

	// realDest carries the actual destination while Dest temporarily
	// holds a value being stabilized, so that @: pointers keep
	// addressing the real output.
	realDest    interface{}
	hasRealDest bool

	funcs map[string]*functionDef
	stack *[]interface{}
	count *counters
}

func newExecutionContext(e *Engine, source, dest interface{}) *ExecutionContext {
	frames := make([]interface{}, 0, 8)
	return &ExecutionContext{
		Source:  source,
		Dest:    dest,
		Args:    map[string]interface{}{},
		Scratch: map[string]interface{}{},
		Engine:  e,
		Limits:  e.Limits,
		funcs:   map[string]*functionDef{},
		stack:   &frames,
		count:   &counters{},
	}
}

// fork clones the context.  The shared plumbing (functions, stack,
// counters) stays shared; documents and scratch spaces keep their
// current references until the caller swaps them.
func (ec *ExecutionContext) fork() *ExecutionContext {
	dup := *ec
	return &dup
}

// valueContext prepares a fork whose Dest is the value being
// stabilized, remembering the real destination for @: reads.
func (ec *ExecutionContext) valueContext(value interface{}) *ExecutionContext {
	vc := ec.fork()
	vc.Dest = value
	vc.realDest = ec.effectiveDest()
	vc.hasRealDest = true
	return vc
}

// effectiveDest is the destination @: pointers address: the real
// document even while stabilizing a value.
func (ec *ExecutionContext) effectiveDest() interface{} {
	if ec.hasRealDest {
		return ec.realDest
	}
	return ec.Dest
}

func (ec *ExecutionContext) argsCopy() map[string]interface{} {
	out := make(map[string]interface{}, len(ec.Args)+2)
	for k, v := range ec.Args {
		out[k] = v
	}
	return out
}

// Lookup reads a prefixed pointer against the appropriate root.
func (ec *ExecutionContext) Lookup(ptr string) (interface{}, error) {
	space, body := SplitPointer(ptr)
	switch space {
	case SpaceDest:
		return Get(body, ec.effectiveDest())
	case SpaceArgs:
		return Get(body, ec.Args)
	case SpaceScratch:
		return Get(body, ec.Scratch)
	default:
		return Get(body, ec.Source)
	}
}

// LookupExists reports whether a prefixed pointer resolves.
func (ec *ExecutionContext) LookupExists(ptr string) bool {
	_, err := ec.Lookup(ptr)
	return err == nil
}

// SetDest writes value at ptr.  An unprefixed (or source-prefixed)
// path writes to the destination; the source itself is never
// writable.  The read-write scratch accepts writes via its prefix;
// the read-only scratch accepts none.
func (ec *ExecutionContext) SetDest(ptr string, value interface{}, create bool) error {
	space, body := SplitPointer(ptr)
	switch space {
	case SpaceArgs:
		return &MalformedStepError{Reason: "the read-only scratch cannot be written", Step: ptr}
	case SpaceScratch:
		root, err := Set(body, ec.Scratch, value, create)
		if err != nil {
			return err
		}
		m, is := root.(map[string]interface{})
		if !is {
			return &TypeMismatchError{Op: "set", Reason: "the scratch root must remain a mapping"}
		}
		ec.Scratch = m
		return nil
	}
	root, err := Set(body, ec.Dest, value, create)
	if err != nil {
		return err
	}
	ec.Dest = root
	return nil
}

// AppendDest implements the append form of set: ptr must end in
// "/-".  The parent is created or converted to a sequence when
// create allows; with extend, a sequence value is spliced in
// element-by-element.
func (ec *ExecutionContext) AppendDest(ptr string, value interface{}, create, extend bool) error {
	space, body := SplitPointer(ptr)
	if space == SpaceArgs {
		return &MalformedStepError{Reason: "the read-only scratch cannot be written", Step: ptr}
	}
	prefix := ""
	root := func() interface{} { return ec.Dest }
	if space == SpaceScratch {
		prefix = "!:"
		root = func() interface{} { return ec.Scratch }
	}
	parentPtr := parentOf(body)

	parent, err := Get(parentPtr, root())
	if err != nil {
		if !create {
			return err
		}
		if err := ec.SetDest(prefix+parentPtr, []interface{}{}, true); err != nil {
			return err
		}
		parent, _ = Get(parentPtr, root())
	}

	if _, isList := parent.([]interface{}); !isList {
		if !create {
			return &TypeMismatchError{Op: "set", Reason: body + ": parent is not a sequence (append)"}
		}
		// Convert: an empty mapping becomes an empty sequence, any
		// other value gets wrapped.
		if m, isMap := parent.(map[string]interface{}); isMap && len(m) == 0 {
			parent = []interface{}{}
		} else {
			parent = []interface{}{parent}
		}
		if err := ec.SetDest(prefix+parentPtr, parent, true); err != nil {
			return err
		}
	}

	items := []interface{}{value}
	if vs, isList := value.([]interface{}); isList && extend {
		items = vs
	}
	for _, item := range items {
		if err := ec.SetDest(prefix+body, item, create); err != nil {
			return err
		}
	}
	return nil
}

// DeleteDest removes ptr, routing between the destination and the
// read-write scratch the same way SetDest does.
func (ec *ExecutionContext) DeleteDest(ptr string, ignoreMissing bool) error {
	space, body := SplitPointer(ptr)
	switch space {
	case SpaceArgs:
		return &MalformedStepError{Reason: "the read-only scratch cannot be written", Step: ptr}
	case SpaceScratch:
		if ignoreMissing && !Exists(body, ec.Scratch) {
			return nil
		}
		root, err := Delete(body, ec.Scratch)
		if err != nil {
			return err
		}
		m, is := root.(map[string]interface{})
		if !is {
			return &TypeMismatchError{Op: "delete", Reason: "the scratch root must remain a mapping"}
		}
		ec.Scratch = m
		return nil
	}
	if ignoreMissing && !Exists(body, ec.Dest) {
		return nil
	}
	root, err := Delete(body, ec.Dest)
	if err != nil {
		return err
	}
	ec.Dest = root
	return nil
}

func parentOf(body string) string {
	if i := strings.LastIndex(body, "/"); i > 0 {
		return body[:i]
	}
	return "/"
}

// call-stack plumbing, diagnostics only

func (ec *ExecutionContext) pushFrame(step interface{}) {
	*ec.stack = append(*ec.stack, step)
}

func (ec *ExecutionContext) popFrame() {
	if n := len(*ec.stack); n > 0 {
		*ec.stack = (*ec.stack)[:n-1]
	}
}

func (ec *ExecutionContext) stackDepth() int { return len(*ec.stack) }

// truncateStack discards frames left by a recovered error so that a
// later snapshot only shows steps still in flight.
func (ec *ExecutionContext) truncateStack(depth int) {
	if depth >= 0 && depth <= len(*ec.stack) {
		*ec.stack = (*ec.stack)[:depth]
	}
}

func (ec *ExecutionContext) stackSnapshot() []interface{} {
	out := make([]interface{}, len(*ec.stack))
	for i, f := range *ec.stack {
		out[i] = DeepCopy(f)
	}
	return out
}
