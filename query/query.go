// Package query evaluates template query expressions with an embedded
// ECMAScript interpreter.  An expression sees the four document
// namespaces as globals (source, dest, args, scratch) plus a few
// helper functions, and its result is canonicalized back to plain
// JSON-representable data.
package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/dop251/goja"

	"github.com/rejig/rejig/core"
)

// Evaluator satisfies core.QueryEvaluator.  Each Eval runs in a fresh
// interpreter, so expressions cannot leak state into each other.
type Evaluator struct {
	// LibrarySource, if non-empty, is ECMAScript run before every
	// expression.  Use it to install shared utility functions.
	LibrarySource string
}

func NewEvaluator() *Evaluator { return &Evaluator{} }

// Interrupted is returned when the calling context is canceled while
// an expression runs.
type Interrupted struct {
	Expr string
}

func (e *Interrupted) Error() string {
	return fmt.Sprintf("query interrupted: %s", e.Expr)
}

// Eval compiles and runs one expression against env.  The expression
// is evaluated as a single ECMAScript expression; its value is the
// result.
func (e *Evaluator) Eval(ctx context.Context, expr string, env map[string]interface{}) (interface{}, error) {
	vm := goja.New()

	for name, val := range env {
		if err := vm.Set(name, val); err != nil {
			return nil, err
		}
	}
	if err := installHelpers(vm); err != nil {
		return nil, err
	}
	if e.LibrarySource != "" {
		if _, err := vm.RunString(e.LibrarySource); err != nil {
			return nil, fmt.Errorf("query library: %w", err)
		}
	}

	// A goroutine watches for context cancellation and interrupts the
	// interpreter, which otherwise runs without preemption.
	interrupted := false
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			interrupted = true
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()
	defer close(done)

	src := "(function() { return (" + expr + "\n); }())"
	v, err := vm.RunString(src)
	if err != nil {
		if interrupted {
			return nil, &Interrupted{Expr: expr}
		}
		if _, is := err.(*goja.InterruptedError); is {
			return nil, &Interrupted{Expr: expr}
		}
		return nil, fmt.Errorf("query %q: %w", expr, err)
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	return core.Canonicalize(v.Export())
}

// installHelpers defines the helper functions expressions may call.
func installHelpers(vm *goja.Runtime) error {
	helpers := map[string]interface{}{
		"len": func(x interface{}) int {
			switch v := x.(type) {
			case string:
				return len([]rune(v))
			case []interface{}:
				return len(v)
			case map[string]interface{}:
				return len(v)
			}
			return 0
		},
		"keys": func(m map[string]interface{}) []string {
			out := make([]string, 0, len(m))
			for k := range m {
				out = append(out, k)
			}
			sort.Strings(out)
			return out
		},
		"has": func(m map[string]interface{}, k string) bool {
			_, ok := m[k]
			return ok
		},
		"merge": func(ms ...map[string]interface{}) map[string]interface{} {
			out := map[string]interface{}{}
			for _, m := range ms {
				for k, v := range m {
					out[k] = v
				}
			}
			return out
		},
	}
	for name, fn := range helpers {
		if err := vm.Set(name, fn); err != nil {
			return err
		}
	}
	return nil
}
