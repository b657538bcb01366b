package core

import (
	"context"
	"errors"
	"log"
	"time"
)

// QueryEvaluator is the external query-expression collaborator used
// by ${?...} template spans.  The env carries the four namespaces:
// source, dest, args, scratch.
type QueryEvaluator interface {
	Eval(ctx context.Context, expr string, env map[string]interface{}) (interface{}, error)
}

// PatternMatcher is the external pattern-matching collaborator.
// flags is a (validated) subset of the engine's allowed flag set; a
// timeout breach must surface as an error whose Timeout() method
// reports true.
type PatternMatcher interface {
	Match(pattern, subject, flags string, timeout time.Duration) (bool, error)
	Search(pattern, subject, flags string, timeout time.Duration) (string, bool, error)
	FindAll(pattern, subject, flags string, timeout time.Duration) ([]string, error)
	Replace(pattern, subject, repl, flags string, count int, timeout time.Duration) (string, error)
	Groups(pattern, subject, flags string, timeout time.Duration) ([]interface{}, bool, error)
}

// CastFunc converts a resolved value for ${type:...} spans and the
// $cast construct.
type CastFunc func(x interface{}) (interface{}, error)

// SpecialFn resolves one construct node.  It receives the whole
// mapping so it can read auxiliary keys like $default.
type SpecialFn func(ctx context.Context, node map[string]interface{}, ec *ExecutionContext) (interface{}, error)

// UnescapeRule is applied once, after the stabilization loop, in
// descending priority order.
type UnescapeRule struct {
	Name     string
	Priority int
	Unescape func(v interface{}) interface{}
}

// Pipeline runs a step list: stages rewrite it, then each step is
// dispatched through the registry.  Counted marks step pipelines,
// whose dispatches are charged against the operation ceiling and
// recorded on the diagnostic call stack; the value pipeline is
// bounded per value by the pass ceiling instead.
type Pipeline struct {
	Registry *Registry
	Stages   *StageRegistry
	Counted  bool
}

// Run wraps a single step into a list and runs it.
func (p *Pipeline) Run(ctx context.Context, spec interface{}, ec *ExecutionContext) error {
	steps, isList := spec.([]interface{})
	if !isList {
		steps = []interface{}{spec}
	}
	return p.RunSteps(ctx, steps, ec)
}

// RunSteps runs an explicit step list.  The value pipeline calls this
// directly so that a sequence-typed value is not unpacked into
// multiple steps.
func (p *Pipeline) RunSteps(ctx context.Context, steps []interface{}, ec *ExecutionContext) error {
	var err error
	if p.Stages != nil {
		if steps, err = p.Stages.RunAll(steps, ec); err != nil {
			return err
		}
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.Counted {
			ec.count.ops++
			if ec.count.ops > ec.Limits.MaxOperations {
				return &LimitError{Limit: "max_operations", Message: "operation count exceeds maximum"}
			}
			ec.pushFrame(step)
		}

		handlers := p.Registry.Resolve(step)
		if len(handlers) == 0 {
			return &MalformedStepError{Reason: "no handler matches", Step: step}
		}
		for _, h := range handlers {
			if err := h.Execute(ctx, step, ec); err != nil {
				return err
			}
		}

		if p.Counted {
			ec.popFrame()
		}
	}
	return nil
}

// Engine owns the pipelines, the collaborators, and the value
// stabilization loop.  Build one with NewEngine; zero values are not
// usable.
type Engine struct {
	Main  *Pipeline
	Value *Pipeline

	Limits   Limits
	Query    QueryEvaluator
	Patterns PatternMatcher
	Casters  map[string]CastFunc

	Logger *log.Logger
	Debug  bool

	unescapes []UnescapeRule
}

func (e *Engine) logf(format string, args ...interface{}) {
	if e.Debug && e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}

// RegisterUnescape adds a post-stabilization unescape rule.
func (e *Engine) RegisterUnescape(r UnescapeRule) {
	i := 0
	for i < len(e.unescapes) && e.unescapes[i].Priority >= r.Priority {
		i++
	}
	e.unescapes = append(e.unescapes[:i], append([]UnescapeRule{r}, e.unescapes[i:]...)...)
}

// Apply interprets spec against source and builds a destination,
// starting from dest.  Every input is canonicalized; the result is
// independent of all of them.  An error escaping Apply carries an
// ordered call-stack snapshot (outermost step first); control-flow
// signals never do and surface as MalformedStep instead.
func (e *Engine) Apply(ctx context.Context, spec, source, dest interface{}) (interface{}, error) {
	spec, err := Canonicalize(spec)
	if err != nil {
		return nil, &MalformedStepError{Reason: "spec is not a plain data value: " + err.Error()}
	}
	if source, err = Canonicalize(source); err != nil {
		return nil, &MalformedStepError{Reason: "source is not a plain data value: " + err.Error()}
	}
	if dest, err = Canonicalize(dest); err != nil {
		return nil, &MalformedStepError{Reason: "dest is not a plain data value: " + err.Error()}
	}

	ec := newExecutionContext(e, source, dest)
	if err := e.Exec(ctx, spec, ec); err != nil {
		if IsSignal(err) {
			return nil, &MalformedStepError{Reason: err.Error()}
		}
		var se *StackError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, &StackError{Err: err, Stack: ec.stackSnapshot()}
	}
	return DeepCopy(ec.Dest), nil
}

// Exec runs a spec (one step or a list) through the main pipeline
// against an existing context.  Loop bodies, function bodies, and
// try sections all come through here, so shorthand stages apply to
// nested scripts too.
func (e *Engine) Exec(ctx context.Context, spec interface{}, ec *ExecutionContext) error {
	return e.Main.Run(ctx, spec, ec)
}

// ProcessValue stabilizes one embedded value: construct resolution,
// template substitution, and container descent repeat until the value
// stops changing or the pass ceiling is hit.  Hitting the ceiling is
// not an error; the last computed value is returned.
func (e *Engine) ProcessValue(ctx context.Context, value interface{}, ec *ExecutionContext) (interface{}, error) {
	return e.processValue(ctx, value, ec, true)
}

func (e *Engine) processValue(ctx context.Context, value interface{}, ec *ExecutionContext, unescape bool) (interface{}, error) {
	if e.Value == nil {
		return value, nil
	}

	current := value
	for pass := 0; pass < ec.Limits.MaxValuePasses; pass++ {
		vc := ec.valueContext(current)
		err := e.Value.RunSteps(ctx, []interface{}{current}, vc)
		if err != nil {
			var stop *stopSignal
			if errors.As(err, &stop) {
				current = stop.value
				if !stop.unescape {
					return current, nil
				}
				break
			}
			return nil, err
		}
		if Equal(vc.Dest, current) {
			break
		}
		current = vc.Dest
	}

	if unescape {
		for _, rule := range e.unescapes {
			current = rule.Unescape(current)
		}
	}
	return current, nil
}

// processString is a convenience for fields that must resolve to a
// string, e.g. paths.
func (e *Engine) processString(ctx context.Context, value interface{}, ec *ExecutionContext, field string) (string, error) {
	v, err := e.ProcessValue(ctx, value, ec)
	if err != nil {
		return "", err
	}
	s, is := v.(string)
	if !is {
		return "", &MalformedStepError{Reason: field + " must resolve to a string", Step: value}
	}
	return s, nil
}

func (e *Engine) processBool(ctx context.Context, step map[string]interface{}, key string, dflt bool, ec *ExecutionContext) (bool, error) {
	raw, ok := step[key]
	if !ok {
		return dflt, nil
	}
	v, err := e.ProcessValue(ctx, raw, ec)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}
