package core

import "fmt"

// Error kind names, as seen by except blocks via the read-only
// scratch key "_error_type".
const (
	KindMalformedStep = "MalformedSpec"
	KindResolution    = "ResolutionFailure"
	KindLimit         = "LimitExceeded"
	KindRaised        = "UserRaised"
	KindTypeMismatch  = "TypeMismatch"
)

// Kinder is implemented by every error the interpreter produces.
type Kinder interface {
	Kind() string
}

// ErrKind returns the interpreter kind of err, or "Error" for a
// foreign error.
func ErrKind(err error) string {
	if k, is := err.(Kinder); is {
		return k.Kind()
	}
	if se, is := err.(*StackError); is {
		return ErrKind(se.Err)
	}
	return "Error"
}

// MalformedStepError reports a step or construct with the wrong
// shape.  Not recoverable by retrying; the spec itself is broken.
type MalformedStepError struct {
	Reason string
	Step   interface{}
}

func (e *MalformedStepError) Error() string {
	if e.Step == nil {
		return "malformed step: " + e.Reason
	}
	return fmt.Sprintf("malformed step: %s: %s", e.Reason, JSONish(e.Step))
}

func (e *MalformedStepError) Kind() string { return KindMalformedStep }

// ResolutionError reports a pointer that could not be resolved and no
// default or ignore_missing applied.
type ResolutionError struct {
	Pointer string
	Reason  string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %s", e.Pointer, e.Reason)
}

func (e *ResolutionError) Kind() string { return KindResolution }

// LimitError reports a resource limiter breach.  Always fatal; the
// engine never clamps.
type LimitError struct {
	Limit   string
	Message string
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s: %s", e.Limit, e.Message)
}

func (e *LimitError) Kind() string { return KindLimit }

// RaisedError carries a value raised by $raise or a failed assert.
type RaisedError struct {
	Message string
}

func (e *RaisedError) Error() string { return e.Message }

func (e *RaisedError) Kind() string { return KindRaised }

// TypeMismatchError reports an operator or cast applied to an
// incompatible operand.
type TypeMismatchError struct {
	Op     string
	Reason string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *TypeMismatchError) Kind() string { return KindTypeMismatch }

// StackError wraps an error escaping Engine.Apply with an ordered
// call-stack snapshot, outermost step first.  Signals never get one.
type StackError struct {
	Err   error
	Stack []interface{}
}

func (e *StackError) Error() string { return e.Err.Error() }

func (e *StackError) Unwrap() error { return e.Err }

// JSONish renders a value for error messages without failing.
func JSONish(x interface{}) string {
	s := Stringify(x)
	if s == "" {
		s = fmt.Sprintf("%v", x)
	}
	return s
}
