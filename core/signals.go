package core

// Control-flow signals travel the error return path but are not
// errors: loops and function calls intercept them, except blocks and
// on_failure never see them, and they never carry a stack snapshot.

type breakSignal struct{}

func (breakSignal) Error() string { return "$break used outside of a loop" }

type continueSignal struct{}

func (continueSignal) Error() string { return "$continue used outside of a loop" }

type returnSignal struct {
	value interface{}
}

func (*returnSignal) Error() string { return "$return used outside of a function" }

// stopSignal ends the stabilization loop after the resolution that
// raised it.  unescape=false for the opaque $raw wrapper, whose
// payload must come back byte-for-byte.
type stopSignal struct {
	value    interface{}
	unescape bool
}

func (*stopSignal) Error() string { return "stabilization stopped" }

// IsSignal reports whether err is a control-flow signal rather than
// an error.
func IsSignal(err error) bool {
	switch err.(type) {
	case breakSignal, continueSignal, *returnSignal, *stopSignal:
		return true
	}
	return false
}
