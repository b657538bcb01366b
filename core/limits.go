package core

import "time"

// Limits is the immutable resource-limit configuration supplied at
// engine construction and inherited unchanged by every nested
// activation.  A breach is always a LimitError; values are never
// clamped.
type Limits struct {
	// MaxOperations bounds the total number of steps dispatched
	// through step pipelines in one Apply call.
	MaxOperations int

	// MaxValuePasses bounds the stabilization loop.  Hitting the
	// ceiling is not an error; the last computed value wins.
	MaxValuePasses int

	// MaxLoopIterations bounds one while loop.
	MaxLoopIterations int

	// MaxIterationItems bounds the item count of one foreach.
	MaxIterationItems int

	// MaxCallDepth bounds function call nesting.
	MaxCallDepth int

	// Operator-family bounds.
	PowMaxBase      float64
	PowMaxExponent  float64
	MulMaxOperand   float64
	MulMaxStringLen int
	AddMaxNumber    float64
	AddMaxStringLen int
	SubMaxNumber    float64
	SplitMaxResults int
	JoinMaxLen      int
	ReplaceMaxLen   int

	// Pattern matching.
	RegexTimeout time.Duration

	// RegexFlags is the set of allowed flag characters.
	RegexFlags string
}

// DefaultLimits are the ceilings used by NewEngine when the config
// leaves Limits nil.
var DefaultLimits = Limits{
	MaxOperations:     100000,
	MaxValuePasses:    50,
	MaxLoopIterations: 10000,
	MaxIterationItems: 100000,
	MaxCallDepth:      100,
	PowMaxBase:        1e6,
	PowMaxExponent:    1000,
	MulMaxOperand:     1e9,
	MulMaxStringLen:   1000000,
	AddMaxNumber:      1e15,
	AddMaxStringLen:   100000000,
	SubMaxNumber:      1e15,
	SplitMaxResults:   10000,
	JoinMaxLen:        1000000,
	ReplaceMaxLen:     1000000,
	RegexTimeout:      time.Second,
	RegexFlags:        "ims",
}
