// Package rejig transforms JSON documents with data-driven specs.
//
// The interpreter is in package 'core'; the expression and pattern
// collaborators live in 'query' and 'pattern'.  Command-line tools
// are in 'cmd'.
//
// Rejig assembles the pieces into a ready-to-use engine:
//
//	result, err := rejig.New(nil).Apply(ctx, spec, source, nil)
package rejig
