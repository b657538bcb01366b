package rejig

import (
	"context"

	"github.com/rejig/rejig/core"
	"github.com/rejig/rejig/pattern"
	"github.com/rejig/rejig/query"
)

// Options tunes a fully-assembled engine.  The zero value (or nil)
// gives the defaults.
type Options struct {
	// Limits overrides the default resource ceilings.
	Limits *core.Limits

	// Library is ECMAScript made available to every ${?...} query
	// expression.
	Library string

	// Specials adds custom construct resolvers.
	Specials map[string]core.SpecialFn

	Debug bool
}

// Engine is a ready-to-use interpreter with the standard query and
// pattern collaborators wired in.  Safe for concurrent Apply calls.
type Engine struct {
	core *core.Engine
}

// New assembles an engine from opts.
func New(opts *Options) *Engine {
	if opts == nil {
		opts = &Options{}
	}
	return &Engine{
		core: core.NewEngine(core.Config{
			Limits:   opts.Limits,
			Query:    &query.Evaluator{LibrarySource: opts.Library},
			Patterns: pattern.NewMatcher(),
			Specials: opts.Specials,
			Debug:    opts.Debug,
		}),
	}
}

// Apply interprets spec against source, starting from dest (nil for
// an empty document), and returns the finished destination.
func (e *Engine) Apply(ctx context.Context, spec, source, dest interface{}) (interface{}, error) {
	if dest == nil {
		dest = map[string]interface{}{}
	}
	return e.core.Apply(ctx, spec, source, dest)
}

// Core exposes the underlying interpreter for callers that need to
// register unescape rules or inspect configuration.
func (e *Engine) Core() *core.Engine { return e.core }
