package core

import (
	"context"
	"sort"
	"strings"
)

// Matcher decides whether a step belongs to a registry node.
type Matcher interface {
	Matches(step interface{}) bool
}

// Handler executes one step against the execution context, mutating
// ec.Dest in place.  Value-pipeline handlers replace ec.Dest with the
// resolved value.
type Handler interface {
	Execute(ctx context.Context, step interface{}, ec *ExecutionContext) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, step interface{}, ec *ExecutionContext) error

func (f HandlerFunc) Execute(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	return f(ctx, step, ec)
}

// Node is one entry in the dispatch tree.
//
//	Handler, no Children   leaf action
//	no Handler, Children   group (no fallback)
//	Handler and Children   group with fallback handler
//
// Exclusive stops resolution at this node once it yields a handler;
// with Exclusive false, lower-priority siblings are still consulted.
// The fallback rule: a parent's Handler is only selected when its
// Children resolve to nothing.
type Node struct {
	Name      string
	Priority  int
	Matcher   Matcher
	Handler   Handler
	Children  *Registry
	Exclusive bool
}

// Registry is one level of the hierarchical dispatch tree.  Resolve
// walks nodes by descending priority and selects handlers with
// first-match semantics; RunAll ignores exclusivity and executes
// every match.
type Registry struct {
	nodes []*Node
}

func NewRegistry() *Registry { return &Registry{} }

// Register adds a node to this level, keeping priority order.
func (r *Registry) Register(n *Node) {
	r.nodes = append(r.nodes, n)
	sort.SliceStable(r.nodes, func(i, j int) bool {
		return r.nodes[i].Priority > r.nodes[j].Priority
	})
}

// RegisterGroup mounts a sub-registry under a matcher.
func (r *Registry) RegisterGroup(name string, children *Registry, matcher Matcher, priority int, fallback Handler) {
	r.Register(&Node{
		Name:      name,
		Priority:  priority,
		Matcher:   matcher,
		Handler:   fallback,
		Children:  children,
		Exclusive: true,
	})
}

// Resolve selects the handlers for step, in order.  An empty result
// means no node claimed the step.
func (r *Registry) Resolve(step interface{}) []Handler {
	var out []Handler
	for _, n := range r.nodes {
		if !n.Matcher.Matches(step) {
			continue
		}
		resolved := false
		if n.Children != nil {
			if sub := n.Children.Resolve(step); len(sub) > 0 {
				out = append(out, sub...)
				resolved = true
			}
		}
		if !resolved && n.Handler != nil {
			out = append(out, n.Handler)
		}
		if n.Exclusive && len(out) > 0 {
			break
		}
	}
	return out
}

// RunAll executes every matching handler in priority order, children
// before the node's own handler.
func (r *Registry) RunAll(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	for _, n := range r.nodes {
		if !n.Matcher.Matches(step) {
			continue
		}
		if n.Children != nil {
			if err := n.Children.RunAll(ctx, step, ec); err != nil {
				return err
			}
		}
		if n.Handler != nil {
			if err := n.Handler.Execute(ctx, step, ec); err != nil {
				return err
			}
		}
	}
	return nil
}

// Nodes returns the nodes in dispatch order.
func (r *Registry) Nodes() []*Node {
	out := make([]*Node, len(r.nodes))
	copy(out, r.nodes)
	return out
}

// common matchers

// OpMatcher matches canonical steps by their "op" discriminator.
type OpMatcher struct{ Op string }

func (m OpMatcher) Matches(step interface{}) bool {
	s, is := step.(map[string]interface{})
	if !is {
		return false
	}
	op, is := s["op"].(string)
	return is && op == m.Op
}

// KeyMatcher matches mappings carrying a given key, e.g. "$def".
type KeyMatcher struct{ Key string }

func (m KeyMatcher) Matches(step interface{}) bool {
	s, is := step.(map[string]interface{})
	if !is {
		return false
	}
	_, ok := s[m.Key]
	return ok
}

// AnyKeyMatcher matches mappings carrying at least one of a set of
// keys.
type AnyKeyMatcher struct{ Keys map[string]bool }

func (m AnyKeyMatcher) Matches(step interface{}) bool {
	s, is := step.(map[string]interface{})
	if !is {
		return false
	}
	for k := range s {
		if m.Keys[k] {
			return true
		}
	}
	return false
}

// AlwaysMatcher matches everything.
type AlwaysMatcher struct{}

func (AlwaysMatcher) Matches(interface{}) bool { return true }

// HasOpMatcher matches any mapping with an "op" key; used to mount
// the canonical-op sub-registry as a group.
type HasOpMatcher struct{}

func (HasOpMatcher) Matches(step interface{}) bool {
	s, is := step.(map[string]interface{})
	if !is {
		return false
	}
	_, ok := s["op"]
	return ok
}

// UnknownSpecialMatcher matches mappings carrying a $-prefixed key
// outside a known set.  Mounted between the construct node and the
// container node, it turns a typo'd construct key into an error
// instead of a silent descent.  Escaped keys ($$...) pass through.
type UnknownSpecialMatcher struct{ Known map[string]bool }

func (m UnknownSpecialMatcher) Matches(step interface{}) bool {
	s, is := step.(map[string]interface{})
	if !is {
		return false
	}
	for k := range s {
		if strings.HasPrefix(k, "$") && !strings.HasPrefix(k, "$$") && !m.Known[k] {
			return true
		}
	}
	return false
}

// ContainerMatcher matches sequences, and mappings that carry no
// construct key.  Must be built with the same key set as the
// construct matcher or the two overlap.
type ContainerMatcher struct{ SpecialKeys map[string]bool }

func (m ContainerMatcher) Matches(step interface{}) bool {
	switch s := step.(type) {
	case []interface{}:
		return true
	case map[string]interface{}:
		for k := range s {
			if m.SpecialKeys[k] {
				return false
			}
		}
		return true
	}
	return false
}
