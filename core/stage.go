package core

import "sort"

// StageMatcher gates a stage node.  A nil matcher fires always.
type StageMatcher interface {
	Matches(steps []interface{}, ec *ExecutionContext) bool
}

// StageProcessor rewrites a whole step list before dispatch.  Stages
// see only step shapes, never resolved values.
type StageProcessor interface {
	Apply(steps []interface{}, ec *ExecutionContext) ([]interface{}, error)
}

// StageNode is one entry in the stage tree.  Children run before the
// node's own processor; every matching node runs (run-all, no
// short-circuit).
type StageNode struct {
	Name      string
	Priority  int
	Matcher   StageMatcher
	Processor StageProcessor
	Children  *StageRegistry
}

// StageRegistry is a priority-ordered set of batch preprocessors.
type StageRegistry struct {
	nodes []*StageNode
}

func NewStageRegistry() *StageRegistry { return &StageRegistry{} }

func (r *StageRegistry) Register(n *StageNode) {
	r.nodes = append(r.nodes, n)
	sort.SliceStable(r.nodes, func(i, j int) bool {
		return r.nodes[i].Priority > r.nodes[j].Priority
	})
}

// RunAll feeds the step list through every matching node in
// descending priority order and returns the rewritten list.
func (r *StageRegistry) RunAll(steps []interface{}, ec *ExecutionContext) ([]interface{}, error) {
	var err error
	for _, n := range r.nodes {
		if n.Matcher != nil && !n.Matcher.Matches(steps, ec) {
			continue
		}
		if n.Children != nil {
			if steps, err = n.Children.RunAll(steps, ec); err != nil {
				return nil, err
			}
		}
		if n.Processor != nil {
			if steps, err = n.Processor.Apply(steps, ec); err != nil {
				return nil, err
			}
		}
	}
	return steps, nil
}
