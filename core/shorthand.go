package core

import (
	"sort"
	"strings"
)

// Shorthand expansion stages.  Before dispatch, each step list passes
// through the stage registry, which rewrites terse forms into
// canonical op mappings.  Expansion is purely structural; no values
// are resolved here.

// isCanonical reports whether a mapping already names an op or a
// reserved key, in which case the assignment stage leaves it alone.
func isCanonical(m map[string]interface{}) bool {
	if _, ok := m["op"]; ok {
		return true
	}
	for k := range m {
		if strings.HasPrefix(k, "$") || strings.HasPrefix(k, "~") {
			return true
		}
	}
	return false
}

func hasStepKey(steps []interface{}, key string) bool {
	for _, step := range steps {
		if m, is := step.(map[string]interface{}); is {
			if _, ok := m[key]; ok {
				return true
			}
		}
	}
	return false
}

type stepKeyMatcher struct{ key string }

func (m stepKeyMatcher) Matches(steps []interface{}, ec *ExecutionContext) bool {
	return hasStepKey(steps, m.key)
}

type assignMatcher struct{}

func (assignMatcher) Matches(steps []interface{}, ec *ExecutionContext) bool {
	for _, step := range steps {
		if m, is := step.(map[string]interface{}); is && !isCanonical(m) {
			return true
		}
	}
	return false
}

// assertShorthand expands {"~assert": ...} forms.
//
//	{"~assert": {"/path": expected}}  ->  assert path/equals per entry
//	{"~assert": ["/a", "/b"]}         ->  assert existence per entry
//	{"~assert": "/a"}                 ->  assert existence
type assertShorthand struct{}

func (assertShorthand) Apply(steps []interface{}, ec *ExecutionContext) ([]interface{}, error) {
	out := make([]interface{}, 0, len(steps))
	for _, step := range steps {
		m, is := step.(map[string]interface{})
		if !is {
			out = append(out, step)
			continue
		}
		arg, ok := m["~assert"]
		if !ok {
			out = append(out, step)
			continue
		}
		switch a := arg.(type) {
		case string:
			out = append(out, map[string]interface{}{"op": "assert", "path": a})
		case []interface{}:
			for _, p := range a {
				ps, is := p.(string)
				if !is {
					return nil, &MalformedStepError{Reason: "~assert list entries must be pointers", Step: step}
				}
				out = append(out, map[string]interface{}{"op": "assert", "path": ps})
			}
		case map[string]interface{}:
			for _, path := range sortedKeys(a) {
				out = append(out, map[string]interface{}{
					"op":     "assert",
					"path":   path,
					"equals": a[path],
				})
			}
		default:
			return nil, &MalformedStepError{Reason: "~assert takes a pointer, list, or mapping", Step: step}
		}
	}
	return out, nil
}

// deleteShorthand expands {"~delete": ...} forms.
//
//	{"~delete": "/a"}          ->  one delete
//	{"~delete": ["/a", "/b"]}  ->  one delete per entry
type deleteShorthand struct{}

func (deleteShorthand) Apply(steps []interface{}, ec *ExecutionContext) ([]interface{}, error) {
	out := make([]interface{}, 0, len(steps))
	for _, step := range steps {
		m, is := step.(map[string]interface{})
		if !is {
			out = append(out, step)
			continue
		}
		arg, ok := m["~delete"]
		if !ok {
			out = append(out, step)
			continue
		}
		switch a := arg.(type) {
		case string:
			out = append(out, map[string]interface{}{"op": "delete", "path": a})
		case []interface{}:
			for _, p := range a {
				ps, is := p.(string)
				if !is {
					return nil, &MalformedStepError{Reason: "~delete list entries must be pointers", Step: step}
				}
				out = append(out, map[string]interface{}{"op": "delete", "path": ps})
			}
		default:
			return nil, &MalformedStepError{Reason: "~delete takes a pointer or a list of pointers", Step: step}
		}
	}
	return out, nil
}

// assignShorthand is the fallback stage: a plain mapping with neither
// an op nor a reserved key becomes one set or copy per entry.
//
//	{"/dst": 42}        ->  set
//	{"/dst": "/src"}    ->  copy (missing source is skipped)
//	{"/list[]": v}      ->  set with an append path
//
// An empty mapping expands to nothing.
type assignShorthand struct{}

func (assignShorthand) Apply(steps []interface{}, ec *ExecutionContext) ([]interface{}, error) {
	out := make([]interface{}, 0, len(steps))
	for _, step := range steps {
		m, is := step.(map[string]interface{})
		if !is || isCanonical(m) {
			out = append(out, step)
			continue
		}
		for _, path := range sortedKeys(m) {
			value := m[path]
			target := path
			if strings.HasSuffix(target, "[]") {
				target = strings.TrimSuffix(target, "[]") + "/-"
			}
			if from, is := value.(string); is && strings.HasPrefix(from, "/") {
				out = append(out, map[string]interface{}{
					"op":             "copy",
					"from":           from,
					"path":           target,
					"ignore_missing": true,
				})
				continue
			}
			out = append(out, map[string]interface{}{
				"op":    "set",
				"path":  target,
				"value": value,
			})
		}
	}
	return out, nil
}

// BuildShorthandStages wires the standard expansion stages into a
// registry, highest priority first.
func BuildShorthandStages() *StageRegistry {
	stages := NewStageRegistry()
	stages.Register(&StageNode{
		Name:      "assert-shorthand",
		Priority:  100,
		Matcher:   stepKeyMatcher{key: "~assert"},
		Processor: assertShorthand{},
	})
	stages.Register(&StageNode{
		Name:      "delete-shorthand",
		Priority:  50,
		Matcher:   stepKeyMatcher{key: "~delete"},
		Processor: deleteShorthand{},
	})
	stages.Register(&StageNode{
		Name:      "assignment",
		Priority:  0,
		Matcher:   assignMatcher{},
		Processor: assignShorthand{},
	})
	return stages
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
