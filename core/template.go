package core

import (
	"context"
	"strings"
)

// Template substitution: ${...} spans inside strings.  A span is a
// pointer lookup, a named cast (${int:...}), an external query
// (${?expr}), or a nested template.  $${ and $$ are escapes; they
// survive substitution verbatim and are stripped once, after the
// stabilization loop, by the template unescape rule.

func hasUnescapedPlaceholder(s string) bool {
	i := 0
	for {
		j := strings.Index(s[i:], "${")
		if j < 0 {
			return false
		}
		j += i
		if j > 0 && s[j-1] == '$' {
			i = j + 2
			continue
		}
		return true
	}
}

// TemplateMatcher fires on strings with at least one unescaped span.
type TemplateMatcher struct{}

func (TemplateMatcher) Matches(step interface{}) bool {
	s, is := step.(string)
	return is && hasUnescapedPlaceholder(s)
}

// templateHandler expands spans in one string.  When the whole
// string is a single span the resolved value keeps its native type;
// otherwise every span is rendered into the surrounding text.
type templateHandler struct{}

func (templateHandler) Execute(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	s, is := step.(string)
	if !is {
		return nil
	}
	if isSingleExpression(s) {
		v, err := resolveExpr(ctx, s[2:len(s)-1], ec)
		if err != nil {
			return err
		}
		ec.Dest = v
		return nil
	}
	out, err := flatSubstitute(ctx, s, ec)
	if err != nil {
		return err
	}
	ec.Dest = out
	return nil
}

// isSingleExpression reports whether s is exactly one ${...} span.
func isSingleExpression(s string) bool {
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return false
	}
	depth := 0
	for i := 2; i < len(s); i++ {
		if s[i-1] == '$' && s[i] == '{' {
			depth++
		} else if s[i] == '}' {
			if depth == 0 {
				return i == len(s)-1
			}
			depth--
		}
	}
	return false
}

// flatSubstitute expands every span in tmpl, tracking brace depth so
// spans may nest.  Always returns a string.
func flatSubstitute(ctx context.Context, tmpl string, ec *ExecutionContext) (string, error) {
	var out strings.Builder
	i := 0

	for i < len(tmpl) {
		if strings.HasPrefix(tmpl[i:], "$${") {
			out.WriteString("$${")
			i += 3
			continue
		}
		if strings.HasPrefix(tmpl[i:], "$$") {
			out.WriteString("$$")
			i += 2
			continue
		}

		if strings.HasPrefix(tmpl[i:], "${") {
			depth := 0
			j := i + 2
			closed := false
			for j < len(tmpl) {
				ch := tmpl[j]
				if ch == '{' && tmpl[j-1] == '$' {
					depth++
				} else if ch == '}' {
					if depth == 0 {
						val, err := resolveExpr(ctx, tmpl[i+2:j], ec)
						if err != nil {
							return "", err
						}
						out.WriteString(Stringify(val))
						i = j + 1
						closed = true
						break
					}
					depth--
				}
				j++
			}
			if !closed {
				// Unclosed span: emit the "$" literally and retry
				// from the "{".
				out.WriteByte(tmpl[i])
				i++
			}
			continue
		}

		out.WriteByte(tmpl[i])
		i++
	}
	return out.String(), nil
}

// resolveExpr dispatches one extracted span body:
//
//  1. ${type:...}  cast applied to the recursively resolved inner
//  2. ${?expr}     query evaluated against the four namespaces
//  3. nested spans resolved by another flat pass
//  4. otherwise a pointer; a failed lookup yields null
func resolveExpr(ctx context.Context, expr string, ec *ExecutionContext) (interface{}, error) {
	expr = strings.TrimSpace(expr)

	for name, fn := range ec.Engine.Casters {
		tag := name + ":"
		if strings.HasPrefix(expr, tag) {
			inner, err := resolveExpr(ctx, expr[len(tag):], ec)
			if err != nil {
				return nil, err
			}
			return fn(inner)
		}
	}

	if strings.HasPrefix(expr, "?") {
		if ec.Engine.Query == nil {
			return nil, &MalformedStepError{Reason: "no query evaluator configured", Step: expr}
		}
		query, err := flatSubstitute(ctx, strings.TrimLeft(expr[1:], " \t"), ec)
		if err != nil {
			return nil, err
		}
		env := map[string]interface{}{
			"source":  ec.Source,
			"dest":    ec.effectiveDest(),
			"args":    ec.Args,
			"scratch": ec.Scratch,
		}
		return ec.Engine.Query.Eval(ctx, query, env)
	}

	if hasUnescapedPlaceholder(expr) {
		return flatSubstitute(ctx, expr, ec)
	}

	ptr := expr
	if !strings.HasPrefix(ptr, "@:") && !strings.HasPrefix(ptr, "_:") &&
		!strings.HasPrefix(ptr, "&:") && !strings.HasPrefix(ptr, "!:") {
		ptr = "/" + strings.TrimLeft(ptr, "/")
	}
	v, err := ec.Lookup(ptr)
	if err != nil {
		return nil, nil
	}
	return v, nil
}

// TemplateUnescape strips the escape layer throughout a value tree:
// $${ becomes ${ and $$ becomes $.  Keys are unescaped too.
func TemplateUnescape(v interface{}) interface{} {
	switch x := v.(type) {
	case string:
		x = strings.ReplaceAll(x, "$${", "${")
		return strings.ReplaceAll(x, "$$", "$")
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, item := range x {
			out[i] = TemplateUnescape(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, val := range x {
			nk, _ := TemplateUnescape(k).(string)
			out[nk] = TemplateUnescape(val)
		}
		return out
	}
	return v
}
