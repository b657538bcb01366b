package core

import (
	"context"
	"log"
	"strings"
	"unicode"
)

// Config collects the knobs for NewEngine.  Every field is optional;
// zero values fall back to the defaults.
type Config struct {
	Limits   *Limits
	Query    QueryEvaluator
	Patterns PatternMatcher
	Casters  map[string]CastFunc

	// Specials adds or overrides construct resolvers.  Overriding a
	// built-in key replaces its resolver; new keys are dispatched
	// after the built-ins.
	Specials map[string]SpecialFn

	Logger *log.Logger
	Debug  bool
}

// constructOrder fixes dispatch order for construct keys sharing one
// node, so a mapping carrying several is handled deterministically.
var constructOrder = []string{
	"$ref", "$eval", "$cast",
	"$and", "$or", "$not",
	"$gt", "$gte", "$lt", "$lte", "$eq", "$ne", "$in", "$exists",
	"$add", "$sub", "$mul", "$div", "$pow", "$mod",
	"$str_split", "$str_join", "$str_slice",
	"$str_upper", "$str_lower", "$str_title", "$str_capitalize",
	"$str_strip", "$str_lstrip", "$str_rstrip",
	"$str_replace",
	"$str_contains", "$str_startswith", "$str_endswith",
	"$regex_match", "$regex_search", "$regex_findall",
	"$regex_replace", "$regex_groups",
}

func builtinSpecials() map[string]SpecialFn {
	return map[string]SpecialFn{
		"$ref":  refConstruct,
		"$eval": evalConstruct,
		"$cast": castConstruct,

		"$and": andConstruct,
		"$or":  orConstruct,
		"$not": notConstruct,

		"$gt":     orderingConstruct("$gt", func(c int) bool { return c > 0 }),
		"$gte":    orderingConstruct("$gte", func(c int) bool { return c >= 0 }),
		"$lt":     orderingConstruct("$lt", func(c int) bool { return c < 0 }),
		"$lte":    orderingConstruct("$lte", func(c int) bool { return c <= 0 }),
		"$eq":     eqConstruct,
		"$ne":     neConstruct,
		"$in":     inConstruct,
		"$exists": existsConstruct,

		"$add": addConstruct,
		"$sub": subConstruct,
		"$mul": mulConstruct,
		"$div": divConstruct,
		"$pow": powConstruct,
		"$mod": modConstruct,

		"$str_split": strSplitConstruct,
		"$str_join":  strJoinConstruct,
		"$str_slice": strSliceConstruct,

		"$str_upper":      strCaseConstruct("$str_upper", strings.ToUpper),
		"$str_lower":      strCaseConstruct("$str_lower", strings.ToLower),
		"$str_title":      strCaseConstruct("$str_title", titleCase),
		"$str_capitalize": strCaseConstruct("$str_capitalize", capitalize),

		"$str_strip":  strStripConstruct("$str_strip", strings.Trim),
		"$str_lstrip": strStripConstruct("$str_lstrip", strings.TrimLeft),
		"$str_rstrip": strStripConstruct("$str_rstrip", strings.TrimRight),

		"$str_replace": strReplaceConstruct,

		"$str_contains":   strPredicateConstruct("$str_contains", "substring", strings.Contains),
		"$str_startswith": strPredicateConstruct("$str_startswith", "prefix", strings.HasPrefix),
		"$str_endswith":   strPredicateConstruct("$str_endswith", "suffix", strings.HasSuffix),

		"$regex_match":   regexMatchConstruct,
		"$regex_search":  regexSearchConstruct,
		"$regex_findall": regexFindAllConstruct,
		"$regex_replace": regexReplaceConstruct,
		"$regex_groups":  regexGroupsConstruct,
	}
}

func titleCase(s string) string {
	var out strings.Builder
	boundary := true
	for _, r := range s {
		if !unicode.IsLetter(r) {
			boundary = true
			out.WriteRune(r)
			continue
		}
		if boundary {
			out.WriteRune(unicode.ToUpper(r))
		} else {
			out.WriteRune(unicode.ToLower(r))
		}
		boundary = false
	}
	return out.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return string(unicode.ToUpper(r[0])) + strings.ToLower(string(r[1:]))
}

// NewEngine wires the default interpreter: the canonical op handlers,
// the shorthand stages, the construct table, template substitution,
// and container descent.
func NewEngine(cfg Config) *Engine {
	limits := DefaultLimits
	if cfg.Limits != nil {
		limits = *cfg.Limits
	}
	casters := DefaultCasters()
	for name, fn := range cfg.Casters {
		casters[name] = fn
	}

	e := &Engine{
		Limits:   limits,
		Query:    cfg.Query,
		Patterns: cfg.Patterns,
		Casters:  casters,
		Logger:   cfg.Logger,
		Debug:    cfg.Debug,
	}

	specials := builtinSpecials()
	order := constructOrder
	for name, fn := range cfg.Specials {
		if _, builtin := specials[name]; !builtin {
			order = append(order, name)
		}
		specials[name] = fn
	}
	constructs := newConstructHandler(specials, order)

	// The container matcher must exclude every key the higher-priority
	// value nodes claim, or a construct mapping would also descend.
	reserved := constructs.keys()
	reserved["$func"] = true
	reserved["$raise"] = true

	// Auxiliary keys ride along with a reserved main key and never
	// dispatch on their own.
	known := map[string]bool{"$default": true, "$select": true}
	for k := range reserved {
		known[k] = true
	}

	value := NewRegistry()
	value.Register(&Node{
		Name:      "constructs",
		Priority:  10,
		Matcher:   AnyKeyMatcher{Keys: constructs.keys()},
		Handler:   constructs,
		Exclusive: true,
	})
	value.Register(&Node{
		Name:     "call",
		Priority: 9,
		Matcher:  KeyMatcher{Key: "$func"},
		Handler: HandlerFunc(func(ctx context.Context, step interface{}, ec *ExecutionContext) error {
			node, is := step.(map[string]interface{})
			if !is {
				return nil
			}
			result, err := callConstruct(ctx, node, ec)
			if err != nil {
				return err
			}
			ec.Dest = result
			return nil
		}),
		Exclusive: true,
	})
	value.Register(&Node{
		Name:     "raise",
		Priority: 9,
		Matcher:  KeyMatcher{Key: "$raise"},
		Handler: HandlerFunc(func(ctx context.Context, step interface{}, ec *ExecutionContext) error {
			node, _ := step.(map[string]interface{})
			_, err := raiseConstruct(ctx, node, ec)
			return err
		}),
		Exclusive: true,
	})
	value.Register(&Node{
		Name:      "template",
		Priority:  8,
		Matcher:   TemplateMatcher{},
		Handler:   templateHandler{},
		Exclusive: true,
	})
	value.Register(&Node{
		Name:      "unknown-special",
		Priority:  6,
		Matcher:   UnknownSpecialMatcher{Known: known},
		Handler: HandlerFunc(func(ctx context.Context, step interface{}, ec *ExecutionContext) error {
			node, _ := step.(map[string]interface{})
			for _, k := range sortedKeys(node) {
				if strings.HasPrefix(k, "$") && !strings.HasPrefix(k, "$$") && !known[k] {
					return &MalformedStepError{Reason: "unrecognized construct key " + k, Step: step}
				}
			}
			return nil
		}),
		Exclusive: true,
	})
	value.Register(&Node{
		Name:      "container",
		Priority:  5,
		Matcher:   ContainerMatcher{SpecialKeys: reserved},
		Handler:   containerHandler{},
		Exclusive: true,
	})
	value.Register(&Node{
		Name:      "identity",
		Priority:  -999,
		Matcher:   AlwaysMatcher{},
		Handler:   identityHandler{},
		Exclusive: true,
	})
	e.Value = &Pipeline{Registry: value}

	ops := NewRegistry()
	for op, h := range map[string]HandlerFunc{
		"set":      setStep,
		"copy":     copyStep,
		"delete":   deleteStep,
		"update":   updateStep,
		"distinct": distinctStep,
		"assert":   assertStep,
		"patch":    patchStep,
		"foreach":  foreachStep,
		"while":    whileStep,
		"if":       ifStep,
		"exec":     execStep,
		"try":      tryStep,
	} {
		ops.Register(&Node{
			Name:      op,
			Matcher:   OpMatcher{Op: op},
			Handler:   h,
			Exclusive: true,
		})
	}

	main := NewRegistry()
	main.RegisterGroup("ops", ops, HasOpMatcher{}, 100,
		HandlerFunc(func(ctx context.Context, step interface{}, ec *ExecutionContext) error {
			s, _ := step.(map[string]interface{})
			return &MalformedStepError{Reason: "unknown op " + Stringify(s["op"]), Step: step}
		}))
	for key, h := range map[string]HandlerFunc{
		"$def":      defStep,
		"$func":     callStep,
		"$raise":    raiseStep,
		"$break":    breakStep,
		"$continue": continueStep,
		"$return":   returnStep,
	} {
		main.Register(&Node{
			Name:      key,
			Priority:  50,
			Matcher:   KeyMatcher{Key: key},
			Handler:   h,
			Exclusive: true,
		})
	}
	e.Main = &Pipeline{
		Registry: main,
		Stages:   BuildShorthandStages(),
		Counted:  true,
	}

	e.RegisterUnescape(UnescapeRule{
		Name:     "template",
		Priority: 0,
		Unescape: TemplateUnescape,
	})
	return e
}

// containerHandler descends into sequences and plain mappings,
// stabilizing each element.  Keys are substituted too; two keys
// rendering to the same string is an error rather than a silent
// overwrite.
type containerHandler struct{}

func (containerHandler) Execute(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	switch node := step.(type) {
	case []interface{}:
		out := make([]interface{}, len(node))
		for i, item := range node {
			v, err := ec.Engine.processValue(ctx, item, ec, false)
			if err != nil {
				return err
			}
			out[i] = v
		}
		ec.Dest = out
		return nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(node))
		for _, k := range sortedKeys(node) {
			key := k
			if hasUnescapedPlaceholder(k) {
				var err error
				if key, err = flatSubstitute(ctx, k, ec); err != nil {
					return err
				}
			}
			if _, dup := out[key]; dup {
				return &MalformedStepError{
					Reason: "duplicate key " + key + " after substitution",
					Step:   step,
				}
			}
			v, err := ec.Engine.processValue(ctx, node[k], ec, false)
			if err != nil {
				return err
			}
			out[key] = v
		}
		ec.Dest = out
		return nil
	}
	return nil
}

// identityHandler terminates the value dispatch chain for scalars.
type identityHandler struct{}

func (identityHandler) Execute(ctx context.Context, step interface{}, ec *ExecutionContext) error {
	ec.Dest = step
	return nil
}
