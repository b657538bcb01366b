package core

import (
	"regexp"
	"strconv"
	"strings"
)

// Space selects which of the four context roots a pointer addresses.
type Space int

const (
	SpaceSource Space = iota
	SpaceDest
	SpaceArgs
	SpaceScratch
)

// Pointer prefixes:
//
//	/path  or  _:/path   source (immutable)
//	@:/path              destination under construction
//	&:/path              read-only scratch (args, loop vars, error info)
//	!:/path              read-write scratch
//
// SplitPointer returns the addressed space and the normalized path
// body.  Writes and deletes always target the destination whatever
// the prefix says.
func SplitPointer(ptr string) (Space, string) {
	var space Space
	var body string
	switch {
	case strings.HasPrefix(ptr, "@:"):
		space, body = SpaceDest, ptr[2:]
	case strings.HasPrefix(ptr, "&:"):
		space, body = SpaceArgs, ptr[2:]
	case strings.HasPrefix(ptr, "!:"):
		space, body = SpaceScratch, ptr[2:]
	case strings.HasPrefix(ptr, "_:"):
		space, body = SpaceSource, ptr[2:]
	default:
		return SpaceSource, ptr
	}
	body = strings.TrimLeft(body, "/")
	return space, "/" + body
}

var sliceRE = regexp.MustCompile(`^(.+)\[(-?\d*):(-?\d*)\]$`)

func isRootRef(ptr string) bool {
	return ptr == "" || ptr == "/" || ptr == "."
}

// decodeToken expands the escape tokens ~0 (~), ~1 (/), ~2 ($), and
// ~3 (.).
func decodeToken(tok string) string {
	tok = strings.ReplaceAll(tok, "~0", "~")
	tok = strings.ReplaceAll(tok, "~1", "/")
	tok = strings.ReplaceAll(tok, "~2", "$")
	return strings.ReplaceAll(tok, "~3", ".")
}

func splitTokens(ptr string) []string {
	return strings.Split(strings.TrimLeft(ptr, "/"), "/")
}

// collapseParents resolves ".." tokens by popping the previous
// segment.  Navigating above root just stays at root, matching get.
func collapseParents(ptr string) []string {
	raw := splitTokens(ptr)
	parts := make([]string, 0, len(raw))
	for _, tok := range raw {
		if tok == ".." {
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
			continue
		}
		parts = append(parts, tok)
	}
	return parts
}

// Get reads the value at ptr inside root.  Root references work on
// scalars.  A trailing [a:b] slices sequences and strings with
// Python semantics.
func Get(ptr string, root interface{}) (interface{}, error) {
	if isRootRef(ptr) {
		return root, nil
	}
	if m := sliceRE.FindStringSubmatch(ptr); m != nil {
		base, err := getPointer(m[1], root)
		if err != nil {
			return nil, err
		}
		return sliceValue(ptr, base, m[2], m[3])
	}
	return getPointer(ptr, root)
}

func getPointer(ptr string, root interface{}) (interface{}, error) {
	if isRootRef(ptr) {
		return root, nil
	}

	type parent struct{ node interface{} }
	var parents []parent
	cur := root

	for _, raw := range splitTokens(ptr) {
		if raw == ".." {
			if len(parents) > 0 {
				cur = parents[len(parents)-1].node
				parents = parents[:len(parents)-1]
			} else {
				cur = root
			}
			continue
		}
		tok := decodeToken(raw)

		switch node := cur.(type) {
		case []interface{}:
			idx, err := strconv.Atoi(tok)
			if err != nil {
				return nil, &ResolutionError{Pointer: ptr, Reason: "non-numeric index " + strconv.Quote(tok)}
			}
			if idx < 0 {
				idx += len(node)
			}
			if idx < 0 || idx >= len(node) {
				return nil, &ResolutionError{Pointer: ptr, Reason: "index " + tok + " out of range"}
			}
			parents = append(parents, parent{cur})
			cur = node[idx]
		case map[string]interface{}:
			child, ok := node[tok]
			if !ok {
				return nil, &ResolutionError{Pointer: ptr, Reason: "missing key " + strconv.Quote(tok)}
			}
			parents = append(parents, parent{cur})
			cur = child
		default:
			return nil, &ResolutionError{Pointer: ptr, Reason: "segment " + strconv.Quote(tok) + " addresses a non-container"}
		}
	}
	return cur, nil
}

func sliceValue(ptr string, base interface{}, rawStart, rawEnd string) (interface{}, error) {
	switch v := base.(type) {
	case []interface{}:
		lo, hi := pySlice(len(v), rawStart, rawEnd)
		out := make([]interface{}, hi-lo)
		copy(out, v[lo:hi])
		return out, nil
	case string:
		runes := []rune(v)
		lo, hi := pySlice(len(runes), rawStart, rawEnd)
		return string(runes[lo:hi]), nil
	default:
		return nil, &TypeMismatchError{Op: "slice", Reason: ptr + " is not a sequence or string"}
	}
}

// pySlice clamps a Python-style [start:end] pair against length.
func pySlice(length int, rawStart, rawEnd string) (int, int) {
	lo, hi := 0, length
	if rawStart != "" {
		lo, _ = strconv.Atoi(rawStart)
		if lo < 0 {
			lo += length
		}
	}
	if rawEnd != "" {
		hi, _ = strconv.Atoi(rawEnd)
		if hi < 0 {
			hi += length
		}
	}
	if lo < 0 {
		lo = 0
	}
	if hi > length {
		hi = length
	}
	if lo > length {
		lo = length
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Exists reports whether ptr resolves inside root.
func Exists(ptr string, root interface{}) bool {
	_, err := Get(ptr, root)
	return err == nil
}

// Set writes value at ptr and returns the (possibly replaced) root.
// A root reference replaces the root entirely, scalars included.
// With create, missing intermediate mappings are materialized and
// sequence indices auto-grow with nulls.  The append token "-" as the
// last segment appends to the addressed sequence.
func Set(ptr string, root interface{}, value interface{}, create bool) (interface{}, error) {
	if isRootRef(ptr) {
		return value, nil
	}
	parts := collapseParents(ptr)
	if len(parts) == 0 {
		return value, nil
	}
	return setParts(ptr, root, parts, value, create)
}

func setParts(ptr string, cur interface{}, parts []string, value interface{}, create bool) (interface{}, error) {
	tok := decodeToken(parts[0])
	last := len(parts) == 1

	switch node := cur.(type) {
	case []interface{}:
		if tok == "-" {
			if !last {
				return nil, &ResolutionError{Pointer: ptr, Reason: "append token before the last segment"}
			}
			return append(node, value), nil
		}
		idx, err := strconv.Atoi(tok)
		if err != nil {
			return nil, &ResolutionError{Pointer: ptr, Reason: "non-numeric index " + strconv.Quote(tok)}
		}
		if idx < 0 {
			idx += len(node)
		}
		if idx < 0 {
			return nil, &ResolutionError{Pointer: ptr, Reason: "index " + tok + " out of range"}
		}
		if idx >= len(node) {
			if !create && !last {
				return nil, &ResolutionError{Pointer: ptr, Reason: "index " + tok + " out of range"}
			}
			for idx >= len(node) {
				if last {
					node = append(node, nil)
				} else {
					node = append(node, map[string]interface{}{})
				}
			}
		}
		if last {
			node[idx] = value
			return node, nil
		}
		child, err := setParts(ptr, node[idx], parts[1:], value, create)
		if err != nil {
			return nil, err
		}
		node[idx] = child
		return node, nil

	case map[string]interface{}:
		if last {
			if tok == "-" {
				return nil, &TypeMismatchError{Op: "set", Reason: ptr + ": parent is not a sequence (append)"}
			}
			node[tok] = value
			return node, nil
		}
		child, ok := node[tok]
		if !ok {
			if !create {
				return nil, &ResolutionError{Pointer: ptr, Reason: "missing key " + strconv.Quote(tok)}
			}
			child = map[string]interface{}{}
		}
		nc, err := setParts(ptr, child, parts[1:], value, create)
		if err != nil {
			return nil, err
		}
		node[tok] = nc
		return node, nil

	case nil:
		if !create {
			return nil, &ResolutionError{Pointer: ptr, Reason: "missing container"}
		}
		var fresh interface{}
		if tok == "-" {
			fresh = []interface{}{}
		} else {
			fresh = map[string]interface{}{}
		}
		return setParts(ptr, fresh, parts, value, create)

	default:
		return nil, &TypeMismatchError{Op: "set", Reason: ptr + ": segment " + strconv.Quote(tok) + " addresses a non-container"}
	}
}

// Delete removes the value at ptr and returns the (possibly
// replaced) root.  Sequences are spliced; mappings drop the key.
func Delete(ptr string, root interface{}) (interface{}, error) {
	if isRootRef(ptr) {
		return nil, &ResolutionError{Pointer: ptr, Reason: "cannot delete the root"}
	}
	parts := collapseParents(ptr)
	if len(parts) == 0 {
		return nil, &ResolutionError{Pointer: ptr, Reason: "cannot delete the root"}
	}
	return deleteParts(ptr, root, parts)
}

func deleteParts(ptr string, cur interface{}, parts []string) (interface{}, error) {
	tok := decodeToken(parts[0])
	last := len(parts) == 1

	switch node := cur.(type) {
	case []interface{}:
		idx, err := strconv.Atoi(tok)
		if err != nil {
			return nil, &ResolutionError{Pointer: ptr, Reason: "non-numeric index " + strconv.Quote(tok)}
		}
		if idx < 0 {
			idx += len(node)
		}
		if idx < 0 || idx >= len(node) {
			return nil, &ResolutionError{Pointer: ptr, Reason: "index " + tok + " out of range"}
		}
		if last {
			return append(node[:idx], node[idx+1:]...), nil
		}
		child, err := deleteParts(ptr, node[idx], parts[1:])
		if err != nil {
			return nil, err
		}
		node[idx] = child
		return node, nil

	case map[string]interface{}:
		child, ok := node[tok]
		if !ok {
			return nil, &ResolutionError{Pointer: ptr, Reason: "missing key " + strconv.Quote(tok)}
		}
		if last {
			delete(node, tok)
			return node, nil
		}
		nc, err := deleteParts(ptr, child, parts[1:])
		if err != nil {
			return nil, err
		}
		node[tok] = nc
		return node, nil

	default:
		return nil, &ResolutionError{Pointer: ptr, Reason: "segment " + strconv.Quote(tok) + " addresses a non-container"}
	}
}
