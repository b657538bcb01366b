// Package pattern wraps a backtracking regular-expression engine
// behind the matcher contract the interpreter consumes: pattern,
// subject, flags, and a hard timeout.  The flag characters follow the
// usual scripting conventions: i (ignore case), m (multi-line), and
// s (dot matches newline).
package pattern

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Matcher satisfies core.PatternMatcher.
type Matcher struct{}

func NewMatcher() *Matcher { return &Matcher{} }

// ErrTimeout reports a pattern that ran past its deadline.  Timeout()
// lets the interpreter map it to its limit taxonomy.
type ErrTimeout struct {
	Pattern string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("pattern %q timed out", e.Pattern)
}

func (e *ErrTimeout) Timeout() bool { return true }

func compile(pattern, flags string, timeout time.Duration) (*regexp2.Regexp, error) {
	var opts regexp2.RegexOptions
	for _, f := range flags {
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		default:
			return nil, fmt.Errorf("unsupported pattern flag %q", string(f))
		}
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}
	return re, nil
}

func mapErr(pattern string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "timeout") {
		return &ErrTimeout{Pattern: pattern}
	}
	return err
}

// Match reports whether the whole subject starts with a match of
// pattern, anchored at the beginning.
func (m *Matcher) Match(pattern, subject, flags string, timeout time.Duration) (bool, error) {
	re, err := compile(`\A(?:`+pattern+`)`, flags, timeout)
	if err != nil {
		return false, err
	}
	ok, err := re.MatchString(subject)
	return ok, mapErr(pattern, err)
}

// Search finds the first match anywhere in the subject.
func (m *Matcher) Search(pattern, subject, flags string, timeout time.Duration) (string, bool, error) {
	re, err := compile(pattern, flags, timeout)
	if err != nil {
		return "", false, err
	}
	match, err := re.FindStringMatch(subject)
	if err != nil {
		return "", false, mapErr(pattern, err)
	}
	if match == nil {
		return "", false, nil
	}
	return match.String(), true, nil
}

// FindAll collects every non-overlapping match in order.
func (m *Matcher) FindAll(pattern, subject, flags string, timeout time.Duration) ([]string, error) {
	re, err := compile(pattern, flags, timeout)
	if err != nil {
		return nil, err
	}
	var out []string
	match, err := re.FindStringMatch(subject)
	for match != nil && err == nil {
		out = append(out, match.String())
		match, err = re.FindNextMatch(match)
	}
	if err != nil {
		return nil, mapErr(pattern, err)
	}
	return out, nil
}

// Replace substitutes matches with repl.  count < 0 replaces all.
func (m *Matcher) Replace(pattern, subject, repl, flags string, count int, timeout time.Duration) (string, error) {
	re, err := compile(pattern, flags, timeout)
	if err != nil {
		return "", err
	}
	out, err := re.Replace(subject, repl, -1, count)
	return out, mapErr(pattern, err)
}

// Groups returns the capture groups of the first match: one entry per
// group, nil for a group that did not participate.
func (m *Matcher) Groups(pattern, subject, flags string, timeout time.Duration) ([]interface{}, bool, error) {
	re, err := compile(pattern, flags, timeout)
	if err != nil {
		return nil, false, err
	}
	match, err := re.FindStringMatch(subject)
	if err != nil {
		return nil, false, mapErr(pattern, err)
	}
	if match == nil {
		return nil, false, nil
	}
	groups := match.Groups()
	out := make([]interface{}, 0, len(groups)-1)
	for _, g := range groups[1:] {
		if len(g.Captures) == 0 {
			out = append(out, nil)
			continue
		}
		out = append(out, g.String())
	}
	return out, true, nil
}
