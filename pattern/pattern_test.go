package pattern

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const timeout = time.Second

func TestMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		subject string
		flags   string
		want    bool
	}{
		{name: "anchored hit", pattern: `\d+`, subject: "123abc", want: true},
		{name: "anchored miss", pattern: `\d+`, subject: "abc123", want: false},
		{name: "ignore case", pattern: "hello", subject: "HELLO there", flags: "i", want: true},
		{name: "dot newline", pattern: "a.b", subject: "a\nb", flags: "s", want: true},
		{name: "dot no newline", pattern: "a.b", subject: "a\nb", want: false},
		{name: "alternation is grouped before anchoring", pattern: "a|b", subject: "b", want: true},
	}

	m := NewMatcher()
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := m.Match(test.pattern, test.subject, test.flags, timeout)
			if err != nil {
				t.Fatal(err)
			}
			if got != test.want {
				t.Fatalf("got %v", got)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	m := NewMatcher()
	got, found, err := m.Search(`\d+`, "abc123def456", "", timeout)
	if err != nil {
		t.Fatal(err)
	}
	if !found || got != "123" {
		t.Fatalf("got %q %v", got, found)
	}

	_, found, err = m.Search(`\d+`, "abcdef", "", timeout)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("unexpected match")
	}
}

func TestFindAll(t *testing.T) {
	m := NewMatcher()
	got, err := m.FindAll(`\d+`, "a1b22c333", "", timeout)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"1", "22", "333"}, got); diff != "" {
		t.Fatal(diff)
	}
}

func TestReplace(t *testing.T) {
	m := NewMatcher()

	got, err := m.Replace(`\d+`, "a1b22c", "N", "", -1, timeout)
	if err != nil {
		t.Fatal(err)
	}
	if got != "aNbNc" {
		t.Fatalf("got %q", got)
	}

	got, err = m.Replace(`\d+`, "a1b22c", "N", "", 1, timeout)
	if err != nil {
		t.Fatal(err)
	}
	if got != "aNb22c" {
		t.Fatalf("got %q", got)
	}

	got, err = m.Replace(`(\w+)@(\w+)`, "bob@example", "$2:$1", "", -1, timeout)
	if err != nil {
		t.Fatal(err)
	}
	if got != "example:bob" {
		t.Fatalf("got %q", got)
	}
}

func TestGroups(t *testing.T) {
	m := NewMatcher()

	got, found, err := m.Groups(`(\d{4})-(\d{2})(?:-(\d{2}))?`, "2024-06", "", timeout)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("no match")
	}
	if diff := cmp.Diff([]interface{}{"2024", "06", nil}, got); diff != "" {
		t.Fatal(diff)
	}

	_, found, err = m.Groups(`(\d+)`, "abc", "", timeout)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("unexpected match")
	}
}

func TestBadFlag(t *testing.T) {
	m := NewMatcher()
	if _, err := m.Match("a", "a", "x", timeout); err == nil {
		t.Fatal("expected an error")
	}
}

func TestBadPattern(t *testing.T) {
	m := NewMatcher()
	if _, err := m.Match("(", "a", "", timeout); err == nil {
		t.Fatal("expected an error")
	}
}

func TestTimeout(t *testing.T) {
	m := NewMatcher()
	// Classic catastrophic backtracking against a near-match subject.
	subject := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaab"
	_, err := m.Match(`(a+)+$`, subject, "", 10*time.Millisecond)
	if err == nil {
		t.Skip("engine finished before the deadline")
	}
	te, is := err.(*ErrTimeout)
	if !is {
		t.Fatalf("got %T: %v", err, err)
	}
	if !te.Timeout() {
		t.Fatal("Timeout() is false")
	}
}
