package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rejig/rejig/util/testutil"
)

func TestGet(t *testing.T) {
	doc := testutil.Doc(`{
	  "a": {"b": [10, 20, 30], "c~d": 1, "e/f": 2, "g$h": 3, "i.j": 4},
	  "s": "hello",
	  "n": null
	}`)

	tests := []struct {
		name string
		ptr  string
		want interface{}
		fail bool
	}{
		{name: "map key", ptr: "/a/b", want: testutil.Doc(`[10,20,30]`)},
		{name: "list index", ptr: "/a/b/1", want: float64(20)},
		{name: "negative index", ptr: "/a/b/-1", want: float64(30)},
		{name: "root empty", ptr: "", want: doc},
		{name: "root slash", ptr: "/", want: doc},
		{name: "root dot", ptr: ".", want: doc},
		{name: "parent token", ptr: "/a/b/../c~0d", want: float64(1)},
		{name: "parent above root", ptr: "/../../s", want: "hello"},
		{name: "escape tilde", ptr: "/a/c~0d", want: float64(1)},
		{name: "escape slash", ptr: "/a/e~1f", want: float64(2)},
		{name: "escape dollar", ptr: "/a/g~2h", want: float64(3)},
		{name: "escape dot", ptr: "/a/i~3j", want: float64(4)},
		{name: "list slice", ptr: "/a/b[1:]", want: testutil.Doc(`[20,30]`)},
		{name: "list slice negative", ptr: "/a/b[:-1]", want: testutil.Doc(`[10,20]`)},
		{name: "string slice", ptr: "/s[1:3]", want: "el"},
		{name: "string slice open", ptr: "/s[-3:]", want: "llo"},
		{name: "slice out of range clamps", ptr: "/a/b[0:99]", want: testutil.Doc(`[10,20,30]`)},
		{name: "null value", ptr: "/n", want: nil},
		{name: "missing key", ptr: "/a/zzz", fail: true},
		{name: "index out of range", ptr: "/a/b/7", fail: true},
		{name: "index into scalar", ptr: "/s/0", fail: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Get(test.ptr, doc)
			if test.fail {
				if err == nil {
					t.Fatalf("expected an error, got %s", testutil.JS(got))
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestGetScalarRoot(t *testing.T) {
	got, err := Get("/", "just a string")
	if err != nil {
		t.Fatal(err)
	}
	if got != "just a string" {
		t.Fatalf("got %v", got)
	}
}

func TestSet(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		ptr    string
		value  interface{}
		create bool
		want   string
		fail   bool
	}{
		{
			name: "existing key", doc: `{"a":1}`, ptr: "/a", value: float64(2),
			want: `{"a":2}`,
		},
		{
			name: "new key", doc: `{}`, ptr: "/a", value: float64(1), create: true,
			want: `{"a":1}`,
		},
		{
			name: "new key without create", doc: `{}`, ptr: "/a", value: float64(1),
			want: `{"a":1}`,
		},
		{
			name: "deep create", doc: `{}`, ptr: "/a/b/c", value: true, create: true,
			want: `{"a":{"b":{"c":true}}}`,
		},
		{
			name: "deep without create", doc: `{}`, ptr: "/a/b", value: float64(1),
			want: ``, fail: true,
		},
		{
			name: "list element", doc: `{"a":[1,2]}`, ptr: "/a/0", value: float64(9),
			want: `{"a":[9,2]}`,
		},
		{
			name: "list negative index", doc: `{"a":[1,2]}`, ptr: "/a/-1", value: float64(9),
			want: `{"a":[1,9]}`,
		},
		{
			name: "list append", doc: `{"a":[1]}`, ptr: "/a/-", value: float64(2),
			want: `{"a":[1,2]}`,
		},
		{
			name: "list grows with nulls", doc: `{"a":[1]}`, ptr: "/a/3", value: float64(9), create: true,
			want: `{"a":[1,null,null,9]}`,
		},
		{
			name: "list grows intermediates with maps", doc: `{"a":[]}`, ptr: "/a/1/x", value: float64(9), create: true,
			want: `{"a":[{},{"x":9}]}`,
		},
		{
			name: "root replacement", doc: `{"a":1}`, ptr: "/", value: float64(42),
			want: `42`,
		},
		{
			name: "into null with create", doc: `{"a":null}`, ptr: "/a/b", value: float64(1), create: true,
			want: `{"a":{"b":1}}`,
		},
		{
			name: "into scalar", doc: `{"a":1}`, ptr: "/a/b", value: float64(1), create: true,
			want: ``, fail: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			root := testutil.Doc(test.doc)
			got, err := Set(test.ptr, root, test.value, test.create)
			if test.fail {
				if err == nil {
					t.Fatalf("expected an error, got %s", testutil.JS(got))
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(testutil.Doc(test.want), got); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		ptr  string
		want string
		fail bool
	}{
		{name: "map key", doc: `{"a":1,"b":2}`, ptr: "/a", want: `{"b":2}`},
		{name: "list splice", doc: `{"a":[1,2,3]}`, ptr: "/a/1", want: `{"a":[1,3]}`},
		{name: "list negative", doc: `{"a":[1,2,3]}`, ptr: "/a/-1", want: `{"a":[1,2]}`},
		{name: "nested", doc: `{"a":{"b":{"c":1}}}`, ptr: "/a/b/c", want: `{"a":{"b":{}}}`},
		{name: "missing", doc: `{}`, ptr: "/a", fail: true},
		{name: "root", doc: `{"a":1}`, ptr: "/", fail: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			root := testutil.Doc(test.doc)
			got, err := Delete(test.ptr, root)
			if test.fail {
				if err == nil {
					t.Fatalf("expected an error, got %s", testutil.JS(got))
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(testutil.Doc(test.want), got); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestSplitPointer(t *testing.T) {
	tests := []struct {
		ptr   string
		space Space
		body  string
	}{
		{ptr: "/a/b", space: SpaceSource, body: "/a/b"},
		{ptr: "_:/a", space: SpaceSource, body: "/a"},
		{ptr: "_:a", space: SpaceSource, body: "/a"},
		{ptr: "@:/a", space: SpaceDest, body: "/a"},
		{ptr: "@:", space: SpaceDest, body: "/"},
		{ptr: "&:/x", space: SpaceArgs, body: "/x"},
		{ptr: "!:/x", space: SpaceScratch, body: "/x"},
		{ptr: "", space: SpaceSource, body: ""},
	}

	for _, test := range tests {
		space, body := SplitPointer(test.ptr)
		if space != test.space || body != test.body {
			t.Fatalf("%q: got %d %q, want %d %q", test.ptr, space, body, test.space, test.body)
		}
	}
}
