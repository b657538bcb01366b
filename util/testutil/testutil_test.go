package testutil

import "testing"

func TestJS(t *testing.T) {
	if got := JS(map[string]interface{}{"a": 1}); got != `{"a":1}` {
		t.Fatalf("got %s", got)
	}
	if got := JS(nil); got != "null" {
		t.Fatalf("got %s", got)
	}
}

func TestDoc(t *testing.T) {
	v := Doc(`{"a":[1,2]}`)
	m, is := v.(map[string]interface{})
	if !is {
		t.Fatalf("got %T", v)
	}
	if _, is := m["a"].([]interface{}); !is {
		t.Fatalf("got %#v", m["a"])
	}
}

func TestDocPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic")
		}
	}()
	Doc("{nope")
}
