package schema

import (
	"testing"

	"github.com/rejig/rejig/util/testutil"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		spec  string
		valid bool
	}{
		{name: "good list", spec: `[{"op":"set","path":"/a","value":1}]`, valid: true},
		{name: "good single step", spec: `{"op":"delete","path":"/a"}`, valid: true},
		{name: "shorthand passes", spec: `[{"/a":1},{"~delete":"/b"}]`, valid: true},
		{name: "unknown op", spec: `[{"op":"teleport","path":"/a"}]`, valid: false},
		{name: "set without value", spec: `[{"op":"set","path":"/a"}]`, valid: false},
		{name: "copy without from", spec: `[{"op":"copy","path":"/a"}]`, valid: false},
		{name: "foreach without body", spec: `[{"op":"foreach","in":"/xs"}]`, valid: false},
		{name: "patch with non-array document", spec: `[{"op":"patch","patch":{}}]`, valid: false},
		{name: "step must be an object", spec: `["nope"]`, valid: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			issues, err := Validate(testutil.Doc(test.spec))
			if err != nil {
				t.Fatal(err)
			}
			if test.valid && len(issues) != 0 {
				t.Fatalf("unexpected issues: %v", issues)
			}
			if !test.valid && len(issues) == 0 {
				t.Fatal("expected issues")
			}
		})
	}
}
