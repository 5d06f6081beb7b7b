package document_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/awsdataarchitect/ai-compliance-auditor/document"
)

func mustDoc(t *testing.T, src string) document.Document {
	t.Helper()
	d, err := document.FromJSON([]byte(src))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	return d
}

func TestGet(t *testing.T) {
	d := mustDoc(t, `{
		"content": "ok",
		"rating": 5,
		"analysis_result": {"toxicity_score": 1.5},
		"paths": [{"summary": "a"}, {"summary": "b"}]
	}`)

	tests := []struct {
		name  string
		path  string
		want  any
		found bool
	}{
		{"top-level string", "$.content", "ok", true},
		{"top-level number", "$.rating", float64(5), true},
		{"nested number", "$.analysis_result.toxicity_score", 1.5, true},
		{"array element field", "$.paths[1].summary", "b", true},
		{"absent field", "$.missing", nil, false},
		{"absent intermediate", "$.missing.deeper.still", nil, false},
		{"index out of range", "$.paths[5]", nil, false},
		{"index into scalar", "$.content[0]", nil, false},
		{"field of scalar", "$.rating.x", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := d.Get(document.MustPath(tt.path))
			if ok != tt.found {
				t.Fatalf("found = %v, want %v", ok, tt.found)
			}
			if tt.found && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Get(%s) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestGetRoot(t *testing.T) {
	d := mustDoc(t, `{"x": 1}`)
	v, ok := d.Get(document.MustPath("$"))
	if !ok {
		t.Fatal("root lookup should always succeed")
	}
	if _, isObj := v.(map[string]any); !isObj {
		t.Fatalf("root = %T, want map", v)
	}
}

func TestSetCreatesIntermediates(t *testing.T) {
	d := mustDoc(t, `{"y": 2}`)

	out, err := d.Set(document.MustPath("$.result.scores.toxicity"), 3.0)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok := out.Get(document.MustPath("$.result.scores.toxicity"))
	if !ok || got != 3.0 {
		t.Fatalf("Get after Set = %v, %v", got, ok)
	}

	// Siblings untouched.
	if y, _ := out.Get(document.MustPath("$.y")); y != float64(2) {
		t.Errorf("sibling y = %v, want 2", y)
	}

	// Original untouched.
	if _, ok := d.Get(document.MustPath("$.result")); ok {
		t.Error("Set mutated the receiver")
	}
}

func TestMergeNonDestructive(t *testing.T) {
	base := mustDoc(t, `{"y": 2}`)

	out, err := base.Merge(document.MustPath("$.result"), map[string]any{"x": 1.0})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	want := mustDoc(t, `{"y": 2, "result": {"x": 1}}`)
	if !reflect.DeepEqual(map[string]any(out), map[string]any(want)) {
		t.Errorf("merged = %v, want %v", out, want)
	}
}

func TestMergeRootReplaces(t *testing.T) {
	base := mustDoc(t, `{"y": 2}`)

	out, err := base.Merge(document.MustPath("$"), map[string]any{"z": true})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if _, ok := out.Get(document.MustPath("$.y")); ok {
		t.Error("root merge should drop prior fields")
	}
	if z, _ := out.Get(document.MustPath("$.z")); z != true {
		t.Errorf("z = %v, want true", z)
	}
}

func TestMergeRootRejectsScalar(t *testing.T) {
	base := mustDoc(t, `{"y": 2}`)
	if _, err := base.Merge(document.MustPath("$"), "scalar"); err == nil {
		t.Error("expected error replacing root with scalar")
	}
}

func TestSetArrayIndex(t *testing.T) {
	d := mustDoc(t, `{"paths": [{"a": 1}]}`)

	out, err := d.Set(document.MustPath("$.paths[2].b"), "x")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok := out.Get(document.MustPath("$.paths[2].b"))
	if !ok || got != "x" {
		t.Fatalf("Get = %v, %v", got, ok)
	}
	// Skipped slot padded with null.
	if v, ok := out.Get(document.MustPath("$.paths[1]")); !ok || v != nil {
		t.Errorf("padded slot = %v, %v; want nil, true", v, ok)
	}
	// Existing element preserved.
	if v, _ := out.Get(document.MustPath("$.paths[0].a")); v != float64(1) {
		t.Errorf("paths[0].a = %v, want 1", v)
	}
}

func TestSetRejectsContextPath(t *testing.T) {
	d := document.New()
	if _, err := d.Set(document.MustPath("$$.execution.id"), "x"); err == nil {
		t.Error("expected error writing to context path")
	}
}

func TestCloneIsDeep(t *testing.T) {
	d := mustDoc(t, `{"nested": {"list": [1, 2]}}`)
	c := d.Clone()

	inner := c["nested"].(map[string]any)
	inner["list"].([]any)[0] = float64(99)
	inner["added"] = true

	if v, _ := d.Get(document.MustPath("$.nested.list[0]")); v != float64(1) {
		t.Error("clone shares array storage with original")
	}
	if _, ok := d.Get(document.MustPath("$.nested.added")); ok {
		t.Error("clone shares map storage with original")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	d := mustDoc(t, `{"content": "ok", "rating": 5}`)
	data, err := d.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var back map[string]any
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, map[string]any(d)) {
		t.Errorf("round-trip = %v, want %v", back, d)
	}
}

func TestFromJSONEmpty(t *testing.T) {
	d, err := document.FromJSON(nil)
	if err != nil {
		t.Fatalf("FromJSON(nil): %v", err)
	}
	if len(d) != 0 {
		t.Errorf("expected empty document, got %v", d)
	}
}
