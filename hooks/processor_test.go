package hooks

import (
	"testing"
	"time"

	"github.com/cfninit/cfninit/model"
)

func hookWith(triggers ...model.Trigger) model.Hook {
	return model.Hook{Name: "h", Path: "Resources.X.Metadata", Triggers: triggers}
}

func TestClassifyAdd(t *testing.T) {
	h := hookWith(model.TriggerAdd)
	if !classify(h, nil, "value") {
		t.Error("expected add transition to fire")
	}
	if classify(h, "value", "value2") {
		t.Error("update should not fire an add-only hook")
	}
}

func TestClassifyRemove(t *testing.T) {
	h := hookWith(model.TriggerRemove)
	if !classify(h, "value", nil) {
		t.Error("expected remove transition to fire")
	}
	if classify(h, nil, "value") {
		t.Error("add should not fire a remove-only hook")
	}
}

func TestClassifyUpdate(t *testing.T) {
	h := hookWith(model.TriggerUpdate)
	if !classify(h, "a", "b") {
		t.Error("expected update transition to fire")
	}
	if classify(h, "a", "a") {
		t.Error("identical values should not fire an update hook")
	}
	if classify(h, nil, "a") {
		t.Error("add transition should not fire an update-only hook")
	}
}

func TestClassifyNoneConflation(t *testing.T) {
	h := hookWith(model.TriggerAdd, model.TriggerRemove, model.TriggerUpdate)
	// A leaf JSON null is indistinguishable from a missing key.
	if classify(h, nil, nil) {
		t.Error("nil -> nil should never fire any trigger")
	}
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    interface{}
		want bool
	}{
		{nil, false},
		{"", false},
		{"x", true},
		{false, false},
		{true, true},
		{float64(0), false},
		{float64(1), true},
		{[]interface{}{}, false},
		{[]interface{}{1}, true},
		{map[string]interface{}{}, false},
		{map[string]interface{}{"a": 1}, true},
		{time.Time{}, false},
	}
	for _, tc := range cases {
		if got := truthy(tc.v); got != tc.want {
			t.Errorf("truthy(%#v) = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestJSONEqual(t *testing.T) {
	a := map[string]interface{}{"x": 1.0, "y": "z"}
	b := map[string]interface{}{"y": "z", "x": 1.0}
	if !jsonEqual(a, b) {
		t.Error("expected map key order not to matter")
	}
	if jsonEqual(a, map[string]interface{}{"x": 2.0, "y": "z"}) {
		t.Error("expected differing values to compare unequal")
	}
}

func TestStringify(t *testing.T) {
	if got := stringify(nil); got != "" {
		t.Errorf("stringify(nil) = %q, want empty", got)
	}
	if got := stringify("plain"); got != "plain" {
		t.Errorf("stringify(string) = %q, want unwrapped", got)
	}
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := stringify(ts); got != "2024-01-02T03:04:05Z" {
		t.Errorf("stringify(time.Time) = %q", got)
	}
	if got := stringify(map[string]interface{}{"a": 1.0}); got != `{"a":1}` {
		t.Errorf("stringify(map) = %q", got)
	}
}

func TestShellQuote(t *testing.T) {
	if got := shellQuote(`echo it's fine`); got != `'echo it'\''s fine'` {
		t.Errorf("shellQuote = %q", got)
	}
}

func TestFieldKey(t *testing.T) {
	cases := []struct {
		segs []string
		want string
	}{
		{[]string{"Resources", "X"}, "LAST_UPDATED"},
		{[]string{"Resources", "X", "Metadata"}, "METADATA"},
		{[]string{"Resources", "X", "PhysicalResourceId"}, "PHYSICAL_RESOURCE_ID"},
	}
	for _, tc := range cases {
		if got := fieldKey(tc.segs); got != tc.want {
			t.Errorf("fieldKey(%v) = %q, want %q", tc.segs, got, tc.want)
		}
	}
}
