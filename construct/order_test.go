package construct

import (
	"reflect"
	"testing"

	"github.com/cfninit/cfninit/errs"
)

func cfg(names ...string) []entry {
	out := make([]entry, len(names))
	for i, n := range names {
		out[i] = entry{kind: configEntry, name: n}
	}
	return out
}

func ref(name string) entry { return entry{kind: setRefEntry, name: name} }

func TestLinearizeRefPlusInlineOrdering(t *testing.T) {
	sets := map[string][]entry{
		"A": {entry{kind: configEntry, name: "c1"}, ref("B")},
		"B": cfg("c2"),
	}
	got, err := linearize(sets)
	if err != nil {
		t.Fatalf("linearize: %v", err)
	}
	want := []string{"c1", "c2"}
	if !reflect.DeepEqual(got["A"], want) {
		t.Errorf("A = %v, want %v", got["A"], want)
	}
	if !reflect.DeepEqual(got["B"], []string{"c2"}) {
		t.Errorf("B = %v, want [c2]", got["B"])
	}
}

func TestLinearizeRefInMiddle(t *testing.T) {
	sets := map[string][]entry{
		"A": {entry{kind: configEntry, name: "c1"}, ref("B"), entry{kind: configEntry, name: "c3"}},
		"B": cfg("c2"),
	}
	got, err := linearize(sets)
	if err != nil {
		t.Fatalf("linearize: %v", err)
	}
	want := []string{"c1", "c2", "c3"}
	if !reflect.DeepEqual(got["A"], want) {
		t.Errorf("A = %v, want %v", got["A"], want)
	}
}

func TestLinearizeDetectsDirectCycle(t *testing.T) {
	sets := map[string][]entry{
		"A": {ref("B")},
		"B": {ref("A")},
	}
	_, err := linearize(sets)
	if _, ok := err.(*errs.CircularConfigSetDependencyError); !ok {
		t.Fatalf("expected CircularConfigSetDependencyError, got %v", err)
	}
}

func TestLinearizeDetectsSelfCycle(t *testing.T) {
	sets := map[string][]entry{
		"A": {ref("A")},
	}
	_, err := linearize(sets)
	if _, ok := err.(*errs.CircularConfigSetDependencyError); !ok {
		t.Fatalf("expected CircularConfigSetDependencyError, got %v", err)
	}
}

func TestLinearizeDetectsIndirectCycle(t *testing.T) {
	sets := map[string][]entry{
		"A": {ref("B")},
		"B": {ref("C")},
		"C": {ref("A")},
	}
	_, err := linearize(sets)
	if _, ok := err.(*errs.CircularConfigSetDependencyError); !ok {
		t.Fatalf("expected CircularConfigSetDependencyError, got %v", err)
	}
}

func TestLinearizeRejectsUnresolvedRef(t *testing.T) {
	sets := map[string][]entry{
		"A": {ref("ghost")},
	}
	_, err := linearize(sets)
	if _, ok := err.(*errs.NoSuchConfigSetError); !ok {
		t.Fatalf("expected NoSuchConfigSetError, got %v", err)
	}
}

func TestLinearizeSharedDependency(t *testing.T) {
	sets := map[string][]entry{
		"A": {ref("C")},
		"B": {ref("C")},
		"C": cfg("c1"),
	}
	got, err := linearize(sets)
	if err != nil {
		t.Fatalf("linearize: %v", err)
	}
	if !reflect.DeepEqual(got["A"], []string{"c1"}) || !reflect.DeepEqual(got["B"], []string{"c1"}) {
		t.Errorf("got %v", got)
	}
}
