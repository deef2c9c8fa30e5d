package tools

import (
	"reflect"
	"testing"

	"github.com/cfninit/cfninit/model"
)

func TestOrderManagersFixedPrefix(t *testing.T) {
	spec := map[string]map[string]model.VersionSpec{
		"yum":  {},
		"apt":  {},
		"rpm":  {},
		"dpkg": {},
	}
	got := orderManagers(spec)
	want := []string{"dpkg", "rpm", "apt", "yum"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestOrderManagersTailSortedAfterFixedPrefix(t *testing.T) {
	spec := map[string]map[string]model.VersionSpec{
		"yum":    {},
		"python": {},
		"gem":    {},
	}
	got := orderManagers(spec)
	want := []string{"yum", "gem", "python"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestOrderManagersOnlyTail(t *testing.T) {
	spec := map[string]map[string]model.VersionSpec{
		"Zebra":  {},
		"python": {},
	}
	got := orderManagers(spec)
	want := []string{"python", "Zebra"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSpecStringNoVersion(t *testing.T) {
	got := specString("git", nil)
	want := []string{"git"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSpecStringWithVersions(t *testing.T) {
	got := specString("git", model.VersionSpec{"1.2.3", "1.2.4"})
	want := []string{"git-1.2.3", "git-1.2.4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSortedKeys(t *testing.T) {
	got := sortedKeys(map[string]model.VersionSpec{"zeta": nil, "alpha": nil})
	want := []string{"alpha", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDedupePreservesFirstOccurrenceOrder(t *testing.T) {
	got := dedupe([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestApplyPackagesSkipsUnrecognisedManager(t *testing.T) {
	spec := map[string]map[string]model.VersionSpec{
		"chocolatey": {"some-pkg": nil},
	}
	ctx := &Context{Changes: model.NewChanges()}
	if err := ApplyPackages(spec, ctx); err != nil {
		t.Fatalf("ApplyPackages: %v", err)
	}
	if ctx.Changes.HasAny(model.CategoryPackages, []string{"some-pkg"}) {
		t.Error("an unrecognised manager should never report a change")
	}
}

func TestApplyPackagesSkipsEmptyManagerSpec(t *testing.T) {
	spec := map[string]map[string]model.VersionSpec{
		"yum": {},
	}
	ctx := &Context{Changes: model.NewChanges()}
	if err := ApplyPackages(spec, ctx); err != nil {
		t.Fatalf("ApplyPackages: %v", err)
	}
}
