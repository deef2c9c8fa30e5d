package main

import (
	"errors"
	"reflect"
	"testing"

	"github.com/cfninit/cfninit/errs"
)

func TestSplitNonEmpty(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"default", []string{"default"}},
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b ,, c ", []string{"a", "b", "c"}},
		{"", nil},
		{",,", nil},
	}
	for _, tc := range cases {
		if got := splitNonEmpty(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitNonEmpty(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormatChainPlainError(t *testing.T) {
	err := errors.New("boom")
	if got := formatChain(err); got != "boom" {
		t.Errorf("formatChain = %q, want %q", got, "boom")
	}
}

func TestFormatChainBuildErrorWithConfigAndTool(t *testing.T) {
	be := &errs.BuildError{
		ConfigSet: "default",
		Config:    "config1",
		Cause: &errs.ToolError{
			Tool:   "files",
			Entity: "/etc/foo.conf",
			Cause:  errors.New("permission denied"),
		},
	}
	got := formatChain(be)
	want := "configSet default -> config config1 -> tool files (/etc/foo.conf): " + be.Error()
	if got != want {
		t.Errorf("formatChain = %q, want %q", got, want)
	}
}

func TestFormatChainBuildErrorWithoutConfig(t *testing.T) {
	be := &errs.BuildError{ConfigSet: "default", Cause: errors.New("generic failure")}
	got := formatChain(be)
	want := "configSet default: " + be.Error()
	if got != want {
		t.Errorf("formatChain = %q, want %q", got, want)
	}
}
