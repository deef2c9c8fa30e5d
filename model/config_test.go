package model

import (
	"reflect"
	"testing"
)

func TestVersionSpecUnmarshal(t *testing.T) {
	cases := []struct {
		raw  string
		want VersionSpec
	}{
		{`"1.2.3"`, VersionSpec{"1.2.3"}},
		{`["1.2.3", "1.2.4"]`, VersionSpec{"1.2.3", "1.2.4"}},
		{`null`, nil},
		{`""`, nil},
	}
	for _, tc := range cases {
		var v VersionSpec
		if err := json.Unmarshal([]byte(tc.raw), &v); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tc.raw, err)
		}
		if !reflect.DeepEqual(v, tc.want) {
			t.Errorf("Unmarshal(%s) = %v, want %v", tc.raw, v, tc.want)
		}
	}
}

func TestCommandLineUnmarshal(t *testing.T) {
	var shell CommandLine
	if err := json.Unmarshal([]byte(`"echo hi"`), &shell); err != nil {
		t.Fatalf("Unmarshal shell: %v", err)
	}
	if shell.Shell != "echo hi" || shell.Argv != nil {
		t.Errorf("got %+v", shell)
	}

	var argv CommandLine
	if err := json.Unmarshal([]byte(`["echo", "hi"]`), &argv); err != nil {
		t.Fatalf("Unmarshal argv: %v", err)
	}
	if argv.Shell != "" || !reflect.DeepEqual(argv.Argv, []string{"echo", "hi"}) {
		t.Errorf("got %+v", argv)
	}
}

func TestCommandLineEmpty(t *testing.T) {
	if !(CommandLine{}).Empty() {
		t.Error("zero-value CommandLine should be empty")
	}
	if (CommandLine{Shell: "x"}).Empty() {
		t.Error("a shell command should not be empty")
	}
}

func TestConfigDefinitionValidateRejectsMissingCommand(t *testing.T) {
	cd := ConfigDefinition{
		Commands: map[string]CommandSpec{
			"01test": {},
		},
	}
	if err := cd.Validate(); err == nil {
		t.Error("expected Validate to reject a command entry with no command")
	}
}

func TestConfigDefinitionValidateAcceptsWellFormed(t *testing.T) {
	cd := ConfigDefinition{
		Commands: map[string]CommandSpec{
			"01test": {Command: CommandLine{Shell: "echo hi"}},
		},
	}
	if err := cd.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestCommandSpecIgnoreErrorsBool(t *testing.T) {
	cases := []struct {
		v    string
		want bool
	}{
		{"true", true}, {"True", true}, {"yes", true}, {"y", true}, {"1", true},
		{"false", false}, {"", false}, {"no", false},
	}
	for _, tc := range cases {
		cmd := CommandSpec{IgnoreErrors: tc.v}
		if got := cmd.IgnoreErrorsBool(); got != tc.want {
			t.Errorf("IgnoreErrorsBool(%q) = %v, want %v", tc.v, got, tc.want)
		}
	}
}
