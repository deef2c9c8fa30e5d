package model

import (
	stdjson "encoding/json" // the package-level json (model.go) is jsoniter
	"fmt"
	"strings"
)

// ConfigDefinition is a named bundle of optional sub-mappings. All keys are
// optional; ordering between sections is fixed by the engine, never by the
// model.
type ConfigDefinition struct {
	Packages map[string]map[string]VersionSpec  `json:"packages,omitempty"`
	Groups   map[string]GroupSpec               `json:"groups,omitempty"`
	Users    map[string]UserSpec                `json:"users,omitempty"`
	Sources  map[string]string                  `json:"sources,omitempty"`
	Files    map[string]FileSpec                `json:"files,omitempty"`
	Commands map[string]CommandSpec             `json:"commands,omitempty"`
	Services map[string]map[string]ServiceSpec  `json:"services,omitempty"`
}

// VersionSpec is a package version constraint: absent (any), a single
// string, or a list of strings, all normalised to a slice.
type VersionSpec []string

func (v *VersionSpec) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "null" {
		*v = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*v = list
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*v = nil
		return nil
	}
	*v = []string{s}
	return nil
}

// GroupSpec describes an OS group to create if missing.
type GroupSpec struct {
	GID *int `json:"gid,omitempty"`
}

// UserSpec describes an OS user account to create if missing.
type UserSpec struct {
	UID     *int     `json:"uid,omitempty"`
	Groups  []string `json:"groups,omitempty"`
	HomeDir string   `json:"homeDir,omitempty"`
}

// FileSpec describes one file's desired content, ownership and mode.
type FileSpec struct {
	Content        stdjson.RawMessage `json:"content,omitempty"`
	Source         string            `json:"source,omitempty"`
	Encoding       string            `json:"encoding,omitempty"` // "plain" (default) or "base64"
	Mode           string            `json:"mode,omitempty"`     // octal, e.g. "000644"
	Owner          string            `json:"owner,omitempty"`
	Group          string            `json:"group,omitempty"`
	Context        map[string]string `json:"context,omitempty"`
	Authentication string            `json:"authentication,omitempty"`
}

// HasContent reports whether an inline content payload was given.
func (f FileSpec) HasContent() bool { return len(f.Content) > 0 }

// ContentString renders the raw content payload as a string: a JSON string
// leaf is unwrapped; anything else (a list, map, number or boolean) is
// returned as its JSON text exactly as it appears in the model; it is not
// re-marshalled or compacted.
func (f FileSpec) ContentString() (string, error) {
	if !f.HasContent() {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(f.Content, &s); err == nil {
		return s, nil
	}
	return string(f.Content), nil
}

// CommandSpec describes one shell command to run.
type CommandSpec struct {
	Command      CommandLine       `json:"command"`
	Cwd          string            `json:"cwd,omitempty"`
	Env          map[string]string `json:"env,omitempty"`
	Test         string            `json:"test,omitempty"`
	IgnoreErrors string            `json:"ignoreErrors,omitempty"`
}

// IgnoreErrorsBool parses the case-insensitive true|yes|y|1 convention.
func (c CommandSpec) IgnoreErrorsBool() bool {
	switch strings.ToLower(strings.TrimSpace(c.IgnoreErrors)) {
	case "true", "yes", "y", "1":
		return true
	default:
		return false
	}
}

// CommandLine is a command given either as a single shell string or as an
// argv sequence.
type CommandLine struct {
	Shell string
	Argv  []string
}

func (c *CommandLine) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var argv []string
		if err := json.Unmarshal(b, &argv); err != nil {
			return err
		}
		c.Argv = argv
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	c.Shell = s
	return nil
}

// Empty reports whether no command was given at all (a hard-fail
// condition per the required-field rule in Design Notes).
func (c CommandLine) Empty() bool { return c.Shell == "" && len(c.Argv) == 0 }

func (c CommandLine) String() string {
	if c.Shell != "" {
		return c.Shell
	}
	return strings.Join(c.Argv, " ")
}

// ServiceSpec describes the desired supervision state of one service.
type ServiceSpec struct {
	Enabled       *bool    `json:"enabled,omitempty"`
	EnsureRunning *bool    `json:"ensureRunning,omitempty"`
	Files         []string `json:"files,omitempty"`
	Sources       []string `json:"sources,omitempty"`
	Packages      []string `json:"packages,omitempty"`
	Commands      []string `json:"commands,omitempty"`
}

// Validate enforces the hard-fail required-field rule: a command entry
// with no command at all is a configuration error, not a silent no-op.
func (c ConfigDefinition) Validate() error {
	for name, cmd := range c.Commands {
		if cmd.Command.Empty() {
			return fmt.Errorf("command %q: missing required field %q", name, "command")
		}
	}
	return nil
}
