// Package errs provides the typed error hierarchy shared by every
// component of cfninit: the construction engine, the tool dispatch layer
// and the hook processor raise one of these for the failure kinds callers
// need to tell apart, so that callers can branch on error kind with
// errors.As.
package errs

import "fmt"

// RetryMode classifies a failed remote-fetch attempt for the retry
// combinator in package retry.
type RetryMode int

const (
	// Terminal means an attempt must not be retried.
	Terminal RetryMode = iota
	// Retriable means an attempt may be retried against the normal budget.
	Retriable
	// RetriableForever extends the retry budget by one more slot.
	RetriableForever
)

func (m RetryMode) String() string {
	switch m {
	case Terminal:
		return "terminal"
	case Retriable:
		return "retriable"
	case RetriableForever:
		return "retriable-forever"
	default:
		return "unknown"
	}
}

// BuildError is raised by the construction engine (C5) for any
// construction-phase failure. It is fatal: it aborts the whole build.
type BuildError struct {
	ConfigSet string
	Config    string
	Cause     error
}

func (e *BuildError) Error() string {
	if e.Config != "" {
		return fmt.Sprintf("build failed in configSet %q, config %q: %v", e.ConfigSet, e.Config, e.Cause)
	}
	return fmt.Sprintf("build failed in configSet %q: %v", e.ConfigSet, e.Cause)
}

func (e *BuildError) Unwrap() error { return e.Cause }

// ToolError carries the exit code of the failing tool invocation
// (subprocess, package manager, etc). It is a type of its own; the
// construction engine reports it as the Cause of a BuildError.
type ToolError struct {
	Tool     string
	Entity   string
	ExitCode int
	Cause    error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q failed on %q (exit %d): %v", e.Tool, e.Entity, e.ExitCode, e.Cause)
}

func (e *ToolError) Unwrap() error { return e.Cause }

// NoSuchConfigError is raised when a ConfigSet references a ConfigDefinition
// name that does not exist in the model.
type NoSuchConfigError struct {
	Name string
}

func (e *NoSuchConfigError) Error() string { return fmt.Sprintf("no such config: %q", e.Name) }

// NoSuchConfigSetError is raised when a ConfigSet reference does not resolve.
type NoSuchConfigSetError struct {
	Name string
}

func (e *NoSuchConfigSetError) Error() string { return fmt.Sprintf("no such configSet: %q", e.Name) }

// CircularConfigSetDependencyError is raised when the configSet reference
// graph contains a cycle; the build performs zero tool invocations.
type CircularConfigSetDependencyError struct {
	Remaining []string
}

func (e *CircularConfigSetDependencyError) Error() string {
	return fmt.Sprintf("circular configSet dependency among: %v", e.Remaining)
}

// UpdateError is raised when a hook's path cannot be resolved. It is the
// one exception the hook processor does not swallow: it aborts the poll.
type UpdateError struct {
	HookName string
	Path     string
	Reason   string
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("hook %q: invalid path %q: %s", e.HookName, e.Path, e.Reason)
}

// RemoteError wraps an HTTP-level failure with its retry classification.
// Body carries the response body for a non-2xx status (nil on a
// transport-level failure), so a caller whose wire format signals its own
// retriable/terminal distinction in the body (AWS Query API error
// envelopes) can reclassify past the generic status-code verdict.
type RemoteError struct {
	URL        string
	StatusCode int
	Mode       RetryMode
	Cause      error
	Body       []byte
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error fetching %s (status %d, %s): %v", e.URL, e.StatusCode, e.Mode, e.Cause)
}

func (e *RemoteError) Unwrap() error { return e.Cause }

// ChecksumError is raised when a downloaded body's MD5 does not match the
// S3-reported ETag. It is always Retriable.
type ChecksumError struct {
	URL      string
	Expected string
	Actual   string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.URL, e.Expected, e.Actual)
}
