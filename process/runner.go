// Package process implements the subprocess runner (C3): a single
// synchronous Run call that captures stdout/stderr/exit code and never
// raises on a non-zero exit — callers decide what a failure means.
package process

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/golang/glog"
)

// Result is the captured outcome of one subprocess invocation.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Options controls environment, working directory and output capture.
type Options struct {
	Env []string // "K=V" entries merged over the parent environment
	Cwd string
	// SplitStderr keeps stderr in its own Stderr buffer. When false (the
	// zero value, §4.3), stderr is folded into the captured Stdout buffer
	// and Stderr is left empty.
	SplitStderr bool
}

// Run executes command, which is either a single shell string (passed to
// the system shell) or an argv sequence (executed directly). It never
// returns an error for a non-zero exit: that is reported via
// Result.ExitCode.
func Run(command interface{}, opts Options) (*Result, error) {
	cmd, err := build(command)
	if err != nil {
		return nil, err
	}
	if opts.Cwd != "" {
		cmd.Dir = opts.Cwd
	}
	if len(opts.Env) > 0 {
		// os/exec marshals each "K=V" entry to the platform-native
		// string form (UTF-16 on Windows) internally; no manual
		// coercion is needed in Go the way the original's Windows
		// environ handling required.
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if opts.SplitStderr {
		cmd.Stderr = &stderr
	} else {
		cmd.Stderr = &stdout
	}

	glog.V(2).Infof("process: running %v (cwd=%q)", command, opts.Cwd)
	runErr := cmd.Run()

	res := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if runErr == nil {
		res.ExitCode = 0
		return res, nil
	}
	var exitErr *exec.ExitError
	if ok := asExitError(runErr, &exitErr); ok {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return nil, fmt.Errorf("process: failed to start %v: %w", command, runErr)
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

func build(command interface{}) (*exec.Cmd, error) {
	switch v := command.(type) {
	case string:
		return exec.Command(shell(), shellFlag(), v), nil
	case []string:
		if len(v) == 0 {
			return nil, fmt.Errorf("process: empty argv")
		}
		return exec.Command(v[0], v[1:]...), nil
	default:
		return nil, fmt.Errorf("process: unsupported command type %T", command)
	}
}

func shell() string {
	if runtime.GOOS == "windows" {
		return "cmd"
	}
	return "/bin/sh"
}

func shellFlag() string {
	if runtime.GOOS == "windows" {
		return "/C"
	}
	return "-c"
}
