package process

import (
	"strings"
	"testing"
)

func TestRunShellString(t *testing.T) {
	res, err := Run("echo hello", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if strings.TrimSpace(string(res.Stdout)) != "hello" {
		t.Errorf("Stdout = %q, want hello", res.Stdout)
	}
}

func TestRunArgv(t *testing.T) {
	res, err := Run([]string{"echo", "hi"}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(string(res.Stdout)) != "hi" {
		t.Errorf("Stdout = %q, want hi", res.Stdout)
	}
}

func TestRunNonZeroExitIsNotAGoError(t *testing.T) {
	res, err := Run("exit 3", Options{})
	if err != nil {
		t.Fatalf("Run returned a Go error for a non-zero exit: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
}

func TestRunMergesStderrByDefault(t *testing.T) {
	res, err := Run("echo out; echo err >&2", Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(string(res.Stdout), "out") || !strings.Contains(string(res.Stdout), "err") {
		t.Errorf("expected stderr merged into stdout, got %q", res.Stdout)
	}
	if len(res.Stderr) != 0 {
		t.Errorf("Stderr = %q, want empty when merged", res.Stderr)
	}
}

func TestRunSplitStderr(t *testing.T) {
	res, err := Run("echo out; echo err >&2", Options{SplitStderr: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(string(res.Stdout), "out") {
		t.Errorf("Stdout = %q, want out", res.Stdout)
	}
	if !strings.Contains(string(res.Stderr), "err") {
		t.Errorf("Stderr = %q, want err", res.Stderr)
	}
}

func TestRunEnv(t *testing.T) {
	res, err := Run("echo $FOO", Options{Env: []string{"FOO=bar"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(string(res.Stdout)) != "bar" {
		t.Errorf("Stdout = %q, want bar", res.Stdout)
	}
}

func TestRunCwd(t *testing.T) {
	dir := t.TempDir()
	res, err := Run("pwd", Options{Cwd: dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := strings.TrimSpace(string(res.Stdout))
	if got != dir {
		t.Errorf("pwd = %q, want %q", got, dir)
	}
}

func TestRunEmptyArgv(t *testing.T) {
	if _, err := Run([]string{}, Options{}); err == nil {
		t.Error("expected error for empty argv")
	}
}
