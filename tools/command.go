package tools

import (
	"sort"
	"strconv"

	"github.com/golang/glog"

	"github.com/cfninit/cfninit/errs"
	"github.com/cfninit/cfninit/model"
	"github.com/cfninit/cfninit/process"
)

// ApplyCommands runs every command in lexical name order (§4.4.4): each
// is always run, unless a test command is given and it exits non-zero.
// A command never reports idempotence on its own; it is recorded as
// changed whenever it actually ran, which is what drives a dependent
// service restart.
func ApplyCommands(spec map[string]model.CommandSpec, ctx *Context) error {
	names := make([]string, 0, len(spec))
	for n := range spec {
		names = append(names, n)
	}
	sort.Strings(names)

	var ran []string
	for _, name := range names {
		cmd := spec[name]
		if cmd.Test != "" {
			testRes, err := process.Run(cmd.Test, process.Options{Cwd: cmd.Cwd, Env: envSlice(cmd.Env)})
			if err != nil {
				return &errs.ToolError{Tool: "commands", Entity: name, Cause: err}
			}
			if testRes.ExitCode != 0 {
				glog.V(1).Infof("commands: %s: test command exited %d, skipping", name, testRes.ExitCode)
				continue
			}
		}

		res, err := process.Run(commandArg(cmd), process.Options{Cwd: cmd.Cwd, Env: envSlice(cmd.Env)})
		if err != nil {
			return &errs.ToolError{Tool: "commands", Entity: name, Cause: err}
		}
		if res.ExitCode != 0 && !cmd.IgnoreErrorsBool() {
			return &errs.ToolError{Tool: "commands", Entity: name, ExitCode: res.ExitCode, Cause: commandFailure(name, res)}
		}
		ran = append(ran, name)
	}
	ctx.Changes.AddAll(model.CategoryCommands, ran)
	return nil
}

func commandArg(cmd model.CommandSpec) interface{} {
	if cmd.Command.Shell != "" {
		return cmd.Command.Shell
	}
	return cmd.Command.Argv
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(env))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

func commandFailure(name string, res *process.Result) error {
	return &exitError{name: name, res: res}
}

type exitError struct {
	name string
	res  *process.Result
}

func (e *exitError) Error() string {
	return "command " + e.name + " exited " + strconv.Itoa(e.res.ExitCode) + ": " + string(e.res.Stdout)
}
