package tools

import (
	"fmt"
	"sort"

	"github.com/cfninit/cfninit/errs"
	"github.com/cfninit/cfninit/model"
	"github.com/cfninit/cfninit/process"
)

// ApplyServices consults the already-accumulated Changes to decide
// whether each service needs a (re)start, and separately manages its
// boot-time enablement via the sysvinit runlevel facility (§4.4.6).
func ApplyServices(spec map[string]map[string]model.ServiceSpec, ctx *Context) error {
	for _, manager := range sortedServiceManagers(spec) {
		for _, name := range sortedServiceNames(spec[manager]) {
			svc := spec[manager][name]
			changed, err := applyOneService(manager, name, svc, ctx)
			if err != nil {
				return &errs.ToolError{Tool: "services:" + manager, Entity: name, Cause: err}
			}
			if changed {
				ctx.Changes.Add(model.CategoryServices, name)
			}
		}
	}
	return nil
}

func applyOneService(manager, name string, svc model.ServiceSpec, ctx *Context) (bool, error) {
	changed := false

	if svc.Enabled != nil {
		verb := "off"
		if *svc.Enabled {
			verb = "on"
		}
		if err := runInitTool(manager, "chkconfig", name, verb); err != nil {
			return changed, err
		}
	}

	if svc.EnsureRunning == nil {
		return changed, nil
	}

	needsRestart := ctx.Changes.HasAny(model.CategoryFiles, svc.Files) ||
		ctx.Changes.HasAny(model.CategorySources, svc.Sources) ||
		ctx.Changes.HasAny(model.CategoryPackages, svc.Packages) ||
		ctx.Changes.HasAny(model.CategoryCommands, svc.Commands)

	running, err := serviceRunning(manager, name)
	if err != nil {
		return changed, err
	}

	switch {
	case *svc.EnsureRunning && (!running || needsRestart):
		action := "start"
		if running {
			action = "restart"
		}
		if err := runInitTool(manager, "service", name, action); err != nil {
			return changed, err
		}
		changed = true
	case !*svc.EnsureRunning && running:
		if err := runInitTool(manager, "service", name, "stop"); err != nil {
			return changed, err
		}
		changed = true
	}
	return changed, nil
}

func serviceRunning(manager, name string) (bool, error) {
	res, err := process.Run([]string{"service", name, "status"}, process.Options{})
	if err != nil {
		return false, err
	}
	return res.ExitCode == 0, nil
}

// runInitTool shells out to the sysvinit-family control commands;
// manager is carried for error context only since both "sysvinit" and
// "systemd" ride the same `service`/`chkconfig` wrapper binaries on the
// distributions cfn-init targets.
func runInitTool(manager, tool, name, verb string) error {
	res, err := process.Run([]string{tool, name, verb}, process.Options{})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("services(%s): %s %s %s failed (exit %d): %s", manager, tool, name, verb, res.ExitCode, string(res.Stdout))
	}
	return nil
}

func sortedServiceManagers(spec map[string]map[string]model.ServiceSpec) []string {
	keys := make([]string, 0, len(spec))
	for k := range spec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedServiceNames(spec map[string]model.ServiceSpec) []string {
	keys := make([]string, 0, len(spec))
	for k := range spec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
