package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/golang/glog"

	"github.com/cfninit/cfninit/errs"
	"github.com/cfninit/cfninit/model"
	"github.com/cfninit/cfninit/process"
)

// fixedManagerOrder is the manager ordering prefix (§4.4.1): dpkg, rpm,
// apt, yum first in that order; any other recognised or unrecognised
// manager name follows in case-insensitive lexical order.
var fixedManagerOrder = []string{"dpkg", "rpm", "apt", "yum"}

// ApplyPackages dispatches each manager's sub-spec in fixed order and
// records every package actually installed under model.CategoryPackages.
func ApplyPackages(spec map[string]map[string]model.VersionSpec, ctx *Context) error {
	for _, manager := range orderManagers(spec) {
		pkgs := spec[manager]
		if len(pkgs) == 0 {
			continue
		}
		installed, err := applyManager(manager, pkgs)
		if err != nil {
			return &errs.ToolError{Tool: "packages:" + manager, Cause: err}
		}
		ctx.Changes.AddAll(model.CategoryPackages, installed)
	}
	return nil
}

func orderManagers(spec map[string]map[string]model.VersionSpec) []string {
	seen := map[string]bool{}
	var ordered []string
	for _, m := range fixedManagerOrder {
		if _, ok := spec[m]; ok {
			ordered = append(ordered, m)
			seen[m] = true
		}
	}
	var rest []string
	for m := range spec {
		if !seen[m] {
			rest = append(rest, m)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return strings.ToLower(rest[i]) < strings.ToLower(rest[j]) })
	return append(ordered, rest...)
}

func applyManager(manager string, pkgs map[string]model.VersionSpec) ([]string, error) {
	switch strings.ToLower(manager) {
	case "yum":
		return applyYum(pkgs)
	case "rpm":
		return applyRpm(pkgs)
	case "apt", "dpkg":
		return applyAptLike(manager, pkgs)
	case "python":
		return applyProbeInstall(pkgs, pipProbe, pipInstall)
	case "rubygems", "gem":
		return applyProbeInstall(pkgs, gemProbe, gemInstall)
	default:
		glog.Warningf("tools: unrecognised package manager %q, skipping", manager)
		return nil, nil
	}
}

// specString renders a package+version pair the way the underlying CLI
// expects it: "name-version" when a version was given, else the bare name.
func specString(name string, versions model.VersionSpec) []string {
	if len(versions) == 0 {
		return []string{name}
	}
	out := make([]string, len(versions))
	for i, v := range versions {
		out[i] = fmt.Sprintf("%s-%s", name, v)
	}
	return out
}

// applyYum refreshes the cache, classifies every requested spec as
// installed/available, then issues one batched install for the rest.
// Any spec unavailable in any repo is a fatal (non-idempotent) failure.
func applyYum(pkgs map[string]model.VersionSpec) ([]string, error) {
	if _, err := process.Run([]string{"yum", "makecache"}, process.Options{}); err != nil {
		return nil, err
	}
	names := sortedKeys(pkgs)
	var toInstall []string
	var changed []string
	for _, name := range names {
		for _, want := range specString(name, pkgs[name]) {
			installed, err := yumClassify(want, "list", "installed")
			if err != nil {
				return nil, err
			}
			if installed {
				continue
			}
			available, err := yumClassify(want, "list", "available")
			if err != nil {
				return nil, err
			}
			if !available {
				return nil, fmt.Errorf("package %q is not available", want)
			}
			toInstall = append(toInstall, want)
			changed = append(changed, name)
		}
	}
	if len(toInstall) == 0 {
		return nil, nil
	}
	argv := append([]string{"yum", "-y", "install"}, toInstall...)
	res, err := process.Run(argv, process.Options{})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("yum install failed (exit %d): %s", res.ExitCode, string(res.Stdout))
	}
	return dedupe(changed), nil
}

func yumClassify(spec, verb, which string) (bool, error) {
	res, err := process.Run([]string{"yum", verb, which, "-C", "-y", spec}, process.Options{})
	if err != nil {
		return false, err
	}
	return res.ExitCode == 0, nil
}

// applyRpm installs from a URL or local path per package; rpm -qp derives
// the package name, rpm -q checks if it is already installed.
func applyRpm(pkgs map[string]model.VersionSpec) ([]string, error) {
	names := sortedKeys(pkgs)
	var toInstall []string
	var changed []string
	for _, location := range names {
		nvra, err := rpmQueryPackage(location)
		if err != nil {
			return nil, err
		}
		res, _ := process.Run([]string{"rpm", "-q", "--quiet", nvra}, process.Options{})
		if res != nil && res.ExitCode == 0 {
			continue
		}
		toInstall = append(toInstall, location)
		changed = append(changed, nvra)
	}
	if len(toInstall) == 0 {
		return nil, nil
	}
	argv := append([]string{"rpm", "-U", "--quiet", "--nosignature", "--replacepkgs"}, toInstall...)
	res, err := process.Run(argv, process.Options{})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("rpm install failed (exit %d): %s", res.ExitCode, string(res.Stdout))
	}
	return changed, nil
}

func rpmQueryPackage(location string) (string, error) {
	res, err := process.Run([]string{"rpm", "-qp", "--queryformat", "%{NAME}-%{VERSION}-%{RELEASE}.%{ARCH}", location}, process.Options{})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("rpm -qp %s failed: %s", location, string(res.Stdout))
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// applyAptLike covers both apt and dpkg the same way: dpkg -s probes for
// already-installed, apt-get install brings the rest in.
func applyAptLike(manager string, pkgs map[string]model.VersionSpec) ([]string, error) {
	names := sortedKeys(pkgs)
	var toInstall []string
	var changed []string
	for _, name := range names {
		res, _ := process.Run([]string{"dpkg", "-s", name}, process.Options{})
		if res != nil && res.ExitCode == 0 {
			continue
		}
		for _, spec := range specString(name, pkgs[name]) {
			toInstall = append(toInstall, spec)
		}
		changed = append(changed, name)
	}
	if len(toInstall) == 0 {
		return nil, nil
	}
	env := []string{"DEBIAN_FRONTEND=noninteractive"}
	argv := append([]string{"apt-get", "-y", "install"}, toInstall...)
	res, err := process.Run(argv, process.Options{Env: env})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("%s install failed (exit %d): %s", manager, res.ExitCode, string(res.Stdout))
	}
	return changed, nil
}

func pipProbe(name string) (bool, error) {
	res, err := process.Run([]string{"pip", "show", name}, process.Options{})
	if err != nil {
		return false, err
	}
	return res.ExitCode == 0, nil
}

func pipInstall(spec string) error {
	res, err := process.Run([]string{"pip", "install", spec}, process.Options{})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("pip install %s failed (exit %d): %s", spec, res.ExitCode, string(res.Stdout))
	}
	return nil
}

func gemProbe(name string) (bool, error) {
	res, err := process.Run([]string{"gem", "list", "-i", name}, process.Options{})
	if err != nil {
		return false, err
	}
	return res.ExitCode == 0, nil
}

func gemInstall(spec string) error {
	res, err := process.Run([]string{"gem", "install", spec}, process.Options{})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("gem install %s failed (exit %d): %s", spec, res.ExitCode, string(res.Stdout))
	}
	return nil
}

// applyProbeInstall is the shared already-installed/install-if-missing
// shape for the simpler managers (python, gem) that the spec leaves
// underspecified beyond "a pair of probes: already installed? available?".
func applyProbeInstall(pkgs map[string]model.VersionSpec, probe func(string) (bool, error), install func(string) error) ([]string, error) {
	var changed []string
	for _, name := range sortedKeys(pkgs) {
		already, err := probe(name)
		if err != nil {
			return nil, err
		}
		if already {
			continue
		}
		for _, spec := range specString(name, pkgs[name]) {
			if err := install(spec); err != nil {
				return nil, err
			}
		}
		changed = append(changed, name)
	}
	return changed, nil
}

func sortedKeys(m map[string]model.VersionSpec) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
