package tools

import (
	"fmt"
	"os/user"
	"sort"
	"strconv"

	"github.com/cfninit/cfninit/errs"
	"github.com/cfninit/cfninit/model"
	"github.com/cfninit/cfninit/process"
)

// ApplyGroups creates any named group that does not already exist
// (§4.4.5); existing groups are left untouched, matching cfn-init's
// create-if-missing contract rather than reconciling GID drift.
func ApplyGroups(spec map[string]model.GroupSpec, ctx *Context) error {
	var created []string
	for _, name := range sortedGroupKeys(spec) {
		exists, err := groupExists(name)
		if err != nil {
			return &errs.ToolError{Tool: "groups", Entity: name, Cause: err}
		}
		if exists {
			continue
		}
		argv := []string{"groupadd"}
		if gid := spec[name].GID; gid != nil {
			argv = append(argv, "-g", strconv.Itoa(*gid))
		}
		argv = append(argv, name)
		res, err := process.Run(argv, process.Options{})
		if err != nil {
			return &errs.ToolError{Tool: "groups", Entity: name, Cause: err}
		}
		if res.ExitCode != 0 {
			return &errs.ToolError{Tool: "groups", Entity: name, ExitCode: res.ExitCode, Cause: fmt.Errorf("groupadd failed: %s", string(res.Stdout))}
		}
		created = append(created, name)
	}
	ctx.Changes.AddAll(model.CategoryGroups, created)
	return nil
}

// ApplyUsers creates any named user that does not already exist. Existing
// users are left untouched; group membership and home directory are only
// applied at creation time.
func ApplyUsers(spec map[string]model.UserSpec, ctx *Context) error {
	var created []string
	for _, name := range sortedUserKeys(spec) {
		exists, err := userExists(name)
		if err != nil {
			return &errs.ToolError{Tool: "users", Entity: name, Cause: err}
		}
		if exists {
			continue
		}
		u := spec[name]
		argv := []string{"useradd", "-M"}
		if u.UID != nil {
			argv = append(argv, "-u", strconv.Itoa(*u.UID))
		}
		if u.HomeDir != "" {
			argv = append(argv, "-d", u.HomeDir)
		}
		if len(u.Groups) > 0 {
			argv = append(argv, "-G", joinComma(u.Groups))
		}
		argv = append(argv, name)
		res, err := process.Run(argv, process.Options{})
		if err != nil {
			return &errs.ToolError{Tool: "users", Entity: name, Cause: err}
		}
		if res.ExitCode != 0 {
			return &errs.ToolError{Tool: "users", Entity: name, ExitCode: res.ExitCode, Cause: fmt.Errorf("useradd failed: %s", string(res.Stdout))}
		}
		created = append(created, name)
	}
	ctx.Changes.AddAll(model.CategoryUsers, created)
	return nil
}

func groupExists(name string) (bool, error) {
	_, err := user.LookupGroup(name)
	if err == nil {
		return true, nil
	}
	if _, ok := err.(user.UnknownGroupError); ok {
		return false, nil
	}
	return false, err
}

func userExists(name string) (bool, error) {
	_, err := user.Lookup(name)
	if err == nil {
		return true, nil
	}
	if _, ok := err.(user.UnknownUserError); ok {
		return false, nil
	}
	return false, err
}

func sortedGroupKeys(m map[string]model.GroupSpec) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedUserKeys(m map[string]model.UserSpec) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinComma(in []string) string {
	out := ""
	for i, v := range in {
		if i > 0 {
			out += ","
		}
		out += v
	}
	return out
}
