package tools

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/cfninit/cfninit/errs"
	"github.com/cfninit/cfninit/model"
)

var contextVarRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// ApplyFiles materialises every path's desired content/mode/ownership,
// sorted by path, reporting only those that actually changed.
func ApplyFiles(spec map[string]model.FileSpec, ctx *Context) error {
	paths := make([]string, 0, len(spec))
	for p := range spec {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var changed []string
	for _, path := range paths {
		mutated, err := applyOneFile(path, spec[path], ctx)
		if err != nil {
			return &errs.ToolError{Tool: "files", Entity: path, Cause: err}
		}
		if mutated {
			changed = append(changed, path)
		}
	}
	ctx.Changes.AddAll(model.CategoryFiles, changed)
	return nil
}

func applyOneFile(path string, spec model.FileSpec, ctx *Context) (bool, error) {
	desired, err := resolveContent(path, spec, ctx)
	if err != nil {
		return false, err
	}

	mode, err := resolveMode(spec.Mode, path)
	if err != nil {
		return false, err
	}

	uid, gid, err := resolveOwnership(spec.Owner, spec.Group)
	if err != nil {
		return false, err
	}

	changed := false
	if desired != nil && !sameContent(path, desired) {
		if err := atomicWrite(path, desired, mode); err != nil {
			return false, err
		}
		changed = true
	} else if !sameMode(path, mode) {
		if err := os.Chmod(path, mode); err != nil {
			return false, err
		}
		changed = true
	}

	if ownershipChanged(path, uid, gid) {
		if err := unix.Lchown(path, uid, gid); err != nil {
			return false, fmt.Errorf("files: chown %s: %w", path, err)
		}
		changed = true
	}

	return changed, nil
}

// resolveContent returns the desired byte content, or nil if spec carries
// neither inline content nor a source (a mode/ownership-only change).
func resolveContent(path string, spec model.FileSpec, ctx *Context) ([]byte, error) {
	var raw []byte
	switch {
	case spec.HasContent():
		s, err := spec.ContentString()
		if err != nil {
			return nil, err
		}
		raw = []byte(s)
	case spec.Source != "":
		u, _ := url.Parse(spec.Source)
		signer, _ := ctx.Auth.Resolve(spec.Authentication, u)
		body, _, err := ctx.HTTP.Get(spec.Source, signer)
		if err != nil {
			return nil, err
		}
		raw = body
	default:
		return nil, nil
	}

	if strings.EqualFold(spec.Encoding, "base64") {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("files: %s: invalid base64 content: %w", path, err)
		}
		raw = decoded
	}

	if len(spec.Context) > 0 {
		raw = substituteContext(raw, spec.Context)
	}
	return raw, nil
}

func substituteContext(raw []byte, vars map[string]string) []byte {
	return contextVarRe.ReplaceAllFunc(raw, func(m []byte) []byte {
		name := strings.TrimSpace(string(contextVarRe.FindSubmatch(m)[1]))
		if v, ok := vars[name]; ok {
			return []byte(v)
		}
		return m
	})
}

func resolveMode(modeStr, path string) (os.FileMode, error) {
	if modeStr == "" {
		if existing, err := os.Stat(path); err == nil {
			return existing.Mode().Perm(), nil
		}
		return 0o644, nil
	}
	v, err := strconv.ParseUint(modeStr, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("files: %s: invalid mode %q: %w", path, modeStr, err)
	}
	return os.FileMode(v).Perm(), nil
}

func resolveOwnership(owner, group string) (uid, gid int, err error) {
	uid, gid = -1, -1
	if owner != "" {
		u, err := user.Lookup(owner)
		if err != nil {
			return 0, 0, fmt.Errorf("files: unknown owner %q: %w", owner, err)
		}
		uid, _ = strconv.Atoi(u.Uid)
	}
	if group != "" {
		g, err := user.LookupGroup(group)
		if err != nil {
			return 0, 0, fmt.Errorf("files: unknown group %q: %w", group, err)
		}
		gid, _ = strconv.Atoi(g.Gid)
	}
	return uid, gid, nil
}

func sameContent(path string, desired []byte) bool {
	existing, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return bytes.Equal(existing, desired)
}

func sameMode(path string, mode os.FileMode) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().Perm() == mode.Perm()
}

func ownershipChanged(path string, uid, gid int) bool {
	if uid == -1 && gid == -1 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	sys, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return true
	}
	if uid != -1 && int(sys.Uid) != uid {
		return true
	}
	if gid != -1 && int(sys.Gid) != gid {
		return true
	}
	return false
}

func atomicWrite(path string, content []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".cfninit-tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
