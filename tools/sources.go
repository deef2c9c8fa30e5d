package tools

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/cfninit/cfninit/errs"
	"github.com/cfninit/cfninit/model"
)

var githubArchiveRe = regexp.MustCompile(`^https?://github\.com/.*/(zipball|tarball)/.*$`)

// ApplySources extracts each destDir's archive, sorted by destDir so the
// reported order is deterministic.
func ApplySources(spec map[string]string, ctx *Context) error {
	dests := make([]string, 0, len(spec))
	for d := range spec {
		dests = append(dests, d)
	}
	sort.Strings(dests)

	var changed []string
	for _, dest := range dests {
		mutated, err := applyOneSource(dest, spec[dest], ctx)
		if err != nil {
			return &errs.ToolError{Tool: "sources", Entity: dest, Cause: err}
		}
		if mutated {
			changed = append(changed, dest)
		}
	}
	ctx.Changes.AddAll(model.CategorySources, changed)
	return nil
}

// sentinelName records the hash of the archive last extracted into a
// destDir, so a re-run against an unchanged archive is a no-op — the
// idempotence invariant §8 requires of every tool.
const sentinelName = ".cfninit.source.sha256"

func applyOneSource(dest, location string, ctx *Context) (bool, error) {
	local, cleanup, err := fetchLocal(location, ctx)
	if err != nil {
		return false, err
	}
	defer cleanup()

	sum, err := sha256File(local)
	if err != nil {
		return false, err
	}
	sentinelPath := filepath.Join(dest, sentinelName)
	if prior, err := os.ReadFile(sentinelPath); err == nil && strings.TrimSpace(string(prior)) == sum {
		return false, nil
	}

	archivePath := local
	if githubArchiveRe.MatchString(location) {
		rewrapped, err := rewrapGithubArchive(local)
		if err != nil {
			return false, err
		}
		if rewrapped != "" {
			defer os.Remove(rewrapped)
			archivePath = rewrapped
		}
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return false, err
	}
	if err := extractArchive(archivePath, dest); err != nil {
		return false, err
	}
	if err := os.WriteFile(sentinelPath, []byte(sum), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// fetchLocal materialises location (an http(s)/ftp URL, or a local path)
// as a local file path, returning a cleanup func that removes any
// temporary file it created.
func fetchLocal(location string, ctx *Context) (path string, cleanup func(), err error) {
	if strings.HasPrefix(location, "http") || strings.HasPrefix(location, "ftp") {
		f, err := os.CreateTemp("", "cfninit-source-*")
		if err != nil {
			return "", func() {}, err
		}
		f.Close()
		u, _ := url.Parse(location)
		s, _ := ctx.Auth.Resolve("", u)
		if err := ctx.HTTP.GetToFile(location, f.Name(), s); err != nil {
			os.Remove(f.Name())
			return "", func() {}, err
		}
		return f.Name(), func() { os.Remove(f.Name()) }, nil
	}
	return location, func() {}, nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// extractArchive sniffs tar (any compression) first, then zip; any other
// format is a fatal error. Every member's normalised path is verified to
// lie under destDir before anything is written.
func extractArchive(archivePath, destDir string) error {
	cleanDest, err := filepath.Abs(destDir)
	if err != nil {
		return err
	}

	if tr, closeFn, ok, err := openTar(archivePath); err != nil {
		return err
	} else if ok {
		defer closeFn()
		return extractTar(tr, cleanDest)
	}

	if zr, err := zip.OpenReader(archivePath); err == nil {
		defer zr.Close()
		return extractZip(zr, cleanDest)
	}

	return fmt.Errorf("sources: unsupported archive format: %s", archivePath)
}

// openTar returns a *tar.Reader over archivePath if it looks like a tar
// stream (optionally gzip- or bzip2-compressed), and ok=false otherwise.
func openTar(archivePath string) (*tar.Reader, func(), bool, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, nil, false, err
	}
	br := bufio.NewReader(f)
	magic, _ := br.Peek(4)

	var r io.Reader = br
	switch {
	case len(magic) >= 2 && magic[0] == 0x1f && magic[1] == 0x8b:
		gz, gzErr := gzip.NewReader(br)
		if gzErr != nil {
			f.Close()
			return nil, nil, false, nil
		}
		r = gz
	case len(magic) >= 3 && string(magic[:3]) == "BZh":
		r = bzip2.NewReader(br)
	}

	tr := tar.NewReader(r)
	// Probing a tar stream destructively consumes it; re-open fresh once
	// we know it parses, so the caller gets an un-consumed reader.
	if _, err := tr.Next(); err != nil {
		f.Close()
		return nil, nil, false, nil
	}
	f.Close()

	f2, err := os.Open(archivePath)
	if err != nil {
		return nil, nil, false, err
	}
	br2 := bufio.NewReader(f2)
	br2.Peek(4)
	var r2 io.Reader = br2
	switch {
	case len(magic) >= 2 && magic[0] == 0x1f && magic[1] == 0x8b:
		gz, _ := gzip.NewReader(br2)
		r2 = gz
	case len(magic) >= 3 && string(magic[:3]) == "BZh":
		r2 = bzip2.NewReader(br2)
	}
	return tar.NewReader(r2), func() { f2.Close() }, true, nil
}

// tarEntry is one validated, fully-read member awaiting extraction: tar
// streams are forward-only, so every member's content must be buffered
// during the validation pass to allow a second, write-only pass after.
type tarEntry struct {
	target string
	info   os.FileInfo
	data   []byte
}

func extractTar(tr *tar.Reader, destDir string) error {
	var entries []tarEntry
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}
		info := hdr.FileInfo()
		var data []byte
		if !info.IsDir() {
			data, err = io.ReadAll(tr)
			if err != nil {
				return err
			}
		}
		entries = append(entries, tarEntry{target: target, info: info, data: data})
	}
	for _, e := range entries {
		if err := writeEntry(e.target, e.info, bytes.NewReader(e.data)); err != nil {
			return err
		}
	}
	return nil
}

func extractZip(zr *zip.ReadCloser, destDir string) error {
	targets := make([]string, len(zr.File))
	for i, f := range zr.File {
		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}
		targets[i] = target
	}
	for i, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeEntry(targets[i], f.FileInfo(), rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// safeJoin verifies that name, once joined to destDir and cleaned, still
// lies under destDir: no absolute paths, no ".." escape (§4.4.2, §8).
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, name)
	rel, err := filepath.Rel(destDir, target)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("sources: member %q escapes destination %q", name, destDir)
	}
	return target, nil
}

func writeEntry(target string, info os.FileInfo, r io.Reader) error {
	if info.IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm()|0o600)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, r)
	return err
}

// rewrapGithubArchive handles the GitHub tarball/zipball quirk (§4.4.2
// step 4): it extracts the archive to a temp dir and, if exactly one
// top-level entry exists, builds a fresh tar of that entry's contents
// with the top-level prefix stripped and returns its path, so the same
// safeJoin-validated extraction path in extractArchive runs unchanged.
// It returns "" when there is not exactly one top-level entry.
func rewrapGithubArchive(archivePath string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "cfninit-gh-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	if err := extractArchive(archivePath, tmpDir); err != nil {
		return "", err
	}
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return "", err
	}
	// drop our own sentinel-free temp extraction: no filtering needed,
	// ReadDir already only reflects the archive's own top-level entries.
	if len(entries) != 1 {
		return "", nil // not exactly one top-level entry: no rewrap
	}
	root := filepath.Join(tmpDir, entries[0].Name())

	out, err := os.CreateTemp("", "cfninit-rewrap-*.tar")
	if err != nil {
		return "", err
	}
	tw := tar.NewWriter(out)
	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = rel
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if walkErr != nil {
		tw.Close()
		out.Close()
		os.Remove(out.Name())
		return "", walkErr
	}
	if err := tw.Close(); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", err
	}
	out.Close()
	return out.Name(), nil
}
