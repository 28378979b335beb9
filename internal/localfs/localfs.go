// Package localfs collects dataset files from the local filesystem.
//
// Every entry point (CLI arguments, archive building) walks trees the same
// way: hidden entries are skipped unless asked for, and only regular files
// are returned.
package localfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoFiles is returned by Collect when nothing matched.
var ErrNoFiles = errors.New("no files found")

// FileEntry is one regular file found by Collect or Walk.
type FileEntry struct {
	Path string // Path as walked (absolute when the root was)
	Rel  string // Path relative to the walked root, slash-separated
	Name string
	Size int64
}

// Options controls hidden-file handling.
type Options struct {
	// IncludeHidden includes dot files and descends into dot directories.
	IncludeHidden bool
}

// WalkFunc is called for every regular file under a root.
type WalkFunc func(entry FileEntry) error

// Walk visits the regular files under root depth-first. Hidden directories
// are pruned unless opts.IncludeHidden. Errors from the filesystem or fn
// stop the walk.
func Walk(root string, opts Options, fn WalkFunc) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && !opts.IncludeHidden && IsHiddenName(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return fn(FileEntry{
			Path: path,
			Rel:  filepath.ToSlash(rel),
			Name: d.Name(),
			Size: info.Size(),
		})
	})
}

// Collect expands paths into files. Plain files are taken as given, even
// when hidden; directories are walked. Order follows the arguments, then
// lexical order within each directory.
func Collect(paths []string, opts Options) ([]FileEntry, error) {
	var out []FileEntry
	for _, p := range paths {
		resolved, err := ExpandPath(p)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(resolved)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", p, err)
		}
		if !info.IsDir() {
			if !info.Mode().IsRegular() {
				return nil, fmt.Errorf("%s is not a regular file", p)
			}
			out = append(out, FileEntry{Path: resolved, Rel: info.Name(), Name: info.Name(), Size: info.Size()})
			continue
		}
		err = Walk(resolved, opts, func(e FileEntry) error {
			out = append(out, e)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFiles, strings.Join(paths, ", "))
	}
	return out, nil
}

// TotalSize sums the entry sizes.
func TotalSize(entries []FileEntry) int64 {
	var n int64
	for _, e := range entries {
		n += e.Size
	}
	return n
}

// IsHiddenName reports whether a base name is a dot file. "." and ".." are not.
func IsHiddenName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}

// ExpandPath expands a leading ~ and makes p absolute. Symlinks in the
// existing part of the path are resolved so a junctioned home folder and its
// target name the same file.
func ExpandPath(p string) (string, error) {
	if p == "" {
		return os.Getwd()
	}
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, p[1:])
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}

	// Resolve the deepest existing ancestor and re-append the rest.
	current := abs
	var rest []string
	for {
		parent := filepath.Dir(current)
		if parent == current {
			return abs, nil
		}
		rest = append([]string{filepath.Base(current)}, rest...)
		current = parent
		if resolved, err := filepath.EvalSymlinks(current); err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
	}
}
