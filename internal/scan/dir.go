// Package scan lists the class files contained in a single path entry: a
// directory tree of compiled classes or a zip-compatible archive.
//
// Scanners return canonical class names in a deterministic order and never
// deduplicate; precedence between entries is decided by the caller.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"classpath-index/internal/classname"
)

// DirOptions tunes the directory walk.
type DirOptions struct {
	// FollowSymlinks descends into symlinked directories and includes
	// symlinked class files. Each real directory is visited at most once.
	FollowSymlinks bool
}

type dirWalk struct {
	opts    DirOptions
	absRoot string
	visited map[string]struct{}
	names   []string
}

// Directory walks root depth-first in lexical order and returns the canonical
// name of every regular *.class file below it.
func Directory(root string, opts DirOptions) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}
	w := &dirWalk{opts: opts, absRoot: absRoot, visited: make(map[string]struct{})}
	if err := w.walk(absRoot); err != nil {
		return nil, err
	}
	return w.names, nil
}

// walk runs WalkDir from dir. A trailing separator makes WalkDir resolve a
// symlinked start directory instead of reporting it as a leaf.
func (w *dirWalk) walk(dir string) error {
	if real, err := filepath.EvalSymlinks(dir); err == nil {
		if _, seen := w.visited[real]; seen {
			return nil
		}
		w.visited[real] = struct{}{}
	}
	return filepath.WalkDir(dir+string(filepath.Separator), w.visit)
}

func (w *dirWalk) visit(path string, d fs.DirEntry, err error) error {
	if err != nil {
		return err
	}
	if d.IsDir() {
		return nil
	}
	if isSymlink(d) {
		return w.handleSymlink(path)
	}
	if !d.Type().IsRegular() || !classname.IsClassFile(d.Name()) {
		return nil
	}
	return w.add(path)
}

func (w *dirWalk) handleSymlink(path string) error {
	if !w.opts.FollowSymlinks {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		// Dangling links are not class files.
		return nil
	}
	if info.IsDir() {
		return w.walk(path)
	}
	if info.Mode().IsRegular() && classname.IsClassFile(path) {
		return w.add(path)
	}
	return nil
}

// add strips the root prefix from path and records the canonical class name.
func (w *dirWalk) add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	prefix := w.absRoot
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if !strings.HasPrefix(abs, prefix) {
		return &PathError{Root: w.absRoot, Path: abs}
	}
	w.names = append(w.names, classname.Canonicalize(abs[len(prefix):]))
	return nil
}

// isSymlink reports whether the DirEntry is a symlink (file or directory).
func isSymlink(d fs.DirEntry) bool {
	return d.Type()&fs.ModeSymlink != 0
}
