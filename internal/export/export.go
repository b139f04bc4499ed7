// Package export writes a reproducible zip snapshot of an index: the same
// classpath contents always produce the same bytes.
//
// Layout:
//
//	manifest.json          name, entries, children, counts
//	packages.json          sorted package names
//	classes.json           package -> sorted class names
//	sources.json           class -> source description
//	packages/<pkg>.txt     one class name per line
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"classpath-index/internal/classname"
	"classpath-index/internal/classpath"
	"classpath-index/internal/ziputil"
)

// Options controls what is exported.
type Options struct {
	// NoInner drops nested classes (names containing '$').
	NoInner bool
}

// Manifest is the manifest.json document.
type Manifest struct {
	Name     string   `json:"name"`
	Entries  []string `json:"entries"`
	Children []string `json:"children"`
	Packages int      `json:"packages"`
	Classes  int      `json:"classes"`
}

// Snapshot is the in-memory form of an export.
type Snapshot struct {
	Manifest Manifest
	Packages []string
	Classes  map[string][]string
	Sources  map[string]string
}

// Take queries idx (initializing it if needed) and collects a Snapshot.
func Take(idx *classpath.Index, opt Options) *Snapshot {
	s := &Snapshot{
		Packages: idx.Packages(),
		Classes:  make(map[string][]string),
		Sources:  make(map[string]string),
	}
	total := 0
	for _, pkg := range s.Packages {
		classes := idx.ClassesForPackage(pkg)
		if opt.NoInner {
			classes = classname.RemoveInnerClassNames(classes)
		}
		s.Classes[pkg] = classes
		total += len(classes)
		for _, c := range classes {
			if src, ok := idx.ClassSource(c); ok {
				s.Sources[c] = src.String()
			}
		}
	}
	children := make([]string, 0)
	for _, c := range idx.Children() {
		children = append(children, c.Name())
	}
	entries := idx.Entries()
	if entries == nil {
		entries = []string{}
	}
	s.Manifest = Manifest{
		Name:     idx.Name(),
		Entries:  entries,
		Children: children,
		Packages: len(s.Packages),
		Classes:  total,
	}
	return s
}

// WriteZip encodes s to w.
func (s *Snapshot) WriteZip(w io.Writer) error {
	zw := zip.NewWriter(w)
	if err := ziputil.WriteJSON(zw, "manifest.json", s.Manifest); err != nil {
		return err
	}
	if err := ziputil.WriteJSON(zw, "packages.json", s.Packages); err != nil {
		return err
	}
	if err := ziputil.WriteJSON(zw, "classes.json", s.Classes); err != nil {
		return err
	}
	if err := ziputil.WriteJSON(zw, "sources.json", s.Sources); err != nil {
		return err
	}
	for _, pkg := range s.Packages {
		var b strings.Builder
		for _, c := range s.Classes[pkg] {
			b.WriteString(c)
			b.WriteByte('\n')
		}
		if err := ziputil.WriteText(zw, "packages/"+pkg+".txt", []byte(b.String())); err != nil {
			return err
		}
	}
	return zw.Close()
}

// WriteFile writes the export of idx to path atomically: the zip is built
// in a temp file in the same directory and renamed over path.
func WriteFile(path string, idx *classpath.Index, opt Options) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := Take(idx, opt).WriteZip(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("export %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
