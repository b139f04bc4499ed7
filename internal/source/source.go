// Package source records where a class was found and how to fetch its
// bytecode later.
//
// Source is a closed set of three variants: Directory, Archive and Generated.
// Only Directory and Generated can return bytes themselves; Archive declines
// with ErrCodeUnsupported so a loader that streams from the archive can take
// over.
package source

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrCodeUnsupported is returned by sources that do not serve bytecode.
	ErrCodeUnsupported = errors.New("bytecode retrieval not supported by this source")

	// ErrClassNotFound is returned when the backing file is missing.
	ErrClassNotFound = errors.New("class file not found")
)

// Source is the origin of a class.
type Source interface {
	// Code returns the raw bytecode of className.
	Code(className string) ([]byte, error)
	// Key identifies the source for caching and equality.
	Key() string
	String() string

	isSource()
}

// Directory is a class found under a directory root.
type Directory struct {
	Root string
}

func (Directory) isSource() {}

func (d Directory) Key() string { return "dir:" + d.Root }

func (d Directory) String() string { return "Dir: " + d.Root }

// Path returns the file that holds className under the root.
func (d Directory) Path(className string) string {
	rel := strings.ReplaceAll(className, ".", string(filepath.Separator)) + ".class"
	return filepath.Join(d.Root, rel)
}

// Code reads <root>/<package path>/<Simple>.class.
func (d Directory) Code(className string) ([]byte, error) {
	path := d.Path(className)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrClassNotFound, path)
		}
		return nil, fmt.Errorf("couldn't load file %s: %w", path, err)
	}
	return data, nil
}

// Archive is a class found inside a jar or zip.
type Archive struct {
	Locator string
}

func (Archive) isSource() {}

func (a Archive) Key() string { return "jar:" + a.Locator }

func (a Archive) String() string { return "Jar: " + a.Locator }

// Code always declines; archive-backed classes are loaded by streaming from
// the archive itself.
func (a Archive) Code(className string) ([]byte, error) {
	return nil, fmt.Errorf("%w: %s in %s", ErrCodeUnsupported, className, a.Locator)
}

// Generated holds bytecode produced at runtime.
type Generated struct {
	Bytecode []byte
}

// NewGenerated copies b so later changes by the caller are not observed.
func NewGenerated(b []byte) Generated {
	return Generated{Bytecode: append([]byte(nil), b...)}
}

func (Generated) isSource() {}

// Key is derived from the first 12 hex chars of the bytecode's sha256.
func (g Generated) Key() string {
	sum := sha256.Sum256(g.Bytecode)
	return "gen:" + hex.EncodeToString(sum[:])[:12]
}

func (g Generated) String() string { return fmt.Sprintf("Generated: %d bytes", len(g.Bytecode)) }

// Code returns a copy of the inline bytecode regardless of className.
func (g Generated) Code(string) ([]byte, error) {
	return append([]byte(nil), g.Bytecode...), nil
}
