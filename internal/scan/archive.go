package scan

import (
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"

	"classpath-index/internal/classname"
)

// Archive lists the canonical class names stored in a zip-compatible archive,
// in archive order. Directory and resource entries are skipped. The locator is
// only used for error reporting.
func Archive(locator string, r io.ReaderAt, size int64) ([]string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, &ArchiveError{Locator: locator, Err: err}
	}
	return classNames(zr.File), nil
}

// ArchiveFile opens the archive at path and lists its classes.
func ArchiveFile(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &ArchiveError{Locator: path, Err: err}
	}
	defer zr.Close()
	return classNames(zr.File), nil
}

// ArchiveBytes lists the classes of an in-memory archive.
func ArchiveBytes(locator string, data []byte) ([]string, error) {
	return Archive(locator, bytes.NewReader(data), int64(len(data)))
}

func classNames(files []*zip.File) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		if strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir() {
			continue
		}
		if classname.IsClassFile(f.Name) {
			names = append(names, classname.Canonicalize(f.Name))
		}
	}
	return names
}
