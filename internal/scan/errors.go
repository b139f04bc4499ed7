package scan

import (
	"errors"
	"fmt"
)

var (
	// ErrOutsideRoot marks a scanned file whose absolute path is not below the
	// absolute scan root.
	ErrOutsideRoot = errors.New("path escapes scan root")

	// ErrBadArchive marks an archive that could not be opened or read.
	ErrBadArchive = errors.New("unreadable archive")
)

// PathError reports a directory traversal inconsistency: a file found while
// walking Root does not live under Root once made absolute.
type PathError struct {
	Root string
	Path string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("problem parsing paths: %s is not under %s", e.Path, e.Root)
}

func (e *PathError) Unwrap() error { return ErrOutsideRoot }

// ArchiveError wraps the failure to open or iterate an archive.
type ArchiveError struct {
	Locator string
	Err     error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Locator, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ArchiveError) Unwrap() []error { return []error{ErrBadArchive, e.Err} }
