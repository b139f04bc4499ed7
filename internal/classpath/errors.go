package classpath

import (
	"errors"
	"fmt"

	"classpath-index/internal/scan"
)

// Scanner failures surface unchanged so callers can match them with errors.As.
type (
	PathError    = scan.PathError
	ArchiveError = scan.ArchiveError
)

var (
	// ErrInvalidEntry marks a path entry that is neither a directory nor an
	// archive.
	ErrInvalidEntry = errors.New("not a classpath component")

	// ErrConfiguration marks a default classpath that cannot be built.
	ErrConfiguration = errors.New("can't parse class path")
)

// InvalidEntryError is reported for an unusable path entry. Err carries the
// stat failure when the entry does not exist.
type InvalidEntryError struct {
	Entry string
	Err   error
}

func (e *InvalidEntryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", ErrInvalidEntry, e.Entry, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrInvalidEntry, e.Entry)
}

func (e *InvalidEntryError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidEntry}
	}
	return []error{ErrInvalidEntry, e.Err}
}

// ConfigurationError is returned when the default classpath cannot be
// resolved. No partial path is produced alongside it.
type ConfigurationError struct {
	Component string
	Err       error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %q: %v", ErrConfiguration, e.Component, e.Err)
}

func (e *ConfigurationError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }
