package classpath

import (
	"errors"
	"io/fs"
	"path/filepath"
)

// UserClassPathName labels the index built by UserClassPath.
const UserClassPathName = "User Class Path"

// UserClassPathEntries splits a path list (os.PathListSeparator delimited,
// the format of $CLASSPATH) and resolves every component to an absolute,
// symlink-free path. Missing components stay absolute. Empty components are
// skipped. Any other failure rejects the whole list.
func UserClassPathEntries(value string) ([]string, error) {
	var out []string
	for _, p := range filepath.SplitList(value) {
		if p == "" {
			continue
		}
		resolved, err := resolve(p)
		if err != nil {
			return nil, &ConfigurationError{Component: p, Err: err}
		}
		out = append(out, resolved)
	}
	return out, nil
}

func resolve(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	real, err := filepath.EvalSymlinks(abs)
	switch {
	case err == nil:
		return real, nil
	case errors.Is(err, fs.ErrNotExist):
		return abs, nil
	default:
		return "", err
	}
}

// UserClassPath builds an uninitialized index over the resolved components of
// value. Callers that need it more than once keep the returned index.
func UserClassPath(value string, opts ...Option) (*Index, error) {
	entries, err := UserClassPathEntries(value)
	if err != nil {
		return nil, err
	}
	return New(UserClassPathName, entries, opts...), nil
}
