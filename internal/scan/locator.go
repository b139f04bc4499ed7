package scan

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Locator is a parsed path entry. Local entries carry a filesystem path;
// remote entries carry an http(s) URL and can only name archives.
type Locator struct {
	Raw    string
	Path   string // local filesystem path, empty for remote entries
	Remote string // http(s) URL, empty for local entries
}

// ParseLocator accepts a plain path, a file:// URL or an http(s):// URL.
func ParseLocator(raw string) (Locator, error) {
	loc := Locator{Raw: raw}
	if !strings.Contains(raw, "://") {
		loc.Path = raw
		return loc, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return loc, fmt.Errorf("parse locator %q: %w", raw, err)
	}
	switch u.Scheme {
	case "file":
		p := u.Path
		if p == "" {
			p = u.Opaque
		}
		loc.Path = filepath.FromSlash(p)
	case "http", "https":
		loc.Remote = u.String()
	default:
		return loc, fmt.Errorf("locator %q: unsupported scheme %q", raw, u.Scheme)
	}
	return loc, nil
}

// IsRemote reports whether the entry has to be fetched over the network.
func (l Locator) IsRemote() bool { return l.Remote != "" }

// Name is the part of the locator used for archive-name classification.
func (l Locator) Name() string {
	if l.IsRemote() {
		if u, err := url.Parse(l.Remote); err == nil {
			return u.Path
		}
		return l.Remote
	}
	return l.Path
}

func (l Locator) String() string { return l.Raw }
