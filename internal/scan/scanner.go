package scan

import (
	"context"
)

// Scanner lists the classes of one path entry. The classpath index depends
// on this interface so the traversal can be observed or replaced.
type Scanner interface {
	ScanDirectory(ctx context.Context, root string) ([]string, error)
	ScanArchive(ctx context.Context, loc Locator) ([]string, error)
}

// Default scans the local filesystem and fetches remote archives.
type Default struct {
	Dir     DirOptions
	Fetcher *Fetcher
}

// NewDefault returns a Default scanner with its own Fetcher.
func NewDefault() *Default {
	return &Default{Fetcher: NewFetcher()}
}

func (s *Default) ScanDirectory(_ context.Context, root string) ([]string, error) {
	return Directory(root, s.Dir)
}

func (s *Default) ScanArchive(ctx context.Context, loc Locator) ([]string, error) {
	if !loc.IsRemote() {
		return ArchiveFile(loc.Path)
	}
	f := s.Fetcher
	if f == nil {
		f = NewFetcher()
	}
	data, err := f.Fetch(ctx, loc.Remote)
	if err != nil {
		return nil, &ArchiveError{Locator: loc.Raw, Err: err}
	}
	return ArchiveBytes(loc.Raw, data)
}
