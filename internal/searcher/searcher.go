// Package searcher is the query front end over one top-level classpath
// index. It enforces an init-then-query lifecycle: searching before Init fails
// instead of returning an empty result.
package searcher

import (
	"errors"
	"fmt"
	"sync"

	"classpath-index/internal/classname"
	"classpath-index/internal/classpath"
)

// ErrUninitialized is matched by UninitializedUseError.
var ErrUninitialized = errors.New("must be initialized")

// UninitializedUseError is returned by queries issued before Init.
type UninitializedUseError struct {
	Op string
}

func (e *UninitializedUseError) Error() string {
	return fmt.Sprintf("searcher: %s: %v", e.Op, ErrUninitialized)
}

func (e *UninitializedUseError) Unwrap() error { return ErrUninitialized }

// Searcher answers package queries. Construct one at startup and pass it to
// the code that needs it.
type Searcher struct {
	idx *classpath.Index

	mu   sync.RWMutex
	init bool
	// hideInner drops nested classes from Search results.
	hideInner bool
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithoutInnerClasses removes names containing '$' from Search results.
func WithoutInnerClasses() Option {
	return func(s *Searcher) { s.hideInner = true }
}

// New builds a Searcher over a fresh index.
func New(name string, entries []string, idxOpts []classpath.Option, opts ...Option) *Searcher {
	return FromIndex(classpath.New(name, entries, idxOpts...), opts...)
}

// FromIndex wraps an existing index, for example classpath.UserClassPath.
func FromIndex(idx *classpath.Index, opts ...Option) *Searcher {
	s := &Searcher{idx: idx}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init maps the classpath. Calling it again is a no-op.
func (s *Searcher) Init() {
	s.idx.EnsureInitialized()
	s.mu.Lock()
	s.init = true
	s.mu.Unlock()
}

// Initialized reports whether Init has completed.
func (s *Searcher) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.init
}

// Add appends path entries to the underlying index.
func (s *Searcher) Add(entries ...string) { s.idx.Add(entries...) }

// Index exposes the wrapped index.
func (s *Searcher) Index() *classpath.Index { return s.idx }

// Search lists the classes of pkg.
func (s *Searcher) Search(pkg string) ([]string, error) {
	if !s.Initialized() {
		return nil, &UninitializedUseError{Op: "search " + pkg}
	}
	classes := s.idx.ClassesForPackage(pkg)
	if s.hideInner {
		classes = classname.RemoveInnerClassNames(classes)
	}
	return classes, nil
}

// Packages lists every known package.
func (s *Searcher) Packages() ([]string, error) {
	if !s.Initialized() {
		return nil, &UninitializedUseError{Op: "packages"}
	}
	return s.idx.Packages(), nil
}
