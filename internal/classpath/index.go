// Package classpath maps the classes reachable from an ordered list of path
// entries into a package index.
//
// An Index owns its entries and may composite child indexes; every query
// unions the index's own classes with those of its children. Mapping is lazy:
// the first query, or an explicit EnsureInitialized, scans every entry once
// and caches the result. Entries added afterwards are scanned incrementally.
//
// # Precedence
//
// When several entries define the same class, the source of the first entry
// that was scanned successfully wins. A source pinned with SetClassSource is
// never replaced by a scan.
//
// # Thread Safety
//
// Each Index guards its state with one mutex. Mutations, initialization and
// queries are mutually exclusive per index; child indexes are locked
// independently, so unrelated trees initialize concurrently.
package classpath

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"classpath-index/internal/classname"
	"classpath-index/internal/scan"
	"classpath-index/internal/sortutil"
	"classpath-index/internal/source"
)

// ErrCycle is returned when compositing a child would make an index reach
// itself.
var ErrCycle = errors.New("classpath composite cycle")

// Option configures an Index.
type Option func(*Index)

// WithNotifier replaces the default slog-backed progress notifier.
func WithNotifier(n Notifier) Option {
	return func(idx *Index) { idx.notifier = n }
}

// WithScanner replaces the filesystem scanner.
func WithScanner(s scan.Scanner) Option {
	return func(idx *Index) { idx.scanner = s }
}

// WithMetrics records scan metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(idx *Index) { idx.metrics = m }
}

// WithLogger sets the logger used for debug output and, unless WithNotifier
// is also given, for progress notifications.
func WithLogger(l *slog.Logger) Option {
	return func(idx *Index) { idx.logger = l }
}

// Stats summarizes the index's own state, excluding children.
type Stats struct {
	Entries     int
	Mapped      int
	Children    int
	Packages    int
	Classes     int
	Initialized bool
}

// Index is a lazily built package→class map over a list of path entries.
type Index struct {
	name     string
	notifier Notifier
	scanner  scan.Scanner
	metrics  *Metrics
	logger   *slog.Logger

	mu          sync.Mutex
	entries     []string
	children    []*Index
	packages    map[string]map[string]struct{}
	sources     map[string]source.Source
	initialized bool
	mapped      int // entries[:mapped] have been folded into the maps
}

// New returns an uninitialized index over entries. Nothing is scanned until
// the first query or EnsureInitialized.
func New(name string, entries []string, opts ...Option) *Index {
	idx := &Index{name: name}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.logger == nil {
		idx.logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if idx.notifier == nil {
		idx.notifier = NewLogNotifier(idx.logger)
	}
	if idx.scanner == nil {
		idx.scanner = scan.NewDefault()
	}
	idx.resetLocked()
	idx.entries = append(idx.entries, entries...)
	return idx
}

// Name returns the label given at construction.
func (idx *Index) Name() string { return idx.name }

// Add appends path entries. If the index is already initialized only the new
// entries are scanned, immediately.
func (idx *Index) Add(entries ...string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = append(idx.entries, entries...)
	if idx.initialized {
		idx.mapPendingLocked(context.Background())
	}
}

// SetPath discards everything and starts over with entries.
func (idx *Index) SetPath(entries ...string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.resetLocked()
	idx.entries = append(idx.entries, entries...)
}

// AddChild composites children after any existing ones. A child may belong
// to several parents. If idx is already initialized the children are
// initialized now.
func (idx *Index) AddChild(children ...*Index) error {
	for _, c := range children {
		if c == nil {
			return errors.New("classpath: nil child index")
		}
		if c == idx || c.reaches(idx) {
			return fmt.Errorf("%w: %s includes %s", ErrCycle, c.name, idx.name)
		}
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.children = append(idx.children, children...)
	if idx.initialized {
		for _, c := range children {
			c.ensureInitialized(context.Background(), false)
		}
	}
	return nil
}

// reaches reports whether target is idx or a transitive child of it.
func (idx *Index) reaches(target *Index) bool {
	for _, c := range idx.childrenSnapshot() {
		if c == target || c.reaches(target) {
			return true
		}
	}
	return false
}

func (idx *Index) childrenSnapshot() []*Index {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return slices.Clone(idx.children)
}

// Children returns the composited child indexes in order.
func (idx *Index) Children() []*Index { return idx.childrenSnapshot() }

// Entries returns a copy of the path entries in insertion order.
func (idx *Index) Entries() []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return slices.Clone(idx.entries)
}

// EnsureInitialized maps children and then every unmapped entry of idx. It
// is idempotent; concurrent callers block until the first one finishes.
func (idx *Index) EnsureInitialized() {
	idx.ensureInitialized(context.Background(), true)
}

// Initialized reports whether the maps have been built.
func (idx *Index) Initialized() bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.initialized
}

func (idx *Index) ensureInitialized(ctx context.Context, top bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.ensureInitializedLocked(ctx, top)
}

// ensureInitializedLocked must be called with idx.mu held. Children are
// locked after their parent, never before.
func (idx *Index) ensureInitializedLocked(ctx context.Context, top bool) {
	if idx.initialized {
		return
	}
	ctx, span := tracer.Start(ctx, "Index.EnsureInitialized")
	defer span.End()

	if top {
		idx.notifier.StartMapping()
	}
	for _, c := range idx.children {
		c.ensureInitialized(ctx, false)
	}
	idx.mapPendingLocked(ctx)
	idx.initialized = true
	if top {
		idx.notifier.EndMapping()
	}
}

// ClassesForPackage returns the sorted class names in pkg across idx and all
// of its children.
func (idx *Index) ClassesForPackage(pkg string) []string {
	idx.mu.Lock()
	idx.ensureInitializedLocked(context.Background(), true)
	own := sortutil.Keys(idx.packages[pkg])
	children := slices.Clone(idx.children)
	idx.mu.Unlock()

	sets := [][]string{own}
	for _, c := range children {
		sets = append(sets, c.ClassesForPackage(pkg))
	}
	return sortutil.Union(sets...)
}

// Packages returns every known package name across idx and its children.
func (idx *Index) Packages() []string {
	idx.mu.Lock()
	idx.ensureInitializedLocked(context.Background(), true)
	own := sortutil.Keys(idx.packages)
	children := slices.Clone(idx.children)
	idx.mu.Unlock()

	sets := [][]string{own}
	for _, c := range children {
		sets = append(sets, c.Packages())
	}
	return sortutil.Union(sets...)
}

// ClassSource returns where className was found: idx's own mapping first,
// then each child in order.
func (idx *Index) ClassSource(className string) (source.Source, bool) {
	idx.mu.Lock()
	idx.ensureInitializedLocked(context.Background(), true)
	src, ok := idx.sources[className]
	children := slices.Clone(idx.children)
	idx.mu.Unlock()

	if ok {
		return src, true
	}
	for _, c := range children {
		if src, ok := c.ClassSource(className); ok {
			return src, true
		}
	}
	return nil, false
}

// SetClassSource pins className to src, replacing any scanned source. Scans
// never override a pinned source.
func (idx *Index) SetClassSource(className string, src source.Source) {
	className = classname.Canonicalize(className)
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.addToPackageLocked(className)
	idx.sources[className] = src
}

// Reset clears entries, children and maps. The index behaves as new.
func (idx *Index) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.resetLocked()
}

func (idx *Index) resetLocked() {
	idx.entries = nil
	idx.children = nil
	idx.packages = make(map[string]map[string]struct{})
	idx.sources = make(map[string]source.Source)
	idx.initialized = false
	idx.mapped = 0
}

// Stats reports counts for idx alone.
func (idx *Index) Stats() Stats {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return Stats{
		Entries:     len(idx.entries),
		Mapped:      idx.mapped,
		Children:    len(idx.children),
		Packages:    len(idx.packages),
		Classes:     len(idx.sources),
		Initialized: idx.initialized,
	}
}

func (idx *Index) String() string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	names := make([]string, 0, len(idx.children))
	for _, c := range idx.children {
		names = append(names, c.name)
	}
	return fmt.Sprintf("Index %s path=[%s] children=[%s]",
		idx.name, strings.Join(idx.entries, ", "), strings.Join(names, ", "))
}

// mapPendingLocked scans entries[mapped:]. Failures are reported per entry
// and never abort the remaining entries.
func (idx *Index) mapPendingLocked(ctx context.Context) {
	pending := idx.entries[idx.mapped:]
	idx.mapped = len(idx.entries)
	for _, entry := range pending {
		names, src, err := idx.mapEntry(ctx, entry)
		if err != nil {
			idx.notifier.MappingError(entry, err)
			continue
		}
		for _, n := range names {
			idx.mapClassLocked(n, src)
		}
		idx.logger.Debug("entry mapped", "index", idx.name, "entry", entry, "classes", len(names))
	}
}

// mapEntry classifies entry and returns the classes it contains. No maps
// are touched here, so a failed entry leaves no trace.
func (idx *Index) mapEntry(ctx context.Context, entry string) (names []string, src source.Source, err error) {
	ctx, span := startEntrySpan(ctx, idx.name, entry)
	kind := kindInvalid
	start := time.Now()
	defer func() {
		idx.metrics.observeScan(kind, time.Since(start), len(names), err)
		endEntrySpan(span, kind, len(names), err)
	}()

	loc, err := scan.ParseLocator(entry)
	if err != nil {
		return nil, nil, &InvalidEntryError{Entry: entry, Err: err}
	}
	var statErr error
	if !loc.IsRemote() {
		var info os.FileInfo
		info, statErr = os.Stat(loc.Path)
		if statErr == nil && info.IsDir() {
			kind = kindDirectory
			return idx.mapDirectory(ctx, loc.Path)
		}
	}
	if classname.IsArchiveFile(loc.Name()) {
		kind = kindArchive
		idx.notifier.Mapping("Archive: " + entry)
		names, err = idx.scanner.ScanArchive(ctx, loc)
		if err != nil {
			return nil, nil, err
		}
		return names, source.Archive{Locator: entry}, nil
	}
	return nil, nil, &InvalidEntryError{Entry: entry, Err: statErr}
}

func (idx *Index) mapDirectory(ctx context.Context, dir string) ([]string, source.Source, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, nil, err
	}
	idx.notifier.Mapping("Directory " + root)
	names, err := idx.scanner.ScanDirectory(ctx, root)
	if err != nil {
		return nil, nil, err
	}
	return names, source.Directory{Root: root}, nil
}

func (idx *Index) mapClassLocked(className string, src source.Source) {
	idx.addToPackageLocked(className)
	if _, ok := idx.sources[className]; !ok {
		idx.sources[className] = src
	}
}

func (idx *Index) addToPackageLocked(className string) {
	pkg := classname.Package(className)
	set, ok := idx.packages[pkg]
	if !ok {
		set = make(map[string]struct{})
		idx.packages[pkg] = set
	}
	set[className] = struct{}{}
}
