package classpath

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classpath-index/internal/scan"
	"classpath-index/internal/source"
)

// countingScanner records every scan it forwards to the default scanner.
type countingScanner struct {
	inner scan.Scanner

	mu       sync.Mutex
	dirs     []string
	archives []string
}

func newCountingScanner() *countingScanner {
	return &countingScanner{inner: scan.NewDefault()}
}

func (s *countingScanner) ScanDirectory(ctx context.Context, root string) ([]string, error) {
	s.mu.Lock()
	s.dirs = append(s.dirs, root)
	s.mu.Unlock()
	return s.inner.ScanDirectory(ctx, root)
}

func (s *countingScanner) ScanArchive(ctx context.Context, loc scan.Locator) ([]string, error) {
	s.mu.Lock()
	s.archives = append(s.archives, loc.Raw)
	s.mu.Unlock()
	return s.inner.ScanArchive(ctx, loc)
}

func (s *countingScanner) scans() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirs) + len(s.archives)
}

// recordingNotifier keeps every notification for inspection.
type recordingNotifier struct {
	mu       sync.Mutex
	starts   int
	ends     int
	messages []string
	errs     map[string]error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{errs: make(map[string]error)}
}

func (n *recordingNotifier) StartMapping() { n.mu.Lock(); n.starts++; n.mu.Unlock() }
func (n *recordingNotifier) EndMapping() { n.mu.Lock(); n.ends++; n.mu.Unlock() }

func (n *recordingNotifier) Mapping(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) MappingError(entry string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs[entry] = err
}

func classDir(t *testing.T, classes ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, c := range classes {
		p := filepath.Join(root, filepath.FromSlash(c))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(c), 0o644))
	}
	return root
}

func jarFile(t *testing.T, name string, entries ...string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e)
		require.NoError(t, err)
		if e[len(e)-1] == '/' {
			continue
		}
		_, err = w.Write([]byte(e))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func newTestIndex(name string, entries []string, sc scan.Scanner, n Notifier) *Index {
	return New(name, entries, WithScanner(sc), WithNotifier(n))
}

func TestDirectoryMapping(t *testing.T) {
	root := classDir(t, "a/b/C.class", "a/D.class")
	idx := newTestIndex("dir", []string{root}, newCountingScanner(), NopNotifier{})

	assert.Equal(t, []string{"a.b.C"}, idx.ClassesForPackage("a.b"))
	assert.Equal(t, []string{"a.D"}, idx.ClassesForPackage("a"))
	assert.Equal(t, []string{"a", "a.b"}, idx.Packages())
	assert.Empty(t, idx.ClassesForPackage("nope"))

	src, ok := idx.ClassSource("a.b.C")
	require.True(t, ok)
	assert.Equal(t, source.Directory{Root: root}, src)

	code, err := src.Code("a.b.C")
	require.NoError(t, err)
	assert.Equal(t, "a/b/C.class", string(code))
}

func TestUnpackagedClasses(t *testing.T) {
	root := classDir(t, "Main.class")
	idx := newTestIndex("dir", []string{root}, newCountingScanner(), NopNotifier{})
	assert.Equal(t, []string{"Main"}, idx.ClassesForPackage("<unpackaged>"))
}

func TestArchiveMapping(t *testing.T) {
	jar := jarFile(t, "lib.jar", "foo/", "foo/Bar.class", "foo/Bar$Inner.class", "foo/res.properties")
	idx := newTestIndex("jar", []string{jar}, newCountingScanner(), NopNotifier{})

	assert.Equal(t, []string{"foo.Bar", "foo.Bar$Inner"}, idx.ClassesForPackage("foo"))
	src, ok := idx.ClassSource("foo.Bar$Inner")
	require.True(t, ok)
	assert.Equal(t, source.Archive{Locator: jar}, src)

	_, err := src.Code("foo.Bar$Inner")
	assert.ErrorIs(t, err, source.ErrCodeUnsupported)
}

func TestFirstEntryWins(t *testing.T) {
	first := classDir(t, "x/Y.class")
	second := jarFile(t, "dup.jar", "x/Y.class", "x/Z.class")
	idx := newTestIndex("dup", []string{first, second}, newCountingScanner(), NopNotifier{})

	src, ok := idx.ClassSource("x.Y")
	require.True(t, ok)
	assert.Equal(t, source.Directory{Root: first}, src)

	src, ok = idx.ClassSource("x.Z")
	require.True(t, ok)
	assert.Equal(t, source.Archive{Locator: second}, src)
	assert.Equal(t, []string{"x.Y", "x.Z"}, idx.ClassesForPackage("x"))
	assert.Equal(t, 2, idx.Stats().Classes)
}

func TestChildPrecedenceInClassSource(t *testing.T) {
	parentDir := classDir(t, "p/Shared.class")
	childDir := classDir(t, "p/Shared.class", "p/ChildOnly.class")
	child := newTestIndex("child", []string{childDir}, newCountingScanner(), NopNotifier{})
	parent := newTestIndex("parent", []string{parentDir}, newCountingScanner(), NopNotifier{})
	require.NoError(t, parent.AddChild(child))

	src, ok := parent.ClassSource("p.Shared")
	require.True(t, ok)
	assert.Equal(t, source.Directory{Root: parentDir}, src)

	src, ok = parent.ClassSource("p.ChildOnly")
	require.True(t, ok)
	assert.Equal(t, source.Directory{Root: childDir}, src)

	_, ok = parent.ClassSource("p.Absent")
	assert.False(t, ok)
}

func TestCompositeUnion(t *testing.T) {
	build := func() (*Index, *Index) {
		child := newTestIndex("child", []string{classDir(t, "p/A.class", "p/B.class", "q/Q.class")}, newCountingScanner(), NopNotifier{})
		parent := newTestIndex("parent", []string{classDir(t, "p/B.class", "p/C.class")}, newCountingScanner(), NopNotifier{})
		require.NoError(t, parent.AddChild(child))
		return parent, child
	}
	want := []string{"p.A", "p.B", "p.C"}

	lazy, _ := build()
	assert.Equal(t, want, lazy.ClassesForPackage("p"))

	eager, child := build()
	eager.EnsureInitialized()
	assert.True(t, child.Initialized())
	assert.Equal(t, want, eager.ClassesForPackage("p"))
	assert.Equal(t, []string{"p", "q"}, eager.Packages())

	// Own maps exclude children's contributions.
	assert.Equal(t, 1, eager.Stats().Packages)
}

func TestNestedComposites(t *testing.T) {
	leaf := newTestIndex("leaf", []string{classDir(t, "deep/D.class")}, newCountingScanner(), NopNotifier{})
	mid := newTestIndex("mid", nil, newCountingScanner(), NopNotifier{})
	top := newTestIndex("top", nil, newCountingScanner(), NopNotifier{})
	require.NoError(t, mid.AddChild(leaf))
	require.NoError(t, top.AddChild(mid))

	assert.Equal(t, []string{"deep.D"}, top.ClassesForPackage("deep"))
	assert.Equal(t, []string{"deep"}, top.Packages())
	_, ok := top.ClassSource("deep.D")
	assert.True(t, ok)
}

func TestSharedChild(t *testing.T) {
	sc := newCountingScanner()
	shared := newTestIndex("shared", []string{classDir(t, "s/S.class")}, sc, NopNotifier{})
	a := newTestIndex("a", nil, newCountingScanner(), NopNotifier{})
	b := newTestIndex("b", nil, newCountingScanner(), NopNotifier{})
	require.NoError(t, a.AddChild(shared))
	require.NoError(t, b.AddChild(shared))

	assert.Equal(t, []string{"s.S"}, a.ClassesForPackage("s"))
	assert.Equal(t, []string{"s.S"}, b.ClassesForPackage("s"))
	assert.Equal(t, 1, sc.scans())
}

func TestEnsureInitializedScansOnce(t *testing.T) {
	sc := newCountingScanner()
	n := newRecordingNotifier()
	first := classDir(t, "a/A.class")
	idx := newTestIndex("once", []string{first}, sc, n)

	idx.EnsureInitialized()
	idx.EnsureInitialized()
	_ = idx.ClassesForPackage("a")
	assert.Equal(t, 1, sc.scans())
	assert.Equal(t, 1, n.starts)
	assert.Equal(t, 1, n.ends)

	second := classDir(t, "b/B.class")
	idx.Add(second)
	assert.Equal(t, []string{first, second}, sc.dirs)
	assert.Equal(t, []string{"b.B"}, idx.ClassesForPackage("b"))
	assert.Equal(t, 2, sc.scans())
	assert.Equal(t, 1, n.starts, "incremental add must not announce a full mapping")
}

func TestAddBeforeInitializationIsLazy(t *testing.T) {
	sc := newCountingScanner()
	idx := newTestIndex("lazy", nil, sc, NopNotifier{})
	idx.Add(classDir(t, "a/A.class"), classDir(t, "b/B.class"))
	assert.Equal(t, 0, sc.scans())
	assert.False(t, idx.Initialized())

	assert.Equal(t, []string{"a", "b"}, idx.Packages())
	assert.Equal(t, 2, sc.scans())
}

func TestDuplicateEntriesAreKept(t *testing.T) {
	sc := newCountingScanner()
	dir := classDir(t, "a/A.class")
	idx := newTestIndex("dups", []string{dir, dir}, sc, NopNotifier{})

	assert.Equal(t, []string{"a.A"}, idx.ClassesForPackage("a"))
	assert.Equal(t, []string{dir, dir}, idx.Entries())
	assert.Equal(t, 2, sc.scans())
}

func TestInvalidEntryDoesNotAbortBatch(t *testing.T) {
	n := newRecordingNotifier()
	text := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0o644))
	good := classDir(t, "ok/Good.class")
	idx := newTestIndex("mixed", []string{text, good}, newCountingScanner(), n)

	assert.Equal(t, []string{"ok.Good"}, idx.ClassesForPackage("ok"))
	require.Contains(t, n.errs, text)
	var ie *InvalidEntryError
	assert.ErrorAs(t, n.errs[text], &ie)
	assert.ErrorIs(t, n.errs[text], ErrInvalidEntry)

	// The same containment applies to an incremental batch.
	text2 := filepath.Join(t.TempDir(), "more.txt")
	require.NoError(t, os.WriteFile(text2, []byte("hello"), 0o644))
	idx.Add(text2, classDir(t, "ok/Later.class"))
	assert.Equal(t, []string{"ok.Good", "ok.Later"}, idx.ClassesForPackage("ok"))
	assert.ErrorIs(t, n.errs[text2], ErrInvalidEntry)
}

func TestMissingEntry(t *testing.T) {
	n := newRecordingNotifier()
	missing := filepath.Join(t.TempDir(), "gone")
	idx := newTestIndex("missing", []string{missing}, newCountingScanner(), n)

	assert.Empty(t, idx.Packages())
	assert.ErrorIs(t, n.errs[missing], ErrInvalidEntry)
	assert.ErrorIs(t, n.errs[missing], os.ErrNotExist)
}

func TestCorruptArchiveIsContained(t *testing.T) {
	n := newRecordingNotifier()
	bad := filepath.Join(t.TempDir(), "bad.jar")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o644))
	good := jarFile(t, "good.jar", "g/G.class")
	idx := newTestIndex("jars", []string{bad, good}, newCountingScanner(), n)

	assert.Equal(t, []string{"g"}, idx.Packages())
	var ae *ArchiveError
	assert.ErrorAs(t, n.errs[bad], &ae)
	assert.Len(t, n.errs, 1)
}

func TestMappingMessages(t *testing.T) {
	n := newRecordingNotifier()
	dir := classDir(t, "a/A.class")
	jar := jarFile(t, "x.jar", "x/X.class")
	idx := newTestIndex("msgs", []string{dir, jar}, newCountingScanner(), n)
	idx.EnsureInitialized()

	assert.Equal(t, []string{"Directory " + dir, "Archive: " + jar}, n.messages)
}

func TestConcurrentInitialization(t *testing.T) {
	sc := newCountingScanner()
	n := newRecordingNotifier()
	child := newTestIndex("child", []string{classDir(t, "c/C.class")}, sc, NopNotifier{})
	idx := newTestIndex("concurrent", []string{classDir(t, "p/P.class"), jarFile(t, "j.jar", "p/J.class")}, sc, n)
	require.NoError(t, idx.AddChild(child))

	var wg sync.WaitGroup
	results := make([][]string, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				idx.EnsureInitialized()
			}
			results[i] = idx.ClassesForPackage("p")
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, []string{"p.J", "p.P"}, r)
	}
	assert.Equal(t, 3, sc.scans())
	assert.Equal(t, 1, n.starts)
}

func TestReset(t *testing.T) {
	sc := newCountingScanner()
	idx := newTestIndex("reset", []string{classDir(t, "a/A.class")}, sc, NopNotifier{})
	require.NoError(t, idx.AddChild(newTestIndex("child", []string{classDir(t, "c/C.class")}, sc, NopNotifier{})))
	idx.EnsureInitialized()

	idx.Reset()
	assert.Equal(t, Stats{}, idx.Stats())
	assert.Empty(t, idx.Children())
	assert.Empty(t, idx.Packages())
	assert.True(t, idx.Initialized())

	idx.SetPath(classDir(t, "b/B.class"))
	assert.False(t, idx.Initialized())
	assert.Equal(t, []string{"b"}, idx.Packages())
}

func TestSetClassSourcePins(t *testing.T) {
	dir := classDir(t, "gen/G.class")
	idx := newTestIndex("pin", []string{dir}, newCountingScanner(), NopNotifier{})
	pinned := source.NewGenerated([]byte{0xca, 0xfe, 0xba, 0xbe})
	idx.SetClassSource("gen/G.class", pinned)

	src, ok := idx.ClassSource("gen.G")
	require.True(t, ok)
	assert.Equal(t, pinned, src)

	idx.SetClassSource("gen.Only", pinned)
	assert.Equal(t, []string{"gen.G", "gen.Only"}, idx.ClassesForPackage("gen"))
}

func TestAddChildRejectsCycles(t *testing.T) {
	a := newTestIndex("a", nil, newCountingScanner(), NopNotifier{})
	b := newTestIndex("b", nil, newCountingScanner(), NopNotifier{})
	require.NoError(t, a.AddChild(b))

	assert.ErrorIs(t, b.AddChild(a), ErrCycle)
	assert.ErrorIs(t, a.AddChild(a), ErrCycle)
	assert.Error(t, a.AddChild(nil))
}

func TestAddChildAfterInitialization(t *testing.T) {
	parent := newTestIndex("parent", nil, newCountingScanner(), NopNotifier{})
	parent.EnsureInitialized()
	child := newTestIndex("child", []string{classDir(t, "k/K.class")}, newCountingScanner(), NopNotifier{})
	require.NoError(t, parent.AddChild(child))

	assert.True(t, child.Initialized())
	assert.Equal(t, []string{"k.K"}, parent.ClassesForPackage("k"))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	text := filepath.Join(t.TempDir(), "x.txt")
	require.NoError(t, os.WriteFile(text, nil, 0o644))
	idx := New("metrics", []string{classDir(t, "a/A.class", "a/B.class"), jarFile(t, "j.jar", "j/J.class"), text},
		WithScanner(newCountingScanner()), WithNotifier(NopNotifier{}), WithMetrics(m))
	idx.EnsureInitialized()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EntryScans.WithLabelValues(kindDirectory, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EntryScans.WithLabelValues(kindArchive, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EntryScans.WithLabelValues(kindInvalid, "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ClassesMapped))
}

func TestUserClassPathEntries(t *testing.T) {
	dir := t.TempDir()
	real, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	missing := filepath.Join(real, "missing.jar")
	value := dir + string(os.PathListSeparator) + string(os.PathListSeparator) + missing

	got, err := UserClassPathEntries(value)
	require.NoError(t, err)
	assert.Equal(t, []string{real, missing}, got)

	empty, err := UserClassPathEntries("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUserClassPathEntriesRelative(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	got, err := UserClassPathEntries("classes")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "classes"), got[0])
}

func TestUserClassPathConfigurationError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on ENOTDIR semantics")
	}
	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	value := t.TempDir() + string(os.PathListSeparator) + filepath.Join(file, "below")

	got, err := UserClassPathEntries(value)
	assert.Nil(t, got)
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, ErrConfiguration)

	idx, err := UserClassPath(value)
	assert.Nil(t, idx)
	assert.Error(t, err)
}

func TestUserClassPath(t *testing.T) {
	dir := classDir(t, "u/U.class")
	idx, err := UserClassPath(dir, WithNotifier(NopNotifier{}))
	require.NoError(t, err)
	assert.Equal(t, UserClassPathName, idx.Name())
	assert.Equal(t, []string{"u.U"}, idx.ClassesForPackage("u"))
}

func TestStatsAndString(t *testing.T) {
	sc := newCountingScanner()
	dir := classDir(t, "a/A.class", "a/B.class", "b/C.class")
	idx := newTestIndex("stats", []string{dir, "nope.txt"}, sc, NopNotifier{})
	require.NoError(t, idx.AddChild(newTestIndex("kid", nil, sc, NopNotifier{})))

	assert.Equal(t, Stats{Entries: 2, Children: 1}, idx.Stats())
	idx.EnsureInitialized()
	assert.Equal(t, Stats{Entries: 2, Mapped: 2, Children: 1, Packages: 2, Classes: 3, Initialized: true}, idx.Stats())

	s := idx.String()
	assert.Contains(t, s, "Index stats")
	assert.Contains(t, s, dir)
	assert.Contains(t, s, "children=[kid]")
}
