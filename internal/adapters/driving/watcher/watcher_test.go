package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dquery/internal/core/domain"
)

const testDebounce = 50 * time.Millisecond

// mockPipeline counts ingest calls per path.
type mockPipeline struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
	next  domain.RecordID
}

func newMockPipeline() *mockPipeline {
	return &mockPipeline{calls: make(map[string]int)}
}

func (m *mockPipeline) IngestDocument(_ context.Context, doc domain.Document) (domain.RecordID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[doc.Path]++
	if m.err != nil {
		return 0, m.err
	}
	m.next++
	return m.next, nil
}

func (m *mockPipeline) RunQuery(context.Context, string, int) (*domain.QueryResult, error) {
	return &domain.QueryResult{}, nil
}

func (m *mockPipeline) Count(context.Context) (int64, error) {
	return 0, nil
}

func (m *mockPipeline) Record(context.Context, domain.RecordID) (*domain.IndexedRecord, error) {
	return nil, domain.ErrNotFound
}

func (m *mockPipeline) callsFor(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[path]
}

func (m *mockPipeline) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

// startWatcher runs w in the background and returns a channel of results.
func startWatcher(t *testing.T, w *Watcher) <-chan Result {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan Result, 16)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(r Result) { results <- r })
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	// Give fsnotify time to register the watches.
	time.Sleep(50 * time.Millisecond)
	return results
}

func waitResult(t *testing.T, results <-chan Result) Result {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for ingestion")
		return Result{}
	}
}

func writePDF(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n"), 0o600))
}

func TestNew_DefaultDebounce(t *testing.T) {
	w := New(t.TempDir(), newMockPipeline(), Config{})
	assert.Equal(t, DefaultDebounce, w.cfg.Debounce)
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden.pdf", true},
		{"scans/.tmp/a.pdf", true},
		{"/home/user/.cache/b.pdf", true},
		{"a.pdf", false},
		{"scans/2024/a.pdf", false},
		{".", false},
		{"..", false},
		{"../scans/a.pdf", false},
		{"report.v2.pdf", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHidden(tt.path))
		})
	}
}

func TestWatcher_HiddenIsRelativeToRoot(t *testing.T) {
	w := New("/home/user/.local/scans", newMockPipeline(), Config{})

	assert.False(t, w.hidden("/home/user/.local/scans/a.pdf"))
	assert.True(t, w.hidden("/home/user/.local/scans/.partial/a.pdf"))
}

func TestIsPDF(t *testing.T) {
	assert.True(t, isPDF("scan.pdf"))
	assert.True(t, isPDF("SCAN.PDF"))
	assert.False(t, isPDF("scan.pdf.part"))
	assert.False(t, isPDF("notes.txt"))
	assert.False(t, isPDF("pdf"))
}

func TestDue(t *testing.T) {
	now := time.Now()
	pending := map[string]time.Time{
		"/b.pdf": now.Add(-time.Second),
		"/a.pdf": now.Add(-2 * time.Second),
		"/c.pdf": now.Add(-100 * time.Millisecond),
	}

	assert.Equal(t, []string{"/a.pdf", "/b.pdf"}, due(pending, now, 500*time.Millisecond))
	assert.Empty(t, due(pending, now, 5*time.Second))
}

func TestWatcher_Classify(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "scan.pdf")
	txt := filepath.Join(dir, "notes.txt")
	hidden := filepath.Join(dir, ".scan.pdf")
	sub := filepath.Join(dir, "sub")
	writePDF(t, pdf)
	writePDF(t, txt)
	writePDF(t, hidden)
	require.NoError(t, os.Mkdir(sub, 0o700))

	tests := []struct {
		name      string
		path      string
		op        fsnotify.Op
		recursive bool
		expected  change
	}{
		{"create pdf", pdf, fsnotify.Create, false, changeUpdated},
		{"write pdf", pdf, fsnotify.Write, false, changeUpdated},
		{"chmod pdf", pdf, fsnotify.Chmod, false, changeNone},
		{"remove pdf", filepath.Join(dir, "gone.pdf"), fsnotify.Remove, false, changeGone},
		{"rename pdf", filepath.Join(dir, "moved.pdf"), fsnotify.Rename, false, changeGone},
		{"create text file", txt, fsnotify.Create, false, changeNone},
		{"create hidden pdf", hidden, fsnotify.Create, false, changeNone},
		{"create vanished pdf", filepath.Join(dir, "tmp.pdf"), fsnotify.Create, false, changeNone},
		{"create dir", sub, fsnotify.Create, false, changeNone},
		{"create dir recursive", sub, fsnotify.Create, true, changeNewDir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(dir, newMockPipeline(), Config{Recursive: tt.recursive})
			got := w.classify(fsnotify.Event{Name: tt.path, Op: tt.op})
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestWatcher_Run_NotDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "a.pdf")
	writePDF(t, file)

	err := New(file, newMockPipeline(), Config{}).Run(context.Background(), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotDirectory)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWatcher_Run_MissingDirectory(t *testing.T) {
	err := New(filepath.Join(t.TempDir(), "absent"), newMockPipeline(), Config{}).Run(context.Background(), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWatcher_Run_IngestsNewPDF(t *testing.T) {
	dir := t.TempDir()
	p := newMockPipeline()
	results := startWatcher(t, New(dir, p, Config{Debounce: testDebounce}))

	path := filepath.Join(dir, "invoice.pdf")
	writePDF(t, path)

	r := waitResult(t, results)
	assert.Equal(t, path, r.Path)
	assert.Equal(t, domain.RecordID(1), r.ID)
	assert.NoError(t, r.Err)
}

func TestWatcher_Run_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	p := newMockPipeline()
	results := startWatcher(t, New(dir, p, Config{Debounce: 150 * time.Millisecond}))

	path := filepath.Join(dir, "large.pdf")
	for i := 0; i < 3; i++ {
		writePDF(t, path)
		time.Sleep(20 * time.Millisecond)
	}

	waitResult(t, results)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, p.callsFor(path))
}

func TestWatcher_Run_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	p := newMockPipeline()
	results := startWatcher(t, New(dir, p, Config{Debounce: testDebounce}))

	writePDF(t, filepath.Join(dir, "notes.txt"))
	writePDF(t, filepath.Join(dir, ".partial.pdf"))
	writePDF(t, filepath.Join(dir, "real.pdf"))

	r := waitResult(t, results)
	assert.Equal(t, filepath.Join(dir, "real.pdf"), r.Path)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, p.total())
}

func TestWatcher_Run_RemovedBeforeQuiet(t *testing.T) {
	dir := t.TempDir()
	p := newMockPipeline()
	startWatcher(t, New(dir, p, Config{Debounce: 200 * time.Millisecond}))

	path := filepath.Join(dir, "temp.pdf")
	writePDF(t, path)
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.Remove(path))

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 0, p.total())
}

func TestWatcher_Run_Recursive(t *testing.T) {
	dir := t.TempDir()
	p := newMockPipeline()
	results := startWatcher(t, New(dir, p, Config{Debounce: testDebounce, Recursive: true}))

	sub := filepath.Join(dir, "2024")
	require.NoError(t, os.Mkdir(sub, 0o700))
	time.Sleep(50 * time.Millisecond)

	path := filepath.Join(sub, "march.pdf")
	writePDF(t, path)

	r := waitResult(t, results)
	assert.Equal(t, path, r.Path)
}

func TestWatcher_Run_InitialScan(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, filepath.Join(dir, "b.pdf"))
	writePDF(t, filepath.Join(dir, "a.pdf"))
	writePDF(t, filepath.Join(dir, "skip.txt"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o700))
	writePDF(t, filepath.Join(dir, "nested", "c.pdf"))

	p := newMockPipeline()
	results := startWatcher(t, New(dir, p, Config{Debounce: testDebounce, InitialScan: true}))

	first := waitResult(t, results)
	second := waitResult(t, results)
	assert.Equal(t, filepath.Join(dir, "a.pdf"), first.Path)
	assert.Equal(t, filepath.Join(dir, "b.pdf"), second.Path)
	assert.Equal(t, 0, p.callsFor(filepath.Join(dir, "nested", "c.pdf")))
}

func TestWatcher_Run_ReportsIngestError(t *testing.T) {
	dir := t.TempDir()
	p := newMockPipeline()
	p.err = errors.New("tesseract not found")
	results := startWatcher(t, New(dir, p, Config{Debounce: testDebounce}))

	writePDF(t, filepath.Join(dir, "broken.pdf"))

	r := waitResult(t, results)
	assert.EqualError(t, r.Err, "tesseract not found")
	assert.Zero(t, r.ID)
}
