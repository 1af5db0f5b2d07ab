package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/finsight/internal/api"
)

const sampleStatement = "Date,Description,Amount\n2024-01-15,Coffee Shop,-4.50\n2024-01-16,Paycheck,3500.00\n"

type fakeUploader struct {
	mu       sync.Mutex
	uploads  []string
	imported int
	err      error
}

func (f *fakeUploader) Upload(_ context.Context, _ api.Identity, filename string, r io.Reader) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := io.ReadAll(r); err != nil {
		return 0, err
	}
	f.uploads = append(f.uploads, filename)
	if f.err != nil {
		return 0, f.err
	}
	return f.imported, nil
}

func (f *fakeUploader) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func newTestWatcher(t *testing.T, dir string, up Uploader) *Watcher {
	t.Helper()
	w, err := New(dir, up, api.Identity{UserID: "user_1", Email: "a@b.c"}, zap.NewNop())
	require.NoError(t, err)
	w.settle = 50 * time.Millisecond
	t.Cleanup(w.Stop)
	return w
}

func waitResult(t *testing.T, w *Watcher) Result {
	t.Helper()
	select {
	case r := <-w.Results():
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for watch result")
		return Result{}
	}
}

func TestWatcher_UploadsNewCSV(t *testing.T) {
	tmpDir := t.TempDir()
	up := &fakeUploader{imported: 2}
	w := newTestWatcher(t, tmpDir, up)

	require.NoError(t, w.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)

	path := filepath.Join(tmpDir, "statement.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleStatement), 0644))

	r := waitResult(t, w)
	require.NoError(t, r.Err)
	assert.Equal(t, path, r.Path)
	assert.Equal(t, 2, r.Imported)
	assert.Equal(t, []string{"statement.csv"}, up.uploads)
}

func TestWatcher_IgnoresNonCSV(t *testing.T) {
	tmpDir := t.TempDir()
	up := &fakeUploader{imported: 2}
	w := newTestWatcher(t, tmpDir, up)

	require.NoError(t, w.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("hello"), 0644))

	select {
	case r := <-w.Results():
		t.Fatalf("should not upload non-CSV file, got: %+v", r)
	case <-time.After(300 * time.Millisecond):
		// Expected - no result
	}
	assert.Zero(t, up.uploadCount())
}

func TestWatcher_DebouncesEventBursts(t *testing.T) {
	tmpDir := t.TempDir()
	up := &fakeUploader{imported: 2}
	w := newTestWatcher(t, tmpDir, up)

	require.NoError(t, w.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)

	// Simulate an editor writing the file in chunks.
	path := filepath.Join(tmpDir, "burst.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = f.WriteString("Date,Description,Amount\n")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = f.WriteString("2024-01-15,Coffee Shop,-4.50\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	r := waitResult(t, w)
	require.NoError(t, r.Err)
	assert.Equal(t, 1, up.uploadCount(), "burst of events should yield a single upload")
}

func TestWatcher_ReportsInvalidStatement(t *testing.T) {
	tmpDir := t.TempDir()
	up := &fakeUploader{imported: 2}
	w := newTestWatcher(t, tmpDir, up)

	require.NoError(t, w.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)

	path := filepath.Join(tmpDir, "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("Foo,Bar\n1,2\n"), 0644))

	r := waitResult(t, w)
	require.Error(t, r.Err)
	assert.Zero(t, up.uploadCount(), "invalid statement must not reach the backend")

	// Watcher keeps running after a rejection.
	good := filepath.Join(tmpDir, "good.csv")
	require.NoError(t, os.WriteFile(good, []byte(sampleStatement), 0644))
	r = waitResult(t, w)
	require.NoError(t, r.Err)
	assert.Equal(t, 2, r.Imported)
}

func TestWatcher_ReportsUploadError(t *testing.T) {
	tmpDir := t.TempDir()
	up := &fakeUploader{err: errors.New("backend down")}
	w := newTestWatcher(t, tmpDir, up)

	require.NoError(t, w.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "statement.csv"), []byte(sampleStatement), 0644))

	r := waitResult(t, w)
	require.Error(t, r.Err)
	assert.Contains(t, r.Err.Error(), "backend down")
}

func TestWatcher_StopAndCleanup(t *testing.T) {
	tmpDir := t.TempDir()
	up := &fakeUploader{imported: 2}
	w := newTestWatcher(t, tmpDir, up)

	require.NoError(t, w.Start(context.Background()))
	w.Stop()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "statement.csv"), []byte(sampleStatement), 0644))

	select {
	case r := <-w.Results():
		t.Fatalf("should not receive result after stop, got: %+v", r)
	case <-time.After(300 * time.Millisecond):
		// Expected - no result after stop
	}
}

func TestNew_RejectsMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), &fakeUploader{}, api.Identity{}, nil)
	assert.Error(t, err)
}
