// Package ingest watches a drop folder for statement CSVs and uploads
// each new file to the backend. Editors and downloads produce bursts
// of Create/Write events for one file, so uploads are debounced until
// the file has settled.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/finsight/internal/api"
	"github.com/fyrsmithlabs/finsight/internal/finance"
)

// ErrWatcherFailed indicates the filesystem watcher failed to
// initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// defaultSettle is how long a file must be quiet before upload.
const defaultSettle = 500 * time.Millisecond

// Uploader is the slice of the store the watcher needs. It returns the
// number of transactions the backend imported.
type Uploader interface {
	Upload(ctx context.Context, id api.Identity, filename string, r io.Reader) (int, error)
}

// Result reports the outcome of one attempted upload.
type Result struct {
	Path     string
	Imported int
	Err      error
}

// Watcher watches one directory for new statement CSVs.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	uploader Uploader
	identity api.Identity
	logger   *zap.Logger
	settle   time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer

	results chan Result
	stop    chan struct{}
	stopped sync.Once
}

// New creates a watcher for dir. Start must be called before any
// events are delivered.
func New(dir string, uploader Uploader, identity api.Identity, logger *zap.Logger) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cannot watch %s: not a directory", dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Watcher{
		dir:      dir,
		watcher:  fw,
		uploader: uploader,
		identity: identity,
		logger:   logger,
		settle:   defaultSettle,
		timers:   map[string]*time.Timer{},
		results:  make(chan Result, 16),
		stop:     make(chan struct{}),
	}, nil
}

// Start begins watching. Events are processed in a background
// goroutine until Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.logger.Info("watching statement folder", zap.String("dir", w.dir))
	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.stopped.Do(func() {
		close(w.stop)
		_ = w.watcher.Close()
	})
}

// Results returns the channel upload outcomes are delivered on.
func (w *Watcher) Results() <-chan Result {
	return w.results
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			w.Stop()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !finance.IsCSVFilename(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// schedule arms (or re-arms) the settle timer for a file, so a burst
// of events yields a single upload.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.timers[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.upload(ctx, path)
	})
}

// upload preview-validates the file locally, then sends it. Validation
// failures are reported as results, not fatal errors; the watcher
// keeps running.
func (w *Watcher) upload(ctx context.Context, path string) {
	select {
	case <-w.stop:
		return
	default:
	}

	f, err := os.Open(path)
	if err != nil {
		w.report(Result{Path: path, Err: fmt.Errorf("failed to open statement: %w", err)})
		return
	}
	defer f.Close()

	if _, err := finance.ReadStatement(f); err != nil {
		w.report(Result{Path: path, Err: fmt.Errorf("statement rejected: %w", err)})
		return
	}
	if _, err := f.Seek(0, 0); err != nil {
		w.report(Result{Path: path, Err: err})
		return
	}

	n, err := w.uploader.Upload(ctx, w.identity, filepath.Base(path), f)
	if err != nil {
		w.logger.Warn("auto-upload failed", zap.String("file", path), zap.Error(err))
		w.report(Result{Path: path, Err: err})
		return
	}
	w.logger.Info("auto-uploaded statement", zap.String("file", path), zap.Int("imported", n))
	w.report(Result{Path: path, Imported: n})
}

// report delivers a result without ever blocking the watcher.
func (w *Watcher) report(r Result) {
	select {
	case w.results <- r:
	default:
		w.logger.Debug("dropping unread watch result", zap.String("file", r.Path))
	}
}
