// Package watch is the optional filesystem watch-and-reingest loop
// SPEC_FULL.md §6 describes for the CLI, grounded nearly verbatim on the
// teacher's internal/watcher/file_watcher.go: recursive directory
// registration with depth/count limits, extension filtering, and a debounce
// timer that collapses rapid successive writes into one batched callback.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	defaultMaxDirectories = 1000
	defaultMaxDepth       = 10
	defaultDebounce       = 500 * time.Millisecond
)

var skipDirNames = map[string]bool{
	".git":          true,
	"node_modules":  true,
	".corpusengine": true,
}

// Watcher watches a set of root directories and invokes a callback with the
// batch of changed paths once no further change has arrived for the
// debounce period.
type Watcher struct {
	watcher    *fsnotify.Watcher
	extensions map[string]bool
	debounce   time.Duration
	callback   func([]string)
	maxDirs    int
	maxDepth   int

	ctx    context.Context
	cancel context.CancelFunc
	doneCh chan struct{}

	pausedMu sync.RWMutex
	paused   bool

	accumulatedMu sync.Mutex
	accumulated   map[string]bool

	timerMu sync.Mutex
	timer   *time.Timer
	fireCh  chan struct{}

	dirCountMu sync.Mutex
	dirCount   int

	stopOnce sync.Once
}

// Options configures a Watcher.
type Options struct {
	Extensions []string // e.g. []string{".go", ".md"}; empty means "all files"
	Debounce   time.Duration
	MaxDirs    int
	MaxDepth   int
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = defaultDebounce
	}
	if o.MaxDirs <= 0 {
		o.MaxDirs = defaultMaxDirectories
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = defaultMaxDepth
	}
	return o
}

// New creates a Watcher rooted at dirs, registering every subdirectory up
// to Options.MaxDepth/MaxDirs, grounded on the teacher's NewFileWatcher.
func New(dirs []string, opts Options) (*Watcher, error) {
	opts = opts.withDefaults()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	extMap := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		extMap[ext] = true
	}

	w := &Watcher{
		watcher:     fsw,
		extensions:  extMap,
		debounce:    opts.Debounce,
		maxDirs:     opts.MaxDirs,
		maxDepth:    opts.MaxDepth,
		accumulated: make(map[string]bool),
		doneCh:      make(chan struct{}),
	}

	for _, dir := range dirs {
		if err := w.addRecursively(dir, 0); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Start begins watching in a background goroutine, invoking callback with
// the batch of changed paths after each debounce period.
func (w *Watcher) Start(ctx context.Context, callback func([]string)) {
	w.callback = callback
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.fireCh = make(chan struct{}, 1)
	go w.loop()
}

// Pause suspends callback delivery; changes observed while paused are still
// accumulated and delivered as one batch on Resume.
func (w *Watcher) Pause() {
	w.pausedMu.Lock()
	w.paused = true
	w.pausedMu.Unlock()
}

// Resume un-pauses the watcher and, if changes accumulated while paused,
// fires the callback immediately with that batch.
func (w *Watcher) Resume() {
	w.pausedMu.Lock()
	w.paused = false
	w.pausedMu.Unlock()

	w.accumulatedMu.Lock()
	hasPending := len(w.accumulated) > 0
	w.accumulatedMu.Unlock()
	if hasPending {
		select {
		case w.fireCh <- struct{}{}:
		default:
		}
	}
}

func (w *Watcher) isPaused() bool {
	w.pausedMu.RLock()
	defer w.pausedMu.RUnlock()
	return w.paused
}

// Stop cancels the watch loop and releases the underlying fsnotify watcher.
// Idempotent.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.doneCh
		} else {
			close(w.doneCh)
		}
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) loop() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.ctx.Done():
			w.stopTimer()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursively(event.Name, 0); err != nil {
						log.Printf("watch: failed to watch new directory %s: %v", event.Name, err)
					}
				}
			}
			if !w.shouldProcess(event) {
				continue
			}
			w.accumulatedMu.Lock()
			w.accumulated[event.Name] = true
			w.accumulatedMu.Unlock()
			if !w.isPaused() {
				w.resetTimer(w.fireCh)
			}

		case <-w.fireCh:
			w.flush()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watch: fsnotify error: %v", err)
		}
	}
}

func (w *Watcher) flush() {
	if w.isPaused() {
		return
	}
	w.accumulatedMu.Lock()
	if len(w.accumulated) == 0 {
		w.accumulatedMu.Unlock()
		return
	}
	files := make([]string, 0, len(w.accumulated))
	for f := range w.accumulated {
		files = append(files, f)
	}
	w.accumulated = make(map[string]bool)
	w.accumulatedMu.Unlock()

	if w.callback != nil {
		w.callback(files)
	}
}

func (w *Watcher) resetTimer(fire chan struct{}) {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		if !w.timer.Stop() {
			select {
			case <-w.timer.C:
			default:
			}
		}
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
		return false
	}
	if len(w.extensions) == 0 {
		return true
	}
	return w.extensions[filepath.Ext(event.Name)]
}

func (w *Watcher) addRecursively(root string, depth int) error {
	if depth > w.maxDepth {
		return fmt.Errorf("watch: max depth %d exceeded at %s", w.maxDepth, root)
	}
	if skipDirNames[filepath.Base(root)] {
		return nil
	}

	w.dirCountMu.Lock()
	if w.dirCount >= w.maxDirs {
		count := w.dirCount
		w.dirCountMu.Unlock()
		return fmt.Errorf("watch: directory limit reached: %d watched (max %d)", count, w.maxDirs)
	}
	w.dirCountMu.Unlock()

	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("watch: read dir %s: %w", root, err)
	}

	w.dirCountMu.Lock()
	w.dirCount++
	w.dirCountMu.Unlock()

	if err := w.watcher.Add(root); err != nil {
		w.dirCountMu.Lock()
		w.dirCount--
		w.dirCountMu.Unlock()
		return fmt.Errorf("watch: add %s: %w", root, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() || skipDirNames[entry.Name()] {
			continue
		}
		if err := w.addRecursively(filepath.Join(root, entry.Name()), depth+1); err != nil {
			log.Printf("watch: %v", err)
		}
	}
	return nil
}
