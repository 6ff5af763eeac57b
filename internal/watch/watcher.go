// Package watch triggers a callback when declaration files change.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDelay is the quiet period after the last change before the callback runs.
const DefaultDelay = 100 * time.Millisecond

// Watcher monitors declaration files and directories and calls OnChange with
// the changed files once they stop changing.
type Watcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	log       *zap.Logger
	patterns  []string
	ignored   []string
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// Options configures a Watcher.
type Options struct {
	// Patterns are the base name globs of watched files, e.g. "*.go". Empty matches all.
	Patterns []string
	// Ignored are directories whose content never triggers the callback, typically
	// the output directory of the generator.
	Ignored []string
	// Delay defaults to DefaultDelay.
	Delay  time.Duration
	Logger *zap.Logger
}

// New returns a watcher calling onChange. Errors returned by onChange are logged.
func New(opts Options, onChange func([]string) error) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	w := &Watcher{
		watcher:   fw,
		debouncer: NewDebouncer(delay),
		log:       log,
		patterns:  opts.Patterns,
		stopChan:  make(chan struct{}),
	}
	for _, dir := range opts.Ignored {
		if dir == "" {
			continue
		}
		if abs, err := filepath.Abs(dir); err == nil {
			w.ignored = append(w.ignored, abs)
		}
	}
	w.debouncer.SetCallback(func(files []string) {
		if err := onChange(files); err != nil {
			w.log.Error("change handler failed", zap.Strings("files", files), zap.Error(err))
		}
	})
	return w, nil
}

// Start watches the given files and directories. A file is watched through its
// directory, so editors replacing it on save keep triggering events.
func (w *Watcher) Start(paths ...string) error {
	seen := make(map[string]bool)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		dir := p
		if !info.IsDir() {
			dir = filepath.Dir(p)
		}
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		w.log.Debug("watching directory", zap.String("dir", dir))
	}
	w.wg.Add(1)
	go w.watch()
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() error {
	select {
	case <-w.stopChan:
		return nil
	default:
		close(w.stopChan)
	}
	w.wg.Wait()
	w.debouncer.Stop()
	return w.watcher.Close()
}

func (w *Watcher) watch() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if w.shouldIgnore(event.Name) || !w.matches(event.Name) {
				continue
			}
			w.log.Debug("file changed", zap.String("file", event.Name), zap.Stringer("op", event.Op))
			w.debouncer.Add(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-w.stopChan:
			return
		}
	}
}

// shouldIgnore reports if a path is hidden, a test file or inside an ignored directory.
func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "_test.go") {
		return true
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, dir := range w.ignored {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) matches(path string) bool {
	if len(w.patterns) == 0 {
		return true
	}
	base := filepath.Base(path)
	for _, pattern := range w.patterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// Debouncer collects file changes and calls back once no change happened
// for its duration.
type Debouncer struct {
	duration time.Duration
	timer    *time.Timer
	files    map[string]struct{}
	mutex    sync.Mutex
	callback func([]string)
	stopped  bool
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
		files:    make(map[string]struct{}),
	}
}

// Add records a changed file and restarts the quiet period.
func (d *Debouncer) Add(file string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.stopped {
		return
	}
	d.files[file] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, d.flush)
}

// flush calls back with the accumulated files, sorted.
func (d *Debouncer) flush() {
	d.mutex.Lock()
	if d.stopped || len(d.files) == 0 {
		d.mutex.Unlock()
		return
	}
	files := make([]string, 0, len(d.files))
	for file := range d.files {
		files = append(files, file)
	}
	d.files = make(map[string]struct{})
	callback := d.callback
	d.mutex.Unlock()

	slices.Sort(files)
	if callback != nil {
		callback(files)
	}
}

// SetCallback sets the callback function.
func (d *Debouncer) SetCallback(callback func([]string)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.callback = callback
}

// Stop cancels a pending callback. Later changes are dropped.
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.stopped = true
}
