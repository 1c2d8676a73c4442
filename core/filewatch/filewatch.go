// Package filewatch wraps fsnotify with the portable event taxonomy the
// asset pipeline's dirty-tracking needs: created/modified/removed/renamed,
// plus a synthesized "fuzzy" event for each directory that changed, sent
// once the watcher has been quiet for a configurable window, and an
// overflow marker when fsnotify reports an error or the event channel is
// too full to take another event.
package filewatch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventType classifies one watch event.
type EventType int

const (
	Created EventType = iota
	RenamedTo
	Modified
	Removed
	RenamedFrom
	Other
	// Fuzzy is synthesized for every directory that saw a change, once no
	// change has arrived for the watcher's report timeout. The individual
	// events for those changes are still reported as they arrive.
	Fuzzy
	// QueueOverflow is synthesized when fsnotify reports an error, or when
	// the Events channel is full and an event has to be dropped.
	QueueOverflow
)

func (t EventType) String() string {
	switch t {
	case Created:
		return "Created"
	case RenamedTo:
		return "RenamedTo"
	case Modified:
		return "Modified"
	case Removed:
		return "Removed"
	case RenamedFrom:
		return "RenamedFrom"
	case Fuzzy:
		return "Fuzzy"
	case QueueOverflow:
		return "QueueOverflow"
	default:
		return "Other"
	}
}

// Event is one reported change. Parent and Filename are split apart (rather
// than one joined path) so a consumer can dedupe by directory without
// calling filepath.Dir repeatedly.
type Event struct {
	Type     EventType
	Parent   string
	Filename string
}

// Path rejoins Parent and Filename.
func (e Event) Path() string { return filepath.Join(e.Parent, e.Filename) }

// Watcher watches a directory tree and emits a coalesced Event stream.
// Unlike a raw fsnotify.Watcher it recurses into subdirectories at Watch
// time and, after a quiet period, synthesizes a Fuzzy event for each
// directory that changed.
type Watcher struct {
	inner  *fsnotify.Watcher
	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup

	reportTimeout time.Duration

	mu      sync.Mutex
	pending map[string]time.Time // directory -> last change, for Fuzzy coalescing
	timer   *time.Timer

	ignore func(name string) bool
}

// defaultIgnore skips VCS and build-output directories, matching the
// teacher's shouldIgnore policy.
func defaultIgnore(name string) bool {
	switch name {
	case ".git", "node_modules", ".cache":
		return true
	default:
		return false
	}
}

// New starts a watcher rooted at root. reportTimeout is the quiet window
// after the last detected change (in any watched directory) before a Fuzzy
// event fires for each directory that changed; zero or less disables Fuzzy
// events. It mirrors start_file_watcher's event_report_timeout_ns parameter.
func New(root string, reportTimeout time.Duration) (*Watcher, error) {
	inner, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("filewatch: %w", err)
	}
	w := &Watcher{
		inner:         inner,
		events:        make(chan Event, 256),
		done:          make(chan struct{}),
		reportTimeout: reportTimeout,
		pending:       make(map[string]time.Time),
		ignore:        defaultIgnore,
	}
	if err := w.Watch(root); err != nil {
		inner.Close()
		return nil, err
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Watch adds path, and recursively every non-ignored subdirectory beneath
// it, to the watch set.
func (w *Watcher) Watch(path string) error {
	if err := w.inner.Add(path); err != nil {
		return fmt.Errorf("filewatch: watch %s: %w", path, err)
	}
	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || p == path {
			return nil
		}
		if w.ignore(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.inner.Add(p); err != nil {
			return fmt.Errorf("filewatch: watch %s: %w", p, err)
		}
		return nil
	})
}

// Events returns the channel of coalesced events. It is closed after Close
// has fully drained the underlying watcher.
func (w *Watcher) Events() <-chan Event { return w.events }

// Close stops the watcher and closes Events once the processing goroutine
// has exited.
func (w *Watcher) Close() error {
	err := w.inner.Close()
	close(w.done)
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.events)
	return err
}

func classify(op fsnotify.Op) EventType {
	switch {
	case op&fsnotify.Create != 0:
		return Created
	case op&fsnotify.Write != 0:
		return Modified
	case op&fsnotify.Remove != 0:
		return Removed
	case op&fsnotify.Rename != 0:
		// fsnotify reports a bare Rename for the source path; the
		// destination path arrives as a separate Create event, matching
		// the spec's RenamedFrom/RenamedTo split.
		return RenamedFrom
	default:
		return Other
	}
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.inner.Events:
			if !ok {
				return
			}
			if w.ignore(filepath.Base(ev.Name)) {
				continue
			}
			w.dispatch(Event{
				Type:     classify(ev.Op),
				Parent:   filepath.Dir(ev.Name),
				Filename: filepath.Base(ev.Name),
			})
		case _, ok := <-w.inner.Errors:
			if !ok {
				return
			}
			w.dispatch(Event{Type: QueueOverflow})
		}
	}
}

func (w *Watcher) dispatch(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.reportTimeout <= 0 || ev.Type == QueueOverflow {
		w.emitLocked(ev)
		return
	}

	w.pending[ev.Parent] = time.Now()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.reportTimeout, w.flushFuzzy)
	w.emitLocked(ev)
}

func (w *Watcher) flushFuzzy() {
	w.mu.Lock()
	dirs := w.pending
	w.pending = make(map[string]time.Time)
	w.mu.Unlock()

	for dir := range dirs {
		select {
		case w.events <- Event{Type: Fuzzy, Parent: dir}:
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) emitLocked(ev Event) {
	select {
	case w.events <- ev:
	default:
		// Consumer fell behind; rather than block the fsnotify goroutine
		// (which would eventually back up the OS-level queue too) report
		// an overflow and drop this event.
		select {
		case w.events <- Event{Type: QueueOverflow}:
		default:
		}
	}
}
