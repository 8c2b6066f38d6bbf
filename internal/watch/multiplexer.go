// Package watch shares one filesystem watcher between many repository
// roots and fans every event out to dynamically registered callbacks.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Handler receives every event of the shared watcher. Deciding whether an
// event concerns it is the handler's job. Handlers run on the event
// goroutine and must not block for long.
type Handler func(fsnotify.Event)

type Multiplexer struct {
	// pathsMu guards roots, dirRefs, watcher and closed.
	pathsMu sync.RWMutex
	// roots maps each registered root to the directories watched for it.
	roots   map[string]map[string]struct{}
	dirRefs map[string]int
	watcher *fsnotify.Watcher
	closed  bool

	cbMu      sync.RWMutex
	callbacks map[uint64]Handler
	nextID    atomic.Uint64

	wg sync.WaitGroup
}

func New() *Multiplexer {
	return &Multiplexer{
		roots:     map[string]map[string]struct{}{},
		dirRefs:   map[string]int{},
		callbacks: map[uint64]Handler{},
	}
}

// Start creates the underlying watcher and subscribes every root added so
// far. Calling Start again is a no-op.
func (m *Multiplexer) Start() error {
	const op = "start"
	m.pathsMu.Lock()
	defer m.pathsMu.Unlock()
	if m.closed {
		return &Error{Code: CodeOther, Op: op, Err: ErrClosed}
	}
	if m.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return &Error{Code: CodeOther, Op: op, Err: fmt.Errorf("fsnotify: %w", err)}
	}
	m.watcher = w
	for root := range m.roots {
		if err := m.addTreeLocked(root); err != nil {
			m.watcher = nil
			m.resetDirsLocked()
			return errors.Join(&Error{Code: CodeAddWatcherFailed, Op: op, Path: root, Err: err}, w.Close())
		}
	}
	m.wg.Add(1)
	go m.loop(w)
	slog.Debug("watcher started", slog.Int("roots", len(m.roots)))
	return nil
}

// Close stops the watcher and waits for in-flight dispatch to finish.
func (m *Multiplexer) Close() error {
	m.pathsMu.Lock()
	if m.closed {
		m.pathsMu.Unlock()
		return nil
	}
	m.closed = true
	w := m.watcher
	m.watcher = nil
	m.resetDirsLocked()
	m.pathsMu.Unlock()

	if w == nil {
		return nil
	}
	err := w.Close()
	m.wg.Wait()
	if err != nil {
		return &Error{Code: CodeOther, Op: "close", Err: err}
	}
	return nil
}

// AddPath registers root recursively. A root that is already registered is
// left alone. When the watcher runs, only root is subscribed.
func (m *Multiplexer) AddPath(root string) error {
	const op = "add_path"
	root, err := cleanPath(root)
	if err != nil {
		return &Error{Code: CodeAddWatcherFailed, Op: op, Path: root, Err: err}
	}
	m.pathsMu.Lock()
	defer m.pathsMu.Unlock()
	if m.closed {
		return &Error{Code: CodeAddWatcherFailed, Op: op, Path: root, Err: ErrClosed}
	}
	if _, ok := m.roots[root]; ok {
		return nil
	}
	m.roots[root] = map[string]struct{}{}
	if m.watcher == nil {
		return nil
	}
	if err := m.addTreeLocked(root); err != nil {
		m.releaseLocked(root)
		delete(m.roots, root)
		return &Error{Code: CodeAddWatcherFailed, Op: op, Path: root, Err: err}
	}
	slog.Debug("watch path added", slog.String("path", root), slog.Int("dirs", len(m.roots[root])))
	return nil
}

// RemovePath unregisters root. Events under it stop reaching every
// callback, unless another registered root still covers them.
func (m *Multiplexer) RemovePath(root string) error {
	const op = "remove_path"
	root, err := cleanPath(root)
	if err != nil {
		return &Error{Code: CodeRemoveWatcherFailed, Op: op, Path: root, Err: err}
	}
	m.pathsMu.Lock()
	defer m.pathsMu.Unlock()
	if _, ok := m.roots[root]; !ok {
		return nil
	}
	err = m.releaseLocked(root)
	delete(m.roots, root)
	if err != nil {
		return &Error{Code: CodeRemoveWatcherFailed, Op: op, Path: root, Err: err}
	}
	slog.Debug("watch path removed", slog.String("path", root))
	return nil
}

// Paths returns the registered roots, sorted.
func (m *Multiplexer) Paths() []string {
	m.pathsMu.RLock()
	defer m.pathsMu.RUnlock()
	paths := make([]string, 0, len(m.roots))
	for root := range m.roots {
		paths = append(paths, root)
	}
	slices.Sort(paths)
	return paths
}

// AddCallback registers h and returns its id. Ids are never reused.
func (m *Multiplexer) AddCallback(h Handler) uint64 {
	id := m.nextID.Add(1)
	m.cbMu.Lock()
	m.callbacks[id] = h
	m.cbMu.Unlock()
	return id
}

func (m *Multiplexer) RemoveCallback(id uint64) {
	m.cbMu.Lock()
	delete(m.callbacks, id)
	m.cbMu.Unlock()
}

// dispatch calls the callbacks registered when the event arrived. The
// registry lock is not held during the calls, so handlers may add or
// remove callbacks.
func (m *Multiplexer) dispatch(ev fsnotify.Event) {
	m.cbMu.RLock()
	handlers := make([]Handler, 0, len(m.callbacks))
	for _, h := range m.callbacks {
		handlers = append(handlers, h)
	}
	m.cbMu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (m *Multiplexer) loop(w *fsnotify.Watcher) {
	defer m.wg.Done()
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			m.track(ev)
			m.dispatch(ev)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

// track keeps the recursive subscription in sync with directories created
// or removed below registered roots.
func (m *Multiplexer) track(ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Create):
		info, err := os.Stat(ev.Name)
		if err != nil || !info.IsDir() {
			return
		}
		m.pathsMu.Lock()
		defer m.pathsMu.Unlock()
		if m.watcher == nil {
			return
		}
		for root := range m.roots {
			if !within(root, ev.Name) {
				continue
			}
			if err := m.addSubtreeLocked(root, ev.Name); err != nil {
				slog.Debug("watch new directory", slog.String("path", ev.Name), slog.Any("error", err))
			}
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		m.pathsMu.Lock()
		defer m.pathsMu.Unlock()
		if _, ok := m.dirRefs[ev.Name]; !ok {
			return
		}
		// The kernel dropped the watch together with the directory.
		delete(m.dirRefs, ev.Name)
		for _, dirs := range m.roots {
			delete(dirs, ev.Name)
		}
	}
}

func (m *Multiplexer) addTreeLocked(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}
	return m.addSubtreeLocked(root, root)
}

func (m *Multiplexer) addSubtreeLocked(root, dir string) error {
	dirs := m.roots[root]
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if skipDir(path) {
			return filepath.SkipDir
		}
		if _, ok := dirs[path]; ok {
			return nil
		}
		if m.dirRefs[path] == 0 {
			if err := m.watcher.Add(path); err != nil {
				if path == dir {
					return err
				}
				slog.Debug("watch directory", slog.String("path", path), slog.Any("error", err))
				return nil
			}
		}
		m.dirRefs[path]++
		dirs[path] = struct{}{}
		return nil
	})
}

// releaseLocked drops root's references and unsubscribes directories no
// other root needs.
func (m *Multiplexer) releaseLocked(root string) error {
	var errs []error
	for dir := range m.roots[root] {
		m.dirRefs[dir]--
		if m.dirRefs[dir] > 0 {
			continue
		}
		delete(m.dirRefs, dir)
		if m.watcher == nil {
			continue
		}
		if err := m.watcher.Remove(dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			errs = append(errs, err)
		}
	}
	m.roots[root] = map[string]struct{}{}
	return errors.Join(errs...)
}

func (m *Multiplexer) resetDirsLocked() {
	m.dirRefs = map[string]int{}
	for root := range m.roots {
		m.roots[root] = map[string]struct{}{}
	}
}

// skipDir excludes the object database, which changes on every git
// operation without changing status.
func skipDir(path string) bool {
	return filepath.Base(path) == "objects" && filepath.Base(filepath.Dir(path)) == ".git"
}

func cleanPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, err
	}
	return filepath.Clean(abs), nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Ignored reports editor and git lock files that never change status on
// their own.
func Ignored(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".lock" || ext == ".ipc"
}
