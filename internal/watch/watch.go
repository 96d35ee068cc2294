// Copyright 2011 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package watch keeps a trigramindex.Index in sync with filesystem
// changes under a project root, debouncing bursts of events per path
// the way editors that write-then-rename tend to produce.
package watch

import (
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/brindle-dev/trigrex/internal/ignore"
	"github.com/brindle-dev/trigrex/internal/loader"
	"github.com/brindle-dev/trigrex/internal/trigramindex"
)

// kind mirrors spec.md §4.6's event vocabulary. fsnotify's own event
// mask is translated down to this three-way split before it reaches
// the state machine.
type kind int

const (
	created kind = iota
	modified
	deleted
)

// Watcher attaches fsnotify to root and applies its event stream to
// index and mapping under the per-path state machine spec.md §4.6
// specifies. The zero value is not usable; use New.
type Watcher struct {
	root    string
	ignore  *ignore.Matcher
	index   *trigramindex.Index
	mapping *loader.Mapping
	log     *zap.SugaredLogger
	debounce time.Duration

	fsw *fsnotify.Watcher

	mu        sync.Mutex
	pending   map[string]*time.Timer
	lastKind  map[string]kind
	closeOnce sync.Once
	done      chan struct{}
}

// New creates a Watcher rooted at root, registers watches recursively
// for every directory not excluded by ignorePred, and starts
// processing events in a background goroutine. debounce coalesces a
// burst of events for the same path into a single index mutation;
// a value <= 0 disables debouncing (every event is applied
// immediately).
func New(root string, ignorePred *ignore.Matcher, index *trigramindex.Index, mapping *loader.Mapping, debounce time.Duration, log *zap.SugaredLogger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     root,
		ignore:   ignorePred,
		index:    index,
		mapping:  mapping,
		log:      log,
		debounce: debounce,
		fsw:      fsw,
		pending:  make(map[string]*time.Timer),
		lastKind: make(map[string]kind),
		done:     make(chan struct{}),
	}

	if err := w.addTreeRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) addTreeRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != dir && w.ignore.ShouldIgnore(path, w.root) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Close stops the watcher and releases fsnotify resources.
// It may be called more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleRawEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warnw("fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) handleRawEvent(ev fsnotify.Event) {
	path := ev.Name

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.ignore.ShouldIgnore(path, w.root) {
				if err := w.addTreeRecursive(path); err != nil {
					w.log.Warnw("failed to watch new directory", "path", path, "error", err)
				}
			}
			return
		}
		w.schedule(path, created)
		return
	}
	if ev.Op&(fsnotify.Write) != 0 {
		w.schedule(path, modified)
		return
	}
	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.schedule(path, deleted)
		return
	}
}

// schedule debounces k for path: a burst of events collapses into a
// single application of the most recent kind, after debounce has
// elapsed with no further events for that path. Distinct paths are
// never reordered relative to each other because each path has its
// own independent timer.
func (w *Watcher) schedule(path string, k kind) {
	if w.debounce <= 0 {
		w.apply(path, k)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastKind[path] = k
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		k := w.lastKind[path]
		delete(w.pending, path)
		delete(w.lastKind, path)
		w.mu.Unlock()
		w.apply(path, k)
	})
}

// apply implements the spec.md §4.6 state table for a single
// (kind, path) pair.
func (w *Watcher) apply(path string, k kind) {
	if w.ignore.ShouldIgnore(path, w.root) {
		return
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	w.mu.Lock()
	defer w.mu.Unlock()

	id, present := w.mapping.ID(rel)

	switch k {
	case deleted:
		if !present {
			return
		}
		w.index.RemoveDocument(id)
		w.mapping.Remove(id)

	case created, modified:
		content, err := os.ReadFile(path)
		if err != nil {
			w.log.Warnw("read failed during watch event, leaving index unchanged", "path", path, "error", err)
			return
		}
		text := decodeLossy(content)
		if present {
			w.index.ReplaceDocument(id, text)
			return
		}
		newID := w.mapping.Allocate(rel)
		w.index.AddDocument(newID, text)
	}
}

func decodeLossy(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			out = utf8.AppendRune(out, utf8.RuneError)
			i++
			continue
		}
		out = append(out, b[i:i+size]...)
		i += size
	}
	return string(out)
}
