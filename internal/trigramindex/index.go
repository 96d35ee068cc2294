// Copyright 2011 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trigramindex implements the in-memory trigram inverted
// index and the search driver that pre-filters candidate documents
// against it before verifying them with a full regexp scan.
//
// It deliberately keeps no on-disk representation: spec.md Non-goals
// exclude persistence of the index across restarts. The teacher
// (google/codesearch index/write.go) builds the same posting-list
// structure but flushes it to a merge-sorted on-disk format; this
// package keeps only the in-memory half of that shape.
package trigramindex

import (
	"regexp"
	"sort"
	"sync"

	"github.com/brindle-dev/trigrex/internal/regextri"
)

// DocID is a stable, monotonically allocated document identifier.
// It is never reused while the document it names is live.
type DocID int

// Index is a trigram inverted index plus the document store it was
// built from. The zero value is not usable; use New.
type Index struct {
	mu       sync.RWMutex
	docs     map[DocID]string
	postings map[string]map[DocID]struct{}
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		docs:     make(map[DocID]string),
		postings: make(map[string]map[DocID]struct{}),
	}
}

// AddDocument stores content under id and indexes every distinct
// trigram it contains. It is idempotent with respect to a trigram
// appearing more than once in content.
func (ix *Index) AddDocument(id DocID, content string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.addLocked(id, content)
}

func (ix *Index) addLocked(id DocID, content string) {
	ix.docs[id] = content
	for _, tg := range uniqueTrigrams(content) {
		set, ok := ix.postings[tg]
		if !ok {
			set = make(map[DocID]struct{})
			ix.postings[tg] = set
		}
		set[id] = struct{}{}
	}
}

// RemoveDocument erases id's content and removes it from every
// posting list it appeared in. Removing an id that is not present is
// a no-op.
func (ix *Index) RemoveDocument(id DocID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(id)
}

func (ix *Index) removeLocked(id DocID) {
	content, ok := ix.docs[id]
	if !ok {
		return
	}
	for _, tg := range uniqueTrigrams(content) {
		set, ok := ix.postings[tg]
		if !ok {
			continue
		}
		delete(set, id)
		if len(set) == 0 {
			delete(ix.postings, tg)
		}
	}
	delete(ix.docs, id)
}

// ReplaceDocument swaps id's content for newContent. From an
// observer's perspective (holding ix.mu) the swap is atomic: no
// search started after ReplaceDocument returns can see the old
// content, and no search running concurrently observes a torn mix of
// old and new postings for id.
func (ix *Index) ReplaceDocument(id DocID, newContent string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(id)
	ix.addLocked(id, newContent)
}

// Len reports the number of live documents in the index.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Content returns the stored content for id and whether id is live.
func (ix *Index) Content(id DocID) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	c, ok := ix.docs[id]
	return c, ok
}

// Search returns every live doc_id whose content contains a match for
// pattern, an RE2 regular expression, sorted ascending by doc_id for
// deterministic output. A malformed pattern is returned as an error;
// the index itself is left unaffected.
func (ix *Index) Search(pattern string) ([]DocID, error) {
	required, err := regextri.Required(pattern)
	if err != nil {
		return nil, err
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	candidates := ix.candidateSet(required)
	if len(candidates) == 0 && len(required) > 0 {
		return nil, nil
	}

	results := make([]DocID, 0, len(candidates))
	for id := range candidates {
		if re.MatchString(ix.docs[id]) {
			results = append(results, id)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	return results, nil
}

// candidateSet intersects the posting lists for required's trigrams.
// An empty required set means no pre-filter is available, so every
// live document is a candidate. Caller must hold ix.mu (for reading).
func (ix *Index) candidateSet(required regextri.Set) map[DocID]struct{} {
	if len(required) == 0 {
		all := make(map[DocID]struct{}, len(ix.docs))
		for id := range ix.docs {
			all[id] = struct{}{}
		}
		return all
	}

	var candidates map[DocID]struct{}
	for tg := range required {
		set := ix.postings[tg]
		if candidates == nil {
			candidates = make(map[DocID]struct{}, len(set))
			for id := range set {
				candidates[id] = struct{}{}
			}
			continue
		}
		for id := range candidates {
			if _, ok := set[id]; !ok {
				delete(candidates, id)
			}
		}
		if len(candidates) == 0 {
			return candidates
		}
	}
	return candidates
}

// uniqueTrigrams returns the distinct 3-byte windows of content, in
// first-occurrence order (order is not itself meaningful, but makes
// the function deterministic for testing).
func uniqueTrigrams(content string) []string {
	if len(content) < 3 {
		return nil
	}
	seen := make(map[string]struct{}, len(content))
	out := make([]string, 0, len(content))
	for i := 0; i+3 <= len(content); i++ {
		tg := content[i : i+3]
		if _, ok := seen[tg]; ok {
			continue
		}
		seen[tg] = struct{}{}
		out = append(out, tg)
	}
	return out
}
