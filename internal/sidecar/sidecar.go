// Copyright 2011 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sidecar defines the read-only contract for an optional,
// externally-produced semantic side-index, .dingllm/docstrings.json,
// sitting next to a project's root. The core never writes this file
// and never computes its contents; it only knows how to read one if
// something else (out of scope here: an embedding pipeline) produced
// it.
package sidecar

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// FileName is the side-index's path, relative to a project root.
var FileName = filepath.Join(".dingllm", "docstrings.json")

// DocstringEntry is one indexed symbol's precomputed summary.
type DocstringEntry struct {
	Summary   string    `json:"summary"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// Load reads projectRoot/.dingllm/docstrings.json, if present, and
// returns the decoded map of symbol name to DocstringEntry. A missing
// file is not an error: Load returns (nil, nil), signalling that no
// side-index is available and callers should proceed without it.
func Load(projectRoot string) (map[string]DocstringEntry, error) {
	data, err := os.ReadFile(filepath.Join(projectRoot, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries map[string]DocstringEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
