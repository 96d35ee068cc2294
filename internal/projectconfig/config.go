// Copyright 2011 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package projectconfig loads the optional project-root .trigrex.toml
// file, grounded in standardbeagle-lci's internal/config package
// (a project-root configuration file with built-in defaults applied
// when the file is absent or a field is unset).
package projectconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the tunables a project may override via .trigrex.toml.
type Config struct {
	// MaxResults is the default cap on matches returned by a search
	// request that does not specify max_results explicitly.
	MaxResults int `toml:"max_results"`

	// WatchDebounceMillis coalesces a burst of filesystem events for
	// the same path into a single index mutation.
	WatchDebounceMillis int `toml:"watch_debounce_ms"`

	// ExtraIgnore lists additional gitignore-syntax patterns applied
	// on top of internal/ignore.Builtin and the project's .gitignore.
	ExtraIgnore []string `toml:"extra_ignore"`
}

// Default returns the configuration used when no .trigrex.toml is
// present.
func Default() Config {
	return Config{
		MaxResults:          100,
		WatchDebounceMillis: 75,
	}
}

// FileName is the configuration file's name, resolved relative to a
// project's root directory.
const FileName = ".trigrex.toml"

// Load reads <projectRoot>/.trigrex.toml, if present, and overlays it
// on top of Default(). A missing file is not an error.
func Load(projectRoot string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(projectRoot, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("projectconfig: %w", err)
	}

	var overlay struct {
		MaxResults          *int     `toml:"max_results"`
		WatchDebounceMillis *int     `toml:"watch_debounce_ms"`
		ExtraIgnore         []string `toml:"extra_ignore"`
	}
	if err := toml.Unmarshal(data, &overlay); err != nil {
		return cfg, fmt.Errorf("projectconfig: parsing %s: %w", FileName, err)
	}

	if overlay.MaxResults != nil {
		cfg.MaxResults = *overlay.MaxResults
	}
	if overlay.WatchDebounceMillis != nil {
		cfg.WatchDebounceMillis = *overlay.WatchDebounceMillis
	}
	if overlay.ExtraIgnore != nil {
		cfg.ExtraIgnore = overlay.ExtraIgnore
	}
	return cfg, nil
}
