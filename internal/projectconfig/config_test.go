// Copyright 2011 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package projectconfig

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadAbsentFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Load on empty dir = %+v, want %+v", cfg, Default())
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	const toml = `
max_results = 25
extra_ignore = ["vendor/", "*.generated.go"]
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxResults != 25 {
		t.Errorf("MaxResults = %d, want 25", cfg.MaxResults)
	}
	if cfg.WatchDebounceMillis != Default().WatchDebounceMillis {
		t.Errorf("WatchDebounceMillis = %d, want default %d", cfg.WatchDebounceMillis, Default().WatchDebounceMillis)
	}
	want := []string{"vendor/", "*.generated.go"}
	if len(cfg.ExtraIgnore) != len(want) {
		t.Fatalf("ExtraIgnore = %v, want %v", cfg.ExtraIgnore, want)
	}
	for i := range want {
		if cfg.ExtraIgnore[i] != want[i] {
			t.Errorf("ExtraIgnore[%d] = %q, want %q", i, cfg.ExtraIgnore[i], want[i])
		}
	}
}

func TestLoadMalformedTOMLIsAnError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("not = [valid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected error for malformed TOML")
	}
}
