// Copyright 2011 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/brindle-dev/trigrex/internal/ignore"
	"github.com/brindle-dev/trigrex/internal/loader"
	"github.com/brindle-dev/trigrex/internal/trigramindex"
)

func testLogger(t *testing.T) *zap.SugaredLogger {
	t.Helper()
	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatal(err)
	}
	return logger.Sugar()
}

func awaitCondition(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not satisfied before timeout")
}

func TestWatcherAddsNewFile(t *testing.T) {
	dir := t.TempDir()
	ix := trigramindex.New()
	mapping := loader.NewMapping()
	matcher := ignore.Compile(ignore.Builtin)

	w, err := New(dir, matcher, ix, mapping, 20*time.Millisecond, testLogger(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	path := filepath.Join(dir, "added.go")
	if err := os.WriteFile(path, []byte("package added\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	awaitCondition(t, 3*time.Second, func() bool {
		_, ok := mapping.ID("added.go")
		return ok
	})

	id, _ := mapping.ID("added.go")
	content, ok := ix.Content(id)
	if !ok || content != "package added\n" {
		t.Errorf("Content = %q, %v", content, ok)
	}
}

func TestWatcherReplacesModifiedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.go")
	if err := os.WriteFile(path, []byte("package m\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ix := trigramindex.New()
	matcher := ignore.Compile(ignore.Builtin)
	mapping, err := loader.Load(dir, matcher, ix, testLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	w, err := New(dir, matcher, ix, mapping, 20*time.Millisecond, testLogger(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	id, ok := mapping.ID("m.go")
	if !ok {
		t.Fatal("expected m.go in mapping")
	}

	if err := os.WriteFile(path, []byte("package m\n\nvar X = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	awaitCondition(t, 3*time.Second, func() bool {
		content, _ := ix.Content(id)
		return content == "package m\n\nvar X = 1\n"
	})

	if newID, _ := mapping.ID("m.go"); newID != id {
		t.Errorf("expected id to remain stable across modification, got %d want %d", newID, id)
	}
}

func TestWatcherRemovesDeletedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "d.go")
	if err := os.WriteFile(path, []byte("package d\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ix := trigramindex.New()
	matcher := ignore.Compile(ignore.Builtin)
	mapping, err := loader.Load(dir, matcher, ix, testLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	id, ok := mapping.ID("d.go")
	if !ok {
		t.Fatal("expected d.go in mapping")
	}

	w, err := New(dir, matcher, ix, mapping, 20*time.Millisecond, testLogger(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	awaitCondition(t, 3*time.Second, func() bool {
		_, ok := mapping.ID("d.go")
		return !ok
	})

	if _, ok := ix.Content(id); ok {
		t.Error("expected document removed from index after deletion")
	}
}

func TestWatcherIgnoresHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	ix := trigramindex.New()
	mapping := loader.NewMapping()
	matcher := ignore.Compile(ignore.Builtin)

	w, err := New(dir, matcher, ix, mapping, 20*time.Millisecond, testLogger(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SECRET=1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a chance to (not) process the event, then
	// confirm it never showed up.
	time.Sleep(200 * time.Millisecond)
	if _, ok := mapping.ID(".env"); ok {
		t.Error("did not expect dotfile to be indexed by watcher")
	}
}
