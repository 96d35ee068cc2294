// Copyright 2011 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ignore

import "testing"

func TestBuiltinDirectoryPatterns(t *testing.T) {
	m := Compile(Builtin)
	cases := map[string]bool{
		"/proj/.git/HEAD":              true,
		"/proj/node_modules/x/index.js": true,
		"/proj/src/main.go":            false,
		"/proj/build/out.o":            true,
		"/proj/README.md":              false,
	}
	for path, want := range cases {
		if got := m.ShouldIgnore(path, "/proj"); got != want {
			t.Errorf("ShouldIgnore(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestHiddenPathComponentsAreIgnored(t *testing.T) {
	m := Compile(nil)
	if !m.ShouldIgnore("/proj/.idea/workspace.xml", "/proj") {
		t.Error("expected dotfile directory to be ignored")
	}
	if !m.ShouldIgnore("/proj/src/.env", "/proj") {
		t.Error("expected dotfile to be ignored")
	}
	if m.ShouldIgnore("/proj/src/main.go", "/proj") {
		t.Error("did not expect ordinary file to be ignored")
	}
}

func TestNegationUnignores(t *testing.T) {
	// The negation must precede the general pattern it unignores: the
	// first matching pattern decides the result, so "!important.log"
	// has to be checked before "*.log" would otherwise claim it.
	m := Compile([]string{"!important.log", "*.log"})
	if m.ShouldIgnore("/proj/important.log", "/proj") {
		t.Error("expected negated pattern to unignore important.log")
	}
	if !m.ShouldIgnore("/proj/debug.log", "/proj") {
		t.Error("expected debug.log to be ignored")
	}
}

func TestDirectoryPatternMatchesFilesInside(t *testing.T) {
	m := Compile([]string{"build/"})
	if !m.ShouldIgnore("/proj/build", "/proj") {
		t.Error("expected directory itself to match")
	}
	if !m.ShouldIgnore("/proj/build/output.bin", "/proj") {
		t.Error("expected file inside directory to match")
	}
	if m.ShouldIgnore("/proj/buildsomething/file.go", "/proj") {
		t.Error("did not expect unrelated directory sharing a prefix to match")
	}
}

func TestPathPrefixPatternWithSlashAndNoGlob(t *testing.T) {
	m := Compile([]string{"doc/internal"})
	if !m.ShouldIgnore("/proj/doc/internal/notes.md", "/proj") {
		t.Error("expected prefix match")
	}
	if m.ShouldIgnore("/proj/doc/public/notes.md", "/proj") {
		t.Error("did not expect unrelated subdirectory to match")
	}
}

func TestGlobPatternMatchesAnyComponent(t *testing.T) {
	m := Compile([]string{"*.tmp"})
	if !m.ShouldIgnore("/proj/a/b/scratch.tmp", "/proj") {
		t.Error("expected glob pattern to match at any depth")
	}
	if m.ShouldIgnore("/proj/a/b/scratch.tmpx", "/proj") {
		t.Error("did not expect partial suffix match")
	}
}

func TestFirstMatchingPatternWinsRegardlessOfLaterPatterns(t *testing.T) {
	m := Compile([]string{"!keep.txt", "keep.txt"})
	if m.ShouldIgnore("/proj/keep.txt", "/proj") {
		t.Error("expected the earlier negation to decide the result; a later pattern must not override it")
	}
}

func TestEarlierIgnoreIsNotUnignoredByLaterNegation(t *testing.T) {
	m := Compile([]string{"keep.txt", "!keep.txt"})
	if !m.ShouldIgnore("/proj/keep.txt", "/proj") {
		t.Error("expected the earlier plain match to decide the result; a later negation must not override it")
	}
}

func TestGitignoreAbsentIsNotAnError(t *testing.T) {
	lines, err := LoadGitignore(t.TempDir())
	if err != nil {
		t.Fatalf("LoadGitignore on dir without .gitignore: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("expected no patterns, got %v", lines)
	}
}
