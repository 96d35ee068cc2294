// Copyright 2011 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regextri computes the required-trigram set of a regular
// expression: the 3-byte substrings that every matching string is
// guaranteed to contain. It is the static-analysis half of the
// Russ Cox trigram code-search technique; internal/trigramindex uses
// the result to pre-filter candidate documents before running a full
// regexp scan.
package regextri

import (
	"regexp/syntax"
	"sort"
	"unicode/utf8"
)

// A Set is an unordered collection of distinct trigrams.
type Set map[string]struct{}

// Slice returns the trigrams in sorted order, for deterministic output.
func (s Set) Slice() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Has reports whether t is a member of s.
func (s Set) Has(t string) bool {
	_, ok := s[t]
	return ok
}

func (s Set) add(t string) {
	s[t] = struct{}{}
}

func (s Set) addAll(other Set) {
	for t := range other {
		s[t] = struct{}{}
	}
}

func intersect(a, b Set) Set {
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make(Set, len(a))
	for t := range a {
		if _, ok := b[t]; ok {
			out.add(t)
		}
	}
	return out
}

// Required parses pattern as an RE2 regular expression and returns the
// maximal sound set of trigrams that every string matching pattern
// must contain as a substring. An empty set means no trigram-based
// pre-filter is available and a caller must scan every document.
//
// Required never reports a trigram that some match could omit
// (soundness is mandatory); it may fail to report a trigram that
// happens to be forced by reasoning beyond what this analysis performs
// (maximality is best-effort), per spec.
func Required(pattern string) (Set, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, err
	}
	return required(re, true), nil
}

// required walks re, accumulating the trigrams guaranteed by every
// match, given that re itself is reached on every match path iff need
// is true. Any node reached only on an optional path (need == false)
// contributes nothing, regardless of what it contains.
func required(re *syntax.Regexp, need bool) Set {
	if !need || re == nil {
		return Set{}
	}

	switch re.Op {
	case syntax.OpLiteral:
		return literalTrigrams(re.Rune, re.Flags&syntax.FoldCase != 0)

	case syntax.OpConcat:
		return concatTrigrams(re.Sub)

	case syntax.OpCapture:
		return required(re.Sub[0], true)

	case syntax.OpAlternate:
		return alternateTrigrams(re.Sub)

	case syntax.OpStar, syntax.OpQuest:
		// Zero repetitions is a valid match, so the body is optional.
		return required(re.Sub[0], false)

	case syntax.OpPlus:
		// At least one repetition is guaranteed.
		return required(re.Sub[0], true)

	case syntax.OpRepeat:
		// X{m,n}: guaranteed only if the minimum is at least 1.
		// A higher minimum could in principle force trigrams across
		// repetition boundaries; spec requires this conservative,
		// minimum-safety treatment instead.
		return required(re.Sub[0], re.Min >= 1)

	default:
		// Character classes, ".", anchors, word boundaries,
		// backreferences, lookarounds, empty match, no match: none of
		// these guarantee a specific literal substring.
		return Set{}
	}
}

// literalTrigrams returns every length-3 window of the UTF-8 encoding
// of runs. Case-insensitive literals (from a (?i) modifier) are
// excluded: the index is byte-exact and unfolded (spec.md Non-goals),
// so a folded literal cannot be pinned to one specific byte sequence
// without breaking soundness.
func literalTrigrams(runs []rune, fold bool) Set {
	out := Set{}
	if fold {
		return out
	}
	buf := make([]byte, 0, len(runs)*utf8.UTFMax)
	for _, r := range runs {
		buf = utf8.AppendRune(buf, r)
	}
	for i := 0; i+3 <= len(buf); i++ {
		out.add(string(buf[i : i+3]))
	}
	return out
}

// concatTrigrams handles a sequence of sibling nodes under OpConcat,
// merging adjacent literal nodes into one run before windowing them:
// "ab" followed by "c" must be treated as the single literal "abc",
// not scored as two separate one-and-two-character runs.
func concatTrigrams(subs []*syntax.Regexp) Set {
	out := Set{}
	var run []rune

	flush := func() {
		if len(run) == 0 {
			return
		}
		out.addAll(literalTrigrams(run, false))
		run = nil
	}

	for _, sub := range subs {
		if sub.Op == syntax.OpLiteral && sub.Flags&syntax.FoldCase == 0 {
			run = append(run, sub.Rune...)
			continue
		}
		flush()
		out.addAll(required(sub, true))
	}
	flush()
	return out
}

// alternateTrigrams handles (A|B|C|...): a trigram is guaranteed by
// the whole alternation only if every branch guarantees it, so the
// parent's contribution is the intersection of the branches' sets.
func alternateTrigrams(subs []*syntax.Regexp) Set {
	if len(subs) == 0 {
		return Set{}
	}
	common := required(subs[0], true)
	for _, sub := range subs[1:] {
		if len(common) == 0 {
			break
		}
		common = intersect(common, required(sub, true))
	}
	return common
}
