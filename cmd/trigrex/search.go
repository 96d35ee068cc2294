// Copyright 2011 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brindle-dev/trigrex/internal/ignore"
	"github.com/brindle-dev/trigrex/internal/loader"
	"github.com/brindle-dev/trigrex/internal/projectconfig"
	"github.com/brindle-dev/trigrex/internal/trigramindex"
)

func newSearchCmd() *cobra.Command {
	var projectDir string
	var maxResults int
	var verbose bool

	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "Load a project, run one query, print matching files, and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(projectDir, args[0], maxResults, verbose)
		},
	}
	cmd.Flags().StringVarP(&projectDir, "dir", "d", ".", "project root to index")
	cmd.Flags().IntVarP(&maxResults, "max-results", "n", 0, "cap on files reported (0 = use .trigrex.toml default)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable development-mode logging")
	return cmd
}

func runSearch(projectDir, pattern string, maxResults int, verbose bool) error {
	log, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("trigrex: initialising logger: %w", err)
	}
	defer log.Sync()

	cfg, err := projectconfig.Load(projectDir)
	if err != nil {
		return fmt.Errorf("trigrex: loading %s: %w", projectconfig.FileName, err)
	}
	if maxResults <= 0 {
		maxResults = cfg.MaxResults
	}

	gitignoreLines, err := ignore.LoadGitignore(projectDir)
	if err != nil {
		return fmt.Errorf("trigrex: loading .gitignore: %w", err)
	}
	patterns := append(append([]string{}, ignore.Builtin...), gitignoreLines...)
	patterns = append(patterns, cfg.ExtraIgnore...)
	matcher := ignore.Compile(patterns)

	ix := trigramindex.New()
	mapping, err := loader.Load(projectDir, matcher, ix, log)
	if err != nil {
		return fmt.Errorf("trigrex: loading project: %w", err)
	}

	raw := pattern
	if strings.HasPrefix(raw, "r:") {
		raw = raw[len("r:"):]
	} else {
		raw = regexp.QuoteMeta(raw)
	}

	ids, err := ix.Search(raw)
	if err != nil {
		return fmt.Errorf("trigrex: %w", err)
	}

	if len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	for _, id := range ids {
		if path, ok := mapping.Path(id); ok {
			fmt.Println(path)
		}
	}
	return nil
}
