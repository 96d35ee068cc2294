// Copyright 2011 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package server exposes the search index and changeset applicator
// over a Content-Length-framed JSON-RPC connection, grounded in
// jarredhawkins-goruby-lsp's internal/lsp.Server wiring of
// go.lsp.dev/jsonrpc2, generalised from LSP's method set to the
// three commands this tool understands: search, apply_changes and
// shutdown.
package server

import (
	"context"
	"encoding/json"
	"io"
	"regexp"
	"strings"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"

	"github.com/brindle-dev/trigrex/internal/loader"
	"github.com/brindle-dev/trigrex/internal/patch"
	"github.com/brindle-dev/trigrex/internal/projectconfig"
	"github.com/brindle-dev/trigrex/internal/trigramindex"
)

// contextBytes is the number of bytes of surrounding content clipped
// on each side of a match, matching original_source/main.py's
// content[start-50:end+50] window.
const contextBytes = 50

// maxMatchesPerFile caps the match records returned for a single
// file, matching spec.md §6.
const maxMatchesPerFile = 5

// Server dispatches search/apply_changes/shutdown requests against a
// live index and project mapping.
type Server struct {
	index       *trigramindex.Index
	mapping     *loader.Mapping
	projectRoot string
	cfg         projectconfig.Config
	log         *zap.SugaredLogger

	mu       sync.Mutex
	shutdown bool
	done     chan struct{}
}

// New returns a Server backed by index/mapping, rooted at projectRoot.
func New(index *trigramindex.Index, mapping *loader.Mapping, projectRoot string, cfg projectconfig.Config, log *zap.SugaredLogger) *Server {
	return &Server{
		index:       index,
		mapping:     mapping,
		projectRoot: projectRoot,
		cfg:         cfg,
		log:         log,
		done:        make(chan struct{}),
	}
}

// Serve runs the connection until the peer closes it, a shutdown
// command is received, or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stream := jsonrpc2.NewStream(&readWriteCloser{in, out})
	conn := jsonrpc2.NewConn(stream)

	conn.Go(ctx, s.handle)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return nil
	case <-conn.Done():
		return conn.Err()
	}
}

func (s *Server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	s.log.Debugw("request", "method", req.Method())

	switch req.Method() {
	case "search":
		return s.handleSearch(ctx, reply, req)
	case "apply_changes":
		return s.handleApplyChanges(ctx, reply, req)
	case "shutdown":
		return s.handleShutdown(ctx, reply, req)
	default:
		return reply(ctx, nil, &jsonrpc2.Error{
			Code:    jsonrpc2.MethodNotFound,
			Message: "unknown command: " + req.Method(),
		})
	}
}

type searchParams struct {
	Pattern    string `json:"pattern"`
	MaxResults *int   `json:"max_results"`
}

type matchRecord struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Line    int    `json:"line"`
	Context string `json:"context"`
}

type fileResult struct {
	File    string        `json:"file"`
	Matches []matchRecord `json:"matches"`
}

type searchResult struct {
	Status         string       `json:"status"`
	TotalMatches   int          `json:"total_matches"`
	ReturnedMatches int         `json:"returned_matches"`
	Matches        []fileResult `json:"matches"`
}

func (s *Server) handleSearch(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params searchParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, &jsonrpc2.Error{Code: jsonrpc2.InvalidParams, Message: err.Error()})
	}
	if params.Pattern == "" {
		return reply(ctx, nil, &jsonrpc2.Error{Code: jsonrpc2.InvalidParams, Message: "missing required field: pattern"})
	}

	maxResults := s.cfg.MaxResults
	if params.MaxResults != nil {
		maxResults = *params.MaxResults
	}

	pattern := params.Pattern
	var isRaw bool
	if strings.HasPrefix(pattern, "r:") {
		pattern = pattern[len("r:"):]
		isRaw = true
	}
	if !isRaw {
		pattern = regexp.QuoteMeta(pattern)
	}

	ids, err := s.index.Search(pattern)
	if err != nil {
		return reply(ctx, nil, &jsonrpc2.Error{Code: jsonrpc2.InvalidParams, Message: "invalid pattern: " + err.Error()})
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return reply(ctx, nil, &jsonrpc2.Error{Code: jsonrpc2.InvalidParams, Message: "invalid pattern: " + err.Error()})
	}

	result := searchResult{Status: "success", TotalMatches: len(ids)}
	returned := 0
	for _, id := range ids {
		if returned >= maxResults {
			break
		}
		path, ok := s.mapping.Path(id)
		if !ok {
			continue
		}
		content, ok := s.index.Content(id)
		if !ok {
			continue
		}
		fr := fileResult{File: path}
		locs := re.FindAllStringIndex(content, -1)
		for i, loc := range locs {
			if i >= maxMatchesPerFile {
				break
			}
			start, end := loc[0], loc[1]
			fr.Matches = append(fr.Matches, matchRecord{
				Start:   start,
				End:     end,
				Line:    lineNumber(content, start),
				Context: clipContext(content, start, end),
			})
		}
		result.Matches = append(result.Matches, fr)
		returned++
	}
	result.ReturnedMatches = returned

	return reply(ctx, result, nil)
}

type applyChangesParams struct {
	Changes string `json:"changes"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleApplyChanges(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params applyChangesParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, &jsonrpc2.Error{Code: jsonrpc2.InvalidParams, Message: err.Error()})
	}
	if params.Changes == "" {
		return reply(ctx, nil, &jsonrpc2.Error{Code: jsonrpc2.InvalidParams, Message: "missing required field: changes"})
	}

	if err := patch.Apply(params.Changes, s.projectRoot); err != nil {
		return reply(ctx, statusResponse{Status: "error", Message: err.Error()}, nil)
	}
	return reply(ctx, statusResponse{Status: "success"}, nil)
}

func (s *Server) handleShutdown(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	s.mu.Lock()
	if !s.shutdown {
		s.shutdown = true
		close(s.done)
	}
	s.mu.Unlock()
	return reply(ctx, statusResponse{Status: "shutdown"}, nil)
}

func lineNumber(content string, byteOffset int) int {
	line := 1
	for i := 0; i < byteOffset && i < len(content); i++ {
		if content[i] == '\n' {
			line++
		}
	}
	return line
}

func clipContext(content string, start, end int) string {
	lo := start - contextBytes
	if lo < 0 {
		lo = 0
	}
	hi := end + contextBytes
	if hi > len(content) {
		hi = len(content)
	}
	return content[lo:hi]
}

// readWriteCloser adapts a separate reader and writer into the
// io.ReadWriteCloser jsonrpc2.NewStream requires.
type readWriteCloser struct {
	io.Reader
	io.Writer
}

func (rwc *readWriteCloser) Close() error { return nil }
