// Package bundler combines several Helix source files into one compiled
// program. Each file is parsed, analyzed, and lowered independently and in
// parallel (a disjoint-input, shared-nothing map phase, per the
// concurrency model's note that compilation has no shared mutable state);
// the per-file IR programs are then merged in input order on the calling
// goroutine, a serial phase that cannot itself be parallelized since it
// reassigns every string id into one shared pool.
package bundler

import (
	"context"
	"fmt"
	"sync"

	"github.com/cyber-boost/helix/logging"
	"github.com/cyber-boost/helix/pkg/diag"
	"github.com/cyber-boost/helix/pkg/ir"
	"github.com/cyber-boost/helix/pkg/parser"
	"github.com/cyber-boost/helix/pkg/semantic"
)

// Input is one source file to bundle.
type Input struct {
	Path   string
	Source []byte
}

// FileDiagnostics pairs a bundled file's path with whatever the parser or
// analyzer reported for it.
type FileDiagnostics struct {
	Path        string
	Diagnostics []diag.Diagnostic
}

// Options configures Bundle.
type Options struct {
	// Concurrency bounds how many files are parsed/analyzed/lowered at
	// once. Zero means unbounded (one goroutine per input).
	Concurrency int
	// Strict is passed through to the semantic analyzer for every file.
	Strict bool
	// Logger, if set, receives one Warn per input file that produced
	// diagnostics and one Error per input file that failed outright.
	// Bundle works the same with or without one.
	Logger logging.Logger
}

type fileResult struct {
	index int
	path  string
	prog  *ir.Program
	diags []diag.Diagnostic
	err   error
}

// Bundle runs the map phase (parse, semantic-analyze, lower, per file, in
// parallel) and the merge phase (combine the resulting programs into one,
// in input order) described in the concurrency model: a bounded worker
// pool gates concurrency the same way jobmanager.JobManager's semaphore
// channel does, except Bundle blocks until every input has a result
// rather than notifying a channel, since the merge step needs all of them
// at once.
func Bundle(ctx context.Context, inputs []Input, opts Options) (*ir.Program, []FileDiagnostics, error) {
	if len(inputs) == 0 {
		return &ir.Program{Strings: ir.NewStringPool()}, nil, nil
	}

	limit := opts.Concurrency
	if limit <= 0 || limit > len(inputs) {
		limit = len(inputs)
	}
	sem := make(chan struct{}, limit)

	results := make([]fileResult, len(inputs))
	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func(i int, in Input) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = fileResult{index: i, path: in.Path, err: ctx.Err()}
				return
			}
			results[i] = lowerOne(i, in, opts.Strict)
		}(i, in)
	}
	wg.Wait()

	fileDiags := make([]FileDiagnostics, 0, len(results))
	var hardErr error
	for _, r := range results {
		if r.err != nil {
			if opts.Logger != nil {
				opts.Logger.Error("bundler: file failed", logging.LogField{Key: "path", Value: r.path}, logging.LogField{Key: "error", Value: r.err.Error()})
			}
			if hardErr == nil {
				hardErr = fmt.Errorf("bundler: %s: %w", r.path, r.err)
			}
		}
		if len(r.diags) > 0 {
			if opts.Logger != nil {
				opts.Logger.Warn("bundler: file has diagnostics", logging.LogField{Key: "path", Value: r.path}, logging.LogField{Key: "count", Value: len(r.diags)})
			}
			fileDiags = append(fileDiags, FileDiagnostics{Path: r.path, Diagnostics: r.diags})
		}
	}
	if hardErr != nil {
		return nil, fileDiags, hardErr
	}

	progs := make([]*ir.Program, 0, len(results))
	for _, r := range results {
		if r.prog != nil {
			progs = append(progs, r.prog)
		}
	}
	merged, err := Merge(progs)
	if err != nil {
		return nil, fileDiags, err
	}
	return merged, fileDiags, nil
}

func lowerOne(i int, in Input, strict bool) fileResult {
	f, diags := parser.ParseSource(in.Source, in.Path)
	if diag.HasErrors(diags) {
		return fileResult{index: i, path: in.Path, diags: diags}
	}
	semDiags := semantic.New(f, strict).Analyze()
	allDiags := append(append([]diag.Diagnostic{}, diags...), semDiags...)
	if diag.HasErrors(semDiags) {
		return fileResult{index: i, path: in.Path, diags: allDiags}
	}
	return fileResult{index: i, path: in.Path, prog: ir.Lower(f), diags: allDiags}
}
