package orchestrator

import (
	"context"
	"fmt"
	"io/fs"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/codewiki/internal/graph"
)

// FanOut parses files in parallel with a bounded number of goroutines. A
// file that cannot be read or parsed is reported in its FileResult and
// never stops the others.
type FanOut struct {
	parser     graph.Parser
	sources    fs.FS
	limit      int
	onProgress func(ProgressEvent)
}

// NewFanOut creates a FanOut reading files from sources. onProgress is
// called synchronously from each goroutine; it may be nil.
func NewFanOut(parser graph.Parser, sources fs.FS, limit int, onProgress func(ProgressEvent)) *FanOut {
	return &FanOut{
		parser:     parser,
		sources:    sources,
		limit:      limit,
		onProgress: onProgress,
	}
}

// Run parses every file and returns one parse result and one FileResult
// per input file, in input order. The parse result of a failed file is nil.
// The returned error is non-nil only when ctx is canceled.
func (f *FanOut) Run(ctx context.Context, files []SourceFile) ([]*graph.ParseResult, []FileResult, error) {
	parsed := make([]*graph.ParseResult, len(files))
	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	if f.limit > 0 {
		g.SetLimit(f.limit)
	}

	for i, file := range files {
		results[i].Path = file.Path
		f.emit(ProgressEvent{Stage: StageParse, Section: file.Path, Status: ProgressPending})

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			f.emit(ProgressEvent{Stage: StageParse, Section: file.Path, Status: ProgressWorking})

			res, err := f.parse(gctx, file)
			if err != nil {
				results[i].Err = err
				f.emit(ProgressEvent{
					Stage:   StageParse,
					Section: file.Path,
					Status:  ProgressFailed,
					Message: err.Error(),
				})
				// Only cancellation aborts the run.
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return nil
			}

			parsed[i] = res
			f.emit(ProgressEvent{Stage: StageParse, Section: file.Path, Status: ProgressComplete})
			return nil
		})
	}

	err := g.Wait()
	return parsed, results, err
}

func (f *FanOut) parse(ctx context.Context, file SourceFile) (*graph.ParseResult, error) {
	src, err := fs.ReadFile(f.sources, file.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.Path, err)
	}
	res, err := f.parser.Parse(ctx, file.Path, src, file.Language)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file.Path, err)
	}
	return res, nil
}

// emit sends a progress event if a callback is registered.
func (f *FanOut) emit(ev ProgressEvent) {
	if f.onProgress != nil {
		f.onProgress(ev)
	}
}
