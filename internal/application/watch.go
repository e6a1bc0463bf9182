package application

import (
	"context"
	"fmt"
)

// Watch re-runs the pipeline whenever new trace files land in the trace
// directory. It blocks until the context is canceled or the watcher closes.
func (s *Service) Watch(ctx context.Context, opts Options, watcher FileWatcher, callback WatchCallback) error {
	traceDir := opts.TraceDir
	if traceDir == "" {
		traceDir = "."
	}
	if err := watcher.WatchDir(traceDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", traceDir, err)
	}

	runNumber := 1
	runErr := s.Generate(ctx, opts)
	if callback != nil {
		callback(runNumber, runErr)
	}

	events := watcher.Events(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				return nil
			}
			runNumber++
			runErr := s.Generate(ctx, opts)
			if callback != nil {
				callback(runNumber, runErr)
			}
		}
	}
}
