package application

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/covprep/internal/domain"
)

// Service orchestrates the pipeline: Collect → Merge → Extract → Render.
// The stages run strictly in order; any failure aborts the run and leaves
// intermediate artifacts in place for diagnosis.
type Service struct {
	Collector TraceCollector
	Merger    ProfileMerger
	Extractor CoverageExtractor
	Renderers map[OutputFormat]Renderer
	History   HistoryStore
	Status    Status
}

// Generate runs the full pipeline once.
func (s *Service) Generate(ctx context.Context, opts Options) error {
	if len(opts.Binaries) == 0 {
		return fmt.Errorf("no binary files specified")
	}
	renderer, ok := s.Renderers[opts.Format]
	if !ok {
		return fmt.Errorf("no renderer for output format %q", opts.Format)
	}

	rules, err := domain.NewExclusionRuleSet(opts.IgnorePatterns...)
	if err != nil {
		return err
	}

	traceDir := opts.TraceDir
	if traceDir == "" {
		traceDir = "."
	}
	traces, err := s.Collector.Collect(traceDir)
	if err != nil {
		return err
	}

	if len(traces) == 1 {
		s.progressf("Converting %s to %s", traces[0], DefaultProfileFile)
	} else {
		s.progressf("Merging %d .profraw files into %s", len(traces), DefaultProfileFile)
	}
	if err := s.Merger.Merge(ctx, traces, DefaultProfileFile, opts.Retain); err != nil {
		return err
	}

	model, err := s.Extractor.Extract(ctx, DefaultProfileFile, opts.Binaries, rules, opts.Retain)
	if err != nil {
		return err
	}

	output := opts.ResolvedOutput()
	switch opts.Format {
	case FormatHTML:
		s.progressf("Writing HTML coverage to %s", output)
	case FormatLCOV:
		s.progressf("Exporting coverage data to %s", output)
	default:
		s.progressf("Generating coverage report")
	}
	if err := renderer.Render(model, output); err != nil {
		return err
	}

	if opts.Retain {
		s.notef("--no-delete set, not deleting %d coverage files", len(traces)+1)
	} else {
		s.notef("Deleted %d coverage files", len(traces)+1)
	}

	if opts.RecordHistory && s.History != nil {
		if err := s.recordHistory(model); err != nil {
			s.notef("warning: could not record history: %v", err)
		}
	}
	return nil
}

// Trend loads the recorded run history.
func (s *Service) Trend(ctx context.Context) (domain.History, error) {
	if s.History == nil {
		return domain.History{}, fmt.Errorf("history is not configured")
	}
	return s.History.Load()
}

func (s *Service) recordHistory(model *domain.CoverageModel) error {
	total := model.Summary()
	return s.History.Append(domain.HistoryEntry{
		Timestamp:    time.Now().UTC(),
		Executed:     total.Executed,
		Instrumented: total.Instrumented,
		Percent:      total.Percent(),
	})
}

func (s *Service) progressf(format string, args ...any) {
	if s.Status != nil {
		s.Status.Progressf(format, args...)
	}
}

func (s *Service) notef(format string, args ...any) {
	if s.Status != nil {
		s.Status.Notef(format, args...)
	}
}
