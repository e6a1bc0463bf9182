package application

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/covprep/internal/domain"
)

// OutputFormat selects which renderer consumes the coverage model.
type OutputFormat string

const (
	FormatHTML   OutputFormat = "html"
	FormatReport OutputFormat = "report"
	FormatLCOV   OutputFormat = "lcov"
)

// ParseOutputFormat validates a format string from the CLI.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatHTML, FormatReport, FormatLCOV:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("invalid output format %q (expected html, report or lcov)", s)
	}
}

// Intermediate profile produced by the merge stage.
const DefaultProfileFile = "rust_coverage.profdata"

// Format-specific output defaults.
const (
	DefaultHTMLDir  = "htmlcov/rust"
	DefaultLCOVFile = "rust_coverage.lcov"
)

// Options is the immutable per-run configuration, built once in the CLI and
// threaded through every stage.
type Options struct {
	Format         OutputFormat
	Binaries       []string
	OutputPath     string   // empty means the format default
	IgnorePatterns []string // user patterns, additive to the implicit ones
	TraceDir       string   // directory scanned for .profraw files
	Retain         bool     // keep .profraw inputs and the .profdata file
	RecordHistory  bool
}

// ResolvedOutput returns the output destination for the selected format.
// Empty for the report format means the terminal.
func (o Options) ResolvedOutput() string {
	if o.OutputPath != "" {
		return o.OutputPath
	}
	switch o.Format {
	case FormatHTML:
		return DefaultHTMLDir
	case FormatLCOV:
		return DefaultLCOVFile
	default:
		return ""
	}
}

// Config is the validated content of an optional .covprep.yaml file.
// Flags override any value set here.
type Config struct {
	Ignore   []string
	TraceDir string
	NoDelete bool
	Output   OutputPaths
	History  HistoryConfig
}

// OutputPaths overrides the per-format output defaults.
type OutputPaths struct {
	HTML string
	LCOV string
}

// HistoryConfig configures the per-run coverage history.
type HistoryConfig struct {
	Enabled bool
	Path    string
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() Config {
	return Config{
		TraceDir: ".",
		History:  HistoryConfig{Enabled: true, Path: ".covprep/history.json"},
	}
}

// ConfigLoader reads the optional config file.
type ConfigLoader interface {
	Load(path string) (Config, error)
	Exists(path string) (bool, error)
}

// TraceCollector locates raw .profraw trace files. Read-only.
type TraceCollector interface {
	Collect(dir string) ([]string, error)
}

// ProfileMerger merges raw traces into one indexed profile at out.
// On success it deletes the inputs unless retain is set; on failure it
// leaves them in place for diagnosis.
type ProfileMerger interface {
	Merge(ctx context.Context, traces []string, out string, retain bool) error
}

// CoverageExtractor exports structured coverage for the given binaries from
// an indexed profile and parses it into the model, dropping files matched by
// rules. On success it deletes the profile unless retain is set.
type CoverageExtractor interface {
	Extract(ctx context.Context, profile string, binaries []string, rules domain.ExclusionRuleSet, retain bool) (*domain.CoverageModel, error)
}

// Renderer writes one output artifact from an immutable coverage model.
type Renderer interface {
	Render(model *domain.CoverageModel, outputPath string) error
}

// HistoryStore persists per-run aggregate coverage.
type HistoryStore interface {
	Load() (domain.History, error)
	Append(entry domain.HistoryEntry) error
}

// Status receives human-readable progress lines, typically colored stderr.
type Status interface {
	Progressf(format string, args ...any)
	Notef(format string, args ...any)
}

// FileWatcher provides file change notifications for watch mode.
type FileWatcher interface {
	WatchDir(root string) error
	Events(ctx context.Context) <-chan struct{}
	Close() error
}

// WatchCallback reports the outcome of each watch-mode run.
type WatchCallback func(runNumber int, err error)
