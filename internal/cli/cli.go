// Package cli parses arguments, wires the infrastructure into the
// application service, and maps errors to process exit codes.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/felixgeelhaar/covprep/internal/application"
	"github.com/felixgeelhaar/covprep/internal/domain"
	"github.com/felixgeelhaar/covprep/internal/infrastructure/config"
	"github.com/felixgeelhaar/covprep/internal/infrastructure/history"
	"github.com/felixgeelhaar/covprep/internal/infrastructure/llvmtool"
	"github.com/felixgeelhaar/covprep/internal/infrastructure/render"
	"github.com/felixgeelhaar/covprep/internal/infrastructure/traces"
	"github.com/felixgeelhaar/covprep/internal/infrastructure/watcher"
	"github.com/felixgeelhaar/covprep/internal/infrastructure/wizard"
	"github.com/felixgeelhaar/covprep/internal/pathutil"
)

type Service interface {
	Generate(ctx context.Context, opts application.Options) error
	Watch(ctx context.Context, opts application.Options, w application.FileWatcher, callback application.WatchCallback) error
	Trend(ctx context.Context) (domain.History, error)
}

var initWizard = wizard.Run

func Run(args []string, stdout, stderr io.Writer, svc Service) int {
	if len(args) < 2 {
		usage(stderr)
		return 2
	}

	ctx := context.Background()

	switch args[1] {
	case string(application.FormatHTML), string(application.FormatReport), string(application.FormatLCOV):
		return runPipeline(ctx, args, stdout, stderr, svc)
	case "init":
		fs := flag.NewFlagSet("init", flag.ExitOnError)
		configPath := fs.String("config", ".covprep.yaml", "Config file path")
		force := fs.Bool("force", false, "Overwrite existing config file")
		noInteractive := fs.Bool("no-interactive", false, "Skip the interactive init wizard")
		_ = fs.Parse(args[2:])
		cfg := application.DefaultConfig()
		if !*noInteractive {
			var confirmed bool
			var err error
			cfg, confirmed, err = initWizard(cfg, stdout, os.Stdin)
			if err != nil {
				return exitCode(err, 5, stderr)
			}
			if !confirmed {
				fmt.Fprintln(stdout, "Init cancelled; no configuration written.")
				return 0
			}
		}
		if err := writeConfigFile(*configPath, cfg, stdout, *force); err != nil {
			return exitCode(err, 2, stderr)
		}
		return 0
	case "trend":
		fs := flag.NewFlagSet("trend", flag.ExitOnError)
		_ = fs.Parse(args[2:])
		h, err := svc.Trend(ctx)
		if err != nil {
			return exitCode(err, 3, stderr)
		}
		printTrend(h, stdout)
		return 0
	case "version":
		fmt.Fprintf(stdout, "covprep %s (commit %s, built %s)\n", Version, Commit, Date)
		return 0
	default:
		usage(stderr)
		return 2
	}
}

func runPipeline(ctx context.Context, args []string, stdout, stderr io.Writer, svc Service) int {
	format, err := application.ParseOutputFormat(args[1])
	if err != nil {
		return exitCode(err, 2, stderr)
	}

	fs := flag.NewFlagSet(args[1], flag.ExitOnError)
	outputPath := fs.String("output-path", "", "Output path (default: rust_coverage.lcov for lcov, htmlcov/rust for html)")
	fs.StringVar(outputPath, "o", "", "Output path (shorthand)")
	var ignore regexList
	fs.Var(&ignore, "ignore-filename-regex", `Filename regex to exclude; \.cargo/registry and library/std are always excluded (repeatable)`)
	noDelete := fs.Bool("no-delete", false, "Keep the processed .profraw files and the generated .profdata file")
	configPath := fs.String("config", ".covprep.yaml", "Config file path")
	traceDir := fs.String("trace-dir", "", "Directory scanned for .profraw files (default: current directory)")
	watch := fs.Bool("watch", false, "Re-run whenever new .profraw files appear")
	noHistory := fs.Bool("no-history", false, "Skip recording this run to the coverage history")
	_ = fs.Parse(args[2:])

	binaries := fs.Args()
	if len(binaries) == 0 {
		return exitCode(fmt.Errorf("no binary files specified"), 1, stderr)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return exitCode(err, 2, stderr)
	}

	opts := application.Options{
		Format:         format,
		Binaries:       binaries,
		IgnorePatterns: append(append([]string(nil), cfg.Ignore...), ignore...),
		TraceDir:       cfg.TraceDir,
		Retain:         *noDelete || cfg.NoDelete,
		RecordHistory:  cfg.History.Enabled && !*noHistory,
	}
	if *traceDir != "" {
		opts.TraceDir = *traceDir
	}
	if output := resolveOutputPath(*outputPath, format, cfg); output != "" {
		validated, err := pathutil.ValidatePath(output)
		if err != nil {
			return exitCode(err, 2, stderr)
		}
		opts.OutputPath = validated
	}

	if *watch {
		return runWatch(ctx, stdout, stderr, svc, opts)
	}
	return exitCode(svc.Generate(ctx, opts), 1, stderr)
}

// BuildService wires the real subprocess-backed infrastructure. Status and
// diagnostics go to stderr, matching the original tool; the report table
// itself goes to stdout.
func BuildService(stdout, stderr *os.File) *application.Service {
	tools := llvmtool.Locator{}
	store := &history.FileStore{Path: application.DefaultConfig().History.Path}
	return &application.Service{
		Collector: traces.Collector{},
		Merger:    llvmtool.Merger{Tools: tools},
		Extractor: llvmtool.Extractor{Tools: tools},
		Renderers: map[application.OutputFormat]application.Renderer{
			application.FormatHTML:   render.HTML{},
			application.FormatReport: render.Table{Out: stdout, History: store},
			application.FormatLCOV:   render.LCOV{},
		},
		History: store,
		Status:  newStatusPrinter(stderr),
	}
}

func loadConfig(path string) (application.Config, error) {
	loader := config.Loader{}
	exists, err := loader.Exists(path)
	if err != nil {
		return application.Config{}, err
	}
	if !exists {
		return application.DefaultConfig(), nil
	}
	return loader.Load(path)
}

func resolveOutputPath(flagValue string, format application.OutputFormat, cfg application.Config) string {
	if flagValue != "" {
		return flagValue
	}
	switch format {
	case application.FormatHTML:
		return cfg.Output.HTML
	case application.FormatLCOV:
		return cfg.Output.LCOV
	default:
		return ""
	}
}

func runWatch(ctx context.Context, stdout, stderr io.Writer, svc Service, opts application.Options) int {
	w, err := watcher.New(
		watcher.WithDebounce(500*time.Millisecond),
		watcher.WithErrorHandler(func(watchErr error) {
			fmt.Fprintf(stderr, "watch error: %v\n", watchErr)
		}),
	)
	if err != nil {
		fmt.Fprintf(stderr, "failed to create watcher: %v\n", err)
		return 3
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(stdout, "\nStopping watch mode...")
		cancel()
	}()

	fmt.Fprintln(stdout, "Watching for new .profraw files... (Ctrl+C to stop)")
	fmt.Fprintln(stdout, "")

	callback := func(runNumber int, runErr error) {
		fmt.Fprintf(stdout, "\n--- Run #%d at %s ---\n", runNumber, time.Now().Format("15:04:05"))
		if runErr != nil {
			fmt.Fprintf(stderr, "Coverage run failed: %v\n", runErr)
		} else {
			fmt.Fprintln(stdout, "Coverage run completed successfully")
		}
	}

	if err := svc.Watch(ctx, opts, w, callback); err != nil {
		if ctx.Err() == context.Canceled {
			return 0
		}
		fmt.Fprintf(stderr, "watch error: %v\n", err)
		return 3
	}
	return 0
}

// regexList implements flag.Value for the repeatable ignore flag.
type regexList []string

func (r *regexList) String() string { return strings.Join(*r, ",") }

func (r *regexList) Set(value string) error {
	*r = append(*r, value)
	return nil
}

func writeConfigFile(path string, cfg application.Config, stdout io.Writer, force bool) error {
	if path == "-" {
		return config.Write(stdout, cfg)
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return config.Write(file, cfg)
}

func printTrend(h domain.History, w io.Writer) {
	if len(h.Entries) == 0 {
		fmt.Fprintln(w, "No coverage history recorded yet.")
		return
	}
	for i, entry := range h.Entries {
		symbol := "→"
		if i > 0 {
			switch {
			case entry.Percent > h.Entries[i-1].Percent:
				symbol = "↑"
			case entry.Percent < h.Entries[i-1].Percent:
				symbol = "↓"
			}
		}
		fmt.Fprintf(w, "%s  %s %.1f%% (%d/%d lines)\n",
			entry.Timestamp.Format("2006-01-02 15:04:05"), symbol, entry.Percent, entry.Executed, entry.Instrumented)
	}
	fmt.Fprintf(w, "\nHistory: %d entries\n", len(h.Entries))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `covprep <command>

Convert .profraw coverage data to HTML reports, terminal table reports,
or LCOV files (for upload to codecov etc.).

Commands:
  html    Write an HTML coverage report tree
  report  Print a coverage summary table
  lcov    Write an LCOV tracefile
  init    Write a .covprep.yaml (interactive unless --no-interactive)
  trend   Show recorded coverage history
  version Show version information`)
}

func exitCode(err error, code int, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, errorText(err.Error(), stderr))
	return code
}
