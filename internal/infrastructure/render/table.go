package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/felixgeelhaar/covprep/internal/application"
	"github.com/felixgeelhaar/covprep/internal/domain"
)

// Table renders one aligned row per file plus an aggregate TOTAL row,
// sorted by path. It writes to Out when no output path is given.
type Table struct {
	Out io.Writer
	// History, when set, supplies the previous run for a TOTAL delta column.
	History application.HistoryStore
}

// Render writes the table to outputPath, or to Out when outputPath is empty.
func (t Table) Render(model *domain.CoverageModel, outputPath string) error {
	if outputPath == "" {
		return t.write(t.Out, model)
	}

	dir := filepath.Dir(outputPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.OutputWriteFailed(outputPath, err)
		}
	}
	tmp, err := os.CreateTemp(dir, ".covprep-report-*")
	if err != nil {
		return domain.OutputWriteFailed(outputPath, err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()
	if err := t.write(tmp, model); err != nil {
		return domain.OutputWriteFailed(outputPath, err)
	}
	if err := tmp.Close(); err != nil {
		return domain.OutputWriteFailed(outputPath, err)
	}
	if err := os.Rename(tmp.Name(), outputPath); err != nil {
		return domain.OutputWriteFailed(outputPath, err)
	}
	return nil
}

func (t Table) write(w io.Writer, model *domain.CoverageModel) error {
	previous, hasPrevious := t.previousRun()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if hasPrevious {
		fmt.Fprintln(tw, "File\tCovered\tLines\tCoverage\tDelta")
	} else {
		fmt.Fprintln(tw, "File\tCovered\tLines\tCoverage")
	}

	colorize := colorEnabled(w)
	styles := tableStyles{
		good: lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A")),
		warn: lipgloss.NewStyle().Foreground(lipgloss.Color("#CA8A04")),
		bad:  lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")),
	}

	for _, file := range model.Files() {
		summary := file.Summary()
		percent := formatPercent(summary, colorize, styles)
		if hasPrevious {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t-\n", file.Path, summary.Executed, summary.Instrumented, percent)
		} else {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", file.Path, summary.Executed, summary.Instrumented, percent)
		}
	}

	total := model.Summary()
	percent := formatPercent(total, colorize, styles)
	if hasPrevious {
		delta := fmt.Sprintf("%+.1f%%", domain.Round1(total.Percent()-previous.Percent))
		if colorize {
			if total.Percent() >= previous.Percent {
				delta = styles.good.Render(delta)
			} else {
				delta = styles.bad.Render(delta)
			}
		}
		fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%s\t%s\n", total.Executed, total.Instrumented, percent, delta)
	} else {
		fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%s\n", total.Executed, total.Instrumented, percent)
	}
	return tw.Flush()
}

func (t Table) previousRun() (domain.HistoryEntry, bool) {
	if t.History == nil {
		return domain.HistoryEntry{}, false
	}
	history, err := t.History.Load()
	if err != nil {
		return domain.HistoryEntry{}, false
	}
	return history.Latest()
}

type tableStyles struct {
	good lipgloss.Style
	warn lipgloss.Style
	bad  lipgloss.Style
}

func formatPercent(s domain.Summary, colorize bool, styles tableStyles) string {
	text := fmt.Sprintf("%.1f%%", s.Percent())
	if !colorize {
		return text
	}
	switch {
	case s.Executed == s.Instrumented:
		return styles.good.Render(text)
	case s.Executed == 0:
		return styles.bad.Render(text)
	default:
		return styles.warn.Render(text)
	}
}

func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
