package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626"))
)

// statusPrinter writes progress lines to stderr so that report output on
// stdout stays machine-readable.
type statusPrinter struct {
	w     io.Writer
	color bool
}

func newStatusPrinter(w *os.File) statusPrinter {
	return statusPrinter{w: w, color: colorEnabled(w)}
}

func (p statusPrinter) Progressf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if p.color {
		line = progressStyle.Render(line)
	}
	fmt.Fprintln(p.w, line)
}

func (p statusPrinter) Notef(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func errorText(msg string, w io.Writer) string {
	if f, ok := w.(*os.File); ok && colorEnabled(f) {
		return errorStyle.Render(msg)
	}
	return msg
}

func colorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
