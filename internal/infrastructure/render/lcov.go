// Package render contains the three output renderers. Each consumes the
// immutable coverage model, writes exactly one artifact, and publishes it
// atomically: content goes to a temporary location first and is renamed into
// place only on complete success.
package render

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/covprep/internal/domain"
)

// LCOV renders the model as an LCOV tracefile: one SF:/DA:/end_of_record
// block per file, DA records in ascending line order. The field ordering is
// byte-exact for downstream consumers such as codecov.
type LCOV struct{}

// Render writes the tracefile to outputPath.
func (LCOV) Render(model *domain.CoverageModel, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.OutputWriteFailed(outputPath, err)
		}
	}
	tmp, err := os.CreateTemp(dir, ".covprep-lcov-*")
	if err != nil {
		return domain.OutputWriteFailed(outputPath, err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	w := bufio.NewWriter(tmp)
	for _, file := range model.Files() {
		fmt.Fprintf(w, "SF:%s\n", file.Path)
		for _, line := range file.Lines {
			fmt.Fprintf(w, "DA:%d,%d\n", line.Line, line.Count)
		}
		fmt.Fprintln(w, "end_of_record")
	}
	if err := w.Flush(); err != nil {
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
