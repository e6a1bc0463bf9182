package llvmtool

import (
	"context"
	"fmt"
	"os"

	"github.com/felixgeelhaar/covprep/internal/domain"
)

// Merger merges raw .profraw traces into one indexed .profdata profile via
// `llvm-profdata merge -sparse`.
type Merger struct {
	Tools Locator
	// Exec overrides command execution (for testing).
	Exec ExecFunc
}

// Merge produces the indexed profile at out. Merging is idempotent for a
// given input set, so a failed run can simply be restarted. On success the
// raw traces are deleted unless retain is set; on failure they are left
// untouched for diagnosis.
func (m Merger) Merge(ctx context.Context, traces []string, out string, retain bool) error {
	if len(traces) == 0 {
		return domain.MergeFailed("no trace files to merge")
	}

	bin, err := m.Tools.Path(ctx, "profdata")
	if err != nil {
		return domain.MergeFailed(err.Error())
	}

	args := make([]string, 0, len(traces)+4)
	args = append(args, "merge", "-sparse")
	args = append(args, traces...)
	args = append(args, "-o", out)

	execFn := m.Exec
	if execFn == nil {
		execFn = runCommand
	}
	if _, err := execFn(ctx, bin, args...); err != nil {
		return domain.MergeFailed(err.Error())
	}
	if _, err := os.Stat(out); err != nil {
		return domain.MergeFailed(fmt.Sprintf("merge produced no output file at %s", out))
	}

	if !retain {
		for _, trace := range traces {
			if err := os.Remove(trace); err != nil {
				return fmt.Errorf("delete trace file: %w", err)
			}
		}
	}
	return nil
}
