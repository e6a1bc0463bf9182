package llvmtool

import (
	"context"
	"fmt"
	"os"

	"github.com/felixgeelhaar/covprep/internal/domain"
	"github.com/felixgeelhaar/covprep/internal/infrastructure/export"
)

// Extractor exports line and region counts from an indexed profile plus the
// binaries under test via `llvm-cov export -format=text`, then parses the
// JSON dump into the coverage model.
type Extractor struct {
	Tools Locator
	// Exec overrides command execution (for testing).
	Exec ExecFunc
	// Parse overrides dump parsing (for testing).
	Parse func(raw []byte, rules domain.ExclusionRuleSet) (*domain.CoverageModel, error)
}

// Extract builds the coverage model for binaries from profile. Exclusion
// patterns are both forwarded to llvm-cov and re-applied at parse time. On
// success the profile is deleted unless retain is set; on failure it is left
// in place.
func (e Extractor) Extract(ctx context.Context, profile string, binaries []string, rules domain.ExclusionRuleSet, retain bool) (*domain.CoverageModel, error) {
	bin, err := e.Tools.Path(ctx, "cov")
	if err != nil {
		return nil, domain.ExtractionFailed(err.Error())
	}

	args := []string{
		"export",
		"-format=text",
		"-Xdemangler=rustfilt",
		"-instr-profile=" + profile,
	}
	for _, pattern := range rules.Patterns() {
		args = append(args, "--ignore-filename-regex="+pattern)
	}
	args = append(args, binaries...)

	execFn := e.Exec
	if execFn == nil {
		execFn = runCommand
	}
	raw, err := execFn(ctx, bin, args...)
	if err != nil {
		return nil, domain.ExtractionFailed(err.Error())
	}

	parseFn := e.Parse
	if parseFn == nil {
		parseFn = export.Parse
	}
	model, err := parseFn(raw, rules)
	if err != nil {
		return nil, err
	}

	if !retain {
		if err := os.Remove(profile); err != nil {
			return nil, fmt.Errorf("delete indexed profile: %w", err)
		}
	}
	return model, nil
}
