// Package llvmtool adapts the llvm-profdata and llvm-cov binaries shipped
// with the Rust toolchain. Both are invoked as synchronous subprocesses; the
// pipeline suspends until they exit.
package llvmtool

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ExecFunc runs a command and returns its stdout. Implementations must fold
// a stderr excerpt into the returned error on failure. Tests substitute a
// fake returning canned output.
type ExecFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", commandDisplay(name, args), err, stderrExcerpt(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}

func commandDisplay(name string, args []string) string {
	return name + " " + strings.Join(args, " ")
}

// stderrExcerpt keeps the tail of subprocess stderr, enough to diagnose
// without flooding the terminal.
func stderrExcerpt(b []byte) string {
	const max = 512
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	if s == "" {
		return "(no stderr output)"
	}
	return s
}
