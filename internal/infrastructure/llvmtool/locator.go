package llvmtool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Locator resolves llvm-profdata and llvm-cov inside the Rust sysroot:
// <sysroot>/lib/rustlib/<host>/bin/llvm-<tool>.
type Locator struct {
	// Exec overrides command execution (for testing).
	Exec ExecFunc
}

// Path returns the absolute path of llvm-<tool>, or an error with an
// installation hint when the binary is missing.
func (l Locator) Path(ctx context.Context, tool string) (string, error) {
	binDir, err := l.binDir(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find tool: %s: %w", tool, err)
	}
	path := filepath.Join(binDir, "llvm-"+tool+exeSuffix())
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("could not find llvm-%s at %s; consider `rustup component add llvm-tools-preview`", tool, path)
	}
	return path, nil
}

func (l Locator) binDir(ctx context.Context) (string, error) {
	execFn := l.Exec
	if execFn == nil {
		execFn = runCommand
	}

	rustc := os.Getenv("RUSTC")
	if rustc == "" {
		rustc = "rustc"
	}

	out, err := execFn(ctx, rustc, "--print", "sysroot")
	if err != nil {
		return "", err
	}
	sysroot := strings.TrimSpace(string(out))
	if sysroot == "" {
		return "", fmt.Errorf("rustc reported an empty sysroot")
	}

	host, err := hostTriple(ctx, execFn, rustc)
	if err != nil {
		return "", err
	}
	return filepath.Join(sysroot, "lib", "rustlib", host, "bin"), nil
}

func hostTriple(ctx context.Context, execFn ExecFunc, rustc string) (string, error) {
	out, err := execFn(ctx, rustc, "--version", "--verbose")
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		if host, ok := strings.CutPrefix(strings.TrimSpace(line), "host: "); ok {
			return strings.TrimSpace(host), nil
		}
	}
	return "", fmt.Errorf("no host line in rustc version output")
}

func exeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
