package llvmtool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHost = "x86_64-unknown-linux-gnu"

// fakeSysroot lays out <sysroot>/lib/rustlib/<host>/bin with the given tool
// binaries and returns an ExecFunc answering the rustc queries the locator
// makes.
func fakeSysroot(t *testing.T, tools ...string) (string, ExecFunc) {
	t.Helper()
	sysroot := t.TempDir()
	binDir := filepath.Join(sysroot, "lib", "rustlib", testHost, "bin")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	for _, tool := range tools {
		require.NoError(t, os.WriteFile(filepath.Join(binDir, "llvm-"+tool+exeSuffix()), []byte("#!"), 0o755))
	}

	execFn := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		switch {
		case len(args) == 2 && args[0] == "--print" && args[1] == "sysroot":
			return []byte(sysroot + "\n"), nil
		case len(args) == 2 && args[0] == "--version" && args[1] == "--verbose":
			out := "rustc 1.84.0 (abc 2026-01-01)\nbinary: rustc\nhost: " + testHost + "\nrelease: 1.84.0\n"
			return []byte(out), nil
		default:
			return nil, fmt.Errorf("unexpected command %s %v", name, args)
		}
	}
	return sysroot, execFn
}

func TestLocatorPath(t *testing.T) {
	sysroot, execFn := fakeSysroot(t, "profdata", "cov")
	loc := Locator{Exec: execFn}

	path, err := loc.Path(context.Background(), "profdata")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sysroot, "lib", "rustlib", testHost, "bin", "llvm-profdata"+exeSuffix()), path)
}

func TestLocatorPathMissingTool(t *testing.T) {
	_, execFn := fakeSysroot(t, "profdata")
	loc := Locator{Exec: execFn}

	_, err := loc.Path(context.Background(), "cov")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rustup component add llvm-tools-preview")
}

func TestLocatorPathRustcFailure(t *testing.T) {
	loc := Locator{Exec: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, fmt.Errorf("rustc: command not found")
	}}

	_, err := loc.Path(context.Background(), "profdata")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to find tool: profdata")
}

func TestLocatorPathNoHostLine(t *testing.T) {
	loc := Locator{Exec: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if len(args) == 2 && args[0] == "--print" {
			return []byte("/sysroot\n"), nil
		}
		return []byte("rustc 1.84.0\n"), nil
	}}

	_, err := loc.Path(context.Background(), "profdata")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no host line")
}
