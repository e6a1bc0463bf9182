// Package traces locates raw per-process coverage artifacts on disk.
package traces

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/felixgeelhaar/covprep/internal/domain"
)

// Collector scans a directory for .profraw files. The scan is read-only.
type Collector struct{}

// Collect returns the sorted paths of every .profraw file directly inside
// dir. It fails with domain.ErrNoTracesFound when none exist, since there is
// no coverage data to process.
func (Collector) Collect(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan trace directory: %w", err)
	}

	var found []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) != ".profraw" {
			continue
		}
		found = append(found, filepath.Join(dir, entry.Name()))
	}
	if len(found) == 0 {
		return nil, domain.NoTracesFound(dir)
	}

	sort.Strings(found)
	return found, nil
}
