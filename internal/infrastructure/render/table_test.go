package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/covprep/internal/domain"
)

type fakeHistory struct {
	history domain.History
	loadErr error
}

func (f *fakeHistory) Load() (domain.History, error) { return f.history, f.loadErr }

func (f *fakeHistory) Append(entry domain.HistoryEntry) error {
	f.history.Entries = append(f.history.Entries, entry)
	return nil
}

func twoFileModel() *domain.CoverageModel {
	model := domain.NewCoverageModel()
	model.Add(&domain.SourceFileCoverage{
		Path:  "src/a.rs",
		Lines: []domain.LineCoverage{{Line: 1, Count: 5}, {Line: 2, Count: 0}},
	})
	model.Add(&domain.SourceFileCoverage{
		Path:  "src/b.rs",
		Lines: []domain.LineCoverage{{Line: 1, Count: 1}},
	})
	return model
}

func TestTableRenderToWriter(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Table{Out: &buf}.Render(twoFileModel(), ""))

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "File")
	assert.Contains(t, lines[0], "Coverage")
	assert.Contains(t, lines[1], "src/a.rs")
	assert.Contains(t, lines[1], "50.0%")
	assert.Contains(t, lines[2], "src/b.rs")
	assert.Contains(t, lines[2], "100.0%")
	assert.Contains(t, lines[3], "TOTAL")
	assert.Contains(t, lines[3], "66.7%")
}

func TestTableRenderDeltaColumn(t *testing.T) {
	var buf bytes.Buffer
	store := &fakeHistory{history: domain.History{Entries: []domain.HistoryEntry{
		{Timestamp: time.Now(), Executed: 1, Instrumented: 2, Percent: 50.0},
	}}}

	require.NoError(t, Table{Out: &buf, History: store}.Render(twoFileModel(), ""))

	out := buf.String()
	assert.Contains(t, out, "Delta")
	assert.Contains(t, out, "+16.7%")
}

func TestTableRenderNoDeltaWhenHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Table{Out: &buf, History: &fakeHistory{}}.Render(twoFileModel(), ""))
	assert.NotContains(t, buf.String(), "Delta")
}

func TestTableRenderNoDeltaWhenHistoryUnreadable(t *testing.T) {
	var buf bytes.Buffer
	store := &fakeHistory{loadErr: fmt.Errorf("corrupt")}

	require.NoError(t, Table{Out: &buf, History: store}.Render(twoFileModel(), ""))
	assert.NotContains(t, buf.String(), "Delta")
}

func TestTableRenderToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.txt")

	require.NoError(t, Table{}.Render(twoFileModel(), out))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(got), "TOTAL")
}

func TestTableRenderEmptyModel(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Table{Out: &buf}.Render(domain.NewCoverageModel(), ""))

	// Zero instrumented lines report full coverage.
	assert.Contains(t, buf.String(), "100.0%")
}
