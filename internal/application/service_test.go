package application

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/covprep/internal/domain"
)

type fakeCollector struct {
	traces []string
	err    error
	dir    string
}

func (f *fakeCollector) Collect(dir string) ([]string, error) {
	f.dir = dir
	return f.traces, f.err
}

type fakeMerger struct {
	err    error
	traces []string
	out    string
	retain bool
	called bool
}

func (f *fakeMerger) Merge(ctx context.Context, traces []string, out string, retain bool) error {
	f.called = true
	f.traces = traces
	f.out = out
	f.retain = retain
	return f.err
}

type fakeExtractor struct {
	model    *domain.CoverageModel
	err      error
	profile  string
	binaries []string
	rules    domain.ExclusionRuleSet
	retain   bool
}

func (f *fakeExtractor) Extract(ctx context.Context, profile string, binaries []string, rules domain.ExclusionRuleSet, retain bool) (*domain.CoverageModel, error) {
	f.profile = profile
	f.binaries = binaries
	f.rules = rules
	f.retain = retain
	return f.model, f.err
}

type fakeRenderer struct {
	err    error
	model  *domain.CoverageModel
	output string
	called bool
}

func (f *fakeRenderer) Render(model *domain.CoverageModel, outputPath string) error {
	f.called = true
	f.model = model
	f.output = outputPath
	return f.err
}

type fakeStore struct {
	history   domain.History
	appendErr error
}

func (f *fakeStore) Load() (domain.History, error) { return f.history, nil }

func (f *fakeStore) Append(entry domain.HistoryEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.history.Entries = append(f.history.Entries, entry)
	return nil
}

type fakeStatus struct {
	progress []string
	notes    []string
}

func (f *fakeStatus) Progressf(format string, args ...any) {
	f.progress = append(f.progress, fmt.Sprintf(format, args...))
}

func (f *fakeStatus) Notef(format string, args ...any) {
	f.notes = append(f.notes, fmt.Sprintf(format, args...))
}

func testModel() *domain.CoverageModel {
	model := domain.NewCoverageModel()
	model.Add(&domain.SourceFileCoverage{
		Path:  "src/a.rs",
		Lines: []domain.LineCoverage{{Line: 1, Count: 5}, {Line: 2, Count: 0}},
	})
	return model
}

type serviceFixture struct {
	svc       *Service
	collector *fakeCollector
	merger    *fakeMerger
	extractor *fakeExtractor
	renderer  *fakeRenderer
	store     *fakeStore
	status    *fakeStatus
}

func newFixture(traces ...string) *serviceFixture {
	f := &serviceFixture{
		collector: &fakeCollector{traces: traces},
		merger:    &fakeMerger{},
		extractor: &fakeExtractor{model: testModel()},
		renderer:  &fakeRenderer{},
		store:     &fakeStore{},
		status:    &fakeStatus{},
	}
	f.svc = &Service{
		Collector: f.collector,
		Merger:    f.merger,
		Extractor: f.extractor,
		Renderers: map[OutputFormat]Renderer{FormatLCOV: f.renderer, FormatReport: f.renderer},
		History:   f.store,
		Status:    f.status,
	}
	return f
}

func TestGeneratePipeline(t *testing.T) {
	f := newFixture("a.profraw", "b.profraw")

	err := f.svc.Generate(context.Background(), Options{
		Format:         FormatLCOV,
		Binaries:       []string{"target/debug/app"},
		IgnorePatterns: []string{"^vendor/"},
		TraceDir:       "target/cov",
	})
	require.NoError(t, err)

	assert.Equal(t, "target/cov", f.collector.dir)
	assert.Equal(t, []string{"a.profraw", "b.profraw"}, f.merger.traces)
	assert.Equal(t, DefaultProfileFile, f.merger.out)
	assert.Equal(t, DefaultProfileFile, f.extractor.profile)
	assert.Equal(t, []string{"target/debug/app"}, f.extractor.binaries)
	// Implicit patterns prefix the user pattern.
	assert.Equal(t, []string{`\.cargo/registry`, "library/std", "^vendor/"}, f.extractor.rules.Patterns())
	assert.Equal(t, DefaultLCOVFile, f.renderer.output)
	assert.Same(t, f.extractor.model, f.renderer.model)
}

func TestGenerateStatusMessages(t *testing.T) {
	t.Run("single trace", func(t *testing.T) {
		f := newFixture("a.profraw")
		require.NoError(t, f.svc.Generate(context.Background(), Options{Format: FormatLCOV, Binaries: []string{"app"}}))
		assert.Contains(t, f.status.progress, "Converting a.profraw to rust_coverage.profdata")
		assert.Contains(t, f.status.notes, "Deleted 2 coverage files")
	})

	t.Run("multiple traces", func(t *testing.T) {
		f := newFixture("a.profraw", "b.profraw", "c.profraw")
		require.NoError(t, f.svc.Generate(context.Background(), Options{Format: FormatLCOV, Binaries: []string{"app"}}))
		assert.Contains(t, f.status.progress, "Merging 3 .profraw files into rust_coverage.profdata")
		assert.Contains(t, f.status.notes, "Deleted 4 coverage files")
	})

	t.Run("retained", func(t *testing.T) {
		f := newFixture("a.profraw")
		require.NoError(t, f.svc.Generate(context.Background(), Options{Format: FormatLCOV, Binaries: []string{"app"}, Retain: true}))
		assert.Contains(t, f.status.notes, "--no-delete set, not deleting 2 coverage files")
	})
}

func TestGenerateRetainFlagReachesStages(t *testing.T) {
	f := newFixture("a.profraw")

	require.NoError(t, f.svc.Generate(context.Background(), Options{Format: FormatLCOV, Binaries: []string{"app"}, Retain: true}))

	assert.True(t, f.merger.retain)
	assert.True(t, f.extractor.retain)
}

func TestGenerateNoBinaries(t *testing.T) {
	f := newFixture("a.profraw")

	err := f.svc.Generate(context.Background(), Options{Format: FormatLCOV})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no binary files specified")
	assert.False(t, f.merger.called)
}

func TestGenerateUnknownFormat(t *testing.T) {
	f := newFixture("a.profraw")

	err := f.svc.Generate(context.Background(), Options{Format: FormatHTML, Binaries: []string{"app"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no renderer")
}

func TestGenerateInvalidIgnorePattern(t *testing.T) {
	f := newFixture("a.profraw")

	err := f.svc.Generate(context.Background(), Options{
		Format:         FormatLCOV,
		Binaries:       []string{"app"},
		IgnorePatterns: []string{"[unclosed"},
	})
	require.Error(t, err)
	assert.False(t, f.merger.called)
}

func TestGenerateStageFailuresAbort(t *testing.T) {
	t.Run("collect", func(t *testing.T) {
		f := newFixture()
		f.collector.err = domain.NoTracesFound(".")
		err := f.svc.Generate(context.Background(), Options{Format: FormatLCOV, Binaries: []string{"app"}})
		assert.ErrorIs(t, err, domain.ErrNoTracesFound)
		assert.False(t, f.merger.called)
	})

	t.Run("merge", func(t *testing.T) {
		f := newFixture("a.profraw")
		f.merger.err = domain.MergeFailed("boom")
		err := f.svc.Generate(context.Background(), Options{Format: FormatLCOV, Binaries: []string{"app"}})
		assert.ErrorIs(t, err, domain.ErrMergeFailed)
		assert.Empty(t, f.extractor.binaries)
	})

	t.Run("extract", func(t *testing.T) {
		f := newFixture("a.profraw")
		f.extractor.err = domain.ExtractionFailed("boom")
		f.extractor.model = nil
		err := f.svc.Generate(context.Background(), Options{Format: FormatLCOV, Binaries: []string{"app"}})
		assert.ErrorIs(t, err, domain.ErrExtractionFailed)
		assert.False(t, f.renderer.called)
	})

	t.Run("render", func(t *testing.T) {
		f := newFixture("a.profraw")
		f.renderer.err = domain.OutputWriteFailed("out.lcov", fmt.Errorf("disk full"))
		err := f.svc.Generate(context.Background(), Options{Format: FormatLCOV, Binaries: []string{"app"}})
		assert.ErrorIs(t, err, domain.ErrOutputWriteFailed)
		assert.Empty(t, f.store.history.Entries)
	})
}

func TestGenerateRecordsHistory(t *testing.T) {
	f := newFixture("a.profraw")

	err := f.svc.Generate(context.Background(), Options{
		Format:        FormatLCOV,
		Binaries:      []string{"app"},
		RecordHistory: true,
	})
	require.NoError(t, err)

	require.Len(t, f.store.history.Entries, 1)
	got := f.store.history.Entries[0]
	assert.Equal(t, 1, got.Executed)
	assert.Equal(t, 2, got.Instrumented)
	assert.InDelta(t, 50.0, got.Percent, 0.001)
	assert.False(t, got.Timestamp.IsZero())
}

func TestGenerateHistoryDisabled(t *testing.T) {
	f := newFixture("a.profraw")

	require.NoError(t, f.svc.Generate(context.Background(), Options{Format: FormatLCOV, Binaries: []string{"app"}}))
	assert.Empty(t, f.store.history.Entries)
}

func TestGenerateHistoryFailureIsNonFatal(t *testing.T) {
	f := newFixture("a.profraw")
	f.store.appendErr = fmt.Errorf("read-only filesystem")

	err := f.svc.Generate(context.Background(), Options{
		Format:        FormatLCOV,
		Binaries:      []string{"app"},
		RecordHistory: true,
	})
	require.NoError(t, err)
	assert.Contains(t, f.status.notes[len(f.status.notes)-1], "could not record history")
}

func TestGenerateOutputPathOverride(t *testing.T) {
	f := newFixture("a.profraw")

	require.NoError(t, f.svc.Generate(context.Background(), Options{
		Format:     FormatLCOV,
		Binaries:   []string{"app"},
		OutputPath: "reports/custom.lcov",
	}))
	assert.Equal(t, "reports/custom.lcov", f.renderer.output)
}

func TestTrend(t *testing.T) {
	f := newFixture()
	f.store.history = domain.History{Entries: []domain.HistoryEntry{{Percent: 42.0}}}

	h, err := f.svc.Trend(context.Background())
	require.NoError(t, err)
	require.Len(t, h.Entries, 1)
	assert.InDelta(t, 42.0, h.Entries[0].Percent, 0.001)
}

func TestTrendWithoutStore(t *testing.T) {
	svc := &Service{}
	_, err := svc.Trend(context.Background())
	assert.Error(t, err)
}

func TestResolvedOutput(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"explicit path", Options{Format: FormatHTML, OutputPath: "out"}, "out"},
		{"html default", Options{Format: FormatHTML}, DefaultHTMLDir},
		{"lcov default", Options{Format: FormatLCOV}, DefaultLCOVFile},
		{"report default is terminal", Options{Format: FormatReport}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.ResolvedOutput())
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	for _, valid := range []string{"html", "report", "lcov"} {
		got, err := ParseOutputFormat(valid)
		require.NoError(t, err)
		assert.Equal(t, OutputFormat(valid), got)
	}

	_, err := ParseOutputFormat("xml")
	assert.Error(t, err)
}
