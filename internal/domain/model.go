// Package domain holds the in-memory coverage model produced by extraction
// and consumed by the renderers. The model is built once per run and never
// mutated afterwards.
package domain

import (
	"math"
	"sort"
)

// RegionKind classifies a source region in the coverage mapping.
type RegionKind int

const (
	RegionCode RegionKind = iota
	RegionBranch
	RegionExpansion
)

// String returns the kind's lowercase name.
func (k RegionKind) String() string {
	switch k {
	case RegionBranch:
		return "branch"
	case RegionExpansion:
		return "expansion"
	default:
		return "code"
	}
}

// LineCoverage is the execution count for one instrumented line.
// A count of zero means reachable but never executed; uninstrumented lines
// are absent from the model entirely.
type LineCoverage struct {
	Line  int
	Count uint64
}

// RegionCoverage is the execution count for one contiguous source span.
// Only the HTML renderer consumes regions, for per-line branch markers.
type RegionCoverage struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
	Count     uint64
	Kind      RegionKind
}

// SourceFileCoverage holds the line and region counts for one source file.
// Lines are ordered by line number and unique; they need not be contiguous.
type SourceFileCoverage struct {
	Path    string
	Lines   []LineCoverage
	Regions []RegionCoverage
}

// Summary aggregates the file's line coverage.
func (f *SourceFileCoverage) Summary() Summary {
	s := Summary{Instrumented: len(f.Lines)}
	for _, l := range f.Lines {
		if l.Count > 0 {
			s.Executed++
		}
	}
	return s
}

// Summary is an executed/instrumented line tally.
type Summary struct {
	Executed     int
	Instrumented int
}

// Percent returns the line coverage percentage rounded to one decimal.
// A file with zero instrumented lines reports 100%.
func (s Summary) Percent() float64 {
	if s.Instrumented == 0 {
		return 100.0
	}
	return Round1(float64(s.Executed) / float64(s.Instrumented) * 100)
}

func (s Summary) add(other Summary) Summary {
	return Summary{
		Executed:     s.Executed + other.Executed,
		Instrumented: s.Instrumented + other.Instrumented,
	}
}

// CoverageModel maps file paths to their coverage. File paths are unique.
type CoverageModel struct {
	files map[string]*SourceFileCoverage
}

// NewCoverageModel creates an empty model.
func NewCoverageModel() *CoverageModel {
	return &CoverageModel{files: make(map[string]*SourceFileCoverage)}
}

// Add inserts a file's coverage, merging line and region entries if the path
// was already present.
func (m *CoverageModel) Add(file *SourceFileCoverage) {
	existing, ok := m.files[file.Path]
	if !ok {
		m.files[file.Path] = file
		return
	}
	existing.Lines = mergeLines(existing.Lines, file.Lines)
	existing.Regions = append(existing.Regions, file.Regions...)
	sortRegions(existing.Regions)
}

// File returns the coverage for path, if present.
func (m *CoverageModel) File(path string) (*SourceFileCoverage, bool) {
	f, ok := m.files[path]
	return f, ok
}

// Len returns the number of files in the model.
func (m *CoverageModel) Len() int {
	return len(m.files)
}

// Files returns all file coverages sorted by path, the stable order every
// renderer uses.
func (m *CoverageModel) Files() []*SourceFileCoverage {
	out := make([]*SourceFileCoverage, 0, len(m.files))
	for _, f := range m.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Summary aggregates line coverage across every file in the model.
func (m *CoverageModel) Summary() Summary {
	var total Summary
	for _, f := range m.files {
		total = total.add(f.Summary())
	}
	return total
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func mergeLines(a, b []LineCoverage) []LineCoverage {
	byLine := make(map[int]uint64, len(a)+len(b))
	for _, l := range a {
		byLine[l.Line] = l.Count
	}
	for _, l := range b {
		if l.Count > byLine[l.Line] {
			byLine[l.Line] = l.Count
		} else if _, ok := byLine[l.Line]; !ok {
			byLine[l.Line] = l.Count
		}
	}
	out := make([]LineCoverage, 0, len(byLine))
	for line, count := range byLine {
		out = append(out, LineCoverage{Line: line, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

func sortRegions(regions []RegionCoverage) {
	sort.Slice(regions, func(i, j int) bool {
		if regions[i].StartLine != regions[j].StartLine {
			return regions[i].StartLine < regions[j].StartLine
		}
		return regions[i].StartCol < regions[j].StartCol
	})
}
