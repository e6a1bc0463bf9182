// Package export parses the llvm-cov JSON export dump
// (`llvm.coverage.json.export`) into the coverage model.
package export

import (
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/covprep/internal/domain"
)

const exportType = "llvm.coverage.json.export"

// Region kind codes in the export schema.
const (
	kindCode      = 0
	kindExpansion = 1
	kindSkipped   = 2
	kindGap       = 3
	kindBranch    = 4
)

type exportDump struct {
	Data    []exportData `json:"data"`
	Type    string       `json:"type"`
	Version string       `json:"version"`
}

type exportData struct {
	Files     []exportFile     `json:"files"`
	Functions []exportFunction `json:"functions"`
}

type exportFile struct {
	Filename string    `json:"filename"`
	Segments []segment `json:"segments"`
	Branches []branch  `json:"branches"`
}

type exportFunction struct {
	Name      string   `json:"name"`
	Count     int64    `json:"count"`
	Regions   []region `json:"regions"`
	Filenames []string `json:"filenames"`
}

// segment is the positional array [line, col, count, hasCount,
// isRegionEntry, isGapRegion]; the gap flag is absent in older exports.
type segment struct {
	Line          int
	Col           int
	Count         uint64
	HasCount      bool
	IsRegionEntry bool
	IsGapRegion   bool
}

func (s *segment) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 5 {
		return fmt.Errorf("segment has %d fields, want at least 5", len(raw))
	}
	var count int64
	fields := []any{&s.Line, &s.Col, &count, &s.HasCount, &s.IsRegionEntry}
	if len(raw) > 5 {
		fields = append(fields, &s.IsGapRegion)
	}
	for i, field := range fields {
		if err := json.Unmarshal(raw[i], field); err != nil {
			return fmt.Errorf("segment field %d: %w", i, err)
		}
	}
	if count < 0 {
		return fmt.Errorf("segment has negative count %d", count)
	}
	s.Count = uint64(count)
	return nil
}

// region is the positional array [startLine, startCol, endLine, endCol,
// count, fileID, expandedFileID, kind].
type region struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
	Count     uint64
	FileID    int
	Kind      int
}

func (r *region) UnmarshalJSON(data []byte) error {
	var raw []int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 8 {
		return fmt.Errorf("region has %d fields, want 8", len(raw))
	}
	if raw[4] < 0 {
		return fmt.Errorf("region has negative count %d", raw[4])
	}
	r.StartLine = int(raw[0])
	r.StartCol = int(raw[1])
	r.EndLine = int(raw[2])
	r.EndCol = int(raw[3])
	r.Count = uint64(raw[4])
	r.FileID = int(raw[5])
	r.Kind = int(raw[7])
	return nil
}

// branch is the positional array [startLine, startCol, endLine, endCol,
// trueCount, falseCount, fileID, expandedFileID, kind].
type branch struct {
	StartLine  int
	StartCol   int
	EndLine    int
	EndCol     int
	TrueCount  uint64
	FalseCount uint64
}

func (b *branch) UnmarshalJSON(data []byte) error {
	var raw []int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 9 {
		return fmt.Errorf("branch has %d fields, want 9", len(raw))
	}
	if raw[4] < 0 || raw[5] < 0 {
		return fmt.Errorf("branch has negative count")
	}
	b.StartLine = int(raw[0])
	b.StartCol = int(raw[1])
	b.EndLine = int(raw[2])
	b.EndCol = int(raw[3])
	b.TrueCount = uint64(raw[4])
	b.FalseCount = uint64(raw[5])
	return nil
}

// Parse converts a raw llvm-cov export dump into the coverage model,
// dropping every file whose path matches the exclusion rules. No partial
// model is returned: any schema violation fails the whole parse.
func Parse(raw []byte, rules domain.ExclusionRuleSet) (*domain.CoverageModel, error) {
	var dump exportDump
	if err := json.Unmarshal(raw, &dump); err != nil {
		return nil, domain.MalformedCoverageData(err.Error())
	}
	if dump.Type != "" && dump.Type != exportType {
		return nil, domain.MalformedCoverageData(fmt.Sprintf("unexpected export type %q", dump.Type))
	}
	if len(dump.Data) == 0 {
		return nil, domain.MalformedCoverageData("export contains no data entries")
	}

	model := domain.NewCoverageModel()
	for _, data := range dump.Data {
		for _, file := range data.Files {
			if file.Filename == "" {
				return nil, domain.MalformedCoverageData("file entry is missing its filename")
			}
			if rules.Excluded(file.Filename) {
				continue
			}
			lines, err := lineCounts(file.Segments)
			if err != nil {
				return nil, domain.MalformedCoverageData(fmt.Sprintf("%s: %v", file.Filename, err))
			}
			coverage := &domain.SourceFileCoverage{Path: file.Filename, Lines: lines}
			for _, b := range file.Branches {
				coverage.Regions = append(coverage.Regions,
					domain.RegionCoverage{
						StartLine: b.StartLine, StartCol: b.StartCol,
						EndLine: b.EndLine, EndCol: b.EndCol,
						Count: b.TrueCount, Kind: domain.RegionBranch,
					},
					domain.RegionCoverage{
						StartLine: b.StartLine, StartCol: b.StartCol,
						EndLine: b.EndLine, EndCol: b.EndCol,
						Count: b.FalseCount, Kind: domain.RegionBranch,
					})
			}
			model.Add(coverage)
		}
		for _, fn := range data.Functions {
			if err := addFunctionRegions(model, fn, rules); err != nil {
				return nil, err
			}
		}
	}
	return model, nil
}

func addFunctionRegions(model *domain.CoverageModel, fn exportFunction, rules domain.ExclusionRuleSet) error {
	for _, r := range fn.Regions {
		if r.FileID < 0 || r.FileID >= len(fn.Filenames) {
			return domain.MalformedCoverageData(fmt.Sprintf("function %s references file %d of %d", fn.Name, r.FileID, len(fn.Filenames)))
		}
		path := fn.Filenames[r.FileID]
		if rules.Excluded(path) {
			continue
		}
		var kind domain.RegionKind
		switch r.Kind {
		case kindCode:
			kind = domain.RegionCode
		case kindExpansion:
			kind = domain.RegionExpansion
		case kindBranch:
			kind = domain.RegionBranch
		case kindSkipped, kindGap:
			continue
		default:
			return domain.MalformedCoverageData(fmt.Sprintf("function %s has unknown region kind %d", fn.Name, r.Kind))
		}
		model.Add(&domain.SourceFileCoverage{
			Path: path,
			Regions: []domain.RegionCoverage{{
				StartLine: r.StartLine, StartCol: r.StartCol,
				EndLine: r.EndLine, EndCol: r.EndCol,
				Count: r.Count, Kind: kind,
			}},
		})
	}
	return nil
}

// lineCounts derives per-line execution counts from the segment list. A line
// is instrumented when a counted segment wraps it or a counted region entry
// starts on it; its count is the maximum of those. Gap segments never
// instrument a line, neither as entries nor as wrapping segments. Lines
// covered by no counted segment stay absent from the result.
func lineCounts(segments []segment) ([]domain.LineCoverage, error) {
	if len(segments) == 0 {
		return nil, nil
	}
	for i := 1; i < len(segments); i++ {
		prev, cur := segments[i-1], segments[i]
		if cur.Line < prev.Line || (cur.Line == prev.Line && cur.Col < prev.Col) {
			return nil, fmt.Errorf("segments out of order at index %d (line %d col %d)", i, cur.Line, cur.Col)
		}
	}
	if segments[0].Line < 1 {
		return nil, fmt.Errorf("segment starts at line %d", segments[0].Line)
	}

	var out []domain.LineCoverage
	var wrapped *segment
	idx := 0
	for line := segments[0].Line; line <= segments[len(segments)-1].Line; line++ {
		start := idx
		for idx < len(segments) && segments[idx].Line == line {
			idx++
		}
		lineSegments := segments[start:idx]

		instrumented := false
		var count uint64
		if wrapped != nil && wrapped.HasCount && !wrapped.IsGapRegion {
			instrumented = true
			count = wrapped.Count
		}
		for i := range lineSegments {
			s := &lineSegments[i]
			if s.HasCount && s.IsRegionEntry && !s.IsGapRegion {
				instrumented = true
				if s.Count > count {
					count = s.Count
				}
			}
		}
		if instrumented {
			out = append(out, domain.LineCoverage{Line: line, Count: count})
		}

		if len(lineSegments) > 0 {
			wrapped = &lineSegments[len(lineSegments)-1]
		}
	}
	return out, nil
}
