package render

import (
	"fmt"
	"hash/fnv"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/covprep/internal/domain"
)

// HTML renders an index page plus one page per source file into a directory
// tree. The tree is built in a temporary directory and swapped into place on
// success; replacing an existing tree is not atomic (the old tree is removed
// first).
type HTML struct {
	// Source overrides source file reading (for testing).
	Source func(path string) ([]byte, error)
}

// Render writes the report tree at outputPath.
func (h HTML) Render(model *domain.CoverageModel, outputPath string) error {
	parent := filepath.Dir(outputPath)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return domain.OutputWriteFailed(outputPath, err)
	}
	tmpDir, err := os.MkdirTemp(parent, ".covprep-html-*")
	if err != nil {
		return domain.OutputWriteFailed(outputPath, err)
	}
	defer os.RemoveAll(tmpDir)

	if err := h.renderTree(model, tmpDir); err != nil {
		return err
	}

	if err := os.RemoveAll(outputPath); err != nil {
		return domain.OutputWriteFailed(outputPath, err)
	}
	if err := os.Rename(tmpDir, outputPath); err != nil {
		return domain.OutputWriteFailed(outputPath, err)
	}
	return nil
}

func (h HTML) renderTree(model *domain.CoverageModel, dir string) error {
	index := indexData{
		Generated: time.Now().Format("2006-01-02 15:04:05"),
	}
	for _, file := range model.Files() {
		summary := file.Summary()
		page := filePageName(file.Path)
		index.Files = append(index.Files, indexRow{
			Path:    file.Path,
			Page:    page,
			Summary: summary,
			Percent: summary.Percent(),
		})
		if err := h.renderFilePage(file, filepath.Join(dir, page)); err != nil {
			return err
		}
	}
	total := model.Summary()
	index.Total = indexRow{Path: "TOTAL", Summary: total, Percent: total.Percent()}

	indexPath := filepath.Join(dir, "index.html")
	out, err := os.Create(indexPath)
	if err != nil {
		return domain.OutputWriteFailed(indexPath, err)
	}
	defer out.Close()
	if err := indexTemplate.Execute(out, index); err != nil {
		return domain.OutputWriteFailed(indexPath, err)
	}
	return out.Close()
}

func (h HTML) renderFilePage(file *domain.SourceFileCoverage, path string) error {
	summary := file.Summary()
	data := fileData{
		Path:    file.Path,
		Percent: summary.Percent(),
		Summary: summary,
	}

	readFn := h.Source
	if readFn == nil {
		readFn = os.ReadFile
	}
	source, err := readFn(file.Path)
	if err != nil {
		// Binaries built elsewhere may reference paths that no longer
		// exist locally; fall back to counts without source text.
		data.SourceMissing = true
		for _, line := range file.Lines {
			data.Lines = append(data.Lines, lineRow{
				Number: line.Line,
				Class:  lineClass(file, line),
				Count:  fmt.Sprintf("%d", line.Count),
			})
		}
	} else {
		counts := make(map[int]domain.LineCoverage, len(file.Lines))
		for _, line := range file.Lines {
			counts[line.Line] = line
		}
		for i, text := range strings.Split(strings.TrimSuffix(string(source), "\n"), "\n") {
			row := lineRow{Number: i + 1, Text: text}
			if line, ok := counts[i+1]; ok {
				row.Class = lineClass(file, line)
				row.Count = fmt.Sprintf("%d", line.Count)
			}
			data.Lines = append(data.Lines, row)
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return domain.OutputWriteFailed(path, err)
	}
	defer out.Close()
	if err := fileTemplate.Execute(out, data); err != nil {
		return domain.OutputWriteFailed(path, err)
	}
	return out.Close()
}

// lineClass picks the visual marker: executed, not executed, or partial when
// branch regions on the line carry a mix of zero and nonzero counts.
func lineClass(file *domain.SourceFileCoverage, line domain.LineCoverage) string {
	var taken, skipped bool
	for _, region := range file.Regions {
		if region.Kind != domain.RegionBranch {
			continue
		}
		if region.StartLine > line.Line || region.EndLine < line.Line {
			continue
		}
		if region.Count > 0 {
			taken = true
		} else {
			skipped = true
		}
	}
	if line.Count > 0 {
		if taken && skipped {
			return "partial"
		}
		return "hit"
	}
	return "miss"
}

// filePageName maps a source path to a flat page name; the hash suffix keeps
// distinct paths from colliding after sanitization.
func filePageName(path string) string {
	sanitized := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(path)
	sum := fnv.New32a()
	_, _ = sum.Write([]byte(path))
	return fmt.Sprintf("%s-%08x.html", sanitized, sum.Sum32())
}

type indexData struct {
	Generated string
	Files     []indexRow
	Total     indexRow
}

type indexRow struct {
	Path    string
	Page    string
	Summary domain.Summary
	Percent float64
}

type fileData struct {
	Path          string
	Percent       float64
	Summary       domain.Summary
	SourceMissing bool
	Lines         []lineRow
}

type lineRow struct {
	Number int
	Class  string
	Count  string
	Text   string
}

const stylesheet = `
        :root {
            --hit: #16A34A;
            --miss: #DC2626;
            --partial: #CA8A04;
            --bg: #0f172a;
            --card: #1e293b;
            --text: #f8fafc;
            --muted: #94a3b8;
            --border: #334155;
        }
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, sans-serif;
            background: var(--bg);
            color: var(--text);
            line-height: 1.6;
            padding: 2rem;
        }
        .container { max-width: 1200px; margin: 0 auto; }
        h1 { font-size: 1.5rem; margin-bottom: 0.5rem; font-weight: 600; }
        .timestamp { color: var(--muted); font-size: 0.875rem; margin-bottom: 2rem; }
        a { color: var(--text); }
        table {
            width: 100%;
            border-collapse: collapse;
            background: var(--card);
            border-radius: 0.5rem;
            overflow: hidden;
        }
        th, td {
            padding: 0.5rem 1rem;
            text-align: left;
            border-bottom: 1px solid var(--border);
        }
        th {
            background: rgba(0,0,0,0.2);
            font-weight: 600;
            font-size: 0.75rem;
            text-transform: uppercase;
            letter-spacing: 0.05em;
            color: var(--muted);
        }
        tr:last-child td { border-bottom: none; }
        pre {
            background: var(--card);
            border-radius: 0.5rem;
            padding: 1rem 0;
            overflow-x: auto;
            font-size: 0.8125rem;
        }
        .line { display: flex; white-space: pre; }
        .line .num {
            width: 4rem;
            text-align: right;
            padding-right: 1rem;
            color: var(--muted);
            user-select: none;
            flex-shrink: 0;
        }
        .line .cnt {
            width: 5rem;
            text-align: right;
            padding-right: 1rem;
            color: var(--muted);
            flex-shrink: 0;
        }
        .line.hit { background: rgba(22, 163, 74, 0.15); }
        .line.miss { background: rgba(220, 38, 38, 0.2); }
        .line.partial { background: rgba(202, 138, 4, 0.2); }
        .pct.hit { color: var(--hit); }
        .pct.miss { color: var(--miss); }
        .pct.partial { color: var(--partial); }
        .note { color: var(--muted); margin-bottom: 1rem; }
`

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Coverage Report</title>
    <style>` + stylesheet + `</style>
</head>
<body>
    <div class="container">
        <h1>Coverage Report</h1>
        <p class="timestamp">Generated {{.Generated}}</p>
        <table>
            <thead>
                <tr><th>File</th><th>Covered</th><th>Lines</th><th>Coverage</th></tr>
            </thead>
            <tbody>
                {{range .Files}}
                <tr>
                    <td><a href="{{.Page}}">{{.Path}}</a></td>
                    <td>{{.Summary.Executed}}</td>
                    <td>{{.Summary.Instrumented}}</td>
                    <td class="pct {{if eq .Summary.Executed .Summary.Instrumented}}hit{{else if eq .Summary.Executed 0}}miss{{else}}partial{{end}}">{{printf "%.1f" .Percent}}%</td>
                </tr>
                {{end}}
                <tr>
                    <td><strong>{{.Total.Path}}</strong></td>
                    <td><strong>{{.Total.Summary.Executed}}</strong></td>
                    <td><strong>{{.Total.Summary.Instrumented}}</strong></td>
                    <td><strong>{{printf "%.1f" .Total.Percent}}%</strong></td>
                </tr>
            </tbody>
        </table>
    </div>
</body>
</html>
`))

var fileTemplate = template.Must(template.New("file").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Path}} - Coverage</title>
    <style>` + stylesheet + `</style>
</head>
<body>
    <div class="container">
        <h1>{{.Path}}</h1>
        <p class="timestamp"><a href="index.html">&larr; index</a> &middot; {{printf "%.1f" .Percent}}% ({{.Summary.Executed}}/{{.Summary.Instrumented}} lines)</p>
        {{if .SourceMissing}}
        <p class="note">Source file not found locally; showing instrumented line counts only.</p>
        {{end}}
        <pre>{{range .Lines}}<div class="line {{.Class}}"><span class="num">{{.Number}}</span><span class="cnt">{{.Count}}</span><span>{{.Text}}</span></div>{{end}}</pre>
    </div>
</body>
</html>
`))
