package report

import (
	_ "embed"
	"html/template"
	"io"
	"net/url"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"imgdup/types"
)

//go:embed report.html.tmpl
var htmlSource string

var htmlTemplate = template.Must(template.New("report").Parse(htmlSource))

type htmlSimilar struct {
	Path       string
	URL        template.URL
	Distance   int
	Difference string
}

type htmlRow struct {
	Path     string
	URL      template.URL
	Format   string
	Width    int
	Height   int
	Size     string
	Similars []htmlSimilar
	Kind     string
	Error    string
}

type htmlPage struct {
	RunID     string
	Dir       string
	HashSize  int
	Threshold string
	Fast      bool
	Summary   Summary
	Rows      []htmlRow
}

func writeHTML(w io.Writer, settings types.HashSettings, entries []types.Entry, info RunInfo) error {
	page := htmlPage{
		RunID:     info.RunID,
		Dir:       info.Dir,
		HashSize:  settings.Resolution,
		Threshold: percent(info.Threshold),
		Fast:      settings.Mode == types.ModeFast,
		Summary:   Summarize(entries),
		Rows:      make([]htmlRow, 0, len(entries)),
	}

	for _, e := range entries {
		row := htmlRow{Path: e.Path, URL: fileURL(e.Path)}
		if !e.OK() {
			row.Kind = errorKind(e.Err)
			row.Error = e.Err.Error()
			page.Rows = append(page.Rows, row)
			continue
		}
		row.Format = e.Info.Format
		row.Width = e.Info.Width
		row.Height = e.Info.Height
		row.Size = humanize.Bytes(uint64(max(e.Info.Size, 0)))
		for _, edge := range e.Edges {
			row.Similars = append(row.Similars, htmlSimilar{
				Path:       edge.Path,
				URL:        fileURL(edge.Path),
				Distance:   edge.Distance,
				Difference: percent(edge.Difference),
			})
		}
		page.Rows = append(page.Rows, row)
	}

	return htmlTemplate.Execute(w, page)
}

// fileURL links to a local file from the report
func fileURL(path string) template.URL {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return template.URL(u.String())
}
