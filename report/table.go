package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"imgdup/types"
)

// Alignment sets how a table column is aligned
type Alignment int

// Column alignments
const (
	AlignLeft Alignment = iota
	AlignRight
)

func writeTable(w io.Writer, entries []types.Entry) error {
	headers := []string{"Image", "Format", "Dimensions", "Size", "Similar images"}
	aligns := []Alignment{AlignLeft, AlignLeft, AlignRight, AlignRight, AlignLeft}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		if !e.OK() {
			rows = append(rows, []string{e.Path, "", "", "", fmt.Sprintf("error (%s): %v", errorKind(e.Err), e.Err)})
			continue
		}
		similars := make([]string, len(e.Edges))
		for i, edge := range e.Edges {
			similars[i] = fmt.Sprintf("%s (%s)", edge.Path, percent(edge.Difference))
		}
		rows = append(rows, []string{
			e.Path,
			e.Info.Format,
			fmt.Sprintf("%dx%d", e.Info.Width, e.Info.Height),
			humanize.Bytes(uint64(max(e.Info.Size, 0))),
			strings.Join(similars, "\n"),
		})
	}

	_, err := fmt.Fprintln(w, RenderTable(headers, rows, aligns))
	return err
}

// RenderTable lays out rows under headers with rounded borders
func RenderTable(headers []string, rows [][]string, aligns []Alignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == AlignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
