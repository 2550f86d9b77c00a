// Package report renders a grouped result set for people or for other programs.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"imgdup/types"
)

// Format selects the report renderer
type Format string

// Known report formats
const (
	FormatText  Format = "text"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatHTML  Format = "html"
)

// Formats lists the accepted format names
func Formats() []string {
	return []string{string(FormatText), string(FormatTable), string(FormatJSON), string(FormatHTML)}
}

// ParseFormat resolves a format name; the empty string means text
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatTable, FormatJSON, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want one of %s)", s, strings.Join(Formats(), ", "))
	}
}

// Options controls what is written
type Options struct {
	Format     Format
	DupOnly    bool // drop every entry without similar images
	JSONIndent int  // spaces per level; 0 writes compact JSON
}

// RunInfo describes the run that produced the results
type RunInfo struct {
	RunID      string
	Dir        string
	Recursive  bool
	Extensions []string
	Threads    int
	Hasher     string
	Threshold  float64 // fraction of differing bits
	Limit      int
	Started    time.Time
	Elapsed    time.Duration
}

// Summary counts what the report contains
type Summary struct {
	Images       int
	WithSimilars int
	Errors       int
}

// Write renders rs to w. rs is only read.
func Write(w io.Writer, rs *types.ResultSet, opts Options, info RunInfo) error {
	if rs == nil {
		return errors.New("nil result set")
	}
	entries := Filter(rs, opts.DupOnly)

	switch opts.Format {
	case FormatText, "":
		return writeText(w, rs.Settings(), entries, info)
	case FormatTable:
		return writeTable(w, entries)
	case FormatJSON:
		return writeJSON(w, rs.Settings(), entries, info, opts.JSONIndent)
	case FormatHTML:
		return writeHTML(w, rs.Settings(), entries, info)
	default:
		return fmt.Errorf("unknown report format %q", opts.Format)
	}
}

// Filter returns the entries to report in discovery order
func Filter(rs *types.ResultSet, dupOnly bool) []types.Entry {
	entries := rs.Entries()
	if !dupOnly {
		return entries
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.HasSimilars() {
			kept = append(kept, e)
		}
	}
	return kept
}

// Summarize counts entries by kind
func Summarize(entries []types.Entry) Summary {
	s := Summary{Images: len(entries)}
	for _, e := range entries {
		switch {
		case !e.OK():
			s.Errors++
		case e.HasSimilars():
			s.WithSimilars++
		}
	}
	return s
}

// errorKind names the failure class of err
func errorKind(err error) string {
	var kinded interface{ Kind() string }
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}
	return "error"
}

func percent(fraction float64) string {
	return fmt.Sprintf("%.2f%%", fraction*100)
}
