package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"imgdup/types"
)

func writeText(w io.Writer, settings types.HashSettings, entries []types.Entry, info RunInfo) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "Settings")
	fmt.Fprintf(bw, "  Threads: %d\n", info.Threads)
	fmt.Fprintf(bw, "  Directory: %s\n", info.Dir)
	fmt.Fprintf(bw, "  Recursive: %t\n", info.Recursive)
	fmt.Fprintf(bw, "  Extensions: %s\n", strings.Join(info.Extensions, ", "))
	fmt.Fprintf(bw, "  Hash size: %d\n", settings.Resolution)
	fmt.Fprintf(bw, "  Threshold: %s\n", percent(info.Threshold))
	fmt.Fprintf(bw, "  Fast: %t\n", settings.Mode == types.ModeFast)
	if info.Hasher != "" {
		fmt.Fprintf(bw, "  Hasher: %s\n", info.Hasher)
	}
	if info.Limit > 0 {
		fmt.Fprintf(bw, "  Limit: %d\n", info.Limit)
	}

	s := Summarize(entries)
	fmt.Fprintf(bw, "\nResults: %d images, %d with similar images, %d errors\n", s.Images, s.WithSimilars, s.Errors)

	for _, e := range entries {
		fmt.Fprintln(bw)
		if !e.OK() {
			fmt.Fprintf(bw, "%s\n  Error (%s): %v\n", e.Path, errorKind(e.Err), e.Err)
			continue
		}
		fmt.Fprintf(bw, "%s (%s, %dx%d, %s)\n", e.Path, e.Info.Format, e.Info.Width, e.Info.Height,
			humanize.Bytes(uint64(max(e.Info.Size, 0))))
		if !e.HasSimilars() {
			fmt.Fprintln(bw, "  No similar images")
			continue
		}
		fmt.Fprintln(bw, "  Similar images:")
		for _, edge := range e.Edges {
			fmt.Fprintf(bw, "    %s  %s (%d bits)\n", edge.Path, percent(edge.Difference), edge.Distance)
		}
	}

	return bw.Flush()
}
