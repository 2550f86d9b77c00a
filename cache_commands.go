package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"imgdup/database"
	"imgdup/report"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the fingerprint cache",
		Args:  cobra.NoArgs,
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show fingerprint cache usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openCache(ctx)
			if err != nil {
				return err
			}
			defer cache.Close()

			stats, err := cache.Stats()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache:   %s", cache.Path())
			if info, err := os.Stat(cache.Path()); err == nil {
				fmt.Fprintf(out, " (%s)", humanize.Bytes(uint64(info.Size())))
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Entries: %d\n", stats.Entries)
			fmt.Fprintf(out, "Files:   %d\n", stats.Files)
			fmt.Fprintf(out, "Unique fingerprints: %d\n", stats.UniqueFingerprints)
			if len(stats.Hashers) == 0 {
				return nil
			}

			rows := make([][]string, 0, len(stats.Hashers))
			for _, h := range stats.Hashers {
				rows = append(rows, []string{h.Hasher, h.Mode, strconv.Itoa(h.Resolution), strconv.Itoa(h.Entries)})
			}
			fmt.Fprintln(out, report.RenderTable(
				[]string{"Hasher", "Mode", "Hash size", "Entries"},
				rows,
				[]report.Alignment{report.AlignLeft, report.AlignLeft, report.AlignRight, report.AlignRight},
			))
			return nil
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove cached fingerprints of files that no longer exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openCache(ctx)
			if err != nil {
				return err
			}
			defer cache.Close()

			removed, err := cache.Prune()
			if err != nil {
				return fmt.Errorf("prune cache: %w", err)
			}
			if removed == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cache entries pruned")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d cache entries\n", removed)
			return nil
		},
	}
}

func openCache(ctx *commandContext) (*database.Cache, error) {
	cfg, _, _, err := ctx.loadConfig()
	if err != nil {
		return nil, err
	}
	cache, err := database.Open(cfg.CachePath())
	if err != nil {
		return nil, fmt.Errorf("open fingerprint cache: %w", err)
	}
	return cache, nil
}
