package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"imgdup/config"
	"imgdup/imageprocessor"
	"imgdup/report"
)

// findFlags holds the root command flags. They override the configuration
// file only when set on the command line.
type findFlags struct {
	dir        string
	threads    int
	recursive  bool
	hashSize   int
	threshold  float64
	fast       bool
	exts       []string
	outfile    string
	dupOnly    bool
	limit      int
	jsonIndent int
	format     string
	hasher     string
	cache      bool
	logLevel   string
	logFile    string
	noProgress bool
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var cachePathFlag string
	var flags findFlags

	ctx := newCommandContext(&configFlag, &cachePathFlag)

	rootCmd := &cobra.Command{
		Use:   "imgdup [DIR]",
		Short: "Find similar images by perceptual hash",
		Long: `imgdup fingerprints every image in a directory and reports the images
whose fingerprints differ by at most the threshold percentage of bits.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.findConfig(cmd, &flags, args)
			if err != nil {
				return err
			}
			return runFind(cmd, cfg, !flags.noProgress)
		},
	}

	def := config.Default()
	fs := rootCmd.Flags()
	fs.StringVarP(&flags.dir, "dir", "d", "", "Directory to search (default: current directory)")
	fs.IntVarP(&flags.threads, "threads", "t", 0, "Worker goroutines (0: one per CPU)")
	fs.BoolVarP(&flags.recursive, "recursive", "r", false, "Search subdirectories")
	fs.IntVar(&flags.hashSize, "hash-size", def.HashSize, "Fingerprints are hash-size x hash-size bits")
	fs.Float64VarP(&flags.threshold, "threshold", "s", def.Threshold, "Maximum percentage of differing bits for similar images")
	fs.BoolVarP(&flags.fast, "fast", "f", false, "Trade accuracy for speed when hashing")
	fs.StringSliceVarP(&flags.exts, "ext", "e", def.Extensions, "File extension to consider (repeatable)")
	fs.StringVarP(&flags.outfile, "outfile", "o", "", "Write the report to this file, relative to the directory")
	fs.BoolVarP(&flags.dupOnly, "dup-only", "u", false, "Only report images that have similar images")
	fs.IntVarP(&flags.limit, "limit", "l", 0, "Hash only the first N images found (0: no limit)")
	fs.IntVarP(&flags.jsonIndent, "json", "j", 0, "Write a JSON report, indented by SPACES (0: compact); use -j=N")
	fs.Lookup("json").NoOptDefVal = "0"
	fs.StringVar(&flags.format, "format", "", fmt.Sprintf("Report format: %s", strings.Join(report.Formats(), ", ")))
	fs.StringVar(&flags.hasher, "hasher", "", fmt.Sprintf("Fingerprint backend: %s", strings.Join(imageprocessor.Hashers(), ", ")))
	fs.BoolVar(&flags.cache, "cache", false, "Reuse fingerprints of unchanged files from the cache")
	fs.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&flags.logFile, "log-file", "", "Append logs to this file instead of stderr")
	fs.BoolVar(&flags.noProgress, "no-progress", false, "Do not draw the progress bar")

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&cachePathFlag, "cache-path", "", "Fingerprint cache location")

	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))

	return rootCmd
}

// applyFlags copies the flags that were set onto cfg
func applyFlags(cmd *cobra.Command, flags *findFlags, args []string, cfg *config.Config) error {
	fs := cmd.Flags()
	if len(args) == 1 {
		if fs.Changed("dir") {
			return errors.New("give the directory either as an argument or with --dir, not both")
		}
		cfg.Dir = args[0]
	}
	if fs.Changed("dir") {
		cfg.Dir = flags.dir
	}
	if fs.Changed("threads") {
		cfg.Threads = flags.threads
	}
	if fs.Changed("recursive") {
		cfg.Recursive = flags.recursive
	}
	if fs.Changed("hash-size") {
		cfg.HashSize = flags.hashSize
	}
	if fs.Changed("threshold") {
		cfg.Threshold = flags.threshold
	}
	if fs.Changed("fast") {
		cfg.Fast = flags.fast
	}
	if fs.Changed("ext") {
		cfg.Extensions = flags.exts
	}
	if fs.Changed("outfile") {
		cfg.Output.File = flags.outfile
	}
	if fs.Changed("dup-only") {
		cfg.DupOnly = flags.dupOnly
	}
	if fs.Changed("limit") {
		cfg.Limit = flags.limit
	}
	if fs.Changed("format") {
		cfg.Output.Format = flags.format
	}
	if fs.Changed("json") {
		if fs.Changed("format") && !strings.EqualFold(strings.TrimSpace(flags.format), string(report.FormatJSON)) {
			return fmt.Errorf("--json conflicts with --format %s", flags.format)
		}
		cfg.Output.Format = string(report.FormatJSON)
		cfg.Output.JSONIndent = flags.jsonIndent
	}
	if fs.Changed("hasher") {
		cfg.Hasher = flags.hasher
	}
	if fs.Changed("cache") {
		cfg.Cache.Enabled = flags.cache
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = flags.logLevel
	}
	if fs.Changed("log-file") {
		cfg.Logging.File = flags.logFile
	}
	return nil
}
