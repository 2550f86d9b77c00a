package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"imgdup/config"
	"imgdup/database"
	"imgdup/imageprocessor"
	"imgdup/logging"
	"imgdup/report"
	"imgdup/scanner"
	"imgdup/signalhandler"
	"imgdup/types"
)

// runFind scans the configured directory and writes the report
func runFind(cmd *cobra.Command, cfg *config.Config, progress bool) error {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	status := stdout
	if cfg.SilentStdout() {
		status = io.Discard
	}

	outPath := cfg.OutputPath()
	if outPath != "" {
		fmt.Fprintf(status, "Testing output file (%s)...\n", outPath)
		if err := cfg.CheckOutputWritable(); err != nil {
			return err
		}
	}

	logger, closeLog, err := logging.Setup(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Output: stderr,
	})
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	provider, err := imageprocessor.NewProvider(cfg.Hasher, cfg.HashSettings(), logger)
	if err != nil {
		closeLog()
		return err
	}
	defer provider.Close()

	var (
		cache  *database.Cache
		cached *database.CachedProvider
	)
	if cfg.Cache.Enabled {
		cache, err = database.Open(cfg.CachePath())
		if err != nil {
			closeLog()
			return fmt.Errorf("open fingerprint cache: %w", err)
		}
		cached = database.NewCachedProvider(provider, cache, cfg.Hasher, logger)
		logger.Info("using fingerprint cache", "path", cache.Path())
	}

	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(func() {
			if cache != nil {
				if err := cache.Close(); err != nil {
					logger.Warn("failed to close fingerprint cache", "error", err)
				}
			}
			closeLog()
		})
	}
	stop := signalhandler.SetupHandler(cleanup)
	defer stop()
	defer cleanup()

	threads := cfg.Threads
	if threads == 0 && cfg.Hasher == imageprocessor.HasherOpenCV {
		threads = signalhandler.GetOptimalProcs()
	}

	var progressOut io.Writer
	if progress && isTerminal(stderr) {
		progressOut = stderr
	}
	tracker := scanner.NewProgressTracker(progressOut)

	opts := scanner.ScanOptions{
		Root:       cfg.Dir,
		Recursive:  cfg.Recursive,
		Extensions: cfg.Extensions,
		Limit:      cfg.Limit,
		Threads:    threads,
		Settings:   cfg.HashSettings(),
		Threshold:  cfg.ThresholdFraction(),
		Status:     status,
		Logger:     logger,
	}

	var hashProvider imageprocessor.Provider = provider
	if cached != nil {
		hashProvider = cached
	}

	started := time.Now()
	rs, err := scanner.ScanFolder(opts, hashProvider, tracker)
	if err != nil {
		logger.Error("scan failed", "error", err)
		return err
	}
	elapsed := time.Since(started)

	scanner.PrintCompletionStats(status, tracker.Summary())
	if cached != nil {
		fmt.Fprintf(status, "Fingerprint cache: %d reused, %d hashed.\n", cached.Hits(), cached.Misses())
		logger.Info("fingerprint cache usage", "hits", cached.Hits(), "misses", cached.Misses())
	}

	info := report.RunInfo{
		RunID:      runID,
		Dir:        cfg.Dir,
		Recursive:  cfg.Recursive,
		Extensions: cfg.Extensions,
		Threads:    opts.Workers(),
		Hasher:     cfg.Hasher,
		Threshold:  cfg.ThresholdFraction(),
		Limit:      cfg.Limit,
		Started:    started,
		Elapsed:    elapsed,
	}
	return writeReport(stdout, status, outPath, cfg, rs, info, logger)
}

// writeReport renders rs to the output file, or to stdout when none is set
func writeReport(stdout, status io.Writer, outPath string, cfg *config.Config, rs *types.ResultSet, info report.RunInfo, logger *slog.Logger) error {
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	opts := report.Options{
		Format:     format,
		DupOnly:    cfg.DupOnly,
		JSONIndent: cfg.Output.JSONIndent,
	}

	if outPath == "" {
		return report.Write(stdout, rs, opts, info)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := report.Write(f, rs, opts, info); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report file: %w", err)
	}

	logger.Info("report written", "path", outPath, "format", string(format))
	fmt.Fprintf(status, "Results written to %s\n", outPath)
	return nil
}

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
