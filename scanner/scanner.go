package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"imgdup/imageprocessor"
	"imgdup/logging"
	"imgdup/signalhandler"
	"imgdup/similarity"
	"imgdup/types"
)

// ScanFolder finds the images under opts.Root, fingerprints them and links
// the similar ones. The returned result set is in discovery order.
func ScanFolder(opts ScanOptions, provider imageprocessor.Provider, observer Observer) (*types.ResultSet, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	status := opts.Status
	if status == nil {
		status = io.Discard
	}

	fmt.Fprintln(status, "Searching for images...")
	paths, err := FindImages(opts.Root, opts.Recursive, opts.Extensions)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(status, "Images found: %d\n", len(paths))

	if opts.Limit > 0 && opts.Limit < len(paths) {
		paths = ApplyLimit(paths, opts.Limit)
		fmt.Fprintf(status, "Limiting to: %d\n", len(paths))
	}

	stats := CountFiles(paths)
	logger.Info("starting image scan",
		"root", opts.Root,
		"recursive", opts.Recursive,
		"images", stats.Total,
		"raw", stats.Raw,
		"hash_size", opts.Settings.Resolution,
		"mode", opts.Settings.Mode.String(),
	)

	workers := opts.Workers()
	fmt.Fprintf(status, "Processing images in %d threads. Please wait...\n", workers)

	startTime := time.Now()
	rs, err := ProcessImages(paths, provider, ProcessOptions{
		Workers:  workers,
		Settings: opts.Settings,
		Observer: observer,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("images processed",
		"images", rs.Len(),
		"failures", rs.Failures(),
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)

	grouped, err := similarity.Group(rs, opts.Threshold, similarity.Options{Workers: workers})
	if err != nil {
		return nil, fmt.Errorf("grouping similar images: %w", err)
	}
	return grouped, nil
}

// ProcessImages fingerprints every path with exactly opts.Workers goroutines
// and returns one outcome per path in input order. Per-image failures are
// recorded as outcomes; only collector contract violations abort the run.
func ProcessImages(paths []string, provider imageprocessor.Provider, opts ProcessOptions) (*types.ResultSet, error) {
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = signalhandler.ResolveWorkers(workers)
	}

	dispatcher, err := NewDispatcher(paths, workers)
	if err != nil {
		return nil, err
	}
	collector, err := NewCollector(paths, opts.Settings)
	if err != nil {
		return nil, err
	}

	if opts.Observer != nil {
		opts.Observer.Start(len(paths))
	}

	group, ctx := errgroup.WithContext(context.Background())
	for id := 0; id < workers; id++ {
		group.Go(func() error {
			for ctx.Err() == nil {
				job, ok := dispatcher.Next()
				if !ok {
					return nil
				}

				outcome := hashImage(provider, job.Path, opts.Settings)
				if err := collector.Submit(outcome); err != nil {
					return fmt.Errorf("worker %d: %w", id, err)
				}

				logging.ImageProcessed(logger, outcome)
				if opts.Observer != nil {
					opts.Observer.OnOutcome(outcome)
				}
			}
			return nil
		})
	}

	err = group.Wait()
	if opts.Observer != nil {
		opts.Observer.Finish()
	}
	if err != nil {
		logger.Error("image processing aborted", "error", err)
		return nil, err
	}

	return collector.Freeze()
}

// hashImage fingerprints one image, turning every failure into a Failure
// outcome carrying an *IOError or *DecodeError
func hashImage(provider imageprocessor.Provider, path string, settings types.HashSettings) (outcome types.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = types.Failure(path, &imageprocessor.DecodeError{Path: path, Err: fmt.Errorf("panic while hashing: %v", r)})
		}
	}()

	info, err := provider.Hash(path, settings)
	if err != nil {
		return types.Failure(path, classify(path, err))
	}
	if info.Fingerprint.Width() != settings.Width() {
		return types.Failure(path, &imageprocessor.DecodeError{
			Path: path,
			Err:  fmt.Errorf("fingerprint has %d bits, want %d", info.Fingerprint.Width(), settings.Width()),
		})
	}
	return types.Success(path, info)
}

// classify wraps provider errors that are neither IO nor decode errors
func classify(path string, err error) error {
	var ioErr *imageprocessor.IOError
	var decodeErr *imageprocessor.DecodeError
	if errors.As(err, &ioErr) || errors.As(err, &decodeErr) {
		return err
	}
	return &imageprocessor.DecodeError{Path: path, Err: err}
}

// Workers reports the worker count a scan with these options will use
func (o ScanOptions) Workers() int {
	return signalhandler.ResolveWorkers(o.Threads)
}

var _ Observer = (*ProgressTracker)(nil)
