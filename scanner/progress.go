package scanner

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"imgdup/imageprocessor"
	"imgdup/types"
)

// ProgressTracker draws a progress bar and counts processed images.
// It implements Observer.
type ProgressTracker struct {
	mu           sync.Mutex
	out          io.Writer
	bar          *progressbar.ProgressBar
	total        int
	processed    int
	errors       int
	rawProcessed int
	rawErrors    int
	started      time.Time
	elapsed      time.Duration
}

// ProgressSummary is a snapshot of the tracker counters
type ProgressSummary struct {
	Total        int
	Processed    int
	Errors       int
	RawProcessed int
	RawErrors    int
	Elapsed      time.Duration
}

// NewProgressTracker creates a tracker drawing to out; a nil out only counts
func NewProgressTracker(out io.Writer) *ProgressTracker {
	return &ProgressTracker{out: out}
}

// Start creates the bar for total images
func (p *ProgressTracker) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.started = time.Now()
	if p.out == nil {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription("Hashing images"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(p.out)
		}),
	)
}

// OnOutcome updates the counters for one finished image
func (p *ProgressTracker) OnOutcome(outcome types.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processed++
	isRaw := imageprocessor.IsRawFormat(outcome.Path)
	if isRaw {
		p.rawProcessed++
	}
	if !outcome.OK() {
		p.errors++
		if isRaw {
			p.rawErrors++
		}
	}

	if p.bar != nil {
		if !outcome.OK() {
			p.bar.Describe(fmt.Sprintf("Hashing images (errors: %d)", p.errors))
		}
		_ = p.bar.Add(1)
	}
}

// Finish completes the bar
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.elapsed = time.Since(p.started)
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Summary returns the current counters
func (p *ProgressTracker) Summary() ProgressSummary {
	p.mu.Lock()
	defer p.mu.Unlock()

	return ProgressSummary{
		Total:        p.total,
		Processed:    p.processed,
		Errors:       p.errors,
		RawProcessed: p.rawProcessed,
		RawErrors:    p.rawErrors,
		Elapsed:      p.elapsed,
	}
}

// PrintCompletionStats writes the end-of-run statistics
func PrintCompletionStats(w io.Writer, summary ProgressSummary) {
	fmt.Fprintf(w, "Processed %d images in %v.\n", summary.Processed, summary.Elapsed.Round(time.Millisecond))

	if summary.RawProcessed > 0 {
		fmt.Fprintf(w, "Successfully processed %d/%d RAW image files.\n",
			summary.RawProcessed-summary.RawErrors, summary.RawProcessed)
	}

	if summary.Errors > 0 {
		fmt.Fprintf(w, "Encountered %d errors while hashing.\n", summary.Errors)
		fmt.Fprintln(w, "Check the log for details.")
	}
}
