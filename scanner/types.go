package scanner

import (
	"io"
	"log/slog"

	"imgdup/types"
)

// ScanOptions defines the options for scanning a folder
type ScanOptions struct {
	Root       string
	Recursive  bool
	Extensions []string // without dots; empty means every supported format
	Limit      int      // 0 means no limit
	Threads    int      // 0 means one worker per CPU
	Settings   types.HashSettings
	Threshold  float64 // fraction of differing bits, inclusive

	// Status receives the human-readable progress lines; nil discards them
	Status io.Writer
	Logger *slog.Logger
}

// ProcessOptions configures one run of the worker pool
type ProcessOptions struct {
	Workers  int
	Settings types.HashSettings
	Observer Observer
	Logger   *slog.Logger
}

// Observer is told about the run as it progresses.
// OnOutcome is called from worker goroutines and must be safe for concurrent use.
type Observer interface {
	Start(total int)
	OnOutcome(outcome types.Outcome)
	Finish()
}

// Job is one unit of work handed out by the Dispatcher
type Job struct {
	Index int
	Path  string
}
