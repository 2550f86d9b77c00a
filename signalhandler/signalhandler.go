package signalhandler

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

// exit is replaced in tests
var (
	osExit = os.Exit
	exit   = osExit
)

// SetupHandler runs cleanup and terminates the process on SIGINT or SIGTERM.
// Work in flight is not drained; cleanup should only release locks and
// flush logs. The returned function detaches the handler.
func SetupHandler(cleanup func()) (stop func()) {
	// Create a channel to receive OS signals
	sigChan := make(chan os.Signal, 1)
	done := make(chan struct{})

	// Register for specific signals
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Handle signals in a separate goroutine
	go func() {
		select {
		case sig := <-sigChan:
			if cleanup != nil {
				cleanup()
			}
			code := 1
			if s, ok := sig.(syscall.Signal); ok {
				code = 128 + int(s)
			}
			exit(code)
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

// ResolveWorkers turns the configured thread count into a worker count.
// Zero or less means one worker per CPU.
func ResolveWorkers(threads int) int {
	if threads > 0 {
		return threads
	}
	return runtime.NumCPU()
}

// GetOptimalProcs returns the worker count used for cgo-backed hashing when
// no thread count is configured
func GetOptimalProcs() int {
	// For image processing with CGo, using too many goroutines can cause issues
	maxProcs := (runtime.NumCPU() * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}
	return maxProcs
}
