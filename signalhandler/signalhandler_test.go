package signalhandler

import (
	"runtime"
	"syscall"
	"testing"
	"time"
)

func TestResolveWorkers(t *testing.T) {
	tests := []struct {
		threads int
		want    int
	}{
		{threads: 1, want: 1},
		{threads: 16, want: 16},
		{threads: 0, want: runtime.NumCPU()},
		{threads: -3, want: runtime.NumCPU()},
	}
	for _, tt := range tests {
		if got := ResolveWorkers(tt.threads); got != tt.want {
			t.Errorf("ResolveWorkers(%d) = %d, want %d", tt.threads, got, tt.want)
		}
	}
}

func TestGetOptimalProcsAtLeastOne(t *testing.T) {
	if got := GetOptimalProcs(); got < 1 || got > runtime.NumCPU() {
		t.Fatalf("GetOptimalProcs() = %d, want within [1, %d]", got, runtime.NumCPU())
	}
}

func TestSetupHandlerRunsCleanupBeforeExit(t *testing.T) {
	codes := make(chan int, 1)
	exit = func(code int) { codes <- code }
	t.Cleanup(func() { exit = osExit })

	cleaned := make(chan struct{})
	stop := SetupHandler(func() { close(cleaned) })
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("kill: %v", err)
	}

	select {
	case code := <-codes:
		select {
		case <-cleaned:
		default:
			t.Fatal("exit called before cleanup")
		}
		if code != 128+int(syscall.SIGTERM) {
			t.Errorf("exit code = %d, want %d", code, 128+int(syscall.SIGTERM))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("signal was not handled")
	}
}
