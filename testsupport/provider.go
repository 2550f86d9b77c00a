package testsupport

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"imgdup/types"
)

// FakeProvider returns scripted fingerprints without decoding anything.
// Paths without a script entry fail with ErrNotScripted.
type FakeProvider struct {
	mu       sync.Mutex
	infos    map[string]types.ImageInfo
	failures map[string]error
	panics   map[string]bool

	// Delay is slept before every Hash call
	Delay time.Duration

	calls  atomic.Int64
	closed atomic.Bool
}

// ErrNotScripted is returned for paths the fake knows nothing about
var ErrNotScripted = errors.New("path not scripted")

// NewFakeProvider creates an empty fake provider.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		infos:    make(map[string]types.ImageInfo),
		failures: make(map[string]error),
		panics:   make(map[string]bool),
	}
}

// Set scripts a successful fingerprint for path.
func (p *FakeProvider) Set(path string, fp types.Fingerprint) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.infos[path] = types.ImageInfo{Format: "fake", Width: 1, Height: 1, Fingerprint: fp}
	return p
}

// Fail scripts an error for path.
func (p *FakeProvider) Fail(path string, err error) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[path] = err
	return p
}

// Panic makes Hash panic for path.
func (p *FakeProvider) Panic(path string) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.panics[path] = true
	return p
}

// Hash implements imageprocessor.Provider.
func (p *FakeProvider) Hash(path string, settings types.HashSettings) (types.ImageInfo, error) {
	p.calls.Add(1)
	if p.Delay > 0 {
		time.Sleep(p.Delay)
	}

	p.mu.Lock()
	info, ok := p.infos[path]
	err := p.failures[path]
	shouldPanic := p.panics[path]
	p.mu.Unlock()

	switch {
	case shouldPanic:
		panic(fmt.Sprintf("scripted panic for %s", path))
	case err != nil:
		return types.ImageInfo{}, err
	case !ok:
		return types.ImageInfo{}, fmt.Errorf("%s: %w", path, ErrNotScripted)
	}
	if info.Fingerprint.Width() != settings.Width() {
		return types.ImageInfo{}, fmt.Errorf("%s: scripted width %d, want %d", path, info.Fingerprint.Width(), settings.Width())
	}
	if fi, statErr := os.Stat(path); statErr == nil {
		info.Size = fi.Size()
	}
	return info, nil
}

// Close implements imageprocessor.Provider.
func (p *FakeProvider) Close() error {
	p.closed.Store(true)
	return nil
}

// Calls returns how many times Hash was invoked.
func (p *FakeProvider) Calls() int {
	return int(p.calls.Load())
}

// Closed reports whether Close was called.
func (p *FakeProvider) Closed() bool {
	return p.closed.Load()
}

// Fingerprint64 builds a 64-bit fingerprint, failing the test on error.
func Fingerprint64(t testing.TB, bits uint64) types.Fingerprint {
	t.Helper()
	fp, err := types.NewFingerprint([]uint64{bits}, 64)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	return fp
}
