//go:build !opencv

package imageprocessor

import (
	"errors"
	"log/slog"

	"imgdup/types"
)

// ErrOpenCVUnavailable is returned when the opencv hasher is requested from a
// binary built without the opencv tag
var ErrOpenCVUnavailable = errors.New("imgdup was built without OpenCV support (rebuild with -tags opencv)")

func checkOpenCVSettings(types.HashSettings) error {
	return ErrOpenCVUnavailable
}

func newOpenCVProvider(*slog.Logger) (Provider, error) {
	return nil, ErrOpenCVUnavailable
}
