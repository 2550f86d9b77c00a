package imageprocessor

import (
	"fmt"
	"log/slog"
	"os"

	"imgdup/types"
)

// ImageProvider fingerprints images decoded in Go by the loader registry
type ImageProvider struct {
	registry *ImageLoaderRegistry
	hasher   Hasher
	logger   *slog.Logger
}

// Hashers lists the accepted backend names
func Hashers() []string {
	return []string{HasherGoImageHash, HasherPHash, HasherOpenCV}
}

// CheckSettings reports whether the named backend can produce fingerprints for settings
func CheckSettings(hasher string, settings types.HashSettings) error {
	switch hasher {
	case HasherGoImageHash, "":
		return perceptionHasher{}.CheckSettings(settings)
	case HasherPHash:
		return dctHasher{}.CheckSettings(settings)
	case HasherOpenCV:
		return checkOpenCVSettings(settings)
	default:
		return fmt.Errorf("unknown hasher %q", hasher)
	}
}

// NewProvider builds the fingerprint provider for the named backend
func NewProvider(hasher string, settings types.HashSettings, logger *slog.Logger) (Provider, error) {
	if err := CheckSettings(hasher, settings); err != nil {
		return nil, err
	}

	switch hasher {
	case HasherOpenCV:
		return newOpenCVProvider(logger)
	case HasherPHash:
		return NewImageProvider(dctHasher{}, logger), nil
	default:
		return NewImageProvider(perceptionHasher{}, logger), nil
	}
}

// NewImageProvider creates a provider backed by the Go loader registry
func NewImageProvider(hasher Hasher, logger *slog.Logger) *ImageProvider {
	return &ImageProvider{
		registry: NewImageLoaderRegistry(logger),
		hasher:   hasher,
		logger:   logger,
	}
}

// Hash loads the image at path and computes its fingerprint
func (p *ImageProvider) Hash(path string, settings types.HashSettings) (types.ImageInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return types.ImageInfo{}, &IOError{Path: path, Err: err}
	}

	img, err := p.registry.LoadImage(path)
	if err != nil {
		return types.ImageInfo{}, err
	}

	fp, err := p.hasher.Fingerprint(img, settings)
	if err != nil {
		return types.ImageInfo{}, &DecodeError{Path: path, Err: fmt.Errorf("%s: %w", p.hasher.Name(), err)}
	}
	if fp.Width() != settings.Width() {
		return types.ImageInfo{}, &DecodeError{
			Path: path,
			Err:  fmt.Errorf("%s produced %d bits, want %d", p.hasher.Name(), fp.Width(), settings.Width()),
		}
	}

	bounds := img.Bounds()
	return types.ImageInfo{
		Format:      string(GetFileFormat(path)),
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Size:        fileInfo.Size(),
		Fingerprint: fp,
	}, nil
}

// Close stops helper processes started by the loaders
func (p *ImageProvider) Close() error {
	return p.registry.Close()
}
