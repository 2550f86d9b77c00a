package imageprocessor

import (
	"image"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
)

// ImageLoaderRegistry maintains a registry of image loaders
type ImageLoaderRegistry struct {
	loaders   map[string]ImageLoader
	rawLoader *RawPreviewLoader
	mutex     sync.RWMutex
}

// NewImageLoaderRegistry creates a new image loader registry
func NewImageLoaderRegistry(logger *slog.Logger) *ImageLoaderRegistry {
	registry := &ImageLoaderRegistry{
		loaders: make(map[string]ImageLoader),
	}

	standardLoader := NewStandardImageLoader()
	registry.rawLoader = NewRawPreviewLoader(logger)

	for ext, format := range formatExtensions {
		switch {
		case standardLoader.CanLoad(ext):
			registry.RegisterLoader(ext, standardLoader)
		case registry.rawLoader.CanLoad(ext):
			registry.RegisterLoader(ext, registry.rawLoader)
		default:
			logger.Debug("no loader for format", "ext", ext, "format", format)
		}
	}

	return registry
}

// RegisterLoader registers a new loader for a specific file extension
func (r *ImageLoaderRegistry) RegisterLoader(ext string, loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.loaders[strings.ToLower(ext)] = loader
}

// GetLoader returns the appropriate loader for the given path, or nil
func (r *ImageLoaderRegistry) GetLoader(path string) ImageLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.loaders[strings.ToLower(filepath.Ext(path))]
}

// CanLoadFile checks if any registered loader can handle the given file
func (r *ImageLoaderRegistry) CanLoadFile(path string) bool {
	return r.GetLoader(path) != nil
}

// LoadImage loads an image using the appropriate registered loader
func (r *ImageLoaderRegistry) LoadImage(path string) (image.Image, error) {
	loader := r.GetLoader(path)
	if loader == nil {
		return nil, newImageLoadError("no suitable loader found", path)
	}
	return loader.LoadImage(path)
}

// Close releases resources held by the registered loaders
func (r *ImageLoaderRegistry) Close() error {
	return r.rawLoader.Close()
}
