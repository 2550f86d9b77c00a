// Package imageprocessor loads images and turns them into perceptual fingerprints.
package imageprocessor

import "imgdup/types"

// Provider computes the fingerprint of one image file.
// Implementations must be safe for concurrent use by multiple workers.
type Provider interface {
	// Hash decodes the image at path and fingerprints it with the given settings.
	// Errors are *IOError or *DecodeError.
	Hash(path string, settings types.HashSettings) (types.ImageInfo, error)

	// Close releases helper processes and handles held by the provider
	Close() error
}
