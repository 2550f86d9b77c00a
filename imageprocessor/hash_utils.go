package imageprocessor

import (
	"fmt"
	"image"

	"github.com/artyom/phash"
	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"

	"imgdup/types"
)

// Names of the available fingerprint backends
const (
	HasherGoImageHash = "goimagehash"
	HasherPHash       = "phash"
	HasherOpenCV      = "opencv"
)

// fastScale sets the thumbnail size fast mode averages over, per hash cell
const fastScale = 4

// Hasher turns a decoded image into a fingerprint
type Hasher interface {
	Name() string
	CheckSettings(settings types.HashSettings) error
	Fingerprint(img image.Image, settings types.HashSettings) (types.Fingerprint, error)
}

// perceptionHasher uses goimagehash: DCT perceptual hash in accurate mode,
// mean hash over a box-filtered thumbnail in fast mode
type perceptionHasher struct{}

func (perceptionHasher) Name() string { return HasherGoImageHash }

func (perceptionHasher) CheckSettings(settings types.HashSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if settings.Width()%64 != 0 {
		return fmt.Errorf("%s needs a hash size that is a multiple of 8, got %d", HasherGoImageHash, settings.Resolution)
	}
	if settings.Mode == types.ModeAccurate && !isPowerOfTwo(settings.Width()) {
		return fmt.Errorf("%s needs a power-of-two hash size in accurate mode, got %d", HasherGoImageHash, settings.Resolution)
	}
	return nil
}

func (perceptionHasher) Fingerprint(img image.Image, settings types.HashSettings) (types.Fingerprint, error) {
	var (
		hash *goimagehash.ExtImageHash
		err  error
	)
	n := settings.Resolution
	switch settings.Mode {
	case types.ModeFast:
		thumb := imaging.Resize(img, n*fastScale, n*fastScale, imaging.Box)
		hash, err = goimagehash.ExtAverageHash(thumb, n, n)
	default:
		hash, err = goimagehash.ExtPerceptionHash(img, n, n)
	}
	if err != nil {
		return types.Fingerprint{}, err
	}
	return types.NewFingerprint(hash.GetHash(), hash.Bits())
}

// dctHasher uses artyom/phash, which always produces 64 bits
type dctHasher struct{}

func (dctHasher) Name() string { return HasherPHash }

func (dctHasher) CheckSettings(settings types.HashSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if settings.Resolution != 8 {
		return fmt.Errorf("%s only supports hash size 8, got %d", HasherPHash, settings.Resolution)
	}
	return nil
}

func (dctHasher) Fingerprint(img image.Image, settings types.HashSettings) (types.Fingerprint, error) {
	filter := imaging.Lanczos
	if settings.Mode == types.ModeFast {
		filter = imaging.NearestNeighbor
	}
	x, err := phash.Get(img, func(img image.Image, w, h int) image.Image {
		return imaging.Resize(img, w, h, filter)
	})
	if err != nil {
		return types.Fingerprint{}, err
	}
	return types.NewFingerprint([]uint64{x}, 64)
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
