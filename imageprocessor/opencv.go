//go:build opencv

package imageprocessor

import (
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"os"
	"sort"

	"gocv.io/x/gocv"

	"imgdup/types"
)

// openCVProvider decodes and hashes images with OpenCV.
// Formats OpenCV cannot read are decoded in Go and converted to a Mat.
type openCVProvider struct {
	fallback *ImageLoaderRegistry
	logger   *slog.Logger
}

func checkOpenCVSettings(settings types.HashSettings) error {
	return settings.Validate()
}

func newOpenCVProvider(logger *slog.Logger) (Provider, error) {
	return &openCVProvider{
		fallback: NewImageLoaderRegistry(logger),
		logger:   logger,
	}, nil
}

// Hash loads the image in grayscale and computes its fingerprint.
// Fast mode decodes at half resolution and uses the mean hash.
func (p *openCVProvider) Hash(path string, settings types.HashSettings) (types.ImageInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return types.ImageInfo{}, &IOError{Path: path, Err: err}
	}

	flags := gocv.IMReadGrayScale
	if settings.Mode == types.ModeFast {
		flags = gocv.IMReadReducedGrayscale2
	}

	img := gocv.IMRead(path, flags)
	if img.Empty() {
		img.Close()
		p.logger.Debug("OpenCV could not read image, falling back to Go decoder", "path", path)
		img, err = p.loadWithFallback(path)
		if err != nil {
			return types.ImageInfo{}, err
		}
	}
	defer img.Close()

	width, height := img.Cols(), img.Rows()
	if settings.Mode == types.ModeFast {
		if cfg, err := probeDimensions(path); err == nil {
			width, height = cfg.Width, cfg.Height
		}
	}

	var bits []bool
	if settings.Mode == types.ModeFast {
		bits = computeMeanBits(img, settings.Resolution)
	} else {
		bits = computeDCTBits(img, settings.Resolution)
	}

	fp, err := packBits(bits)
	if err != nil {
		return types.ImageInfo{}, &DecodeError{Path: path, Err: err}
	}

	return types.ImageInfo{
		Format:      string(GetFileFormat(path)),
		Width:       width,
		Height:      height,
		Size:        fileInfo.Size(),
		Fingerprint: fp,
	}, nil
}

func (p *openCVProvider) Close() error {
	return p.fallback.Close()
}

// loadWithFallback decodes the image in Go and converts it to a grayscale Mat
func (p *openCVProvider) loadWithFallback(path string) (gocv.Mat, error) {
	decoded, err := p.fallback.LoadImage(path)
	if err != nil {
		return gocv.NewMat(), err
	}

	bounds := decoded.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), decoded, bounds.Min, draw.Src)

	mat, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return gocv.NewMat(), &DecodeError{Path: path, Err: err}
	}
	return mat, nil
}

// computeDCTBits takes the n×n low frequencies of the DCT of a 4n×4n
// thumbnail and compares each against their median
func computeDCTBits(img gocv.Mat, n int) []bool {
	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img, &resized, image.Point{X: 4 * n, Y: 4 * n}, 0, 0, gocv.InterpolationArea)

	floatImg := gocv.NewMat()
	defer floatImg.Close()
	resized.ConvertTo(&floatImg, gocv.MatTypeCV32F)

	dct := gocv.NewMat()
	defer dct.Close()
	gocv.DCT(floatImg, &dct, 0)

	values := make([]float32, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			values = append(values, dct.GetFloatAt(y, x))
		}
	}

	median := calculateMedian(values)
	bits := make([]bool, len(values))
	for i, v := range values {
		bits[i] = v > median
	}
	return bits
}

// computeMeanBits compares each pixel of an n×n thumbnail against the mean
func computeMeanBits(img gocv.Mat, n int) []bool {
	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img, &resized, image.Point{X: n, Y: n}, 0, 0, gocv.InterpolationArea)

	var sum float64
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			sum += float64(resized.GetUCharAt(y, x))
		}
	}
	mean := sum / float64(n*n)

	bits := make([]bool, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			bits = append(bits, float64(resized.GetUCharAt(y, x)) > mean)
		}
	}
	return bits
}

// calculateMedian calculates the median value of a float32 slice
func calculateMedian(values []float32) float32 {
	sorted := make([]float32, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	length := len(sorted)
	switch {
	case length == 0:
		return 0
	case length%2 == 0:
		return (sorted[length/2-1] + sorted[length/2]) / 2
	default:
		return sorted[length/2]
	}
}

// packBits packs bits most significant first into a fingerprint
func packBits(bits []bool) (types.Fingerprint, error) {
	if len(bits) == 0 {
		return types.Fingerprint{}, fmt.Errorf("no bits to pack")
	}
	words := make([]uint64, (len(bits)+63)/64)
	for i, set := range bits {
		if set {
			words[i/64] |= 1 << uint(63-i%64)
		}
	}
	return types.NewFingerprint(words, len(bits))
}

// probeDimensions reads the image size from the file header
func probeDimensions(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	return cfg, err
}
