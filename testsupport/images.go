package testsupport

import (
	"image"
	"image/color"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

// Gradient returns a horizontal grayscale ramp, optionally mirrored.
func Gradient(width, height int, mirrored bool) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(x * 255 / max(width-1, 1))
			if mirrored {
				v = 255 - v
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// Checkerboard returns a black and white board with square cells of the given size.
func Checkerboard(width, height, cell int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA{A: 255}
			if (x/cell+y/cell)%2 == 0 {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// Noise returns blocky grayscale noise that is fully determined by seed.
func Noise(width, height int, seed uint64) image.Image {
	const block = 8
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	cols, rows := (width+block-1)/block, (height+block-1)/block
	cells := make([]uint8, cols*rows)
	for i := range cells {
		cells[i] = uint8(rng.IntN(256))
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := cells[(y/block)*cols+x/block]
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// WriteImage encodes img to path, choosing the format from the extension.
func WriteImage(t testing.TB, path string, img image.Image) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(95)); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
}

// WriteBytes writes raw content to path, creating parent directories.
func WriteBytes(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
