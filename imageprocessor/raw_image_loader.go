package imageprocessor

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/barasher/go-exiftool"
	"github.com/disintegration/imaging"
)

// Preview tags tried in order; the largest embedded preview comes first
var previewTags = []string{
	"JpgFromRaw",
	"LargestImagePreview",
	"PreviewImage",
	"OtherImage",
	"ThumbnailImage",
}

// RawPreviewLoader decodes RAW camera files through the JPEG preview they embed.
// It keeps one exiftool process alive for the whole run.
type RawPreviewLoader struct {
	BaseImageLoader

	logger  *slog.Logger
	once    sync.Once
	mu      sync.Mutex
	et      *exiftool.Exiftool
	initErr error
}

// NewRawPreviewLoader creates a new loader for RAW files
func NewRawPreviewLoader(logger *slog.Logger) *RawPreviewLoader {
	return &RawPreviewLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatRAW,
				FormatCR2,
				FormatCR3,
				FormatNEF,
				FormatARW,
				FormatDNG,
			},
		},
		logger: logger,
	}
}

// exiftool starts the exiftool process on first use
func (l *RawPreviewLoader) exiftool() (*exiftool.Exiftool, error) {
	l.once.Do(func() {
		l.et, l.initErr = exiftool.NewExiftool(
			exiftool.ExtractAllBinaryMetadata(),
			exiftool.Buffer(make([]byte, 256*1024), 64*1024*1024),
		)
		if l.initErr != nil {
			l.logger.Warn("exiftool unavailable, RAW files will fail to load", "error", l.initErr)
		}
	})
	return l.et, l.initErr
}

// LoadImage extracts and decodes the embedded preview of a RAW file
func (l *RawPreviewLoader) LoadImage(path string) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &IOError{Path: path, Err: err}
	}

	et, err := l.exiftool()
	if err != nil {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("exiftool unavailable: %w", err)}
	}

	l.mu.Lock()
	infos := et.ExtractMetadata(path)
	l.mu.Unlock()

	if len(infos) == 0 {
		return nil, newImageLoadError("no metadata extracted", path)
	}
	if infos[0].Err != nil {
		return nil, &DecodeError{Path: path, Err: infos[0].Err}
	}

	for _, tag := range previewTags {
		raw, err := infos[0].GetString(tag)
		if err != nil || !strings.HasPrefix(raw, "base64:") {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(raw, "base64:"))
		if err != nil {
			l.logger.Debug("skipping undecodable preview", "path", path, "tag", tag, "error", err)
			continue
		}
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			l.logger.Debug("skipping unreadable preview", "path", path, "tag", tag, "error", err)
			continue
		}
		l.logger.Debug("loaded RAW preview", "path", path, "tag", tag)
		return img, nil
	}

	return nil, &DecodeError{Path: path, Err: errors.New("no embedded preview image")}
}

// Close stops the exiftool process if it was started
func (l *RawPreviewLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.et == nil {
		return nil
	}
	err := l.et.Close()
	l.et = nil
	return err
}
