package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"imgdup/imageprocessor"
)

// FindImages lists the files under root whose extension is in extensions,
// sorted lexically. Subdirectories are only entered when recursive is set.
// Unreadable subdirectories are skipped.
func FindImages(root string, recursive bool, extensions []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot access search directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("search path %s is not a directory", root)
	}

	fold := cases.Fold()
	wanted := extensionSet(fold, extensions)

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != root && !recursive {
				return fs.SkipDir
			}
			return nil
		}
		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		if wanted[fold.String(ext)] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

// extensionSet normalises extensions for case-insensitive matching
func extensionSet(fold cases.Caser, extensions []string) map[string]bool {
	if len(extensions) == 0 {
		extensions = imageprocessor.GetSupportedExtensions()
	}
	set := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext != "" {
			set[fold.String(ext)] = true
		}
	}
	return set
}

// ApplyLimit keeps the first limit paths; limit <= 0 keeps them all
func ApplyLimit(paths []string, limit int) []string {
	if limit <= 0 || limit >= len(paths) {
		return paths
	}
	return paths[:limit]
}

// FileStats counts the discovered files by kind
type FileStats struct {
	Total int
	Raw   int
}

// CountFiles classifies the discovered paths
func CountFiles(paths []string) FileStats {
	stats := FileStats{Total: len(paths)}
	for _, path := range paths {
		if imageprocessor.IsRawFormat(path) {
			stats.Raw++
		}
	}
	return stats
}
