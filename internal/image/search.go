package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/webp"
)

// resultName is the base name a crawler gives its first (and only) result
const resultName = "000001"

// Crawler fetches one image for a keyword into a directory
type Crawler interface {
	// Crawl stores at most one image named 000001.<ext> in destDir
	Crawl(ctx context.Context, keyword, destDir string) error

	// Name returns the name of the image source
	Name() string
}

// SearchError represents an error from an image source
type SearchError struct {
	Provider string
	Code     string
	Message  string
}

func (e *SearchError) Error() string {
	return e.Provider + ": " + e.Message
}

// detectExtension checks that data decodes as an image and returns the
// file extension for its format
func detectExtension(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("not a supported image: %w", err)
	}

	switch format {
	case "jpeg":
		return ".jpg", nil
	case "png", "gif", "webp":
		return "." + format, nil
	default:
		return "", fmt.Errorf("unsupported image format %q", format)
	}
}

// saveResult validates data and writes it as destDir/000001.<ext>
func saveResult(data []byte, destDir string) (string, error) {
	ext, err := detectExtension(data)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(destDir, resultName+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return path, nil
}

// findResult returns the 000001.* file in dir, or "" when there is none
func findResult(dir string) string {
	matches, _ := filepath.Glob(filepath.Join(dir, resultName+".*"))
	for _, match := range matches {
		if info, err := os.Stat(match); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
			return match
		}
	}
	return ""
}
