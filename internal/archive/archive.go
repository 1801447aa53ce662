package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArchiveMedia moves a scratch media directory to
// <parent>/archive/media-<timestamp> and returns the new path
func ArchiveMedia(mediaDir string) (string, error) {
	return archiveAt(mediaDir, time.Now())
}

func archiveAt(mediaDir string, now time.Time) (string, error) {
	info, err := os.Stat(mediaDir)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("media directory does not exist: %s", mediaDir)
	}
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", mediaDir)
	}

	archiveDir := filepath.Join(filepath.Dir(filepath.Clean(mediaDir)), "archive")
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	archivePath := filepath.Join(archiveDir, "media-"+now.Format("20060102-150405"))

	// Two runs within the same second
	if _, err := os.Stat(archivePath); err == nil {
		archivePath = filepath.Join(archiveDir, "media-"+now.Format("20060102-150405.000000"))
	}

	if err := os.Rename(mediaDir, archivePath); err != nil {
		return "", fmt.Errorf("failed to archive media directory: %w", err)
	}

	return archivePath, nil
}
