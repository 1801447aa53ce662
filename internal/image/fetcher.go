package image

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

const (
	DefaultAttempts = 5
	minAttempts     = 3
	maxAttempts     = 5

	crawlDirName = ".crawl"
)

// ErrNoImage is returned when every attempt came back without an image
var ErrNoImage = errors.New("no image found")

// ClampAttempts maps a requested attempt count into the supported range.
// Zero or negative selects the default.
func ClampAttempts(n int) int {
	switch {
	case n <= 0:
		return DefaultAttempts
	case n < minAttempts:
		return minAttempts
	case n > maxAttempts:
		return maxAttempts
	default:
		return n
	}
}

// Fetcher retries a Crawler and moves its result into a word's scratch dir
type Fetcher struct {
	crawler  Crawler
	attempts int
	logger   *log.Logger
}

// NewFetcher creates a fetcher. A nil logger discards attempt diagnostics.
func NewFetcher(crawler Crawler, attempts int, logger *log.Logger) *Fetcher {
	return &Fetcher{
		crawler:  crawler,
		attempts: ClampAttempts(attempts),
		logger:   logger,
	}
}

// Attempts returns the effective number of attempts per word
func (f *Fetcher) Attempts() int {
	return f.attempts
}

// Fetch stores one image for query as <wordDir>/<name><ext> and returns its
// path. Each attempt runs in a private crawl directory below wordDir so no
// other word's result can be picked up.
func (f *Fetcher) Fetch(ctx context.Context, query, name, wordDir string) (string, error) {
	crawlDir := filepath.Join(wordDir, crawlDirName)
	defer os.RemoveAll(crawlDir)

	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if err := os.RemoveAll(crawlDir); err != nil {
			return "", fmt.Errorf("failed to reset crawl directory: %w", err)
		}
		if err := os.MkdirAll(crawlDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create crawl directory: %w", err)
		}

		err := f.crawler.Crawl(ctx, query, crawlDir)
		if result := findResult(crawlDir); result != "" {
			dest := filepath.Join(wordDir, name+filepath.Ext(result))
			if err := os.Rename(result, dest); err != nil {
				return "", fmt.Errorf("failed to move image: %w", err)
			}
			return dest, nil
		}

		if err == nil {
			err = fmt.Errorf("%s returned no image", f.crawler.Name())
		}
		lastErr = err
		f.logf("image attempt %d/%d for %q failed: %v", attempt, f.attempts, query, err)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	return "", fmt.Errorf("%w for %q after %d attempts: %v", ErrNoImage, query, f.attempts, lastErr)
}

func (f *Fetcher) logf(format string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Printf(format, args...)
	}
}
