package image

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const (
	bingImagesURL       = "https://www.bing.com/images/search"
	bingUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	defaultCrawlTimeout = 30 * time.Second
	maxCandidates       = 3
	maxImageBytes       = 10 * 1024 * 1024
)

// BingConfig configures the Bing image crawler
type BingConfig struct {
	BaseURL string        // results page, defaults to Bing image search
	Timeout time.Duration // per request
}

// BingCrawler scrapes the Bing image results page with colly
type BingCrawler struct {
	baseURL string
	timeout time.Duration
}

// bingMetadata is the JSON stored in the m attribute of a.iusc result links
type bingMetadata struct {
	MediaURL string `json:"murl"`
	ThumbURL string `json:"turl"`
}

// NewBingCrawler creates a new Bing image crawler
func NewBingCrawler(config *BingConfig) *BingCrawler {
	c := &BingCrawler{baseURL: bingImagesURL, timeout: defaultCrawlTimeout}
	if config != nil {
		if config.BaseURL != "" {
			c.baseURL = config.BaseURL
		}
		if config.Timeout > 0 {
			c.timeout = config.Timeout
		}
	}
	return c
}

// Name returns the name of the image source
func (b *BingCrawler) Name() string {
	return "bing"
}

// newCollector returns a fresh collector. colly refuses to visit a URL twice,
// so every crawl gets its own.
func (b *BingCrawler) newCollector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(bingUserAgent),
		colly.MaxBodySize(maxImageBytes),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(b.timeout)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", "ko-KR,ko;q=0.9,ru;q=0.8,en;q=0.7")
	})
	return c
}

// Crawl searches for keyword and stores the first decodable result in destDir
func (b *BingCrawler) Crawl(ctx context.Context, keyword, destDir string) error {
	if strings.TrimSpace(keyword) == "" {
		return &SearchError{Provider: "bing", Code: "EMPTY_QUERY", Message: "empty search keyword"}
	}

	candidates, err := b.search(ctx, keyword)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return &SearchError{Provider: "bing", Code: "NO_RESULTS", Message: fmt.Sprintf("no images found for %q", keyword)}
	}

	var lastErr error
	for i, candidate := range candidates {
		if i >= maxCandidates {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := b.download(ctx, candidate)
		if err != nil {
			lastErr = err
			continue
		}
		if _, err := saveResult(data, destDir); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return fmt.Errorf("no usable image for %q: %w", keyword, lastErr)
}

// search collects candidate image URLs from the results page
func (b *BingCrawler) search(ctx context.Context, keyword string) ([]string, error) {
	params := url.Values{}
	params.Set("q", keyword)
	params.Set("form", "HDRSC2")
	params.Set("first", "1")

	var candidates []string
	seen := make(map[string]bool)
	add := func(raw string, e *colly.HTMLElement) {
		if raw == "" || strings.HasPrefix(raw, "data:") {
			return
		}
		abs := e.Request.AbsoluteURL(raw)
		if abs != "" && !seen[abs] {
			seen[abs] = true
			candidates = append(candidates, abs)
		}
	}

	c := b.newCollector(ctx)

	c.OnHTML("a.iusc[m]", func(e *colly.HTMLElement) {
		var meta bingMetadata
		if err := json.Unmarshal([]byte(e.Attr("m")), &meta); err != nil {
			return
		}
		add(meta.MediaURL, e)
	})

	// Without metadata links fall back to the first plain images on the page
	c.OnHTML("body", func(e *colly.HTMLElement) {
		if len(candidates) > 0 {
			return
		}
		e.DOM.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			src, ok := s.Attr("src")
			if !ok || src == "" {
				src, _ = s.Attr("data-src")
			}
			add(src, e)
			return len(candidates) < maxCandidates
		})
	})

	if err := c.Visit(b.baseURL + "?" + params.Encode()); err != nil {
		return nil, fmt.Errorf("failed to load results page: %w", err)
	}
	c.Wait()

	return candidates, nil
}

// download fetches one image body
func (b *BingCrawler) download(ctx context.Context, imageURL string) ([]byte, error) {
	var body []byte
	c := b.newCollector(ctx)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")
	})
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	if err := c.Visit(imageURL); err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", imageURL, err)
	}
	c.Wait()

	if len(body) == 0 {
		return nil, fmt.Errorf("empty image body from %s", imageURL)
	}
	return body, nil
}
