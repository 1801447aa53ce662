package image

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func newBingServer(t *testing.T, page func(base string) string, imageHandler http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/images/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page(server.URL))
	})
	mux.HandleFunc("/img/", imageHandler)

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func metadataPage(base string) string {
	return `<html><body>
<a class="iusc" m='{"murl":"` + base + `/img/broken.jpg","turl":"` + base + `/img/thumb"}'>x</a>
<a class="iusc" m='{"murl":"` + base + `/img/apple.png"}'>y</a>
<a class="iusc" m='not json'>z</a>
</body></html>`
}

func TestBingCrawler_Crawl(t *testing.T) {
	png := pngBytes(t)
	server := newBingServer(t, func(base string) string { return metadataPage(base) },
		func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/img/apple.png":
				w.Header().Set("Content-Type", "image/png")
				w.Write(png)
			default:
				http.NotFound(w, r)
			}
		})

	crawler := NewBingCrawler(&BingConfig{BaseURL: server.URL + "/images/search"})

	dir := t.TempDir()
	if err := crawler.Crawl(context.Background(), "яблоко", dir); err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "000001.png"))
	if err != nil {
		t.Fatalf("Expected 000001.png: %v", err)
	}
	if len(data) != len(png) {
		t.Errorf("Stored %d bytes, want %d", len(data), len(png))
	}
}

func TestBingCrawler_FallbackToImgTag(t *testing.T) {
	server := newBingServer(t, func(base string) string {
		return `<html><body><img src="data:image/gif;base64,R0lGOD"><img src="/img/cat.gif"></body></html>`
	}, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/gif")
		w.Write(gifBytes)
	})

	crawler := NewBingCrawler(&BingConfig{BaseURL: server.URL + "/images/search"})
	dir := t.TempDir()
	if err := crawler.Crawl(context.Background(), "кошка", dir); err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "000001.gif")); err != nil {
		t.Errorf("Expected 000001.gif: %v", err)
	}
}

func TestBingCrawler_Failures(t *testing.T) {
	tests := []struct {
		name  string
		page  string
		image http.HandlerFunc
	}{
		{
			name: "no results",
			page: `<html><body><p>nothing here</p></body></html>`,
		},
		{
			name: "result is not an image",
			page: `<html><body><img src="/img/a.jpg"></body></html>`,
			image: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				fmt.Fprint(w, "<html>blocked</html>")
			},
		},
		{
			name: "image server error",
			page: `<html><body><img src="/img/a.jpg"></body></html>`,
			image: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := tt.image
			if handler == nil {
				handler = http.NotFound
			}
			page := tt.page
			server := newBingServer(t, func(string) string { return page }, handler)

			crawler := NewBingCrawler(&BingConfig{BaseURL: server.URL + "/images/search"})
			dir := t.TempDir()
			if err := crawler.Crawl(context.Background(), "사과", dir); err == nil {
				t.Fatal("Expected error")
			}
			if got := findResult(dir); got != "" {
				t.Errorf("Expected no result file, found %s", got)
			}
		})
	}
}

func TestBingCrawler_ResultsPageDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	crawler := NewBingCrawler(&BingConfig{BaseURL: server.URL})
	if err := crawler.Crawl(context.Background(), "사과", t.TempDir()); err == nil {
		t.Error("Expected error when the results page fails")
	}
}

func TestBingCrawler_FreshCollectorPerCrawl(t *testing.T) {
	png := pngBytes(t)
	var pageHits int32
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/images/search", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&pageHits, 1)
		fmt.Fprintf(w, `<html><body><img src="%s/img/a.png"></body></html>`, server.URL)
	})
	mux.HandleFunc("/img/a.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write(png)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	crawler := NewBingCrawler(&BingConfig{BaseURL: server.URL + "/images/search"})
	for i := 0; i < 2; i++ {
		if err := crawler.Crawl(context.Background(), "사과", t.TempDir()); err != nil {
			t.Fatalf("crawl %d: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&pageHits); got != 2 {
		t.Errorf("Expected the same query to be crawled twice, got %d page loads", got)
	}
}

func TestBingCrawler_EmptyKeyword(t *testing.T) {
	crawler := NewBingCrawler(nil)
	err := crawler.Crawl(context.Background(), "  ", t.TempDir())

	var searchErr *SearchError
	if !errors.As(err, &searchErr) || searchErr.Code != "EMPTY_QUERY" {
		t.Errorf("Expected EMPTY_QUERY SearchError, got %v", err)
	}
	if crawler.Name() != "bing" {
		t.Errorf("Name() = %q", crawler.Name())
	}
}
