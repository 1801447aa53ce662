package translation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

const appleResponse = `<?xml version="1.0" encoding="UTF-8"?>
<channel>
	<title>한국어 기초사전 개발 지원(Open API) - 사전 검색</title>
	<total>1</total>
	<item>
		<target_code>17466</target_code>
		<word>사과</word>
		<sense>
			<sense_order>1</sense_order>
			<definition>사과나무의 열매.</definition>
			<translation>
				<trans_lang>러시아어</trans_lang>
				<trans_word>яблоко; яблоня</trans_word>
				<trans_dfn>Плод яблони.</trans_dfn>
			</translation>
		</sense>
	</item>
	<item>
		<word>사과</word>
		<sense>
			<translation>
				<trans_word>извинение</trans_word>
			</translation>
		</sense>
	</item>
</channel>`

const emptyResponse = `<?xml version="1.0" encoding="UTF-8"?>
<channel>
	<total>0</total>
</channel>`

const errorResponse = `<?xml version="1.0" encoding="UTF-8"?>
<error>
	<error_code>020</error_code>
	<message>등록되지 않은 인증키입니다.</message>
</error>`

func newTestTranslator(t *testing.T, handler http.HandlerFunc) *Translator {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultConfig("test-key")
	config.BaseURL = server.URL
	config.HTTPClient = server.Client()

	tr, err := NewTranslator(config)
	if err != nil {
		t.Fatalf("NewTranslator() error = %v", err)
	}
	return tr
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("key")

	if config.BaseURL != DefaultBaseURL {
		t.Errorf("Expected base URL %s, got %s", DefaultBaseURL, config.BaseURL)
	}
	if config.TransLang != LangRussian {
		t.Errorf("Expected trans_lang %s, got %s", LangRussian, config.TransLang)
	}
	if config.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", config.Timeout)
	}
	if config.MaxFailures != 5 {
		t.Errorf("Expected 5 max failures, got %d", config.MaxFailures)
	}
}

func TestNewTranslator_NilConfig(t *testing.T) {
	if _, err := NewTranslator(nil); err == nil {
		t.Error("Expected error for nil config")
	}
}

func TestNewTranslator_BadCACert(t *testing.T) {
	certFile := filepath.Join(t.TempDir(), "cert.pem")
	if err := os.WriteFile(certFile, []byte("not a certificate"), 0644); err != nil {
		t.Fatal(err)
	}

	config := DefaultConfig("key")
	config.CACertFile = certFile
	if _, err := NewTranslator(config); err == nil {
		t.Error("Expected error for invalid CA bundle")
	}

	config.CACertFile = filepath.Join(t.TempDir(), "missing.pem")
	if _, err := NewTranslator(config); err == nil {
		t.Error("Expected error for missing CA bundle")
	}
}

func TestTranslateWord(t *testing.T) {
	var gotQuery map[string]string
	tr := newTestTranslator(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"key":        q.Get("key"),
			"q":          q.Get("q"),
			"translated": q.Get("translated"),
			"trans_lang": q.Get("trans_lang"),
			"lang":       q.Get("lang"),
		}
		fmt.Fprint(w, appleResponse)
	})

	got, err := tr.TranslateWord(context.Background(), "사과")
	if err != nil {
		t.Fatalf("TranslateWord() error = %v", err)
	}
	if got != "яблоко; яблоня" {
		t.Errorf("TranslateWord() = %q, want %q", got, "яблоко; яблоня")
	}

	want := map[string]string{"key": "test-key", "q": "사과", "translated": "y", "trans_lang": "10", "lang": "10"}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query param %s = %q, want %q", k, gotQuery[k], v)
		}
	}
}

func TestTranslateWord_NoMatch(t *testing.T) {
	tr := newTestTranslator(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, emptyResponse)
	})

	_, err := tr.TranslateWord(context.Background(), "바나나")
	if !errors.Is(err, ErrNoTranslation) {
		t.Errorf("Expected ErrNoTranslation, got %v", err)
	}
}

func TestTranslateWord_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		checkFn func(t *testing.T, err error)
	}{
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   "boom",
			checkFn: func(t *testing.T, err error) {
				var statusErr *StatusError
				if !errors.As(err, &statusErr) || statusErr.StatusCode != 500 {
					t.Errorf("Expected StatusError 500, got %v", err)
				}
			},
		},
		{
			name:   "truncated xml",
			status: http.StatusOK,
			body:   "<channel><item><sense>",
		},
		{
			name:   "not xml",
			status: http.StatusOK,
			body:   "service temporarily unavailable",
		},
		{
			name:   "unexpected document",
			status: http.StatusOK,
			body:   "<html><body>maintenance</body></html>",
		},
		{
			name:   "api error document",
			status: http.StatusOK,
			body:   errorResponse,
			checkFn: func(t *testing.T, err error) {
				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.Code != "020" {
					t.Errorf("Expected APIError 020, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTranslator(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := tr.TranslateWord(context.Background(), "사과")
			if err == nil {
				t.Fatal("Expected error")
			}
			if errors.Is(err, ErrNoTranslation) {
				t.Errorf("Failure must not be reported as a missing translation: %v", err)
			}
			if tt.checkFn != nil {
				tt.checkFn(t, err)
			}
		})
	}
}

func TestTranslateWord_NoAPIKey(t *testing.T) {
	tr, err := NewTranslator(DefaultConfig(""))
	if err != nil {
		t.Fatalf("NewTranslator() error = %v", err)
	}

	_, err = tr.TranslateWord(context.Background(), "사과")
	if err == nil || !strings.Contains(err.Error(), "API key") {
		t.Errorf("Expected API key error, got %v", err)
	}
}

func TestTranslateWord_BreakerOpens(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	config := DefaultConfig("test-key")
	config.BaseURL = server.URL
	config.HTTPClient = server.Client()
	config.MaxFailures = 3
	config.OpenTimeout = time.Hour
	var logs bytes.Buffer
	config.Logger = log.New(&logs, "", 0)

	tr, err := NewTranslator(config)
	if err != nil {
		t.Fatalf("NewTranslator() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := tr.TranslateWord(context.Background(), "사과"); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("Expected 3 requests before the breaker opened, got %d", got)
	}
	if tr.State() != gobreaker.StateOpen {
		t.Errorf("Expected breaker to be open, got %s", tr.State())
	}
	if !strings.Contains(logs.String(), "Circuit breaker krdict: closed -> open") {
		t.Errorf("Expected state change in logger output, got %q", logs.String())
	}

	_, err = tr.TranslateWord(context.Background(), "사과")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Expected ErrOpenState, got %v", err)
	}
}

func TestTranslateWord_NoMatchKeepsBreakerClosed(t *testing.T) {
	tr := newTestTranslator(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, emptyResponse)
	})

	for i := 0; i < 10; i++ {
		tr.TranslateWord(context.Background(), "바나나")
	}

	if tr.State() != gobreaker.StateClosed {
		t.Errorf("Expected breaker to stay closed, got %s", tr.State())
	}
}

func TestFirstSense(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"apple", "apple"},
		{"яблоко; яблоня", "яблоко"},
		{" a ;b;c", "a"},
		{"", ""},
		{";x", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := FirstSense(tt.input); got != tt.want {
				t.Errorf("FirstSense(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
