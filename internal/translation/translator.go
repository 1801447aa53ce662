package translation

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/sony/gobreaker"
)

const (
	// DefaultBaseURL is the krdict search endpoint
	DefaultBaseURL = "https://krdict.korean.go.kr/api/search"

	// LangRussian is krdict's trans_lang code for Russian
	LangRussian = "10"

	defaultTimeout     = 30 * time.Second
	defaultMaxFailures = 5
	defaultOpenTimeout = time.Minute
	maxResponseBytes   = 1 << 20
)

// ErrNoTranslation is returned when the dictionary has no match for a word
var ErrNoTranslation = errors.New("no translation found")

// StatusError is returned for non-200 responses from the dictionary
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("krdict returned status %d: %s", e.StatusCode, e.Body)
}

// APIError is returned when krdict answers with an <error> document,
// e.g. for an invalid API key
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("krdict error %s: %s", e.Code, e.Message)
}

// Config configures the dictionary client
type Config struct {
	APIKey     string
	BaseURL    string
	TransLang  string        // krdict trans_lang code
	Timeout    time.Duration // per request
	CACertFile string        // optional extra CA bundle (PEM)

	// Circuit breaker
	MaxFailures uint32        // consecutive failures before the breaker opens
	OpenTimeout time.Duration // how long the breaker stays open

	HTTPClient *http.Client // overrides Timeout and CACertFile when set
	Logger     *log.Logger  // breaker state changes, log.Default() when nil
}

// DefaultConfig returns the configuration used by the CLI
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		BaseURL:     DefaultBaseURL,
		TransLang:   LangRussian,
		Timeout:     defaultTimeout,
		MaxFailures: defaultMaxFailures,
		OpenTimeout: defaultOpenTimeout,
	}
}

// Translator handles Korean word lookups against krdict
type Translator struct {
	config  *Config
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewTranslator creates a new translator instance
func NewTranslator(config *Config) (*Translator, error) {
	if config == nil {
		return nil, fmt.Errorf("translation config is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.TransLang == "" {
		config.TransLang = LangRussian
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.MaxFailures == 0 {
		config.MaxFailures = defaultMaxFailures
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = defaultOpenTimeout
	}

	client := config.HTTPClient
	if client == nil {
		var err error
		client, err = newHTTPClient(config)
		if err != nil {
			return nil, err
		}
	}

	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	maxFailures := config.MaxFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "krdict",
		MaxRequests: 1,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoTranslation) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &Translator{
		config:  config,
		client:  client,
		breaker: breaker,
	}, nil
}

func newHTTPClient(config *Config) (*http.Client, error) {
	client := &http.Client{Timeout: config.Timeout}
	if config.CACertFile == "" {
		return client, nil
	}

	pem, err := os.ReadFile(config.CACertFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", config.CACertFile)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	client.Transport = transport
	return client, nil
}

// TranslateWord returns the first translation of a Korean word.
// The result may hold several senses separated by ';'.
func (t *Translator) TranslateWord(ctx context.Context, word string) (string, error) {
	if t.config.APIKey == "" {
		return "", fmt.Errorf("krdict API key not set")
	}

	result, err := t.breaker.Execute(func() (interface{}, error) {
		return t.lookup(ctx, word)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("dictionary unavailable: %w", err)
		}
		return "", err
	}

	return result.(string), nil
}

// State reports the circuit breaker state
func (t *Translator) State() gobreaker.State {
	return t.breaker.State()
}

func (t *Translator) lookup(ctx context.Context, word string) (string, error) {
	params := url.Values{}
	params.Set("key", t.config.APIKey)
	params.Set("q", word)
	params.Set("translated", "y")
	params.Set("trans_lang", t.config.TransLang)
	params.Set("lang", t.config.TransLang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.config.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("krdict request failed: %w", err)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxResponseBytes)
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(body, 512))
		return "", &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	return parseResponse(body)
}

// parseResponse extracts the first item/sense/translation/trans_word text
func parseResponse(r io.Reader) (string, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return "", fmt.Errorf("malformed krdict response: %w", err)
	}

	root := xmlquery.FindOne(doc, "/*")
	if root == nil {
		return "", fmt.Errorf("malformed krdict response: no root element")
	}

	switch root.Data {
	case "channel":
	case "error":
		return "", &APIError{
			Code:    childText(root, "error_code"),
			Message: childText(root, "message"),
		}
	default:
		return "", fmt.Errorf("malformed krdict response: unexpected root element <%s>", root.Data)
	}

	for _, node := range xmlquery.Find(root, "item/sense/translation/trans_word") {
		if text := strings.TrimSpace(node.InnerText()); text != "" {
			return text, nil
		}
	}

	return "", ErrNoTranslation
}

func childText(node *xmlquery.Node, name string) string {
	if child := xmlquery.FindOne(node, name); child != nil {
		return strings.TrimSpace(child.InnerText())
	}
	return ""
}

// FirstSense returns the first ';'-separated sense of a translation
func FirstSense(translation string) string {
	sense, _, _ := strings.Cut(translation, ";")
	return strings.TrimSpace(sense)
}
