package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"
)

const googleTTSURL = "https://translate.google.com/translate_tts"

// GoogleProvider implements Provider using the Google Translate TTS endpoint.
// It needs no API key and returns MP3.
type GoogleProvider struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

// NewGoogleProvider creates a new Google Translate TTS provider
func NewGoogleProvider(config *Config) *GoogleProvider {
	baseURL := config.GoogleBaseURL
	if baseURL == "" {
		baseURL = googleTTSURL
	}
	language := config.Language
	if language == "" {
		language = "ko"
	}

	return &GoogleProvider{
		baseURL:    baseURL,
		language:   language,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// GenerateAudio downloads the spoken text as MP3 into outputFile
func (p *GoogleProvider) GenerateAudio(ctx context.Context, text string, outputFile string) error {
	if err := ValidateSpeechText(text); err != nil {
		return err
	}
	text = strings.TrimSpace(text)

	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", p.language)
	params.Set("q", text)
	params.Set("total", "1")
	params.Set("idx", "0")
	params.Set("textlen", fmt.Sprintf("%d", utf8.RuneCountInString(text)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	req.Header.Set("Referer", "https://translate.google.com/")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Google TTS request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("Google TTS returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "audio/") {
		return fmt.Errorf("Google TTS returned %s instead of audio", ct)
	}

	return writeAudioFile(outputFile, resp.Body)
}

// Name returns the provider name
func (p *GoogleProvider) Name() string {
	return "google"
}

// IsAvailable always succeeds, the endpoint needs no credentials
func (p *GoogleProvider) IsAvailable() error {
	return nil
}

// Extension returns the file extension of the generated audio
func (p *GoogleProvider) Extension() string {
	return "mp3"
}
