package audio

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Provider defines the interface for text-to-speech providers
type Provider interface {
	// GenerateAudio generates audio from text and saves it to the specified file
	GenerateAudio(ctx context.Context, text string, outputFile string) error

	// Name returns the provider name
	Name() string

	// IsAvailable checks if the provider is properly configured and available
	IsAvailable() error

	// Extension returns the file extension (without dot) of the audio it writes
	Extension() string
}

// Config holds common configuration for audio providers
type Config struct {
	Provider string        // Provider name: "google", "openai" or "gemini"
	Fallback string        // Optional fallback provider name
	Language string        // Spoken language, BCP-47 (default "ko")
	Timeout  time.Duration // Per request
	Logger   *log.Logger   // fallback notices, log.Default() when nil

	// Google Translate TTS settings
	GoogleBaseURL string

	// OpenAI-specific settings
	OpenAIKey         string
	OpenAIBaseURL     string
	OpenAIModel       string  // "tts-1", "tts-1-hd", or "gpt-4o-mini-tts"
	OpenAIVoice       string  // "alloy", "ash", "coral", "echo", "fable", "onyx", "nova", "sage", "shimmer"
	OpenAISpeed       float64 // 0.25 to 4.0
	OpenAIInstruction string  // Voice instructions for gpt-4o-mini-tts model

	// Gemini-specific settings
	GeminiKey     string
	GeminiBaseURL string
	GeminiModel   string
	GeminiVoice   string
}

// DefaultProviderConfig returns default configuration
func DefaultProviderConfig() *Config {
	return &Config{
		Provider:          "google",
		Language:          "ko",
		Timeout:           30 * time.Second,
		OpenAIModel:       "gpt-4o-mini-tts",
		OpenAIVoice:       "alloy",
		OpenAISpeed:       1.0,
		OpenAIInstruction: "You are speaking Korean (한국어). Pronounce the word with standard Seoul pronunciation, slowly and clearly for language learners.",
		GeminiModel:       "gemini-2.5-flash-preview-tts",
		GeminiVoice:       "Kore",
	}
}

// NewProvider creates the appropriate audio provider based on configuration.
// When a fallback is configured the primary is wrapped with it.
func NewProvider(config *Config) (Provider, error) {
	if config == nil {
		config = DefaultProviderConfig()
	}

	primary, err := newNamedProvider(config.Provider, config)
	if err != nil {
		return nil, err
	}

	if config.Fallback == "" || config.Fallback == config.Provider {
		return primary, nil
	}

	fallback, err := newNamedProvider(config.Fallback, config)
	if err != nil {
		return nil, fmt.Errorf("fallback: %w", err)
	}
	if fallback.Extension() != primary.Extension() {
		return nil, fmt.Errorf("fallback provider %s writes .%s, primary %s writes .%s",
			fallback.Name(), fallback.Extension(), primary.Name(), primary.Extension())
	}

	return NewProviderWithFallback(primary, fallback, config.Logger), nil
}

func newNamedProvider(name string, config *Config) (Provider, error) {
	switch name {
	case "google":
		return NewGoogleProvider(config), nil

	case "openai":
		if config.OpenAIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		return NewOpenAIProvider(config)

	case "gemini":
		if config.GeminiKey == "" {
			return nil, fmt.Errorf("Gemini API key is required")
		}
		return NewGeminiProvider(config)

	default:
		return nil, fmt.Errorf("unknown audio provider: %s", name)
	}
}

// ProviderWithFallback wraps a primary provider with a fallback option
type ProviderWithFallback struct {
	primary  Provider
	fallback Provider
	logger   *log.Logger
}

// NewProviderWithFallback creates a provider that falls back to secondary if
// primary fails. A nil logger selects log.Default().
func NewProviderWithFallback(primary, fallback Provider, logger *log.Logger) Provider {
	if logger == nil {
		logger = log.Default()
	}
	return &ProviderWithFallback{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// GenerateAudio tries primary provider first, falls back to secondary on error
func (p *ProviderWithFallback) GenerateAudio(ctx context.Context, text string, outputFile string) error {
	err := p.primary.GenerateAudio(ctx, text, outputFile)
	if err == nil {
		return nil
	}

	p.logger.Printf("Primary audio provider %s failed: %v. Falling back to %s",
		p.primary.Name(), err, p.fallback.Name())

	if fbErr := p.fallback.GenerateAudio(ctx, text, outputFile); fbErr != nil {
		return fmt.Errorf("%s: %v; %s: %w", p.primary.Name(), err, p.fallback.Name(), fbErr)
	}
	return nil
}

// Name returns the provider name
func (p *ProviderWithFallback) Name() string {
	return fmt.Sprintf("%s (fallback: %s)", p.primary.Name(), p.fallback.Name())
}

// Extension returns the primary provider's file extension
func (p *ProviderWithFallback) Extension() string {
	return p.primary.Extension()
}

// IsAvailable checks if at least one provider is available
func (p *ProviderWithFallback) IsAvailable() error {
	primaryErr := p.primary.IsAvailable()
	if primaryErr == nil {
		return nil
	}

	fallbackErr := p.fallback.IsAvailable()
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("both providers unavailable: primary=%v, fallback=%v",
		primaryErr, fallbackErr)
}

// writeAudioFile streams audio data into outputFile. A partial file is
// removed on error so a failed synthesis never leaves a playable stub.
func writeAudioFile(outputFile string, r io.Reader) error {
	dir := filepath.Dir(outputFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	written, err := io.Copy(out, r)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(outputFile)
		return fmt.Errorf("failed to write audio file: %w", err)
	}

	if written == 0 {
		os.Remove(outputFile)
		return fmt.Errorf("no audio data received")
	}

	return nil
}
