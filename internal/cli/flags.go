package cli

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"

	"codeberg.org/snonux/krdeck/internal/audio"
	"codeberg.org/snonux/krdeck/internal/image"
	"codeberg.org/snonux/krdeck/internal/processor"
	"codeberg.org/snonux/krdeck/internal/translation"
)

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile      string
	OutputDir    string
	MediaDir     string
	NoCleanup    bool
	ArchiveMedia bool
	CSV          bool
	Timeout      time.Duration

	// Dictionary flags
	TransLang string
	CACert    string

	// Image flags
	ImageProvider string
	ImageAttempts int

	// Audio flags
	AudioProvider string
	AudioFallback string
	OpenAIModel   string
	OpenAIVoice   string
	GeminiVoice   string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	defaults := audio.DefaultProviderConfig()
	return &Flags{
		OutputDir:     ".",
		Timeout:       30 * time.Second,
		TransLang:     translation.LangRussian,
		ImageProvider: "bing",
		ImageAttempts: image.DefaultAttempts,
		AudioProvider: defaults.Provider,
		OpenAIModel:   defaults.OpenAIModel,
		OpenAIVoice:   defaults.OpenAIVoice,
		GeminiVoice:   defaults.GeminiVoice,
	}
}

// LoadConfig copies the values bound in viper back into flags so config
// file and environment settings apply where no flag was given
func (f *Flags) LoadConfig() {
	f.OutputDir = viper.GetString("output.directory")
	f.MediaDir = viper.GetString("output.media_dir")
	f.CSV = viper.GetBool("output.csv")
	f.NoCleanup = viper.GetBool("output.no_cleanup")
	f.ArchiveMedia = viper.GetBool("output.archive_media")
	f.Timeout = viper.GetDuration("timeout")
	f.TransLang = viper.GetString("translation.trans_lang")
	f.CACert = viper.GetString("translation.ca_cert")
	f.ImageProvider = viper.GetString("image.provider")
	f.ImageAttempts = viper.GetInt("image.attempts")
	f.AudioProvider = viper.GetString("audio.provider")
	f.AudioFallback = viper.GetString("audio.fallback")
	f.OpenAIModel = viper.GetString("audio.openai_model")
	f.OpenAIVoice = viper.GetString("audio.openai_voice")
	f.GeminiVoice = viper.GetString("audio.gemini_voice")
}

// CleanupMode maps --no-cleanup and --archive-media to a processor mode
func (f *Flags) CleanupMode() (processor.CleanupMode, error) {
	switch {
	case f.NoCleanup && f.ArchiveMedia:
		return "", fmt.Errorf("--no-cleanup and --archive-media cannot be combined")
	case f.NoCleanup:
		return processor.CleanupRetain, nil
	case f.ArchiveMedia:
		return processor.CleanupArchive, nil
	default:
		return processor.CleanupDelete, nil
	}
}

// ProcessorConfig returns the run configuration for a deck
func (f *Flags) ProcessorConfig(deckName string) (*processor.Config, error) {
	mode, err := f.CleanupMode()
	if err != nil {
		return nil, err
	}
	return &processor.Config{
		DeckName:  deckName,
		OutputDir: f.OutputDir,
		MediaDir:  f.MediaDir,
		Cleanup:   mode,
		CSV:       f.CSV,
	}, nil
}

// TranslationConfig returns the krdict client configuration
func (f *Flags) TranslationConfig(apiKey string) *translation.Config {
	config := translation.DefaultConfig(apiKey)
	if f.TransLang != "" {
		config.TransLang = f.TransLang
	}
	if f.Timeout > 0 {
		config.Timeout = f.Timeout
	}
	config.CACertFile = f.CACert
	return config
}

// AudioConfig returns the speech provider configuration. API keys come
// from the environment or the config file.
func (f *Flags) AudioConfig() *audio.Config {
	config := audio.DefaultProviderConfig()
	if f.AudioProvider != "" {
		config.Provider = f.AudioProvider
	}
	config.Fallback = f.AudioFallback
	if f.Timeout > 0 {
		config.Timeout = f.Timeout
	}

	config.OpenAIKey = GetOpenAIKey()
	if f.OpenAIModel != "" {
		config.OpenAIModel = f.OpenAIModel
	}
	if f.OpenAIVoice != "" {
		config.OpenAIVoice = f.OpenAIVoice
	}

	config.GeminiKey = GetGeminiKey()
	if f.GeminiVoice != "" {
		config.GeminiVoice = f.GeminiVoice
	}
	return config
}

// NewCrawler creates the configured image source
func (f *Flags) NewCrawler() (image.Crawler, error) {
	switch f.ImageProvider {
	case "", "bing":
		return image.NewBingCrawler(&image.BingConfig{Timeout: f.Timeout}), nil
	case "openai":
		crawler, err := image.NewOpenAICrawler(&image.OpenAIConfig{
			APIKey: GetOpenAIKey(),
			Model:  viper.GetString("image.openai_model"),
			Size:   viper.GetString("image.openai_size"),
		})
		if err != nil {
			return nil, err
		}
		return crawler, nil
	default:
		return nil, fmt.Errorf("unknown image provider: %s (want bing or openai)", f.ImageProvider)
	}
}

// NewImageFetcher wraps the configured image source with the retry policy
func (f *Flags) NewImageFetcher(logger *log.Logger) (*image.Fetcher, error) {
	crawler, err := f.NewCrawler()
	if err != nil {
		return nil, err
	}
	return image.NewFetcher(crawler, f.ImageAttempts, logger), nil
}
