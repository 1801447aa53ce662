package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/krdeck/internal"
)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "krdeck <deck-name> <api-key> <words-file>",
		Short: "Korean-Russian Anki Deck Generator",
		Long: `krdeck builds an Anki deck from a list of Korean words.

For every word it looks up the Russian translation in the krdict
dictionary, records the pronunciation with a text-to-speech service
and downloads a picture, then writes everything into one .apkg file.

The api-key argument is the krdict Open API key.

Examples:
  krdeck "Korean Food" KEY words.txt
  krdeck "Korean Food" KEY words.txt -o decks --archive-media
  krdeck "Korean Food" KEY words.txt --audio-provider openai --image-provider openai`,
		Args:    cobra.ExactArgs(3),
		Version: internal.Version,
	}

	// Set up flags
	setupFlags(rootCmd, flags)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.krdeck.yaml)")

	// Output flags
	cmd.Flags().StringVarP(&flags.OutputDir, "output", "o", flags.OutputDir, "Directory for the .apkg file")
	cmd.Flags().StringVar(&flags.MediaDir, "media-dir", "", "Scratch directory for media (default <output>/media)")
	cmd.Flags().BoolVar(&flags.NoCleanup, "no-cleanup", false, "Keep the media directory after writing the deck")
	cmd.Flags().BoolVar(&flags.ArchiveMedia, "archive-media", false, "Move the media directory to <output>/archive after writing the deck")
	cmd.Flags().BoolVar(&flags.CSV, "csv", false, "Also write the notes as CSV next to the deck")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", flags.Timeout, "Timeout per network request")
	cmd.MarkFlagsMutuallyExclusive("no-cleanup", "archive-media")

	// Dictionary flags
	cmd.Flags().StringVar(&flags.TransLang, "trans-lang", flags.TransLang, "krdict translation language code (10 = Russian)")
	cmd.Flags().StringVar(&flags.CACert, "ca-cert", "", "Additional CA bundle (PEM) for the krdict TLS connection")

	// Image flags
	cmd.Flags().StringVar(&flags.ImageProvider, "image-provider", flags.ImageProvider, "Image source: bing or openai")
	cmd.Flags().IntVar(&flags.ImageAttempts, "image-attempts", flags.ImageAttempts, "Image search attempts per word (3 to 5)")

	// Audio flags
	cmd.Flags().StringVar(&flags.AudioProvider, "audio-provider", flags.AudioProvider, "Speech provider: google, openai or gemini")
	cmd.Flags().StringVar(&flags.AudioFallback, "audio-fallback", "", "Speech provider to use when the primary fails")
	cmd.Flags().StringVar(&flags.OpenAIModel, "openai-model", flags.OpenAIModel, "OpenAI TTS model: tts-1, tts-1-hd, gpt-4o-mini-tts")
	cmd.Flags().StringVar(&flags.OpenAIVoice, "openai-voice", flags.OpenAIVoice, "OpenAI voice: alloy, ash, coral, echo, fable, onyx, nova, sage, shimmer")
	cmd.Flags().StringVar(&flags.GeminiVoice, "gemini-voice", flags.GeminiVoice, "Gemini prebuilt voice, e.g. Kore or Puck")

	// Bind flags to viper
	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag("output.directory", cmd.Flags().Lookup("output"))
	viper.BindPFlag("output.media_dir", cmd.Flags().Lookup("media-dir"))
	viper.BindPFlag("output.no_cleanup", cmd.Flags().Lookup("no-cleanup"))
	viper.BindPFlag("output.archive_media", cmd.Flags().Lookup("archive-media"))
	viper.BindPFlag("output.csv", cmd.Flags().Lookup("csv"))
	viper.BindPFlag("timeout", cmd.Flags().Lookup("timeout"))
	viper.BindPFlag("translation.trans_lang", cmd.Flags().Lookup("trans-lang"))
	viper.BindPFlag("translation.ca_cert", cmd.Flags().Lookup("ca-cert"))
	viper.BindPFlag("image.provider", cmd.Flags().Lookup("image-provider"))
	viper.BindPFlag("image.attempts", cmd.Flags().Lookup("image-attempts"))
	viper.BindPFlag("audio.provider", cmd.Flags().Lookup("audio-provider"))
	viper.BindPFlag("audio.fallback", cmd.Flags().Lookup("audio-fallback"))
	viper.BindPFlag("audio.openai_model", cmd.Flags().Lookup("openai-model"))
	viper.BindPFlag("audio.openai_voice", cmd.Flags().Lookup("openai-voice"))
	viper.BindPFlag("audio.gemini_voice", cmd.Flags().Lookup("gemini-voice"))
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".krdeck" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".krdeck")
	}

	// Environment variables
	viper.SetEnvPrefix("KRDECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	// First check environment variable
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}

	// Then check config file
	return viper.GetString("audio.openai_key")
}

// GetGeminiKey retrieves the Gemini API key from environment or config
func GetGeminiKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("audio.gemini_key")
}
