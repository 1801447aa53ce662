package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/krdeck/internal/audio"
	"codeberg.org/snonux/krdeck/internal/batch"
	"codeberg.org/snonux/krdeck/internal/cli"
	"codeberg.org/snonux/krdeck/internal/processor"
	"codeberg.org/snonux/krdeck/internal/translation"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags)

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	// Set the run function
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runCommand(cmd.Context(), args, flags)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Execute command
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, args []string, flags *cli.Flags) error {
	deckName, apiKey, wordsFile := args[0], args[1], args[2]

	flags.LoadConfig()

	entries, err := batch.ReadWordFile(wordsFile)
	if err != nil {
		return err
	}

	config, err := flags.ProcessorConfig(deckName)
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	translationConfig := flags.TranslationConfig(apiKey)
	translationConfig.Logger = logger
	translator, err := translation.NewTranslator(translationConfig)
	if err != nil {
		return err
	}

	audioConfig := flags.AudioConfig()
	audioConfig.Logger = logger
	provider, err := audio.NewProvider(audioConfig)
	if err != nil {
		return fmt.Errorf("failed to create audio provider: %w", err)
	}
	if err := provider.IsAvailable(); err != nil {
		return fmt.Errorf("audio provider %s is not available: %w", provider.Name(), err)
	}

	fetcher, err := flags.NewImageFetcher(logger)
	if err != nil {
		return fmt.Errorf("failed to create image source: %w", err)
	}

	fmt.Printf("Processing %d words from %s (audio: %s, images: %s)\n",
		len(entries), wordsFile, provider.Name(), flags.ImageProvider)

	proc := processor.NewProcessor(translator, provider, fetcher, logger)
	report, err := proc.Run(ctx, config, entries)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", report.Summary)
	fmt.Printf("Anki package created: %s\n", report.ArchivePath)
	if report.CSVPath != "" {
		fmt.Printf("CSV export created: %s\n", report.CSVPath)
	}
	if report.MediaPath != "" {
		fmt.Printf("Media kept in: %s\n", report.MediaPath)
	}
	return nil
}
