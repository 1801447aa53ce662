package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/snonux/krdeck/internal"
	"codeberg.org/snonux/krdeck/internal/anki"
	"codeberg.org/snonux/krdeck/internal/archive"
	"codeberg.org/snonux/krdeck/internal/audio"
	"codeberg.org/snonux/krdeck/internal/batch"
	"codeberg.org/snonux/krdeck/internal/image"
	"codeberg.org/snonux/krdeck/internal/translation"
)

// Translator looks up the translation of a Korean word
type Translator interface {
	TranslateWord(ctx context.Context, word string) (string, error)
}

// ImageFetcher stores one image for a query in a word's scratch directory
type ImageFetcher interface {
	Fetch(ctx context.Context, query, name, wordDir string) (string, error)
}

// CleanupMode selects what happens to the scratch media after the archive is written
type CleanupMode string

const (
	CleanupDelete  CleanupMode = "delete"
	CleanupRetain  CleanupMode = "retain"
	CleanupArchive CleanupMode = "archive"
)

// ParseCleanupMode validates a cleanup mode name. Empty selects delete.
func ParseCleanupMode(s string) (CleanupMode, error) {
	switch mode := CleanupMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "":
		return CleanupDelete, nil
	case CleanupDelete, CleanupRetain, CleanupArchive:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown cleanup mode %q (want delete, retain or archive)", s)
	}
}

// Config describes one deck build
type Config struct {
	DeckName  string
	OutputDir string      // directory for the .apkg, default working dir
	MediaDir  string      // scratch root, default <OutputDir>/media
	Cleanup   CleanupMode // default delete
	CSV       bool        // also write <deck>.csv
}

// Report is the outcome of a run
type Report struct {
	ArchivePath string
	CSVPath     string
	MediaPath   string // retained or archived scratch media, empty once deleted
	Results     []Result
	Summary     Summary
}

// Processor handles the main word processing logic
type Processor struct {
	translator Translator
	audio      audio.Provider
	images     ImageFetcher
	writer     *anki.APKGWriter
	logger     *log.Logger
	out        io.Writer
}

// NewProcessor creates a processor from its collaborators. Errors and
// warnings go to logger (stderr when nil); progress goes to stdout.
func NewProcessor(translator Translator, provider audio.Provider, images ImageFetcher, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Processor{
		translator: translator,
		audio:      provider,
		images:     images,
		writer:     anki.NewAPKGWriter(),
		logger:     logger,
		out:        os.Stdout,
	}
}

// SetOutput redirects progress messages
func (p *Processor) SetOutput(w io.Writer) {
	p.out = w
}

// Run builds the deck from entries, writes the archive and cleans up the
// scratch media. Failed words only reduce the card count; an error is
// returned for setup problems, cancellation or a failed archive write.
func (p *Processor) Run(ctx context.Context, config *Config, entries []batch.WordEntry) (*Report, error) {
	if config == nil || strings.TrimSpace(config.DeckName) == "" {
		return nil, fmt.Errorf("deck name is required")
	}

	mode, err := ParseCleanupMode(string(config.Cleanup))
	if err != nil {
		return nil, err
	}

	if err := p.audio.IsAvailable(); err != nil {
		return nil, fmt.Errorf("audio provider %s is not available: %w", p.audio.Name(), err)
	}

	outputDir := config.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	mediaDir := config.MediaDir
	if mediaDir == "" {
		mediaDir = filepath.Join(outputDir, "media")
	}
	_, statErr := os.Stat(mediaDir)
	createdMediaDir := os.IsNotExist(statErr)
	if err := os.MkdirAll(mediaDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	deck, results, err := p.BuildDeck(ctx, config.DeckName, mediaDir, entries)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ArchivePath: filepath.Join(outputDir, internal.SanitizeFilename(config.DeckName)+".apkg"),
		MediaPath:   mediaDir,
		Results:     results,
		Summary:     Summarize(results),
	}

	if err := p.writer.Write(deck, report.ArchivePath); err != nil {
		return report, fmt.Errorf("failed to write deck: %w", err)
	}

	if config.CSV {
		csvPath := strings.TrimSuffix(report.ArchivePath, ".apkg") + ".csv"
		if err := deck.WriteCSV(csvPath, true); err != nil {
			p.logger.Printf("Warning: failed to write CSV export: %v", err)
		} else {
			report.CSVPath = csvPath
		}
	}

	mediaPath, err := p.cleanup(mode, mediaDir, createdMediaDir, results)
	if err != nil {
		p.logger.Printf("Warning: failed to clean up media directory %s: %v", mediaDir, err)
	} else {
		report.MediaPath = mediaPath
	}

	return report, nil
}

// BuildDeck enriches every entry and collects the created notes. Skipped
// words are logged with one line each. Only cancellation stops the batch.
func (p *Processor) BuildDeck(ctx context.Context, deckName, mediaDir string, entries []batch.WordEntry) (*anki.Deck, []Result, error) {
	deck := anki.NewDeck(deckName)
	results := make([]Result, 0, len(entries))

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, results, err
		}

		fmt.Fprintf(p.out, "Creating card for word %s (%d/%d)...\n", entry.Word, i+1, len(entries))

		result := p.ProcessWord(ctx, i, entry, mediaDir)
		results = append(results, result)

		if result.Status == StatusSkipped {
			p.logger.Printf("Error creating card for word %s: %v", entry.Word, result.Err)
			continue
		}

		for _, warning := range result.Warnings {
			p.logger.Printf("Warning: %s: %s", entry.Word, warning)
		}
		deck.AddNote(result.Note, result.Media...)
		fmt.Fprintf(p.out, "Card for word %s was created\n", entry.Word)
	}

	if err := ctx.Err(); err != nil {
		return nil, results, err
	}
	return deck, results, nil
}

// ProcessWord runs synthesis, translation and image acquisition for one word
// inside its own scratch directory. A failure at any step removes the
// directory and marks the word skipped.
func (p *Processor) ProcessWord(ctx context.Context, index int, entry batch.WordEntry, mediaDir string) Result {
	word := entry.Word
	wordDir := filepath.Join(mediaDir, internal.WordDirName(index, word))
	result := Result{Word: word, Line: entry.Line, Dir: wordDir}

	skip := func(err error) Result {
		os.RemoveAll(wordDir)
		result.Status = StatusSkipped
		result.Err = err
		result.Dir = ""
		result.Media = nil
		result.Warnings = nil
		return result
	}

	if err := os.MkdirAll(wordDir, 0755); err != nil {
		return skip(fmt.Errorf("failed to create word directory: %w", err))
	}

	if !audio.ContainsHangul(word) {
		result.Warnings = append(result.Warnings, "word contains no Hangul")
	}

	name := internal.MediaName(word)

	// 1. Pronunciation
	soundPath := filepath.Join(wordDir, name+"."+p.audio.Extension())
	if err := p.audio.GenerateAudio(ctx, word, soundPath); err != nil {
		return skip(fmt.Errorf("audio generation failed (%s): %w", p.audio.Name(), err))
	}

	// 2. Translation; no match keeps the card with an empty field
	term, err := p.translator.TranslateWord(ctx, word)
	switch {
	case errors.Is(err, translation.ErrNoTranslation):
		term = ""
		result.NoTranslation = true
		result.Warnings = append(result.Warnings, "no translation found, searching image by the word itself")
	case err != nil:
		return skip(fmt.Errorf("translation failed: %w", err))
	}

	// 3. Image, queried by the first sense of the translation
	russian := translation.FirstSense(term)
	query := russian
	if query == "" {
		query = word
	}
	imagePath, err := p.images.Fetch(ctx, query, name, wordDir)
	switch {
	case errors.Is(err, image.ErrNoImage):
		imagePath = ""
		result.NoImage = true
		result.Warnings = append(result.Warnings, err.Error())
	case err != nil:
		return skip(fmt.Errorf("image fetch failed: %w", err))
	}

	result.Query = query
	result.Note = anki.NewNote(word, russian, imagePath, soundPath)
	result.Media = []string{soundPath}
	if imagePath != "" {
		result.Media = append(result.Media, imagePath)
	}
	result.Status = StatusCreated
	return result
}

// cleanup applies the cleanup mode and returns where the media remains
func (p *Processor) cleanup(mode CleanupMode, mediaDir string, createdMediaDir bool, results []Result) (string, error) {
	switch mode {
	case CleanupRetain:
		return mediaDir, nil

	case CleanupArchive:
		archived, err := archive.ArchiveMedia(mediaDir)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(p.out, "Media archived to: %s\n", archived)
		return archived, nil

	default:
		if createdMediaDir {
			return "", os.RemoveAll(mediaDir)
		}
		// Only remove what this run created in a pre-existing directory
		for _, r := range results {
			if r.Dir != "" {
				if err := os.RemoveAll(r.Dir); err != nil {
					return "", err
				}
			}
		}
		return "", nil
	}
}
