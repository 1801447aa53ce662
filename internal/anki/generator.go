package anki

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
)

// Fixed identifiers so that repeated imports land in the same note type and deck
const (
	ModelID int64 = 1607392319
	DeckID  int64 = 2059400110
)

// guidNamespace seeds name-based note GUIDs
var guidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://codeberg.org/snonux/krdeck/note"))

var (
	imageRefPattern = regexp.MustCompile(`<img src="([^"]+)">`)
	soundRefPattern = regexp.MustCompile(`\[sound:([^\]]+)\]`)
)

// Note holds the four field values of one Korean/Russian flashcard
type Note struct {
	Korean  string
	Russian string
	Image   string // <img src="..."> or empty
	Sound   string // [sound:...] or empty
}

// NewNote builds a note, formatting media paths as field references by basename.
// Empty paths leave the field empty.
func NewNote(korean, russian, imagePath, soundPath string) Note {
	return Note{
		Korean:  korean,
		Russian: russian,
		Image:   ImageField(imagePath),
		Sound:   SoundField(soundPath),
	}
}

// ImageField formats an image file reference for Anki
func ImageField(imagePath string) string {
	if imagePath == "" {
		return ""
	}
	return fmt.Sprintf(`<img src="%s">`, filepath.Base(imagePath))
}

// SoundField formats an audio file reference for Anki
func SoundField(soundPath string) string {
	if soundPath == "" {
		return ""
	}
	return fmt.Sprintf("[sound:%s]", filepath.Base(soundPath))
}

// Fields returns the field values in model order
func (n Note) Fields() []string {
	return []string{n.Korean, n.Russian, n.Image, n.Sound}
}

// GUID returns a stable identifier derived from the Korean word
func (n Note) GUID() string {
	return uuid.NewSHA1(guidNamespace, []byte(n.Korean)).String()
}

// MediaRefs returns the media file names referenced by the note's fields
func (n Note) MediaRefs() []string {
	var refs []string
	for _, field := range n.Fields() {
		for _, m := range imageRefPattern.FindAllStringSubmatch(field, -1) {
			refs = append(refs, m[1])
		}
		for _, m := range soundRefPattern.FindAllStringSubmatch(field, -1) {
			refs = append(refs, m[1])
		}
	}
	return refs
}

// Deck is an ordered collection of notes plus the media files they reference
type Deck struct {
	Name  string
	notes []Note
	media []string
}

// NewDeck creates an empty deck
func NewDeck(name string) *Deck {
	return &Deck{Name: name}
}

// AddNote appends a note together with the media files backing its fields
func (d *Deck) AddNote(note Note, media ...string) {
	d.notes = append(d.notes, note)
	for _, m := range media {
		if m != "" {
			d.media = append(d.media, m)
		}
	}
}

// Notes returns the notes in insertion order
func (d *Deck) Notes() []Note {
	return d.notes
}

// Media returns the media paths in insertion order
func (d *Deck) Media() []string {
	return d.media
}

// Len returns the number of notes
func (d *Deck) Len() int {
	return len(d.notes)
}

// Stats returns statistics about the deck
func (d *Deck) Stats() (totalNotes, withSound, withImages int) {
	totalNotes = len(d.notes)

	for _, note := range d.notes {
		if note.Sound != "" {
			withSound++
		}
		if note.Image != "" {
			withImages++
		}
	}

	return
}

// WriteCSV writes the notes as a CSV file for Anki's text import
func (d *Deck) WriteCSV(outputPath string, includeHeaders bool) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if includeHeaders {
		if err := writer.Write([]string{"Korean", "Russian", "Image", "Sound"}); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for _, note := range d.notes {
		if err := writer.Write(note.Fields()); err != nil {
			return fmt.Errorf("failed to write note: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return file.Close()
}
