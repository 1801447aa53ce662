package anki

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeMedia creates a media file and returns its path
func writeMedia(t *testing.T, dir, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// readZip returns the entries of an .apkg by name
func readZip(t *testing.T, path string) map[string][]byte {
	t.Helper()
	reader, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("Failed to open APKG as zip: %v", err)
	}
	defer reader.Close()

	files := make(map[string][]byte)
	for _, f := range reader.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		files[f.Name] = data
	}
	return files
}

func TestAPKGWriter_Write(t *testing.T) {
	tempDir := t.TempDir()
	wordDir := filepath.Join(tempDir, "media", "0001_사과")
	audio := writeMedia(t, wordDir, "사과.mp3", "audio data")
	img := writeMedia(t, wordDir, "사과.jpg", "image data")

	deck := NewDeck("Korean Basics")
	deck.AddNote(NewNote("사과", "яблоко", img, audio), audio, img)

	outputPath := filepath.Join(tempDir, "Korean Basics.apkg")
	if err := NewAPKGWriter().Write(deck, outputPath); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	files := readZip(t, outputPath)
	for _, name := range []string{"collection.anki2", "media", "0", "1"} {
		if _, ok := files[name]; !ok {
			t.Errorf("Required file %q not found in APKG", name)
		}
	}

	var mapping map[string]string
	if err := json.Unmarshal(files["media"], &mapping); err != nil {
		t.Fatalf("Invalid media map: %v", err)
	}
	if mapping["0"] != "사과.mp3" || mapping["1"] != "사과.jpg" {
		t.Errorf("Unexpected media map %v", mapping)
	}
	if string(files["0"]) != "audio data" || string(files["1"]) != "image data" {
		t.Error("Media content does not match the source files")
	}

	leftovers, _ := filepath.Glob(filepath.Join(tempDir, ".krdeck-*"))
	if len(leftovers) != 0 {
		t.Errorf("Temporary archive left behind: %v", leftovers)
	}
}

func TestAPKGWriter_EmptyDeck(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.apkg")
	if err := NewAPKGWriter().Write(NewDeck("Empty"), outputPath); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	files := readZip(t, outputPath)
	if string(files["media"]) != "{}" {
		t.Errorf("Expected empty media map, got %s", files["media"])
	}
	if _, ok := files["collection.anki2"]; !ok {
		t.Error("Expected collection.anki2 in empty package")
	}
}

func TestAPKGWriter_DuplicateMediaFirstWins(t *testing.T) {
	tempDir := t.TempDir()
	first := writeMedia(t, filepath.Join(tempDir, "0001_사과"), "사과.mp3", "first")
	second := writeMedia(t, filepath.Join(tempDir, "0002_사과"), "사과.mp3", "second")

	deck := NewDeck("Dupes")
	deck.AddNote(NewNote("사과", "яблоко", "", first), first)
	deck.AddNote(NewNote("사과", "яблоко", "", second), second)

	outputPath := filepath.Join(tempDir, "dupes.apkg")
	if err := NewAPKGWriter().Write(deck, outputPath); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	files := readZip(t, outputPath)
	if _, ok := files["1"]; ok {
		t.Error("Duplicate basename must be stored once")
	}
	if string(files["0"]) != "first" {
		t.Errorf("Expected first media file to win, got %q", files["0"])
	}
}

func TestAPKGWriter_MissingMedia(t *testing.T) {
	tempDir := t.TempDir()
	audio := writeMedia(t, tempDir, "사과.mp3", "audio")

	tests := []struct {
		name  string
		setup func() *Deck
	}{
		{
			name: "reference not in media list",
			setup: func() *Deck {
				deck := NewDeck("Broken")
				deck.AddNote(NewNote("사과", "яблоко", filepath.Join(tempDir, "사과.jpg"), audio), audio)
				return deck
			},
		},
		{
			name: "media file deleted",
			setup: func() *Deck {
				gone := filepath.Join(tempDir, "gone.mp3")
				deck := NewDeck("Broken")
				deck.AddNote(NewNote("바나나", "", "", gone), gone)
				return deck
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outputPath := filepath.Join(t.TempDir(), "broken.apkg")
			err := NewAPKGWriter().Write(tt.setup(), outputPath)

			var missing *MissingMediaError
			if !errors.As(err, &missing) {
				t.Fatalf("Expected MissingMediaError, got %v", err)
			}
			if _, err := os.Stat(outputPath); !os.IsNotExist(err) {
				t.Error("No archive must be written when media is missing")
			}
		})
	}
}

func TestCreateDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.anki2")

	deck := NewDeck("Korean Basics")
	deck.AddNote(NewNote("사과", "яблоко", "사과.jpg", "사과.mp3"))
	deck.AddNote(NewNote("바나나", "", "", "바나나.mp3"))

	w := &APKGWriter{now: func() time.Time { return time.Unix(1700000000, 0) }}
	if err := w.createDatabase(deck, dbPath); err != nil {
		t.Fatalf("createDatabase() error = %v", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	var noteCount, cardCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM notes").Scan(&noteCount); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM cards").Scan(&cardCount); err != nil {
		t.Fatal(err)
	}
	if noteCount != 2 || cardCount != 4 {
		t.Errorf("Expected 2 notes and 4 cards, got %d and %d", noteCount, cardCount)
	}

	var guid, flds, sfld string
	var mid, csum int64
	err = db.QueryRow("SELECT guid, mid, flds, sfld, csum FROM notes ORDER BY id LIMIT 1").Scan(&guid, &mid, &flds, &sfld, &csum)
	if err != nil {
		t.Fatal(err)
	}
	note := deck.Notes()[0]
	if guid != note.GUID() {
		t.Errorf("guid = %s, want %s", guid, note.GUID())
	}
	if mid != ModelID {
		t.Errorf("mid = %d, want %d", mid, ModelID)
	}
	if flds != strings.Join(note.Fields(), "\x1f") {
		t.Errorf("Unexpected flds %q", flds)
	}
	if sfld != "사과" || csum != fieldChecksum("사과") {
		t.Errorf("Unexpected sort field %q / checksum %d", sfld, csum)
	}

	var did int64
	if err := db.QueryRow("SELECT DISTINCT did FROM cards").Scan(&did); err != nil {
		t.Fatal(err)
	}
	if did != DeckID {
		t.Errorf("did = %d, want %d", did, DeckID)
	}

	var modelsJSON, decksJSON string
	if err := db.QueryRow("SELECT models, decks FROM col").Scan(&modelsJSON, &decksJSON); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Russian+Korean -\\u003e Korean", "{{type:Korean}}", "{{type:Russian}}", "Sound"} {
		if !strings.Contains(modelsJSON, want) {
			t.Errorf("models JSON missing %q", want)
		}
	}
	if !strings.Contains(decksJSON, "Korean Basics") || !strings.Contains(decksJSON, "2059400110") {
		t.Errorf("decks JSON missing deck: %s", decksJSON)
	}
}

func TestFieldChecksum(t *testing.T) {
	// sha1 of the empty string starts with da39a3ee
	if got := fieldChecksum(""); got != 0xda39a3ee {
		t.Errorf("fieldChecksum(\"\") = %x, want da39a3ee", got)
	}
	if fieldChecksum("사과") == fieldChecksum("바나나") {
		t.Error("Different fields should have different checksums")
	}
}
