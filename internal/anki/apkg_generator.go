package anki

import (
	"archive/zip"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const modelName = "krdeck Korean-Russian"

// MissingMediaError reports a field reference without a backing media file
type MissingMediaError struct {
	Word     string
	Filename string
	Reason   string
}

func (e *MissingMediaError) Error() string {
	return fmt.Sprintf("note %q references %s: %s", e.Word, e.Filename, e.Reason)
}

// APKGWriter creates Anki package files (.apkg)
type APKGWriter struct {
	now func() time.Time
}

// NewAPKGWriter creates a new APKG writer
func NewAPKGWriter() *APKGWriter {
	return &APKGWriter{now: time.Now}
}

// mediaEntry is one file stored in the package under a numeric name
type mediaEntry struct {
	name string // basename referenced by note fields
	path string // file on disk
}

// Write creates an .apkg file containing every note and media file of deck.
// It fails without touching outputPath when a note references media that
// is not part of the deck or missing on disk.
func (w *APKGWriter) Write(deck *Deck, outputPath string) error {
	media, err := collectMedia(deck)
	if err != nil {
		return err
	}

	tempDir, err := os.MkdirTemp("", "krdeck_export_*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	if err := copyMediaFiles(media, tempDir); err != nil {
		return fmt.Errorf("failed to copy media files: %w", err)
	}

	if err := createMediaMapping(media, tempDir); err != nil {
		return fmt.Errorf("failed to create media mapping: %w", err)
	}

	dbPath := filepath.Join(tempDir, "collection.anki2")
	if err := w.createDatabase(deck, dbPath); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	if err := createZipPackage(tempDir, outputPath); err != nil {
		return fmt.Errorf("failed to create zip package: %w", err)
	}

	return nil
}

// collectMedia deduplicates the deck's media by basename (first wins) and
// checks that every field reference resolves to an existing file
func collectMedia(deck *Deck) ([]mediaEntry, error) {
	var media []mediaEntry
	byName := make(map[string]string)

	for _, path := range deck.Media() {
		name := filepath.Base(path)
		if _, ok := byName[name]; ok {
			continue
		}
		byName[name] = path
		media = append(media, mediaEntry{name: name, path: path})
	}

	for _, note := range deck.Notes() {
		for _, ref := range note.MediaRefs() {
			path, ok := byName[ref]
			if !ok {
				return nil, &MissingMediaError{Word: note.Korean, Filename: ref, Reason: "not in the media list"}
			}
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				return nil, &MissingMediaError{Word: note.Korean, Filename: ref, Reason: "file not found at " + path}
			}
		}
	}

	return media, nil
}

// createDatabase creates the Anki SQLite database
func (w *APKGWriter) createDatabase(deck *Deck, dbPath string) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := createTables(db); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	now := w.now()
	if err := insertCollection(db, deck.Name, now); err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}

	if err := insertNotesAndCards(db, deck.Notes(), now); err != nil {
		return fmt.Errorf("failed to insert notes and cards: %w", err)
	}

	return nil
}

// createTables creates the required Anki database tables
func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE col (
			id integer PRIMARY KEY,
			crt integer NOT NULL,
			mod integer NOT NULL,
			scm integer NOT NULL,
			ver integer NOT NULL,
			dty integer NOT NULL,
			usn integer NOT NULL,
			ls integer NOT NULL,
			conf text NOT NULL,
			models text NOT NULL,
			decks text NOT NULL,
			dconf text NOT NULL,
			tags text NOT NULL
		)`,
		`CREATE TABLE notes (
			id integer PRIMARY KEY,
			guid text NOT NULL,
			mid integer NOT NULL,
			mod integer NOT NULL,
			usn integer NOT NULL,
			tags text NOT NULL,
			flds text NOT NULL,
			sfld text NOT NULL,
			csum integer NOT NULL,
			flags integer NOT NULL,
			data text NOT NULL
		)`,
		`CREATE TABLE cards (
			id integer PRIMARY KEY,
			nid integer NOT NULL,
			did integer NOT NULL,
			ord integer NOT NULL,
			mod integer NOT NULL,
			usn integer NOT NULL,
			type integer NOT NULL,
			queue integer NOT NULL,
			due integer NOT NULL,
			ivl integer NOT NULL,
			factor integer NOT NULL,
			reps integer NOT NULL,
			lapses integer NOT NULL,
			left integer NOT NULL,
			odue integer NOT NULL,
			odid integer NOT NULL,
			flags integer NOT NULL,
			data text NOT NULL
		)`,
		`CREATE TABLE revlog (
			id integer PRIMARY KEY,
			cid integer NOT NULL,
			usn integer NOT NULL,
			ease integer NOT NULL,
			ivl integer NOT NULL,
			lastIvl integer NOT NULL,
			factor integer NOT NULL,
			time integer NOT NULL,
			type integer NOT NULL
		)`,
		`CREATE TABLE graves (
			usn integer NOT NULL,
			oid integer NOT NULL,
			type integer NOT NULL
		)`,
		`CREATE INDEX ix_notes_csum ON notes (csum)`,
		`CREATE INDEX ix_notes_usn ON notes (usn)`,
		`CREATE INDEX ix_cards_usn ON cards (usn)`,
		`CREATE INDEX ix_cards_nid ON cards (nid)`,
		`CREATE INDEX ix_cards_sched ON cards (did, queue, due)`,
		`CREATE INDEX ix_revlog_usn ON revlog (usn)`,
		`CREATE INDEX ix_revlog_cid ON revlog (cid)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

func deckConfig(id int64, name, desc string, mod int64) map[string]interface{} {
	return map[string]interface{}{
		"id":               id,
		"name":             name,
		"mod":              mod,
		"desc":             desc,
		"collapsed":        false,
		"dyn":              0,
		"conf":             1,
		"usn":              0,
		"newToday":         []int{0, 0},
		"revToday":         []int{0, 0},
		"lrnToday":         []int{0, 0},
		"timeToday":        []int{0, 0},
		"browserCollapsed": false,
		"extendNew":        10,
		"extendRev":        50,
	}
}

// insertCollection inserts the collection metadata
func insertCollection(db *sql.DB, deckName string, now time.Time) error {
	mod := now.Unix()

	decks := map[string]interface{}{
		"1": deckConfig(1, "Default", "", mod),
	}
	decks[strconv.FormatInt(DeckID, 10)] = deckConfig(DeckID, deckName, "Korean vocabulary with Russian translations", mod)
	decksJSON, err := json.Marshal(decks)
	if err != nil {
		return err
	}

	models := map[string]interface{}{
		strconv.FormatInt(ModelID, 10): noteTypeConfig(mod),
	}
	modelsJSON, err := json.Marshal(models)
	if err != nil {
		return err
	}

	conf := map[string]interface{}{
		"nextPos":       1,
		"estTimes":      true,
		"activeDecks":   []int64{1},
		"sortType":      "noteFld",
		"sortBackwards": false,
		"addToCur":      true,
		"curDeck":       1,
		"newSpread":     0,
		"dueCounts":     true,
		"collapseTime":  1200,
		"timeLim":       0,
		"schedVer":      1,
		"curModel":      strconv.FormatInt(ModelID, 10),
		"dayLearnFirst": false,
	}
	confJSON, err := json.Marshal(conf)
	if err != nil {
		return err
	}

	dconf := map[string]interface{}{
		"1": map[string]interface{}{
			"id":   1,
			"name": "Default",
			"dyn":  0,
			"new": map[string]interface{}{
				"delays":        []int{1, 10},
				"ints":          []int{1, 4, 7},
				"initialFactor": 2500,
				"perDay":        20,
				"order":         1,
				"bury":          true,
				"separate":      true,
			},
			"lapse": map[string]interface{}{
				"delays":      []int{10},
				"mult":        0,
				"minInt":      1,
				"leechFails":  8,
				"leechAction": 0,
			},
			"rev": map[string]interface{}{
				"perDay":   100,
				"ease4":    1.3,
				"fuzz":     0.05,
				"maxIvl":   36500,
				"ivlFct":   1,
				"bury":     true,
				"minSpace": 1,
			},
			"timer":    0,
			"maxTaken": 60,
			"usn":      0,
			"mod":      mod,
			"autoplay": true,
			"replayq":  true,
		},
	}
	dconfJSON, err := json.Marshal(dconf)
	if err != nil {
		return err
	}

	query := `INSERT INTO col VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.Exec(query,
		1,        // id
		mod,      // crt
		mod*1000, // mod
		mod*1000, // scm
		11,       // ver (schema version)
		0,        // dty
		0,        // usn
		0,        // ls
		string(confJSON),
		string(modelsJSON),
		string(decksJSON),
		string(dconfJSON),
		"{}", // tags
	)
	return err
}

func fieldConfig(name string, ord int) map[string]interface{} {
	return map[string]interface{}{
		"name":   name,
		"ord":    ord,
		"sticky": false,
		"rtl":    false,
		"font":   "Arial",
		"size":   20,
		"media":  []string{},
	}
}

func templateConfig(name string, ord int, qfmt, afmt string) map[string]interface{} {
	return map[string]interface{}{
		"name":  name,
		"ord":   ord,
		"qfmt":  qfmt,
		"afmt":  afmt,
		"did":   nil,
		"bqfmt": "",
		"bafmt": "",
	}
}

// noteTypeConfig describes the Korean/Russian note type with its two cards
func noteTypeConfig(mod int64) map[string]interface{} {
	return map[string]interface{}{
		"id":    ModelID,
		"name":  modelName,
		"type":  0,
		"mod":   mod,
		"usn":   -1,
		"sortf": 0,
		"did":   DeckID,
		// card 0 needs Russian, card 1 needs Korean
		"req":  [][]interface{}{{0, "all", []int{1}}, {1, "all", []int{0}}},
		"vers": []int{},
		"tags": []string{},
		"latexPre": `\documentclass[12pt]{article}
\special{papersize=3in,5in}
\usepackage[utf8]{inputenc}
\usepackage{amssymb,amsmath}
\pagestyle{empty}
\setlength{\parindent}{0in}
\begin{document}`,
		"latexPost": `\end{document}`,
		"flds": []map[string]interface{}{
			fieldConfig("Korean", 0),
			fieldConfig("Russian", 1),
			fieldConfig("Image", 2),
			fieldConfig("Sound", 3),
		},
		"tmpls": []map[string]interface{}{
			templateConfig("Russian+Korean -> Korean", 0,
				`{{Russian}}<br>{{Image}}{{type:Korean}}`,
				`{{FrontSide}}<hr id="answer"><br>{{Sound}}`),
			templateConfig("Korean+Russian -> Russian", 1,
				`{{Korean}}<br>{{Sound}}{{type:Russian}}`,
				`{{FrontSide}}<hr id="answer">`),
		},
		"css": cardCSS,
	}
}

const cardCSS = `.card {
  font-family: arial;
  font-size: 20px;
  text-align: center;
  color: black;
  background-color: white;
}`

// fieldChecksum is the first 8 hex digits of the SHA-1 of the sort field
func fieldChecksum(field string) int64 {
	sum := sha1.Sum([]byte(field))
	v, _ := strconv.ParseInt(hex.EncodeToString(sum[:])[:8], 16, 64)
	return v
}

// insertNotesAndCards inserts every note with its two cards
func insertNotesAndCards(db *sql.DB, notes []Note, now time.Time) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	noteStmt, err := tx.Prepare(`INSERT INTO notes VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer noteStmt.Close()

	cardStmt, err := tx.Prepare(`INSERT INTO cards VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer cardStmt.Close()

	base := now.UnixMilli()
	mod := now.Unix()

	for i, note := range notes {
		// leave room for 2 cards per note
		noteID := base + int64(i*3)

		fields := strings.Join(note.Fields(), "\x1f")

		_, err := noteStmt.Exec(
			noteID,                     // id
			note.GUID(),                // guid
			ModelID,                    // mid
			mod,                        // mod
			-1,                         // usn
			"",                         // tags
			fields,                     // flds
			note.Korean,                // sfld (sort field)
			fieldChecksum(note.Korean), // csum
			0,                          // flags
			"",                         // data
		)
		if err != nil {
			return fmt.Errorf("failed to insert note %q: %w", note.Korean, err)
		}

		for ord := 0; ord < 2; ord++ {
			_, err = cardStmt.Exec(
				noteID+int64(ord)+1, // id
				noteID,              // nid
				DeckID,              // did
				ord,                 // ord (template)
				mod,                 // mod
				-1,                  // usn
				0,                   // type (0=new)
				0,                   // queue (0=new)
				i+1,                 // due (position for new cards)
				0,                   // ivl
				0,                   // factor
				0,                   // reps
				0,                   // lapses
				0,                   // left
				0,                   // odue
				0,                   // odid
				0,                   // flags
				"",                  // data
			)
			if err != nil {
				return fmt.Errorf("failed to insert card %d for %q: %w", ord, note.Korean, err)
			}
		}
	}

	return tx.Commit()
}

// copyMediaFiles copies media into dir under numeric names
func copyMediaFiles(media []mediaEntry, dir string) error {
	for i, m := range media {
		if err := copyFile(m.path, filepath.Join(dir, strconv.Itoa(i))); err != nil {
			return fmt.Errorf("failed to copy %s: %w", m.path, err)
		}
	}
	return nil
}

// createMediaMapping writes the number -> filename map Anki reads on import
func createMediaMapping(media []mediaEntry, dir string) error {
	mapping := make(map[string]string, len(media))
	for i, m := range media {
		mapping[strconv.Itoa(i)] = m.name
	}

	data, err := json.Marshal(mapping)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "media"), data, 0644)
}

// createZipPackage zips dir into outputPath. The archive is written to a
// temporary file first so a failed run never leaves a truncated package.
func createZipPackage(dir, outputPath string) error {
	if parent := filepath.Dir(outputPath); parent != "" && parent != "." {
		if err := os.MkdirAll(parent, 0755); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".krdeck-*.apkg")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	archive := zip.NewWriter(tmp)

	entries, err := os.ReadDir(dir)
	if err != nil {
		tmp.Close()
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := addZipEntry(archive, filepath.Join(dir, entry.Name()), entry.Name()); err != nil {
			tmp.Close()
			return err
		}
	}

	if err := archive.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, outputPath)
}

func addZipEntry(archive *zip.Writer, path, name string) error {
	writer, err := archive.Create(name)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(writer, file)
	return err
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}
	return dstFile.Close()
}
