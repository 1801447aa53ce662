package internal

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// WordDirName returns the scratch directory name for the n-th word of a run.
// Format: 0001_<sanitized word>
func WordDirName(index int, word string) string {
	return fmt.Sprintf("%04d_%s", index+1, SanitizeFilename(word))
}

// SanitizeFilename creates a safe filename from a string. Letters of any
// script are kept so Hangul words stay readable on disk.
func SanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if isFilenameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// isFilenameRune checks if a rune can appear in a filename unchanged
func isFilenameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) ||
		r == '-' || r == '_' || r == ' ' || r == '.'
}

// MediaName returns the base name for a word's media files. When
// sanitizing changes the word, a short hash of the raw word is appended so
// distinct words such as "사과!" and "사과?" never share a file name.
func MediaName(word string) string {
	name := SanitizeFilename(word)
	if name == word {
		return name
	}
	sum := sha1.Sum([]byte(word))
	return name + "_" + hex.EncodeToString(sum[:4])
}
