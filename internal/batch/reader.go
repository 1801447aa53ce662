package batch

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// WordEntry is a single trimmed, non-empty word from the input list
type WordEntry struct {
	Word string
	Line int // 1-based line number in the source file
}

// ReadWordFile reads words from a file, one per line.
// Blank lines are skipped, duplicates are kept in order.
func ReadWordFile(filename string) ([]WordEntry, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read word list: %w", err)
	}

	return ParseWords(content)
}

// ParseWords parses newline-delimited UTF-8 text into word entries
func ParseWords(content []byte) ([]WordEntry, error) {
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("word list is not valid UTF-8")
	}

	text := strings.TrimPrefix(string(content), "\ufeff")

	var entries []WordEntry
	for i, line := range splitLines(text) {
		word := strings.TrimSpace(line)
		if word == "" {
			continue
		}
		entries = append(entries, WordEntry{
			Word: norm.NFC.String(word),
			Line: i + 1,
		})
	}

	return entries, nil
}

// Words returns the plain words of the given entries
func Words(entries []WordEntry) []string {
	words := make([]string, 0, len(entries))
	for _, e := range entries {
		words = append(words, e.Word)
	}
	return words
}

// splitLines splits a string by newlines, dropping carriage returns
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	return lines
}
