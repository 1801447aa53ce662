package processor

import (
	"fmt"

	"codeberg.org/snonux/krdeck/internal/anki"
)

// Status reports whether a word produced a card
type Status int

const (
	StatusCreated Status = iota
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is the outcome of enriching one word
type Result struct {
	Word   string
	Line   int
	Status Status
	Err    error // why the word was skipped

	Note     anki.Note
	Media    []string
	Dir      string // scratch directory, empty for skipped words
	Query    string // image search term
	Warnings []string

	NoTranslation bool
	NoImage       bool
}

// Summary counts results by outcome
type Summary struct {
	Total         int
	Created       int
	Skipped       int
	NoTranslation int
	NoImage       int
}

// Summarize counts the outcomes of a run
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusCreated:
			s.Created++
			if r.NoTranslation {
				s.NoTranslation++
			}
			if r.NoImage {
				s.NoImage++
			}
		case StatusSkipped:
			s.Skipped++
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d words: %d cards created, %d skipped (%d without translation, %d without image)",
		s.Total, s.Created, s.Skipped, s.NoTranslation, s.NoImage)
}
