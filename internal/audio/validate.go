package audio

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxSpeechRunes is the longest input the TTS endpoints accept in one request
const maxSpeechRunes = 200

// ValidateSpeechText validates that the input text can be sent to a TTS provider
func ValidateSpeechText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("text cannot be empty")
	}

	if utf8.RuneCountInString(text) > maxSpeechRunes {
		return fmt.Errorf("text is longer than %d characters", maxSpeechRunes)
	}

	for _, r := range text {
		if unicode.IsLetter(r) {
			return nil
		}
	}

	return fmt.Errorf("text must contain letters")
}

// ContainsHangul reports whether the text has at least one Hangul syllable or jamo
func ContainsHangul(text string) bool {
	for _, r := range text {
		if unicode.In(r, unicode.Hangul) {
			return true
		}
	}
	return false
}
