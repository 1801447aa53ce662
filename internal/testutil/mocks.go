package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// MockTranslator mocks the dictionary lookup
type MockTranslator struct {
	Translations map[string]string
	Errors       map[string]error
	Calls        []string
}

// TranslateWord returns the configured translation or error for word
func (m *MockTranslator) TranslateWord(ctx context.Context, word string) (string, error) {
	m.Calls = append(m.Calls, word)

	if err, ok := m.Errors[word]; ok {
		return "", err
	}

	if translation, ok := m.Translations[word]; ok {
		return translation, nil
	}

	return fmt.Sprintf("mock translation of %s", word), nil
}

// MockAudioProvider writes fake audio data instead of calling a TTS service
type MockAudioProvider struct {
	Ext          string
	Errors       map[string]error
	AvailableErr error
	Calls        []string
}

// GenerateAudio writes mock audio data to outputFile
func (m *MockAudioProvider) GenerateAudio(ctx context.Context, text string, outputFile string) error {
	m.Calls = append(m.Calls, text)

	if err, ok := m.Errors[text]; ok {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return err
	}
	return os.WriteFile(outputFile, GenerateAudioData(), 0644)
}

// Name returns the provider name
func (m *MockAudioProvider) Name() string {
	return "mock"
}

// IsAvailable returns the configured availability error
func (m *MockAudioProvider) IsAvailable() error {
	return m.AvailableErr
}

// Extension returns the configured extension, mp3 by default
func (m *MockAudioProvider) Extension() string {
	if m.Ext == "" {
		return "mp3"
	}
	return m.Ext
}

// MockImageFetcher stores a fake JPEG for every query unless an error is configured
type MockImageFetcher struct {
	Errors  map[string]error
	Queries []string
}

// Fetch writes <wordDir>/<name>.jpg and records the query
func (m *MockImageFetcher) Fetch(ctx context.Context, query, name, wordDir string) (string, error) {
	m.Queries = append(m.Queries, query)

	if err, ok := m.Errors[query]; ok {
		return "", err
	}

	path := filepath.Join(wordDir, name+".jpg")
	if err := os.WriteFile(path, GenerateImageData(), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// GenerateAudioData generates mock audio data
func GenerateAudioData() []byte {
	// Simple mock MP3 header
	return []byte{0xFF, 0xFB, 0x90, 0x00, 0x00, 0x00, 0x00, 0x00}
}

// GenerateImageData generates mock image data
func GenerateImageData() []byte {
	// Simple mock JPEG header
	return []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46}
}
