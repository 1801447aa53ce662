package audio

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genai"
)

const defaultPCMSampleRate = 24000

// GeminiProvider implements Provider interface for Gemini TTS models
type GeminiProvider struct {
	client *genai.Client
	config *Config
}

// NewGeminiProvider creates a new Gemini TTS provider
func NewGeminiProvider(config *Config) (Provider, error) {
	if config.GeminiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.GeminiBaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.GeminiBaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		config: config,
	}, nil
}

// GenerateAudio generates WAV audio using a Gemini TTS model
func (p *GeminiProvider) GenerateAudio(ctx context.Context, text string, outputFile string) error {
	if err := ValidateSpeechText(text); err != nil {
		return err
	}

	genConfig := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: p.config.GeminiVoice,
				},
			},
		},
	}

	prompt := fmt.Sprintf("Say clearly in Korean: %s", strings.TrimSpace(text))
	resp, err := p.client.Models.GenerateContent(ctx, p.config.GeminiModel, genai.Text(prompt), genConfig)
	if err != nil {
		return fmt.Errorf("Gemini TTS API error: %w", err)
	}

	pcm, mimeType := inlineAudio(resp)
	if len(pcm) == 0 {
		return fmt.Errorf("no audio data received")
	}

	wav := encodeWAV(pcm, sampleRateFromMIME(mimeType), 1, 16)
	return writeAudioFile(outputFile, bytes.NewReader(wav))
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable checks if the Gemini API key is configured
func (p *GeminiProvider) IsAvailable() error {
	if p.config.GeminiKey == "" {
		return fmt.Errorf("Gemini API key not configured")
	}
	return nil
}

// Extension returns the file extension of the generated audio
func (p *GeminiProvider) Extension() string {
	return "wav"
}

func inlineAudio(resp *genai.GenerateContentResponse) ([]byte, string) {
	if resp == nil {
		return nil, ""
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, part.InlineData.MIMEType
			}
		}
	}
	return nil, ""
}

// sampleRateFromMIME reads the rate from e.g. "audio/L16;codec=pcm;rate=24000"
func sampleRateFromMIME(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(key, "rate") {
			continue
		}
		if rate, err := strconv.Atoi(value); err == nil && rate > 0 {
			return rate
		}
	}
	return defaultPCMSampleRate
}
