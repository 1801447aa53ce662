package image

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures DALL-E image generation
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // optional, for compatible endpoints
	Model   string // dall-e-2 or dall-e-3
	Size    string // e.g. 512x512
}

// OpenAICrawler generates an illustration instead of searching for one
type OpenAICrawler struct {
	client *openai.Client
	model  string
	size   string
}

// NewOpenAICrawler creates a DALL-E backed crawler
func NewOpenAICrawler(config *OpenAIConfig) (*OpenAICrawler, error) {
	if config == nil || config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required for image generation")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	model := config.Model
	if model == "" {
		model = openai.CreateImageModelDallE2
	}
	size := config.Size
	if size == "" {
		size = openai.CreateImageSize512x512
	}

	return &OpenAICrawler{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		size:   size,
	}, nil
}

// Name returns the name of the image source
func (o *OpenAICrawler) Name() string {
	return "openai"
}

// Crawl generates one image for keyword and stores it in destDir
func (o *OpenAICrawler) Crawl(ctx context.Context, keyword, destDir string) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return &SearchError{Provider: "openai", Code: "EMPTY_QUERY", Message: "empty prompt keyword"}
	}

	resp, err := o.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         createEducationalPrompt(keyword),
		Model:          o.model,
		N:              1,
		Size:           o.size,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return &SearchError{Provider: "openai", Code: "API_ERROR", Message: err.Error()}
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return &SearchError{Provider: "openai", Code: "NO_RESULTS", Message: "no image data in response"}
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return fmt.Errorf("failed to decode image data: %w", err)
	}

	_, err = saveResult(data, destDir)
	return err
}

func createEducationalPrompt(keyword string) string {
	return fmt.Sprintf("A simple, clear educational flashcard illustration of %q. "+
		"Single subject, plain background, no text, no letters.", keyword)
}
