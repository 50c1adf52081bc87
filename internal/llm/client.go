package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/jonathan/luxprima/internal/types"
	"google.golang.org/api/option"
)

// Generator turns a prompt into generated text.
type Generator interface {
	// Generate returns the model's reply to prompt
	Generate(ctx context.Context, prompt string) (string, error)
	// Name returns "<provider> (<model>)" for logs
	Name() string
	// Close releases any resources held by the client
	Close() error
}

// Credentials are the process-level fallbacks used when persisted settings
// carry no key or endpoint.
type Credentials struct {
	OpenAIAPIKey string
	GeminiAPIKey string
	LocalBaseURL string
}

// New builds the Generator selected by settings. The provider tag is validated
// here so an unknown provider fails before any generation is attempted.
func New(ctx context.Context, settings types.LLMSettings, creds Credentials) (Generator, error) {
	provider, err := ParseProvider(settings.Provider)
	if err != nil {
		return nil, err
	}

	model := settings.Model
	if model == "" {
		model = provider.DefaultModel()
	}

	switch provider {
	case ProviderGemini:
		key := firstNonEmpty(settings.APIKey, creds.GeminiAPIKey)
		return NewGeminiClient(ctx, key, model)
	case ProviderLocal:
		base := firstNonEmpty(settings.BaseURL, creds.LocalBaseURL, DefaultLocalBaseURL)
		return NewChatClient(ProviderLocal, ChatConfig{
			BaseURL: base,
			APIKey:  settings.APIKey,
			Model:   model,
			Timeout: 0, // self-hosted backends may take as long as they need
		})
	default:
		key := firstNonEmpty(settings.APIKey, creds.OpenAIAPIKey)
		if key == "" {
			return nil, &ProviderError{Provider: string(provider), Message: "API key is required"}
		}
		return NewChatClient(ProviderOpenAI, ChatConfig{
			BaseURL: firstNonEmpty(settings.BaseURL, DefaultOpenAIBaseURL),
			APIKey:  key,
			Model:   model,
			Timeout: DefaultRequestTimeout,
		})
	}
}

// Factory builds a Generator for one run.
type Factory func(ctx context.Context, settings types.LLMSettings) (Generator, error)

// NewFactory returns a Factory bound to creds.
func NewFactory(creds Credentials) Factory {
	return func(ctx context.Context, settings types.LLMSettings) (Generator, error) {
		return New(ctx, settings, creds)
	}
}

// GeminiClient implements Generator for Google Gemini
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, &ProviderError{Provider: string(ProviderGemini), Message: "API key is required"}
	}

	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, &ProviderError{Provider: string(ProviderGemini), Message: "failed to create client", Cause: err}
	}

	return &GeminiClient{client: client, model: model}, nil
}

// Generate implements Generator.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0.2)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &ProviderError{Provider: string(ProviderGemini), Message: "failed to generate content", Cause: err}
	}

	return extractTextFromResponse(resp)
}

// Name implements Generator.
func (c *GeminiClient) Name() string {
	return fmt.Sprintf("%s (%s)", ProviderGemini, c.model)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
