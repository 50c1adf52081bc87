// Package llm provides the text generation backends used by the briefing pipeline.
// A backend is selected by provider tag; unknown tags fail at construction.
package llm

import (
	"fmt"
	"strings"
	"time"
)

// Provider names a generation backend.
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderOpenAI is the hosted OpenAI chat completions API
	ProviderOpenAI Provider = "openai"
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderLocal is any self-hosted OpenAI-compatible server (llama.cpp, LM Studio, vLLM)
	ProviderLocal Provider = "local"
)

// Default endpoints and models.
const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultLocalBaseURL  = "http://host.docker.internal:8080/v1"
	DefaultOpenAIModel   = "gpt-3.5-turbo"
	DefaultGeminiModel   = "gemini-pro"
	DefaultLocalModel    = "local"

	// DefaultRequestTimeout bounds hosted provider calls. Local backends have none.
	DefaultRequestTimeout = 5 * time.Minute
)

// ParseProvider validates a provider tag.
func ParseProvider(name string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(name))); p {
	case ProviderOpenAI, ProviderGemini, ProviderLocal:
		return p, nil
	default:
		return "", &ProviderError{Provider: name, Message: "unsupported provider"}
	}
}

// DefaultModel returns the model used when none is configured.
func (p Provider) DefaultModel() string {
	switch p {
	case ProviderGemini:
		return DefaultGeminiModel
	case ProviderLocal:
		return DefaultLocalModel
	default:
		return DefaultOpenAIModel
	}
}

// ProviderError represents a failure constructing or calling a provider.
type ProviderError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("llm provider %s: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("llm provider %s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}
