package types

import (
	"strconv"
	"strings"
)

// Setting keys read by the briefing pipeline.
const (
	SettingLLMProvider     = "llm_provider"
	SettingLLMAPIKey       = "llm_api_key"
	SettingLLMModel        = "llm_model"
	SettingLLMBaseURL      = "llm_base_url"
	SettingResearchBreadth = "research_breadth"
	SettingResearchDepth   = "research_depth"
)

// Research strategy defaults used when the settings are absent or unparsable.
const (
	DefaultBreadth = 3
	DefaultDepth   = 1
)

// LLMSettingKeys lists every key ResolveLLMSettings consults.
func LLMSettingKeys() []string {
	return []string{
		SettingLLMProvider,
		SettingLLMAPIKey,
		SettingLLMModel,
		SettingLLMBaseURL,
		SettingResearchBreadth,
		SettingResearchDepth,
	}
}

// LLMSettings is the generation backend selection plus the research strategy for one run.
type LLMSettings struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Breadth  int
	Depth    int
}

// ResolveLLMSettings builds LLMSettings from persisted values, falling back to
// defaultProvider and the default breadth/depth for anything missing.
// Breadth is at least 1 and depth at least 0.
func ResolveLLMSettings(values map[string]string, defaultProvider string) LLMSettings {
	s := LLMSettings{
		Provider: strings.ToLower(strings.TrimSpace(values[SettingLLMProvider])),
		APIKey:   strings.TrimSpace(values[SettingLLMAPIKey]),
		Model:    strings.TrimSpace(values[SettingLLMModel]),
		BaseURL:  strings.TrimSpace(values[SettingLLMBaseURL]),
		Breadth:  intSetting(values, SettingResearchBreadth, DefaultBreadth),
		Depth:    intSetting(values, SettingResearchDepth, DefaultDepth),
	}
	if s.Provider == "" {
		s.Provider = strings.ToLower(strings.TrimSpace(defaultProvider))
	}
	if s.Breadth < 1 {
		s.Breadth = 1
	}
	if s.Depth < 0 {
		s.Depth = 0
	}
	return s
}

func intSetting(values map[string]string, key string, fallback int) int {
	raw, ok := values[key]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return n
}
