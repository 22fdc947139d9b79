package llm

import (
	"fmt"
	"log/slog"
	"strings"
)

// ProviderType represents the type of LLM provider.
type ProviderType string

const (
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOpenAI     ProviderType = "openai"
	ProviderOllama     ProviderType = "ollama"
	ProviderLMStudio   ProviderType = "lmstudio"
)

// OpenRouter attribution headers.
const (
	OpenRouterReferer = "https://rag-chunker.local"
	OpenRouterTitle   = "RAG Data Chunker"
)

// OpenRouterHeaders returns the attribution headers OpenRouter expects from this client.
func OpenRouterHeaders() map[string]string {
	return map[string]string{
		"HTTP-Referer": OpenRouterReferer,
		"X-Title":      OpenRouterTitle,
	}
}

// NewProvider creates a new LLM provider based on the configuration.
func NewProvider(cfg ProviderConfig, logger *slog.Logger) (Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	providerType := ProviderType(strings.ToLower(cfg.Provider))
	if providerType == "" {
		providerType = ProviderOpenRouter
		cfg.Provider = string(providerType)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = GetDefaultBaseURL(string(providerType))
	}
	if cfg.Model == "" {
		cfg.Model = GetDefaultModel(string(providerType))
	}

	logger.Info("creating LLM provider",
		"provider", providerType,
		"model", cfg.Model,
	)

	switch providerType {
	case ProviderOpenRouter:
		if cfg.Headers == nil {
			cfg.Headers = OpenRouterHeaders()
		}
		return NewOpenAICompatProvider(cfg, logger)

	case ProviderAnthropic:
		return NewAnthropicProvider(cfg, logger)

	case ProviderOpenAI, ProviderOllama, ProviderLMStudio:
		return NewOpenAICompatProvider(cfg, logger)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// ValidateProviderConfig validates the provider configuration.
func ValidateProviderConfig(cfg ProviderConfig) error {
	providerType := ProviderType(strings.ToLower(cfg.Provider))

	switch providerType {
	case "", ProviderOpenRouter, ProviderAnthropic, ProviderOpenAI:
		if cfg.APIKey == "" {
			return fmt.Errorf("API key is required for %s provider", nonEmpty(cfg.Provider, string(ProviderOpenRouter)))
		}

	case ProviderOllama, ProviderLMStudio:
		// No API key required

	default:
		return fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	return nil
}

// GetDefaultModel returns the default model for a given provider.
func GetDefaultModel(provider string) string {
	switch ProviderType(strings.ToLower(provider)) {
	case ProviderOpenRouter, "":
		return "xiaomi/mimo-v2-flash:free"
	case ProviderAnthropic:
		return "claude-sonnet-4-20250514"
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderOllama:
		return "llama3.2"
	case ProviderLMStudio:
		return "local-model"
	default:
		return ""
	}
}

// GetDefaultBaseURL returns the default base URL for a given provider.
func GetDefaultBaseURL(provider string) string {
	switch ProviderType(strings.ToLower(provider)) {
	case ProviderOpenRouter, "":
		return "https://openrouter.ai/api/v1"
	case ProviderOpenAI:
		return "https://api.openai.com/v1"
	case ProviderOllama:
		return "http://localhost:11434/v1"
	case ProviderLMStudio:
		return "http://localhost:1234/v1"
	default:
		return ""
	}
}

func nonEmpty(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
