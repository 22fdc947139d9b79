// Package llm provides a unified interface for the chat-completion backends used as a
// segmentation oracle.
package llm

import (
	"context"
	"strings"
)

// Provider defines the interface that all LLM providers must implement.
type Provider interface {
	// Chat sends a chat request to the LLM and returns the response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Name returns the provider name (e.g., "openrouter", "anthropic", "ollama").
	Name() string

	// Model returns the model name being used.
	Model() string
}

// StopReason indicates why the model stopped generating.
type StopReason string

const (
	StopReasonEndTurn   StopReason = "end_turn"
	StopReasonMaxTokens StopReason = "max_tokens"
	StopReasonStop      StopReason = "stop"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ContentType represents the type of content in a message.
type ContentType string

const ContentTypeText ContentType = "text"

// ContentBlock represents a block of content in a message.
type ContentBlock struct {
	Type ContentType `json:"type"`
	Text string      `json:"text,omitempty"`
}

// Message represents a message in the conversation.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// NewTextMessage creates a new text message.
func NewTextMessage(role Role, text string) Message {
	return Message{
		Role: role,
		Content: []ContentBlock{
			{Type: ContentTypeText, Text: text},
		},
	}
}

// GetText extracts all text content from a message.
func (m *Message) GetText() string {
	return joinText(m.Content)
}

// ChatRequest represents a request to the LLM.
type ChatRequest struct {
	// Messages is the conversation history.
	Messages []Message `json:"messages"`

	// SystemPrompt is the system prompt for the conversation.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness in the response.
	Temperature float64 `json:"temperature,omitempty"`
}

// ChatResponse represents a response from the LLM.
type ChatResponse struct {
	Content    []ContentBlock `json:"content"`
	StopReason StopReason     `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
	Model      string         `json:"model"`
}

// GetText extracts all text content from a response.
func (r *ChatResponse) GetText() string {
	return joinText(r.Content)
}

func joinText(blocks []ContentBlock) string {
	var b strings.Builder
	for _, block := range blocks {
		if block.Type == ContentTypeText {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// Usage contains token usage information.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// TotalTokens returns the total number of tokens used.
func (u Usage) TotalTokens() int {
	return u.InputTokens + u.OutputTokens
}

// ProviderConfig holds common configuration for LLM providers.
type ProviderConfig struct {
	// Provider is the provider name (openrouter, openai, anthropic, ollama, lmstudio).
	Provider string `json:"provider"`

	// Model is the model to use.
	Model string `json:"model"`

	// APIKey is the API key for authentication.
	APIKey string `json:"api_key,omitempty"`

	// BaseURL is the base URL for the API.
	BaseURL string `json:"base_url,omitempty"`

	// Headers are sent with every request (e.g. OpenRouter attribution headers).
	Headers map[string]string `json:"headers,omitempty"`

	// MaxTokens is the default maximum tokens to generate.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature is the default temperature.
	Temperature float64 `json:"temperature,omitempty"`
}

// DefaultProviderConfig returns the default provider configuration.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Provider:  string(ProviderOpenRouter),
		Model:     GetDefaultModel(string(ProviderOpenRouter)),
		BaseURL:   GetDefaultBaseURL(string(ProviderOpenRouter)),
		Headers:   OpenRouterHeaders(),
		MaxTokens: 8192,
	}
}
