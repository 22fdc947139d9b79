package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	path    string
	headers http.Header
	body    map[string]any
}

func newChatServer(t *testing.T, status int, reply string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			captured.path = r.URL.Path
			captured.headers = r.Header.Clone()
			_ = json.NewDecoder(r.Body).Decode(&captured.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
}

const chatReply = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"model": "test-model",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"chunks\": []}"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
}`

func TestOpenAICompatProvider_Chat(t *testing.T) {
	var captured capturedRequest
	server := newChatServer(t, http.StatusOK, chatReply, &captured)
	defer server.Close()

	provider, err := NewProvider(ProviderConfig{
		Provider: "openrouter",
		APIKey:   "sk-test",
		Model:    "test-model",
		BaseURL:  server.URL,
	}, nil)
	require.NoError(t, err)

	resp, err := provider.Chat(context.Background(), ChatRequest{
		SystemPrompt: "system text",
		Messages:     []Message{NewTextMessage(RoleUser, "user text")},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"chunks": []}`, resp.GetText())
	assert.Equal(t, StopReasonEndTurn, resp.StopReason)
	assert.Equal(t, 16, resp.Usage.TotalTokens())

	assert.Equal(t, "/chat/completions", captured.path)
	assert.Equal(t, "Bearer sk-test", captured.headers.Get("Authorization"))
	assert.Equal(t, OpenRouterReferer, captured.headers.Get("HTTP-Referer"))
	assert.Equal(t, OpenRouterTitle, captured.headers.Get("X-Title"))
	assert.Equal(t, "test-model", captured.body["model"])

	messages, ok := captured.body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user text", messages[1].(map[string]any)["content"])
}

func TestOpenAICompatProvider_ErrorStatus(t *testing.T) {
	server := newChatServer(t, http.StatusTooManyRequests, `{"error": {"message": "rate limited"}}`, nil)
	defer server.Close()

	provider, err := NewOpenAICompatProvider(ProviderConfig{Provider: "openai", BaseURL: server.URL, Model: "m"}, nil)
	require.NoError(t, err)

	_, err = provider.Chat(context.Background(), ChatRequest{Messages: []Message{NewTextMessage(RoleUser, "x")}})
	assert.Error(t, err)
}

func TestOpenAICompatProvider_NoChoices(t *testing.T) {
	server := newChatServer(t, http.StatusOK, `{"id": "x", "choices": []}`, nil)
	defer server.Close()

	provider, err := NewOpenAICompatProvider(ProviderConfig{BaseURL: server.URL, Model: "m"}, nil)
	require.NoError(t, err)

	_, err = provider.Chat(context.Background(), ChatRequest{Messages: []Message{NewTextMessage(RoleUser, "x")}})
	assert.ErrorContains(t, err, "no choices")
}

func TestNewOpenAICompatProvider_RequiresBaseURL(t *testing.T) {
	_, err := NewOpenAICompatProvider(ProviderConfig{}, nil)
	assert.Error(t, err)
}

func TestNewProvider_Defaults(t *testing.T) {
	provider, err := NewProvider(ProviderConfig{APIKey: "k"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "openrouter", provider.Name())
	assert.Equal(t, "xiaomi/mimo-v2-flash:free", provider.Model())
}

func TestNewProvider_Unsupported(t *testing.T) {
	_, err := NewProvider(ProviderConfig{Provider: "bard"}, nil)
	assert.Error(t, err)
}

func TestNewProvider_Anthropic(t *testing.T) {
	_, err := NewProvider(ProviderConfig{Provider: "anthropic"}, nil)
	assert.Error(t, err, "anthropic requires an API key")

	provider, err := NewProvider(ProviderConfig{Provider: "anthropic", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", provider.Name())
	assert.Equal(t, "claude-sonnet-4-20250514", provider.Model())
}

func TestValidateProviderConfig(t *testing.T) {
	assert.Error(t, ValidateProviderConfig(ProviderConfig{Provider: "openrouter"}))
	assert.Error(t, ValidateProviderConfig(ProviderConfig{}))
	assert.NoError(t, ValidateProviderConfig(ProviderConfig{Provider: "openrouter", APIKey: "k"}))
	assert.NoError(t, ValidateProviderConfig(ProviderConfig{Provider: "ollama"}))
	assert.Error(t, ValidateProviderConfig(ProviderConfig{Provider: "bard"}))
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, StripCodeFences("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `[1]`, StripCodeFences("```\n[1]\n```"))
	assert.Equal(t, "plain", StripCodeFences("  plain  "))
}

func TestExtractJSON(t *testing.T) {
	obj, ok := ExtractJSONObject(`Here you go: {"chunks": [{"text": "a"}]} thanks`)
	require.True(t, ok)
	assert.Equal(t, `{"chunks": [{"text": "a"}]}`, obj)

	arr, ok := ExtractJSONArray(`result: ["a", "b"].`)
	require.True(t, ok)
	assert.Equal(t, `["a", "b"]`, arr)

	_, ok = ExtractJSONObject("no json here")
	assert.False(t, ok)

	_, ok = ExtractJSONArray("] backwards [")
	assert.False(t, ok)
}
