package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbdigital-chatbot/server/internal/agent/llm/llmtest"
	"github.com/wbdigital-chatbot/server/internal/agent/model"
	errx "github.com/wbdigital-chatbot/server/internal/core/error"
)

type recorder struct {
	mu    sync.Mutex
	usage []model.Usage
}

func (r *recorder) UpdateUsage(u model.Usage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usage = append(r.usage, u)
}

func msgs(text string) []*schema.Message {
	return []*schema.Message{schema.UserMessage(text)}
}

func TestCompleteReportsUsage(t *testing.T) {
	rec := &recorder{}
	c := NewCompleter(llmtest.Static("  hello  "), "m", "generate", time.Second, rec)

	out, err := c.Complete(context.Background(), msgs("hi"), 0.7)
	require.NoError(t, err)
	assert.Equal(t, "hello", out.Text)
	assert.Equal(t, 10, out.Usage.InputTokens)
	assert.Equal(t, 5, out.Usage.OutputTokens)
	require.Len(t, rec.usage, 1)
	assert.Equal(t, out.Usage, rec.usage[0])
}

func TestCompleteReturnsWithinTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	rec := &recorder{}
	c := NewCompleter(llmtest.Hanging(release), "m", "classify", 50*time.Millisecond, rec)

	start := time.Now()
	_, err := c.Complete(context.Background(), msgs("hi"), 0.1)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, errx.ErrUpstreamTimeout)
	assert.True(t, errx.IsTimeout(err))
	assert.Empty(t, rec.usage)
}

func TestCompleteWrapsProviderErrors(t *testing.T) {
	c := NewCompleter(llmtest.Failing(errors.New("503 from provider")), "m", "revise", time.Second, nil)

	_, err := c.Complete(context.Background(), msgs("hi"), 0.5)
	require.Error(t, err)
	assert.ErrorIs(t, err, errx.ErrUpstreamUnavailable)
	assert.False(t, errx.IsTimeout(err))
	assert.Equal(t, http.StatusBadGateway, errx.Status(err))
}

func TestOpenAIChatModelAgainstCompatibleServer(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "1", "object": "chat.completion", "model": "deepseek-chat",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "request_quote"}}],
			"usage": {"prompt_tokens": 40, "completion_tokens": 2, "total_tokens": 42,
				"prompt_tokens_details": {"cached_tokens": 32}}
		}`))
	}))
	t.Cleanup(srv.Close)

	chat := NewOpenAIChatModel(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "deepseek-chat", Temperature: 0.1, MaxTokens: 16})
	c := NewCompleter(chat, "deepseek-chat", "classify", time.Second, nil)

	out, err := c.Complete(context.Background(), []*schema.Message{
		schema.SystemMessage("classify"),
		schema.UserMessage("quanto custa?"),
	}, 0.1)
	require.NoError(t, err)
	assert.Equal(t, "request_quote", out.Text)
	assert.Equal(t, 40, out.Usage.InputTokens)
	assert.Equal(t, 32, out.Usage.CachedInputTokens)
	assert.True(t, out.Usage.ContextCacheHit())

	assert.Equal(t, "deepseek-chat", got["model"])
	sent := got["messages"].([]any)
	require.Len(t, sent, 2)
	assert.Equal(t, "system", sent[0].(map[string]any)["role"])
}

func TestNewChatModelsRequiresCredentials(t *testing.T) {
	cfg := ChatModelConfig{
		Classifier: &model.ClassifierModelConfig{Model: "c"},
		Response:   &model.ResponseModelConfig{Model: "r"},
	}

	cfg.Provider = model.ProviderConfig{Provider: ProviderGemini}
	_, err := NewChatModels(context.Background(), cfg)
	assert.ErrorIs(t, err, errx.ErrConfigurationMissing)

	cfg.Provider = model.ProviderConfig{Provider: ProviderDeepSeek}
	_, err = NewChatModels(context.Background(), cfg)
	assert.ErrorIs(t, err, errx.ErrConfigurationMissing)

	cfg.Provider = model.ProviderConfig{Provider: ProviderDeepSeek, DeepSeekAPIKey: "k"}
	cms, err := NewChatModels(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "r", cms.ResponseModelName)
}

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Criação de sites")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "criação  de SITES")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	empty, err := e.Embed(ctx, "   ")
	require.NoError(t, err)
	assert.Equal(t, float32(1), empty[0])
}
