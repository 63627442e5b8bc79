package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sashabaranov/go-openai"
)

// ExtraCachedTokens is the schema.Message Extra key carrying prompt tokens
// served from the provider's context cache.
const ExtraCachedTokens = "cached_tokens"

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// OpenAIChatModel adapts an OpenAI-compatible endpoint (DeepSeek) to eino's
// BaseChatModel so it can sit behind the same Completer as Gemini.
type OpenAIChatModel struct {
	client *openai.Client
	cfg    OpenAIConfig
}

func NewOpenAIChatModel(cfg OpenAIConfig) *OpenAIChatModel {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &OpenAIChatModel{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
	}
}

func (m *OpenAIChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (out *schema.Message, err error) {
	options := einomodel.GetCommonOptions(&einomodel.Options{
		Temperature: &m.cfg.Temperature,
		MaxTokens:   &m.cfg.MaxTokens,
		Model:       &m.cfg.Model,
	}, opts...)

	ctx = callbacks.OnStart(ctx, &einomodel.CallbackInput{
		Messages: in,
		Config: &einomodel.Config{
			Model:       *options.Model,
			MaxTokens:   *options.MaxTokens,
			Temperature: *options.Temperature,
		},
	})
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	req := openai.ChatCompletionRequest{
		Model:       *options.Model,
		Messages:    toOpenAIMessages(in),
		Temperature: *options.Temperature,
		MaxTokens:   *options.MaxTokens,
	}

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	usage := &schema.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	out = &schema.Message{
		Role:    schema.Assistant,
		Content: resp.Choices[0].Message.Content,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: string(resp.Choices[0].FinishReason),
			Usage:        usage,
		},
	}
	if d := resp.Usage.PromptTokensDetails; d != nil && d.CachedTokens > 0 {
		out.Extra = map[string]any{ExtraCachedTokens: d.CachedTokens}
	}

	callbacks.OnEnd(ctx, &einomodel.CallbackOutput{
		Message: out,
		TokenUsage: &einomodel.TokenUsage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		},
	})
	return out, nil
}

// Stream is served from a single Generate call; callers here never stream.
func (m *OpenAIChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

func (m *OpenAIChatModel) GetType() string { return "DeepSeek" }

// IsCallbacksEnabled tells eino the model fires its own callbacks.
func (m *OpenAIChatModel) IsCallbacksEnabled() bool { return true }

func toOpenAIMessages(in []*schema.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(in))
	for _, msg := range in {
		if msg == nil {
			continue
		}
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case schema.System:
			role = openai.ChatMessageRoleSystem
		case schema.Assistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return out
}

var _ einomodel.BaseChatModel = (*OpenAIChatModel)(nil)
