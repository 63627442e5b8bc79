package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/wbdigital-chatbot/server/internal/agent/model"
	errx "github.com/wbdigital-chatbot/server/internal/core/error"
	logx "github.com/wbdigital-chatbot/server/pkg/logger"
)

const (
	ProviderGemini   = "gemini"
	ProviderDeepSeek = "deepseek"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	Provider   model.ProviderConfig
	Classifier *model.ClassifierModelConfig
	Response   *model.ResponseModelConfig
}

// ChatModels holds the classifier fallback and response models.
type ChatModels struct {
	Classifier          einomodel.BaseChatModel
	Response            einomodel.BaseChatModel
	ClassifierModelName string
	ResponseModelName   string
}

// NewChatModels builds both models for the configured provider. A missing API
// key is a startup error.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.Classifier == nil || config.Response == nil {
		return nil, fmt.Errorf("chat model config is incomplete")
	}

	switch config.Provider.Provider {
	case ProviderGemini, "":
		return newGeminiModels(ctx, config)
	case ProviderDeepSeek:
		return newDeepSeekModels(config)
	default:
		return nil, fmt.Errorf("%w: unknown LLM_PROVIDER %q", errx.ErrConfigurationMissing, config.Provider.Provider)
	}
}

func newGeminiModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.Provider.GeminiAPIKey == "" {
		return nil, errx.Missing("GEMINI_API_KEY")
	}

	client, err := NewGenAIClient(ctx, config.Provider)
	if err != nil {
		return nil, err
	}

	classifier, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Classifier.Model,
		Temperature: &config.Classifier.Temperature,
		MaxTokens:   &config.Classifier.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating classifier model")
		return nil, fmt.Errorf("error creating classifier model: %w", err)
	}

	response, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Response.Model,
		Temperature: &config.Response.Temperature,
		MaxTokens:   &config.Response.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating response model")
		return nil, fmt.Errorf("error creating response model: %w", err)
	}

	return &ChatModels{
		Classifier:          classifier,
		Response:            response,
		ClassifierModelName: config.Classifier.Model,
		ResponseModelName:   config.Response.Model,
	}, nil
}

func newDeepSeekModels(config ChatModelConfig) (*ChatModels, error) {
	if config.Provider.DeepSeekAPIKey == "" {
		return nil, errx.Missing("DEEPSEEK_API_KEY")
	}
	p := config.Provider
	return &ChatModels{
		Classifier: NewOpenAIChatModel(OpenAIConfig{
			APIKey:      p.DeepSeekAPIKey,
			BaseURL:     p.DeepSeekBaseURL,
			Model:       config.Classifier.Model,
			Temperature: config.Classifier.Temperature,
			MaxTokens:   config.Classifier.MaxTokens,
		}),
		Response: NewOpenAIChatModel(OpenAIConfig{
			APIKey:      p.DeepSeekAPIKey,
			BaseURL:     p.DeepSeekBaseURL,
			Model:       config.Response.Model,
			Temperature: config.Response.Temperature,
			MaxTokens:   config.Response.MaxTokens,
		}),
		ClassifierModelName: config.Classifier.Model,
		ResponseModelName:   config.Response.Model,
	}, nil
}

// NewGenAIClient creates the Gemini API client shared by chat and embedding calls.
func NewGenAIClient(ctx context.Context, p model.ProviderConfig) (*genai.Client, error) {
	if p.GeminiAPIKey == "" {
		return nil, errx.Missing("GEMINI_API_KEY")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  p.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.GeminiBaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = p.GeminiBaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return client, nil
}
