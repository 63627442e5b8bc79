package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/wbdigital-chatbot/server/internal/agent/graph/prompts"
	"github.com/wbdigital-chatbot/server/internal/agent/llm"
	"github.com/wbdigital-chatbot/server/internal/agent/metrics"
	"github.com/wbdigital-chatbot/server/internal/agent/model"
	errx "github.com/wbdigital-chatbot/server/internal/core/error"
	logx "github.com/wbdigital-chatbot/server/pkg/logger"
)

const (
	SourceRule     = "rule"
	SourceModel    = "model"
	SourceFallback = "fallback"
)

// DefaultIntent is used whenever the model cannot give a usable label.
const DefaultIntent = model.IntentInquireServices

// Completer is the bounded model call used by the fallback layer.
type Completer interface {
	Complete(ctx context.Context, msgs []*schema.Message, temperature float32) (llm.Completion, error)
}

// Result is the classifier output for one message.
type Result struct {
	Intent    model.Intent
	FastTrack bool
	// Degraded is set when the fallback model timed out or failed.
	Degraded bool
	Source   string
	Rule     Rule
}

type Classifier struct {
	completer   Completer
	prompts     *prompts.Library
	business    model.ResponsePromptConfig
	temperature float32
}

func New(completer Completer, lib *prompts.Library, business model.ResponsePromptConfig, temperature float32) *Classifier {
	return &Classifier{
		completer:   completer,
		prompts:     lib,
		business:    business,
		temperature: temperature,
	}
}

// Classify is total: it always returns a valid intent, and the model fallback
// is bounded by the completer's timeout.
func (c *Classifier) Classify(ctx context.Context, message string, lang model.Language) Result {
	res := Result{FastTrack: IsFastTrack(message)}

	if intent, rule, ok := MatchRules(message); ok {
		res.Intent, res.Rule, res.Source = intent, rule, SourceRule
		c.observe(ctx, res)
		return res
	}

	intent, err := c.classifyWithModel(ctx, message, lang)
	switch {
	case err == nil:
		res.Intent, res.Source = intent, SourceModel
	case errors.Is(err, errx.ErrClassificationAmbiguous):
		res.Intent, res.Source = DefaultIntent, SourceFallback
		logx.Ctx(ctx).Warn().Err(err).Msg("intent fallback returned an unusable label")
	default:
		res.Intent, res.Source, res.Degraded = DefaultIntent, SourceFallback, true
		logx.Ctx(ctx).Warn().Err(err).Bool("timeout", errx.IsTimeout(err)).Msg("intent fallback unavailable, using default intent")
	}
	c.observe(ctx, res)
	return res
}

func (c *Classifier) classifyWithModel(ctx context.Context, message string, lang model.Language) (model.Intent, error) {
	if c.completer == nil {
		return "", fmt.Errorf("%w: no fallback model", errx.ErrUpstreamUnavailable)
	}

	labels := make([]string, len(model.Intents))
	for i, in := range model.Intents {
		labels[i] = in.String()
	}
	system, err := c.prompts.Render(ctx, prompts.DetectIntent, map[string]any{
		"BusinessName": c.business.BusinessName,
		"BusinessType": c.business.BusinessType,
		"LanguageName": lang.Name(),
		"Labels":       labels,
	})
	if err != nil {
		return "", err
	}

	out, err := c.completer.Complete(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(message),
	}, c.temperature)
	if err != nil {
		return "", err
	}

	intent, err := model.ParseIntent(out.Text)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errx.ErrClassificationAmbiguous, err)
	}
	return intent, nil
}

func (c *Classifier) observe(ctx context.Context, res Result) {
	metrics.Intents.WithLabelValues(res.Intent.String(), res.Source).Inc()
	logx.Ctx(ctx).Debug().
		Str("intent", res.Intent.String()).
		Str("source", res.Source).
		Str("rule", string(res.Rule)).
		Bool("fast_track", res.FastTrack).
		Bool("degraded", res.Degraded).
		Msg("intent classified")
}
