package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wbdigital-chatbot/server/internal/agent/metrics"
	"github.com/wbdigital-chatbot/server/internal/agent/model"
	"github.com/wbdigital-chatbot/server/internal/agent/tracing"
	errx "github.com/wbdigital-chatbot/server/internal/core/error"
	logx "github.com/wbdigital-chatbot/server/pkg/logger"
)

// UsageRecorder receives the token usage of every model call.
type UsageRecorder interface {
	UpdateUsage(u model.Usage)
}

// Completion is the text and usage of one model call.
type Completion struct {
	Text  string
	Usage model.Usage
}

// Completer runs single bounded model calls for one purpose (classify, generate, revise).
type Completer struct {
	chat      einomodel.BaseChatModel
	modelName string
	purpose   string
	timeout   time.Duration
	usage     UsageRecorder
}

func NewCompleter(chat einomodel.BaseChatModel, modelName, purpose string, timeout time.Duration, usage UsageRecorder) *Completer {
	return &Completer{
		chat:      chat,
		modelName: modelName,
		purpose:   purpose,
		timeout:   timeout,
		usage:     usage,
	}
}

// Complete issues one call under the completer's timeout. It returns when the
// deadline passes even if the model ignores cancellation. There is no retry.
func (c *Completer) Complete(ctx context.Context, msgs []*schema.Message, temperature float32) (Completion, error) {
	ctx, span := tracing.Start(ctx, "llm."+c.purpose,
		attribute.String("llm.model", c.modelName),
		attribute.Float64("llm.temperature", float64(temperature)),
	)

	tctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	tctx = callbacks.ReuseHandlers(tctx, &callbacks.RunInfo{
		Name:      c.purpose,
		Type:      c.modelName,
		Component: components.ComponentOfChatModel,
	})

	type result struct {
		msg *schema.Message
		err error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		msg, err := c.chat.Generate(tctx, msgs, einomodel.WithTemperature(temperature))
		done <- result{msg: msg, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-tctx.Done():
		res.err = tctx.Err()
	}
	if res.err == nil && res.msg == nil {
		res.err = errors.New("model returned no message")
	}
	if res.err != nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		res.err = fmt.Errorf("%w after %s: %v", errx.ErrUpstreamTimeout, c.timeout, res.err)
	}

	if res.err != nil {
		err := errx.WrapUpstream(res.err)
		label := "error"
		if errx.IsTimeout(err) {
			label = "timeout"
		}
		metrics.LLMCalls.WithLabelValues(c.purpose, label).Inc()
		logx.Ctx(ctx).Warn().Err(err).
			Str("purpose", c.purpose).
			Str("model", c.modelName).
			Dur("elapsed", time.Since(start)).
			Msg("model call failed")
		tracing.End(span, err)
		return Completion{}, err
	}

	usage := usageOf(res.msg)
	metrics.LLMCalls.WithLabelValues(c.purpose, "ok").Inc()
	metrics.LLMTokens.WithLabelValues(c.modelName, "input").Add(float64(usage.InputTokens))
	metrics.LLMTokens.WithLabelValues(c.modelName, "output").Add(float64(usage.OutputTokens))
	if c.usage != nil {
		c.usage.UpdateUsage(usage)
	}

	span.SetAttributes(
		attribute.Int("llm.input_tokens", usage.InputTokens),
		attribute.Int("llm.output_tokens", usage.OutputTokens),
	)
	tracing.End(span, nil)

	return Completion{Text: strings.TrimSpace(res.msg.Content), Usage: usage}, nil
}

// ModelName is the model this completer calls.
func (c *Completer) ModelName() string {
	return c.modelName
}

func usageOf(msg *schema.Message) model.Usage {
	var u model.Usage
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		u.InputTokens = msg.ResponseMeta.Usage.PromptTokens
		u.OutputTokens = msg.ResponseMeta.Usage.CompletionTokens
	}
	if n, ok := msg.Extra[ExtraCachedTokens].(int); ok {
		u.CachedInputTokens = n
	}
	return u
}
