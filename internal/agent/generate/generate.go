package generate

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"

	"github.com/wbdigital-chatbot/server/internal/agent/graph/prompts"
	"github.com/wbdigital-chatbot/server/internal/agent/llm"
	"github.com/wbdigital-chatbot/server/internal/agent/model"
	"github.com/wbdigital-chatbot/server/internal/agent/textutil"
	errx "github.com/wbdigital-chatbot/server/internal/core/error"
	logx "github.com/wbdigital-chatbot/server/pkg/logger"
)

// MaxRevisedChars is the length limit given to the reviser.
const MaxRevisedChars = 500

// Completer is one bounded model call.
type Completer interface {
	Complete(ctx context.Context, msgs []*schema.Message, temperature float32) (llm.Completion, error)
}

// Output is a generated reply and the step that produced it. Draft is the
// model's own text before the contact line is appended.
type Output struct {
	Text  string
	Draft string
	Step  model.Step
	Usage model.Usage
	Err   error
}

// Generator owns the generation and revision calls. Each call has its own timeout
// inside the completer and is never retried.
type Generator struct {
	generator Completer
	reviser   Completer
	prompts   *prompts.Library
	business  model.ResponsePromptConfig

	temperature         float32
	revisionTemperature float32
	skipMaxChars        int
}

func New(
	generator, reviser Completer,
	lib *prompts.Library,
	business model.ResponsePromptConfig,
	resp model.ResponseModelConfig,
	rev model.RevisionConfig,
) *Generator {
	return &Generator{
		generator:           generator,
		reviser:             reviser,
		prompts:             lib,
		business:            business,
		temperature:         resp.Temperature,
		revisionTemperature: resp.RevisionTemperature,
		skipMaxChars:        rev.SkipMaxChars,
	}
}

// Generate answers req with the composed system prompt. On timeout the reply
// is the fixed apology with step error_timeout; other failures use error_upstream.
func (g *Generator) Generate(ctx context.Context, req model.ConversationRequest, intent model.Intent, prompt string, history []*schema.Message) Output {
	msgs := make([]*schema.Message, 0, len(history)+2)
	msgs = append(msgs, schema.SystemMessage(prompt))
	msgs = append(msgs, history...)
	msgs = append(msgs, schema.UserMessage(req.Message))

	out, err := g.generator.Complete(ctx, msgs, g.temperature)
	if err == nil && out.Text == "" {
		err = errx.WrapUpstream(errors.New("empty completion"))
	}
	if err != nil {
		return degraded(req.Language, err)
	}

	text := out.Text
	if intent == model.IntentInquireServices || intent == model.IntentRequestQuote {
		text = g.ensureContact(text, req.Language)
	}
	return Output{Text: text, Draft: out.Text, Step: model.StepGenerated, Usage: out.Usage}
}

// Greeting writes a welcome. Template replies are used when the model fails.
func (g *Generator) Greeting(ctx context.Context, req model.ConversationRequest) Output {
	return g.short(ctx, req, prompts.GenerateGreeting, model.StepGreeting, g.business.Contact().Greeting)
}

// OffTopic writes a polite redirect. Template replies are used when the model fails.
func (g *Generator) OffTopic(ctx context.Context, req model.ConversationRequest) Output {
	return g.short(ctx, req, prompts.GenerateOffTopic, model.StepOffTopic, g.business.Contact().OffTopic)
}

func (g *Generator) short(
	ctx context.Context,
	req model.ConversationRequest,
	promptName string,
	step model.Step,
	fallback func(model.Language) string,
) Output {
	system, err := g.prompts.Render(ctx, promptName, map[string]any{
		"BusinessName": g.business.BusinessName,
		"BusinessType": g.business.BusinessType,
		"LanguageName": req.Language.Name(),
		"Page":         req.CurrentPage,
	})
	if err != nil {
		return Output{Text: fallback(req.Language), Step: step, Err: err}
	}

	out, err := g.generator.Complete(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(req.Message),
	}, g.temperature)
	if err != nil || out.Text == "" {
		logx.Ctx(ctx).Warn().Err(err).Str("step", string(step)).Msg("using templated reply")
		return Output{Text: fallback(req.Language), Step: step, Err: err}
	}
	return Output{Text: out.Text, Step: step, Usage: out.Usage}
}

// NeedsRevision is the revision gate. Revision is skipped only for short replies
// without contact details that came from the fast track or a cache. response
// is the model's draft, so the business contact line never counts.
func NeedsRevision(response string, fastTrack, cached bool, skipMaxChars int) bool {
	short := utf8.RuneCountInString(response) < skipMaxChars
	return !(short && !textutil.HasContact(response) && (fastTrack || cached))
}

// NeedsRevision applies the configured length threshold.
func (g *Generator) NeedsRevision(response string, fastTrack, cached bool) bool {
	return NeedsRevision(response, fastTrack, cached, g.skipMaxChars)
}

// Revise polishes response. Any failure returns the unrevised text with revised=false.
func (g *Generator) Revise(ctx context.Context, response string, lang model.Language, intent model.Intent) (text string, revised bool) {
	contact := g.business.Contact()
	system, err := g.prompts.Render(ctx, prompts.ReviseResponse, map[string]any{
		"BusinessName": g.business.BusinessName,
		"LanguageName": lang.Name(),
		"MaxChars":     MaxRevisedChars,
		"ContactLine":  contact.ContactLine(lang),
		"Response":     textutil.NeutralizeTags(response, "reply"),
	})
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("revision prompt failed, keeping original")
		return response, false
	}

	out, err := g.reviser.Complete(ctx, []*schema.Message{schema.SystemMessage(system)}, g.revisionTemperature)
	if err != nil || out.Text == "" {
		logx.Ctx(ctx).Warn().Err(err).Bool("timeout", errx.IsTimeout(err)).Msg("revision failed, keeping original")
		return response, false
	}

	text = out.Text
	if intent == model.IntentInquireServices || intent == model.IntentRequestQuote {
		text = g.ensureContact(text, lang)
	}
	return text, true
}

// ensureContact appends the single contact line when text has no contact reference.
func (g *Generator) ensureContact(text string, lang model.Language) string {
	if textutil.HasContact(text) || (g.business.WhatsApp != "" && strings.Contains(text, g.business.WhatsApp)) {
		return text
	}
	return strings.TrimRight(text, "\n ") + "\n\n" + g.business.Contact().ContactLine(lang)
}

func degraded(lang model.Language, err error) Output {
	step := model.StepErrorUpstream
	if errx.IsTimeout(err) {
		step = model.StepErrorTimeout
	}
	return Output{Text: model.Apology(lang), Step: step, Err: err}
}
