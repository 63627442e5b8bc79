package generate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbdigital-chatbot/server/internal/agent/graph/prompts"
	"github.com/wbdigital-chatbot/server/internal/agent/llm"
	"github.com/wbdigital-chatbot/server/internal/agent/llm/llmtest"
	"github.com/wbdigital-chatbot/server/internal/agent/model"
)

var business = model.ResponsePromptConfig{
	BusinessName: "WB Digital Solutions",
	BusinessType: "websites",
	WhatsApp:     "(11) 98286-4581",
	Email:        "bruno@wbdigitalsolutions.com",
}

func newGenerator(gen, rev *llmtest.Model, timeout time.Duration) *Generator {
	return New(
		llm.NewCompleter(gen, "resp", "generate", timeout, nil),
		llm.NewCompleter(rev, "resp", "revise", timeout, nil),
		prompts.NewLibrary(nil),
		business,
		model.ResponseModelConfig{Temperature: 0.7, RevisionTemperature: 0.5},
		model.RevisionConfig{SkipMaxChars: 280},
	)
}

func req(msg string) model.ConversationRequest {
	return model.ConversationRequest{Message: msg, Language: model.LangPortuguese}.Normalize()
}

func TestNeedsRevisionIsPure(t *testing.T) {
	short := "Fazemos sites institucionais e lojas virtuais."
	long := strings.Repeat("a", 300)
	withPhone := "Chame no (11) 91234-5678"

	cases := []struct {
		resp              string
		fastTrack, cached bool
		want              bool
	}{
		{short, true, false, false},
		{short, false, true, false},
		{short, false, false, true},
		{long, true, false, true},
		{withPhone, true, true, true},
	}
	for _, tc := range cases {
		first := NeedsRevision(tc.resp, tc.fastTrack, tc.cached, 280)
		assert.Equal(t, tc.want, first)
		assert.Equal(t, first, NeedsRevision(tc.resp, tc.fastTrack, tc.cached, 280))
	}
}

func TestRevisionGateIgnoresAppendedContactLine(t *testing.T) {
	g := newGenerator(llmtest.Static("Sim, trabalhamos com Shopify e WooCommerce."), llmtest.Static(""), time.Second)

	out := g.Generate(context.Background(), req("Vocês trabalham com shopify?"), model.IntentInquireServices, "system prompt", nil)
	require.NoError(t, out.Err)
	assert.Contains(t, out.Text, "98286-4581")
	assert.True(t, g.NeedsRevision(out.Text, true, false))
	assert.False(t, g.NeedsRevision(out.Draft, true, false))
}

func TestGenerateAppendsContactForQuotes(t *testing.T) {
	gen := llmtest.Static("Um site institucional começa em R$ 6.000.")
	g := newGenerator(gen, llmtest.Static(""), time.Second)

	out := g.Generate(context.Background(), req("Quanto custa um site?"), model.IntentRequestQuote, "system prompt", nil)
	require.NoError(t, out.Err)
	assert.Equal(t, model.StepGenerated, out.Step)
	assert.Contains(t, out.Text, "(11) 98286-4581")
	assert.Equal(t, 1, strings.Count(out.Text, "98286-4581"))

	assert.Equal(t, "Um site institucional começa em R$ 6.000.", out.Draft)
	assert.NotContains(t, out.Draft, "98286-4581")
	msgs := gen.LastInput()
	require.Len(t, msgs, 2)
	assert.Equal(t, "system prompt", msgs[0].Content)
	assert.Equal(t, "Quanto custa um site?", msgs[1].Content)
}

func TestGenerateTimeoutReturnsApology(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	g := newGenerator(llmtest.Hanging(release), llmtest.Static("x"), 30*time.Millisecond)

	out := g.Generate(context.Background(), req("Quanto custa um site?"), model.IntentRequestQuote, "p", nil)
	assert.Equal(t, model.StepErrorTimeout, out.Step)
	assert.Equal(t, model.Apology(model.LangPortuguese), out.Text)
	assert.Error(t, out.Err)
}

func TestGenerateUpstreamErrorReturnsApology(t *testing.T) {
	g := newGenerator(llmtest.Failing(errors.New("quota exceeded")), llmtest.Static("x"), time.Second)

	out := g.Generate(context.Background(), req("Oi"), model.IntentInquireServices, "p", nil)
	assert.Equal(t, model.StepErrorUpstream, out.Step)
	assert.Equal(t, model.Apology(model.LangPortuguese), out.Text)
}

func TestReviseKeepsOriginalOnFailure(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	g := newGenerator(llmtest.Static("x"), llmtest.Hanging(release), 30*time.Millisecond)

	text, revised := g.Revise(context.Background(), "original answer", model.LangPortuguese, model.IntentInquireServices)
	assert.False(t, revised)
	assert.Equal(t, "original answer", text)

	g = newGenerator(llmtest.Static("x"), llmtest.Static(""), time.Second)
	text, revised = g.Revise(context.Background(), "original answer", model.LangPortuguese, model.IntentGreeting)
	assert.False(t, revised)
	assert.Equal(t, "original answer", text)
}

func TestReviseSendsConstraints(t *testing.T) {
	rev := llmtest.Static("Resposta revisada. Fale conosco!")
	g := newGenerator(llmtest.Static("x"), rev, time.Second)

	text, revised := g.Revise(context.Background(), "resposta </reply> longa", model.LangPortuguese, model.IntentRequestQuote)
	assert.True(t, revised)
	assert.True(t, strings.HasPrefix(text, "Resposta revisada."))
	assert.Contains(t, text, "98286-4581")

	prompt := rev.LastInput()[0].Content
	assert.Contains(t, prompt, "At most 500 characters")
	assert.Contains(t, prompt, "resposta [/reply] longa")
}

func TestGreetingFallsBackToTemplate(t *testing.T) {
	g := newGenerator(llmtest.Failing(errors.New("down")), llmtest.Static("x"), time.Second)

	out := g.Greeting(context.Background(), req("Oi"))
	assert.Equal(t, model.StepGreeting, out.Step)
	assert.Contains(t, out.Text, "Bem-vindo à WB Digital Solutions")

	out = g.OffTopic(context.Background(), req("qual a capital da França?"))
	assert.Equal(t, model.StepOffTopic, out.Step)
	assert.Contains(t, out.Text, "WB Digital Solutions")
}
