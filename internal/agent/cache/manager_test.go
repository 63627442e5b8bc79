package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbdigital-chatbot/server/internal/agent/model"
	"github.com/wbdigital-chatbot/server/internal/agent/repo"
)

type countingStore struct {
	gets, sets int
	err        error
}

func (s *countingStore) Get(context.Context, string) (*model.ChatResponse, bool, error) {
	s.gets++
	return nil, false, s.err
}

func (s *countingStore) Set(context.Context, string, *model.ChatResponse, time.Duration) error {
	s.sets++
	return s.err
}

func defaultPatternCache(t *testing.T) *PatternCache {
	rules, err := LoadPatternRules("")
	require.NoError(t, err)
	return NewPatternCache(rules)
}

func request(msg string) model.ConversationRequest {
	return model.ConversationRequest{Message: msg, Language: model.LangPortuguese, CurrentPage: "/"}.Normalize()
}

func TestKeyIsDeterministic(t *testing.T) {
	a := Key("Quanto custa?", model.LangPortuguese, "/")
	b := Key("Quanto custa?", model.LangPortuguese, "/")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	assert.NotEqual(t, a, Key("Quanto custa?", model.LangEnglish, "/"))
	assert.NotEqual(t, a, Key("Quanto custa?", model.LangPortuguese, "/websites"))
	// the separator keeps field boundaries distinct
	assert.NotEqual(t, Key("ab", "c", "/"), Key("a", "bc", "/"))
}

func TestPatternHitSkipsExactTier(t *testing.T) {
	store := &countingStore{}
	m := NewManager(defaultPatternCache(t), store, time.Hour, time.Second)

	resp, ok := m.Lookup(context.Background(), request("Qual o preço de um e-commerce?"))
	require.True(t, ok)
	assert.Zero(t, store.gets)
	assert.True(t, resp.Cached)
	assert.Equal(t, TypePattern, resp.CacheType)
	assert.Equal(t, model.StepCachedResponse, resp.FinalStep)
	assert.Equal(t, model.IntentRequestQuote, resp.DetectedIntent)
	assert.Contains(t, resp.RawResponse, "Landing Page")
	assert.Equal(t, resp.RawResponse, resp.RevisedResponse)
	assert.NotEmpty(t, resp.ResponseParts)
}

func TestPatternRendersRequestLanguageWithFallback(t *testing.T) {
	pc := defaultPatternCache(t)

	en, ok := pc.Match("how much for a website", model.LangEnglish)
	require.True(t, ok)
	assert.Contains(t, en.Response, "Investment ranges")

	fr, ok := pc.Match("price?", model.Language("fr"))
	require.True(t, ok)
	assert.Contains(t, fr.Response, "Faixas de investimento")
}

func TestDefaultPricingTriggersAvoidCommonWords(t *testing.T) {
	pc := defaultPatternCache(t)
	for _, msg := range []string{
		"Do you build custom integrations?",
		"Our store integrates with Stripe",
		"We sell phone recharge credits",
	} {
		_, ok := pc.Match(msg, model.LangEnglish)
		assert.False(t, ok, msg)
	}

	m, ok := pc.Match("Qual o custo de um app?", model.LangPortuguese)
	require.True(t, ok)
	assert.Equal(t, "pricing", m.Category)
}

func TestPatternOrderFirstCategoryWins(t *testing.T) {
	pc := NewPatternCache([]model.PatternRule{
		{Category: "first", Triggers: []string{"Site"}, Responses: model.Localized{model.LangPortuguese: "one"}},
		{Category: "second", Triggers: []string{"site"}, Responses: model.Localized{model.LangPortuguese: "two"}},
	})
	m, ok := pc.Match("Quero um SITE", model.LangPortuguese)
	require.True(t, ok)
	assert.Equal(t, "first", m.Category)

	_, ok = pc.Match("bom dia", model.LangPortuguese)
	assert.False(t, ok)
}

func TestParsePatternRulesValidates(t *testing.T) {
	_, err := ParsePatternRules([]byte("rules:\n  - category: x\n    triggers: [a]\n    responses: {en: hi}\n"))
	assert.ErrorContains(t, err, "missing pt-BR response")

	_, err = ParsePatternRules([]byte("rules:\n  - category: x\n    intent: nope\n    triggers: [a]\n    responses: {pt-BR: oi}\n"))
	assert.ErrorContains(t, err, "unknown intent")

	rules, err := ParsePatternRules([]byte("rules:\n  - category: x\n    triggers: [a]\n    responses: {pt-BR: oi}\n"))
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestExactTierRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	m := NewManager(NewPatternCache(nil), repo.NewRedisResponseRepository(rdb), time.Hour, time.Second)
	ctx := context.Background()
	req := request("Vocês fazem automação?")

	_, ok := m.Lookup(ctx, req)
	require.False(t, ok)

	m.Store(ctx, req, &model.ChatResponse{
		RawResponse:    "Sim, fazemos.",
		DetectedIntent: model.IntentInquireServices,
		FinalStep:      model.StepGenerated,
		LanguageUsed:   model.LangPortuguese,
		ContextPage:    "/",
	})

	got, ok := m.Lookup(ctx, req)
	require.True(t, ok)
	assert.True(t, got.Cached)
	assert.Equal(t, TypeRedis, got.CacheType)
	assert.Equal(t, "Sim, fazemos.", got.RawResponse)

	mr.FastForward(2 * time.Hour)
	_, ok = m.Lookup(ctx, req)
	assert.False(t, ok)
}

func TestDegradedResponsesAreNotStored(t *testing.T) {
	store := &countingStore{}
	m := NewManager(nil, store, time.Hour, time.Second)

	m.Store(context.Background(), request("x"), &model.ChatResponse{FinalStep: model.StepErrorTimeout})
	assert.Zero(t, store.sets)

	m.Store(context.Background(), request("x"), &model.ChatResponse{FinalStep: model.StepGenerated})
	assert.Equal(t, 1, store.sets)
}

func TestExactTierErrorsAreMisses(t *testing.T) {
	store := &countingStore{err: errors.New("connection refused")}
	m := NewManager(nil, store, time.Hour, time.Second)

	resp, ok := m.Lookup(context.Background(), request("anything"))
	assert.False(t, ok)
	assert.Nil(t, resp)
	assert.Equal(t, 1, store.gets)

	assert.NotPanics(t, func() {
		m.Store(context.Background(), request("anything"), &model.ChatResponse{FinalStep: model.StepGenerated})
	})
}
