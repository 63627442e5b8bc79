package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/wbdigital-chatbot/server/internal/agent/metrics"
	"github.com/wbdigital-chatbot/server/internal/agent/model"
	"github.com/wbdigital-chatbot/server/internal/agent/tracing"
	logx "github.com/wbdigital-chatbot/server/pkg/logger"
)

const (
	TypePattern = "pattern_match"
	TypeRedis   = "redis"
)

// ResponseStore is the exact-match tier backend.
type ResponseStore interface {
	Get(ctx context.Context, key string) (*model.ChatResponse, bool, error)
	Set(ctx context.Context, key string, resp *model.ChatResponse, ttl time.Duration) error
}

// Manager answers requests from the pattern tier, then the exact tier.
type Manager struct {
	patterns *PatternCache
	store    ResponseStore
	ttl      time.Duration
	timeout  time.Duration
}

func NewManager(patterns *PatternCache, store ResponseStore, ttl, timeout time.Duration) *Manager {
	if patterns == nil {
		patterns = NewPatternCache(nil)
	}
	return &Manager{patterns: patterns, store: store, ttl: ttl, timeout: timeout}
}

// Key digests the request triple. It is the only input to the exact tier.
func Key(message string, lang model.Language, page string) string {
	h := sha256.New()
	h.Write([]byte(message))
	h.Write([]byte{0x1f})
	h.Write([]byte(lang))
	h.Write([]byte{0x1f})
	h.Write([]byte(page))
	return hex.EncodeToString(h.Sum(nil))
}

// RequestKey is Key over a normalized request.
func RequestKey(req model.ConversationRequest) string {
	return Key(req.Message, req.Language, req.CurrentPage)
}

// Lookup never fails: exact-tier errors are logged and reported as a miss.
func (m *Manager) Lookup(ctx context.Context, req model.ConversationRequest) (*model.ChatResponse, bool) {
	if match, ok := m.patterns.Match(req.Message, req.Language); ok {
		metrics.CacheLookups.WithLabelValues("pattern", "hit").Inc()
		logx.Ctx(ctx).Debug().Str("category", match.Category).Msg("pattern cache hit")
		return patternResponse(req, match), true
	}
	metrics.CacheLookups.WithLabelValues("pattern", "miss").Inc()

	if m.store == nil {
		return nil, false
	}

	ctx, span := tracing.Start(ctx, "cache.lookup")
	tctx, cancel := m.withTimeout(ctx)
	defer cancel()

	resp, ok, err := m.store.Get(tctx, RequestKey(req))
	tracing.End(span, err)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("exact", "error").Inc()
		logx.Ctx(ctx).Warn().Err(err).Msg("exact cache unavailable, continuing without it")
		return nil, false
	case !ok:
		metrics.CacheLookups.WithLabelValues("exact", "miss").Inc()
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues("exact", "hit").Inc()
	resp.Cached = true
	resp.CacheType = TypeRedis
	return resp, true
}

// Store writes resp under the request key. Degraded replies are skipped and
// write failures are only logged.
func (m *Manager) Store(ctx context.Context, req model.ConversationRequest, resp *model.ChatResponse) {
	if m.store == nil || resp == nil || resp.FinalStep.Degraded() {
		return
	}
	tctx, cancel := m.withTimeout(ctx)
	defer cancel()

	stored := *resp
	stored.Cached = false
	stored.CacheType = ""
	if err := m.store.Set(tctx, RequestKey(req), &stored, m.ttl); err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("failed to write exact cache entry")
	}
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

func patternResponse(req model.ConversationRequest, match model.PatternMatch) *model.ChatResponse {
	intent := match.Intent
	if intent == "" {
		intent = model.IntentInquireServices
	}
	greeting := intent == model.IntentGreeting
	return &model.ChatResponse{
		RawResponse:     match.Response,
		RevisedResponse: match.Response,
		ResponseParts:   model.SplitResponse(match.Response, greeting),
		DetectedIntent:  intent,
		FinalStep:       model.StepCachedResponse,
		LanguageUsed:    req.Language,
		ContextPage:     req.CurrentPage,
		IsGreeting:      greeting,
		Cached:          true,
		CacheType:       TypePattern,
	}
}
