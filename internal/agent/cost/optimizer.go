package cost

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/wbdigital-chatbot/server/internal/agent/model"
	"github.com/wbdigital-chatbot/server/internal/agent/textutil"
	logx "github.com/wbdigital-chatbot/server/pkg/logger"
)

// simplePatterns mark questions cheap enough to answer from templates
// when the discount window is closed.
var simplePatterns = []string{
	"oi", "olá", "ola", "hello", "hi", "bom dia", "boa tarde", "boa noite",
	"quanto custa", "preço", "valor", "orçamento",
	"serviços", "o que fazem", "como funciona",
	"contato", "telefone", "whatsapp", "email",
	"prazo", "quanto tempo", "demora",
	"localização", "onde fica", "endereço",
}

// Optimizer tracks token usage and decides when to trade quality for cost.
// Counters are process-lifetime and safe for concurrent use.
type Optimizer struct {
	window  model.DiscountWindow
	pricing model.PricingTable
	local   *time.Location
	now     func() time.Time

	inputTokens     atomic.Int64
	outputTokens    atomic.Int64
	cacheHits       atomic.Int64
	cacheMisses     atomic.Int64
	apiCalls        atomic.Int64
	cachedResponses atomic.Int64
}

type Option func(*Optimizer)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Optimizer) { o.now = now }
}

// WithPricing overrides the default tariff.
func WithPricing(p model.PricingTable) Option {
	return func(o *Optimizer) { o.pricing = p }
}

// WithLocalTime sets the zone used for the human-readable report clock.
func WithLocalTime(loc *time.Location) Option {
	return func(o *Optimizer) { o.local = loc }
}

func NewOptimizer(window model.DiscountWindow, opts ...Option) *Optimizer {
	o := &Optimizer{
		window:  window,
		pricing: model.DefaultPricingTable,
		local:   time.UTC,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewFromConfig parses the configured window and zone.
func NewFromConfig(cfg model.CostConfig, opts ...Option) (*Optimizer, error) {
	window, err := model.ParseDiscountWindow(cfg.DiscountStart, cfg.DiscountEnd)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(cfg.LocalTimezone)
	if err != nil {
		logx.Warn().Err(err).Str("timezone", cfg.LocalTimezone).Msg("unknown report timezone, using UTC")
		loc = time.UTC
	}
	return NewOptimizer(window, append([]Option{WithLocalTime(loc)}, opts...)...), nil
}

// IsDiscountWindow reports whether discounted pricing applies right now.
func (o *Optimizer) IsDiscountWindow() bool {
	return o.window.Contains(o.now())
}

// ShouldUseAggressiveCache is true outside the discount window.
func (o *Optimizer) ShouldUseAggressiveCache() bool {
	return !o.IsDiscountWindow()
}

// IsSimpleQuestion reports whether message contains one of the simple-question markers.
func IsSimpleQuestion(message string) bool {
	return textutil.ContainsAny(textutil.Normalize(message), simplePatterns)
}

// ShouldSkipModel combines the time gate with the simple-question check.
func (o *Optimizer) ShouldSkipModel(message string) bool {
	return o.ShouldUseAggressiveCache() && IsSimpleQuestion(message)
}

// EstimateCost prices one call at the current tariff and returns what the
// discount window would have saved.
func (o *Optimizer) EstimateCost(inputTokens, outputTokens int, cacheHit bool) (cost, potentialSavings float64) {
	if o.IsDiscountWindow() {
		return o.pricing.Discount.Cost(inputTokens, outputTokens, cacheHit), 0
	}
	cost = o.pricing.Standard.Cost(inputTokens, outputTokens, cacheHit)
	return cost, cost - o.pricing.Discount.Cost(inputTokens, outputTokens, cacheHit)
}

// UpdateUsage records one model call, or one cached response when u.CachedResponse is set.
func (o *Optimizer) UpdateUsage(u model.Usage) {
	if u.CachedResponse {
		o.cachedResponses.Add(1)
		logx.Debug().Msg("response served from cache, cost $0.00")
		return
	}

	o.inputTokens.Add(int64(u.InputTokens))
	o.outputTokens.Add(int64(u.OutputTokens))
	o.apiCalls.Add(1)
	if u.ContextCacheHit() {
		o.cacheHits.Add(1)
	} else {
		o.cacheMisses.Add(1)
	}

	cost, savings := o.EstimateCost(u.InputTokens, u.OutputTokens, u.ContextCacheHit())
	ev := logx.Debug().
		Int("input_tokens", u.InputTokens).
		Int("output_tokens", u.OutputTokens).
		Int("cached_input_tokens", u.CachedInputTokens).
		Float64("cost_usd", cost).
		Bool("discount_active", o.IsDiscountWindow())
	if savings > 0 {
		ev = ev.Float64("potential_savings_usd", savings)
	}
	ev.Msg("LLM usage")
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	InputTokens     int64
	OutputTokens    int64
	CacheHits       int64
	CacheMisses     int64
	APICalls        int64
	CachedResponses int64
}

func (o *Optimizer) Snapshot() Snapshot {
	return Snapshot{
		InputTokens:     o.inputTokens.Load(),
		OutputTokens:    o.outputTokens.Load(),
		CacheHits:       o.cacheHits.Load(),
		CacheMisses:     o.cacheMisses.Load(),
		APICalls:        o.apiCalls.Load(),
		CachedResponses: o.cachedResponses.Load(),
	}
}

// Report is the usage summary exposed on /usage-report.
type Report struct {
	TotalAPICalls     int64  `json:"total_api_calls"`
	CachedResponses   int64  `json:"cached_responses"`
	CacheHitRate      string `json:"cache_hit_rate"`
	TotalInputTokens  int64  `json:"total_input_tokens"`
	TotalOutputTokens int64  `json:"total_output_tokens"`
	EstimatedCost     string `json:"estimated_cost"`
	CacheSavings      string `json:"cache_savings"`
	CurrentDiscount   bool   `json:"current_discount"`
	TimeNow           string `json:"time_now"`
	LocalTime         string `json:"local_time"`
}

// Report prices accumulated usage at the standard tariff, weighting input by
// the observed context-cache hit rate. Cache savings assume every cached
// response would have cost one average call.
func (o *Optimizer) Report() Report {
	s := o.Snapshot()

	var hitRate float64
	if s.APICalls > 0 {
		hitRate = float64(s.CacheHits) / float64(s.APICalls)
	}

	std := o.pricing.Standard
	inputCost := float64(s.InputTokens) / 1_000_000.0 *
		(hitRate*std.InputCacheHitPerM + (1-hitRate)*std.InputCacheMissPerM)
	outputCost := float64(s.OutputTokens) / 1_000_000.0 * std.OutputPerM
	total := inputCost + outputCost

	calls := s.APICalls
	if calls < 1 {
		calls = 1
	}
	savings := float64(s.CachedResponses) * (total / float64(calls))

	now := o.now()
	return Report{
		TotalAPICalls:     s.APICalls,
		CachedResponses:   s.CachedResponses,
		CacheHitRate:      fmt.Sprintf("%.1f%%", hitRate*100),
		TotalInputTokens:  s.InputTokens,
		TotalOutputTokens: s.OutputTokens,
		EstimatedCost:     fmt.Sprintf("$%.4f", total),
		CacheSavings:      fmt.Sprintf("$%.4f", savings),
		CurrentDiscount:   o.window.Contains(now),
		TimeNow:           now.UTC().Format(time.RFC3339),
		LocalTime:         now.In(o.local).Format("15:04:05"),
	}
}
