package model

import (
	"fmt"
	"time"
)

// Pricing defines USD cost per 1M tokens.
type Pricing struct {
	InputCacheHitPerM  float64
	InputCacheMissPerM float64
	OutputPerM         float64
}

// PricingTable holds the regular tariff and the discounted one applied inside the window.
type PricingTable struct {
	Standard Pricing
	Discount Pricing
}

// DefaultPricingTable is the DeepSeek chat tariff.
var DefaultPricingTable = PricingTable{
	Standard: Pricing{InputCacheHitPerM: 0.07, InputCacheMissPerM: 0.27, OutputPerM: 1.10},
	Discount: Pricing{InputCacheHitPerM: 0.035, InputCacheMissPerM: 0.135, OutputPerM: 0.55},
}

// Cost converts a token count into USD. cacheHit prices all input at the hit rate.
func (p Pricing) Cost(inputTokens, outputTokens int, cacheHit bool) float64 {
	inRate := p.InputCacheMissPerM
	if cacheHit {
		inRate = p.InputCacheHitPerM
	}
	return inRate*float64(inputTokens)/1_000_000.0 + p.OutputPerM*float64(outputTokens)/1_000_000.0
}

// Usage is the token accounting reported after each model call or cache hit.
type Usage struct {
	InputTokens       int
	OutputTokens      int
	CachedInputTokens int
	// CachedResponse marks a reply served from the pattern or exact cache (no model call).
	CachedResponse bool
}

// ContextCacheHit reports whether the provider served part of the prompt from its cache.
func (u Usage) ContextCacheHit() bool {
	return u.CachedInputTokens > 0
}

// Add merges another call's usage into u.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:       u.InputTokens + o.InputTokens,
		OutputTokens:      u.OutputTokens + o.OutputTokens,
		CachedInputTokens: u.CachedInputTokens + o.CachedInputTokens,
	}
}

// DiscountWindow is a daily UTC interval [Start, End) that may wrap midnight.
type DiscountWindow struct {
	Start time.Duration
	End   time.Duration
}

// DefaultDiscountWindow is 16:30 to 00:30 UTC.
var DefaultDiscountWindow = DiscountWindow{
	Start: 16*time.Hour + 30*time.Minute,
	End:   30 * time.Minute,
}

// ParseDiscountWindow reads "HH:MM" bounds.
func ParseDiscountWindow(start, end string) (DiscountWindow, error) {
	s, err := parseClock(start)
	if err != nil {
		return DiscountWindow{}, fmt.Errorf("discount window start: %w", err)
	}
	e, err := parseClock(end)
	if err != nil {
		return DiscountWindow{}, fmt.Errorf("discount window end: %w", err)
	}
	return DiscountWindow{Start: s, End: e}, nil
}

func parseClock(v string) (time.Duration, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Contains reports whether t falls inside the window. Equal bounds mean an empty window.
func (w DiscountWindow) Contains(t time.Time) bool {
	u := t.UTC()
	m := time.Duration(u.Hour())*time.Hour + time.Duration(u.Minute())*time.Minute + time.Duration(u.Second())*time.Second
	switch {
	case w.Start == w.End:
		return false
	case w.Start < w.End:
		return m >= w.Start && m < w.End
	default:
		return m >= w.Start || m < w.End
	}
}
