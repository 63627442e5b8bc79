package cost

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbdigital-chatbot/server/internal/agent/model"
)

func fixedClock(h, m int) func() time.Time {
	return func() time.Time { return time.Date(2025, 6, 2, h, m, 0, 0, time.UTC) }
}

func TestAggressiveCacheOutsideDiscount(t *testing.T) {
	inside := NewOptimizer(model.DefaultDiscountWindow, WithClock(fixedClock(20, 0)))
	assert.True(t, inside.IsDiscountWindow())
	assert.False(t, inside.ShouldUseAggressiveCache())
	assert.False(t, inside.ShouldSkipModel("Oi"))

	outside := NewOptimizer(model.DefaultDiscountWindow, WithClock(fixedClock(10, 0)))
	assert.False(t, outside.IsDiscountWindow())
	assert.True(t, outside.ShouldUseAggressiveCache())
	assert.True(t, outside.ShouldSkipModel("Oi"))
	assert.False(t, outside.ShouldSkipModel("Vocês desenvolvem aplicativos?"))
}

func TestEstimateCost(t *testing.T) {
	outside := NewOptimizer(model.DefaultDiscountWindow, WithClock(fixedClock(10, 0)))
	cost, savings := outside.EstimateCost(1_000_000, 1_000_000, false)
	assert.InDelta(t, 1.37, cost, 1e-9)
	assert.InDelta(t, 1.37-0.685, savings, 1e-9)

	inside := NewOptimizer(model.DefaultDiscountWindow, WithClock(fixedClock(0, 10)))
	cost, savings = inside.EstimateCost(1_000_000, 0, true)
	assert.InDelta(t, 0.035, cost, 1e-9)
	assert.Zero(t, savings)
}

func TestUpdateUsageIsConcurrencySafe(t *testing.T) {
	o := NewOptimizer(model.DefaultDiscountWindow, WithClock(fixedClock(10, 0)))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			o.UpdateUsage(model.Usage{InputTokens: 100, OutputTokens: 10, CachedInputTokens: 20})
		}()
		go func() {
			defer wg.Done()
			o.UpdateUsage(model.Usage{CachedResponse: true})
		}()
	}
	wg.Wait()

	s := o.Snapshot()
	assert.Equal(t, int64(50), s.APICalls)
	assert.Equal(t, int64(50), s.CachedResponses)
	assert.Equal(t, int64(5000), s.InputTokens)
	assert.Equal(t, int64(500), s.OutputTokens)
	assert.Equal(t, int64(50), s.CacheHits)
	assert.Zero(t, s.CacheMisses)
}

func TestReport(t *testing.T) {
	o := NewOptimizer(model.DefaultDiscountWindow,
		WithClock(fixedClock(17, 0)),
		WithLocalTime(time.FixedZone("BRT", -3*60*60)),
	)
	o.UpdateUsage(model.Usage{InputTokens: 1_000_000, OutputTokens: 0})
	o.UpdateUsage(model.Usage{CachedResponse: true})

	r := o.Report()
	assert.Equal(t, int64(1), r.TotalAPICalls)
	assert.Equal(t, int64(1), r.CachedResponses)
	assert.Equal(t, "0.0%", r.CacheHitRate)
	assert.Equal(t, "$0.2700", r.EstimatedCost)
	assert.Equal(t, "$0.2700", r.CacheSavings)
	assert.True(t, r.CurrentDiscount)
	assert.Equal(t, "14:00:00", r.LocalTime)
	assert.Equal(t, "2025-06-02T17:00:00Z", r.TimeNow)
}

func TestNewFromConfig(t *testing.T) {
	o, err := NewFromConfig(model.CostConfig{DiscountStart: "16:30", DiscountEnd: "00:30", LocalTimezone: "Nowhere/Invalid"},
		WithClock(fixedClock(16, 45)))
	require.NoError(t, err)
	assert.True(t, o.IsDiscountWindow())

	_, err = NewFromConfig(model.CostConfig{DiscountStart: "x", DiscountEnd: "00:30"})
	assert.Error(t, err)
}
