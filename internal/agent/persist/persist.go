package persist

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/wbdigital-chatbot/server/internal/agent/metrics"
	"github.com/wbdigital-chatbot/server/internal/agent/model"
	logx "github.com/wbdigital-chatbot/server/pkg/logger"
)

// Persister writes conversation logs in the background. Writes are bounded by a
// weighted semaphore; when it is exhausted the record is dropped, so the
// request path never waits on the log store.
type Persister struct {
	store      model.VectorStore
	embedder   model.Embedder
	collection string
	timeout    time.Duration

	sem    *semaphore.Weighted
	max    int64
	closed atomic.Bool
	now    func() time.Time
}

func New(store model.VectorStore, embedder model.Embedder, collection string, cfg model.PersistConfig, timeout time.Duration) *Persister {
	max := cfg.MaxInFlight
	if max <= 0 {
		max = 1
	}
	return &Persister{
		store:      store,
		embedder:   embedder,
		collection: collection,
		timeout:    timeout,
		sem:        semaphore.NewWeighted(max),
		max:        max,
		now:        time.Now,
	}
}

// Dispatch snapshots state and writes it on a detached goroutine. It reports
// whether the write was scheduled.
func (p *Persister) Dispatch(ctx context.Context, state *model.ConversationState) bool {
	if p.closed.Load() || !p.sem.TryAcquire(1) {
		metrics.PersistWrites.WithLabelValues("dropped").Inc()
		logx.Ctx(ctx).Warn().Str("request_id", state.RequestID).Msg("log persistence saturated, dropping record")
		return false
	}

	rec := model.NewLogRecord(uuid.NewString(), state, p.now())
	// the write outlives the request but keeps its logger and trace values
	detached := context.WithoutCancel(ctx)

	metrics.PersistInFlight.Inc()
	go func() {
		defer p.sem.Release(1)
		defer metrics.PersistInFlight.Dec()

		err := p.Persist(detached, rec)
		metrics.PersistWrites.WithLabelValues(metrics.Result(err)).Inc()
		if err != nil {
			logx.Ctx(detached).Error().Err(err).Str("record_id", rec.ID).Msg("failed to persist conversation log")
			return
		}
		logx.Ctx(detached).Debug().Str("record_id", rec.ID).Msg("conversation log persisted")
	}()
	return true
}

// Persist embeds and upserts one record, bounded by the persist timeout.
func (p *Persister) Persist(ctx context.Context, rec model.LogRecord) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	reply := rec.RevisedResponse
	if reply == "" {
		reply = rec.Response
	}
	vec, err := p.embedder.Embed(ctx, rec.Input+"\n"+reply)
	if err != nil {
		return fmt.Errorf("embed log record: %w", err)
	}
	if err := p.store.Upsert(ctx, p.collection, rec.ID, vec, rec.Payload()); err != nil {
		return fmt.Errorf("upsert log record: %w", err)
	}
	return nil
}

// Close waits for in-flight writes. Later dispatches are dropped.
func (p *Persister) Close(ctx context.Context) error {
	p.closed.Store(true)
	if err := p.sem.Acquire(ctx, p.max); err != nil {
		return fmt.Errorf("waiting for log writes: %w", err)
	}
	p.sem.Release(p.max)
	return nil
}
