// Package llmtest provides scripted chat models for tests.
package llmtest

import (
	"context"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Reply builds an assistant message with usage metadata.
func Reply(text string, in, out int) *schema.Message {
	return &schema.Message{
		Role:    schema.Assistant,
		Content: text,
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out},
		},
	}
}

// Model answers every call with Fn and records the inputs.
type Model struct {
	Fn func(ctx context.Context, in []*schema.Message) (*schema.Message, error)

	mu    sync.Mutex
	calls [][]*schema.Message
}

// Static always replies with text.
func Static(text string) *Model {
	return &Model{Fn: func(context.Context, []*schema.Message) (*schema.Message, error) {
		return Reply(text, 10, 5), nil
	}}
}

// Failing always returns err.
func Failing(err error) *Model {
	return &Model{Fn: func(context.Context, []*schema.Message) (*schema.Message, error) {
		return nil, err
	}}
}

// Hanging blocks until release is closed, ignoring cancellation.
func Hanging(release <-chan struct{}) *Model {
	return &Model{Fn: func(context.Context, []*schema.Message) (*schema.Message, error) {
		<-release
		return Reply("too late", 1, 1), nil
	}}
}

func (m *Model) Generate(ctx context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.calls = append(m.calls, in)
	m.mu.Unlock()
	return m.Fn(ctx, in)
}

func (m *Model) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

// Calls returns how many times the model was invoked.
func (m *Model) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastInput returns the messages of the most recent call.
func (m *Model) LastInput() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}
