package observers

import (
	"context"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	"github.com/wbdigital-chatbot/server/internal/agent/textutil"
	logx "github.com/wbdigital-chatbot/server/pkg/logger"
)

const previewChars = 160

// newModelHandler logs each model call with the user turn it answers and the tokens it used.
func newModelHandler() *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ev := logx.Ctx(ctx).Debug().Str("component", info.Type).Str("purpose", info.Name)
			if input != nil {
				ev = ev.Int("messages", len(input.Messages))
				if um := lastUserContent(input.Messages); um != "" {
					ev = ev.Str("user", textutil.Truncate(um, previewChars))
				}
				if input.Config != nil {
					ev = ev.Str("model", input.Config.Model)
				}
			}
			ev.Msg("model call started")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			ev := logx.Ctx(ctx).Debug().Str("component", info.Type).Str("purpose", info.Name)
			if output != nil {
				if output.Message != nil {
					ev = ev.Str("assistant", textutil.Truncate(strings.TrimSpace(output.Message.Content), previewChars))
				}
				if u := output.TokenUsage; u != nil {
					ev = ev.Int("prompt_tokens", u.PromptTokens).
						Int("completion_tokens", u.CompletionTokens).
						Int("total_tokens", u.TotalTokens)
				}
			}
			ev.Msg("model call finished")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Ctx(ctx).Warn().Err(err).Str("component", info.Type).Str("purpose", info.Name).Msg("model call failed")
			return ctx
		},
	}
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}
