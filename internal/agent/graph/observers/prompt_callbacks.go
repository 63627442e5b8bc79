package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/prompt"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/wbdigital-chatbot/server/pkg/logger"
)

// newPromptHandler logs template rendering. Rendered text is not logged since it
// carries retrieved context and user history.
func newPromptHandler() *callbackHelper.PromptCallbackHandler {
	return &callbackHelper.PromptCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *prompt.CallbackInput) context.Context {
			ev := logx.Ctx(ctx).Debug().Str("component", info.Type).Str("template", info.Name)
			if input != nil {
				ev = ev.Int("variables", len(input.Variables))
			}
			ev.Msg("prompt render started")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			chars := 0
			if output != nil {
				for _, m := range output.Result {
					if m != nil {
						chars += len(m.Content)
					}
				}
			}
			logx.Ctx(ctx).Debug().Str("template", info.Name).Int("chars", chars).Msg("prompt rendered")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Ctx(ctx).Warn().Err(err).Str("template", info.Name).Msg("prompt render failed")
			return ctx
		},
	}
}
