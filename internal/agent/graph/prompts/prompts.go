package prompts

import (
	"context"
	"embed"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	logx "github.com/wbdigital-chatbot/server/pkg/logger"
)

const (
	DetectIntent           = "detect_intent"
	GenerateGreeting       = "generate_greeting"
	GenerateOffTopic       = "generate_off_topic"
	GenerateResponseSystem = "generate_response_system"
	ReviseResponse         = "revise_response"
)

//go:embed template/*.txt
var templates embed.FS

// Default returns the embedded template for name.
func Default(name string) (string, error) {
	b, err := templates.ReadFile("template/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("unknown prompt %q: %w", name, err)
	}
	return string(b), nil
}

// Library renders named system prompts, preferring the registry copy and
// falling back to the embedded default when it is missing or does not render.
type Library struct {
	registry Registry
}

// NewLibrary accepts a nil registry, in which case only embedded defaults are used.
func NewLibrary(registry Registry) *Library {
	return &Library{registry: registry}
}

// Render formats the template through eino's prompt component so prompt
// callbacks fire, and returns the system prompt text.
func (l *Library) Render(ctx context.Context, name string, vars map[string]any) (string, error) {
	if l.registry != nil {
		if tpl, err := l.registry.GetPrompt(ctx, name); err == nil {
			out, rerr := render(ctx, name, tpl, vars)
			if rerr == nil {
				return out, nil
			}
			logx.Ctx(ctx).Warn().Err(rerr).Str("prompt", name).Msg("registry prompt failed to render, using default")
		} else {
			logx.Ctx(ctx).Debug().Err(err).Str("prompt", name).Msg("registry prompt unavailable, using default")
		}
	}

	tpl, err := Default(name)
	if err != nil {
		return "", err
	}
	return render(ctx, name, tpl, vars)
}

func render(ctx context.Context, name, tpl string, vars map[string]any) (string, error) {
	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{Name: name, Type: "Default", Component: components.ComponentOfPrompt})
	msgs, err := prompt.FromMessages(schema.GoTemplate, schema.SystemMessage(tpl)).Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("prompt render: empty result")
	}
	return msgs[0].Content, nil
}
