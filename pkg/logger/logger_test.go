package logx

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wbdigital-chatbot/server/internal/core"
)

func TestInitProductionWritesJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(LoggerOpts{Environment: core.Production, Writer: &buf})
	t.Cleanup(func() { Init() })

	Debug().Msg("hidden")
	Info().Str("intent", "greeting").Msg("classified")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"intent":"greeting"`)
	assert.Contains(t, out, `"message":"classified"`)
}

func TestWithBindsFieldToContextLogger(t *testing.T) {
	var buf bytes.Buffer
	Init(LoggerOpts{Environment: core.Production, Level: "debug", Writer: &buf})
	t.Cleanup(func() { Init() })

	ctx := With(context.Background(), "request_id", "req-1")
	Ctx(ctx).Debug().Msg("stage")

	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
}
