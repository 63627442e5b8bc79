package graph

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wbdigital-chatbot/server/internal/agent/graph/nodes"
	"github.com/wbdigital-chatbot/server/internal/agent/graph/observers"
	"github.com/wbdigital-chatbot/server/internal/agent/metrics"
	"github.com/wbdigital-chatbot/server/internal/agent/model"
	"github.com/wbdigital-chatbot/server/internal/agent/notify"
	"github.com/wbdigital-chatbot/server/internal/agent/tracing"
	errx "github.com/wbdigital-chatbot/server/internal/core/error"
	logx "github.com/wbdigital-chatbot/server/pkg/logger"
)

const maxRunSteps = 20

// Runner answers one chat request end to end.
type Runner interface {
	Invoke(ctx context.Context, req model.ConversationRequest) (*model.ChatResponse, error)
}

// ResponseCache is the tiered cache consulted before and written after a run.
type ResponseCache interface {
	Lookup(ctx context.Context, req model.ConversationRequest) (*model.ChatResponse, bool)
	Store(ctx context.Context, req model.ConversationRequest, resp *model.ChatResponse)
}

// UsageRecorder counts cached responses; model calls are counted by the completers.
type UsageRecorder interface {
	UpdateUsage(u model.Usage)
}

// Config holds the collaborators the graph and runner are built from.
type Config struct {
	Classifier nodes.Classifier
	Augmenter  nodes.Augmenter
	Generator  nodes.Generator
	Cost       nodes.CostGate
	Notifier   notify.Notifier
	Persister  nodes.LogDispatcher
	Contact    model.ContactInfo

	Cache ResponseCache
	Usage UsageRecorder
}

func (c *Config) validate() error {
	switch {
	case c == nil:
		return fmt.Errorf("graph config is nil")
	case c.Classifier == nil:
		return fmt.Errorf("classifier is nil")
	case c.Augmenter == nil:
		return fmt.Errorf("augmenter is nil")
	case c.Generator == nil:
		return fmt.Errorf("generator is nil")
	case c.Cost == nil:
		return fmt.Errorf("cost optimizer is nil")
	case c.Notifier == nil:
		return fmt.Errorf("notifier is nil")
	case c.Persister == nil:
		return fmt.Errorf("persister is nil")
	}
	return nil
}

// GraphBuilder handles the construction of the conversation graph.
type GraphBuilder struct {
	config *Config
	graph  *compose.Graph[*model.ConversationState, *model.ConversationState]
}

type graphRunner struct {
	runnable compose.Runnable[*model.ConversationState, *model.ConversationState]
	cache    ResponseCache
	usage    UsageRecorder
}

// Invoke serves req from the cache when possible, otherwise runs the graph and
// caches the shaped response.
func (r *graphRunner) Invoke(ctx context.Context, req model.ConversationRequest) (resp *model.ChatResponse, err error) {
	start := time.Now()
	req = req.Normalize()
	if req.Message == "" {
		return nil, errx.BadRequest("message is required")
	}

	requestID := uuid.NewString()
	ctx = logx.With(ctx, "request_id", requestID)
	ctx, span := tracing.Start(ctx, "chat.request",
		attribute.String("request_id", requestID),
		attribute.String("language", string(req.Language)),
		attribute.String("page", req.CurrentPage),
	)
	defer func() { tracing.End(span, err) }()

	if r.cache != nil {
		if hit, ok := r.cache.Lookup(ctx, req); ok {
			if r.usage != nil {
				r.usage.UpdateUsage(model.Usage{CachedResponse: true})
			}
			finish(ctx, span, hit, start)
			return hit, nil
		}
	}

	out, err := r.runnable.Invoke(ctx, model.NewConversationState(requestID, req),
		compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		logx.Ctx(ctx).Error().Err(err).Msg("conversation graph failed")
		return nil, fmt.Errorf("run conversation graph: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("run conversation graph: empty state")
	}

	resp = out.ToResponse()
	if r.cache != nil {
		r.cache.Store(ctx, req, resp)
	}
	finish(ctx, span, resp, start)
	return resp, nil
}

func finish(ctx context.Context, span trace.Span, resp *model.ChatResponse, start time.Time) {
	elapsed := time.Since(start)
	metrics.ChatRequests.WithLabelValues(string(resp.FinalStep)).Inc()
	metrics.ChatRequestDuration.WithLabelValues(strconv.FormatBool(resp.Cached)).Observe(elapsed.Seconds())
	span.SetAttributes(
		attribute.String("intent", string(resp.DetectedIntent)),
		attribute.String("final_step", string(resp.FinalStep)),
		attribute.Bool("cached", resp.Cached),
	)
	logx.Ctx(ctx).Debug().
		Str("final_step", string(resp.FinalStep)).
		Bool("cached", resp.Cached).
		Str("cache_type", resp.CacheType).
		Dur("elapsed", elapsed).
		Msg("chat request served")
}

// BuildResponseGraph builds the graph and wraps it with the cache in a Runner.
func BuildResponseGraph(ctx context.Context, cfg Config) (Runner, error) {
	runnable, err := BuildGraph(ctx, &cfg)
	if err != nil {
		return nil, err
	}
	logx.Debug().Msg("Response graph built successfully")
	return &graphRunner{runnable: runnable, cache: cfg.Cache, usage: cfg.Usage}, nil
}

// BuildGraph constructs and returns the compiled conversation graph.
func BuildGraph(ctx context.Context, config *Config) (compose.Runnable[*model.ConversationState, *model.ConversationState], error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[*model.ConversationState, *model.ConversationState](
			compose.WithGenLocalState(func(ctx context.Context) *model.RunState {
				return &model.RunState{}
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}
	return builder.compile(ctx)
}

// addNodes adds every stage of the conversation.
func (b *GraphBuilder) addNodes() error {
	c := b.config
	stages := []struct {
		key    string
		lambda *compose.Lambda
	}{
		{nodes.NodeIntentDetection, nodes.NewIntentDetectionNode(c.Classifier)},
		{nodes.NodeGreeting, nodes.NewGreetingNode(c.Generator, c.Cost, c.Contact)},
		{nodes.NodeOffTopic, nodes.NewOffTopicNode(c.Generator, c.Cost, c.Contact)},
		{nodes.NodeHandoff, nodes.NewHandoffNode(c.Contact)},
		{nodes.NodeShareContact, nodes.NewShareContactNode(c.Notifier, c.Contact)},
		{nodes.NodeRetrieveCompanyContext, nodes.NewRetrieveCompanyContextNode(c.Augmenter)},
		{nodes.NodeRetrieveUserContext, nodes.NewRetrieveUserContextNode(c.Augmenter)},
		{nodes.NodeAugmentQuery, nodes.NewAugmentQueryNode(c.Augmenter)},
		{nodes.NodeResponseGeneration, nodes.NewResponseGenerationNode(c.Generator, c.Augmenter, c.Cost)},
		{nodes.NodeResponseRevision, nodes.NewResponseRevisionNode(c.Generator)},
		{nodes.NodeLogSaving, nodes.NewLogSavingNode(c.Persister)},
	}

	for _, s := range stages {
		if err := b.graph.AddLambdaNode(s.key, s.lambda,
			compose.WithNodeName(s.key),
			compose.WithStatePreHandler(nodes.NewVisitPreHandler(s.key)),
		); err != nil {
			return fmt.Errorf("add node %s: %w", s.key, err)
		}
	}
	return nil
}

// addEdges creates the fixed connections. Every path ends in log_saving.
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeIntentDetection},
		{nodes.NodeGreeting, nodes.NodeLogSaving},
		{nodes.NodeOffTopic, nodes.NodeLogSaving},
		{nodes.NodeHandoff, nodes.NodeLogSaving},
		{nodes.NodeShareContact, nodes.NodeLogSaving},
		{nodes.NodeRetrieveCompanyContext, nodes.NodeRetrieveUserContext},
		{nodes.NodeRetrieveUserContext, nodes.NodeAugmentQuery},
		{nodes.NodeAugmentQuery, nodes.NodeResponseGeneration},
		{nodes.NodeResponseRevision, nodes.NodeLogSaving},
		{nodes.NodeLogSaving, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("add edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates the intent routing and the revision gate.
func (b *GraphBuilder) addBranches() error {
	intentBranch := compose.NewGraphBranch(
		nodes.NewIntentCondition(),
		map[string]bool{
			nodes.NodeGreeting:               true,
			nodes.NodeOffTopic:               true,
			nodes.NodeHandoff:                true,
			nodes.NodeShareContact:           true,
			nodes.NodeRetrieveCompanyContext: true,
			nodes.NodeResponseGeneration:     true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeIntentDetection, intentBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding intent branch")
		return fmt.Errorf("error adding intent branch: %w", err)
	}

	revisionBranch := compose.NewGraphBranch(
		nodes.NewRevisionCondition(b.config.Generator),
		map[string]bool{
			nodes.NodeResponseRevision: true,
			nodes.NodeLogSaving:        true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeResponseGeneration, revisionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding revision branch")
		return fmt.Errorf("error adding revision branch: %w", err)
	}

	return nil
}

// compile finalizes the graph. The step limit only guards against wiring mistakes;
// the longest path visits seven nodes.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[*model.ConversationState, *model.ConversationState], error) {
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("conversation"),
		compose.WithMaxRunSteps(maxRunSteps),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
