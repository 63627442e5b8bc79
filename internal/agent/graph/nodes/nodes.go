package nodes

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wbdigital-chatbot/server/internal/agent/classifier"
	"github.com/wbdigital-chatbot/server/internal/agent/generate"
	"github.com/wbdigital-chatbot/server/internal/agent/metrics"
	"github.com/wbdigital-chatbot/server/internal/agent/model"
	"github.com/wbdigital-chatbot/server/internal/agent/notify"
	"github.com/wbdigital-chatbot/server/internal/agent/textutil"
	"github.com/wbdigital-chatbot/server/internal/agent/tracing"
	logx "github.com/wbdigital-chatbot/server/pkg/logger"
)

// Collaborators used by the nodes. Concrete implementations live in their own packages.
type (
	Classifier interface {
		Classify(ctx context.Context, message string, lang model.Language) classifier.Result
	}

	Augmenter interface {
		RetrieveCompanyContext(ctx context.Context, message string) string
		RetrieveUserContext(ctx context.Context, userID string) string
		Compose(ctx context.Context, req model.ConversationRequest, companyContext, userContext string) (string, error)
	}

	Generator interface {
		Generate(ctx context.Context, req model.ConversationRequest, intent model.Intent, prompt string, history []*schema.Message) generate.Output
		Greeting(ctx context.Context, req model.ConversationRequest) generate.Output
		OffTopic(ctx context.Context, req model.ConversationRequest) generate.Output
		NeedsRevision(response string, fastTrack, cached bool) bool
		Revise(ctx context.Context, response string, lang model.Language, intent model.Intent) (string, bool)
	}

	CostGate interface {
		ShouldSkipModel(message string) bool
		EstimateCost(inputTokens, outputTokens int, cacheHit bool) (cost, potentialSavings float64)
	}

	LogDispatcher interface {
		Dispatch(ctx context.Context, state *model.ConversationState) bool
	}
)

type stageFunc func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error)

// stage wraps fn with the trail entry, a span and the stage duration metric.
func stage(name string, fn stageFunc) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.ConversationState) (out *model.ConversationState, err error) {
		start := time.Now()
		ctx, span := tracing.Start(ctx, "stage."+name, attribute.String("stage", name))
		defer func() {
			metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
			tracing.End(span, err)
		}()

		s.Trail = append(s.Trail, name)
		return fn(ctx, s)
	})
}

// NewVisitPreHandler records the node in the run state before it executes.
func NewVisitPreHandler(name string) func(context.Context, *model.ConversationState, *model.RunState) (*model.ConversationState, error) {
	return func(ctx context.Context, in *model.ConversationState, rs *model.RunState) (*model.ConversationState, error) {
		rs.Visited = append(rs.Visited, name)
		return in, nil
	}
}

// recordUsage adds one model call to the run totals.
func recordUsage(ctx context.Context, cost CostGate, u model.Usage) {
	if u.InputTokens == 0 && u.OutputTokens == 0 {
		return
	}
	usd, _ := cost.EstimateCost(u.InputTokens, u.OutputTokens, u.ContextCacheHit())
	err := compose.ProcessState(ctx, func(_ context.Context, rs *model.RunState) error {
		rs.ModelCalls++
		rs.Usage = rs.Usage.Add(u)
		rs.TotalCostUSD += usd
		return nil
	})
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("run state unavailable, usage not recorded")
	}
}

// NewIntentDetectionNode classifies the message. Classification never fails the run.
func NewIntentDetectionNode(c Classifier) *compose.Lambda {
	return stage(NodeIntentDetection, func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		res := c.Classify(ctx, s.Request.Message, s.Request.Language)
		s.Intent = res.Intent
		s.FastTrack = res.FastTrack
		s.DegradedClassification = res.Degraded
		s.ClassificationSource = res.Source
		return s, nil
	})
}

// NewIntentCondition routes on the classified intent. Every intent has exactly one route.
func NewIntentCondition() func(context.Context, *model.ConversationState) (string, error) {
	return func(ctx context.Context, s *model.ConversationState) (string, error) {
		next, err := routeIntent(s.Intent, s.FastTrack)
		if err != nil {
			return "", err
		}
		logx.Ctx(ctx).Debug().
			Str("intent", string(s.Intent)).
			Bool("fast_track", s.FastTrack).
			Str("next", next).
			Msg("routing conversation")
		return next, nil
	}
}

func routeIntent(intent model.Intent, fastTrack bool) (string, error) {
	switch intent {
	case model.IntentGreeting:
		return NodeGreeting, nil
	case model.IntentOffTopic:
		return NodeOffTopic, nil
	case model.IntentChatWithAgent, model.IntentScheduleMeeting:
		return NodeHandoff, nil
	case model.IntentShareContact:
		return NodeShareContact, nil
	case model.IntentInquireServices, model.IntentRequestQuote:
		if fastTrack {
			return NodeResponseGeneration, nil
		}
		return NodeRetrieveCompanyContext, nil
	default:
		return "", fmt.Errorf("no route for intent %q", intent)
	}
}

// NewGreetingNode answers greetings, from a template when the cost gate says so.
func NewGreetingNode(g Generator, cost CostGate, contact model.ContactInfo) *compose.Lambda {
	return stage(NodeGreeting, func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		if cost.ShouldSkipModel(s.Request.Message) {
			s.Response = contact.Greeting(s.Request.Language)
			s.Step = model.StepGreeting
			return s, nil
		}
		out := g.Greeting(ctx, s.Request)
		recordUsage(ctx, cost, out.Usage)
		s.Response, s.Step = out.Text, out.Step
		return s, nil
	})
}

// NewOffTopicNode politely redirects unrelated questions.
func NewOffTopicNode(g Generator, cost CostGate, contact model.ContactInfo) *compose.Lambda {
	return stage(NodeOffTopic, func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		if cost.ShouldSkipModel(s.Request.Message) {
			s.Response = contact.OffTopic(s.Request.Language)
			s.Step = model.StepOffTopic
			return s, nil
		}
		out := g.OffTopic(ctx, s.Request)
		recordUsage(ctx, cost, out.Usage)
		s.Response, s.Step = out.Text, out.Step
		return s, nil
	})
}

// NewHandoffNode points the user at a human without calling the model.
func NewHandoffNode(contact model.ContactInfo) *compose.Lambda {
	return stage(NodeHandoff, func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		logx.Ctx(ctx).Info().Str("intent", string(s.Intent)).Msg("handing conversation off to a human")
		s.Response = contact.Handoff(s.Request.Language)
		s.Step = model.StepHandoff
		return s, nil
	})
}

// NewShareContactNode forwards the shared details to the team and acknowledges them.
// A failed notification is logged; the user still gets the acknowledgement.
func NewShareContactNode(n notify.Notifier, contact model.ContactInfo) *compose.Lambda {
	return stage(NodeShareContact, func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		contacts := textutil.ExtractContacts(s.Request.Message)
		if err := n.Notify(ctx, notify.NewLead(s.RequestID, s.Request, contacts)); err != nil {
			logx.Ctx(ctx).Error().Err(err).Int("contacts", len(contacts)).Msg("lead notification failed")
		}
		s.Response = contact.ContactReceived(s.Request.Language)
		s.Step = model.StepShareContact
		return s, nil
	})
}

func NewRetrieveCompanyContextNode(a Augmenter) *compose.Lambda {
	return stage(NodeRetrieveCompanyContext, func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		s.CompanyContext = a.RetrieveCompanyContext(ctx, s.Request.Message)
		return s, nil
	})
}

func NewRetrieveUserContextNode(a Augmenter) *compose.Lambda {
	return stage(NodeRetrieveUserContext, func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		s.UserContext = a.RetrieveUserContext(ctx, s.Request.UserID)
		return s, nil
	})
}

// NewAugmentQueryNode composes the system prompt from the retrieved context.
// On failure the prompt stays empty and generation composes a context-free one.
func NewAugmentQueryNode(a Augmenter) *compose.Lambda {
	return stage(NodeAugmentQuery, func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		prompt, err := a.Compose(ctx, s.Request, s.CompanyContext, s.UserContext)
		if err != nil {
			logx.Ctx(ctx).Warn().Err(err).Msg("augmented prompt unavailable")
			return s, nil
		}
		s.AugmentedPrompt = prompt
		return s, nil
	})
}

// NewResponseGenerationNode produces the reply. Fast-tracked requests arrive
// without an augmented prompt and get one composed without context.
func NewResponseGenerationNode(g Generator, a Augmenter, cost CostGate) *compose.Lambda {
	return stage(NodeResponseGeneration, func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		prompt := s.AugmentedPrompt
		if prompt == "" {
			var err error
			if prompt, err = a.Compose(ctx, s.Request, "", ""); err != nil {
				logx.Ctx(ctx).Error().Err(err).Msg("response prompt unavailable")
				s.Response = model.Apology(s.Request.Language)
				s.Step = model.StepErrorUpstream
				return s, nil
			}
		}

		out := g.Generate(ctx, s.Request, s.Intent, prompt, nil)
		recordUsage(ctx, cost, out.Usage)
		if out.Err != nil {
			logx.Ctx(ctx).Warn().Err(out.Err).Str("step", string(out.Step)).Msg("generation degraded")
		}
		s.Response, s.Draft, s.Step = out.Text, out.Draft, out.Step
		return s, nil
	})
}

// NewRevisionCondition sends degraded replies straight to logging and applies
// the revision gate to the rest.
func NewRevisionCondition(g Generator) func(context.Context, *model.ConversationState) (string, error) {
	return func(ctx context.Context, s *model.ConversationState) (string, error) {
		if s.Step.Degraded() {
			return NodeLogSaving, nil
		}
		draft := s.Draft
		if draft == "" {
			draft = s.Response
		}
		if g.NeedsRevision(draft, s.FastTrack, s.Cached) {
			return NodeResponseRevision, nil
		}
		logx.Ctx(ctx).Debug().Int("chars", utf8.RuneCountInString(draft)).Msg("revision skipped")
		return NodeLogSaving, nil
	}
}

func NewResponseRevisionNode(g Generator) *compose.Lambda {
	return stage(NodeResponseRevision, func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		text, revised := g.Revise(ctx, s.Response, s.Request.Language, s.Intent)
		if revised {
			s.RevisedResponse = text
			s.Step = model.StepRevised
		}
		return s, nil
	})
}

// NewLogSavingNode hands the finished state to the persister and logs the run summary.
func NewLogSavingNode(d LogDispatcher) *compose.Lambda {
	return stage(NodeLogSaving, func(ctx context.Context, s *model.ConversationState) (*model.ConversationState, error) {
		queued := d.Dispatch(ctx, s)

		var summary model.RunState
		_ = compose.ProcessState(ctx, func(_ context.Context, rs *model.RunState) error {
			summary = *rs
			return nil
		})
		logx.Ctx(ctx).Info().
			Str("intent", string(s.Intent)).
			Str("source", s.ClassificationSource).
			Str("final_step", string(s.Step)).
			Strs("trail", s.Trail).
			Int("model_calls", summary.ModelCalls).
			Int("input_tokens", summary.Usage.InputTokens).
			Int("output_tokens", summary.Usage.OutputTokens).
			Float64("cost_usd", summary.TotalCostUSD).
			Bool("log_queued", queued).
			Msg("conversation finished")
		return s, nil
	})
}
