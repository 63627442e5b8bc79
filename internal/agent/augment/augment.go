package augment

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wbdigital-chatbot/server/internal/agent/graph/prompts"
	"github.com/wbdigital-chatbot/server/internal/agent/model"
	"github.com/wbdigital-chatbot/server/internal/agent/textutil"
	"github.com/wbdigital-chatbot/server/internal/agent/tracing"
	logx "github.com/wbdigital-chatbot/server/pkg/logger"
)

// promptTags are the section markers of the response prompt.
var promptTags = []string{"company_context", "history", "question"}

// maxContextChars bounds each injected block.
const maxContextChars = 4000

// Augmenter gathers company and user context and composes the generation prompt.
// Retrieval is best-effort: failures yield empty context, never an error.
type Augmenter struct {
	store    model.VectorStore
	embedder model.Embedder
	prompts  *prompts.Library
	cfg      model.AugmentConfig
	business model.ResponsePromptConfig
	timeout  time.Duration
}

func New(
	store model.VectorStore,
	embedder model.Embedder,
	lib *prompts.Library,
	cfg model.AugmentConfig,
	business model.ResponsePromptConfig,
	timeout time.Duration,
) *Augmenter {
	return &Augmenter{
		store:    store,
		embedder: embedder,
		prompts:  lib,
		cfg:      cfg,
		business: business,
		timeout:  timeout,
	}
}

// RetrieveCompanyContext returns the company document nearest to message.
func (a *Augmenter) RetrieveCompanyContext(ctx context.Context, message string) string {
	ctx, span := tracing.Start(ctx, "augment.company_context")
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	vec, err := a.embedder.Embed(ctx, message)
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("company context: embedding failed")
		tracing.End(span, err)
		return ""
	}

	hits, err := a.store.Search(ctx, a.cfg.CompanyCollection, model.SearchQuery{Vector: vec, Limit: 1})
	tracing.End(span, err)
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("company context: search failed")
		return ""
	}
	if len(hits) == 0 {
		return ""
	}
	return hits[0].String("content")
}

// RetrieveUserContext concatenates the most recent replies given to userID.
func (a *Augmenter) RetrieveUserContext(ctx context.Context, userID string) string {
	if userID == "" || userID == model.AnonymousUser {
		return ""
	}

	ctx, span := tracing.Start(ctx, "augment.user_context", attribute.String("user_id", userID))
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	hits, err := a.store.Search(ctx, a.cfg.LogCollection, model.SearchQuery{
		Filter: map[string]string{"user_id": userID},
		SortBy: "timestamp",
		Limit:  a.cfg.UserContextLimit,
	})
	tracing.End(span, err)
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("user context: search failed")
		return ""
	}

	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		text := h.String("revised_response")
		if text == "" {
			text = h.String("response")
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n---\n")
}

// Compose renders the response system prompt with the directive, context,
// history and question slots. Injected text cannot close a section.
func (a *Augmenter) Compose(ctx context.Context, req model.ConversationRequest, companyContext, userContext string) (string, error) {
	contact := a.business.Contact()
	return a.prompts.Render(ctx, prompts.GenerateResponseSystem, map[string]any{
		"BusinessName":   a.business.BusinessName,
		"BusinessType":   a.business.BusinessType,
		"LanguageName":   req.Language.Name(),
		"PageHint":       PageHint(req.CurrentPage),
		"ContactLine":    contact.ContactLine(req.Language),
		"CompanyContext": clean(companyContext),
		"UserContext":    clean(userContext),
		"Question":       clean(req.Message),
	})
}

func clean(s string) string {
	return textutil.NeutralizeTags(textutil.Truncate(strings.TrimSpace(s), maxContextChars), promptTags...)
}

// PageHint maps the current page to one of a fixed set of focus hints.
func PageHint(page string) string {
	p := strings.ToLower(strings.TrimSpace(page))
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	switch {
	case p == "/websites":
		return "The visitor is on the websites page: focus on institutional sites, landing pages and e-commerce."
	case p == "/automation":
		return "The visitor is on the automation page: focus on process automation, chatbots and system integrations."
	case p == "/ai":
		return "The visitor is on the AI page: focus on AI assistants and custom AI solutions."
	case p == "/contact":
		return "The visitor is on the contact page: make it easy to get in touch with the team."
	case strings.HasPrefix(p, "/blog"):
		return "The visitor is reading the blog: answer in an educational tone and suggest related services."
	default:
		return "The visitor is on the home page: give a short overview of the services when useful."
	}
}
