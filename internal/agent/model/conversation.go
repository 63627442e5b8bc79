package model

import "strings"

const (
	AnonymousUser = "anon"
	DefaultPage   = "/"
)

// ConversationRequest is one inbound chat message. It is never mutated after Normalize.
type ConversationRequest struct {
	Message     string   `json:"message"`
	UserID      string   `json:"user_id"`
	Language    Language `json:"language"`
	CurrentPage string   `json:"current_page"`
}

// Normalize trims the message and fills defaults for optional fields.
func (r ConversationRequest) Normalize() ConversationRequest {
	r.Message = strings.TrimSpace(r.Message)
	r.UserID = strings.TrimSpace(r.UserID)
	if r.UserID == "" {
		r.UserID = AnonymousUser
	}
	r.Language = ParseLanguage(string(r.Language))
	r.CurrentPage = strings.TrimSpace(r.CurrentPage)
	if r.CurrentPage == "" {
		r.CurrentPage = DefaultPage
	}
	return r
}

// IsAnonymous reports whether the request carries no usable user identity.
func (r ConversationRequest) IsAnonymous() bool {
	return r.UserID == "" || r.UserID == AnonymousUser
}

// ChatResponse is the payload returned to the client and stored in the exact cache.
type ChatResponse struct {
	RawResponse     string   `json:"raw_response"`
	RevisedResponse string   `json:"revised_response"`
	ResponseParts   []string `json:"response_parts"`
	DetectedIntent  Intent   `json:"detected_intent"`
	FinalStep       Step     `json:"final_step"`
	LanguageUsed    Language `json:"language_used"`
	ContextPage     string   `json:"context_page"`
	IsGreeting      bool     `json:"is_greeting"`
	Cached          bool     `json:"cached"`
	CacheType       string   `json:"cache_type,omitempty"`
}

// Text is the reply shown to the user: the revision when present.
func (r *ChatResponse) Text() string {
	if r.RevisedResponse != "" {
		return r.RevisedResponse
	}
	return r.RawResponse
}

// ConversationState is the record threaded through every graph node.
// Request fields are set at construction; the rest are filled in stage order.
type ConversationState struct {
	RequestID string
	Request   ConversationRequest

	Intent                 Intent
	FastTrack              bool
	DegradedClassification bool
	ClassificationSource   string

	CompanyContext  string
	UserContext     string
	AugmentedPrompt string

	Draft           string
	Response        string
	RevisedResponse string
	Step            Step
	Cached          bool

	Trail []string
}

func NewConversationState(requestID string, req ConversationRequest) *ConversationState {
	return &ConversationState{
		RequestID: requestID,
		Request:   req.Normalize(),
	}
}

// FinalText returns the revised reply when revision ran, else the raw reply.
func (s *ConversationState) FinalText() string {
	if s.RevisedResponse != "" {
		return s.RevisedResponse
	}
	return s.Response
}

// ToResponse shapes the state into the client payload. revised_response
// always carries the displayed text.
func (s *ConversationState) ToResponse() *ChatResponse {
	isGreeting := s.Intent == IntentGreeting
	return &ChatResponse{
		RawResponse:     s.Response,
		RevisedResponse: s.FinalText(),
		ResponseParts:   SplitResponse(s.FinalText(), isGreeting),
		DetectedIntent:  s.Intent,
		FinalStep:       s.Step,
		LanguageUsed:    s.Request.Language,
		ContextPage:     s.Request.CurrentPage,
		IsGreeting:      isGreeting,
		Cached:          s.Cached,
	}
}

// SplitResponse breaks a reply into display bubbles: sentences for greetings,
// blank-line separated paragraphs otherwise.
func SplitResponse(text string, greeting bool) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}
	}

	var raw []string
	if greeting {
		raw = strings.SplitAfter(text, ".")
	} else {
		raw = strings.Split(text, "\n\n")
	}

	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
