package model

import (
	"fmt"
	"strings"
)

// Intent is the closed set of labels a message can be classified into.
type Intent string

const (
	IntentGreeting        Intent = "greeting"
	IntentOffTopic        Intent = "off_topic"
	IntentInquireServices Intent = "inquire_services"
	IntentRequestQuote    Intent = "request_quote"
	IntentChatWithAgent   Intent = "chat_with_agent"
	IntentScheduleMeeting Intent = "schedule_meeting"
	IntentShareContact    Intent = "share_contact"
)

// Intents lists every valid label in prompt order.
var Intents = []Intent{
	IntentGreeting,
	IntentRequestQuote,
	IntentInquireServices,
	IntentShareContact,
	IntentChatWithAgent,
	IntentScheduleMeeting,
	IntentOffTopic,
}

func (i Intent) String() string {
	return string(i)
}

// Valid reports whether i is one of the known labels.
func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

// ParseIntent extracts a label from free model output such as `"request_quote".`
func ParseIntent(raw string) (Intent, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, "\"'`.*: \n\t")
	if i := Intent(s); i.Valid() {
		return i, nil
	}
	// models sometimes wrap the label in a sentence
	for _, field := range strings.FieldsFunc(s, func(r rune) bool {
		return !(r == '_' || (r >= 'a' && r <= 'z'))
	}) {
		if i := Intent(field); i.Valid() {
			return i, nil
		}
	}
	return "", fmt.Errorf("unknown intent %q", raw)
}

// Step names the last stage that produced the current reply.
type Step string

const (
	StepCachedResponse Step = "cached_response"
	StepGreeting       Step = "greeting_response"
	StepOffTopic       Step = "off_topic_response"
	StepHandoff        Step = "handoff"
	StepShareContact   Step = "share_contact"
	StepGenerated      Step = "generate_response"
	StepRevised        Step = "revise_response"
	StepErrorTimeout   Step = "error_timeout"
	StepErrorUpstream  Step = "error_upstream"
)

// Degraded reports whether the reply is a fixed fallback rather than a real answer.
func (s Step) Degraded() bool {
	return s == StepErrorTimeout || s == StepErrorUpstream
}
