package model

import (
	"context"
	"time"
)

// Payload is the document stored next to a vector.
type Payload map[string]any

// String returns the string value at key, or "".
func (p Payload) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// SearchQuery selects documents by similarity, exact-match filter, or both.
type SearchQuery struct {
	Vector []float32
	Filter map[string]string
	// SortBy orders filter-only queries descending by this field.
	SortBy string
	Limit  int
}

// VectorStore is the persistence collaborator for company context and chat logs.
type VectorStore interface {
	EnsureCollection(ctx context.Context, collection string, dims int) error
	Upsert(ctx context.Context, collection, id string, vector []float32, payload Payload) error
	Search(ctx context.Context, collection string, q SearchQuery) ([]Payload, error)
}

// Embedder turns text into a fixed-size vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// LogRecord is one persisted exchange.
type LogRecord struct {
	ID              string
	RequestID       string
	UserID          string
	Input           string
	Response        string
	RevisedResponse string
	Intent          Intent
	Language        Language
	Page            string
	Step            Step
	Trail           []string
	Timestamp       time.Time
}

// Payload flattens the record for storage.
func (r LogRecord) Payload() Payload {
	return Payload{
		"request_id":       r.RequestID,
		"user_id":          r.UserID,
		"user_input":       r.Input,
		"response":         r.Response,
		"revised_response": r.RevisedResponse,
		"intent":           string(r.Intent),
		"language":         string(r.Language),
		"current_page":     r.Page,
		"step":             string(r.Step),
		"trail":            r.Trail,
		"timestamp":        r.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// NewLogRecord snapshots a finished conversation state.
func NewLogRecord(id string, s *ConversationState, now time.Time) LogRecord {
	return LogRecord{
		ID:              id,
		RequestID:       s.RequestID,
		UserID:          s.Request.UserID,
		Input:           s.Request.Message,
		Response:        s.Response,
		RevisedResponse: s.RevisedResponse,
		Intent:          s.Intent,
		Language:        s.Request.Language,
		Page:            s.Request.CurrentPage,
		Step:            s.Step,
		Trail:           append([]string(nil), s.Trail...),
		Timestamp:       now,
	}
}
