package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wbdigital-chatbot/server/internal/agent/cost"
	"github.com/wbdigital-chatbot/server/internal/agent/model"
	errx "github.com/wbdigital-chatbot/server/internal/core/error"
	logx "github.com/wbdigital-chatbot/server/pkg/logger"
)

const maxBodyBytes = 64 << 10

// Runner answers one chat request.
type Runner interface {
	Invoke(ctx context.Context, req model.ConversationRequest) (*model.ChatResponse, error)
}

// UsageReporter exposes accumulated model usage.
type UsageReporter interface {
	Report() cost.Report
}

type Handler struct {
	runner Runner
	usage  UsageReporter
}

func NewHandler(runner Runner, usage UsageReporter) *Handler {
	return &Handler{runner: runner, usage: usage}
}

// UsageResponse wraps the usage report for GET /usage-report.
type UsageResponse struct {
	Status  string      `json:"status"`
	Report  cost.Report `json:"report"`
	Message string      `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Routes registers the chat, usage, health and metrics endpoints.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", h.chat)
	mux.HandleFunc("GET /usage-report", h.usageReport)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.ConversationRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		logx.Ctx(ctx).Debug().Err(err).Msg("rejecting malformed chat request")
		writeError(ctx, w, errx.BadRequest("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(ctx, w, errx.BadRequest("message is required"))
		return
	}

	resp, err := h.runner.Invoke(ctx, req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

func (h *Handler) usageReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, UsageResponse{
		Status:  "success",
		Report:  h.usage.Report(),
		Message: "Usage report generated",
	})
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := errx.Status(err)
	if status >= http.StatusInternalServerError {
		logx.Ctx(ctx).Error().Err(err).Int("status", status).Msg("chat request failed")
	}
	writeJSON(ctx, w, status, errorResponse{Error: errx.SafeMessage(err)})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("failed to write response")
	}
}
