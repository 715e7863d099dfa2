package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kiwihelp/visa-assistant/internal/core/domain"
	"github.com/kiwihelp/visa-assistant/internal/core/ports"
	"github.com/kiwihelp/visa-assistant/internal/observability/metrics"
)

// apologyAnswer is what users see when a run fails for reasons they cannot
// act on. Internals go to the log, never to the user.
const apologyAnswer = "Sorry, something went wrong while answering your question. Please try again in a moment."

type Router struct {
	answerer ports.QuestionAnswerer
	dialogs  ports.DialogStore
	feedback ports.FeedbackQueue
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger
	opts     RouterOptions
}

type RouterOptions struct {
	ServiceName    string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	InFlightWait   time.Duration
}

func NewRouter(
	answerer ports.QuestionAnswerer,
	dialogs ports.DialogStore,
	feedback ports.FeedbackQueue,
	m *metrics.HTTPServerMetrics,
	logger *slog.Logger,
	opts RouterOptions,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "api"
	}
	if opts.InFlightWait <= 0 {
		opts.InFlightWait = 5 * time.Second
	}
	return &Router{
		answerer: answerer,
		dialogs:  dialogs,
		feedback: feedback,
		metrics:  m,
		logger:   logger,
		opts:     opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/ask", rt.ask)
	mux.HandleFunc("/v1/feedback", rt.submitFeedback)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, rt.opts.InFlightWait)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.opts.ServiceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type askRequest struct {
	Question string `json:"question"`
	UserID   int64  `json:"user_id"`
}

type usagePayload struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	OverheadTokens   int `json:"overhead_tokens"`
}

type askResponse struct {
	DialogID    string       `json:"dialog_id,omitempty"`
	Answer      string       `json:"answer"`
	Language    string       `json:"language,omitempty"`
	OutOfDomain bool         `json:"out_of_domain"`
	Usage       usagePayload `json:"usage"`
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	answer, err := rt.answerer.Ask(r.Context(), req.Question)
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
			return
		}
		// The user gets an apology; the cause stays in the log.
		rt.logger.Error("question run failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		rt.recordRun("error", start)
		writeJSON(w, http.StatusOK, askResponse{Answer: apologyAnswer})
		return
	}

	outcome := "answered"
	if answer.OutOfDomain {
		outcome = "out_of_domain"
	}
	rt.recordRun(outcome, start)
	if rt.metrics != nil {
		rt.metrics.RecordRetrievedChunks(rt.opts.ServiceName, answer.RetrievedCount)
		rt.metrics.RecordTokenUsage(rt.opts.ServiceName,
			answer.Tally.PromptTokens(), answer.Tally.CompletionTokens(), answer.Tally.OverheadTokens())
	}

	dialogID := rt.saveDialog(r, req, answer)

	writeJSON(w, http.StatusOK, askResponse{
		DialogID:    dialogID,
		Answer:      answer.Text,
		Language:    answer.Language,
		OutOfDomain: answer.OutOfDomain,
		Usage: usagePayload{
			PromptTokens:     answer.Tally.PromptTokens(),
			CompletionTokens: answer.Tally.CompletionTokens(),
			OverheadTokens:   answer.Tally.OverheadTokens(),
		},
	})
}

// saveDialog persists the exchange; a storage failure costs the feedback
// reference, not the answer.
func (rt *Router) saveDialog(r *http.Request, req askRequest, answer *domain.Answer) string {
	if rt.dialogs == nil {
		return ""
	}
	dialogID, err := rt.dialogs.SaveDialog(r.Context(), domain.DialogRecord{
		UserID:           req.UserID,
		Query:            req.Question,
		Answer:           answer.Text,
		PromptTokens:     answer.Tally.PromptTokens(),
		CompletionTokens: answer.Tally.CompletionTokens(),
		OverheadTokens:   answer.Tally.OverheadTokens(),
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		rt.logger.Error("dialog persistence failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		return ""
	}
	return dialogID
}

type feedbackRequest struct {
	DialogID   string `json:"dialog_id"`
	IsPositive bool   `json:"is_positive"`
}

func (rt *Router) submitFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.feedback == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "feedback is not configured"})
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.DialogID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "dialog_id is required"})
		return
	}

	fb := domain.Feedback{
		DialogID:   req.DialogID,
		IsPositive: req.IsPositive,
		CreatedAt:  time.Now().UTC(),
	}
	if err := rt.feedback.PublishFeedback(r.Context(), fb); err != nil {
		rt.logger.Error("feedback publish failed",
			"request_id", requestIDFromContext(r.Context()),
			"dialog_id", req.DialogID,
			"error", err,
		)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": "could not accept feedback"})
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordFeedback(rt.opts.ServiceName, req.IsPositive)
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (rt *Router) recordRun(outcome string, start time.Time) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordPipelineRun(rt.opts.ServiceName, outcome, time.Since(start))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
