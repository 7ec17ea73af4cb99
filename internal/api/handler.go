package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/eugenenazirov/greypolicy/internal/address"
	"github.com/eugenenazirov/greypolicy/internal/policy"
	"github.com/eugenenazirov/greypolicy/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Resolver computes the effective policy of one message.
type Resolver interface {
	Resolve(attrs policy.Attributes) (policy.Settings, error)
}

// Handler wires the policy resolver into HTTP handlers.
type Handler struct {
	resolver Resolver

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(resolver Resolver, opts ...HandlerOption) *Handler {
	h := &Handler{
		resolver: resolver,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	start := time.Now()
	settings, err := h.resolver.Resolve(policy.Attributes(req))
	elapsed := time.Since(start)

	resp := resolveResponse{ResolutionTimeMs: elapsed.Milliseconds()}
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedScheme):
			resp.Fallback = true
			resp.Message = err.Error()
		case errors.Is(err, policy.ErrCoercion):
			writeError(w, http.StatusUnprocessableEntity, "Invalid policy file", err.Error(),
				"Fix the value type in the reported policy file")
			return
		default:
			writeInternalError(w, err)
			return
		}
	}

	resp.Settings = settings
	resp.CheckGreylist = settings.CheckGreylist()
	resp.CheckSPF = settings.CheckSPF()
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("value")
	writeJSON(w, http.StatusOK, addressResponse{Value: value, Result: address.Quote(value)})
}

func (h *Handler) handleUnquote(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("value")
	writeJSON(w, http.StatusOK, addressResponse{Value: value, Result: address.Unquote(value)})
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type resolveRequest struct {
	Sender        string `json:"sender"`
	Recipient     string `json:"recipient"`
	ClientAddress string `json:"clientAddress"`
}

type resolveResponse struct {
	Settings         policy.Settings `json:"settings"`
	CheckGreylist    bool            `json:"checkGreylist"`
	CheckSPF         bool            `json:"checkSpf"`
	Fallback         bool            `json:"fallback"`
	Message          string          `json:"message,omitempty"`
	ResolutionTimeMs int64           `json:"resolutionTimeMs"`
}

type addressResponse struct {
	Value  string `json:"value"`
	Result string `json:"result"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// writeJSON encodes payload before sending the status line, so an encoding
// failure becomes a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(errorResponse{
			Error:   "Internal error",
			Details: "cannot encode response: " + err.Error(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
