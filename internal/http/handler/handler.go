package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ghbridge/internal/app/middleware"
	"ghbridge/internal/services/relay"
)

// Service is the relay flow as seen by the transport.
type Service interface {
	RequestChallenge(ctx context.Context, requesterID int64) (relay.IssuedChallenge, error)
	Redeem(ctx context.Context, code, state string) (relay.Outcome, error)
	QueryAuthorization(ctx context.Context, requesterID int64) (relay.Authorization, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the relay endpoints.
type Handler struct {
	service Service
	pinger  Pinger
	secret  string
	log     *slog.Logger
}

func New(service Service, pinger Pinger, secret string, log *slog.Logger) *Handler {
	return &Handler{
		service: service,
		pinger:  pinger,
		secret:  secret,
		log:     log,
	}
}

// Register mounts the relay endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.HandleIndex)
	r.Get("/healthz", h.HandleHealth)
	r.Get("/callback", h.HandleCallback)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireServiceSecret(h.secret, h.log))
		r.Post("/create_state", h.HandleCreateState)
		r.Get("/is_authorized", h.HandleIsAuthorized)
	})
}

func (h *Handler) HandleIndex(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "OAuth server running")
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.pinger.Ping(r.Context()); err != nil {
		h.log.ErrorContext(r.Context(), "health check failed",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("error", err.Error()),
		)
		writeText(w, http.StatusServiceUnavailable, "unavailable")
		return
	}
	writeText(w, http.StatusOK, "ok")
}

type createStateRequest struct {
	TelegramID json.RawMessage `json:"telegram_id"`
}

type createStateResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

// HandleCreateState handles POST /create_state.
func (h *Handler) HandleCreateState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: relay.ErrInvalidRequester.Error()})
		return
	}
	requesterID, ok := parseRequesterID(req.TelegramID)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: relay.ErrInvalidRequester.Error()})
		return
	}

	ch, err := h.service.RequestChallenge(ctx, requesterID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, createStateResponse{AuthURL: ch.AuthURL, State: ch.State})
}

// HandleCallback handles the provider redirect GET /callback.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	out, err := h.service.Redeem(ctx, q.Get("code"), q.Get("state"))
	if err != nil {
		if msg, ok := callbackMessage(err); ok {
			writeText(w, http.StatusBadRequest, msg)
			return
		}
		h.log.ErrorContext(ctx, "callback failed",
			slog.String("request_id", middleware.GetRequestID(ctx)),
			slog.Int64("requester_id", out.RequesterID),
			slog.String("error", err.Error()),
		)
		writeText(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	page := deniedPage
	if out.Granted {
		page = grantedPage
	}
	h.writePage(w, r, page, out.Login)
}

type isAuthorizedResponse struct {
	Authorized  bool    `json:"authorized"`
	GitHubLogin *string `json:"github_login"`
}

// HandleIsAuthorized handles GET /is_authorized?telegram_id=.
func (h *Handler) HandleIsAuthorized(w http.ResponseWriter, r *http.Request) {
	requesterID, err := strconv.ParseInt(r.URL.Query().Get("telegram_id"), 10, 64)
	if err != nil || requesterID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: relay.ErrInvalidRequester.Error()})
		return
	}

	auth, err := h.service.QueryAuthorization(r.Context(), requesterID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := isAuthorizedResponse{Authorized: auth.Authorized}
	if auth.Login != "" {
		resp.GitHubLogin = &auth.Login
	}
	writeJSON(w, http.StatusOK, resp)
}

// fail maps service errors of the JSON endpoints to responses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, relay.ErrInvalidRequester) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: relay.ErrInvalidRequester.Error()})
		return
	}
	h.log.ErrorContext(r.Context(), "request failed",
		slog.String("request_id", middleware.GetRequestID(r.Context())),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, page *template.Template, login string) {
	var buf bytes.Buffer
	if err := page.Execute(&buf, login); err != nil {
		h.log.ErrorContext(r.Context(), "failed to render page", slog.String("error", err.Error()))
		writeText(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// callbackMessage returns the plain text answer for flow errors.
func callbackMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, relay.ErrMalformedCallback):
		return "Missing code/state", true
	case errors.Is(err, relay.ErrInvalidState):
		return "Invalid or expired state", true
	case errors.Is(err, relay.ErrTokenExchangeFailed):
		return "Auth failed", true
	case errors.Is(err, relay.ErrIdentityFetchFailed):
		return "User fetch failed", true
	}
	return "", false
}

// parseRequesterID accepts a whole JSON number (42, 42.0, 4.2e1) or a string
// holding an integer.
func parseRequesterID(raw json.RawMessage) (int64, bool) {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return 0, false
		}
		id, err := strconv.ParseInt(strings.TrimSpace(unquoted), 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	}

	var n json.Number
	if err := json.Unmarshal([]byte(s), &n); err != nil || n == "" {
		return 0, false
	}
	if id, err := n.Int64(); err == nil {
		if id <= 0 {
			return 0, false
		}
		return id, true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f <= 0 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
