package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"

	"github.com/chatguard/chatguard/internal/eventlog"
	"github.com/chatguard/chatguard/internal/sanitize"
	"github.com/chatguard/chatguard/internal/structural"
	"github.com/chatguard/chatguard/internal/threat"
	"github.com/chatguard/chatguard/internal/validator"
)

// Coarse rejection reasons for the wire. Structural violations reuse
// their kind strings; the matched threat category and evidence stay
// server-side because echoing them teaches an attacker which probe
// landed.
const (
	ReasonRateLimited  = "rate_limited"
	ReasonInvalidInput = "invalid_input"
	ReasonProhibited   = "prohibited_content"
)

// ValidateRequest is the wire form of a validation call. Input is
// deliberately untagged: an empty or missing input is a verdict for
// the engine, not a malformed request.
type ValidateRequest struct {
	Input   string         `json:"input"`
	Context RequestContext `json:"context"`
}

// RequestContext carries client metadata alongside the input.
// Timestamp is epoch milliseconds as reported by the client.
type RequestContext struct {
	Identity          string `json:"identity" validate:"max=128"`
	Timestamp         int64  `json:"timestamp" validate:"min=0"`
	ClientFingerprint string `json:"clientFingerprint" validate:"max=256"`
	UserAgent         string `json:"userAgent" validate:"max=512"`
	Origin            string `json:"origin" validate:"max=512"`
}

// ValidateResponse is the wire verdict.
type ValidateResponse struct {
	IsValid        bool   `json:"isValid"`
	SanitizedInput string `json:"sanitizedInput,omitempty"`
	Reason         string `json:"reason,omitempty"`
	ThreatLevel    string `json:"threatLevel,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type eventsResponse struct {
	Events []eventlog.Event `json:"events"`
	Count  int              `json:"count"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.badRequest(w, r, "malformed request body")
		return
	}
	if err := s.fields.Struct(&req); err != nil {
		s.badRequest(w, r, "invalid request fields")
		return
	}

	out, err := s.engine.ValidateRemoteFirst(r.Context(), req.Input, req.Context.Identity)

	resp := ValidateResponse{
		ThreatLevel: string(s.engine.ThreatLevel(req.Context.Identity)),
	}
	if err == nil {
		resp.IsValid = true
		resp.SanitizedInput = out
		render.JSON(w, r, resp)
		return
	}

	resp.Reason = reasonFor(err)

	var rl *validator.RateLimitError
	if errors.As(err, &rl) {
		if retry := time.Until(rl.ResetAt); retry > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
		}
	}

	render.JSON(w, r, resp)
}

// reasonFor maps engine errors onto wire reasons.
func reasonFor(err error) string {
	var (
		rl      *validator.RateLimitError
		viol    *structural.Violation
		content *validator.ContentError
	)
	switch {
	case errors.As(err, &rl):
		return ReasonRateLimited
	case errors.Is(err, structural.ErrInvalidInput):
		return ReasonInvalidInput
	case errors.As(err, &viol):
		return string(viol.Kind)
	case errors.As(err, &content):
		return ReasonProhibited
	default:
		return "validation_failed"
	}
}

type authorPayload struct {
	Name string `json:"name"`
}

func (s *Server) handleSanitizeAuthor(w http.ResponseWriter, r *http.Request) {
	var req authorPayload
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.badRequest(w, r, "malformed request body")
		return
	}
	render.JSON(w, r, authorPayload{Name: sanitize.Author(req.Name)})
}

type filenamePayload struct {
	Filename string `json:"filename"`
}

func (s *Server) handleSanitizeFilename(w http.ResponseWriter, r *http.Request) {
	var req filenamePayload
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.badRequest(w, r, "malformed request body")
		return
	}
	render.JSON(w, r, filenamePayload{Filename: sanitize.Filename(req.Filename)})
}

type urlCheckRequest struct {
	URL string `json:"url"`
}

type urlCheckResponse struct {
	Allowed bool `json:"allowed"`
}

func (s *Server) handleURLCheck(w http.ResponseWriter, r *http.Request) {
	var req urlCheckRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.badRequest(w, r, "malformed request body")
		return
	}
	render.JSON(w, r, urlCheckResponse{Allowed: sanitize.ValidateURL(req.URL)})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var events []eventlog.Event
	switch {
	case r.URL.Query().Get("category") != "":
		events = s.events.ByCategory(threat.Category(r.URL.Query().Get("category")))
	case r.URL.Query().Get("identity") != "":
		events = s.events.ByIdentity(r.URL.Query().Get("identity"))
	default:
		events = s.events.Export()
	}
	if events == nil {
		events = []eventlog.Event{}
	}
	render.JSON(w, r, eventsResponse{Events: events, Count: len(events)})
}

func (s *Server) handleEventsSummary(w http.ResponseWriter, r *http.Request) {
	var window time.Duration
	if raw := r.URL.Query().Get("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			s.badRequest(w, r, "invalid window")
			return
		}
		window = parsed
	}
	render.JSON(w, r, s.events.Summarize(window))
}

func (s *Server) handleEventsClear(w http.ResponseWriter, r *http.Request) {
	s.events.Clear()
	render.NoContent(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errorResponse{Error: msg})
}
