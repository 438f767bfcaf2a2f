package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"leasemail/internal/sessiontoken"
	"leasemail/internal/util"
	"leasemail/pkg/domain"
	"leasemail/pkg/store"
	"leasemail/services/drafter/internal/app"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Tokens         *sessiontoken.Issuer
	AllowedOrigins []string
}

// Server exposes HTTP endpoints for the drafter service.
type Server struct {
	app    *app.App
	tokens *sessiontoken.Issuer
	router chi.Router
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:    cfg.App,
		tokens: cfg.Tokens,
		router: chi.NewRouter(),
	}
	origins := trimOrigins(cfg.AllowedOrigins)
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", util.RequestIDHeader},
		ExposedHeaders: []string{util.RequestIDHeader},
		MaxAge:         300,
	}))
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("drafter", util.WithSecurityHeaders(s.router)))
}

func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/sessions", s.handleLogin)
	s.router.Group(func(r chi.Router) {
		r.Use(s.withMember)
		r.Delete("/sessions", s.handleLogout)
		r.Get("/contacts/{email}", s.handleContact)
		r.Post("/drafts", s.handleDraft)
		r.Get("/history", s.handleHistory)
		r.Delete("/history", s.handleClearHistory)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type loginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Member    domain.Member `json:"member"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	member, err := s.app.Authenticate(req.Name, req.Phone)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	token, expires, err := s.tokens.Issue(member.Name)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("issue session token failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	util.AnnotateRequest(r.Context(), "member", member.Name)
	util.LoggerFromContext(r.Context()).Info("member login", "member", member.Name)
	writeJSON(w, http.StatusCreated, loginResponse{Token: token, ExpiresAt: expires, Member: member})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := sessiontoken.BearerToken(r)
	if err := s.tokens.Revoke(r.Context(), token); err != nil {
		util.LoggerFromContext(r.Context()).Error("revoke session failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	util.LoggerFromContext(r.Context()).Info("member logout")
	w.WriteHeader(http.StatusNoContent)
}

type memberContextKey struct{}

func (s *Server) withMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := sessiontoken.BearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		name, err := s.tokens.Verify(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		member, err := s.app.Member(name)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		util.AnnotateRequest(r.Context(), "member", member.Name)
		ctx := context.WithValue(r.Context(), memberContextKey{}, member)
		ctx = util.ContextWithLogger(ctx, util.LoggerFromContext(ctx).With("member", member.Name))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func memberFrom(r *http.Request) domain.Member {
	member, _ := r.Context().Value(memberContextKey{}).(domain.Member)
	return member
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	contact, err := s.app.Contact(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

type draftRequest struct {
	ContactEmail string          `json:"contactEmail"`
	Contact      *domain.Contact `json:"contact,omitempty"`
	Prompt       string          `json:"prompt"`
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := app.Request{
		Member:       memberFrom(r),
		ContactEmail: req.ContactEmail,
		Prompt:       req.Prompt,
	}
	if req.Contact != nil {
		in.Contact = *req.Contact
	}
	draft, err := s.app.Generate(r.Context(), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	util.AnnotateRequest(r.Context(), "draft_id", draft.ID, "contact", draft.ContactEmail)
	writeJSON(w, http.StatusOK, draft)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.app.History(r.Context(), memberFrom(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if history == nil {
		history = domain.History{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": history, "count": len(history)})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.app.ClearHistory(r.Context(), memberFrom(r)); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *app.ValidationError
	switch {
	case errors.Is(err, app.ErrAuth):
		writeError(w, http.StatusUnauthorized, "access denied")
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": vErr.Error(), "fields": vErr.Fields})
	case errors.Is(err, app.ErrContactAbsent):
		writeError(w, http.StatusNotFound, "contact not found")
	case errors.Is(err, app.ErrGeneration):
		util.LoggerFromContext(r.Context()).Warn("generation error", "err", err)
		writeError(w, http.StatusBadGateway, "email generation failed, please retry")
	case errors.Is(err, store.ErrStorageCorrupt):
		util.LoggerFromContext(r.Context()).Error("storage corrupt", "err", err)
		writeError(w, http.StatusInternalServerError, "stored data is corrupt")
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func trimOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
