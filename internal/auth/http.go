package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"MiniCatalog/pkg/kit"
)

const (
	minPasswordLen  = 8
	maxPasswordLen  = 72 // bcrypt input limit
	defaultTokenTTL = 15 * time.Minute
)

type Server struct {
	Log      *zap.Logger
	Store    UserStore
	JWT      *TokenMaker
	TokenTTL time.Duration
	Resp     kit.Responder

	// Optional per-route middleware, typically rate limiters.
	LoginLimit    func(http.Handler) http.Handler
	RegisterLimit func(http.Handler) http.Handler
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.With(optional(s.RegisterLimit)...).Post("/register", s.handleRegister)
	r.With(optional(s.LoginLimit)...).Post("/login", s.handleLogin)
	r.Get("/whoami", s.handleWhoAmI)

	return r
}

func optional(mw func(http.Handler) http.Handler) []func(http.Handler) http.Handler {
	if mw == nil {
		return nil
	}
	return []func(http.Handler) http.Handler{mw}
}

// SeedAdmin registers the configured administrator. It is a no-op when
// email or password is empty.
func SeedAdmin(ctx context.Context, store UserStore, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	err := store.Create(ctx, email, password, RoleAdmin, newUserID())
	if errors.Is(err, ErrEmailExists) {
		return nil
	}
	return err
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResp struct {
	AccessToken string `json:"access_token"`
}

func (s *Server) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsReq, bool) {
	var req credentialsReq
	if err := kit.DecodeJSON(w, r, &req, true); err != nil {
		s.Resp.Error(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return credentialsReq{}, false
	}

	req.Email = normalizeEmail(req.Email)
	req.Password = normalizePassword(req.Password)

	if req.Email == "" || req.Password == "" {
		s.Resp.Error(w, r, http.StatusBadRequest, "email/password required", nil)
		return credentialsReq{}, false
	}
	return req, true
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}
	if len(req.Password) < minPasswordLen {
		s.Resp.Error(w, r, http.StatusBadRequest, "password too short", map[string]any{"min_len": minPasswordLen})
		return
	}
	if len(req.Password) > maxPasswordLen {
		s.Resp.Error(w, r, http.StatusBadRequest, "password too long", map[string]any{"max_len": maxPasswordLen})
		return
	}

	err := s.Store.Create(r.Context(), req.Email, req.Password, RoleUser, newUserID())
	switch {
	case err == nil:
	case errors.Is(err, ErrEmailExists):
		s.Resp.Error(w, r, http.StatusConflict, err.Error(), nil)
		return
	default:
		s.log().Error("register failed", zap.Error(err))
		s.Resp.Error(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}

	u, err := s.Store.Verify(r.Context(), req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			s.log().Error("verify credentials failed", zap.Error(err))
		}
		s.Resp.Error(w, r, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	tok, err := s.JWT.New(u, ttl)
	if err != nil {
		s.log().Error("token issue", zap.Error(err))
		s.Resp.Error(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, loginResp{AccessToken: tok})
}

func (s *Server) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	raw, ok := kit.BearerToken(r)
	if !ok {
		s.Resp.Error(w, r, http.StatusUnauthorized, "missing token", nil)
		return
	}

	claims, err := s.JWT.Parse(raw)
	if err != nil {
		s.Resp.Error(w, r, http.StatusUnauthorized, "invalid token", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, map[string]any{
		"user_id": claims.UserID,
		"email":   claims.Email,
		"role":    claims.Role,
	})
}

func (s *Server) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func newUserID() string {
	return "u_" + uuid.NewString()
}
