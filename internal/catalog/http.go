package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"MiniCatalog/internal/auth"
	"MiniCatalog/pkg/kit"
)

var productValidator = newValidator()

type Server struct {
	Store  Store
	Log    *zap.Logger
	Policy Policy

	// WriteGuard gates create, update and delete when Policy.StrictAuth is
	// set. Without one, those routes reject every request.
	WriteGuard func(http.Handler) http.Handler
}

type deleteResp struct {
	Message string  `json:"message"`
	Product Product `json:"product"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.ready)

	r.Route("/products", func(pr chi.Router) {
		pr.Get("/", s.list)
		pr.Get("/stats", s.stats)
		pr.Get("/{id}", s.get)

		pr.Group(func(wr chi.Router) {
			if s.Policy.StrictAuth {
				wr.Use(s.writeGuard())
			}
			wr.Post("/", s.create)
			wr.Put("/{id}", s.update)
			wr.Delete("/{id}", s.delete)
		})
	})

	return r
}

func (s *Server) writeGuard() func(http.Handler) http.Handler {
	if s.WriteGuard != nil {
		return s.WriteGuard
	}
	rs := s.responder()
	return func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rs.Error(w, r, http.StatusUnauthorized, "authentication unavailable", nil)
		})
	}
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		s.log().Warn("readyz failed", zap.Error(err))
		s.responder().Error(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	page, err := s.Store.List(r.Context(), parseListQuery(r.URL.Query()))
	if err != nil {
		s.writeStoreError(w, r, err, "")
		return
	}
	kit.WriteJSON(w, http.StatusOK, page)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.Store.Stats(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err, "")
		return
	}
	kit.WriteJSON(w, http.StatusOK, st)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err, id)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	p, ok := s.decodePayload(w, r)
	if !ok {
		return
	}

	var err error
	if s.Policy.StrictValidation {
		err = p.validateStrict(productValidator)
	} else {
		err = p.validateLoose()
	}
	if err != nil {
		s.writeStoreError(w, r, err, "")
		return
	}

	created, err := s.Store.Create(r.Context(), p.draft())
	if err != nil {
		s.writeStoreError(w, r, err, "")
		return
	}

	s.log().Info("product created",
		zap.String("id", created.ID),
		zap.String("category", created.Category),
		zap.String("actor", actor(r)),
	)
	kit.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, ok := s.decodePayload(w, r)
	if !ok {
		return
	}
	if s.Policy.StrictValidation {
		if err := p.validateStrict(productValidator); err != nil {
			s.writeStoreError(w, r, err, id)
			return
		}
	}

	updated, err := s.Store.Update(r.Context(), id, func(existing Product) Product {
		return p.merge(existing, s.Policy.MergePolicy)
	})
	if err != nil {
		s.writeStoreError(w, r, err, id)
		return
	}
	s.log().Debug("product updated", zap.String("id", updated.ID), zap.String("actor", actor(r)))
	kit.WriteJSON(w, http.StatusOK, updated)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	removed, err := s.Store.Delete(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err, id)
		return
	}

	s.log().Info("product deleted", zap.String("id", removed.ID), zap.String("actor", actor(r)))
	kit.WriteJSON(w, http.StatusOK, deleteResp{Message: "Product deleted", Product: removed})
}

func (s *Server) decodePayload(w http.ResponseWriter, r *http.Request) (payload, bool) {
	var raw map[string]json.RawMessage
	if err := kit.DecodeJSON(w, r, &raw, false); err != nil {
		s.responder().Error(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return payload{}, false
	}
	if raw == nil {
		s.responder().Error(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": "body must be a json object"})
		return payload{}, false
	}
	return parsePayload(raw), true
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, id string) {
	rs := s.responder()

	var verr *ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		rs.Error(w, r, http.StatusNotFound, "Product not found", map[string]any{"id": id})
	case errors.As(err, &verr):
		var details any
		if len(verr.Fields) > 0 {
			details = map[string]any{"fields": verr.Fields}
		}
		rs.Error(w, r, http.StatusBadRequest, verr.Message, details)
	default:
		s.log().Error("product store failed", zap.Error(err), zap.String("id", id))
		rs.Error(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

// actor is the authenticated user behind a request, or "anonymous" when the
// write guard is off.
func actor(r *http.Request) string {
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		return p.UserID
	}
	return "anonymous"
}

func (s *Server) responder() kit.Responder {
	return kit.NewResponder(s.Policy.ErrorShape)
}

func (s *Server) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
