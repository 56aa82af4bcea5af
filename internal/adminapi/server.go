// Package adminapi exposes the access ledger to operators over HTTP: login
// for a bearer token, then status/extension/listing endpoints. It serves the
// same operations as the accessctl CLI.
package adminapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/neuronai/neuronbot/internal/access"
	"github.com/neuronai/neuronbot/internal/common"
	"github.com/neuronai/neuronbot/internal/logging"
)

// AccessService is the ledger surface the API exposes.
type AccessService interface {
	UserInfo(ctx context.Context, externalID int64) (*access.Info, error)
	ResetWindow(ctx context.Context, externalID int64) (bool, error)
	ExtendMany(ctx context.Context, externalIDs []int64) (*access.ExtendResult, error)
	ActiveUsers(ctx context.Context) ([]access.Info, error)
	ExpiredUsers(ctx context.Context) ([]access.Info, error)
}

// Server holds the handler dependencies. Credentials are a single operator
// account: username plus a bcrypt password hash from configuration.
type Server struct {
	access        AccessService
	user          string
	passwordHash  string
	secret        []byte
	tokenValidity time.Duration
	logger        logging.Logger
}

func NewServer(access AccessService, user, passwordHash string, secret []byte, tokenValidity time.Duration, logger logging.Logger) *Server {
	return &Server{
		access:        access,
		user:          user,
		passwordHash:  passwordHash,
		secret:        secret,
		tokenValidity: tokenValidity,
		logger:        logger.With("component", "adminapi"),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/api/v1/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/api/v1/users/active", s.handleActiveUsers)
		r.Get("/api/v1/users/expired", s.handleExpiredUsers)
		r.Post("/api/v1/users/extend", s.handleExtendMany)
		r.Get("/api/v1/users/{id}/access", s.handleUserInfo)
		r.Post("/api/v1/users/{id}/extend", s.handleExtend)
	})

	return r
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			s.writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if _, err := usernameFromToken(token, s.secret); err != nil {
			s.writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	if req.Username != s.user ||
		bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(req.Password)) != nil {
		s.logger.Warn(r.Context(), "failed admin login", "username", req.Username)
		s.writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := generateToken(req.Username, s.secret, s.tokenValidity)
	if err != nil {
		s.logger.Error(r.Context(), "token generation failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := s.userID(w, r)
	if !ok {
		return
	}

	info, err := s.access.UserInfo(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.serviceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleExtend(w http.ResponseWriter, r *http.Request) {
	id, ok := s.userID(w, r)
	if !ok {
		return
	}

	reset, err := s.access.ResetWindow(r.Context(), id)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	if !reset {
		s.writeError(w, http.StatusNotFound, "user not found")
		return
	}

	info, err := s.access.UserInfo(r.Context(), id)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

type extendManyRequest struct {
	IDs []int64 `json:"ids"`
}

func (s *Server) handleExtendMany(w http.ResponseWriter, r *http.Request) {
	var req extendManyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if len(req.IDs) == 0 {
		s.writeError(w, http.StatusBadRequest, "ids must not be empty")
		return
	}

	result, err := s.access.ExtendMany(r.Context(), req.IDs)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleActiveUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.access.ActiveUsers(r.Context())
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleExpiredUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.access.ExpiredUsers(r.Context())
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, users)
}

func (s *Server) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "id must be an integer")
		return 0, false
	}
	return id, true
}

func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error(r.Context(), "admin request failed", "path", r.URL.Path, "error", err)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
