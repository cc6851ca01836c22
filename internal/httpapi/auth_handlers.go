package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/zimage/orchestrator/internal/auth"
	"github.com/zimage/orchestrator/internal/models"
	"github.com/zimage/orchestrator/internal/store"
)

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func validEmail(s string) bool {
	_, err := mail.ParseAddress(s)
	return err == nil
}

// Register validates the request, hashes the password, persists the user
// and issues a fresh token pair. See §4.2.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFieldError(w, r, "body", "malformed request body")
		return
	}
	if !validEmail(req.Email) {
		writeFieldError(w, r, "email", "invalid email format")
		return
	}
	if len(req.Password) < 8 || len(req.Password) > 100 {
		writeFieldError(w, r, "password", "password must be 8-100 characters")
		return
	}
	if len(req.Name) < 2 || len(req.Name) > 100 {
		writeFieldError(w, r, "name", "name must be 2-100 characters")
		return
	}

	exists, err := s.Store.EmailExists(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "lookup failed")
		return
	}
	if exists {
		writeFieldError(w, r, "email", "email already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password, s.Auth.BcryptCost)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to hash password")
		return
	}

	now := time.Now()
	u := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         models.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.CreateUser(r.Context(), u); err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to create user")
		return
	}

	pair, err := s.Signer.IssuePair(u.ID, string(u.Role))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to issue tokens")
		return
	}
	writeJSON(w, http.StatusCreated, pair)
}

// Login equalizes timing on a missing account by hashing a dummy password
// before returning 401, so account existence is not observable from latency.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFieldError(w, r, "body", "malformed request body")
		return
	}

	u, err := s.Store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		auth.VerifyAgainstDummy(req.Password)
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "lookup failed")
		return
	}

	if !auth.VerifyPassword(u.PasswordHash, req.Password) {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !u.IsActive {
		writeError(w, r, http.StatusUnauthorized, "account disabled")
		return
	}

	pair, err := s.Signer.IssuePair(u.ID, string(u.Role))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to issue tokens")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFieldError(w, r, "body", "malformed request body")
		return
	}

	claims, err := s.Signer.Verify(req.RefreshToken, auth.KindRefresh)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}

	u, err := s.Store.GetUserByID(r.Context(), claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, http.StatusUnauthorized, "account no longer exists")
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "lookup failed")
		return
	}
	if !u.IsActive {
		writeError(w, r, http.StatusUnauthorized, "account disabled")
		return
	}

	pair, err := s.Signer.IssuePair(u.ID, string(u.Role))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to issue tokens")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Me returns the caller's own profile, resolved from the identity the edge
// router attached to the request.
func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	u, err := s.Store.GetUserByID(r.Context(), UserID(r.Context()))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, u)
}
