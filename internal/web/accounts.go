package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/feeduploader/internal/core"
	"github.com/JonMunkholm/feeduploader/internal/logging"
	"github.com/JonMunkholm/feeduploader/internal/web/middleware"
)

// loginRequest is the body of POST /api/users/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse carries the bearer token for later API calls. Token is
// empty when authentication is disabled.
type loginResponse struct {
	Token string    `json:"token,omitempty"`
	User  core.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body core.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidAccount, err), http.StatusBadRequest)
		return
	}

	u, err := s.accounts.Register(r.Context(), body)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]any{
		"message": "Registration successful",
		"user":    u,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, r, core.ErrInvalidCredentials, 0)
		return
	}

	u, err := s.accounts.Authenticate(r.Context(), body.Email, body.Password)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	resp := loginResponse{User: u}
	if sec := s.cfg.Security; sec.RequireAuth {
		resp.Token, err = middleware.IssueToken([]byte(sec.JWTSecret), u.ID, u.Role, sec.TokenTTL)
		if err != nil {
			respondError(w, r, fmt.Errorf("sign token: %w", err), http.StatusInternalServerError)
			return
		}
	}
	logging.WithFields(r.Context(), "user_id", u.ID).Info("user signed in")
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.accounts.Users(r.Context())
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	if users == nil {
		users = []core.User{}
	}
	writeJSON(w, r, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "userID")
	if !ok {
		respondError(w, r, core.ErrUserNotFound, 0)
		return
	}
	u, err := s.accounts.User(r.Context(), id)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "userID")
	if !ok {
		respondError(w, r, core.ErrUserNotFound, 0)
		return
	}
	if err := s.accounts.DeleteUser(r.Context(), id); err != nil {
		respondError(w, r, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListProducts lists the caller's stored products.
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	userID, _ := core.UserIDFromContext(r.Context())
	products, err := s.service.Products(r.Context(), userID)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	if products == nil {
		products = []core.Product{}
	}
	writeJSON(w, r, http.StatusOK, products)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "productID")
	if !ok {
		respondError(w, r, core.ErrProductNotFound, 0)
		return
	}
	userID, _ := core.UserIDFromContext(r.Context())
	p, err := s.service.Product(r.Context(), id, userID)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "productID")
	if !ok {
		respondError(w, r, core.ErrProductNotFound, 0)
		return
	}
	userID, _ := core.UserIDFromContext(r.Context())
	if err := s.service.DeleteProduct(r.Context(), id, userID); err != nil {
		respondError(w, r, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}
