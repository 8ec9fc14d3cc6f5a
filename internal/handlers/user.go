package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/recipebox/apiserver/internal/services"
)

// UserHandler provides account and token endpoints.
type UserHandler struct {
	users *services.UserService
	auth  *services.AuthService
}

// NewUserHandler constructs a UserHandler with the provided services.
func NewUserHandler(users *services.UserService, auth *services.AuthService) *UserHandler {
	return &UserHandler{users: users, auth: auth}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, users *services.UserService, auth *services.AuthService) {
	handler := NewUserHandler(users, auth)

	r.Post("/create", handler.Create)
	r.Post("/token", handler.Token)
	r.Route("/me", func(r chi.Router) {
		r.Use(handler.RequireAuth)
		r.Get("/", handler.Me)
		r.Patch("/", handler.UpdateMe)
	})
}

// RequireAuth resolves the bearer token and injects the user into the
// request context; requests without a valid token get a 401.
func (h *UserHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := h.auth.ResolveToken(r.Context(), key)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), contextUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type CreateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type UpdateMeRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

// Create registers a new account.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.users.Create(r.Context(), services.UserInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, err, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Token exchanges credentials for the user's bearer token.
func (h *UserHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	token, err := h.auth.IssueToken(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusBadRequest, "unable to authenticate with provided credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Token: token.Key})
}

// Me returns the authenticated user's profile.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe applies a partial update to the authenticated user's profile.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), user, services.ProfilePatch{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, err, "failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// bearerToken extracts the token from the Authorization header. Both
// the "Bearer" and "Token" schemes are accepted.
func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || (!strings.EqualFold(parts[0], "Bearer") && !strings.EqualFold(parts[0], "Token")) {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
