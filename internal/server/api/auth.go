package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shoplist/shoplist-go/internal/identity"
	"github.com/shoplist/shoplist-go/internal/list"
)

// DefaultSessionTTL is used when no TTL is configured.
const DefaultSessionTTL = 24 * time.Hour

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	repo       identity.PartyRepo
	sessions   identity.SessionRepo
	auth       *identity.UserAuth
	sessionTTL time.Duration
}

// NewAuthHandler creates a new authentication handler.
func NewAuthHandler(repo identity.PartyRepo, sessions identity.SessionRepo, auth *identity.UserAuth, sessionTTL time.Duration) *AuthHandler {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &AuthHandler{
		repo:       repo,
		sessions:   sessions,
		auth:       auth,
		sessionTTL: sessionTTL,
	}
}

// userPayload is the user shape returned by auth endpoints.
type userPayload struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func toUserPayload(u *identity.User) userPayload {
	return userPayload{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
}

// authResponse is the response for a successful login or registration.
type authResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expires_at"`
	User      userPayload `json:"user"`
}

// credentialsRequest is the request body for register and login.
type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, ReasonBadRequest, "invalid JSON body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		WriteBadRequest(w, ReasonMissingField, "email and password required")
		return
	}
	if err := list.ValidateEmail(req.Email); err != nil {
		WriteBadRequest(w, ReasonInvalidField, "invalid email address")
		return
	}
	if len(req.Password) < 8 {
		WriteBadRequest(w, ReasonInvalidField, "password must be at least 8 characters")
		return
	}

	ctx := r.Context()

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		WriteInternalError(w, "failed to process password")
		return
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = req.Email
	}

	user := &identity.User{
		ID:           identity.NewUserID(),
		Email:        req.Email,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := h.repo.Create(ctx, user); err != nil {
		if errors.Is(err, identity.ErrUserExists) {
			WriteConflict(w, "an account with this email already exists")
			return
		}
		WriteInternalError(w, "failed to create account")
		return
	}

	h.issueSession(w, r, user, http.StatusCreated)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, ReasonBadRequest, "invalid JSON body")
		return
	}

	if req.Email == "" || req.Password == "" {
		WriteBadRequest(w, ReasonMissingField, "email and password required")
		return
	}

	user, err := h.auth.Authenticate(r.Context(), h.repo, req.Email, req.Password)
	if err != nil {
		WriteUnauthorized(w, ReasonInvalidCredentials, "invalid email or password")
		return
	}

	h.issueSession(w, r, user, http.StatusOK)
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, user *identity.User, status int) {
	session, err := h.sessions.Create(r.Context(), user.ID, h.sessionTTL)
	if err != nil {
		WriteInternalError(w, "failed to create session")
		return
	}

	// Cookie for browser clients; API clients use the bearer token.
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	WriteJSON(w, status, authResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
		User:      toUserPayload(user),
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	if session != nil {
		h.sessions.Delete(r.Context(), session.Token)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		MaxAge:   -1,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		WriteUnauthorized(w, ReasonUnauthenticated, "authentication required")
		return
	}
	WriteJSON(w, http.StatusOK, toUserPayload(user))
}
