package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/bitebook/internal/domain"
	"github.com/utafrali/bitebook/internal/service"
	"github.com/utafrali/bitebook/pkg/httputil"
	"github.com/utafrali/bitebook/pkg/middleware"
	"github.com/utafrali/bitebook/pkg/pagination"
	"github.com/utafrali/bitebook/pkg/validator"
)

const maxBodyBytes = 1 << 20

// UserHandler handles account, social graph and profile-post endpoints.
type UserHandler struct {
	accounts *service.AccountService
	social   *service.SocialService
	posts    *service.PostService
	logger   *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(accounts *service.AccountService, social *service.SocialService, posts *service.PostService, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, social: social, posts: posts, logger: logger}
}

// --- Request DTOs ---

// SignUpRequest is the JSON request body for creating an account.
type SignUpRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=30,handle"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	IsPrivate bool   `json:"is_private"`
}

// LoginRequest is the JSON request body for a login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateUserRequest is the JSON request body for updating an account.
type UpdateUserRequest struct {
	Username  *string `json:"username" validate:"omitempty,min=3,max=30,handle"`
	Email     *string `json:"email" validate:"omitempty,email,max=255"`
	Password  *string `json:"password" validate:"omitempty,min=8,max=72"`
	IsPrivate *bool   `json:"is_private"`
}

// --- Response DTOs ---

// AuthResponse is returned by sign-up and login.
type AuthResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
}

// FollowResponse reports whether a follow took effect or is pending.
type FollowResponse struct {
	Status domain.FollowOutcome `json:"status"`
}

func (h *UserHandler) authResponse(user *domain.User, token string, expiry time.Duration) AuthResponse {
	return AuthResponse{
		User:        user,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(expiry.Seconds()),
	}
}

// --- Account ---

// SignUp handles POST /users/signUp
func (h *UserHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := validator.DecodeAndValidate(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, token, err := h.accounts.SignUp(r.Context(), service.SignUpInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		IsPrivate: req.IsPrivate,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, h.authResponse(user, token, h.accounts.TokenExpiry()))
}

// Login handles POST /users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, token, err := h.accounts.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, h.authResponse(user, token, h.accounts.TokenExpiry()))
}

// GetUser handles GET /users/user/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, "user", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	profile, err := h.accounts.GetUser(r.Context(), middleware.UserIDFromContext(r.Context()), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, profile)
}

// UpdateUser handles PUT /users/update/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, "user", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := validator.DecodeAndValidate(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, err := h.accounts.UpdateUser(r.Context(), middleware.UserIDFromContext(r.Context()), id.String(), service.UpdateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		IsPrivate: req.IsPrivate,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /users/delete/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, "user", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.accounts.DeleteUser(r.Context(), middleware.UserIDFromContext(r.Context()), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, httputil.Message{Message: "user deleted"})
}

// --- Social graph ---

// Follow handles PUT /users/follow/{id}
func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, "user", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	outcome, err := h.social.Follow(r.Context(), middleware.UserIDFromContext(r.Context()), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, FollowResponse{Status: outcome})
}

// Unfollow handles PUT /users/unfollow/{id}
func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.graphAction(w, r, h.social.Unfollow, "unfollowed")
}

// AcceptFollow handles PUT /users/acceptFollow/{id}
func (h *UserHandler) AcceptFollow(w http.ResponseWriter, r *http.Request) {
	h.graphAction(w, r, h.social.AcceptFollow, "follow request accepted")
}

// RejectFollow handles PUT /users/rejectFollow/{id}
func (h *UserHandler) RejectFollow(w http.ResponseWriter, r *http.Request) {
	h.graphAction(w, r, h.social.RejectFollow, "follow request rejected")
}

func (h *UserHandler) graphAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, actorID, otherID string) error, done string) {
	id, ok := httputil.ParseUUID(w, "user", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := action(r.Context(), middleware.UserIDFromContext(r.Context()), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, httputil.Message{Message: done})
}

// Search handles GET /users/search?username=
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	users, total, err := h.social.Search(r.Context(), r.URL.Query().Get("username"), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(users, total, params))
}

// Followers handles GET /users/{id}/followers
func (h *UserHandler) Followers(w http.ResponseWriter, r *http.Request) {
	h.idList(w, r, h.social.ListFollowers)
}

// Following handles GET /users/{id}/following
func (h *UserHandler) Following(w http.ResponseWriter, r *http.Request) {
	h.idList(w, r, h.social.ListFollowing)
}

func (h *UserHandler) idList(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, userID string) ([]string, error)) {
	id, ok := httputil.ParseUUID(w, "user", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	ids, err := list(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	params := pagination.FromRequest(r)
	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(pagination.Window(ids, params), len(ids), params))
}

// PendingRequests handles GET /users/requests
func (h *UserHandler) PendingRequests(w http.ResponseWriter, r *http.Request) {
	ids, err := h.social.ListPendingRequests(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, ids)
}

// UserPosts handles GET /users/{id}/posts
func (h *UserHandler) UserPosts(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, "user", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	params := pagination.FromRequest(r)
	posts, total, err := h.posts.UserPosts(r.Context(), middleware.UserIDFromContext(r.Context()), id.String(), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(posts, total, params))
}
