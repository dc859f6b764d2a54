package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/bitebook/internal/domain"
	"github.com/utafrali/bitebook/internal/service"
	"github.com/utafrali/bitebook/pkg/httputil"
	"github.com/utafrali/bitebook/pkg/middleware"
	"github.com/utafrali/bitebook/pkg/pagination"
	"github.com/utafrali/bitebook/pkg/validator"
)

// PostHandler handles HTTP requests for posts, likes, comments and the feed.
type PostHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

// NewPostHandler creates a new post HTTP handler.
func NewPostHandler(posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

// --- Request DTOs ---

// CreatePostRequest is the JSON request body for creating a post.
type CreatePostRequest struct {
	Image        string `json:"image" validate:"required,max=2048"`
	Description  string `json:"description" validate:"max=2000"`
	RestaurantID string `json:"restaurant_id" validate:"required,objectid"`
}

// UpdatePostRequest is the JSON request body for updating a post.
type UpdatePostRequest struct {
	Image        *string `json:"image" validate:"omitempty,min=1,max=2048"`
	Description  *string `json:"description" validate:"omitempty,max=2000"`
	RestaurantID *string `json:"restaurant_id" validate:"omitempty,objectid"`
}

// CommentRequest is the JSON request body for adding a comment.
type CommentRequest struct {
	Text string `json:"text" validate:"required,max=1000"`
}

// LikesResponse carries the like count after a like or unlike.
type LikesResponse struct {
	Likes int `json:"likes"`
}

// --- Handlers ---

// Create handles POST /posts/create
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if err := validator.DecodeAndValidate(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	post, err := h.posts.Create(r.Context(), middleware.UserIDFromContext(r.Context()), service.CreatePostInput{
		Image:        req.Image,
		Description:  req.Description,
		RestaurantID: req.RestaurantID,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, post)
}

// Get handles GET /posts/{id}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, post)
}

// Update handles PUT /posts/update/{id}
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdatePostRequest
	if err := validator.DecodeAndValidate(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	post, err := h.posts.Update(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"), domain.PostUpdate{
		Image:        req.Image,
		Description:  req.Description,
		RestaurantID: req.RestaurantID,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, post)
}

// Delete handles DELETE /posts/delete/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.Delete(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, httputil.Message{Message: "post deleted"})
}

// Like handles PUT /posts/{id}/like
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	count, err := h.posts.Like(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, LikesResponse{Likes: count})
}

// Unlike handles PUT /posts/{id}/unlike
func (h *PostHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	count, err := h.posts.Unlike(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, LikesResponse{Likes: count})
}

// AddComment handles POST /posts/{id}/comment
func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if err := validator.DecodeAndValidate(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	c, err := h.posts.AddComment(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, c)
}

// DeleteComment handles DELETE /posts/{id}/comment/{commentId}
func (h *PostHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	err := h.posts.DeleteComment(r.Context(), middleware.UserIDFromContext(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "commentId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, httputil.Message{Message: "comment deleted"})
}

// Feed handles GET /posts/feed
func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	posts, total, err := h.posts.Feed(r.Context(), middleware.UserIDFromContext(r.Context()), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(posts, total, params))
}
