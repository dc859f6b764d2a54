package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/bitebook/internal/domain"
	"github.com/utafrali/bitebook/internal/service"
	"github.com/utafrali/bitebook/pkg/httputil"
	"github.com/utafrali/bitebook/pkg/middleware"
	"github.com/utafrali/bitebook/pkg/validator"
)

// RestaurantHandler handles restaurants, reviews and favorites.
type RestaurantHandler struct {
	restaurants *service.RestaurantService
	favorites   *service.FavoriteService
	logger      *slog.Logger
}

// NewRestaurantHandler creates a new restaurant HTTP handler.
func NewRestaurantHandler(restaurants *service.RestaurantService, favorites *service.FavoriteService, logger *slog.Logger) *RestaurantHandler {
	return &RestaurantHandler{restaurants: restaurants, favorites: favorites, logger: logger}
}

// --- Request DTOs ---

// DayHoursRequest is an opening window for one weekday.
type DayHoursRequest struct {
	Open  string `json:"open" validate:"required,clock"`
	Close string `json:"close" validate:"required,clock"`
}

// HoursRequest holds per-weekday opening hours. Omitted days are closed.
type HoursRequest struct {
	Monday    *DayHoursRequest `json:"monday" validate:"omitempty"`
	Tuesday   *DayHoursRequest `json:"tuesday" validate:"omitempty"`
	Wednesday *DayHoursRequest `json:"wednesday" validate:"omitempty"`
	Thursday  *DayHoursRequest `json:"thursday" validate:"omitempty"`
	Friday    *DayHoursRequest `json:"friday" validate:"omitempty"`
	Saturday  *DayHoursRequest `json:"saturday" validate:"omitempty"`
	Sunday    *DayHoursRequest `json:"sunday" validate:"omitempty"`
}

// CreateRestaurantRequest is the JSON request body for creating a restaurant.
type CreateRestaurantRequest struct {
	Name        string        `json:"name" validate:"required,max=200"`
	Location    string        `json:"location" validate:"required,max=500"`
	PhoneNumber string        `json:"phone_number" validate:"omitempty,max=30"`
	Email       string        `json:"email" validate:"omitempty,email"`
	Website     string        `json:"website" validate:"omitempty,url"`
	Hours       *HoursRequest `json:"hours" validate:"omitempty"`
	Type        string        `json:"type" validate:"omitempty,max=100"`
}

// ReviewRequest is the JSON request body for a review. Rating is a pointer
// so that a missing rating is told apart from 0.
type ReviewRequest struct {
	Rating  *float64 `json:"rating" validate:"required,gte=0,lte=5"`
	Comment string   `json:"comment" validate:"max=2000"`
}

func (d *DayHoursRequest) toDomain() *domain.DayHours {
	if d == nil {
		return nil
	}
	return &domain.DayHours{Open: d.Open, Close: d.Close}
}

func (h *HoursRequest) toDomain() *domain.WeeklyHours {
	if h == nil {
		return nil
	}
	return &domain.WeeklyHours{
		Monday:    h.Monday.toDomain(),
		Tuesday:   h.Tuesday.toDomain(),
		Wednesday: h.Wednesday.toDomain(),
		Thursday:  h.Thursday.toDomain(),
		Friday:    h.Friday.toDomain(),
		Saturday:  h.Saturday.toDomain(),
		Sunday:    h.Sunday.toDomain(),
	}
}

// --- Restaurants ---

// Create handles POST /restaurants/create
func (h *RestaurantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRestaurantRequest
	if err := validator.DecodeAndValidate(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	rest, err := h.restaurants.Create(r.Context(), middleware.UserIDFromContext(r.Context()), service.CreateRestaurantInput{
		Name:        req.Name,
		Location:    req.Location,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Website:     req.Website,
		Hours:       req.Hours.toDomain(),
		Type:        req.Type,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, rest)
}

// Get handles GET /restaurants/{restaurantId}
func (h *RestaurantHandler) Get(w http.ResponseWriter, r *http.Request) {
	rest, err := h.restaurants.Get(r.Context(), chi.URLParam(r, "restaurantId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, rest)
}

// Search handles GET /restaurants/search?type=
func (h *RestaurantHandler) Search(w http.ResponseWriter, r *http.Request) {
	found, err := h.restaurants.Search(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, found)
}

// --- Reviews ---

// CreateReview handles POST /restaurants/{restaurantId}/review
func (h *RestaurantHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := validator.DecodeAndValidate(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	rv, err := h.restaurants.CreateReview(r.Context(), middleware.UserIDFromContext(r.Context()),
		chi.URLParam(r, "restaurantId"), *req.Rating, req.Comment)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, rv)
}

// DeleteReview handles DELETE /restaurants/{restaurantId}/review/{reviewId}
func (h *RestaurantHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	err := h.restaurants.DeleteReview(r.Context(), middleware.UserIDFromContext(r.Context()),
		chi.URLParam(r, "restaurantId"), chi.URLParam(r, "reviewId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, httputil.Message{Message: "review deleted"})
}

// --- Favorites ---

// AddFavorite handles PUT /restaurants/favorites/{id}
func (h *RestaurantHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.favorites.Add(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, httputil.Message{Message: "restaurant added to favorites"})
}

// RemoveFavorite handles DELETE /restaurants/favorites/{id}
func (h *RestaurantHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.favorites.Remove(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, httputil.Message{Message: "restaurant removed from favorites"})
}

// ListFavorites handles GET /restaurants/favorites
func (h *RestaurantHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := h.favorites.List(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, favs)
}
