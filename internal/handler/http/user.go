package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
)

// UserHandler handles HTTP requests for per-user endpoints.
type UserHandler struct {
	views  *service.RecentlyViewedService
	logger *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(views *service.RecentlyViewedService, logger *slog.Logger) *UserHandler {
	return &UserHandler{views: views, logger: logger}
}

// RecentlyViewed handles GET /api/v1/users/recently-viewed
func (h *UserHandler) RecentlyViewed(w http.ResponseWriter, r *http.Request) {
	limit := domain.MaxRecentlyViewed
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = v
	}

	products, err := h.views.List(r.Context(), middleware.UserIDFromContext(r.Context()), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, products)
}

// ClearRecentlyViewed handles DELETE /api/v1/users/recently-viewed
func (h *UserHandler) ClearRecentlyViewed(w http.ResponseWriter, r *http.Request) {
	if err := h.views.Clear(r.Context(), middleware.UserIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]string{"message": "history cleared"})
}
