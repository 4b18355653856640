package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints. Every response
// carries the full cart state with its totals.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

type lineOp func(ctx context.Context, userID string, in service.LineInput) (*domain.Cart, error)

type keyOp func(ctx context.Context, userID string, k domain.LineKey) (*domain.Cart, error)

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), middleware.UserIDFromContext(r.Context()))
	h.respond(w, r, cart, err)
}

// ReplaceCart handles PUT /api/v1/cart
func (h *CartHandler) ReplaceCart(w http.ResponseWriter, r *http.Request) {
	var state domain.CartState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body"), h.logger)
		return
	}

	cart, err := h.service.Replace(r.Context(), middleware.UserIDFromContext(r.Context()), &state)
	h.respond(w, r, cart, err)
}

// AddItem handles POST /api/v1/cart/add
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	h.line(w, r, h.service.AddItem)
}

// UpdateItem handles POST /api/v1/cart/update
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	h.line(w, r, h.service.UpdateItem)
}

// RemoveItem handles POST /api/v1/cart/remove
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.key(w, r, h.service.RemoveItem)
}

// SaveForLater handles POST /api/v1/cart/save-for-later
func (h *CartHandler) SaveForLater(w http.ResponseWriter, r *http.Request) {
	h.key(w, r, h.service.SaveForLater)
}

// MoveToCart handles POST /api/v1/cart/move-to-cart
func (h *CartHandler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	h.key(w, r, h.service.MoveToCart)
}

// RemoveSaved handles POST /api/v1/cart/remove-saved
func (h *CartHandler) RemoveSaved(w http.ResponseWriter, r *http.Request) {
	h.key(w, r, h.service.RemoveSaved)
}

// ClearCart handles POST /api/v1/cart/clear
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.ClearCart(r.Context(), middleware.UserIDFromContext(r.Context()))
	h.respond(w, r, cart, err)
}

func (h *CartHandler) line(w http.ResponseWriter, r *http.Request, op lineOp) {
	var req service.LineInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart, err := op(r.Context(), middleware.UserIDFromContext(r.Context()), req)
	h.respond(w, r, cart, err)
}

func (h *CartHandler) key(w http.ResponseWriter, r *http.Request, op keyOp) {
	var req service.LineInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart, err := op(r.Context(), middleware.UserIDFromContext(r.Context()), req.Key())
	h.respond(w, r, cart, err)
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, cart *domain.Cart, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, domain.Summarize(&cart.CartState))
}
