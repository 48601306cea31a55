package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/cart-store/internal/domain"
	"github.com/go-chi/chi/v5"
)

// CartService is the part of the service layer the cart routes need.
type CartService interface {
	AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	DeleteCart(ctx context.Context, userID string) error
}

type CartHandler struct {
	carts       CartService
	timeout     time.Duration
	maxBodySize int64
}

func NewCartHandler(carts CartService, timeout time.Duration, maxBodySize int64) *CartHandler {
	return &CartHandler{
		carts:       carts,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// CartItemRequestDTO is the body of both add and update requests.
type CartItemRequestDTO struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.GetCart(ctx, chi.URLParam(r, "user_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, cart)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CartItemRequestDTO
	if !decodeJSON(w, r, h.maxBodySize, &req) {
		return
	}

	cart, err := h.carts.AddItem(ctx, req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, MessageResponse{Message: "item added to cart", Cart: cart})
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CartItemRequestDTO
	if !decodeJSON(w, r, h.maxBodySize, &req) {
		return
	}

	cart, err := h.carts.UpdateQuantity(ctx, req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, MessageResponse{Message: "quantity updated", Cart: cart})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.RemoveItem(ctx, chi.URLParam(r, "user_id"), chi.URLParam(r, "product_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, MessageResponse{Message: "item removed from cart", Cart: cart})
}

func (h *CartHandler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.DeleteCart(ctx, chi.URLParam(r, "user_id")); err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, MessageResponse{Message: "cart deleted"})
}
