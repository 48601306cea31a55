package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/cart-store/internal/domain"
	"github.com/shopspring/decimal"
)

type ProductService interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	AddProduct(ctx context.Context, p domain.Product) (domain.Product, error)
}

type ProductHandler struct {
	products    ProductService
	timeout     time.Duration
	maxBodySize int64
}

func NewProductHandler(products ProductService, timeout time.Duration, maxBodySize int64) *ProductHandler {
	return &ProductHandler{
		products:    products,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

type ProductRequestDTO struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.products.ListProducts(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, products)
}

func (h *ProductHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ProductRequestDTO
	if !decodeJSON(w, r, h.maxBodySize, &req) {
		return
	}

	p, err := h.products.AddProduct(ctx, domain.Product{ID: req.ID, Name: req.Name, Price: req.Price})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, p)
}
