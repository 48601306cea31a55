package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	ServiceName        string
}

// NewRouter wires the cart and product routes behind the shared middleware stack.
func NewRouter(cfg RouterConfig, carts CartService, products ProductService, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	cartHandler := NewCartHandler(carts, cfg.RequestTimeout, cfg.MaxRequestBodySize)
	productHandler := NewProductHandler(products, cfg.RequestTimeout, cfg.MaxRequestBodySize)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(EchoRequestID)
	r.Use(LoggingMiddleware(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Post("/", cartHandler.AddItem)
			r.Put("/", cartHandler.UpdateQuantity)
			r.Get("/{user_id}", cartHandler.GetCart)
			r.Delete("/{user_id}", cartHandler.DeleteCart)
			r.Delete("/{user_id}/items/{product_id}", cartHandler.RemoveItem)
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Post("/", productHandler.Add)
		})
	})

	name := cfg.ServiceName
	if name == "" {
		name = "cart-store"
	}
	return otelhttp.NewHandler(r, name)
}
