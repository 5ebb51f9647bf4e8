package router

import (
	"net/http"
	"time"

	"shopfront/internal/handler"
	"shopfront/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Health     *handler.HealthHandler
	Product    *handler.ProductHandler
	Offer      *handler.OfferHandler
	AdminOffer *handler.AdminOfferHandler
	Cart       *handler.CartHandler
	Checkout   *handler.CheckoutHandler
	Order      *handler.OrderHandler
	Device     *handler.DeviceHandler
	Webhook    *handler.WebhookHandler
}

// Options configures authentication and request limits.
type Options struct {
	APIKey         string
	JWTSecret      string
	JWTIssuer      string
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// RequestID -> Recovery -> Logging -> CORS -> Timeout
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         3600,
	}).Handler)
	if opts.RequestTimeout > 0 {
		r.Use(chimw.Timeout(opts.RequestTimeout))
	}

	r.Get("/health", h.Health.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.Product.List)
		r.Get("/products/{id}", h.Product.GetByID)

		r.Get("/offers/active", h.Offer.Active)
		r.Post("/offers/validate", h.Offer.Validate)

		r.Post("/webhooks/payments", h.Webhook.Handle)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(opts.JWTSecret, opts.JWTIssuer, logger))

			r.Get("/cart", h.Cart.Get)
			r.Post("/cart/items", h.Cart.AddItem)
			r.Post("/checkout/quote", h.Checkout.Quote)
			r.Get("/orders", h.Order.List)
			r.Get("/orders/{orderNumber}", h.Order.GetByNumber)
			r.Post("/devices", h.Device.Register)
		})

		r.Route("/admin/offers", func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(opts.APIKey, logger))

			r.Get("/", h.AdminOffer.List)
			r.Post("/", h.AdminOffer.Create)
			r.Get("/{id}", h.AdminOffer.Get)
			r.Patch("/{id}", h.AdminOffer.Update)
			r.Delete("/{id}", h.AdminOffer.Delete)
			r.Post("/{id}/image", h.AdminOffer.UploadImage)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"NOT_FOUND","message":"route not found"}`))
	})

	return r
}
