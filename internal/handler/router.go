package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/bakeshop-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса магазина.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/logout", h.Logout)

		r.Get("/products", h.ListProducts)
		r.Get("/products/slug/{slug}", h.GetProductBySlug)
		r.Get("/products/{id}", h.GetProduct)

		r.Get("/categories", h.ListCategories)

		r.Get("/reviews", h.ListReviews)
		r.Post("/contacts", h.CreateContact)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/cart", h.GetCart)
			r.Post("/cart", h.AddToCart)
			r.Put("/cart", h.UpdateCartItem)
			r.Delete("/cart/{productID}", h.RemoveCartItem)

			r.Post("/orders", h.CreateOrder)
			r.Get("/orders", h.GetOrders)
			r.Get("/orders/{id}", h.GetOrder)
			r.Put("/orders/{id}/cancel", h.CancelOrder)

			r.Post("/reviews", h.AddReview)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.RequireAdmin)

				r.Post("/products", h.CreateProduct)
				r.Put("/products/{id}", h.UpdateProduct)
				r.Delete("/products/{id}", h.DeleteProduct)

				r.Post("/categories", h.CreateCategory)

				r.Get("/orders/stats", h.GetOrderStats)
				r.Put("/orders/{id}", h.UpdateOrderStatus)

				r.Get("/contacts", h.ListContacts)
				r.Delete("/contacts/{id}", h.DeleteContact)
				r.Put("/contacts/{id}/reply", h.ReplyContact)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
