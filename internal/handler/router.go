package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/clipstream-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса clipstream.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Get("/users/{username}", h.GetProfile)
		r.Get("/livestreams", h.ListLiveStreams)
		r.Get("/videos/{id}/comments", h.GetComments)

		r.Get("/settings/{key}", h.GetSetting)
		r.Put("/settings/{key}", h.PutSetting)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/livestreams", h.CreateLiveStream)
			r.Post("/videos/upload", h.UploadVideo)
			r.Post("/videos/{id}/comments", h.AddComment)

			r.Get("/wallet/balance", h.GetBalance)
			r.Get("/wallet/transactions", h.GetTransactions)
			r.Post("/wallet/payout", h.Payout)
			r.Post("/wallet/purchases", h.Purchase)

			r.Get("/rewards/daily", h.GetRewardStatus)
			r.Post("/rewards/daily/claim", h.ClaimDailyReward)

			r.Get("/tasks", h.GetTasks)
			r.Post("/tasks/{id}/complete", h.CompleteTask)
			r.Post("/tasks/{id}/adviews", h.StartAdView)

			r.Get("/messages", h.GetMessages)
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
