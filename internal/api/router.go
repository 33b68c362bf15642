package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/isdelr/octopus-budget-be/internal/api/handlers"
	"github.com/isdelr/octopus-budget-be/internal/auth"
	"github.com/isdelr/octopus-budget-be/internal/services"
	"github.com/isdelr/octopus-budget-be/internal/websocket"
)

// NewRouter creates and configures the JSON API router.
func NewRouter(
	hub *websocket.Hub,
	tokens *auth.TokenService,
	authService services.AuthServiceProvider,
	budgetService services.BudgetServiceProvider,
	activityService services.ActivityServiceProvider,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration for the web frontend and the mobile client
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"}, // Adjust for your frontend URL
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, tokens)
	budgetHandler := handlers.NewBudgetHandler(budgetService)
	eventHandler := handlers.NewEventHandler(activityService)
	wsHandler := handlers.NewWebSocketHandler(hub)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(httprate.LimitByIP(10, 15*time.Minute)).Post("/register", authHandler.Register)
			r.With(httprate.LimitByIP(10, 15*time.Minute)).Post("/login", authHandler.Login)
			// Stricter limit for the captcha-less path.
			r.With(httprate.LimitByIP(5, 15*time.Minute)).Post("/mobile-login", authHandler.MobileLogin)
		})

		// Everything below requires a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(auth.JWTMiddleware(tokens))

			r.Get("/ws", wsHandler.Serve)
			r.Get("/events", eventHandler.GetRecent)

			r.Route("/budget", func(r chi.Router) {
				r.Get("/summary", budgetHandler.Summary)

				r.Route("/subscriptions", func(r chi.Router) {
					r.Get("/", budgetHandler.ListSubscriptions)
					r.Post("/", budgetHandler.CreateSubscription)
					r.Put("/{id}", budgetHandler.UpdateSubscription)
					r.Delete("/{id}", budgetHandler.DeleteSubscription)
				})

				r.Route("/accounts", func(r chi.Router) {
					r.Get("/", budgetHandler.ListAccounts)
					r.Post("/", budgetHandler.CreateAccount)
					r.Put("/{id}", budgetHandler.UpdateAccount)
					r.Delete("/{id}", budgetHandler.DeleteAccount)
				})

				r.Route("/income", func(r chi.Router) {
					r.Get("/", budgetHandler.ListIncome)
					r.Post("/", budgetHandler.CreateIncome)
					r.Put("/{id}", budgetHandler.UpdateIncome)
					r.Delete("/{id}", budgetHandler.DeleteIncome)
				})

				r.Route("/debts", func(r chi.Router) {
					r.Get("/", budgetHandler.ListDebts)
					r.Post("/", budgetHandler.CreateDebt)
					r.Put("/{id}", budgetHandler.UpdateDebt)
					r.Delete("/{id}", budgetHandler.DeleteDebt)
				})
			})
		})
	})

	return r
}
