package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/signup", apiHandler.SignupHandler)
		r.Post("/login", apiHandler.LoginHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			// Repository routes
			r.Post("/repositories", apiHandler.CreateRepositoryHandler)
			r.Get("/repositories", apiHandler.ListRepositoriesHandler)
			r.Get("/repositories/{repoID}", apiHandler.GetRepositoryHandler)
			r.Delete("/repositories/{repoID}", apiHandler.DeleteRepositoryHandler)
			r.Get("/repositories/{repoID}/chats", apiHandler.ListChatsHandler)

			// Chat routes
			r.Post("/chats", apiHandler.CreateChatHandler)
			r.Post("/chats/{chatID}/messages", apiHandler.PostMessageHandler)
			r.Get("/chats/{chatID}/messages", apiHandler.GetMessagesHandler)
		})
	})

	return r
}
