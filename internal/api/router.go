package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/pysugar/quickmeeting/internal/api/handlers"
	"github.com/pysugar/quickmeeting/internal/api/middleware"
	"github.com/pysugar/quickmeeting/internal/auth/google"
	"github.com/pysugar/quickmeeting/internal/auth/token"
	"github.com/pysugar/quickmeeting/internal/logging"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// NewRouter wires the account API and the OAuth login flow.
func NewRouter(database *gorm.DB, tokenMgr *token.Manager, oauthConfig *oauth2.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(logging.Middleware)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	// OAuth flow
	r.Get("/auth/google/login", google.HandleLogin(oauthConfig))
	r.Get("/auth/google/callback", google.HandleCallback(tokenMgr))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(database))

		r.Get("/me", handlers.MeHandler(tokenMgr))

		r.Get("/accounts", handlers.AccountsAPIHandler(tokenMgr))
		r.Post("/accounts/active", handlers.SwitchAccountHandler(tokenMgr))
		r.Delete("/accounts/{email}", handlers.DeleteAccountHandler(tokenMgr))

		r.Get("/token", handlers.TokenHandler(tokenMgr))
		r.Post("/token/refresh", handlers.RefreshHandler(tokenMgr))
	})

	return r
}
