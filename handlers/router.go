package handlers

import (
	"net/http"

	"sixchan/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter wires every route and the middleware chain.
func SetupRouter(app App) *chi.Mux {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(NewStructuredLogger(app.Logger()))
	mux.Use(middleware.Recoverer)
	mux.Use(Metrics)
	mux.Use(NewSecurityHeadersMiddleware())

	mux.Method(http.MethodGet, "/metrics", promhttp.Handler())

	mux.Group(func(r chi.Router) {
		r.Use(CSRFMiddleware)
		r.Use(SessionMiddleware(app))

		// Public reads
		r.Get("/", MakeHandler(app, HandleHome))
		r.Get("/boards/{boardID}", MakeHandler(app, HandleBoard))
		r.Get("/threads/{threadID}", MakeHandler(app, HandleThread))
		r.Get("/users/{username}", MakeHandler(app, HandleUser))
		r.Get("/report-reasons", MakeHandler(app, HandleReportReasons))

		// Posting
		r.Group(func(r chi.Router) {
			r.Use(RateLimit(app))
			r.Post("/boards/{boardID}/threads", MakeHandler(app, HandlePostThread))
			r.Post("/threads/{threadID}/reses", MakeHandler(app, HandlePostRes))
			r.Post("/reses/{resID}/report", MakeHandler(app, HandleReport))
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireLogin(app))
			r.Post("/threads/{threadID}/favorite", MakeHandler(app, HandleFavorite))
			r.Post("/threads/{threadID}/unfavorite", MakeHandler(app, HandleUnfavorite))
		})

		r.Route("/me", func(r chi.Router) {
			r.With(RateLimit(app)).Post("/signup", MakeHandler(app, HandleSignup))
			r.Get("/activate/{token}", MakeHandler(app, HandleActivate))
			r.With(RateLimit(app)).Post("/login", MakeHandler(app, HandleLogin))
			r.Post("/logout", MakeHandler(app, HandleLogout))
			r.Get("/confirm/{token}", MakeHandler(app, HandleConfirmEmail))

			r.Group(func(r chi.Router) {
				r.Use(RequireLogin(app))
				r.Get("/", MakeHandler(app, HandleMe))
				r.Get("/history", MakeHandler(app, HandleHistory))
				r.Get("/favorites", MakeHandler(app, HandleMyFavorites))
				r.Post("/profile", MakeHandler(app, HandleUpdateProfile))
				r.Post("/account/username", MakeHandler(app, HandleChangeUsername))
				r.Post("/account/email", MakeHandler(app, HandleChangeEmail))
				r.Post("/account/password", MakeHandler(app, HandleChangePassword))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(app, models.Role.CanModerate))
			r.Get("/reports", MakeHandler(app, HandleReports))
			r.Post("/reports/{resID}/resolve", MakeHandler(app, HandleResolveReports))
			r.Get("/log", MakeHandler(app, HandleModLog))

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(app, isAdministrator))
				r.Post("/categories", MakeHandler(app, HandleCreateCategory))
				r.Post("/boards", MakeHandler(app, HandleCreateBoard))
				r.Post("/backup", MakeHandler(app, HandleDatabaseBackup))
			})
		})
	})

	return mux
}
