package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/LeventeLantos/wa-relay/internal/auth"
	"github.com/LeventeLantos/wa-relay/internal/metrics"
)

// Router builds the HTTP surface. mws run after request id and real ip are
// set and inside the panic recoverer.
func Router(h *Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mws...)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard/", http.StatusFound)
	})
	r.Get("/healthz", h.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Get("/login/", h.LoginPage)
	r.Post("/login/", h.Login)
	r.Get("/logout/", h.Logout)

	for _, p := range []string{"/api/webhook/", "/api/webhook"} {
		r.Get(p, h.VerifyWebhook)
		r.Post(p, h.ReceiveWebhook)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Gate(h.sessions, h.users))

		r.Get("/dashboard/", h.Dashboard)
		r.Get("/send-message", h.SendForm)
		r.Post("/send-message", h.SendMessage)
	})

	return r
}
