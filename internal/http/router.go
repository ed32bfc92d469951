package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/klauspost/compress/gzhttp"
)

// RouterConfig collects the handlers mounted under /api. Nil handlers leave
// their routes unregistered.
type RouterConfig struct {
	Auth          *AuthHandler
	Spaces        *SpaceHandler
	Reservations  *ReservationHandler
	Access        *AccessHandler
	System        *SystemHandler
	Authenticator Authenticator
	CORSOrigins   []string
	Logger        *slog.Logger
	// Compress gzip-encodes responses for clients that accept it.
	Compress bool
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	responder := newResponder(logger)
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responder.writeJSON(req.Context(), w, http.StatusNotFound, newErrorResponse(http.StatusNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responder.writeJSON(req.Context(), w, http.StatusMethodNotAllowed, newErrorResponse(http.StatusMethodNotAllowed, "method not allowed"))
	})

	r.Route("/api", func(api chi.Router) {
		if cfg.System != nil {
			api.Get("/", cfg.System.Banner)
			api.Get("/health", cfg.System.Health)
		}
		if cfg.Auth != nil {
			api.Post("/auth/register", cfg.Auth.Register)
			api.Post("/auth/login", cfg.Auth.Login)
		}
		if cfg.Spaces != nil {
			api.Get("/spaces", cfg.Spaces.List)
			api.Get("/spaces/{id}", cfg.Spaces.Get)
		}
		if cfg.Access != nil {
			api.Post("/qr/verify", cfg.Access.Verify)
		}

		api.Group(func(private chi.Router) {
			private.Use(RequireAuth(cfg.Authenticator, logger))

			if cfg.Auth != nil {
				private.Get("/auth/me", cfg.Auth.Me)
			}
			if cfg.Spaces != nil {
				private.Post("/spaces", cfg.Spaces.Create)
				private.Patch("/spaces/{id}", cfg.Spaces.Update)
				private.Delete("/spaces/{id}", cfg.Spaces.Delete)
				private.Get("/spaces/{id}/statistics", cfg.Spaces.Statistics)
			}
			if cfg.Reservations != nil {
				private.Post("/reservations", cfg.Reservations.Create)
				private.Get("/reservations", cfg.Reservations.List)
				private.Post("/reservations/check-availability", cfg.Reservations.CheckAvailability)
				private.Get("/reservations/{id}", cfg.Reservations.Get)
				private.Delete("/reservations/{id}", cfg.Reservations.Cancel)
			}
			if cfg.Access != nil {
				private.Get("/qr/generate/{reservationId}", cfg.Access.Generate)
				private.Get("/qr/access-logs/{reservationId}", cfg.Access.Logs)
			}
		})
	})

	if cfg.Compress {
		return gzhttp.GzipHandler(r)
	}
	return r
}
