package http

import (
	"context"
	"net/http"

	"github.com/ai-content-platform/internal/application/generation"
	"github.com/ai-content-platform/internal/application/session"
	"github.com/ai-content-platform/internal/application/usage"
	"github.com/ai-content-platform/internal/config"
	"github.com/ai-content-platform/internal/domain"
	"github.com/ai-content-platform/internal/transport/http/handler"
	appmiddleware "github.com/ai-content-platform/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. Background work it
// starts stops when ctx is done.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(appmiddleware.Metrics(deps.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)
	generateRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.GenerateRateLimit), cfg.GenerateBurst,
		appmiddleware.TrustProxyHeaders(cfg.TrustProxyHeaders))

	tracker := usage.NewTracker(deps.Store, usage.UserResolverFunc(appmiddleware.UserID),
		usage.WithLimits(planLimits(cfg.Limits)))

	sessionSvc := session.NewService(deps.Google, deps.JWTProvider, tracker, deps.Hub, domain.Plan(cfg.DefaultPlan))
	genOpts := []generation.Option{generation.WithRecorder(deps.Metrics)}
	if deps.Archiver != nil {
		genOpts = append(genOpts, generation.WithArchiver(deps.Archiver))
	}
	generationSvc := generation.NewService(deps.Text, deps.Image, tracker, deps.Hub, genOpts...)

	healthH := handler.NewHealthHandler(deps.Text, deps.Image)
	sessionH := handler.NewSessionHandler(sessionSvc)
	notifH := handler.NewNotificationHandler(deps.Hub, cfg.AllowedOrigins)
	statsH := handler.NewStatsHandler(tracker, deps.Hub)
	generateH := handler.NewGenerateHandler(generationSvc)

	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health", healthH.Health)
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/sessions/google", sessionH.Google)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/sessions/logout", sessionH.Logout)

			r.Get("/notifications", notifH.List)
			r.Post("/notifications", notifH.Show)
			r.Delete("/notifications", notifH.Clear)
			r.Get("/notifications/ws", notifH.Stream)
			r.Delete("/notifications/{id}", notifH.Remove)
			r.Post("/notifications/{id}/pause", notifH.Pause)
			r.Post("/notifications/{id}/resume", notifH.Resume)

			r.Get("/stats", statsH.Get)
			r.Delete("/stats", statsH.Clear)
			r.Get("/stats/history", statsH.History)
			r.Post("/stats/track", statsH.Track)

			// Upstream calls cost money; throttle per user.
			r.Group(func(r chi.Router) {
				r.Use(generateRL.Limit)
				r.Post("/generate/text", generateH.Text)
				r.Post("/generate/image", generateH.Image)
			})
		})
	})

	return r
}

func planLimits(l config.PlanLimits) map[domain.Plan]usage.Limit {
	return map[domain.Plan]usage.Limit{
		domain.PlanFree: {Daily: int64(l.FreeDaily), Monthly: int64(l.FreeMonthly)},
		domain.PlanPro:  {Daily: int64(l.ProDaily), Monthly: int64(l.ProMonthly)},
	}
}
