package web

import (
	"time"

	"kami-system/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type Server struct {
	authUC  usecase.AuthUseCase
	kamiUC  usecase.KamiUseCase
	tokens  *TokenManager
	limiter *RateLimiter
	log     *zerolog.Logger
	dev     bool
}

func NewServer(
	authUC usecase.AuthUseCase,
	kamiUC usecase.KamiUseCase,
	tokens *TokenManager,
	limiter *RateLimiter,
	logger *zerolog.Logger,
	dev bool,
) *Server {
	return &Server{
		authUC:  authUC,
		kamiUC:  kamiUC,
		tokens:  tokens,
		limiter: limiter,
		log:     logger,
		dev:     dev,
	}
}

// Router builds the full route tree with the shared middleware chain.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(
		Recover(s.log),
		TraceID(),
		RequestLog(s.log),
		Metrics(),
		Timeout(15*time.Second),
		CORS(),
		RateLimit(s.limiter),
	)

	r.Get("/", livenessHandler())
	r.Get("/health", healthHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api/init", initHandler(s.authUC, s.dev))
	r.Post("/api/auth/register", registerHandler(s.authUC, s.dev))
	r.Post("/api/auth/login", loginHandler(s.authUC, s.tokens, s.dev))

	r.Route("/api/kami", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(s.tokens))
			r.Post("/verify", verifyHandler(s.kamiUC, s.dev))
			r.Post("/use", useHandler(s.kamiUC, s.dev))
		})
		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin(s.tokens))
			r.Post("/generate", generateHandler(s.kamiUC, s.dev))
			r.Get("/list", listHandler(s.kamiUC, s.dev))
			r.Get("/stats", statsHandler(s.kamiUC, s.dev))
			r.Get("/recent", recentHandler(s.kamiUC, s.dev))
			r.Get("/usage-trend", usageTrendHandler(s.kamiUC, s.dev))
			r.Get("/type-distribution", typeDistributionHandler(s.kamiUC, s.dev))
			r.Get("/revenue-trend", revenueTrendHandler(s.kamiUC, s.dev))
			r.Get("/logs", logsHandler(s.kamiUC, s.dev))
		})
	})

	return r
}
