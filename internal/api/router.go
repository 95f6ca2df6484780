package api

import (
	"net/http"
	"time"

	"problem_solver/internal/api/handler"
	"problem_solver/internal/api/middleware"
	"problem_solver/internal/app/service"
	"problem_solver/internal/common/security"
	"problem_solver/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	AllowedOrigins []string
	// Timeout bounds synchronous solves, which wait on the AI call and the sandbox.
	Timeout time.Duration
}

func NewRouter(
	cfg RouterConfig,
	authService *service.AuthService,
	solverService *service.SolverService,
	execService *service.ExecutionService,
	quota *service.QuotaTracker,
	limiter *middleware.IPRateLimiter,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	if cfg.Timeout > 0 {
		r.Use(chiMiddleware.Timeout(cfg.Timeout))
	}
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(cfg.AllowedOrigins))
	}

	// Looks for "Authorization: Bearer T" and puts the verified token in context.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(authService)
		v1.Route("/auth", authHandler.RegisterRoutes)

		userHandler := handler.NewUserHandler(authService, quota)
		v1.Route("/users", userHandler.RegisterRoutes)

		problemHandler := handler.NewProblemHandler(solverService, limiter)
		v1.Route("/problems", problemHandler.RegisterRoutes)

		solutionHandler := handler.NewSolutionHandler(solverService)
		v1.Route("/solutions", solutionHandler.RegisterRoutes)

		executionHandler := handler.NewExecutionHandler(execService, limiter)
		v1.Route("/execute", executionHandler.RegisterRoutes)
	})

	return r
}
