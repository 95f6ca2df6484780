package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"problem_solver/internal/api"
	"problem_solver/internal/api/middleware"
	"problem_solver/internal/app/service"
	"problem_solver/internal/app/worker"
	"problem_solver/internal/common/security"
	"problem_solver/internal/domain/repository"
	"problem_solver/internal/platform/ai"
	"problem_solver/internal/platform/config"
	"problem_solver/internal/platform/database"
	"problem_solver/internal/platform/executor"
	"problem_solver/internal/platform/logger"
	"problem_solver/internal/platform/queue"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load Configuration
	config.Load()
	cfg := config.AppConfig
	logger.Init(cfg.AppEnv)
	logger.Info().Str("env", cfg.AppEnv).Msg("Configuration loaded")

	// 2. Initialize JWT
	security.InitJWT(cfg.JWTKey, cfg.JWTExp)

	// 3. Initialize Database
	database.Connect()
	defer database.Close()

	// 4. Initialize Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	problemRepo := repository.NewPgProblemRepository(database.DB)
	solutionRepo := repository.NewPgSolutionRepository(database.DB)

	// 6. External clients, configured explicitly
	providers := ai.NewRegistry(ai.NewOpenAIProvider(ai.OpenAIConfig{
		APIKey:       cfg.OpenAIAPIKey,
		BaseURL:      cfg.OpenAIBaseURL,
		DefaultModel: cfg.OpenAIModel,
		Timeout:      cfg.AITimeout,
	})).Route("claude", ai.NewAnthropicProvider(ai.AnthropicConfig{
		APIKey:       cfg.AnthropicAPIKey,
		BaseURL:      cfg.AnthropicBaseURL,
		DefaultModel: cfg.AnthropicModel,
		Timeout:      cfg.AITimeout,
	}))
	if cfg.OpenAIAPIKey == "" {
		logger.Warn().Msg("OPENAI_API_KEY not set; default model requests will fail")
	}

	sandbox := executor.NewClient(executor.Config{
		BaseURL:       cfg.Judge0APIURL,
		APIKey:        cfg.Judge0APIKey,
		APIHost:       cfg.Judge0APIHost,
		CPUTimeLimit:  cfg.ExecutionCPUTimeLimit,
		MemoryLimitKb: cfg.ExecutionMemoryLimitKb,
		MaxPolls:      cfg.ExecutionMaxPolls,
		PollInterval:  cfg.ExecutionPollInterval,
	})

	solveQueue := queue.NewSolveQueue(queue.RDB, cfg.SolveQueueName, cfg.SolveLockPrefix,
		time.Duration(cfg.SolveLockTTLSeconds)*time.Second)

	// 7. Initialize Services
	generator := service.NewSolutionGenerator(providers, service.GeneratorConfig{
		DefaultModel: cfg.OpenAIModel,
		Temperature:  float32(cfg.AITemperature),
		MaxTokens:    cfg.AIMaxTokens,
	})
	quota := service.NewQuotaTracker(userRepo)
	authService := service.NewAuthService(userRepo)
	solverService := service.NewSolverService(problemRepo, solutionRepo, userRepo, quota, generator, sandbox, solveQueue, database.DB)
	execService := service.NewExecutionService(sandbox)

	// 8. Router & HTTP Server
	// a synchronous solve waits for the AI call and then the full poll budget
	requestTimeout := cfg.AITimeout + time.Duration(cfg.ExecutionMaxPolls+5)*cfg.ExecutionPollInterval + 10*time.Second
	limiter := middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	router := api.NewRouter(
		api.RouterConfig{AllowedOrigins: cfg.CORSAllowedOrigins, Timeout: requestTimeout},
		authService, solverService, execService, quota, limiter,
	)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 9. Run server, worker and housekeeping until a signal arrives
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("port", cfg.APIPort).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return worker.NewSolveWorker(solveQueue, solverService).Start(gctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				limiter.Prune()
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Server stopped with error")
		return
	}
	logger.Info().Msg("Server and worker stopped gracefully")
}
