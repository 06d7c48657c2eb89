package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mnemo/internal/adapter"
	"mnemo/internal/agent"
	"mnemo/internal/memory"
	"mnemo/internal/persist"
	"mnemo/internal/tools"
	"mnemo/pkg/config"
	"mnemo/pkg/logger"
)

func main() {
	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting memory core server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize the store; Neo4j is optional snapshot persistence
	store := memory.NewStore(cfg.AgentName)

	var repo *persist.Repository
	if cfg.Neo4jURI != "" {
		driver, err := persist.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			log.Warn("Neo4j unavailable, running in-memory only", zap.Error(err))
		} else {
			repo = persist.NewRepository(driver)
			defer repo.Close()

			snap, err := repo.LoadSnapshot(ctx)
			if err != nil {
				log.Warn("Failed to load snapshot, starting empty", zap.Error(err))
			} else {
				store.Restore(snap)
			}
		}
	}

	// Initialize pipeline dependencies
	llmAdapter := adapter.NewLLMAdapter(cfg.LiteLLMURL, cfg.OpenRouterAPIKey, cfg.ModelID)
	coordinator := agent.NewCoordinator(store, adapterLLM{llmAdapter})
	session := memory.NewSessionUpdater(store, cfg.SessionWindowSize)
	pipeline := agent.NewPipeline(store, session, coordinator, cfg.ExtractionDisabled)
	executor := tools.NewExecutor(store, pipeline, cfg.StalenessHorizon, cfg.ArchiveRetention)
	scanner := memory.NewScanner(store, cfg.StalenessHorizon, cfg.ArchiveRetention)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	registerRoutes(router, store, pipeline, executor, cfg, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := scanner.Run(gctx, cfg.MaintenanceEvery)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server error", zap.Error(err))
	}

	// Persist a final snapshot before exiting
	if repo != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repo.SaveSnapshot(saveCtx, store.Snapshot()); err != nil {
			log.Error("Failed to save final snapshot", zap.Error(err))
		}
	}

	log.Info("Server exited")
}

// adapterLLM bridges the adapter's response type onto the agent interface
type adapterLLM struct {
	inner *adapter.LLMAdapter
}

func (a adapterLLM) Generate(ctx context.Context, systemPrompt, userMsg string) (*agent.ExtractorResponse, error) {
	resp, err := a.inner.Generate(ctx, systemPrompt, userMsg)
	if err != nil {
		return nil, err
	}
	return &agent.ExtractorResponse{Content: resp.Content}, nil
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
