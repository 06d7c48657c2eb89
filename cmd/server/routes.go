package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mnemo/internal/agent"
	"mnemo/internal/memory"
	"mnemo/internal/tools"
	"mnemo/pkg/config"
)

func registerRoutes(router *gin.Engine, store *memory.Store, pipeline *agent.Pipeline, executor *tools.Executor, cfg *config.Config, log *zap.Logger) {
	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		// Record a conversation exchange (session window + extraction)
		api.POST("/exchange", func(c *gin.Context) {
			var req struct {
				Entity           string `json:"entity" binding:"required"`
				UserMessage      string `json:"user_message" binding:"required"`
				AssistantMessage string `json:"assistant_message" binding:"required"`
				Channel          string `json:"channel"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			report, err := pipeline.ProcessExchange(c.Request.Context(), req.Entity, req.Channel, req.UserMessage, req.AssistantMessage)
			if err != nil {
				log.Error("Failed to process exchange", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process exchange"})
				return
			}
			c.JSON(http.StatusOK, report)
		})

		// Generic tool dispatch for agent frontends
		api.POST("/tools/execute", func(c *gin.Context) {
			var req struct {
				Name string                 `json:"name" binding:"required"`
				Args map[string]interface{} `json:"args"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			execCtx := &tools.ExecutionContext{Platform: "web"}
			result := executor.Execute(c.Request.Context(), execCtx, req.Name, req.Args)
			c.JSON(http.StatusOK, result)
		})

		api.GET("/tools", func(c *gin.Context) {
			c.JSON(http.StatusOK, tools.GetAllTools())
		})

		// Entities
		api.GET("/entities", func(c *gin.Context) {
			if q := c.Query("q"); q != "" {
				c.JSON(http.StatusOK, store.SearchEntities(q, 0))
				return
			}
			c.JSON(http.StatusOK, store.GetAllEntities())
		})

		api.POST("/entities", func(c *gin.Context) {
			var req struct {
				Name         string   `json:"name" binding:"required"`
				Type         string   `json:"type"`
				Observations []string `json:"observations"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			var obs []memory.Observation
			for _, content := range req.Observations {
				if content != "" {
					obs = append(obs, memory.NewObservation(content, memory.StageRaw, "api"))
				}
			}

			ent, err := store.AddEntity(req.Name, memory.CoerceEntityType(req.Type), obs)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, ent)
		})

		api.GET("/entities/:name", func(c *gin.Context) {
			ent, err := store.GetEntity(c.Param("name"))
			if err != nil {
				respondStoreError(c, err, log)
				return
			}
			c.JSON(http.StatusOK, ent)
		})

		api.GET("/entities/:name/history", func(c *gin.Context) {
			history, err := store.GetFactHistory(c.Param("name"))
			if err != nil {
				respondStoreError(c, err, log)
				return
			}
			c.JSON(http.StatusOK, history)
		})

		api.POST("/entities/:name/observations", func(c *gin.Context) {
			var req struct {
				Content string `json:"content" binding:"required"`
				Stage   string `json:"stage"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			obs, err := store.AddObservation(c.Param("name"), req.Content, memory.CoerceStage(req.Stage), "api")
			if err != nil {
				respondStoreError(c, err, log)
				return
			}
			c.JSON(http.StatusOK, obs)
		})

		// Supersede an observation with corrected content
		api.PUT("/entities/:name/observations/:id", func(c *gin.Context) {
			var req struct {
				Content string `json:"content" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			obs, err := store.UpdateEntityFact(c.Param("name"), c.Param("id"), req.Content)
			if err != nil {
				respondStoreError(c, err, log)
				return
			}
			c.JSON(http.StatusOK, obs)
		})

		// Retract an observation (soft delete: superseded with no replacement)
		api.DELETE("/entities/:name/observations/:id", func(c *gin.Context) {
			if err := store.RemoveFact(c.Param("name"), c.Param("id")); err != nil {
				respondStoreError(c, err, log)
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "retracted"})
		})

		// Relations
		api.GET("/relations", func(c *gin.Context) {
			c.JSON(http.StatusOK, store.GetAllRelations(c.Query("entity")))
		})

		api.POST("/relations", func(c *gin.Context) {
			var req struct {
				From string `json:"from" binding:"required"`
				To   string `json:"to" binding:"required"`
				Type string `json:"type" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			created, err := store.AddRelation(req.From, req.To, req.Type)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"created": created})
		})

		// Self model
		api.GET("/self", func(c *gin.Context) {
			ent, err := store.GetSelfEntity()
			if err != nil {
				respondStoreError(c, err, log)
				return
			}
			c.JSON(http.StatusOK, ent)
		})

		api.GET("/self/context", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"context": store.SelfContext(cfg.SelfContextMaxLen)})
		})

		api.POST("/self/observations", func(c *gin.Context) {
			var req struct {
				Content string `json:"content" binding:"required"`
				Stage   string `json:"stage"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			stage := memory.StageTrait
			if req.Stage != "" {
				stage = memory.CoerceStage(req.Stage)
			}
			obs, err := store.SelfObserve(req.Content, stage, "api")
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, obs)
		})

		// Search
		api.GET("/search/knowledge", func(c *gin.Context) {
			c.JSON(http.StatusOK, store.SearchKnowledge(c.Query("q"), 0))
		})

		api.GET("/search/exchanges", func(c *gin.Context) {
			c.JSON(http.StatusOK, store.SearchExchanges(c.Query("q"), 0))
		})

		// Tasks
		api.GET("/tasks", func(c *gin.Context) {
			c.JSON(http.StatusOK, store.CheckTasks())
		})

		api.POST("/tasks", func(c *gin.Context) {
			var req struct {
				Description string `json:"description" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, store.StartTask(req.Description))
		})

		api.POST("/tasks/:id/complete", func(c *gin.Context) {
			if err := store.CompleteTask(c.Param("id")); err != nil {
				respondStoreError(c, err, log)
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "done"})
		})

		api.POST("/tasks/:id/abort", func(c *gin.Context) {
			if err := store.AbortTask(c.Param("id")); err != nil {
				respondStoreError(c, err, log)
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "aborted"})
		})

		// Stats & maintenance
		api.GET("/stats", func(c *gin.Context) {
			c.JSON(http.StatusOK, store.Stats())
		})

		api.GET("/maintenance/stale", func(c *gin.Context) {
			horizon := cfg.StalenessHorizon
			if raw := c.Query("horizon"); raw != "" {
				if d, err := time.ParseDuration(raw); err == nil {
					horizon = d
				}
			}
			c.JSON(http.StatusOK, store.StaleEntities(horizon))
		})

		api.POST("/maintenance/consolidate", func(c *gin.Context) {
			c.JSON(http.StatusOK, store.ConsolidateMemory(cfg.ArchiveRetention))
		})
	}
}

// respondStoreError maps store errors onto HTTP status codes
func respondStoreError(c *gin.Context, err error, log *zap.Logger) {
	var entErr memory.ErrEntityNotFound
	var obsErr memory.ErrObservationNotFound
	var taskErr memory.ErrTaskNotFound
	var supErr memory.ErrObservationSuperseded
	switch {
	case errors.As(err, &entErr), errors.As(err, &obsErr), errors.As(err, &taskErr):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &supErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Error("Store operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
