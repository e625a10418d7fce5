package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sed-ethz/hdd-relocate-go/internal/config"
	"github.com/sed-ethz/hdd-relocate-go/internal/database"
	"github.com/sed-ethz/hdd-relocate-go/internal/middleware"
	"github.com/sed-ethz/hdd-relocate-go/internal/orchestrator"
	"github.com/sed-ethz/hdd-relocate-go/pkg/response"
)

// Deps bundles the dependencies the router's handlers close over: the
// engine that actually runs relocations and the repository that
// records run outcomes.
type Deps struct {
	Engine *orchestrator.Orchestrator
	Runs   *database.RunsRepository
}

// SetupRouter builds the HTTP API exposing the relocation engine.
func SetupRouter(cfg *config.Config, deps Deps) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.Logger())
	r.Use(middleware.RateLimit(60, time.Minute))

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "relocation engine is running"})
	})

	v1 := r.Group("/api/v1")
	{
		relocate := v1.Group("/relocate", middleware.RequireAuth(cfg.JWTSecret))
		{
			relocate.POST("/catalog", relocateCatalogHandler(deps))
			relocate.POST("/event/:id", relocateEventHandler(deps))
		}

		runs := v1.Group("/runs")
		{
			runs.GET("/:id", runStatusHandler(deps))
		}

		v1.GET("/counters", countersHandler(deps))
	}

	return r
}

func relocateCatalogHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID, err := deps.Runs.StartRun("catalog", nil)
		if err != nil {
			response.InternalError(c, "failed to record run: "+err.Error())
			return
		}

		relocated, err := deps.Engine.RelocateCatalog(c.Request.Context())
		if err != nil {
			_ = deps.Runs.FailRun(runID, err.Error())
			response.InternalError(c, err.Error())
			return
		}

		if err := deps.Runs.SaveSnapshot(runID, relocated); err != nil {
			_ = deps.Runs.FailRun(runID, err.Error())
			response.InternalError(c, "failed to save snapshot: "+err.Error())
			return
		}
		if err := deps.Runs.FinishRun(runID, len(relocated.Events)); err != nil {
			response.InternalError(c, err.Error())
			return
		}

		response.Success(c, gin.H{"runId": runID, "eventsRelocated": len(relocated.Events)})
	}
}

func relocateEventHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid event id")
			return
		}

		runID, err := deps.Runs.StartRun("event", &id)
		if err != nil {
			response.InternalError(c, "failed to record run: "+err.Error())
			return
		}

		ev, err := deps.Engine.RelocateEvent(c.Request.Context(), id)
		if err != nil {
			_ = deps.Runs.FailRun(runID, err.Error())
			response.Error(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err := deps.Runs.FinishRun(runID, 1); err != nil {
			response.InternalError(c, err.Error())
			return
		}

		response.Success(c, gin.H{
			"runId": runID,
			"event": gin.H{
				"id":      ev.ID,
				"lat":     ev.Lat,
				"lon":     ev.Lon,
				"depthKm": ev.DepthKm,
				"time":    ev.Time,
			},
		})
	}
}

func runStatusHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid run id")
			return
		}
		status, err := deps.Runs.GetRun(runID)
		if err != nil {
			response.NotFound(c, "run not found")
			return
		}
		response.Success(c, status)
	}
}

func countersHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, deps.Engine.Counters.Snapshot())
	}
}
