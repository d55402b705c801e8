package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/zulandar/agenda/internal/kv"
)

// registerRoutes sets up all routes on the gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	router.GET("/healthz", handleHealth(opts.DB, opts.KV))
	if opts.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}
	for _, w := range opts.Webhooks {
		w.RegisterRoutes(router)
	}
}

// handleHealth reports 503 when the database is unreachable. The
// ephemeral store only degrades the status: the bot keeps serving without
// it.
func handleHealth(db *gorm.DB, store kv.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		body := gin.H{"status": "ok", "database": "ok", "store": "ok"}
		code := http.StatusOK

		if err := pingDB(ctx, db); err != nil {
			body["database"] = err.Error()
			body["status"] = "down"
			code = http.StatusServiceUnavailable
		}
		switch {
		case store == nil:
			body["store"] = "none"
		default:
			if err := store.Ping(ctx); err != nil {
				body["store"] = err.Error()
				if code == http.StatusOK {
					body["status"] = "degraded"
				}
			}
		}
		c.JSON(code, body)
	}
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
