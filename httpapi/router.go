package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ByLCY/lessoncanvas/logger"
)

// NewRouter 注册全部路由。
func NewRouter(h *Handler, log *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger.OrNop(log)))

	api := r.Group("/api")
	{
		api.GET("/state", h.State)
		api.POST("/pages/:index", h.GoToPage)
		api.PUT("/pages", h.SetPages)
		api.POST("/next", h.Next)
		api.POST("/prev", h.Prev)
		api.POST("/zoom", h.Zoom)
		api.POST("/view/reset", h.ResetView)
		api.POST("/resize", h.Resize)
		api.POST("/input", h.Input)
		api.GET("/margins", h.GetMargins)
		api.PUT("/margins", h.SetMargins)
		api.GET("/layout", h.Layout)
		api.GET("/snapshot.png", h.Snapshot)
		api.GET("/export.pdf", h.ExportPDF)
	}
	return r
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
