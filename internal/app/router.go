package app

import (
	"net/http"
	"step2hub/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	router.GET("/", func(ctx *gin.Context) {
		ctx.Redirect(http.StatusFound, "/log")
	})

	// 1. 页面
	a.registerPageRoutes(router, c)

	// 2. JSON 接口
	a.registerAPIRoutes(router, c)
}

func (a *App) registerPageRoutes(router *gin.Engine, c *controllers) {
	router.GET("/log", c.log.NewLogForm)
	router.POST("/log", c.log.CreateLogForm)
	router.POST("/log/suggest", c.log.SuggestForm)

	router.GET("/dashboard", c.dashboard.Dashboard)

	review := router.Group("/review")
	{
		review.GET("", c.review.Review)
		review.GET("/export.csv", c.review.ExportCSV)
		review.GET("/export.xlsx", c.review.ExportXLSX)
		review.GET("/:id", c.review.Detail)
	}
}

func (a *App) registerAPIRoutes(router *gin.Engine, c *controllers) {
	api := router.Group("/api")
	{
		api.GET("/health", c.health.HealthCheck)
		api.POST("/suggest", c.log.Suggest)

		api.GET("/logs", c.log.ListLogs)
		api.POST("/logs", c.log.CreateLog)
		api.GET("/logs/:id", c.log.GetLog)

		api.GET("/dashboard", c.dashboard.GetDashboard)
		api.GET("/aggregate", c.dashboard.Aggregate)
	}
}
