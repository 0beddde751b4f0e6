package controller

import (
	"context"
	"net/http"
	"step2hub/internal/util"
	"step2hub/pkg/logger"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger 数据库连通性检查
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	DB      Pinger
	Backend string
}

func NewHealthController(db Pinger, backend string) *HealthController {
	return &HealthController{DB: db, Backend: backend}
}

// @Summary 健康检查
// @Description 检查服务状态与数据库连接
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	if err := c.DB.Ping(pingCtx); err != nil {
		logger.Log.Warn("Database ping failed", zap.String("backend", c.Backend), zap.Error(err))
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	util.Success(ctx, gin.H{
		"status":  "ok",
		"backend": c.Backend,
		"components": gin.H{
			"database": "up",
		},
	})
}
