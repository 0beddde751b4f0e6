package controller

import (
	"step2hub/internal/util"
	"step2hub/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	flashInfo    = "info"
	flashSuccess = "success"
	flashError   = "error"
)

// view 页面公共字段，模板 header 依赖这些键
func view(backend, title, page string) gin.H {
	return gin.H{
		"Title":     title,
		"Page":      page,
		"Backend":   backend,
		"Flash":     "",
		"FlashKind": "",
		"Errors":    []string(nil),
	}
}

func withFlash(data gin.H, kind, msg string) gin.H {
	data["Flash"] = msg
	data["FlashKind"] = kind
	return data
}

// logError 页面请求出错时只记日志，响应由页面渲染
func logError(ctx *gin.Context, err error) {
	logger.Log.Error("Request failed",
		zap.String("path", ctx.FullPath()),
		zap.String("request_id", ctx.GetString(util.RequestIDKey)),
		zap.Error(err),
	)
}
