package controller

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"step2hub/internal/model"
	"step2hub/internal/service"
	"step2hub/internal/util"
	"step2hub/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReviewController struct {
	LogService    *service.LogService
	ExportService *service.ExportService
	Backend       string
}

func NewReviewController(logService *service.LogService, exportService *service.ExportService, backend string) *ReviewController {
	return &ReviewController{LogService: logService, ExportService: exportService, Backend: backend}
}

func bindFilter(ctx *gin.Context) (model.LogFilter, error) {
	var filter model.LogFilter
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		return filter, err
	}
	filter.Normalize()
	return filter, nil
}

// Review 筛选与导出页面
func (c *ReviewController) Review(ctx *gin.Context) {
	data := view(c.Backend, "Review / Export", "review")
	data["From"] = ctx.Query("from")
	data["To"] = ctx.Query("to")
	// 导出链接沿用当前查询条件
	data["Query"] = template.URL(ctx.Request.URL.RawQuery)
	data["Entries"] = []model.LogEntry{}

	filter, err := bindFilter(ctx)
	data["Filter"] = filter
	data["Filtered"] = !filter.IsEmpty()
	data["Options"] = &service.FilterOptions{}
	if err != nil {
		data["Errors"] = []string{"Invalid filter: " + err.Error()}
		ctx.HTML(http.StatusBadRequest, "review.html", data)
		return
	}

	reqCtx := ctx.Request.Context()
	options, err := c.LogService.FilterOptions(reqCtx)
	if err != nil {
		logError(ctx, err)
		ctx.HTML(http.StatusInternalServerError, "review.html",
			withFlash(data, flashError, "Could not load logs: "+err.Error()))
		return
	}
	data["Options"] = options

	entries, err := c.LogService.ListLogs(reqCtx, filter)
	if err != nil {
		logError(ctx, err)
		ctx.HTML(http.StatusInternalServerError, "review.html",
			withFlash(data, flashError, "Could not load logs: "+err.Error()))
		return
	}
	data["Entries"] = entries

	ctx.HTML(http.StatusOK, "review.html", data)
}

// Detail 单条记录详情
func (c *ReviewController) Detail(ctx *gin.Context) {
	data := view(c.Backend, "Entry", "review")
	data["Entry"] = (*model.LogEntry)(nil)

	id, ok := util.ParseID(ctx.Param("id"))
	if !ok {
		ctx.HTML(http.StatusNotFound, "detail.html", withFlash(data, flashError, "Entry not found."))
		return
	}

	entry, err := c.LogService.GetLog(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, util.ErrLogNotFound) {
			ctx.HTML(http.StatusNotFound, "detail.html",
				withFlash(data, flashInfo, fmt.Sprintf("Entry #%d not found.", id)))
			return
		}
		logError(ctx, err)
		ctx.HTML(http.StatusInternalServerError, "detail.html",
			withFlash(data, flashError, "Could not load logs: "+err.Error()))
		return
	}

	data["Title"] = fmt.Sprintf("Entry #%d", entry.ID)
	data["Entry"] = entry
	ctx.HTML(http.StatusOK, "detail.html", data)
}

// ExportCSV 下载筛选后的 CSV
func (c *ReviewController) ExportCSV(ctx *gin.Context) {
	c.export(ctx, "csv", "text/csv; charset=utf-8", util.CSVFileName, c.ExportService.WriteCSV)
}

// ExportXLSX 下载筛选后的 Excel
func (c *ReviewController) ExportXLSX(ctx *gin.Context) {
	c.export(ctx, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		util.XLSXFileName, c.ExportService.WriteXLSX)
}

type exportFunc func(ctx context.Context, w io.Writer, filter model.LogFilter) (int, error)

func (c *ReviewController) export(ctx *gin.Context, format, contentType, filename string, write exportFunc) {
	filter, err := bindFilter(ctx)
	if err != nil {
		ctx.String(http.StatusBadRequest, "Invalid filter: %s", err.Error())
		return
	}

	ctx.Header("Content-Type", contentType)
	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	n, err := write(ctx.Request.Context(), ctx.Writer, filter)
	if err != nil {
		logError(ctx, err)
		// 尚未写出内容时仍可返回错误状态
		if !ctx.Writer.Written() {
			ctx.Header("Content-Disposition", "")
			ctx.String(http.StatusInternalServerError, "Could not load logs: %s", err.Error())
		}
		return
	}

	logger.Log.Info("Logs exported",
		zap.String("format", format),
		zap.Int("rows", n),
		zap.String("request_id", ctx.GetString(util.RequestIDKey)))
}
