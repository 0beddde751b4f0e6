package controller

import (
	"errors"
	"net/http"
	"step2hub/internal/model"
	"step2hub/internal/service"
	"step2hub/internal/util"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	DashboardService *service.DashboardService
	Backend          string
}

func NewDashboardController(dashboardService *service.DashboardService, backend string) *DashboardController {
	return &DashboardController{DashboardService: dashboardService, Backend: backend}
}

// Dashboard 总览页面
func (c *DashboardController) Dashboard(ctx *gin.Context) {
	data := view(c.Backend, "Dashboard", "dashboard")

	stats, err := c.DashboardService.Stats(ctx.Request.Context())
	if err != nil {
		logError(ctx, err)
		ctx.HTML(http.StatusInternalServerError, "dashboard.html",
			withFlash(data, flashError, "Could not load logs: "+err.Error()))
		return
	}

	maxTopic, maxErr := 0, 0
	for _, t := range stats.TopicPerformance {
		if t.N > maxTopic {
			maxTopic = t.N
		}
	}
	for _, e := range stats.ErrorCounts {
		if e.Count > maxErr {
			maxErr = e.Count
		}
	}

	data["Stats"] = stats
	data["MaxTopicN"] = maxTopic
	data["MaxErrorCount"] = maxErr
	ctx.HTML(http.StatusOK, "dashboard.html", data)
}

// @Summary 获取仪表盘数据
// @Description 总条数、正确率、最近 20 条正确率、主题与错误类型分布
// @Tags 仪表盘
// @Produce json
// @Success 200 {object} util.Response{data=model.DashboardStats}
// @Router /api/dashboard [get]
func (c *DashboardController) GetDashboard(ctx *gin.Context) {
	stats, err := c.DashboardService.Stats(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, stats)
}

// @Summary 分组统计
// @Tags 仪表盘
// @Produce json
// @Param group_by query string false "分组列" Enums(source, exam, question_type, confidence, topics, error_types)
// @Param metric query string false "指标" Enums(count, accuracy)
// @Success 200 {object} util.Response
// @Router /api/aggregate [get]
func (c *DashboardController) Aggregate(ctx *gin.Context) {
	groupBy := model.GroupBy(ctx.DefaultQuery("group_by", string(model.GroupByTopics)))
	metric := model.Metric(ctx.DefaultQuery("metric", string(model.MetricCount)))

	result, err := c.DashboardService.Aggregate(ctx.Request.Context(), groupBy, metric)
	if err != nil {
		if errors.Is(err, util.ErrInvalidGroupBy) || errors.Is(err, util.ErrInvalidMetric) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"groupBy": groupBy,
		"metric":  metric,
		"result":  result,
	})
}
