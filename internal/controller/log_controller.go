package controller

import (
	"errors"
	"fmt"
	"net/http"
	"step2hub/internal/model"
	"step2hub/internal/service"
	"step2hub/internal/util"
	"strings"

	"github.com/gin-gonic/gin"
)

type LogController struct {
	LogService *service.LogService
	Tagger     *service.TaggingService
	Backend    string
}

func NewLogController(logService *service.LogService, tagger *service.TaggingService, backend string) *LogController {
	return &LogController{LogService: logService, Tagger: tagger, Backend: backend}
}

func (c *LogController) formView(in service.LogInput) gin.H {
	data := view(c.Backend, "Log New Question", "log")
	data["Input"] = in
	data["QuestionTypes"] = c.Tagger.QuestionTypeOptions()
	data["TopicOptions"] = c.Tagger.TopicOptions()
	data["ErrorTypeOptions"] = c.Tagger.ErrorTypeOptions()
	return data
}

// applySuggestion 用当前输入的自动建议覆盖分类字段
func (c *LogController) applySuggestion(in service.LogInput) service.LogInput {
	s := c.Tagger.Suggest(in.SuggestInput())
	in.QuestionType = s.QuestionType
	in.Topics = s.Topics
	in.ErrorTypes = s.ErrorTypes
	return in
}

// NewLogForm 空白表单，已保存时显示提示
func (c *LogController) NewLogForm(ctx *gin.Context) {
	in := c.applySuggestion(service.LogInput{Confidence: service.DefaultConfidence})
	data := c.formView(in)
	if id, ok := util.ParseID(ctx.Query("saved")); ok {
		withFlash(data, flashSuccess, fmt.Sprintf("Saved! (entry #%d)", id))
	}
	ctx.HTML(http.StatusOK, "log.html", data)
}

// SuggestForm 保留已填内容，重新计算建议分类
func (c *LogController) SuggestForm(ctx *gin.Context) {
	var in service.LogInput
	if err := ctx.ShouldBind(&in); err != nil {
		data := c.formView(in)
		data["Errors"] = []string{"Invalid form: " + err.Error()}
		ctx.HTML(http.StatusBadRequest, "log.html", data)
		return
	}
	if in.Confidence == 0 {
		in.Confidence = service.DefaultConfidence
	}
	ctx.HTML(http.StatusOK, "log.html", c.formView(c.applySuggestion(in)))
}

// CreateLogForm 表单提交，成功后重定向回空白表单
func (c *LogController) CreateLogForm(ctx *gin.Context) {
	var in service.LogInput
	if err := ctx.ShouldBind(&in); err != nil {
		data := c.formView(in)
		data["Errors"] = []string{"Invalid form: " + err.Error()}
		ctx.HTML(http.StatusBadRequest, "log.html", data)
		return
	}
	// 表单里未勾选即为用户清空，不再回退到自动建议
	if in.Topics == nil {
		in.Topics = []string{}
	}
	if in.ErrorTypes == nil {
		in.ErrorTypes = []string{}
	}

	entry, err := c.LogService.CreateLog(ctx.Request.Context(), in)
	if err != nil {
		data := c.formView(in)
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			data["Errors"] = verr.Messages
			ctx.HTML(http.StatusUnprocessableEntity, "log.html", data)
			return
		}
		logError(ctx, err)
		withFlash(data, flashError, "Save failed: "+err.Error())
		ctx.HTML(http.StatusInternalServerError, "log.html", data)
		return
	}

	ctx.Redirect(http.StatusSeeOther, fmt.Sprintf("/log?saved=%d", entry.ID))
}

// @Summary 新建记录
// @Description 保存一条做题记录，未提供的分类使用自动建议
// @Tags 记录
// @Accept json
// @Produce json
// @Param body body service.LogInput true "记录内容"
// @Success 201 {object} util.Response{data=model.LogEntry}
// @Router /api/logs [post]
func (c *LogController) CreateLog(ctx *gin.Context) {
	var in service.LogInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	entry, err := c.LogService.CreateLog(ctx.Request.Context(), in)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			util.BadRequest(ctx, strings.Join(verr.Messages, " "))
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, entry)
}

// @Summary 记录列表
// @Description 按条件筛选，按时间倒序
// @Tags 记录
// @Produce json
// @Param source query string false "来源"
// @Param exam query string false "考试/题块"
// @Param question_type query string false "题型"
// @Param topic query string false "主题标签"
// @Param error_type query string false "错误类型"
// @Param from query string false "开始日期 YYYY-MM-DD"
// @Param to query string false "结束日期 YYYY-MM-DD"
// @Param limit query int false "条数上限"
// @Success 200 {object} util.Response{data=util.ListResponse}
// @Router /api/logs [get]
func (c *LogController) ListLogs(ctx *gin.Context) {
	var filter model.LogFilter
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	filter.Normalize()

	entries, err := c.LogService.ListLogs(ctx.Request.Context(), filter)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.ListResponse{List: entries, Total: len(entries)})
}

// @Summary 获取单条记录
// @Tags 记录
// @Produce json
// @Param id path int true "记录ID"
// @Success 200 {object} util.Response{data=model.LogEntry}
// @Router /api/logs/{id} [get]
func (c *LogController) GetLog(ctx *gin.Context) {
	id, ok := util.ParseID(ctx.Param("id"))
	if !ok {
		util.BadRequest(ctx, "invalid id")
		return
	}

	entry, err := c.LogService.GetLog(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, util.ErrLogNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, entry)
}

// @Summary 预览自动分类
// @Tags 记录
// @Accept json
// @Produce json
// @Param body body model.SuggestInput true "题干、解析与答案"
// @Success 200 {object} util.Response{data=model.Suggestion}
// @Router /api/suggest [post]
func (c *LogController) Suggest(ctx *gin.Context) {
	var in model.SuggestInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Success(ctx, c.Tagger.Suggest(in))
}
