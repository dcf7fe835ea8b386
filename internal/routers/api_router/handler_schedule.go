package api_router

import (
	"github.com/haierkeys/fast-backup-service/internal/app"
	"github.com/haierkeys/fast-backup-service/internal/dto"
	"github.com/haierkeys/fast-backup-service/internal/service"
	"github.com/haierkeys/fast-backup-service/internal/task"
	pkgapp "github.com/haierkeys/fast-backup-service/pkg/app"
	"github.com/haierkeys/fast-backup-service/pkg/code"
	"github.com/haierkeys/fast-backup-service/pkg/util"

	"github.com/gin-gonic/gin"
)

// ScheduleHandler 定时备份任务处理器
type ScheduleHandler struct {
	*Handler
}

// NewScheduleHandler 创建 ScheduleHandler 实例
func NewScheduleHandler(a *app.App) *ScheduleHandler {
	return &ScheduleHandler{Handler: NewHandler(a)}
}

// Schedule registers a recurring backup job
// @Summary Schedule backup job
// @Tags Schedule
// @Accept json
// @Produce json
// @Param params body dto.ScheduleJobRequest true "Job Parameters"
// @Success 200 {object} pkgapp.Res{data=dto.JobDetails} "Success"
// @Failure 400 {object} pkgapp.Res "Invalid Params"
// @Router /api/backup/schedule [post]
func (h *ScheduleHandler) Schedule(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ScheduleJobRequest{}

	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()...).WithData(errs.MapsToString()))
		return
	}

	interval, err := util.ParseDuration(params.Interval)
	if err != nil || interval < task.MinJobInterval {
		response.ToResponse(code.ErrorInvalidParams.WithDetails("interval: " + params.Interval))
		return
	}

	// 提前校验备份配置，避免注册一个每次都会失败的任务
	if _, err := service.ResolveBackupConfig(&params.Config); err != nil {
		h.fail(c, "ScheduleHandler.Schedule", err)
		return
	}

	config := params.Config
	if !h.App.Scheduler.ScheduleBackupJob(params.JobID, &config, interval) {
		response.ToResponse(code.ErrorBackupJobExists.WithDetails(params.JobID))
		return
	}

	details, _ := h.App.Scheduler.JobDetails(params.JobID)
	response.ToResponse(code.SuccessCreate.WithData(details))
}

// Status returns the scheduler status
// @Summary Scheduler status
// @Tags Schedule
// @Produce json
// @Success 200 {object} pkgapp.Res{data=dto.SchedulerStatus} "Success"
// @Router /api/backup/schedule [get]
func (h *ScheduleHandler) Status(c *gin.Context) {
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(h.App.Scheduler.Status()))
}

// Details returns one job
// @Summary Job details
// @Tags Schedule
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} pkgapp.Res{data=dto.JobDetails} "Success"
// @Router /api/backup/schedule/{jobId} [get]
func (h *ScheduleHandler) Details(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	details, ok := h.App.Scheduler.JobDetails(c.Param("jobId"))
	if !ok {
		response.ToResponse(code.ErrorBackupJobNotFound)
		return
	}

	response.ToResponse(code.Success.WithData(details))
}

// Cancel cancels a recurring backup job
// @Summary Cancel backup job
// @Tags Schedule
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} pkgapp.Res "Success"
// @Router /api/backup/schedule/{jobId} [delete]
func (h *ScheduleHandler) Cancel(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	if !h.App.Scheduler.CancelBackupJob(c.Param("jobId")) {
		response.ToResponse(code.ErrorBackupJobNotFound)
		return
	}

	response.ToResponse(code.SuccessDelete)
}
