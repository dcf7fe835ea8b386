package api_router

import (
	"context"

	"github.com/haierkeys/fast-backup-service/internal/app"
	"github.com/haierkeys/fast-backup-service/internal/domain"
	"github.com/haierkeys/fast-backup-service/internal/dto"
	pkgapp "github.com/haierkeys/fast-backup-service/pkg/app"
	"github.com/haierkeys/fast-backup-service/pkg/code"

	"github.com/gin-gonic/gin"
)

// BackupHandler backup API router handler
// BackupHandler 备份 API 路由处理器
type BackupHandler struct {
	*Handler
}

// NewBackupHandler creates BackupHandler instance
// NewBackupHandler 创建 BackupHandler 实例
func NewBackupHandler(a *app.App) *BackupHandler {
	return &BackupHandler{
		Handler: NewHandler(a),
	}
}

// Create creates a backup
// @Summary Create backup
// @Tags Backup
// @Accept json
// @Produce json
// @Param params body dto.BackupConfigRequest false "Backup Parameters"
// @Success 200 {object} pkgapp.Res{data=dto.BackupCreateResult} "Success"
// @Failure 400 {object} pkgapp.Res "Invalid Params"
// @Router /api/backup [post]
func (h *BackupHandler) Create(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.BackupConfigRequest{}

	if c.Request.ContentLength != 0 {
		if valid, errs := pkgapp.BindAndValid(c, params); !valid {
			response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()...).WithData(errs.MapsToString()))
			return
		}
	}

	var result *dto.BackupCreateResult
	err := h.heavy(c.Request.Context(), func(ctx context.Context) error {
		var err error
		result, err = h.App.BackupService.CreateBackup(ctx, params)
		return err
	})
	if err != nil {
		h.fail(c, "BackupHandler.Create", err)
		return
	}

	response.ToResponse(code.SuccessCreate.WithData(result))
}

// List lists completed backups, newest first
// @Summary List backups
// @Tags Backup
// @Produce json
// @Success 200 {object} pkgapp.Res{data=pkgapp.ListRes{list=[]dto.BackupDTO}} "Success"
// @Router /api/backups [get]
func (h *BackupHandler) List(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	backups, err := h.App.BackupService.ListBackups(c.Request.Context())
	if err != nil {
		h.fail(c, "BackupHandler.List", err)
		return
	}

	response.ToResponseList(code.Success, backups, len(backups))
}

// Stats returns backup statistics
// @Summary Backup statistics
// @Tags Backup
// @Produce json
// @Success 200 {object} pkgapp.Res{data=dto.BackupStats} "Success"
// @Router /api/backup/stats [get]
func (h *BackupHandler) Stats(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	stats, err := h.App.BackupService.GetBackupStats(c.Request.Context())
	if err != nil {
		h.fail(c, "BackupHandler.Stats", err)
		return
	}

	response.ToResponse(code.Success.WithData(stats))
}

// Inspect reads one artifact and summarizes its collections
// @Summary Inspect backup
// @Tags Backup
// @Produce json
// @Param id path string true "Backup ID"
// @Success 200 {object} pkgapp.Res{data=dto.BackupInspectDTO} "Success"
// @Failure 400 {object} pkgapp.Res "Invalid Params"
// @Router /api/backup/{id} [get]
func (h *BackupHandler) Inspect(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.BackupIDRequest{}
	if err := c.ShouldBindUri(params); err != nil {
		response.ToResponse(code.ErrorInvalidParams.WithDetails(err.Error()))
		return
	}

	info, err := h.App.BackupService.InspectBackup(c.Request.Context(), params.ID)
	if err != nil {
		h.fail(c, "BackupHandler.Inspect", err)
		return
	}

	response.ToResponse(code.Success.WithData(info))
}

// Delete deletes a backup artifact and its catalog row
// @Summary Delete backup
// @Tags Backup
// @Produce json
// @Param id path string true "Backup ID"
// @Success 200 {object} pkgapp.Res "Success"
// @Failure 400 {object} pkgapp.Res "Invalid Params"
// @Router /api/backup/{id} [delete]
func (h *BackupHandler) Delete(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.BackupIDRequest{}
	if err := c.ShouldBindUri(params); err != nil {
		response.ToResponse(code.ErrorInvalidParams.WithDetails(err.Error()))
		return
	}

	if err := h.App.BackupService.DeleteBackup(c.Request.Context(), params.ID); err != nil {
		h.fail(c, "BackupHandler.Delete", err)
		return
	}

	response.ToResponse(code.SuccessDelete)
}

// Cleanup applies retention to the catalog
// @Summary Cleanup old backups
// @Tags Backup
// @Accept json
// @Produce json
// @Param params body dto.BackupConfigRequest false "Retention Parameters"
// @Success 200 {object} pkgapp.Res{data=dto.CleanupResult} "Success"
// @Router /api/backup/cleanup [post]
func (h *BackupHandler) Cleanup(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.BackupConfigRequest{}

	if c.Request.ContentLength != 0 {
		if valid, errs := pkgapp.BindAndValid(c, params); !valid {
			response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()...).WithData(errs.MapsToString()))
			return
		}
	}

	result, err := h.App.BackupService.CleanupOldBackups(c.Request.Context(), params)
	if err != nil {
		h.fail(c, "BackupHandler.Cleanup", err)
		return
	}

	response.ToResponse(code.Success.WithData(result))
}

// Restore restores collections from a backup
// @Summary Restore backup
// @Tags Backup
// @Accept json
// @Produce json
// @Param params body dto.RestoreRequest true "Restore Parameters"
// @Success 200 {object} pkgapp.Res{data=domain.RestoreResult} "Success"
// @Failure 400 {object} pkgapp.Res "Invalid Params"
// @Router /api/backup/restore [post]
func (h *BackupHandler) Restore(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.RestoreRequest{}

	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()...).WithData(errs.MapsToString()))
		return
	}

	var result *domain.RestoreResult
	err := h.heavy(c.Request.Context(), func(ctx context.Context) error {
		var err error
		result, err = h.App.BackupService.RestoreBackup(ctx, params)
		return err
	})
	if err != nil {
		h.fail(c, "BackupHandler.Restore", err)
		return
	}

	response.ToResponse(code.Success.WithData(result))
}
