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

// RecoveryHandler 灾难恢复计划处理器
type RecoveryHandler struct {
	*Handler
}

// NewRecoveryHandler 创建 RecoveryHandler 实例
func NewRecoveryHandler(a *app.App) *RecoveryHandler {
	return &RecoveryHandler{Handler: NewHandler(a)}
}

// Create creates a recovery plan
// @Summary Create recovery plan
// @Tags Recovery
// @Accept json
// @Produce json
// @Param params body dto.RecoveryPlanRequest true "Plan Parameters"
// @Success 200 {object} pkgapp.Res{data=dto.RecoveryPlanDTO} "Success"
// @Failure 400 {object} pkgapp.Res "Invalid Params"
// @Router /api/recovery/plan [post]
func (h *RecoveryHandler) Create(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.RecoveryPlanRequest{}

	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()...).WithData(errs.MapsToString()))
		return
	}

	plan, err := h.App.RecoveryService.CreateRecoveryPlan(c.Request.Context(), params)
	if err != nil {
		h.fail(c, "RecoveryHandler.Create", err)
		return
	}

	response.ToResponse(code.SuccessCreate.WithData(plan))
}

// List lists recovery plans joined with their backups, newest first
// @Summary List recovery plans
// @Tags Recovery
// @Produce json
// @Success 200 {object} pkgapp.Res{data=pkgapp.ListRes{list=[]dto.RecoveryPlanDTO}} "Success"
// @Router /api/recovery/plans [get]
func (h *RecoveryHandler) List(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	plans, err := h.App.RecoveryService.ListRecoveryPlans(c.Request.Context())
	if err != nil {
		h.fail(c, "RecoveryHandler.List", err)
		return
	}

	response.ToResponseList(code.Success, plans, len(plans))
}

// Stats returns recovery plan statistics
// @Summary Recovery statistics
// @Tags Recovery
// @Produce json
// @Success 200 {object} pkgapp.Res{data=dto.RecoveryStats} "Success"
// @Router /api/recovery/stats [get]
func (h *RecoveryHandler) Stats(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	stats, err := h.App.RecoveryService.GetRecoveryStats(c.Request.Context())
	if err != nil {
		h.fail(c, "RecoveryHandler.Stats", err)
		return
	}

	response.ToResponse(code.Success.WithData(stats))
}

// Get returns one recovery plan
// @Summary Get recovery plan
// @Tags Recovery
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} pkgapp.Res{data=dto.RecoveryPlanDTO} "Success"
// @Router /api/recovery/plan/{id} [get]
func (h *RecoveryHandler) Get(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.PlanIDRequest{}
	if err := c.ShouldBindUri(params); err != nil {
		response.ToResponse(code.ErrorInvalidParams.WithDetails(err.Error()))
		return
	}

	plan, err := h.App.RecoveryService.GetRecoveryPlan(c.Request.Context(), params.ID)
	if err != nil {
		h.fail(c, "RecoveryHandler.Get", err)
		return
	}

	response.ToResponse(code.Success.WithData(plan))
}

// Update updates the non-empty fields of a recovery plan
// @Summary Update recovery plan
// @Tags Recovery
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param params body dto.RecoveryPlanUpdateRequest true "Plan Parameters"
// @Success 200 {object} pkgapp.Res{data=dto.RecoveryPlanDTO} "Success"
// @Router /api/recovery/plan/{id} [put]
func (h *RecoveryHandler) Update(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	id := &dto.PlanIDRequest{}
	if err := c.ShouldBindUri(id); err != nil {
		response.ToResponse(code.ErrorInvalidParams.WithDetails(err.Error()))
		return
	}
	params := &dto.RecoveryPlanUpdateRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()...).WithData(errs.MapsToString()))
		return
	}

	plan, err := h.App.RecoveryService.UpdateRecoveryPlan(c.Request.Context(), id.ID, params)
	if err != nil {
		h.fail(c, "RecoveryHandler.Update", err)
		return
	}

	response.ToResponse(code.SuccessUpdate.WithData(plan))
}

// Delete deletes a recovery plan
// @Summary Delete recovery plan
// @Tags Recovery
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} pkgapp.Res "Success"
// @Router /api/recovery/plan/{id} [delete]
func (h *RecoveryHandler) Delete(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.PlanIDRequest{}
	if err := c.ShouldBindUri(params); err != nil {
		response.ToResponse(code.ErrorInvalidParams.WithDetails(err.Error()))
		return
	}

	if err := h.App.RecoveryService.DeleteRecoveryPlan(c.Request.Context(), params.ID); err != nil {
		h.fail(c, "RecoveryHandler.Delete", err)
		return
	}

	response.ToResponse(code.SuccessDelete)
}

// Execute runs a recovery plan against the document store
// @Summary Execute recovery plan
// @Tags Recovery
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} pkgapp.Res{data=domain.RestoreResult} "Success"
// @Router /api/recovery/plan/{id}/execute [post]
func (h *RecoveryHandler) Execute(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.PlanIDRequest{}
	if err := c.ShouldBindUri(params); err != nil {
		response.ToResponse(code.ErrorInvalidParams.WithDetails(err.Error()))
		return
	}

	var result *domain.RestoreResult
	err := h.heavy(c.Request.Context(), func(ctx context.Context) error {
		var err error
		result, err = h.App.RecoveryService.ExecuteRecovery(ctx, params.ID)
		return err
	})
	if err != nil {
		h.fail(c, "RecoveryHandler.Execute", err)
		return
	}

	response.ToResponse(code.Success.WithData(result))
}

// Test runs a recovery drill, validate-only or a skip mode dry run
// @Summary Test recovery plan
// @Tags Recovery
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param params body dto.TestPlanRequest false "Test Parameters"
// @Success 200 {object} pkgapp.Res{data=domain.TestRecord} "Success"
// @Router /api/recovery/plan/{id}/test [post]
func (h *RecoveryHandler) Test(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	id := &dto.PlanIDRequest{}
	if err := c.ShouldBindUri(id); err != nil {
		response.ToResponse(code.ErrorInvalidParams.WithDetails(err.Error()))
		return
	}
	params := &dto.TestPlanRequest{}
	if c.Request.ContentLength != 0 {
		if valid, errs := pkgapp.BindAndValid(c, params); !valid {
			response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()...).WithData(errs.MapsToString()))
			return
		}
	}

	var record *domain.TestRecord
	err := h.heavy(c.Request.Context(), func(ctx context.Context) error {
		var err error
		record, err = h.App.RecoveryService.TestRecoveryPlan(ctx, id.ID, params.Options())
		return err
	})
	if err != nil {
		h.fail(c, "RecoveryHandler.Test", err)
		return
	}

	response.ToResponse(code.Success.WithData(record))
}
