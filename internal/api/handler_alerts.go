package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"billing-admin-backend/internal/apperr"
	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/parse"
	"billing-admin-backend/internal/store"
)

type alertListResponse struct {
	Alerts          []alertResponse `json:"alerts"`
	Pagination      pagination      `json:"pagination"`
	UnresolvedCount int64           `json:"unresolved_count"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

// ListAlerts handles GET /alerts. Alerts are derived from machine state
// before the listing is read.
func (h *Handler) ListAlerts(c *gin.Context) {
	ctx := c.Request.Context()
	owner := currentUser(c).ID

	page, err := parse.ParsePage(c.Query("page"), c.Query("limit"), 50, 200)
	if err != nil {
		h.fail(c, invalidParam(err.Error()))
		return
	}
	filter := store.AlertFilter{OwnerID: owner, Page: page}

	if raw := c.Query("severity"); raw != "" {
		filter.Severity = model.Severity(raw)
		if !filter.Severity.Valid() {
			h.fail(c, invalidParam("severity must be critical, warning, or info"))
			return
		}
	}
	if raw := c.Query("resolved"); raw != "" {
		resolved, err := strconv.ParseBool(raw)
		if err != nil {
			h.fail(c, invalidParam("resolved must be true or false"))
			return
		}
		filter.Resolved = &resolved
	}
	if raw := c.Query("start_date"); raw != "" {
		t, _, err := parse.Date(raw, h.location())
		if err != nil {
			h.fail(c, invalidParam(err.Error()))
			return
		}
		filter.Since = &t
	}
	if raw := c.Query("end_date"); raw != "" {
		t, err := parse.RangeEnd(raw, h.location())
		if err != nil {
			h.fail(c, invalidParam(err.Error()))
			return
		}
		filter.Until = &t
	}
	machineID, ok := h.machineFilter(c, owner)
	if !ok {
		return
	}
	filter.MachineID = machineID

	if _, err := h.alerts.Refresh(ctx, owner); err != nil {
		h.fail(c, err)
		return
	}
	result, err := h.store.ListAlerts(ctx, filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	unresolved, err := h.store.CountUnresolvedAlerts(ctx, owner)
	if err != nil {
		h.fail(c, err)
		return
	}

	alerts := make([]alertResponse, len(result.Items))
	for i := range result.Items {
		alerts[i] = alertRowDTO(&result.Items[i])
	}
	pg := paginationOf(result)
	if pg.TotalPages < 1 {
		pg.TotalPages = 1
	}
	respond(c, http.StatusOK, alertListResponse{Alerts: alerts, Pagination: pg, UnresolvedCount: unresolved})
}

// ResolveAlert handles PATCH /alerts/:id/resolve.
func (h *Handler) ResolveAlert(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	user := currentUser(c)
	row, err := h.alerts.Resolve(c.Request.Context(), user.ID, id, user.ID)
	if err != nil {
		h.failStorage(c, err, "Alert")
		return
	}
	respond(c, http.StatusOK, alertRowDTO(row))
}

// DeleteAlert handles DELETE /alerts/:id.
func (h *Handler) DeleteAlert(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.store.AlertByID(ctx, currentUser(c).ID, id); err != nil {
		h.failStorage(c, err, "Alert")
		return
	}
	if err := h.store.DeleteAlert(ctx, id); err != nil {
		h.failStorage(c, err, "Alert")
		return
	}
	h.logger.Info("alert deleted", zap.String("alert_id", id.String()))
	respondMessage(c, "Alert deleted successfully")
}

// UnresolvedAlertCount handles GET /alerts/unresolved-count.
func (h *Handler) UnresolvedAlertCount(c *gin.Context) {
	n, err := h.store.CountUnresolvedAlerts(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, apperr.FromStorage(err, "Alert"))
		return
	}
	respond(c, http.StatusOK, countResponse{Count: n})
}
