package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/parse"
	"billing-admin-backend/internal/store"
)

type createServiceRequest struct {
	Name   string              `json:"name" binding:"required,min=1,max=255"`
	Price  decimal.Decimal     `json:"price" binding:"positive_decimal"`
	Status model.ServiceStatus `json:"status" binding:"omitempty,oneof=active inactive"`
}

type updateServiceRequest struct {
	Name   *string              `json:"name" binding:"omitempty,min=1,max=255"`
	Price  *decimal.Decimal     `json:"price" binding:"omitempty,positive_decimal"`
	Status *model.ServiceStatus `json:"status" binding:"omitempty,oneof=active inactive"`
}

type historyListResponse struct {
	History    []historyResponse `json:"history"`
	Pagination pagination        `json:"pagination"`
}

// ListServices handles GET /machines/:id/services.
func (h *Handler) ListServices(c *gin.Context) {
	h.listServices(c, model.ServiceStatus(c.Query("status")))
}

// ListActiveServices handles GET /machines/:id/services/active.
func (h *Handler) ListActiveServices(c *gin.Context) {
	h.listServices(c, model.ServiceActive)
}

func (h *Handler) listServices(c *gin.Context, status model.ServiceStatus) {
	if status != "" && status != model.ServiceActive && status != model.ServiceInactive {
		h.fail(c, invalidParam("status must be active or inactive"))
		return
	}
	m, ok := h.machineParam(c, "id")
	if !ok {
		return
	}
	services, err := h.store.ListServices(c.Request.Context(), m.ID, status)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, serviceDTOs(services))
}

// serviceInScope loads a service whose machine the caller may act on.
func (h *Handler) serviceInScope(c *gin.Context) (*model.Service, *model.Machine, bool) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return nil, nil, false
	}
	svc, err := h.store.ServiceByID(c.Request.Context(), id)
	if err != nil {
		h.failStorage(c, err, "Service")
		return nil, nil, false
	}
	m, ok := h.machineInScope(c, svc.MachineID)
	if !ok {
		return nil, nil, false
	}
	return svc, m, true
}

// GetService handles GET /services/:id.
func (h *Handler) GetService(c *gin.Context) {
	svc, m, ok := h.serviceInScope(c)
	if !ok {
		return
	}
	resp := serviceDTO(svc)
	resp.MachineName = m.Name
	respond(c, http.StatusOK, resp)
}

// CreateService handles POST /machines/:id/services.
func (h *Handler) CreateService(c *gin.Context) {
	m, ok := h.machineParam(c, "id")
	if !ok {
		return
	}
	var req createServiceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	status := req.Status
	if status == "" {
		status = model.ServiceActive
	}

	svc := &model.Service{
		MachineID: m.ID,
		Name:      strings.TrimSpace(req.Name),
		Price:     req.Price,
		Status:    status,
	}
	history := &model.CatalogHistory{
		Action:   "Service created",
		Details:  fmt.Sprintf("Created service %q at %s", svc.Name, svc.Price.StringFixed(2)),
		UserName: currentUser(c).Username,
		Type:     model.HistoryCreate,
		Changes: datatypes.JSONMap{
			"name":   map[string]any{"old": nil, "new": svc.Name},
			"price":  map[string]any{"old": nil, "new": svc.Price.StringFixed(2)},
			"status": map[string]any{"old": nil, "new": string(svc.Status)},
		},
	}
	if err := h.store.CreateService(c.Request.Context(), svc, history); err != nil {
		h.failStorage(c, err, "Service")
		return
	}
	respond(c, http.StatusCreated, serviceDTO(svc))
}

// UpdateService handles PUT /services/:id. A status-only change is recorded
// as a status history entry.
func (h *Handler) UpdateService(c *gin.Context) {
	svc, _, ok := h.serviceInScope(c)
	if !ok {
		return
	}
	var req updateServiceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}

	fields, changes := store.ServicePatch{Name: req.Name, Price: req.Price, Status: req.Status}.Diff(svc)
	if len(fields) == 0 {
		respond(c, http.StatusOK, serviceDTO(svc))
		return
	}

	historyType := model.HistoryUpdate
	if _, onlyStatus := changes["status"]; onlyStatus && len(changes) == 1 {
		historyType = model.HistoryStatus
	}
	history := &model.CatalogHistory{
		Action:   "Service updated",
		Details:  fmt.Sprintf("Updated service %q", svc.Name),
		UserName: currentUser(c).Username,
		Type:     historyType,
		Changes:  changes,
	}
	if err := h.store.UpdateService(c.Request.Context(), svc, fields, history); err != nil {
		h.failStorage(c, err, "Service")
		return
	}
	respond(c, http.StatusOK, serviceDTO(svc))
}

// DeleteService handles DELETE /services/:id.
func (h *Handler) DeleteService(c *gin.Context) {
	svc, _, ok := h.serviceInScope(c)
	if !ok {
		return
	}
	history := &model.CatalogHistory{
		Action:   "Service deleted",
		Details:  fmt.Sprintf("Deleted service %q", svc.Name),
		UserName: currentUser(c).Username,
		Type:     model.HistoryDelete,
		Changes: datatypes.JSONMap{
			"name":  map[string]any{"old": svc.Name, "new": nil},
			"price": map[string]any{"old": svc.Price.StringFixed(2), "new": nil},
		},
	}
	if err := h.store.DeleteService(c.Request.Context(), svc, history); err != nil {
		h.failStorage(c, err, "Service")
		return
	}
	respondMessage(c, "Service deleted successfully")
}

// ListCatalogHistory handles GET /machines/:id/catalog-history.
func (h *Handler) ListCatalogHistory(c *gin.Context) {
	m, ok := h.machineParam(c, "id")
	if !ok {
		return
	}
	page, err := parse.ParsePage(c.Query("page"), c.Query("limit"), 50, 100)
	if err != nil {
		h.fail(c, invalidParam(err.Error()))
		return
	}
	result, err := h.store.ListCatalogHistory(c.Request.Context(), m.ID, page)
	if err != nil {
		h.fail(c, err)
		return
	}
	history := make([]historyResponse, len(result.Items))
	for i := range result.Items {
		history[i] = historyDTO(&result.Items[i])
	}
	respond(c, http.StatusOK, historyListResponse{History: history, Pagination: paginationOf(result)})
}
