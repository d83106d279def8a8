package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"billing-admin-backend/internal/model"
	"billing-admin-backend/internal/parse"
	"billing-admin-backend/internal/store"
)

type createMachineRequest struct {
	Name           string `json:"name" binding:"required,min=1,max=255"`
	Location       string `json:"location" binding:"required,min=1,max=255"`
	UsernamePrefix string `json:"username_prefix" binding:"omitempty,alphanum,max=20"`
	Password       string `json:"password" binding:"required,min=4"`
}

type updateMachineRequest struct {
	Name     *string              `json:"name" binding:"omitempty,min=1,max=255"`
	Location *string              `json:"location" binding:"omitempty,min=1,max=255"`
	Username *string              `json:"username" binding:"omitempty,min=1,max=100"`
	Password *string              `json:"password" binding:"omitempty,min=4"`
	Status   *model.MachineStatus `json:"status" binding:"omitempty,oneof=online offline maintenance"`
}

type machineStatusRequest struct {
	Status            model.MachineStatus `json:"status" binding:"required,oneof=online offline maintenance"`
	LastSync          *time.Time          `json:"last_sync"`
	OnlineCollection  *decimal.Decimal    `json:"online_collection"`
	OfflineCollection *decimal.Decimal    `json:"offline_collection"`
}

type machineListResponse struct {
	Machines   []machineResponse `json:"machines"`
	Pagination pagination        `json:"pagination"`
}

// ListMachines handles GET /machines.
func (h *Handler) ListMachines(c *gin.Context) {
	page, err := parse.ParsePage(c.Query("page"), c.Query("limit"), 50, 100)
	if err != nil {
		h.fail(c, invalidParam(err.Error()))
		return
	}
	status := model.MachineStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		h.fail(c, invalidParam("status must be online, offline, or maintenance"))
		return
	}

	result, err := h.store.ListMachines(c.Request.Context(), store.MachineFilter{
		OwnerID: currentUser(c).ID,
		Status:  status,
		Search:  c.Query("search"),
		Page:    page,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	machines := make([]machineResponse, len(result.Items))
	for i := range result.Items {
		machines[i] = machineDTO(&result.Items[i])
	}
	respond(c, http.StatusOK, machineListResponse{Machines: machines, Pagination: paginationOf(result)})
}

// CreateMachine handles POST /machines. The username is generated from the
// prefix.
func (h *Handler) CreateMachine(c *gin.Context) {
	var req createMachineRequest
	if !h.bindJSON(c, &req) {
		return
	}
	prefix := req.UsernamePrefix
	if prefix == "" {
		prefix = "admin"
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	m := &model.Machine{
		UserID:            currentUser(c).ID,
		Name:              strings.TrimSpace(req.Name),
		Location:          strings.TrimSpace(req.Location),
		HashedPassword:    hash,
		Status:            model.MachineOffline,
		OnlineCollection:  decimal.Zero,
		OfflineCollection: decimal.Zero,
	}
	if err := h.store.CreateMachine(c.Request.Context(), m, prefix); err != nil {
		h.failStorage(c, err, "Machine")
		return
	}
	respond(c, http.StatusCreated, machineDTO(m))
}

// GetMachine handles GET /machines/:id.
func (h *Handler) GetMachine(c *gin.Context) {
	m, ok := h.machineParam(c, "id")
	if !ok {
		return
	}
	respond(c, http.StatusOK, machineDTO(m))
}

// UpdateMachine handles PUT and PATCH /machines/:id.
func (h *Handler) UpdateMachine(c *gin.Context) {
	m, ok := h.machineParam(c, "id")
	if !ok {
		return
	}
	var req updateMachineRequest
	if !h.bindJSON(c, &req) {
		return
	}

	fields := map[string]any{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Location != nil {
		fields["location"] = strings.TrimSpace(*req.Location)
	}
	if req.Username != nil {
		fields["username"] = strings.TrimSpace(*req.Username)
	}
	if req.Password != nil {
		hash, err := h.hasher.Hash(*req.Password)
		if err != nil {
			h.fail(c, err)
			return
		}
		fields["hashed_password"] = hash
	}
	if req.Status != nil {
		fields["status"] = *req.Status
	}

	if len(fields) > 0 {
		if err := h.store.UpdateMachine(c.Request.Context(), m, fields); err != nil {
			h.failStorage(c, err, "Machine")
			return
		}
	}
	respond(c, http.StatusOK, machineDTO(m))
}

// DeleteMachine handles DELETE /machines/:id.
func (h *Handler) DeleteMachine(c *gin.Context) {
	m, ok := h.machineParam(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteMachine(c.Request.Context(), m.ID); err != nil {
		h.failStorage(c, err, "Machine")
		return
	}
	respondMessage(c, "Machine deleted successfully")
}

// UpdateMachineStatus handles PATCH /machines/:id/status. Going online
// resolves the machine's open alerts.
func (h *Handler) UpdateMachineStatus(c *gin.Context) {
	m, ok := h.machineParam(c, "id")
	if !ok {
		return
	}
	var req machineStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	fields := map[string]any{"status": req.Status}
	if req.LastSync != nil {
		fields["last_sync"] = req.LastSync.UTC()
	}
	if req.OnlineCollection != nil {
		fields["online_collection"] = *req.OnlineCollection
	}
	if req.OfflineCollection != nil {
		fields["offline_collection"] = *req.OfflineCollection
	}

	ctx := c.Request.Context()
	if err := h.store.UpdateMachine(ctx, m, fields); err != nil {
		h.failStorage(c, err, "Machine")
		return
	}
	if req.Status == model.MachineOnline {
		if _, err := h.alerts.RecoverMachine(ctx, m.ID); err != nil {
			h.fail(c, err)
			return
		}
	}
	respond(c, http.StatusOK, machineDTO(m))
}
